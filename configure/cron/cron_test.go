package cron

import (
	"testing"

	"github.com/gocrud/host/di"
	"github.com/gocrud/host/logging"
)

func testLogger() logging.Logger {
	return logging.NewLoggingBuilder().SetMinimumLevel(logging.LogLevelFatal).Build()
}

func TestAddJobInvalidSpec(t *testing.T) {
	svc := newService(testLogger(), nil)

	if err := svc.addJob("not-a-spec", "bad", func() {}); err == nil {
		t.Fatal("invalid cron spec must be rejected")
	}
}

func TestJobRegistrationAndRemoval(t *testing.T) {
	svc := newService(testLogger(), nil)

	if err := svc.addJob("@every 1h", "hourly", func() {}); err != nil {
		t.Fatalf("add job: %v", err)
	}
	if _, exists := svc.jobs["hourly"]; !exists {
		t.Fatal("job not recorded")
	}

	svc.removeJob("hourly")
	if _, exists := svc.jobs["hourly"]; exists {
		t.Fatal("job not removed")
	}
}

type syncTarget struct {
	called bool
}

func (s *syncTarget) Run() { s.called = true }

func TestWrapHandlerWithDI(t *testing.T) {
	target := &syncTarget{}

	c := di.New()
	di.RegisterSingleton[*syncTarget](c, target)
	c.Lock()

	wrapped, err := wrapHandlerWithDI(c, testLogger(), func(s *syncTarget) {
		s.Run()
	})
	if err != nil {
		t.Fatalf("wrap: %v", err)
	}

	wrapped()
	if !target.called {
		t.Error("handler dependencies were not injected")
	}
}

func TestWrapHandlerRejectsNonFunction(t *testing.T) {
	if _, err := wrapHandlerWithDI(di.New(), testLogger(), 42); err == nil {
		t.Fatal("non-function handler must be rejected")
	}
}

func TestWrapHandlerPanicIsolated(t *testing.T) {
	c := di.New()
	c.Lock()

	wrapped, err := wrapHandlerWithDI(c, testLogger(), func() {
		panic("boom")
	})
	if err != nil {
		t.Fatalf("wrap: %v", err)
	}

	// panic 被 recover 吞掉，不能传播到调度器
	wrapped()
}
