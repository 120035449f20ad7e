package etcd

import (
	"testing"

	"github.com/gocrud/host/logging"
)

func TestClientOptionsValidate(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*ClientOptions)
		wantErr bool
	}{
		{"valid defaults", func(o *ClientOptions) {}, false},
		{"missing name", func(o *ClientOptions) { o.Name = "" }, true},
		{"no endpoints", func(o *ClientOptions) { o.Endpoints = nil }, true},
		{"zero dial timeout", func(o *ClientOptions) { o.DialTimeout = 0 }, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			opts := NewDefaultOptions("default")
			tc.mutate(opts)
			err := opts.Validate()
			if (err != nil) != tc.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestDuplicateClientCollected(t *testing.T) {
	b := NewBuilder().
		AddClient("dup", nil).
		AddClient("dup", nil)

	if _, err := b.Build(logging.NewLogger()); err == nil {
		t.Fatal("expected duplicate client error")
	}
}

func TestWatchConfigRecorded(t *testing.T) {
	b := NewBuilder().
		AddClient("default", nil).
		WatchConfig("default", "/config/app")

	if b.watchKeys["default"] != "/config/app" {
		t.Errorf("watchKeys = %v", b.watchKeys)
	}
}

func TestEmptyBuilderProducesNoFactory(t *testing.T) {
	factory, err := NewBuilder().Build(logging.NewLogger())
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if factory != nil {
		t.Error("empty builder should produce nil factory")
	}
}
