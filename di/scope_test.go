package di

import (
	"errors"
	"sync"
	"testing"
	"time"
)

type unitOfWork struct {
	id       int
	disposed bool
}

func (u *unitOfWork) Dispose() { u.disposed = true }

var uowCounter int
var uowMu sync.Mutex

func newUnitOfWork() *unitOfWork {
	uowMu.Lock()
	defer uowMu.Unlock()
	uowCounter++
	return &unitOfWork{id: uowCounter}
}

func newScopedContainer(t *testing.T) Container {
	t.Helper()
	uowMu.Lock()
	uowCounter = 0
	uowMu.Unlock()

	c := New()
	if err := RegisterScoped[*unitOfWork](c, newUnitOfWork); err != nil {
		t.Fatalf("register: %v", err)
	}
	c.Lock()
	return c
}

func TestScopedSameWithinScope(t *testing.T) {
	c := newScopedContainer(t)
	s := c.CreateScope()

	a, err := Resolve[*unitOfWork](s)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	b, _ := Resolve[*unitOfWork](s)
	if a != b {
		t.Error("two resolutions within one scope returned different instances")
	}
	if uowCounter != 1 {
		t.Errorf("scoped producer ran %d times, want 1", uowCounter)
	}
}

func TestScopedDistinctAcrossScopes(t *testing.T) {
	c := newScopedContainer(t)
	s1 := c.CreateScope()
	s2 := c.CreateScope()

	a, _ := Resolve[*unitOfWork](s1)
	b, _ := Resolve[*unitOfWork](s2)
	if a == b {
		t.Error("two scopes shared a scoped instance")
	}
}

func TestScopedOnRootFails(t *testing.T) {
	c := newScopedContainer(t)

	_, err := Resolve[*unitOfWork](c)
	var scopeErr *ScopeError
	if !errors.As(err, &scopeErr) {
		t.Fatalf("expected *ScopeError, got %v", err)
	}
}

// 作用域内并发首次解析同一个 Scoped 服务：最多创建一次。
func TestScopedSingleFlight(t *testing.T) {
	c := newScopedContainer(t)
	s := c.CreateScope()

	const workers = 8
	results := make([]*unitOfWork, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			v, err := Resolve[*unitOfWork](s)
			if err != nil {
				t.Errorf("resolve: %v", err)
				return
			}
			results[idx] = v
		}(i)
	}
	wg.Wait()

	for i := 1; i < workers; i++ {
		if results[i] != results[0] {
			t.Fatalf("worker %d got a different scoped instance", i)
		}
	}
	if uowCounter != 1 {
		t.Errorf("scoped producer ran %d times, want 1", uowCounter)
	}
}

func TestScopeDisposeReleasesOwnInstancesOnly(t *testing.T) {
	uowMu.Lock()
	uowCounter = 0
	uowMu.Unlock()

	c := New()
	RegisterScoped[*unitOfWork](c, newUnitOfWork)
	shared := &unitOfWork{id: 999}
	RegisterSingleton[Disposable](c, Disposable(shared))
	c.Lock()

	s := c.CreateScope()
	scoped, _ := Resolve[*unitOfWork](s)
	GetRequiredService[Disposable](c)

	s.Dispose()
	s.Dispose() // 空操作

	if !scoped.disposed {
		t.Error("scope dispose did not release its scoped instance")
	}
	if shared.disposed {
		t.Error("scope dispose must not touch parent singletons")
	}

	if _, err := Resolve[*unitOfWork](s); err == nil {
		t.Error("resolve on a disposed scope should fail")
	}
}

// 作用域释放与排队中的解析竞争构造互斥：排在 Dispose 之后的解析必须失败，
// 不得向已释放的作用域补写实例。
func TestScopeResolveQueuedBehindDisposeFails(t *testing.T) {
	c := New()

	type gate struct{}
	entered := make(chan struct{})
	release := make(chan struct{})
	RegisterSingleton[*gate](c, func() *gate {
		close(entered)
		<-release
		return &gate{}
	})

	victim := &unitOfWork{id: 7}
	RegisterScoped[*unitOfWork](c, func() *unitOfWork { return victim })
	c.Lock()

	s := c.CreateScope()

	blockerDone := make(chan struct{})
	go func() {
		defer close(blockerDone)
		Resolve[*gate](c)
	}()
	<-entered

	disposeDone := make(chan struct{})
	go func() {
		defer close(disposeDone)
		s.Dispose()
	}()

	errCh := make(chan error, 1)
	go func() {
		// 快路径检查已通过，在构造互斥上排队
		_, err := Resolve[*unitOfWork](s)
		errCh <- err
	}()

	time.Sleep(50 * time.Millisecond)
	close(release)
	<-blockerDone
	<-disposeDone

	// 解析排在 Dispose 之后则必须失败；
	// 抢先拿到互斥则实例进入作用域释放序列，由 Dispose 释放。
	if err := <-errCh; err == nil && !victim.disposed {
		t.Error("resolve queued behind scope dispose stored an instance that will never be disposed")
	}
}

func TestScopeSharesParentSingletons(t *testing.T) {
	c := New()
	single := &unitOfWork{id: 1}
	RegisterSingleton[Disposable](c, Disposable(single))
	RegisterScoped[*unitOfWork](c, newUnitOfWork)
	c.Lock()

	s := c.CreateScope()
	fromScope, err := Resolve[Disposable](s)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	fromRoot, _ := Resolve[Disposable](c)
	if fromScope != fromRoot {
		t.Error("scope did not delegate singleton lookup to the parent")
	}
}
