package di

import (
	"reflect"
	"sync"
)

// Scope 表示一个作用域解析上下文。
// 单例查询委托给父容器，Scoped 实例由作用域自己持有；
// Dispose 只释放本作用域创建的实例，不触碰父容器的单例。
type Scope interface {
	Resolver

	// CreateScope 创建一个新的兄弟作用域（始终挂在根容器下）。
	CreateScope() Scope
	// Dispose 按创建逆序释放本作用域创建的可释放实例，重复调用是空操作。
	Dispose()
}

type scope struct {
	parent *container

	mu        sync.RWMutex
	instances map[reflect.Type]any
	// disposables 按创建顺序记录本作用域产出的可释放实例。
	disposables []any
	disposed    bool
}

func newScope(parent *container) *scope {
	return &scope{
		parent:    parent,
		instances: make(map[reflect.Type]any),
	}
}

func (s *scope) Resolve(typ reflect.Type) (any, error) {
	// 快路径：本作用域已创建的实例
	if v, ok := s.cached(typ); ok {
		return v, nil
	}
	if s.isDisposed() {
		return nil, &ResolutionError{Type: typ, Reason: "scope is disposed"}
	}
	return s.parent.resolveWith(typ, s)
}

func (s *scope) isDisposed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.disposed
}

func (s *scope) TryResolve(typ reflect.Type) (any, bool) {
	v, err := s.Resolve(typ)
	if err != nil {
		return nil, false
	}
	return v, true
}

func (s *scope) IsRegistered(typ reflect.Type) bool {
	return s.parent.IsRegistered(typ)
}

func (s *scope) CreateScope() Scope {
	return s.parent.CreateScope()
}

func (s *scope) cached(typ reflect.Type) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.instances[typ]
	return v, ok
}

// store 记录作用域实例。创建发生在父容器的构造互斥之内，
// 因此同一作用域对同一类型最多创建一次。
func (s *scope) store(typ reflect.Type, v any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.instances[typ]; exists {
		return
	}
	s.instances[typ] = v
	if isDisposable(v) {
		s.disposables = append(s.disposables, v)
	}
}

// Dispose 释放本作用域创建的实例。
// 与在途解析串行：持有父容器的构造互斥后再清场。
func (s *scope) Dispose() {
	s.parent.constructMu.Lock()
	defer s.parent.constructMu.Unlock()

	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return
	}
	s.disposed = true
	order := s.disposables
	s.disposables = nil
	s.instances = make(map[reflect.Type]any)
	s.mu.Unlock()

	for i := len(order) - 1; i >= 0; i-- {
		disposeValue(order[i])
	}
}
