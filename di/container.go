package di

import (
	"io"
	"reflect"
	"sync"
	"sync/atomic"
)

// Resolver 是解析侧的最小接口。
// 构造函数可以声明一个 Resolver 参数，容器会注入当前解析上下文，
// 使工厂内部的递归解析共享同一个环检测栈。
type Resolver interface {
	// Resolve 解析请求类型的实例。
	Resolve(typ reflect.Type) (any, error)
	// TryResolve 解析实例，失败时返回 false 而不是错误。
	TryResolve(typ reflect.Type) (any, bool)
	// IsRegistered 纯查询，无副作用。
	IsRegistered(typ reflect.Type) bool
}

// Container 是依赖注入容器的公开门面。
// 注册在启动期完成，随后 Lock；运行期只做解析。
type Container interface {
	Resolver

	// RegisterSingleton 注册单例服务。producer 可以是预构造实例、
	// 工厂函数或实现类型。容器锁定后返回 *RegistrationError。
	RegisterSingleton(typ reflect.Type, producer any, opts ...Option) error
	// RegisterTransient 注册瞬态服务。producer 可以是工厂函数或实现类型。
	RegisterTransient(typ reflect.Type, producer any, opts ...Option) error
	// RegisterScoped 注册作用域服务。producer 可以是工厂函数或实现类型。
	RegisterScoped(typ reflect.Type, producer any, opts ...Option) error

	// Lock 锁定容器，幂等。锁定后所有注册调用永久失败。
	Lock()
	// CreateScope 创建共享单例缓存的子解析器。
	CreateScope() Scope
	// Dispose 按创建逆序释放容器物化过的单例，重复调用是空操作。
	Dispose()

	root() *container
}

// Disposable 是容器管理的释放契约。
// 同时也接受 io.Closer，二者都实现时优先 Dispose。
type Disposable interface {
	Dispose()
}

type container struct {
	// mu 保护描述符表与单例缓存的读写。
	mu sync.RWMutex
	// constructMu 构造互斥：保证单例/作用域实例的单飞创建，
	// 并将 Dispose 与在途解析串行化。
	constructMu sync.Mutex

	descriptors map[reflect.Type]*ServiceDescriptor
	singletons  map[reflect.Type]any
	// creationOrder 按物化顺序记录可释放的单例实例。
	creationOrder []any

	locked   atomic.Bool
	disposed bool
}

// New 创建一个空容器。
func New() Container {
	return &container{
		descriptors: make(map[reflect.Type]*ServiceDescriptor),
		singletons:  make(map[reflect.Type]any),
	}
}

func (c *container) root() *container { return c }

func (c *container) RegisterSingleton(typ reflect.Type, producer any, opts ...Option) error {
	return c.register(typ, LifetimeSingleton, producer, opts)
}

func (c *container) RegisterTransient(typ reflect.Type, producer any, opts ...Option) error {
	return c.register(typ, LifetimeTransient, producer, opts)
}

func (c *container) RegisterScoped(typ reflect.Type, producer any, opts ...Option) error {
	return c.register(typ, LifetimeScoped, producer, opts)
}

func (c *container) register(typ reflect.Type, lifetime Lifetime, producer any, opts []Option) error {
	if c.locked.Load() {
		return &RegistrationError{Type: typ, Reason: "container is locked"}
	}

	def, err := newDescriptor(typ, lifetime, producer, opts...)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.disposed {
		return &RegistrationError{Type: typ, Reason: "container is disposed"}
	}
	// 锁定前的重复注册覆盖旧描述符
	c.descriptors[typ] = def
	return nil
}

// Lock 锁定容器。幂等。
func (c *container) Lock() {
	c.locked.Store(true)
}

func (c *container) IsRegistered(typ reflect.Type) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.descriptors[typ]
	return ok
}

func (c *container) Resolve(typ reflect.Type) (any, error) {
	return c.resolveWith(typ, nil)
}

func (c *container) TryResolve(typ reflect.Type) (any, bool) {
	v, err := c.Resolve(typ)
	if err != nil {
		return nil, false
	}
	return v, true
}

// resolveWith 是容器与作用域共用的解析入口。
// scope 为 nil 表示根容器解析。
func (c *container) resolveWith(typ reflect.Type, s *scope) (any, error) {
	// 快路径：已物化的单例直接返回，不做任何构造工作。
	c.mu.RLock()
	if c.disposed {
		c.mu.RUnlock()
		return nil, &ResolutionError{Type: typ, Reason: "container is disposed"}
	}
	if v, ok := c.singletons[typ]; ok {
		c.mu.RUnlock()
		return v, nil
	}
	c.mu.RUnlock()

	// 慢路径：整个解析过程持有构造互斥，
	// 保证并发首次解析只有一次构造（单飞），其余调用方等待同一个实例。
	c.constructMu.Lock()
	defer c.constructMu.Unlock()

	// Dispose 可能在本调用排队等待构造互斥期间先行完成，
	// 取得互斥后必须复查，否则会在已释放的容器/作用域上
	// 物化出永远不会被释放的实例。
	c.mu.RLock()
	disposed := c.disposed
	c.mu.RUnlock()
	if disposed {
		return nil, &ResolutionError{Type: typ, Reason: "container is disposed"}
	}
	if s != nil && s.isDisposed() {
		return nil, &ResolutionError{Type: typ, Reason: "scope is disposed"}
	}

	rc := &resolveContext{container: c, scope: s}
	return rc.resolve(typ, nil)
}

func (c *container) descriptor(typ reflect.Type) (*ServiceDescriptor, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	def, ok := c.descriptors[typ]
	return def, ok
}

// cachedSingleton 读取单例缓存（构造互斥已持有时仍需 mu 保护注册并发）。
func (c *container) cachedSingleton(typ reflect.Type) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.singletons[typ]
	return v, ok
}

// storeSingleton 物化单例并登记释放顺序。首个完成构造的调用方胜出。
func (c *container) storeSingleton(typ reflect.Type, v any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.singletons[typ]; exists {
		return
	}
	c.singletons[typ] = v
	if isDisposable(v) {
		c.creationOrder = append(c.creationOrder, v)
	}
}

func (c *container) CreateScope() Scope {
	return newScope(c)
}

// Dispose 按创建逆序释放单例。与在途解析串行：
// 先取得构造互斥，保证没有正在构造的服务被释放到一半。
func (c *container) Dispose() {
	c.constructMu.Lock()
	defer c.constructMu.Unlock()

	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return
	}
	c.disposed = true
	order := c.creationOrder
	c.creationOrder = nil
	c.mu.Unlock()

	for i := len(order) - 1; i >= 0; i-- {
		disposeValue(order[i])
	}
}

func isDisposable(v any) bool {
	switch v.(type) {
	case Disposable, io.Closer:
		return true
	}
	return false
}

func disposeValue(v any) {
	switch d := v.(type) {
	case Disposable:
		d.Dispose()
	case io.Closer:
		// 释放阶段无处传播错误，按契约忽略
		_ = d.Close()
	}
}
