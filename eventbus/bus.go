// Package eventbus 提供进程内的发布/订阅总线：
// 类型化与命名两类事件通道、四档分发优先级、弱订阅、
// 逐处理器的故障隔离，以及一问一答的请求/响应通道。
//
// 所有公开操作都是并发安全的同步调用，总线内部没有调度器。
package eventbus

import (
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"

	"github.com/gocrud/host/logging"
)

// Bus 是事件总线。零值不可用，使用 New 创建。
type Bus struct {
	mu    sync.RWMutex
	typed map[reflect.Type][]*subscription
	named map[string][]*subscription

	requests map[requestKey]func(any) (any, error)

	seq       atomic.Uint64
	published atomic.Uint64
	delivered atomic.Uint64
	faults    atomic.Uint64

	logger  logging.Logger
	onFault func(*HandlerFault)
}

// BusOption 配置总线。
type BusOption func(*Bus)

// WithLogger 设置故障上报使用的日志记录器。
func WithLogger(logger logging.Logger) BusOption {
	return func(b *Bus) {
		b.logger = logger
	}
}

// WithFaultHandler 设置处理器故障回调，设置后替代日志上报。
func WithFaultHandler(fn func(*HandlerFault)) BusOption {
	return func(b *Bus) {
		b.onFault = fn
	}
}

// New 创建事件总线。
func New(opts ...BusOption) *Bus {
	b := &Bus{
		typed:    make(map[reflect.Type][]*subscription),
		named:    make(map[string][]*subscription),
		requests: make(map[requestKey]func(any) (any, error)),
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.logger == nil {
		b.logger = logging.NewLogger()
	}
	return b
}

// Subscribe 订阅一个类型化事件。
func Subscribe[T any](b *Bus, handler func(T), opts ...SubscribeOption) {
	key := typeKey[T]()
	s := newSubscription(b, reflect.ValueOf(handler).Pointer(), func(event any) {
		handler(event.(T))
	}, opts)

	b.mu.Lock()
	defer b.mu.Unlock()
	b.typed[key] = insertOrdered(b.typed[key], s)
}

// Unsubscribe 按处理函数引用退订类型化事件，移除第一条匹配，缺席是空操作。
//
// 匹配标识是函数体的代码指针：同一个函数字面量创建的多个闭包共享同一标识，
// 退订时移除的是其中最早注册的一条。需要独立退订的处理器应使用不同的
// 具名函数或各自的函数字面量。
func Unsubscribe[T any](b *Bus, handler func(T)) {
	key := typeKey[T]()
	id := reflect.ValueOf(handler).Pointer()

	b.mu.Lock()
	defer b.mu.Unlock()
	b.typed[key] = removeFirst(b.typed[key], id)
	if len(b.typed[key]) == 0 {
		delete(b.typed, key)
	}
}

// Publish 发布一个类型化事件。零订阅者是合法的空操作。
func Publish[T any](b *Bus, event T) {
	key := typeKey[T]()

	b.mu.RLock()
	snap := snapshot(b.typed[key])
	b.mu.RUnlock()

	b.dispatch(key.String(), snap, event)
}

// HasSubscribers 查询类型化事件当前是否存在订阅
// （不做弱引用存活检查，死亡弱订阅在清理前仍计入）。
func HasSubscribers[T any](b *Bus) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.typed[typeKey[T]()]) > 0
}

// SubscribeNamed 订阅一个命名事件，载荷是未类型化的 any。
func (b *Bus) SubscribeNamed(name string, handler func(payload any), opts ...SubscribeOption) {
	s := newSubscription(b, reflect.ValueOf(handler).Pointer(), func(event any) {
		handler(event)
	}, opts)

	b.mu.Lock()
	defer b.mu.Unlock()
	b.named[name] = insertOrdered(b.named[name], s)
}

// UnsubscribeNamed 按处理函数引用退订命名事件。
// 匹配标识与 Unsubscribe 相同：按函数体的代码指针，同一字面量的闭包共享标识。
func (b *Bus) UnsubscribeNamed(name string, handler func(payload any)) {
	id := reflect.ValueOf(handler).Pointer()

	b.mu.Lock()
	defer b.mu.Unlock()
	b.named[name] = removeFirst(b.named[name], id)
	if len(b.named[name]) == 0 {
		delete(b.named, name)
	}
}

// PublishNamed 发布一个命名事件。
func (b *Bus) PublishNamed(name string, payload any) {
	b.mu.RLock()
	snap := snapshot(b.named[name])
	b.mu.RUnlock()

	b.dispatch(name, snap, payload)
}

// HasNamedSubscribers 查询命名事件当前是否存在订阅。
func (b *Bus) HasNamedSubscribers(name string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.named[name]) > 0
}

// CleanupDeadSubscriptions 扫描所有订阅列表，
// 物理移除属主已被回收的弱订阅，返回移除条数。
func (b *Bus) CleanupDeadSubscriptions() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	total := 0
	for key, list := range b.typed {
		kept, removed := sweepDead(list)
		total += removed
		if len(kept) == 0 {
			delete(b.typed, key)
		} else {
			b.typed[key] = kept
		}
	}
	for name, list := range b.named {
		kept, removed := sweepDead(list)
		total += removed
		if len(kept) == 0 {
			delete(b.named, name)
		} else {
			b.named[name] = kept
		}
	}
	return total
}

// Clear 移除所有订阅与请求处理器。
// 统计计数器是累计诊断值，不随 Clear 重置。
func (b *Bus) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.typed = make(map[reflect.Type][]*subscription)
	b.named = make(map[string][]*subscription)
	b.requests = make(map[requestKey]func(any) (any, error))
}

// dispatch 对快照按序分发。快照之外的并发订阅/退订对本次发布不可见。
func (b *Bus) dispatch(key string, snap []*subscription, event any) {
	b.published.Add(1)
	for _, s := range snap {
		if s.isDead() {
			continue
		}
		b.safeInvoke(key, s, event)
	}
}

// safeInvoke 执行单个处理器并隔离其 panic。
func (b *Bus) safeInvoke(key string, s *subscription, event any) {
	defer func() {
		if r := recover(); r != nil {
			b.faults.Add(1)
			b.reportFault(&HandlerFault{Key: key, Recovered: r})
		}
	}()
	s.invoke(event)
	b.delivered.Add(1)
}

func (b *Bus) reportFault(fault *HandlerFault) {
	if b.onFault != nil {
		b.onFault(fault)
		return
	}
	b.logger.Error("event handler panicked",
		logging.Field{Key: "event", Value: fault.Key},
		logging.Field{Key: "recovered", Value: fmt.Sprintf("%v", fault.Recovered)})
}

func newSubscription(b *Bus, handlerID uintptr, invoke func(any), opts []SubscribeOption) *subscription {
	s := &subscription{
		handlerID: handlerID,
		priority:  PriorityNormal,
		seq:       b.seq.Add(1),
		invoke:    invoke,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func typeKey[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

// snapshot 复制当前订阅列表；分发期间的列表变更不影响本次发布。
func snapshot(list []*subscription) []*subscription {
	if len(list) == 0 {
		return nil
	}
	snap := make([]*subscription, len(list))
	copy(snap, list)
	return snap
}
