package eventbus

import (
	"sync/atomic"
	"weak"
)

// Priority 是分发顺序的粗粒度档位。
// 同一事件键下先按档位降序分发，同档位按注册顺序稳定分发。
type Priority int

const (
	PriorityLow Priority = iota
	PriorityNormal
	PriorityHigh
	PriorityCritical
)

func (p Priority) String() string {
	switch p {
	case PriorityCritical:
		return "critical"
	case PriorityHigh:
		return "high"
	case PriorityNormal:
		return "normal"
	case PriorityLow:
		return "low"
	default:
		return "unknown"
	}
}

// subscription 是一条订阅记录。
// handlerID 是处理函数的代码指针，用于按引用相等退订；
// alive 非空时表示弱持有：属主被回收后该订阅被跳过并在清理时移除。
type subscription struct {
	handlerID uintptr
	priority  Priority
	seq       uint64
	invoke    func(event any)
	alive     func() bool
	dead      atomic.Bool
}

func (s *subscription) isDead() bool {
	if s.dead.Load() {
		return true
	}
	if s.alive != nil && !s.alive() {
		s.dead.Store(true)
		return true
	}
	return false
}

// SubscribeOption 调整一条订阅。
type SubscribeOption func(*subscription)

// WithPriority 设置分发档位，默认 PriorityNormal。
func WithPriority(p Priority) SubscribeOption {
	return func(s *subscription) {
		s.priority = p
	}
}

// WeakOwner 把订阅弱绑定到 owner：订阅不延长 owner 的生命周期，
// owner 被回收后订阅在下一次分发中被跳过、在下一次清理中被移除。
// 处理函数不能闭包捕获 owner 本身，否则 owner 永远不会被回收。
func WeakOwner[T any](owner *T) SubscribeOption {
	ref := weak.Make(owner)
	return func(s *subscription) {
		s.alive = func() bool { return ref.Value() != nil }
	}
}

// insertOrdered 把订阅插入到其档位块的末尾，保持
// 「档位降序、同档位注册序」的不变式。调用方持有总线写锁。
func insertOrdered(list []*subscription, s *subscription) []*subscription {
	idx := len(list)
	for i, existing := range list {
		if existing.priority < s.priority {
			idx = i
			break
		}
	}
	list = append(list, nil)
	copy(list[idx+1:], list[idx:])
	list[idx] = s
	return list
}

// removeFirst 按处理函数引用移除第一条匹配的订阅，不存在则原样返回。
func removeFirst(list []*subscription, handlerID uintptr) []*subscription {
	for i, s := range list {
		if s.handlerID == handlerID {
			return append(list[:i:i], list[i+1:]...)
		}
	}
	return list
}

// sweepDead 物理移除已死亡的弱订阅，返回存活列表与移除数。
func sweepDead(list []*subscription) ([]*subscription, int) {
	kept := list[:0:0]
	removed := 0
	for _, s := range list {
		if s.isDead() {
			removed++
			continue
		}
		kept = append(kept, s)
	}
	return kept, removed
}
