package eventbus

// Statistics 是总线的一次统计快照。
// 计数器是进程生命周期内的累计值，Clear 不会重置它们。
type Statistics struct {
	// Published 发布调用总数（类型化 + 命名）。
	Published uint64
	// Delivered 成功完成的处理器调用总数。
	Delivered uint64
	// Faults 被隔离的处理器 panic 总数。
	Faults uint64

	// TypedSubscriptions 当前类型化订阅条数（含未清理的死亡弱订阅）。
	TypedSubscriptions int
	// NamedSubscriptions 当前命名订阅条数。
	NamedSubscriptions int
	// RequestHandlers 当前注册的请求处理器个数。
	RequestHandlers int
}

// GetStatistics 返回统计快照。
// 计数器读取是原子的；订阅计数在读锁下取得。
func (b *Bus) GetStatistics() Statistics {
	stats := Statistics{
		Published: b.published.Load(),
		Delivered: b.delivered.Load(),
		Faults:    b.faults.Load(),
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, list := range b.typed {
		stats.TypedSubscriptions += len(list)
	}
	for _, list := range b.named {
		stats.NamedSubscriptions += len(list)
	}
	stats.RequestHandlers = len(b.requests)
	return stats
}
