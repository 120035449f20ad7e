package eventbus

import (
	"fmt"
	"reflect"
)

// NoHandlerError 表示 Request 调用时该请求/响应对没有注册处理器。
type NoHandlerError struct {
	Request  reflect.Type
	Response reflect.Type
}

func (e *NoHandlerError) Error() string {
	return fmt.Sprintf("eventbus: no handler registered for request %v -> %v", e.Request, e.Response)
}

// HandlerFault 记录一次分发中某个订阅处理函数逃逸的 panic。
// 故障被逐处理器隔离：捕获、上报给故障回调/日志，绝不向发布方传播，
// 也不会阻断同一次发布中后续处理器的执行。
type HandlerFault struct {
	// Key 事件键的字符串表示（类型名或命名通道名）。
	Key string
	// Recovered panic 携带的值。
	Recovered any
}

func (f *HandlerFault) Error() string {
	return fmt.Sprintf("eventbus: handler for %q panicked: %v", f.Key, f.Recovered)
}
