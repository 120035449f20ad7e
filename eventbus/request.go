package eventbus

import (
	"reflect"
)

// 请求/响应通道：进程内同步的一问一答。
// 每个（请求类型，响应类型）对最多一个处理器，后注册者替换先注册者。

type requestKey struct {
	req  reflect.Type
	resp reflect.Type
}

// RegisterRequestHandler 注册（替换）该请求/响应对的唯一处理器。
func RegisterRequestHandler[TReq, TResp any](b *Bus, handler func(TReq) (TResp, error)) {
	key := requestKey{req: typeKey[TReq](), resp: typeKey[TResp]()}
	wrapped := func(req any) (any, error) {
		return handler(req.(TReq))
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.requests[key] = wrapped
}

// UnregisterRequestHandler 移除该请求/响应对的处理器，缺席是空操作。
func UnregisterRequestHandler[TReq, TResp any](b *Bus) {
	key := requestKey{req: typeKey[TReq](), resp: typeKey[TResp]()}

	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.requests, key)
}

// Request 同步调用该请求/响应对的处理器。
// 没有注册处理器时返回 *NoHandlerError；处理器自身的错误原样返回。
func Request[TReq, TResp any](b *Bus, req TReq) (TResp, error) {
	var zero TResp
	key := requestKey{req: typeKey[TReq](), resp: typeKey[TResp]()}

	b.mu.RLock()
	handler, ok := b.requests[key]
	b.mu.RUnlock()

	if !ok {
		return zero, &NoHandlerError{Request: key.req, Response: key.resp}
	}

	resp, err := handler(req)
	if err != nil {
		return zero, err
	}
	return resp.(TResp), nil
}

// TryRequest 与 Request 相同，但以布尔值报告失败，失败时响应为零值。
func TryRequest[TReq, TResp any](b *Bus, req TReq) (TResp, bool) {
	resp, err := Request[TReq, TResp](b, req)
	if err != nil {
		var zero TResp
		return zero, false
	}
	return resp, true
}
