package web

import (
	"github.com/gin-gonic/gin"
	"github.com/gocrud/host/di"
)

// scopeContextKey 请求作用域在 gin.Context 里的存放键
const scopeContextKey = "host.di.scope"

// ScopeMiddleware 为每个请求创建独立的 DI 作用域，请求结束时释放。
// Scoped 服务在同一请求内共享实例，跨请求相互隔离。
func ScopeMiddleware(container di.Container) gin.HandlerFunc {
	return func(c *gin.Context) {
		scope := container.CreateScope()
		c.Set(scopeContextKey, scope)
		defer scope.Dispose()
		c.Next()
	}
}

// RequestScope 取出当前请求的 DI 作用域。
// 未启用 UseRequestScopes 时返回 nil。
func RequestScope(c *gin.Context) di.Scope {
	if v, exists := c.Get(scopeContextKey); exists {
		if scope, ok := v.(di.Scope); ok {
			return scope
		}
	}
	return nil
}

// ResolveScoped 从当前请求作用域解析服务的便捷方法
func ResolveScoped[T any](c *gin.Context) (T, error) {
	var zero T
	scope := RequestScope(c)
	if scope == nil {
		return zero, &di.ScopeError{Type: di.TypeOf[T]()}
	}
	return di.Resolve[T](scope)
}
