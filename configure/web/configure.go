package web

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gocrud/host/core"
	"github.com/gocrud/host/eventbus"
	"github.com/gocrud/host/logging"
)

// StatsQuery 诊断端点通过请求/响应通道查询事件总线统计的请求类型
type StatsQuery struct{}

// Configure 返回 Web 配置器
// 使用示例: builder.Configure(web.Configure(func(b *web.Builder) { ... }))
func Configure(options func(*Builder)) core.Configurator {
	return func(ctx *core.BuildContext) {
		builder := NewBuilder(ctx.GetLogger().WithCategory("web"))
		if options != nil {
			options(builder)
		}

		if builder.requestScopes {
			builder.engine.Use(ScopeMiddleware(ctx.Container()))
		}

		if builder.diagnosticsPath != "" {
			registerDiagnostics(ctx, builder)
		}

		webHost := builder.Build(ctx.Container())
		ctx.AddHostedService(webHost)

		ctx.GetLogger().Info("Web host configured",
			logging.Field{Key: "port", Value: webHost.port})
	}
}

// registerDiagnostics 在事件总线上注册统计查询处理器，并暴露 HTTP 端点。
// 走请求/响应通道而不是直接调用，让其他组件也能用同一查询。
func registerDiagnostics(ctx *core.BuildContext, builder *Builder) {
	bus := ctx.Bus()

	eventbus.RegisterRequestHandler(bus, func(StatsQuery) (eventbus.Statistics, error) {
		return bus.GetStatistics(), nil
	})

	builder.engine.GET(builder.diagnosticsPath, func(c *gin.Context) {
		stats, err := eventbus.Request[StatsQuery, eventbus.Statistics](bus, StatsQuery{})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, stats)
	})
}
