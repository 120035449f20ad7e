package redis

import (
	"github.com/gocrud/host/core"
	"github.com/gocrud/host/di"
	"github.com/gocrud/host/logging"
	"github.com/redis/go-redis/v9"
)

// EventClientReady 每个客户端连通后在事件总线的命名通道上发布，payload 为客户端名称。
const EventClientReady = "redis:client:ready"

// Configure 返回 Redis 配置器
// 使用示例: builder.Configure(redis.Configure(func(b *redis.Builder) { ... }))
func Configure(options func(*Builder)) core.Configurator {
	return func(ctx *core.BuildContext) {
		builder := NewBuilder()
		if options != nil {
			options(builder)
		}

		factory, err := builder.Build(ctx.GetLogger())
		if err != nil {
			ctx.GetLogger().Fatal("Failed to build redis clients",
				logging.Field{Key: "error", Value: err.Error()})
		}
		if factory == nil {
			return
		}

		if err := di.RegisterSingleton[*ClientFactory](ctx.Container(), factory); err != nil {
			ctx.GetLogger().Fatal("Failed to register redis factory",
				logging.Field{Key: "error", Value: err.Error()})
		}

		// 默认客户端单独按类型注册，业务构造函数可以直接注入 *redis.Client
		if defaultClient, err := factory.Get("default"); err == nil {
			if err := di.RegisterSingleton[*redis.Client](ctx.Container(), defaultClient); err != nil {
				ctx.GetLogger().Fatal("Failed to register default redis client",
					logging.Field{Key: "error", Value: err.Error()})
			}
			ctx.GetLogger().Info("Default redis client registered to DI container")
		}

		factory.Each(func(name string, _ *redis.Client) {
			ctx.Bus().PublishNamed(EventClientReady, name)
		})

		ctx.SetCleanup("redis", func() {
			ctx.GetLogger().Info("Closing redis clients")
			if err := factory.Close(); err != nil {
				ctx.GetLogger().Error("Failed to close redis clients",
					logging.Field{Key: "error", Value: err.Error()})
			}
		})
	}
}
