package mongodb

import (
	"github.com/gocrud/host/core"
	"github.com/gocrud/host/di"
	"github.com/gocrud/host/logging"
	"github.com/gocrud/mgo"
)

// EventClientReady 每个客户端连接建立后在命名通道上发布，payload 为客户端名称。
const EventClientReady = "mongodb:client:ready"

// Configure 返回 MongoDB 配置器
// 使用示例: builder.Configure(mongodb.Configure(func(b *mongodb.Builder) { ... }))
func Configure(options func(*Builder)) core.Configurator {
	return func(ctx *core.BuildContext) {
		builder := NewBuilder()
		if options != nil {
			options(builder)
		}

		factory, err := builder.Build(ctx.GetLogger())
		if err != nil {
			ctx.GetLogger().Fatal("Failed to build mongo clients",
				logging.Field{Key: "error", Value: err.Error()})
		}
		if factory == nil {
			return
		}

		if err := di.RegisterSingleton[*MongoFactory](ctx.Container(), factory); err != nil {
			ctx.GetLogger().Fatal("Failed to register mongo factory",
				logging.Field{Key: "error", Value: err.Error()})
		}

		if defaultClient, err := factory.Get("default"); err == nil {
			if err := di.RegisterSingleton[*mgo.Client](ctx.Container(), defaultClient); err != nil {
				ctx.GetLogger().Fatal("Failed to register default mongo client",
					logging.Field{Key: "error", Value: err.Error()})
			}
			ctx.GetLogger().Info("Default mongo client registered to DI container")
		}

		factory.Each(func(name string, _ *mgo.Client) {
			ctx.Bus().PublishNamed(EventClientReady, name)
		})

		ctx.SetCleanup("mongodb", func() {
			ctx.GetLogger().Info("Closing mongo clients")
			if err := factory.Close(); err != nil {
				ctx.GetLogger().Error("Failed to close mongo clients",
					logging.Field{Key: "error", Value: err.Error()})
			}
		})
	}
}
