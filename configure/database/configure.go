package database

import (
	"github.com/gocrud/host/core"
	"github.com/gocrud/host/di"
	"github.com/gocrud/host/logging"
	"gorm.io/gorm"
)

// EventDatabaseReady 每个数据库连接就绪后在命名通道上发布，payload 为连接名称。
const EventDatabaseReady = "database:ready"

// Configure 返回数据库配置器
// 使用示例: builder.Configure(database.Configure(func(b *database.Builder) { ... }))
func Configure(options func(*Builder)) core.Configurator {
	return func(ctx *core.BuildContext) {
		builder := NewBuilder()
		if options != nil {
			options(builder)
		}

		factory, err := builder.Build(ctx.GetLogger())
		if err != nil {
			ctx.GetLogger().Fatal("Failed to build databases",
				logging.Field{Key: "error", Value: err.Error()})
		}
		if factory == nil {
			return
		}

		if err := di.RegisterSingleton[*DatabaseFactory](ctx.Container(), factory); err != nil {
			ctx.GetLogger().Fatal("Failed to register database factory",
				logging.Field{Key: "error", Value: err.Error()})
		}

		if defaultDB, err := factory.Get("default"); err == nil {
			if err := di.RegisterSingleton[*gorm.DB](ctx.Container(), defaultDB); err != nil {
				ctx.GetLogger().Fatal("Failed to register default database",
					logging.Field{Key: "error", Value: err.Error()})
			}
			ctx.GetLogger().Info("Default database registered to DI container")
		}

		factory.Each(func(name string, _ *gorm.DB) {
			ctx.Bus().PublishNamed(EventDatabaseReady, name)
		})

		ctx.SetCleanup("database", func() {
			ctx.GetLogger().Info("Closing database connections")
			if err := factory.Close(); err != nil {
				ctx.GetLogger().Error("Failed to close databases",
					logging.Field{Key: "error", Value: err.Error()})
			}
		})
	}
}
