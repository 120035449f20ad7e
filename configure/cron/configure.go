package cron

import (
	"github.com/gocrud/host/core"
	"github.com/gocrud/host/logging"
)

// Configure 返回 Cron 配置器
// 使用示例: builder.Configure(cron.Configure(func(b *cron.Builder) { ... }))
func Configure(options func(*Builder)) core.Configurator {
	return func(ctx *core.BuildContext) {
		builder := NewBuilder()
		if options != nil {
			options(builder)
		}

		logger := ctx.GetLogger().WithCategory("cron")
		service, err := builder.build(ctx, logger)
		if err != nil {
			logger.Fatal("Failed to build cron service",
				logging.Field{Key: "error", Value: err.Error()})
		}

		ctx.AddHostedService(service)
	}
}
