package etcd

import (
	"context"
	"time"

	"github.com/gocrud/host/config"
	"github.com/gocrud/host/core"
	"github.com/gocrud/host/di"
	"github.com/gocrud/host/eventbus"
	"github.com/gocrud/host/logging"
	clientv3 "go.etcd.io/etcd/client/v3"
)

// EventClientReady 每个客户端创建后在命名通道上发布，payload 为客户端名称。
const EventClientReady = "etcd:client:ready"

// Configure 返回 Etcd 配置器
// 使用示例: builder.Configure(etcd.Configure(func(b *etcd.Builder) { ... }))
func Configure(options func(*Builder)) core.Configurator {
	return func(ctx *core.BuildContext) {
		builder := NewBuilder()
		if options != nil {
			options(builder)
		}

		factory, err := builder.Build(ctx.GetLogger())
		if err != nil {
			ctx.GetLogger().Fatal("Failed to build etcd clients",
				logging.Field{Key: "error", Value: err.Error()})
		}
		if factory == nil {
			return
		}

		if err := di.RegisterSingleton[*ClientFactory](ctx.Container(), factory); err != nil {
			ctx.GetLogger().Fatal("Failed to register etcd factory",
				logging.Field{Key: "error", Value: err.Error()})
		}

		if defaultClient, err := factory.Get("default"); err == nil {
			if err := di.RegisterSingleton[*clientv3.Client](ctx.Container(), defaultClient); err != nil {
				ctx.GetLogger().Fatal("Failed to register default etcd client",
					logging.Field{Key: "error", Value: err.Error()})
			}
			ctx.GetLogger().Info("Default etcd client registered to DI container")
		}

		factory.Each(func(name string, _ *clientv3.Client) {
			ctx.Bus().PublishNamed(EventClientReady, name)
		})

		configureWatches(ctx, builder, factory)

		ctx.SetCleanup("etcd", func() {
			ctx.GetLogger().Info("Closing etcd clients")
			if err := factory.Close(); err != nil {
				ctx.GetLogger().Error("Failed to close etcd clients",
					logging.Field{Key: "error", Value: err.Error()})
			}
		})
	}
}

// configureWatches 把 WatchConfig 声明的 key 接入应用配置：
// 先同步加载一次合并进配置树，再以托管服务的形式持续监听变更。
func configureWatches(ctx *core.BuildContext, builder *Builder, factory *ClientFactory) {
	if len(builder.watchKeys) == 0 {
		return
	}

	reloadable, ok := ctx.GetConfiguration().(config.ReloadableConfiguration)
	if !ok {
		ctx.GetLogger().Warn("Configuration is not reloadable, etcd config watch disabled")
		return
	}

	for clientName, key := range builder.watchKeys {
		client, err := factory.Get(clientName)
		if err != nil {
			ctx.GetLogger().Fatal("etcd config watch references unknown client",
				logging.Field{Key: "client", Value: clientName},
				logging.Field{Key: "key", Value: key})
		}

		source := config.NewEtcdSource(client, key)
		values, err := source.Load()
		if err != nil {
			ctx.GetLogger().Error("Failed to load configuration from etcd",
				logging.Field{Key: "key", Value: key},
				logging.Field{Key: "error", Value: err.Error()})
		} else {
			reloadable.Merge(values)
			ctx.GetLogger().Info("Configuration loaded from etcd",
				logging.Field{Key: "key", Value: key})
		}

		ctx.AddHostedService(&configWatchService{
			source:      source,
			config:      reloadable,
			bus:         ctx.Bus(),
			logger:      ctx.GetLogger(),
			sourceLabel: source.Name(),
		})
	}
}

// configWatchService 托管服务：监听 etcd key 变更并热更新配置
type configWatchService struct {
	source      *config.EtcdSource
	config      config.ReloadableConfiguration
	bus         *eventbus.Bus
	logger      logging.Logger
	sourceLabel string
}

func (s *configWatchService) Start(ctx context.Context) error {
	s.source.Watch(ctx, func(values map[string]any) {
		s.config.Merge(values)
		eventbus.Publish(s.bus, core.ConfigurationReloaded{Source: s.sourceLabel, At: time.Now()})
		s.logger.Info("Configuration reloaded from etcd",
			logging.Field{Key: "source", Value: s.sourceLabel})
	})

	<-ctx.Done()
	return nil
}

func (s *configWatchService) Stop(ctx context.Context) error {
	return nil
}
