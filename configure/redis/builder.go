package redis

import (
	"fmt"

	"github.com/gocrud/host/config"
	"github.com/gocrud/host/logging"
)

// Builder Redis 客户端配置构建器
type Builder struct {
	configs []ClientOptions
	errors  []error
}

// NewBuilder 创建 Redis 构建器
func NewBuilder() *Builder {
	return &Builder{}
}

// AddClient 添加一个 Redis 客户端配置
func (b *Builder) AddClient(name string, configure func(*ClientOptions)) *Builder {
	opts := NewDefaultOptions(name)
	if configure != nil {
		configure(opts)
	}
	if err := opts.Validate(); err != nil {
		b.errors = append(b.errors, fmt.Errorf("invalid redis configuration for '%s': %w", name, err))
		return b
	}
	b.configs = append(b.configs, *opts)
	return b
}

// FromConfiguration 从配置节加载客户端定义。
// 配置格式（section 默认 "redis"）：
//
//	redis:
//	  default:
//	    addr: localhost:6379
//	    db: 0
//	  cache:
//	    addr: localhost:6380
func (b *Builder) FromConfiguration(cfg config.Configuration, section string) *Builder {
	if section == "" {
		section = "redis"
	}
	var clients map[string]ClientOptions
	if err := cfg.Bind(section, &clients); err != nil {
		b.errors = append(b.errors, fmt.Errorf("bind redis section %q: %w", section, err))
		return b
	}
	for name, opts := range clients {
		bound := opts
		b.AddClient(name, func(o *ClientOptions) {
			defaults := *o
			*o = bound
			o.Name = name
			// 零值字段回落到默认值
			if o.Addr == "" {
				o.Addr = defaults.Addr
			}
			if o.DialTimeout == 0 {
				o.DialTimeout = defaults.DialTimeout
			}
			if o.ReadTimeout == 0 {
				o.ReadTimeout = defaults.ReadTimeout
			}
			if o.WriteTimeout == 0 {
				o.WriteTimeout = defaults.WriteTimeout
			}
			if o.PoolSize == 0 {
				o.PoolSize = defaults.PoolSize
			}
			if o.MinIdleConns == 0 {
				o.MinIdleConns = defaults.MinIdleConns
			}
			if o.MaxRetries == 0 {
				o.MaxRetries = defaults.MaxRetries
			}
		})
	}
	return b
}

// Build 构建 Redis 客户端工厂
func (b *Builder) Build(logger logging.Logger) (*ClientFactory, error) {
	if len(b.errors) > 0 {
		return nil, fmt.Errorf("redis configuration errors: %v", b.errors)
	}
	if len(b.configs) == 0 {
		return nil, nil
	}

	factory := NewClientFactory()
	for _, opts := range b.configs {
		if err := factory.Register(opts); err != nil {
			return nil, fmt.Errorf("failed to register redis client '%s': %w", opts.Name, err)
		}
		logger.Info("redis client registered",
			logging.Field{Key: "name", Value: opts.Name},
			logging.Field{Key: "addr", Value: opts.Addr},
			logging.Field{Key: "db", Value: opts.DB})
	}
	return factory, nil
}
