package mongodb

import (
	"fmt"

	"github.com/gocrud/host/config"
	"github.com/gocrud/host/logging"
)

// Builder MongoDB 配置构建器
type Builder struct {
	configs map[string]MongoOptions
	order   []string
	errors  []error
}

// NewBuilder 创建构建器
func NewBuilder() *Builder {
	return &Builder{
		configs: make(map[string]MongoOptions),
	}
}

// Add 添加 MongoDB 客户端配置
func (b *Builder) Add(name string, uri string, configure func(*MongoOptions)) *Builder {
	if _, exists := b.configs[name]; exists {
		b.errors = append(b.errors, fmt.Errorf("mongo client '%s' already configured", name))
		return b
	}

	opts := NewDefaultOptions(name, uri)
	if configure != nil {
		configure(opts)
	}
	if err := opts.Validate(); err != nil {
		b.errors = append(b.errors, fmt.Errorf("invalid mongo configuration for '%s': %w", name, err))
		return b
	}

	b.configs[name] = *opts
	b.order = append(b.order, name)
	return b
}

// FromConfiguration 从配置节加载客户端定义（section 默认 "mongodb"）
func (b *Builder) FromConfiguration(cfg config.Configuration, section string) *Builder {
	if section == "" {
		section = "mongodb"
	}
	var clients map[string]MongoOptions
	if err := cfg.Bind(section, &clients); err != nil {
		b.errors = append(b.errors, fmt.Errorf("bind mongo section %q: %w", section, err))
		return b
	}
	for name, bound := range clients {
		b.Add(name, bound.Uri, func(o *MongoOptions) {
			o.Username = bound.Username
			o.Password = bound.Password
			if bound.MaxPoolSize > 0 {
				o.MaxPoolSize = bound.MaxPoolSize
			}
			if bound.MinPoolSize > 0 {
				o.MinPoolSize = bound.MinPoolSize
			}
			if bound.Timeout > 0 {
				o.Timeout = bound.Timeout
			}
		})
	}
	return b
}

// Build 构建 MongoDB 工厂
func (b *Builder) Build(logger logging.Logger) (*MongoFactory, error) {
	if len(b.errors) > 0 {
		return nil, fmt.Errorf("mongo configuration errors: %v", b.errors)
	}
	if len(b.configs) == 0 {
		return nil, nil
	}

	factory := NewMongoFactory()
	for _, name := range b.order {
		opts := b.configs[name]
		if err := factory.Register(opts); err != nil {
			return nil, fmt.Errorf("failed to register mongo client '%s': %w", opts.Name, err)
		}
		logger.Info("Mongo client registered",
			logging.Field{Key: "name", Value: opts.Name},
			logging.Field{Key: "uri", Value: opts.Uri})
	}
	return factory, nil
}
