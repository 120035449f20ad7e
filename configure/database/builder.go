package database

import (
	"fmt"

	"github.com/gocrud/host/logging"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Builder 数据库配置构建器
type Builder struct {
	configs []DatabaseOptions
	errors  []error
}

// NewBuilder 创建数据库构建器
func NewBuilder() *Builder {
	return &Builder{}
}

// AddDatabase 添加一个数据库连接配置
func (b *Builder) AddDatabase(name string, dialector gorm.Dialector, configure func(*DatabaseOptions)) *Builder {
	opts := NewDefaultOptions(name, dialector)
	if configure != nil {
		configure(opts)
	}
	if err := opts.Validate(); err != nil {
		b.errors = append(b.errors, fmt.Errorf("invalid database configuration for '%s': %w", name, err))
		return b
	}
	b.configs = append(b.configs, *opts)
	return b
}

// AddSqlite 添加 SQLite 数据库（path 为文件路径或 ":memory:"）
func (b *Builder) AddSqlite(name, path string, configure func(*DatabaseOptions)) *Builder {
	return b.AddDatabase(name, sqlite.Open(path), configure)
}

// Build 构建数据库工厂
func (b *Builder) Build(logger logging.Logger) (*DatabaseFactory, error) {
	if len(b.errors) > 0 {
		return nil, fmt.Errorf("database configuration errors: %v", b.errors)
	}
	if len(b.configs) == 0 {
		return nil, nil
	}

	factory := NewDatabaseFactory()
	for _, opts := range b.configs {
		if err := factory.Register(opts); err != nil {
			return nil, fmt.Errorf("failed to register database '%s': %w", opts.Name, err)
		}
		logger.Info("database registered",
			logging.Field{Key: "name", Value: opts.Name},
			logging.Field{Key: "dialect", Value: opts.Dialector.Name()})
	}
	return factory, nil
}
