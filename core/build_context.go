package core

import (
	"sync"

	"github.com/gocrud/host/config"
	"github.com/gocrud/host/di"
	"github.com/gocrud/host/eventbus"
	"github.com/gocrud/host/hosting"
	"github.com/gocrud/host/logging"
)

// Configurator 配置器函数类型
// 配置器用于扩展应用程序，可以注册服务、订阅事件、添加托管服务等
type Configurator func(*BuildContext)

// BuildContext 构建上下文
// 提供给配置器的上下文环境，包含容器、事件总线、配置、日志等核心组件
type BuildContext struct {
	container     di.Container
	bus           *eventbus.Bus
	configuration config.Configuration
	logger        logging.Logger
	environment   Environment

	hostedServices []hosting.HostedService
	lifecycle      *LifecycleEvents

	// cleanups 按注册顺序记录，关闭时倒序执行
	cleanups     map[string]func()
	cleanupOrder []string

	mu sync.Mutex
}

// Container 返回底层的 DI 容器
// 可以直接使用 di.RegisterSingleton[T](ctx.Container(), ...) 注册服务
func (c *BuildContext) Container() di.Container {
	return c.container
}

// Bus 返回应用级事件总线
func (c *BuildContext) Bus() *eventbus.Bus {
	return c.bus
}

// GetLogger 获取日志记录器
func (c *BuildContext) GetLogger() logging.Logger {
	return c.logger
}

// GetConfiguration 获取配置对象
func (c *BuildContext) GetConfiguration() config.Configuration {
	return c.configuration
}

// GetEnvironment 获取环境信息
func (c *BuildContext) GetEnvironment() Environment {
	return c.environment
}

// Lifecycle 返回生命周期钩子注册器。
// OnStart 钩子在托管服务启动前执行，OnStop 钩子在关闭开始时倒序执行。
func (c *BuildContext) Lifecycle() *LifecycleEvents {
	return c.lifecycle
}

// AddHostedService 添加托管服务
func (c *BuildContext) AddHostedService(service hosting.HostedService) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hostedServices = append(c.hostedServices, service)
}

// SetCleanup 设置资源清理函数，同名 key 覆盖但保留首次注册的位置
func (c *BuildContext) SetCleanup(key string, cleanup func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.cleanups[key]; !exists {
		c.cleanupOrder = append(c.cleanupOrder, key)
	}
	c.cleanups[key] = cleanup
}
