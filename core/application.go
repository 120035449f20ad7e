package core

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"reflect"
	"sync"
	"syscall"
	"time"

	"github.com/gocrud/host/config"
	"github.com/gocrud/host/di"
	"github.com/gocrud/host/eventbus"
	"github.com/gocrud/host/hosting"
	"github.com/gocrud/host/logging"
)

// Application 应用程序接口
type Application interface {
	Run() error
	RunAsync(ctx context.Context) error
	Stop(ctx context.Context) error
	Services() di.Container
	Bus() *eventbus.Bus
	Configuration() config.Configuration
	Logger() logging.Logger
	Environment() Environment
	GetService(ptr any)
}

// ApplicationBuilder 应用程序构建器
type ApplicationBuilder struct {
	environment     string
	configBuilder   *config.ConfigurationBuilder
	loggingBuilder  *logging.LoggingBuilder
	configurators   []Configurator
	shutdownTimeout time.Duration
	mu              sync.Mutex
}

// NewApplicationBuilder 创建应用程序构建器
func NewApplicationBuilder() *ApplicationBuilder {
	return &ApplicationBuilder{
		environment:     "development",
		configBuilder:   config.NewConfigurationBuilder(),
		loggingBuilder:  logging.NewLoggingBuilder(),
		shutdownTimeout: 30 * time.Second,
	}
}

// UseEnvironment 设置环境
func (b *ApplicationBuilder) UseEnvironment(env string) *ApplicationBuilder {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.environment = env
	return b
}

// ConfigureConfiguration 配置配置系统
func (b *ApplicationBuilder) ConfigureConfiguration(configure func(*config.ConfigurationBuilder)) *ApplicationBuilder {
	b.mu.Lock()
	defer b.mu.Unlock()
	if configure != nil {
		configure(b.configBuilder)
	}
	return b
}

// ConfigureLogging 配置日志系统
func (b *ApplicationBuilder) ConfigureLogging(configure func(*logging.LoggingBuilder)) *ApplicationBuilder {
	b.mu.Lock()
	defer b.mu.Unlock()
	if configure != nil {
		configure(b.loggingBuilder)
	}
	return b
}

// Configure 添加配置器（支持链式调用和可变参数）
func (b *ApplicationBuilder) Configure(configurators ...Configurator) *ApplicationBuilder {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.configurators = append(b.configurators, configurators...)
	return b
}

// AddTask 添加一个简单的后台任务
func (b *ApplicationBuilder) AddTask(task func(ctx context.Context) error) *ApplicationBuilder {
	return b.Configure(func(ctx *BuildContext) {
		ctx.AddHostedService(&functionalService{task: task})
	})
}

// functionalService 函数式托管服务
type functionalService struct {
	task func(ctx context.Context) error
}

func (f *functionalService) Start(ctx context.Context) error {
	return f.task(ctx)
}

func (f *functionalService) Stop(ctx context.Context) error {
	return nil
}

// UseShutdownTimeout 设置关闭超时
func (b *ApplicationBuilder) UseShutdownTimeout(timeout time.Duration) *ApplicationBuilder {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.shutdownTimeout = timeout
	return b
}

// Build 构建应用程序
// 流程：配置 -> 日志 -> 容器与事件总线 -> 核心服务注册 -> 配置器 -> 锁定容器。
// 锁定后注册表冻结，之后的解析可以无竞争地读取。
func (b *ApplicationBuilder) Build() Application {
	b.mu.Lock()
	defer b.mu.Unlock()

	configuration, err := b.configBuilder.BuildReloadable()
	if err != nil {
		panic(fmt.Sprintf("Failed to build configuration: %v", err))
	}

	logger := b.loggingBuilder.Build()

	logger.Info("Building application",
		logging.Field{Key: "environment", Value: b.environment})

	container := di.New()
	bus := eventbus.New(eventbus.WithLogger(logger.WithCategory("eventbus")))
	env := NewEnvironment(b.environment)

	// 核心服务注册到容器，任何业务构造函数都可以按类型注入它们
	mustRegister(logger, di.RegisterSingleton[config.Configuration](container, configuration))
	mustRegister(logger, di.RegisterSingleton[logging.Logger](container, logger))
	mustRegister(logger, di.RegisterSingleton[*eventbus.Bus](container, bus))
	mustRegister(logger, di.RegisterSingleton[di.Container](container, container))
	mustRegister(logger, di.RegisterSingleton[Environment](container, env))

	buildContext := &BuildContext{
		container:     container,
		bus:           bus,
		configuration: configuration,
		logger:        logger,
		environment:   env,
		lifecycle:     NewLifecycle(logger),
		cleanups:      make(map[string]func()),
	}

	for _, configurator := range b.configurators {
		configurator(buildContext)
	}

	container.Lock()
	logger.Info("DI container built and locked")

	return &application{
		container:       container,
		bus:             bus,
		configuration:   configuration,
		configBuilder:   b.configBuilder,
		logger:          logger,
		environment:     env,
		hostedServices:  buildContext.hostedServices,
		lifecycle:       buildContext.lifecycle,
		cleanups:        buildContext.cleanups,
		cleanupOrder:    buildContext.cleanupOrder,
		shutdownTimeout: b.shutdownTimeout,
		stopCh:          make(chan struct{}),
	}
}

func mustRegister(logger logging.Logger, err error) {
	if err != nil {
		logger.Fatal("Failed to register core service",
			logging.Field{Key: "error", Value: err.Error()})
	}
}

// application 应用程序实现
type application struct {
	container       di.Container
	bus             *eventbus.Bus
	configuration   config.ReloadableConfiguration
	configBuilder   *config.ConfigurationBuilder
	logger          logging.Logger
	environment     Environment
	hostedServices  []hosting.HostedService
	lifecycle       *LifecycleEvents
	serviceManager  *hosting.HostedServiceManager
	cleanups        map[string]func()
	cleanupOrder    []string
	shutdownTimeout time.Duration
	stopCh          chan struct{}
	stopOnce        sync.Once
	running         bool
	runCancel       context.CancelFunc
	mu              sync.Mutex
}

// Run 运行应用程序（阻塞直到收到退出信号）
func (a *application) Run() error {
	return a.RunAsync(context.Background())
}

// RunAsync 在给定 context 下运行应用程序
func (a *application) RunAsync(ctx context.Context) error {
	a.mu.Lock()
	if a.running {
		a.mu.Unlock()
		return errors.New("application is already running")
	}
	a.running = true

	runCtx, cancel := context.WithCancel(ctx)
	a.runCancel = cancel
	a.mu.Unlock()

	startedAt := time.Now()

	a.logger.Info("Starting application",
		logging.Field{Key: "environment", Value: a.environment.Name()})

	a.startConfigWatches(runCtx)

	if err := a.lifecycle.Start(runCtx); err != nil {
		a.logger.Error("Lifecycle start hook failed",
			logging.Field{Key: "error", Value: err.Error()})
		a.runCancel()
		a.mu.Lock()
		a.running = false
		a.mu.Unlock()
		return err
	}

	a.serviceManager = hosting.NewHostedServiceManager(a.logger.WithCategory("hosting"))
	for _, service := range a.hostedServices {
		a.serviceManager.Add(service)
	}
	errCh := a.serviceManager.StartAll(runCtx)

	eventbus.Publish(a.bus, ApplicationStarted{
		Environment: a.environment.Name(),
		At:          startedAt,
	})
	a.logger.Info("Application started successfully")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	var runErr error
	select {
	case sig := <-sigCh:
		a.logger.Info("Received shutdown signal",
			logging.Field{Key: "signal", Value: sig.String()})
	case <-a.stopCh:
		a.logger.Info("Application stop requested")
	case <-ctx.Done():
		a.logger.Info("Context cancelled")
	case err := <-errCh:
		a.logger.Error("Hosted service failed, stopping application",
			logging.Field{Key: "error", Value: err.Error()})
		runErr = err
	}

	a.shutdown(startedAt)

	a.mu.Lock()
	a.running = false
	a.mu.Unlock()

	return runErr
}

// startConfigWatches 为支持监听的配置源启动热重载
func (a *application) startConfigWatches(ctx context.Context) {
	for _, source := range a.configBuilder.Sources() {
		watchable, ok := source.(config.WatchableSource)
		if !ok {
			continue
		}
		name := source.Name()
		watchable.Watch(ctx, func(map[string]any) {
			// 单源变更也要和其他源重新合并，保持覆盖顺序
			values, err := a.configBuilder.Reload()
			if err != nil {
				a.logger.Error("Failed to reload configuration",
					logging.Field{Key: "source", Value: name},
					logging.Field{Key: "error", Value: err.Error()})
				return
			}
			a.configuration.Replace(values)
			eventbus.Publish(a.bus, ConfigurationReloaded{Source: name, At: time.Now()})
			a.logger.Info("Configuration reloaded",
				logging.Field{Key: "source", Value: name})
		})
		a.logger.Debug("Watching configuration source",
			logging.Field{Key: "source", Value: name})
	}
}

// shutdown 优雅关闭：事件通知 -> 停止托管服务 -> 倒序清理 -> 释放容器
func (a *application) shutdown(startedAt time.Time) {
	a.logger.Info("Shutting down application",
		logging.Field{Key: "timeout", Value: a.shutdownTimeout.String()})

	eventbus.Publish(a.bus, ApplicationStopping{At: time.Now()})

	a.runCancel()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
	defer cancel()

	// 停止钩子先于托管服务关闭，给业务一个排空在途工作的机会
	if err := a.lifecycle.Stop(shutdownCtx); err != nil {
		a.logger.Error("Lifecycle stop hooks failed",
			logging.Field{Key: "error", Value: err.Error()})
	}

	if err := a.serviceManager.StopAll(shutdownCtx); err != nil {
		a.logger.Error("Failed to stop hosted services",
			logging.Field{Key: "error", Value: err.Error()})
	}

	if len(a.cleanupOrder) > 0 {
		a.logger.Info("Running cleanup functions",
			logging.Field{Key: "count", Value: len(a.cleanupOrder)})
		for i := len(a.cleanupOrder) - 1; i >= 0; i-- {
			key := a.cleanupOrder[i]
			a.logger.Debug("Running cleanup",
				logging.Field{Key: "key", Value: key})
			a.cleanups[key]()
		}
	}

	eventbus.Publish(a.bus, ApplicationStopped{At: time.Now(), Uptime: time.Since(startedAt)})

	// 容器最后释放，保证清理函数和停止钩子还能解析到单例
	a.container.Dispose()

	a.logger.Info("Application stopped")
}

// Stop 停止应用程序，幂等
func (a *application) Stop(ctx context.Context) error {
	a.stopOnce.Do(func() { close(a.stopCh) })
	return nil
}

// Services 获取服务容器
func (a *application) Services() di.Container {
	return a.container
}

// Bus 获取事件总线
func (a *application) Bus() *eventbus.Bus {
	return a.bus
}

// Configuration 获取配置
func (a *application) Configuration() config.Configuration {
	return a.configuration
}

// Logger 获取日志记录器
func (a *application) Logger() logging.Logger {
	return a.logger
}

// Environment 获取环境
func (a *application) Environment() Environment {
	return a.environment
}

// GetService 获取服务实例（通过指针参数）
//
// 使用示例：
//
//	var myService *MyService
//	app.GetService(&myService)
func (a *application) GetService(ptr any) {
	ptrValue := reflect.ValueOf(ptr)
	if ptrValue.Kind() != reflect.Pointer {
		panic(fmt.Sprintf("host: GetService argument must be a pointer, got %T", ptr))
	}
	elemValue := ptrValue.Elem()
	if !elemValue.CanSet() {
		panic("host: GetService argument must be settable")
	}

	instance, err := a.container.Resolve(elemValue.Type())
	if err != nil {
		panic(fmt.Sprintf("host: failed to get service %s: %v", elemValue.Type().String(), err))
	}
	elemValue.Set(reflect.ValueOf(instance))
}

// Environment 环境接口
type Environment interface {
	Name() string
	IsDevelopment() bool
	IsProduction() bool
	IsStaging() bool
}

type environment struct {
	name string
}

// NewEnvironment 创建环境
func NewEnvironment(name string) Environment {
	return &environment{name: name}
}

func (e *environment) Name() string {
	return e.name
}

func (e *environment) IsDevelopment() bool {
	return e.name == "development"
}

func (e *environment) IsProduction() bool {
	return e.name == "production"
}

func (e *environment) IsStaging() bool {
	return e.name == "staging"
}
