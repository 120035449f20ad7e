package hosting

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/gocrud/host/logging"
)

// HostedService 托管服务接口。
// Start 应阻塞执行直到 ctx 取消或发生错误；框架在独立 goroutine 中调用。
// Stop 执行额外的优雅关闭逻辑（可选，Start 随 ctx 取消自动退出时可以为空）。
type HostedService interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// HostedServiceManager 托管服务管理器
type HostedServiceManager struct {
	services []HostedService
	logger   logging.Logger
	mu       sync.RWMutex
	wg       sync.WaitGroup
}

// NewHostedServiceManager 创建托管服务管理器
func NewHostedServiceManager(logger logging.Logger) *HostedServiceManager {
	return &HostedServiceManager{logger: logger}
}

// Add 添加托管服务
func (m *HostedServiceManager) Add(service HostedService) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.services = append(m.services, service)
}

// Count 返回托管服务数量
func (m *HostedServiceManager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.services)
}

// StartAll 并发启动所有托管服务，每个服务一个 goroutine。
// 返回的通道上报非取消类的启动错误。
func (m *HostedServiceManager) StartAll(ctx context.Context) <-chan error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	errCh := make(chan error, len(m.services))
	m.logger.Info(fmt.Sprintf("Starting %d hosted services", len(m.services)))

	for i, service := range m.services {
		m.wg.Add(1)
		go func(index int, svc HostedService) {
			defer m.wg.Done()

			if err := svc.Start(ctx); err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					m.logger.Debug(fmt.Sprintf("Hosted service %d stopped (context done)", index+1))
					return
				}
				m.logger.Error(fmt.Sprintf("Hosted service %d error", index+1),
					logging.Field{Key: "error", Value: err.Error()})
				select {
				case errCh <- err:
				default:
				}
			}
		}(i, service)
	}

	return errCh
}

// StopAll 按添加逆序停止所有托管服务，然后等待 Start goroutine 退出。
func (m *HostedServiceManager) StopAll(ctx context.Context) error {
	m.mu.RLock()
	services := make([]HostedService, len(m.services))
	copy(services, m.services)
	m.mu.RUnlock()

	var firstErr error
	for i := len(services) - 1; i >= 0; i-- {
		if err := services[i].Stop(ctx); err != nil {
			m.logger.Error("Hosted service stop failed",
				logging.Field{Key: "error", Value: err.Error()})
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		if firstErr == nil {
			firstErr = ctx.Err()
		}
	}
	return firstErr
}
