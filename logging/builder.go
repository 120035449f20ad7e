package logging

import (
	"os"
	"sync"
)

// LoggingBuilder 日志构建器
type LoggingBuilder struct {
	sinks        []*sink
	minimumLevel LogLevel
	mu           sync.Mutex
}

// NewLoggingBuilder 创建日志构建器
func NewLoggingBuilder() *LoggingBuilder {
	return &LoggingBuilder{
		minimumLevel: LogLevelInfo,
	}
}

// SetMinimumLevel 设置最小日志级别
func (b *LoggingBuilder) SetMinimumLevel(level LogLevel) *LoggingBuilder {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.minimumLevel = level
	return b
}

// AddConsole 添加控制台文本输出
func (b *LoggingBuilder) AddConsole() *LoggingBuilder {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sinks = append(b.sinks, &sink{formatter: NewTextFormatter(), out: os.Stdout})
	return b
}

// AddJsonConsole 添加控制台 JSON 输出
func (b *LoggingBuilder) AddJsonConsole() *LoggingBuilder {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sinks = append(b.sinks, &sink{formatter: NewJsonFormatter(), out: os.Stdout})
	return b
}

// AddFile 添加文件输出（文本格式，追加写入）
func (b *LoggingBuilder) AddFile(path string) *LoggingBuilder {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		// 打不开文件时退回到控制台，保证日志不中断
		return b.AddConsole()
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sinks = append(b.sinks, &sink{formatter: NewTextFormatter(), out: f})
	return b
}

// Build 构建根 Logger
func (b *LoggingBuilder) Build() Logger {
	b.mu.Lock()
	defer b.mu.Unlock()

	sinks := b.sinks
	if len(sinks) == 0 {
		sinks = []*sink{{formatter: NewTextFormatter(), out: os.Stdout}}
	}

	return &logger{
		mu:           &sync.Mutex{},
		sinks:        sinks,
		minimumLevel: b.minimumLevel,
	}
}

// NewLogger 创建一个默认的控制台 Logger（便于测试使用）
func NewLogger() Logger {
	return NewLoggingBuilder().AddConsole().Build()
}
