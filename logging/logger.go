package logging

import (
	"os"
	"sync"
	"time"
)

// LogLevel 日志级别
type LogLevel int

const (
	LogLevelTrace LogLevel = iota
	LogLevelDebug
	LogLevelInfo
	LogLevelWarn
	LogLevelError
	LogLevelFatal
)

// String 返回日志级别的字符串表示
func (l LogLevel) String() string {
	switch l {
	case LogLevelTrace:
		return "TRACE"
	case LogLevelDebug:
		return "DEBUG"
	case LogLevelInfo:
		return "INFO"
	case LogLevelWarn:
		return "WARN"
	case LogLevelError:
		return "ERROR"
	case LogLevelFatal:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

// Field 日志字段
type Field struct {
	Key   string
	Value any
}

// Logger 结构化日志接口
type Logger interface {
	Trace(msg string, fields ...Field)
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	Fatal(msg string, fields ...Field)
	Log(level LogLevel, msg string, fields ...Field)
	WithFields(fields ...Field) Logger
	WithCategory(category string) Logger
}

// LogEntry 一条日志记录
type LogEntry struct {
	Time     time.Time
	Level    LogLevel
	Category string
	Message  string
	Fields   []Field
}

// sink 接收格式化后日志的落点
type sink struct {
	formatter Formatter
	out       *os.File
}

// logger Logger 的标准实现
type logger struct {
	mu           *sync.Mutex
	sinks        []*sink
	minimumLevel LogLevel
	category     string
	fields       []Field
}

func (l *logger) Trace(msg string, fields ...Field) { l.Log(LogLevelTrace, msg, fields...) }
func (l *logger) Debug(msg string, fields ...Field) { l.Log(LogLevelDebug, msg, fields...) }
func (l *logger) Info(msg string, fields ...Field)  { l.Log(LogLevelInfo, msg, fields...) }
func (l *logger) Warn(msg string, fields ...Field)  { l.Log(LogLevelWarn, msg, fields...) }
func (l *logger) Error(msg string, fields ...Field) { l.Log(LogLevelError, msg, fields...) }

// Fatal 记录日志后退出进程
func (l *logger) Fatal(msg string, fields ...Field) {
	l.Log(LogLevelFatal, msg, fields...)
	os.Exit(1)
}

func (l *logger) Log(level LogLevel, msg string, fields ...Field) {
	if level < l.minimumLevel {
		return
	}

	entry := &LogEntry{
		Time:     time.Now(),
		Level:    level,
		Category: l.category,
		Message:  msg,
	}
	if len(l.fields) > 0 || len(fields) > 0 {
		entry.Fields = append(append([]Field{}, l.fields...), fields...)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	for _, s := range l.sinks {
		data, err := s.formatter.Format(entry)
		if err != nil {
			continue
		}
		_, _ = s.out.Write(data)
	}
}

// WithFields 返回携带附加字段的派生 Logger
func (l *logger) WithFields(fields ...Field) Logger {
	derived := *l
	derived.fields = append(append([]Field{}, l.fields...), fields...)
	return &derived
}

// WithCategory 返回指定分类的派生 Logger
func (l *logger) WithCategory(category string) Logger {
	derived := *l
	derived.category = category
	return &derived
}
