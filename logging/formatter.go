package logging

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Formatter 日志格式化器接口
type Formatter interface {
	Format(entry *LogEntry) ([]byte, error)
}

// TextFormatter 人类可读的单行文本格式化器
type TextFormatter struct {
	TimestampFormat  string
	IncludeTimestamp bool
}

// NewTextFormatter 创建文本格式化器
func NewTextFormatter() *TextFormatter {
	return &TextFormatter{
		TimestampFormat:  "2006-01-02 15:04:05",
		IncludeTimestamp: true,
	}
}

// Format 格式化日志
func (f *TextFormatter) Format(entry *LogEntry) ([]byte, error) {
	var sb strings.Builder

	if f.IncludeTimestamp {
		sb.WriteString(entry.Time.Format(f.TimestampFormat))
		sb.WriteByte(' ')
	}
	sb.WriteString(fmt.Sprintf("[%-5s]", entry.Level.String()))
	if entry.Category != "" {
		sb.WriteString(" [" + entry.Category + "]")
	}
	sb.WriteByte(' ')
	sb.WriteString(entry.Message)

	for _, field := range entry.Fields {
		sb.WriteString(fmt.Sprintf(" %s=%v", field.Key, field.Value))
	}
	sb.WriteByte('\n')

	return []byte(sb.String()), nil
}

// JsonFormatter JSON 格式化器
type JsonFormatter struct {
	TimestampFormat string
}

// NewJsonFormatter 创建 JSON 格式化器
func NewJsonFormatter() *JsonFormatter {
	return &JsonFormatter{
		TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
	}
}

// Format 格式化日志
func (f *JsonFormatter) Format(entry *LogEntry) ([]byte, error) {
	data := make(map[string]any)

	data["time"] = entry.Time.Format(f.TimestampFormat)
	data["level"] = entry.Level.String()
	if entry.Category != "" {
		data["category"] = entry.Category
	}
	data["msg"] = entry.Message

	if len(entry.Fields) > 0 {
		fields := make(map[string]any, len(entry.Fields))
		for _, field := range entry.Fields {
			fields[field.Key] = field.Value
		}
		data["fields"] = fields
	}

	out, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return append(out, '\n'), nil
}
