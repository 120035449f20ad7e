package config

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Configuration 只读配置接口。键用 ":" 分隔层级，例如 "database:dsn"。
type Configuration interface {
	// Get 获取配置值，不存在返回空串
	Get(key string) string
	// GetWithDefault 获取配置值，不存在则返回默认值
	GetWithDefault(key, defaultValue string) string
	// GetInt 获取整数配置值
	GetInt(key string) (int, error)
	// GetBool 获取布尔配置值
	GetBool(key string) (bool, error)
	// GetSection 获取配置子节
	GetSection(key string) Configuration
	// Bind 把配置节绑定到结构体
	Bind(key string, target any) error
	// GetAll 获取全部配置的副本
	GetAll() map[string]any
}

// ReloadableConfiguration 暴露热重载能力的配置视图。
// 框架在配置源变更时调用 Replace 原子换入新树。
type ReloadableConfiguration interface {
	Configuration
	Replace(values map[string]any)
	Merge(values map[string]any)
}

// configuration Configuration 的标准实现，values 是嵌套树。
// Replace 支持热重载：整棵树原子替换。
type configuration struct {
	mu     sync.RWMutex
	values map[string]any
}

// NewConfiguration 创建空配置
func NewConfiguration() *configuration {
	return &configuration{values: make(map[string]any)}
}

// Replace 原子替换整棵配置树（热重载入口）
func (c *configuration) Replace(values map[string]any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values = values
}

// Merge 把一个配置源的结果叠加到当前树上，后来者覆盖先来者。
func (c *configuration) Merge(values map[string]any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values = mergeMaps(c.values, values)
}

func (c *configuration) lookup(key string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var current any = c.values
	for _, part := range strings.Split(key, ":") {
		node, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = node[part]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

func (c *configuration) Get(key string) string {
	v, ok := c.lookup(key)
	if !ok || v == nil {
		return ""
	}
	return fmt.Sprintf("%v", v)
}

func (c *configuration) GetWithDefault(key, defaultValue string) string {
	if _, ok := c.lookup(key); !ok {
		return defaultValue
	}
	return c.Get(key)
}

func (c *configuration) GetInt(key string) (int, error) {
	v, ok := c.lookup(key)
	if !ok {
		return 0, fmt.Errorf("config: key %q not found", key)
	}
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		return int(n), nil
	default:
		return strconv.Atoi(fmt.Sprintf("%v", v))
	}
}

func (c *configuration) GetBool(key string) (bool, error) {
	v, ok := c.lookup(key)
	if !ok {
		return false, fmt.Errorf("config: key %q not found", key)
	}
	if b, ok := v.(bool); ok {
		return b, nil
	}
	return strconv.ParseBool(fmt.Sprintf("%v", v))
}

func (c *configuration) GetSection(key string) Configuration {
	section := NewConfiguration()
	if v, ok := c.lookup(key); ok {
		if m, ok := v.(map[string]any); ok {
			section.Replace(m)
		}
	}
	return section
}

// Bind 通过 YAML 往返把配置节绑定到结构体
func (c *configuration) Bind(key string, target any) error {
	v, ok := c.lookup(key)
	if !ok {
		return fmt.Errorf("config: section %q not found", key)
	}
	raw, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("config: marshal section %q: %w", key, err)
	}
	if err := yaml.Unmarshal(raw, target); err != nil {
		return fmt.Errorf("config: bind section %q: %w", key, err)
	}
	return nil
}

func (c *configuration) GetAll() map[string]any {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return copyMap(c.values)
}

func mergeMaps(base, overlay map[string]any) map[string]any {
	out := copyMap(base)
	for k, v := range overlay {
		if sub, ok := v.(map[string]any); ok {
			if existing, ok := out[k].(map[string]any); ok {
				out[k] = mergeMaps(existing, sub)
				continue
			}
		}
		out[k] = v
	}
	return out
}

func copyMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		if sub, ok := v.(map[string]any); ok {
			out[k] = copyMap(sub)
			continue
		}
		out[k] = v
	}
	return out
}
