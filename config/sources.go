package config

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	clientv3 "go.etcd.io/etcd/client/v3"
	"gopkg.in/yaml.v3"
)

// ConfigurationSource 配置源接口
type ConfigurationSource interface {
	Load() (map[string]any, error)
	Name() string
}

// WatchableSource 支持变更监听的配置源。
// apply 收到的是该源最新加载的值；调用方负责与其他源重新合并。
type WatchableSource interface {
	ConfigurationSource
	Watch(ctx context.Context, apply func(map[string]any))
}

// ConfigurationBuilder 配置构建器，按添加顺序叠加配置源。
type ConfigurationBuilder struct {
	sources []ConfigurationSource
}

// NewConfigurationBuilder 创建配置构建器
func NewConfigurationBuilder() *ConfigurationBuilder {
	return &ConfigurationBuilder{}
}

// Add 添加配置源
func (b *ConfigurationBuilder) Add(source ConfigurationSource) *ConfigurationBuilder {
	b.sources = append(b.sources, source)
	return b
}

// AddInMemory 添加内存配置源，常用于测试或程序内置默认值。
func (b *ConfigurationBuilder) AddInMemory(values map[string]any) *ConfigurationBuilder {
	return b.Add(&inMemorySource{values: values})
}

// AddYamlFile 添加 YAML 文件源。optional 为 true 时文件缺失不报错。
func (b *ConfigurationBuilder) AddYamlFile(path string, optional bool) *ConfigurationBuilder {
	return b.Add(&yamlFileSource{path: path, optional: optional})
}

// AddEnvironment 添加环境变量源，prefix 如 "HOST_"。
func (b *ConfigurationBuilder) AddEnvironment(prefix string) *ConfigurationBuilder {
	return b.Add(&envSource{prefix: prefix})
}

// AddEtcd 添加 etcd 源，key 下的值按 YAML 解析。
func (b *ConfigurationBuilder) AddEtcd(client *clientv3.Client, key string) *ConfigurationBuilder {
	return b.Add(&EtcdSource{client: client, key: key})
}

// Sources 返回已添加的配置源
func (b *ConfigurationBuilder) Sources() []ConfigurationSource {
	return b.sources
}

// Reload 重新加载所有源并合并成一棵新树，后添加的源覆盖先添加的。
func (b *ConfigurationBuilder) Reload() (map[string]any, error) {
	merged := make(map[string]any)
	for _, source := range b.sources {
		values, err := source.Load()
		if err != nil {
			return nil, fmt.Errorf("config: load source %s: %w", source.Name(), err)
		}
		merged = mergeMaps(merged, values)
	}
	return merged, nil
}

// Build 依序加载所有源并合并
func (b *ConfigurationBuilder) Build() (Configuration, error) {
	return b.BuildReloadable()
}

// BuildReloadable 构建支持热重载的配置
func (b *ConfigurationBuilder) BuildReloadable() (ReloadableConfiguration, error) {
	values, err := b.Reload()
	if err != nil {
		return nil, err
	}
	cfg := NewConfiguration()
	cfg.Replace(values)
	return cfg, nil
}

// inMemorySource 内存配置源
type inMemorySource struct {
	values map[string]any
}

func (s *inMemorySource) Name() string { return "memory" }

func (s *inMemorySource) Load() (map[string]any, error) {
	return normalize(s.values), nil
}

// yamlFileSource YAML 文件配置源
type yamlFileSource struct {
	path     string
	optional bool
}

func (s *yamlFileSource) Name() string { return "yaml:" + s.path }

func (s *yamlFileSource) Load() (map[string]any, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if s.optional && os.IsNotExist(err) {
			return map[string]any{}, nil
		}
		return nil, err
	}

	values := make(map[string]any)
	if err := yaml.Unmarshal(raw, &values); err != nil {
		return nil, err
	}
	return normalize(values), nil
}

// envSource 环境变量配置源。
// HOST_DATABASE__DSN=... 映射为 database:dsn（双下划线是层级分隔）。
type envSource struct {
	prefix string
}

func (s *envSource) Name() string { return "env:" + s.prefix }

func (s *envSource) Load() (map[string]any, error) {
	values := make(map[string]any)
	for _, kv := range os.Environ() {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(name, s.prefix) {
			continue
		}
		path := strings.Split(strings.ToLower(strings.TrimPrefix(name, s.prefix)), "__")

		node := values
		for _, part := range path[:len(path)-1] {
			child, ok := node[part].(map[string]any)
			if !ok {
				child = make(map[string]any)
				node[part] = child
			}
			node = child
		}
		node[path[len(path)-1]] = value
	}
	return values, nil
}

// EtcdSource etcd 配置源：单个 key 的值按 YAML 文档解析。
type EtcdSource struct {
	client *clientv3.Client
	key    string
}

// NewEtcdSource 创建 etcd 配置源
func NewEtcdSource(client *clientv3.Client, key string) *EtcdSource {
	return &EtcdSource{client: client, key: key}
}

func (s *EtcdSource) Name() string { return "etcd:" + s.key }

func (s *EtcdSource) Load() (map[string]any, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	resp, err := s.client.Get(ctx, s.key)
	if err != nil {
		return nil, err
	}
	if len(resp.Kvs) == 0 {
		return map[string]any{}, nil
	}

	values := make(map[string]any)
	if err := yaml.Unmarshal(resp.Kvs[0].Value, &values); err != nil {
		return nil, err
	}
	return normalize(values), nil
}

// Watch 监听 key 变更并把新配置推给 apply，直到 ctx 取消。
// 用于热重载：core 在启动钩子里对可替换的 configuration 调用 Replace。
func (s *EtcdSource) Watch(ctx context.Context, apply func(map[string]any)) {
	ch := s.client.Watch(ctx, s.key)
	go func() {
		for resp := range ch {
			for _, ev := range resp.Events {
				if ev.Type != clientv3.EventTypePut {
					continue
				}
				values := make(map[string]any)
				if err := yaml.Unmarshal(ev.Kv.Value, &values); err != nil {
					continue
				}
				apply(normalize(values))
			}
		}
	}()
}

// normalize 把 yaml 解析出的 map[any]any 节点统一为 map[string]any。
func normalize(values map[string]any) map[string]any {
	out := make(map[string]any, len(values))
	for k, v := range values {
		out[k] = normalizeValue(v)
	}
	return out
}

func normalizeValue(v any) any {
	switch node := v.(type) {
	case map[string]any:
		return normalize(node)
	case map[any]any:
		out := make(map[string]any, len(node))
		for k, val := range node {
			out[fmt.Sprintf("%v", k)] = normalizeValue(val)
		}
		return out
	case []any:
		for i, item := range node {
			node[i] = normalizeValue(item)
		}
		return node
	default:
		return v
	}
}
