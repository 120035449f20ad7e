package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeYaml(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "app.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestYamlFileSource(t *testing.T) {
	path := writeYaml(t, `
app:
  name: host-demo
  debug: true
database:
  pool: 20
`)

	cfg, err := NewConfigurationBuilder().AddYamlFile(path, false).Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	if got := cfg.Get("app:name"); got != "host-demo" {
		t.Errorf("app:name = %q", got)
	}
	if n, err := cfg.GetInt("database:pool"); err != nil || n != 20 {
		t.Errorf("database:pool = %d, %v", n, err)
	}
	if b, err := cfg.GetBool("app:debug"); err != nil || !b {
		t.Errorf("app:debug = %v, %v", b, err)
	}
	if got := cfg.GetWithDefault("app:missing", "fallback"); got != "fallback" {
		t.Errorf("default = %q", got)
	}
}

func TestOptionalMissingFile(t *testing.T) {
	_, err := NewConfigurationBuilder().
		AddYamlFile(filepath.Join(t.TempDir(), "absent.yaml"), true).
		Build()
	if err != nil {
		t.Fatalf("optional missing file must not fail: %v", err)
	}
}

func TestEnvironmentOverridesFile(t *testing.T) {
	path := writeYaml(t, "app:\n  name: from-file\n")
	t.Setenv("HOSTTEST_APP__NAME", "from-env")

	cfg, err := NewConfigurationBuilder().
		AddYamlFile(path, false).
		AddEnvironment("HOSTTEST_").
		Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	if got := cfg.Get("app:name"); got != "from-env" {
		t.Errorf("env override failed, got %q", got)
	}
}

func TestBindSection(t *testing.T) {
	path := writeYaml(t, `
redis:
  addr: localhost:6379
  db: 3
`)
	cfg, err := NewConfigurationBuilder().AddYamlFile(path, false).Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	var target struct {
		Addr string `yaml:"addr"`
		DB   int    `yaml:"db"`
	}
	if err := cfg.Bind("redis", &target); err != nil {
		t.Fatalf("bind: %v", err)
	}
	if target.Addr != "localhost:6379" || target.DB != 3 {
		t.Errorf("bound value = %+v", target)
	}
}

func TestGetSection(t *testing.T) {
	path := writeYaml(t, "web:\n  port: 9090\n")
	cfg, _ := NewConfigurationBuilder().AddYamlFile(path, false).Build()

	section := cfg.GetSection("web")
	if n, err := section.GetInt("port"); err != nil || n != 9090 {
		t.Errorf("section port = %d, %v", n, err)
	}
}

func TestReplaceIsAtomic(t *testing.T) {
	cfg := NewConfiguration()
	cfg.Merge(map[string]any{"a": "1"})
	cfg.Replace(map[string]any{"b": "2"})

	if cfg.Get("a") != "" {
		t.Error("Replace must drop previous values")
	}
	if cfg.Get("b") != "2" {
		t.Error("Replace must install new values")
	}
}
