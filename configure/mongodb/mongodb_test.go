package mongodb

import (
	"testing"
	"time"

	"github.com/gocrud/host/config"
	"github.com/gocrud/host/logging"
)

func TestMongoOptionsValidate(t *testing.T) {
	cases := []struct {
		name    string
		opts    *MongoOptions
		wantErr bool
	}{
		{"valid", NewDefaultOptions("default", "mongodb://localhost:27017"), false},
		{"missing name", NewDefaultOptions("", "mongodb://localhost:27017"), true},
		{"missing uri", NewDefaultOptions("default", ""), true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.opts.Validate()
			if (err != nil) != tc.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestDuplicateClientCollected(t *testing.T) {
	b := NewBuilder().
		Add("dup", "mongodb://localhost:27017", nil).
		Add("dup", "mongodb://localhost:27017", nil)

	if _, err := b.Build(logging.NewLogger()); err == nil {
		t.Fatal("expected duplicate client error")
	}
}

func TestFromConfiguration(t *testing.T) {
	cfg, err := config.NewConfigurationBuilder().
		AddInMemory(map[string]any{
			"mongodb": map[string]any{
				"default": map[string]any{
					"uri":         "mongodb://mongo-a:27017",
					"maxPoolSize": 50,
				},
			},
		}).
		Build()
	if err != nil {
		t.Fatalf("build config: %v", err)
	}

	b := NewBuilder().FromConfiguration(cfg, "")
	if len(b.errors) > 0 {
		t.Fatalf("builder errors: %v", b.errors)
	}

	opts, ok := b.configs["default"]
	if !ok {
		t.Fatal("default client not configured")
	}
	if opts.Uri != "mongodb://mongo-a:27017" {
		t.Errorf("uri = %q", opts.Uri)
	}
	if opts.MaxPoolSize != 50 {
		t.Errorf("maxPoolSize = %d", opts.MaxPoolSize)
	}
	// 未配置的字段回落到默认值
	if opts.Timeout != 10*time.Second {
		t.Errorf("timeout default = %v", opts.Timeout)
	}
}
