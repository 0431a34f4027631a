package httpclient

import (
	"crypto/tls"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/kbukum/spacs/config"
	apperrors "github.com/kbukum/spacs/errors"
)

func TestConfig_ApplyDefaults(t *testing.T) {
	cfg := Config{BaseURL: "https://api.example.com:8443/v1"}
	cfg.ApplyDefaults()

	if cfg.Timeout != defaultTimeout {
		t.Errorf("expected default timeout, got %v", cfg.Timeout)
	}
	if cfg.RequestIDHeader != "X-Request-ID" {
		t.Errorf("expected default request id header, got %q", cfg.RequestIDHeader)
	}
	if cfg.Name != "api.example.com:8443" {
		t.Errorf("expected name from host, got %q", cfg.Name)
	}
	if cfg.Pool.MaxIdleConns != 100 || cfg.Pool.MaxIdleConnsPerHost != 10 || cfg.Pool.IdleConnTimeout != 90*time.Second {
		t.Errorf("unexpected pool defaults %+v", cfg.Pool)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{"valid", Config{BaseURL: "http://localhost:8080"}, ""},
		{"missing base url", Config{}, "base_url: is required"},
		{"relative base url", Config{BaseURL: "/api"}, "base_url: must be an absolute http(s) URL"},
		{"negative pool", Config{BaseURL: "http://h", Pool: PoolConfig{MaxConnsPerHost: -1}}, "pool.max_conns_per_host"},
		{"url prefix", Config{BaseURL: "http://h", PathPrefix: "http://x"}, "path_prefix"},
		{"base url query", Config{BaseURL: "https://h/api?key=1"}, "base_url: must not carry a query or fragment"},
		{"base url fragment", Config{BaseURL: "https://h/api#top"}, "base_url: must not carry a query or fragment"},
		{"half client cert", Config{BaseURL: "http://h", TLS: &TLSConfig{CertFile: "c.pem"}}, "tls: cert_file and key_file"},
		{"key without cert", Config{BaseURL: "http://h", TLS: &TLSConfig{KeyFile: "k.pem"}}, "tls: cert_file and key_file"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := tc.cfg
			cfg.ApplyDefaults()
			err := cfg.Validate()
			if tc.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v", err)
				}
				return
			}
			if !apperrors.IsCode(err, apperrors.ErrCodeInvalidConfig) {
				t.Fatalf("expected INVALID_CONFIG, got %v", err)
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("expected %q in %q", tc.wantErr, err.Error())
			}
		})
	}
}

func TestConfig_PoolKey(t *testing.T) {
	key := func(cfg Config) string {
		cfg.ApplyDefaults()
		return cfg.PoolKey()
	}
	base := Config{BaseURL: "http://API.example.com/v1/"}

	if key(base) != key(Config{BaseURL: "http://api.example.com/v1", Timeout: time.Second, Headers: map[string]string{"a": "b"}}) {
		t.Error("expected case, trailing slash, timeout and headers not to change the key")
	}
	if !strings.HasPrefix(key(base), "http://api.example.com/v1#") {
		t.Errorf("expected normalized base URL prefix, got %q", key(base))
	}

	different := []Config{
		{BaseURL: "http://api.example.com/v2"},
		{BaseURL: "https://api.example.com/v1"},
		{BaseURL: "http://api.example.com/v1", TLS: &TLSConfig{InsecureSkipVerify: true}},
		{BaseURL: "http://api.example.com/v1", TLS: &TLSConfig{MinVersion: tls.VersionTLS13}},
		{BaseURL: "http://api.example.com/v1", Pool: PoolConfig{MaxConnsPerHost: 2}},
		{BaseURL: "http://api.example.com/v1", Pool: PoolConfig{ForceHTTP2: true}},
	}
	for i, cfg := range different {
		if key(cfg) == key(base) {
			t.Errorf("config %d: expected a different key", i)
		}
	}

	if key(Config{BaseURL: "http://h", TLS: &TLSConfig{}}) != key(Config{BaseURL: "http://h"}) {
		t.Error("expected empty TLS config to match no TLS config")
	}
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "billing.yml")
	content := `
base_url: http://billing.internal:9000
path_prefix: /api
timeout: 5s
headers:
  x-api-version: "2"
pool:
  max_conns_per_host: 8
  force_http2: true
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	t.Setenv("BILLING_TIMEOUT", "7s")

	cfg, err := LoadConfig("billing", config.WithConfigFile(path))
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.Name != "billing" {
		t.Errorf("expected name from loader, got %q", cfg.Name)
	}
	if cfg.BaseURL != "http://billing.internal:9000" || cfg.PathPrefix != "/api" {
		t.Errorf("unexpected url settings %q %q", cfg.BaseURL, cfg.PathPrefix)
	}
	if cfg.Timeout != 7*time.Second {
		t.Errorf("expected env override 7s, got %v", cfg.Timeout)
	}
	if cfg.Headers["x-api-version"] != "2" {
		t.Errorf("expected header from file, got %v", cfg.Headers)
	}
	if cfg.Pool.MaxConnsPerHost != 8 || !cfg.Pool.ForceHTTP2 || cfg.Pool.MaxIdleConns != defaultMaxIdleConns {
		t.Errorf("unexpected pool %+v", cfg.Pool)
	}
}

func TestLoadConfig_Invalid(t *testing.T) {
	_, err := LoadConfig("unconfigured-client", config.WithConfigFile("/nonexistent/client.yml"))
	if !apperrors.IsCode(err, apperrors.ErrCodeInvalidConfig) {
		t.Errorf("expected INVALID_CONFIG without base_url, got %v", err)
	}
}
