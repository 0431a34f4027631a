package httpclient

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/kbukum/spacs/config"
	apperrors "github.com/kbukum/spacs/errors"
	"github.com/kbukum/spacs/validation"
)

const (
	defaultTimeout             = 30 * time.Second
	defaultRequestIDHeader     = "X-Request-ID"
	defaultMaxIdleConns        = 100
	defaultMaxIdleConnsPerHost = 10
	defaultIdleConnTimeout     = 90 * time.Second
)

// ErrorHandler receives HTTP failure responses in place of the returned error.
type ErrorHandler func(ctx context.Context, err *RequestError)

// Config configures a Client.
type Config struct {
	// Name identifies the client in logs, spans and metrics.
	Name string `yaml:"name" mapstructure:"name"`

	// BaseURL is the absolute URL every request path is resolved against.
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`

	// PathPrefix is inserted between BaseURL and each request path.
	PathPrefix string `yaml:"path_prefix" mapstructure:"path_prefix"`

	// Timeout is the default request timeout. Defaults to 30s.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`

	// Headers are default headers applied to all requests.
	Headers map[string]string `yaml:"headers" mapstructure:"headers"`

	// RequestIDHeader carries the per-request ID. Defaults to X-Request-ID.
	RequestIDHeader string `yaml:"request_id_header" mapstructure:"request_id_header"`

	// TLS configures TLS settings for the session transport.
	TLS *TLSConfig `yaml:"tls" mapstructure:"tls"`

	// Pool configures connection pooling of the session transport.
	Pool PoolConfig `yaml:"pool" mapstructure:"pool"`

	// ErrorHandler, when set, receives every non-2xx response and the verb
	// call returns nil instead of the error.
	ErrorHandler ErrorHandler `yaml:"-" mapstructure:"-"`
}

// PoolConfig configures the connection pool behind a session.
type PoolConfig struct {
	MaxIdleConns        int           `yaml:"max_idle_conns" mapstructure:"max_idle_conns"`
	MaxIdleConnsPerHost int           `yaml:"max_idle_conns_per_host" mapstructure:"max_idle_conns_per_host"`
	MaxConnsPerHost     int           `yaml:"max_conns_per_host" mapstructure:"max_conns_per_host"`
	IdleConnTimeout     time.Duration `yaml:"idle_conn_timeout" mapstructure:"idle_conn_timeout"`
	// ForceHTTP2 enables HTTP/2 on the transport even with a custom TLS config.
	ForceHTTP2 bool `yaml:"force_http2" mapstructure:"force_http2"`
}

// ApplyDefaults fills in zero-value fields with sensible defaults.
func (c *Config) ApplyDefaults() {
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	if c.RequestIDHeader == "" {
		c.RequestIDHeader = defaultRequestIDHeader
	}
	if c.Name == "" {
		if u, err := url.Parse(c.BaseURL); err == nil && u.Host != "" {
			c.Name = u.Host
		}
	}
	c.Pool.applyDefaults()
}

func (p *PoolConfig) applyDefaults() {
	if p.MaxIdleConns == 0 {
		p.MaxIdleConns = defaultMaxIdleConns
	}
	if p.MaxIdleConnsPerHost == 0 {
		p.MaxIdleConnsPerHost = defaultMaxIdleConnsPerHost
	}
	if p.IdleConnTimeout == 0 {
		p.IdleConnTimeout = defaultIdleConnTimeout
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	v := validation.NewWithCode(apperrors.ErrCodeInvalidConfig).
		Required("base_url", c.BaseURL).
		AbsoluteURL("base_url", c.BaseURL).
		Custom(!hasQueryOrFragment(c.BaseURL), "base_url", "must not carry a query or fragment").
		Custom(c.Timeout > 0, "timeout", "must be positive").
		Min("pool.max_idle_conns", c.Pool.MaxIdleConns, 0).
		Min("pool.max_idle_conns_per_host", c.Pool.MaxIdleConnsPerHost, 0).
		Min("pool.max_conns_per_host", c.Pool.MaxConnsPerHost, 0).
		Custom(c.Pool.IdleConnTimeout >= 0, "pool.idle_conn_timeout", "must not be negative").
		Custom(!strings.Contains(c.PathPrefix, "://"), "path_prefix", "must be a path, not a URL")
	if err := c.TLS.validate(); err != nil {
		v.AddError("tls", err.Error())
	}
	if appErr := v.Validate(); appErr != nil {
		return appErr
	}
	return nil
}

func hasQueryOrFragment(raw string) bool {
	u, err := url.Parse(raw)
	return err == nil && (u.RawQuery != "" || u.ForceQuery || u.Fragment != "")
}

// PoolKey identifies the session this configuration maps to. Clients with
// the same base URL and transport settings share a key. Headers, timeout and
// error handler are applied per request and do not take part.
func (c *Config) PoolKey() string {
	return normalizeBaseURL(c.BaseURL) + "#" + fmt.Sprintf("%016x", xxhash.Sum64String(c.transportFingerprint()))
}

func (c *Config) transportFingerprint() string {
	p := c.Pool
	return fmt.Sprintf("%s|pool:%d|%d|%d|%s|%t",
		c.TLS.fingerprint(), p.MaxIdleConns, p.MaxIdleConnsPerHost, p.MaxConnsPerHost, p.IdleConnTimeout, p.ForceHTTP2)
}

// normalizeBaseURL lowercases scheme and host and drops the trailing slash.
func normalizeBaseURL(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return strings.TrimRight(raw, "/")
	}
	return strings.ToLower(u.Scheme) + "://" + strings.ToLower(u.Host) + strings.TrimRight(u.EscapedPath(), "/")
}

// LoadConfig loads a Config for the named client from YAML, .env and
// <NAME>_-prefixed environment variables, then applies defaults and validates.
func LoadConfig(name string, opts ...config.LoaderOption) (Config, error) {
	var cfg Config
	if err := config.Load(name, &cfg, opts...); err != nil {
		return Config{}, err
	}
	if cfg.Name == "" {
		cfg.Name = name
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
