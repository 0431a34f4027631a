package httpclient

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"golang.org/x/net/http2"

	apperrors "github.com/kbukum/spacs/errors"
)

// SessionFactory constructs the session for a pool key.
type SessionFactory func(ctx context.Context, key string, cfg Config) (*Session, error)

// Session is a long-lived HTTP client with its own connection pool. One
// session serves every Client that maps to its pool key.
type Session struct {
	key       string
	client    *http.Client
	transport *http.Transport
	createdAt time.Time

	inflight atomic.Int64
	total    atomic.Int64
	closed   atomic.Bool
}

var _ SessionFactory = NewSession

// NewSession builds a session whose transport applies cfg.TLS and cfg.Pool.
// Request timeouts come from the request context, so the underlying
// http.Client has none.
func NewSession(_ context.Context, key string, cfg Config) (*Session, error) {
	transport, err := newTransport(cfg)
	if err != nil {
		return nil, err
	}
	return &Session{
		key:       key,
		client:    &http.Client{Transport: transport},
		transport: transport,
		createdAt: time.Now(),
	}, nil
}

func newTransport(cfg Config) (*http.Transport, error) {
	t := http.DefaultTransport.(*http.Transport).Clone()
	t.MaxIdleConns = cfg.Pool.MaxIdleConns
	t.MaxIdleConnsPerHost = cfg.Pool.MaxIdleConnsPerHost
	t.MaxConnsPerHost = cfg.Pool.MaxConnsPerHost
	t.IdleConnTimeout = cfg.Pool.IdleConnTimeout

	tlsCfg, err := cfg.TLS.build()
	if err != nil {
		return nil, apperrors.InvalidConfig("invalid TLS settings").WithCause(err)
	}
	if tlsCfg != nil {
		t.TLSClientConfig = tlsCfg
	}

	if cfg.Pool.ForceHTTP2 {
		if _, err := http2.ConfigureTransports(t); err != nil {
			return nil, fmt.Errorf("httpclient: configure http2: %w", err)
		}
	}
	return t, nil
}

// Do sends req and reads the whole response body. It fails with a
// SESSION_CLOSED AppError once the session has been closed.
func (s *Session) Do(req *http.Request) (*Response, error) {
	if s.closed.Load() {
		return nil, apperrors.SessionClosed(s.key)
	}

	s.inflight.Add(1)
	s.total.Add(1)
	defer func() {
		// Connections of a request that outlived Close go back to the idle
		// pool; drop them once the last request finishes.
		if s.inflight.Add(-1) == 0 && s.closed.Load() {
			s.transport.CloseIdleConnections()
		}
	}()

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	return newResponse(resp, body), nil
}

// Close stops the session from accepting requests and closes its idle
// connections. In-flight requests finish normally. Close is idempotent.
func (s *Session) Close() error {
	if s.closed.CompareAndSwap(false, true) {
		s.transport.CloseIdleConnections()
	}
	return nil
}

// Key returns the pool key the session was built for.
func (s *Session) Key() string { return s.key }

// CreatedAt returns when the session was constructed.
func (s *Session) CreatedAt() time.Time { return s.createdAt }

// InFlight returns the number of requests currently in progress.
func (s *Session) InFlight() int64 { return s.inflight.Load() }

// Requests returns the number of requests sent through the session.
func (s *Session) Requests() int64 { return s.total.Load() }

// IsClosed reports whether Close has been called.
func (s *Session) IsClosed() bool { return s.closed.Load() }
