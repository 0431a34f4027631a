package httpclient

import (
	"bytes"
	"context"
	"io"
	"maps"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	apperrors "github.com/kbukum/spacs/errors"
	"github.com/kbukum/spacs/logger"
	"github.com/kbukum/spacs/observability"
)

var defaultMetrics = sync.OnceValue(observability.DefaultMetrics)

// Client issues requests against one base URL through the pooled session
// for its pool key. It is safe for concurrent use.
type Client struct {
	config   Config
	key      string
	registry *SessionRegistry
	factory  SessionFactory
	log      *logger.Logger
	metrics  *observability.Metrics
}

// Option configures a Client.
type Option func(*Client)

// WithRegistry binds the client to r instead of DefaultRegistry.
func WithRegistry(r *SessionRegistry) Option {
	return func(c *Client) { c.registry = r }
}

// WithLogger sets the client logger.
func WithLogger(l *logger.Logger) Option {
	return func(c *Client) { c.log = l }
}

// WithSessionFactory replaces NewSession as the session constructor.
func WithSessionFactory(f SessionFactory) Option {
	return func(c *Client) { c.factory = f }
}

// WithMetrics sets the request instruments. Nil disables metrics.
func WithMetrics(m *observability.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// New creates a Client. No connection is opened until the first request
// or Warm.
func New(cfg Config, opts ...Option) (*Client, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.Headers = maps.Clone(cfg.Headers)

	c := &Client{
		config:   cfg,
		key:      cfg.PoolKey(),
		registry: DefaultRegistry(),
		factory:  NewSession,
		log:      logger.Get("httpclient"),
		metrics:  defaultMetrics(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Get issues a GET request.
func (c *Client) Get(ctx context.Context, req Request) (any, error) {
	return c.Do(ctx, http.MethodGet, req)
}

// Post issues a POST request.
func (c *Client) Post(ctx context.Context, req Request) (any, error) {
	return c.Do(ctx, http.MethodPost, req)
}

// Put issues a PUT request.
func (c *Client) Put(ctx context.Context, req Request) (any, error) {
	return c.Do(ctx, http.MethodPut, req)
}

// Delete issues a DELETE request.
func (c *Client) Delete(ctx context.Context, req Request) (any, error) {
	return c.Do(ctx, http.MethodDelete, req)
}

// Do normalizes req, sends it with method and resolves the response.
//
// Payload problems fail with a SERIALIZATION_FAILED AppError before any
// network I/O. Transport failures are returned unchanged. A non-2xx
// response becomes a *RequestError, which is passed to Config.ErrorHandler
// when one is set (Do then returns nil, nil) and returned otherwise.
func (c *Client) Do(ctx context.Context, method string, req Request) (any, error) {
	params, err := Normalize(req.Params)
	if err != nil {
		return nil, err
	}
	body, err := Normalize(req.Body)
	if err != nil {
		return nil, err
	}
	target, err := c.resolveURL(req.Path, params)
	if err != nil {
		return nil, err
	}
	contentType := req.ContentType
	if contentType == "" {
		contentType = ContentTypeJSON
	}
	payload, err := encodeBody(body, contentType)
	if err != nil {
		return nil, err
	}

	timeout := c.config.Timeout
	if req.Timeout > 0 {
		timeout = req.Timeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	requestID := headerValue(req.Headers, c.config.RequestIDHeader)
	if requestID == "" {
		requestID = uuid.NewString()
	}
	ctx = logger.ContextWithRequestID(ctx, requestID)

	ctx, span := observability.StartSpan(ctx, observability.SpanHTTPRequest,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String(observability.AttrHTTPMethod, method),
			attribute.String(observability.AttrHTTPURL, target),
			attribute.String(observability.AttrClientName, c.config.Name),
			attribute.String(observability.AttrPoolKey, c.key),
			attribute.String(observability.AttrRequestID, requestID),
		),
	)
	defer span.End()

	log := c.log.WithContext(ctx)
	fields := logger.Fields(
		logger.FieldMethod, method,
		logger.FieldBaseURL, c.config.BaseURL,
		logger.FieldPath, req.Path,
	)

	c.metrics.RecordRequestStart(ctx)
	start := time.Now()
	resp, err := c.send(ctx, method, target, payload, contentType, req.Headers, requestID)
	duration := time.Since(start)

	if err != nil {
		c.metrics.RecordRequestEnd(ctx, c.config.Name, method, "transport_error", duration)
		observability.SetSpanError(ctx, err)
		log.Error("request failed", logger.MergeWithDuration(logger.MergeWithError(fields, err), duration))
		return nil, err
	}

	fields[logger.FieldStatus] = resp.StatusCode
	log.Debug("request completed", logger.MergeWithDuration(fields, duration))
	observability.SetSpanAttribute(ctx, observability.AttrHTTPStatus, resp.StatusCode)

	if reqErr := newRequestError(method, target, resp); reqErr != nil {
		c.metrics.RecordRequestEnd(ctx, c.config.Name, method, "http_error", duration)
		observability.SetSpanAttribute(ctx, observability.AttrErrorReason, reqErr.Reason)
		observability.SetSpanError(ctx, reqErr)
		if h := c.config.ErrorHandler; h != nil {
			h(ctx, reqErr)
			return nil, nil
		}
		return nil, reqErr
	}
	c.metrics.RecordRequestEnd(ctx, c.config.Name, method, "ok", duration)

	result, err := Resolve(resp, req.ResponseModel)
	if err != nil {
		observability.SetSpanError(ctx, err)
		return nil, err
	}
	return result, nil
}

// send acquires the session and performs the request. A session closed
// between acquisition and use is re-acquired once.
func (c *Client) send(ctx context.Context, method, target string, payload []byte, contentType ContentType, headers map[string]string, requestID string) (*Response, error) {
	for attempt := 0; ; attempt++ {
		session, err := c.session(ctx)
		if err != nil {
			return nil, err
		}
		httpReq, err := c.newHTTPRequest(ctx, method, target, payload, contentType, headers, requestID)
		if err != nil {
			return nil, err
		}
		resp, err := session.Do(httpReq)
		if attempt == 0 && apperrors.IsCode(err, apperrors.ErrCodeSessionClosed) {
			continue
		}
		return resp, err
	}
}

func (c *Client) session(ctx context.Context) (*Session, error) {
	ctx, span := observability.StartSpan(ctx, observability.SpanSessionAcquire,
		trace.WithAttributes(attribute.String(observability.AttrPoolKey, c.key)),
	)
	defer span.End()

	s, err := c.registry.Acquire(ctx, c.key, func(ctx context.Context) (*Session, error) {
		return c.factory(ctx, c.key, c.config)
	})
	if err != nil {
		observability.SetSpanError(ctx, err)
		return nil, err
	}
	return s, nil
}

func (c *Client) newHTTPRequest(ctx context.Context, method, target string, payload []byte, contentType ContentType, headers map[string]string, requestID string) (*http.Request, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	r, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, apperrors.InvalidInput("path", err.Error())
	}

	r.Header.Set("Accept", "application/json")
	for k, v := range c.config.Headers {
		r.Header.Set(k, v)
	}
	if payload != nil {
		r.Header.Set("Content-Type", string(contentType))
	}
	for k, v := range headers {
		r.Header.Set(k, v)
	}
	r.Header.Set(c.config.RequestIDHeader, requestID)
	return r, nil
}

// resolveURL joins base URL, path prefix and path, then appends the query.
// Paths carrying their own scheme or host are rejected.
func (c *Client) resolveURL(path string, params any) (string, error) {
	u, err := url.Parse(path)
	if err != nil {
		return "", apperrors.InvalidInput("path", err.Error())
	}
	if u.IsAbs() || u.Host != "" {
		return "", apperrors.InvalidInput("path", "must be relative to the client base URL")
	}

	target := strings.TrimRight(c.config.BaseURL, "/")
	if prefix := strings.Trim(c.config.PathPrefix, "/"); prefix != "" {
		target += "/" + prefix
	}
	if path != "" && !strings.HasPrefix(path, "/") && !strings.HasPrefix(path, "?") {
		target += "/"
	}
	target += path

	query, err := encodeQuery(params)
	if err != nil {
		return "", err
	}
	if query != "" {
		sep := "?"
		if strings.Contains(path, "?") {
			sep = "&"
		}
		target += sep + query
	}
	return target, nil
}

func headerValue(headers map[string]string, name string) string {
	for k, v := range headers {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return ""
}

// Warm acquires the client's session so the first request does not pay
// for its construction.
func (c *Client) Warm(ctx context.Context) error {
	_, err := c.session(ctx)
	return err
}

// IsOpen reports whether a live session is registered for the client's
// pool key.
func (c *Client) IsOpen() bool {
	s, ok := c.registry.Get(c.key)
	return ok && !s.IsClosed()
}

// Close releases the session for the client's pool key. Other clients
// sharing the key lose it too and build a new one on their next request.
func (c *Client) Close(ctx context.Context) error {
	if _, ok := c.registry.Get(c.key); !ok {
		c.log.WithContext(ctx).Warn("no open session to close", logger.Fields(logger.FieldPoolKey, c.key))
		return nil
	}
	return c.registry.Release(c.key)
}

// CloseAll releases every session in the client's registry.
func (c *Client) CloseAll(_ context.Context) error {
	return c.registry.ReleaseAll()
}

// CloseAll releases every session in DefaultRegistry.
func CloseAll(_ context.Context) error {
	return DefaultRegistry().ReleaseAll()
}

// PoolKey returns the key of the client's session.
func (c *Client) PoolKey() string { return c.key }

// Config returns a copy of the client configuration with defaults applied.
func (c *Client) Config() Config {
	cfg := c.config
	cfg.Headers = maps.Clone(c.config.Headers)
	return cfg
}

// Registry returns the registry the client acquires sessions from.
func (c *Client) Registry() *SessionRegistry { return c.registry }
