package httpclient

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"

	"golang.org/x/sync/singleflight"

	apperrors "github.com/kbukum/spacs/errors"
	"github.com/kbukum/spacs/logger"
	"github.com/kbukum/spacs/observability"
)

// SessionRegistry maps pool keys to live sessions. Concurrent acquisitions
// of a missing key construct exactly one session.
//
// While ReleaseAll is closing sessions, Acquire fails with a
// SESSION_DRAINING AppError, and a session whose construction completes
// during the drain is closed and rejected. Once the drain finishes the
// registry accepts acquisitions again.
type SessionRegistry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	group    singleflight.Group
	drains   int

	log     *logger.Logger
	metrics *observability.Metrics

	// drainHook runs after ReleaseAll has detached the sessions and before
	// it closes them.
	drainHook func()
}

// RegistryOption configures a SessionRegistry.
type RegistryOption func(*SessionRegistry)

// WithRegistryLogger sets the registry logger.
func WithRegistryLogger(l *logger.Logger) RegistryOption {
	return func(r *SessionRegistry) { r.log = l }
}

// WithRegistryMetrics sets the instruments used to count session constructions.
func WithRegistryMetrics(m *observability.Metrics) RegistryOption {
	return func(r *SessionRegistry) { r.metrics = m }
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...RegistryOption) *SessionRegistry {
	r := &SessionRegistry{
		sessions: make(map[string]*Session),
		log:      logger.Get("httpclient.registry"),
		metrics:  defaultMetrics(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

var defaultRegistry = sync.OnceValue(func() *SessionRegistry { return NewRegistry() })

// DefaultRegistry returns the process-wide registry used by Clients that
// were not given one.
func DefaultRegistry() *SessionRegistry {
	return defaultRegistry()
}

// Acquire returns the session for key, constructing it with factory if none
// is registered or the registered one was closed. Cancelling ctx abandons the wait but not the construction,
// which still registers its session for later callers. Factory errors are
// returned to every waiter and not cached.
func (r *SessionRegistry) Acquire(ctx context.Context, key string, factory func(context.Context) (*Session, error)) (*Session, error) {
	r.mu.RLock()
	s, ok := r.sessions[key]
	draining := r.drains > 0
	r.mu.RUnlock()
	if draining {
		return nil, apperrors.SessionDraining(key)
	}
	if ok && !s.IsClosed() {
		return s, nil
	}

	ch := r.group.DoChan(key, func() (any, error) {
		return r.create(context.WithoutCancel(ctx), key, factory)
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Session), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (r *SessionRegistry) create(ctx context.Context, key string, factory func(context.Context) (*Session, error)) (*Session, error) {
	r.mu.RLock()
	existing, ok := r.sessions[key]
	r.mu.RUnlock()
	if ok && !existing.IsClosed() {
		return existing, nil
	}

	s, err := factory(ctx)
	if err != nil {
		r.log.Warn("session construction failed", logger.MergeWithError(logger.Fields(logger.FieldPoolKey, key), err))
		return nil, err
	}
	if s == nil {
		return nil, apperrors.InvalidConfig("session factory returned no session").WithDetail("pool_key", key)
	}

	r.mu.Lock()
	if r.drains > 0 {
		r.mu.Unlock()
		_ = s.Close()
		return nil, apperrors.SessionDraining(key)
	}
	if existing, ok := r.sessions[key]; ok && !existing.IsClosed() {
		r.mu.Unlock()
		_ = s.Close()
		return existing, nil
	}
	r.sessions[key] = s
	r.mu.Unlock()

	r.metrics.RecordSessionCreated(ctx)
	r.log.Debug("session created", logger.Fields(logger.FieldPoolKey, key))
	return s, nil
}

// Get returns the registered session for key.
func (r *SessionRegistry) Get(key string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[key]
	return s, ok
}

// Release closes and removes the session for key. Releasing a key with no
// session is a no-op. A construction already in flight for key is not
// affected and registers its session when it completes.
func (r *SessionRegistry) Release(key string) error {
	r.mu.Lock()
	s, ok := r.sessions[key]
	delete(r.sessions, key)
	r.mu.Unlock()
	if !ok {
		return nil
	}

	if err := s.Close(); err != nil {
		return fmt.Errorf("httpclient: release %s: %w", key, err)
	}
	r.log.Debug("session released", logger.Fields(logger.FieldPoolKey, key))
	return nil
}

// ReleaseAll closes every registered session and empties the registry. It is
// safe to call with no sessions and to call repeatedly.
func (r *SessionRegistry) ReleaseAll() error {
	r.mu.Lock()
	r.drains++
	snapshot := r.sessions
	r.sessions = make(map[string]*Session)
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		r.drains--
		r.mu.Unlock()
	}()

	if r.drainHook != nil {
		r.drainHook()
	}

	var errs []error
	for key, s := range snapshot {
		if err := s.Close(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
		}
	}
	if len(snapshot) > 0 {
		r.log.Debug("released all sessions", logger.Fields("count", len(snapshot)))
	}
	return errors.Join(errs...)
}

// Len returns the number of registered sessions.
func (r *SessionRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Keys returns the registered pool keys in sorted order.
func (r *SessionRegistry) Keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.sessions))
}
