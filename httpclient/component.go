package httpclient

import (
	"context"

	"github.com/kbukum/spacs/component"
)

// Component wraps a Client with lifecycle management for host applications
// that start and stop their dependencies together.
type Component struct {
	client *Client
	config Config
	opts   []Option
}

// compile-time assertions
var _ component.Component = (*Component)(nil)
var _ component.Describable = (*Component)(nil)

// NewComponent creates a client component.
// The client is created lazily in Start().
func NewComponent(cfg Config, opts ...Option) *Component {
	return &Component{config: cfg, opts: opts}
}

// Name returns the component name.
func (c *Component) Name() string {
	name := c.config.Name
	if name == "" {
		name = "http"
	}
	return name
}

// Start creates the client and warms its session.
func (c *Component) Start(ctx context.Context) error {
	cl, err := New(c.config, c.opts...)
	if err != nil {
		return err
	}
	if err := cl.Warm(ctx); err != nil {
		return err
	}
	c.client = cl
	return nil
}

// Stop releases the client's session.
func (c *Component) Stop(ctx context.Context) error {
	if c.client != nil {
		return c.client.Close(ctx)
	}
	return nil
}

// Health reports healthy while the client's session is open.
func (c *Component) Health(_ context.Context) component.Health {
	h := component.Health{Name: c.Name(), Status: component.StatusHealthy}
	switch {
	case c.client == nil:
		h.Status = component.StatusUnhealthy
		h.Message = "not started"
	case !c.client.IsOpen():
		h.Status = component.StatusUnhealthy
		h.Message = "no open session"
	}
	return h
}

// Describe returns component description for the host's startup summary.
func (c *Component) Describe() component.Description {
	return component.Description{
		Name:    c.Name(),
		Type:    "http-client",
		Details: c.config.BaseURL,
	}
}

// Client returns the underlying client. Must be called after Start().
func (c *Component) Client() *Client {
	return c.client
}
