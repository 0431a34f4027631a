package httpclient

import (
	"context"
	"fmt"
	"net/http"

	apperrors "github.com/kbukum/spacs/errors"
)

// Get issues a GET request and decodes the response into T.
func Get[T any](ctx context.Context, c *Client, req Request) (T, error) {
	return doTyped[T](ctx, c, http.MethodGet, req)
}

// Post issues a POST request and decodes the response into T.
func Post[T any](ctx context.Context, c *Client, req Request) (T, error) {
	return doTyped[T](ctx, c, http.MethodPost, req)
}

// Put issues a PUT request and decodes the response into T.
func Put[T any](ctx context.Context, c *Client, req Request) (T, error) {
	return doTyped[T](ctx, c, http.MethodPut, req)
}

// Delete issues a DELETE request and decodes the response into T.
func Delete[T any](ctx context.Context, c *Client, req Request) (T, error) {
	return doTyped[T](ctx, c, http.MethodDelete, req)
}

// doTyped returns the zero T for empty bodies and for failures handed to
// the error handler.
func doTyped[T any](ctx context.Context, c *Client, method string, req Request) (T, error) {
	var zero T
	model := ModelOf[T]()
	req.ResponseModel = model

	v, err := c.Do(ctx, method, req)
	if err != nil || v == nil {
		return zero, err
	}
	out, ok := v.(T)
	if !ok {
		return zero, apperrors.Validation(fmt.Sprintf("response of type %T cannot be returned as %s", v, model.Name())).
			WithDetail("model", model.Name())
	}
	return out, nil
}
