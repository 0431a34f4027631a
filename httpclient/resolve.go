package httpclient

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"

	apperrors "github.com/kbukum/spacs/errors"
	"github.com/kbukum/spacs/validation"
)

// ResponseModel shapes a decoded response body into a typed value.
type ResponseModel interface {
	// Name identifies the model in error details.
	Name() string
	// Decode parses and validates a JSON body.
	Decode(data []byte) (any, error)
}

type typeModel[T any] struct{}

// ModelOf returns the ResponseModel for T. A JSON object decodes into T and
// a JSON array into []T (unless T is itself a slice). Decoded values are
// checked against their `validate` tags.
func ModelOf[T any]() ResponseModel { return typeModel[T]{} }

func (typeModel[T]) Name() string { return reflect.TypeFor[T]().String() }

func (m typeModel[T]) Decode(data []byte) (any, error) {
	if isJSONArray(data) && !isSequence(reflect.TypeFor[T]()) {
		var items []T
		if err := m.decodeInto(data, &items); err != nil {
			return nil, err
		}
		return items, nil
	}

	var v T
	if err := m.decodeInto(data, &v); err != nil {
		return nil, err
	}
	return v, nil
}

func (m typeModel[T]) decodeInto(data []byte, dst any) error {
	if err := json.Unmarshal(data, dst); err != nil {
		return apperrors.Validation(fmt.Sprintf("response does not match %s", m.Name())).
			WithCause(err).
			WithDetail("model", m.Name())
	}
	if err := validation.Validate(dst); err != nil {
		return apperrors.Validation(fmt.Sprintf("response does not match %s", m.Name())).
			WithCause(err).
			WithDetail("model", m.Name())
	}
	return nil
}

func isJSONArray(data []byte) bool {
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	return len(trimmed) > 0 && trimmed[0] == '['
}

func isSequence(t reflect.Type) bool {
	k := t.Kind()
	return k == reflect.Slice || k == reflect.Array
}

// Resolve converts a successful response into the value returned to callers.
//
// An empty body resolves to nil for every model. text/html and text/plain
// bodies resolve to their raw string. Otherwise the body is decoded through
// model when one is given, or parsed as JSON into map[string]any, []any or a
// scalar, falling back to the raw text when it is not JSON.
func Resolve(resp *Response, model ResponseModel) (any, error) {
	if resp == nil || len(bytes.TrimSpace(resp.Body)) == 0 {
		return nil, nil
	}

	switch resp.ContentType {
	case "text/html", "text/plain":
		return string(resp.Body), nil
	}

	if model != nil {
		return model.Decode(resp.Body)
	}

	var v any
	if err := json.Unmarshal(resp.Body, &v); err != nil {
		return string(resp.Body), nil
	}
	return v, nil
}
