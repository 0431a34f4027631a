package httpclient

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"net/url"
	"reflect"
	"strconv"
	"time"

	apperrors "github.com/kbukum/spacs/errors"
	"github.com/kbukum/spacs/validation"
)

// Payload is request data to be made JSON-safe before sending. Build one
// with Map, Model or Value. A nil Payload is omitted.
type Payload interface {
	normalize() (any, error)
}

type mapPayload map[string]any

type modelPayload struct{ v any }

type valuePayload struct{ v any }

// Map wraps a mapping. Nested time.Time values become RFC 3339 strings,
// time.Duration values become seconds, and nested structs or Payloads are
// exported. The input map is never modified.
func Map(m map[string]any) Payload { return mapPayload(m) }

// Model wraps a structured object: a struct, a pointer to one, or a slice
// of them. It is validated against its `validate` tags and exported through
// its JSON field names.
func Model(v any) Payload { return modelPayload{v: v} }

// Value wraps a scalar or sequence that is already JSON-encodable.
func Value(v any) Payload { return valuePayload{v: v} }

// Normalize converts p into JSON primitives: map[string]any, []any, string,
// json.Number, bool or nil. Numbers keep their exact decimal form. Every failure is a SERIALIZATION_FAILED AppError.
func Normalize(p Payload) (any, error) {
	if p == nil {
		return nil, nil
	}
	return p.normalize()
}

func (m mapPayload) normalize() (any, error) {
	if m == nil {
		return nil, nil
	}
	out, _, err := normalizeMap(map[string]any(m))
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (p modelPayload) normalize() (any, error) {
	return exportModel(p.v)
}

func (p valuePayload) normalize() (any, error) {
	if _, err := json.Marshal(p.v); err != nil {
		return nil, apperrors.Serialization("value is not JSON-encodable", err)
	}
	return p.v, nil
}

// normalizeMap returns m itself when no value needed converting.
func normalizeMap(m map[string]any) (map[string]any, bool, error) {
	var out map[string]any
	for k, v := range m {
		nv, changed, err := normalizeValue(v)
		if err != nil {
			return nil, false, wrapField(k, err)
		}
		if !changed {
			continue
		}
		if out == nil {
			out = make(map[string]any, len(m))
			for kk, vv := range m {
				out[kk] = vv
			}
		}
		out[k] = nv
	}
	if out == nil {
		return m, false, nil
	}
	return out, true, nil
}

func normalizeSlice(s []any) ([]any, bool, error) {
	var out []any
	for i, v := range s {
		nv, changed, err := normalizeValue(v)
		if err != nil {
			return nil, false, wrapField(strconv.Itoa(i), err)
		}
		if !changed {
			continue
		}
		if out == nil {
			out = make([]any, len(s))
			copy(out, s)
		}
		out[i] = nv
	}
	if out == nil {
		return s, false, nil
	}
	return out, true, nil
}

func normalizeValue(v any) (any, bool, error) {
	switch t := v.(type) {
	case nil, string, bool, json.Number,
		int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return v, false, nil
	case float32:
		return v, false, checkFloat(float64(t))
	case float64:
		return v, false, checkFloat(t)
	case time.Time:
		return t.Format(time.RFC3339Nano), true, nil
	case time.Duration:
		return t.Seconds(), true, nil
	case Payload:
		nv, err := t.normalize()
		return nv, true, err
	case map[string]any:
		return normalizeMap(t)
	case []any:
		return normalizeSlice(t)
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Chan, reflect.Func, reflect.Complex64, reflect.Complex128, reflect.UnsafePointer:
		return nil, false, apperrors.Serialization(fmt.Sprintf("unsupported value of type %T", v), nil)
	case reflect.Struct:
		nv, err := exportModel(v)
		return nv, true, err
	case reflect.Pointer:
		if rv.IsNil() {
			return nil, true, nil
		}
		return normalizeValue(rv.Elem().Interface())
	}

	if _, err := json.Marshal(v); err != nil {
		return nil, false, apperrors.Serialization(fmt.Sprintf("value of type %T is not JSON-encodable", v), err)
	}
	return v, false, nil
}

func checkFloat(f float64) error {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return apperrors.Serialization("NaN and infinite numbers are not JSON-encodable", nil)
	}
	return nil
}

func wrapField(field string, err error) error {
	if appErr, ok := apperrors.AsAppError(err); ok {
		if _, set := appErr.Details["field"]; !set {
			return appErr.WithDetail("field", field)
		}
		appErr.Details["field"] = field + "." + fmt.Sprint(appErr.Details["field"])
	}
	return err
}

// exportModel validates v and converts it to JSON primitives through its
// JSON encoding.
func exportModel(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	if err := validation.Validate(v); err != nil {
		return nil, apperrors.Serialization(fmt.Sprintf("invalid %T", v), err)
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, apperrors.Serialization(fmt.Sprintf("cannot encode %T", v), err)
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var out any
	if err := dec.Decode(&out); err != nil {
		return nil, apperrors.Serialization(fmt.Sprintf("cannot export %T", v), err)
	}
	return out, nil
}

// encodeQuery encodes normalized params as a query string. Sequence values
// become repeated keys. Nil values are skipped.
func encodeQuery(params any) (string, error) {
	if params == nil {
		return "", nil
	}
	values := url.Values{}
	switch m := params.(type) {
	case map[string]any:
		for k, v := range m {
			if err := addQueryValue(values, k, v); err != nil {
				return "", err
			}
		}
	case map[string]string:
		for k, v := range m {
			values.Add(k, v)
		}
	default:
		return "", apperrors.Serialization(fmt.Sprintf("query params must be a mapping, got %T", params), nil)
	}
	return values.Encode(), nil
}

func addQueryValue(values url.Values, key string, v any) error {
	if v == nil {
		return nil
	}
	if s, ok := queryScalar(v); ok {
		values.Add(key, s)
		return nil
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		for i := 0; i < rv.Len(); i++ {
			item := rv.Index(i).Interface()
			if item == nil {
				continue
			}
			s, ok := queryScalar(item)
			if !ok {
				return apperrors.Serialization(fmt.Sprintf("query param %q: nested value of type %T", key, item), nil)
			}
			values.Add(key, s)
		}
		return nil
	default:
		return apperrors.Serialization(fmt.Sprintf("query param %q: unsupported value of type %T", key, v), nil)
	}
}

func queryScalar(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case bool:
		return strconv.FormatBool(t), true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32), true
	case json.Number:
		return t.String(), true
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprint(t), true
	}
	return "", false
}

// encodeBody encodes a normalized body for the given content type.
func encodeBody(body any, ct ContentType) ([]byte, error) {
	if body == nil {
		return nil, nil
	}
	switch ct {
	case ContentTypeForm:
		q, err := encodeQuery(body)
		if err != nil {
			return nil, err
		}
		return []byte(q), nil
	case ContentTypeHTML:
		s, ok := body.(string)
		if !ok {
			return nil, apperrors.Serialization(fmt.Sprintf("%s body must be a string, got %T", ct, body), nil)
		}
		return []byte(s), nil
	default:
		data, err := json.Marshal(body)
		if err != nil {
			return nil, apperrors.Serialization("cannot encode request body", err)
		}
		return data, nil
	}
}
