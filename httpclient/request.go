package httpclient

import (
	"mime"
	"net/http"
	"strings"
	"time"
)

// ContentType selects how a request body is encoded.
type ContentType string

const (
	// ContentTypeJSON encodes the body as JSON. This is the default.
	ContentTypeJSON ContentType = "application/json"
	// ContentTypeForm url-encodes a mapping body like query params.
	ContentTypeForm ContentType = "application/x-www-form-urlencoded"
	// ContentTypeHTML sends a string body verbatim.
	ContentTypeHTML ContentType = "text/html"
)

// Request describes one call. It is passed by value and never modified by
// the client.
type Request struct {
	// Path is appended to the client's base URL and path prefix. It must be
	// relative.
	Path string
	// Params are encoded into the query string. Nil means no query.
	Params Payload
	// Body is encoded according to ContentType. Nil means no body.
	Body Payload
	// ResponseModel, when set, shapes the decoded response.
	ResponseModel ResponseModel
	// Headers are merged over the client's default headers.
	Headers map[string]string
	// Timeout overrides Config.Timeout for this call when positive.
	Timeout time.Duration
	// ContentType defaults to ContentTypeJSON.
	ContentType ContentType
}

// Response is a fully read HTTP response.
type Response struct {
	StatusCode int
	Reason     string
	Headers    map[string]string
	// ContentType is the media type without parameters, lowercased.
	ContentType string
	Body        []byte
}

// IsSuccess returns true for 2xx status codes.
func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// IsError returns true for non-2xx status codes.
func (r *Response) IsError() bool {
	return !r.IsSuccess()
}

func newResponse(resp *http.Response, body []byte) *Response {
	return &Response{
		StatusCode:  resp.StatusCode,
		Reason:      reasonPhrase(resp.Status, resp.StatusCode),
		Headers:     flattenHeaders(resp.Header),
		ContentType: mediaType(resp.Header.Get("Content-Type")),
		Body:        body,
	}
}

// flattenHeaders keeps the first value of each header.
func flattenHeaders(h http.Header) map[string]string {
	headers := make(map[string]string, len(h))
	for k, v := range h {
		if len(v) > 0 {
			headers[k] = v[0]
		}
	}
	return headers
}

func mediaType(contentType string) string {
	if contentType == "" {
		return ""
	}
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mt, _, _ = strings.Cut(contentType, ";")
	}
	return strings.ToLower(strings.TrimSpace(mt))
}
