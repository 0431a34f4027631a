package httpclient

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/spacs/logger"
)

type user struct {
	Name string `json:"name" validate:"required"`
	Age  int    `json:"age" validate:"gte=0,lte=150"`
}

// echoServer is an httpbin-like server. hits counts every request received.
type echoServer struct {
	*httptest.Server
	hits atomic.Int64
}

func newEchoServer(t *testing.T) *echoServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	es := &echoServer{}
	r := gin.New()
	r.Use(func(c *gin.Context) {
		es.hits.Add(1)
		c.Next()
	})

	r.GET("/get", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"args":    flatValues(c.Request.URL.Query()),
			"headers": flatValues(c.Request.Header),
			"url":     c.Request.URL.String(),
		})
	})
	r.Any("/echo", func(c *gin.Context) {
		raw, _ := io.ReadAll(c.Request.Body)
		var body any
		if len(raw) > 0 {
			_ = json.Unmarshal(raw, &body)
		}
		c.JSON(http.StatusOK, gin.H{
			"method":       c.Request.Method,
			"path":         c.Request.URL.Path,
			"args":         flatValues(c.Request.URL.Query()),
			"headers":      flatValues(c.Request.Header),
			"content_type": c.ContentType(),
			"data":         string(raw),
			"json":         body,
		})
	})
	r.POST("/users", func(c *gin.Context) {
		raw, _ := io.ReadAll(c.Request.Body)
		c.Data(http.StatusCreated, "application/json", raw)
	})
	r.GET("/users", func(c *gin.Context) {
		c.JSON(http.StatusOK, []user{{Name: "James", Age: 25}, {Name: "Ann", Age: 31}})
	})
	r.Any("/status/:code", func(c *gin.Context) {
		code, err := strconv.Atoi(c.Param("code"))
		if err != nil {
			c.Status(http.StatusBadRequest)
			return
		}
		c.Status(code)
	})
	r.GET("/html", func(c *gin.Context) {
		c.Data(http.StatusOK, "text/html; charset=utf-8", []byte("<p>hi</p>"))
	})
	r.GET("/slow", func(c *gin.Context) {
		select {
		case <-time.After(500 * time.Millisecond):
		case <-c.Request.Context().Done():
		}
		c.Status(http.StatusOK)
	})

	es.Server = httptest.NewServer(r)
	t.Cleanup(es.Close)
	return es
}

// flatValues keeps single values as strings and repeated values as lists.
func flatValues(values map[string][]string) map[string]any {
	out := make(map[string]any, len(values))
	for k, v := range values {
		if len(v) == 1 {
			out[k] = v[0]
			continue
		}
		out[k] = v
	}
	return out
}

// newTestClient builds a client bound to its own registry.
func newTestClient(t *testing.T, cfg Config, opts ...Option) *Client {
	t.Helper()
	reg := NewRegistry(WithRegistryLogger(logger.Nop()))
	base := []Option{WithRegistry(reg), WithLogger(logger.Nop())}
	c, err := New(cfg, append(base, opts...)...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { _ = reg.ReleaseAll() })
	return c
}

func asMap(t *testing.T, v any) map[string]any {
	t.Helper()
	m, ok := v.(map[string]any)
	if !ok {
		t.Fatalf("expected map[string]any, got %T (%v)", v, v)
	}
	return m
}
