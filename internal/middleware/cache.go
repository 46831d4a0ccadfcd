package middleware

// cache.go implements a Redis-backed response cache for the public
// browse endpoints (venue and review listings). Cached entries store
// the status, content type and body as a small JSON envelope. Only
// configured methods with 2xx responses under the size cap are cached;
// everything else passes through untouched. With a nil Redis client the
// middleware is a no-op.

import (
	"bytes"
	"crypto/sha1"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/davidfromkent/coffee-ratings/internal/config"
)

// cachedResponse is the envelope stored in Redis per cache key.
type cachedResponse struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type"`
	Body        []byte `json:"body"`
}

// bodyCapture buffers the response body while forwarding it to the
// client, up to a size limit beyond which the capture is abandoned.
type bodyCapture struct {
	http.ResponseWriter
	status   int
	buf      bytes.Buffer
	size     int64
	limit    int64
	overflow bool
}

func (w *bodyCapture) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *bodyCapture) Write(b []byte) (int, error) {
	w.size += int64(len(b))
	if w.limit > 0 && w.size > w.limit {
		w.overflow = true
	} else {
		w.buf.Write(b)
	}
	return w.ResponseWriter.Write(b)
}

// cacheKey builds a stable key honoring the configured strategy. Keys
// are hashed so long query strings stay within Redis key size norms.
func cacheKey(cfg config.CacheConfig, c echo.Context) string {
	r := c.Request()
	var tail string
	switch strings.ToLower(cfg.KeyStrategy) {
	case "route":
		tail = c.Path()
	case "method_route":
		tail = r.Method + ":" + c.Path()
	case "method_route_query":
		tail = r.Method + ":" + c.Path() + "?" + r.URL.RawQuery
	default: // "route_query"
		tail = c.Path() + "?" + r.URL.RawQuery
	}
	sum := sha1.Sum([]byte(tail))
	return fmt.Sprintf("%s:%x", cfg.Prefix, sum[:])
}

// ResponseCache returns an Echo middleware that serves GET browse
// responses from Redis when possible and stores fresh ones for cfg.TTL.
func ResponseCache(cfg config.CacheConfig, rdb *redis.Client) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !cfg.Methods[c.Request().Method] {
				return next(c)
			}
			ctx := c.Request().Context()
			key := cacheKey(cfg, c)

			if raw, err := rdb.Get(ctx, key).Bytes(); err == nil {
				var cached cachedResponse
				if json.Unmarshal(raw, &cached) == nil {
					c.Response().Header().Set("X-Cache", "HIT")
					return c.Blob(cached.Status, cached.ContentType, cached.Body)
				}
			}

			rec := &bodyCapture{
				ResponseWriter: c.Response().Writer,
				status:         http.StatusOK,
				limit:          int64(cfg.MaxBodyBytes),
			}
			c.Response().Writer = rec
			c.Response().Header().Set("X-Cache", "MISS")

			if err := next(c); err != nil {
				return err
			}

			if rec.overflow || rec.status < 200 || rec.status >= 300 {
				return nil
			}
			entry := cachedResponse{
				Status:      rec.status,
				ContentType: c.Response().Header().Get(echo.HeaderContentType),
				Body:        rec.buf.Bytes(),
			}
			if raw, err := json.Marshal(entry); err == nil {
				// Cache write failures are invisible to the client.
				_ = rdb.Set(ctx, key, raw, cfg.TTL).Err()
			}
			return nil
		}
	}
}
