// Package geocode resolves submitted coordinates to a postal code via a
// Nominatim-compatible reverse-geocoding endpoint. Lookups are best
// effort: callers treat every failure, timeout or empty result as "no
// postcode available" and carry on, so nothing here is fatal.
package geocode

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/redis/go-redis/v9"

	"github.com/davidfromkent/coffee-ratings/internal/config"
)

// ErrNoPostcode is returned when the service answered but did not
// contain a postcode for the coordinates.
var ErrNoPostcode = errors.New("no postcode for coordinates")

// Client performs reverse postcode lookups with a Redis-backed result
// cache. The Redis client may be nil, in which case every lookup goes
// to the upstream service.
type Client struct {
	http *resty.Client
	rdb  *redis.Client
	ttl  time.Duration
}

// New builds a Client from configuration. Returns nil when geocoding is
// disabled; callers must treat a nil client as "no postcode".
func New(cfg config.GeocoderConfig, rdb *redis.Client) *Client {
	if !cfg.Enabled {
		return nil
	}
	httpc := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetHeader("User-Agent", "coffee-ratings/1.0")
	return &Client{http: httpc, rdb: rdb, ttl: cfg.CacheTTL}
}

// reverseResponse mirrors the subset of the Nominatim /reverse JSON
// payload we care about.
type reverseResponse struct {
	Address struct {
		Postcode string `json:"postcode"`
	} `json:"address"`
}

// cacheKey rounds coordinates to ~10m so nearby submissions share a
// cached result.
func cacheKey(lat, lon float64) string {
	return fmt.Sprintf("geo:rev:%.4f:%.4f", lat, lon)
}

// ReversePostcode resolves (lat, lon) to a postcode. Successful lookups
// are cached; cache errors are ignored and fall through to the upstream
// service. Any transport or service failure surfaces as an error the
// caller downgrades to "no postcode".
func (c *Client) ReversePostcode(ctx context.Context, lat, lon float64) (string, error) {
	key := cacheKey(lat, lon)
	if c.rdb != nil {
		if pc, err := c.rdb.Get(ctx, key).Result(); err == nil && pc != "" {
			return pc, nil
		}
	}

	var body reverseResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"format": "jsonv2",
			"lat":    fmt.Sprintf("%f", lat),
			"lon":    fmt.Sprintf("%f", lon),
		}).
		SetResult(&body).
		Get("/reverse")
	if err != nil {
		return "", err
	}
	if resp.StatusCode() != 200 {
		return "", fmt.Errorf("reverse geocode: unexpected status %d", resp.StatusCode())
	}
	if body.Address.Postcode == "" {
		return "", ErrNoPostcode
	}

	if c.rdb != nil {
		if err := c.rdb.Set(ctx, key, body.Address.Postcode, c.ttl).Err(); err != nil {
			log.Printf("geocode: cache write failed: %v", err)
		}
	}
	return body.Address.Postcode, nil
}
