package config

import "time"

// GeocoderConfig holds settings for the reverse-geocoding client that
// turns submitted coordinates into a postcode. The lookup is best
// effort: when Enabled is false, or the upstream service misbehaves, a
// submission simply proceeds without a postcode. The endpoint must
// speak the Nominatim /reverse JSON format.
type GeocoderConfig struct {
	Enabled  bool
	BaseURL  string
	Timeout  time.Duration // per-lookup cap; a submission never blocks on geocoding beyond this
	CacheTTL time.Duration // lifetime of cached coordinate->postcode results in Redis
}

// LoadGeocoderConfig reads environment variables to build a
// GeocoderConfig. Defaults point at the public Nominatim instance with
// a short timeout.
func LoadGeocoderConfig() GeocoderConfig {
	return GeocoderConfig{
		Enabled:  envBool("GEOCODER_ENABLED", true),
		BaseURL:  getenv("GEOCODER_BASE_URL", "https://nominatim.openstreetmap.org"),
		Timeout:  envDur("GEOCODER_TIMEOUT", 3*time.Second),
		CacheTTL: envDur("GEOCODER_CACHE_TTL", 24*time.Hour),
	}
}
