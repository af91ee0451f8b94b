package config

import (
    "strings"
    "time"
)

// CacheConfig defines settings for the response cache middleware.
// When Enabled is false or no Redis client is configured, caching will be disabled.
// Methods lists the HTTP methods to cache (e.g. GET, HEAD).  TTL defines the
// lifetime of cache entries.  KeyStrategy determines which parts of the request
// contribute to the cache key.  Prefix and MaxBodyBytes allow control over
// namespacing and the maximum size of responses to cache.
type CacheConfig struct {
    Enabled      bool          `env:"ENABLED" envDefault:"true"`
    Methods      []string      `env:"METHODS" envDefault:"GET" envSeparator:","`
    TTL          time.Duration `env:"TTL" envDefault:"30s"`
    KeyStrategy  string        `env:"KEY_STRATEGY" envDefault:"route_query"`
    Prefix       string        `env:"PREFIX" envDefault:"cache"`
    MaxBodyBytes int           `env:"MAX_BODY_BYTES" envDefault:"1048576"`
}

// MethodSet returns the configured methods upper-cased as a lookup set.
func (c CacheConfig) MethodSet() map[string]bool {
    m := map[string]bool{}
    for _, p := range c.Methods {
        p = strings.TrimSpace(strings.ToUpper(p))
        if p != "" {
            m[p] = true
        }
    }
    return m
}
