package config

import (
	"strings"
	"time"
)

// CacheConfig defines settings for the response cache middleware.
// When Enabled is false or no Redis client is configured, caching is
// disabled.  Methods lists the HTTP methods to cache.  TTL bounds the
// lifetime of an entry; entries are also dropped on the next successful
// write when InvalidateOnWrite is set.  KeyStrategy determines which parts
// of the request contribute to the cache key.
type CacheConfig struct {
	Enabled           bool
	Methods           map[string]bool
	TTL               time.Duration
	KeyStrategy       string
	Prefix            string
	MaxBodyBytes      int
	InvalidateOnWrite bool
}

// LoadCacheConfig reads CACHE_* variables.  Defaults are used when
// variables are not set.  All methods are upper-cased.
func LoadCacheConfig() CacheConfig {
	return CacheConfig{
		Enabled:           envBool("CACHE_ENABLED", true),
		Methods:           parseMethods(envStr("CACHE_METHODS", "GET")),
		TTL:               envDur("CACHE_TTL", 10*time.Second),
		KeyStrategy:       envStr("CACHE_KEY_STRATEGY", "route_query"),
		Prefix:            envStr("CACHE_PREFIX", "cache"),
		MaxBodyBytes:      envInt("CACHE_MAX_BODY_BYTES", 1048576),
		InvalidateOnWrite: envBool("CACHE_INVALIDATE_ON_WRITE", true),
	}
}

func parseMethods(s string) map[string]bool {
	m := map[string]bool{}
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(strings.ToUpper(p))
		if p != "" {
			m[p] = true
		}
	}
	return m
}
