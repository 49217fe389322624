package config

import "time"

// IdempotencyConfig controls replay of write requests carrying an
// Idempotency-Key header.  LockTTL bounds how long an in-flight request
// holds its key; TTL is how long the stored response is replayed.
type IdempotencyConfig struct {
	Enabled bool
	Header  string
	Prefix  string
	LockTTL time.Duration
	TTL     time.Duration
}

func LoadIdempotencyConfig() IdempotencyConfig {
	cfg := IdempotencyConfig{
		Enabled: envBool("IDEMPOTENCY_ENABLED", true),
		Header:  envStr("IDEMPOTENCY_HEADER", "Idempotency-Key"),
		Prefix:  envStr("IDEMPOTENCY_PREFIX", "idem"),
		LockTTL: envDur("IDEMPOTENCY_LOCK_TTL", 10*time.Second),
		TTL:     envDur("IDEMPOTENCY_TTL", 24*time.Hour),
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 10 * time.Second
	}
	if cfg.TTL < cfg.LockTTL {
		cfg.TTL = cfg.LockTTL
	}
	return cfg
}
