package config

import "time"

// BreakerConfig tunes the circuit breakers placed in front of the room
// catalog and the customer directory.
//
// A closed circuit opens after ConsecutiveFailures failed calls in a row,
// or once at least MinRequests calls were seen in the current Interval and
// the failure ratio reached FailureRatio.  An open circuit lets a trial
// call through after Cooldown; HalfOpenRequests bounds the number of trial
// calls.  Every call is cut off after CallTimeout.
type BreakerConfig struct {
	ConsecutiveFailures uint32
	FailureRatio        float64
	MinRequests         uint32
	Interval            time.Duration
	Cooldown            time.Duration
	HalfOpenRequests    uint32
	CallTimeout         time.Duration
}

// DefaultBreakerConfig returns the settings used when no BREAKER_*
// variable is set.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		ConsecutiveFailures: 5,
		FailureRatio:        0.5,
		MinRequests:         10,
		Interval:            60 * time.Second,
		Cooldown:            30 * time.Second,
		HalfOpenRequests:    1,
		CallTimeout:         2 * time.Second,
	}
}

func LoadBreakerConfig() BreakerConfig {
	d := DefaultBreakerConfig()
	cfg := BreakerConfig{
		ConsecutiveFailures: uint32(envInt("BREAKER_CONSECUTIVE_FAILURES", int(d.ConsecutiveFailures))),
		FailureRatio:        envFloat("BREAKER_FAILURE_RATIO", d.FailureRatio),
		MinRequests:         uint32(envInt("BREAKER_MIN_REQUESTS", int(d.MinRequests))),
		Interval:            envDur("BREAKER_INTERVAL", d.Interval),
		Cooldown:            envDur("BREAKER_COOLDOWN", d.Cooldown),
		HalfOpenRequests:    uint32(envInt("BREAKER_HALF_OPEN_REQUESTS", int(d.HalfOpenRequests))),
		CallTimeout:         envDur("BREAKER_CALL_TIMEOUT", d.CallTimeout),
	}
	if cfg.ConsecutiveFailures == 0 {
		cfg.ConsecutiveFailures = d.ConsecutiveFailures
	}
	if cfg.HalfOpenRequests == 0 {
		cfg.HalfOpenRequests = 1
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = d.CallTimeout
	}
	return cfg
}
