package client

import (
	"context"
	"errors"
	"log/slog"

	"github.com/sony/gobreaker"

	"github.com/iliyamo/lodging-reservation/internal/config"
	"github.com/iliyamo/lodging-reservation/internal/metrics"
)

// State is the externally visible circuit state.
type State string

const (
	StateClosed   State = "CLOSED"
	StateHalfOpen State = "HALF_OPEN"
	StateOpen     State = "OPEN"
)

func fromGobreaker(s gobreaker.State) State {
	switch s {
	case gobreaker.StateOpen:
		return StateOpen
	case gobreaker.StateHalfOpen:
		return StateHalfOpen
	}
	return StateClosed
}

func gaugeValue(s State) float64 {
	switch s {
	case StateHalfOpen:
		return 1
	case StateOpen:
		return 2
	}
	return 0
}

// Breaker is a circuit breaker for one downstream service.  Calls made
// through it are bounded by the configured per-call timeout; timeouts,
// transport errors and 5xx answers count as failures.
type Breaker struct {
	name string
	cfg  config.BreakerConfig
	cb   *gobreaker.CircuitBreaker
	log  *slog.Logger
}

// NewBreaker builds a closed breaker named after the service it guards.
func NewBreaker(name string, cfg config.BreakerConfig, logger *slog.Logger) *Breaker {
	b := &Breaker{name: name, cfg: cfg, log: logger.With("service", name)}
	b.cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:          name,
		MaxRequests:   cfg.HalfOpenRequests,
		Interval:      cfg.Interval,
		Timeout:       cfg.Cooldown,
		ReadyToTrip:   b.readyToTrip,
		OnStateChange: b.onStateChange,
		IsSuccessful:  func(err error) bool { return !isFailure(err) },
	})
	metrics.BreakerState.WithLabelValues(name).Set(gaugeValue(StateClosed))
	return b
}

// State returns the current circuit state.
func (b *Breaker) State() State { return fromGobreaker(b.cb.State()) }

func (b *Breaker) readyToTrip(c gobreaker.Counts) bool {
	if c.ConsecutiveFailures >= b.cfg.ConsecutiveFailures {
		return true
	}
	if b.cfg.FailureRatio <= 0 || b.cfg.MinRequests == 0 || c.Requests < b.cfg.MinRequests {
		return false
	}
	return float64(c.TotalFailures)/float64(c.Requests) >= b.cfg.FailureRatio
}

func (b *Breaker) onStateChange(_ string, from, to gobreaker.State) {
	next := fromGobreaker(to)
	metrics.BreakerState.WithLabelValues(b.name).Set(gaugeValue(next))
	b.log.Warn("circuit state changed", "from", fromGobreaker(from), "to", next)
}

// execute runs call under the breaker with the per-call timeout applied.
func execute[T any](ctx context.Context, b *Breaker, call func(context.Context) (T, error)) (T, error) {
	res, err := b.cb.Execute(func() (interface{}, error) {
		cctx, cancel := context.WithTimeout(ctx, b.cfg.CallTimeout)
		defer cancel()
		return call(cctx)
	})
	v, _ := res.(T)
	return v, err
}

// rejected reports whether the breaker refused the call without running it.
func rejected(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}

// guard calls live through the breaker and answers from fallback when the
// circuit refused the call or the call failed.  Business answers such as
// NotFound pass through untouched.
func guard[T any](ctx context.Context, b *Breaker, live, fallback func(context.Context) (T, error)) (T, error) {
	v, err := execute(ctx, b, live)
	switch {
	case err == nil:
		return v, nil
	case rejected(err):
		b.log.Debug("call short-circuited", "state", b.State())
		return fallback(ctx)
	case isFailure(err):
		b.log.Warn("downstream call failed", "error", err)
		return fallback(ctx)
	}
	return v, err
}
