package middleware

import (
	"context"
	"crypto/sha1"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/lodging-reservation/internal/config"
)

const idemProcessing = "PROCESSING"

// Idempotency makes retried writes safe.  A POST, PUT, PATCH or DELETE that
// carries the configured header is executed once per caller, method, path
// and key; later requests with the same key receive the stored response
// with Idempotent-Replayed: true.  A duplicate arriving while the first is
// still running gets 409.  Server errors are not stored so they can be
// retried.
func Idempotency(cfg config.IdempotencyConfig, rdb *redis.Client, logger *slog.Logger) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return passthrough
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			r := c.Request()
			switch r.Method {
			case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
			default:
				return next(c)
			}
			raw := r.Header.Get(cfg.Header)
			if raw == "" {
				return next(c)
			}

			ctx := r.Context()
			sum := sha1.Sum([]byte(r.Method + " " + r.URL.Path + " " + raw))
			key := fmt.Sprintf("%s:%s:%x", cfg.Prefix, callerID(c), sum[:])

			acquired, err := rdb.SetNX(ctx, key, idemProcessing, cfg.LockTTL).Result()
			if err != nil {
				logger.Warn("idempotency: redis unavailable, executing without replay protection", "error", err)
				return next(c)
			}
			if !acquired {
				stored, err := rdb.Get(ctx, key).Bytes()
				if err != nil && !errors.Is(err, redis.Nil) {
					logger.Warn("idempotency: read failed", "key", key, "error", err)
				}
				if status, hdr, body, ok := decodePayload(stored); ok && string(stored) != idemProcessing {
					c.Response().Header().Set("Idempotent-Replayed", "true")
					return replay(c, status, hdr, body)
				}
				return c.JSON(http.StatusConflict, echo.Map{"error": "a request with this idempotency key is already in progress"})
			}

			cw := capture(c, 0)
			store := context.WithoutCancel(ctx)
			if err := next(c); err != nil || cw.status >= http.StatusInternalServerError {
				_ = rdb.Del(store, key).Err()
				return err
			}
			payload, err := encodePayload(cw.status, snapshotHeader(c.Response().Header()), cw.buf.Bytes())
			if err == nil {
				err = rdb.Set(store, key, payload, cfg.TTL).Err()
			}
			if err != nil {
				logger.Warn("idempotency: store failed", "key", key, "error", err)
				_ = rdb.Del(store, key).Err()
			}
			return nil
		}
	}
}
