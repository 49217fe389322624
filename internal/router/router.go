// Package router registers the HTTP routes and the middleware chain.
package router

import (
	"log/slog"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/lodging-reservation/internal/config"
	"github.com/iliyamo/lodging-reservation/internal/handler"
	"github.com/iliyamo/lodging-reservation/internal/middleware"
)

// New builds the echo instance with the global middleware: panic recovery,
// request IDs, access logging through slog and HTTP metrics.
func New(logger *slog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(middleware.Metrics())
	e.Use(echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(_ echo.Context, v echomw.RequestLoggerValues) error {
			attrs := []any{"method", v.Method, "uri", v.URI, "status", v.Status, "latency", v.Latency, "request_id", v.RequestID}
			if v.Error != nil {
				logger.Warn("request", append(attrs, "error", v.Error)...)
				return nil
			}
			logger.Info("request", attrs...)
			return nil
		},
	}))
	return e
}

// RegisterRoutes registers the operational endpoints: liveness, readiness
// and Prometheus metrics.
func RegisterRoutes(e *echo.Echo, ready echo.HandlerFunc) {
	e.GET("/healthz", handler.Health)
	e.GET("/readyz", ready)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}

// Stack holds what the API middleware needs; a nil Redis client disables
// rate limiting, caching and idempotency.
type Stack struct {
	Redis       *redis.Client
	RateLimit   config.RateLimitConfig
	Cache       config.CacheConfig
	Idempotency config.IdempotencyConfig
	Log         *slog.Logger
}

// RegisterReservations mounts the reservation API under /v1.  Identity runs
// first so the rate limiter and idempotency keys see the caller; the cache
// is innermost so replays and throttled requests never reach it.
func RegisterReservations(e *echo.Echo, h *handler.ReservationHandler, s Stack) {
	v1 := e.Group("/v1",
		middleware.Identity(),
		middleware.RateLimit(s.RateLimit, s.Redis, s.Log),
		middleware.Idempotency(s.Idempotency, s.Redis, s.Log),
		middleware.Cache(s.Cache, s.Redis, s.Log),
	)

	r := v1.Group("/reservations")
	r.POST("", h.Create)
	r.GET("", h.List)

	// Static segments are matched before :id by echo's router.
	r.GET("/range", h.ByDateRange)
	r.GET("/availability", h.Availability)
	r.GET("/check-ins/today", h.CheckInsToday)
	r.GET("/check-outs/today", h.CheckOutsToday)
	r.GET("/customer/:customerId", h.ByCustomer)
	r.GET("/customer/document/:document", h.ByCustomerDocument)
	r.GET("/room/:roomId", h.ByRoom)
	r.GET("/room/:roomId/active", h.ActiveByRoom)
	r.GET("/status/:status", h.ByStatus)

	r.GET("/:id", h.Get)
	r.PUT("/:id", h.Update)
	r.DELETE("/:id", h.Delete)
	r.GET("/:id/details", h.Details)
	r.PATCH("/:id/status", h.ChangeStatus)
	r.POST("/:id/cancel", h.Cancel)
	r.POST("/:id/confirm", h.Confirm)

	v1.GET("/rooms/number/:number/availability", h.RoomNumberAvailability)
}
