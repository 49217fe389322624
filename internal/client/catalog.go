package client

import (
	"context"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strconv"

	"github.com/iliyamo/lodging-reservation/internal/apperror"
	"github.com/iliyamo/lodging-reservation/internal/metrics"
	"github.com/iliyamo/lodging-reservation/internal/model"
)

// RoomCatalogService names the room catalog in logs, metrics and errors.
const RoomCatalogService = "room-catalog"

// RoomCatalog resolves rooms and receives availability updates.
type RoomCatalog interface {
	GetByID(ctx context.Context, id uint64) (model.Room, error)
	GetByNumber(ctx context.Context, number string) (model.Room, error)
	SetAvailability(ctx context.Context, id uint64, available bool) error
}

// roomDTO is the catalog's JSON representation of a room.
type roomDTO struct {
	ID           uint64  `json:"id"`
	Number       string  `json:"number"`
	NightlyPrice float64 `json:"nightly_price"`
	Available    bool    `json:"available"`
}

func (d roomDTO) toModel() model.Room {
	return model.Room{
		ID:                d.ID,
		Number:            d.Number,
		NightlyPriceCents: int64(math.Round(d.NightlyPrice * 100)),
		Available:         d.Available,
	}
}

// HTTPRoomCatalog is the live room catalog client.
//
//	GET   {base}/rooms/{id}
//	GET   {base}/rooms/number/{number}
//	PATCH {base}/rooms/{id}/availability?available={bool}
type HTTPRoomCatalog struct {
	baseURL string
	http    *http.Client
}

// NewHTTPRoomCatalog returns a live client for the catalog at baseURL.
func NewHTTPRoomCatalog(baseURL string, hc *http.Client) *HTTPRoomCatalog {
	return &HTTPRoomCatalog{baseURL: baseURL, http: hc}
}

func (c *HTTPRoomCatalog) GetByID(ctx context.Context, id uint64) (model.Room, error) {
	var dto roomDTO
	u := joinURL(c.baseURL, "rooms", strconv.FormatUint(id, 10))
	if err := doJSON(ctx, c.http, RoomCatalogService, http.MethodGet, u, &dto); err != nil {
		return model.Room{}, classify(err, RoomCatalogService, "room %d not found", id)
	}
	return dto.toModel(), nil
}

func (c *HTTPRoomCatalog) GetByNumber(ctx context.Context, number string) (model.Room, error) {
	var dto roomDTO
	u := joinURL(c.baseURL, "rooms", "number", url.PathEscape(number))
	if err := doJSON(ctx, c.http, RoomCatalogService, http.MethodGet, u, &dto); err != nil {
		return model.Room{}, classify(err, RoomCatalogService, "room number %s not found", number)
	}
	return dto.toModel(), nil
}

func (c *HTTPRoomCatalog) SetAvailability(ctx context.Context, id uint64, available bool) error {
	u := joinURL(c.baseURL, "rooms", strconv.FormatUint(id, 10), "availability") +
		"?available=" + strconv.FormatBool(available)
	return classify(doJSON(ctx, c.http, RoomCatalogService, http.MethodPatch, u, nil), RoomCatalogService, "room %d not found", id)
}

// FallbackRoomCatalog stands in for the catalog while its circuit is open
// or a call failed.  Every method answers ErrServiceUnavailable without
// touching the network.
type FallbackRoomCatalog struct {
	logger *slog.Logger
}

// NewFallbackRoomCatalog returns the stand-in catalog.
func NewFallbackRoomCatalog(logger *slog.Logger) *FallbackRoomCatalog {
	return &FallbackRoomCatalog{logger: logger}
}

func (f *FallbackRoomCatalog) unavailable(op string, args ...any) error {
	metrics.FallbackCalls.WithLabelValues(RoomCatalogService, op).Inc()
	f.logger.Warn("circuit breaker active: room catalog unavailable", append([]any{"operation", op}, args...)...)
	return apperror.Unavailable(RoomCatalogService, nil)
}

func (f *FallbackRoomCatalog) GetByID(_ context.Context, id uint64) (model.Room, error) {
	return model.Room{}, f.unavailable("get_by_id", "room_id", id)
}

func (f *FallbackRoomCatalog) GetByNumber(_ context.Context, number string) (model.Room, error) {
	return model.Room{}, f.unavailable("get_by_number", "number", number)
}

func (f *FallbackRoomCatalog) SetAvailability(_ context.Context, id uint64, available bool) error {
	return f.unavailable("set_availability", "room_id", id, "available", available)
}

// ResilientRoomCatalog routes calls through a Breaker: the live client
// while the circuit admits calls, the fallback otherwise.
type ResilientRoomCatalog struct {
	live     RoomCatalog
	fallback RoomCatalog
	breaker  *Breaker
}

// NewResilientRoomCatalog wraps live with the given breaker and fallback.
func NewResilientRoomCatalog(live, fallback RoomCatalog, breaker *Breaker) *ResilientRoomCatalog {
	return &ResilientRoomCatalog{live: live, fallback: fallback, breaker: breaker}
}

func (c *ResilientRoomCatalog) GetByID(ctx context.Context, id uint64) (model.Room, error) {
	return guard(ctx, c.breaker,
		func(ctx context.Context) (model.Room, error) { return c.live.GetByID(ctx, id) },
		func(ctx context.Context) (model.Room, error) { return c.fallback.GetByID(ctx, id) },
	)
}

func (c *ResilientRoomCatalog) GetByNumber(ctx context.Context, number string) (model.Room, error) {
	return guard(ctx, c.breaker,
		func(ctx context.Context) (model.Room, error) { return c.live.GetByNumber(ctx, number) },
		func(ctx context.Context) (model.Room, error) { return c.fallback.GetByNumber(ctx, number) },
	)
}

func (c *ResilientRoomCatalog) SetAvailability(ctx context.Context, id uint64, available bool) error {
	_, err := guard(ctx, c.breaker,
		func(ctx context.Context) (struct{}, error) { return struct{}{}, c.live.SetAvailability(ctx, id, available) },
		func(ctx context.Context) (struct{}, error) {
			return struct{}{}, c.fallback.SetAvailability(ctx, id, available)
		},
	)
	return err
}
