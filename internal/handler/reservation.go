package handler

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/lodging-reservation/internal/model"
	"github.com/iliyamo/lodging-reservation/internal/service"
)

// Reservations is the lifecycle service as seen by the HTTP layer.
type Reservations interface {
	Create(ctx context.Context, in service.CreateInput) (model.Reservation, error)
	Update(ctx context.Context, id uint64, in service.UpdateInput) (model.Reservation, error)
	ChangeStatus(ctx context.Context, id uint64, target model.Status) (service.TransitionResult, error)
	Cancel(ctx context.Context, id uint64) (service.TransitionResult, error)
	Confirm(ctx context.Context, id uint64) (service.TransitionResult, error)
	Delete(ctx context.Context, id uint64) error
	GetByID(ctx context.Context, id uint64) (model.Reservation, error)
	GetAll(ctx context.Context) ([]model.Reservation, error)
	GetByCustomer(ctx context.Context, customerID uint64) ([]model.Reservation, error)
	GetByCustomerDocument(ctx context.Context, document string) ([]model.Reservation, error)
	GetByRoom(ctx context.Context, roomID uint64) ([]model.Reservation, error)
	GetActiveByRoom(ctx context.Context, roomID uint64) ([]model.Reservation, error)
	GetByStatus(ctx context.Context, status model.Status) ([]model.Reservation, error)
	GetByDateRange(ctx context.Context, start, end time.Time) ([]model.Reservation, error)
	GetCheckInsToday(ctx context.Context) ([]model.Reservation, error)
	GetCheckOutsToday(ctx context.Context) ([]model.Reservation, error)
	CheckAvailability(ctx context.Context, roomID uint64, start, end time.Time) (bool, error)
	CheckAvailabilityByNumber(ctx context.Context, number string, start, end time.Time) (service.RoomAvailability, error)
	GetDetails(ctx context.Context, id uint64) (service.Details, error)
}

// ReservationHandler exposes the reservation lifecycle under /v1.
type ReservationHandler struct {
	svc Reservations
	log *slog.Logger
}

func NewReservationHandler(svc Reservations, logger *slog.Logger) *ReservationHandler {
	if svc == nil {
		panic("nil service passed to NewReservationHandler")
	}
	return &ReservationHandler{svc: svc, log: logger}
}

// reservationRequest is the body of POST /v1/reservations and
// PUT /v1/reservations/:id.  Dates are YYYY-MM-DD.
type reservationRequest struct {
	CustomerID uint64 `json:"customer_id"`
	RoomID     uint64 `json:"room_id"`
	StartDate  string `json:"start_date"`
	EndDate    string `json:"end_date"`
	Status     string `json:"status,omitempty"`
}

type reservationResponse struct {
	ID               uint64    `json:"id"`
	CustomerID       uint64    `json:"customer_id"`
	RoomID           uint64    `json:"room_id"`
	StartDate        string    `json:"start_date"`
	EndDate          string    `json:"end_date"`
	Nights           int       `json:"nights"`
	TotalAmountCents int64     `json:"total_amount_cents"`
	TotalAmount      string    `json:"total_amount"`
	Status           string    `json:"status"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func toResponse(r model.Reservation) reservationResponse {
	return reservationResponse{
		ID:               r.ID,
		CustomerID:       r.CustomerID,
		RoomID:           r.RoomID,
		StartDate:        model.FormatDate(r.StartDate),
		EndDate:          model.FormatDate(r.EndDate),
		Nights:           model.Nights(r.StartDate, r.EndDate),
		TotalAmountCents: r.TotalAmountCents,
		TotalAmount:      formatCents(r.TotalAmountCents),
		Status:           string(r.Status),
		CreatedAt:        r.CreatedAt,
		UpdatedAt:        r.UpdatedAt,
	}
}

func toResponses(rs []model.Reservation) []reservationResponse {
	out := make([]reservationResponse, 0, len(rs))
	for _, r := range rs {
		out = append(out, toResponse(r))
	}
	return out
}

// formatCents renders 12345 as "123.45".
func formatCents(c int64) string {
	sign := ""
	if c < 0 {
		sign, c = "-", -c
	}
	return fmt.Sprintf("%s%d.%02d", sign, c/100, c%100)
}

// transitionResponse adds the catalog sync outcome to the reservation.
type transitionResponse struct {
	reservationResponse
	CatalogSynced bool   `json:"catalog_synced"`
	Warning       string `json:"warning,omitempty"`
}

func toTransition(res service.TransitionResult) transitionResponse {
	out := transitionResponse{reservationResponse: toResponse(res.Reservation), CatalogSynced: res.CatalogSyncErr == nil}
	if res.CatalogSyncErr != nil {
		out.Warning = "room availability could not be updated in the catalog"
	}
	return out
}

func parseID(c echo.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	return id, err == nil && id > 0
}

func parseDates(startRaw, endRaw string) (time.Time, time.Time, string) {
	start, err := model.ParseDate(startRaw)
	if err != nil {
		return time.Time{}, time.Time{}, "invalid start_date, expected YYYY-MM-DD"
	}
	end, err := model.ParseDate(endRaw)
	if err != nil {
		return time.Time{}, time.Time{}, "invalid end_date, expected YYYY-MM-DD"
	}
	return start, end, ""
}

// parseStay is parseDates for availability queries, which need
// start <= end.
func parseStay(startRaw, endRaw string) (time.Time, time.Time, string) {
	start, end, msg := parseDates(startRaw, endRaw)
	if msg == "" && start.After(end) {
		return time.Time{}, time.Time{}, "start_date must not be after end_date"
	}
	return start, end, msg
}

func (h *ReservationHandler) list(c echo.Context, rs []model.Reservation, err error) error {
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, toResponses(rs))
}

// Create handles POST /v1/reservations.  Status defaults to PENDING.
func (h *ReservationHandler) Create(c echo.Context) error {
	var body reservationRequest
	if err := c.Bind(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	start, end, msg := parseDates(body.StartDate, body.EndDate)
	if msg != "" {
		return badRequest(c, msg)
	}
	var status model.Status
	if body.Status != "" {
		s, ok := model.ParseStatus(body.Status)
		if !ok {
			return badRequest(c, "invalid status")
		}
		status = s
	}
	r, err := h.svc.Create(c.Request().Context(), service.CreateInput{
		CustomerID: body.CustomerID,
		RoomID:     body.RoomID,
		StartDate:  start,
		EndDate:    end,
		Status:     status,
	})
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusCreated, toResponse(r))
}

// Update handles PUT /v1/reservations/:id.  A status in the body is
// rejected; status changes go through PATCH /:id/status.
func (h *ReservationHandler) Update(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid reservation id")
	}
	var body reservationRequest
	if err := c.Bind(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	if body.Status != "" {
		return badRequest(c, "status cannot be changed by an update, use PATCH /v1/reservations/:id/status")
	}
	start, end, msg := parseDates(body.StartDate, body.EndDate)
	if msg != "" {
		return badRequest(c, msg)
	}
	r, err := h.svc.Update(c.Request().Context(), id, service.UpdateInput{
		CustomerID: body.CustomerID,
		RoomID:     body.RoomID,
		StartDate:  start,
		EndDate:    end,
	})
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, toResponse(r))
}

// ChangeStatus handles PATCH /v1/reservations/:id/status with a body of
// {"status": "CONFIRMED"}.
func (h *ReservationHandler) ChangeStatus(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid reservation id")
	}
	var body struct {
		Status string `json:"status"`
	}
	if err := c.Bind(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	if body.Status == "" {
		return badRequest(c, "status is required")
	}
	// Unknown values are reported by the service as validation errors.
	res, err := h.svc.ChangeStatus(c.Request().Context(), id, model.Status(body.Status))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, toTransition(res))
}

// Cancel handles POST /v1/reservations/:id/cancel.
func (h *ReservationHandler) Cancel(c echo.Context) error {
	return h.transition(c, h.svc.Cancel)
}

// Confirm handles POST /v1/reservations/:id/confirm.
func (h *ReservationHandler) Confirm(c echo.Context) error {
	return h.transition(c, h.svc.Confirm)
}

func (h *ReservationHandler) transition(c echo.Context, op func(context.Context, uint64) (service.TransitionResult, error)) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid reservation id")
	}
	res, err := op(c.Request().Context(), id)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, toTransition(res))
}

// Delete handles DELETE /v1/reservations/:id.
func (h *ReservationHandler) Delete(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid reservation id")
	}
	if err := h.svc.Delete(c.Request().Context(), id); err != nil {
		return respondError(c, h.log, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Get handles GET /v1/reservations/:id.
func (h *ReservationHandler) Get(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid reservation id")
	}
	r, err := h.svc.GetByID(c.Request().Context(), id)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, toResponse(r))
}

type detailsResponse struct {
	Reservation reservationResponse `json:"reservation"`
	Room        *roomResponse       `json:"room"`
	Customer    *customerResponse   `json:"customer"`
	Degraded    []string            `json:"degraded,omitempty"`
}

type roomResponse struct {
	ID           uint64 `json:"id"`
	Number       string `json:"number"`
	NightlyPrice string `json:"nightly_price"`
	Available    bool   `json:"available"`
}

type customerResponse struct {
	ID       uint64 `json:"id"`
	Document string `json:"document"`
	FullName string `json:"full_name"`
	Email    string `json:"email,omitempty"`
	Phone    string `json:"phone,omitempty"`
}

func toRoom(r model.Room) roomResponse {
	return roomResponse{ID: r.ID, Number: r.Number, NightlyPrice: formatCents(r.NightlyPriceCents), Available: r.Available}
}

// Details handles GET /v1/reservations/:id/details.  Room and customer are
// null when their service cannot answer; those services are listed in
// "degraded".
func (h *ReservationHandler) Details(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid reservation id")
	}
	d, err := h.svc.GetDetails(c.Request().Context(), id)
	if err != nil {
		return respondError(c, h.log, err)
	}
	out := detailsResponse{Reservation: toResponse(d.Reservation), Degraded: d.Degraded}
	if d.Room != nil {
		room := toRoom(*d.Room)
		out.Room = &room
	}
	if d.Customer != nil {
		out.Customer = &customerResponse{
			ID:       d.Customer.ID,
			Document: d.Customer.Document,
			FullName: d.Customer.FullName,
			Email:    d.Customer.Email,
			Phone:    d.Customer.Phone,
		}
	}
	return c.JSON(http.StatusOK, out)
}

// List handles GET /v1/reservations.
func (h *ReservationHandler) List(c echo.Context) error {
	rs, err := h.svc.GetAll(c.Request().Context())
	return h.list(c, rs, err)
}

// ByCustomer handles GET /v1/reservations/customer/:customerId.
func (h *ReservationHandler) ByCustomer(c echo.Context) error {
	id, ok := parseID(c, "customerId")
	if !ok {
		return badRequest(c, "invalid customer id")
	}
	rs, err := h.svc.GetByCustomer(c.Request().Context(), id)
	return h.list(c, rs, err)
}

// ByCustomerDocument handles GET /v1/reservations/customer/document/:document.
func (h *ReservationHandler) ByCustomerDocument(c echo.Context) error {
	rs, err := h.svc.GetByCustomerDocument(c.Request().Context(), c.Param("document"))
	return h.list(c, rs, err)
}

// ByRoom handles GET /v1/reservations/room/:roomId.
func (h *ReservationHandler) ByRoom(c echo.Context) error {
	id, ok := parseID(c, "roomId")
	if !ok {
		return badRequest(c, "invalid room id")
	}
	rs, err := h.svc.GetByRoom(c.Request().Context(), id)
	return h.list(c, rs, err)
}

// ActiveByRoom handles GET /v1/reservations/room/:roomId/active.
func (h *ReservationHandler) ActiveByRoom(c echo.Context) error {
	id, ok := parseID(c, "roomId")
	if !ok {
		return badRequest(c, "invalid room id")
	}
	rs, err := h.svc.GetActiveByRoom(c.Request().Context(), id)
	return h.list(c, rs, err)
}

// ByStatus handles GET /v1/reservations/status/:status.
func (h *ReservationHandler) ByStatus(c echo.Context) error {
	status, ok := model.ParseStatus(c.Param("status"))
	if !ok {
		return badRequest(c, "invalid status, expected PENDING, CONFIRMED or CANCELLED")
	}
	rs, err := h.svc.GetByStatus(c.Request().Context(), status)
	return h.list(c, rs, err)
}

// ByDateRange handles GET /v1/reservations/range?start=&end=.
func (h *ReservationHandler) ByDateRange(c echo.Context) error {
	start, end, msg := parseDates(c.QueryParam("start"), c.QueryParam("end"))
	if msg != "" {
		return badRequest(c, msg)
	}
	rs, err := h.svc.GetByDateRange(c.Request().Context(), start, end)
	return h.list(c, rs, err)
}

// CheckInsToday handles GET /v1/reservations/check-ins/today.
func (h *ReservationHandler) CheckInsToday(c echo.Context) error {
	rs, err := h.svc.GetCheckInsToday(c.Request().Context())
	return h.list(c, rs, err)
}

// CheckOutsToday handles GET /v1/reservations/check-outs/today.
func (h *ReservationHandler) CheckOutsToday(c echo.Context) error {
	rs, err := h.svc.GetCheckOutsToday(c.Request().Context())
	return h.list(c, rs, err)
}

// Availability handles GET /v1/reservations/availability?room_id=&start=&end=.
func (h *ReservationHandler) Availability(c echo.Context) error {
	roomID, err := strconv.ParseUint(c.QueryParam("room_id"), 10, 64)
	if err != nil || roomID == 0 {
		return badRequest(c, "invalid room_id")
	}
	start, end, msg := parseStay(c.QueryParam("start"), c.QueryParam("end"))
	if msg != "" {
		return badRequest(c, msg)
	}
	ok, err := h.svc.CheckAvailability(c.Request().Context(), roomID, start, end)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"room_id":    roomID,
		"start_date": model.FormatDate(start),
		"end_date":   model.FormatDate(end),
		"available":  ok,
	})
}

// RoomNumberAvailability handles
// GET /v1/rooms/number/:number/availability?start=&end=.
func (h *ReservationHandler) RoomNumberAvailability(c echo.Context) error {
	start, end, msg := parseStay(c.QueryParam("start"), c.QueryParam("end"))
	if msg != "" {
		return badRequest(c, msg)
	}
	res, err := h.svc.CheckAvailabilityByNumber(c.Request().Context(), c.Param("number"), start, end)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"room":       toRoom(res.Room),
		"start_date": model.FormatDate(start),
		"end_date":   model.FormatDate(end),
		"available":  res.Available,
	})
}
