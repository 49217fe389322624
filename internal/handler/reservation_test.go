package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/lodging-reservation/internal/apperror"
	"github.com/iliyamo/lodging-reservation/internal/model"
	"github.com/iliyamo/lodging-reservation/internal/service"
)

// fakeReservations implements the methods exercised here; the embedded
// interface panics on anything else.
type fakeReservations struct {
	Reservations

	created   service.CreateInput
	updated   service.UpdateInput
	target    model.Status
	rangeArgs [2]time.Time
	res       model.Reservation
	list      []model.Reservation
	result    service.TransitionResult
	available bool
	details   service.Details
	err       error
}

func (f *fakeReservations) Create(_ context.Context, in service.CreateInput) (model.Reservation, error) {
	f.created = in
	return f.res, f.err
}

func (f *fakeReservations) Update(_ context.Context, _ uint64, in service.UpdateInput) (model.Reservation, error) {
	f.updated = in
	return f.res, f.err
}

func (f *fakeReservations) ChangeStatus(_ context.Context, _ uint64, target model.Status) (service.TransitionResult, error) {
	f.target = target
	return f.result, f.err
}

func (f *fakeReservations) Confirm(ctx context.Context, id uint64) (service.TransitionResult, error) {
	return f.ChangeStatus(ctx, id, model.StatusConfirmed)
}

func (f *fakeReservations) Delete(context.Context, uint64) error { return f.err }

func (f *fakeReservations) GetByID(context.Context, uint64) (model.Reservation, error) {
	return f.res, f.err
}

func (f *fakeReservations) GetAll(context.Context) ([]model.Reservation, error) {
	return f.list, f.err
}

func (f *fakeReservations) GetByDateRange(_ context.Context, start, end time.Time) ([]model.Reservation, error) {
	f.rangeArgs = [2]time.Time{start, end}
	return f.list, f.err
}

func (f *fakeReservations) CheckAvailability(context.Context, uint64, time.Time, time.Time) (bool, error) {
	return f.available, f.err
}

func (f *fakeReservations) GetDetails(context.Context, uint64) (service.Details, error) {
	return f.details, f.err
}

func sample() model.Reservation {
	return model.Reservation{
		ID: 5, CustomerID: 1, RoomID: 7,
		StartDate:        time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		EndDate:          time.Date(2024, 6, 4, 0, 0, 0, 0, time.UTC),
		TotalAmountCents: 30050,
		Status:           model.StatusPending,
	}
}

func newServer(f *fakeReservations) *echo.Echo {
	h := NewReservationHandler(f, slog.New(slog.NewTextHandler(io.Discard, nil)))
	e := echo.New()
	g := e.Group("/v1/reservations")
	g.POST("", h.Create)
	g.GET("", h.List)
	g.GET("/range", h.ByDateRange)
	g.GET("/availability", h.Availability)
	g.GET("/:id", h.Get)
	g.PUT("/:id", h.Update)
	g.DELETE("/:id", h.Delete)
	g.PATCH("/:id/status", h.ChangeStatus)
	g.POST("/:id/confirm", h.Confirm)
	g.GET("/:id/details", h.Details)
	return e
}

func call(e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
}

func TestCreateHandler(t *testing.T) {
	t.Parallel()

	f := &fakeReservations{res: sample()}
	rec := call(newServer(f), http.MethodPost, "/v1/reservations",
		`{"customer_id":1,"room_id":7,"start_date":"2024-06-01","end_date":"2024-06-04"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var got reservationResponse
	decode(t, rec, &got)
	if got.ID != 5 || got.StartDate != "2024-06-01" || got.TotalAmount != "300.50" || got.Nights != 3 || got.Status != "PENDING" {
		t.Fatalf("unexpected body %+v", got)
	}
	if f.created.RoomID != 7 || f.created.Status != "" || !f.created.EndDate.Equal(sample().EndDate) {
		t.Fatalf("unexpected service input %+v", f.created)
	}
}

func TestCreateHandler_BadInput(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		body string
	}{
		{"malformed json", `{"customer_id":`},
		{"bad date", `{"customer_id":1,"room_id":7,"start_date":"06/01/2024","end_date":"2024-06-04"}`},
		{"bad status", `{"customer_id":1,"room_id":7,"start_date":"2024-06-01","end_date":"2024-06-04","status":"DONE"}`},
	}
	for _, tc := range cases {
		f := &fakeReservations{}
		rec := call(newServer(f), http.MethodPost, "/v1/reservations", tc.body)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", tc.name, rec.Code)
		}
		if f.created.RoomID != 0 {
			t.Fatalf("%s: service must not be called", tc.name)
		}
	}
}

func TestErrorMapping(t *testing.T) {
	t.Parallel()

	cases := []struct {
		err  error
		code int
		msg  string
	}{
		{apperror.Validation("start_date is after end_date"), http.StatusBadRequest, "start_date is after end_date"},
		{apperror.NotFound("room 9 not found"), http.StatusNotFound, "room 9 not found"},
		{apperror.Conflict("room 7 is already booked"), http.StatusConflict, "room 7 is already booked"},
		{apperror.InvalidState("reservation 5 is CANCELLED"), http.StatusConflict, "reservation 5 is CANCELLED"},
		{apperror.Unavailable("room-catalog", errors.New("dial tcp")), http.StatusServiceUnavailable, "room-catalog is not available, try again later"},
		{errors.New("sql: connection refused"), http.StatusInternalServerError, "internal error"},
	}
	for _, tc := range cases {
		f := &fakeReservations{err: tc.err}
		rec := call(newServer(f), http.MethodPost, "/v1/reservations",
			`{"customer_id":1,"room_id":7,"start_date":"2024-06-01","end_date":"2024-06-04"}`)
		if rec.Code != tc.code {
			t.Fatalf("%v: expected %d, got %d", tc.err, tc.code, rec.Code)
		}
		var body map[string]string
		decode(t, rec, &body)
		if body["error"] != tc.msg {
			t.Fatalf("%v: expected message %q, got %q", tc.err, tc.msg, body["error"])
		}
	}
}

func TestUpdateHandler_RejectsStatus(t *testing.T) {
	t.Parallel()

	f := &fakeReservations{res: sample()}
	e := newServer(f)
	rec := call(e, http.MethodPut, "/v1/reservations/5",
		`{"customer_id":2,"room_id":7,"start_date":"2024-06-01","end_date":"2024-06-04","status":"CONFIRMED"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}

	rec = call(e, http.MethodPut, "/v1/reservations/5",
		`{"customer_id":2,"room_id":7,"start_date":"2024-06-01","end_date":"2024-06-04"}`)
	if rec.Code != http.StatusOK || f.updated.CustomerID != 2 {
		t.Fatalf("expected update to pass through, got %d %+v", rec.Code, f.updated)
	}
}

func TestChangeStatusHandler(t *testing.T) {
	t.Parallel()

	confirmed := sample()
	confirmed.Status = model.StatusConfirmed
	f := &fakeReservations{result: service.TransitionResult{
		Reservation:    confirmed,
		CatalogSyncErr: apperror.Unavailable("room-catalog", errors.New("open circuit")),
	}}
	e := newServer(f)

	rec := call(e, http.MethodPatch, "/v1/reservations/5/status", `{"status":"CONFIRMED"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var got transitionResponse
	decode(t, rec, &got)
	if got.Status != "CONFIRMED" || got.CatalogSynced || got.Warning == "" {
		t.Fatalf("unexpected body %+v", got)
	}
	if f.target != model.StatusConfirmed {
		t.Fatalf("expected CONFIRMED target, got %q", f.target)
	}

	if rec := call(e, http.MethodPatch, "/v1/reservations/5/status", `{}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing status, got %d", rec.Code)
	}
	if rec := call(e, http.MethodPost, "/v1/reservations/abc/confirm", ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad id, got %d", rec.Code)
	}
}

func TestListHandlers(t *testing.T) {
	t.Parallel()

	f := &fakeReservations{list: []model.Reservation{}}
	e := newServer(f)

	rec := call(e, http.MethodGet, "/v1/reservations", "")
	if rec.Code != http.StatusOK || strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Fatalf("expected empty JSON array, got %d %q", rec.Code, rec.Body.String())
	}

	rec = call(e, http.MethodGet, "/v1/reservations/range?start=2024-06-01&end=2024-06-30", "")
	if rec.Code != http.StatusOK || model.FormatDate(f.rangeArgs[1]) != "2024-06-30" {
		t.Fatalf("unexpected range call %d %v", rec.Code, f.rangeArgs)
	}
	if rec := call(e, http.MethodGet, "/v1/reservations/range?start=2024-06-01", ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing end, got %d", rec.Code)
	}
}

func TestAvailabilityHandler(t *testing.T) {
	t.Parallel()

	f := &fakeReservations{available: true}
	e := newServer(f)
	rec := call(e, http.MethodGet, "/v1/reservations/availability?room_id=7&start=2024-06-06&end=2024-06-08", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var got map[string]any
	decode(t, rec, &got)
	if got["available"] != true || got["start_date"] != "2024-06-06" {
		t.Fatalf("unexpected body %v", got)
	}
	if rec := call(e, http.MethodGet, "/v1/reservations/availability?start=2024-06-06&end=2024-06-08", ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without room_id, got %d", rec.Code)
	}
	rec = call(e, http.MethodGet, "/v1/reservations/availability?room_id=7&start=2024-06-08&end=2024-06-06", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for inverted range, got %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "available") {
		t.Fatalf("expected no availability answer, got %s", rec.Body.String())
	}
}

func TestDetailsHandler_Degraded(t *testing.T) {
	t.Parallel()

	f := &fakeReservations{details: service.Details{Reservation: sample(), Degraded: []string{"room-catalog"}}}
	rec := call(newServer(f), http.MethodGet, "/v1/reservations/5/details", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, `"room":null`) || !strings.Contains(body, `"degraded":["room-catalog"]`) {
		t.Fatalf("unexpected body %s", body)
	}
}

func TestDeleteHandler(t *testing.T) {
	t.Parallel()

	e := newServer(&fakeReservations{})
	if rec := call(e, http.MethodDelete, "/v1/reservations/5", ""); rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	e = newServer(&fakeReservations{err: apperror.NotFound("reservation 5 not found")})
	if rec := call(e, http.MethodDelete, "/v1/reservations/5", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestReady(t *testing.T) {
	t.Parallel()

	e := echo.New()
	e.GET("/readyz", Ready(map[string]Pinger{
		"mysql": PingFunc(func(context.Context) error { return nil }),
		"redis": PingFunc(func(context.Context) error { return errors.New("connection refused") }),
	}))
	rec := call(e, http.MethodGet, "/readyz", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
	var got map[string]string
	decode(t, rec, &got)
	if got["mysql"] != "ok" || got["redis"] != "connection refused" {
		t.Fatalf("unexpected body %v", got)
	}
}
