package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/iliyamo/lodging-reservation/internal/apperror"
	"github.com/iliyamo/lodging-reservation/internal/model"
	"github.com/iliyamo/lodging-reservation/internal/queue"
)

// fakeStore is an in-memory ReservationStore that counts calls.
type fakeStore struct {
	mu     sync.Mutex
	nextID uint64
	rows   map[uint64]model.Reservation
	calls  int
	// saveErr, when set, is returned by Save.
	saveErr error
	// conflictingCalls counts FindConflicting invocations.
	conflictingCalls int
}

func newFakeStore(rows ...model.Reservation) *fakeStore {
	s := &fakeStore{rows: map[uint64]model.Reservation{}}
	for _, r := range rows {
		s.rows[r.ID] = r
		if r.ID > s.nextID {
			s.nextID = r.ID
		}
	}
	return s
}

func (s *fakeStore) filter(keep func(model.Reservation) bool) []model.Reservation {
	out := []model.Reservation{}
	for _, r := range s.rows {
		if keep(r) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *fakeStore) Save(_ context.Context, r model.Reservation) (model.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.saveErr != nil {
		return model.Reservation{}, s.saveErr
	}
	if r.ID == 0 {
		s.nextID++
		r.ID = s.nextID
	} else if cur, ok := s.rows[r.ID]; !ok {
		return model.Reservation{}, apperror.NotFound("reservation %d not found", r.ID)
	} else if cur.Status == model.StatusCancelled {
		return model.Reservation{}, apperror.InvalidState("reservation %d is cancelled and cannot be modified", r.ID)
	}
	s.rows[r.ID] = r
	return r, nil
}

func (s *fakeStore) FindByID(_ context.Context, id uint64) (model.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	r, ok := s.rows[id]
	if !ok {
		return model.Reservation{}, apperror.NotFound("reservation %d not found", id)
	}
	return r, nil
}

func (s *fakeStore) FindAll(context.Context) ([]model.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return s.filter(func(model.Reservation) bool { return true }), nil
}

func (s *fakeStore) FindConflicting(_ context.Context, roomID uint64, start, end time.Time) ([]model.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.conflictingCalls++
	return s.filter(func(r model.Reservation) bool {
		return r.RoomID == roomID && r.Active() && r.Overlaps(start, end)
	}), nil
}

func (s *fakeStore) FindByCustomer(_ context.Context, id uint64) ([]model.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return s.filter(func(r model.Reservation) bool { return r.CustomerID == id }), nil
}

func (s *fakeStore) FindByRoom(_ context.Context, id uint64) ([]model.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return s.filter(func(r model.Reservation) bool { return r.RoomID == id }), nil
}

func (s *fakeStore) FindActiveByRoom(_ context.Context, id uint64, from time.Time) ([]model.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return s.filter(func(r model.Reservation) bool {
		return r.RoomID == id && r.Active() && !r.EndDate.Before(from)
	}), nil
}

func (s *fakeStore) FindByStatus(_ context.Context, st model.Status) ([]model.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return s.filter(func(r model.Reservation) bool { return r.Status == st }), nil
}

func (s *fakeStore) FindByDateRange(_ context.Context, start, end time.Time) ([]model.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return s.filter(func(r model.Reservation) bool {
		return !r.StartDate.Before(start) && !r.StartDate.After(end)
	}), nil
}

func (s *fakeStore) FindByCheckIn(_ context.Context, day time.Time) ([]model.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return s.filter(func(r model.Reservation) bool { return r.Active() && r.StartDate.Equal(day) }), nil
}

func (s *fakeStore) FindByCheckOut(_ context.Context, day time.Time) ([]model.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return s.filter(func(r model.Reservation) bool { return r.Active() && r.EndDate.Equal(day) }), nil
}

func (s *fakeStore) Delete(_ context.Context, id uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if _, ok := s.rows[id]; !ok {
		return apperror.NotFound("reservation %d not found", id)
	}
	delete(s.rows, id)
	return nil
}

type availabilityCall struct {
	roomID    uint64
	available bool
}

// fakeCatalog serves rooms from a map and records availability updates.
type fakeCatalog struct {
	mu       sync.Mutex
	rooms    map[uint64]model.Room
	getErr   error
	setErr   error
	calls    int
	setCalls []availabilityCall
}

func (c *fakeCatalog) GetByID(_ context.Context, id uint64) (model.Room, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	if c.getErr != nil {
		return model.Room{}, c.getErr
	}
	r, ok := c.rooms[id]
	if !ok {
		return model.Room{}, apperror.NotFound("room %d not found", id)
	}
	return r, nil
}

func (c *fakeCatalog) GetByNumber(_ context.Context, number string) (model.Room, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	if c.getErr != nil {
		return model.Room{}, c.getErr
	}
	for _, r := range c.rooms {
		if r.Number == number {
			return r, nil
		}
	}
	return model.Room{}, apperror.NotFound("room %s not found", number)
}

func (c *fakeCatalog) SetAvailability(_ context.Context, id uint64, available bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	c.setCalls = append(c.setCalls, availabilityCall{id, available})
	return c.setErr
}

type fakeDirectory struct {
	customers map[uint64]model.Customer
	err       error
}

func (d *fakeDirectory) GetByID(_ context.Context, id uint64) (model.Customer, error) {
	if d.err != nil {
		return model.Customer{}, d.err
	}
	c, ok := d.customers[id]
	if !ok {
		return model.Customer{}, apperror.NotFound("customer %d not found", id)
	}
	return c, nil
}

func (d *fakeDirectory) GetByDocument(_ context.Context, document string) (model.Customer, error) {
	if d.err != nil {
		return model.Customer{}, d.err
	}
	for _, c := range d.customers {
		if c.Document == document {
			return c, nil
		}
	}
	return model.Customer{}, apperror.NotFound("customer with document %s not found", document)
}

type fakePublisher struct {
	mu     sync.Mutex
	events []queue.ReservationEvent
	err    error
}

func (p *fakePublisher) Publish(_ context.Context, ev queue.ReservationEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

func (p *fakePublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, ev := range p.events {
		out[i] = ev.Type
	}
	return out
}

var errBoom = errors.New("boom")
