package app

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"office-booking/internal/apperrors"
	"office-booking/internal/schedule"
)

// memStore is an in-memory Store. Reserve holds the mutex across load,
// check and insert, matching the atomicity PGStore gets from its lock.
type memStore struct {
	mu      sync.Mutex
	nextID  int64
	rows    map[Kind][]Booking
	listErr error
	pingErr error
}

func newMemStore() *memStore {
	return &memStore{rows: map[Kind][]Booking{}}
}

func (s *memStore) Reserve(_ context.Context, kind Kind, b *Booking, check func([]Booking) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var sameDay []Booking
	for _, r := range s.rows[kind] {
		if r.Date == b.Date {
			sameDay = append(sameDay, r)
		}
	}
	if err := check(sameDay); err != nil {
		return err
	}
	s.nextID++
	b.ID = s.nextID
	b.CreatedAt = time.Date(2026, 10, 14, 10, 0, 0, 0, time.UTC)
	s.rows[kind] = append(s.rows[kind], *b)
	return nil
}

func (s *memStore) filter(kind Kind, keep func(Booking) bool, desc bool) ([]Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	out := []Booking{}
	for _, r := range s.rows[kind] {
		if keep(r) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return (out[i].Date < out[j].Date) != desc
		}
		return (out[i].StartTime < out[j].StartTime) != desc
	})
	return out, nil
}

func (s *memStore) ListBookingsInRange(_ context.Context, kind Kind, from, to string) ([]Booking, error) {
	return s.filter(kind, func(b Booking) bool { return b.Date >= from && b.Date <= to }, false)
}

func (s *memStore) ListUpcoming(_ context.Context, kind Kind, today string) ([]Booking, error) {
	return s.filter(kind, func(b Booking) bool { return b.Date >= today }, false)
}

func (s *memStore) ListPast(_ context.Context, kind Kind, today string) ([]Booking, error) {
	return s.filter(kind, func(b Booking) bool { return b.Date < today }, true)
}

func (s *memStore) DeleteBooking(_ context.Context, kind Kind, id int64) (Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, r := range s.rows[kind] {
		if r.ID == id {
			s.rows[kind] = append(s.rows[kind][:i], s.rows[kind][i+1:]...)
			return r, nil
		}
	}
	return Booking{}, ErrBookingNotFound
}

func (s *memStore) Ping(context.Context) error { return s.pingErr }

func (s *memStore) count(kind Kind) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows[kind])
}

type observedEvent struct {
	event string
	kind  Kind
	id    int64
}

type recordingObserver struct {
	mu     sync.Mutex
	events []observedEvent
	err    error
}

func (o *recordingObserver) Name() string { return "recorder" }

func (o *recordingObserver) BookingCreated(_ context.Context, kind Kind, b Booking) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.events = append(o.events, observedEvent{"created", kind, b.ID})
	return o.err
}

func (o *recordingObserver) BookingDeleted(_ context.Context, kind Kind, b Booking) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.events = append(o.events, observedEvent{"deleted", kind, b.ID})
	return o.err
}

// testNow is Wednesday 2026-10-14; its week runs 2026-10-12 to 2026-10-16.
var testNow = time.Date(2026, 10, 14, 10, 0, 0, 0, time.UTC)

var (
	workmate = Actor{Role: RoleWorkmate, Username: "team"}
	admin    = Actor{Role: RoleAdmin, Username: "boss"}
	nobody   = Actor{Role: RoleAnonymous}
)

func newTestApp(t *testing.T) (*App, *memStore, *recordingObserver) {
	t.Helper()
	store := newMemStore()
	obs := &recordingObserver{}
	a := New(Deps{
		Store:     store,
		Observers: []BookingObserver{obs},
		Location:  time.UTC,
		Now:       func() time.Time { return testNow },
	})
	return a, store, obs
}

func tod(t *testing.T, s string) schedule.TimeOfDay {
	t.Helper()
	v, err := schedule.ParseTimeOfDay(s)
	if err != nil {
		t.Fatalf("ParseTimeOfDay(%q): %v", s, err)
	}
	return v
}

func mustBook(t *testing.T, a *App, kind Kind, requester, date, start, end string) *Booking {
	t.Helper()
	b, err := a.SubmitBooking(context.Background(), workmate, kind, BookingRequest{
		Requester: requester,
		Purpose:   "Sync",
		Date:      date,
		StartTime: start,
		EndTime:   end,
	})
	if err != nil {
		t.Fatalf("SubmitBooking(%s %s-%s): %v", date, start, end, err)
	}
	return b
}

func TestNewDefaults(t *testing.T) {
	a := New(Deps{Store: newMemStore()})
	if a.Log == nil || a.Location == nil || a.Now == nil || a.Limiter == nil {
		t.Fatalf("expected defaults to be filled, got %+v", a)
	}
	if ok, err := a.Limiter.Allow(context.Background(), "x"); !ok || err != nil {
		t.Errorf("default limiter should allow, got %v, %v", ok, err)
	}
}

func TestStoreErrorMapping(t *testing.T) {
	if got := storeError(KindRoom, 4, ErrBookingNotFound); !errors.Is(got, apperrors.ErrNotFound) {
		t.Errorf("not found mapped to %v", got)
	}
	if got := storeError(KindRoom, 0, ErrBookingOverlap); !errors.Is(got, apperrors.ErrSlotConflict) {
		t.Errorf("overlap mapped to %v", got)
	}
}
