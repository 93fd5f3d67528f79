package app

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"office-booking/internal/apperrors"
)

// newPGTestStore connects to DATABASE_URL and returns a store plus a date
// no other run uses. Rows on that date are removed when the test ends.
func newPGTestStore(t *testing.T) (*PGStore, string) {
	t.Helper()
	url := os.Getenv("DATABASE_URL")
	if url == "" {
		t.Skip("DATABASE_URL not set")
	}
	ctx := context.Background()
	pool, err := OpenPool(ctx, url)
	if err != nil {
		t.Fatalf("OpenPool: %v", err)
	}
	t.Cleanup(pool.Close)

	store := NewPGStore(pool)
	if err := store.EnsureSchema(ctx); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}

	offset := int(time.Now().UnixNano()/int64(time.Microsecond)) % 36500
	date := time.Date(2100, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, offset).Format("2006-01-02")
	t.Cleanup(func() {
		for _, kind := range Kinds {
			if _, err := pool.Exec(context.Background(), `DELETE FROM `+kind.Table()+` WHERE date = $1::date`, date); err != nil {
				t.Errorf("cleanup %s: %v", kind, err)
			}
		}
	})
	return store, date
}

func TestPGStoreConcurrentSameSlot(t *testing.T) {
	store, date := newPGTestStore(t)
	a := New(Deps{Store: store, Location: time.UTC, Now: func() time.Time { return testNow }})

	const n = 8
	var wg sync.WaitGroup
	results := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := a.SubmitBooking(context.Background(), workmate, KindCar, BookingRequest{
				Requester: "Racer", Purpose: "Client visit", Date: date, StartTime: "13:00", EndTime: "15:00",
			})
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var ok, conflicts int
	for err := range results {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, apperrors.ErrSlotConflict):
			conflicts++
		default:
			t.Errorf("unexpected error %v", err)
		}
	}
	if ok != 1 || conflicts != n-1 {
		t.Errorf("expected 1 success and %d conflicts, got %d and %d", n-1, ok, conflicts)
	}

	got, err := store.ListBookingsInRange(context.Background(), KindCar, date, date)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Fatalf("expected one stored booking, got %d", len(got))
	}
	b := got[0]
	if b.Date != date || b.StartTime.String() != "13:00" || b.EndTime.String() != "15:00" {
		t.Errorf("stored booking did not round trip: %+v", b)
	}
}

func TestPGStoreExclusionConstraint(t *testing.T) {
	store, date := newPGTestStore(t)
	ctx := context.Background()
	noCheck := func([]Booking) error { return nil }

	first := &Booking{Requester: "A", Purpose: "P", Date: date, StartTime: 9 * 60, EndTime: 10 * 60}
	if err := store.Reserve(ctx, KindRoom, first, noCheck); err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	if first.ID == 0 || first.CreatedAt.IsZero() {
		t.Errorf("expected id and created_at to be filled, got %+v", first)
	}

	overlap := &Booking{Requester: "B", Purpose: "P", Date: date, StartTime: 9*60 + 15, EndTime: 9*60 + 45}
	if err := store.Reserve(ctx, KindRoom, overlap, noCheck); !errors.Is(err, ErrBookingOverlap) {
		t.Fatalf("expected the constraint to reject an overlap, got %v", err)
	}

	_, err := store.pool.Exec(ctx, `INSERT INTO `+KindRoom.Table()+` (requester, purpose, date, start_time, end_time)
		VALUES ('C', 'P', $1::date, '09:30', '10:30')`, date)
	if !isExclusionViolation(err) {
		t.Fatalf("expected a 23P01 error from a direct insert, got %v", err)
	}

	adjacent := &Booking{Requester: "D", Purpose: "P", Date: date, StartTime: 10 * 60, EndTime: 11 * 60}
	if err := store.Reserve(ctx, KindRoom, adjacent, noCheck); err != nil {
		t.Errorf("adjacent booking rejected: %v", err)
	}

	other := &Booking{Requester: "E", Purpose: "P", Date: date, StartTime: 9 * 60, EndTime: 10 * 60}
	if err := store.Reserve(ctx, KindCar, other, noCheck); err != nil {
		t.Errorf("car booking blocked by room booking: %v", err)
	}
}

func TestPGStoreDelete(t *testing.T) {
	store, date := newPGTestStore(t)
	ctx := context.Background()

	b := &Booking{Requester: "A", Purpose: "P", Date: date, StartTime: 8 * 60, EndTime: 8*60 + 30}
	if err := store.Reserve(ctx, KindRoom, b, func([]Booking) error { return nil }); err != nil {
		t.Fatal(err)
	}
	got, err := store.DeleteBooking(ctx, KindRoom, b.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != b.ID || got.Requester != "A" || got.StartTime.String() != "08:00" {
		t.Errorf("unexpected deleted booking %+v", got)
	}
	if _, err := store.DeleteBooking(ctx, KindRoom, b.ID); !errors.Is(err, ErrBookingNotFound) {
		t.Errorf("expected not found on second delete, got %v", err)
	}
}
