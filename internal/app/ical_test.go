package app

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/emersion/go-ical"

	"office-booking/internal/apperrors"
)

func TestWeekCalendar(t *testing.T) {
	berlin, err := time.LoadLocation("Europe/Berlin")
	if err != nil {
		t.Skip("tzdata not available")
	}
	a, _, _ := newTestApp(t)
	a.Location = berlin
	mustBook(t, a, KindCar, "Bob", "2026-10-15", "13:00", "15:00")
	mustBook(t, a, KindCar, "NextWeek", "2026-10-20", "13:00", "15:00")

	body, err := a.WeekCalendar(context.Background(), KindCar, 0)
	if err != nil {
		t.Fatal(err)
	}
	cal, err := ical.NewDecoder(bytes.NewReader(body)).Decode()
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	events := cal.Events()
	if len(events) != 1 {
		t.Fatalf("expected only this week's booking, got %d events", len(events))
	}

	ev := events[0]
	if uid, _ := ev.Props.Text(ical.PropUID); uid != "car-1@office-booking" {
		t.Errorf("unexpected uid %q", uid)
	}
	if summary, _ := ev.Props.Text(ical.PropSummary); summary != "Company car: Bob" {
		t.Errorf("unexpected summary %q", summary)
	}
	start, err := ev.DateTimeStart(time.UTC)
	if err != nil {
		t.Fatal(err)
	}
	// 13:00 CEST
	if want := time.Date(2026, 10, 15, 11, 0, 0, 0, time.UTC); !start.Equal(want) {
		t.Errorf("expected start %v, got %v", want, start)
	}
}

func TestWeekCalendarEmptyWeek(t *testing.T) {
	a, _, _ := newTestApp(t)
	_, err := a.WeekCalendar(context.Background(), KindRoom, -3)
	if !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("expected not found for an empty week, got %v", err)
	}
}
