package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"office-booking/internal/apperrors"
	"office-booking/internal/schedule"
)

// SubmitBooking runs the three validation gates (completeness, interval,
// conflict) in order and stores the booking only when all pass. The
// conflict gate and the insert run inside Store.Reserve, so two concurrent
// submissions cannot both pass against the same snapshot.
func (a *App) SubmitBooking(ctx context.Context, actor Actor, kind Kind, req BookingRequest) (*Booking, error) {
	if !actor.CanBook() {
		return nil, apperrors.Unauthorized(apperrors.MsgLoginRequired)
	}

	sanitizeRequest(&req)
	if err := a.checkComplete(&req); err != nil {
		return nil, err
	}

	b, err := parseRequest(req)
	if err != nil {
		return nil, err
	}
	if !b.Span().Interval.Valid() {
		return nil, apperrors.InvalidInterval()
	}

	err = a.Store.Reserve(ctx, kind, b, func(existing []Booking) error {
		if hit, ok := schedule.FindConflict(b.Span(), spans(existing)); ok {
			return apperrors.SlotConflict(hit.ID)
		}
		return nil
	})
	if err != nil {
		appErr := apperrors.AsAppError(storeError(kind, 0, err))
		if appErr.Code == apperrors.CodeInternal {
			a.Log.Error("Failed to create booking", "kind", kind.String(), "date", b.Date, "error", err)
		} else {
			a.Log.Info("Booking rejected", "kind", kind.String(), "date", b.Date, "code", appErr.Code)
		}
		return nil, appErr
	}

	a.Log.Info("Booking created successfully",
		"kind", kind.String(),
		"id", b.ID,
		"date", b.Date,
		"start_time", b.StartTime.String(),
		"end_time", b.EndTime.String(),
		"actor", actor.Role.String(),
	)
	a.notifyCreated(ctx, kind, *b)
	return b, nil
}

// CreatedMessage is the notice shown after a successful submission.
func CreatedMessage(kind Kind, b *Booking) string {
	return fmt.Sprintf("%s booked for %s on %s from %s to %s!", kind.Label(), b.Requester, b.Date, b.StartTime, b.EndTime)
}

func sanitizeRequest(req *BookingRequest) {
	req.Requester = strings.TrimSpace(req.Requester)
	req.Purpose = strings.TrimSpace(req.Purpose)
	req.Date = strings.TrimSpace(req.Date)
	req.StartTime = strings.TrimSpace(req.StartTime)
	req.EndTime = strings.TrimSpace(req.EndTime)
}

func (a *App) checkComplete(req *BookingRequest) error {
	err := a.validate.Struct(req)
	if err == nil {
		return nil
	}
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return apperrors.Internal(apperrors.MsgInternal, err)
	}
	fields := make([]string, 0, len(validationErrs))
	for _, fe := range validationErrs {
		fields = append(fields, fe.Field())
	}
	return apperrors.MissingField(fields)
}

func parseRequest(req BookingRequest) (*Booking, error) {
	if _, err := time.Parse(schedule.DateLayout, req.Date); err != nil {
		return nil, apperrors.InvalidInput(fmt.Sprintf("Invalid date %q, expected YYYY-MM-DD.", req.Date))
	}
	start, err := parseSlotTime("start", req.StartTime)
	if err != nil {
		return nil, err
	}
	end, err := parseSlotTime("end", req.EndTime)
	if err != nil {
		return nil, err
	}
	return &Booking{
		Requester: req.Requester,
		Purpose:   req.Purpose,
		Date:      req.Date,
		StartTime: start,
		EndTime:   end,
	}, nil
}

func parseSlotTime(field, s string) (schedule.TimeOfDay, error) {
	t, err := schedule.ParseTimeOfDay(s)
	if err != nil {
		return 0, apperrors.InvalidInput(fmt.Sprintf("Invalid %s time %q, expected HH:MM.", field, s)).
			WithDetails(map[string]any{"field": field})
	}
	return t, nil
}

// DeleteBooking removes a booking. Only admins may delete.
func (a *App) DeleteBooking(ctx context.Context, actor Actor, kind Kind, id int64) (Booking, error) {
	if !actor.CanDelete() {
		a.Log.Warn("Delete refused", "kind", kind.String(), "id", id, "actor", actor.Role.String())
		return Booking{}, apperrors.Unauthorized(apperrors.MsgAdminOnly)
	}

	b, err := a.Store.DeleteBooking(ctx, kind, id)
	if err != nil {
		if !errors.Is(err, ErrBookingNotFound) {
			a.Log.Error("Failed to delete booking", "kind", kind.String(), "id", id, "error", err)
		}
		return Booking{}, storeError(kind, id, err)
	}

	a.Log.Info("Booking deleted", "kind", kind.String(), "id", id, "date", b.Date)
	a.notifyDeleted(ctx, kind, b)
	return b, nil
}

// DeletedMessage is the notice shown after a successful delete.
func DeletedMessage(b Booking) string {
	return fmt.Sprintf("Booking deleted: %s on %s from %s to %s", b.Requester, b.Date, b.StartTime, b.EndTime)
}

type WeekView struct {
	Kind  Kind
	Week  schedule.Week
	Slots []schedule.TimeOfDay
	Grid  schedule.Grid
}

// WeekView builds the schedule grid for the week offset weeks from now.
func (a *App) WeekView(ctx context.Context, kind Kind, offset int) (*WeekView, error) {
	week := schedule.ResolveWeek(offset, a.Now())
	slots := schedule.Slots()

	bookings, err := a.Store.ListBookingsInRange(ctx, kind, week.FirstISO(), week.LastISO())
	if err != nil {
		return nil, apperrors.Internal(apperrors.MsgInternal, err)
	}

	booked := spans(bookings)
	grid := schedule.BuildGrid(week.Days, slots, booked)
	for _, c := range grid.Contested(booked) {
		a.Log.Warn("Slot claimed by overlapping bookings",
			"kind", kind.String(), "date", c.Date, "slot", c.Slot.String(), "booking_ids", c.BookingIDs)
	}

	return &WeekView{Kind: kind, Week: week, Slots: slots, Grid: grid}, nil
}

type BookingForm struct {
	Kind         Kind
	Week         schedule.Week
	Slots        []schedule.TimeOfDay
	EndTimes     []schedule.TimeOfDay
	PrefillDate  string
	PrefillStart string
	PrefillEnd   string
}

// BookingForm prepares the booking form. A start time that does not parse,
// or is not a slot boundary, yields no start/end prefill rather than an error.
func (a *App) BookingForm(kind Kind, offset int, date, start string) *BookingForm {
	form := &BookingForm{
		Kind:     kind,
		Week:     schedule.ResolveWeek(offset, a.Now()),
		Slots:    schedule.Slots(),
		EndTimes: schedule.EndTimes(),
	}
	// the date select only offers the displayed week
	if form.Week.Contains(date) {
		form.PrefillDate = date
	}
	if start == "" {
		return form
	}
	t, err := schedule.ParseTimeOfDay(start)
	if err != nil || !t.OnGrid() {
		return form
	}
	end := t.Add(kind.DefaultDuration())
	if last := form.EndTimes[len(form.EndTimes)-1]; end > last {
		end = last
	}
	form.PrefillStart = t.String()
	form.PrefillEnd = end.String()
	return form
}

type BookingLists struct {
	Kind     Kind
	Today    string
	Upcoming []Booking
	Past     []Booking
}

// ListBookings splits bookings into upcoming (today onward) and past.
func (a *App) ListBookings(ctx context.Context, kind Kind) (*BookingLists, error) {
	today := a.Today()
	upcoming, err := a.Store.ListUpcoming(ctx, kind, today)
	if err != nil {
		return nil, apperrors.Internal(apperrors.MsgInternal, err)
	}
	past, err := a.Store.ListPast(ctx, kind, today)
	if err != nil {
		return nil, apperrors.Internal(apperrors.MsgInternal, err)
	}
	return &BookingLists{Kind: kind, Today: today, Upcoming: upcoming, Past: past}, nil
}

// TodayBookings returns today's bookings of every kind.
func (a *App) TodayBookings(ctx context.Context) ([]TodayEntry, error) {
	today := a.Today()
	out := []TodayEntry{}
	for _, kind := range Kinds {
		bookings, err := a.Store.ListBookingsInRange(ctx, kind, today, today)
		if err != nil {
			return nil, apperrors.Internal(apperrors.MsgInternal, err)
		}
		for _, b := range bookings {
			out = append(out, TodayEntry{
				Resource:  kind.String(),
				Requester: b.Requester,
				Purpose:   b.Purpose,
				StartTime: b.StartTime.String(),
				EndTime:   b.EndTime.String(),
			})
		}
	}
	return out, nil
}

func (a *App) Today() string {
	return a.Now().Format(schedule.DateLayout)
}
