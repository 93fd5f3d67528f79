package app

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/emersion/go-ical"

	"office-booking/internal/apperrors"
	"office-booking/internal/schedule"
)

const icalProductID = "-//office-booking//weekly schedule//EN"

var ErrEmptyWeek = &apperrors.AppError{
	Code:       apperrors.CodeNotFound,
	Message:    "No bookings this week.",
	HTTPStatus: http.StatusNotFound,
}

// WeekCalendar encodes the bookings of one week as an iCalendar document.
func (a *App) WeekCalendar(ctx context.Context, kind Kind, offset int) ([]byte, error) {
	week := schedule.ResolveWeek(offset, a.Now())
	bookings, err := a.Store.ListBookingsInRange(ctx, kind, week.FirstISO(), week.LastISO())
	if err != nil {
		return nil, apperrors.Internal(apperrors.MsgInternal, err)
	}

	// a VCALENDAR needs at least one component
	if len(bookings) == 0 {
		return nil, ErrEmptyWeek
	}

	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, icalProductID)
	cal.Props.SetText("X-WR-CALNAME", fmt.Sprintf("%s bookings %s", kind.Label(), week.Display))

	stamp := a.Now().UTC()
	for _, b := range bookings {
		event, err := a.icalEvent(kind, b, stamp)
		if err != nil {
			return nil, apperrors.Internal(apperrors.MsgInternal, err)
		}
		cal.Children = append(cal.Children, event.Component)
	}

	var buf bytes.Buffer
	if err := ical.NewEncoder(&buf).Encode(cal); err != nil {
		return nil, apperrors.Internal(apperrors.MsgInternal, err)
	}
	return buf.Bytes(), nil
}

func (a *App) icalEvent(kind Kind, b Booking, stamp time.Time) (*ical.Event, error) {
	start, err := schedule.At(b.Date, b.StartTime, a.Location)
	if err != nil {
		return nil, err
	}
	end, err := schedule.At(b.Date, b.EndTime, a.Location)
	if err != nil {
		return nil, err
	}

	event := ical.NewEvent()
	event.Props.SetText(ical.PropUID, fmt.Sprintf("%s-%d@office-booking", kind.String(), b.ID))
	event.Props.SetDateTime(ical.PropDateTimeStamp, stamp)
	event.Props.SetDateTime(ical.PropDateTimeStart, start.UTC())
	event.Props.SetDateTime(ical.PropDateTimeEnd, end.UTC())
	event.Props.SetText(ical.PropSummary, fmt.Sprintf("%s: %s", kind.Label(), b.Requester))
	event.Props.SetText(ical.PropDescription, b.Purpose)
	return event, nil
}
