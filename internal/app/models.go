package app

import (
	"fmt"
	"time"

	"office-booking/internal/schedule"
)

// Kind is a bookable resource type. Each kind has its own table and its
// own conflict domain.
type Kind int

const (
	KindRoom Kind = iota + 1
	KindCar
)

var Kinds = []Kind{KindRoom, KindCar}

func ParseKind(s string) (Kind, error) {
	switch s {
	case "room":
		return KindRoom, nil
	case "car":
		return KindCar, nil
	}
	return 0, fmt.Errorf("unknown resource kind %q", s)
}

func (k Kind) String() string {
	switch k {
	case KindRoom:
		return "room"
	case KindCar:
		return "car"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

func (k Kind) Label() string {
	switch k {
	case KindRoom:
		return "Meeting room"
	case KindCar:
		return "Company car"
	}
	return k.String()
}

// Table is the storage table for the kind. Only known kinds have one.
func (k Kind) Table() string {
	switch k {
	case KindRoom:
		return "room_bookings"
	case KindCar:
		return "car_bookings"
	}
	return ""
}

// DefaultDuration is the length suggested by the booking form.
func (k Kind) DefaultDuration() time.Duration {
	if k == KindCar {
		return 2 * time.Hour
	}
	return time.Hour
}

type Role int

const (
	RoleAnonymous Role = iota
	RoleWorkmate
	RoleAdmin
)

func (r Role) String() string {
	switch r {
	case RoleAdmin:
		return "admin"
	case RoleWorkmate:
		return "workmate"
	}
	return "anonymous"
}

func parseRole(s string) Role {
	switch s {
	case "admin":
		return RoleAdmin
	case "workmate":
		return RoleWorkmate
	}
	return RoleAnonymous
}

// Actor is the authorization context passed to every operation.
type Actor struct {
	Role     Role
	Username string
}

func (a Actor) CanBook() bool   { return a.Role == RoleWorkmate || a.Role == RoleAdmin }
func (a Actor) CanDelete() bool { return a.Role == RoleAdmin }

type Booking struct {
	ID        int64              `json:"id"`
	Requester string             `json:"requester"`
	Purpose   string             `json:"purpose"`
	Date      string             `json:"date"`
	StartTime schedule.TimeOfDay `json:"start_time"`
	EndTime   schedule.TimeOfDay `json:"end_time"`
	CreatedAt time.Time          `json:"created_at"`
}

func (b Booking) Span() schedule.Span {
	return schedule.Span{
		ID:       b.ID,
		Date:     b.Date,
		Interval: schedule.Interval{Start: b.StartTime, End: b.EndTime},
		Occupant: b.Requester,
		Purpose:  b.Purpose,
	}
}

func spans(bookings []Booking) []schedule.Span {
	out := make([]schedule.Span, len(bookings))
	for i, b := range bookings {
		out[i] = b.Span()
	}
	return out
}

// BookingRequest is the submitted booking form.
type BookingRequest struct {
	Requester  string `form:"requester" json:"requester" validate:"required"`
	Purpose    string `form:"purpose" json:"purpose" validate:"required"`
	Date       string `form:"date" json:"date" validate:"required"`
	StartTime  string `form:"start_time" json:"start_time" validate:"required"`
	EndTime    string `form:"end_time" json:"end_time" validate:"required"`
	WeekOffset int    `form:"week_offset" json:"week_offset"`
}

// TodayEntry is one record of the read-only today feed.
type TodayEntry struct {
	Resource  string `json:"resource"`
	Requester string `json:"requester"`
	Purpose   string `json:"purpose"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}
