package app

import (
	"time"

	"github.com/go-playground/validator/v10"

	"office-booking/internal/logger"
)

type App struct {
	Store     Store
	Auth      *Authenticator
	Limiter   LoginLimiter
	Calendar  *GoogleCalendarConfig
	Observers []BookingObserver
	Log       *logger.Logger
	Location  *time.Location

	// Now is the reference clock for week resolution and today's date.
	Now func() time.Time

	validate *validator.Validate
}

type Deps struct {
	Store     Store
	Auth      *Authenticator
	Limiter   LoginLimiter
	Calendar  *GoogleCalendarConfig
	Observers []BookingObserver
	Log       *logger.Logger
	Location  *time.Location
	Now       func() time.Time
}

func New(d Deps) *App {
	a := &App{
		Store:     d.Store,
		Auth:      d.Auth,
		Limiter:   d.Limiter,
		Calendar:  d.Calendar,
		Observers: d.Observers,
		Log:       d.Log,
		Location:  d.Location,
		Now:       d.Now,
		validate:  validator.New(),
	}
	if a.Log == nil {
		a.Log = logger.Discard()
	}
	if a.Location == nil {
		a.Location = time.Local
	}
	if a.Now == nil {
		loc := a.Location
		a.Now = func() time.Time { return time.Now().In(loc) }
	}
	if a.Limiter == nil {
		a.Limiter = AllowAll{}
	}
	return a
}
