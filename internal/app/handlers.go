package app

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/gin-gonic/gin"

	"office-booking/internal/apperrors"
)

const flashCookie = "flash"

func setFlash(c *gin.Context, msg string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(flashCookie, msg, 0, "/", "", c.Request.TLS != nil, true)
}

// popFlash returns the pending notice, if any, and clears it.
func popFlash(c *gin.Context) string {
	msg, err := c.Cookie(flashCookie)
	if err != nil || msg == "" {
		return ""
	}
	c.SetCookie(flashCookie, "", -1, "/", "", c.Request.TLS != nil, true)
	return msg
}

// weekOffset reads ?week_offset=, treating anything unparseable as the
// current week.
func weekOffset(c *gin.Context) int {
	n, err := strconv.Atoi(c.Query("week_offset"))
	if err != nil {
		return 0
	}
	return n
}

func (a *App) page(c *gin.Context, kind Kind, data gin.H) gin.H {
	data["Kind"] = kind
	data["Kinds"] = Kinds
	data["Actor"] = actorFrom(c)
	data["Flash"] = popFlash(c)
	return data
}

func (a *App) renderError(c *gin.Context, kind Kind, err error) {
	appErr := apperrors.AsAppError(err)
	if appErr.Code == apperrors.CodeInternal {
		a.Log.Error("Request failed", "path", c.Request.URL.Path, "error", err)
	}
	c.HTML(appErr.StatusCode(), "error.html", a.page(c, kind, gin.H{"Error": appErr.Message}))
}

// GET /{kind}?week_offset=
func (a *App) WeekHandler(kind Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		view, err := a.WeekView(c.Request.Context(), kind, weekOffset(c))
		if err != nil {
			a.renderError(c, kind, err)
			return
		}
		c.HTML(http.StatusOK, "index.html", a.page(c, kind, gin.H{"View": view}))
	}
}

// GET /{kind}/book?week_offset=&date=&time=
func (a *App) BookFormHandler(kind Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		form := a.BookingForm(kind, weekOffset(c), c.Query("date"), c.Query("time"))
		c.HTML(http.StatusOK, "book.html", a.page(c, kind, gin.H{"Form": form}))
	}
}

// POST /{kind}/book
func (a *App) SubmitBookingHandler(kind Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req BookingRequest
		if err := c.ShouldBind(&req); err != nil {
			// a malformed week_offset only loses the navigation state
			a.Log.Debug("Booking form bind error", "error", err)
		}

		b, err := a.SubmitBooking(c.Request.Context(), actorFrom(c), kind, req)
		if err != nil {
			appErr := apperrors.AsAppError(err)
			setFlash(c, appErr.Message)
			q := url.Values{}
			q.Set("week_offset", strconv.Itoa(req.WeekOffset))
			if req.Date != "" {
				q.Set("date", req.Date)
			}
			if req.StartTime != "" {
				q.Set("time", req.StartTime)
			}
			c.Redirect(http.StatusSeeOther, fmt.Sprintf("/%s/book?%s", kind, q.Encode()))
			return
		}

		setFlash(c, CreatedMessage(kind, b))
		c.Redirect(http.StatusSeeOther, fmt.Sprintf("/%s?week_offset=%d", kind, req.WeekOffset))
	}
}

// GET /{kind}/quick_book?date=&time=&week_offset=
func (a *App) QuickBookHandler(kind Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		q := url.Values{}
		q.Set("week_offset", strconv.Itoa(weekOffset(c)))
		date, t := c.Query("date"), c.Query("time")
		if date != "" && t != "" {
			q.Set("date", date)
			q.Set("time", t)
		}
		c.Redirect(http.StatusSeeOther, fmt.Sprintf("/%s/book?%s", kind, q.Encode()))
	}
}

// GET /{kind}/bookings
func (a *App) BookingsHandler(kind Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		lists, err := a.ListBookings(c.Request.Context(), kind)
		if err != nil {
			a.renderError(c, kind, err)
			return
		}
		c.HTML(http.StatusOK, "bookings.html", a.page(c, kind, gin.H{"Lists": lists}))
	}
}

// POST /{kind}/delete/:id
func (a *App) DeleteBookingHandler(kind Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		back := backTarget(c, fmt.Sprintf("/%s/bookings", kind))

		id, err := strconv.ParseInt(c.Param("id"), 10, 64)
		if err != nil {
			setFlash(c, apperrors.MsgNotFound)
			c.Redirect(http.StatusSeeOther, back)
			return
		}

		b, err := a.DeleteBooking(c.Request.Context(), actorFrom(c), kind, id)
		if err != nil {
			setFlash(c, apperrors.AsAppError(err).Message)
			c.Redirect(http.StatusSeeOther, back)
			return
		}
		setFlash(c, DeletedMessage(b))
		c.Redirect(http.StatusSeeOther, back)
	}
}

// backTarget returns the referring page when it is on this host.
func backTarget(c *gin.Context, fallback string) string {
	ref, err := url.Parse(c.Request.Referer())
	if err != nil || ref.Path == "" {
		return fallback
	}
	if ref.Host != "" && ref.Host != c.Request.Host {
		return fallback
	}
	if ref.RawQuery != "" {
		return ref.Path + "?" + ref.RawQuery
	}
	return ref.Path
}

// GET /{kind}/week.ics?week_offset=
func (a *App) WeekICSHandler(kind Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := a.WeekCalendar(c.Request.Context(), kind, weekOffset(c))
		if err != nil {
			appErr := apperrors.AsAppError(err)
			if appErr.Code == apperrors.CodeInternal {
				a.Log.Error("Failed to export week", "kind", kind.String(), "error", err)
			}
			c.JSON(appErr.StatusCode(), appErr.Response())
			return
		}
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", kind.String()+"-week.ics"))
		c.Data(http.StatusOK, "text/calendar; charset=utf-8", body)
	}
}

// GET /api/today
func (a *App) TodayHandler(c *gin.Context) {
	entries, err := a.TodayBookings(c.Request.Context())
	if err != nil {
		appErr := apperrors.AsAppError(err)
		a.Log.Error("Failed to list today's bookings", "error", err)
		c.JSON(appErr.StatusCode(), appErr.Response())
		return
	}
	c.JSON(http.StatusOK, entries)
}

// GET /healthz
func (a *App) HealthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// GET /readyz
func (a *App) ReadyHandler(c *gin.Context) {
	if err := a.Store.Ping(c.Request.Context()); err != nil {
		a.Log.Warn("Readiness check failed", "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}
