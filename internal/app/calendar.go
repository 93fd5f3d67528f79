package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"office-booking/internal/schedule"
)

// GoogleCalendarConfig holds OAuth2 configuration
type GoogleCalendarConfig struct {
	Config *oauth2.Config
}

// InitGoogleCalendarConfig returns nil when the client credentials are not set.
func InitGoogleCalendarConfig(clientID, clientSecret, redirectURL string) *GoogleCalendarConfig {
	if clientID == "" || clientSecret == "" || redirectURL == "" {
		return nil
	}

	config := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		Scopes: []string{
			calendar.CalendarEventsScope,
		},
		Endpoint: google.Endpoint,
	}

	return &GoogleCalendarConfig{Config: config}
}

const (
	oauthStateCookie = "oauth_state"
	oauthStateTTL    = 10 * time.Minute
)

// GoogleAuthHandler starts the OAuth2 flow an admin uses to obtain the
// token the calendar mirror runs with.
func (a *App) GoogleAuthHandler(c *gin.Context) {
	if a.Calendar == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Google Calendar not configured"})
		return
	}

	state := uuid.NewString()
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(oauthStateCookie, state, int(oauthStateTTL/time.Second), "/", "", c.Request.TLS != nil, true)
	url := a.Calendar.Config.AuthCodeURL(state, oauth2.AccessTypeOffline)
	c.JSON(http.StatusOK, gin.H{
		"auth_url": url,
		"state":    state,
	})
}

// GoogleOAuth2CallbackHandler exchanges the authorization code. The token
// is shown once so the operator can store it as GOOGLE_TOKEN.
func (a *App) GoogleOAuth2CallbackHandler(c *gin.Context) {
	if a.Calendar == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Google Calendar not configured"})
		return
	}

	state, err := c.Cookie(oauthStateCookie)
	if err != nil || state == "" || c.Query("state") != state {
		a.Log.Warn("OAuth callback state mismatch", "client_ip", c.ClientIP())
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid oauth state"})
		return
	}
	c.SetCookie(oauthStateCookie, "", -1, "/", "", c.Request.TLS != nil, true)

	code := c.Query("code")
	if code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "authorization code required"})
		return
	}

	token, err := a.Calendar.Config.Exchange(c.Request.Context(), code)
	if err != nil {
		a.Log.Warn("Google token exchange failed", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to exchange code for token"})
		return
	}

	tokenJSON, err := json.Marshal(token)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to encode token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Authorization successful, store the token as GOOGLE_TOKEN",
		"state":   state,
		"token":   string(tokenJSON),
	})
}

// CalendarMirror copies bookings into one Google calendar per kind.
type CalendarMirror struct {
	srv       *calendar.Service
	calendars map[Kind]string
	loc       *time.Location
}

// NewCalendarMirror builds a mirror authenticated with a stored OAuth2 token
// (the JSON produced by GoogleOAuth2CallbackHandler).
func NewCalendarMirror(ctx context.Context, cfg *GoogleCalendarConfig, tokenJSON string, calendars map[Kind]string, loc *time.Location) (*CalendarMirror, error) {
	if cfg == nil {
		return nil, errors.New("google calendar not configured")
	}
	var token oauth2.Token
	if err := json.Unmarshal([]byte(tokenJSON), &token); err != nil {
		return nil, fmt.Errorf("invalid token format: %w", err)
	}
	client := cfg.Config.Client(ctx, &token)
	return NewCalendarMirrorWithOptions(ctx, calendars, loc, option.WithHTTPClient(client))
}

func NewCalendarMirrorWithOptions(ctx context.Context, calendars map[Kind]string, loc *time.Location, opts ...option.ClientOption) (*CalendarMirror, error) {
	srv, err := calendar.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar service: %w", err)
	}
	if loc == nil {
		loc = time.Local
	}
	return &CalendarMirror{srv: srv, calendars: calendars, loc: loc}, nil
}

func (m *CalendarMirror) Name() string { return "google-calendar" }

func (m *CalendarMirror) BookingCreated(ctx context.Context, kind Kind, b Booking) error {
	calendarID, ok := m.calendars[kind]
	if !ok || calendarID == "" {
		return nil
	}
	start, err := schedule.At(b.Date, b.StartTime, m.loc)
	if err != nil {
		return err
	}
	end, err := schedule.At(b.Date, b.EndTime, m.loc)
	if err != nil {
		return err
	}

	event := &calendar.Event{
		Id:          calendarEventID(kind, b.ID),
		Summary:     fmt.Sprintf("%s: %s", kind.Label(), b.Requester),
		Description: b.Purpose,
		Start:       &calendar.EventDateTime{DateTime: start.Format(time.RFC3339), TimeZone: m.loc.String()},
		End:         &calendar.EventDateTime{DateTime: end.Format(time.RFC3339), TimeZone: m.loc.String()},
	}
	_, err = m.srv.Events.Insert(calendarID, event).Context(ctx).Do()
	return err
}

func (m *CalendarMirror) BookingDeleted(ctx context.Context, kind Kind, b Booking) error {
	calendarID, ok := m.calendars[kind]
	if !ok || calendarID == "" {
		return nil
	}
	err := m.srv.Events.Delete(calendarID, calendarEventID(kind, b.ID)).Context(ctx).Do()
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && (apiErr.Code == http.StatusNotFound || apiErr.Code == http.StatusGone) {
		return nil
	}
	return err
}

// calendarEventID is deterministic so deletes can find the mirrored event.
// Google requires base32hex characters (a-v, 0-9), which these satisfy.
func calendarEventID(kind Kind, id int64) string {
	return fmt.Sprintf("%sbooking%d", kind.String(), id)
}
