package app

import (
	"embed"
	"fmt"
	"html/template"
	"net/http"

	"github.com/gin-gonic/gin"
)

//go:embed templates/*.html
var templateFS embed.FS

type bookingRows struct {
	Kind     Kind
	Admin    bool
	Bookings []Booking
}

// Templates parses the embedded page templates.
func Templates() (*template.Template, error) {
	return template.New("pages").Funcs(template.FuncMap{
		"rows": func(kind Kind, admin bool, bookings []Booking) bookingRows {
			return bookingRows{Kind: kind, Admin: admin, Bookings: bookings}
		},
	}).ParseFS(templateFS, "templates/*.html")
}

// Router builds the engine with logging, recovery and every route.
// Forwarded client addresses are only honoured from trustedProxies; with
// none, ClientIP is the connection's remote address.
func (a *App) Router(trustedProxies []string) (*gin.Engine, error) {
	router := gin.New()
	if err := router.SetTrustedProxies(trustedProxies); err != nil {
		return nil, fmt.Errorf("trusted proxies: %w", err)
	}
	router.Use(a.RequestLogger(), gin.Recovery())
	if err := a.Routes(router); err != nil {
		return nil, fmt.Errorf("load templates: %w", err)
	}
	return router, nil
}

// Routes registers every page and endpoint on router.
func (a *App) Routes(router *gin.Engine) error {
	tmpl, err := Templates()
	if err != nil {
		return err
	}
	router.SetHTMLTemplate(tmpl)
	router.Use(a.ResolveActor())

	router.GET("/", func(c *gin.Context) {
		c.Redirect(http.StatusFound, "/"+KindRoom.String())
	})
	router.GET("/healthz", a.HealthHandler)
	router.GET("/readyz", a.ReadyHandler)

	router.GET("/login", a.LoginPageHandler)
	router.POST("/login", a.LoginHandler)
	router.POST("/logout", a.LogoutHandler)

	router.GET("/api/today", a.TodayHandler)

	admin := router.Group("/", RequireAdmin())
	{
		admin.GET("/admin/calendar/auth", a.GoogleAuthHandler)
		admin.GET("/oauth2callback", a.GoogleOAuth2CallbackHandler)
	}

	for _, kind := range Kinds {
		g := router.Group("/"+kind.String(), RequireLogin())
		{
			g.GET("", a.WeekHandler(kind))
			g.GET("/book", a.BookFormHandler(kind))
			g.POST("/book", a.SubmitBookingHandler(kind))
			g.GET("/quick_book", a.QuickBookHandler(kind))
			g.GET("/bookings", a.BookingsHandler(kind))
			g.POST("/delete/:id", a.DeleteBookingHandler(kind))
			g.GET("/week.ics", a.WeekICSHandler(kind))
		}
	}
	return nil
}
