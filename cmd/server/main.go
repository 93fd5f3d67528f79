package main

import (
	"context"

	"github.com/gin-gonic/gin"

	"office-booking/internal/app"
	"office-booking/internal/config"
	"office-booking/internal/server"
)

const ServiceName = "office-booking"

func main() {
	cfg := config.Load(ServiceName)
	log := cfg.Log
	ctx := context.Background()

	pool, err := app.OpenPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal("Failed to connect to database", "error", err)
	}
	defer pool.Close()

	store := app.NewPGStore(pool)
	if err := store.EnsureSchema(ctx); err != nil {
		log.Fatal("Failed to prepare schema", "error", err)
	}

	auth, err := app.NewAuthenticator(cfg.SessionSecret, cfg.SessionTTL,
		app.Credential{Username: cfg.AdminUsername, Password: cfg.AdminPassword, PasswordHash: cfg.AdminPasswordHash, Role: app.RoleAdmin},
		app.Credential{Username: cfg.WorkmateUsername, Password: cfg.WorkmatePassword, PasswordHash: cfg.WorkmatePasswordHash, Role: app.RoleWorkmate},
	)
	if err != nil {
		log.Fatal("Failed to set up authentication", "error", err)
	}

	deps := app.Deps{
		Store:    store,
		Auth:     auth,
		Calendar: app.InitGoogleCalendarConfig(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRedirectURL),
		Log:      log,
		Location: cfg.Location,
	}

	if cfg.RedisURL != "" {
		rdb, err := app.OpenRedis(ctx, cfg.RedisURL)
		if err != nil {
			log.Fatal("Failed to connect to Redis", "error", err)
		}
		defer rdb.Close()
		deps.Limiter = app.NewRedisLoginLimiter(rdb, cfg.LoginRateLimit, cfg.LoginRateWindow, ServiceName+":login")
		log.Info("Login rate limiting enabled", "limit", cfg.LoginRateLimit, "window", cfg.LoginRateWindow)
	}

	if len(cfg.KafkaBrokers) > 0 {
		publisher := app.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer func() {
			if err := publisher.Close(); err != nil {
				log.Warn("Failed to close Kafka publisher", "error", err)
			}
		}()
		deps.Observers = append(deps.Observers, publisher)
		log.Info("Publishing booking events", "topic", cfg.KafkaTopic)
	}

	if cfg.GoogleCalendarEnabled() && deps.Calendar != nil {
		mirror, err := app.NewCalendarMirror(ctx, deps.Calendar, cfg.GoogleToken, map[app.Kind]string{
			app.KindRoom: cfg.GoogleRoomCalendarID,
			app.KindCar:  cfg.GoogleCarCalendarID,
		}, cfg.Location)
		if err != nil {
			log.Fatal("Failed to set up Google Calendar mirror", "error", err)
		}
		deps.Observers = append(deps.Observers, mirror)
		log.Info("Mirroring bookings to Google Calendar")
	}

	application := app.New(deps)

	gin.SetMode(cfg.GinMode)
	router, err := application.Router(cfg.TrustedProxies)
	if err != nil {
		log.Fatal("Failed to build router", "error", err)
	}

	if err := server.Run(cfg, server.New(cfg, router)); err != nil {
		log.Error("HTTP server failed", "error", err)
	}
}
