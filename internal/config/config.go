package config

import (
	"fmt"
	"net"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"office-booking/internal/logger"
)

const (
	EnvPort                 = "PORT"
	EnvDatabaseURL          = "DATABASE_URL"
	EnvTimezone             = "TIMEZONE"
	EnvLogLevel             = "LOG_LEVEL"
	EnvGinMode              = "GIN_MODE"
	EnvSessionSecret        = "SESSION_SECRET"
	EnvSessionTTL           = "SESSION_TTL"
	EnvAdminUsername        = "ADMIN_USERNAME"
	EnvAdminPassword        = "ADMIN_PASSWORD"
	EnvAdminPasswordHash    = "ADMIN_PASSWORD_HASH"
	EnvWorkmateUsername     = "WORKMATE_USERNAME"
	EnvWorkmatePassword     = "WORKMATE_PASSWORD"
	EnvWorkmatePasswordHash = "WORKMATE_PASSWORD_HASH"
	EnvRedisURL             = "REDIS_URL"
	EnvLoginRateLimit       = "LOGIN_RATE_LIMIT"
	EnvLoginRateWindow      = "LOGIN_RATE_WINDOW"
	EnvTrustedProxies       = "TRUSTED_PROXIES"
	EnvKafkaBrokers         = "KAFKA_BROKERS"
	EnvKafkaTopic           = "KAFKA_TOPIC"
	EnvGoogleClientID       = "GOOGLE_CLIENT_ID"
	EnvGoogleClientSecret   = "GOOGLE_CLIENT_SECRET"
	EnvGoogleRedirectURL    = "GOOGLE_REDIRECT_URL"
	EnvGoogleToken          = "GOOGLE_TOKEN"
	EnvGoogleRoomCalendarID = "GOOGLE_ROOM_CALENDAR_ID"
	EnvGoogleCarCalendarID  = "GOOGLE_CAR_CALENDAR_ID"
	EnvReadTimeout          = "READ_TIMEOUT"
	EnvWriteTimeout         = "WRITE_TIMEOUT"
	EnvIdleTimeout          = "IDLE_TIMEOUT"
	EnvShutdownTimeout      = "SHUTDOWN_TIMEOUT"
)

const (
	DefaultPort             = "8080"
	DefaultTimezone         = "Local"
	DefaultLogLevel         = logger.INFO
	DefaultGinMode          = "release"
	DefaultSessionTTL       = 0
	DefaultAdminUsername    = "admin"
	DefaultWorkmateUsername = "workmate"
	DefaultLoginRateLimit   = 10
	DefaultLoginRateWindow  = time.Minute
	DefaultKafkaTopic       = "office-booking.bookings"
	DefaultReadTimeout      = 10 * time.Second
	DefaultWriteTimeout     = 10 * time.Second
	DefaultIdleTimeout      = 60 * time.Second
	DefaultShutdownTimeout  = 15 * time.Second
)

type Config struct {
	Port        string
	DatabaseURL string
	Timezone    string
	Location    *time.Location
	GinMode     string

	// TrustedProxies lists the addresses or CIDRs allowed to set
	// X-Forwarded-For. Empty trusts no proxy.
	TrustedProxies []string

	SessionSecret string
	// SessionTTL of zero issues sessions without an expiry.
	SessionTTL time.Duration

	AdminUsername        string
	AdminPassword        string
	AdminPasswordHash    string
	WorkmateUsername     string
	WorkmatePassword     string
	WorkmatePasswordHash string

	RedisURL        string
	LoginRateLimit  int
	LoginRateWindow time.Duration

	KafkaBrokers []string
	KafkaTopic   string

	GoogleClientID       string
	GoogleClientSecret   string
	GoogleRedirectURL    string
	GoogleToken          string
	GoogleRoomCalendarID string
	GoogleCarCalendarID  string

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	Log *logger.Logger
}

func Load(serviceName string) *Config {
	cfg := &Config{
		Port:        getEnvStr(EnvPort, DefaultPort),
		DatabaseURL: getEnvStr(EnvDatabaseURL, ""),
		Timezone:    getEnvStr(EnvTimezone, DefaultTimezone),
		GinMode:     getEnvStr(EnvGinMode, DefaultGinMode),

		TrustedProxies: getEnvList(EnvTrustedProxies),

		SessionSecret: getEnvStr(EnvSessionSecret, ""),
		SessionTTL:    getEnvDuration(EnvSessionTTL, DefaultSessionTTL),

		AdminUsername:        getEnvStr(EnvAdminUsername, DefaultAdminUsername),
		AdminPassword:        getEnvStr(EnvAdminPassword, ""),
		AdminPasswordHash:    getEnvStr(EnvAdminPasswordHash, ""),
		WorkmateUsername:     getEnvStr(EnvWorkmateUsername, DefaultWorkmateUsername),
		WorkmatePassword:     getEnvStr(EnvWorkmatePassword, ""),
		WorkmatePasswordHash: getEnvStr(EnvWorkmatePasswordHash, ""),

		RedisURL:        getEnvStr(EnvRedisURL, ""),
		LoginRateLimit:  getEnvNum(EnvLoginRateLimit, DefaultLoginRateLimit),
		LoginRateWindow: getEnvDuration(EnvLoginRateWindow, DefaultLoginRateWindow),

		KafkaBrokers: getEnvList(EnvKafkaBrokers),
		KafkaTopic:   getEnvStr(EnvKafkaTopic, DefaultKafkaTopic),

		GoogleClientID:       getEnvStr(EnvGoogleClientID, ""),
		GoogleClientSecret:   getEnvStr(EnvGoogleClientSecret, ""),
		GoogleRedirectURL:    getEnvStr(EnvGoogleRedirectURL, ""),
		GoogleToken:          getEnvStr(EnvGoogleToken, ""),
		GoogleRoomCalendarID: getEnvStr(EnvGoogleRoomCalendarID, ""),
		GoogleCarCalendarID:  getEnvStr(EnvGoogleCarCalendarID, ""),

		ReadTimeout:     getEnvDuration(EnvReadTimeout, DefaultReadTimeout),
		WriteTimeout:    getEnvDuration(EnvWriteTimeout, DefaultWriteTimeout),
		IdleTimeout:     getEnvDuration(EnvIdleTimeout, DefaultIdleTimeout),
		ShutdownTimeout: getEnvDuration(EnvShutdownTimeout, DefaultShutdownTimeout),

		Log: logger.New(logger.Config{
			Level:     getEnvStr(EnvLogLevel, DefaultLogLevel),
			Format:    logger.JSON,
			AddSource: true,
			Service:   serviceName,
		}),
	}

	if err := cfg.Validate(); err != nil {
		cfg.Log.Fatal(err.Error())
	}
	cfg.LogConfiguration()
	return cfg
}

func (cfg *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(cfg.Port); err != nil || port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("Port must be between 1 and 65535, got: %s", cfg.Port))
	}

	if cfg.DatabaseURL == "" {
		errors = append(errors, "DATABASE_URL cannot be empty")
	} else if !regexp.MustCompile(`^postgres(ql)?://`).MatchString(cfg.DatabaseURL) {
		errors = append(errors, fmt.Sprintf("DATABASE_URL must start with 'postgres://' or 'postgresql://', got: %s", redactURL(cfg.DatabaseURL)))
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		errors = append(errors, fmt.Sprintf("TIMEZONE is not a known location: %s", cfg.Timezone))
	} else {
		cfg.Location = loc
	}

	if len(cfg.SessionSecret) < 16 {
		errors = append(errors, "SESSION_SECRET must be at least 16 characters")
	}
	if cfg.SessionTTL < 0 {
		errors = append(errors, fmt.Sprintf("SessionTTL cannot be negative, got: %s", cfg.SessionTTL))
	}

	if cfg.AdminUsername == "" || cfg.WorkmateUsername == "" {
		errors = append(errors, "ADMIN_USERNAME and WORKMATE_USERNAME cannot be empty")
	} else if cfg.AdminUsername == cfg.WorkmateUsername {
		errors = append(errors, "ADMIN_USERNAME and WORKMATE_USERNAME must differ")
	}
	if cfg.AdminPassword == "" && cfg.AdminPasswordHash == "" {
		errors = append(errors, "one of ADMIN_PASSWORD or ADMIN_PASSWORD_HASH is required")
	}
	if cfg.WorkmatePassword == "" && cfg.WorkmatePasswordHash == "" {
		errors = append(errors, "one of WORKMATE_PASSWORD or WORKMATE_PASSWORD_HASH is required")
	}

	for _, p := range cfg.TrustedProxies {
		if net.ParseIP(p) == nil {
			if _, _, err := net.ParseCIDR(p); err != nil {
				errors = append(errors, fmt.Sprintf("TRUSTED_PROXIES entry is not an IP or CIDR: %q", p))
			}
		}
	}

	if cfg.LoginRateLimit <= 0 {
		errors = append(errors, fmt.Sprintf("LoginRateLimit must be positive, got: %d", cfg.LoginRateLimit))
	}
	if cfg.LoginRateWindow <= 0 {
		errors = append(errors, fmt.Sprintf("LoginRateWindow must be positive, got: %s", cfg.LoginRateWindow))
	}

	if len(cfg.KafkaBrokers) > 0 && cfg.KafkaTopic == "" {
		errors = append(errors, "KAFKA_TOPIC cannot be empty when KAFKA_BROKERS is set")
	}

	if cfg.ReadTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("ReadTimeout must be positive, got: %s", cfg.ReadTimeout))
	}
	if cfg.WriteTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("WriteTimeout must be positive, got: %s", cfg.WriteTimeout))
	}
	if cfg.IdleTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("IdleTimeout must be positive, got: %s", cfg.IdleTimeout))
	}
	if cfg.ShutdownTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("ShutdownTimeout must be positive, got: %s", cfg.ShutdownTimeout))
	}

	if len(errors) > 0 {
		errMsg := "Configuration validation failed:\n"
		for i, err := range errors {
			errMsg += fmt.Sprintf("  %d. %s\n", i+1, err)
		}
		return fmt.Errorf("%s", errMsg)
	}

	return nil
}

// GoogleCalendarEnabled reports whether bookings are mirrored to Google Calendar.
func (cfg *Config) GoogleCalendarEnabled() bool {
	return cfg.GoogleClientID != "" && cfg.GoogleClientSecret != "" && cfg.GoogleToken != ""
}

func (cfg *Config) LogConfiguration() {
	cfg.Log.Info("Configuration loaded successfully",
		"port", cfg.Port,
		"database_url", redactURL(cfg.DatabaseURL),
		"timezone", cfg.Timezone,
		"gin_mode", cfg.GinMode,
		"trusted_proxies", cfg.TrustedProxies,
		"session_ttl", cfg.SessionTTL,
		"admin_username", cfg.AdminUsername,
		"workmate_username", cfg.WorkmateUsername,
		"redis_enabled", cfg.RedisURL != "",
		"login_rate_limit", cfg.LoginRateLimit,
		"login_rate_window", cfg.LoginRateWindow,
		"kafka_brokers", cfg.KafkaBrokers,
		"kafka_topic", cfg.KafkaTopic,
		"google_calendar_enabled", cfg.GoogleCalendarEnabled(),
		"read_timeout", cfg.ReadTimeout,
		"write_timeout", cfg.WriteTimeout,
		"idle_timeout", cfg.IdleTimeout,
		"shutdown_timeout", cfg.ShutdownTimeout,
	)
}

func redactURL(uri string) string {
	credentialRegex := regexp.MustCompile(`(://)[^:/@]+:[^@]+@`)
	return credentialRegex.ReplaceAllString(uri, "${1}***:***@")
}

func getEnvStr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvNum(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

func getEnvList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
