package config

import (
	"fmt"
	"strings"
	"time"
	// embedded zone database for OPERATING_TIMEZONE on minimal images
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

const (
	defaultJWTSecret     = "change-me-jwt-secret"
	defaultDatabaseURL   = "tapbook.db"
	defaultSweepSchedule = "@every 1m"
)

type Config struct {
	AppEnv            string
	HTTPAddr          string
	DatabaseURL       string
	JWTSecret         string
	JWTTTL            time.Duration
	OperatingTimezone string
	Location          *time.Location
	RedisURL          string
	SweepSchedule     string
	ReminderLead      time.Duration
	LogLevel          logrus.Level
	RateLimitRPS      float64
	RateLimitBurst    int
	CORSOrigins       []string
	ShutdownTimeout   time.Duration
}

func (c *Config) IsProd() bool { return isProdLike(c.AppEnv) }

// Load reads .env files when present and then the process environment, which wins.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		// a missing file is fine; godotenv never overrides variables already set
		_ = godotenv.Load(f)
	}

	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("APP_ENV", "dev")
	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("DATABASE_URL", defaultDatabaseURL)
	v.SetDefault("JWT_SECRET", defaultJWTSecret)
	v.SetDefault("JWT_TTL", "24h")
	v.SetDefault("OPERATING_TIMEZONE", "UTC")
	v.SetDefault("SWEEP_SCHEDULE", defaultSweepSchedule)
	v.SetDefault("REMINDER_LEAD", "24h")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("RATE_LIMIT_RPS", 10.0)
	v.SetDefault("RATE_LIMIT_BURST", 20)
	v.SetDefault("CORS_ORIGINS", "*")
	v.SetDefault("SHUTDOWN_TIMEOUT", "15s")

	cfg := &Config{
		AppEnv:            strings.ToLower(strings.TrimSpace(v.GetString("APP_ENV"))),
		HTTPAddr:          strings.TrimSpace(v.GetString("HTTP_ADDR")),
		DatabaseURL:       strings.TrimSpace(v.GetString("DATABASE_URL")),
		JWTSecret:         strings.TrimSpace(v.GetString("JWT_SECRET")),
		OperatingTimezone: strings.TrimSpace(v.GetString("OPERATING_TIMEZONE")),
		RedisURL:          strings.TrimSpace(v.GetString("REDIS_URL")),
		SweepSchedule:     strings.TrimSpace(v.GetString("SWEEP_SCHEDULE")),
		RateLimitRPS:      v.GetFloat64("RATE_LIMIT_RPS"),
		RateLimitBurst:    v.GetInt("RATE_LIMIT_BURST"),
		CORSOrigins:       splitList(v.GetString("CORS_ORIGINS")),
	}

	var err error
	if cfg.JWTTTL, err = parseDuration(v, "JWT_TTL"); err != nil {
		return nil, err
	}
	if cfg.ReminderLead, err = parseDuration(v, "REMINDER_LEAD"); err != nil {
		return nil, err
	}
	if cfg.ShutdownTimeout, err = parseDuration(v, "SHUTDOWN_TIMEOUT"); err != nil {
		return nil, err
	}
	if cfg.LogLevel, err = logrus.ParseLevel(v.GetString("LOG_LEVEL")); err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}
	if cfg.Location, err = time.LoadLocation(cfg.OperatingTimezone); err != nil {
		return nil, fmt.Errorf("invalid OPERATING_TIMEZONE %q: %w", cfg.OperatingTimezone, err)
	}

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func validateConfig(cfg *Config) error {
	if cfg.HTTPAddr == "" {
		return fmt.Errorf("HTTP_ADDR must not be empty")
	}
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL must not be empty")
	}
	if cfg.JWTTTL <= 0 {
		return fmt.Errorf("JWT_TTL must be > 0")
	}
	if cfg.ReminderLead <= 0 {
		return fmt.Errorf("REMINDER_LEAD must be > 0")
	}
	if cfg.RateLimitRPS < 0 || cfg.RateLimitBurst < 0 {
		return fmt.Errorf("RATE_LIMIT_RPS and RATE_LIMIT_BURST must not be negative")
	}
	if _, err := cron.ParseStandard(cfg.SweepSchedule); err != nil {
		return fmt.Errorf("invalid SWEEP_SCHEDULE %q: %w", cfg.SweepSchedule, err)
	}

	if isProdLike(cfg.AppEnv) {
		if isEmptyOrDefault(cfg.JWTSecret, defaultJWTSecret) {
			return fmt.Errorf("in prod/release JWT_SECRET must be set and not default")
		}
		if isEmptyOrDefault(cfg.DatabaseURL, defaultDatabaseURL) {
			return fmt.Errorf("in prod/release DATABASE_URL must be set explicitly")
		}
	} else if cfg.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET must not be empty")
	}
	return nil
}

func isProdLike(env string) bool {
	env = strings.ToLower(strings.TrimSpace(env))
	return env == "prod" || env == "production" || env == "release"
}

func isEmptyOrDefault(v, def string) bool {
	trimmed := strings.TrimSpace(v)
	return trimmed == "" || trimmed == def
}

func parseDuration(v *viper.Viper, name string) (time.Duration, error) {
	value := strings.TrimSpace(v.GetString(name))
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", name, value, err)
	}
	return d, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
