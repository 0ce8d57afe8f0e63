package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/quickhire-gh/quickhire/pkg/models"
)

// Config holds all configuration for the QuickHire server.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Paystack PaystackConfig
	Policy   PolicyConfig
	Sweep    SweepConfig
}

type ServerConfig struct {
	Port int
	Env  string
}

type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	URL string
}

type PaystackConfig struct {
	BaseURL   string
	SecretKey string
	Timeout   time.Duration
}

// PolicyConfig gathers the marketplace policy knobs. None of these are
// hardcoded in the lifecycle code; they arrive through here.
type PolicyConfig struct {
	Currency             string
	FeeRate              float64       // platform fee fraction of gross
	MinQuoteAmount       float64       // platform minimum quote
	GeofenceRadiusMeters int           // arrival verification threshold
	JobExpiry            time.Duration // unaccepted postings expire after this
	DisputeDeadline      time.Duration // staff window before auto-resolution
	DisputeGraceWindow   time.Duration // disputes allowed this long after approval
	AutoResolution       string        // applied when the dispute deadline lapses
	CancelCompensation   float64       // worker share on late client cancellation
	SearchRadiusKm       float64       // default nearby-job radius
}

type SweepConfig struct {
	Interval time.Duration
}

var validAutoResolutions = map[string]bool{
	models.ResolutionPaymentReleased: true,
	models.ResolutionFullRefund:      true,
}

// Load reads configuration from environment variables and returns a validated Config.
// Returns an error with a descriptive message if any required value is missing or invalid.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port: envInt("QUICKHIRE_PORT", 8080),
			Env:  envString("QUICKHIRE_ENV", "development"),
		},
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    envInt("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: envDuration("DATABASE_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			URL: os.Getenv("REDIS_URL"),
		},
		Paystack: PaystackConfig{
			BaseURL:   envString("PAYSTACK_BASE_URL", "https://api.paystack.co"),
			SecretKey: os.Getenv("PAYSTACK_SECRET_KEY"),
			Timeout:   envDuration("PAYSTACK_TIMEOUT", 30*time.Second),
		},
		Policy: PolicyConfig{
			Currency:             envString("QUICKHIRE_CURRENCY", "GHS"),
			FeeRate:              envFloat("QUICKHIRE_FEE_RATE", 0.15),
			MinQuoteAmount:       envFloat("QUICKHIRE_MIN_QUOTE", 25),
			GeofenceRadiusMeters: envInt("QUICKHIRE_GEOFENCE_RADIUS_M", 100),
			JobExpiry:            envDuration("QUICKHIRE_JOB_EXPIRY", 24*time.Hour),
			DisputeDeadline:      envDuration("QUICKHIRE_DISPUTE_DEADLINE", 48*time.Hour),
			DisputeGraceWindow:   envDuration("QUICKHIRE_DISPUTE_GRACE", 24*time.Hour),
			AutoResolution:       envString("QUICKHIRE_DISPUTE_AUTO_RESOLUTION", models.ResolutionPaymentReleased),
			CancelCompensation:   envFloat("QUICKHIRE_CANCEL_COMPENSATION", 0.05),
			SearchRadiusKm:       envFloat("QUICKHIRE_SEARCH_RADIUS_KM", 10),
		},
		Sweep: SweepConfig{
			Interval: envDuration("QUICKHIRE_SWEEP_INTERVAL", 5*time.Minute),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Redis.URL == "" {
		return fmt.Errorf("REDIS_URL is required")
	}

	if !strings.HasPrefix(c.Paystack.BaseURL, "http://") && !strings.HasPrefix(c.Paystack.BaseURL, "https://") {
		return fmt.Errorf("PAYSTACK_BASE_URL must start with http:// or https://, got %q", c.Paystack.BaseURL)
	}

	if c.Policy.FeeRate < 0 || c.Policy.FeeRate >= 1 {
		return fmt.Errorf("QUICKHIRE_FEE_RATE must be in [0, 1), got %v", c.Policy.FeeRate)
	}
	if c.Policy.MinQuoteAmount <= 0 {
		return fmt.Errorf("QUICKHIRE_MIN_QUOTE must be positive, got %v", c.Policy.MinQuoteAmount)
	}
	if c.Policy.GeofenceRadiusMeters <= 0 {
		return fmt.Errorf("QUICKHIRE_GEOFENCE_RADIUS_M must be positive, got %d", c.Policy.GeofenceRadiusMeters)
	}
	if !validAutoResolutions[c.Policy.AutoResolution] {
		return fmt.Errorf("QUICKHIRE_DISPUTE_AUTO_RESOLUTION must be payment_released or full_refund, got %q", c.Policy.AutoResolution)
	}
	if c.Policy.CancelCompensation < 0 || c.Policy.CancelCompensation >= 1 {
		return fmt.Errorf("QUICKHIRE_CANCEL_COMPENSATION must be in [0, 1), got %v", c.Policy.CancelCompensation)
	}

	return nil
}

func envString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func envFloat(key string, defaultVal float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return defaultVal
	}
	return f
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
