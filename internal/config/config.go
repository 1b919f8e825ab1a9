package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	Port          int    `mapstructure:"PORT"`
	JWTSecret     string `mapstructure:"JWT_SECRET"`
	DatabaseURL   string `mapstructure:"DATABASE_URL"`
	EncryptionKey string `mapstructure:"ENCRYPTION_KEY"`
	CORSOrigins   []string
	PublicBaseURL string `mapstructure:"PUBLIC_BASE_URL"`
	RedisURL      string `mapstructure:"REDIS_URL"`
	LogFormat     string `mapstructure:"LOG_FORMAT"`

	RateLimitRPS   float64 `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst int     `mapstructure:"RATE_LIMIT_BURST"`

	ReferralRewardCents int64         `mapstructure:"REFERRAL_REWARD_CENTS"`
	QRCodeTTL           time.Duration `mapstructure:"QR_CODE_TTL"`
	OfferLinkTTL        time.Duration `mapstructure:"OFFER_LINK_TTL"`

	SubscriptionSweepSchedule string `mapstructure:"SUBSCRIPTION_SWEEP_SCHEDULE"`
	TroopStatsSchedule        string `mapstructure:"TROOP_STATS_SCHEDULE"`

	AdminEmail    string `mapstructure:"ADMIN_EMAIL"`
	AdminPassword string `mapstructure:"ADMIN_PASSWORD"`
}

var keys = []string{
	"PORT", "JWT_SECRET", "DATABASE_URL", "ENCRYPTION_KEY", "CORS_ORIGINS",
	"PUBLIC_BASE_URL", "REDIS_URL", "LOG_FORMAT", "RATE_LIMIT_RPS", "RATE_LIMIT_BURST",
	"REFERRAL_REWARD_CENTS", "QR_CODE_TTL", "OFFER_LINK_TTL",
	"SUBSCRIPTION_SWEEP_SCHEDULE", "TROOP_STATS_SCHEDULE",
	"ADMIN_EMAIL", "ADMIN_PASSWORD",
}

// LoadDotEnv loads a .env file into the process environment if one exists.
// Variables already set in the environment win.
func LoadDotEnv(paths ...string) {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		_ = godotenv.Load(p)
	}
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (*Config, error) {
	viper.SetDefault("PORT", 8080)
	viper.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	viper.SetDefault("PUBLIC_BASE_URL", "https://campcard.app")
	viper.SetDefault("LOG_FORMAT", "json")
	viper.SetDefault("RATE_LIMIT_RPS", 20)
	viper.SetDefault("RATE_LIMIT_BURST", 40)
	viper.SetDefault("REFERRAL_REWARD_CENTS", 1000)
	viper.SetDefault("QR_CODE_TTL", "8760h")
	viper.SetDefault("OFFER_LINK_TTL", "720h")
	viper.SetDefault("SUBSCRIPTION_SWEEP_SCHEDULE", "@every 15m")
	viper.SetDefault("TROOP_STATS_SCHEDULE", "0 3 * * *")
	viper.SetDefault("ADMIN_EMAIL", "admin@campcard.app")
	viper.AutomaticEnv()

	// Bind explicitly so Unmarshal sees keys that only exist in the environment.
	for _, k := range keys {
		_ = viper.BindEnv(k)
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.EncryptionKey == "" {
		return nil, fmt.Errorf("ENCRYPTION_KEY is required (must be exactly 32 bytes)")
	}
	if len(cfg.EncryptionKey) != 32 {
		return nil, fmt.Errorf("ENCRYPTION_KEY must be exactly 32 bytes, got %d", len(cfg.EncryptionKey))
	}
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return nil, fmt.Errorf("LOG_FORMAT must be json or text, got %q", cfg.LogFormat)
	}

	origins := strings.Split(viper.GetString("CORS_ORIGINS"), ",")
	for _, o := range origins {
		if o = strings.TrimSpace(o); o != "" {
			cfg.CORSOrigins = append(cfg.CORSOrigins, o)
		}
	}
	cfg.PublicBaseURL = strings.TrimSuffix(cfg.PublicBaseURL, "/")

	return &cfg, nil
}
