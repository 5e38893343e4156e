package config

import (
	"fmt"
	"log"
	"net/url"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Port                string   `mapstructure:"PORT"`
	Env                 string   `mapstructure:"ENV"`
	DatabaseURL         string   `mapstructure:"DATABASE_URL"`
	DBMaxConns          int32    `mapstructure:"DB_MAX_CONNS"`
	DBMinConns          int32    `mapstructure:"DB_MIN_CONNS"`
	SIGSSBaseURL        string   `mapstructure:"SIGSS_BASE_URL"`
	SIGSSCookie         string   `mapstructure:"SIGSS_COOKIE"`
	SIGSSTimeoutSeconds int      `mapstructure:"SIGSS_TIMEOUT_SECONDS"`
	NotePeriod          string   `mapstructure:"NOTE_PERIOD"`
	AuthSecret          string   `mapstructure:"AUTH_SECRET"`
	CORSOrigins         []string `mapstructure:"CORS_ORIGINS"`
	RateLimitRPS        float64  `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst      int      `mapstructure:"RATE_LIMIT_BURST"`
	CID10CatalogPath    string   `mapstructure:"CID10_CATALOG_PATH"`
	CIAP2CatalogPath    string   `mapstructure:"CIAP2_CATALOG_PATH"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("SIGSS_TIMEOUT_SECONDS", 20)
	v.SetDefault("NOTE_PERIOD", "1y")
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("RATE_LIMIT_RPS", 100)
	v.SetDefault("RATE_LIMIT_BURST", 200)

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("PORT")
	v.BindEnv("ENV")
	v.BindEnv("DATABASE_URL")
	v.BindEnv("DB_MAX_CONNS")
	v.BindEnv("DB_MIN_CONNS")
	v.BindEnv("SIGSS_BASE_URL")
	v.BindEnv("SIGSS_COOKIE")
	v.BindEnv("SIGSS_TIMEOUT_SECONDS")
	v.BindEnv("NOTE_PERIOD")
	v.BindEnv("AUTH_SECRET")
	v.BindEnv("CORS_ORIGINS")
	v.BindEnv("RATE_LIMIT_RPS")
	v.BindEnv("RATE_LIMIT_BURST")
	v.BindEnv("CID10_CATALOG_PATH")
	v.BindEnv("CIAP2_CATALOG_PATH")

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.CORSOrigins == nil {
		origins := v.GetString("CORS_ORIGINS")
		if origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.IsDev() && cfg.AuthSecret == "" {
		log.Println("WARNING: running without AUTH_SECRET, all requests are accepted (ENV=development)")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Validate checks that the configuration is safe to run. The SIGSS base URL
// is required everywhere: without it no prontuário can be fetched and tag
// evaluation is dead weight. AUTH_SECRET is required outside development so
// the tag store is never exposed unauthenticated.
func (c *Config) Validate() error {
	if c.SIGSSBaseURL == "" {
		return fmt.Errorf("SIGSS_BASE_URL is required")
	}
	if _, err := url.Parse(c.SIGSSBaseURL); err != nil {
		return fmt.Errorf("SIGSS_BASE_URL is not a valid URL: %w", err)
	}
	if c.SIGSSTimeoutSeconds <= 0 {
		return fmt.Errorf("SIGSS_TIMEOUT_SECONDS must be positive, got %d", c.SIGSSTimeoutSeconds)
	}
	switch c.NotePeriod {
	case "6m", "1y", "all":
	default:
		return fmt.Errorf("NOTE_PERIOD must be \"6m\", \"1y\" or \"all\", got %q", c.NotePeriod)
	}
	if !c.IsDev() && c.AuthSecret == "" {
		return fmt.Errorf("AUTH_SECRET is required when ENV=%q. Refusing to start without authentication", c.Env)
	}
	return nil
}
