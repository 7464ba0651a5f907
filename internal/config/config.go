package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port           string   `mapstructure:"PORT"`
	Env            string   `mapstructure:"ENV"`
	DatabaseURL    string   `mapstructure:"DATABASE_URL"`
	DBMaxConns     int32    `mapstructure:"DB_MAX_CONNS"`
	DBMinConns     int32    `mapstructure:"DB_MIN_CONNS"`
	JWTSigningKey  string   `mapstructure:"JWT_SIGNING_KEY"`
	JWTIssuer      string   `mapstructure:"JWT_ISSUER"`
	JWTAudience    string   `mapstructure:"JWT_AUDIENCE"`
	JWKSURL        string   `mapstructure:"JWKS_URL"`
	TokenTTLMins   int      `mapstructure:"TOKEN_TTL_MINS"`
	DefaultOrg     string   `mapstructure:"DEFAULT_ORG"`
	CORSOrigins    []string `mapstructure:"CORS_ORIGINS"`
	RateLimitRPS   float64  `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst int      `mapstructure:"RATE_LIMIT_BURST"`
	TLSEnabled     bool     `mapstructure:"TLS_ENABLED"`
	TLSCertFile    string   `mapstructure:"TLS_CERT_FILE"`
	TLSKeyFile     string   `mapstructure:"TLS_KEY_FILE"`
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
	v.SetDefault("TOKEN_TTL_MINS", 480)
	v.SetDefault("DEFAULT_ORG", "default")
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("RATE_LIMIT_RPS", 100)
	v.SetDefault("RATE_LIMIT_BURST", 200)

	// Bind env vars explicitly so Unmarshal picks them up
	for _, key := range []string{
		"PORT", "ENV", "DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS",
		"JWT_SIGNING_KEY", "JWT_ISSUER", "JWT_AUDIENCE", "JWKS_URL",
		"TOKEN_TTL_MINS", "DEFAULT_ORG", "CORS_ORIGINS",
		"RATE_LIMIT_RPS", "RATE_LIMIT_BURST",
		"TLS_ENABLED", "TLS_CERT_FILE", "TLS_KEY_FILE",
	} {
		v.BindEnv(key)
	}

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

	if cfg.IsDev() {
		log.Println("WARNING: server is running in DEVELOPMENT mode (ENV=development).")
		log.Println("WARNING: DevAuthMiddleware is active; requests without a token get admin access.")
		log.Println("WARNING: set ENV=production and configure JWT_SIGNING_KEY or JWKS_URL for production.")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// TokenTTL returns the access-token lifetime.
func (c *Config) TokenTTL() time.Duration {
	return time.Duration(c.TokenTTLMins) * time.Minute
}

// Validate checks that the configuration is safe to run. Outside development
// a token verification source (signing key or JWKS endpoint) is mandatory.
func (c *Config) Validate() error {
	if !c.IsDev() && c.JWTSigningKey == "" && c.JWKSURL == "" {
		return fmt.Errorf(
			"JWT_SIGNING_KEY or JWKS_URL must be set when ENV=%q; refusing to start without authentication configuration", c.Env)
	}
	if c.TLSEnabled {
		if c.TLSCertFile == "" {
			return fmt.Errorf("TLS_CERT_FILE is required when TLS_ENABLED is true")
		}
		if c.TLSKeyFile == "" {
			return fmt.Errorf("TLS_KEY_FILE is required when TLS_ENABLED is true")
		}
	}
	if c.TokenTTLMins <= 0 {
		return fmt.Errorf("TOKEN_TTL_MINS must be positive, got %d", c.TokenTTLMins)
	}
	return nil
}
