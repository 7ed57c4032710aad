package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// DevJWTSecret signs tokens when JWT_SECRET is unset. It is public and only
// fit for local development.
const DevJWTSecret = "fallback_secret_for_dev_123"

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Config holds all service configuration loaded from the environment.
type Config struct {
	Port            string        `mapstructure:"PORT"              validate:"required,numeric"`
	Env             string        `mapstructure:"APP_ENV"`
	LogLevel        string        `mapstructure:"LOG_LEVEL"         validate:"oneof=debug info warn error"`
	StoreDriver     string        `mapstructure:"STORE_DRIVER"      validate:"omitempty,oneof=mongo postgres memory"`
	MongoURI        string        `mapstructure:"MONGO_URI"`
	MongoDB         string        `mapstructure:"MONGO_DB"          validate:"required"`
	MongoTimeout    time.Duration `mapstructure:"MONGO_TIMEOUT"     validate:"gt=0"`
	PostgresDSN     string        `mapstructure:"POSTGRES_DSN"`
	RedisAddr       string        `mapstructure:"REDIS_ADDR"`
	RedisPassword   string        `mapstructure:"REDIS_PASSWORD"`
	ProfileCacheTTL time.Duration `mapstructure:"PROFILE_CACHE_TTL" validate:"gt=0"`
	JWTSecret       string        `mapstructure:"JWT_SECRET"`
	TokenTTL        time.Duration `mapstructure:"TOKEN_TTL"         validate:"gt=0"`
	MaxPageLimit    int           `mapstructure:"MAX_PAGE_LIMIT"    validate:"min=1"`
	ClientURL       string        `mapstructure:"CLIENT_URL"`
	ShutdownTimeout time.Duration `mapstructure:"SHUTDOWN_TIMEOUT"  validate:"gt=0"`
}

var defaults = map[string]any{
	"PORT":              "5000",
	"APP_ENV":           "",
	"LOG_LEVEL":         "info",
	"STORE_DRIVER":      "",
	"MONGO_URI":         "",
	"MONGO_DB":          "taskmanager",
	"MONGO_TIMEOUT":     5 * time.Second,
	"POSTGRES_DSN":      "",
	"REDIS_ADDR":        "",
	"REDIS_PASSWORD":    "",
	"PROFILE_CACHE_TTL": 10 * time.Minute,
	"JWT_SECRET":        "",
	"TOKEN_TTL":         7 * 24 * time.Hour,
	"MAX_PAGE_LIMIT":    100,
	"CLIENT_URL":        "",
	"SHUTDOWN_TIMEOUT":  10 * time.Second,
}

// Load reads an optional .env file, then the environment, then an optional
// config file named by CONFIG_FILE, and validates the result.
func Load() (*Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	v := viper.New()
	for key, val := range defaults {
		v.SetDefault(key, val)
	}
	v.AutomaticEnv()

	if file := v.GetString("CONFIG_FILE"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", file, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if cfg.Env == "" {
		cfg.Env = v.GetString("NODE_ENV")
	}
	cfg.Env = strings.ToLower(cfg.Env)
	cfg.LogLevel = strings.ToLower(cfg.LogLevel)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks field constraints and resolves the store driver.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	if c.StoreDriver == "" {
		c.StoreDriver = "memory"
		if c.MongoURI != "" {
			c.StoreDriver = "mongo"
		}
	}
	switch c.StoreDriver {
	case "mongo":
		if c.MongoURI == "" {
			return errors.New("invalid config: STORE_DRIVER=mongo requires MONGO_URI")
		}
	case "postgres":
		if c.PostgresDSN == "" {
			return errors.New("invalid config: STORE_DRIVER=postgres requires POSTGRES_DSN")
		}
	case "memory":
		if c.IsProduction() {
			return errors.New("invalid config: refusing the in-memory store in production; set MONGO_URI")
		}
	}
	return nil
}

func (c *Config) IsDevelopment() bool { return c.Env == EnvDevelopment }

func (c *Config) IsProduction() bool { return c.Env == EnvProduction }

// SigningSecret returns JWT_SECRET, or DevJWTSecret when it is unset.
func (c *Config) SigningSecret() (secret string, fallback bool) {
	if c.JWTSecret == "" {
		return DevJWTSecret, true
	}
	return c.JWTSecret, false
}
