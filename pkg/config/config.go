package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Credential store backends.
const (
	StoreBackendFile   = "file"
	StoreBackendRedis  = "redis"
	StoreBackendMemory = "memory"
)

type Config struct {
	Env string

	API        APIConfig
	Store      StoreConfig
	Redis      RedisConfig
	Reconciler ReconcilerConfig
	Receipts   ReceiptsConfig
	Log        LogConfig
}

// APIConfig points the client at the sport-center backend.
type APIConfig struct {
	BaseURL      string
	Timeout      time.Duration
	ClientID     string
	ClientSecret string
}

// StoreConfig selects and tunes the credential store backend.
type StoreConfig struct {
	Backend    string
	Dir        string
	Passphrase string
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// ReconcilerConfig tunes retries of pending payment confirmations.
type ReconcilerConfig struct {
	Enabled     bool
	Schedule    string
	MaxAttempts int
}

// ReceiptsConfig controls where rendered payment receipts land.
type ReceiptsConfig struct {
	OutputDir string
}

type LogConfig struct {
	Level  string
	Format string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")

	cfg.API = APIConfig{
		BaseURL:      strings.TrimRight(v.GetString("API_BASE_URL"), "/"),
		Timeout:      parseDuration(v.GetString("API_TIMEOUT"), 15*time.Second),
		ClientID:     v.GetString("API_CLIENT_ID"),
		ClientSecret: v.GetString("API_CLIENT_SECRET"),
	}

	cfg.Store = StoreConfig{
		Backend:    v.GetString("STORE_BACKEND"),
		Dir:        v.GetString("STORE_DIR"),
		Passphrase: v.GetString("STORE_PASSPHRASE"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.Reconciler = ReconcilerConfig{
		Enabled:     v.GetBool("RECONCILER_ENABLED"),
		Schedule:    v.GetString("RECONCILER_SCHEDULE"),
		MaxAttempts: v.GetInt("RECONCILER_MAX_ATTEMPTS"),
	}

	cfg.Receipts = ReceiptsConfig{
		OutputDir: v.GetString("RECEIPTS_OUTPUT_DIR"),
	}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)

	v.SetDefault("API_BASE_URL", "http://localhost:8000")
	v.SetDefault("API_TIMEOUT", "15s")
	v.SetDefault("API_CLIENT_ID", "sportscenter")
	v.SetDefault("API_CLIENT_SECRET", "")

	v.SetDefault("STORE_BACKEND", StoreBackendFile)
	v.SetDefault("STORE_DIR", "./state")
	v.SetDefault("STORE_PASSPHRASE", "")

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("RECONCILER_ENABLED", true)
	v.SetDefault("RECONCILER_SCHEDULE", "@every 1m")
	v.SetDefault("RECONCILER_MAX_ATTEMPTS", 10)

	v.SetDefault("RECEIPTS_OUTPUT_DIR", "./receipts")

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}
