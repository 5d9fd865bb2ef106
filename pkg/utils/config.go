package utils

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Hold      HoldConfig
	Seed      SeedConfig
	Redis     RedisConfig
	AMQP      AMQPConfig
	Realtime  RealtimeConfig
	Telemetry TelemetryConfig
}

type AppConfig struct {
	Name        string
	Port        string
	Debug       bool
	LogPath     string
	StoreDriver string
	CORSOrigins []string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	MaxConns int32

	// AutoMigrate applies the embedded schema on startup.
	AutoMigrate bool
}

// HoldConfig bounds seat holds: how many one session may keep and for how long.
type HoldConfig struct {
	MaxPerSession int
	TTL           time.Duration
	SweepInterval time.Duration
}

// SeedConfig shapes the generated seat map used by the memory store.
type SeedConfig struct {
	Sections []string
	Rows     int
	Cols     int
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	CacheTTL time.Duration
}

type AMQPConfig struct {
	URL      string
	Exchange string
}

type RealtimeConfig struct {
	SendBuffer   int
	WriteTimeout time.Duration
}

type TelemetryConfig struct {
	Endpoint string
	Insecure bool
}

const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"
)

// LoadConfig reads path (a .env file) when present and lets the process
// environment override every key.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	if path == "" {
		path = ".env"
	}
	v.SetConfigFile(path)
	v.SetConfigType("env")

	// Set defaults
	v.SetDefault("APP_NAME", "event-seating")
	v.SetDefault("PORT", "8080")
	v.SetDefault("DEBUG", false)
	v.SetDefault("LOG_PATH", "logs/")
	v.SetDefault("STORE_DRIVER", StoreDriverPostgres)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000,http://localhost:3001")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_MAX_CONNS", 10)
	v.SetDefault("DB_AUTO_MIGRATE", true)
	v.SetDefault("SEED_SECTIONS", "A,B,C")
	v.SetDefault("SEED_ROWS", 10)
	v.SetDefault("SEED_COLS", 20)
	v.SetDefault("MAX_HELD_SEATS", 8)
	v.SetDefault("HOLD_TTL", "10m")
	v.SetDefault("SWEEP_INTERVAL", "1m")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("CACHE_TTL", "30s")
	v.SetDefault("AMQP_EXCHANGE", "seat.events")
	v.SetDefault("WS_SEND_BUFFER", 64)
	v.SetDefault("WS_WRITE_TIMEOUT", "10s")

	if err := v.ReadInConfig(); err != nil {
		var pathErr *fs.PathError
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &pathErr) && !errors.As(err, &notFound) {
			return nil, err
		}
	}

	v.AutomaticEnv()

	config := &Config{
		App: AppConfig{
			Name:        v.GetString("APP_NAME"),
			Port:        v.GetString("PORT"),
			Debug:       v.GetBool("DEBUG"),
			LogPath:     v.GetString("LOG_PATH"),
			StoreDriver: strings.ToLower(v.GetString("STORE_DRIVER")),
			CORSOrigins: splitList(v.GetString("CORS_ORIGINS")),
		},
		Database: DatabaseConfig{
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetString("DB_PORT"),
			Name:     v.GetString("DB_NAME"),
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASS"),
			MaxConns: v.GetInt32("DB_MAX_CONNS"),

			AutoMigrate: v.GetBool("DB_AUTO_MIGRATE"),
		},
		Hold: HoldConfig{
			MaxPerSession: v.GetInt("MAX_HELD_SEATS"),
			TTL:           v.GetDuration("HOLD_TTL"),
			SweepInterval: v.GetDuration("SWEEP_INTERVAL"),
		},
		Seed: SeedConfig{
			Sections: splitList(v.GetString("SEED_SECTIONS")),
			Rows:     v.GetInt("SEED_ROWS"),
			Cols:     v.GetInt("SEED_COLS"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("REDIS_ADDR"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
			CacheTTL: v.GetDuration("CACHE_TTL"),
		},
		AMQP: AMQPConfig{
			URL:      v.GetString("AMQP_URL"),
			Exchange: v.GetString("AMQP_EXCHANGE"),
		},
		Realtime: RealtimeConfig{
			SendBuffer:   v.GetInt("WS_SEND_BUFFER"),
			WriteTimeout: v.GetDuration("WS_WRITE_TIMEOUT"),
		},
		Telemetry: TelemetryConfig{
			Endpoint: v.GetString("OTEL_EXPORTER_OTLP_ENDPOINT"),
			Insecure: v.GetBool("OTEL_EXPORTER_OTLP_INSECURE"),
		},
	}

	if config.Hold.MaxPerSession <= 0 {
		config.Hold.MaxPerSession = 8
	}

	return config, nil
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
