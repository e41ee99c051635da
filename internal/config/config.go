package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the engine.
type Config struct {
	App       AppConfig
	Postgres  PostgresConfig
	Redis     RedisConfig
	Logger    LoggerConfig
	Scheduler SchedulerConfig
	Engine    EngineConfig
}

// AppConfig controls host level behavior.
type AppConfig struct {
	Name string
	Env  string
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	MigrationsDir  string
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// SchedulerConfig sets the background pass cadences.
type SchedulerConfig struct {
	SyncInterval       time.Duration
	ValidationInterval time.Duration
	SweepInterval      time.Duration
}

// EngineConfig holds SLA computation knobs.
type EngineConfig struct {
	// CalendarWalkDays bounds the day-by-day walk when adding open minutes,
	// guarding against calendars with no open windows.
	CalendarWalkDays int
	// BreachWarningMinutes is the window before a due date in which a ticket
	// counts as approaching breach.
	BreachWarningMinutes int
	// NeutralRating is the value invalid ratings are clamped to.
	NeutralRating int
	// CacheTTL bounds how long resolved rules and schedules stay cached.
	CacheTTL time.Duration
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name: getEnv("APP_NAME", "sla-engine"),
			Env:  getEnv("APP_ENV", "development"),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			MigrationsDir:  getEnv("POSTGRES_MIGRATIONS_DIR", "migrations"),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Scheduler: SchedulerConfig{
			SyncInterval:       getEnvAsDuration("SYNC_INTERVAL", time.Hour),
			ValidationInterval: getEnvAsDuration("VALIDATION_INTERVAL", 24*time.Hour),
			SweepInterval:      getEnvAsDuration("SWEEP_INTERVAL", 7*24*time.Hour),
		},
		Engine: EngineConfig{
			CalendarWalkDays:     getEnvAsInt("SLA_CALENDAR_WALK_DAYS", 100),
			BreachWarningMinutes: getEnvAsInt("SLA_BREACH_WARNING_MINUTES", 120),
			NeutralRating:        getEnvAsInt("SLA_NEUTRAL_RATING", 3),
			CacheTTL:             getEnvAsDuration("SLA_CACHE_TTL", 5*time.Minute),
		},
	}

	if cfg.Engine.NeutralRating < 1 || cfg.Engine.NeutralRating > 5 {
		return nil, fmt.Errorf("SLA_NEUTRAL_RATING must be within 1..5, got %d", cfg.Engine.NeutralRating)
	}
	if cfg.Engine.CalendarWalkDays <= 0 {
		cfg.Engine.CalendarWalkDays = 100
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(val)
	if err != nil {
		return fallback
	}
	return parsed
}
