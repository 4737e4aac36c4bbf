package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Registry backends selectable through REGISTRY_BACKEND.
const (
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
	BackendMemory   = "memory"
)

const defaultLedgerTimeoutSeconds = 60

// Config aggregates runtime configuration for the service.
type Config struct {
	App          AppConfig
	Registry     RegistryConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Ledger       LedgerConfig
	Catalog      CatalogConfig
	Logger       LoggerConfig
	Auth         AuthConfig
	Notification NotificationConfig
	Worker       WorkerConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
	IdempotencyTTLSeconds int
}

// RegistryConfig selects the durable registry backend.
type RegistryConfig struct {
	Backend                 string
	OperationTimeoutSeconds int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
	MintLocks bool
}

// LedgerConfig points at the external minting/ledger service.
type LedgerConfig struct {
	URL            string
	TimeoutSeconds int
}

// CatalogConfig locates the available ticket types.
type CatalogConfig struct {
	Path string
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level   string
	Format  string
	Service string
	Env     string
}

// AuthConfig defines authentication parameters.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
	BcryptCost            int
}

// NotificationConfig holds stub notification endpoints.
type NotificationConfig struct {
	WebhookURL string
}

// WorkerConfig controls background jobs.
type WorkerConfig struct {
	ReconcileIntervalSeconds int
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	backend := strings.ToLower(getEnv("REGISTRY_BACKEND", BackendPostgres))
	switch backend {
	case BackendPostgres, BackendRedis, BackendMemory:
	default:
		return nil, fmt.Errorf("invalid REGISTRY_BACKEND %q", backend)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "eventix"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "3001"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 90),
			IdempotencyTTLSeconds: getEnvAsInt("IDEMPOTENCY_TTL_SECONDS", 600),
		},
		Registry: RegistryConfig{
			Backend:                 backend,
			OperationTimeoutSeconds: getEnvAsInt("REGISTRY_OP_TIMEOUT_SECONDS", 5),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:      getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password:  os.Getenv("REDIS_PASSWORD"),
			DB:        redisDB,
			KeyPrefix: getEnv("REDIS_KEY_PREFIX", "eventix"),
			MintLocks: getEnvAsBool("REDIS_MINT_LOCKS", false),
		},
		Ledger: LedgerConfig{
			URL:            strings.TrimRight(os.Getenv("LEDGER_URL"), "/"),
			TimeoutSeconds: getEnvAsInt("LEDGER_TIMEOUT_SECONDS", defaultLedgerTimeoutSeconds),
		},
		Catalog: CatalogConfig{
			Path: getEnv("CATALOG_PATH", "data/events.yaml"),
		},
		Logger: LoggerConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: strings.ToLower(getEnv("LOG_FORMAT", "json")),
		},
		Auth: AuthConfig{
			JWTSecret:             getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
			BcryptCost:            getEnvAsInt("AUTH_BCRYPT_COST", 10),
		},
		Notification: NotificationConfig{
			WebhookURL: getEnv("NOTIFY_WEBHOOK_URL", ""),
		},
		Worker: WorkerConfig{
			ReconcileIntervalSeconds: getEnvAsInt("RECONCILE_INTERVAL_SECONDS", 60),
		},
	}

	cfg.Logger.Service = cfg.App.Name
	cfg.Logger.Env = cfg.App.Env

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// IdempotencyTTL returns how long POST responses stay replayable.
func (a AppConfig) IdempotencyTTL() time.Duration {
	if a.IdempotencyTTLSeconds <= 0 {
		return 0
	}
	return time.Duration(a.IdempotencyTTLSeconds) * time.Second
}

// OperationTimeout bounds each durable registry call; zero keeps the
// registry default.
func (r RegistryConfig) OperationTimeout() time.Duration {
	if r.OperationTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(r.OperationTimeoutSeconds) * time.Second
}

// Timeout is always finite; non-positive settings fall back to the default.
func (l LedgerConfig) Timeout() time.Duration {
	if l.TimeoutSeconds <= 0 {
		return defaultLedgerTimeoutSeconds * time.Second
	}
	return time.Duration(l.TimeoutSeconds) * time.Second
}

// Simulated reports whether no external ledger is configured.
func (l LedgerConfig) Simulated() bool {
	return l.URL == ""
}

// ReconcileInterval returns zero when reconciliation is disabled.
func (w WorkerConfig) ReconcileInterval() time.Duration {
	if w.ReconcileIntervalSeconds <= 0 {
		return 0
	}
	return time.Duration(w.ReconcileIntervalSeconds) * time.Second
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
