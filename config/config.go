package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type Config struct {
	AppName    string `mapstructure:"APP_NAME"`
	ServerPort string `mapstructure:"SERVER_PORT"`
	LogLevel   string `mapstructure:"LOG_LEVEL"`
	LogFormat  string `mapstructure:"LOG_FORMAT"`

	// memory or postgres
	StorageDriver string `mapstructure:"STORAGE_DRIVER"`

	// PostgreSQL configuration
	DBHost            string        `mapstructure:"DB_HOST"`
	DBPort            int           `mapstructure:"DB_PORT"`
	DBUser            string        `mapstructure:"DB_USER"`
	DBPassword        string        `mapstructure:"DB_PASSWORD"`
	DBName            string        `mapstructure:"DB_NAME"`
	DBSSLMode         string        `mapstructure:"DB_SSL_MODE"`
	DBMaxOpenConns    int           `mapstructure:"DB_MAX_OPEN_CONNS"`
	DBMaxIdleConns    int           `mapstructure:"DB_MAX_IDLE_CONNS"`
	DBConnMaxLifetime time.Duration `mapstructure:"DB_CONN_MAX_LIFETIME"`
	DBConnMaxIdleTime time.Duration `mapstructure:"DB_CONN_MAX_IDLE_TIME"`

	// RabbitMQ configuration; empty URL disables publishing and catalog sync
	RabbitURL      string `mapstructure:"RABBITMQ_URL"`
	RabbitPrefetch int    `mapstructure:"RABBITMQ_PREFETCH"`

	// Redis configuration; empty address disables the availability cache
	RedisAddr     string        `mapstructure:"REDIS_ADDR"`
	RedisPassword string        `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int           `mapstructure:"REDIS_DB"`
	CacheTTL      time.Duration `mapstructure:"CACHE_TTL"`

	// Purchase path
	PurchaseTimeout       time.Duration `mapstructure:"PURCHASE_TIMEOUT"`
	ReserveMaxRetries     uint64        `mapstructure:"RESERVE_MAX_RETRIES"`
	RetryInitialInterval  time.Duration `mapstructure:"RETRY_INITIAL_INTERVAL"`
	RetryMaxInterval      time.Duration `mapstructure:"RETRY_MAX_INTERVAL"`
	CompensationRetries   uint64        `mapstructure:"COMPENSATION_MAX_RETRIES"`
	CompensationTimeout   time.Duration `mapstructure:"COMPENSATION_TIMEOUT"`
	NotificationTimeout   time.Duration `mapstructure:"NOTIFICATION_TIMEOUT"`
	BreakerFailureTrigger uint32        `mapstructure:"BREAKER_FAILURE_THRESHOLD"`
	BreakerOpenTimeout    time.Duration `mapstructure:"BREAKER_OPEN_TIMEOUT"`

	// Reconciler
	ReconcileInterval   time.Duration `mapstructure:"RECONCILE_INTERVAL"`
	ReconcileStaleAfter time.Duration `mapstructure:"RECONCILE_STALE_AFTER"`
	ReconcileBatchSize  int           `mapstructure:"RECONCILE_BATCH_SIZE"`

	ShutdownTimeout time.Duration `mapstructure:"SHUTDOWN_TIMEOUT"`
}

var defaults = map[string]any{
	"APP_NAME":    "ticketing-service",
	"SERVER_PORT": "8080",
	"LOG_LEVEL":   "info",
	"LOG_FORMAT":  "json",

	"STORAGE_DRIVER": "postgres",

	"DB_HOST":               "localhost",
	"DB_PORT":               5432,
	"DB_USER":               "postgres",
	"DB_PASSWORD":           "postgres",
	"DB_NAME":               "ticketing_db",
	"DB_SSL_MODE":           "disable",
	"DB_MAX_OPEN_CONNS":     25,
	"DB_MAX_IDLE_CONNS":     10,
	"DB_CONN_MAX_LIFETIME":  "5m",
	"DB_CONN_MAX_IDLE_TIME": "1m",

	"RABBITMQ_URL":      "",
	"RABBITMQ_PREFETCH": 20,

	"REDIS_ADDR":     "",
	"REDIS_PASSWORD": "",
	"REDIS_DB":       0,
	"CACHE_TTL":      "2s",

	"PURCHASE_TIMEOUT":          "5s",
	"RESERVE_MAX_RETRIES":       5,
	"RETRY_INITIAL_INTERVAL":    "10ms",
	"RETRY_MAX_INTERVAL":        "200ms",
	"COMPENSATION_MAX_RETRIES":  8,
	"COMPENSATION_TIMEOUT":      "10s",
	"NOTIFICATION_TIMEOUT":      "3s",
	"BREAKER_FAILURE_THRESHOLD": 5,
	"BREAKER_OPEN_TIMEOUT":      "30s",

	"RECONCILE_INTERVAL":    "30s",
	"RECONCILE_STALE_AFTER": "2m",
	"RECONCILE_BATCH_SIZE":  100,

	"SHUTDOWN_TIMEOUT": "10s",
}

// Load reads .env (if present) into the process environment, then resolves
// every key from the environment with the defaults above.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("no .env file found, using environment variables and defaults")
	}

	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.StorageDriver {
	case "memory", "postgres":
	default:
		return fmt.Errorf("config: unknown STORAGE_DRIVER %q", c.StorageDriver)
	}
	if c.PurchaseTimeout <= 0 {
		return fmt.Errorf("config: PURCHASE_TIMEOUT must be positive")
	}
	if c.ReconcileInterval <= 0 || c.ReconcileStaleAfter <= 0 {
		return fmt.Errorf("config: reconcile interval and staleness must be positive")
	}
	// a reservation younger than this may still belong to a live purchase
	if c.ReconcileStaleAfter <= c.PurchaseTimeout+c.CompensationTimeout {
		return fmt.Errorf("config: RECONCILE_STALE_AFTER must exceed PURCHASE_TIMEOUT + COMPENSATION_TIMEOUT")
	}
	return nil
}

func (c *Config) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode,
	)
}
