package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

const (
	StorageDriverLocal = "local"
	StorageDriverS3    = "s3"

	DBDriverSQLite   = "sqlite"
	DBDriverPostgres = "pgx"
	DBDriverMongo    = "mongo"

	SessionDriverBadger = "badger"
	SessionDriverRedis  = "redis"

	QueueDriverSQL  = "sql"
	QueueDriverAMQP = "amqp"
)

type Config struct {
	// Application
	AppName string `validate:"required"`
	AppEnv  string `validate:"required,oneof=development production test"`
	Port    string `validate:"required,numeric"`

	ShutdownTimeout time.Duration `validate:"gt=0"`
	TrustProxy      bool          // honour X-Real-IP / X-Forwarded-For

	// Blob storage
	StorageDriver  string `validate:"required,oneof=local s3"`
	FolderPath     string `validate:"required_if=StorageDriver local"`
	MaxUploadBytes int64  `validate:"gt=0"`

	// Storage (S3-compatible: MinIO, AWS S3, Cloudflare R2, DigitalOcean Spaces, etc.)
	S3Region    string `validate:"required_if=StorageDriver s3"`
	S3Bucket    string `validate:"required_if=StorageDriver s3"`
	S3AccessKey string
	S3SecretKey string
	S3Endpoint  string // Optional: for S3-compatible services (MinIO, DO Spaces, R2, etc.)
	S3Prefix    string

	// Metadata store (optional driver switch via ENV, default: sqlite)
	DBDriver     string `validate:"required,oneof=sqlite pgx mongo"`
	DBConnection string `validate:"required"`
	DBDatabase   string `validate:"required_if=DBDriver mongo"` // Mongo database name

	// Sessions
	SessionDriver    string        `validate:"required,oneof=badger redis"`
	SessionPath      string        // badger directory, empty = in-memory
	SessionTTL       time.Duration `validate:"gt=0"`
	SessionCacheSize int           `validate:"gte=0"`
	SessionCacheTTL  time.Duration `validate:"gte=0"`
	RedisAddr        string        `validate:"required_if=SessionDriver redis"`
	RedisPassword    string
	RedisDB          int `validate:"gte=0"`

	// Thumbnail queue
	QueueDriver            string        `validate:"required,oneof=sql amqp"`
	QueueName              string        `validate:"required"`
	AMQPURL                string        `validate:"required_if=QueueDriver amqp"`
	QueueVisibilityTimeout time.Duration `validate:"gt=0"`
	QueuePollInterval      time.Duration `validate:"gt=0"`
	QueueMaxAttempts       int           `validate:"gt=0"`
	WorkerConcurrency      int           `validate:"gt=0"`

	// Observability (optional)
	SentryDSN string
	LogLevel  slog.Level
}

// Load reads the configuration from the environment (and .env if present)
// and validates it.
func Load() (*Config, error) {
	// Load .env file if it exists
	err := godotenv.Load()
	if err != nil {
		slog.Info("no .env file found, using environment variables")
	}

	cfg := &Config{
		// Application
		AppName: envString("APP_NAME", "files_manager"),
		AppEnv:  envString("APP_ENV", "development"),
		Port:    envString("PORT", "5000"),

		ShutdownTimeout: envDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		TrustProxy:      envBool("TRUST_PROXY", false),

		// Blob storage
		StorageDriver:  envString("STORAGE_DRIVER", StorageDriverLocal),
		FolderPath:     envString("FOLDER_PATH", "/tmp/files_manager"),
		MaxUploadBytes: envInt64("MAX_UPLOAD_BYTES", 32<<20), // 32MB decoded

		S3Region:    envString("S3_REGION", ""),
		S3Bucket:    envString("S3_BUCKET", ""),
		S3AccessKey: envString("S3_ACCESS_KEY", ""),
		S3SecretKey: envString("S3_SECRET_KEY", ""),
		S3Endpoint:  envString("S3_ENDPOINT", ""),
		S3Prefix:    envString("S3_PREFIX", "files"),

		// Metadata store
		DBDriver:     envString("DB_DRIVER", DBDriverSQLite),
		DBConnection: envString("DB_CONNECTION", "./data/files_manager.db?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"),
		DBDatabase:   envString("DB_DATABASE", "files_manager"),

		// Sessions
		SessionDriver:    envString("SESSION_DRIVER", SessionDriverBadger),
		SessionPath:      envString("SESSION_PATH", "./data/sessions"),
		SessionTTL:       envDuration("SESSION_TTL", 24*time.Hour),
		SessionCacheSize: envInt("SESSION_CACHE_SIZE", 10000),
		SessionCacheTTL:  envDuration("SESSION_CACHE_TTL", 30*time.Second),
		RedisAddr:        envString("REDIS_ADDR", "localhost:6379"),
		RedisPassword:    envString("REDIS_PASSWORD", ""),
		RedisDB:          envInt("REDIS_DB", 0),

		// Thumbnail queue
		QueueDriver:            envString("QUEUE_DRIVER", QueueDriverSQL),
		QueueName:              envString("QUEUE_NAME", "fileQueue"),
		AMQPURL:                envString("AMQP_URL", ""),
		QueueVisibilityTimeout: envDuration("QUEUE_VISIBILITY_TIMEOUT", 5*time.Minute),
		QueuePollInterval:      envDuration("QUEUE_POLL_INTERVAL", time.Second),
		QueueMaxAttempts:       envInt("QUEUE_MAX_ATTEMPTS", 5),
		WorkerConcurrency:      envInt("WORKER_CONCURRENCY", 4),

		// Observability
		SentryDSN: envString("SENTRY_DSN", ""),
		LogLevel:  envLevel("LOG_LEVEL", slog.LevelInfo),
	}

	err = Validate(cfg)
	if err != nil {
		return nil, err
	}

	return cfg, nil
}

// validate is the singleton validator instance
var validate = validator.New()

// Validate checks struct tags first, then the rules that span several fields.
func Validate(cfg *Config) error {
	err := validate.Struct(cfg)
	if err != nil {
		return formatValidationError(err)
	}

	if cfg.QueueDriver == QueueDriverSQL && !cfg.UsesSQL() {
		return fmt.Errorf("QUEUE_DRIVER=sql requires a SQL DB_DRIVER (sqlite or pgx), got %q", cfg.DBDriver)
	}

	return nil
}

// formatValidationError converts validator errors into user-friendly messages.
func formatValidationError(err error) error {
	validationErrs, ok := err.(validator.ValidationErrors)
	if ok && len(validationErrs) > 0 {
		e := validationErrs[0]
		return fmt.Errorf("config %s: validation failed on '%s' tag (value: %v)", e.Field(), e.Tag(), e.Value())
	}
	return err
}

func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// UsesSQL reports whether metadata lives in a SQL database.
func (c *Config) UsesSQL() bool {
	return c.DBDriver == DBDriverSQLite || c.DBDriver == DBDriverPostgres
}

func envString(key, def string) string {
	value := os.Getenv(key)
	if value == "" {
		value = def
	}
	return value
}

func envInt(key string, def int) int {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		slog.Warn("config invalid int, using default", "key", key, "value", v, "default", def)
		return def
	}
	return n
}

func envInt64(key string, def int64) int64 {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		slog.Warn("config invalid int, using default", "key", key, "value", v, "default", def)
		return def
	}
	return n
}

func envBool(key string, def bool) bool {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		slog.Warn("config invalid bool, using default", "key", key, "value", v, "default", def)
		return def
	}
	return b
}

func envDuration(key string, def time.Duration) time.Duration {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		slog.Warn("config invalid duration, using default", "key", key, "value", v, "default", def)
		return def
	}
	return d
}

func envLevel(key string, def slog.Level) slog.Level {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	switch strings.ToLower(v) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	slog.Warn("config invalid log level, using default", "key", key, "value", v, "default", def)
	return def
}
