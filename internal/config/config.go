package config

import (
	"os"
	"strconv"
	"time"
)

// DatabaseConfig holds PostgreSQL database connection settings.
type DatabaseConfig struct {
	Host               string
	Port               string
	User               string
	Password           string
	Name               string
	SSLMode            string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetimeSec int
	ApplicationName    string
	AutoMigrate        bool
}

// MinIOConfig holds object storage settings for MinIO.
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// AuthConfig holds the settings used to verify and mint principal tokens.
type AuthConfig struct {
	JWTSecret string
	Issuer    string
	TokenTTL  time.Duration
}

// RetentionConfig controls how and when the retention sweep runs.
//
// Scheduler selects the driver: "inprocess" runs a ticker inside the API process,
// "asynq" leaves scheduling to cmd/worker, "off" disables automatic sweeps.
type RetentionConfig struct {
	Scheduler     string
	SweepInterval time.Duration
	SweepCron     string
}

// ArtifactConfig controls transient download artifacts.
type ArtifactConfig struct {
	TTL             time.Duration
	JanitorInterval time.Duration
	JanitorCron     string
	SigningSecret   string
	CacheSize       int
}

// RedisConfig holds the asynq broker connection.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// AppConfig is the centralized configuration struct for the application.
// It is populated from environment variables. Sensitive values are not hardcoded.
type AppConfig struct {
	AppHost       string
	Port          string
	PublicBaseURL string
	Timezone      string
	LogLevel      string
	BodyLimitMB   int
	Database      DatabaseConfig
	MinIO         MinIOConfig
	Auth          AuthConfig
	Retention     RetentionConfig
	Artifacts     ArtifactConfig
	Redis         RedisConfig
}

// Load reads configuration from environment variables.
// A .env file can be auto-loaded by importing: _ "github.com/joho/godotenv/autoload"
// This function does not require a .env file; real environment variables take precedence.
func Load() *AppConfig {
	port := getEnv("PORT", "8080")
	return &AppConfig{
		AppHost:       getEnv("APP_HOST", "localhost:8080"),
		Port:          port,
		PublicBaseURL: getEnv("PUBLIC_BASE_URL", "http://localhost:"+port),
		Timezone:      getEnv("APP_TIMEZONE", "UTC"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		BodyLimitMB:   getEnvInt("BODY_LIMIT_MB", 50),
		Database: DatabaseConfig{
			Host:               getEnv("DB_HOST", ""),
			Port:               getEnv("DB_PORT", "5432"),
			User:               getEnv("DB_USER", ""),
			Password:           getEnv("DB_PASSWORD", ""),
			Name:               getEnv("DB_NAME", ""),
			SSLMode:            getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:       getEnvInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:       getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetimeSec: getEnvInt("DB_CONN_MAX_LIFETIME_SEC", 300),
			ApplicationName:    getEnv("DB_APPLICATION_NAME", "doclife"),
			AutoMigrate:        getEnvBool("DB_AUTO_MIGRATE", true),
		},
		MinIO: MinIOConfig{
			Endpoint:  getEnv("MINIO_ENDPOINT", ""),
			AccessKey: getEnv("MINIO_ACCESS_KEY", ""),
			SecretKey: getEnv("MINIO_SECRET_KEY", ""),
			Bucket:    getEnv("MINIO_BUCKET", ""),
			UseSSL:    getEnvBool("MINIO_USE_SSL", false),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("AUTH_JWT_SECRET", ""),
			Issuer:    getEnv("AUTH_ISSUER", "doclife"),
			TokenTTL:  getEnvDuration("AUTH_TOKEN_TTL", 8*time.Hour),
		},
		Retention: RetentionConfig{
			Scheduler:     getEnv("RETENTION_SCHEDULER", "inprocess"),
			SweepInterval: getEnvDuration("RETENTION_SWEEP_INTERVAL", 24*time.Hour),
			SweepCron:     getEnv("RETENTION_SWEEP_CRON", "@daily"),
		},
		Artifacts: ArtifactConfig{
			TTL:             getEnvDuration("ARTIFACT_TTL", 10*time.Minute),
			JanitorInterval: getEnvDuration("ARTIFACT_JANITOR_INTERVAL", time.Minute),
			JanitorCron:     getEnv("ARTIFACT_JANITOR_CRON", "@every 1m"),
			SigningSecret:   getEnv("ARTIFACT_SIGNING_SECRET", ""),
			CacheSize:       getEnvInt("ARTIFACT_CACHE_SIZE", 256),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
	}
}

// Location resolves the configured timezone, falling back to UTC.
func (c *AppConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err == nil {
			return i
		}
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err == nil && d > 0 {
			return d
		}
	}
	return def
}
