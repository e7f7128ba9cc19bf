package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
)

// DatabaseConfig holds PostgreSQL database connection settings.
type DatabaseConfig struct {
	Host               string `validate:"required"`
	Port               string `validate:"required,numeric"`
	User               string `validate:"required"`
	Password           string
	Name               string `validate:"required"`
	SSLMode            string `validate:"omitempty,oneof=disable allow prefer require verify-ca verify-full"`
	MaxOpenConns       int    `validate:"gte=0"`
	MaxIdleConns       int    `validate:"gte=0"`
	ConnMaxLifetimeSec int    `validate:"gte=0"`
}

// StorageConfig holds object storage settings.
// Driver selects the backend: "minio" (default), "s3" (AWS SDK) or "memory".
type StorageConfig struct {
	Driver    string `validate:"required,oneof=minio s3 memory"`
	Endpoint  string `validate:"required_unless=Driver memory"`
	AccessKey string `validate:"required_unless=Driver memory"`
	SecretKey string `validate:"required_unless=Driver memory"`
	Bucket    string `validate:"required"`
	Region    string
	UseSSL    bool
	PathStyle bool
}

// OwnershipConfig points at the owner-of-record service that authorizes file mutations.
type OwnershipConfig struct {
	BaseURL    string `validate:"required,url"`
	TimeoutSec int    `validate:"gt=0"`
}

// Timeout returns the per-call timeout of the ownership client.
func (c OwnershipConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSec) * time.Second
}

// TelemetryConfig holds tracing settings that are not covered by the standard OTEL_* variables.
type TelemetryConfig struct {
	ServiceName string `validate:"required"`
}

// AppConfig is the centralized configuration struct for the application.
// It is populated from environment variables. Sensitive values are not hardcoded.
type AppConfig struct {
	AppHost     string
	Port        string `validate:"required,numeric"`
	TimeZone    string
	MaxUploadMB int `validate:"gt=0"`
	Database    DatabaseConfig
	Storage     StorageConfig
	Ownership   OwnershipConfig
	Telemetry   TelemetryConfig
}

// Load reads configuration from environment variables.
// A .env file can be auto-loaded by importing: _ "github.com/joho/godotenv/autoload"
// This function does not require a .env file; real environment variables take precedence.
func Load() *AppConfig {
	return &AppConfig{
		AppHost:     getEnv("APP_HOST", "localhost:8080"),
		Port:        getEnv("PORT", "8080"),
		TimeZone:    getEnv("APP_TIMEZONE", "UTC"),
		MaxUploadMB: getEnvInt("MAX_UPLOAD_MB", 25),
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
		},
		Storage: StorageConfig{
			Driver:    getEnv("STORAGE_DRIVER", "minio"),
			Endpoint:  getEnv("STORAGE_ENDPOINT", ""),
			AccessKey: getEnv("STORAGE_ACCESS_KEY", ""),
			SecretKey: getEnv("STORAGE_SECRET_KEY", ""),
			Bucket:    getEnv("STORAGE_BUCKET", "idea-files"),
			Region:    getEnv("STORAGE_REGION", "us-east-1"),
			UseSSL:    getEnvBool("STORAGE_USE_SSL", false),
			PathStyle: getEnvBool("STORAGE_PATH_STYLE", true),
		},
		Ownership: OwnershipConfig{
			BaseURL:    getEnv("OWNERSHIP_SERVICE_URL", ""),
			TimeoutSec: getEnvInt("OWNERSHIP_TIMEOUT_SEC", 5),
		},
		Telemetry: TelemetryConfig{
			ServiceName: getEnv("OTEL_SERVICE_NAME", "ideafiles"),
		},
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the loaded values before any connection is attempted.
func (c *AppConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if _, err := time.LoadLocation(c.TimeZone); err != nil {
		return fmt.Errorf("invalid configuration: APP_TIMEZONE: %w", err)
	}
	return nil
}

// BodyLimit is the largest accepted request body in bytes.
func (c *AppConfig) BodyLimit() int {
	return c.MaxUploadMB << 20
}

// Location returns the time zone used for log timestamps, falling back to UTC.
func (c *AppConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.TimeZone)
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
