package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config is the full application configuration, populated from environment
// variables. Every section has working local defaults.
type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	MinIO    MinIOConfig
	Image    ImageConfig
	Rating   RatingConfig
}

type AppConfig struct {
	Name        string
	Environment string // development, staging, production
	Port        string
	Version     string
	// TopRatedLimit is the fixed size of the best-rating listing.
	TopRatedLimit int
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	MaxConns int
	MinConns int
}

type RedisConfig struct {
	Host     string
	Password string
	DB       int
}

type JWTConfig struct {
	Secret            string
	AccessTokenExpiry int // minutes
}

type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// ImageConfig drives upload normalization. AllowedTypes is the static
// MIME-type table handed to the image processor; it maps accepted upload
// content types to their file extension.
type ImageConfig struct {
	MaxWidth       int
	Quality        int
	MaxUploadBytes int64
	MaxConcurrent  int64
	AllowedTypes   map[string]string
}

// RatingConfig bounds the accepted grade range. The range is deployment
// configuration, not a hard-coded product rule.
type RatingConfig struct {
	MinGrade int
	MaxGrade int
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		App: AppConfig{
			Name:          getEnv("APP_NAME", "Grimoire API"),
			Environment:   getEnv("APP_ENV", "development"),
			Port:          getEnv("APP_PORT", "8080"),
			Version:       getEnv("APP_VERSION", "1.0.0"),
			TopRatedLimit: getEnvInt("TOP_RATED_LIMIT", 3),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			Database: getEnv("DB_NAME", "grimoire"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
			MaxConns: getEnvInt("DB_MAX_CONNS", 25),
			MinConns: getEnvInt("DB_MIN_CONNS", 5),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		JWT: JWTConfig{
			Secret:            getEnv("JWT_SECRET", "your-secret-key-change-in-production"),
			AccessTokenExpiry: getEnvInt("JWT_ACCESS_EXPIRY", 60*24),
		},
		MinIO: MinIOConfig{
			Endpoint:  getEnv("MINIO_ENDPOINT", "localhost:9000"),
			AccessKey: getEnv("MINIO_ACCESS_KEY", "minioadmin"),
			SecretKey: getEnv("MINIO_SECRET_KEY", "minioadmin"),
			Bucket:    getEnv("MINIO_BUCKET", "grimoire"),
			UseSSL:    getEnv("MINIO_USE_SSL", "false") == "true",
		},
		Image: ImageConfig{
			MaxWidth:       getEnvInt("IMAGE_MAX_WIDTH", 400),
			Quality:        getEnvInt("IMAGE_QUALITY", 90),
			MaxUploadBytes: int64(getEnvInt("IMAGE_MAX_UPLOAD_MB", 5)) * 1024 * 1024,
			MaxConcurrent:  int64(getEnvInt("IMAGE_MAX_CONCURRENT", 4)),
			AllowedTypes: map[string]string{
				"image/jpg":  "jpg",
				"image/jpeg": "jpg",
				"image/png":  "png",
				"image/gif":  "gif",
				"image/webp": "webp",
			},
		},
		Rating: RatingConfig{
			MinGrade: getEnvInt("RATING_MIN_GRADE", 0),
			MaxGrade: getEnvInt("RATING_MAX_GRADE", 5),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate rejects configurations that must not reach production.
func (c *Config) Validate() error {
	if c.App.Environment == "production" {
		if c.JWT.Secret == "your-secret-key-change-in-production" {
			return fmt.Errorf("JWT_SECRET must be set in production")
		}
		if c.Database.Password == "" {
			return fmt.Errorf("DB_PASSWORD must be set in production")
		}
	}

	if c.Rating.MinGrade > c.Rating.MaxGrade {
		return fmt.Errorf("RATING_MIN_GRADE must be <= RATING_MAX_GRADE")
	}

	if c.Image.MaxWidth <= 0 {
		return fmt.Errorf("IMAGE_MAX_WIDTH must be positive")
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
