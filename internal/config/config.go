package config

import (
	"os"
	"strconv"
	"strings"

	"surveylens/internal/errors"

	"github.com/go-playground/validator/v10"
)

// Config represents the complete application configuration
type Config struct {
	Server   ServerConfig   `validate:"required"`
	Database DatabaseConfig
	Storage  StorageConfig
	Engine   EngineConfig `validate:"required"`
	LogLevel string       `validate:"omitempty,oneof=ERROR WARN INFO DEBUG TRACE"`
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Port           string   `validate:"required,numeric"`
	AllowedOrigins []string `validate:"dive,required"`
	MaxUploadBytes int64    `validate:"gt=0"`
}

// DatabaseConfig holds database connection settings. An empty URL selects
// the in-memory repository.
type DatabaseConfig struct {
	URL string
}

// StorageConfig holds object store settings. The store is enabled when
// Endpoint is set.
type StorageConfig struct {
	Endpoint  string
	Region    string
	Bucket    string `validate:"required_with=Endpoint"`
	AccessKey string `validate:"required_with=Endpoint"`
	SecretKey string `validate:"required_with=Endpoint"`
	UseSSL    bool
}

// Enabled reports whether an object store endpoint is configured.
func (s StorageConfig) Enabled() bool {
	return s.Endpoint != ""
}

// EngineConfig tunes spreadsheet interpretation.
type EngineConfig struct {
	VocabularyFile string `validate:"omitempty,file"`
	Timezone       string `validate:"required,timezone"`
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	config := &Config{
		Server:   *loadServerConfig(),
		Database: *loadDatabaseConfig(),
		Storage:  *loadStorageConfig(),
		Engine:   *loadEngineConfig(),
		LogLevel: strings.ToUpper(getEnvOrDefault("LOG_LEVEL", "INFO")),
	}

	if err := validateConfig(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}

	return config, nil
}

func loadServerConfig() *ServerConfig {
	return &ServerConfig{
		Port:           getEnvOrDefault("PORT", "8080"),
		AllowedOrigins: getEnvListOrDefault("CORS_ALLOWED_ORIGINS", []string{"*"}),
		MaxUploadBytes: int64(getEnvIntOrDefault("MAX_UPLOAD_BYTES", 10<<20)),
	}
}

func loadDatabaseConfig() *DatabaseConfig {
	return &DatabaseConfig{
		URL: os.Getenv("DATABASE_URL"),
	}
}

func loadStorageConfig() *StorageConfig {
	return &StorageConfig{
		Endpoint:  os.Getenv("MINIO_ENDPOINT"),
		Region:    getEnvOrDefault("MINIO_REGION", "us-east-1"),
		Bucket:    getEnvOrDefault("MINIO_BUCKET", "survey-files"),
		AccessKey: os.Getenv("MINIO_ACCESS_KEY"),
		SecretKey: os.Getenv("MINIO_SECRET_KEY"),
		UseSSL:    getEnvBoolOrDefault("MINIO_USE_SSL", false),
	}
}

func loadEngineConfig() *EngineConfig {
	return &EngineConfig{
		VocabularyFile: os.Getenv("SURVEY_VOCABULARY_FILE"),
		Timezone:       getEnvOrDefault("SURVEY_TIMEZONE", "Asia/Tokyo"),
	}
}

var validate = validator.New()

func validateConfig(config *Config) error {
	if err := validate.Struct(config); err != nil {
		if fieldErrs, ok := err.(validator.ValidationErrors); ok && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			return errors.ConfigInvalid(fe.Namespace() + " failed on '" + fe.Tag() + "'")
		}
		return errors.WithCode(errors.CodeConfigInvalid, err)
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvListOrDefault(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
