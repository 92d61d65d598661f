package config

import (
	"testing"

	"surveylens/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"PORT", "CORS_ALLOWED_ORIGINS", "MAX_UPLOAD_BYTES", "DATABASE_URL",
		"MINIO_ENDPOINT", "MINIO_REGION", "MINIO_BUCKET", "MINIO_ACCESS_KEY",
		"MINIO_SECRET_KEY", "MINIO_USE_SSL", "SURVEY_VOCABULARY_FILE",
		"SURVEY_TIMEZONE", "LOG_LEVEL",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, []string{"*"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, int64(10<<20), cfg.Server.MaxUploadBytes)
	assert.Empty(t, cfg.Database.URL)
	assert.False(t, cfg.Storage.Enabled())
	assert.Equal(t, "survey-files", cfg.Storage.Bucket)
	assert.Equal(t, "Asia/Tokyo", cfg.Engine.Timezone)
	assert.Equal(t, "INFO", cfg.LogLevel)
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9090")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://a.example, http://b.example,")
	t.Setenv("MAX_UPLOAD_BYTES", "2048")
	t.Setenv("MINIO_ENDPOINT", "localhost:9000")
	t.Setenv("MINIO_ACCESS_KEY", "minio")
	t.Setenv("MINIO_SECRET_KEY", "minio123")
	t.Setenv("MINIO_USE_SSL", "true")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, []string{"http://a.example", "http://b.example"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, int64(2048), cfg.Server.MaxUploadBytes)
	assert.True(t, cfg.Storage.Enabled())
	assert.True(t, cfg.Storage.UseSSL)
	assert.Equal(t, "DEBUG", cfg.LogLevel)
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"non numeric port", map[string]string{"PORT": "http"}},
		{"unknown timezone", map[string]string{"SURVEY_TIMEZONE": "Mars/Olympus"}},
		{"storage without credentials", map[string]string{"MINIO_ENDPOINT": "localhost:9000"}},
		{"bad log level", map[string]string{"LOG_LEVEL": "LOUD"}},
		{"missing vocabulary file", map[string]string{"SURVEY_VOCABULARY_FILE": "/does/not/exist.yaml"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			require.Error(t, err)
			assert.Equal(t, errors.CodeConfigInvalid, errors.GetCode(err))
		})
	}
}
