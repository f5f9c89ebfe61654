package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateConfig(t *testing.T) {
	valid := func() *Config {
		cfg := &Config{}
		ApplyDefaults(cfg)
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(cfg *Config)
		wantErr string
	}{
		{
			name:   "defaults are valid",
			mutate: func(cfg *Config) {},
		},
		{
			name:    "retry count out of range",
			mutate:  func(cfg *Config) { cfg.HTTPClient.RetryCount = 21 },
			wantErr: "YAML global config: http_client directive is invalid: retry_count must be between 0 and 20: 21",
		},
		{
			name:    "negative timeout",
			mutate:  func(cfg *Config) { cfg.HTTPClient.Timeout = -time.Second },
			wantErr: "YAML global config: http_client directive is invalid: invalid duration for Timeout: -1s cannot be negative",
		},
		{
			name:    "bad proxy port",
			mutate:  func(cfg *Config) { cfg.HTTPClient.Proxy = Proxy{Host: "proxy.local", Port: 70000} },
			wantErr: "YAML global config: http_client directive is invalid: port must be between 1 and 65535, got 70000",
		},
		{
			name:    "empty compose command",
			mutate:  func(cfg *Config) { cfg.Compose.Command = []string{" "} },
			wantErr: "YAML global config: compose directive is invalid: command must not be empty",
		},
		{
			name:    "readiness timeout too long",
			mutate:  func(cfg *Config) { cfg.Compose.ReadinessTimeout = time.Hour },
			wantErr: "YAML global config: compose directive is invalid: readiness_timeout duration is too long: 1h0m0s exceeds maximum of 5m0s",
		},
		{
			name:    "unknown storage",
			mutate:  func(cfg *Config) { cfg.Receiver.Storage = "ftp" },
			wantErr: `YAML global config: receiver directive is invalid: unsupported storage "ftp", expected "local" or "s3"`,
		},
		{
			name:    "s3 without bucket",
			mutate:  func(cfg *Config) { cfg.Receiver.Storage = StorageS3 },
			wantErr: "YAML global config: receiver directive is invalid: s3 storage requires a bucket",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := ValidateConfig(cfg)
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				assert.EqualError(t, err, tt.wantErr)
			}
		})
	}
}

func TestLoadConfig(t *testing.T) {
	t.Run("explicit file is decoded and defaulted", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yml")
		content := []byte(`logger:
  level: debug
compose:
  command: ["docker-compose"]
receiver:
  storage: s3
  s3:
    bucket: artifacts
`)
		require.NoError(t, os.WriteFile(path, content, 0o644))

		cfg, err := LoadConfig(path)
		require.NoError(t, err)
		assert.Equal(t, "debug", cfg.Logger.Level)
		assert.Equal(t, []string{"docker-compose"}, cfg.Compose.Command)
		assert.Equal(t, "artifacts", cfg.Receiver.S3.Bucket)
		assert.Equal(t, DefaultReceiverService, cfg.Compose.ReceiverService)
		assert.Equal(t, DefaultPackageRoots(), cfg.Merge.PackageRoots)
	})

	t.Run("explicit missing file fails", func(t *testing.T) {
		_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yml"))
		assert.Error(t, err)
	})

	t.Run("directory is rejected", func(t *testing.T) {
		_, err := LoadConfig(t.TempDir())
		assert.ErrorContains(t, err, "is a directory, not a file")
	})
}

func TestGetBoolValue(t *testing.T) {
	yes := true
	cfg := &Config{Logger: Logger{JSONFormat: &yes}}

	assert.True(t, GetBoolValue(cfg, "Logger.JSONFormat", false))
	assert.True(t, GetBoolValue(cfg, "Logger.DisableTime", true))
	assert.False(t, GetBoolValue(cfg, "Logger.Missing", false))
	assert.False(t, GetBoolValue(nil, "Logger.JSONFormat", false))
}
