package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envMap(m map[string]string) lookupFunc {
	return func(key string) (string, bool) {
		v, ok := m[key]
		return v, ok
	}
}

func TestDefaultsAreValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 20, cfg.Upload.MaxFiles)
	assert.Equal(t, int64(1<<30), cfg.Upload.MaxFileSize)
	assert.Equal(t, 30*time.Second, cfg.Storage.Timeout)
	assert.Equal(t, 10*time.Minute, cfg.Storage.UploadTimeout)
	assert.False(t, cfg.Upload.Compress)

	warnings := cfg.Warnings()
	assert.Contains(t, warnings, "FTP uses anonymous login")
	assert.Contains(t, warnings, "authentication is disabled for mutating routes")
}

func TestApplyEnv(t *testing.T) {
	cfg := Default()
	err := cfg.applyEnv(envMap(map[string]string{
		"STORAGE_TYPE":     "webdav",
		"WEBDAV_URL":       "https://dav.example.com",
		"WEBDAV_BASE_PATH": "/prints",
		"FTP_PORT":         "2121",
		"FTP_SECURE":       "true",
		"PORT":             "8080",
		"AUTH_MODE":        "token",
		"AUTH_TOKEN":       "s3cret",
		"CATALOG_STORE":    "sqlite",
		"CATALOG_PATH":     "/var/lib/printvault/catalog.db",
	}))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, StorageWebDAV, cfg.Storage.Type)
	assert.Equal(t, "/prints", cfg.Storage.WebDAV.BasePath)
	assert.Equal(t, 2121, cfg.Storage.FTP.Port)
	assert.True(t, cfg.Storage.FTP.Secure)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, CatalogSQLite, cfg.Catalog.Store)
}

func TestApplyEnvRejectsMalformedNumbers(t *testing.T) {
	cfg := Default()
	err := cfg.applyEnv(envMap(map[string]string{"FTP_PORT": "twenty-one", "FTP_SECURE": "maybe"}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "FTP_PORT")
	assert.Contains(t, err.Error(), "FTP_SECURE")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "unknown storage",
			mutate:  func(c *Config) { c.Storage.Type = "s3" },
			wantErr: "storage.type",
		},
		{
			name:    "token mode without token",
			mutate:  func(c *Config) { c.Auth.Mode = AuthToken },
			wantErr: "AUTH_TOKEN",
		},
		{
			name:    "zero max files",
			mutate:  func(c *Config) { c.Upload.MaxFiles = 0 },
			wantErr: "upload.max_files",
		},
		{
			name:    "negative retries",
			mutate:  func(c *Config) { c.Upload.Retries = -1 },
			wantErr: "upload.retries",
		},
		{
			name:    "redis without url",
			mutate:  func(c *Config) { c.Catalog.Store = CatalogRedis },
			wantErr: "REDIS_URL",
		},
		{
			name:    "gcs without bucket",
			mutate:  func(c *Config) { c.Storage.Type = StorageGCS },
			wantErr: "GCS_BUCKET",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadYAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "printvault.yaml")
	content := `
storage:
  type: local
  timeout: 5s
  local:
    path: /srv/prints
upload:
  max_files: 5
  compress: true
scan:
  interval: 1h
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	for _, key := range []string{"STORAGE_TYPE", "LOCAL_STORAGE_PATH", "CATALOG_STORE", "AUTH_MODE"} {
		t.Setenv(key, "")
	}

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, StorageLocal, cfg.Storage.Type)
	assert.Equal(t, 5*time.Second, cfg.Storage.Timeout)
	assert.Equal(t, "/srv/prints", cfg.Storage.Local.Path)
	assert.Equal(t, 5, cfg.Upload.MaxFiles)
	assert.True(t, cfg.Upload.Compress)
	assert.Equal(t, time.Hour, cfg.Scan.Interval)
	// untouched keys keep their defaults
	assert.Equal(t, 10*time.Minute, cfg.Storage.UploadTimeout)
}

func TestRedacted(t *testing.T) {
	cfg := Default()
	cfg.Storage.FTP.Password = "hunter2"
	cfg.Auth.Token = "tok"

	r := cfg.Redacted()
	assert.Equal(t, "***", r.Storage.FTP.Password)
	assert.Equal(t, "***", r.Auth.Token)
	assert.Equal(t, "hunter2", cfg.Storage.FTP.Password)
}
