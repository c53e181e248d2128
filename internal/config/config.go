package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvConfigPath names the optional YAML file read by Load
const EnvConfigPath = "PRINTVAULT_CONFIG"

// Backend names
const (
	StorageFTP    = "ftp"
	StorageWebDAV = "webdav"
	StorageLocal  = "local"
	StorageGCS    = "gcs"
	StorageMemory = "memory"

	CatalogJSON      = "json"
	CatalogSQLite    = "sqlite"
	CatalogRedis     = "redis"
	CatalogPostgres  = "postgres"
	CatalogBadger    = "badger"
	CatalogFirestore = "firestore"
	CatalogMemory    = "memory"

	AuthNone     = "none"
	AuthToken    = "token"
	AuthFirebase = "firebase"
)

var (
	storageTypes = []string{StorageFTP, StorageWebDAV, StorageLocal, StorageGCS, StorageMemory}
	catalogTypes = []string{CatalogJSON, CatalogSQLite, CatalogRedis, CatalogPostgres, CatalogBadger, CatalogFirestore, CatalogMemory}
	authModes    = []string{AuthNone, AuthToken, AuthFirebase}
	codecs       = []string{"xz", "gzip"}
)

// Config is the full process configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Storage StorageConfig `yaml:"storage"`
	Catalog CatalogConfig `yaml:"catalog"`
	Upload  UploadConfig  `yaml:"upload"`
	Scan    ScanConfig    `yaml:"scan"`
	Auth    AuthConfig    `yaml:"auth"`
	Cache   CacheConfig   `yaml:"cache"`
	Log     LogConfig     `yaml:"log"`
}

type ServerConfig struct {
	Port            int           `yaml:"port"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// StorageConfig selects the remote store and carries every backend's
// settings; only the selected one is used.
type StorageConfig struct {
	Type          string        `yaml:"type"`
	Timeout       time.Duration `yaml:"timeout"`
	UploadTimeout time.Duration `yaml:"upload_timeout"`

	FTP    FTPConfig    `yaml:"ftp"`
	WebDAV WebDAVConfig `yaml:"webdav"`
	Local  LocalConfig  `yaml:"local"`
	GCS    GCSConfig    `yaml:"gcs"`
}

type FTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Secure   bool   `yaml:"secure"`
	BasePath string `yaml:"base_path"`
}

// Addr returns host:port
func (c FTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type WebDAVConfig struct {
	URL      string `yaml:"url"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	BasePath string `yaml:"base_path"`
}

type LocalConfig struct {
	Path string `yaml:"path"`
}

type GCSConfig struct {
	Bucket          string `yaml:"bucket"`
	BasePath        string `yaml:"base_path"`
	CredentialsFile string `yaml:"credentials_file"`
}

// CatalogConfig selects the catalog document store.
type CatalogConfig struct {
	Store       string `yaml:"store"`
	Path        string `yaml:"path"` // json file, sqlite file or badger directory
	Key         string `yaml:"key"`
	RedisURL    string `yaml:"redis_url"`
	DatabaseURL string `yaml:"database_url"`
	ProjectID   string `yaml:"project_id"`
	Collection  string `yaml:"collection"`
}

type UploadConfig struct {
	MaxFiles    int    `yaml:"max_files"`
	MaxFileSize int64  `yaml:"max_file_size"`
	Retries     int    `yaml:"retries"`
	Compress    bool   `yaml:"compress"`
	Codec       string `yaml:"codec"`
}

type ScanConfig struct {
	Interval    time.Duration `yaml:"interval"` // zero disables periodic scans
	Watch       bool          `yaml:"watch"`
	Concurrency int           `yaml:"concurrency"`
}

type AuthConfig struct {
	Mode      string `yaml:"mode"`
	Token     string `yaml:"token"`
	ProjectID string `yaml:"project_id"`
}

// CacheConfig sizes the download cache for small objects such as previews.
type CacheConfig struct {
	Enabled      bool          `yaml:"enabled"`
	TTL          time.Duration `yaml:"ttl"`
	MaxSizeMB    int           `yaml:"max_size_mb"`
	MaxEntrySize int64         `yaml:"max_entry_size"`
}

type LogConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"` // json or console
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// Default returns development defaults. None of them are production-safe:
// FTP falls back to anonymous access on localhost and auth is off.
func Default() Config {
	return Config{
		Server: ServerConfig{Port: 3001, ShutdownTimeout: 15 * time.Second},
		Storage: StorageConfig{
			Type:          StorageFTP,
			Timeout:       30 * time.Second,
			UploadTimeout: 10 * time.Minute,
			FTP: FTPConfig{
				Host:     "localhost",
				Port:     21,
				User:     "anonymous",
				Password: "anonymous",
				BasePath: "/",
			},
			WebDAV: WebDAVConfig{BasePath: "/"},
			Local:  LocalConfig{Path: "./data/files"},
		},
		Catalog: CatalogConfig{
			Store:      CatalogJSON,
			Path:       "./data/catalog.json",
			Key:        "gameData",
			Collection: "catalog",
		},
		Upload: UploadConfig{
			MaxFiles:    20,
			MaxFileSize: 1 << 30,
			Retries:     2,
			Codec:       "xz",
		},
		Scan:  ScanConfig{Concurrency: 4},
		Auth:  AuthConfig{Mode: AuthNone},
		Cache: CacheConfig{Enabled: true, TTL: 10 * time.Minute, MaxSizeMB: 64, MaxEntrySize: 512 << 10},
		Log: LogConfig{
			Level:      "info",
			Format:     "json",
			MaxSizeMB:  100,
			MaxBackups: 5,
			MaxAgeDays: 30,
		},
	}
}

// Load builds the configuration from defaults, then the YAML file at path
// (or $PRINTVAULT_CONFIG when path is empty), then environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv(EnvConfigPath)
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type lookupFunc func(string) (string, bool)

func (c *Config) applyEnv(lookup lookupFunc) error {
	var errs []error
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) {
		if v, ok := lookup(key); ok && v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = n
		}
	}
	flag := func(key string, dst *bool) {
		if v, ok := lookup(key); ok && v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = b
		}
	}

	str("STORAGE_TYPE", &c.Storage.Type)
	str("FTP_HOST", &c.Storage.FTP.Host)
	num("FTP_PORT", &c.Storage.FTP.Port)
	str("FTP_USER", &c.Storage.FTP.User)
	str("FTP_PASSWORD", &c.Storage.FTP.Password)
	flag("FTP_SECURE", &c.Storage.FTP.Secure)
	str("FTP_BASE_PATH", &c.Storage.FTP.BasePath)
	str("WEBDAV_URL", &c.Storage.WebDAV.URL)
	str("WEBDAV_USER", &c.Storage.WebDAV.User)
	str("WEBDAV_PASSWORD", &c.Storage.WebDAV.Password)
	str("WEBDAV_BASE_PATH", &c.Storage.WebDAV.BasePath)
	str("LOCAL_STORAGE_PATH", &c.Storage.Local.Path)
	str("GCS_BUCKET", &c.Storage.GCS.Bucket)
	str("GCS_BASE_PATH", &c.Storage.GCS.BasePath)

	str("CATALOG_STORE", &c.Catalog.Store)
	str("CATALOG_PATH", &c.Catalog.Path)
	str("REDIS_URL", &c.Catalog.RedisURL)
	str("DATABASE_URL", &c.Catalog.DatabaseURL)
	str("GCP_PROJECT_ID", &c.Catalog.ProjectID)
	str("GCP_PROJECT_ID", &c.Auth.ProjectID)

	num("PORT", &c.Server.Port)
	str("AUTH_MODE", &c.Auth.Mode)
	str("AUTH_TOKEN", &c.Auth.Token)

	str("LOG_LEVEL", &c.Log.Level)
	str("LOG_FORMAT", &c.Log.Format)
	str("LOG_FILE", &c.Log.File)

	return errors.Join(errs...)
}

// Validate rejects unknown backend names, non-positive limits and a token
// auth mode without a token.
func (c *Config) Validate() error {
	var errs []error
	oneOf := func(field, value string, allowed []string) {
		if !slices.Contains(allowed, value) {
			errs = append(errs, fmt.Errorf("%s: unknown value %q (expected one of %s)", field, value, strings.Join(allowed, ", ")))
		}
	}
	positive := func(field string, value int64) {
		if value <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %d", field, value))
		}
	}

	oneOf("storage.type", c.Storage.Type, storageTypes)
	oneOf("catalog.store", c.Catalog.Store, catalogTypes)
	oneOf("auth.mode", c.Auth.Mode, authModes)
	oneOf("upload.codec", c.Upload.Codec, codecs)

	positive("server.port", int64(c.Server.Port))
	positive("upload.max_files", int64(c.Upload.MaxFiles))
	positive("upload.max_file_size", c.Upload.MaxFileSize)
	positive("storage.timeout", int64(c.Storage.Timeout))
	positive("storage.upload_timeout", int64(c.Storage.UploadTimeout))
	positive("scan.concurrency", int64(c.Scan.Concurrency))
	if c.Upload.Retries < 0 {
		errs = append(errs, fmt.Errorf("upload.retries must not be negative, got %d", c.Upload.Retries))
	}
	if c.Scan.Interval < 0 {
		errs = append(errs, fmt.Errorf("scan.interval must not be negative"))
	}

	if c.Auth.Mode == AuthToken && c.Auth.Token == "" {
		errs = append(errs, errors.New("auth.mode token requires AUTH_TOKEN"))
	}
	if c.Auth.Mode == AuthFirebase && c.Auth.ProjectID == "" {
		errs = append(errs, errors.New("auth.mode firebase requires GCP_PROJECT_ID"))
	}

	switch c.Storage.Type {
	case StorageWebDAV:
		if c.Storage.WebDAV.URL == "" {
			errs = append(errs, errors.New("storage webdav requires WEBDAV_URL"))
		}
	case StorageGCS:
		if c.Storage.GCS.Bucket == "" {
			errs = append(errs, errors.New("storage gcs requires GCS_BUCKET"))
		}
	case StorageLocal:
		if c.Storage.Local.Path == "" {
			errs = append(errs, errors.New("storage local requires LOCAL_STORAGE_PATH"))
		}
	}

	switch c.Catalog.Store {
	case CatalogRedis:
		if c.Catalog.RedisURL == "" {
			errs = append(errs, errors.New("catalog redis requires REDIS_URL"))
		}
	case CatalogPostgres:
		if c.Catalog.DatabaseURL == "" {
			errs = append(errs, errors.New("catalog postgres requires DATABASE_URL"))
		}
	case CatalogFirestore:
		if c.Catalog.ProjectID == "" {
			errs = append(errs, errors.New("catalog firestore requires GCP_PROJECT_ID"))
		}
	case CatalogJSON, CatalogSQLite, CatalogBadger:
		if c.Catalog.Path == "" {
			errs = append(errs, fmt.Errorf("catalog %s requires CATALOG_PATH", c.Catalog.Store))
		}
	}

	return errors.Join(errs...)
}

// Warnings lists settings that are acceptable for development only.
func (c *Config) Warnings() []string {
	var warnings []string
	if c.Storage.Type == StorageFTP && (c.Storage.FTP.User == "" || c.Storage.FTP.User == "anonymous") {
		warnings = append(warnings, "FTP uses anonymous login")
	}
	if c.Storage.Type == StorageFTP && !c.Storage.FTP.Secure {
		warnings = append(warnings, "FTP credentials are sent without TLS")
	}
	if c.Auth.Mode == AuthNone {
		warnings = append(warnings, "authentication is disabled for mutating routes")
	}
	if c.Storage.Type == StorageMemory || c.Catalog.Store == CatalogMemory {
		warnings = append(warnings, "in-memory backends lose all data on restart")
	}
	return warnings
}

// Redacted returns a copy safe to log.
func (c Config) Redacted() Config {
	mask := func(s string) string {
		if s == "" {
			return ""
		}
		return "***"
	}
	c.Storage.FTP.Password = mask(c.Storage.FTP.Password)
	c.Storage.WebDAV.Password = mask(c.Storage.WebDAV.Password)
	c.Auth.Token = mask(c.Auth.Token)
	c.Catalog.RedisURL = mask(c.Catalog.RedisURL)
	c.Catalog.DatabaseURL = mask(c.Catalog.DatabaseURL)
	return c
}
