package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
)

const (
	DefaultAPIURL      = "http://127.0.0.1:8000"
	DefaultWebURL      = "http://127.0.0.1:8001"
	DefaultDBFileName  = ".blogd.db"
	DefaultLogLevel    = "debug"
	DefaultStoreDriver = "sqlite"
	DefaultDatabase    = "blogd"

	DefaultImagesBackend      = "inline"
	DefaultS3Bucket           = "blogd-images"
	DefaultEventsTopic        = "blog.posts"
	DefaultTracingServiceName = "blogd"
	DefaultTracingSampleRatio = 1.0

	DefaultImageMaxUploadBytes int64 = 10 * 1024 * 1024

	DefaultImageGCIntervalSeconds = 3600
	DefaultImageGCGraceSeconds    = 3600

	configFileName           = ".blogd.toml"
	configDirEnvKey          = "BLOGD_CONFIG_DIR"
	trustProjectConfigEnvKey = "BLOGD_TRUST_PROJECT_CONFIG"
)

// Store drivers.
const (
	StoreDriverSQLite   = "sqlite"
	StoreDriverPostgres = "postgres"
	StoreDriverMongo    = "mongo"
)

// Image backends.
const (
	ImagesBackendInline = "inline"
	ImagesBackendLocal  = "local"
	ImagesBackendS3     = "s3"
)

// StoreConfig selects the content store backend.
type StoreConfig struct {
	Driver   string `toml:"driver"`
	DSN      string `toml:"dsn"`
	Database string `toml:"database"`
}

// ImagesConfig selects where post image bytes live.
type ImagesConfig struct {
	Backend        string `toml:"backend"`
	MaxUploadBytes int64  `toml:"max_upload_bytes"`
	LocalRoot      string `toml:"local_root"`
	S3Endpoint     string `toml:"s3_endpoint"`
	S3Bucket       string `toml:"s3_bucket"`
	S3UseSSL       bool   `toml:"s3_use_ssl"`
	S3AccessKey    string `toml:"s3_access_key"`
	S3SecretKey    string `toml:"s3_secret_key"`
	// GCIntervalSeconds is how often srv sweeps unreferenced blobs; 0 disables.
	GCIntervalSeconds int `toml:"gc_interval_seconds"`
	GCGraceSeconds    int `toml:"gc_grace_seconds"`
}

// EventsConfig configures post event publishing.
type EventsConfig struct {
	Brokers []string `toml:"brokers"`
	Topic   string   `toml:"topic"`
}

// TracingConfig configures OTLP trace export.
type TracingConfig struct {
	Endpoint    string  `toml:"endpoint"`
	ServiceName string  `toml:"service_name"`
	SampleRatio float64 `toml:"sample_ratio"`
}

// Config defines runtime configuration for blogd.
type Config struct {
	APIURL                   string        `toml:"api_url"`
	WebURL                   string        `toml:"web_url"`
	DBPath                   string        `toml:"db_path"`
	LogLevel                 string        `toml:"log_level"`
	LogFile                  string        `toml:"log_file"`
	Store                    StoreConfig   `toml:"store"`
	Images                   ImagesConfig  `toml:"images"`
	Events                   EventsConfig  `toml:"events"`
	Tracing                  TracingConfig `toml:"tracing"`
	TrustedProjectConfigPath string        `toml:"-"`
}

// Default returns default configuration values.
func Default() Config {
	return Config{
		APIURL:   DefaultAPIURL,
		WebURL:   DefaultWebURL,
		DBPath:   "",
		LogLevel: DefaultLogLevel,
		Store: StoreConfig{
			Driver:   DefaultStoreDriver,
			Database: DefaultDatabase,
		},
		Images: ImagesConfig{
			Backend:        DefaultImagesBackend,
			MaxUploadBytes:    DefaultImageMaxUploadBytes,
			S3Bucket:          DefaultS3Bucket,
			GCIntervalSeconds: DefaultImageGCIntervalSeconds,
			GCGraceSeconds:    DefaultImageGCGraceSeconds,
		},
		Events: EventsConfig{
			Topic: DefaultEventsTopic,
		},
		Tracing: TracingConfig{
			ServiceName: DefaultTracingServiceName,
			SampleRatio: DefaultTracingSampleRatio,
		},
	}
}

func loadFile(path string, cfg *Config) error {
	_, err := loadFileIfExists(path, cfg)
	return err
}

func loadFileIfExists(path string, cfg *Config) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	if info.IsDir() {
		return false, nil
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return false, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return true, nil
}

func overrideConfigPath() (string, bool) {
	dir := strings.TrimSpace(os.Getenv(configDirEnvKey))
	if dir == "" {
		return "", false
	}
	return filepath.Join(dir, configFileName), true
}

func trustProjectConfig() bool {
	raw := strings.TrimSpace(os.Getenv(trustProjectConfigEnvKey))
	if raw == "" {
		return false
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return false
	}
	return value
}

var allowedKeys = []string{
	"api_url",
	"web_url",
	"db_path",
	"log_level",
	"log_file",
	"store.driver",
	"store.dsn",
	"store.database",
	"images.backend",
	"images.max_upload_bytes",
	"images.local_root",
	"images.s3_endpoint",
	"images.s3_bucket",
	"images.s3_use_ssl",
	"images.s3_access_key",
	"images.s3_secret_key",
	"images.gc_interval_seconds",
	"images.gc_grace_seconds",
	"events.brokers",
	"events.topic",
	"tracing.endpoint",
	"tracing.service_name",
	"tracing.sample_ratio",
}

// AllowedKeys returns the set of valid config keys.
func AllowedKeys() []string {
	return allowedKeys
}

// IsAllowedKey checks if a key is a valid config key.
func IsAllowedKey(key string) bool {
	for _, k := range allowedKeys {
		if k == key {
			return true
		}
	}
	return false
}

// Get returns the value of a config key.
func (c *Config) Get(key string) (string, error) {
	switch key {
	case "api_url":
		return c.APIURL, nil
	case "web_url":
		return c.WebURL, nil
	case "db_path":
		return c.DBPath, nil
	case "log_level":
		return c.LogLevel, nil
	case "log_file":
		return c.LogFile, nil
	case "store.driver":
		return c.Store.Driver, nil
	case "store.dsn":
		return c.Store.DSN, nil
	case "store.database":
		return c.Store.Database, nil
	case "images.backend":
		return c.Images.Backend, nil
	case "images.max_upload_bytes":
		return strconv.FormatInt(c.Images.MaxUploadBytes, 10), nil
	case "images.local_root":
		return c.Images.LocalRoot, nil
	case "images.s3_endpoint":
		return c.Images.S3Endpoint, nil
	case "images.s3_bucket":
		return c.Images.S3Bucket, nil
	case "images.s3_use_ssl":
		return strconv.FormatBool(c.Images.S3UseSSL), nil
	case "images.s3_access_key":
		return c.Images.S3AccessKey, nil
	case "images.s3_secret_key":
		return c.Images.S3SecretKey, nil
	case "images.gc_interval_seconds":
		return strconv.Itoa(c.Images.GCIntervalSeconds), nil
	case "images.gc_grace_seconds":
		return strconv.Itoa(c.Images.GCGraceSeconds), nil
	case "events.brokers":
		return strings.Join(c.Events.Brokers, ","), nil
	case "events.topic":
		return c.Events.Topic, nil
	case "tracing.endpoint":
		return c.Tracing.Endpoint, nil
	case "tracing.service_name":
		return c.Tracing.ServiceName, nil
	case "tracing.sample_ratio":
		return strconv.FormatFloat(c.Tracing.SampleRatio, 'g', -1, 64), nil
	default:
		return "", fmt.Errorf("unknown key: %s", key)
	}
}

// GlobalPath returns the path to the global config file.
func GlobalPath() (string, error) {
	if path, ok := overrideConfigPath(); ok {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, configFileName), nil
}

// ProjectPath returns the path to the project config file.
func ProjectPath() (string, error) {
	if path, ok := overrideConfigPath(); ok {
		return path, nil
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(cwd, configFileName), nil
}

// SetKey reads the TOML file at path, sets key=value, and writes it back.
func SetKey(path, key, value string) error {
	if !IsAllowedKey(key) {
		return fmt.Errorf("unknown key: %s", key)
	}

	data := make(map[string]any)
	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, &data); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
	}

	parsedValue, err := parseSetValue(key, value)
	if err != nil {
		return err
	}
	if err := setNestedKey(data, strings.Split(key, "."), parsedValue); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(data)
}

// Load reads config from trusted files and applies env overrides.
func Load() (*Config, error) {
	cfg := Default()

	if overridePath, ok := overrideConfigPath(); ok {
		if err := loadFile(overridePath, &cfg); err != nil {
			return nil, err
		}
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			if err := loadFile(filepath.Join(home, configFileName), &cfg); err != nil {
				return nil, err
			}
		}

		if trustProjectConfig() {
			if cwd, err := os.Getwd(); err == nil {
				projectPath := filepath.Join(cwd, configFileName)
				info, statErr := os.Stat(projectPath)
				switch {
				case statErr == nil && !info.IsDir():
					if err := loadFile(projectPath, &cfg); err != nil {
						return nil, err
					}
					cfg.TrustedProjectConfigPath = projectPath
				case statErr != nil && !os.IsNotExist(statErr):
					return nil, statErr
				}
			}
		}
	}

	if cfg.DBPath == "" {
		if cwd, err := os.Getwd(); err == nil {
			cfg.DBPath = filepath.Join(cwd, DefaultDBFileName)
		}
	}

	cfg.applyEnv()
	cfg.normalize()

	return &cfg, nil
}

func (c *Config) applyEnv() {
	setFromEnv := func(key string, dst *string) {
		if value := strings.TrimSpace(os.Getenv(key)); value != "" {
			*dst = value
		}
	}
	setFromEnv("BLOGD_API_URL", &c.APIURL)
	setFromEnv("BLOGD_WEB_URL", &c.WebURL)
	setFromEnv("BLOGD_DB", &c.DBPath)
	setFromEnv("BLOGD_LOG_FILE", &c.LogFile)
	setFromEnv("BLOGD_STORE_DRIVER", &c.Store.Driver)
	setFromEnv("BLOGD_STORE_DSN", &c.Store.DSN)
	setFromEnv("BLOGD_IMAGES_BACKEND", &c.Images.Backend)
	setFromEnv("BLOGD_S3_ENDPOINT", &c.Images.S3Endpoint)
	setFromEnv("BLOGD_S3_ACCESS_KEY", &c.Images.S3AccessKey)
	setFromEnv("BLOGD_S3_SECRET_KEY", &c.Images.S3SecretKey)
	setFromEnv("OTEL_EXPORTER_OTLP_ENDPOINT", &c.Tracing.Endpoint)
	setFromEnv("OTEL_SERVICE_NAME", &c.Tracing.ServiceName)

	if raw := strings.TrimSpace(os.Getenv("BLOGD_KAFKA_BROKERS")); raw != "" {
		c.Events.Brokers = splitCSV(raw)
	}
}

func (c *Config) normalize() {
	if strings.TrimSpace(c.LogLevel) == "" {
		c.LogLevel = DefaultLogLevel
	}
	c.Store.Driver = strings.ToLower(strings.TrimSpace(c.Store.Driver))
	if c.Store.Driver == "" {
		c.Store.Driver = DefaultStoreDriver
	}
	if strings.TrimSpace(c.Store.Database) == "" {
		c.Store.Database = DefaultDatabase
	}
	c.Images.Backend = strings.ToLower(strings.TrimSpace(c.Images.Backend))
	if c.Images.Backend == "" {
		c.Images.Backend = DefaultImagesBackend
	}
	if c.Images.MaxUploadBytes <= 0 {
		c.Images.MaxUploadBytes = DefaultImageMaxUploadBytes
	}
	if c.Images.LocalRoot == "" && c.DBPath != "" {
		c.Images.LocalRoot = filepath.Join(filepath.Dir(c.DBPath), ".blogd", "blobs")
	}
	if strings.TrimSpace(c.Images.S3Bucket) == "" {
		c.Images.S3Bucket = DefaultS3Bucket
	}
	if c.Images.GCIntervalSeconds < 0 {
		c.Images.GCIntervalSeconds = 0
	}
	if c.Images.GCGraceSeconds <= 0 {
		c.Images.GCGraceSeconds = DefaultImageGCGraceSeconds
	}
	if strings.TrimSpace(c.Events.Topic) == "" {
		c.Events.Topic = DefaultEventsTopic
	}
	if strings.TrimSpace(c.Tracing.ServiceName) == "" {
		c.Tracing.ServiceName = DefaultTracingServiceName
	}
	if c.Tracing.SampleRatio <= 0 || c.Tracing.SampleRatio > 1 {
		c.Tracing.SampleRatio = DefaultTracingSampleRatio
	}
}

// Validate reports configuration that cannot start a server.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case StoreDriverSQLite:
		if strings.TrimSpace(c.DBPath) == "" {
			return fmt.Errorf("db_path is required for the sqlite store")
		}
	case StoreDriverPostgres, StoreDriverMongo:
		if strings.TrimSpace(c.Store.DSN) == "" {
			return fmt.Errorf("store.dsn is required for the %s store", c.Store.Driver)
		}
	default:
		return fmt.Errorf("unknown store.driver %q", c.Store.Driver)
	}

	switch c.Images.Backend {
	case ImagesBackendInline, ImagesBackendLocal:
	case ImagesBackendS3:
		if strings.TrimSpace(c.Images.S3Endpoint) == "" {
			return fmt.Errorf("images.s3_endpoint is required for the s3 image backend")
		}
	default:
		return fmt.Errorf("unknown images.backend %q", c.Images.Backend)
	}
	return nil
}

func parseSetValue(key, value string) (any, error) {
	value = strings.TrimSpace(value)
	switch key {
	case "images.max_upload_bytes":
		parsed, err := strconv.ParseInt(value, 10, 64)
		if err != nil || parsed <= 0 {
			return nil, fmt.Errorf("%s must be a positive integer", key)
		}
		return parsed, nil
	case "images.gc_interval_seconds", "images.gc_grace_seconds":
		parsed, err := strconv.Atoi(value)
		if err != nil || parsed < 0 {
			return nil, fmt.Errorf("%s must be a non-negative integer", key)
		}
		return int64(parsed), nil
	case "images.s3_use_ssl":
		parsed, err := strconv.ParseBool(value)
		if err != nil {
			return nil, fmt.Errorf("%s must be true or false", key)
		}
		return parsed, nil
	case "tracing.sample_ratio":
		parsed, err := strconv.ParseFloat(value, 64)
		if err != nil || parsed <= 0 || parsed > 1 {
			return nil, fmt.Errorf("%s must be a number in (0, 1]", key)
		}
		return parsed, nil
	case "events.brokers":
		return splitCSV(value), nil
	case "store.driver":
		driver := strings.ToLower(value)
		switch driver {
		case StoreDriverSQLite, StoreDriverPostgres, StoreDriverMongo:
			return driver, nil
		}
		return nil, fmt.Errorf("%s must be one of sqlite, postgres, mongo", key)
	case "images.backend":
		backend := strings.ToLower(value)
		switch backend {
		case ImagesBackendInline, ImagesBackendLocal, ImagesBackendS3:
			return backend, nil
		}
		return nil, fmt.Errorf("%s must be one of inline, local, s3", key)
	default:
		return value, nil
	}
}

func setNestedKey(data map[string]any, parts []string, value any) error {
	if len(parts) == 0 {
		return fmt.Errorf("invalid config key")
	}
	if len(parts) == 1 {
		data[parts[0]] = value
		return nil
	}
	childRaw, ok := data[parts[0]]
	if !ok {
		child := map[string]any{}
		data[parts[0]] = child
		return setNestedKey(child, parts[1:], value)
	}
	child, ok := childRaw.(map[string]any)
	if !ok {
		return fmt.Errorf("cannot set nested key %q", strings.Join(parts, "."))
	}
	return setNestedKey(child, parts[1:], value)
}

func splitCSV(value string) []string {
	value = strings.TrimSpace(value)
	if value == "" {
		return []string{}
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}
