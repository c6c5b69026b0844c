package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Session backends.
const (
	BackendFile     = "file"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

// Config captures the runtime configuration of the vidtube client.
type Config struct {
	APIBaseURL  string
	Endpoints   map[string]string
	HTTPTimeout time.Duration
	LogLevel    string
	LogFormat   string

	Session   SessionConfig
	RateLimit RateLimitConfig

	VideoCacheTTL    time.Duration
	YTDLPPath        string
	YTDLPTimeout     time.Duration
	MetadataCacheTTL time.Duration

	Uploads UploadConfig
	Export  ObjectStoreConfig
	Mock    MockConfig
}

// SessionConfig selects where the token pair is kept.
type SessionConfig struct {
	Backend     string
	Path        string
	Passphrase  string
	Profile     string
	DatabaseURL string
}

// RateLimitConfig throttles outgoing API requests. Requests <= 0 disables it.
type RateLimitConfig struct {
	Requests int
	Window   time.Duration
	Burst    int
}

// UploadConfig sizes the batch upload worker pool.
type UploadConfig struct {
	Workers    int
	QueueSize  int
	JobTimeout time.Duration
}

// ObjectStoreConfig describes the bucket catalog exports are written to.
type ObjectStoreConfig struct {
	Bucket        string
	Endpoint      string
	Region        string
	PublicBaseURL string
	Prefix        string
}

// MockConfig configures the local fake API server.
type MockConfig struct {
	Host                  string
	Port                  int
	LoginLimit            int
	LoginWindow           time.Duration
	IssueTokensOnRegister bool
}

// fileConfig is the YAML document named by VIDTUBE_CONFIG. Values set here
// replace the defaults; environment variables still win.
type fileConfig struct {
	APIBaseURL  string            `yaml:"apiBaseURL"`
	Endpoints   map[string]string `yaml:"endpoints"`
	HTTPTimeout string            `yaml:"httpTimeout"`
	LogLevel    string            `yaml:"logLevel"`
	LogFormat   string            `yaml:"logFormat"`
	Session     struct {
		Backend string `yaml:"backend"`
		Path    string `yaml:"path"`
		Profile string `yaml:"profile"`
	} `yaml:"session"`
	Export struct {
		Bucket        string `yaml:"bucket"`
		Endpoint      string `yaml:"endpoint"`
		Region        string `yaml:"region"`
		PublicBaseURL string `yaml:"publicBaseURL"`
		Prefix        string `yaml:"prefix"`
	} `yaml:"export"`
}

// Load reads configuration from an optional YAML file and environment
// variables, applying defaults suited to a local development API.
func Load() (Config, error) {
	var file fileConfig
	if path := strings.TrimSpace(os.Getenv("VIDTUBE_CONFIG")); path != "" {
		parsed, err := readFile(path)
		if err != nil {
			return Config{}, err
		}
		file = parsed
	}

	httpTimeout := 60 * time.Second
	if file.HTTPTimeout != "" {
		d, err := time.ParseDuration(file.HTTPTimeout)
		if err != nil {
			return Config{}, fmt.Errorf("config file: httpTimeout: %w", err)
		}
		httpTimeout = d
	}

	backend := strings.ToLower(getString("VIDTUBE_SESSION_BACKEND", or(file.Session.Backend, BackendFile)))

	cfg := Config{
		APIBaseURL:  getString("VIDTUBE_API_BASE_URL", or(file.APIBaseURL, "http://localhost:8000")),
		Endpoints:   file.Endpoints,
		HTTPTimeout: getDuration("VIDTUBE_HTTP_TIMEOUT", httpTimeout),
		LogLevel:    getString("VIDTUBE_LOG_LEVEL", or(file.LogLevel, "warn")),
		LogFormat:   getString("VIDTUBE_LOG_FORMAT", or(file.LogFormat, "json")),
		Session: SessionConfig{
			Backend:     backend,
			Path:        getString("VIDTUBE_SESSION_PATH", or(file.Session.Path, DefaultSessionPath(backend))),
			Passphrase:  os.Getenv("VIDTUBE_SESSION_PASSPHRASE"),
			Profile:     getString("VIDTUBE_PROFILE", or(file.Session.Profile, "default")),
			DatabaseURL: os.Getenv("VIDTUBE_DATABASE_URL"),
		},
		RateLimit: RateLimitConfig{
			Requests: getInt("VIDTUBE_RATE_LIMIT", 20),
			Window:   getDuration("VIDTUBE_RATE_WINDOW", time.Second),
			Burst:    getInt("VIDTUBE_RATE_BURST", 5),
		},
		VideoCacheTTL:    getDuration("VIDTUBE_VIDEO_CACHE_TTL", 30*time.Second),
		YTDLPPath:        getString("VIDTUBE_YTDLP_PATH", "yt-dlp"),
		YTDLPTimeout:     getDuration("VIDTUBE_YTDLP_TIMEOUT", 30*time.Second),
		MetadataCacheTTL: getDuration("VIDTUBE_METADATA_CACHE_TTL", 15*time.Minute),
		Uploads: UploadConfig{
			Workers:    getInt("VIDTUBE_UPLOAD_WORKERS", 2),
			QueueSize:  getInt("VIDTUBE_UPLOAD_QUEUE", 16),
			JobTimeout: getDuration("VIDTUBE_UPLOAD_JOB_TIMEOUT", 10*time.Minute),
		},
		Export: ObjectStoreConfig{
			Bucket:        getString("VIDTUBE_EXPORT_BUCKET", file.Export.Bucket),
			Endpoint:      getString("VIDTUBE_EXPORT_ENDPOINT", file.Export.Endpoint),
			Region:        getString("VIDTUBE_EXPORT_REGION", or(file.Export.Region, "us-east-1")),
			PublicBaseURL: getString("VIDTUBE_EXPORT_PUBLIC_URL", file.Export.PublicBaseURL),
			Prefix:        getString("VIDTUBE_EXPORT_PREFIX", file.Export.Prefix),
		},
		Mock: MockConfig{
			Host:                  getString("VIDTUBE_MOCK_HOST", "127.0.0.1"),
			Port:                  getInt("VIDTUBE_MOCK_PORT", 8000),
			LoginLimit:            getInt("VIDTUBE_MOCK_LOGIN_LIMIT", 5),
			LoginWindow:           getDuration("VIDTUBE_MOCK_LOGIN_WINDOW", time.Minute),
			IssueTokensOnRegister: getBool("VIDTUBE_MOCK_ISSUE_TOKENS_ON_REGISTER", false),
		},
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks combinations that cannot work.
func (c Config) Validate() error {
	switch c.Session.Backend {
	case BackendFile, BackendSQLite, BackendMemory:
	case BackendPostgres:
		if strings.TrimSpace(c.Session.DatabaseURL) == "" {
			return errors.New("config: VIDTUBE_DATABASE_URL is required for the postgres session backend")
		}
	default:
		return fmt.Errorf("config: unknown session backend %q", c.Session.Backend)
	}
	if strings.TrimSpace(c.APIBaseURL) == "" {
		return errors.New("config: API base URL is empty")
	}
	return nil
}

// DefaultSessionPath returns where the file and sqlite backends keep the
// session, under the user's config directory.
func DefaultSessionPath(backend string) string {
	dir, err := os.UserConfigDir()
	if err != nil || dir == "" {
		dir = "."
	}
	name := "session.json"
	if backend == BackendSQLite {
		name = "session.db"
	}
	return filepath.Join(dir, "vidtube", name)
}

func readFile(path string) (fileConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fileConfig{}, fmt.Errorf("read config file: %w", err)
	}

	var file fileConfig
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil && !errors.Is(err, io.EOF) {
		return fileConfig{}, fmt.Errorf("parse config file %s: %w", path, err)
	}
	return file, nil
}

func or(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return value
	}
	return fallback
}

func getString(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return i
}

func getBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return b
}

func getDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return d
}
