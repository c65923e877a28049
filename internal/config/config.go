package config

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/vango-dev/behave/internal/errors"
)

const (
	// ConfigFileName is the name of the configuration file.
	ConfigFileName = "behave.json"

	// DefaultPages is the default directory of HTML pages.
	DefaultPages = "pages"

	// DefaultAddr is the default listen address of the server.
	DefaultAddr = ":8080"

	// DefaultLogLevel is the default log level.
	DefaultLogLevel = "info"

	// DefaultTimeout bounds one page pass including fragment fetches.
	DefaultTimeout = 10 * time.Second

	// DefaultViewportWidth is the viewport assumed for responsive images.
	DefaultViewportWidth = 1280
)

// Fragment source kinds.
const (
	FragmentsStatic = "static"
	FragmentsHTTP   = "http"
	FragmentsS3     = "s3"
)

// Config represents behave.json.
type Config struct {
	// Pages is the directory of HTML pages served by "behave serve".
	Pages string `json:"pages,omitempty"`

	// Settings is an optional JSON file with the site settings. Settings
	// embedded in a page take precedence.
	Settings string `json:"settings,omitempty"`

	// Server contains HTTP server configuration.
	Server ServerConfig `json:"server,omitempty"`

	// Log contains logging configuration.
	Log LogConfig `json:"log,omitempty"`

	// Fragments selects where behaviors fetch supplementary markup.
	Fragments FragmentsConfig `json:"fragments,omitempty"`

	// Viewport describes the client pages are prepared for.
	Viewport ViewportConfig `json:"viewport,omitempty"`

	// Metrics configures the Prometheus metrics served by "behave serve".
	Metrics MetricsConfig `json:"metrics,omitempty"`

	// Timeout bounds one page pass.
	Timeout Duration `json:"timeout,omitempty"`

	// configPath stores the path where the config was loaded from.
	configPath string
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Addr string `json:"addr,omitempty"`
}

// LogConfig contains logging configuration.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `json:"level,omitempty"`
}

// FragmentsConfig configures the fragment source.
type FragmentsConfig struct {
	// Kind is static, http or s3. Defaults to static.
	Kind string `json:"kind,omitempty"`

	// BaseURL is used by the http kind.
	BaseURL string `json:"baseURL,omitempty"`

	// Bucket, Prefix, Region and Endpoint are used by the s3 kind.
	Bucket   string `json:"bucket,omitempty"`
	Prefix   string `json:"prefix,omitempty"`
	Region   string `json:"region,omitempty"`
	Endpoint string `json:"endpoint,omitempty"`
}

// MetricsConfig names and shapes the behavior metrics. Empty fields keep
// the collector defaults.
type MetricsConfig struct {
	Namespace   string            `json:"namespace,omitempty"`
	Subsystem   string            `json:"subsystem,omitempty"`
	ConstLabels map[string]string `json:"constLabels,omitempty"`
	Buckets     []float64         `json:"buckets,omitempty"`
}

// ViewportConfig describes the client window.
type ViewportConfig struct {
	Width            int     `json:"width,omitempty"`
	DevicePixelRatio float64 `json:"devicePixelRatio,omitempty"`
	CookiesDisabled  bool    `json:"cookiesDisabled,omitempty"`
}

// Duration is a time.Duration written as a string such as "10s".
type Duration time.Duration

// UnmarshalJSON implements json.Unmarshaler.
func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// MarshalJSON implements json.Marshaler.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// New creates a new Config with default values.
func New() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load loads configuration from behave.json in the given directory.
func Load(dir string) (*Config, error) {
	return LoadFile(filepath.Join(dir, ConfigFileName))
}

// LoadFile loads configuration from a specific file path.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New("E121").
				WithDetail("No behave.json found in " + filepath.Dir(path)).
				WithSuggestion("Create behave.json at the project root")
		}
		return nil, errors.New("E120").Wrap(err)
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, errors.New("E120").
			WithDetail("Failed to parse behave.json: " + err.Error()).
			WithSuggestion("Check that behave.json is valid JSON")
	}

	cfg.configPath = path
	cfg.applyDefaults()

	return cfg, nil
}

// Path returns the path where the config was loaded from.
func (c *Config) Path() string {
	return c.configPath
}

// Dir returns the directory containing the config file.
func (c *Config) Dir() string {
	if c.configPath == "" {
		return "."
	}
	return filepath.Dir(c.configPath)
}

func (c *Config) applyDefaults() {
	if c.Pages == "" {
		c.Pages = DefaultPages
	}
	if c.Server.Addr == "" {
		c.Server.Addr = DefaultAddr
	}
	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
	if c.Fragments.Kind == "" {
		c.Fragments.Kind = FragmentsStatic
	}
	if c.Viewport.Width == 0 {
		c.Viewport.Width = DefaultViewportWidth
	}
	if c.Viewport.DevicePixelRatio == 0 {
		c.Viewport.DevicePixelRatio = 1
	}
	if c.Timeout == 0 {
		c.Timeout = Duration(DefaultTimeout)
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if _, ok := parseLevel(c.Log.Level); !ok {
		return errors.New("E122").
			WithDetail("log.level must be one of debug, info, warn, error; got " + c.Log.Level)
	}
	switch c.Fragments.Kind {
	case FragmentsStatic:
	case FragmentsHTTP:
		if c.Fragments.BaseURL == "" {
			return errors.New("E122").
				WithDetail("fragments.baseURL is required for the http kind")
		}
	case FragmentsS3:
		if c.Fragments.Bucket == "" || c.Fragments.Region == "" {
			return errors.New("E122").
				WithDetail("fragments.bucket and fragments.region are required for the s3 kind")
		}
	default:
		return errors.New("E122").
			WithDetail("fragments.kind must be static, http or s3; got " + c.Fragments.Kind)
	}
	if c.Viewport.Width < 0 || c.Viewport.DevicePixelRatio < 0 {
		return errors.New("E122").
			WithDetail("viewport width and devicePixelRatio must not be negative")
	}
	if c.Timeout < 0 {
		return errors.New("E122").
			WithDetail("timeout must not be negative")
	}
	for i := 1; i < len(c.Metrics.Buckets); i++ {
		if c.Metrics.Buckets[i] <= c.Metrics.Buckets[i-1] {
			return errors.New("E122").
				WithDetail("metrics.buckets must be in increasing order")
		}
	}
	return nil
}

// LogLevel returns the configured slog level. Unknown levels map to info.
func (c *Config) LogLevel() slog.Level {
	level, _ := parseLevel(c.Log.Level)
	return level
}

func parseLevel(s string) (slog.Level, bool) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, true
	case "info":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	}
	return slog.LevelInfo, false
}

// PagesPath returns the absolute path to the pages directory.
func (c *Config) PagesPath() string {
	return c.resolve(c.Pages)
}

// SettingsPath returns the absolute path to the settings file, or "" if
// none is configured.
func (c *Config) SettingsPath() string {
	if c.Settings == "" {
		return ""
	}
	return c.resolve(c.Settings)
}

// TimeoutDuration returns Timeout as a time.Duration.
func (c *Config) TimeoutDuration() time.Duration {
	return time.Duration(c.Timeout)
}

func (c *Config) resolve(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.Dir(), p)
}

// Exists checks if a behave.json exists in the given directory.
func Exists(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, ConfigFileName))
	return err == nil
}

// FindProjectRoot walks up the directory tree to find behave.json.
func FindProjectRoot(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	for {
		if Exists(dir) {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errors.New("E121").
				WithDetail("No behave.json found in " + startDir + " or any parent directory").
				WithSuggestion("Create behave.json at the project root")
		}
		dir = parent
	}
}

// LoadFromWorkingDir loads configuration by searching from the current
// working directory upward.
func LoadFromWorkingDir() (*Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}

	root, err := FindProjectRoot(wd)
	if err != nil {
		return nil, err
	}

	return Load(root)
}
