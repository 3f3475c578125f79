// Package config defines the gateway configuration surface: the TOML file
// format, default values, and the fail-fast validation that runs before the
// process begins serving. A Config is loaded once at startup and treated as
// immutable afterwards.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// LogLevel defines the minimum severity for error logs.
type LogLevel string

const (
	LogLevelDebug   LogLevel = "DEBUG"
	LogLevelInfo    LogLevel = "INFO"
	LogLevelWarning LogLevel = "WARNING"
	LogLevelError   LogLevel = "ERROR"
)

// Duration is a time.Duration that unmarshals from a TOML string like "30s".
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(text), err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config is the top-level configuration structure for the gateway.
// Optional scalar fields use pointer types so that an absent value can be
// distinguished from an explicit zero; ApplyDefaults fills in the gaps.
type Config struct {
	Server  *ServerConfig  `toml:"server"`
	Routes  *RoutesConfig  `toml:"routes"`
	Backend *BackendConfig `toml:"backend"`
	Uploads *UploadsConfig `toml:"uploads"`
	Logging *LoggingConfig `toml:"logging"`
	Metrics *MetricsConfig `toml:"metrics"`
}

// ServerConfig holds the inbound listener settings.
type ServerConfig struct {
	Listen          string    `toml:"listen"`
	ServerName      string    `toml:"server_name"`
	MaxConnections  *int      `toml:"max_connections"`
	ReadTimeout     *Duration `toml:"read_timeout"`
	WriteTimeout    *Duration `toml:"write_timeout"`
	ShutdownTimeout *Duration `toml:"shutdown_timeout"`
}

// RoutesConfig maps URL prefixes to filesystem roots. The prefixes drive
// request classification; the roots supply the bytes.
type RoutesConfig struct {
	// SiteRoot is the URL prefix the whole site is mounted under. Empty
	// means the site lives at "/".
	SiteRoot string `toml:"site_root"`

	MediaPrefix     string `toml:"media_prefix"`
	StaticPrefix    string `toml:"static_prefix"`
	ErrorDocsPrefix string `toml:"errordocs_prefix"`
	UploadPrefix    string `toml:"upload_prefix"`

	MediaRoot     string `toml:"media_root"`
	StaticRoot    string `toml:"static_root"`
	ErrorDocsRoot string `toml:"errordocs_root"`

	// ErrorDocument is a file served for 500-class failures. Optional; a
	// built-in page is used when unset.
	ErrorDocument string `toml:"error_document"`
}

// BackendConfig describes the local transport to the application process.
type BackendConfig struct {
	// Network names the backend transport. Only "unix" is supported; the
	// field exists so the choice is recorded in the file rather than
	// implied.
	Network         string    `toml:"network"`
	Address         string    `toml:"address"`
	DialTimeout     *Duration `toml:"dial_timeout"`
	ResponseTimeout *Duration `toml:"response_timeout"`
	MaxIdleConns    *int      `toml:"max_idle_conns"`
}

// UploadsConfig controls sanitization of user-uploaded media.
type UploadsConfig struct {
	// RiskyExtensions lists extensions (without dot) whose content type is
	// forced to ForcedContentType. Matching is case-insensitive.
	RiskyExtensions   []string `toml:"risky_extensions"`
	ForcedContentType string   `toml:"forced_content_type"`
}

// LoggingConfig holds logging settings. Targets accept "stdout", "stderr"
// or an absolute file path.
type LoggingConfig struct {
	Level        LogLevel `toml:"level"`
	AccessTarget string   `toml:"access_target"`
	ErrorTarget  string   `toml:"error_target"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled *bool  `toml:"enabled"`
	Listen  string `toml:"listen"`
}

// DefaultRiskyExtensions is the fixed set of extensions that must never be
// served with an executable or renderable content type from the upload tree.
var DefaultRiskyExtensions = []string{
	"html", "htm", "shtml",
	"php", "php3", "php4", "php5",
	"phtm", "phtml",
	"asp", "pl", "py", "fcgi", "cgi", "jsp", "sh", "rb",
}

// Load reads, decodes, defaults and validates the configuration file at
// path. Any error here is fatal by contract: the process must not start on
// an invalid configuration.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration in %s: %w", path, err)
	}
	return &cfg, nil
}

func intPtr(v int) *int                { return &v }
func boolPtr(v bool) *bool             { return &v }
func durPtr(v time.Duration) *Duration { d := Duration(v); return &d }

// ApplyDefaults fills every absent optional field with its documented
// default. It is idempotent and safe to call on a zero Config.
func (c *Config) ApplyDefaults() {
	if c.Server == nil {
		c.Server = &ServerConfig{}
	}
	if c.Server.Listen == "" {
		c.Server.Listen = ":8080"
	}
	if c.Server.MaxConnections == nil {
		c.Server.MaxConnections = intPtr(512)
	}
	if c.Server.ReadTimeout == nil {
		c.Server.ReadTimeout = durPtr(30 * time.Second)
	}
	if c.Server.WriteTimeout == nil {
		c.Server.WriteTimeout = durPtr(30 * time.Second)
	}
	if c.Server.ShutdownTimeout == nil {
		c.Server.ShutdownTimeout = durPtr(10 * time.Second)
	}

	if c.Routes == nil {
		c.Routes = &RoutesConfig{}
	}
	if c.Routes.MediaPrefix == "" {
		c.Routes.MediaPrefix = "/media"
	}
	if c.Routes.StaticPrefix == "" {
		c.Routes.StaticPrefix = "/static"
	}
	if c.Routes.ErrorDocsPrefix == "" {
		c.Routes.ErrorDocsPrefix = "/errordocs"
	}
	if c.Routes.UploadPrefix == "" {
		c.Routes.UploadPrefix = c.Routes.MediaPrefix + "/uploaded"
	}

	if c.Backend == nil {
		c.Backend = &BackendConfig{}
	}
	if c.Backend.Network == "" {
		c.Backend.Network = "unix"
	}
	if c.Backend.DialTimeout == nil {
		c.Backend.DialTimeout = durPtr(5 * time.Second)
	}
	if c.Backend.ResponseTimeout == nil {
		c.Backend.ResponseTimeout = durPtr(30 * time.Second)
	}
	if c.Backend.MaxIdleConns == nil {
		c.Backend.MaxIdleConns = intPtr(16)
	}

	if c.Uploads == nil {
		c.Uploads = &UploadsConfig{}
	}
	if len(c.Uploads.RiskyExtensions) == 0 {
		c.Uploads.RiskyExtensions = append([]string(nil), DefaultRiskyExtensions...)
	}
	if c.Uploads.ForcedContentType == "" {
		c.Uploads.ForcedContentType = "text/plain; charset=utf-8"
	}

	if c.Logging == nil {
		c.Logging = &LoggingConfig{}
	}
	if c.Logging.Level == "" {
		c.Logging.Level = LogLevelInfo
	}
	if c.Logging.AccessTarget == "" {
		c.Logging.AccessTarget = "stdout"
	}
	if c.Logging.ErrorTarget == "" {
		c.Logging.ErrorTarget = "stderr"
	}

	if c.Metrics == nil {
		c.Metrics = &MetricsConfig{}
	}
	if c.Metrics.Enabled == nil {
		c.Metrics.Enabled = boolPtr(true)
	}
	if c.Metrics.Listen == "" {
		c.Metrics.Listen = ":9090"
	}
}
