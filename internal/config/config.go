package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"

	"github.com/vango-dev/livehooks/internal/errors"
	"github.com/vango-dev/livehooks/pkg/protocol"
	"github.com/vango-dev/livehooks/pkg/upload"
)

const (
	// FileName is the configuration file looked up in the working directory.
	FileName = "livehooks.yaml"

	// EnvPrefix prefixes environment overrides, e.g. LIVEHOOKS_SERVER_ADDR.
	EnvPrefix = "LIVEHOOKS_"

	// DefaultAddr is the default listen address.
	DefaultAddr = "localhost:4000"

	// DefaultLivePath is the default WebSocket endpoint.
	DefaultLivePath = "/live"

	// DefaultMobileBreakpoint is the max-width in pixels below which hooks
	// switch to mobile behavior.
	DefaultMobileBreakpoint = 768
)

// Upload backends.
const (
	BackendDisk = "disk"
	BackendS3   = "s3"
)

// Config is the complete livehooks.yaml configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server" koanf:"server"`
	Uploads UploadsConfig `yaml:"uploads" koanf:"uploads"`
	Client  ClientConfig  `yaml:"client" koanf:"client"`
	Log     LogConfig     `yaml:"log" koanf:"log"`
}

// ServerConfig configures the sync server.
type ServerConfig struct {
	Addr              string        `yaml:"addr" koanf:"addr"`
	LivePath          string        `yaml:"live_path" koanf:"live_path"`
	ReadTimeout       time.Duration `yaml:"read_timeout" koanf:"read_timeout"`
	WriteTimeout      time.Duration `yaml:"write_timeout" koanf:"write_timeout"`
	HeartbeatInterval time.Duration `yaml:"heartbeat_interval" koanf:"heartbeat_interval"`
	HandlerTimeout    time.Duration `yaml:"handler_timeout" koanf:"handler_timeout"`
	MaxMessageSize    int64         `yaml:"max_message_size" koanf:"max_message_size"`
	SendBuffer        int           `yaml:"send_buffer" koanf:"send_buffer"`
	AllowedOrigins    []string      `yaml:"allowed_origins" koanf:"allowed_origins"`

	// Regions is an optional YAML dataset replacing the built-in regions.
	Regions string `yaml:"regions,omitempty" koanf:"regions"`
}

// UploadsConfig configures dropped-file storage.
type UploadsConfig struct {
	// Backend is "disk" or "s3".
	Backend      string        `yaml:"backend" koanf:"backend"`
	Dir          string        `yaml:"dir" koanf:"dir"`
	Bucket       string        `yaml:"bucket,omitempty" koanf:"bucket"`
	Prefix       string        `yaml:"prefix,omitempty" koanf:"prefix"`
	Region       string        `yaml:"region,omitempty" koanf:"region"`
	Endpoint     string        `yaml:"endpoint,omitempty" koanf:"endpoint"`
	PathStyle    bool          `yaml:"path_style,omitempty" koanf:"path_style"`
	MaxSize      int64         `yaml:"max_size" koanf:"max_size"`
	AllowedTypes []string      `yaml:"allowed_types,omitempty" koanf:"allowed_types"`
	MaxAge       time.Duration `yaml:"max_age" koanf:"max_age"`
}

// ClientConfig configures the replay client.
type ClientConfig struct {
	URL              string `yaml:"url" koanf:"url"`
	UploadURL        string `yaml:"upload_url,omitempty" koanf:"upload_url"`
	MobileBreakpoint int    `yaml:"mobile_breakpoint" koanf:"mobile_breakpoint"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	// Level is debug, info, warn or error.
	Level string `yaml:"level" koanf:"level"`

	// Format is text or json.
	Format string `yaml:"format" koanf:"format"`
}

// Default returns a configuration with every default applied.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:              DefaultAddr,
			LivePath:          DefaultLivePath,
			ReadTimeout:       60 * time.Second,
			WriteTimeout:      10 * time.Second,
			HeartbeatInterval: 30 * time.Second,
			HandlerTimeout:    30 * time.Second,
			MaxMessageSize:    protocol.FrameHeaderSize + protocol.MaxPayloadSize,
			SendBuffer:        64,
		},
		Uploads: UploadsConfig{
			Backend: BackendDisk,
			Dir:     filepath.Join(os.TempDir(), "livehooks-uploads"),
			MaxSize: upload.DefaultMaxFileSize,
			MaxAge:  time.Hour,
		},
		Client: ClientConfig{
			URL:              "ws://" + DefaultAddr + DefaultLivePath,
			MobileBreakpoint: DefaultMobileBreakpoint,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads the YAML file at path over the defaults, then overlays
// LIVEHOOKS_* environment variables. An empty path skips the file.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	cfg := Default()

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, errors.New(errors.CodeConfigRead).WithDetail(path).Wrap(err)
		}
	}

	// LIVEHOOKS_SERVER_READ_TIMEOUT -> server.read_timeout
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, errors.New(errors.CodeConfigRead).WithDetail("environment").Wrap(err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, errors.New(errors.CodeConfigInvalid).Wrap(err)
	}
	return cfg, nil
}

// LoadDefault loads FileName from dir if it exists, and the defaults plus
// environment otherwise.
func LoadDefault(dir string) (*Config, error) {
	path := filepath.Join(dir, FileName)
	if !Exists(path) {
		path = ""
	}
	return Load(path)
}

func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.Replace(s, "_", ".", 1)
}

// Exists reports whether a regular file exists at path.
func Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// Save writes the configuration as YAML.
func (c *Config) Save(path string) error {
	data, err := yamlv3.Marshal(c)
	if err != nil {
		return errors.New(errors.CodeConfigInvalid).Wrap(err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.New(errors.CodeConfigRead).WithDetailf("writing %s", path).Wrap(err)
	}
	return nil
}

// Validate checks value ranges and cross-field requirements.
func (c *Config) Validate() error {
	invalid := func(format string, args ...any) error {
		return errors.New(errors.CodeConfigInvalid).WithDetailf(format, args...)
	}

	if c.Server.Addr == "" {
		return invalid("server.addr is required")
	}
	if !strings.HasPrefix(c.Server.LivePath, "/") {
		return invalid("server.live_path %q must start with /", c.Server.LivePath)
	}
	if c.Server.ReadTimeout < 0 || c.Server.WriteTimeout < 0 || c.Server.HeartbeatInterval < 0 || c.Server.HandlerTimeout < 0 {
		return invalid("server timeouts must be non-negative")
	}
	if c.Server.HeartbeatInterval > 0 && c.Server.ReadTimeout > 0 && c.Server.HeartbeatInterval >= c.Server.ReadTimeout {
		return invalid("server.heartbeat_interval %s must be shorter than read_timeout %s",
			c.Server.HeartbeatInterval, c.Server.ReadTimeout)
	}
	if c.Server.MaxMessageSize < 0 || c.Server.SendBuffer < 0 {
		return invalid("server.max_message_size and send_buffer must be non-negative")
	}

	switch c.Uploads.Backend {
	case BackendDisk:
		if c.Uploads.Dir == "" {
			return invalid("uploads.dir is required for the disk backend")
		}
	case BackendS3:
		if c.Uploads.Bucket == "" {
			return invalid("uploads.bucket is required for the s3 backend")
		}
	default:
		return invalid("uploads.backend %q: must be disk or s3", c.Uploads.Backend)
	}
	if c.Uploads.MaxSize < 0 {
		return invalid("uploads.max_size must be non-negative")
	}

	if c.Client.MobileBreakpoint < 0 {
		return invalid("client.mobile_breakpoint must be non-negative")
	}

	if _, err := c.Log.SlogLevel(); err != nil {
		return invalid("log.level %q", c.Log.Level)
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		return invalid("log.format %q: must be text or json", c.Log.Format)
	}
	return nil
}

// SlogLevel parses Level. Empty means info.
func (l LogConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if l.Level == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return slog.LevelInfo, fmt.Errorf("log level %q: %w", l.Level, err)
	}
	return level, nil
}

// NewLogger builds a text or JSON logger writing to w.
func (l LogConfig) NewLogger(w io.Writer) (*slog.Logger, error) {
	level, err := l.SlogLevel()
	if err != nil {
		return nil, errors.New(errors.CodeConfigInvalid).Wrap(err)
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(l.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}
