package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/vango-dev/livehooks/internal/errors"
)

func writeFile(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, FileName)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Server.Addr != DefaultAddr {
		t.Errorf("Server.Addr = %q, want %q", cfg.Server.Addr, DefaultAddr)
	}
	if cfg.Server.LivePath != DefaultLivePath {
		t.Errorf("Server.LivePath = %q, want %q", cfg.Server.LivePath, DefaultLivePath)
	}
	if cfg.Uploads.Backend != BackendDisk {
		t.Errorf("Uploads.Backend = %q, want %q", cfg.Uploads.Backend, BackendDisk)
	}
	if cfg.Client.MobileBreakpoint != DefaultMobileBreakpoint {
		t.Errorf("Client.MobileBreakpoint = %d, want %d", cfg.Client.MobileBreakpoint, DefaultMobileBreakpoint)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Default().Validate() = %v", err)
	}
}

func TestLoadFile(t *testing.T) {
	path := writeFile(t, t.TempDir(), `
server:
  addr: 0.0.0.0:9000
  read_timeout: 90s
  allowed_origins:
    - https://app.example.com
uploads:
  backend: s3
  bucket: drops
  prefix: incoming
log:
  level: debug
  format: json
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}

	if cfg.Server.Addr != "0.0.0.0:9000" {
		t.Errorf("Server.Addr = %q", cfg.Server.Addr)
	}
	if cfg.Server.ReadTimeout != 90*time.Second {
		t.Errorf("Server.ReadTimeout = %s, want 90s", cfg.Server.ReadTimeout)
	}
	if cfg.Server.WriteTimeout != 10*time.Second {
		t.Errorf("Server.WriteTimeout = %s, want default 10s", cfg.Server.WriteTimeout)
	}
	if diff := cmp.Diff([]string{"https://app.example.com"}, cfg.Server.AllowedOrigins); diff != "" {
		t.Errorf("AllowedOrigins mismatch (-want +got):\n%s", diff)
	}
	if cfg.Uploads.Backend != BackendS3 || cfg.Uploads.Bucket != "drops" || cfg.Uploads.Prefix != "incoming" {
		t.Errorf("Uploads = %+v", cfg.Uploads)
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != "json" {
		t.Errorf("Log = %+v", cfg.Log)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if errors.CodeOf(err) != errors.CodeConfigRead {
		t.Errorf("Load(missing) = %v, want %s", err, errors.CodeConfigRead)
	}
}

func TestLoadDefaultWithoutFile(t *testing.T) {
	cfg, err := LoadDefault(t.TempDir())
	if err != nil {
		t.Fatalf("LoadDefault error: %v", err)
	}
	if diff := cmp.Diff(Default(), cfg); diff != "" {
		t.Errorf("LoadDefault mismatch (-want +got):\n%s", diff)
	}
}

func TestEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "server:\n  addr: from-file:1\n")

	t.Setenv("LIVEHOOKS_SERVER_ADDR", "from-env:2")
	t.Setenv("LIVEHOOKS_SERVER_WRITE_TIMEOUT", "3s")
	t.Setenv("LIVEHOOKS_CLIENT_MOBILE_BREAKPOINT", "600")
	t.Setenv("LIVEHOOKS_UPLOADS_MAX_SIZE", "2048")

	cfg, err := LoadDefault(dir)
	if err != nil {
		t.Fatalf("LoadDefault error: %v", err)
	}
	if cfg.Server.Addr != "from-env:2" {
		t.Errorf("Server.Addr = %q, want from-env:2", cfg.Server.Addr)
	}
	if cfg.Server.WriteTimeout != 3*time.Second {
		t.Errorf("Server.WriteTimeout = %s, want 3s", cfg.Server.WriteTimeout)
	}
	if cfg.Client.MobileBreakpoint != 600 {
		t.Errorf("Client.MobileBreakpoint = %d, want 600", cfg.Client.MobileBreakpoint)
	}
	if cfg.Uploads.MaxSize != 2048 {
		t.Errorf("Uploads.MaxSize = %d, want 2048", cfg.Uploads.MaxSize)
	}
}

func TestEnvKey(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"LIVEHOOKS_SERVER_ADDR", "server.addr"},
		{"LIVEHOOKS_SERVER_READ_TIMEOUT", "server.read_timeout"},
		{"LIVEHOOKS_LOG_LEVEL", "log.level"},
	}
	for _, tt := range tests {
		if got := envKey(tt.in); got != tt.want {
			t.Errorf("envKey(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	cfg := Default()
	cfg.Server.AllowedOrigins = []string{"https://a.example.com", "https://b.example.com"}
	cfg.Uploads.Backend = BackendS3
	cfg.Uploads.Bucket = "drops"
	cfg.Log.Format = "json"

	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save error: %v", err)
	}
	data, _ := os.ReadFile(path)
	if !strings.Contains(string(data), "read_timeout: 1m0s") {
		t.Errorf("Expected durations saved as strings:\n%s", data)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if diff := cmp.Diff(cfg, loaded); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		detail string
	}{
		{"empty addr", func(c *Config) { c.Server.Addr = "" }, "server.addr"},
		{"relative live path", func(c *Config) { c.Server.LivePath = "live" }, "live_path"},
		{"negative timeout", func(c *Config) { c.Server.WriteTimeout = -time.Second }, "non-negative"},
		{"negative handler timeout", func(c *Config) { c.Server.HandlerTimeout = -time.Second }, "non-negative"},
		{"heartbeat too slow", func(c *Config) { c.Server.HeartbeatInterval = 2 * time.Minute }, "heartbeat_interval"},
		{"unknown backend", func(c *Config) { c.Uploads.Backend = "ftp" }, "disk or s3"},
		{"disk without dir", func(c *Config) { c.Uploads.Dir = "" }, "uploads.dir"},
		{"s3 without bucket", func(c *Config) { c.Uploads.Backend = BackendS3 }, "uploads.bucket"},
		{"bad log level", func(c *Config) { c.Log.Level = "loud" }, "log.level"},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if errors.CodeOf(err) != errors.CodeConfigInvalid {
				t.Fatalf("Validate() = %v, want %s", err, errors.CodeConfigInvalid)
			}
			if !strings.Contains(err.Error(), tt.detail) {
				t.Errorf("Validate() = %q, want it to mention %q", err, tt.detail)
			}
		})
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := LogConfig{Level: "warn", Format: "json"}.NewLogger(&buf)
	if err != nil {
		t.Fatal(err)
	}
	logger.Info("hidden")
	logger.Warn("shown", "component", "test")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("Expected info to be filtered at warn level")
	}
	if !strings.Contains(out, `"msg":"shown"`) || !strings.Contains(out, `"component":"test"`) {
		t.Errorf("output = %s", out)
	}

	if _, err := (LogConfig{Level: "loud"}).NewLogger(&buf); errors.CodeOf(err) != errors.CodeConfigInvalid {
		t.Errorf("NewLogger(loud) = %v, want %s", err, errors.CodeConfigInvalid)
	}
}
