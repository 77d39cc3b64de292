package server

import (
	"log/slog"
	"time"

	"github.com/vango-dev/livehooks/pkg/protocol"
)

// Config configures a Server.
type Config struct {
	// LivePath is the WebSocket endpoint. Default: "/live".
	LivePath string

	// ReadTimeout is how long a session may stay silent before it is
	// dropped. Client heartbeats keep it open. Default: 60s.
	ReadTimeout time.Duration

	// WriteTimeout bounds each frame write. Default: 10s.
	WriteTimeout time.Duration

	// HeartbeatInterval is the server ping interval. Zero disables
	// server pings.
	HeartbeatInterval time.Duration

	// MaxMessageSize limits inbound messages. Default: one full frame.
	MaxMessageSize int64

	// SendBuffer is the per-session queue of outbound frames.
	// Default: 64.
	SendBuffer int

	// AllowedOrigins lists CORS and WebSocket origins. Empty allows
	// every origin.
	AllowedOrigins []string

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// DefaultConfig returns a Config with the defaults applied.
func DefaultConfig() Config {
	return Config{
		LivePath:          "/live",
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      10 * time.Second,
		HeartbeatInterval: 30 * time.Second,
		MaxMessageSize:    protocol.FrameHeaderSize + protocol.MaxPayloadSize,
		SendBuffer:        64,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.LivePath == "" {
		c.LivePath = d.LivePath
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = d.ReadTimeout
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = d.WriteTimeout
	}
	if c.MaxMessageSize <= 0 {
		c.MaxMessageSize = d.MaxMessageSize
	}
	if c.SendBuffer <= 0 {
		c.SendBuffer = d.SendBuffer
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c
}
