package channel

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/vango-dev/livehooks/internal/errors"
	"github.com/vango-dev/livehooks/pkg/protocol"
)

// SocketConfig configures a Socket.
type SocketConfig struct {
	// Header is sent with the handshake request.
	Header http.Header

	// Dialer overrides websocket.DefaultDialer.
	Dialer *websocket.Dialer

	// HeartbeatInterval is the ping interval. Zero disables heartbeats.
	HeartbeatInterval time.Duration

	// WriteTimeout bounds each frame write. Default: 10s.
	WriteTimeout time.Duration

	// MaxMessageSize limits inbound messages. Default: one full frame.
	MaxMessageSize int64

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Socket is a Channel over a WebSocket connection speaking the binary
// frame protocol.
type Socket struct {
	conn   *websocket.Conn
	config SocketConfig
	logger *slog.Logger

	// writeMu serializes writes; gorilla allows one concurrent writer.
	writeMu sync.Mutex

	subMu sync.Mutex
	subs  subscribers

	seq    atomic.Uint64
	closed atomic.Bool
	done   chan struct{}

	lastPong atomic.Int64
}

// Dial connects to url and starts the read and heartbeat loops.
func Dial(ctx context.Context, url string, cfg SocketConfig) (*Socket, error) {
	dialer := cfg.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	conn, resp, err := dialer.DialContext(ctx, url, cfg.Header)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return nil, errors.New(errors.CodeDialFailed).WithDetail(url).Wrap(err)
	}
	return NewSocket(conn, cfg), nil
}

// NewSocket wraps an established connection and starts its loops.
func NewSocket(conn *websocket.Conn, cfg SocketConfig) *Socket {
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 10 * time.Second
	}
	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = protocol.FrameHeaderSize + protocol.MaxPayloadSize
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	conn.SetReadLimit(cfg.MaxMessageSize)

	s := &Socket{
		conn:   conn,
		config: cfg,
		logger: cfg.Logger.With("component", "socket", "remote", conn.RemoteAddr().String()),
		done:   make(chan struct{}),
	}
	go s.readLoop()
	if cfg.HeartbeatInterval > 0 {
		go s.heartbeatLoop()
	}
	return s
}

// Push sends a named event in an Event frame.
func (s *Socket) Push(ctx context.Context, event string, payload map[string]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.closed.Load() {
		return errors.New(errors.CodeClosed)
	}
	frame, err := protocol.EncodeMessage(protocol.FrameEvent, &protocol.Message{
		Seq:  s.seq.Add(1),
		Name: event,
		Data: payload,
	})
	if err != nil {
		return err
	}
	return s.writeFrame(frame)
}

// Subscribe registers fn for server pushes. fn runs on the read goroutine.
func (s *Socket) Subscribe(fn Handler) func() {
	s.subMu.Lock()
	sub := s.subs.add(fn)
	s.subMu.Unlock()
	return func() {
		s.subMu.Lock()
		s.subs.remove(sub)
		s.subMu.Unlock()
	}
}

// Done is closed when the socket is closed.
func (s *Socket) Done() <-chan struct{} {
	return s.done
}

// LastPong returns the time of the last pong, or the zero time.
func (s *Socket) LastPong() time.Time {
	ms := s.lastPong.Load()
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}

// Close sends a close message and closes the connection. It is safe to
// call more than once.
func (s *Socket) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	close(s.done)
	_ = s.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second),
	)
	return s.conn.Close()
}

func (s *Socket) writeFrame(f *protocol.Frame) error {
	data, err := f.Encode()
	if err != nil {
		return err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if s.closed.Load() {
		return errors.New(errors.CodeClosed)
	}
	s.conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
	if err := s.conn.WriteMessage(websocket.BinaryMessage, data); err != nil {
		return errors.New(errors.CodeWriteFailed).Wrap(err)
	}
	return nil
}

func (s *Socket) readLoop() {
	defer s.Close()

	for {
		_, msg, err := s.conn.ReadMessage()
		if err != nil {
			if !s.closed.Load() && websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseNormalClosure) {
				s.logger.Error("read error", "error", err)
			}
			return
		}

		frame, err := protocol.DecodeFrame(msg)
		if err != nil {
			s.logger.Warn("frame decode error", "error", err)
			continue
		}

		switch frame.Type {
		case protocol.FramePush:
			s.handlePush(frame)
		case protocol.FrameControl:
			s.handleControl(frame)
		case protocol.FrameError:
			if em, err := protocol.DecodeError(frame); err == nil {
				s.logger.Warn("server error", "code", em.Code, "message", em.Message)
			}
		default:
			s.logger.Warn("unexpected frame type", "type", frame.Type)
		}
	}
}

func (s *Socket) handlePush(frame *protocol.Frame) {
	m, err := protocol.DecodeMessage(frame)
	if err != nil {
		s.logger.Warn("push decode error", "error", err)
		return
	}
	s.subMu.Lock()
	subs := s.subs.snapshot()
	s.subMu.Unlock()
	for _, sub := range subs {
		sub.fn(m.Name, m.Data)
	}
}

func (s *Socket) handleControl(frame *protocol.Frame) {
	c, err := protocol.DecodeControl(frame)
	if err != nil {
		s.logger.Warn("control decode error", "error", err)
		return
	}
	switch c.Type {
	case protocol.ControlPing:
		pong := protocol.EncodeControl(protocol.Control{Type: protocol.ControlPong, Timestamp: c.Timestamp})
		if err := s.writeFrame(pong); err != nil {
			s.logger.Debug("pong error", "error", err)
		}
	case protocol.ControlPong:
		s.lastPong.Store(time.Now().UnixMilli())
	}
}

func (s *Socket) heartbeatLoop() {
	ticker := time.NewTicker(s.config.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ping := protocol.EncodeControl(protocol.Control{
				Type:      protocol.ControlPing,
				Timestamp: uint64(time.Now().UnixMilli()),
			})
			if err := s.writeFrame(ping); err != nil {
				s.logger.Debug("ping error", "error", err)
				return
			}
		case <-s.done:
			return
		}
	}
}

var _ Channel = (*Socket)(nil)
var _ Channel = (*Recorder)(nil)
