package server

import (
	"context"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/vango-dev/livehooks/internal/errors"
	"github.com/vango-dev/livehooks/pkg/hooks"
	"github.com/vango-dev/livehooks/pkg/protocol"
)

// unknownEventLabel replaces unregistered event names in metrics.
const unknownEventLabel = "_unknown"

// Session is one live connection.
type Session struct {
	// ID is a random UUID assigned on connect.
	ID string

	// CreatedAt is the connect time.
	CreatedAt time.Time

	server *Server
	conn   *websocket.Conn
	logger *slog.Logger

	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
	closed    atomic.Bool

	sendSeq    atomic.Uint64
	lastActive atomic.Int64

	ctx    context.Context
	cancel context.CancelFunc
}

func newSession(s *Server, conn *websocket.Conn) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	id := uuid.NewString()
	sess := &Session{
		ID:        id,
		CreatedAt: time.Now(),
		server:    s,
		conn:      conn,
		logger:    s.logger.With("session", id),
		send:      make(chan []byte, s.config.SendBuffer),
		done:      make(chan struct{}),
		ctx:       ctx,
		cancel:    cancel,
	}
	sess.lastActive.Store(time.Now().UnixMilli())
	conn.SetReadLimit(s.config.MaxMessageSize)
	return sess
}

// Context is cancelled when the session closes.
func (s *Session) Context() context.Context {
	return s.ctx
}

// Done is closed when the session closes.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// LastActive returns the time of the last inbound frame.
func (s *Session) LastActive() time.Time {
	return time.UnixMilli(s.lastActive.Load())
}

// Push queues a named event for the client. It fails with T003 once the
// session is closed and T002 when the send queue is full.
func (s *Session) Push(ctx context.Context, event string, payload map[string]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	frame, err := protocol.EncodeMessage(protocol.FramePush, &protocol.Message{
		Seq:  s.sendSeq.Add(1),
		Name: event,
		Data: payload,
	})
	if err != nil {
		return err
	}
	if err := s.enqueue(frame); err != nil {
		return err
	}
	s.server.metrics.pushesTotal.WithLabelValues(event).Inc()
	return nil
}

func (s *Session) enqueue(f *protocol.Frame) error {
	data, err := f.Encode()
	if err != nil {
		return err
	}
	if s.closed.Load() {
		return errors.New(errors.CodeClosed)
	}
	select {
	case s.send <- data:
		return nil
	case <-s.done:
		return errors.New(errors.CodeClosed)
	default:
		return errors.New(errors.CodeWriteFailed).WithDetail("send queue full")
	}
}

// Close closes the connection and cancels the session context. It is
// safe to call more than once.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		close(s.done)
		s.cancel()
		s.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second),
		)
		s.conn.Close()
		s.server.removeSession(s)
		s.logger.Info("session closed")
	})
}

// ReadLoop reads frames until the connection fails or closes. Event
// handlers run on this goroutine, in arrival order.
func (s *Session) ReadLoop() {
	defer s.Close()

	for {
		s.conn.SetReadDeadline(time.Now().Add(s.server.config.ReadTimeout))
		_, msg, err := s.conn.ReadMessage()
		if err != nil {
			if !s.closed.Load() && websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) {
				s.logger.Error("read error", "error", err)
			}
			return
		}
		s.lastActive.Store(time.Now().UnixMilli())

		frame, err := protocol.DecodeFrame(msg)
		if err != nil {
			s.decodeError(err)
			continue
		}

		switch frame.Type {
		case protocol.FrameEvent:
			s.handleEventFrame(frame)
		case protocol.FrameControl:
			s.handleControlFrame(frame)
		default:
			s.decodeError(errors.New(errors.CodeUnexpectedFrame).WithDetailf("%s frame", frame.Type))
		}
	}
}

// WriteLoop drains the send queue and sends heartbeats.
func (s *Session) WriteLoop() {
	var tick <-chan time.Time
	if iv := s.server.config.HeartbeatInterval; iv > 0 {
		ticker := time.NewTicker(iv)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case data := <-s.send:
			if err := s.write(data); err != nil {
				s.logger.Warn("write error", "error", err)
				s.Close()
				return
			}
		case <-tick:
			ping := protocol.EncodeControl(protocol.Control{
				Type:      protocol.ControlPing,
				Timestamp: uint64(time.Now().UnixMilli()),
			})
			data, _ := ping.Encode()
			if err := s.write(data); err != nil {
				s.logger.Debug("ping error", "error", err)
				s.Close()
				return
			}
		case <-s.done:
			return
		}
	}
}

func (s *Session) write(data []byte) error {
	s.conn.SetWriteDeadline(time.Now().Add(s.server.config.WriteTimeout))
	if err := s.conn.WriteMessage(websocket.BinaryMessage, data); err != nil {
		return errors.New(errors.CodeWriteFailed).Wrap(err)
	}
	return nil
}

func (s *Session) handleEventFrame(frame *protocol.Frame) {
	m, err := protocol.DecodeMessage(frame)
	if err != nil {
		s.decodeError(err)
		return
	}

	fn, ok := s.server.handler(m.Name)
	if !ok {
		err := errors.New(errors.CodeUnknownEvent).WithDetail(m.Name)
		s.server.metrics.eventsTotal.WithLabelValues(unknownEventLabel, statusUnknown).Inc()
		s.logger.Warn(err.Message, err.LogAttrs()...)
		s.sendError(err)
		return
	}
	s.dispatch(m, fn)
}

func (s *Session) dispatch(m *protocol.Message, fn HandlerFunc) {
	ctx := WithEvent(s.ctx, Event{Name: m.Name, Seq: m.Seq, SessionID: s.ID})
	fn = s.server.wrap(fn)

	start := time.Now()
	err := s.call(ctx, m, fn)
	s.server.metrics.eventDuration.WithLabelValues(m.Name).Observe(time.Since(start).Seconds())

	if err != nil {
		s.server.metrics.eventsTotal.WithLabelValues(m.Name, statusError).Inc()
		s.logger.Warn("handler failed", "event", m.Name, "error", err)
		s.sendError(errors.FromError(err, errors.CodeHandlerFailed))
		return
	}
	s.server.metrics.eventsTotal.WithLabelValues(m.Name, statusOK).Inc()
}

// call runs fn and turns a panic into a P008 error.
func (s *Session) call(ctx context.Context, m *protocol.Message, fn HandlerFunc) (err error) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("handler panic", "event", m.Name, "panic", r, "stack", string(debug.Stack()))
			err = errors.New(errors.CodeHandlerFailed).WithDetailf("%s panicked: %v", m.Name, r)
		}
	}()
	return fn(ctx, s, hooks.Payload(m.Data))
}

func (s *Session) handleControlFrame(frame *protocol.Frame) {
	c, err := protocol.DecodeControl(frame)
	if err != nil {
		s.decodeError(err)
		return
	}
	switch c.Type {
	case protocol.ControlPing:
		pong := protocol.EncodeControl(protocol.Control{Type: protocol.ControlPong, Timestamp: c.Timestamp})
		if err := s.enqueue(pong); err != nil {
			s.logger.Debug("pong error", "error", err)
		}
	case protocol.ControlPong:
		s.logger.Debug("received pong")
	}
}

// decodeError logs and counts a bad frame and tells the client.
func (s *Session) decodeError(err error) {
	e := errors.FromError(err, errors.CodeInvalidValue)
	s.server.metrics.decodeErrors.WithLabelValues(e.Code).Inc()
	s.logger.Warn("frame decode error", e.LogAttrs()...)
	s.sendError(e)
}

func (s *Session) sendError(e *errors.Error) {
	msg := e.Message
	switch {
	case e.Detail != "":
		msg += ": " + e.Detail
	case e.Wrapped != nil:
		msg += ": " + e.Wrapped.Error()
	}
	if err := s.enqueue(protocol.EncodeError(e.Code, msg)); err != nil {
		s.logger.Debug("error frame dropped", "error", err)
	}
}
