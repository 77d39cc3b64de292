package server

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vango-dev/livehooks/pkg/hooks"
	"github.com/vango-dev/livehooks/pkg/upload"
)

// HandlerFunc handles one inbound hook event. A returned error is logged,
// counted and reported to the client in an Error frame.
type HandlerFunc func(ctx context.Context, s *Session, payload hooks.Payload) error

// Option configures a Server.
type Option func(*Server)

// WithMetricsRegistry registers metrics on reg and serves it on /metrics.
// Default: a fresh registry per server.
func WithMetricsRegistry(reg *prometheus.Registry) Option {
	return func(s *Server) { s.registry = reg }
}

// WithUploads mounts POST /upload backed by store.
func WithUploads(store upload.Store, cfg upload.Config) Option {
	return func(s *Server) {
		s.uploadStore = store
		s.uploadConfig = cfg
	}
}

// Server accepts live sessions and routes their events to handlers.
type Server struct {
	config Config
	logger *slog.Logger

	registry *prometheus.Registry
	metrics  *metrics

	uploadStore  upload.Store
	uploadConfig upload.Config

	upgrader websocket.Upgrader
	router   chi.Router

	handlersMu sync.RWMutex
	handlers   map[string]HandlerFunc
	middleware []Middleware

	sessionsMu sync.Mutex
	sessions   map[string]*Session
	closing    bool
}

// New creates a server.
func New(cfg Config, opts ...Option) *Server {
	cfg = cfg.withDefaults()
	s := &Server{
		config:   cfg,
		logger:   cfg.Logger.With("component", "server"),
		handlers: make(map[string]HandlerFunc),
		sessions: make(map[string]*Session),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.registry == nil {
		s.registry = prometheus.NewRegistry()
	}
	s.metrics = newMetrics(s.registry, "livehooks")
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     s.checkOrigin,
	}
	s.router = s.buildRouter()
	return s
}

// Handle registers fn for event, replacing any earlier handler.
func (s *Server) Handle(event string, fn HandlerFunc) {
	if event == "" || fn == nil {
		panic("server: Handle requires an event name and a handler")
	}
	s.handlersMu.Lock()
	s.handlers[event] = fn
	s.handlersMu.Unlock()
}

// Events returns the registered event names, sorted.
func (s *Server) Events() []string {
	s.handlersMu.RLock()
	defer s.handlersMu.RUnlock()
	out := make([]string, 0, len(s.handlers))
	for name := range s.handlers {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func (s *Server) handler(event string) (HandlerFunc, bool) {
	s.handlersMu.RLock()
	fn, ok := s.handlers[event]
	s.handlersMu.RUnlock()
	return fn, ok
}

// Registry returns the registry served on /metrics.
func (s *Server) Registry() *prometheus.Registry {
	return s.registry
}

// Router returns the HTTP handler.
func (s *Server) Router() http.Handler {
	return s.router
}

func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	corsOpts := cors.Options{
		AllowedOrigins:   s.config.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}
	if len(corsOpts.AllowedOrigins) == 0 {
		corsOpts.AllowedOrigins = []string{"*"}
	}
	r.Use(cors.Handler(corsOpts))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"status":   "ok",
			"sessions": s.SessionCount(),
		})
	})
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	r.Get(s.config.LivePath, s.serveLive)
	if s.uploadStore != nil {
		r.Method(http.MethodPost, "/upload", upload.NewHandler(s.uploadStore, s.uploadConfig, s.config.Logger))
	}
	return r
}

func (s *Server) checkOrigin(r *http.Request) bool {
	if len(s.config.AllowedOrigins) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	for _, allowed := range s.config.AllowedOrigins {
		if allowed == "*" || strings.EqualFold(allowed, origin) || strings.EqualFold(allowed, u.Host) {
			return true
		}
	}
	return false
}

func (s *Server) serveLive(w http.ResponseWriter, r *http.Request) {
	s.sessionsMu.Lock()
	closing := s.closing
	s.sessionsMu.Unlock()
	if closing {
		http.Error(w, "Server shutting down", http.StatusServiceUnavailable)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("upgrade failed", "error", err, "remote", r.RemoteAddr)
		return
	}
	sess := newSession(s, conn)
	s.addSession(sess)
	sess.logger.Info("session opened", "remote", r.RemoteAddr)

	go sess.WriteLoop()
	go sess.ReadLoop()
}

func (s *Server) addSession(sess *Session) {
	s.sessionsMu.Lock()
	s.sessions[sess.ID] = sess
	s.sessionsMu.Unlock()
	s.metrics.activeSessions.Inc()
	s.metrics.sessionsTotal.Inc()
}

func (s *Server) removeSession(sess *Session) {
	s.sessionsMu.Lock()
	_, ok := s.sessions[sess.ID]
	delete(s.sessions, sess.ID)
	s.sessionsMu.Unlock()
	if ok {
		s.metrics.activeSessions.Dec()
	}
}

// Session returns the open session with id.
func (s *Server) Session(id string) (*Session, bool) {
	s.sessionsMu.Lock()
	defer s.sessionsMu.Unlock()
	sess, ok := s.sessions[id]
	return sess, ok
}

// SessionCount returns the number of open sessions.
func (s *Server) SessionCount() int {
	s.sessionsMu.Lock()
	defer s.sessionsMu.Unlock()
	return len(s.sessions)
}

func (s *Server) snapshot() []*Session {
	s.sessionsMu.Lock()
	defer s.sessionsMu.Unlock()
	out := make([]*Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		out = append(out, sess)
	}
	return out
}

// Broadcast pushes an event to every open session and returns how many
// accepted it.
func (s *Server) Broadcast(ctx context.Context, event string, payload map[string]any) int {
	n := 0
	for _, sess := range s.snapshot() {
		if err := sess.Push(ctx, event, payload); err != nil {
			sess.logger.Debug("broadcast skipped", "event", event, "error", err)
			continue
		}
		n++
	}
	return n
}

// Close closes every session and refuses new ones.
func (s *Server) Close() {
	s.sessionsMu.Lock()
	s.closing = true
	s.sessionsMu.Unlock()
	for _, sess := range s.snapshot() {
		sess.Close()
	}
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr, "live", s.config.LivePath)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if stderrors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down")
	s.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}
