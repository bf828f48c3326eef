// Package mockapi is an in-memory stand-in for the document processing service.
// It serves the same REST surface the console talks to and simulates the
// background worker that moves documents through the processing lifecycle.
package mockapi

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Config holds the fake service settings.
type Config struct {
	Username     string
	Password     string
	Secret       []byte
	TokenTTL     time.Duration
	ProcessDelay time.Duration
}

// DefaultConfig returns credentials admin/admin and a short processing delay.
func DefaultConfig() Config {
	return Config{
		Username:     "admin",
		Password:     "admin",
		Secret:       []byte("doclane-mock-secret"),
		TokenTTL:     30 * time.Minute,
		ProcessDelay: 2 * time.Second,
	}
}

type Option func(*Server)

func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.log = l
		}
	}
}

func WithNow(now func() time.Time) Option {
	return func(s *Server) {
		if now != nil {
			s.now = now
		}
	}
}

// Server owns the fake service state and its pending worker timers.
type Server struct {
	cfg Config
	db  *state
	log *slog.Logger
	now func() time.Time

	secretMu sync.RWMutex
	secret   []byte

	timersMu sync.Mutex
	timers   map[int64]*time.Timer
	closed   bool
}

func New(cfg Config, opts ...Option) *Server {
	def := DefaultConfig()
	if cfg.Username == "" {
		cfg.Username = def.Username
		cfg.Password = def.Password
	}
	if len(cfg.Secret) == 0 {
		cfg.Secret = def.Secret
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = def.TokenTTL
	}
	if cfg.ProcessDelay < 0 {
		cfg.ProcessDelay = 0
	}

	s := &Server{
		cfg:    cfg,
		db:     newState(),
		log:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:    time.Now,
		secret: append([]byte(nil), cfg.Secret...),
		timers: map[int64]*time.Timer{},
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Handler builds the gin engine serving the REST surface.
func (s *Server) Handler() http.Handler {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(requestID(), s.logging(), gin.Recovery())

	api := r.Group("/api/v1")
	api.POST("/auth/login", s.login)

	authed := api.Group("", s.auth())
	s.registerDocuments(authed)
	s.registerResults(authed)
	s.registerQueue(authed)
	s.registerStatus(authed)

	return r
}

// Run serves on addr until ctx is cancelled.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	s.log.Info("mockapi.listening", "addr", addr)
	select {
	case err := <-errCh:
		s.Close()
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	s.Close()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Close stops the simulated worker. In-flight documents stay in processing.
func (s *Server) Close() {
	s.timersMu.Lock()
	defer s.timersMu.Unlock()
	s.closed = true
	for id, t := range s.timers {
		t.Stop()
		delete(s.timers, id)
	}
}

// RotateSecret invalidates every token issued so far.
func (s *Server) RotateSecret() {
	s.secretMu.Lock()
	defer s.secretMu.Unlock()
	s.secret = []byte(uuid.NewString())
}

const requestIDHeader = "X-Request-ID"

func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Writer.Header().Set(requestIDHeader, id)
		c.Next()
	}
}

func (s *Server) logging() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Info("mockapi.request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"request_id", c.GetString("request_id"),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
}

// detail writes a FastAPI-shaped error body.
func detail(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"detail": msg})
}

type fieldError struct {
	Loc  []string `json:"loc"`
	Msg  string   `json:"msg"`
	Type string   `json:"type"`
}

// unprocessable writes a validation error listing the offending fields.
func unprocessable(c *gin.Context, errs ...fieldError) {
	c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{"detail": errs})
}
