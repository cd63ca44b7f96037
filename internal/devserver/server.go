package devserver

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// DefaultKeepaliveInterval is the spacing of ": ping" comments on idle streams
const DefaultKeepaliveInterval = 30 * time.Second

// DefaultPort is the port PocketBase listens on out of the box
const DefaultPort = "8090"

// Config holds server configuration
type Config struct {
	Port              string
	SecretKey         string
	NoAuth            bool
	KeepaliveInterval time.Duration
	Logger            *zap.Logger
}

// SetDefaults applies default values to unset fields
func (c *Config) SetDefaults() {
	if c.Port == "" {
		c.Port = DefaultPort
	}
	if c.SecretKey == "" {
		c.SecretKey = "pbrealtime-dev-secret-change-me"
	}
	if c.KeepaliveInterval == 0 {
		c.KeepaliveInterval = DefaultKeepaliveInterval
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
}

// Server is a PocketBase-compatible realtime server for local development and tests
type Server struct {
	hub        *Hub
	issuer     *TokenIssuer
	handlers   *Handlers
	middleware *Middleware
	server     *http.Server
	logger     *zap.Logger
}

// NewServer creates a new dev realtime server
func NewServer(config Config) *Server {
	config.SetDefaults()

	hub := NewHub(config.Logger, DefaultClientBuffer)
	issuer := NewTokenIssuer(config.SecretKey)

	server := &Server{
		hub:        hub,
		issuer:     issuer,
		handlers:   NewHandlers(hub, config.KeepaliveInterval, config.Logger),
		middleware: NewMiddleware(issuer, config.NoAuth, config.Logger),
		logger:     config.Logger,
	}

	httpServer := &http.Server{
		Addr:              ":" + config.Port,
		Handler:           server.setupRoutes(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20, // 1MB
	}
	// Shutdown does not interrupt open streams on its own.
	httpServer.RegisterOnShutdown(hub.Close)

	server.server = httpServer
	return server
}

// Handler returns the routed handler, for use with httptest
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Hub returns the client hub
func (s *Server) Hub() *Hub {
	return s.hub
}

// Auth returns the token issuer used by the server
func (s *Server) Auth() *TokenIssuer {
	return s.issuer
}

// Addr returns the listen address
func (s *Server) Addr() string {
	return s.server.Addr
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info("dev realtime server listening", zap.String("addr", s.server.Addr))
	return s.server.ListenAndServe()
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// Close ends open streams without stopping the listener
func (s *Server) Close() {
	s.hub.Close()
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() http.Handler {
	router := mux.NewRouter()
	router.Use(s.middleware.Recovery, s.middleware.Logging)

	router.HandleFunc("/api/realtime", s.handlers.Connect).Methods(http.MethodGet)
	router.Handle("/api/realtime", s.middleware.AuthRequired(http.HandlerFunc(s.handlers.SetSubscriptions))).Methods(http.MethodPost)
	router.Handle("/api/dev/publish", s.middleware.AuthRequired(http.HandlerFunc(s.handlers.Publish))).Methods(http.MethodPost)
	router.HandleFunc("/api/health", s.handlers.Health).Methods(http.MethodGet)

	return router
}
