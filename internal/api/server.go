package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/nerrad567/valve-bridge/internal/bridge"
	"github.com/nerrad567/valve-bridge/internal/infrastructure/config"
	"github.com/nerrad567/valve-bridge/internal/infrastructure/logging"
	"github.com/nerrad567/valve-bridge/internal/valve"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// SessionManager issues and checks login tokens.
type SessionManager interface {
	LogIn(username, password string) (string, error)
	IsLoggedIn(token string) bool
}

// ValveRegistry is the subset of the valve registry exposed over HTTP.
type ValveRegistry interface {
	List() []valve.Valve
	Count() int
	Update(ctx context.Context, v valve.Valve) error
}

// StatusProvider reports which peers hold the bridge slots.
type StatusProvider interface {
	Status() bridge.Status
}

// HealthChecker is implemented by optional backing services
// (database, MQTT, InfluxDB).
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config    config.HTTPConfig
	RateLimit config.RateLimitConfig
	Logger    *logging.Logger
	Sessions  SessionManager
	Valves    ValveRegistry

	// Bridge, Metrics, UI and Checks are optional.
	Bridge  StatusProvider
	Metrics http.Handler
	UI      http.Handler
	Checks  map[string]HealthChecker

	Version string
}

// Server is the HTTP server of the valve bridge.
type Server struct {
	cfg       config.HTTPConfig
	logger    *logging.Logger
	sessions  SessionManager
	valves    ValveRegistry
	bridge    StatusProvider
	metrics   http.Handler
	ui        http.Handler
	checks    map[string]HealthChecker
	version   string
	startTime time.Time

	// loginLimiter is nil when rate limiting is disabled.
	loginLimiter *rate.Limiter

	mu       sync.Mutex
	server   *http.Server
	listener net.Listener
}

// New creates a new API server with the given dependencies.
// The server is not started until Start() is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Sessions == nil {
		return nil, fmt.Errorf("session manager is required")
	}
	if deps.Valves == nil {
		return nil, fmt.Errorf("valve registry is required")
	}

	s := &Server{
		cfg:       deps.Config,
		logger:    deps.Logger,
		sessions:  deps.Sessions,
		valves:    deps.Valves,
		bridge:    deps.Bridge,
		metrics:   deps.Metrics,
		ui:        deps.UI,
		checks:    deps.Checks,
		version:   deps.Version,
		startTime: time.Now(),
	}
	s.loginLimiter = newLoginLimiter(deps.RateLimit)

	return s, nil
}

// newLoginLimiter allows RequestsPerMinute logins per minute with an equal burst.
func newLoginLimiter(cfg config.RateLimitConfig) *rate.Limiter {
	if !cfg.Enabled || cfg.RequestsPerMinute <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RequestsPerMinute)), cfg.RequestsPerMinute)
}

// Handler returns the routed handler with all middleware applied.
func (s *Server) Handler() http.Handler {
	return s.buildRouter()
}

// Start begins listening for HTTP connections in a background goroutine.
// The server can be stopped with Close().
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.server != nil {
		return fmt.Errorf("api server already started")
	}

	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}

	s.listener = ln
	s.server = &http.Server{
		Handler:           s.buildRouter(),
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	srv := s.server
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	s.logger.Info("API server listening", "address", ln.Addr().String())
	return nil
}

// Addr returns the bound listener address, or nil before Start.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete,
// then forcefully closes remaining connections.
func (s *Server) Close() error {
	s.mu.Lock()
	srv := s.server
	s.mu.Unlock()

	if srv == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}
