package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/jmorren/authcore/internal/audit"
	"github.com/jmorren/authcore/internal/auth"
	"github.com/jmorren/authcore/internal/infrastructure/config"
	"github.com/jmorren/authcore/internal/infrastructure/logging"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config     config.ServerConfig
	Security   config.SecurityConfig
	Logger     *logging.Logger
	UserRepo   auth.UserRepository
	Tokens     *auth.TokenService
	Audit      audit.Repository // optional: security event log
	Production bool             // suppresses stack traces in error responses
	Version    string
}

// Server is the HTTP server for the authentication service.
//
// It manages the HTTP listener, routes, and middleware. The server is
// created with New() and started with Start().
type Server struct {
	cfg        config.ServerConfig
	secCfg     config.SecurityConfig
	logger     *logging.Logger
	userRepo   auth.UserRepository
	tokens     *auth.TokenService
	auditRepo  audit.Repository
	production bool
	version    string
	server     *http.Server
	limiter    *rateLimiter
	auditCh    chan *audit.Event
	auditDone  chan struct{}      // closed when the audit writer has drained and exited
	cancel     context.CancelFunc // stops the audit writer on Close()
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
//
// Parameters:
//   - deps: Required dependencies (config, logger, user repository, tokens)
//
// Returns:
//   - *Server: Configured server ready to start
//   - error: If required dependencies are missing
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.UserRepo == nil {
		return nil, fmt.Errorf("user repository is required")
	}
	if deps.Tokens == nil {
		return nil, fmt.Errorf("token service is required")
	}

	s := &Server{
		cfg:        deps.Config,
		secCfg:     deps.Security,
		logger:     deps.Logger,
		userRepo:   deps.UserRepo,
		tokens:     deps.Tokens,
		auditRepo:  deps.Audit,
		production: deps.Production,
		version:    deps.Version,
		limiter:    newRateLimiter(),
	}
	if s.auditRepo != nil {
		s.auditCh = make(chan *audit.Event, auditChanSize)
	}
	return s, nil
}

// Start begins listening for HTTP connections.
//
// It builds the router and launches the HTTP listener in a background
// goroutine. The server can be stopped with Close().
//
// Parameters:
//   - ctx: Context for cancellation (not used for listener lifetime)
//
// Returns:
//   - error: If the server fails to start (port in use, etc.)
func (s *Server) Start(ctx context.Context) error {
	// Internal context so Close() can stop the audit writer independently
	// of the parent context.
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)

	if s.auditCh != nil {
		s.auditDone = make(chan struct{})
		go func() {
			defer close(s.auditDone)
			s.drainAuditEvents(srvCtx)
		}()
	}

	router := s.buildRouter()

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           router,
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	go func() {
		s.logger.Info("API server starting", "address", s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete,
// then forcefully closes remaining connections.
//
// Returns:
//   - error: If shutdown encounters an error
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	err := s.server.Shutdown(ctx)

	// Stop the audit writer only after in-flight requests are done, so
	// events they enqueued during the drain window are still flushed.
	if s.cancel != nil {
		s.cancel()
	}
	if s.auditDone != nil {
		<-s.auditDone
	}

	if err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck verifies the API server is running and responsive.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//
// Returns:
//   - error: nil if healthy, error describing the issue otherwise
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}

	if s.server == nil {
		return fmt.Errorf("api server not started")
	}

	return nil
}
