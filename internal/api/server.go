package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sqoia-dev/panel.sh/internal/asset"
	"github.com/sqoia-dev/panel.sh/internal/auth"
	"github.com/sqoia-dev/panel.sh/internal/infrastructure/config"
	"github.com/sqoia-dev/panel.sh/internal/infrastructure/logging"
	"github.com/sqoia-dev/panel.sh/internal/settings"
	"github.com/sqoia-dev/panel.sh/internal/sysinfo"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// Publisher is the subset of the MQTT client the API needs for enqueueing
// background tasks and forwarding viewer commands.
type Publisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// HealthChecker reports whether a dependency is reachable.
// The database and MQTT client both satisfy this.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// DisplayPowerSource provides the cached display power state for /info.
// The jobs worker satisfies this.
type DisplayPowerSource interface {
	DisplayPower() (string, bool)
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config   config.APIConfig
	WS       config.WebSocketConfig
	Security config.SecurityConfig
	Logger   *logging.Logger
	Assets   *asset.Coordinator
	Settings *settings.Store
	Sessions *auth.SessionManager

	// Bus is optional; without it reboot/shutdown/viewer control return 503.
	Bus Publisher

	// StoreHealth and BrokerHealth feed the /health aggregate. Either may
	// be nil.
	StoreHealth  HealthChecker
	BrokerHealth HealthChecker

	// SysInfo is optional; nil disables the diagnostics in /info.
	SysInfo *sysinfo.Reader

	// Power is optional; nil reports display_power as unknown.
	Power DisplayPowerSource

	Version string
}

// Server is the HTTP API server for panel.sh.
//
// It manages the HTTP listener, routes, middleware, and WebSocket hub.
// The server is created with New() and started with Start().
type Server struct {
	cfg      config.APIConfig
	wsCfg    config.WebSocketConfig
	secCfg   config.SecurityConfig
	logger   *logging.Logger
	assets   *asset.Coordinator
	settings *settings.Store
	sessions *auth.SessionManager
	bus      Publisher

	storeHealth  HealthChecker
	brokerHealth HealthChecker
	sysinfo      *sysinfo.Reader
	power        DisplayPowerSource

	version string
	server  *http.Server
	hub     *Hub
	cancel  context.CancelFunc
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
//
// Returns:
//   - *Server: Configured server ready to start
//   - error: If required dependencies are missing
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Assets == nil {
		return nil, fmt.Errorf("asset coordinator is required")
	}
	if deps.Settings == nil {
		return nil, fmt.Errorf("settings store is required")
	}
	if deps.Sessions == nil {
		return nil, fmt.Errorf("session manager is required")
	}

	return &Server{
		cfg:          deps.Config,
		wsCfg:        deps.WS,
		secCfg:       deps.Security,
		logger:       deps.Logger,
		assets:       deps.Assets,
		settings:     deps.Settings,
		sessions:     deps.Sessions,
		bus:          deps.Bus,
		storeHealth:  deps.StoreHealth,
		brokerHealth: deps.BrokerHealth,
		sysinfo:      deps.SysInfo,
		power:        deps.Power,
		version:      deps.Version,
	}, nil
}

// Start begins listening for HTTP connections.
//
// It sets up the router, starts the WebSocket hub, and launches the HTTP
// listener in a background goroutine. The server is stopped with Close().
//
// Returns:
//   - error: If the server fails to start
func (s *Server) Start(ctx context.Context) error {
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)

	s.hub = NewHub(s.wsCfg, s.logger)
	go s.hub.Run(srvCtx)

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
		var err error
		if s.cfg.TLS.Enabled {
			s.logger.Info("API server starting with TLS",
				"address", s.server.Addr,
				"cert", s.cfg.TLS.CertFile,
			)
			err = s.server.ListenAndServeTLS(s.cfg.TLS.CertFile, s.cfg.TLS.KeyFile)
		} else {
			s.logger.Info("API server starting", "address", s.server.Addr)
			err = s.server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete,
// then forcefully closes remaining connections.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	if s.cancel != nil {
		s.cancel()
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck verifies the API server is running.
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
