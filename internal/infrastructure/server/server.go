package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	stdhttp "net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/webterminator/internal/api/http"
	"github.com/GriffinCanCode/webterminator/internal/api/middleware"
	"github.com/GriffinCanCode/webterminator/internal/api/ws"
	"github.com/GriffinCanCode/webterminator/internal/domain/session"
	"github.com/GriffinCanCode/webterminator/internal/infrastructure/config"
	"github.com/GriffinCanCode/webterminator/internal/infrastructure/logging"
	"github.com/GriffinCanCode/webterminator/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/webterminator/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/webterminator/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/webterminator/internal/providers/terminal"
)

// Server wraps the HTTP server and dependencies
type Server struct {
	router   *gin.Engine
	http     *stdhttp.Server
	registry *session.Registry
	ws       *ws.Handler
	logger   *logging.Logger
	tracer   *tracing.Tracer
	config   *config.Config
	metrics  *monitoring.Metrics
}

// Option customizes server construction.
type Option func(*options)

type options struct {
	spawner terminal.Spawner
	logger  *logging.Logger
}

// WithSpawner replaces the PTY spawner.
func WithSpawner(spawner terminal.Spawner) Option {
	return func(o *options) { o.spawner = spawner }
}

// WithLogger replaces the configured logger.
func WithLogger(logger *logging.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// NewServer creates a new server instance
func NewServer(cfg *config.Config, opts ...Option) (*Server, error) {
	o := options{spawner: terminal.NewSpawner()}
	for _, opt := range opts {
		opt(&o)
	}

	logger := o.logger
	if logger == nil {
		var err error
		logger, err = logging.New(logging.Config{
			Level:       cfg.Logging.Level,
			Development: cfg.Logging.Development,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create logger: %w", err)
		}
	}

	shell := cfg.Terminal.ResolveShell()
	dir := cfg.Terminal.ResolveWorkingDir()
	logger.Info("Initializing terminal server",
		zap.String("port", cfg.Server.Port),
		zap.String("shell", shell),
		zap.String("cwd", dir),
		zap.Int("max_sessions_per_conn", cfg.Terminal.MaxSessions),
	)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := monitoring.NewMetrics(reg)

	tracer := tracing.New("webterminator", logger.Logger)

	breaker := resilience.Disabled("spawn")
	if cfg.Spawn.BreakerEnabled {
		breaker = resilience.New("spawn", resilience.Settings{
			MaxFailures: cfg.Spawn.MaxFailures,
			Interval:    cfg.Spawn.ResetWindow,
			Timeout:     cfg.Spawn.OpenTimeout,
			OnStateChange: func(name string, from, to resilience.State) {
				metrics.SetBreakerState(int(to))
				logger.Warn("Circuit breaker state changed",
					zap.String("breaker", name),
					zap.Stringer("from", from),
					zap.Stringer("to", to),
				)
			},
		})
	}

	registry := session.NewRegistry(o.spawner, session.Config{
		Shell:                    shell,
		Dir:                      dir,
		Term:                     cfg.Terminal.Name,
		MaxSessionsPerConnection: cfg.Terminal.MaxSessions,
	},
		session.WithLogger(logger.Named("session").Logger),
		session.WithMetrics(metrics),
		session.WithBreaker(breaker),
	)

	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(tracing.HTTPMiddleware(tracer))
	router.Use(monitoring.Middleware(metrics))
	router.Use(middleware.CORS(middleware.CORSConfig{
		AllowOrigins: cfg.Server.AllowOrigins,
		MaxAge:       12 * time.Hour,
	}))
	if cfg.RateLimit.Enabled {
		logger.Info("Rate limiting enabled",
			zap.Int("rps", cfg.RateLimit.RequestsPerSecond),
			zap.Int("burst", cfg.RateLimit.Burst),
		)
		router.Use(middleware.RateLimit(middleware.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			Burst:             cfg.RateLimit.Burst,
		}))
	}

	handlers := http.NewHandlers(registry, metrics, breaker)
	wsHandler := ws.NewHandler(registry, ws.Config{
		ReadLimit:    cfg.WebSocket.ReadLimit,
		PingInterval: cfg.WebSocket.PingInterval,
		PongWait:     cfg.WebSocket.PongWait,
		WriteWait:    cfg.WebSocket.WriteWait,
		SendBuffer:   cfg.WebSocket.SendBuffer,
		InputRate:    cfg.WebSocket.InputRate,
		InputBurst:   cfg.WebSocket.InputBurst,
	}, logger.Named("ws").Logger, metrics, tracer)

	router.GET("/health", handlers.Health)
	router.GET("/sessions", handlers.ListSessions)
	router.GET("/metrics", gin.WrapH(monitoring.Handler(reg)))
	router.GET("/ws", wsHandler.HandleConnection)

	if cfg.Server.StaticDir != "" {
		files := stdhttp.FileServer(stdhttp.Dir(cfg.Server.StaticDir))
		router.NoRoute(gin.WrapH(files))
		logger.Info("Serving static assets", zap.String("dir", cfg.Server.StaticDir))
	} else {
		router.GET("/", handlers.Root)
	}

	logger.Info("Server initialized successfully")

	return &Server{
		router:   router,
		registry: registry,
		ws:       wsHandler,
		logger:   logger,
		tracer:   tracer,
		config:   cfg,
		metrics:  metrics,
	}, nil
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() stdhttp.Handler {
	return s.router
}

// Registry returns the session registry.
func (s *Server) Registry() *session.Registry {
	return s.registry
}

// Run starts the HTTP server and blocks until it stops.
func (s *Server) Run() error {
	addr := net.JoinHostPort(s.config.Server.Host, s.config.Server.Port)
	s.http = &stdhttp.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.logger.Info("Starting HTTP server", zap.String("addr", addr))
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Close stops accepting connections, closes live websocket connections
// and flushes telemetry. Websocket connections are hijacked, so the HTTP
// shutdown does not wait for them.
func (s *Server) Close() error {
	s.logger.Info("Shutting down server...",
		zap.Int("live_sessions", s.registry.Len()))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var err error
	if s.http != nil {
		if e := s.http.Shutdown(ctx); e != nil {
			s.logger.Error("Failed to shut down HTTP server", zap.Error(e))
			err = fmt.Errorf("failed to shut down http server: %w", e)
		}
	}

	// Spans are submitted as connections finish, so the tracer goes last
	s.ws.Shutdown(ctx)
	s.tracer.Close()
	_ = s.logger.Sync()
	return err
}
