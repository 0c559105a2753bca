package api

import (
	"context"
	stderrors "errors"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/rileyhilliard/vitals/internal/errors"
	"github.com/rileyhilliard/vitals/internal/logger"
	"github.com/rileyhilliard/vitals/internal/monitor"
)

const (
	defaultPollInterval    = 5 * time.Second
	defaultShutdownTimeout = 5 * time.Second
)

// Options configures a Server.
type Options struct {
	Sampler *monitor.Sampler
	Logger  logger.Logger

	// CORSOrigin is sent as Access-Control-Allow-Origin. Defaults to "*".
	CORSOrigin string

	// PollInterval paces websocket streams. Defaults to 5s.
	PollInterval time.Duration

	// ShutdownTimeout bounds graceful shutdown in Run. Defaults to 5s.
	ShutdownTimeout time.Duration
}

// Server is the HTTP front end for a Sampler and its Registry.
type Server struct {
	engine          *gin.Engine
	sampler         *monitor.Sampler
	reg             *monitor.Registry
	log             logger.Logger
	pollInterval    time.Duration
	shutdownTimeout time.Duration

	// done ends websocket streams, which outlive http.Server.Shutdown.
	done context.Context
	stop context.CancelFunc
}

// New builds a Server and its routes.
func New(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = logger.Noop()
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = defaultPollInterval
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = defaultShutdownTimeout
	}

	done, stop := context.WithCancel(context.Background())
	s := &Server{
		engine:          gin.New(),
		sampler:         opts.Sampler,
		reg:             opts.Sampler.Registry(),
		log:             opts.Logger,
		pollInterval:    opts.PollInterval,
		shutdownTimeout: opts.ShutdownTimeout,
		done:            done,
		stop:            stop,
	}

	s.engine.Use(recovery(s.log), requestLogger(s.log), cors(opts.CORSOrigin))
	s.routes()
	return s
}

func (s *Server) routes() {
	r := s.engine.Group("/api")
	r.GET("/health", s.handleHealth)
	r.GET("/connections", s.handleConnections)
	r.POST("/connect", s.handleConnect)
	r.POST("/disconnect", s.handleDisconnectBody)
	r.POST("/disconnect/:connectionId", s.handleDisconnect)
	r.GET("/monitoring-data/:connectionId", s.handleMonitoringData)
	r.GET("/stream/:connectionId", s.handleStream)
}

// Handler returns the router, for tests and embedding.
func (s *Server) Handler() http.Handler { return s.engine }

// Serve accepts connections on l until ctx is done, then shuts down
// gracefully. Open websocket streams are told to stop first.
func (s *Server) Serve(ctx context.Context, l net.Listener) error {
	srv := &http.Server{
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(l) }()
	s.log.Info("listening on %s", l.Addr())

	select {
	case err := <-errCh:
		s.stop()
		if stderrors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.log.Info("shutting down")
	s.stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}

// ListenAndServe listens on addr and calls Serve.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			"Couldn't listen on "+addr,
			"Pick a free address with --addr or server.addr.")
	}
	return s.Serve(ctx, l)
}
