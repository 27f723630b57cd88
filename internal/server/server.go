package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/amankumarsingh77/slideshow-encoder/internal/config"
	"github.com/amankumarsingh77/slideshow-encoder/internal/middleware"
	"github.com/amankumarsingh77/slideshow-encoder/internal/worker"
	"github.com/amankumarsingh77/slideshow-encoder/pkg/logger"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/go-redis/redis/v8"
	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
)

const (
	maxHeaderBytes = 1 << 20
	ctxTimeout     = 5
	// Jobs are cancelled on shutdown; this only bounds recording their outcome.
	runnerShutdownTimeout = 30 * time.Second
)

type Server struct {
	echo        *echo.Echo
	cfg         *config.Config
	redisClient *redis.Client
	s3Client    *s3.Client
	runner      *worker.Runner
	mw          *middleware.MiddlewareManager
	logger      logger.Logger
}

// NewServer builds the HTTP server. redisClient and s3Client may be nil when
// the redis registry and s3 publishing are disabled.
func NewServer(cfg *config.Config, redisClient *redis.Client, s3Client *s3.Client, logger logger.Logger) *Server {
	return &Server{
		echo:        echo.New(),
		cfg:         cfg,
		redisClient: redisClient,
		s3Client:    s3Client,
		mw:          middleware.NewMiddlewareManager(cfg.Server.AllowedOrigins, logger),
		logger:      logger,
	}
}

func (s *Server) Run() error {
	s.echo.HideBanner = true
	s.useMiddleware(s.echo)
	if err := s.MapHandlers(s.echo); err != nil {
		return err
	}

	server := &http.Server{
		Addr:           s.cfg.Server.Port,
		ReadTimeout:    s.cfg.Server.ReadTimeout,
		WriteTimeout:   s.cfg.Server.WriteTimeout,
		IdleTimeout:    s.cfg.Server.IdleTimeout,
		MaxHeaderBytes: maxHeaderBytes,
	}
	go func() {
		s.logger.Infof("Server is listening on PORT: %s", s.cfg.Server.Port)
		if err := s.echo.StartServer(server); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Fatalf("error starting Server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, os.Interrupt)
	<-quit

	ctx, shutdown := context.WithTimeout(context.Background(), time.Second*ctxTimeout)
	defer shutdown()
	s.logger.Infof("shutting down server")
	if err := s.echo.Shutdown(ctx); err != nil {
		return err
	}

	runnerCtx, cancel := context.WithTimeout(context.Background(), runnerShutdownTimeout)
	defer cancel()
	s.logger.Infof("stopping running jobs")
	return s.runner.Shutdown(runnerCtx)
}

func (s *Server) useMiddleware(e *echo.Echo) {
	e.Use(echoMiddleware.RequestID())
	e.Use(echoMiddleware.Recover())
	if s.cfg.Server.BodyLimit != "" {
		e.Use(echoMiddleware.BodyLimit(s.cfg.Server.BodyLimit))
	}
	e.Use(echoMiddleware.CORSWithConfig(echoMiddleware.CORSConfig{
		AllowOrigins: s.mw.CORSOrigins(),
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderContentType, "Range"},
		MaxAge:       300,
	}))
}
