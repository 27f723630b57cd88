package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/amankumarsingh77/slideshow-encoder/internal/config"
	"github.com/amankumarsingh77/slideshow-encoder/internal/slideshow"
	slideshowHttp "github.com/amankumarsingh77/slideshow-encoder/internal/slideshow/delivery/http"
	slideshowRepository "github.com/amankumarsingh77/slideshow-encoder/internal/slideshow/repository"
	slideshowUsecase "github.com/amankumarsingh77/slideshow-encoder/internal/slideshow/usecase"
	"github.com/amankumarsingh77/slideshow-encoder/internal/worker"
	"github.com/amankumarsingh77/slideshow-encoder/pkg/utils"
	"github.com/labstack/echo/v4"
)

func (s *Server) MapHandlers(e *echo.Echo) error {
	registry, err := s.newRegistry()
	if err != nil {
		return err
	}

	var awsRepo slideshow.AWSRepository
	if s.cfg.S3.Enabled {
		if s.s3Client == nil {
			return errors.New("s3 publishing enabled without an s3 client")
		}
		awsRepo = slideshowRepository.NewAwsRepository(s.s3Client)
	}

	s.runner = worker.NewRunner(worker.RunnerDeps{
		Config:   s.cfg,
		Registry: registry,
		Logger:   s.logger,
		AWSRepo:  awsRepo,
	})
	slideshowUC := slideshowUsecase.NewSlideshowUseCase(s.cfg, registry, s.runner, s.logger)
	slideshowHandlers := slideshowHttp.NewSlideshowHandler(s.cfg, slideshowUC, s.logger)

	e.Use(s.mw.RequestLoggerMiddleware)

	slideshowHttp.MapSlideshowRoutes(e, slideshowHandlers)
	e.GET("/health", func(c echo.Context) error {
		s.logger.Infof("Health check RequestID: %s", utils.GetRequestID(c))
		return c.JSON(http.StatusOK, map[string]string{"status": "OK"})
	})
	return nil
}

func (s *Server) newRegistry() (slideshow.Registry, error) {
	switch s.cfg.Registry.Backend {
	case config.RegistryRedis:
		if s.redisClient == nil {
			return nil, errors.New("redis registry selected without a redis client")
		}
		return slideshowRepository.NewRedisRegistry(s.redisClient, s.cfg.Registry.KeyPrefix, s.cfg.Registry.TTL), nil
	case config.RegistryMemory, "":
		return slideshowRepository.NewMemoryRegistry(), nil
	default:
		return nil, fmt.Errorf("unknown registry backend: %q", s.cfg.Registry.Backend)
	}
}
