package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/amankumarsingh77/slideshow-encoder/internal/config"
	"github.com/amankumarsingh77/slideshow-encoder/internal/models"
	"github.com/amankumarsingh77/slideshow-encoder/internal/slideshow"
	"github.com/amankumarsingh77/slideshow-encoder/pkg/logger"
	"github.com/amankumarsingh77/slideshow-encoder/pkg/utils"
	"github.com/labstack/echo/v4"
)

const indexText = "Slideshow Video Service Running"

type slideshowHandler struct {
	cfg         *config.Config
	slideshowUC slideshow.UseCase
	logger      logger.Logger
}

func NewSlideshowHandler(cfg *config.Config, slideshowUC slideshow.UseCase, logger logger.Logger) slideshow.Handler {
	return &slideshowHandler{
		cfg:         cfg,
		slideshowUC: slideshowUC,
		logger:      logger,
	}
}

func (h *slideshowHandler) Index() echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.String(http.StatusOK, indexText)
	}
}

func (h *slideshowHandler) Generate() echo.HandlerFunc {
	return func(c echo.Context) error {
		input := &models.GenerateInput{}
		if err := c.Bind(input); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request payload"})
		}

		baseURL := utils.GetBaseURL(c, h.cfg.Server.BaseURL)
		result, err := h.slideshowUC.Generate(c.Request().Context(), input, baseURL)
		if err != nil {
			if errors.Is(err, slideshow.ErrInvalidInput) {
				return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
			}
			h.logger.Errorf("Generate RequestID: %s error: %v", utils.GetRequestID(c), err)
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
		}
		return c.JSON(http.StatusAccepted, result)
	}
}

func (h *slideshowHandler) GetStatus() echo.HandlerFunc {
	return func(c echo.Context) error {
		status, err := h.slideshowUC.GetStatus(c.Request().Context(), c.Param("job_id"))
		if err != nil {
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
		}
		return c.JSON(http.StatusOK, status)
	}
}

func (h *slideshowHandler) ServeVideo() echo.HandlerFunc {
	return func(c echo.Context) error {
		jobID, ok := strings.CutSuffix(c.Param("file"), ".mp4")
		if !ok {
			return c.JSON(http.StatusNotFound, map[string]string{"error": slideshow.ErrNotFound.Error()})
		}
		path, err := h.slideshowUC.VideoPath(c.Request().Context(), jobID)
		if err != nil {
			return c.JSON(http.StatusNotFound, map[string]string{"error": slideshow.ErrNotFound.Error()})
		}
		c.Response().Header().Set(echo.HeaderContentType, "video/mp4")
		return c.File(path)
	}
}
