package http

import (
	"github.com/amankumarsingh77/slideshow-encoder/internal/slideshow"
	"github.com/labstack/echo/v4"
)

func MapSlideshowRoutes(e *echo.Echo, h slideshow.Handler) {
	e.GET("/", h.Index())
	e.POST("/generate", h.Generate())
	e.GET("/status/:job_id", h.GetStatus())
	e.GET("/videos/:file", h.ServeVideo())
}
