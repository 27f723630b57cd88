package middleware

import (
	"github.com/amankumarsingh77/slideshow-encoder/pkg/logger"
)

type MiddlewareManager struct {
	origins []string
	logger  logger.Logger
}

// Middleware manager constructor
func NewMiddlewareManager(origins []string, logger logger.Logger) *MiddlewareManager {
	return &MiddlewareManager{origins: origins, logger: logger}
}
