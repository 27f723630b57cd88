package middleware

import (
	"time"

	"github.com/amankumarsingh77/slideshow-encoder/pkg/utils"
	"github.com/labstack/echo/v4"
)

// RequestLoggerMiddleware logs one line per request with its id, status and
// latency.
func (mw *MiddlewareManager) RequestLoggerMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		err := next(c)
		if err != nil {
			c.Error(err)
		}

		req := c.Request()
		res := c.Response()
		mw.logger.Infof("RequestID: %s, Method: %s, URI: %s, Status: %v, Size: %v, Time: %s, IP: %s",
			utils.GetRequestID(c), req.Method, req.URL.Path, res.Status, res.Size, time.Since(start), utils.GetIPAddress(c))
		return nil
	}
}

// CORSOrigins returns the configured origins, defaulting to any.
func (mw *MiddlewareManager) CORSOrigins() []string {
	if len(mw.origins) == 0 {
		return []string{"*"}
	}
	return mw.origins
}
