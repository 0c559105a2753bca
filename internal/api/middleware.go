package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/rileyhilliard/vitals/internal/errors"
	"github.com/rileyhilliard/vitals/internal/logger"
)

func cors(origin string) gin.HandlerFunc {
	if origin == "" {
		origin = "*"
	}
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", origin)
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// requestLogger logs one line per request. Bodies are never logged: connect
// requests carry credentials.
func requestLogger(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		status := c.Writer.Status()
		elapsed := time.Since(start).Round(time.Millisecond)

		switch {
		case status >= http.StatusInternalServerError:
			log.Warn("%s %s -> %d (%s)", c.Request.Method, route, status, elapsed)
		default:
			log.Debug("%s %s -> %d (%s)", c.Request.Method, route, status, elapsed)
		}
	}
}

// recovery turns a handler panic into a 500 envelope.
func recovery(log logger.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		log.Error("panic serving %s %s: %v", c.Request.Method, c.Request.URL.Path, recovered)
		c.AbortWithStatusJSON(http.StatusInternalServerError, envelope{
			Success: false,
			Error:   "Internal server error",
			Code:    errors.ErrInternal,
		})
	})
}
