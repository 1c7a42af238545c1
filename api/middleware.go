package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"listen-history/utils"
)

const requestIDHeader = "X-Request-ID"

// RequestObserver records finished requests, e.g. into Prometheus.
type RequestObserver interface {
	ObserveRequest(route string, status int, duration time.Duration)
}

// RequestIDMiddleware takes the request id from X-Request-ID or generates one.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

// LoggerMiddleware logs one line per request and reports it to obs.
func LoggerMiddleware(logger *utils.Logger, obs RequestObserver) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		duration := time.Since(start)
		status := c.Writer.Status()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		if obs != nil {
			obs.ObserveRequest(route, status, duration)
		}

		if strings.HasPrefix(path, "/healthz") || path == "/metrics" {
			return
		}
		log := logger.With("request_id", c.GetString("request_id"))
		if len(c.Errors) > 0 {
			log.Warn("[api] %s %s %d %s: %s", c.Request.Method, path, status, duration.Round(time.Millisecond), c.Errors.String())
			return
		}
		log.Info("[api] %s %s %d %s", c.Request.Method, path, status, duration.Round(time.Millisecond))
	}
}

// RecoveryMiddleware turns panics into a logged 500 response.
func RecoveryMiddleware(logger *utils.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				logger.Error("[api] Panic recovered on %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"error": "internal error",
					"code":  "INTERNAL_ERROR",
				})
			}
		}()

		c.Next()
	}
}
