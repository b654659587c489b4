package api

import (
	"time"

	"Exam-Template-Wizard-Backend/internal/auth"
	"Exam-Template-Wizard-Backend/internal/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const RequestIDHeader = "X-Request-ID"

// RequestContext puts the caller's access token and a request id into the
// request context. The token is read from "Authorization: Bearer" first and
// X-Auth-Token second.
func RequestContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		token := auth.BearerToken(c.GetHeader("Authorization"))
		if token == "" {
			token = c.GetHeader("X-Auth-Token")
		}
		if token != "" {
			ctx = auth.ContextWithToken(ctx, token)
		}

		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		ctx = logger.ContextWithRequestID(ctx, requestID)
		c.Header(RequestIDHeader, requestID)

		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// RequestLogger logs one line per request through logrus.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		entry := logger.WithContext(c.Request.Context()).WithFields(logrus.Fields{
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"status":  c.Writer.Status(),
			"latency": time.Since(start).String(),
		})
		switch {
		case c.Writer.Status() >= 500:
			entry.Error("request failed")
		case c.Writer.Status() >= 400:
			entry.Warn("request rejected")
		default:
			entry.Info("request handled")
		}
	}
}
