package middleware

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/mietevo/mietevo-backend/internal/config"
	"github.com/mietevo/mietevo-backend/internal/httpclient"
	"github.com/mietevo/mietevo-backend/internal/logger"
	"github.com/mietevo/mietevo-backend/internal/types"
)

// invocationLoggerKey is where the per-request OTLP logger lives on the gin
// context.
const invocationLoggerKey = "invocationLogger"

func RequestIDMiddleware(c *gin.Context) {
	ctx := c.Request.Context()

	requestID := c.GetHeader("X-Request-ID")
	if requestID == "" {
		requestID = uuid.New().String()
	}

	ctx = context.WithValue(ctx, types.CtxRequestID, requestID)
	c.Request = c.Request.WithContext(ctx)
	c.Header(types.HeaderRequestID, requestID)

	c.Next()
}

// InvocationLoggerMiddleware attaches a fresh buffering logger to each
// request and flushes its batch after the handler returns.
func InvocationLoggerMiddleware(cfg *config.Configuration, base *logger.Logger, client httpclient.Client) gin.HandlerFunc {
	otlpCfg := logger.OTLPConfig{
		Endpoint:    cfg.Logging.OTLPEndpoint,
		Token:       cfg.Logging.OTLPToken,
		ServiceName: "mietevo-backend",
		// fixed deployment attribute, independent of the run mode
		Environment: "production",
	}

	return func(c *gin.Context) {
		log := logger.NewInvocationLogger(base, otlpCfg, client)
		c.Set(invocationLoggerKey, log)

		start := time.Now()
		log.Log(logger.SeverityInfo, "request received", map[string]any{
			"method": c.Request.Method,
			"path":   c.Request.URL.Path,
		})

		c.Next()

		sev := logger.SeverityInfo
		switch {
		case c.Writer.Status() >= 500:
			sev = logger.SeverityError
		case c.Writer.Status() >= 400:
			sev = logger.SeverityWarn
		}
		log.Log(sev, "request completed", map[string]any{
			"method":      c.Request.Method,
			"path":        c.Request.URL.Path,
			"status":      c.Writer.Status(),
			"duration_ms": time.Since(start).Milliseconds(),
		})

		log.Flush(c.Request.Context())
	}
}

// InvocationLoggerFromContext returns the request's buffering logger, or a
// detached one so callers never need a nil check.
func InvocationLoggerFromContext(c *gin.Context, base *logger.Logger) *logger.InvocationLogger {
	if v, ok := c.Get(invocationLoggerKey); ok {
		if log, ok := v.(*logger.InvocationLogger); ok {
			return log
		}
	}
	return logger.NewInvocationLogger(base, logger.OTLPConfig{}, nil)
}
