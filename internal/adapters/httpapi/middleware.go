package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"printvault/internal/adapters/auth"
	"printvault/internal/logging"
	"printvault/internal/ports"
)

const (
	headerRequestID = "X-Request-ID"
	keyRequestID    = "request_id"
	keyPrincipal    = "principal"
)

// requestID reuses the caller's X-Request-ID or assigns a new one
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(headerRequestID)
		if id == "" {
			id = uuid.New().String()
		}
		c.Set(keyRequestID, id)
		c.Header(headerRequestID, id)
		c.Next()
	}
}

// requestLogger stores a request-scoped logger in the request context and
// logs one line per request.
func requestLogger(base *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		logger := base.With(zap.String("request_id", c.GetString(keyRequestID)))
		c.Request = c.Request.WithContext(logging.WithContext(c.Request.Context(), logger))

		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}
		switch {
		case c.Writer.Status() >= 500:
			logger.Error("HTTP request", fields...)
		case c.Writer.Status() >= 400:
			logger.Warn("HTTP request", fields...)
		default:
			logger.Info("HTTP request", fields...)
		}
	}
}

func recovery() gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(nil, func(c *gin.Context, recovered any) {
		logging.FromContext(c.Request.Context()).Error("panic in handler",
			zap.Any("panic", recovered), zap.Stack("stack"))
		c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "Internal server error",
			Code:    "INTERNAL",
			Details: fmt.Sprint(recovered),
		})
	})
}

// requireAuth gates a route behind authn. A nil authenticator lets every
// request through.
func requireAuth(authn ports.Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		if authn == nil {
			c.Next()
			return
		}
		principal, err := authn.Authenticate(c.Request.Context(), bearerToken(c.Request))
		if err != nil {
			if !errors.Is(err, auth.ErrUnauthorized) {
				logging.FromContext(c.Request.Context()).Warn("authenticator failed", zap.Error(err))
			}
			abortWithError(c, auth.ErrUnauthorized)
			return
		}
		c.Set(keyPrincipal, principal)
		c.Next()
	}
}

func bearerToken(r *http.Request) string {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
