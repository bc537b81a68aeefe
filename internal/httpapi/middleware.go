// Package httpapi mounts the REST surface of both services on gin and hosts
// the middleware chain: tracing, authentication, request deadlines, and the
// central error mapper.
package httpapi

import (
	"context"
	"net/http"
	"strings"
	"time"

	"banking-platform/internal/apperr"
	"banking-platform/internal/auth"
	"banking-platform/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	headerRequestId      = "X-Request-Id"
	headerCorrelationId  = "X-Correlation-Id"
	headerIdempotencyKey = "Idempotency-Key"
)

// Tracing binds request/correlation ids and the raw bearer token to the
// request context so downstream peer calls and events can propagate them.
// Mutating requests must carry both tracing headers; reads get generated ones.
func Tracing() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestId := c.GetHeader(headerRequestId)
		correlationId := c.GetHeader(headerCorrelationId)

		if isMutating(c.Request.Method) {
			if requestId == "" {
				RespondError(c, apperr.New(apperr.KindValidation, "missing required header X-Request-Id"))
				c.Abort()
				return
			}
			if correlationId == "" {
				RespondError(c, apperr.New(apperr.KindValidation, "missing required header X-Correlation-Id"))
				c.Abort()
				return
			}
		}
		if requestId == "" {
			requestId = uuid.New().String()
		}
		if correlationId == "" {
			correlationId = uuid.New().String()
		}

		meta := &models.RequestMeta{
			RequestId:     requestId,
			CorrelationId: correlationId,
			BearerToken:   bearerToken(c),
		}
		c.Request = c.Request.WithContext(models.WithRequestMeta(c.Request.Context(), meta))

		c.Header(headerRequestId, requestId)
		c.Header(headerCorrelationId, correlationId)
		c.Next()
	}
}

// Auth validates the bearer token and binds the subject claims to the request
// metadata. Public paths bypass; a disabled security toggle bypasses globally
// (used by tests and local runs).
func Auth(manager *auth.Manager, enabled bool, publicPaths ...string) gin.HandlerFunc {
	public := make(map[string]bool, len(publicPaths))
	for _, p := range publicPaths {
		public[p] = true
	}

	return func(c *gin.Context) {
		if !enabled || public[c.Request.Method+" "+c.FullPath()] {
			c.Next()
			return
		}

		token := bearerToken(c)
		if token == "" {
			unauthorized(c, "missing bearer token")
			return
		}

		claims, err := manager.Verify(token)
		if err != nil {
			zap.L().Warn("Token verification failed", zap.Error(err))
			unauthorized(c, "invalid or expired token")
			return
		}

		if meta := models.GetRequestMeta(c.Request.Context()); meta != nil {
			meta.CustomerId = claims.CustomerId
			meta.Identification = claims.Identification
		}
		c.Next()
	}
}

// RequestTimeout applies the server-side soft deadline. Handlers observe the
// context; an expired deadline with no response yet becomes a 504.
func RequestTimeout(timeout time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		if ctx.Err() == context.DeadlineExceeded && !c.Writer.Written() {
			c.JSON(http.StatusGatewayTimeout, errorBody(c, http.StatusGatewayTimeout,
				"GATEWAY_TIMEOUT", "request deadline exceeded"))
		}
	}
}

// CORS reflects the configured allowed origins.
func CORS(allowedOrigins []string) gin.HandlerFunc {
	allowAll := len(allowedOrigins) == 1 && allowedOrigins[0] == "*"
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = true
	}

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin != "" && (allowAll || allowed[origin]) {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Access-Control-Allow-Methods", "GET, POST, PATCH, PUT, DELETE, OPTIONS")
			c.Header("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Request-Id, X-Correlation-Id, Idempotency-Key")
		}
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return ""
}

func isMutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

func unauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized,
		errorBody(c, http.StatusUnauthorized, "UNAUTHORIZED", message))
}
