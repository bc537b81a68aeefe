package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"banking-platform/internal/apperr"
	"banking-platform/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// ErrorResponse is the canonical error body returned by both services.
type ErrorResponse struct {
	Timestamp string             `json:"timestamp"`
	Status    int                `json:"status"`
	Error     string             `json:"error"`
	Message   string             `json:"message"`
	Path      string             `json:"path"`
	TraceId   string             `json:"traceId"`
	Details   map[string]any     `json:"details,omitempty"`
	Errors    []apperr.FieldError `json:"errors,omitempty"`
}

// RespondError maps any error to the canonical error body. Typed application
// errors carry their own kind and status; everything else is logged with a
// stack trace and surfaced as an opaque 500. An unclassified context
// cancellation means the server-side soft deadline expired mid-I/O, which is
// a 504 rather than a 500; peer-call timeouts are already classified as
// SERVICE_UNAVAILABLE by the client and keep their 503.
func RespondError(c *gin.Context, err error) {
	appErr := apperr.As(err)
	if (appErr == nil || appErr.Kind == apperr.KindInternal) &&
		(errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)) {
		c.JSON(http.StatusGatewayTimeout, errorBody(c, http.StatusGatewayTimeout,
			"GATEWAY_TIMEOUT", "request deadline exceeded"))
		return
	}
	if appErr == nil {
		zap.L().Error("Unhandled error",
			zap.String("path", c.Request.URL.Path),
			zap.Error(err),
			zap.Stack("stack"))
		appErr = apperr.New(apperr.KindInternal, "internal server error")
	}

	status := apperr.HTTPStatus(appErr.Kind)
	body := errorBody(c, status, string(appErr.Kind), appErr.Message)
	body.Details = appErr.Details
	body.Errors = appErr.Fields
	c.JSON(status, body)
}

// bindError converts gin binding failures into a VALIDATION_ERROR with
// per-field detail when the validator produced any.
func bindError(err error) error {
	if verrs, ok := err.(validator.ValidationErrors); ok {
		fields := make([]apperr.FieldError, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, apperr.FieldError{
				Field:   fe.Field(),
				Message: "failed validation on rule '" + fe.Tag() + "'",
			})
		}
		return apperr.New(apperr.KindValidation, "request validation failed").WithFields(fields...)
	}
	return apperr.Wrap(apperr.KindValidation, "malformed request body", err)
}

func errorBody(c *gin.Context, status int, kind, message string) ErrorResponse {
	traceId := ""
	if meta := models.GetRequestMeta(c.Request.Context()); meta != nil {
		traceId = meta.CorrelationId
	}
	return ErrorResponse{
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		Status:    status,
		Error:     kind,
		Message:   message,
		Path:      c.Request.URL.Path,
		TraceId:   traceId,
	}
}

func respondHealth(c *gin.Context, service string) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "UP",
		"service":   service,
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
	})
}
