package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"banking-platform/internal/apperr"
	"banking-platform/internal/auth"
	"banking-platform/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTracedRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(Tracing())
	return router
}

func doRequest(router *gin.Engine, method, path string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var body ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestTracing_MutatingRequestRequiresHeaders(t *testing.T) {
	router := newTracedRouter()
	router.POST("/things", func(c *gin.Context) { c.Status(http.StatusCreated) })

	w := doRequest(router, http.MethodPost, "/things", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	body := decodeError(t, w)
	assert.Equal(t, "VALIDATION_ERROR", body.Error)
	assert.Contains(t, body.Message, "X-Request-Id")

	w = doRequest(router, http.MethodPost, "/things", map[string]string{"X-Request-Id": "req-1"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decodeError(t, w).Message, "X-Correlation-Id")

	w = doRequest(router, http.MethodPost, "/things", map[string]string{
		"X-Request-Id":     "req-1",
		"X-Correlation-Id": "corr-1",
	})
	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestTracing_ReadsGetGeneratedIds(t *testing.T) {
	router := newTracedRouter()
	var meta *models.RequestMeta
	router.GET("/things", func(c *gin.Context) {
		meta = models.GetRequestMeta(c.Request.Context())
		c.Status(http.StatusOK)
	})

	w := doRequest(router, http.MethodGet, "/things", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, meta)
	assert.NotEmpty(t, meta.RequestId)
	assert.NotEmpty(t, meta.CorrelationId)
	assert.Equal(t, meta.RequestId, w.Header().Get("X-Request-Id"))
	assert.Equal(t, meta.CorrelationId, w.Header().Get("X-Correlation-Id"))
}

func TestTracing_BindsBearerToken(t *testing.T) {
	router := newTracedRouter()
	var meta *models.RequestMeta
	router.GET("/things", func(c *gin.Context) {
		meta = models.GetRequestMeta(c.Request.Context())
		c.Status(http.StatusOK)
	})

	doRequest(router, http.MethodGet, "/things", map[string]string{"Authorization": "Bearer tok-1"})
	require.NotNil(t, meta)
	assert.Equal(t, "tok-1", meta.BearerToken)
}

func TestAuth_RejectsMissingAndInvalidTokens(t *testing.T) {
	manager := auth.NewManager("test-secret-for-auth-tests", time.Hour)
	router := newTracedRouter()
	router.Use(Auth(manager, true, "GET /public"))
	router.GET("/private", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/public", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := doRequest(router, http.MethodGet, "/private", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "UNAUTHORIZED", decodeError(t, w).Error)

	w = doRequest(router, http.MethodGet, "/private", map[string]string{"Authorization": "Bearer garbage"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doRequest(router, http.MethodGet, "/public", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuth_ValidTokenEnrichesMeta(t *testing.T) {
	manager := auth.NewManager("test-secret-for-auth-tests", time.Hour)
	token, err := manager.Issue("cust-1", "NL-001")
	require.NoError(t, err)

	router := newTracedRouter()
	router.Use(Auth(manager, true))
	var meta *models.RequestMeta
	router.GET("/private", func(c *gin.Context) {
		meta = models.GetRequestMeta(c.Request.Context())
		c.Status(http.StatusOK)
	})

	w := doRequest(router, http.MethodGet, "/private", map[string]string{"Authorization": "Bearer " + token})
	assert.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, meta)
	assert.Equal(t, "cust-1", meta.CustomerId)
	assert.Equal(t, "NL-001", meta.Identification)
}

func TestAuth_DisabledBypassesEverything(t *testing.T) {
	manager := auth.NewManager("test-secret-for-auth-tests", time.Hour)
	router := newTracedRouter()
	router.Use(Auth(manager, false))
	router.GET("/private", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := doRequest(router, http.MethodGet, "/private", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRespondError_TypedErrorProducesCanonicalBody(t *testing.T) {
	router := newTracedRouter()
	router.GET("/fail", func(c *gin.Context) {
		RespondError(c, apperr.New(apperr.KindInsufficientBalance, "debit would breach the overdraft floor").
			WithDetails(map[string]any{"overdraftLimit": "-10000"}))
	})

	w := doRequest(router, http.MethodGet, "/fail", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	body := decodeError(t, w)
	assert.Equal(t, "INSUFFICIENT_BALANCE", body.Error)
	assert.Equal(t, http.StatusUnprocessableEntity, body.Status)
	assert.Equal(t, "/fail", body.Path)
	assert.NotEmpty(t, body.TraceId)
	assert.NotEmpty(t, body.Timestamp)
	assert.Equal(t, "-10000", body.Details["overdraftLimit"])
}

func TestRespondError_UnknownErrorIsOpaque(t *testing.T) {
	router := newTracedRouter()
	router.GET("/fail", func(c *gin.Context) {
		RespondError(c, errors.New("pq: connection refused"))
	})

	w := doRequest(router, http.MethodGet, "/fail", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	body := decodeError(t, w)
	assert.Equal(t, "INTERNAL", body.Error)
	assert.NotContains(t, body.Message, "connection refused", "internal detail must not leak")
}

func TestCORS_PreflightAndOrigins(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(CORS([]string{"https://app.example.com"}))
	router.GET("/things", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := doRequest(router, http.MethodOptions, "/things", map[string]string{"Origin": "https://app.example.com"})
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://app.example.com", w.Header().Get("Access-Control-Allow-Origin"))

	w = doRequest(router, http.MethodGet, "/things", map[string]string{"Origin": "https://evil.example.com"})
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestRespondError_DeadlineExceededMapsToGatewayTimeout(t *testing.T) {
	router := newTracedRouter()
	router.GET("/slow", func(c *gin.Context) {
		RespondError(c, apperr.Wrap(apperr.KindInternal, "failed to load account", context.DeadlineExceeded))
	})

	w := doRequest(router, http.MethodGet, "/slow", nil)
	assert.Equal(t, http.StatusGatewayTimeout, w.Code)
	body := decodeError(t, w)
	assert.Equal(t, "GATEWAY_TIMEOUT", body.Error)
	assert.Equal(t, http.StatusGatewayTimeout, body.Status)
}

func TestRespondError_BareCancellationMapsToGatewayTimeout(t *testing.T) {
	router := newTracedRouter()
	router.GET("/gone", func(c *gin.Context) {
		RespondError(c, context.Canceled)
	})

	w := doRequest(router, http.MethodGet, "/gone", nil)
	assert.Equal(t, http.StatusGatewayTimeout, w.Code)
	assert.Equal(t, "GATEWAY_TIMEOUT", decodeError(t, w).Error)
}

func TestRespondError_PeerTimeoutKeepsServiceUnavailable(t *testing.T) {
	router := newTracedRouter()
	router.GET("/peer", func(c *gin.Context) {
		RespondError(c, apperr.Wrap(apperr.KindServiceUnavailable,
			"customer service call deadline exceeded", context.DeadlineExceeded))
	})

	w := doRequest(router, http.MethodGet, "/peer", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "SERVICE_UNAVAILABLE", decodeError(t, w).Error)
}
