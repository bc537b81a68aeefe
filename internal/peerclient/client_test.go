package peerclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"banking-platform/internal/apperr"
	"banking-platform/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(baseURL string) models.PeerConfig {
	return models.PeerConfig{
		BaseURL:              baseURL,
		MaxAttempts:          2,
		RetryWait:            5 * time.Millisecond,
		WindowSize:           20,
		MinimumCalls:         5,
		FailureRateThreshold: 0.5,
		OpenStateWait:        time.Second,
		HalfOpenProbes:       3,
		CallTimeout:          500 * time.Millisecond,
	}
}

func TestValidateCustomer_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/customers/cust-1/validate", r.URL.Path)
		_ = json.NewEncoder(w).Encode(models.PeerCustomer{
			Id: "cust-1", Name: "Jan Vermeer", Identification: "NL-001", Active: true,
		})
	}))
	defer server.Close()

	client, err := New(testConfig(server.URL))
	require.NoError(t, err)

	customer, err := client.ValidateCustomer(context.Background(), "cust-1")
	require.NoError(t, err)
	assert.Equal(t, "Jan Vermeer", customer.Name)
	assert.True(t, customer.Active)
}

func TestValidateCustomer_NotFoundIsFinal(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client, err := New(testConfig(server.URL))
	require.NoError(t, err)

	_, err = client.ValidateCustomer(context.Background(), "ghost")
	assert.Equal(t, apperr.KindCustomerNotFound, apperr.KindOf(err))
	assert.EqualValues(t, 1, calls.Load(), "business outcomes must not be retried")
}

func TestValidateCustomer_InactiveCustomer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	client, err := New(testConfig(server.URL))
	require.NoError(t, err)

	_, err = client.ValidateCustomer(context.Background(), "cust-1")
	assert.Equal(t, apperr.KindCustomerNotActive, apperr.KindOf(err))
}

func TestGetCustomer_BadRequestIsNotInactive(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	client, err := New(testConfig(server.URL))
	require.NoError(t, err)

	// Only the validate endpoint encodes inactivity as 400; on a plain read
	// it is an unexpected answer and surfaces as unavailability.
	_, err = client.GetCustomer(context.Background(), "cust-1")
	assert.Equal(t, apperr.KindServiceUnavailable, apperr.KindOf(err))
}

func TestValidateCustomer_RetriesTransportErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_ = json.NewEncoder(w).Encode(models.PeerCustomer{Id: "cust-1", Active: true})
	}))
	defer server.Close()

	client, err := New(testConfig(server.URL))
	require.NoError(t, err)

	customer, err := client.ValidateCustomer(context.Background(), "cust-1")
	require.NoError(t, err)
	assert.True(t, customer.Active)
	assert.EqualValues(t, 2, calls.Load())
}

func TestValidateCustomer_ExhaustedRetriesBecomeUnavailable(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client, err := New(testConfig(server.URL))
	require.NoError(t, err)

	_, err = client.ValidateCustomer(context.Background(), "cust-1")
	assert.Equal(t, apperr.KindServiceUnavailable, apperr.KindOf(err))
	assert.EqualValues(t, 2, calls.Load())
}

func TestValidateCustomer_BreakerOpensAndShortCircuits(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	cfg := testConfig(server.URL)
	cfg.MinimumCalls = 4
	client, err := New(cfg)
	require.NoError(t, err)
	ctx := context.Background()

	// Each call burns MaxAttempts=2 breaker executions; after two calls the
	// failure rate trips the breaker.
	for i := 0; i < 2; i++ {
		_, err = client.ValidateCustomer(ctx, "cust-1")
		require.Error(t, err)
	}
	seen := calls.Load()

	_, err = client.ValidateCustomer(ctx, "cust-1")
	assert.Equal(t, apperr.KindServiceUnavailable, apperr.KindOf(err))
	assert.EqualValues(t, seen, calls.Load(), "an open breaker must not reach the peer")
}

func TestValidateCustomer_BusinessErrorsDoNotTripBreaker(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	cfg := testConfig(server.URL)
	cfg.MinimumCalls = 2
	client, err := New(cfg)
	require.NoError(t, err)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		_, err = client.ValidateCustomer(ctx, "ghost")
		assert.Equal(t, apperr.KindCustomerNotFound, apperr.KindOf(err),
			"the breaker must stay closed on business outcomes")
	}
}

func TestValidateCustomer_DeadlineBecomesUnavailable(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer server.Close()
	defer close(release)

	cfg := testConfig(server.URL)
	cfg.CallTimeout = 50 * time.Millisecond
	client, err := New(cfg)
	require.NoError(t, err)

	start := time.Now()
	_, err = client.ValidateCustomer(context.Background(), "cust-1")
	assert.Equal(t, apperr.KindServiceUnavailable, apperr.KindOf(err))
	assert.Less(t, time.Since(start), 400*time.Millisecond, "the absolute deadline must cap the call")
}

func TestPropagateHeaders(t *testing.T) {
	var gotAuth, gotRequestId, gotCorrelationId string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotRequestId = r.Header.Get("X-Request-Id")
		gotCorrelationId = r.Header.Get("X-Correlation-Id")
		_ = json.NewEncoder(w).Encode(models.PeerCustomer{Id: "cust-1", Active: true})
	}))
	defer server.Close()

	client, err := New(testConfig(server.URL))
	require.NoError(t, err)

	ctx := models.WithRequestMeta(context.Background(), &models.RequestMeta{
		RequestId:     "req-1",
		CorrelationId: "corr-1",
		BearerToken:   "tok-1",
	})
	_, err = client.ValidateCustomer(ctx, "cust-1")
	require.NoError(t, err)

	assert.Equal(t, "Bearer tok-1", gotAuth)
	assert.Equal(t, "req-1", gotRequestId)
	assert.Equal(t, "corr-1", gotCorrelationId)
}

func TestExists(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/v1/customers/cust-1" {
			_ = json.NewEncoder(w).Encode(models.PeerCustomer{Id: "cust-1", Active: false})
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client, err := New(testConfig(server.URL))
	require.NoError(t, err)
	ctx := context.Background()

	exists, err := client.Exists(ctx, "cust-1")
	require.NoError(t, err)
	assert.True(t, exists, "an inactive customer still exists")

	exists, err = client.Exists(ctx, "ghost")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestNew_RejectsInvalidConfig(t *testing.T) {
	_, err := New(models.PeerConfig{MaxAttempts: 2})
	assert.Error(t, err)

	cfg := testConfig("http://localhost:9999")
	cfg.MaxAttempts = 0
	_, err = New(cfg)
	assert.Error(t, err)
}
