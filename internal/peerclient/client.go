// Package peerclient is the resilient HTTP client the Account service uses to
// validate customers. Calls are composed as retry (transport errors only)
// inside a circuit breaker inside an absolute deadline; business failures pass
// through untouched and infrastructure failures are converted to
// SERVICE_UNAVAILABLE exactly once, here.
package peerclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"banking-platform/internal/apperr"
	"banking-platform/internal/models"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

type Client struct {
	baseURL     string
	httpClient  *http.Client
	breaker     *gobreaker.CircuitBreaker
	maxAttempts int
	retryWait   time.Duration
	callTimeout time.Duration
}

// New builds a customer-validation client from the peer configuration.
func New(cfg models.PeerConfig) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("peer base URL cannot be empty")
	}
	if cfg.MaxAttempts <= 0 {
		return nil, fmt.Errorf("retry max attempts must be positive, got %d", cfg.MaxAttempts)
	}

	settings := gobreaker.Settings{
		Name:        "customer-service",
		MaxRequests: uint32(cfg.HalfOpenProbes),
		Interval:    time.Duration(cfg.WindowSize) * time.Second,
		Timeout:     cfg.OpenStateWait,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < uint32(cfg.MinimumCalls) {
				return false
			}
			failureRate := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRate >= cfg.FailureRateThreshold
		},
		// Business outcomes are valid answers from a healthy peer; only
		// infrastructure failures count against the breaker.
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			switch apperr.KindOf(err) {
			case apperr.KindCustomerNotFound, apperr.KindCustomerNotActive:
				return true
			}
			return false
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			zap.L().Warn("Circuit breaker state change",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	}

	return &Client{
		baseURL:     cfg.BaseURL,
		httpClient:  &http.Client{},
		breaker:     gobreaker.NewCircuitBreaker(settings),
		maxAttempts: cfg.MaxAttempts,
		retryWait:   cfg.RetryWait,
		callTimeout: cfg.CallTimeout,
	}, nil
}

// ValidateCustomer checks that the customer exists and is active.
func (c *Client) ValidateCustomer(ctx context.Context, customerId string) (*models.PeerCustomer, error) {
	return c.call(ctx, "/api/v1/customers/"+customerId+"/validate", true)
}

// GetCustomer fetches the customer regardless of its active state.
func (c *Client) GetCustomer(ctx context.Context, customerId string) (*models.PeerCustomer, error) {
	return c.call(ctx, "/api/v1/customers/"+customerId, false)
}

// Exists reports whether the customer exists at all.
func (c *Client) Exists(ctx context.Context, customerId string) (bool, error) {
	_, err := c.GetCustomer(ctx, customerId)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindCustomerNotFound {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (c *Client) call(ctx context.Context, path string, validating bool) (*models.PeerCustomer, error) {
	ctx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()

	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		result, err := c.breaker.Execute(func() (any, error) {
			return c.doRequest(ctx, path, validating)
		})
		if err == nil {
			return result.(*models.PeerCustomer), nil
		}

		// Typed domain errors and an open breaker are final.
		if appErr := apperr.As(err); appErr != nil {
			return nil, appErr
		}
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, apperr.Wrap(apperr.KindServiceUnavailable, "customer service circuit is open", err)
		}

		lastErr = err
		if ctx.Err() != nil {
			break
		}
		if attempt < c.maxAttempts {
			zap.L().Warn("Peer call failed, retrying",
				zap.String("path", path),
				zap.Int("attempt", attempt),
				zap.Error(err))
			select {
			case <-time.After(c.retryWait):
			case <-ctx.Done():
			}
		}
	}

	if ctx.Err() != nil {
		return nil, apperr.Wrap(apperr.KindServiceUnavailable, "customer service call deadline exceeded", ctx.Err())
	}
	return nil, apperr.Wrap(apperr.KindServiceUnavailable, "customer service is unreachable", lastErr)
}

// doRequest performs one HTTP attempt and classifies the response. Transport
// errors are returned raw so the retry loop and breaker can see them.
func (c *Client) doRequest(ctx context.Context, path string, validating bool) (*models.PeerCustomer, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	c.propagateHeaders(ctx, req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		var customer models.PeerCustomer
		if err := json.NewDecoder(resp.Body).Decode(&customer); err != nil {
			return nil, fmt.Errorf("failed to decode customer response: %w", err)
		}
		return &customer, nil
	case resp.StatusCode == http.StatusNotFound:
		return nil, apperr.New(apperr.KindCustomerNotFound, "customer not found")
	case resp.StatusCode == http.StatusBadRequest && validating:
		return nil, apperr.New(apperr.KindCustomerNotActive, "customer is not active")
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("unexpected status %d from customer service: %s", resp.StatusCode, string(body))
	}
}

// propagateHeaders forwards the bearer token and tracing ids bound to the
// inbound request context. A missing token is logged but does not block the
// call.
func (c *Client) propagateHeaders(ctx context.Context, req *http.Request) {
	meta := models.GetRequestMeta(ctx)
	if meta == nil {
		zap.L().Warn("No request metadata on context for peer call", zap.String("url", req.URL.Path))
		return
	}
	if meta.BearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+meta.BearerToken)
	} else {
		zap.L().Warn("No bearer token on inbound request, peer call proceeds unauthenticated",
			zap.String("url", req.URL.Path))
	}
	if meta.RequestId != "" {
		req.Header.Set("X-Request-Id", meta.RequestId)
	}
	if meta.CorrelationId != "" {
		req.Header.Set("X-Correlation-Id", meta.CorrelationId)
	}
}
