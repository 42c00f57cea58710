// Package riskclient talks to the remote risk model: one POST per call to
// the predict and explain endpoints, JSON in and out, no retries.
package riskclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sony/gobreaker"
	"github.com/synaptica-ai/oncorisk/pkg/common/logger"
)

const (
	predictPath = "/predict"
	explainPath = "/explain"

	maxResponseBytes = 1 << 20
)

// Client implements both the prediction and the explanation contract against
// one base URL.
type Client struct {
	baseURL    string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// BreakerConfig configures the optional circuit breaker. An open breaker
// fails calls immediately with ErrRequestFailed; it never retries.
type BreakerConfig struct {
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold uint32
}

func WithCircuitBreaker(cfg BreakerConfig) Option {
	return func(c *Client) {
		if cfg.FailureThreshold == 0 {
			cfg.FailureThreshold = 5
		}
		if cfg.Timeout == 0 {
			cfg.Timeout = 30 * time.Second
		}
		threshold := cfg.FailureThreshold
		c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "risk-model",
			MaxRequests: cfg.MaxRequests,
			Interval:    cfg.Interval,
			Timeout:     cfg.Timeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= threshold
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				logger.Log.WithFields(map[string]interface{}{
					"breaker": name,
					"from":    from.String(),
					"to":      to.String(),
				}).Warn("Circuit breaker state changed")
			},
		})
	}
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) post(ctx context.Context, op, path string, payload interface{}, out interface{}) error {
	url := c.baseURL + path

	body, err := json.Marshal(payload)
	if err != nil {
		return &RequestError{Op: op, URL: url, Err: fmt.Errorf("failed to encode request: %w", err)}
	}

	if c.breaker == nil {
		return c.do(ctx, op, url, body, out)
	}

	_, err = c.breaker.Execute(func() (interface{}, error) {
		return nil, c.do(ctx, op, url, body, out)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return &RequestError{Op: op, URL: url, Err: err}
	}
	return err
}

func (c *Client) do(ctx context.Context, op, url string, body []byte, out interface{}) error {
	start := time.Now()
	reqID := uuid.New().String()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return &RequestError{Op: op, URL: url, Err: fmt.Errorf("failed to create request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", reqID)

	fields := map[string]interface{}{
		"op":         op,
		"url":        url,
		"request_id": reqID,
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		fields["latency_ms"] = time.Since(start).Milliseconds()
		logger.Log.WithError(err).WithFields(fields).Warn("Risk model request failed")
		return &RequestError{Op: op, URL: url, Err: err}
	}
	defer resp.Body.Close()

	fields["status"] = resp.StatusCode
	fields["latency_ms"] = time.Since(start).Milliseconds()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		logger.Log.WithError(err).WithFields(fields).Warn("Failed to read risk model response")
		return &RequestError{Op: op, URL: url, StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		logger.Log.WithFields(fields).Warn("Risk model returned error status")
		return &RequestError{Op: op, URL: url, StatusCode: resp.StatusCode, Err: fmt.Errorf("unexpected status: %s", snippet(data))}
	}

	if err := json.Unmarshal(data, out); err != nil {
		logger.Log.WithError(err).WithFields(fields).Warn("Malformed risk model response")
		return &RequestError{Op: op, URL: url, StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to decode response: %w", err)}
	}

	logger.Log.WithFields(fields).Debug("Risk model request completed")
	return nil
}

func snippet(body []byte) string {
	s := strings.TrimSpace(string(body))
	if s == "" {
		return "empty body"
	}
	if len(s) > 200 {
		return s[:200] + "..."
	}
	return s
}
