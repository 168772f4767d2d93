package nasa

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"nasagram/pkg/apierrors"
	"nasagram/pkg/config"
	"nasagram/pkg/logger"
	"nasagram/pkg/ratelimit"
	"nasagram/pkg/retry"
)

const (
	// BaseURL is the base URL for NASA's public APIs
	BaseURL = "https://api.nasa.gov"

	// DefaultTimeout is the per-request timeout for NASA API calls
	DefaultTimeout = 30 * time.Second

	// DemoKeyRequestsPerHour is the hourly quota of the shared DEMO_KEY
	DemoKeyRequestsPerHour = 30

	// APIKeyRequestsPerHour is the hourly quota of a registered key
	APIKeyRequestsPerHour = 1000
)

// Client is the shared HTTP plumbing for the NASA API clients
type Client struct {
	httpClient *http.Client
	apiKey     string
	baseURL    string
	limiter    ratelimit.Limiter
	retryCfg   *config.RetryConfig
	logger     logger.Logger
}

// Option configures a Client
type Option func(*Client)

// WithBaseURL overrides the API base URL (used in tests)
func WithBaseURL(url string) Option {
	return func(c *Client) { c.baseURL = url }
}

// WithHTTPClient overrides the underlying HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout overrides the per-request timeout
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithLimiter sets a rate limiter honoured before every request
func WithLimiter(l ratelimit.Limiter) Option {
	return func(c *Client) { c.limiter = l }
}

// WithRetry enables retry of transient failures
func WithRetry(cfg *config.RetryConfig) Option {
	return func(c *Client) { c.retryCfg = cfg }
}

// NewClient creates a NASA API client. An empty apiKey falls back to the
// shared DEMO_KEY, which is heavily rate limited.
func NewClient(apiKey string, log logger.Logger, opts ...Option) *Client {
	if log == nil {
		log = logger.GetLogger()
	}
	if apiKey == "" {
		apiKey = config.DemoKey
		log.Warn("NASA_API_KEY not set, using DEMO_KEY (rate limited)")
	}

	c := &Client{
		httpClient: &http.Client{Timeout: DefaultTimeout},
		apiKey:     apiKey,
		baseURL:    BaseURL,
		logger:     log,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// getJSON performs a GET request and decodes the JSON response into target
func (c *Client) getJSON(ctx context.Context, url string, target interface{}) error {
	if c.retryCfg != nil && c.retryCfg.Enabled {
		cfg := &retry.Config{
			MaxAttempts: c.retryCfg.MaxAttempts,
			Backoff: &retry.ExponentialBackoff{
				BaseDelay:    c.retryCfg.BaseDelay,
				MaxDelay:     c.retryCfg.MaxDelay,
				Multiplier:   2.0,
				JitterFactor: 0.1,
			},
			RetryIf: retry.DefaultRetryIf,
			Context: ctx,
			Logger:  c.logger,
		}
		return retry.Do(func() error {
			return c.getJSONOnce(ctx, url, target)
		}, cfg)
	}
	return c.getJSONOnce(ctx, url, target)
}

func (c *Client) getJSONOnce(ctx context.Context, url string, target interface{}) error {
	if c.limiter != nil {
		c.limiter.Wait()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return &apierrors.Error{
			Type:    apierrors.ErrorTypeUnknown,
			Message: fmt.Sprintf("failed to create request: %v", err),
		}
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	c.logger.DebugWithFields("sending HTTP request", map[string]interface{}{
		"method": req.Method,
		"url":    req.URL.String(),
	})

	resp, err := c.httpClient.Do(req)
	duration := time.Since(start)
	if err != nil {
		c.logger.ErrorWithFields("HTTP request failed", map[string]interface{}{
			"method":   req.Method,
			"url":      req.URL.String(),
			"error":    err.Error(),
			"duration": duration,
		})
		return &apierrors.Error{
			Type:    apierrors.ErrorTypeNetwork,
			Message: fmt.Sprintf("network error: %v", err),
		}
	}
	defer resp.Body.Close()

	c.logger.DebugWithFields("HTTP request completed", map[string]interface{}{
		"method":   req.Method,
		"url":      req.URL.String(),
		"status":   resp.StatusCode,
		"duration": duration,
	})

	if err := c.checkResponseStatus(resp); err != nil {
		return err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &apierrors.Error{
			Type:    apierrors.ErrorTypeNetwork,
			Message: fmt.Sprintf("failed to read response body: %v", err),
			Code:    resp.StatusCode,
		}
	}

	if err := json.Unmarshal(body, target); err != nil {
		bodyPreview := string(body)
		if len(bodyPreview) > 200 {
			bodyPreview = bodyPreview[:200] + "..."
		}
		c.logger.ErrorWithFields("failed to parse JSON response", map[string]interface{}{
			"url":          url,
			"status":       resp.StatusCode,
			"error":        err.Error(),
			"body_preview": bodyPreview,
		})
		return &apierrors.Error{
			Type:    apierrors.ErrorTypeParsing,
			Message: fmt.Sprintf("failed to parse JSON: %v", err),
			Code:    resp.StatusCode,
		}
	}

	return nil
}

// checkResponseStatus maps HTTP status codes onto the error taxonomy
func (c *Client) checkResponseStatus(resp *http.Response) error {
	switch resp.StatusCode {
	case http.StatusOK:
		return nil
	case http.StatusBadRequest:
		return &apierrors.Error{
			Type:    apierrors.ErrorTypeValidation,
			Message: "bad request: " + readErrorMessage(resp),
			Code:    resp.StatusCode,
		}
	case http.StatusUnauthorized, http.StatusForbidden:
		c.logger.WarnWithFields("authentication error", map[string]interface{}{
			"status": resp.StatusCode,
			"url":    resp.Request.URL.String(),
		})
		return &apierrors.Error{
			Type:    apierrors.ErrorTypeAuth,
			Message: "invalid or missing API key",
			Code:    resp.StatusCode,
		}
	case http.StatusNotFound:
		return &apierrors.Error{
			Type:    apierrors.ErrorTypeNotFound,
			Message: "resource not found",
			Code:    resp.StatusCode,
		}
	case http.StatusTooManyRequests:
		c.logger.WarnWithFields("rate limit exceeded", map[string]interface{}{
			"status": resp.StatusCode,
			"url":    resp.Request.URL.String(),
		})
		return &apierrors.Error{
			Type:    apierrors.ErrorTypeRateLimit,
			Message: "API rate limit exceeded",
			Code:    resp.StatusCode,
		}
	case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return &apierrors.Error{
			Type:    apierrors.ErrorTypeServerError,
			Message: "server error",
			Code:    resp.StatusCode,
		}
	default:
		if resp.StatusCode >= 400 {
			return &apierrors.Error{
				Type:    apierrors.ErrorTypeUnknown,
				Message: fmt.Sprintf("unexpected status code: %d", resp.StatusCode),
				Code:    resp.StatusCode,
			}
		}
		return nil
	}
}

// readErrorMessage extracts the message from a NASA error payload, if any
func readErrorMessage(resp *http.Response) string {
	body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return ""
	}

	// NASA APIs use two error envelopes depending on the service
	var withError struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(body, &withError); err == nil {
		if withError.Error.Message != "" {
			return withError.Error.Message
		}
		if withError.Msg != "" {
			return withError.Msg
		}
	}
	return string(body)
}

// NewLimiter builds a token bucket for an explicit hourly quota
func NewLimiter(requestsPerHour int) ratelimit.Limiter {
	return ratelimit.NewTokenBucket(requestsPerHour, time.Hour)
}

// NewLimiterForKey builds a token bucket sized for the given key's quota
func NewLimiterForKey(apiKey string) ratelimit.Limiter {
	if apiKey == config.DemoKey {
		return NewLimiter(DemoKeyRequestsPerHour)
	}
	return NewLimiter(APIKeyRequestsPerHour)
}
