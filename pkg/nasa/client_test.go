package nasa

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nasagram/pkg/apierrors"
	"nasagram/pkg/config"
	"nasagram/pkg/logger"
	"nasagram/pkg/ratelimit"
)

func TestNewClientDefaults(t *testing.T) {
	log := logger.NewTestLogger()
	client := NewClient("my_key", log)

	assert.Equal(t, BaseURL, client.baseURL)
	assert.Equal(t, "my_key", client.apiKey)
	assert.NotNil(t, client.httpClient)
}

func TestNewClientEmptyKeyFallsBackToDemoKey(t *testing.T) {
	log := logger.NewTestLogger()
	client := NewClient("", log)

	assert.Equal(t, config.DemoKey, client.apiKey)
	assert.True(t, log.HasMessage("NASA_API_KEY not set, using DEMO_KEY (rate limited)"))
}

func TestGetJSONStatusMapping(t *testing.T) {
	tests := []struct {
		status   int
		wantType apierrors.ErrorType
	}{
		{http.StatusBadRequest, apierrors.ErrorTypeValidation},
		{http.StatusUnauthorized, apierrors.ErrorTypeAuth},
		{http.StatusForbidden, apierrors.ErrorTypeAuth},
		{http.StatusNotFound, apierrors.ErrorTypeNotFound},
		{http.StatusTooManyRequests, apierrors.ErrorTypeRateLimit},
		{http.StatusInternalServerError, apierrors.ErrorTypeServerError},
		{http.StatusBadGateway, apierrors.ErrorTypeServerError},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer server.Close()

			client := NewClient("test_key", logger.NewTestLogger(), WithBaseURL(server.URL))

			var target map[string]interface{}
			err := client.getJSON(context.Background(), server.URL+"/x", &target)
			require.Error(t, err)

			var apiErr *apierrors.Error
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.wantType, apiErr.Type)
			assert.Equal(t, tt.status, apiErr.Code)
		})
	}
}

func TestGetJSONParsesErrorEnvelope(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error": {"message": "Date must be between Jun 16, 1995 and today"}}`))
	}))
	defer server.Close()

	client := NewClient("test_key", logger.NewTestLogger(), WithBaseURL(server.URL))

	var target map[string]interface{}
	err := client.getJSON(context.Background(), server.URL+"/x", &target)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Date must be between")
}

func TestGetJSONMalformedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>not json</html>"))
	}))
	defer server.Close()

	client := NewClient("test_key", logger.NewTestLogger(), WithBaseURL(server.URL))

	var target map[string]interface{}
	err := client.getJSON(context.Background(), server.URL+"/x", &target)
	require.Error(t, err)

	var apiErr *apierrors.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, apierrors.ErrorTypeParsing, apiErr.Type)
}

func TestGetJSONRetriesTransientFailures(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"ok": true}`))
	}))
	defer server.Close()

	client := NewClient("test_key", logger.NewTestLogger(),
		WithBaseURL(server.URL),
		WithRetry(&config.RetryConfig{
			Enabled:     true,
			MaxAttempts: 3,
			BaseDelay:   time.Millisecond,
			MaxDelay:    5 * time.Millisecond,
		}),
	)

	var target map[string]interface{}
	err := client.getJSON(context.Background(), server.URL+"/x", &target)
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestGetJSONDoesNotRetryValidationErrors(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	client := NewClient("test_key", logger.NewTestLogger(),
		WithBaseURL(server.URL),
		WithRetry(&config.RetryConfig{
			Enabled:     true,
			MaxAttempts: 3,
			BaseDelay:   time.Millisecond,
			MaxDelay:    5 * time.Millisecond,
		}),
	)

	var target map[string]interface{}
	err := client.getJSON(context.Background(), server.URL+"/x", &target)
	require.Error(t, err)
	assert.Equal(t, 1, calls, "4xx responses should not be retried")
}

func TestWithTimeout(t *testing.T) {
	client := NewClient("test_key", logger.NewTestLogger(), WithTimeout(5*time.Second))
	assert.Equal(t, 5*time.Second, client.httpClient.Timeout)

	// Zero and negative values keep the default
	client = NewClient("test_key", logger.NewTestLogger(), WithTimeout(0))
	assert.Equal(t, DefaultTimeout, client.httpClient.Timeout)
}

func TestNewLimiter(t *testing.T) {
	demo := NewLimiterForKey(config.DemoKey)
	registered := NewLimiterForKey("real_key")
	custom := NewLimiter(50)

	assert.IsType(t, &ratelimit.TokenBucket{}, demo)
	assert.IsType(t, &ratelimit.TokenBucket{}, registered)
	assert.IsType(t, &ratelimit.TokenBucket{}, custom)
}
