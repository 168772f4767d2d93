package instagram

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nasagram/pkg/apierrors"
	"nasagram/pkg/logger"
)

func newTestGraphClient(t *testing.T, handler http.HandlerFunc) (*GraphClient, *[]time.Duration) {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	var slept []time.Duration
	client := NewGraphClient("test_token", "17841400000000000", logger.NewTestLogger(),
		WithGraphBaseURL(server.URL),
		WithProcessingSleep(func(d time.Duration) { slept = append(slept, d) }),
	)
	return client, &slept
}

func TestAccountInfo(t *testing.T) {
	client, _ := newTestGraphClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v18.0/17841400000000000", r.URL.Path)
		assert.Equal(t, "id,username,media_count", r.URL.Query().Get("fields"))
		assert.Equal(t, "test_token", r.URL.Query().Get("access_token"))
		_, _ = w.Write([]byte(`{"id": "17841400000000000", "username": "nasagram", "media_count": 42}`))
	})

	info, err := client.AccountInfo(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "nasagram", info.Username)
	assert.Equal(t, 42, info.MediaCount)
}

func TestPublishImage(t *testing.T) {
	var paths []string
	client, slept := newTestGraphClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		paths = append(paths, r.URL.Path)

		switch r.URL.Path {
		case "/v18.0/17841400000000000/media":
			assert.Equal(t, "https://example.com/apod.jpg", r.PostForm.Get("image_url"))
			assert.Equal(t, "a caption", r.PostForm.Get("caption"))
			assert.Equal(t, "test_token", r.PostForm.Get("access_token"))
			_, _ = w.Write([]byte(`{"id": "creation-1"}`))
		case "/v18.0/17841400000000000/media_publish":
			assert.Equal(t, "creation-1", r.PostForm.Get("creation_id"))
			_, _ = w.Write([]byte(`{"id": "post-1"}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	})

	postID, err := client.PublishImage(context.Background(), "https://example.com/apod.jpg", "a caption")
	require.NoError(t, err)

	assert.Equal(t, "post-1", postID)
	assert.Equal(t, []string{
		"/v18.0/17841400000000000/media",
		"/v18.0/17841400000000000/media_publish",
	}, paths, "media object must be created before publish")
	assert.Equal(t, []time.Duration{MediaProcessingDelay}, *slept)
}

func TestPublishImageMissingCreationID(t *testing.T) {
	var calls int
	client, _ := newTestGraphClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		_, _ = w.Write([]byte(`{}`))
	})

	_, err := client.PublishImage(context.Background(), "https://example.com/a.jpg", "c")
	require.Error(t, err)

	var apiErr *apierrors.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, apierrors.ErrorTypeParsing, apiErr.Type)
	assert.Equal(t, 1, calls, "publish must not run without a creation ID")
}

func TestPublishImageMissingPostID(t *testing.T) {
	client, _ := newTestGraphClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v18.0/17841400000000000/media" {
			_, _ = w.Write([]byte(`{"id": "creation-1"}`))
			return
		}
		_, _ = w.Write([]byte(`{}`))
	})

	_, err := client.PublishImage(context.Background(), "https://example.com/a.jpg", "c")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no post ID")
}

func TestGraphErrorMapping(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantType apierrors.ErrorType
	}{
		{
			"expired token",
			http.StatusBadRequest,
			`{"error": {"message": "Error validating access token", "type": "OAuthException", "code": 190}}`,
			apierrors.ErrorTypeAuth,
		},
		{
			"permission denied",
			http.StatusForbidden,
			`{"error": {"message": "Permission denied", "code": 10}}`,
			apierrors.ErrorTypeAuth,
		},
		{
			"invalid parameter",
			http.StatusBadRequest,
			`{"error": {"message": "Unsupported get request", "code": 100}}`,
			apierrors.ErrorTypeValidation,
		},
		{
			"throttled",
			http.StatusBadRequest,
			`{"error": {"message": "Application request limit reached", "code": 4}}`,
			apierrors.ErrorTypeRateLimit,
		},
		{
			"server error with unknown code",
			http.StatusInternalServerError,
			`{"error": {"message": "An unknown error occurred", "code": 1}}`,
			apierrors.ErrorTypeServerError,
		},
		{
			"non graph payload",
			http.StatusBadGateway,
			`<html>bad gateway</html>`,
			apierrors.ErrorTypeUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newTestGraphClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := client.AccountInfo(context.Background())
			require.Error(t, err)

			var apiErr *apierrors.Error
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.wantType, apiErr.Type)
			assert.Equal(t, tt.status, apiErr.Code)
		})
	}
}

func TestGraphErrorMessageCarriesCode(t *testing.T) {
	client, _ := newTestGraphClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error": {"message": "Error validating access token", "code": 190}}`))
	})

	_, err := client.AccountInfo(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "graph code 190")
}

func TestDebugTokenDefaultsToOwnToken(t *testing.T) {
	client, _ := newTestGraphClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v18.0/debug_token", r.URL.Path)
		assert.Equal(t, "test_token", r.URL.Query().Get("input_token"))
		assert.Equal(t, "test_token", r.URL.Query().Get("access_token"))
		_, _ = w.Write([]byte(`{"data": {"app_id": "123", "user_id": "456", "is_valid": true, "expires_at": 0, "scopes": ["instagram_basic"]}}`))
	})

	info, err := client.DebugToken(context.Background(), "")
	require.NoError(t, err)

	assert.True(t, info.IsValid)
	assert.Equal(t, "123", info.AppID)
	assert.Equal(t, []string{"instagram_basic"}, info.Scopes)
}

func TestTokenInfoHelpers(t *testing.T) {
	never := &TokenInfo{ExpiresAt: 0}
	assert.True(t, never.NeverExpires())
	assert.False(t, never.NeedsRenewal())
	assert.True(t, never.ExpiryTime().IsZero())

	soon := &TokenInfo{ExpiresAt: time.Now().Add(3 * 24 * time.Hour).Unix()}
	assert.False(t, soon.NeverExpires())
	assert.True(t, soon.NeedsRenewal())

	far := &TokenInfo{ExpiresAt: time.Now().Add(60 * 24 * time.Hour).Unix()}
	assert.False(t, far.NeedsRenewal())
	assert.Equal(t, 59, far.DaysRemaining())
}

func TestTokenInfoExpiredTokenIsDueForRenewal(t *testing.T) {
	expired := &TokenInfo{ExpiresAt: time.Now().Add(-72 * time.Hour).Unix()}

	assert.False(t, expired.NeverExpires())
	assert.Negative(t, expired.DaysRemaining())
	assert.True(t, expired.NeedsRenewal(), "an expired token must not be skipped")
}

func TestRefreshToken(t *testing.T) {
	client, _ := newTestGraphClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v18.0/oauth/access_token", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "fb_exchange_token", q.Get("grant_type"))
		assert.Equal(t, "app-id", q.Get("client_id"))
		assert.Equal(t, "app-secret", q.Get("client_secret"))
		assert.Equal(t, "test_token", q.Get("fb_exchange_token"))
		_, _ = w.Write([]byte(`{"access_token": "fresh_token", "token_type": "bearer", "expires_in": 5184000}`))
	})

	refreshed, err := client.RefreshToken(context.Background(), "app-id", "app-secret")
	require.NoError(t, err)

	assert.Equal(t, "fresh_token", refreshed.AccessToken)
	assert.Equal(t, 60, refreshed.DaysValid())
}

func TestRefreshTokenRequiresAppCredentials(t *testing.T) {
	client, _ := newTestGraphClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	})

	_, err := client.RefreshToken(context.Background(), "", "secret")
	require.Error(t, err)

	var apiErr *apierrors.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, apierrors.ErrorTypeValidation, apiErr.Type)
}

func TestPagesResolvesInstagramAccounts(t *testing.T) {
	client, _ := newTestGraphClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v18.0/me/accounts":
			_, _ = w.Write([]byte(`{"data": [{"id": "page-1", "name": "First"}, {"id": "page-2", "name": "Second"}]}`))
		case "/v18.0/page-1":
			_, _ = w.Write([]byte(`{"instagram_business_account": {"id": "ig-1"}}`))
		case "/v18.0/page-2":
			// No linked Instagram account
			_, _ = w.Write([]byte(`{}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	})

	pages, err := client.Pages(context.Background())
	require.NoError(t, err)
	require.Len(t, pages, 2)

	assert.Equal(t, "ig-1", pages[0].InstagramAccountID)
	assert.Empty(t, pages[1].InstagramAccountID)
}
