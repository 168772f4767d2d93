package github

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/nacl/box"

	"nasagram/pkg/apierrors"
	"nasagram/pkg/logger"
)

func TestNewClientValidation(t *testing.T) {
	log := logger.NewTestLogger()

	_, err := NewClient("", "owner/repo", log)
	assert.Error(t, err, "missing token should be rejected")

	_, err = NewClient("ghp_token", "not-a-repo", log)
	assert.Error(t, err, "repository without owner should be rejected")

	client, err := NewClient("ghp_token", "owner/repo", log)
	require.NoError(t, err)
	assert.NotNil(t, client)
}

func TestUpdateSecret(t *testing.T) {
	pub, priv, err := box.GenerateKey(rand.Reader)
	require.NoError(t, err)

	var putBody struct {
		EncryptedValue string `json:"encrypted_value"`
		KeyID          string `json:"key_id"`
	}
	var putPath, authHeader string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/repos/owner/repo/actions/secrets/public-key":
			_ = json.NewEncoder(w).Encode(map[string]string{
				"key_id": "key-1",
				"key":    base64.StdEncoding.EncodeToString(pub[:]),
			})
		case r.Method == http.MethodPut:
			putPath = r.URL.Path
			authHeader = r.Header.Get("Authorization")
			_ = json.NewDecoder(r.Body).Decode(&putBody)
			w.WriteHeader(http.StatusNoContent)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	client, err := NewClient("ghp_token", "owner/repo", logger.NewTestLogger(), WithBaseURL(server.URL))
	require.NoError(t, err)

	require.NoError(t, client.UpdateSecret(context.Background(), "INSTAGRAM_ACCESS_TOKEN", "new-token-value"))

	assert.Equal(t, "/repos/owner/repo/actions/secrets/INSTAGRAM_ACCESS_TOKEN", putPath)
	assert.Equal(t, "Bearer ghp_token", authHeader)
	assert.Equal(t, "key-1", putBody.KeyID)

	// The sealed box must open with the repository private key
	sealed, err := base64.StdEncoding.DecodeString(putBody.EncryptedValue)
	require.NoError(t, err)
	opened, ok := box.OpenAnonymous(nil, sealed, pub, priv)
	require.True(t, ok, "sealed box should open with the repo private key")
	assert.Equal(t, "new-token-value", string(opened))
}

func TestUpdateSecretAuthError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]string{"message": "Bad credentials"})
	}))
	defer server.Close()

	client, err := NewClient("ghp_bad", "owner/repo", logger.NewTestLogger(), WithBaseURL(server.URL))
	require.NoError(t, err)

	err = client.UpdateSecret(context.Background(), "SECRET", "value")
	require.Error(t, err)

	var apiErr *apierrors.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, apierrors.ErrorTypeAuth, apiErr.Type)
	assert.Contains(t, apiErr.Message, "Bad credentials")
}

func TestUpdateSecretRequiresName(t *testing.T) {
	client, err := NewClient("ghp_token", "owner/repo", logger.NewTestLogger())
	require.NoError(t, err)

	err = client.UpdateSecret(context.Background(), "", "value")
	assert.Error(t, err)
}

func TestSealSecretRejectsBadKey(t *testing.T) {
	_, err := sealSecret("value", "not-base64!!!")
	assert.Error(t, err)

	_, err = sealSecret("value", base64.StdEncoding.EncodeToString([]byte("short")))
	assert.Error(t, err)
}
