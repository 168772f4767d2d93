// Package github updates GitHub Actions repository secrets, used to push a
// renewed Instagram token back into the CI environment that runs the daily
// post.
package github

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/crypto/nacl/box"

	"nasagram/pkg/apierrors"
	"nasagram/pkg/logger"
)

// APIBaseURL is the GitHub REST API base
const APIBaseURL = "https://api.github.com"

// Client talks to the GitHub REST API for a single repository
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	repository string
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

// NewClient creates a GitHub API client. repository is in owner/name form.
func NewClient(token, repository string, log logger.Logger, opts ...Option) (*Client, error) {
	if token == "" {
		return nil, apierrors.Validation("GitHub token is required")
	}
	if !strings.Contains(repository, "/") {
		return nil, apierrors.Validation("repository must be in owner/name form, got %q", repository)
	}
	if log == nil {
		log = logger.GetLogger()
	}

	c := &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    APIBaseURL,
		token:      token,
		repository: repository,
		logger:     log,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// publicKey is a repository's Actions public key
type publicKey struct {
	KeyID string `json:"key_id"`
	Key   string `json:"key"`
}

// UpdateSecret encrypts value with the repository's Actions public key and
// writes it as the named secret. GitHub requires libsodium sealed boxes, so
// the value is encrypted anonymously against the repo key.
func (c *Client) UpdateSecret(ctx context.Context, name, value string) error {
	if name == "" {
		return apierrors.Validation("secret name is required")
	}

	key, err := c.actionsPublicKey(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch repository public key: %w", err)
	}

	encrypted, err := sealSecret(value, key.Key)
	if err != nil {
		return fmt.Errorf("failed to encrypt secret: %w", err)
	}

	payload := map[string]string{
		"encrypted_value": encrypted,
		"key_id":          key.KeyID,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal secret payload: %w", err)
	}

	url := fmt.Sprintf("%s/repos/%s/actions/secrets/%s", c.baseURL, c.repository, name)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(req)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &apierrors.Error{
			Type:    apierrors.ErrorTypeNetwork,
			Message: fmt.Sprintf("network error: %v", err),
		}
	}
	defer resp.Body.Close()

	// 201 on create, 204 on update
	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusNoContent {
		return c.apiError(resp)
	}

	c.logger.InfoWithFields("updated GitHub Actions secret", map[string]interface{}{
		"repository": c.repository,
		"secret":     name,
	})

	return nil
}

// actionsPublicKey fetches the repository's Actions public key
func (c *Client) actionsPublicKey(ctx context.Context) (*publicKey, error) {
	url := fmt.Sprintf("%s/repos/%s/actions/secrets/public-key", c.baseURL, c.repository)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &apierrors.Error{
			Type:    apierrors.ErrorTypeNetwork,
			Message: fmt.Sprintf("network error: %v", err),
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.apiError(resp)
	}

	var key publicKey
	if err := json.NewDecoder(resp.Body).Decode(&key); err != nil {
		return nil, &apierrors.Error{
			Type:    apierrors.ErrorTypeParsing,
			Message: fmt.Sprintf("failed to parse public key response: %v", err),
		}
	}
	if key.Key == "" || key.KeyID == "" {
		return nil, &apierrors.Error{
			Type:    apierrors.ErrorTypeParsing,
			Message: "incomplete public key response",
		}
	}

	return &key, nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
}

func (c *Client) apiError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	var ghErr struct {
		Message string `json:"message"`
	}
	message := strings.TrimSpace(string(body))
	if err := json.Unmarshal(body, &ghErr); err == nil && ghErr.Message != "" {
		message = ghErr.Message
	}

	errType := apierrors.ErrorTypeUnknown
	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		errType = apierrors.ErrorTypeAuth
	case resp.StatusCode == http.StatusNotFound:
		errType = apierrors.ErrorTypeNotFound
	case resp.StatusCode >= 500:
		errType = apierrors.ErrorTypeServerError
	}

	return &apierrors.Error{
		Type:    errType,
		Message: fmt.Sprintf("GitHub API error: %s", message),
		Code:    resp.StatusCode,
	}
}

// sealSecret encrypts value as a libsodium sealed box against the base64
// encoded repository public key
func sealSecret(value, encodedKey string) (string, error) {
	keyBytes, err := base64.StdEncoding.DecodeString(encodedKey)
	if err != nil {
		return "", fmt.Errorf("failed to decode public key: %w", err)
	}
	if len(keyBytes) != 32 {
		return "", fmt.Errorf("public key must be 32 bytes, got %d", len(keyBytes))
	}

	var key [32]byte
	copy(key[:], keyBytes)

	sealed, err := box.SealAnonymous(nil, []byte(value), &key, rand.Reader)
	if err != nil {
		return "", fmt.Errorf("failed to seal secret: %w", err)
	}

	return base64.StdEncoding.EncodeToString(sealed), nil
}
