package instagram

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"nasagram/pkg/apierrors"
	"nasagram/pkg/logger"
)

const (
	// WebBaseURL is the base URL of the Instagram web application
	WebBaseURL = "https://www.instagram.com"

	// WebAppID is the X-IG-App-ID of the Instagram web application
	WebAppID = "936619743392459"

	loginPageEndpoint   = "/accounts/login/"
	loginAjaxEndpoint   = "/accounts/login/ajax/"
	uploadEndpoint      = "/rupload_igphoto/"
	configureEndpoint   = "/api/v1/media/configure/"
	sessionCookieName   = "sessionid"
	csrfCookieName      = "csrftoken"
)

// Session is the persisted state of a logged-in Instagram web session
type Session struct {
	Username  string    `json:"username"`
	UserID    string    `json:"user_id"`
	SessionID string    `json:"session_id"`
	CSRFToken string    `json:"csrf_token"`
	UserAgent string    `json:"user_agent"`
	CreatedAt time.Time `json:"created_at"`
}

// SessionClient is an unofficial Instagram client that authenticates with
// username and password through the web login flow. Accounts protected by
// 2FA or checkpoint challenges cannot be automated and fail with an auth
// error.
type SessionClient struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
	session    *Session
	logger     logger.Logger
	now        func() time.Time
}

// SessionOption configures a SessionClient
type SessionOption func(*SessionClient)

// WithSessionBaseURL overrides the web base URL (used in tests)
func WithSessionBaseURL(url string) SessionOption {
	return func(c *SessionClient) { c.baseURL = url }
}

// WithSessionHTTPClient overrides the underlying HTTP client. The client
// must carry a cookie jar.
func WithSessionHTTPClient(hc *http.Client) SessionOption {
	return func(c *SessionClient) { c.httpClient = hc }
}

// WithUserAgent overrides the browser user agent
func WithUserAgent(ua string) SessionOption {
	return func(c *SessionClient) { c.userAgent = ua }
}

// NewSessionClient creates an unofficial session-based Instagram client
func NewSessionClient(log logger.Logger, opts ...SessionOption) *SessionClient {
	if log == nil {
		log = logger.GetLogger()
	}

	jar, _ := cookiejar.New(nil)
	c := &SessionClient{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
			Jar:     jar,
		},
		baseURL:   WebBaseURL,
		userAgent: "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36",
		logger:    log,
		now:       time.Now,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Session returns the active session, nil when not logged in
func (c *SessionClient) Session() *Session {
	return c.session
}

// Login authenticates with username and password through the web login
// flow and keeps the resulting session in memory.
func (c *SessionClient) Login(ctx context.Context, username, password string) error {
	if username == "" || password == "" {
		return apierrors.Validation("username and password are required")
	}

	csrf, err := c.fetchCSRFToken(ctx)
	if err != nil {
		return err
	}

	// The web login flow wraps the password in a versioned envelope.
	// Version 0 is the plaintext-over-TLS variant.
	encPassword := fmt.Sprintf("#PWD_INSTAGRAM_BROWSER:0:%d:%s", c.now().Unix(), password)

	form := url.Values{}
	form.Set("username", username)
	form.Set("enc_password", encPassword)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+loginAjaxEndpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return &apierrors.Error{
			Type:    apierrors.ErrorTypeUnknown,
			Message: fmt.Sprintf("failed to create request: %v", err),
		}
	}
	c.setWebHeaders(req, csrf)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &apierrors.Error{
			Type:    apierrors.ErrorTypeNetwork,
			Message: fmt.Sprintf("network error: %v", err),
		}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &apierrors.Error{
			Type:    apierrors.ErrorTypeNetwork,
			Message: fmt.Sprintf("failed to read login response: %v", err),
			Code:    resp.StatusCode,
		}
	}

	var loginResp struct {
		Authenticated     bool   `json:"authenticated"`
		User              bool   `json:"user"`
		UserID            string `json:"userId"`
		CheckpointURL     string `json:"checkpoint_url"`
		TwoFactorRequired bool   `json:"two_factor_required"`
		Message           string `json:"message"`
	}
	if err := json.Unmarshal(body, &loginResp); err != nil {
		return &apierrors.Error{
			Type:    apierrors.ErrorTypeParsing,
			Message: fmt.Sprintf("failed to parse login response: %v", err),
			Code:    resp.StatusCode,
		}
	}

	if loginResp.TwoFactorRequired || loginResp.CheckpointURL != "" {
		c.logger.Error("Instagram requires interactive verification, this cannot be automated")
		return &apierrors.Error{
			Type:    apierrors.ErrorTypeAuth,
			Message: "Instagram requires 2FA or checkpoint verification; log in manually and store a session with 'nasagram auth login'",
			Code:    resp.StatusCode,
		}
	}

	if !loginResp.Authenticated {
		return &apierrors.Error{
			Type:    apierrors.ErrorTypeAuth,
			Message: "login failed: invalid username or password",
			Code:    resp.StatusCode,
		}
	}

	c.session = &Session{
		Username:  username,
		UserID:    loginResp.UserID,
		SessionID: c.cookieValue(sessionCookieName),
		CSRFToken: c.cookieValue(csrfCookieName),
		UserAgent: c.userAgent,
		CreatedAt: c.now(),
	}

	c.logger.InfoWithFields("logged into Instagram", map[string]interface{}{
		"username": username,
	})

	return nil
}

// SaveSession persists the active session to a JSON file readable only by
// the current user.
func (c *SessionClient) SaveSession(path string) error {
	if c.session == nil {
		return apierrors.Validation("no active session to save")
	}

	data, err := json.MarshalIndent(c.session, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}

	c.logger.InfoWithFields("saved Instagram session", map[string]interface{}{
		"path": path,
	})

	return nil
}

// RestoreSession loads a previously saved session from disk and installs
// its cookies.
func (c *SessionClient) RestoreSession(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read session file: %w", err)
	}

	var session Session
	if err := json.Unmarshal(data, &session); err != nil {
		return fmt.Errorf("failed to parse session file: %w", err)
	}

	if session.SessionID == "" {
		return apierrors.Validation("session file has no session ID")
	}

	c.session = &session
	if session.UserAgent != "" {
		c.userAgent = session.UserAgent
	}
	c.installSessionCookies()

	c.logger.InfoWithFields("restored Instagram session", map[string]interface{}{
		"username": session.Username,
		"path":     path,
	})

	return nil
}

// UploadPhoto uploads a photo with a caption through the web upload flow:
// push the bytes to the upload endpoint, then configure the media. The
// returned ID is the published media ID.
func (c *SessionClient) UploadPhoto(ctx context.Context, imageData []byte, caption string) (string, error) {
	if c.session == nil {
		return "", &apierrors.Error{
			Type:    apierrors.ErrorTypeAuth,
			Message: "not logged in",
		}
	}
	if len(imageData) == 0 {
		return "", apierrors.Validation("image data is empty")
	}

	uploadID := fmt.Sprintf("%d", c.now().UnixMilli())

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+uploadEndpoint+uploadID, strings.NewReader(string(imageData)))
	if err != nil {
		return "", &apierrors.Error{
			Type:    apierrors.ErrorTypeUnknown,
			Message: fmt.Sprintf("failed to create upload request: %v", err),
		}
	}
	c.setWebHeaders(req, c.session.CSRFToken)
	req.Header.Set("Content-Type", "image/jpeg")
	req.Header.Set("X-Entity-Name", uploadID)
	req.Header.Set("X-Entity-Length", fmt.Sprintf("%d", len(imageData)))
	req.Header.Set("Offset", "0")

	var uploadResp struct {
		UploadID string `json:"upload_id"`
		Status   string `json:"status"`
	}
	if err := c.doJSON(req, &uploadResp); err != nil {
		return "", err
	}
	if uploadResp.UploadID == "" {
		uploadResp.UploadID = uploadID
	}

	c.logger.DebugWithFields("photo bytes uploaded", map[string]interface{}{
		"upload_id": uploadResp.UploadID,
		"size":      len(imageData),
	})

	form := url.Values{}
	form.Set("upload_id", uploadResp.UploadID)
	form.Set("caption", caption)

	configReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+configureEndpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", &apierrors.Error{
			Type:    apierrors.ErrorTypeUnknown,
			Message: fmt.Sprintf("failed to create configure request: %v", err),
		}
	}
	c.setWebHeaders(configReq, c.session.CSRFToken)
	configReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var configResp struct {
		Media struct {
			ID   string `json:"id"`
			Code string `json:"code"`
		} `json:"media"`
		Status string `json:"status"`
	}
	if err := c.doJSON(configReq, &configResp); err != nil {
		return "", err
	}

	if configResp.Media.ID == "" {
		return "", &apierrors.Error{
			Type:    apierrors.ErrorTypeParsing,
			Message: "no media ID in configure response",
		}
	}

	c.logger.InfoWithFields("posted photo to Instagram", map[string]interface{}{
		"media_id": configResp.Media.ID,
		"post_url": fmt.Sprintf("%s/p/%s/", WebBaseURL, configResp.Media.Code),
	})

	return configResp.Media.ID, nil
}

// fetchCSRFToken loads the login page to obtain a csrftoken cookie
func (c *SessionClient) fetchCSRFToken(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+loginPageEndpoint, nil)
	if err != nil {
		return "", &apierrors.Error{
			Type:    apierrors.ErrorTypeUnknown,
			Message: fmt.Sprintf("failed to create request: %v", err),
		}
	}
	c.setWebHeaders(req, "")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &apierrors.Error{
			Type:    apierrors.ErrorTypeNetwork,
			Message: fmt.Sprintf("network error: %v", err),
		}
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	token := c.cookieValue(csrfCookieName)
	if token == "" {
		return "", &apierrors.Error{
			Type:    apierrors.ErrorTypeAuth,
			Message: "no CSRF token in login page response",
			Code:    resp.StatusCode,
		}
	}
	return token, nil
}

// doJSON executes a request and decodes the JSON response
func (c *SessionClient) doJSON(req *http.Request, target interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &apierrors.Error{
			Type:    apierrors.ErrorTypeNetwork,
			Message: fmt.Sprintf("network error: %v", err),
		}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &apierrors.Error{
			Type:    apierrors.ErrorTypeNetwork,
			Message: fmt.Sprintf("failed to read response body: %v", err),
			Code:    resp.StatusCode,
		}
	}

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return &apierrors.Error{
			Type:    apierrors.ErrorTypeAuth,
			Message: "session expired or rejected",
			Code:    resp.StatusCode,
		}
	}
	if resp.StatusCode != http.StatusOK {
		preview := string(body)
		if len(preview) > 200 {
			preview = preview[:200] + "..."
		}
		return &apierrors.Error{
			Type:    apierrors.ErrorTypeUnknown,
			Message: fmt.Sprintf("unexpected status %d: %s", resp.StatusCode, preview),
			Code:    resp.StatusCode,
		}
	}

	if err := json.Unmarshal(body, target); err != nil {
		return &apierrors.Error{
			Type:    apierrors.ErrorTypeParsing,
			Message: fmt.Sprintf("failed to parse JSON: %v", err),
			Code:    resp.StatusCode,
		}
	}

	return nil
}

// setWebHeaders applies the browser-like headers the web API expects
func (c *SessionClient) setWebHeaders(req *http.Request, csrfToken string) {
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "*/*")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("X-IG-App-ID", WebAppID)
	req.Header.Set("X-Requested-With", "XMLHttpRequest")
	req.Header.Set("Referer", WebBaseURL+"/")
	if csrfToken != "" {
		req.Header.Set("X-CSRFToken", csrfToken)
	}
}

// cookieValue reads a cookie for the base URL from the jar
func (c *SessionClient) cookieValue(name string) string {
	u, err := url.Parse(c.baseURL)
	if err != nil || c.httpClient.Jar == nil {
		return ""
	}
	for _, cookie := range c.httpClient.Jar.Cookies(u) {
		if cookie.Name == name {
			return cookie.Value
		}
	}
	return ""
}

// installSessionCookies pushes the restored session's cookies into the jar
func (c *SessionClient) installSessionCookies() {
	u, err := url.Parse(c.baseURL)
	if err != nil || c.httpClient.Jar == nil {
		return
	}
	c.httpClient.Jar.SetCookies(u, []*http.Cookie{
		{Name: sessionCookieName, Value: c.session.SessionID, Path: "/"},
		{Name: csrfCookieName, Value: c.session.CSRFToken, Path: "/"},
	})
}
