package instagram

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"nasagram/pkg/apierrors"
	"nasagram/pkg/logger"
)

const (
	// GraphBaseURL is the base URL of the Meta Graph API
	GraphBaseURL = "https://graph.facebook.com"

	// DefaultGraphVersion is the Graph API version the client targets
	DefaultGraphVersion = "v18.0"

	// MediaProcessingDelay is how long Instagram is given to process a
	// freshly created media object before publish. Publishing immediately
	// fails intermittently on large images.
	MediaProcessingDelay = 3 * time.Second

	// RenewalThresholdDays is how close to expiry a token must be before
	// renewal is considered due.
	RenewalThresholdDays = 7
)

// GraphClient is an Instagram Graph API client bound to one business account
type GraphClient struct {
	httpClient  *http.Client
	baseURL     string
	version     string
	accessToken string
	accountID   string
	logger      logger.Logger
	// sleep is injectable so tests don't wait out the processing delay
	sleep func(time.Duration)
}

// GraphOption configures a GraphClient
type GraphOption func(*GraphClient)

// WithGraphBaseURL overrides the API base URL (used in tests)
func WithGraphBaseURL(url string) GraphOption {
	return func(c *GraphClient) { c.baseURL = url }
}

// WithGraphVersion overrides the Graph API version
func WithGraphVersion(version string) GraphOption {
	return func(c *GraphClient) { c.version = version }
}

// WithGraphHTTPClient overrides the underlying HTTP client
func WithGraphHTTPClient(hc *http.Client) GraphOption {
	return func(c *GraphClient) { c.httpClient = hc }
}

// WithProcessingSleep overrides the media processing wait (used in tests)
func WithProcessingSleep(fn func(time.Duration)) GraphOption {
	return func(c *GraphClient) { c.sleep = fn }
}

// NewGraphClient creates an Instagram Graph API client
func NewGraphClient(accessToken, accountID string, log logger.Logger, opts ...GraphOption) *GraphClient {
	if log == nil {
		log = logger.GetLogger()
	}

	c := &GraphClient{
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		baseURL:     GraphBaseURL,
		version:     DefaultGraphVersion,
		accessToken: accessToken,
		accountID:   accountID,
		logger:      log,
		sleep:       time.Sleep,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// AccountInfo describes the connected Instagram business account
type AccountInfo struct {
	ID         string `json:"id"`
	Username   string `json:"username"`
	MediaCount int    `json:"media_count"`
}

// TokenInfo is the debug_token introspection result
type TokenInfo struct {
	AppID     string   `json:"app_id"`
	UserID    string   `json:"user_id"`
	IsValid   bool     `json:"is_valid"`
	ExpiresAt int64    `json:"expires_at"`
	Scopes    []string `json:"scopes"`
}

// ExpiryTime returns the token expiry, or the zero time when it never expires
func (t *TokenInfo) ExpiryTime() time.Time {
	if t.ExpiresAt == 0 {
		return time.Time{}
	}
	return time.Unix(t.ExpiresAt, 0)
}

// NeverExpires reports whether the token carries no expiry at all
func (t *TokenInfo) NeverExpires() bool {
	return t.ExpiresAt == 0
}

// DaysRemaining returns full days until expiry, negative once the token has
// expired. Check NeverExpires before interpreting the value.
func (t *TokenInfo) DaysRemaining() int {
	return int(time.Until(t.ExpiryTime()).Hours() / 24)
}

// NeedsRenewal reports whether the token is inside the renewal window. An
// already expired token is always due.
func (t *TokenInfo) NeedsRenewal() bool {
	return !t.NeverExpires() && t.DaysRemaining() <= RenewalThresholdDays
}

// RefreshedToken is the result of a fb_exchange_token grant
type RefreshedToken struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// DaysValid converts the expires_in window to whole days
func (r *RefreshedToken) DaysValid() int {
	return int(r.ExpiresIn / 86400)
}

// Page is a Facebook page reachable with the current token
type Page struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	// InstagramAccountID is the linked business account, empty when the
	// page has none.
	InstagramAccountID string
}

// GraphError is the error payload the Graph API returns
type GraphError struct {
	Message      string `json:"message"`
	Type         string `json:"type"`
	Code         int    `json:"code"`
	ErrorSubcode int    `json:"error_subcode"`
	FBTraceID    string `json:"fbtrace_id"`
}

type graphErrorEnvelope struct {
	Error *GraphError `json:"error"`
}

// AccountInfo fetches the connected account's profile for verification
func (c *GraphClient) AccountInfo(ctx context.Context) (*AccountInfo, error) {
	params := url.Values{}
	params.Set("fields", "id,username,media_count")
	params.Set("access_token", c.accessToken)

	var info AccountInfo
	if err := c.get(ctx, c.objectURL(c.accountID, params), &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// PublishImage runs the two-phase Graph API publish flow: create a media
// object from a public image URL, wait for Instagram to process it, then
// publish. The returned post ID is only set when both phases returned ids.
func (c *GraphClient) PublishImage(ctx context.Context, imageURL, caption string) (string, error) {
	c.logger.Info("creating Instagram media object")

	form := url.Values{}
	form.Set("image_url", imageURL)
	form.Set("caption", caption)
	form.Set("access_token", c.accessToken)

	var created struct {
		ID string `json:"id"`
	}
	if err := c.postForm(ctx, c.objectURL(c.accountID+"/media", nil), form, &created); err != nil {
		return "", err
	}
	if created.ID == "" {
		return "", &apierrors.Error{
			Type:    apierrors.ErrorTypeParsing,
			Message: "no creation ID in media upload response",
		}
	}

	c.logger.InfoWithFields("media object created", map[string]interface{}{
		"creation_id": created.ID,
	})

	// Give Instagram time to process the media before publishing
	c.logger.Info("waiting for Instagram to process the media")
	c.sleep(MediaProcessingDelay)

	publishForm := url.Values{}
	publishForm.Set("creation_id", created.ID)
	publishForm.Set("access_token", c.accessToken)

	c.logger.Info("publishing to Instagram")
	var published struct {
		ID string `json:"id"`
	}
	if err := c.postForm(ctx, c.objectURL(c.accountID+"/media_publish", nil), publishForm, &published); err != nil {
		return "", err
	}
	if published.ID == "" {
		return "", &apierrors.Error{
			Type:    apierrors.ErrorTypeParsing,
			Message: "no post ID in media publish response",
		}
	}

	c.logger.InfoWithFields("published to Instagram", map[string]interface{}{
		"post_id": published.ID,
	})

	return published.ID, nil
}

// DebugToken introspects an access token. The client's own token is used as
// the inspecting token.
func (c *GraphClient) DebugToken(ctx context.Context, inputToken string) (*TokenInfo, error) {
	if inputToken == "" {
		inputToken = c.accessToken
	}

	params := url.Values{}
	params.Set("input_token", inputToken)
	params.Set("access_token", c.accessToken)

	var resp struct {
		Data *TokenInfo `json:"data"`
	}
	if err := c.get(ctx, c.objectURL("debug_token", params), &resp); err != nil {
		return nil, err
	}
	if resp.Data == nil {
		return nil, &apierrors.Error{
			Type:    apierrors.ErrorTypeParsing,
			Message: "no token data in debug_token response",
		}
	}
	return resp.Data, nil
}

// RefreshToken exchanges the current token for a fresh long-lived one
func (c *GraphClient) RefreshToken(ctx context.Context, appID, appSecret string) (*RefreshedToken, error) {
	if appID == "" || appSecret == "" {
		return nil, apierrors.Validation("Facebook app ID and secret are required for token exchange")
	}

	params := url.Values{}
	params.Set("grant_type", "fb_exchange_token")
	params.Set("client_id", appID)
	params.Set("client_secret", appSecret)
	params.Set("fb_exchange_token", c.accessToken)

	var refreshed RefreshedToken
	if err := c.get(ctx, c.objectURL("oauth/access_token", params), &refreshed); err != nil {
		return nil, err
	}
	if refreshed.AccessToken == "" {
		return nil, &apierrors.Error{
			Type:    apierrors.ErrorTypeParsing,
			Message: "no access token in renewal response",
		}
	}
	return &refreshed, nil
}

// Pages lists the Facebook pages reachable with the token and resolves the
// Instagram business account linked to each one.
func (c *GraphClient) Pages(ctx context.Context) ([]Page, error) {
	params := url.Values{}
	params.Set("access_token", c.accessToken)

	var resp struct {
		Data []Page `json:"data"`
	}
	if err := c.get(ctx, c.objectURL("me/accounts", params), &resp); err != nil {
		return nil, err
	}

	for i := range resp.Data {
		igParams := url.Values{}
		igParams.Set("fields", "instagram_business_account")
		igParams.Set("access_token", c.accessToken)

		var pageResp struct {
			InstagramBusinessAccount struct {
				ID string `json:"id"`
			} `json:"instagram_business_account"`
		}
		if err := c.get(ctx, c.objectURL(resp.Data[i].ID, igParams), &pageResp); err != nil {
			c.logger.WarnWithFields("failed to resolve Instagram account for page", map[string]interface{}{
				"page_id": resp.Data[i].ID,
				"error":   err.Error(),
			})
			continue
		}
		resp.Data[i].InstagramAccountID = pageResp.InstagramBusinessAccount.ID
	}

	return resp.Data, nil
}

// objectURL builds a versioned Graph API URL for the given object path
func (c *GraphClient) objectURL(path string, params url.Values) string {
	u := fmt.Sprintf("%s/%s/%s", c.baseURL, c.version, path)
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	return u
}

// get issues a GET request and decodes the JSON response
func (c *GraphClient) get(ctx context.Context, url string, target interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return &apierrors.Error{
			Type:    apierrors.ErrorTypeUnknown,
			Message: fmt.Sprintf("failed to create request: %v", err),
		}
	}
	return c.do(req, target)
}

// postForm issues a form-encoded POST request and decodes the JSON response
func (c *GraphClient) postForm(ctx context.Context, url string, form url.Values, target interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(form.Encode()))
	if err != nil {
		return &apierrors.Error{
			Type:    apierrors.ErrorTypeUnknown,
			Message: fmt.Sprintf("failed to create request: %v", err),
		}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(req, target)
}

func (c *GraphClient) do(req *http.Request, target interface{}) error {
	start := time.Now()
	c.logger.DebugWithFields("sending Graph API request", map[string]interface{}{
		"method": req.Method,
		"path":   req.URL.Path,
	})

	resp, err := c.httpClient.Do(req)
	duration := time.Since(start)
	if err != nil {
		c.logger.ErrorWithFields("Graph API request failed", map[string]interface{}{
			"method":   req.Method,
			"path":     req.URL.Path,
			"error":    err.Error(),
			"duration": duration,
		})
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

	c.logger.DebugWithFields("Graph API request completed", map[string]interface{}{
		"method":   req.Method,
		"path":     req.URL.Path,
		"status":   resp.StatusCode,
		"duration": duration,
	})

	if resp.StatusCode != http.StatusOK {
		return c.graphError(resp.StatusCode, body)
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

// graphError decodes the Graph API error envelope and maps it onto the
// error taxonomy
func (c *GraphClient) graphError(statusCode int, body []byte) error {
	var envelope graphErrorEnvelope
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error != nil {
		ge := envelope.Error
		c.logger.ErrorWithFields("Graph API error", map[string]interface{}{
			"status":        statusCode,
			"error_code":    ge.Code,
			"error_subcode": ge.ErrorSubcode,
			"error_type":    ge.Type,
			"message":       ge.Message,
			"fbtrace_id":    ge.FBTraceID,
		})

		errType := apierrors.ErrorTypeUnknown
		switch {
		case ge.Code == 190:
			// Invalid or expired access token
			errType = apierrors.ErrorTypeAuth
		case ge.Code == 10:
			// Permission denied
			errType = apierrors.ErrorTypeAuth
		case ge.Code == 100:
			// Invalid parameter, typically a wrong account ID
			errType = apierrors.ErrorTypeValidation
		case ge.Code == 4 || ge.Code == 17 || ge.Code == 32:
			errType = apierrors.ErrorTypeRateLimit
		case statusCode >= 500:
			errType = apierrors.ErrorTypeServerError
		}

		return &apierrors.Error{
			Type:    errType,
			Message: fmt.Sprintf("%s (graph code %d)", ge.Message, ge.Code),
			Code:    statusCode,
		}
	}

	preview := string(body)
	if len(preview) > 200 {
		preview = preview[:200] + "..."
	}
	return &apierrors.Error{
		Type:    apierrors.ErrorTypeUnknown,
		Message: fmt.Sprintf("unexpected status %d: %s", statusCode, preview),
		Code:    statusCode,
	}
}
