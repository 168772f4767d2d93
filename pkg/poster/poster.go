// Package poster orchestrates the daily posting flow: pick an APOD image,
// build a caption, and publish it to Instagram through the Graph API or an
// unofficial web session.
package poster

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"nasagram/pkg/apierrors"
	"nasagram/pkg/instagram"
	"nasagram/pkg/logger"
	"nasagram/pkg/nasa"
)

const (
	// DefaultPostAttempts is how many random picks are tried before the
	// today's-picture fallback.
	DefaultPostAttempts = 3

	// AttemptPause is the wait between failed posting attempts
	AttemptPause = 2 * time.Second

	// maxImageDownload caps the image size fetched for session uploads
	maxImageDownload = 50 << 20
)

// APODSource provides APOD records to post
type APODSource interface {
	Get(ctx context.Context, opts nasa.APODOptions) (*nasa.APOD, error)
	GetRandomImage(ctx context.Context) (*nasa.APOD, error)
}

// GraphPublisher is the official posting path
type GraphPublisher interface {
	AccountInfo(ctx context.Context) (*instagram.AccountInfo, error)
	PublishImage(ctx context.Context, imageURL, caption string) (string, error)
}

// SessionPublisher is the unofficial posting path; it needs the image bytes
// rather than a public URL.
type SessionPublisher interface {
	UploadPhoto(ctx context.Context, imageData []byte, caption string) (string, error)
}

// Result describes a successful post
type Result struct {
	PostID  string
	APOD    *nasa.APOD
	Caption string
}

// Poster runs the posting flow against one of the publishers
type Poster struct {
	apod       APODSource
	graph      GraphPublisher
	session    SessionPublisher
	httpClient *http.Client
	logger     logger.Logger
	attempts   int
	// sleep is injectable so tests don't wait out the attempt pause
	sleep func(time.Duration)
}

// Option configures a Poster
type Option func(*Poster)

// WithGraphPublisher sets the official Graph API publisher
func WithGraphPublisher(g GraphPublisher) Option {
	return func(p *Poster) { p.graph = g }
}

// WithSessionPublisher sets the unofficial session publisher
func WithSessionPublisher(s SessionPublisher) Option {
	return func(p *Poster) { p.session = s }
}

// WithAttempts overrides the number of random picks tried
func WithAttempts(n int) Option {
	return func(p *Poster) {
		if n > 0 {
			p.attempts = n
		}
	}
}

// WithHTTPClient overrides the client used to download image bytes
func WithHTTPClient(hc *http.Client) Option {
	return func(p *Poster) { p.httpClient = hc }
}

// WithSleep overrides the pause between attempts (used in tests)
func WithSleep(fn func(time.Duration)) Option {
	return func(p *Poster) { p.sleep = fn }
}

// New creates a Poster over the given APOD source. At least one publisher
// option must be supplied before Post is called.
func New(apod APODSource, log logger.Logger, opts ...Option) *Poster {
	if log == nil {
		log = logger.GetLogger()
	}

	p := &Poster{
		apod:       apod,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		logger:     log,
		attempts:   DefaultPostAttempts,
		sleep:      time.Sleep,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Post picks a random APOD image and publishes it. Each failed attempt gets
// a fresh random pick; when all attempts fail, today's picture is tried as a
// last resort.
func (p *Poster) Post(ctx context.Context) (*Result, error) {
	if p.graph == nil && p.session == nil {
		return nil, fmt.Errorf("no publisher configured")
	}

	if p.graph != nil {
		info, err := p.graph.AccountInfo(ctx)
		if err != nil {
			return nil, fmt.Errorf("account verification failed: %w", err)
		}
		p.logger.InfoWithFields("verified Instagram account", map[string]interface{}{
			"username":    info.Username,
			"media_count": info.MediaCount,
		})
	}

	var lastErr error
	for attempt := 1; attempt <= p.attempts; attempt++ {
		if attempt > 1 {
			p.sleep(AttemptPause)
		}

		apod, err := p.apod.GetRandomImage(ctx)
		if err != nil {
			p.logger.WarnWithFields("failed to pick a random image", map[string]interface{}{
				"attempt": attempt,
				"error":   err.Error(),
			})
			lastErr = err
			continue
		}

		result, err := p.publish(ctx, apod)
		if err != nil {
			p.logger.WarnWithFields("posting attempt failed", map[string]interface{}{
				"attempt": attempt,
				"date":    apod.Date,
				"error":   err.Error(),
			})
			lastErr = err
			continue
		}

		return result, nil
	}

	// Last resort: today's picture, if it happens to be an image
	p.logger.Info("random picks exhausted, falling back to today's picture")
	today, err := p.apod.Get(ctx, nasa.APODOptions{})
	if err != nil {
		return nil, fmt.Errorf("all posting attempts failed: %w", lastErr)
	}
	if !today.IsImage() {
		return nil, fmt.Errorf("all posting attempts failed and today's picture is a %s: %w", today.MediaType, lastErr)
	}

	result, err := p.publish(ctx, today)
	if err != nil {
		return nil, fmt.Errorf("fallback post failed: %w", err)
	}
	return result, nil
}

// publish sends one APOD through whichever publisher is configured, the
// Graph API taking precedence.
func (p *Poster) publish(ctx context.Context, apod *nasa.APOD) (*Result, error) {
	caption := instagram.BuildCaption(apod)

	var postID string
	var err error
	switch {
	case p.graph != nil:
		postID, err = p.graph.PublishImage(ctx, apod.BestImageURL(), caption)
	case p.session != nil:
		var imageData []byte
		imageData, err = p.downloadImage(ctx, apod.BestImageURL())
		if err == nil {
			postID, err = p.session.UploadPhoto(ctx, imageData, caption)
		}
	}
	if err != nil {
		return nil, err
	}

	p.logger.InfoWithFields("posted APOD to Instagram", map[string]interface{}{
		"post_id": postID,
		"date":    apod.Date,
		"title":   apod.Title,
	})

	return &Result{PostID: postID, APOD: apod, Caption: caption}, nil
}

// downloadImage fetches the image bytes for session uploads
func (p *Poster) downloadImage(ctx context.Context, imageURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, &apierrors.Error{
			Type:    apierrors.ErrorTypeUnknown,
			Message: fmt.Sprintf("failed to create request: %v", err),
		}
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, &apierrors.Error{
			Type:    apierrors.ErrorTypeNetwork,
			Message: fmt.Sprintf("failed to download image: %v", err),
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &apierrors.Error{
			Type:    apierrors.ErrorTypeServerError,
			Message: fmt.Sprintf("image download returned status %d", resp.StatusCode),
			Code:    resp.StatusCode,
		}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageDownload))
	if err != nil {
		return nil, &apierrors.Error{
			Type:    apierrors.ErrorTypeNetwork,
			Message: fmt.Sprintf("failed to read image data: %v", err),
		}
	}

	p.logger.DebugWithFields("downloaded image", map[string]interface{}{
		"url":   imageURL,
		"bytes": len(data),
	})

	return data, nil
}
