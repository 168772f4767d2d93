package nasa

import (
	"context"
	"errors"
	"net/url"
	"strconv"
	"time"

	"nasagram/pkg/apierrors"
	"nasagram/pkg/logger"
)

const (
	// FirstAPODDate is the date of the first Astronomy Picture of the Day
	FirstAPODDate = "1995-06-16"

	// MaxRandomCount is the upper bound the APOD API accepts for count
	MaxRandomCount = 100

	// RandomImageAttempts bounds the retry-until-image loop
	RandomImageAttempts = 5

	// MediaTypeImage and MediaTypeVideo are the media types APOD returns
	MediaTypeImage = "image"
	MediaTypeVideo = "video"

	dateLayout = "2006-01-02"
)

// ErrNoImageFound is returned when the random-image loop exhausts its
// attempts without seeing an image entry.
var ErrNoImageFound = errors.New("no image APOD found within attempt limit")

// APOD represents a single Astronomy Picture of the Day record. Optional
// fields decode to the empty string when the API omits them.
type APOD struct {
	Date           string `json:"date"`
	Title          string `json:"title"`
	Explanation    string `json:"explanation"`
	URL            string `json:"url"`
	HDURL          string `json:"hdurl,omitempty"`
	MediaType      string `json:"media_type"`
	ThumbnailURL   string `json:"thumbnail_url,omitempty"`
	Copyright      string `json:"copyright,omitempty"`
	ServiceVersion string `json:"service_version,omitempty"`
}

// IsImage reports whether the entry is a still image
func (a *APOD) IsImage() bool {
	return a.MediaType == MediaTypeImage
}

// BestImageURL returns the HD image URL when available, the standard one
// otherwise.
func (a *APOD) BestImageURL() string {
	if a.HDURL != "" {
		return a.HDURL
	}
	return a.URL
}

// APODOptions configures a single-date APOD request
type APODOptions struct {
	// Date requests a specific day's picture (YYYY-MM-DD); empty means today
	Date string
	// HD requests the high-definition image URL
	HD bool
	// Thumbs requests a video thumbnail URL for video entries
	Thumbs bool
}

// APODClient talks to NASA's Astronomy Picture of the Day API
type APODClient struct {
	client *Client
	logger logger.Logger
	// now is injectable for date-bound validation in tests
	now func() time.Time
}

// NewAPODClient creates an APOD client on top of the shared NASA client
func NewAPODClient(client *Client) *APODClient {
	return &APODClient{
		client: client,
		logger: client.logger,
		now:    time.Now,
	}
}

// Get fetches a single APOD entry, today's when no date is given
func (ac *APODClient) Get(ctx context.Context, opts APODOptions) (*APOD, error) {
	params := url.Values{}
	if opts.Date != "" {
		if err := ac.validateDate(opts.Date); err != nil {
			return nil, err
		}
		params.Set("date", opts.Date)
	}
	if opts.HD {
		params.Set("hd", "true")
	}
	if opts.Thumbs {
		params.Set("thumbs", "true")
	}

	var apod APOD
	if err := ac.client.getJSON(ctx, ac.client.apodURL(params), &apod); err != nil {
		return nil, err
	}

	ac.logger.DebugWithFields("fetched APOD", map[string]interface{}{
		"date":       apod.Date,
		"title":      apod.Title,
		"media_type": apod.MediaType,
	})

	return &apod, nil
}

// GetRange fetches all entries between start and end dates (inclusive)
func (ac *APODClient) GetRange(ctx context.Context, start, end string) ([]APOD, error) {
	if err := ac.validateDate(start); err != nil {
		return nil, err
	}
	if err := ac.validateDate(end); err != nil {
		return nil, err
	}
	startDate, _ := time.Parse(dateLayout, start)
	endDate, _ := time.Parse(dateLayout, end)
	if startDate.After(endDate) {
		return nil, apierrors.Validation("start date %s is after end date %s", start, end)
	}

	params := url.Values{}
	params.Set("start_date", start)
	params.Set("end_date", end)

	var apods []APOD
	if err := ac.client.getJSON(ctx, ac.client.apodURL(params), &apods); err != nil {
		return nil, err
	}

	return apods, nil
}

// GetRecent fetches the entries for the last days days, today included
func (ac *APODClient) GetRecent(ctx context.Context, days int) ([]APOD, error) {
	if days <= 0 {
		return nil, apierrors.Validation("days must be positive, got %d", days)
	}

	today := ac.now()
	start := today.AddDate(0, 0, -(days - 1))
	return ac.GetRange(ctx, start.Format(dateLayout), today.Format(dateLayout))
}

// GetRandom fetches count random entries from the archive. The API always
// returns an array for count requests, even when count is 1.
func (ac *APODClient) GetRandom(ctx context.Context, count int) ([]APOD, error) {
	if count < 1 || count > MaxRandomCount {
		return nil, apierrors.Validation("count must be between 1 and %d, got %d", MaxRandomCount, count)
	}

	params := url.Values{}
	params.Set("count", strconv.Itoa(count))

	var apods []APOD
	if err := ac.client.getJSON(ctx, ac.client.apodURL(params), &apods); err != nil {
		return nil, err
	}

	return apods, nil
}

// GetRandomImage fetches random entries until one is an image, giving up
// after RandomImageAttempts fetches. When every attempt yields a video, the
// last record is returned together with ErrNoImageFound so callers can still
// report what was seen.
func (ac *APODClient) GetRandomImage(ctx context.Context) (*APOD, error) {
	var last *APOD

	for attempt := 1; attempt <= RandomImageAttempts; attempt++ {
		apods, err := ac.GetRandom(ctx, 1)
		if err != nil {
			return nil, err
		}
		if len(apods) == 0 {
			return nil, &apierrors.Error{
				Type:    apierrors.ErrorTypeParsing,
				Message: "empty response for random APOD request",
			}
		}

		apod := apods[0]
		last = &apod

		ac.logger.InfoWithFields("retrieved random APOD", map[string]interface{}{
			"title":      apod.Title,
			"date":       apod.Date,
			"media_type": apod.MediaType,
		})

		if apod.IsImage() {
			return &apod, nil
		}

		ac.logger.InfoWithFields("random APOD is not an image, trying again", map[string]interface{}{
			"attempt":    attempt,
			"media_type": apod.MediaType,
		})
	}

	return last, ErrNoImageFound
}

// validateDate checks the date format and the archive bounds
func (ac *APODClient) validateDate(date string) error {
	parsed, err := time.Parse(dateLayout, date)
	if err != nil {
		return apierrors.Validation("invalid date %q, expected YYYY-MM-DD", date)
	}

	first, _ := time.Parse(dateLayout, FirstAPODDate)
	if parsed.Before(first) {
		return apierrors.Validation("date %s predates the first APOD (%s)", date, FirstAPODDate)
	}

	// Compare calendar dates so local "today" is valid ahead of UTC
	if parsed.Format(dateLayout) > ac.now().Format(dateLayout) {
		return apierrors.Validation("date %s is in the future", date)
	}

	return nil
}
