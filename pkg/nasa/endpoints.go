package nasa

import (
	"fmt"
	"net/url"
)

const (
	// APODEndpoint is the Astronomy Picture of the Day endpoint
	APODEndpoint = "/planetary/apod"

	// MarsPhotosEndpoint is the endpoint pattern for rover photo queries
	MarsPhotosEndpoint = "/mars-photos/api/v1/rovers/%s/photos"

	// MarsLatestPhotosEndpoint is the endpoint pattern for a rover's newest photos
	MarsLatestPhotosEndpoint = "/mars-photos/api/v1/rovers/%s/latest_photos"

	// MarsManifestEndpoint is the endpoint pattern for mission manifests
	MarsManifestEndpoint = "/mars-photos/api/v1/manifests/%s"

	// TechTransferEndpoint is the endpoint pattern for TechTransfer searches
	TechTransferEndpoint = "/techtransfer/%s/"
)

// apodURL constructs an APOD query URL
func (c *Client) apodURL(params url.Values) string {
	params.Set("api_key", c.apiKey)
	return c.baseURL + APODEndpoint + "?" + params.Encode()
}

// marsPhotosURL constructs a rover photo query URL
func (c *Client) marsPhotosURL(rover string, params url.Values) string {
	params.Set("api_key", c.apiKey)
	return c.baseURL + fmt.Sprintf(MarsPhotosEndpoint, rover) + "?" + params.Encode()
}

// marsLatestPhotosURL constructs a latest-photos query URL
func (c *Client) marsLatestPhotosURL(rover string) string {
	params := url.Values{}
	params.Set("api_key", c.apiKey)
	return c.baseURL + fmt.Sprintf(MarsLatestPhotosEndpoint, rover) + "?" + params.Encode()
}

// marsManifestURL constructs a mission manifest URL
func (c *Client) marsManifestURL(rover string) string {
	params := url.Values{}
	params.Set("api_key", c.apiKey)
	return c.baseURL + fmt.Sprintf(MarsManifestEndpoint, rover) + "?" + params.Encode()
}

// techTransferURL constructs a TechTransfer search URL. The upstream API
// names the query parameter after the category being searched.
func (c *Client) techTransferURL(category, query string) string {
	params := url.Values{}
	params.Set(category, query)
	params.Set("api_key", c.apiKey)
	return c.baseURL + fmt.Sprintf(TechTransferEndpoint, category) + "?" + params.Encode()
}
