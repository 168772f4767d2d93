// Package nasa provides clients for NASA's public REST APIs: the Astronomy
// Picture of the Day (APOD), Mars Rover Photos and TechTransfer services.
//
// All clients share a common HTTP core with a 30 second timeout, structured
// request logging, typed error mapping and optional rate limiting sized for
// the API key's quota:
//
//	cfg, _ := config.Load("", nil)
//	base := nasa.NewClient(cfg.NASA.APIKey, log,
//		nasa.WithLimiter(nasa.NewLimiterForKey(cfg.NASA.APIKey)),
//		nasa.WithRetry(&cfg.Retry))
//
//	apod := nasa.NewAPODClient(base)
//	picture, err := apod.Get(ctx, nasa.APODOptions{})
//
// Every operation takes a context and blocks until completion, error or
// context cancellation.
package nasa
