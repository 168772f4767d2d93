package poster

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"nasagram/pkg/logger"
)

// DefaultJobTimeout bounds a single scheduled posting run
const DefaultJobTimeout = 10 * time.Minute

// Scheduler runs the posting flow on a cron schedule
type Scheduler struct {
	poster  *Poster
	logger  logger.Logger
	timeout time.Duration
}

// NewScheduler creates a scheduler around a configured Poster
func NewScheduler(p *Poster, log logger.Logger) *Scheduler {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Scheduler{
		poster:  p,
		logger:  log,
		timeout: DefaultJobTimeout,
	}
}

// ValidateSchedule checks a cron expression without starting anything.
// Standard five-field expressions and @every descriptors are accepted.
func ValidateSchedule(spec string) error {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	if _, err := parser.Parse(spec); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", spec, err)
	}
	return nil
}

// Run posts on the given cron schedule until the context is cancelled. Each
// run gets its own timeout; a failed run is logged and the schedule keeps
// going.
func (s *Scheduler) Run(ctx context.Context, spec string) error {
	if err := ValidateSchedule(spec); err != nil {
		return err
	}

	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		s.runOnce(ctx)
	})
	if err != nil {
		return fmt.Errorf("failed to add cron job: %w", err)
	}

	c.Start()
	s.logger.InfoWithFields("posting schedule started", map[string]interface{}{
		"schedule": spec,
	})

	<-ctx.Done()

	stopCtx := c.Stop()
	// Let an in-flight post finish before returning
	<-stopCtx.Done()

	s.logger.Info("posting schedule stopped")
	return ctx.Err()
}

func (s *Scheduler) runOnce(parent context.Context) {
	start := time.Now()
	s.logger.Info("scheduled post started")

	ctx, cancel := context.WithTimeout(parent, s.timeout)
	defer cancel()

	result, err := s.poster.Post(ctx)
	if err != nil {
		s.logger.ErrorWithFields("scheduled post failed", map[string]interface{}{
			"error":    err.Error(),
			"duration": time.Since(start),
		})
		return
	}

	s.logger.InfoWithFields("scheduled post completed", map[string]interface{}{
		"post_id":  result.PostID,
		"date":     result.APOD.Date,
		"duration": time.Since(start),
	})
}
