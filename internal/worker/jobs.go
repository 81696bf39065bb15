package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Job types accepted from Pub/Sub.
const (
	JobJourneyRefresh = "journey_refresh"
	JobHealthCheck    = "health_check"
)

// ErrUnknownJob is returned for messages with an unrecognized job type.
var ErrUnknownJob = errors.New("unknown job type")

// JobMessage is a worker job message.
type JobMessage struct {
	JobType string `json:"job_type"`
}

// ParseJob decodes a job message.
func ParseJob(data []byte) (JobMessage, error) {
	var msg JobMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return JobMessage{}, fmt.Errorf("parsing job message: %w", err)
	}
	return msg, nil
}

// Handle runs the job named by msg.
func (j *RefreshJob) Handle(ctx context.Context, msg JobMessage) error {
	switch msg.JobType {
	case JobJourneyRefresh:
		result := j.Run(ctx)
		// Consider it successful if at least half succeeded.
		if result.Failed > result.Successful {
			return fmt.Errorf("too many refresh failures: %d/%d", result.Failed, result.TotalRoutes)
		}
		return nil
	case JobHealthCheck:
		return j.HealthCheck(ctx)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownJob, msg.JobType)
	}
}

// Schedule runs the refresh job immediately and then every interval until ctx is done.
func (j *RefreshJob) Schedule(ctx context.Context, interval time.Duration, logger zerolog.Logger) {
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := j.Handle(ctx, JobMessage{JobType: JobJourneyRefresh}); err != nil && ctx.Err() == nil {
			logger.Warn().Err(err).Msg("scheduled journey refresh failed")
		}

		select {
		case <-ctx.Done():
			logger.Info().Msg("refresh schedule stopped")
			return
		case <-ticker.C:
		}
	}
}
