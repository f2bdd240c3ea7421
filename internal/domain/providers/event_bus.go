package providers

import (
	"context"

	"github.com/snapdish/core/internal/domain/entities"
)

// EventBus defines the interface for publishing and subscribing to
// pipeline state snapshots.
type EventBus interface {
	// Publish publishes an event to all subscribers
	Publish(ctx context.Context, channel string, event *entities.AnalysisEvent) error

	// Subscribe subscribes to events on a channel
	Subscribe(ctx context.Context, channel string) (<-chan *entities.AnalysisEvent, error)

	// Unsubscribe unsubscribes from a channel
	Unsubscribe(ctx context.Context, channel string) error

	// Close closes the event bus and all subscriptions
	Close() error
}

// EventChannel constants for the pipeline's update streams
const (
	// EventChannelAnalysis is the channel for interactive pipeline updates
	EventChannelAnalysis = "analysis:updates"

	// EventChannelJobs is the channel for background job updates
	EventChannelJobs = "jobs:updates"

	// EventChannelJobPrefix is the prefix for job-specific channels
	EventChannelJobPrefix = "jobs:"
)

// GetJobChannel returns the channel name for a specific job
func GetJobChannel(jobID string) string {
	return EventChannelJobPrefix + jobID
}
