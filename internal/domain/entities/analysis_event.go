package entities

import (
	"time"

	"github.com/google/uuid"
)

// AnalysisEventType represents the kind of pipeline update being published
type AnalysisEventType string

const (
	AnalysisEventStatusChanged   AnalysisEventType = "status_changed"
	AnalysisEventProgressUpdated AnalysisEventType = "progress_updated"
	AnalysisEventJobUpdated      AnalysisEventType = "job_updated"
)

// AnalysisEvent is an immutable snapshot published after a state transition
// completes. UI readers subscribe to these instead of polling mutable state.
type AnalysisEvent struct {
	ID        string            `json:"id"`
	EventType AnalysisEventType `json:"event_type"`
	Timestamp time.Time         `json:"timestamp"`

	// Interactive pipeline fields.
	Status   AnalysisStatus `json:"status,omitempty"`
	Progress float64        `json:"progress,omitempty"`
	Warning  string         `json:"warning,omitempty"`

	// Background job fields, set when EventType is job_updated.
	Job *Job `json:"job,omitempty"`
}

// NewAnalysisEvent creates an event for an interactive pipeline transition
func NewAnalysisEvent(eventType AnalysisEventType, status AnalysisStatus, progress float64, warning string) *AnalysisEvent {
	return &AnalysisEvent{
		ID:        uuid.NewString(),
		EventType: eventType,
		Timestamp: time.Now(),
		Status:    status,
		Progress:  progress,
		Warning:   warning,
	}
}

// NewJobEvent creates an event carrying a snapshot of a background job
func NewJobEvent(job *Job) *AnalysisEvent {
	return &AnalysisEvent{
		ID:        uuid.NewString(),
		EventType: AnalysisEventJobUpdated,
		Timestamp: time.Now(),
		Job:       job.Clone(),
	}
}
