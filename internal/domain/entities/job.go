package entities

import (
	"time"

	"github.com/google/uuid"
)

// JobStatus represents the lifecycle state of a background generation job
type JobStatus string

const (
	JobStatusQueued       JobStatus = "queued"
	JobStatusSearching    JobStatus = "searching"
	JobStatusSourcesFound JobStatus = "sourcesFound"
	JobStatusCalculating  JobStatus = "calculating"
	JobStatusFinished     JobStatus = "finished"
	JobStatusError        JobStatus = "error"
)

// IsProcessing reports whether the status is one the user cannot act on yet
func (s JobStatus) IsProcessing() bool {
	switch s {
	case JobStatusQueued, JobStatusSearching, JobStatusCalculating:
		return true
	}
	return false
}

// IsTerminal reports whether the status ends the job's lifecycle
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusFinished || s == JobStatusError
}

// Job represents a background-tracked recipe generation run, decoupled from
// any visible screen.
type Job struct {
	ID          string       `json:"id"`
	CreatedAt   time.Time    `json:"created_at"`
	Ingredients []Ingredient `json:"ingredients"`
	Thumbnail   []byte       `json:"thumbnail,omitempty"`
	Status      JobStatus    `json:"status"`

	// SourceCount is meaningful only in sourcesFound/calculating.
	SourceCount int `json:"source_count,omitempty"`

	// Recipes is populated only when Status is finished.
	Recipes []Recipe `json:"recipes,omitempty"`

	// FailureReason is retained for display when Status is error.
	FailureReason string `json:"failure_reason,omitempty"`
}

// NewJob creates a queued job for the given seed ingredients
func NewJob(ingredients []Ingredient, thumbnail []byte) *Job {
	return &Job{
		ID:          uuid.NewString(),
		CreatedAt:   time.Now(),
		Ingredients: append([]Ingredient(nil), ingredients...),
		Thumbnail:   append([]byte(nil), thumbnail...),
		Status:      JobStatusQueued,
	}
}

// Clone returns a deep copy safe for concurrent readers
func (j *Job) Clone() *Job {
	if j == nil {
		return nil
	}
	out := *j
	out.Ingredients = append([]Ingredient(nil), j.Ingredients...)
	out.Thumbnail = append([]byte(nil), j.Thumbnail...)
	out.Recipes = cloneRecipes(j.Recipes)
	return &out
}
