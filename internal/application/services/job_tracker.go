package services

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/snapdish/core/internal/domain/entities"
	"github.com/snapdish/core/internal/domain/providers"
	"github.com/snapdish/core/internal/infrastructure/observability"
	"github.com/snapdish/core/pkg/config"
	"github.com/snapdish/core/pkg/retry"
)

// BackgroundJobTracker runs recipe generation jobs detached from any screen.
// Each submitted job advances queued → searching → sourcesFound →
// calculating → finished, or to error, while the user keeps using the app;
// results surface later through the completed collection and the event bus.
//
// Jobs are isolated: one job's failure never touches another, and each job's
// transitions are serialized under the tracker's lock.
type BackgroundJobTracker struct {
	client providers.AnalysisProvider
	store  providers.ResultStore
	bus    providers.EventBus
	cfg    config.JobsConfig
	logger zerolog.Logger

	mu        sync.RWMutex
	active    map[string]*entities.Job
	completed []*entities.Job

	wg sync.WaitGroup
}

// NewBackgroundJobTracker creates an empty tracker. The bus is optional.
func NewBackgroundJobTracker(client providers.AnalysisProvider, store providers.ResultStore, bus providers.EventBus, cfg config.JobsConfig) *BackgroundJobTracker {
	return &BackgroundJobTracker{
		client: client,
		store:  store,
		bus:    bus,
		cfg:    cfg,
		logger: observability.ComponentLogger("job_tracker"),
		active: make(map[string]*entities.Job),
	}
}

// Submit creates a queued job for the given seed ingredients and starts its
// generation call in the background. It returns the job id immediately.
func (t *BackgroundJobTracker) Submit(ingredients []entities.Ingredient, thumbnail []byte) string {
	job := entities.NewJob(ingredients, thumbnail)

	t.mu.Lock()
	t.active[job.ID] = job
	t.publishJobLocked(job)
	t.mu.Unlock()

	t.wg.Add(1)
	go t.run(job.ID)

	return job.ID
}

// run owns one job from queued to its terminal state
func (t *BackgroundJobTracker) run(jobID string) {
	defer t.wg.Done()

	ctx := context.Background()

	t.transition(jobID, func(job *entities.Job) {
		job.Status = entities.JobStatusSearching
	})

	// Cosmetic stage pacing: gives the UI incremental feedback while the
	// call is outstanding. These transitions never decide the outcome and
	// stop as soon as the job is terminal.
	stageDone := make(chan struct{})
	go t.paceStages(jobID, stageDone)

	ingredients := t.jobIngredients(jobID)
	recipes, err := t.client.GenerateRecipes(ctx, providers.GenerateRequest{
		Ingredients: ingredients,
	})
	close(stageDone)

	if err != nil {
		t.logger.Warn().Err(err).Str("job_id", jobID).Msg("background generation failed")
		t.finish(jobID, func(job *entities.Job) {
			job.Status = entities.JobStatusError
			job.FailureReason = err.Error()
		})
		return
	}

	t.finish(jobID, func(job *entities.Job) {
		job.Status = entities.JobStatusFinished
		job.Recipes = recipes
		if job.SourceCount == 0 {
			job.SourceCount = len(recipes)
		}
	})

	t.persistFinished(ctx, jobID)
}

// paceStages walks the job through sourcesFound and calculating while the
// generation call is still outstanding.
func (t *BackgroundJobTracker) paceStages(jobID string, done <-chan struct{}) {
	delay := t.cfg.StageDelay
	if delay <= 0 {
		delay = 900 * time.Millisecond
	}

	stages := []func(job *entities.Job){
		func(job *entities.Job) {
			job.Status = entities.JobStatusSourcesFound
			// Placeholder until real response metadata arrives.
			job.SourceCount = len(job.Ingredients) * 2
		},
		func(job *entities.Job) {
			job.Status = entities.JobStatusCalculating
		},
	}

	for _, stage := range stages {
		select {
		case <-done:
			return
		case <-time.After(delay):
		}
		if !t.transition(jobID, stage) {
			return
		}
	}
}

// transition mutates an active, non-terminal job under the lock and
// publishes the updated snapshot. It reports whether the job was still
// mutable.
func (t *BackgroundJobTracker) transition(jobID string, mutate func(job *entities.Job)) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	job, ok := t.active[jobID]
	if !ok || job.Status.IsTerminal() {
		return false
	}
	mutate(job)
	t.publishJobLocked(job)
	return true
}

// finish applies a terminal mutation and moves the job from the active map
// to the completed collection.
func (t *BackgroundJobTracker) finish(jobID string, mutate func(job *entities.Job)) {
	t.mu.Lock()
	defer t.mu.Unlock()

	job, ok := t.active[jobID]
	if !ok {
		return
	}
	mutate(job)
	delete(t.active, jobID)
	t.completed = append(t.completed, job)
	t.publishJobLocked(job)
}

// persistFinished folds a finished job into the stored analyses so the
// result can be displayed after the app restarts. Transient store failures
// are retried; a final failure only affects durability, not the job.
func (t *BackgroundJobTracker) persistFinished(ctx context.Context, jobID string) {
	job := t.Job(jobID)
	if job == nil || job.Status != entities.JobStatusFinished {
		return
	}

	result := entities.NewAnalysisResult(job.Ingredients, nil, nil)
	result.Recipes = job.Recipes
	if len(job.Thumbnail) > 0 {
		result.SourceImages = [][]byte{job.Thumbnail}
	}

	cfg := retry.DefaultConfig()
	if t.cfg.PersistAttempts > 0 {
		cfg.MaxAttempts = t.cfg.PersistAttempts
	}

	err := retry.Do(ctx, cfg, func() error {
		analyses, err := t.store.LoadAnalyses(ctx)
		if err != nil {
			return err
		}
		analyses = append(analyses, *result)
		return t.store.SaveAnalyses(ctx, analyses)
	})
	if err != nil {
		t.logger.Error().Err(err).Str("job_id", jobID).Msg("failed to persist finished job")
	}
}

func (t *BackgroundJobTracker) jobIngredients(jobID string) []entities.Ingredient {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if job, ok := t.active[jobID]; ok {
		return append([]entities.Ingredient(nil), job.Ingredients...)
	}
	return nil
}

// Job returns a deep copy of the job with the given id, active or
// completed, or nil when unknown.
func (t *BackgroundJobTracker) Job(jobID string) *entities.Job {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if job, ok := t.active[jobID]; ok {
		return job.Clone()
	}
	for _, job := range t.completed {
		if job.ID == jobID {
			return job.Clone()
		}
	}
	return nil
}

// ActiveJobs returns deep copies of all jobs still processing
func (t *BackgroundJobTracker) ActiveJobs() []*entities.Job {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]*entities.Job, 0, len(t.active))
	for _, job := range t.active {
		out = append(out, job.Clone())
	}
	return out
}

// CompletedJobs returns deep copies of finished and failed jobs in
// completion order.
func (t *BackgroundJobTracker) CompletedJobs() []*entities.Job {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]*entities.Job, 0, len(t.completed))
	for _, job := range t.completed {
		out = append(out, job.Clone())
	}
	return out
}

// ClearCompleted empties the completed collection. Active jobs are not
// affected.
func (t *BackgroundJobTracker) ClearCompleted() {
	t.mu.Lock()
	t.completed = nil
	t.mu.Unlock()
}

// Wait blocks until every submitted job has reached a terminal state. Used
// on shutdown and in tests.
func (t *BackgroundJobTracker) Wait() {
	t.wg.Wait()
}

// publishJobLocked publishes a deep-copy snapshot while mu is held so
// subscribers observe one job's transitions in order. NewJobEvent clones the
// job; subscribers never see the tracked record.
func (t *BackgroundJobTracker) publishJobLocked(job *entities.Job) {
	if t.bus == nil {
		return
	}
	event := entities.NewJobEvent(job)
	if err := t.bus.Publish(context.Background(), providers.EventChannelJobs, event); err != nil {
		t.logger.Warn().Err(err).Str("job_id", job.ID).Msg("failed to publish job event")
	}
}
