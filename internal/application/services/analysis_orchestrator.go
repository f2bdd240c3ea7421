package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/snapdish/core/internal/domain/entities"
	"github.com/snapdish/core/internal/domain/providers"
	"github.com/snapdish/core/internal/infrastructure/observability"
	"github.com/snapdish/core/pkg/config"
	apperrors "github.com/snapdish/core/pkg/errors"
)

// AnalysisOrchestrator drives the interactive two-stage pipeline: fan-out
// ingredient detection over N images, merge, hold for user review, then a
// single recipe generation call.
//
// Status transitions for one orchestrator are strictly sequential: every
// mutation happens under mu, and results of calls that outlive a Cancel or
// Reset are discarded by comparing the epoch captured at dispatch time
// against the current one at apply time.
type AnalysisOrchestrator struct {
	client providers.AnalysisProvider
	store  providers.ResultStore
	bus    providers.EventBus
	cfg    config.AnalysisConfig
	logger zerolog.Logger

	mu       sync.Mutex
	epoch    uint64
	status   entities.AnalysisStatus
	progress float64
	warning  string
	result   *entities.AnalysisResult
}

// NewAnalysisOrchestrator creates an orchestrator in the idle state. The bus
// is optional; pass nil when no reader subscribes to snapshots.
func NewAnalysisOrchestrator(client providers.AnalysisProvider, store providers.ResultStore, bus providers.EventBus, cfg config.AnalysisConfig) *AnalysisOrchestrator {
	if cfg.ProgressMidpoint <= cfg.ProgressFloor {
		cfg.ProgressFloor = 0.1
		cfg.ProgressMidpoint = 0.6
	}
	return &AnalysisOrchestrator{
		client: client,
		store:  store,
		bus:    bus,
		cfg:    cfg,
		logger: observability.ComponentLogger("analysis_orchestrator"),
		status: entities.AnalysisStatusIdle,
	}
}

// Detect dispatches one detection call per image concurrently, merges the
// successful results, appends manual items at confidence 1.0 and moves the
// orchestrator to reviewable.
//
// Per-image NetworkError/ServerError failures are tolerated as long as at
// least one image succeeds or manual items exist; Unauthorized and
// RateLimited abort the whole operation because they describe the service,
// not an image.
func (o *AnalysisOrchestrator) Detect(ctx context.Context, images [][]byte, manualItems []string) error {
	manual := o.sanitizeManualItems(manualItems)
	if len(images) == 0 && len(manual) == 0 {
		return apperrors.NewInvalidInputError("no images or ingredients supplied")
	}
	if o.cfg.MaxImages > 0 && len(images) > o.cfg.MaxImages {
		return apperrors.NewInvalidInputError(fmt.Sprintf("at most %d images per analysis", o.cfg.MaxImages))
	}

	o.mu.Lock()
	if o.status != entities.AnalysisStatusIdle {
		o.mu.Unlock()
		return apperrors.NewInvalidStateError(fmt.Sprintf("cannot start detection while %s", o.status))
	}
	epoch := o.epoch
	o.status = entities.AnalysisStatusDetecting
	o.progress = o.cfg.ProgressFloor
	o.warning = ""
	o.publishLocked(ctx, entities.AnalysisEventStatusChanged)
	o.mu.Unlock()

	results := make([][]entities.Ingredient, len(images))
	succeededAt := make([]bool, len(images))
	var completed atomic.Int64
	var failed atomic.Int64
	total := len(images)

	g, gctx := errgroup.WithContext(ctx)
	for i := range images {
		g.Go(func() error {
			ingredients, err := o.client.DetectIngredients(gctx, images[i])
			done := completed.Add(1)
			if err != nil {
				if apperrors.IsFatalForBatch(err) {
					// Cancels the group; siblings stop at their next
					// suspension point.
					return err
				}
				failed.Add(1)
				o.logger.Warn().Err(err).Int("image", i).Msg("image detection failed")
			} else {
				results[i] = ingredients
				succeededAt[i] = true
			}
			o.advanceProgress(ctx, epoch, int(done), total)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		o.resetIfCurrent(ctx, epoch)
		return fmt.Errorf("detection aborted: %w", err)
	}

	succeeded := total - int(failed.Load())
	successLists := make([][]entities.Ingredient, 0, succeeded)
	for i, list := range results {
		if succeededAt[i] {
			successLists = append(successLists, list)
		}
	}

	if len(successLists) == 0 && len(manual) == 0 {
		o.resetIfCurrent(ctx, epoch)
		return apperrors.NewNoFoodDetectedError()
	}

	ingredients := MergeIngredients(successLists)
	for _, item := range manual {
		ingredients = append(ingredients, entities.NewManualIngredient(item))
	}

	warning := ""
	if total > 0 && succeeded < total {
		warning = fmt.Sprintf("detected ingredients from %d of %d images", succeeded, total)
		o.logger.Warn().Int("succeeded", succeeded).Int("total", total).Msg("partial detection")
	}

	o.mu.Lock()
	if o.epoch != epoch {
		// Cancelled while the calls were in flight; drop everything.
		o.mu.Unlock()
		return nil
	}
	o.result = entities.NewAnalysisResult(ingredients, manual, images)
	o.status = entities.AnalysisStatusReviewable
	o.progress = o.cfg.ProgressMidpoint
	o.warning = warning
	o.publishLocked(ctx, entities.AnalysisEventStatusChanged)
	o.mu.Unlock()

	return nil
}

// Generate runs the second pipeline stage on the reviewed ingredient list.
// Recipes the caller has already seen are forwarded as an advisory exclusion
// list. On failure the orchestrator stays reviewable so generation can be
// retried without re-running detection.
func (o *AnalysisOrchestrator) Generate(ctx context.Context, profile *entities.UserProfile, excluding []entities.Recipe) error {
	o.mu.Lock()
	if o.status != entities.AnalysisStatusReviewable || o.result == nil {
		o.mu.Unlock()
		return apperrors.NewInvalidStateError("generation requires a reviewable ingredient list")
	}
	epoch := o.epoch
	ingredients := append([]entities.Ingredient(nil), o.result.Ingredients...)
	progressBefore := o.progress
	o.status = entities.AnalysisStatusGenerating
	o.publishLocked(ctx, entities.AnalysisEventStatusChanged)
	o.mu.Unlock()

	recipes, err := o.client.GenerateRecipes(ctx, providers.GenerateRequest{
		Ingredients:  ingredients,
		Profile:      profile,
		ExcludingIDs: entities.RecipeIDs(excluding),
	})

	o.mu.Lock()
	if o.epoch != epoch {
		o.mu.Unlock()
		return nil
	}
	if err != nil {
		o.status = entities.AnalysisStatusReviewable
		o.progress = progressBefore
		o.publishLocked(ctx, entities.AnalysisEventStatusChanged)
		o.mu.Unlock()
		return fmt.Errorf("recipe generation failed: %w", err)
	}

	o.result.Recipes = recipes
	o.status = entities.AnalysisStatusFinished
	o.progress = 1.0
	o.publishLocked(ctx, entities.AnalysisEventStatusChanged)
	o.mu.Unlock()

	return nil
}

// Save persists the current result into the store's analyses collection.
// Persistence is explicit; nothing is written implicitly during the
// pipeline.
func (o *AnalysisOrchestrator) Save(ctx context.Context) error {
	o.mu.Lock()
	result := o.result.Clone()
	o.mu.Unlock()

	if result == nil {
		return apperrors.NewNoDataError("no analysis to save")
	}

	analyses, err := o.store.LoadAnalyses(ctx)
	if err != nil {
		return fmt.Errorf("failed to load analyses: %w", err)
	}

	replaced := false
	for i := range analyses {
		if analyses[i].ID == result.ID {
			analyses[i] = *result
			replaced = true
			break
		}
	}
	if !replaced {
		analyses = append(analyses, *result)
	}

	if err := o.store.SaveAnalyses(ctx, analyses); err != nil {
		return fmt.Errorf("failed to save analyses: %w", err)
	}
	return nil
}

// Cancel discards all in-flight state and returns to idle. It takes effect
// synchronously; outstanding network calls may still complete, but their
// results are dropped at apply time.
func (o *AnalysisOrchestrator) Cancel() {
	o.resetState()
}

// Reset is the happy-path counterpart of Cancel, called after a finished
// analysis has been consumed.
func (o *AnalysisOrchestrator) Reset() {
	o.resetState()
}

func (o *AnalysisOrchestrator) resetState() {
	o.mu.Lock()
	o.epoch++
	o.status = entities.AnalysisStatusIdle
	o.progress = 0
	o.warning = ""
	o.result = nil
	o.publishLocked(context.Background(), entities.AnalysisEventStatusChanged)
	o.mu.Unlock()
}

// resetIfCurrent resets to idle unless a Cancel already superseded the
// operation identified by epoch.
func (o *AnalysisOrchestrator) resetIfCurrent(ctx context.Context, epoch uint64) {
	o.mu.Lock()
	if o.epoch != epoch {
		o.mu.Unlock()
		return
	}
	o.status = entities.AnalysisStatusIdle
	o.progress = 0
	o.warning = ""
	o.result = nil
	o.publishLocked(ctx, entities.AnalysisEventStatusChanged)
	o.mu.Unlock()
}

// advanceProgress moves progress toward the midpoint proportionally to
// completed detection calls. Arrival order is irrelevant: the counter is the
// only input, and progress never decreases.
func (o *AnalysisOrchestrator) advanceProgress(ctx context.Context, epoch uint64, done, total int) {
	if total <= 0 {
		return
	}

	o.mu.Lock()
	if o.epoch != epoch || o.status != entities.AnalysisStatusDetecting {
		o.mu.Unlock()
		return
	}
	next := o.cfg.ProgressFloor + (o.cfg.ProgressMidpoint-o.cfg.ProgressFloor)*float64(done)/float64(total)
	if next <= o.progress {
		o.mu.Unlock()
		return
	}
	o.progress = next
	o.publishLocked(ctx, entities.AnalysisEventProgressUpdated)
	o.mu.Unlock()
}

// SetIngredients replaces the reviewable ingredient list with the user's
// edited version.
func (o *AnalysisOrchestrator) SetIngredients(ingredients []entities.Ingredient) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.status != entities.AnalysisStatusReviewable || o.result == nil {
		return apperrors.NewInvalidStateError("ingredient list can only be edited during review")
	}
	o.result.Ingredients = append([]entities.Ingredient(nil), ingredients...)
	return nil
}

// AddManualIngredient appends a user-typed ingredient during review
func (o *AnalysisOrchestrator) AddManualIngredient(name string) error {
	items := o.sanitizeManualItems([]string{name})
	if len(items) == 0 {
		return apperrors.NewInvalidInputError("ingredient name is empty")
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if o.status != entities.AnalysisStatusReviewable || o.result == nil {
		return apperrors.NewInvalidStateError("ingredient list can only be edited during review")
	}
	if o.cfg.MaxManualItems > 0 && len(o.result.ManualItems) >= o.cfg.MaxManualItems {
		return apperrors.NewInvalidInputError(fmt.Sprintf("at most %d manual items", o.cfg.MaxManualItems))
	}
	o.result.ManualItems = append(o.result.ManualItems, items[0])
	o.result.Ingredients = append(o.result.Ingredients, entities.NewManualIngredient(items[0]))
	return nil
}

// RemoveIngredient drops an ingredient from the reviewable list by id
func (o *AnalysisOrchestrator) RemoveIngredient(id string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.status != entities.AnalysisStatusReviewable || o.result == nil {
		return apperrors.NewInvalidStateError("ingredient list can only be edited during review")
	}
	kept := o.result.Ingredients[:0]
	for _, ing := range o.result.Ingredients {
		if ing.ID != id {
			kept = append(kept, ing)
		}
	}
	o.result.Ingredients = kept
	return nil
}

// Status returns the current lifecycle state
func (o *AnalysisOrchestrator) Status() entities.AnalysisStatus {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.status
}

// Progress returns the current progress value in [0,1]
func (o *AnalysisOrchestrator) Progress() float64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.progress
}

// Warning returns the non-fatal warning from the last detection, if any
func (o *AnalysisOrchestrator) Warning() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.warning
}

// Ingredients returns a copy of the current ingredient list
func (o *AnalysisOrchestrator) Ingredients() []entities.Ingredient {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.result == nil {
		return nil
	}
	return append([]entities.Ingredient(nil), o.result.Ingredients...)
}

// Result returns a deep copy of the current analysis result, or nil
func (o *AnalysisOrchestrator) Result() *entities.AnalysisResult {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.result.Clone()
}

// sanitizeManualItems trims, drops blanks, clips overlong names and caps the
// item count. Overflow is clamped rather than rejected; the UI caps input
// the same way.
func (o *AnalysisOrchestrator) sanitizeManualItems(items []string) []string {
	maxItems := o.cfg.MaxManualItems
	if maxItems <= 0 {
		maxItems = 20
	}
	maxLen := o.cfg.MaxManualItemLen
	if maxLen <= 0 {
		maxLen = 100
	}

	out := make([]string, 0, len(items))
	for _, item := range items {
		trimmed := strings.TrimSpace(item)
		if trimmed == "" {
			continue
		}
		if runes := []rune(trimmed); len(runes) > maxLen {
			trimmed = string(runes[:maxLen])
		}
		out = append(out, trimmed)
		if len(out) == maxItems {
			break
		}
	}
	return out
}

// publishLocked snapshots the current state into an immutable event and
// publishes it while mu is still held, so subscribers observe transitions in
// the order they were applied. The bus never calls back into the
// orchestrator.
func (o *AnalysisOrchestrator) publishLocked(ctx context.Context, eventType entities.AnalysisEventType) {
	if o.bus == nil {
		return
	}
	event := entities.NewAnalysisEvent(eventType, o.status, o.progress, o.warning)
	if err := o.bus.Publish(ctx, providers.EventChannelAnalysis, event); err != nil {
		o.logger.Warn().Err(err).Msg("failed to publish analysis event")
	}
}
