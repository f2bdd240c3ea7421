package providers

import (
	"context"

	"github.com/snapdish/core/internal/domain/entities"
)

// GenerateRequest carries everything the recipe generation endpoint needs.
type GenerateRequest struct {
	Ingredients []entities.Ingredient
	Profile     *entities.UserProfile

	// ExcludingIDs lists recipe ids the caller has already seen. Exclusion
	// is advisory to the remote service; responses may still overlap.
	ExcludingIDs []string

	// Count is the number of recipes requested; zero means the client default.
	Count int
}

// AnalysisProvider defines the remote two-stage analysis API. Implementations
// are stateless and safe for concurrent use; they never retry internally.
type AnalysisProvider interface {
	// DetectIngredients analyzes a single image and returns the ingredients
	// the model found in it.
	DetectIngredients(ctx context.Context, image []byte) ([]entities.Ingredient, error)

	// GenerateRecipes produces recipes for an ingredient set.
	GenerateRecipes(ctx context.Context, req GenerateRequest) ([]entities.Recipe, error)

	// Health probes the service. It never returns an error; any failure
	// collapses to false.
	Health(ctx context.Context) bool
}
