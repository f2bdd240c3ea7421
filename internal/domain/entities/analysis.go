package entities

import (
	"time"

	"github.com/google/uuid"
)

// AnalysisStatus represents the interactive pipeline's lifecycle state
type AnalysisStatus string

const (
	AnalysisStatusIdle       AnalysisStatus = "idle"
	AnalysisStatusDetecting  AnalysisStatus = "detecting"
	AnalysisStatusReviewable AnalysisStatus = "reviewable"
	AnalysisStatusGenerating AnalysisStatus = "generating"
	AnalysisStatusFinished   AnalysisStatus = "finished"
)

// AnalysisResult represents one completed detect(+generate) cycle.
type AnalysisResult struct {
	ID          string       `json:"id"`
	CreatedAt   time.Time    `json:"created_at"`
	Ingredients []Ingredient `json:"ingredients"`
	ManualItems []string     `json:"manual_items,omitempty"`
	Recipes     []Recipe     `json:"recipes,omitempty"`

	// SourceImages holds order-preserving thumbnail blobs.
	SourceImages [][]byte `json:"source_images,omitempty"`
}

// NewAnalysisResult creates a result for a freshly detected ingredient set
func NewAnalysisResult(ingredients []Ingredient, manualItems []string, sourceImages [][]byte) *AnalysisResult {
	return &AnalysisResult{
		ID:           uuid.NewString(),
		CreatedAt:    time.Now(),
		Ingredients:  ingredients,
		ManualItems:  manualItems,
		SourceImages: sourceImages,
	}
}

// Clone returns a deep copy safe to hand to readers while the original keeps
// mutating under the owner's lock.
func (r *AnalysisResult) Clone() *AnalysisResult {
	if r == nil {
		return nil
	}
	out := *r
	out.Ingredients = append([]Ingredient(nil), r.Ingredients...)
	out.ManualItems = append([]string(nil), r.ManualItems...)
	out.Recipes = cloneRecipes(r.Recipes)
	if r.SourceImages != nil {
		out.SourceImages = make([][]byte, len(r.SourceImages))
		for i, img := range r.SourceImages {
			out.SourceImages[i] = append([]byte(nil), img...)
		}
	}
	return &out
}

func cloneRecipes(recipes []Recipe) []Recipe {
	if recipes == nil {
		return nil
	}
	out := make([]Recipe, len(recipes))
	for i, rec := range recipes {
		out[i] = rec
		out[i].Instructions = append([]string(nil), rec.Instructions...)
		out[i].Ingredients = append([]RecipeIngredient(nil), rec.Ingredients...)
		out[i].Tags = append([]string(nil), rec.Tags...)
	}
	return out
}
