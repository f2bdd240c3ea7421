package entities

import (
	"strings"

	"github.com/google/uuid"
)

// IngredientCategory represents a coarse food category tag
type IngredientCategory string

const (
	CategoryProduce    IngredientCategory = "produce"
	CategoryDairy      IngredientCategory = "dairy"
	CategoryMeat       IngredientCategory = "meat"
	CategorySeafood    IngredientCategory = "seafood"
	CategoryGrains     IngredientCategory = "grains"
	CategorySpices     IngredientCategory = "spices"
	CategoryCondiments IngredientCategory = "condiments"
	CategoryOther      IngredientCategory = "other"
)

// Ingredient represents one detected or user-entered food item.
type Ingredient struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Quantity string `json:"quantity,omitempty"`
	Unit     string `json:"unit,omitempty"`

	Category IngredientCategory `json:"category,omitempty"`

	// Confidence is the detection model's score in [0,1]. Zero means the
	// model reported nothing; manual entries carry 1.0.
	Confidence float64 `json:"confidence,omitempty"`
}

// NormalizedName returns the case-insensitive, whitespace-trimmed identity
// key used when merging ingredient lists.
func (i Ingredient) NormalizedName() string {
	return strings.ToLower(strings.TrimSpace(i.Name))
}

// NewManualIngredient creates an ingredient from a user-typed name
func NewManualIngredient(name string) Ingredient {
	return Ingredient{
		ID:         uuid.NewString(),
		Name:       strings.TrimSpace(name),
		Confidence: 1.0,
	}
}
