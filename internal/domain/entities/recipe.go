package entities

// RecipeIngredient represents one ingredient requirement of a recipe
type RecipeIngredient struct {
	Name     string `json:"name"`
	Quantity string `json:"quantity,omitempty"`
	Unit     string `json:"unit,omitempty"`
}

// Recipe represents one generated dish. Identity is the opaque ID; exclusion
// lists on regeneration compare by ID only.
type Recipe struct {
	ID           string             `json:"id"`
	Name         string             `json:"name"`
	Instructions []string           `json:"instructions"`
	Ingredients  []RecipeIngredient `json:"ingredients"`
	PrepMinutes  int                `json:"prep_minutes,omitempty"`
	CookMinutes  int                `json:"cook_minutes,omitempty"`
	Servings     int                `json:"servings,omitempty"`
	Difficulty   string             `json:"difficulty,omitempty"`
	Tags         []string           `json:"tags,omitempty"`
}

// RecipeIDs extracts the ids of recipes, preserving order. Used to build
// exclusion lists for regeneration requests.
func RecipeIDs(recipes []Recipe) []string {
	if len(recipes) == 0 {
		return nil
	}
	ids := make([]string, 0, len(recipes))
	for _, r := range recipes {
		ids = append(ids, r.ID)
	}
	return ids
}
