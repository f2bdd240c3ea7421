package services

import (
	"sort"

	"github.com/snapdish/core/internal/domain/entities"
)

// MergeIngredients combines ingredient lists from multiple detection calls
// into one deduplicated, confidence-ranked list.
//
// Records are grouped by normalized name (lowercase, whitespace-trimmed).
// Each group keeps its highest-confidence record, first-seen winning ties,
// and backfills missing quantity/unit/category from the group in arrival
// order. The output is sorted by confidence descending with a stable
// first-seen tie-break of the retained record's group.
//
// The function is deterministic and side-effect free: the merged content
// never depends on which detection call happened to finish first.
func MergeIngredients(lists [][]entities.Ingredient) []entities.Ingredient {
	type group struct {
		retained entities.Ingredient
	}

	groups := make(map[string]*group)

	// order tracks first-seen group order for the stable tie-break.
	order := make([]string, 0)

	for _, list := range lists {
		for _, ing := range list {
			key := ing.NormalizedName()
			if key == "" {
				continue
			}

			g, exists := groups[key]
			if !exists {
				groups[key] = &group{retained: ing}
				order = append(order, key)
				continue
			}

			if ing.Confidence > g.retained.Confidence {
				// The better record wins, but keeps fields already
				// accumulated by the group where it has none of its own.
				merged := ing
				if merged.Quantity == "" {
					merged.Quantity = g.retained.Quantity
				}
				if merged.Unit == "" {
					merged.Unit = g.retained.Unit
				}
				if merged.Category == "" {
					merged.Category = g.retained.Category
				}
				g.retained = merged
			} else {
				if g.retained.Quantity == "" {
					g.retained.Quantity = ing.Quantity
				}
				if g.retained.Unit == "" {
					g.retained.Unit = ing.Unit
				}
				if g.retained.Category == "" {
					g.retained.Category = ing.Category
				}
			}
		}
	}

	out := make([]entities.Ingredient, 0, len(order))
	for _, key := range order {
		out = append(out, groups[key].retained)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Confidence > out[j].Confidence
	})

	return out
}
