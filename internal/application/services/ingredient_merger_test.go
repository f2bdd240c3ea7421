package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/snapdish/core/internal/domain/entities"
)

func ing(name string, confidence float64) entities.Ingredient {
	return entities.Ingredient{Name: name, Confidence: confidence}
}

func TestMergeIngredients_DeduplicatesCaseInsensitive(t *testing.T) {
	merged := MergeIngredients([][]entities.Ingredient{
		{ing("Egg", 0.9)},
		{ing("  egg ", 0.4), ing("milk", 0.8)},
	})

	require.Len(t, merged, 2)
	assert.Equal(t, "Egg", merged[0].Name)
	assert.InDelta(t, 0.9, merged[0].Confidence, 1e-9)
	assert.Equal(t, "milk", merged[1].Name)
}

func TestMergeIngredients_FieldBackfill(t *testing.T) {
	merged := MergeIngredients([][]entities.Ingredient{
		{{Name: "egg", Confidence: 0.9}},
		{{Name: "Egg", Confidence: 0.4, Unit: "dozen", Quantity: "1"}},
	})

	require.Len(t, merged, 1)
	assert.Equal(t, "egg", merged[0].NormalizedName())
	assert.InDelta(t, 0.9, merged[0].Confidence, 1e-9)
	assert.Equal(t, "1", merged[0].Quantity)
	assert.Equal(t, "dozen", merged[0].Unit)
}

func TestMergeIngredients_BackfillFirstNonEmptyWins(t *testing.T) {
	merged := MergeIngredients([][]entities.Ingredient{
		{{Name: "flour", Confidence: 0.7}},
		{{Name: "flour", Confidence: 0.2, Quantity: "500", Unit: "g"}},
		{{Name: "flour", Confidence: 0.1, Quantity: "2", Unit: "cups", Category: entities.CategoryGrains}},
	})

	require.Len(t, merged, 1)
	assert.Equal(t, "500", merged[0].Quantity)
	assert.Equal(t, "g", merged[0].Unit)
	assert.Equal(t, entities.CategoryGrains, merged[0].Category)
}

func TestMergeIngredients_HigherConfidenceRecordKeepsOwnFields(t *testing.T) {
	merged := MergeIngredients([][]entities.Ingredient{
		{{Name: "milk", Confidence: 0.3, Unit: "cup"}},
		{{Name: "Milk", Confidence: 0.8, Quantity: "1", Unit: "l"}},
	})

	require.Len(t, merged, 1)
	assert.InDelta(t, 0.8, merged[0].Confidence, 1e-9)
	assert.Equal(t, "l", merged[0].Unit)
	assert.Equal(t, "1", merged[0].Quantity)
}

func TestMergeIngredients_TieKeepsEarlierRecord(t *testing.T) {
	merged := MergeIngredients([][]entities.Ingredient{
		{{ID: "first", Name: "salt", Confidence: 0.5}},
		{{ID: "second", Name: "Salt", Confidence: 0.5}},
	})

	require.Len(t, merged, 1)
	assert.Equal(t, "first", merged[0].ID)
}

func TestMergeIngredients_SortsByConfidenceDescending(t *testing.T) {
	merged := MergeIngredients([][]entities.Ingredient{
		{ing("basil", 0.2), ing("egg", 0.95)},
		{ing("milk", 0.8), ing("parsley", 0)},
	})

	require.Len(t, merged, 4)
	assert.Equal(t, "egg", merged[0].Name)
	assert.Equal(t, "milk", merged[1].Name)
	assert.Equal(t, "basil", merged[2].Name)
	// Missing confidence ranks as zero, after everything scored.
	assert.Equal(t, "parsley", merged[3].Name)
}

func TestMergeIngredients_StableTieBreakByFirstSeen(t *testing.T) {
	merged := MergeIngredients([][]entities.Ingredient{
		{ing("tomato", 0.5), ing("onion", 0.5), ing("garlic", 0.5)},
	})

	require.Len(t, merged, 3)
	assert.Equal(t, "tomato", merged[0].Name)
	assert.Equal(t, "onion", merged[1].Name)
	assert.Equal(t, "garlic", merged[2].Name)
}

func TestMergeIngredients_Idempotent(t *testing.T) {
	lists := [][]entities.Ingredient{
		{ing("Egg", 0.9), ing("milk", 0.8)},
		{{Name: "egg", Confidence: 0.4, Unit: "dozen"}, ing("butter", 0.7)},
	}

	once := MergeIngredients(lists)
	twice := MergeIngredients([][]entities.Ingredient{once})

	assert.Equal(t, once, twice)
}

func TestMergeIngredients_ListOrderCommutative(t *testing.T) {
	a := []entities.Ingredient{ing("egg", 0.9), ing("milk", 0.8)}
	b := []entities.Ingredient{ing("Egg", 0.4), ing("butter", 0.7)}

	ab := MergeIngredients([][]entities.Ingredient{a, b})
	ba := MergeIngredients([][]entities.Ingredient{b, a})

	require.Len(t, ab, 3)
	require.Len(t, ba, 3)
	for i := range ab {
		assert.Equal(t, ab[i].NormalizedName(), ba[i].NormalizedName())
		assert.InDelta(t, ab[i].Confidence, ba[i].Confidence, 1e-9)
	}
}

func TestMergeIngredients_EmptyAndBlankInputs(t *testing.T) {
	assert.Empty(t, MergeIngredients(nil))
	assert.Empty(t, MergeIngredients([][]entities.Ingredient{{}, nil}))

	merged := MergeIngredients([][]entities.Ingredient{{ing("  ", 0.9), ing("egg", 0.5)}})
	require.Len(t, merged, 1)
	assert.Equal(t, "egg", merged[0].Name)
}
