package visionapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/snapdish/core/internal/domain/entities"
	"github.com/snapdish/core/internal/domain/providers"
	"github.com/snapdish/core/pkg/config"
	apperrors "github.com/snapdish/core/pkg/errors"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(&config.VisionAPIConfig{
		BaseURL: server.URL,
		APIKey:  "test-key",
	})
	require.NoError(t, err)
	return client, server
}

func TestNewClient_RequiresAPIKey(t *testing.T) {
	_, err := NewClient(&config.VisionAPIConfig{BaseURL: "http://localhost"})
	assert.Error(t, err)
}

func TestDetectIngredients_Success(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, analyzeImagePath, r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("X-API-Key"))

		var body struct {
			Image string `json:"image"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.NotEmpty(t, body.Image)

		json.NewEncoder(w).Encode(map[string]interface{}{
			"success": true,
			"ingredients": []map[string]interface{}{
				{"id": "1", "name": "egg", "confidence": 0.9},
				{"id": "2", "name": "milk", "confidence": 0.8, "unit": "l"},
			},
		})
	})

	ingredients, err := client.DetectIngredients(context.Background(), []byte("fake-image"))
	require.NoError(t, err)
	require.Len(t, ingredients, 2)
	assert.Equal(t, "egg", ingredients[0].Name)
	assert.InDelta(t, 0.9, ingredients[0].Confidence, 1e-9)
	assert.Equal(t, "l", ingredients[1].Unit)
}

func TestDetectIngredients_EmptyImage(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected")
	})

	_, err := client.DetectIngredients(context.Background(), nil)
	assert.Equal(t, apperrors.ErrorTypeInvalidInput, apperrors.TypeOf(err))
}

func TestDetectIngredients_NoFoodMessage(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success": false,
			"message": "No food detected in the provided image",
		})
	})

	_, err := client.DetectIngredients(context.Background(), []byte("img"))
	assert.True(t, apperrors.IsNoFoodDetected(err))
}

func TestDetectIngredients_Unauthorized(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := client.DetectIngredients(context.Background(), []byte("img"))
	assert.True(t, apperrors.IsUnauthorized(err))
}

func TestDetectIngredients_RateLimited(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "42")
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := client.DetectIngredients(context.Background(), []byte("img"))
	assert.True(t, apperrors.IsRateLimited(err))
	assert.Equal(t, 42, apperrors.RetryAfterSeconds(err))
}

func TestDetectIngredients_ServerError(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]string{"message": "model overloaded"})
	})

	_, err := client.DetectIngredients(context.Background(), []byte("img"))
	assert.Equal(t, apperrors.ErrorTypeServer, apperrors.TypeOf(err))
	assert.Contains(t, err.Error(), "model overloaded")
}

func TestDetectIngredients_NetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	client, err := NewClient(&config.VisionAPIConfig{BaseURL: server.URL, APIKey: "k"})
	require.NoError(t, err)
	server.Close()

	_, err = client.DetectIngredients(context.Background(), []byte("img"))
	assert.Equal(t, apperrors.ErrorTypeNetwork, apperrors.TypeOf(err))
}

func TestGenerateRecipes_Success(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, generateRecipesPath, r.URL.Path)

		var body generateRecipesRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, 5, body.Count)
		assert.Equal(t, []string{"seen-1"}, body.ExcludingIDs)
		require.Len(t, body.Ingredients, 1)
		assert.Equal(t, "egg", body.Ingredients[0].Name)

		json.NewEncoder(w).Encode(map[string]interface{}{
			"success": true,
			"recipes": []map[string]interface{}{
				{"id": "r1", "name": "Omelette"},
				{"id": "r2", "name": "Frittata"},
			},
		})
	})

	recipes, err := client.GenerateRecipes(context.Background(), providers.GenerateRequest{
		Ingredients:  []entities.Ingredient{{ID: "1", Name: "egg", Confidence: 0.9}},
		ExcludingIDs: []string{"seen-1"},
	})
	require.NoError(t, err)
	require.Len(t, recipes, 2)
	assert.Equal(t, "Omelette", recipes[0].Name)
}

func TestGenerateRecipes_EmptyIngredients(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected")
	})

	_, err := client.GenerateRecipes(context.Background(), providers.GenerateRequest{})
	assert.Equal(t, apperrors.ErrorTypeInvalidInput, apperrors.TypeOf(err))
}

func TestGenerateRecipes_EmptyResponse(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{"success": true, "recipes": []interface{}{}})
	})

	_, err := client.GenerateRecipes(context.Background(), providers.GenerateRequest{
		Ingredients: []entities.Ingredient{{Name: "egg"}},
	})
	assert.Equal(t, apperrors.ErrorTypeNoData, apperrors.TypeOf(err))
}

func TestHealth(t *testing.T) {
	healthy := true
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != healthPath {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if !healthy {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
	})

	assert.True(t, client.Health(context.Background()))
	healthy = false
	assert.False(t, client.Health(context.Background()))
}

func TestHealth_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	client, err := NewClient(&config.VisionAPIConfig{BaseURL: server.URL, APIKey: "k"})
	require.NoError(t, err)
	server.Close()

	assert.False(t, client.Health(context.Background()))
}
