package visionapi

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/snapdish/core/internal/domain/entities"
	"github.com/snapdish/core/internal/domain/providers"
	"github.com/snapdish/core/pkg/config"
	apperrors "github.com/snapdish/core/pkg/errors"
)

const (
	analyzeImagePath    = "/api/v1/analyze/image"
	generateRecipesPath = "/api/v1/recipes/generate"
	healthPath          = "/health"

	defaultRecipeCount = 5
)

// Client implements the AnalysisProvider against the snapdish vision API.
// It holds no mutable state and is safe for unbounded concurrent use.
type Client struct {
	baseURL     string
	apiKey      string
	recipeCount int
	httpClient  *http.Client
	limiter     *tokenBucket
}

// NewClient creates a new vision API client.
func NewClient(cfg *config.VisionAPIConfig) (*Client, error) {
	if cfg == nil || cfg.APIKey == "" {
		return nil, errors.New("vision api key is required")
	}

	connectTimeout := cfg.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = 90 * time.Second
	}
	requestTimeout := cfg.RequestTimeout
	if requestTimeout <= 0 {
		requestTimeout = 120 * time.Second
	}
	recipeCount := cfg.RecipeCount
	if recipeCount <= 0 {
		recipeCount = defaultRecipeCount
	}

	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout: connectTimeout,
		}).DialContext,
	}

	return &Client{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:      cfg.APIKey,
		recipeCount: recipeCount,
		httpClient: &http.Client{
			Timeout:   requestTimeout,
			Transport: transport,
		},
		limiter: newTokenBucket(cfg.RateLimitRPM, cfg.RateLimitBurst),
	}, nil
}

type analyzeImageRequest struct {
	Image string `json:"image"`
}

type analyzeImageResponse struct {
	Success     bool                  `json:"success"`
	Ingredients []entities.Ingredient `json:"ingredients"`
	Message     string                `json:"message,omitempty"`
}

type generateIngredient struct {
	Name     string `json:"name"`
	Quantity string `json:"quantity,omitempty"`
	Unit     string `json:"unit,omitempty"`
	Category string `json:"category,omitempty"`
}

type generateRecipesRequest struct {
	Ingredients  []generateIngredient  `json:"ingredients"`
	Count        int                   `json:"count"`
	UserProfile  *entities.UserProfile `json:"userProfile,omitempty"`
	ExcludingIDs []string              `json:"excludingIds,omitempty"`
}

type generateRecipesResponse struct {
	Success bool              `json:"success"`
	Recipes []entities.Recipe `json:"recipes"`
	Message string            `json:"message,omitempty"`
}

// DetectIngredients analyzes a single image and returns the ingredients the
// model found in it.
func (c *Client) DetectIngredients(ctx context.Context, image []byte) ([]entities.Ingredient, error) {
	if len(image) == 0 {
		return nil, apperrors.NewInvalidInputError("image is empty")
	}

	if c.limiter != nil {
		waitStart := time.Now()
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, apperrors.NewNetworkError("rate limiter wait interrupted", err)
		}
		recordRateLimitWait(ctx, "detect", time.Since(waitStart))
	}

	payload := analyzeImageRequest{Image: base64.StdEncoding.EncodeToString(image)}

	var parsed analyzeImageResponse
	if err := c.post(ctx, "detect", analyzeImagePath, payload, &parsed); err != nil {
		return nil, err
	}

	if !parsed.Success {
		if looksLikeNoFood(parsed.Message) {
			return nil, apperrors.NewNoFoodDetectedError()
		}
		return nil, apperrors.NewServerError(http.StatusOK, nonEmpty(parsed.Message, "analysis rejected by server"))
	}

	if len(parsed.Ingredients) == 0 {
		return nil, apperrors.NewNoFoodDetectedError()
	}

	return parsed.Ingredients, nil
}

// GenerateRecipes produces recipes for an ingredient set.
func (c *Client) GenerateRecipes(ctx context.Context, req providers.GenerateRequest) ([]entities.Recipe, error) {
	if len(req.Ingredients) == 0 {
		return nil, apperrors.NewInvalidInputError("no ingredients supplied")
	}

	if c.limiter != nil {
		waitStart := time.Now()
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, apperrors.NewNetworkError("rate limiter wait interrupted", err)
		}
		recordRateLimitWait(ctx, "generate", time.Since(waitStart))
	}

	count := req.Count
	if count <= 0 {
		count = c.recipeCount
	}

	payload := generateRecipesRequest{
		Ingredients:  make([]generateIngredient, 0, len(req.Ingredients)),
		Count:        count,
		UserProfile:  req.Profile,
		ExcludingIDs: req.ExcludingIDs,
	}
	for _, ing := range req.Ingredients {
		payload.Ingredients = append(payload.Ingredients, generateIngredient{
			Name:     ing.Name,
			Quantity: ing.Quantity,
			Unit:     ing.Unit,
			Category: string(ing.Category),
		})
	}

	var parsed generateRecipesResponse
	if err := c.post(ctx, "generate", generateRecipesPath, payload, &parsed); err != nil {
		return nil, err
	}

	if !parsed.Success {
		return nil, apperrors.NewServerError(http.StatusOK, nonEmpty(parsed.Message, "generation rejected by server"))
	}

	if len(parsed.Recipes) == 0 {
		return nil, apperrors.NewNoDataError("server returned no recipes")
	}

	return parsed.Recipes, nil
}

// Health probes the service. Any failure collapses to false.
func (c *Client) Health(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+healthPath, nil)
	if err != nil {
		return false
	}
	req.Header.Set("X-API-Key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode == http.StatusOK
}

// post sends a JSON payload and decodes the response, mapping HTTP and
// transport failures onto the pipeline's error taxonomy.
func (c *Client) post(ctx context.Context, operation, path string, payload, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode %s request: %w", operation, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build %s request: %w", operation, err)
	}
	req.Header.Set("X-API-Key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		recordRequestMetric(ctx, operation, 0, time.Since(start), err)
		return apperrors.NewNetworkError(fmt.Sprintf("%s request failed", operation), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		mapped := mapStatusError(resp, operation)
		recordRequestMetric(ctx, operation, resp.StatusCode, time.Since(start), mapped)
		return mapped
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		recordRequestMetric(ctx, operation, resp.StatusCode, time.Since(start), err)
		return apperrors.NewServerError(resp.StatusCode, "malformed response body")
	}

	recordRequestMetric(ctx, operation, resp.StatusCode, time.Since(start), nil)
	return nil
}

func mapStatusError(resp *http.Response, operation string) error {
	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return apperrors.NewUnauthorizedError(fmt.Sprintf("%s request rejected, check credentials", operation))
	case resp.StatusCode == http.StatusTooManyRequests:
		retryAfter := 0
		if v := resp.Header.Get("Retry-After"); v != "" {
			if secs, err := strconv.Atoi(v); err == nil {
				retryAfter = secs
			}
		}
		return apperrors.NewRateLimitedError("server busy", retryAfter)
	default:
		message := fmt.Sprintf("%s request failed with status %d", operation, resp.StatusCode)
		var envelope struct {
			Message string `json:"message"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&envelope); err == nil && envelope.Message != "" {
			message = envelope.Message
		}
		if looksLikeNoFood(message) {
			return apperrors.NewNoFoodDetectedError()
		}
		return apperrors.NewServerError(resp.StatusCode, message)
	}
}

func looksLikeNoFood(message string) bool {
	return strings.Contains(strings.ToLower(message), "no food")
}

func nonEmpty(value, fallback string) string {
	if value != "" {
		return value
	}
	return fallback
}

type tokenBucket struct {
	tokens chan struct{}
}

// newTokenBucket returns nil (no client-side throttling) when rpm is
// negative; the server's own 429 responses remain the source of truth.
func newTokenBucket(rpm int, burst int) *tokenBucket {
	if rpm <= 0 {
		return nil
	}
	if burst <= 0 {
		burst = 5
	}

	bucket := &tokenBucket{tokens: make(chan struct{}, burst)}
	for i := 0; i < burst; i++ {
		bucket.tokens <- struct{}{}
	}

	interval := time.Minute / time.Duration(rpm)
	if interval <= 0 {
		interval = time.Millisecond
	}

	ticker := time.NewTicker(interval)
	go func() {
		for range ticker.C {
			select {
			case bucket.tokens <- struct{}{}:
			default:
			}
		}
	}()

	return bucket
}

func (b *tokenBucket) Wait(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-b.tokens:
		return nil
	}
}
