package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/snapdish/core/internal/domain/entities"
	"github.com/snapdish/core/internal/domain/providers"
	redisclient "github.com/snapdish/core/internal/infrastructure/clients/redis"
)

const (
	analysesKey = "snapdish:analyses"
	profileKey  = "snapdish:profile"
)

// RedisStore implements the ResultStore interface on Redis, persisting the
// whole collection as one JSON value to match the store's replace semantics.
type RedisStore struct {
	client *redisclient.Client
}

// NewRedisStore creates a new Redis-backed result store
func NewRedisStore(client *redisclient.Client) providers.ResultStore {
	return &RedisStore{client: client}
}

// LoadAnalyses loads the persisted analyses collection
func (s *RedisStore) LoadAnalyses(ctx context.Context) ([]entities.AnalysisResult, error) {
	data, err := s.client.Client().Get(ctx, analysesKey).Bytes()
	if err == redis.Nil {
		return []entities.AnalysisResult{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load analyses: %w", err)
	}

	var analyses []entities.AnalysisResult
	if err := json.Unmarshal(data, &analyses); err != nil {
		return nil, fmt.Errorf("failed to decode analyses: %w", err)
	}
	return analyses, nil
}

// SaveAnalyses replaces the persisted analyses collection
func (s *RedisStore) SaveAnalyses(ctx context.Context, analyses []entities.AnalysisResult) error {
	data, err := json.Marshal(analyses)
	if err != nil {
		return fmt.Errorf("failed to encode analyses: %w", err)
	}
	if err := s.client.Client().Set(ctx, analysesKey, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to save analyses: %w", err)
	}
	return nil
}

// LoadUserProfile loads the persisted profile, or an empty one when none
// has been saved yet.
func (s *RedisStore) LoadUserProfile(ctx context.Context) (*entities.UserProfile, error) {
	data, err := s.client.Client().Get(ctx, profileKey).Bytes()
	if err == redis.Nil {
		return &entities.UserProfile{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}

	var profile entities.UserProfile
	if err := json.Unmarshal(data, &profile); err != nil {
		return nil, fmt.Errorf("failed to decode profile: %w", err)
	}
	return &profile, nil
}

// SaveUserProfile replaces the persisted profile
func (s *RedisStore) SaveUserProfile(ctx context.Context, profile *entities.UserProfile) error {
	data, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("failed to encode profile: %w", err)
	}
	if err := s.client.Client().Set(ctx, profileKey, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to save profile: %w", err)
	}
	return nil
}
