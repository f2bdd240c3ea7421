package storage

import (
	"context"
	"sync"

	"github.com/snapdish/core/internal/domain/entities"
	"github.com/snapdish/core/internal/domain/providers"
)

// MemoryStore is an in-process ResultStore used in tests and when no durable
// backend is configured.
type MemoryStore struct {
	mu       sync.RWMutex
	analyses []entities.AnalysisResult
	profile  *entities.UserProfile
}

// NewMemoryStore creates an empty in-memory result store
func NewMemoryStore() providers.ResultStore {
	return &MemoryStore{}
}

// LoadAnalyses returns a copy of the stored analyses
func (s *MemoryStore) LoadAnalyses(ctx context.Context) ([]entities.AnalysisResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]entities.AnalysisResult, 0, len(s.analyses))
	for i := range s.analyses {
		out = append(out, *s.analyses[i].Clone())
	}
	return out, nil
}

// SaveAnalyses replaces the stored collection
func (s *MemoryStore) SaveAnalyses(ctx context.Context, analyses []entities.AnalysisResult) error {
	copied := make([]entities.AnalysisResult, 0, len(analyses))
	for i := range analyses {
		copied = append(copied, *analyses[i].Clone())
	}

	s.mu.Lock()
	s.analyses = copied
	s.mu.Unlock()
	return nil
}

// LoadUserProfile returns the stored profile, or an empty one when nothing
// has been saved yet.
func (s *MemoryStore) LoadUserProfile(ctx context.Context) (*entities.UserProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.profile == nil {
		return &entities.UserProfile{}, nil
	}
	copied := *s.profile
	return &copied, nil
}

// SaveUserProfile replaces the stored profile
func (s *MemoryStore) SaveUserProfile(ctx context.Context, profile *entities.UserProfile) error {
	var copied *entities.UserProfile
	if profile != nil {
		c := *profile
		copied = &c
	}

	s.mu.Lock()
	s.profile = copied
	s.mu.Unlock()
	return nil
}
