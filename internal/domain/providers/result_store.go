package providers

import (
	"context"

	"github.com/snapdish/core/internal/domain/entities"
)

// ResultStore is the durable home of finalized analyses and the user
// profile. Saves replace the whole collection; callers perform their own
// insert/update/delete before saving.
type ResultStore interface {
	LoadAnalyses(ctx context.Context) ([]entities.AnalysisResult, error)
	SaveAnalyses(ctx context.Context, analyses []entities.AnalysisResult) error

	LoadUserProfile(ctx context.Context) (*entities.UserProfile, error)
	SaveUserProfile(ctx context.Context, profile *entities.UserProfile) error
}
