package repository

import (
	"context"

	"github.com/mlindner/flowsync/internal/models"
)

// ProfileRepository handles profile data access.
//
// The syncer only ever reads profiles and issues partial updates to the
// bookkeeping fields; creation and deletion happen through the API surface.
type ProfileRepository interface {
	Get(ctx context.Context, id int64) (*models.Profile, error)
	List(ctx context.Context) ([]models.Profile, error)
	ListActive(ctx context.Context) ([]models.Profile, error)
	Create(ctx context.Context, name string, proxyEnabled bool, proxyURL string) (*models.Profile, error)
	Update(ctx context.Context, id int64, upd models.ProfileUpdate) error
	SetActive(ctx context.Context, id int64, active bool) error
	Delete(ctx context.Context, id int64) error
}
