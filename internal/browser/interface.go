package browser

import (
	"context"

	"github.com/mlindner/flowsync/internal/models"
)

// Extractor is the token-extraction boundary consumed by the sync service.
// Implementations must be single-flight process-wide.
type Extractor interface {
	ExtractToken(ctx context.Context, profileID int64) (string, error)
}

// CookieManager covers the cookie provisioning operations used by the
// profile service.
type CookieManager interface {
	ImportCookies(ctx context.Context, profileID int64, cookies []models.Cookie) error
	ExportCookies(ctx context.Context, profileID int64) ([]models.Cookie, error)
	VerifyCookies(ctx context.Context, profileID int64) (bool, error)
	DeleteProfileData(profileID int64) error
}

// Ensure Manager implements the interfaces
var (
	_ Extractor     = (*Manager)(nil)
	_ CookieManager = (*Manager)(nil)
)
