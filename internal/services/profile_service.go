package services

import (
	"context"
	"database/sql"
	goerrors "errors"

	"github.com/mlindner/flowsync/internal/browser"
	"github.com/mlindner/flowsync/internal/errors"
	"github.com/mlindner/flowsync/internal/logger"
	"github.com/mlindner/flowsync/internal/models"
	"github.com/mlindner/flowsync/internal/repository"
)

// ProfileService handles profile-related business logic
type ProfileService interface {
	ListProfiles(ctx context.Context) ([]models.Profile, error)
	GetProfile(ctx context.Context, id int64) (*models.Profile, error)
	CreateProfile(ctx context.Context, name string, proxyEnabled bool, proxyURL string) (*models.Profile, error)
	DeleteProfile(ctx context.Context, id int64) error
	SetActive(ctx context.Context, id int64, active bool) error
	ImportCookies(ctx context.Context, id int64, cookies []models.Cookie) error
	ExportCookies(ctx context.Context, id int64) ([]models.Cookie, error)
	VerifyCookies(ctx context.Context, id int64) (bool, error)
}

type profileService struct {
	profileRepo repository.ProfileRepository
	cookies     browser.CookieManager
}

// NewProfileService creates a new ProfileService
func NewProfileService(profileRepo repository.ProfileRepository, cookies browser.CookieManager) ProfileService {
	return &profileService{profileRepo: profileRepo, cookies: cookies}
}

func (s *profileService) ListProfiles(ctx context.Context) ([]models.Profile, error) {
	log := logger.FromContext(ctx)
	log.Debug("listing profiles")

	profiles, err := s.profileRepo.List(ctx)
	if err != nil {
		log.Error("failed to list profiles: %v", err)
		return nil, errors.NewInternalError(err)
	}
	return profiles, nil
}

func (s *profileService) GetProfile(ctx context.Context, id int64) (*models.Profile, error) {
	log := logger.FromContext(ctx)
	log.Debug("getting profile: id=%d", id)

	profile, err := s.profileRepo.Get(ctx, id)
	if err != nil {
		log.Error("failed to get profile: %v", err)
		return nil, errors.NewInternalError(err)
	}
	if profile == nil {
		return nil, errors.NewNotFoundError("profile", id)
	}
	return profile, nil
}

func (s *profileService) CreateProfile(ctx context.Context, name string, proxyEnabled bool, proxyURL string) (*models.Profile, error) {
	log := logger.FromContext(ctx)
	log.Debug("creating profile: name=%s", name)

	if name == "" {
		return nil, errors.NewValidationError("name", "cannot be empty")
	}
	if proxyEnabled && proxyURL == "" {
		return nil, errors.NewValidationError("proxy_url", "required when proxy is enabled")
	}
	if proxyURL != "" {
		if _, err := browser.ParseProxy(proxyURL); err != nil {
			return nil, errors.NewValidationError("proxy_url", err.Error())
		}
	}

	profile, err := s.profileRepo.Create(ctx, name, proxyEnabled, proxyURL)
	if err != nil {
		log.Error("failed to create profile: %v", err)
		return nil, errors.NewInternalError(err)
	}
	return profile, nil
}

func (s *profileService) DeleteProfile(ctx context.Context, id int64) error {
	log := logger.FromContext(ctx)
	log.Debug("deleting profile: id=%d", id)

	if err := s.profileRepo.Delete(ctx, id); err != nil {
		if goerrors.Is(err, sql.ErrNoRows) {
			return errors.NewNotFoundError("profile", id)
		}
		log.Error("failed to delete profile: %v", err)
		return errors.NewInternalError(err)
	}

	if err := s.cookies.DeleteProfileData(id); err != nil {
		// Record deleted; orphaned browser data is not fatal.
		log.Warn("failed to delete browser data for profile %d: %v", id, err)
	}
	return nil
}

func (s *profileService) SetActive(ctx context.Context, id int64, active bool) error {
	log := logger.FromContext(ctx)
	log.Debug("setting profile active: id=%d active=%v", id, active)

	if err := s.profileRepo.SetActive(ctx, id, active); err != nil {
		if goerrors.Is(err, sql.ErrNoRows) {
			return errors.NewNotFoundError("profile", id)
		}
		log.Error("failed to set profile active: %v", err)
		return errors.NewInternalError(err)
	}
	return nil
}

func (s *profileService) ImportCookies(ctx context.Context, id int64, cookies []models.Cookie) error {
	log := logger.FromContext(ctx)

	if len(cookies) == 0 {
		return errors.NewValidationError("cookies", "cannot be empty")
	}
	profile, err := s.profileRepo.Get(ctx, id)
	if err != nil {
		return errors.NewInternalError(err)
	}
	if profile == nil {
		return errors.NewNotFoundError("profile", id)
	}

	if err := s.cookies.ImportCookies(ctx, id, cookies); err != nil {
		log.Warn("cookie import rejected for profile %d: %v", id, err)
		return errors.NewBadRequestError(err.Error())
	}
	return nil
}

func (s *profileService) ExportCookies(ctx context.Context, id int64) ([]models.Cookie, error) {
	profile, err := s.profileRepo.Get(ctx, id)
	if err != nil {
		return nil, errors.NewInternalError(err)
	}
	if profile == nil {
		return nil, errors.NewNotFoundError("profile", id)
	}

	cookies, err := s.cookies.ExportCookies(ctx, id)
	if err != nil {
		return nil, errors.NewNotFoundError("cookie data for profile", id)
	}
	return cookies, nil
}

func (s *profileService) VerifyCookies(ctx context.Context, id int64) (bool, error) {
	profile, err := s.profileRepo.Get(ctx, id)
	if err != nil {
		return false, errors.NewInternalError(err)
	}
	if profile == nil {
		return false, errors.NewNotFoundError("profile", id)
	}
	return s.cookies.VerifyCookies(ctx, id)
}
