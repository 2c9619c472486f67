package services

import (
	"context"
	"sync"
	"time"

	"github.com/mlindner/flowsync/internal/browser"
	"github.com/mlindner/flowsync/internal/config"
	"github.com/mlindner/flowsync/internal/errors"
	"github.com/mlindner/flowsync/internal/flowapi"
	"github.com/mlindner/flowsync/internal/logger"
	"github.com/mlindner/flowsync/internal/models"
	"github.com/mlindner/flowsync/internal/repository"
)

// SyncService orchestrates token refreshes: it decides which profiles need
// one, drives the per-profile workflow, and reconciles the Flow API's
// responses back into the profile records.
type SyncService interface {
	// SyncProfile refreshes one profile's token and records the outcome.
	// The returned error is reserved for NOT_FOUND and store failures;
	// extraction and push failures come back as a failed SyncResult.
	SyncProfile(ctx context.Context, profileID int64) (*models.SyncResult, error)
	// SyncAll runs a smart batch: only profiles the Flow API reports as
	// stale are refreshed. When the staleness check itself is unreachable
	// it falls back to refreshing every active profile.
	SyncAll(ctx context.Context) (*models.BatchReport, error)
	// Status returns the process-lifetime counters.
	Status() models.SyncerStatus
}

type syncService struct {
	profiles  repository.ProfileRepository
	extractor browser.Extractor
	flow      flowapi.ClientInterface

	flowAPIURL          string
	refreshIntervalMins int

	mu              sync.Mutex
	totalSyncCount  int
	totalErrorCount int
	lastBatchTime   *time.Time
}

// NewSyncService creates a new SyncService. Cumulative counters start at
// zero; there is no reset.
func NewSyncService(profiles repository.ProfileRepository, extractor browser.Extractor, flow flowapi.ClientInterface, cfg config.Config) SyncService {
	return &syncService{
		profiles:            profiles,
		extractor:           extractor,
		flow:                flow,
		flowAPIURL:          cfg.FlowAPIURL,
		refreshIntervalMins: cfg.RefreshIntervalMins,
	}
}

func (s *syncService) SyncProfile(ctx context.Context, profileID int64) (*models.SyncResult, error) {
	log := logger.FromContext(ctx).WithPrefix("sync")

	profile, err := s.profiles.Get(ctx, profileID)
	if err != nil {
		log.Error("failed to load profile %d: %v", profileID, err)
		return nil, errors.NewInternalError(err)
	}
	if profile == nil {
		return nil, errors.NewNotFoundError("profile", profileID)
	}

	log.Info("[%s] starting sync", profile.Name)

	token, extractErr := s.extractor.ExtractToken(ctx, profileID)
	now := time.Now()

	if extractErr != nil || token == "" {
		if extractErr != nil {
			log.Error("[%s] extraction error: %v", profile.Name, extractErr)
		}
		s.recordOutcome(ctx, profile, now, models.ProfileUpdate{
			LastSyncResult: ptr("failed: no token"),
			ErrorCount:     ptr(profile.ErrorCount + 1),
			IsLoggedIn:     ptr(false),
		})
		s.bump(false)
		return &models.SyncResult{
			Success: false,
			Error:   "cannot extract token, re-authentication required",
		}, nil
	}

	pushed, pushErr := s.flow.UpdateToken(ctx, token)
	if pushErr != nil {
		log.Error("[%s] sync failed: %v", profile.Name, pushErr)
		s.recordOutcome(ctx, profile, now, models.ProfileUpdate{
			LastSyncResult: ptr("failed: " + pushErr.Error()),
			ErrorCount:     ptr(profile.ErrorCount + 1),
		})
		s.bump(false)
		return &models.SyncResult{Success: false, Error: pushErr.Error()}, nil
	}

	action := pushed.Action
	if action == "" {
		action = "synced"
	}
	upd := models.ProfileUpdate{
		LastSyncResult: ptr("success: " + action),
		SyncCount:      ptr(profile.SyncCount + 1),
	}
	// The resolved email in the push confirmation is the only way a
	// profile learns its identity after cookie import.
	if pushed.Email != "" {
		upd.Email = &pushed.Email
	}
	s.recordOutcome(ctx, profile, now, upd)
	s.bump(true)

	log.Info("[%s] sync succeeded: action=%s", profile.Name, action)
	return &models.SyncResult{
		Success: true,
		Email:   pushed.Email,
		Action:  pushed.Action,
		Message: pushed.Message,
	}, nil
}

// recordOutcome applies the attempt's bookkeeping in a single partial
// update so the store always reflects the most recent attempt.
func (s *syncService) recordOutcome(ctx context.Context, profile *models.Profile, at time.Time, upd models.ProfileUpdate) {
	log := logger.FromContext(ctx).WithPrefix("sync")
	upd.LastSyncTime = &at
	if err := s.profiles.Update(ctx, profile.ID, upd); err != nil {
		log.Error("[%s] failed to record sync outcome: %v", profile.Name, err)
	}
}

func (s *syncService) SyncAll(ctx context.Context) (*models.BatchReport, error) {
	log := logger.FromContext(ctx).WithPrefix("sync")

	if !s.flow.HasToken() {
		return nil, errors.NewMissingCredentialError()
	}

	now := time.Now()
	s.mu.Lock()
	s.lastBatchTime = &now
	s.mu.Unlock()

	log.Info("starting smart sync")

	profiles, err := s.profiles.ListActive(ctx)
	if err != nil {
		log.Error("failed to list active profiles: %v", err)
		return nil, errors.NewInternalError(err)
	}
	if len(profiles) == 0 {
		log.Info("no active profiles")
		return &models.BatchReport{}, nil
	}

	var emails []string
	seen := make(map[string]bool, len(profiles))
	for _, p := range profiles {
		if p.Email != "" && !seen[p.Email] {
			seen[p.Email] = true
			emails = append(emails, p.Email)
		}
	}

	check, err := s.flow.CheckTokens(ctx, emails)
	if err != nil {
		log.Warn("cannot check token status: %v, falling back to full sync", err)
		return s.syncAllForce(ctx, profiles), nil
	}

	if len(check.NeedsRefresh) == 0 {
		log.Info("all tokens fresh, nothing to refresh")
		return &models.BatchReport{
			Total:   len(profiles),
			Skipped: len(profiles),
			Message: "all tokens fresh",
		}, nil
	}

	needsRefresh := make(map[string]bool, len(check.NeedsRefresh))
	for _, email := range check.NeedsRefresh {
		needsRefresh[email] = true
	}
	log.Info("%d tokens need refresh", len(needsRefresh))

	report := &models.BatchReport{Total: len(profiles)}
	for _, p := range profiles {
		if p.Email == "" || !needsRefresh[p.Email] {
			log.Debug("[%s] token fresh, skipping", p.Name)
			report.Skipped++
			continue
		}
		report.Results = append(report.Results, s.syncOne(ctx, p))
	}
	tally(report)

	log.Info("smart sync complete: %d succeeded, %d failed, %d skipped",
		report.SuccessCount, report.ErrorCount, report.Skipped)
	return report, nil
}

// syncAllForce refreshes every active profile without consulting
// staleness. Used only when the staleness channel is unavailable.
func (s *syncService) syncAllForce(ctx context.Context, profiles []models.Profile) *models.BatchReport {
	log := logger.FromContext(ctx).WithPrefix("sync")
	log.Info("full sync of %d profiles", len(profiles))

	report := &models.BatchReport{Total: len(profiles), Forced: true}
	for _, p := range profiles {
		report.Results = append(report.Results, s.syncOne(ctx, p))
	}
	tally(report)

	log.Info("full sync complete: %d succeeded, %d failed", report.SuccessCount, report.ErrorCount)
	return report
}

// syncOne folds a single attempt, including lookup failures, into a
// per-profile result so batch iteration never aborts.
func (s *syncService) syncOne(ctx context.Context, p models.Profile) models.ProfileSyncResult {
	out := models.ProfileSyncResult{ProfileID: p.ID, ProfileName: p.Name}
	result, err := s.SyncProfile(ctx, p.ID)
	if err != nil {
		out.SyncResult = models.SyncResult{Success: false, Error: err.Error()}
		return out
	}
	out.SyncResult = *result
	return out
}

func tally(report *models.BatchReport) {
	for _, r := range report.Results {
		if r.Success {
			report.SuccessCount++
		} else {
			report.ErrorCount++
		}
	}
	report.Synced = report.SuccessCount + report.ErrorCount
}

func (s *syncService) bump(success bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if success {
		s.totalSyncCount++
	} else {
		s.totalErrorCount++
	}
}

func (s *syncService) Status() models.SyncerStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return models.SyncerStatus{
		TotalSyncCount:      s.totalSyncCount,
		TotalErrorCount:     s.totalErrorCount,
		LastBatchTime:       s.lastBatchTime,
		FlowAPIURL:          s.flowAPIURL,
		HasConnectionToken:  s.flow.HasToken(),
		RefreshIntervalMins: s.refreshIntervalMins,
	}
}

func ptr[T any](v T) *T { return &v }
