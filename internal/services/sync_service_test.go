package services_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/mlindner/flowsync/internal/config"
	apperrors "github.com/mlindner/flowsync/internal/errors"
	"github.com/mlindner/flowsync/internal/flowapi"
	"github.com/mlindner/flowsync/internal/models"
	"github.com/mlindner/flowsync/internal/services"
	"github.com/mlindner/flowsync/internal/testutil/mocks"
)

type syncFixture struct {
	repo      *mocks.MockProfileRepository
	extractor *mocks.MockExtractor
	flow      *mocks.MockFlowClient
	svc       services.SyncService
}

func newSyncFixture() *syncFixture {
	f := &syncFixture{
		repo:      &mocks.MockProfileRepository{},
		extractor: &mocks.MockExtractor{},
		flow:      &mocks.MockFlowClient{},
	}
	cfg := config.Config{FlowAPIURL: "http://flow.local", RefreshIntervalMins: 30}
	f.svc = services.NewSyncService(f.repo, f.extractor, f.flow, cfg)
	return f
}

func profileFixture(id int64, name, email string) *models.Profile {
	return &models.Profile{
		ID:         id,
		Name:       name,
		Email:      email,
		IsActive:   true,
		IsLoggedIn: true,
		SyncCount:  3,
		ErrorCount: 1,
		CreatedAt:  time.Now(),
	}
}

func TestSyncProfile_NotFound(t *testing.T) {
	f := newSyncFixture()
	f.repo.On("Get", mock.Anything, int64(42)).Return(nil, nil)

	_, err := f.svc.SyncProfile(context.Background(), 42)
	require.Error(t, err)

	appErr, ok := err.(*apperrors.AppError)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrCodeNotFound, appErr.Code)
	f.extractor.AssertNotCalled(t, "ExtractToken", mock.Anything, mock.Anything)
}

func TestSyncProfile_NoToken(t *testing.T) {
	f := newSyncFixture()
	p := profileFixture(1, "alpha", "")
	f.repo.On("Get", mock.Anything, int64(1)).Return(p, nil)
	f.extractor.On("ExtractToken", mock.Anything, int64(1)).Return("", nil)
	f.repo.On("Update", mock.Anything, int64(1), mock.MatchedBy(func(u models.ProfileUpdate) bool {
		return u.LastSyncResult != nil && *u.LastSyncResult == "failed: no token" &&
			u.ErrorCount != nil && *u.ErrorCount == p.ErrorCount+1 &&
			u.IsLoggedIn != nil && !*u.IsLoggedIn &&
			u.LastSyncTime != nil &&
			u.SyncCount == nil
	})).Return(nil)

	result, err := f.svc.SyncProfile(context.Background(), 1)
	require.NoError(t, err)

	assert.False(t, result.Success)
	assert.Equal(t, "cannot extract token, re-authentication required", result.Error)
	// No push happens without a token.
	f.flow.AssertNotCalled(t, "UpdateToken", mock.Anything, mock.Anything)
	f.repo.AssertExpectations(t)
}

func TestSyncProfile_ExtractionErrorTreatedAsNoToken(t *testing.T) {
	f := newSyncFixture()
	p := profileFixture(1, "alpha", "")
	f.repo.On("Get", mock.Anything, int64(1)).Return(p, nil)
	f.extractor.On("ExtractToken", mock.Anything, int64(1)).Return("", fmt.Errorf("browser crashed"))
	f.repo.On("Update", mock.Anything, int64(1), mock.Anything).Return(nil)

	result, err := f.svc.SyncProfile(context.Background(), 1)
	require.NoError(t, err)

	assert.False(t, result.Success)
	f.flow.AssertNotCalled(t, "UpdateToken", mock.Anything, mock.Anything)
}

func TestSyncProfile_PushSuccessPersistsResolvedEmail(t *testing.T) {
	f := newSyncFixture()
	p := profileFixture(1, "alpha", "")
	f.repo.On("Get", mock.Anything, int64(1)).Return(p, nil)
	f.extractor.On("ExtractToken", mock.Anything, int64(1)).Return("fresh-token", nil)
	f.flow.On("UpdateToken", mock.Anything, "fresh-token").Return(&flowapi.UpdateResult{
		Action:  "refreshed",
		Message: "Token updated for alice@example.com",
		Email:   "alice@example.com",
	}, nil)
	f.repo.On("Update", mock.Anything, int64(1), mock.MatchedBy(func(u models.ProfileUpdate) bool {
		return u.Email != nil && *u.Email == "alice@example.com" &&
			u.LastSyncResult != nil && *u.LastSyncResult == "success: refreshed" &&
			u.SyncCount != nil && *u.SyncCount == p.SyncCount+1 &&
			u.LastSyncTime != nil &&
			u.ErrorCount == nil
	})).Return(nil)

	result, err := f.svc.SyncProfile(context.Background(), 1)
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, "alice@example.com", result.Email)
	assert.Equal(t, "refreshed", result.Action)
	f.repo.AssertExpectations(t)
}

func TestSyncProfile_PushSuccessWithoutEmailLeavesEmailUnset(t *testing.T) {
	f := newSyncFixture()
	p := profileFixture(1, "alpha", "old@example.com")
	f.repo.On("Get", mock.Anything, int64(1)).Return(p, nil)
	f.extractor.On("ExtractToken", mock.Anything, int64(1)).Return("fresh-token", nil)
	f.flow.On("UpdateToken", mock.Anything, "fresh-token").Return(&flowapi.UpdateResult{
		Action:  "refreshed",
		Message: "Token updated",
	}, nil)
	f.repo.On("Update", mock.Anything, int64(1), mock.MatchedBy(func(u models.ProfileUpdate) bool {
		return u.Email == nil
	})).Return(nil)

	result, err := f.svc.SyncProfile(context.Background(), 1)
	require.NoError(t, err)
	assert.True(t, result.Success)
	f.repo.AssertExpectations(t)
}

func TestSyncProfile_PushFailure(t *testing.T) {
	f := newSyncFixture()
	p := profileFixture(1, "alpha", "alice@example.com")
	f.repo.On("Get", mock.Anything, int64(1)).Return(p, nil)
	f.extractor.On("ExtractToken", mock.Anything, int64(1)).Return("fresh-token", nil)
	f.flow.On("UpdateToken", mock.Anything, "fresh-token").Return(nil, fmt.Errorf("/api/plugin/update-token status 502"))
	f.repo.On("Update", mock.Anything, int64(1), mock.MatchedBy(func(u models.ProfileUpdate) bool {
		return u.LastSyncResult != nil && *u.LastSyncResult == "failed: /api/plugin/update-token status 502" &&
			u.ErrorCount != nil && *u.ErrorCount == p.ErrorCount+1 &&
			u.SyncCount == nil
	})).Return(nil)

	result, err := f.svc.SyncProfile(context.Background(), 1)
	require.NoError(t, err)

	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "502")
	f.repo.AssertExpectations(t)
}

func TestSyncAll_MissingCredential(t *testing.T) {
	f := newSyncFixture()
	f.flow.On("HasToken").Return(false)

	_, err := f.svc.SyncAll(context.Background())
	require.Error(t, err)
	assert.True(t, apperrors.IsMissingCredential(err))
	// Fails before any partial work.
	f.repo.AssertNotCalled(t, "ListActive", mock.Anything)
}

func TestSyncAll_NoActiveProfiles(t *testing.T) {
	f := newSyncFixture()
	f.flow.On("HasToken").Return(true)
	f.repo.On("ListActive", mock.Anything).Return([]models.Profile{}, nil)

	report, err := f.svc.SyncAll(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, report.Total)
	assert.Equal(t, 0, report.Synced)
	assert.Equal(t, 0, report.Skipped)
	// No remote calls at all for an empty pool.
	f.flow.AssertNotCalled(t, "CheckTokens", mock.Anything, mock.Anything)
	f.flow.AssertNotCalled(t, "UpdateToken", mock.Anything, mock.Anything)
}

func TestSyncAll_AllTokensFresh(t *testing.T) {
	f := newSyncFixture()
	profiles := []models.Profile{
		*profileFixture(1, "alpha", "alice@example.com"),
		*profileFixture(2, "beta", "bob@example.com"),
	}
	f.flow.On("HasToken").Return(true)
	f.repo.On("ListActive", mock.Anything).Return(profiles, nil)
	f.flow.On("CheckTokens", mock.Anything, []string{"alice@example.com", "bob@example.com"}).
		Return(&flowapi.CheckResult{}, nil)

	report, err := f.svc.SyncAll(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, report.Total)
	assert.Equal(t, 0, report.Synced)
	assert.Equal(t, 2, report.Skipped)
	f.extractor.AssertNotCalled(t, "ExtractToken", mock.Anything, mock.Anything)
	f.flow.AssertNotCalled(t, "UpdateToken", mock.Anything, mock.Anything)
}

func TestSyncAll_RefreshesOnlyStaleProfiles(t *testing.T) {
	f := newSyncFixture()
	stale := profileFixture(1, "alpha", "alice@example.com")
	fresh := profileFixture(2, "beta", "bob@example.com")
	noEmail := profileFixture(3, "gamma", "")
	profiles := []models.Profile{*stale, *fresh, *noEmail}

	f.flow.On("HasToken").Return(true)
	f.repo.On("ListActive", mock.Anything).Return(profiles, nil)
	// Profiles without an email are excluded from the staleness query.
	f.flow.On("CheckTokens", mock.Anything, []string{"alice@example.com", "bob@example.com"}).
		Return(&flowapi.CheckResult{NeedsRefresh: []string{"alice@example.com"}}, nil)

	f.repo.On("Get", mock.Anything, int64(1)).Return(stale, nil)
	f.extractor.On("ExtractToken", mock.Anything, int64(1)).Return("tok", nil)
	f.flow.On("UpdateToken", mock.Anything, "tok").Return(&flowapi.UpdateResult{Action: "refreshed"}, nil)
	f.repo.On("Update", mock.Anything, int64(1), mock.Anything).Return(nil)

	report, err := f.svc.SyncAll(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, report.Total)
	assert.Equal(t, 1, report.Synced)
	assert.Equal(t, 1, report.SuccessCount)
	assert.Equal(t, 0, report.ErrorCount)
	assert.Equal(t, 2, report.Skipped)
	assert.False(t, report.Forced)
	// Invariants: synced == success + error, synced + skipped == total.
	assert.Equal(t, report.SuccessCount+report.ErrorCount, report.Synced)
	assert.Equal(t, report.Total, report.Synced+report.Skipped)

	f.extractor.AssertNumberOfCalls(t, "ExtractToken", 1)
	require.Len(t, report.Results, 1)
	assert.Equal(t, int64(1), report.Results[0].ProfileID)
	assert.Equal(t, "alpha", report.Results[0].ProfileName)
}

func TestSyncAll_DeduplicatesEmailsInStalenessQuery(t *testing.T) {
	f := newSyncFixture()
	one := profileFixture(1, "alpha", "shared@example.com")
	two := profileFixture(2, "beta", "shared@example.com")
	profiles := []models.Profile{*one, *two}

	f.flow.On("HasToken").Return(true)
	f.repo.On("ListActive", mock.Anything).Return(profiles, nil)
	// A shared email appears once in the query.
	f.flow.On("CheckTokens", mock.Anything, []string{"shared@example.com"}).
		Return(&flowapi.CheckResult{}, nil)

	report, err := f.svc.SyncAll(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, report.Total)
	assert.Equal(t, 2, report.Skipped)
	f.flow.AssertExpectations(t)
}

func TestSyncAll_FallsBackWhenClassifierUnavailable(t *testing.T) {
	f := newSyncFixture()
	one := profileFixture(1, "alpha", "alice@example.com")
	two := profileFixture(2, "beta", "")
	profiles := []models.Profile{*one, *two}

	f.flow.On("HasToken").Return(true)
	f.repo.On("ListActive", mock.Anything).Return(profiles, nil)
	f.flow.On("CheckTokens", mock.Anything, mock.Anything).Return(nil, fmt.Errorf("status 503"))

	f.repo.On("Get", mock.Anything, int64(1)).Return(one, nil)
	f.repo.On("Get", mock.Anything, int64(2)).Return(two, nil)
	f.extractor.On("ExtractToken", mock.Anything, int64(1)).Return("tok1", nil)
	f.extractor.On("ExtractToken", mock.Anything, int64(2)).Return("", nil)
	f.flow.On("UpdateToken", mock.Anything, "tok1").Return(&flowapi.UpdateResult{Action: "created"}, nil)
	f.repo.On("Update", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	report, err := f.svc.SyncAll(context.Background())
	require.NoError(t, err)

	// Fallback syncs every active profile exactly once, nothing skipped.
	assert.True(t, report.Forced)
	assert.Equal(t, 2, report.Total)
	assert.Equal(t, 2, report.Synced)
	assert.Equal(t, 1, report.SuccessCount)
	assert.Equal(t, 1, report.ErrorCount)
	assert.Equal(t, 0, report.Skipped)
	f.extractor.AssertNumberOfCalls(t, "ExtractToken", 2)
}

func TestSyncAll_PerProfileFailureDoesNotAbortBatch(t *testing.T) {
	f := newSyncFixture()
	one := profileFixture(1, "alpha", "alice@example.com")
	two := profileFixture(2, "beta", "bob@example.com")
	profiles := []models.Profile{*one, *two}

	f.flow.On("HasToken").Return(true)
	f.repo.On("ListActive", mock.Anything).Return(profiles, nil)
	f.flow.On("CheckTokens", mock.Anything, mock.Anything).Return(&flowapi.CheckResult{
		NeedsRefresh: []string{"alice@example.com", "bob@example.com"},
	}, nil)

	f.repo.On("Get", mock.Anything, int64(1)).Return(one, nil)
	f.repo.On("Get", mock.Anything, int64(2)).Return(two, nil)
	f.extractor.On("ExtractToken", mock.Anything, int64(1)).Return("", nil) // fails
	f.extractor.On("ExtractToken", mock.Anything, int64(2)).Return("tok2", nil)
	f.flow.On("UpdateToken", mock.Anything, "tok2").Return(&flowapi.UpdateResult{Action: "refreshed"}, nil)
	f.repo.On("Update", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	report, err := f.svc.SyncAll(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, report.Synced)
	assert.Equal(t, 1, report.SuccessCount)
	assert.Equal(t, 1, report.ErrorCount)
	require.Len(t, report.Results, 2)
	assert.False(t, report.Results[0].Success)
	assert.True(t, report.Results[1].Success)
}

func TestSyncAll_IdempotentWhenNothingStale(t *testing.T) {
	f := newSyncFixture()
	profiles := []models.Profile{*profileFixture(1, "alpha", "alice@example.com")}

	f.flow.On("HasToken").Return(true)
	f.repo.On("ListActive", mock.Anything).Return(profiles, nil)
	f.flow.On("CheckTokens", mock.Anything, mock.Anything).Return(&flowapi.CheckResult{}, nil)

	for i := 0; i < 2; i++ {
		report, err := f.svc.SyncAll(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 0, report.Synced)
	}

	f.extractor.AssertNotCalled(t, "ExtractToken", mock.Anything, mock.Anything)
	f.flow.AssertNotCalled(t, "UpdateToken", mock.Anything, mock.Anything)
}

func TestStatus_CountersAccumulate(t *testing.T) {
	f := newSyncFixture()
	f.flow.On("HasToken").Return(true)

	initial := f.svc.Status()
	assert.Equal(t, 0, initial.TotalSyncCount)
	assert.Equal(t, 0, initial.TotalErrorCount)
	assert.Nil(t, initial.LastBatchTime)
	assert.Equal(t, "http://flow.local", initial.FlowAPIURL)
	assert.True(t, initial.HasConnectionToken)
	assert.Equal(t, 30, initial.RefreshIntervalMins)

	ok := profileFixture(1, "alpha", "alice@example.com")
	bad := profileFixture(2, "beta", "bob@example.com")
	f.repo.On("Get", mock.Anything, int64(1)).Return(ok, nil)
	f.repo.On("Get", mock.Anything, int64(2)).Return(bad, nil)
	f.repo.On("Update", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.extractor.On("ExtractToken", mock.Anything, int64(1)).Return("tok", nil)
	f.extractor.On("ExtractToken", mock.Anything, int64(2)).Return("", nil)
	f.flow.On("UpdateToken", mock.Anything, "tok").Return(&flowapi.UpdateResult{Action: "refreshed"}, nil)

	_, err := f.svc.SyncProfile(context.Background(), 1)
	require.NoError(t, err)
	_, err = f.svc.SyncProfile(context.Background(), 2)
	require.NoError(t, err)

	status := f.svc.Status()
	assert.Equal(t, 1, status.TotalSyncCount)
	assert.Equal(t, 1, status.TotalErrorCount)
}
