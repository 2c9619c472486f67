package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/mlindner/flowsync/internal/models"
)

// MockExtractor is a mock implementation of browser.Extractor
type MockExtractor struct {
	mock.Mock
}

func (m *MockExtractor) ExtractToken(ctx context.Context, profileID int64) (string, error) {
	args := m.Called(ctx, profileID)
	return args.String(0), args.Error(1)
}

// MockCookieManager is a mock implementation of browser.CookieManager
type MockCookieManager struct {
	mock.Mock
}

func (m *MockCookieManager) ImportCookies(ctx context.Context, profileID int64, cookies []models.Cookie) error {
	args := m.Called(ctx, profileID, cookies)
	return args.Error(0)
}

func (m *MockCookieManager) ExportCookies(ctx context.Context, profileID int64) ([]models.Cookie, error) {
	args := m.Called(ctx, profileID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Cookie), args.Error(1)
}

func (m *MockCookieManager) VerifyCookies(ctx context.Context, profileID int64) (bool, error) {
	args := m.Called(ctx, profileID)
	return args.Bool(0), args.Error(1)
}

func (m *MockCookieManager) DeleteProfileData(profileID int64) error {
	args := m.Called(profileID)
	return args.Error(0)
}
