package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/mlindner/flowsync/internal/flowapi"
)

// MockFlowClient is a mock implementation of flowapi.ClientInterface
type MockFlowClient struct {
	mock.Mock
}

func (m *MockFlowClient) HasToken() bool {
	args := m.Called()
	return args.Bool(0)
}

func (m *MockFlowClient) CheckTokens(ctx context.Context, emails []string) (*flowapi.CheckResult, error) {
	args := m.Called(ctx, emails)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*flowapi.CheckResult), args.Error(1)
}

func (m *MockFlowClient) UpdateToken(ctx context.Context, sessionToken string) (*flowapi.UpdateResult, error) {
	args := m.Called(ctx, sessionToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*flowapi.UpdateResult), args.Error(1)
}
