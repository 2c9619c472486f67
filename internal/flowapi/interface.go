package flowapi

import "context"

// ClientInterface defines the interface for Flow API operations.
// This interface enables testability by allowing mock implementations.
type ClientInterface interface {
	HasToken() bool
	CheckTokens(ctx context.Context, emails []string) (*CheckResult, error)
	UpdateToken(ctx context.Context, sessionToken string) (*UpdateResult, error)
}

// Ensure Client implements the interface
var _ ClientInterface = (*Client)(nil)
