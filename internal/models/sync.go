package models

import "time"

// TokenStatus is one entry of the Flow API check-tokens response.
type TokenStatus struct {
	Email        string `json:"email"`
	IsActive     bool   `json:"is_active"`
	NeedsRefresh bool   `json:"needs_refresh"`
}

// SyncResult is the outcome of a single profile sync attempt.
type SyncResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	Email   string `json:"email,omitempty"`
	Action  string `json:"action,omitempty"`
	Message string `json:"message,omitempty"`
}

// ProfileSyncResult ties a SyncResult to the profile it belongs to inside
// a batch report.
type ProfileSyncResult struct {
	ProfileID   int64  `json:"profile_id"`
	ProfileName string `json:"profile_name"`
	SyncResult
}

// BatchReport aggregates one "sync all" invocation. It is never persisted.
type BatchReport struct {
	Total        int                 `json:"total"`
	Synced       int                 `json:"synced"`
	SuccessCount int                 `json:"success_count"`
	ErrorCount   int                 `json:"error_count"`
	Skipped      int                 `json:"skipped"`
	Forced       bool                `json:"forced,omitempty"`
	Message      string              `json:"message,omitempty"`
	Results      []ProfileSyncResult `json:"results,omitempty"`
}

// SyncerStatus is a snapshot of the orchestrator's process-lifetime state.
type SyncerStatus struct {
	TotalSyncCount      int        `json:"total_sync_count"`
	TotalErrorCount     int        `json:"total_error_count"`
	LastBatchTime       *time.Time `json:"last_batch_time,omitempty"`
	FlowAPIURL          string     `json:"flow_api_url"`
	HasConnectionToken  bool       `json:"has_connection_token"`
	RefreshIntervalMins int        `json:"refresh_interval_minutes"`
}
