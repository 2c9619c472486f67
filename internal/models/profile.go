package models

import "time"

// Profile is a browser identity holding session cookies for labs.google.
type Profile struct {
	ID             int64      `json:"id"`
	Name           string     `json:"name"`
	Email          string     `json:"email,omitempty"`
	ProxyEnabled   bool       `json:"proxy_enabled"`
	ProxyURL       string     `json:"proxy_url,omitempty"`
	IsActive       bool       `json:"is_active"`
	IsLoggedIn     bool       `json:"is_logged_in"`
	LastToken      string     `json:"last_token,omitempty"`
	LastTokenTime  *time.Time `json:"last_token_time,omitempty"`
	LastSyncTime   *time.Time `json:"last_sync_time,omitempty"`
	LastSyncResult string     `json:"last_sync_result,omitempty"`
	SyncCount      int        `json:"sync_count"`
	ErrorCount     int        `json:"error_count"`
	CreatedAt      time.Time  `json:"created_at"`
}

// ProfileUpdate carries a partial update to a profile. Nil fields are
// left untouched by the repository.
type ProfileUpdate struct {
	Email          *string
	ProxyEnabled   *bool
	ProxyURL       *string
	IsLoggedIn     *bool
	LastToken      *string
	LastTokenTime  *time.Time
	LastSyncTime   *time.Time
	LastSyncResult *string
	SyncCount      *int
	ErrorCount     *int
}

// IsEmpty reports whether the update would change nothing.
func (u ProfileUpdate) IsEmpty() bool {
	return u.Email == nil && u.ProxyEnabled == nil && u.ProxyURL == nil &&
		u.IsLoggedIn == nil && u.LastToken == nil && u.LastTokenTime == nil &&
		u.LastSyncTime == nil && u.LastSyncResult == nil &&
		u.SyncCount == nil && u.ErrorCount == nil
}
