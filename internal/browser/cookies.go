package browser

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mlindner/flowsync/internal/models"
)

// CookieStore manages the per-profile cookie files on disk. Layout:
// <baseDir>/profile_<id>/cookies.json.
type CookieStore struct {
	baseDir           string
	sessionCookieName string
}

func NewCookieStore(baseDir, sessionCookieName string) *CookieStore {
	return &CookieStore{baseDir: baseDir, sessionCookieName: sessionCookieName}
}

func (s *CookieStore) profileDir(profileID int64) string {
	return filepath.Join(s.baseDir, fmt.Sprintf("profile_%d", profileID))
}

func (s *CookieStore) cookieFile(profileID int64) string {
	return filepath.Join(s.profileDir(profileID), "cookies.json")
}

// Has reports whether a cookie file exists for the profile.
func (s *CookieStore) Has(profileID int64) bool {
	_, err := os.Stat(s.cookieFile(profileID))
	return err == nil
}

// Save writes the profile's cookies, creating the profile directory as needed.
func (s *CookieStore) Save(profileID int64, cookies []models.Cookie) error {
	if err := os.MkdirAll(s.profileDir(profileID), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(cookies, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.cookieFile(profileID), data, 0o600)
}

// Load reads the profile's cookies from disk.
func (s *CookieStore) Load(profileID int64) ([]models.Cookie, error) {
	data, err := os.ReadFile(s.cookieFile(profileID))
	if err != nil {
		return nil, err
	}
	var cookies []models.Cookie
	if err := json.Unmarshal(data, &cookies); err != nil {
		return nil, fmt.Errorf("corrupt cookie file for profile %d: %w", profileID, err)
	}
	return cookies, nil
}

// FindSession returns the session cookie, or nil when absent.
func (s *CookieStore) FindSession(cookies []models.Cookie) *models.Cookie {
	for i := range cookies {
		if cookies[i].Name == s.sessionCookieName {
			return &cookies[i]
		}
	}
	return nil
}

// DeleteProfileData removes the profile's on-disk directory.
func (s *CookieStore) DeleteProfileData(profileID int64) error {
	return os.RemoveAll(s.profileDir(profileID))
}

// MaskToken shortens a token for safe storage and logging.
func MaskToken(token string) string {
	if len(token) <= 8 {
		return token
	}
	return token[:4] + "..." + token[len(token)-4:]
}
