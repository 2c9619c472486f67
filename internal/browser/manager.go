package browser

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/exec"
	"strconv"
	"time"

	"github.com/mlindner/flowsync/internal/config"
	"github.com/mlindner/flowsync/internal/logger"
	"github.com/mlindner/flowsync/internal/models"
	"github.com/mlindner/flowsync/internal/repository"
)

// settleDelay gives the page time to finish background token refresh
// requests after the load event.
const settleDelay = 2 * time.Second

// Manager drives headless Chromium sessions to refresh profile session
// cookies. Extraction is single-flight process-wide: one browser session
// at a time, callers queue on the gate.
type Manager struct {
	gate     chan struct{}
	cfg      config.Config
	profiles repository.ProfileRepository
	store    *CookieStore
	log      *logger.Logger
}

func NewManager(cfg config.Config, profiles repository.ProfileRepository) *Manager {
	gate := make(chan struct{}, 1)
	gate <- struct{}{}
	return &Manager{
		gate:     gate,
		cfg:      cfg,
		profiles: profiles,
		store:    NewCookieStore(cfg.ProfilesDir, cfg.SessionCookieName),
		log:      logger.Default().WithPrefix("browser"),
	}
}

// acquire takes the extraction gate, honoring context cancellation while
// queued. release must be called on all exit paths.
func (m *Manager) acquire(ctx context.Context) error {
	select {
	case <-m.gate:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Manager) release() {
	m.gate <- struct{}{}
}

// Busy reports whether an extraction session currently holds the gate.
func (m *Manager) Busy() bool {
	return len(m.gate) == 0
}

// ExtractToken refreshes and returns the profile's current session token.
// It returns ("", nil) when the profile has no usable session (missing
// cookie file, or the site did not hand back a session cookie); the
// profile's login state is persisted accordingly. Errors are reserved for
// infrastructure failures (browser launch, CDP, disk).
func (m *Manager) ExtractToken(ctx context.Context, profileID int64) (string, error) {
	if err := m.acquire(ctx); err != nil {
		return "", err
	}
	defer m.release()

	log := logger.FromContext(ctx).WithPrefix("browser")

	profile, err := m.profiles.Get(ctx, profileID)
	if err != nil {
		return "", err
	}
	if profile == nil {
		return "", fmt.Errorf("profile %d not found", profileID)
	}

	if !m.store.Has(profileID) {
		log.Warn("[%s] no cookie file, import cookies first", profile.Name)
		return "", nil
	}

	cookies, err := m.store.Load(profileID)
	if err != nil {
		return "", err
	}

	log.Info("[%s] launching browser to extract token", profile.Name)
	token, err := m.runSession(ctx, profile, cookies)
	if err != nil {
		log.Error("[%s] extraction failed: %v", profile.Name, err)
		return "", err
	}

	now := time.Now()
	if token == "" {
		log.Warn("[%s] session expired, re-import cookies", profile.Name)
		if err := m.profiles.Update(ctx, profileID, models.ProfileUpdate{IsLoggedIn: ptr(false)}); err != nil {
			return "", err
		}
		return "", nil
	}

	masked := MaskToken(token)
	if err := m.profiles.Update(ctx, profileID, models.ProfileUpdate{
		IsLoggedIn:    ptr(true),
		LastToken:     &masked,
		LastTokenTime: &now,
	}); err != nil {
		return "", err
	}
	log.Info("[%s] token extracted: %s", profile.Name, masked)
	return token, nil
}

// runSession owns one full browser lifecycle: launch, install cookies,
// navigate, re-read cookies, persist, teardown.
func (m *Manager) runSession(ctx context.Context, profile *models.Profile, cookies []models.Cookie) (string, error) {
	log := logger.FromContext(ctx).WithPrefix("browser")

	sessionCtx, cancel := context.WithTimeout(ctx, 2*time.Duration(m.cfg.BrowserTimeoutSecs)*time.Second)
	defer cancel()

	userDataDir, err := os.MkdirTemp("", "flowsync-chrome-")
	if err != nil {
		return "", err
	}
	defer os.RemoveAll(userDataDir)

	args := []string{
		"--headless=new",
		"--no-sandbox",
		"--disable-setuid-sandbox",
		"--disable-dev-shm-usage",
		"--disable-gpu",
		"--window-size=1280,720",
		"--remote-debugging-address=127.0.0.1",
		"--remote-debugging-port=" + strconv.Itoa(m.cfg.BrowserDebugPort),
		"--user-data-dir=" + userDataDir,
	}
	if profile.ProxyEnabled && profile.ProxyURL != "" {
		proxy, err := ParseProxy(profile.ProxyURL)
		if err != nil {
			log.Warn("[%s] ignoring invalid proxy %q: %v", profile.Name, profile.ProxyURL, err)
		} else {
			log.Info("[%s] using proxy: %s", profile.Name, proxy.ServerArg())
			args = append(args, "--proxy-server="+proxy.ServerArg())
		}
	}
	args = append(args, "about:blank")

	cmd := exec.CommandContext(sessionCtx, m.cfg.ChromePath, args...)
	if err := cmd.Start(); err != nil {
		return "", fmt.Errorf("failed to launch browser: %w", err)
	}
	defer func() {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
	}()

	if !waitForPort(m.cfg.BrowserDebugPort, 10*time.Second) {
		return "", fmt.Errorf("browser debug port %d not ready", m.cfg.BrowserDebugPort)
	}

	cdp := newCDPClient(m.cfg.BrowserDebugPort)
	if err := cdp.connect(); err != nil {
		return "", err
	}
	defer cdp.close()

	if err := cdp.setCookies(cookies); err != nil {
		return "", fmt.Errorf("failed to install cookies: %w", err)
	}
	log.Debug("[%s] installed %d cookies", profile.Name, len(cookies))

	navTimeout := time.Duration(m.cfg.BrowserTimeoutSecs) * time.Second
	if err := cdp.navigate(m.cfg.LabsURL, navTimeout); err != nil {
		return "", err
	}
	time.Sleep(settleDelay)

	siteCookies, err := cdp.getCookies([]string{m.cfg.LabsURL})
	if err != nil {
		return "", err
	}
	session := m.store.FindSession(siteCookies)
	if session == nil {
		return "", nil
	}

	// Persist the full refreshed cookie jar, independent of the push outcome.
	allCookies, err := cdp.getCookies(nil)
	if err != nil {
		return "", err
	}
	if err := m.store.Save(profile.ID, allCookies); err != nil {
		return "", err
	}
	log.Debug("[%s] persisted %d refreshed cookies", profile.Name, len(allCookies))

	return session.Value, nil
}

// ImportCookies is the one-shot provisioning path: validate the session
// cookie is present, write the cookie file, and mark the profile logged in.
func (m *Manager) ImportCookies(ctx context.Context, profileID int64, cookies []models.Cookie) error {
	log := logger.FromContext(ctx).WithPrefix("browser")

	profile, err := m.profiles.Get(ctx, profileID)
	if err != nil {
		return err
	}
	if profile == nil {
		return fmt.Errorf("profile %d not found", profileID)
	}

	session := m.store.FindSession(cookies)
	if session == nil {
		return fmt.Errorf("cookie %s not found in import", m.cfg.SessionCookieName)
	}

	if err := m.store.Save(profileID, cookies); err != nil {
		return err
	}

	now := time.Now()
	masked := MaskToken(session.Value)
	if err := m.profiles.Update(ctx, profileID, models.ProfileUpdate{
		IsLoggedIn:    ptr(true),
		LastToken:     &masked,
		LastTokenTime: &now,
	}); err != nil {
		return err
	}

	log.Info("[%s] imported %d cookies", profile.Name, len(cookies))
	return nil
}

// ExportCookies returns the profile's stored cookies.
func (m *Manager) ExportCookies(ctx context.Context, profileID int64) ([]models.Cookie, error) {
	if !m.store.Has(profileID) {
		return nil, fmt.Errorf("no cookie data for profile %d", profileID)
	}
	return m.store.Load(profileID)
}

// VerifyCookies checks whether the stored cookies still yield a session
// token. It runs a full extraction round trip.
func (m *Manager) VerifyCookies(ctx context.Context, profileID int64) (bool, error) {
	token, err := m.ExtractToken(ctx, profileID)
	if err != nil {
		return false, err
	}
	return token != "", nil
}

// DeleteProfileData removes the profile's on-disk browser data.
func (m *Manager) DeleteProfileData(profileID int64) error {
	m.log.Info("deleting browser data for profile %d", profileID)
	return m.store.DeleteProfileData(profileID)
}

func waitForPort(port int, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		conn, err := net.DialTimeout("tcp", net.JoinHostPort("127.0.0.1", strconv.Itoa(port)), 500*time.Millisecond)
		if err == nil {
			conn.Close()
			return true
		}
		time.Sleep(250 * time.Millisecond)
	}
	return false
}

func ptr[T any](v T) *T { return &v }
