package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/Masterminds/squirrel"

	"github.com/mlindner/flowsync/internal/logger"
	"github.com/mlindner/flowsync/internal/models"
	"github.com/mlindner/flowsync/internal/repository"
)

var sqlBuilder = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question)

const profileColumns = `id, name, email, proxy_enabled, proxy_url, is_active, is_logged_in,
       last_token, last_token_time, last_sync_time, last_sync_result, sync_count, error_count, created_at`

type profileRepository struct {
	db *sql.DB
}

// NewProfileRepository creates a new ProfileRepository implementation
func NewProfileRepository(db *sql.DB) repository.ProfileRepository {
	return &profileRepository{db: db}
}

func scanProfile(row interface{ Scan(...any) error }) (*models.Profile, error) {
	var p models.Profile
	err := row.Scan(&p.ID, &p.Name, &p.Email, &p.ProxyEnabled, &p.ProxyURL,
		&p.IsActive, &p.IsLoggedIn, &p.LastToken, &p.LastTokenTime,
		&p.LastSyncTime, &p.LastSyncResult, &p.SyncCount, &p.ErrorCount, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *profileRepository) Get(ctx context.Context, id int64) (*models.Profile, error) {
	log := logger.FromContext(ctx).WithPrefix("profile_repo")
	log.Debug("getting profile: id=%d", id)

	row := r.db.QueryRowContext(ctx, `
SELECT `+profileColumns+`
FROM profiles
WHERE id = ?
`, id)
	p, err := scanProfile(row)
	if errors.Is(err, sql.ErrNoRows) {
		log.Debug("profile not found: id=%d", id)
		return nil, nil
	}
	if err != nil {
		log.Error("failed to get profile: %v", err)
		return nil, err
	}
	return p, nil
}

func (r *profileRepository) List(ctx context.Context) ([]models.Profile, error) {
	return r.list(ctx, false)
}

func (r *profileRepository) ListActive(ctx context.Context) ([]models.Profile, error) {
	return r.list(ctx, true)
}

func (r *profileRepository) list(ctx context.Context, activeOnly bool) ([]models.Profile, error) {
	log := logger.FromContext(ctx).WithPrefix("profile_repo")
	log.Debug("listing profiles: active_only=%v", activeOnly)

	query := `SELECT ` + profileColumns + ` FROM profiles`
	if activeOnly {
		query += ` WHERE is_active = 1`
	}
	// Creation order is the batch iteration order for syncs.
	query += ` ORDER BY created_at ASC, id ASC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		log.Error("failed to list profiles: %v", err)
		return nil, err
	}
	defer rows.Close()

	var profiles []models.Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			log.Error("failed to scan profile row: %v", err)
			return nil, err
		}
		profiles = append(profiles, *p)
	}

	log.Debug("found %d profiles", len(profiles))
	return profiles, rows.Err()
}

func (r *profileRepository) Create(ctx context.Context, name string, proxyEnabled bool, proxyURL string) (*models.Profile, error) {
	log := logger.FromContext(ctx).WithPrefix("profile_repo")
	log.Debug("creating profile: name=%s", name)

	row := r.db.QueryRowContext(ctx, `
INSERT INTO profiles (name, proxy_enabled, proxy_url)
VALUES (?, ?, ?)
RETURNING `+profileColumns+`
`, name, proxyEnabled, proxyURL)
	p, err := scanProfile(row)
	if err != nil {
		log.Error("failed to create profile: %v", err)
		return nil, err
	}
	log.Debug("profile created: id=%d", p.ID)
	return p, nil
}

func (r *profileRepository) Update(ctx context.Context, id int64, upd models.ProfileUpdate) error {
	log := logger.FromContext(ctx).WithPrefix("profile_repo")

	if upd.IsEmpty() {
		log.Debug("empty update for profile %d, skipping", id)
		return nil
	}

	query := sqlBuilder.Update("profiles").Where(squirrel.Eq{"id": id})
	if upd.Email != nil {
		query = query.Set("email", *upd.Email)
	}
	if upd.ProxyEnabled != nil {
		query = query.Set("proxy_enabled", *upd.ProxyEnabled)
	}
	if upd.ProxyURL != nil {
		query = query.Set("proxy_url", *upd.ProxyURL)
	}
	if upd.IsLoggedIn != nil {
		query = query.Set("is_logged_in", *upd.IsLoggedIn)
	}
	if upd.LastToken != nil {
		query = query.Set("last_token", *upd.LastToken)
	}
	if upd.LastTokenTime != nil {
		query = query.Set("last_token_time", *upd.LastTokenTime)
	}
	if upd.LastSyncTime != nil {
		query = query.Set("last_sync_time", *upd.LastSyncTime)
	}
	if upd.LastSyncResult != nil {
		query = query.Set("last_sync_result", *upd.LastSyncResult)
	}
	if upd.SyncCount != nil {
		query = query.Set("sync_count", *upd.SyncCount)
	}
	if upd.ErrorCount != nil {
		query = query.Set("error_count", *upd.ErrorCount)
	}

	sqlStr, args, err := query.ToSql()
	if err != nil {
		log.Error("failed to build profile update: %v", err)
		return err
	}

	res, err := r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		log.Error("failed to update profile %d: %v", id, err)
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		log.Debug("update matched no rows: id=%d", id)
		return sql.ErrNoRows
	}
	log.Debug("profile %d updated", id)
	return nil
}

func (r *profileRepository) SetActive(ctx context.Context, id int64, active bool) error {
	log := logger.FromContext(ctx).WithPrefix("profile_repo")
	log.Debug("setting profile active: id=%d active=%v", id, active)

	res, err := r.db.ExecContext(ctx, `UPDATE profiles SET is_active = ? WHERE id = ?`, active, id)
	if err != nil {
		log.Error("failed to set profile active: %v", err)
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *profileRepository) Delete(ctx context.Context, id int64) error {
	log := logger.FromContext(ctx).WithPrefix("profile_repo")
	log.Debug("deleting profile: id=%d", id)

	res, err := r.db.ExecContext(ctx, `DELETE FROM profiles WHERE id = ?`, id)
	if err != nil {
		log.Error("failed to delete profile %d: %v", id, err)
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	log.Debug("profile %d deleted", id)
	return nil
}
