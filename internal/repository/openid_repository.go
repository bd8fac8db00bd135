package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/oneid-dev/oneid-api/internal/models"
)

// OpenIDRepository provides access to per-application OpenID bindings.
type OpenIDRepository struct {
	db *sqlx.DB
}

// NewOpenIDRepository creates a new instance of OpenIDRepository.
func NewOpenIDRepository(db *sqlx.DB) *OpenIDRepository {
	return &OpenIDRepository{db: db}
}

// FindByOpenID returns a binding by (openid, app_id) regardless of status.
func (r *OpenIDRepository) FindByOpenID(ctx context.Context, openid, appID string) (*models.OpenID, error) {
	const query = `SELECT openid, app_id, user_uuid, status, created_at FROM openids WHERE openid = $1 AND app_id = $2 LIMIT 1`
	var row models.OpenID
	if err := r.db.GetContext(ctx, &row, query, openid, appID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find openid: %w", err)
	}
	return &row, nil
}

// FindByUser returns the binding for (app_id, user_uuid) if one exists.
func (r *OpenIDRepository) FindByUser(ctx context.Context, appID, userUUID string) (*models.OpenID, error) {
	const query = `SELECT openid, app_id, user_uuid, status, created_at FROM openids WHERE app_id = $1 AND user_uuid = $2 LIMIT 1`
	var row models.OpenID
	if err := r.db.GetContext(ctx, &row, query, appID, userUUID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find openid by user: %w", err)
	}
	return &row, nil
}

// Create inserts a new OpenID binding. The caller supplies the generated
// openid value; this layer only persists.
func (r *OpenIDRepository) Create(ctx context.Context, row *models.OpenID) error {
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	if row.Status == "" {
		row.Status = models.OpenIDStatusActive
	}
	const query = `INSERT INTO openids (openid, app_id, user_uuid, status, created_at) VALUES (:openid, :app_id, :user_uuid, :status, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, row); err != nil {
		return fmt.Errorf("create openid: %w", err)
	}
	return nil
}
