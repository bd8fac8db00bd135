package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/oneid-dev/oneid-api/internal/models"
)

// ApplicationRepository provides read access to registered applications.
// Application rows are administered elsewhere; this service never writes them.
type ApplicationRepository struct {
	db *sqlx.DB
}

// NewApplicationRepository creates a new instance of ApplicationRepository.
func NewApplicationRepository(db *sqlx.DB) *ApplicationRepository {
	return &ApplicationRepository{db: db}
}

// FindByAppID returns an application by its external identifier.
func (r *ApplicationRepository) FindByAppID(ctx context.Context, appID string) (*models.Application, error) {
	const query = `SELECT app_id, secret_key, name, status, created_at, updated_at FROM applications WHERE app_id = $1 LIMIT 1`
	var app models.Application
	if err := r.db.GetContext(ctx, &app, query, appID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find application by app_id: %w", err)
	}
	return &app, nil
}
