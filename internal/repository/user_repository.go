package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/oneid-dev/oneid-api/internal/models"
)

// UserRepository provides database access to platform accounts.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository creates a new instance of UserRepository.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// FindByEmail returns a user by email address.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	const query = `SELECT uuid, email, password_hash, nickname, avatar, provider, provider_subject, active, created_at, updated_at FROM users WHERE email = $1 LIMIT 1`
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, email); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find user by email: %w", err)
	}
	return &user, nil
}

// FindByUUID returns a user by platform identifier.
func (r *UserRepository) FindByUUID(ctx context.Context, userUUID string) (*models.User, error) {
	const query = `SELECT uuid, email, password_hash, nickname, avatar, provider, provider_subject, active, created_at, updated_at FROM users WHERE uuid = $1 LIMIT 1`
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, userUUID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find user by uuid: %w", err)
	}
	return &user, nil
}

// FindByProvider returns a user by federated identity.
func (r *UserRepository) FindByProvider(ctx context.Context, provider, subject string) (*models.User, error) {
	const query = `SELECT uuid, email, password_hash, nickname, avatar, provider, provider_subject, active, created_at, updated_at FROM users WHERE provider = $1 AND provider_subject = $2 LIMIT 1`
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, provider, subject); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find user by provider: %w", err)
	}
	return &user, nil
}

// Create inserts a new user account.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	if user.UUID == "" {
		user.UUID = uuid.NewString()
	}
	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now

	const query = `INSERT INTO users (uuid, email, password_hash, nickname, avatar, provider, provider_subject, active, created_at, updated_at) VALUES (:uuid, :email, :password_hash, :nickname, :avatar, :provider, :provider_subject, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, user); err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}
