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

// TokenRepository persists access and refresh tokens. All multi-row writes
// run inside a single transaction: a crash mid-operation must never leave a
// half-issued pair or a half-rotated token observable.
type TokenRepository struct {
	db *sqlx.DB
}

// NewTokenRepository creates a new instance of TokenRepository.
func NewTokenRepository(db *sqlx.DB) *TokenRepository {
	return &TokenRepository{db: db}
}

// FindAccessToken returns an ACTIVE, unexpired access token by value and
// application. "not found" and "expired" deliberately share one predicate;
// callers cannot tell a wrong token from a late one.
func (r *TokenRepository) FindAccessToken(ctx context.Context, token, appID string, now time.Time) (*models.AccessToken, error) {
	const query = `SELECT token, app_id, user_uuid, refresh_token_id, permissions, status, expires_at, issued_at, revoked_at FROM access_tokens WHERE token = $1 AND app_id = $2 AND status = $3 AND expires_at > $4 LIMIT 1`
	var at models.AccessToken
	if err := r.db.GetContext(ctx, &at, query, token, appID, models.TokenStatusActive, now); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find access token: %w", err)
	}
	return &at, nil
}

// FindAccessTokenAnyExpiry returns an ACTIVE access token regardless of
// expiry. Logout uses it so an expired-but-unrevoked session can still be
// closed.
func (r *TokenRepository) FindAccessTokenAnyExpiry(ctx context.Context, token, appID string) (*models.AccessToken, error) {
	const query = `SELECT token, app_id, user_uuid, refresh_token_id, permissions, status, expires_at, issued_at, revoked_at FROM access_tokens WHERE token = $1 AND app_id = $2 AND status = $3 LIMIT 1`
	var at models.AccessToken
	if err := r.db.GetContext(ctx, &at, query, token, appID, models.TokenStatusActive); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find access token any expiry: %w", err)
	}
	return &at, nil
}

// FindRefreshToken returns a refresh token by value and application
// regardless of status or expiry; the caller attributes the exact failure.
func (r *TokenRepository) FindRefreshToken(ctx context.Context, token, appID string) (*models.RefreshToken, error) {
	const query = `SELECT id, token, app_id, user_uuid, permissions, status, expires_at, issued_at, revoked_at FROM refresh_tokens WHERE token = $1 AND app_id = $2 LIMIT 1`
	var rt models.RefreshToken
	if err := r.db.GetContext(ctx, &rt, query, token, appID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find refresh token: %w", err)
	}
	return &rt, nil
}

// CreatePair inserts a refresh token and its owning access token atomically.
func (r *TokenRepository) CreatePair(ctx context.Context, pair *models.TokenPair) error {
	if pair.RefreshToken.ID == "" {
		pair.RefreshToken.ID = uuid.NewString()
	}
	pair.AccessToken.RefreshTokenID = pair.RefreshToken.ID

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin issue tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const insertRefresh = `INSERT INTO refresh_tokens (id, token, app_id, user_uuid, permissions, status, expires_at, issued_at) VALUES (:id, :token, :app_id, :user_uuid, :permissions, :status, :expires_at, :issued_at)`
	if _, err := tx.NamedExecContext(ctx, insertRefresh, pair.RefreshToken); err != nil {
		return fmt.Errorf("insert refresh token: %w", err)
	}

	const insertAccess = `INSERT INTO access_tokens (token, app_id, user_uuid, refresh_token_id, permissions, status, expires_at, issued_at) VALUES (:token, :app_id, :user_uuid, :refresh_token_id, :permissions, :status, :expires_at, :issued_at)`
	if _, err := tx.NamedExecContext(ctx, insertAccess, pair.AccessToken); err != nil {
		return fmt.Errorf("insert access token: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit issue tx: %w", err)
	}
	return nil
}

// RotateAccessToken revokes the superseded access token and inserts its
// replacement in one transaction. The revoke is guarded on status = ACTIVE:
// of two concurrent refreshes using the same original token, exactly one
// flips the row; the other sees zero rows affected and gets sql.ErrNoRows.
func (r *TokenRepository) RotateAccessToken(ctx context.Context, oldToken, appID string, replacement *models.AccessToken, revokedAt time.Time) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin rotate tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const revoke = `UPDATE access_tokens SET status = $1, revoked_at = $2 WHERE token = $3 AND app_id = $4 AND status = $5`
	res, err := tx.ExecContext(ctx, revoke, models.TokenStatusRevoked, revokedAt, oldToken, appID, models.TokenStatusActive)
	if err != nil {
		return fmt.Errorf("revoke superseded access token: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("revoke superseded access token: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}

	const insert = `INSERT INTO access_tokens (token, app_id, user_uuid, refresh_token_id, permissions, status, expires_at, issued_at) VALUES (:token, :app_id, :user_uuid, :refresh_token_id, :permissions, :status, :expires_at, :issued_at)`
	if _, err := tx.NamedExecContext(ctx, insert, replacement); err != nil {
		return fmt.Errorf("insert replacement access token: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit rotate tx: %w", err)
	}
	return nil
}

// RevokePair flips both tokens of a pair to REVOKED atomically. The access
// token update is guarded on status = ACTIVE so a repeated logout reports
// sql.ErrNoRows instead of silently succeeding.
func (r *TokenRepository) RevokePair(ctx context.Context, accessToken, refreshTokenID, appID string, revokedAt time.Time) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin revoke tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const revokeAccess = `UPDATE access_tokens SET status = $1, revoked_at = $2 WHERE token = $3 AND app_id = $4 AND status = $5`
	res, err := tx.ExecContext(ctx, revokeAccess, models.TokenStatusRevoked, revokedAt, accessToken, appID, models.TokenStatusActive)
	if err != nil {
		return fmt.Errorf("revoke access token: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("revoke access token: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}

	const revokeRefresh = `UPDATE refresh_tokens SET status = $1, revoked_at = $2 WHERE id = $3`
	if _, err := tx.ExecContext(ctx, revokeRefresh, models.TokenStatusRevoked, revokedAt, refreshTokenID); err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit revoke tx: %w", err)
	}
	return nil
}

// CreateAuditLog stores an audit trail entry.
func (r *TokenRepository) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	if log.ID == "" {
		log.ID = uuid.NewString()
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO audit_logs (id, user_uuid, app_id, action, detail, ip_address, user_agent, request_id, created_at) VALUES (:id, :user_uuid, :app_id, :action, :detail, :ip_address, :user_agent, :request_id, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, log); err != nil {
		return fmt.Errorf("create audit log: %w", err)
	}
	return nil
}
