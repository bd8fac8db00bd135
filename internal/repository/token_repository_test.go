package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oneid-dev/oneid-api/internal/models"
)

func newMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	sqlxdb := sqlx.NewDb(db, "sqlmock")
	return sqlxdb, mock, func() {
		db.Close()
	}
}

func accessTokenRows(at *models.AccessToken) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"token", "app_id", "user_uuid", "refresh_token_id", "permissions", "status", "expires_at", "issued_at", "revoked_at"}).
		AddRow(at.Token, at.AppID, at.UserUUID, at.RefreshTokenID, at.Permissions, string(at.Status), at.ExpiresAt, at.IssuedAt, nil)
}

func TestFindAccessToken(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewTokenRepository(db)

	now := time.Now().UTC()
	at := &models.AccessToken{
		Token:          "AT_20260101000000_aabbccdd",
		AppID:          "app1",
		UserUUID:       "u1",
		RefreshTokenID: "rt1",
		Permissions:    "basic,email",
		Status:         models.TokenStatusActive,
		ExpiresAt:      now.Add(time.Hour),
		IssuedAt:       now,
	}

	mock.ExpectQuery(regexp.QuoteMeta("SELECT token, app_id, user_uuid, refresh_token_id, permissions, status, expires_at, issued_at, revoked_at FROM access_tokens WHERE token = $1 AND app_id = $2 AND status = $3 AND expires_at > $4 LIMIT 1")).
		WithArgs(at.Token, "app1", string(models.TokenStatusActive), now).
		WillReturnRows(accessTokenRows(at))

	got, err := repo.FindAccessToken(context.Background(), at.Token, "app1", now)
	require.NoError(t, err)
	assert.Equal(t, "u1", got.UserUUID)
	assert.Equal(t, "rt1", got.RefreshTokenID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindAccessTokenMissing(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewTokenRepository(db)

	now := time.Now().UTC()
	mock.ExpectQuery("SELECT (.+) FROM access_tokens").WillReturnError(sql.ErrNoRows)

	_, err := repo.FindAccessToken(context.Background(), "nope", "app1", now)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreatePair(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewTokenRepository(db)

	now := time.Now().UTC()
	pair := &models.TokenPair{
		RefreshToken: &models.RefreshToken{
			Token:       "RT_20260101000000_eeff0011",
			AppID:       "app1",
			UserUUID:    "u1",
			Permissions: "basic",
			Status:      models.TokenStatusActive,
			ExpiresAt:   now.Add(720 * time.Hour),
			IssuedAt:    now,
		},
		AccessToken: &models.AccessToken{
			Token:       "AT_20260101000000_aabbccdd",
			AppID:       "app1",
			UserUUID:    "u1",
			Permissions: "basic",
			Status:      models.TokenStatusActive,
			ExpiresAt:   now.Add(2 * time.Hour),
			IssuedAt:    now,
		},
	}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO refresh_tokens").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO access_tokens").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err := repo.CreatePair(context.Background(), pair)
	require.NoError(t, err)
	assert.NotEmpty(t, pair.RefreshToken.ID)
	assert.Equal(t, pair.RefreshToken.ID, pair.AccessToken.RefreshTokenID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreatePairRollsBackOnAccessInsertFailure(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewTokenRepository(db)

	now := time.Now().UTC()
	pair := &models.TokenPair{
		RefreshToken: &models.RefreshToken{Token: "RT_x", AppID: "app1", UserUUID: "u1", Status: models.TokenStatusActive, ExpiresAt: now.Add(time.Hour), IssuedAt: now},
		AccessToken:  &models.AccessToken{Token: "AT_x", AppID: "app1", UserUUID: "u1", Status: models.TokenStatusActive, ExpiresAt: now.Add(time.Minute), IssuedAt: now},
	}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO refresh_tokens").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO access_tokens").WillReturnError(sql.ErrConnDone)
	mock.ExpectRollback()

	err := repo.CreatePair(context.Background(), pair)
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRotateAccessToken(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewTokenRepository(db)

	now := time.Now().UTC()
	replacement := &models.AccessToken{
		Token:          "AT_20260101010000_11223344",
		AppID:          "app1",
		UserUUID:       "u1",
		RefreshTokenID: "rt1",
		Permissions:    "basic",
		Status:         models.TokenStatusActive,
		ExpiresAt:      now.Add(2 * time.Hour),
		IssuedAt:       now,
	}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE access_tokens SET status = $1, revoked_at = $2 WHERE token = $3 AND app_id = $4 AND status = $5")).
		WithArgs(string(models.TokenStatusRevoked), now, "AT_old", "app1", string(models.TokenStatusActive)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO access_tokens").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err := repo.RotateAccessToken(context.Background(), "AT_old", "app1", replacement, now)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRotateAccessTokenAlreadyRevoked(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewTokenRepository(db)

	now := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE access_tokens SET status").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.RotateAccessToken(context.Background(), "AT_old", "app1", &models.AccessToken{}, now)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRevokePair(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewTokenRepository(db)

	now := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE access_tokens SET status").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE refresh_tokens SET status").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.RevokePair(context.Background(), "AT_x", "rt1", "app1", now)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRevokePairRepeatedLogout(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewTokenRepository(db)

	now := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE access_tokens SET status").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.RevokePair(context.Background(), "AT_x", "rt1", "app1", now)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateAuditLog(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewTokenRepository(db)

	mock.ExpectExec("INSERT INTO audit_logs").WillReturnResult(sqlmock.NewResult(1, 1))

	user := "u1"
	err := repo.CreateAuditLog(context.Background(), &models.AuditLog{UserUUID: &user, AppID: "app1", Action: models.AuditActionTokenIssue})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
