package service

import (
	"context"
	"crypto/subtle"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/oneid-dev/oneid-api/internal/models"
	appErrors "github.com/oneid-dev/oneid-api/pkg/errors"
)

type appRepository interface {
	FindByAppID(ctx context.Context, appID string) (*models.Application, error)
}

// AppService authenticates relying applications. Every flow that accepts an
// app_id plus secret key passes through here first.
type AppService struct {
	repo   appRepository
	logger *zap.Logger
}

// NewAppService constructs an AppService instance.
func NewAppService(repo appRepository, logger *zap.Logger) *AppService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AppService{repo: repo, logger: logger}
}

// Authenticate verifies an application's identity and operating status.
// Checks run in a fixed order and the first failure wins: existence, not
// banned, not pending review, secret match. No side effects.
func (s *AppService) Authenticate(ctx context.Context, appID, secretKey string) (*models.Application, error) {
	app, err := s.repo.FindByAppID(ctx, appID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrAppNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Message)
	}

	if app.Status == models.AppStatusBanned {
		return nil, appErrors.ErrAppBanned
	}
	if app.Status == models.AppStatusPendingReview {
		return nil, appErrors.ErrAppPending
	}

	if subtle.ConstantTimeCompare([]byte(app.SecretKey), []byte(secretKey)) != 1 {
		return nil, appErrors.ErrSecretMismatch
	}

	return app, nil
}
