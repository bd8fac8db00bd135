package service

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/oneid-dev/oneid-api/internal/models"
	appErrors "github.com/oneid-dev/oneid-api/pkg/errors"
)

type openIDRepository interface {
	FindByOpenID(ctx context.Context, openid, appID string) (*models.OpenID, error)
	FindByUser(ctx context.Context, appID, userUUID string) (*models.OpenID, error)
	Create(ctx context.Context, row *models.OpenID) error
}

// OpenIDService maps per-application pseudonymous identifiers to users.
type OpenIDService struct {
	repo   openIDRepository
	logger *zap.Logger
}

// NewOpenIDService constructs an OpenIDService instance.
func NewOpenIDService(repo openIDRepository, logger *zap.Logger) *OpenIDService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OpenIDService{repo: repo, logger: logger}
}

// ResolveUser returns the user behind (openid, app_id). Only ACTIVE bindings
// resolve; absent and revoked rows are indistinguishable to the caller.
func (s *OpenIDService) ResolveUser(ctx context.Context, openid, appID string) (string, error) {
	row, err := s.repo.FindByOpenID(ctx, openid, appID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", appErrors.ErrOpenIDInvalid
		}
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Message)
	}
	if row.Status != models.OpenIDStatusActive {
		return "", appErrors.ErrOpenIDInvalid
	}
	return row.UserUUID, nil
}

// BindOrCreate returns the OpenID bound for (app, user), creating one on a
// user's first login with that application. A revoked binding blocks the
// login rather than minting a second identifier.
func (s *OpenIDService) BindOrCreate(ctx context.Context, appID, userUUID string) (*models.OpenID, error) {
	row, err := s.repo.FindByUser(ctx, appID, userUUID)
	if err == nil {
		if row.Status != models.OpenIDStatusActive {
			return nil, appErrors.ErrOpenIDInvalid
		}
		return row, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Message)
	}

	value, err := generateOpenIDValue()
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Message)
	}

	row = &models.OpenID{
		OpenID:   value,
		AppID:    appID,
		UserUUID: userUUID,
		Status:   models.OpenIDStatusActive,
	}
	if err := s.repo.Create(ctx, row); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Message)
	}

	s.logger.Info("openid bound", zap.String("app_id", appID), zap.String("openid", row.OpenID))
	return row, nil
}

func generateOpenIDValue() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("openid entropy: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
