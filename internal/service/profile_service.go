package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/oneid-dev/oneid-api/internal/models"
	appErrors "github.com/oneid-dev/oneid-api/pkg/errors"
)

type profileUserRepository interface {
	FindByUUID(ctx context.Context, userUUID string) (*models.User, error)
}

type profileTokenValidator interface {
	ValidateWithPermission(ctx context.Context, req models.StatusRequest, scope string) (*models.StatusResponse, error)
}

// ProfileService serves the permission-gated user attributes an application
// may fetch with a valid token. Each attribute is gated on its own scope.
type ProfileService struct {
	apps      tokenAppAuthenticator
	tokens    profileTokenValidator
	users     profileUserRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewProfileService constructs a ProfileService instance.
func NewProfileService(apps tokenAppAuthenticator, tokens profileTokenValidator, users profileUserRepository, validate *validator.Validate, logger *zap.Logger) *ProfileService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &ProfileService{apps: apps, tokens: tokens, users: users, validator: validate, logger: logger}
}

// GetEmail returns the user's email address; requires the email scope.
func (s *ProfileService) GetEmail(ctx context.Context, req models.ResourceRequest) (string, error) {
	user, err := s.fetchUser(ctx, req, models.PermissionEmail)
	if err != nil {
		return "", err
	}
	return user.Email, nil
}

// GetProfile returns nickname and avatar; requires the profile scope.
func (s *ProfileService) GetProfile(ctx context.Context, req models.ResourceRequest) (map[string]string, error) {
	user, err := s.fetchUser(ctx, req, models.PermissionProfile)
	if err != nil {
		return nil, err
	}
	return map[string]string{
		"nickname": user.Nickname,
		"avatar":   user.Avatar,
	}, nil
}

func (s *ProfileService) fetchUser(ctx context.Context, req models.ResourceRequest, scope string) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Message)
	}

	if _, err := s.apps.Authenticate(ctx, req.AppID, req.SecretKey); err != nil {
		return nil, err
	}

	status, err := s.tokens.ValidateWithPermission(ctx, models.StatusRequest{
		AccessToken: req.AccessToken,
		AppID:       req.AppID,
		OpenID:      req.OpenID,
	}, scope)
	if err != nil {
		return nil, err
	}

	user, err := s.users.FindByUUID(ctx, status.UserUUID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrOpenIDInvalid
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Message)
	}
	return user, nil
}
