package service

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/oneid-dev/oneid-api/internal/models"
	appErrors "github.com/oneid-dev/oneid-api/pkg/errors"
)

const defaultScope = models.PermissionBasic + "," + models.PermissionProfile

type accountUserRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByProvider(ctx context.Context, provider, subject string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
}

type accountCodeStore interface {
	SaveLoginCode(ctx context.Context, code string, grant *models.LoginCodeGrant, ttl time.Duration) error
}

type accountOpenIDBinder interface {
	BindOrCreate(ctx context.Context, appID, userUUID string) (*models.OpenID, error)
}

type accountAuditSink interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type stateTokenIssuer interface {
	Issue(appID, provider, scope string) (string, error)
	Verify(tokenString string) (*StateClaims, error)
}

// AccountService authenticates platform accounts and converts successful
// logins into the single-use codes applications exchange for token pairs.
type AccountService struct {
	apps      tokenAppAuthenticator
	users     accountUserRepository
	openids   accountOpenIDBinder
	codes     accountCodeStore
	states    stateTokenIssuer
	audit     accountAuditSink
	validator *validator.Validate
	logger    *zap.Logger
	codeTTL   time.Duration
}

// NewAccountService constructs an AccountService instance.
func NewAccountService(apps tokenAppAuthenticator, users accountUserRepository, openids accountOpenIDBinder, codes accountCodeStore, states stateTokenIssuer, audit accountAuditSink, validate *validator.Validate, logger *zap.Logger, codeTTL time.Duration) *AccountService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &AccountService{
		apps:      apps,
		users:     users,
		openids:   openids,
		codes:     codes,
		states:    states,
		audit:     audit,
		validator: validate,
		logger:    logger,
		codeTTL:   codeTTL,
	}
}

// Login verifies an email/password pair on behalf of an application and
// returns the bound OpenID plus a login code. Wrong email and wrong password
// are indistinguishable to the caller.
func (s *AccountService) Login(ctx context.Context, req models.LoginRequest, meta models.RequestMeta) (*models.LoginResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Message)
	}

	if _, err := s.apps.Authenticate(ctx, req.AppID, req.SecretKey); err != nil {
		return nil, err
	}

	user, err := s.users.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrLoginFailed
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Message)
	}
	if !user.Active {
		return nil, appErrors.ErrLoginFailed
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, appErrors.ErrLoginFailed
	}

	return s.completeLogin(ctx, req.AppID, user.UUID, req.Scope, models.AuditActionLogin, meta)
}

// FederatedAuthorize starts a federated login by minting the continuation
// token the caller carries through the provider redirect.
func (s *AccountService) FederatedAuthorize(ctx context.Context, req models.FederatedAuthorizeRequest) (string, error) {
	if err := s.validator.Struct(req); err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Message)
	}

	if _, err := s.apps.Authenticate(ctx, req.AppID, req.SecretKey); err != nil {
		return "", err
	}

	return s.states.Issue(req.AppID, req.Provider, req.Scope)
}

// FederatedCallback completes a federated login: it verifies the
// continuation token, finds or creates the platform account behind the
// provider subject, binds the OpenID and emits a login code.
func (s *AccountService) FederatedCallback(ctx context.Context, req models.FederatedCallbackRequest, meta models.RequestMeta) (*models.LoginResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Message)
	}

	claims, err := s.states.Verify(req.State)
	if err != nil {
		return nil, err
	}

	user, err := s.users.FindByProvider(ctx, claims.Provider, req.Subject)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Message)
		}
		user = &models.User{
			Email:           req.Email,
			Nickname:        req.Nickname,
			Avatar:          req.Avatar,
			Provider:        claims.Provider,
			ProviderSubject: req.Subject,
			Active:          true,
		}
		if err := s.users.Create(ctx, user); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Message)
		}
		s.logger.Info("federated account created", zap.String("provider", claims.Provider), zap.String("user_uuid", user.UUID))
	}
	if !user.Active {
		return nil, appErrors.ErrLoginFailed
	}

	return s.completeLogin(ctx, claims.AppID, user.UUID, claims.Scope, models.AuditActionFederatedLogin, meta)
}

func (s *AccountService) completeLogin(ctx context.Context, appID, userUUID, scope, action string, meta models.RequestMeta) (*models.LoginResponse, error) {
	binding, err := s.openids.BindOrCreate(ctx, appID, userUUID)
	if err != nil {
		return nil, err
	}

	if scope == "" {
		scope = defaultScope
	}

	code, err := generateLoginCode()
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Message)
	}

	grant := &models.LoginCodeGrant{
		UserUUID:    userUUID,
		AppID:       appID,
		Permissions: scope,
		IssuedAt:    time.Now().Unix(),
	}
	if err := s.codes.SaveLoginCode(ctx, code, grant, s.codeTTL); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Message)
	}

	entry := &models.AuditLog{
		UserUUID:  &userUUID,
		AppID:     appID,
		Action:    action,
		IPAddress: meta.IP,
		UserAgent: meta.UserAgent,
		RequestID: meta.RequestID,
	}
	if err := s.audit.CreateAuditLog(ctx, entry); err != nil {
		s.logger.Warn("failed to record login audit log", zap.Error(err))
	}

	return &models.LoginResponse{
		OpenID:    binding.OpenID,
		LoginCode: code,
		ExpiresIn: int64(s.codeTTL.Seconds()),
	}, nil
}

func generateLoginCode() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
