package service

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/oneid-dev/oneid-api/internal/models"
	appErrors "github.com/oneid-dev/oneid-api/pkg/errors"
)

// Token value type tags. The timestamp in the value is traceability only;
// validators treat the whole value as an opaque secret.
const (
	tokenTypeAccess  = "AT"
	tokenTypeRefresh = "RT"

	tokenTimestampLayout = "20060102150405"
)

type tokenAppAuthenticator interface {
	Authenticate(ctx context.Context, appID, secretKey string) (*models.Application, error)
}

type tokenOpenIDResolver interface {
	ResolveUser(ctx context.Context, openid, appID string) (string, error)
}

type tokenStore interface {
	FindAccessToken(ctx context.Context, token, appID string, now time.Time) (*models.AccessToken, error)
	FindAccessTokenAnyExpiry(ctx context.Context, token, appID string) (*models.AccessToken, error)
	FindRefreshToken(ctx context.Context, token, appID string) (*models.RefreshToken, error)
	CreatePair(ctx context.Context, pair *models.TokenPair) error
	RotateAccessToken(ctx context.Context, oldToken, appID string, replacement *models.AccessToken, revokedAt time.Time) error
	RevokePair(ctx context.Context, accessToken, refreshTokenID, appID string, revokedAt time.Time) error
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type loginCodeStore interface {
	ConsumeLoginCode(ctx context.Context, code string) (*models.LoginCodeGrant, error)
}

// TokenConfig defines the credential lifetimes.
type TokenConfig struct {
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// TokenService owns the token lifecycle: issuance, the chained validation
// used by every protected call, refresh rotation and logout revocation.
type TokenService struct {
	apps      tokenAppAuthenticator
	openids   tokenOpenIDResolver
	store     tokenStore
	codes     loginCodeStore
	validator *validator.Validate
	logger    *zap.Logger
	config    TokenConfig
	now       models.Clock
}

// NewTokenService constructs a TokenService instance.
func NewTokenService(apps tokenAppAuthenticator, openids tokenOpenIDResolver, store tokenStore, codes loginCodeStore, validate *validator.Validate, logger *zap.Logger, config TokenConfig) *TokenService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &TokenService{
		apps:      apps,
		openids:   openids,
		store:     store,
		codes:     codes,
		validator: validate,
		logger:    logger,
		config:    config,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the wall-clock source. Test hook.
func (s *TokenService) WithClock(clock models.Clock) *TokenService {
	s.now = clock
	return s
}

// Issue exchanges a single-use login code for a fresh token pair. Both rows
// are persisted in one transaction; a partial pair is never observable.
func (s *TokenService) Issue(ctx context.Context, req models.IssueTokenRequest, meta models.RequestMeta) (*models.IssueTokenResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Message)
	}

	if _, err := s.apps.Authenticate(ctx, req.AppID, req.SecretKey); err != nil {
		return nil, err
	}

	userUUID, err := s.openids.ResolveUser(ctx, req.OpenID, req.AppID)
	if err != nil {
		return nil, err
	}

	grant, err := s.codes.ConsumeLoginCode(ctx, req.LoginCode)
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, appErrors.ErrCodeInvalid
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Message)
	}
	// The code must have been minted for this application and this user;
	// anything else is a replay against the wrong identity.
	if grant.AppID != req.AppID || grant.UserUUID != userUUID {
		return nil, appErrors.ErrCodeInvalid
	}

	now := s.now()
	refreshValue, err := generateTokenValue(tokenTypeRefresh, now)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Message)
	}
	accessValue, err := generateTokenValue(tokenTypeAccess, now)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Message)
	}

	pair := &models.TokenPair{
		RefreshToken: &models.RefreshToken{
			Token:       refreshValue,
			AppID:       req.AppID,
			UserUUID:    userUUID,
			Permissions: grant.Permissions,
			Status:      models.TokenStatusActive,
			ExpiresAt:   now.Add(s.config.RefreshTTL),
			IssuedAt:    now,
		},
		AccessToken: &models.AccessToken{
			Token:       accessValue,
			AppID:       req.AppID,
			UserUUID:    userUUID,
			Permissions: grant.Permissions,
			Status:      models.TokenStatusActive,
			ExpiresAt:   now.Add(s.config.AccessTTL),
			IssuedAt:    now,
		},
	}

	if err := s.store.CreatePair(ctx, pair); err != nil {
		s.logger.Error("token pair persistence failed", zap.Error(err), zap.String("app_id", req.AppID), zap.String("request_id", meta.RequestID))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Message)
	}

	s.audit(ctx, models.AuditActionTokenIssue, req.AppID, userUUID, meta)

	return &models.IssueTokenResponse{
		AccessToken:  pair.AccessToken.Token,
		RefreshToken: pair.RefreshToken.Token,
		ExpiresAt:    pair.AccessToken.ExpiresAt.Unix(),
		ExpiresIn:    int64(s.config.AccessTTL.Seconds()),
	}, nil
}

// Validate runs the chained verification for a login-status check. Steps run
// in a fixed order and each failure carries its own reason: token lookup,
// OpenID resolution, then the cross-check that the token's user is the
// OpenID's user. The cross-check is what stops a valid token from being
// replayed against a different user's OpenID on the same application.
func (s *TokenService) Validate(ctx context.Context, req models.StatusRequest) (*models.StatusResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Message)
	}

	now := s.now()
	at, err := s.store.FindAccessToken(ctx, req.AccessToken, req.AppID, now)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrTokenInvalid
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Message)
	}

	userUUID, err := s.openids.ResolveUser(ctx, req.OpenID, req.AppID)
	if err != nil {
		return nil, err
	}

	if at.UserUUID != userUUID {
		return nil, appErrors.ErrTokenMismatch
	}

	remaining := at.ExpiresAt.Sub(now)
	return &models.StatusResponse{
		UserUUID:      userUUID,
		Permissions:   models.SplitPermissions(at.Permissions),
		ExpiresAt:     at.ExpiresAt.Unix(),
		RemainingTime: int64(remaining.Seconds()),
	}, nil
}

// ValidateWithPermission layers a capability check on top of the identity
// check: the named scope must have been granted at issuance.
func (s *TokenService) ValidateWithPermission(ctx context.Context, req models.StatusRequest, scope string) (*models.StatusResponse, error) {
	res, err := s.Validate(ctx, req)
	if err != nil {
		return nil, err
	}
	for _, perm := range res.Permissions {
		if perm == scope {
			return res, nil
		}
	}
	return nil, appErrors.ErrPermissionDenied
}

// Refresh rotates an access token using its still-valid refresh token. The
// ownership chain here is strict: both tokens must be ACTIVE and unexpired.
// Refresh happens before access-token expiry, never after.
func (s *TokenService) Refresh(ctx context.Context, req models.RefreshRequest, meta models.RequestMeta) (*models.RefreshResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Message)
	}

	now := s.now()
	at, err := s.store.FindAccessToken(ctx, req.AccessToken, req.AppID, now)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrTokenInvalid
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Message)
	}

	userUUID, err := s.openids.ResolveUser(ctx, req.OpenID, req.AppID)
	if err != nil {
		return nil, err
	}
	if at.UserUUID != userUUID {
		return nil, appErrors.ErrTokenMismatch
	}

	rt, err := s.store.FindRefreshToken(ctx, req.RefreshToken, req.AppID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrRefreshInvalid
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Message)
	}
	if rt.Status != models.TokenStatusActive {
		return nil, appErrors.ErrRefreshRevoked
	}
	if !rt.ExpiresAt.After(now) {
		return nil, appErrors.ErrRefreshExpired
	}
	if rt.UserUUID != userUUID {
		return nil, appErrors.ErrRefreshMismatch
	}
	if at.RefreshTokenID != rt.ID {
		return nil, appErrors.ErrPairMismatch
	}

	accessValue, err := generateTokenValue(tokenTypeAccess, now)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Message)
	}

	replacement := &models.AccessToken{
		Token:          accessValue,
		AppID:          req.AppID,
		UserUUID:       userUUID,
		RefreshTokenID: rt.ID,
		Permissions:    rt.Permissions,
		Status:         models.TokenStatusActive,
		ExpiresAt:      now.Add(s.config.AccessTTL),
		IssuedAt:       now,
	}

	if err := s.store.RotateAccessToken(ctx, req.AccessToken, req.AppID, replacement, now); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// A concurrent refresh revoked the original first; this call lost.
			return nil, appErrors.ErrTokenInvalid
		}
		s.logger.Error("access token rotation failed", zap.Error(err), zap.String("app_id", req.AppID), zap.String("request_id", meta.RequestID))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Message)
	}

	s.audit(ctx, models.AuditActionTokenRefresh, req.AppID, userUUID, meta)

	return &models.RefreshResponse{
		AccessToken: replacement.Token,
		ExpiresAt:   replacement.ExpiresAt.Unix(),
		ExpiresIn:   int64(s.config.AccessTTL.Seconds()),
	}, nil
}

// Logout revokes a token pair after the full ownership chain passes. Expiry
// on the access token is relaxed here: a technically-expired-but-unrevoked
// session must still be closable. Both rows flip to REVOKED atomically.
func (s *TokenService) Logout(ctx context.Context, req models.LogoutRequest, meta models.RequestMeta) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Message)
	}

	at, err := s.store.FindAccessTokenAnyExpiry(ctx, req.AccessToken, req.AppID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.ErrTokenInvalid
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Message)
	}

	userUUID, err := s.openids.ResolveUser(ctx, req.OpenID, req.AppID)
	if err != nil {
		return err
	}
	if at.UserUUID != userUUID {
		return appErrors.ErrTokenMismatch
	}

	rt, err := s.store.FindRefreshToken(ctx, req.RefreshToken, req.AppID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.ErrRefreshInvalid
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Message)
	}
	if rt.UserUUID != userUUID {
		return appErrors.ErrRefreshMismatch
	}
	if at.RefreshTokenID != rt.ID {
		return appErrors.ErrPairMismatch
	}

	if err := s.store.RevokePair(ctx, req.AccessToken, rt.ID, req.AppID, s.now()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.ErrTokenInvalid
		}
		s.logger.Error("token pair revocation failed", zap.Error(err), zap.String("app_id", req.AppID), zap.String("request_id", meta.RequestID))
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Message)
	}

	s.audit(ctx, models.AuditActionLogout, req.AppID, userUUID, meta)
	return nil
}

func (s *TokenService) audit(ctx context.Context, action, appID, userUUID string, meta models.RequestMeta) {
	entry := &models.AuditLog{
		UserUUID:  &userUUID,
		AppID:     appID,
		Action:    action,
		IPAddress: meta.IP,
		UserAgent: meta.UserAgent,
		RequestID: meta.RequestID,
	}
	if err := s.store.CreateAuditLog(ctx, entry); err != nil {
		s.logger.Warn("failed to record audit log", zap.Error(err), zap.String("action", action))
	}
}

func generateTokenValue(typ string, now time.Time) (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("token entropy: %w", err)
	}
	return fmt.Sprintf("%s_%s_%s", typ, now.UTC().Format(tokenTimestampLayout), hex.EncodeToString(buf)), nil
}
