package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oneid-dev/oneid-api/internal/models"
	appErrors "github.com/oneid-dev/oneid-api/pkg/errors"
)

var testMeta = models.RequestMeta{IP: "203.0.113.10", UserAgent: "test-agent", RequestID: "req-1"}

type stubApps struct {
	app *models.Application
	err error
}

func (s *stubApps) Authenticate(ctx context.Context, appID, secretKey string) (*models.Application, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.app, nil
}

type stubOpenIDs struct {
	// keyed by openid + "|" + appID
	users map[string]string
}

func (s *stubOpenIDs) ResolveUser(ctx context.Context, openid, appID string) (string, error) {
	if uuid, ok := s.users[openid+"|"+appID]; ok {
		return uuid, nil
	}
	return "", appErrors.ErrOpenIDInvalid
}

type stubCodes struct {
	grants map[string]*models.LoginCodeGrant
}

func (s *stubCodes) ConsumeLoginCode(ctx context.Context, code string) (*models.LoginCodeGrant, error) {
	grant, ok := s.grants[code]
	if !ok {
		return nil, redis.Nil
	}
	delete(s.grants, code)
	return grant, nil
}

// fakeTokenStore mirrors the repository's row semantics in memory, including
// the guarded status flips that decide concurrent refresh and repeat logout.
type fakeTokenStore struct {
	access    map[string]*models.AccessToken
	refresh   map[string]*models.RefreshToken
	logs      []*models.AuditLog
	nextID    int
	rotateErr error
}

func newFakeTokenStore() *fakeTokenStore {
	return &fakeTokenStore{
		access:  make(map[string]*models.AccessToken),
		refresh: make(map[string]*models.RefreshToken),
	}
}

func (f *fakeTokenStore) FindAccessToken(ctx context.Context, token, appID string, now time.Time) (*models.AccessToken, error) {
	at, ok := f.access[token]
	if !ok || at.AppID != appID || at.Status != models.TokenStatusActive || !at.ExpiresAt.After(now) {
		return nil, sql.ErrNoRows
	}
	return at, nil
}

func (f *fakeTokenStore) FindAccessTokenAnyExpiry(ctx context.Context, token, appID string) (*models.AccessToken, error) {
	at, ok := f.access[token]
	if !ok || at.AppID != appID || at.Status != models.TokenStatusActive {
		return nil, sql.ErrNoRows
	}
	return at, nil
}

func (f *fakeTokenStore) FindRefreshToken(ctx context.Context, token, appID string) (*models.RefreshToken, error) {
	rt, ok := f.refresh[token]
	if !ok || rt.AppID != appID {
		return nil, sql.ErrNoRows
	}
	return rt, nil
}

func (f *fakeTokenStore) CreatePair(ctx context.Context, pair *models.TokenPair) error {
	if pair.RefreshToken.ID == "" {
		f.nextID++
		pair.RefreshToken.ID = fmt.Sprintf("rt-%d", f.nextID)
	}
	pair.AccessToken.RefreshTokenID = pair.RefreshToken.ID
	f.refresh[pair.RefreshToken.Token] = pair.RefreshToken
	f.access[pair.AccessToken.Token] = pair.AccessToken
	return nil
}

func (f *fakeTokenStore) RotateAccessToken(ctx context.Context, oldToken, appID string, replacement *models.AccessToken, revokedAt time.Time) error {
	if f.rotateErr != nil {
		return f.rotateErr
	}
	at, ok := f.access[oldToken]
	if !ok || at.AppID != appID || at.Status != models.TokenStatusActive {
		return sql.ErrNoRows
	}
	at.Status = models.TokenStatusRevoked
	at.RevokedAt = &revokedAt
	f.access[replacement.Token] = replacement
	return nil
}

func (f *fakeTokenStore) RevokePair(ctx context.Context, accessToken, refreshTokenID, appID string, revokedAt time.Time) error {
	at, ok := f.access[accessToken]
	if !ok || at.AppID != appID || at.Status != models.TokenStatusActive {
		return sql.ErrNoRows
	}
	at.Status = models.TokenStatusRevoked
	at.RevokedAt = &revokedAt
	for _, rt := range f.refresh {
		if rt.ID == refreshTokenID {
			rt.Status = models.TokenStatusRevoked
			rt.RevokedAt = &revokedAt
		}
	}
	return nil
}

func (f *fakeTokenStore) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	f.logs = append(f.logs, log)
	return nil
}

type tokenFixture struct {
	svc   *TokenService
	store *fakeTokenStore
	codes *stubCodes
	now   time.Time
}

func newTokenFixture(t *testing.T) *tokenFixture {
	t.Helper()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := newFakeTokenStore()
	codes := &stubCodes{grants: map[string]*models.LoginCodeGrant{
		"code-1": {UserUUID: "user-1", AppID: "app-1", Permissions: "basic,profile,email", IssuedAt: now.Unix()},
	}}
	apps := &stubApps{app: &models.Application{AppID: "app-1", Status: models.AppStatusActive}}
	openids := &stubOpenIDs{users: map[string]string{
		"oid-1|app-1": "user-1",
		"oid-2|app-1": "user-2",
	}}
	svc := NewTokenService(apps, openids, store, codes, nil, nil, TokenConfig{
		AccessTTL:  2 * time.Hour,
		RefreshTTL: 720 * time.Hour,
	}).WithClock(func() time.Time { return now })
	return &tokenFixture{svc: svc, store: store, codes: codes, now: now}
}

func (f *tokenFixture) advance(d time.Duration) {
	f.now = f.now.Add(d)
	f.svc.WithClock(func() time.Time { return f.now })
}

func (f *tokenFixture) issue(t *testing.T) *models.IssueTokenResponse {
	t.Helper()
	res, err := f.svc.Issue(context.Background(), models.IssueTokenRequest{
		AppID:     "app-1",
		SecretKey: "sk-1",
		OpenID:    "oid-1",
		LoginCode: "code-1",
	}, testMeta)
	require.NoError(t, err)
	return res
}

func TestIssue(t *testing.T) {
	f := newTokenFixture(t)

	res := f.issue(t)

	assert.Regexp(t, `^AT_20260301120000_[0-9a-f]{32}$`, res.AccessToken)
	assert.Regexp(t, `^RT_20260301120000_[0-9a-f]{32}$`, res.RefreshToken)
	assert.Equal(t, f.now.Add(2*time.Hour).Unix(), res.ExpiresAt)
	assert.Equal(t, int64(7200), res.ExpiresIn)

	at := f.store.access[res.AccessToken]
	rt := f.store.refresh[res.RefreshToken]
	require.NotNil(t, at)
	require.NotNil(t, rt)
	assert.Equal(t, rt.ID, at.RefreshTokenID)
	assert.Equal(t, "user-1", at.UserUUID)
	assert.Equal(t, "basic,profile,email", at.Permissions)
	assert.Equal(t, f.now.Add(720*time.Hour), rt.ExpiresAt)

	require.Len(t, f.store.logs, 1)
	assert.Equal(t, models.AuditActionTokenIssue, f.store.logs[0].Action)
	assert.Equal(t, "req-1", f.store.logs[0].RequestID)
}

func TestIssueCodeSingleUse(t *testing.T) {
	f := newTokenFixture(t)
	f.issue(t)

	_, err := f.svc.Issue(context.Background(), models.IssueTokenRequest{
		AppID: "app-1", SecretKey: "sk-1", OpenID: "oid-1", LoginCode: "code-1",
	}, testMeta)
	assert.ErrorIs(t, err, appErrors.ErrCodeInvalid)
}

func TestIssueCodeMintedForOtherApp(t *testing.T) {
	f := newTokenFixture(t)
	f.codes.grants["code-1"].AppID = "app-2"

	_, err := f.svc.Issue(context.Background(), models.IssueTokenRequest{
		AppID: "app-1", SecretKey: "sk-1", OpenID: "oid-1", LoginCode: "code-1",
	}, testMeta)
	assert.ErrorIs(t, err, appErrors.ErrCodeInvalid)
}

func TestIssueCodeMintedForOtherUser(t *testing.T) {
	f := newTokenFixture(t)

	_, err := f.svc.Issue(context.Background(), models.IssueTokenRequest{
		AppID: "app-1", SecretKey: "sk-1", OpenID: "oid-2", LoginCode: "code-1",
	}, testMeta)
	assert.ErrorIs(t, err, appErrors.ErrCodeInvalid)
}

func TestIssueAppFailurePropagates(t *testing.T) {
	f := newTokenFixture(t)
	f.svc.apps = &stubApps{err: appErrors.ErrSecretMismatch}

	_, err := f.svc.Issue(context.Background(), models.IssueTokenRequest{
		AppID: "app-1", SecretKey: "wrong", OpenID: "oid-1", LoginCode: "code-1",
	}, testMeta)
	assert.ErrorIs(t, err, appErrors.ErrSecretMismatch)
}

func TestIssueUnknownOpenID(t *testing.T) {
	f := newTokenFixture(t)

	_, err := f.svc.Issue(context.Background(), models.IssueTokenRequest{
		AppID: "app-1", SecretKey: "sk-1", OpenID: "oid-unknown", LoginCode: "code-1",
	}, testMeta)
	assert.ErrorIs(t, err, appErrors.ErrOpenIDInvalid)
}

func TestIssueMissingFields(t *testing.T) {
	f := newTokenFixture(t)

	_, err := f.svc.Issue(context.Background(), models.IssueTokenRequest{AppID: "app-1"}, testMeta)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestValidate(t *testing.T) {
	f := newTokenFixture(t)
	res := f.issue(t)

	f.advance(30 * time.Minute)
	status, err := f.svc.Validate(context.Background(), models.StatusRequest{
		AccessToken: res.AccessToken, AppID: "app-1", OpenID: "oid-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "user-1", status.UserUUID)
	assert.Equal(t, []string{"basic", "profile", "email"}, status.Permissions)
	assert.Equal(t, int64(90*60), status.RemainingTime)
	assert.Equal(t, res.ExpiresAt, status.ExpiresAt)
}

func TestValidateWrongApp(t *testing.T) {
	f := newTokenFixture(t)
	res := f.issue(t)

	_, err := f.svc.Validate(context.Background(), models.StatusRequest{
		AccessToken: res.AccessToken, AppID: "app-2", OpenID: "oid-1",
	})
	assert.ErrorIs(t, err, appErrors.ErrTokenInvalid)
}

func TestValidateExpired(t *testing.T) {
	f := newTokenFixture(t)
	res := f.issue(t)

	f.advance(2*time.Hour + time.Second)
	_, err := f.svc.Validate(context.Background(), models.StatusRequest{
		AccessToken: res.AccessToken, AppID: "app-1", OpenID: "oid-1",
	})
	// Expired and nonexistent tokens are indistinguishable on purpose.
	assert.ErrorIs(t, err, appErrors.ErrTokenInvalid)
}

func TestValidateForeignOpenID(t *testing.T) {
	f := newTokenFixture(t)
	res := f.issue(t)

	_, err := f.svc.Validate(context.Background(), models.StatusRequest{
		AccessToken: res.AccessToken, AppID: "app-1", OpenID: "oid-2",
	})
	assert.ErrorIs(t, err, appErrors.ErrTokenMismatch)
}

func TestValidateWithPermission(t *testing.T) {
	f := newTokenFixture(t)
	res := f.issue(t)

	_, err := f.svc.ValidateWithPermission(context.Background(), models.StatusRequest{
		AccessToken: res.AccessToken, AppID: "app-1", OpenID: "oid-1",
	}, models.PermissionEmail)
	require.NoError(t, err)

	_, err = f.svc.ValidateWithPermission(context.Background(), models.StatusRequest{
		AccessToken: res.AccessToken, AppID: "app-1", OpenID: "oid-1",
	}, "payments")
	assert.ErrorIs(t, err, appErrors.ErrPermissionDenied)
}

func TestRefresh(t *testing.T) {
	f := newTokenFixture(t)
	res := f.issue(t)

	f.advance(time.Hour)
	refreshed, err := f.svc.Refresh(context.Background(), models.RefreshRequest{
		AccessToken: res.AccessToken, RefreshToken: res.RefreshToken, AppID: "app-1", OpenID: "oid-1",
	}, testMeta)
	require.NoError(t, err)
	assert.NotEqual(t, res.AccessToken, refreshed.AccessToken)
	assert.Equal(t, f.now.Add(2*time.Hour).Unix(), refreshed.ExpiresAt)

	// The superseded token dies immediately.
	_, err = f.svc.Validate(context.Background(), models.StatusRequest{
		AccessToken: res.AccessToken, AppID: "app-1", OpenID: "oid-1",
	})
	assert.ErrorIs(t, err, appErrors.ErrTokenInvalid)

	// The replacement stays paired to the original refresh token.
	status, err := f.svc.Validate(context.Background(), models.StatusRequest{
		AccessToken: refreshed.AccessToken, AppID: "app-1", OpenID: "oid-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "user-1", status.UserUUID)
	rt := f.store.refresh[res.RefreshToken]
	assert.Equal(t, rt.ID, f.store.access[refreshed.AccessToken].RefreshTokenID)
}

func TestRefreshRejectsExpiredAccessToken(t *testing.T) {
	f := newTokenFixture(t)
	res := f.issue(t)

	f.advance(2*time.Hour + time.Second)
	_, err := f.svc.Refresh(context.Background(), models.RefreshRequest{
		AccessToken: res.AccessToken, RefreshToken: res.RefreshToken, AppID: "app-1", OpenID: "oid-1",
	}, testMeta)
	assert.ErrorIs(t, err, appErrors.ErrTokenInvalid)
}

func TestRefreshNotRepeatableWithOldToken(t *testing.T) {
	f := newTokenFixture(t)
	res := f.issue(t)

	_, err := f.svc.Refresh(context.Background(), models.RefreshRequest{
		AccessToken: res.AccessToken, RefreshToken: res.RefreshToken, AppID: "app-1", OpenID: "oid-1",
	}, testMeta)
	require.NoError(t, err)

	_, err = f.svc.Refresh(context.Background(), models.RefreshRequest{
		AccessToken: res.AccessToken, RefreshToken: res.RefreshToken, AppID: "app-1", OpenID: "oid-1",
	}, testMeta)
	assert.ErrorIs(t, err, appErrors.ErrTokenInvalid)
}

func TestRefreshConcurrentLoser(t *testing.T) {
	f := newTokenFixture(t)
	res := f.issue(t)

	// The winning request flipped the row between lookup and rotation.
	f.store.rotateErr = sql.ErrNoRows
	_, err := f.svc.Refresh(context.Background(), models.RefreshRequest{
		AccessToken: res.AccessToken, RefreshToken: res.RefreshToken, AppID: "app-1", OpenID: "oid-1",
	}, testMeta)
	assert.ErrorIs(t, err, appErrors.ErrTokenInvalid)
}

func TestRefreshUnknownRefreshToken(t *testing.T) {
	f := newTokenFixture(t)
	res := f.issue(t)

	_, err := f.svc.Refresh(context.Background(), models.RefreshRequest{
		AccessToken: res.AccessToken, RefreshToken: "RT_bogus", AppID: "app-1", OpenID: "oid-1",
	}, testMeta)
	assert.ErrorIs(t, err, appErrors.ErrRefreshInvalid)
}

func TestRefreshRevokedRefreshToken(t *testing.T) {
	f := newTokenFixture(t)
	res := f.issue(t)

	f.store.refresh[res.RefreshToken].Status = models.TokenStatusRevoked
	_, err := f.svc.Refresh(context.Background(), models.RefreshRequest{
		AccessToken: res.AccessToken, RefreshToken: res.RefreshToken, AppID: "app-1", OpenID: "oid-1",
	}, testMeta)
	assert.ErrorIs(t, err, appErrors.ErrRefreshRevoked)
}

func TestRefreshExpiredRefreshToken(t *testing.T) {
	f := newTokenFixture(t)
	res := f.issue(t)

	// Keep the access token alive while the refresh token lapses.
	f.store.access[res.AccessToken].ExpiresAt = f.now.Add(1000 * time.Hour)
	f.store.refresh[res.RefreshToken].ExpiresAt = f.now.Add(-time.Minute)
	_, err := f.svc.Refresh(context.Background(), models.RefreshRequest{
		AccessToken: res.AccessToken, RefreshToken: res.RefreshToken, AppID: "app-1", OpenID: "oid-1",
	}, testMeta)
	assert.ErrorIs(t, err, appErrors.ErrRefreshExpired)
}

func TestRefreshForeignRefreshToken(t *testing.T) {
	f := newTokenFixture(t)
	res := f.issue(t)

	f.store.refresh[res.RefreshToken].UserUUID = "user-2"
	_, err := f.svc.Refresh(context.Background(), models.RefreshRequest{
		AccessToken: res.AccessToken, RefreshToken: res.RefreshToken, AppID: "app-1", OpenID: "oid-1",
	}, testMeta)
	assert.ErrorIs(t, err, appErrors.ErrRefreshMismatch)
}

func TestRefreshUnpairedTokens(t *testing.T) {
	f := newTokenFixture(t)
	res := f.issue(t)

	// Second pair for the same user and app.
	f.codes.grants["code-2"] = &models.LoginCodeGrant{UserUUID: "user-1", AppID: "app-1", Permissions: "basic"}
	second, err := f.svc.Issue(context.Background(), models.IssueTokenRequest{
		AppID: "app-1", SecretKey: "sk-1", OpenID: "oid-1", LoginCode: "code-2",
	}, testMeta)
	require.NoError(t, err)

	_, err = f.svc.Refresh(context.Background(), models.RefreshRequest{
		AccessToken: res.AccessToken, RefreshToken: second.RefreshToken, AppID: "app-1", OpenID: "oid-1",
	}, testMeta)
	assert.ErrorIs(t, err, appErrors.ErrPairMismatch)
}

func TestLogout(t *testing.T) {
	f := newTokenFixture(t)
	res := f.issue(t)

	err := f.svc.Logout(context.Background(), models.LogoutRequest{
		AccessToken: res.AccessToken, RefreshToken: res.RefreshToken, AppID: "app-1", OpenID: "oid-1",
	}, testMeta)
	require.NoError(t, err)

	assert.Equal(t, models.TokenStatusRevoked, f.store.access[res.AccessToken].Status)
	assert.Equal(t, models.TokenStatusRevoked, f.store.refresh[res.RefreshToken].Status)

	// Neither validation nor refresh survives a logout.
	_, err = f.svc.Validate(context.Background(), models.StatusRequest{
		AccessToken: res.AccessToken, AppID: "app-1", OpenID: "oid-1",
	})
	assert.ErrorIs(t, err, appErrors.ErrTokenInvalid)

	_, err = f.svc.Refresh(context.Background(), models.RefreshRequest{
		AccessToken: res.AccessToken, RefreshToken: res.RefreshToken, AppID: "app-1", OpenID: "oid-1",
	}, testMeta)
	assert.ErrorIs(t, err, appErrors.ErrTokenInvalid)
}

func TestLogoutRepeated(t *testing.T) {
	f := newTokenFixture(t)
	res := f.issue(t)

	req := models.LogoutRequest{
		AccessToken: res.AccessToken, RefreshToken: res.RefreshToken, AppID: "app-1", OpenID: "oid-1",
	}
	require.NoError(t, f.svc.Logout(context.Background(), req, testMeta))
	assert.ErrorIs(t, f.svc.Logout(context.Background(), req, testMeta), appErrors.ErrTokenInvalid)
}

func TestLogoutExpiredAccessToken(t *testing.T) {
	f := newTokenFixture(t)
	res := f.issue(t)

	// An expired but unrevoked session can still be closed.
	f.advance(3 * time.Hour)
	err := f.svc.Logout(context.Background(), models.LogoutRequest{
		AccessToken: res.AccessToken, RefreshToken: res.RefreshToken, AppID: "app-1", OpenID: "oid-1",
	}, testMeta)
	require.NoError(t, err)
	assert.Equal(t, models.TokenStatusRevoked, f.store.access[res.AccessToken].Status)
}

func TestLogoutUnpairedTokens(t *testing.T) {
	f := newTokenFixture(t)
	res := f.issue(t)

	f.codes.grants["code-2"] = &models.LoginCodeGrant{UserUUID: "user-1", AppID: "app-1", Permissions: "basic"}
	second, err := f.svc.Issue(context.Background(), models.IssueTokenRequest{
		AppID: "app-1", SecretKey: "sk-1", OpenID: "oid-1", LoginCode: "code-2",
	}, testMeta)
	require.NoError(t, err)

	err = f.svc.Logout(context.Background(), models.LogoutRequest{
		AccessToken: res.AccessToken, RefreshToken: second.RefreshToken, AppID: "app-1", OpenID: "oid-1",
	}, testMeta)
	assert.ErrorIs(t, err, appErrors.ErrPairMismatch)

	// The mismatch attempt must not have touched either pair.
	assert.Equal(t, models.TokenStatusActive, f.store.access[res.AccessToken].Status)
	assert.Equal(t, models.TokenStatusActive, f.store.refresh[second.RefreshToken].Status)
}

func TestLogoutForeignOpenID(t *testing.T) {
	f := newTokenFixture(t)
	res := f.issue(t)

	err := f.svc.Logout(context.Background(), models.LogoutRequest{
		AccessToken: res.AccessToken, RefreshToken: res.RefreshToken, AppID: "app-1", OpenID: "oid-2",
	}, testMeta)
	assert.ErrorIs(t, err, appErrors.ErrTokenMismatch)
}
