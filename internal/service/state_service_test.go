package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/oneid-dev/oneid-api/pkg/errors"
)

func newStateFixture(secret string) (*StateService, *time.Time) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc := NewStateService(StateConfig{Secret: secret, TTL: 10 * time.Minute}).
		WithClock(func() time.Time { return now })
	return svc, &now
}

func TestStateRoundTrip(t *testing.T) {
	svc, _ := newStateFixture("test-secret")

	token, err := svc.Issue("app-1", "google", "basic,email")
	require.NoError(t, err)

	claims, err := svc.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "app-1", claims.AppID)
	assert.Equal(t, "google", claims.Provider)
	assert.Equal(t, "basic,email", claims.Scope)
	assert.NotEmpty(t, claims.ID)
}

func TestStateExpired(t *testing.T) {
	svc, now := newStateFixture("test-secret")

	token, err := svc.Issue("app-1", "github", "basic")
	require.NoError(t, err)

	*now = now.Add(11 * time.Minute)
	_, err = svc.Verify(token)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrStateInvalid.Code, appErrors.FromError(err).Code)
}

func TestStateTampered(t *testing.T) {
	svc, _ := newStateFixture("test-secret")

	token, err := svc.Issue("app-1", "github", "basic")
	require.NoError(t, err)

	_, err = svc.Verify(token + "x")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrStateInvalid.Code, appErrors.FromError(err).Code)
}

func TestStateForeignSecret(t *testing.T) {
	issuer, _ := newStateFixture("secret-a")
	verifier, _ := newStateFixture("secret-b")

	token, err := issuer.Issue("app-1", "qq", "basic")
	require.NoError(t, err)

	_, err = verifier.Verify(token)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrStateInvalid.Code, appErrors.FromError(err).Code)
}
