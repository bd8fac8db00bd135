package service

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/oneid-dev/oneid-api/internal/models"
	appErrors "github.com/oneid-dev/oneid-api/pkg/errors"
)

// StateClaims is the payload of a federated-login continuation token. The
// token replaces server-side session state: everything the callback needs to
// finish the login travels inside the signed value itself.
type StateClaims struct {
	AppID    string `json:"app_id"`
	Provider string `json:"provider"`
	Scope    string `json:"scope"`
	jwt.RegisteredClaims
}

// StateConfig configures continuation token signing.
type StateConfig struct {
	Secret string
	TTL    time.Duration
}

// StateService issues and verifies the short-lived signed continuation
// tokens carried through a federated-login redirect.
type StateService struct {
	config StateConfig
	now    models.Clock
}

// NewStateService constructs a StateService instance.
func NewStateService(config StateConfig) *StateService {
	return &StateService{
		config: config,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the wall-clock source. Test hook.
func (s *StateService) WithClock(clock models.Clock) *StateService {
	s.now = clock
	return s
}

// Issue mints a continuation token binding the pending login to one
// application, provider and scope set. The nonce makes each token single
// purpose even when parameters repeat.
func (s *StateService) Issue(appID, provider, scope string) (string, error) {
	now := s.now()
	claims := &StateClaims{
		AppID:    appID,
		Provider: provider,
		Scope:    scope,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.config.TTL)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.config.Secret))
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Message)
	}
	return signed, nil
}

// Verify parses a continuation token and returns its claims. Expired,
// tampered and foreign-signed tokens all collapse into one failure.
func (s *StateService) Verify(tokenString string) (*StateClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &StateClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.Secret), nil
	}, jwt.WithTimeFunc(func() time.Time { return s.now() }))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStateInvalid.Code, appErrors.ErrStateInvalid.Message)
	}

	claims, ok := token.Claims.(*StateClaims)
	if !ok || !token.Valid {
		return nil, appErrors.ErrStateInvalid
	}
	return claims, nil
}
