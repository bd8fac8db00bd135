package models

import "time"

// RequestMeta carries the per-request context every operation receives
// explicitly: client IP, user agent and the correlation id assigned by the
// request-id middleware. Nothing in the core reads ambient request state.
type RequestMeta struct {
	IP        string `json:"-"`
	UserAgent string `json:"-"`
	RequestID string `json:"-"`
}

// IssueTokenRequest exchanges a short-lived login code for a token pair.
type IssueTokenRequest struct {
	AppID     string `json:"app_id" validate:"required"`
	SecretKey string `json:"secret_key" validate:"required"`
	OpenID    string `json:"openid" validate:"required"`
	LoginCode string `json:"login_code" validate:"required"`
}

// IssueTokenResponse returns the freshly minted token pair.
type IssueTokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresAt    int64  `json:"expires_at"`
	ExpiresIn    int64  `json:"expires_in"`
}

// StatusRequest checks whether an access token is still valid for an OpenID.
type StatusRequest struct {
	AccessToken string `json:"access_token" validate:"required"`
	AppID       string `json:"app_id" validate:"required"`
	OpenID      string `json:"openid" validate:"required"`
}

// StatusResponse describes a valid login session.
type StatusResponse struct {
	UserUUID      string   `json:"user_uuid"`
	Permissions   []string `json:"permissions"`
	ExpiresAt     int64    `json:"expires_at"`
	RemainingTime int64    `json:"remaining_time"`
}

// RefreshRequest rotates an access token using its still-valid refresh token.
type RefreshRequest struct {
	AccessToken  string `json:"access_token" validate:"required"`
	RefreshToken string `json:"refresh_token" validate:"required"`
	AppID        string `json:"app_id" validate:"required"`
	OpenID       string `json:"openid" validate:"required"`
}

// RefreshResponse returns the replacement access token. The refresh token is
// never rotated by this operation.
type RefreshResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresAt   int64  `json:"expires_at"`
	ExpiresIn   int64  `json:"expires_in"`
}

// LogoutRequest revokes a token pair after the full ownership-chain check.
type LogoutRequest struct {
	AccessToken  string `json:"access_token" validate:"required"`
	RefreshToken string `json:"refresh_token" validate:"required"`
	AppID        string `json:"app_id" validate:"required"`
	OpenID       string `json:"openid" validate:"required"`
}

// ResourceRequest fetches a permission-gated user attribute on behalf of an
// application. The app secret is required in addition to the bearer token.
type ResourceRequest struct {
	AccessToken string `json:"access_token" validate:"required"`
	AppID       string `json:"app_id" validate:"required"`
	OpenID      string `json:"openid" validate:"required"`
	SecretKey   string `json:"secret_key" validate:"required"`
}

// LoginRequest authenticates a platform account with email and password and
// produces a single-use login code for the requesting application.
type LoginRequest struct {
	AppID     string `json:"app_id" validate:"required"`
	SecretKey string `json:"secret_key" validate:"required"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required"`
	Scope     string `json:"scope"`
}

// LoginResponse returns the OpenID bound for this application together with
// the login code the application exchanges for tokens.
type LoginResponse struct {
	OpenID    string `json:"openid"`
	LoginCode string `json:"login_code"`
	ExpiresIn int64  `json:"expires_in"`
}

// FederatedAuthorizeRequest starts a federated login: the platform hands the
// caller a signed continuation token to carry through the provider redirect.
type FederatedAuthorizeRequest struct {
	AppID     string `form:"app_id" validate:"required"`
	SecretKey string `form:"secret_key" validate:"required"`
	Provider  string `form:"provider" validate:"required"`
	Scope     string `form:"scope"`
}

// FederatedCallbackRequest completes a federated login. The state token is
// the continuation issued by the authorize step; subject is the provider's
// stable identifier for the user.
type FederatedCallbackRequest struct {
	State    string `json:"state" validate:"required"`
	Subject  string `json:"subject" validate:"required"`
	Email    string `json:"email"`
	Nickname string `json:"nickname"`
	Avatar   string `json:"avatar"`
}

// LoginCodeGrant is the redis payload behind a login code: the authenticated
// user, the application the code was minted for and the granted scopes.
type LoginCodeGrant struct {
	UserUUID    string `json:"user_uuid"`
	AppID       string `json:"app_id"`
	Permissions string `json:"permissions"`
	IssuedAt    int64  `json:"issued_at"`
}

// TokenPair bundles the two rows created by a single issuance.
type TokenPair struct {
	AccessToken  *AccessToken
	RefreshToken *RefreshToken
}

// Clock abstracts wall-clock reads so expiry logic is testable.
type Clock func() time.Time
