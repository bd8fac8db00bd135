package errors

import (
	"errors"
	"fmt"
)

// Error represents a typed domain error carried across component boundaries.
// Business failures are rendered as success=false envelopes with HTTP 200;
// the Code classifies the failure for clients and tests, the Message is the
// exact client-facing text.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// New creates a new Error instance.
func New(code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap attaches context to an existing error.
func Wrap(err error, code, message string) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// Predefined errors for every business failure in the token lifecycle.
// Messages are the exact strings surfaced to callers.
var (
	ErrAppNotFound      = New("APP_NOT_FOUND", "应用不存在")
	ErrAppBanned        = New("APP_BANNED", "应用已被封禁")
	ErrAppPending       = New("APP_PENDING_REVIEW", "应用正在审核中")
	ErrSecretMismatch   = New("SECRET_MISMATCH", "Secret Key 错误")
	ErrOpenIDInvalid    = New("OPENID_INVALID", "OpenID 无效")
	ErrCodeInvalid      = New("CODE_INVALID", "登录码无效或已过期")
	ErrTokenInvalid     = New("TOKEN_INVALID", "Access Token 无效或已过期")
	ErrTokenMismatch    = New("MISMATCH", "OpenID 与 Access Token 不匹配")
	ErrPairMismatch     = New("MISMATCH", "Access Token 与 Refresh Token 不匹配")
	ErrRefreshInvalid   = New("REFRESH_INVALID", "Refresh Token 无效")
	ErrRefreshExpired   = New("REFRESH_EXPIRED", "Refresh Token 已过期")
	ErrRefreshRevoked   = New("REFRESH_REVOKED", "Refresh Token 已被吊销")
	ErrRefreshMismatch  = New("MISMATCH", "Refresh Token 与 OpenID 不匹配")
	ErrPermissionDenied = New("PERMISSION_DENIED", "权限不足")
	ErrLoginFailed      = New("LOGIN_FAILED", "邮箱或密码错误")
	ErrStateInvalid     = New("STATE_INVALID", "登录状态令牌无效或已过期")
	ErrValidation       = New("VALIDATION_ERROR", "缺少必要参数")
	ErrInternal         = New("INTERNAL_ERROR", "验证失败")
)

// FromError normalises any error into an *Error. Unknown causes collapse into
// the generic operation-failed message so store internals never leak.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(err, ErrInternal.Code, ErrInternal.Message)
}

// Clone returns a copy of the error allowing for message overrides.
func Clone(err *Error, message string) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	if message != "" {
		clone.Message = message
	}
	return &clone
}
