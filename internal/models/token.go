package models

import (
	"strings"
	"time"
)

// TokenStatus represents the lifecycle state of an issued credential.
type TokenStatus string

const (
	TokenStatusActive  TokenStatus = "ACTIVE"
	TokenStatusRevoked TokenStatus = "REVOKED"
)

// Permission scopes granted at issuance.
const (
	PermissionBasic   = "basic"
	PermissionProfile = "profile"
	PermissionEmail   = "email"
)

// AccessToken is the short-lived bearer credential. Every ACTIVE row is owned
// by exactly one refresh token, and its user must match the user of the
// OpenID presented at issuance. Rows are never updated in place except to
// flip the status to REVOKED.
type AccessToken struct {
	Token          string      `db:"token" json:"token"`
	AppID          string      `db:"app_id" json:"app_id"`
	UserUUID       string      `db:"user_uuid" json:"user_uuid"`
	RefreshTokenID string      `db:"refresh_token_id" json:"refresh_token_id"`
	Permissions    string      `db:"permissions" json:"permissions"`
	Status         TokenStatus `db:"status" json:"status"`
	ExpiresAt      time.Time   `db:"expires_at" json:"expires_at"`
	IssuedAt       time.Time   `db:"issued_at" json:"issued_at"`
	RevokedAt      *time.Time  `db:"revoked_at" json:"revoked_at,omitempty"`
}

// RefreshToken is the long-lived credential used solely to mint new access
// tokens. It is created once at issuance and never rotated; logout flips the
// status to REVOKED.
type RefreshToken struct {
	ID          string      `db:"id" json:"id"`
	Token       string      `db:"token" json:"token"`
	AppID       string      `db:"app_id" json:"app_id"`
	UserUUID    string      `db:"user_uuid" json:"user_uuid"`
	Permissions string      `db:"permissions" json:"permissions"`
	Status      TokenStatus `db:"status" json:"status"`
	ExpiresAt   time.Time   `db:"expires_at" json:"expires_at"`
	IssuedAt    time.Time   `db:"issued_at" json:"issued_at"`
	RevokedAt   *time.Time  `db:"revoked_at" json:"revoked_at,omitempty"`
}

// SplitPermissions expands a stored comma-joined permission set.
func SplitPermissions(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

// JoinPermissions encodes a permission set for storage, preserving order.
func JoinPermissions(perms []string) string {
	return strings.Join(perms, ",")
}

// HasPermission reports whether the stored permission set contains scope.
func HasPermission(raw, scope string) bool {
	for _, perm := range SplitPermissions(raw) {
		if perm == scope {
			return true
		}
	}
	return false
}
