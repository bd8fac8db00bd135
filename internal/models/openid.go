package models

import "time"

// OpenIDStatus represents the lifecycle state of an OpenID binding.
type OpenIDStatus string

const (
	OpenIDStatusActive  OpenIDStatus = "ACTIVE"
	OpenIDStatusRevoked OpenIDStatus = "REVOKED"
)

// OpenID is the per-application pseudonymous identifier of a user.
// (openid, app_id) resolves to exactly one user; rows are never deleted,
// only soft-revoked by flipping the status.
type OpenID struct {
	OpenID    string       `db:"openid" json:"openid"`
	AppID     string       `db:"app_id" json:"app_id"`
	UserUUID  string       `db:"user_uuid" json:"user_uuid"`
	Status    OpenIDStatus `db:"status" json:"status"`
	CreatedAt time.Time    `db:"created_at" json:"created_at"`
}
