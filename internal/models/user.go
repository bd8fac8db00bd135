package models

import "time"

// Identity providers accepted by the platform.
const (
	ProviderLocal  = "local"
	ProviderGoogle = "google"
	ProviderGithub = "github"
	ProviderQQ     = "qq"
	ProviderWechat = "wechat"
)

// User is a platform account. Applications never see the UUID directly in
// login flows; they see the per-application OpenID instead.
type User struct {
	UUID            string    `db:"uuid" json:"uuid"`
	Email           string    `db:"email" json:"email"`
	PasswordHash    string    `db:"password_hash" json:"-"`
	Nickname        string    `db:"nickname" json:"nickname"`
	Avatar          string    `db:"avatar" json:"avatar"`
	Provider        string    `db:"provider" json:"provider"`
	ProviderSubject string    `db:"provider_subject" json:"-"`
	Active          bool      `db:"active" json:"active"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}
