package models

import "time"

// AppStatus represents the operating status of a registered application.
type AppStatus string

const (
	AppStatusActive        AppStatus = "ACTIVE"
	AppStatusBanned        AppStatus = "BANNED"
	AppStatusPendingReview AppStatus = "PENDING_REVIEW"
)

// Application is a relying site registered on the platform. Only ACTIVE
// applications may issue or validate tokens. Rows are administered outside
// this service and are read-only here.
type Application struct {
	AppID     string    `db:"app_id" json:"app_id"`
	SecretKey string    `db:"secret_key" json:"-"`
	Name      string    `db:"name" json:"name"`
	Status    AppStatus `db:"status" json:"status"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
