// AngelaMos | 2026
// entity.go

package audit

import (
	"time"
)

// AuthLog is an append-only authentication event record. Rows are never
// updated or deleted.
type AuthLog struct {
	ID        string    `db:"id"`
	Event     string    `db:"event"`
	AccountID *string   `db:"account_id"`
	Email     string    `db:"email"`
	IPAddress string    `db:"ip_address"`
	UserAgent string    `db:"user_agent"`
	Reason    *string   `db:"reason"`
	CreatedAt time.Time `db:"created_at"`
}

const (
	EventLoginSuccess          = "login_success"
	EventLoginFailure          = "login_failure"
	EventLockout               = "lockout"
	EventLogout                = "logout"
	EventPasswordResetRequest  = "password_reset_request"
	EventPasswordResetComplete = "password_reset_complete"
)
