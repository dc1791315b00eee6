// AngelaMos | 2026
// entity.go

package account

import (
	"time"
)

type Account struct {
	ID             string     `db:"id"`
	Email          string     `db:"email"`
	PhoneNumber    string     `db:"phone_number"`
	PasswordHash   string     `db:"password_hash"`
	FirstName      string     `db:"first_name"`
	LastName       string     `db:"last_name"`
	OtherName      *string    `db:"other_name"`
	Address        string     `db:"address"`
	Role           string     `db:"role"`
	Status         string     `db:"status"`
	Slug           string     `db:"slug"`
	EmailVerified  bool       `db:"email_verified"`
	NINVerified    bool       `db:"nin_verified"`
	OTPCode        *string    `db:"otp_code"`
	OTPToken       *string    `db:"otp_token"`
	OTPCreatedAt   *time.Time `db:"otp_created_at"`
	OTPUsed        bool       `db:"otp_used"`
	FailedLogins   int        `db:"failed_logins"`
	ResetLinkToken *string    `db:"reset_link_token"`
	ResetLinkSent  bool       `db:"reset_link_sent"`
	CreatedAt      time.Time  `db:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at"`
}

func (a *Account) FullName() string {
	return a.FirstName + " " + a.LastName
}

func (a *Account) IsLocked() bool {
	return a.Status == StatusLocked
}

func (a *Account) IsActive() bool {
	return a.Status == StatusActive
}

// Profile is the role-specific companion row for an account. Variant
// columns are nullable; which ones are populated depends on Role.
type Profile struct {
	ID                 string    `db:"id"`
	AccountID          string    `db:"account_id"`
	Role               string    `db:"role"`
	Profession         *string   `db:"profession"`
	BusinessName       *string   `db:"business_name"`
	CACNumber          *string   `db:"cac_number"`
	DeclarantCode      *string   `db:"declarant_code"`
	Accredited         bool      `db:"accredited"`
	ParentProfileID    *string   `db:"parent_profile_id"`
	CACVerified        bool      `db:"cac_verified"`
	SubAccountsCreated int       `db:"sub_accounts_created"`
	SubAccountLimit    int       `db:"sub_account_limit"`
	CreatedAt          time.Time `db:"created_at"`
	UpdatedAt          time.Time `db:"updated_at"`
}

const (
	RoleIndividual = "individual"
	RoleAgent      = "agent"
	RoleCompany    = "company"
	RoleSubAccount = "sub_account"
	RoleAdmin      = "admin"
)

const (
	StatusPendingVerification = "pending_verification"
	StatusActive              = "active"
	StatusLocked              = "locked"
	StatusDisabled            = "disabled"
)

// Wire role names as clients send them during registration. These are
// kept verbatim for API compatibility and normalized internally.
const (
	WireRoleIndividual = "individual account"
	WireRoleAgent      = "agent account/freight forwarders"
	WireRoleCompany    = "company account"
)

var wireRoles = map[string]string{
	WireRoleIndividual: RoleIndividual,
	WireRoleAgent:      RoleAgent,
	WireRoleCompany:    RoleCompany,
	RoleIndividual:     RoleIndividual,
	RoleAgent:          RoleAgent,
	RoleCompany:        RoleCompany,
}

// ParseRole normalizes a registration role string to its canonical form.
func ParseRole(wire string) (string, bool) {
	role, ok := wireRoles[wire]
	return role, ok
}

const DefaultSubAccountLimit = 5

const otpTTL = 10 * time.Minute
