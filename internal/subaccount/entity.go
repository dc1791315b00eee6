// AngelaMos | 2026
// entity.go

package subaccount

import (
	"time"
)

// SubAccount links a delegated-access account to exactly one creator
// profile (company or agent) and a department.
type SubAccount struct {
	ID               string    `db:"id"`
	AccountID        string    `db:"account_id"`
	CompanyProfileID *string   `db:"company_profile_id"`
	AgentProfileID   *string   `db:"agent_profile_id"`
	DepartmentID     string    `db:"department_id"`
	Location         string    `db:"location"`
	Slug             string    `db:"slug"`
	CreatedAt        time.Time `db:"created_at"`
	UpdatedAt        time.Time `db:"updated_at"`
}

type Department struct {
	ID        string    `db:"id"`
	Name      string    `db:"name"`
	Slug      string    `db:"slug"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

type Permission struct {
	ID        string    `db:"id"`
	Name      string    `db:"name"`
	Code      string    `db:"code"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// SubAccountDetail is the joined read model for list/detail responses.
type SubAccountDetail struct {
	SubAccount
	Email       string `db:"email"`
	PhoneNumber string `db:"phone_number"`
	FirstName   string `db:"first_name"`
	LastName    string `db:"last_name"`
	Status      string `db:"status"`
	Department  string `db:"department"`
}
