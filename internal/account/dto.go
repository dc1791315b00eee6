// AngelaMos | 2026
// dto.go

package account

import (
	"strings"
	"time"
)

type RegisterRequest struct {
	Role            string `json:"role"             validate:"required"`
	FirstName       string `json:"first_name"       validate:"required,max=50"`
	LastName        string `json:"last_name"        validate:"required,max=50"`
	OtherName       string `json:"other_name"       validate:"omitempty,max=50"`
	Email           string `json:"email"            validate:"required,email,max=254"`
	PhoneNumber     string `json:"phone_number"     validate:"required,max=15"`
	Address         string `json:"address"          validate:"required,max=100"`
	Password        string `json:"password"         validate:"required,min=8,max=128"`
	ConfirmPassword string `json:"confirm_password" validate:"required,eqfield=Password"`

	// Agent and company variants.
	AgencyName    string `json:"agency_name"    validate:"omitempty,max=255"`
	CompanyName   string `json:"company_name"   validate:"omitempty,max=255"`
	DeclarantCode string `json:"declarant_code" validate:"omitempty,max=100"`
	CAC           string `json:"cac"            validate:"omitempty,max=50"`
	Accredited    bool   `json:"is_accredify"`
}

type VerifyOTPRequest struct {
	OTP string `json:"otp" validate:"required,len=6,numeric"`
}

type ResendOTPRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type RegisterResponse struct {
	ID      string `json:"id"`
	Email   string `json:"email"`
	Role    string `json:"role"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

type AccountResponse struct {
	ID            string    `json:"id"`
	Email         string    `json:"email"`
	PhoneNumber   string    `json:"phone_number"`
	FirstName     string    `json:"first_name"`
	LastName      string    `json:"last_name"`
	OtherName     string    `json:"other_name,omitempty"`
	Address       string    `json:"address"`
	Role          string    `json:"role"`
	Status        string    `json:"status"`
	EmailVerified bool      `json:"email_verified"`
	NINVerified   bool      `json:"nin_verified"`
	CreatedAt     time.Time `json:"created_at"`
}

type ProfileResponse struct {
	ID                 string `json:"id"`
	Role               string `json:"role"`
	BusinessName       string `json:"business_name,omitempty"`
	DeclarantCode      string `json:"declarant_code,omitempty"`
	Accredited         bool   `json:"is_accredify"`
	CACVerified        bool   `json:"cac_verified"`
	SubAccountsCreated int    `json:"sub_accounts_created"`
	SubAccountLimit    int    `json:"sub_account_limit"`
}

func ToProfileResponse(p *Profile) ProfileResponse {
	resp := ProfileResponse{
		ID:                 p.ID,
		Role:               p.Role,
		Accredited:         p.Accredited,
		CACVerified:        p.CACVerified,
		SubAccountsCreated: p.SubAccountsCreated,
		SubAccountLimit:    p.SubAccountLimit,
	}
	if p.BusinessName != nil {
		resp.BusinessName = *p.BusinessName
	}
	if p.DeclarantCode != nil {
		resp.DeclarantCode = *p.DeclarantCode
	}
	return resp
}

func ToAccountResponse(a *Account) AccountResponse {
	resp := AccountResponse{
		ID:            a.ID,
		Email:         a.Email,
		PhoneNumber:   a.PhoneNumber,
		FirstName:     a.FirstName,
		LastName:      a.LastName,
		Address:       a.Address,
		Role:          a.Role,
		Status:        a.Status,
		EmailVerified: a.EmailVerified,
		NINVerified:   a.NINVerified,
		CreatedAt:     a.CreatedAt,
	}
	if a.OtherName != nil {
		resp.OtherName = *a.OtherName
	}
	return resp
}

// ValidatePasswordStrength enforces the registration password policy:
// at least one uppercase letter, one digit, and one special character.
func ValidatePasswordStrength(password string) []string {
	var problems []string

	hasUpper := strings.ContainsFunc(password, func(r rune) bool {
		return r >= 'A' && r <= 'Z'
	})
	hasDigit := strings.ContainsFunc(password, func(r rune) bool {
		return r >= '0' && r <= '9'
	})
	hasSpecial := strings.ContainsAny(password, "!@#$%^&*()-_=+{};:,<.>")

	if !hasUpper {
		problems = append(
			problems,
			"password must contain at least one uppercase letter",
		)
	}
	if !hasDigit {
		problems = append(problems, "password must contain at least one digit")
	}
	if !hasSpecial {
		problems = append(
			problems,
			"password must contain at least one special character",
		)
	}

	return problems
}
