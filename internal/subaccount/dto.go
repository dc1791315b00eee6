// AngelaMos | 2026
// dto.go

package subaccount

import (
	"time"
)

type CreateSubAccountRequest struct {
	FirstName       string `json:"first_name"       validate:"required,max=50"`
	LastName        string `json:"last_name"        validate:"required,max=50"`
	Email           string `json:"email"            validate:"required,email,max=254"`
	PhoneNumber     string `json:"phone_number"     validate:"required,max=15"`
	Location        string `json:"location"         validate:"required,max=100"`
	Department      string `json:"department"       validate:"required,max=50"`
	Password        string `json:"password"         validate:"required,min=8,max=128"`
	ConfirmPassword string `json:"confirm_password" validate:"required,eqfield=Password"`
}

type SubAccountResponse struct {
	ID          string    `json:"id"`
	Slug        string    `json:"slug"`
	Email       string    `json:"email"`
	PhoneNumber string    `json:"phone_number"`
	FirstName   string    `json:"first_name"`
	LastName    string    `json:"last_name"`
	Status      string    `json:"status"`
	Location    string    `json:"location"`
	Department  string    `json:"department"`
	CreatedAt   time.Time `json:"created_at"`
}

type DepartmentResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

func ToSubAccountResponse(d *SubAccountDetail) SubAccountResponse {
	return SubAccountResponse{
		ID:          d.ID,
		Slug:        d.Slug,
		Email:       d.Email,
		PhoneNumber: d.PhoneNumber,
		FirstName:   d.FirstName,
		LastName:    d.LastName,
		Status:      d.Status,
		Location:    d.Location,
		Department:  d.Department,
		CreatedAt:   d.CreatedAt,
	}
}

func ToSubAccountResponseList(details []SubAccountDetail) []SubAccountResponse {
	responses := make([]SubAccountResponse, 0, len(details))
	for _, d := range details {
		responses = append(responses, ToSubAccountResponse(&d))
	}
	return responses
}

func ToDepartmentResponseList(departments []Department) []DepartmentResponse {
	responses := make([]DepartmentResponse, 0, len(departments))
	for _, d := range departments {
		responses = append(responses, DepartmentResponse{
			ID:   d.ID,
			Name: d.Name,
			Slug: d.Slug,
		})
	}
	return responses
}
