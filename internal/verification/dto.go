// AngelaMos | 2026
// dto.go

package verification

import "time"

type VerifyNINRequest struct {
	NIN string `json:"nin" validate:"required,len=11,numeric"`
}

type VerifyNINResponse struct {
	Message   string `json:"message"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type ReviewCACRequest struct {
	Decision string `json:"decision" validate:"required,oneof=approve reject"`
}

type CACRequestResponse struct {
	ID         string     `json:"id"`
	AccountID  string     `json:"account_id"`
	Slug       string     `json:"slug"`
	Status     string     `json:"status"`
	ReviewedBy *string    `json:"reviewed_by,omitempty"`
	ReviewedAt *time.Time `json:"reviewed_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

func ToCACRequestResponse(r *CACRequest) CACRequestResponse {
	return CACRequestResponse{
		ID:         r.ID,
		AccountID:  r.AccountID,
		Slug:       r.Slug,
		Status:     r.Status,
		ReviewedBy: r.ReviewedBy,
		ReviewedAt: r.ReviewedAt,
		CreatedAt:  r.CreatedAt,
	}
}

func ToCACRequestResponseList(requests []CACRequest) []CACRequestResponse {
	responses := make([]CACRequestResponse, 0, len(requests))
	for i := range requests {
		responses = append(responses, ToCACRequestResponse(&requests[i]))
	}
	return responses
}
