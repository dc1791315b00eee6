// AngelaMos | 2026
// dto.go

package audit

import (
	"time"
)

type ListParams struct {
	Page      int
	PageSize  int
	AccountID string
	Event     string
}

func (p *ListParams) Normalize() {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = 20
	}
	if p.PageSize > 100 {
		p.PageSize = 100
	}
}

func (p *ListParams) Offset() int {
	return (p.Page - 1) * p.PageSize
}

type AuthLogResponse struct {
	ID        string    `json:"id"`
	Event     string    `json:"event"`
	AccountID string    `json:"account_id,omitempty"`
	Email     string    `json:"email,omitempty"`
	IPAddress string    `json:"ip_address"`
	UserAgent string    `json:"user_agent"`
	Reason    string    `json:"reason,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func ToAuthLogResponse(e *AuthLog) AuthLogResponse {
	resp := AuthLogResponse{
		ID:        e.ID,
		Event:     e.Event,
		Email:     e.Email,
		IPAddress: e.IPAddress,
		UserAgent: e.UserAgent,
		CreatedAt: e.CreatedAt,
	}
	if e.AccountID != nil {
		resp.AccountID = *e.AccountID
	}
	if e.Reason != nil {
		resp.Reason = *e.Reason
	}
	return resp
}

func ToAuthLogResponseList(entries []AuthLog) []AuthLogResponse {
	responses := make([]AuthLogResponse, 0, len(entries))
	for _, e := range entries {
		responses = append(responses, ToAuthLogResponse(&e))
	}
	return responses
}
