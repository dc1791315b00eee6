// AngelaMos | 2026
// entity.go

package verification

import "time"

// CACRequest is a pending corporate verification. The three document
// columns store paths relative to the media root.
type CACRequest struct {
	ID                    string     `db:"id" json:"id"`
	AccountID             string     `db:"account_id" json:"account_id"`
	Slug                  string     `db:"slug" json:"slug"`
	CACCertificate        string     `db:"cac_certificate" json:"cac_certificate"`
	StatusCertificate     string     `db:"status_certificate" json:"status_certificate"`
	LetterOfAuthorization string     `db:"letter_of_authorization" json:"letter_of_authorization"`
	Status                string     `db:"status" json:"status"`
	ReviewedBy            *string    `db:"reviewed_by" json:"reviewed_by,omitempty"`
	ReviewedAt            *time.Time `db:"reviewed_at" json:"reviewed_at,omitempty"`
	CreatedAt             time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt             time.Time  `db:"updated_at" json:"updated_at"`
}

const (
	RequestStatusPending  = "pending"
	RequestStatusApproved = "approved"
	RequestStatusRejected = "rejected"
)

func (r *CACRequest) IsPending() bool {
	return r.Status == RequestStatusPending
}

// NINIdentity is the subset of the identity provider's record we
// compare against the account holder's registered name.
type NINIdentity struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

const maxDocumentSize = 10 << 20

var allowedDocumentExts = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".pdf":  true,
}
