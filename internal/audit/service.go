// AngelaMos | 2026
// service.go

package audit

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// Entry is what workflow components hand to the recorder; the service
// fills in the ID and timestamp.
type Entry struct {
	Event     string
	AccountID string
	Email     string
	IPAddress string
	UserAgent string
	Reason    string
}

type Service struct {
	repo   Repository
	logger *slog.Logger
}

func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// Record persists an auth event. Failures are logged, not returned; an
// audit write must never fail the request it describes.
func (s *Service) Record(ctx context.Context, entry Entry) {
	row := &AuthLog{
		ID:        uuid.NewString(),
		Event:     entry.Event,
		Email:     entry.Email,
		IPAddress: entry.IPAddress,
		UserAgent: entry.UserAgent,
	}
	if entry.AccountID != "" {
		row.AccountID = &entry.AccountID
	}
	if entry.Reason != "" {
		row.Reason = &entry.Reason
	}

	if err := s.repo.Insert(ctx, row); err != nil {
		s.logger.ErrorContext(ctx, "auth log write failed",
			"event", entry.Event,
			"error", err,
		)
	}
}

func (s *Service) List(
	ctx context.Context,
	params ListParams,
) ([]AuthLog, int, error) {
	return s.repo.List(ctx, params)
}
