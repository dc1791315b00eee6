// AngelaMos | 2026
// repository.go

package audit

import (
	"context"
	"fmt"
	"strings"

	"github.com/cvms-ng/cvms-backend/internal/core"
)

type Repository interface {
	Insert(ctx context.Context, entry *AuthLog) error
	List(ctx context.Context, params ListParams) ([]AuthLog, int, error)
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

func (r *repository) Insert(ctx context.Context, entry *AuthLog) error {
	query := `
		INSERT INTO auth_logs (
			id, event, account_id, email, ip_address, user_agent, reason
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at`

	err := r.db.GetContext(ctx, &entry.CreatedAt, query,
		entry.ID,
		entry.Event,
		entry.AccountID,
		entry.Email,
		entry.IPAddress,
		entry.UserAgent,
		entry.Reason,
	)
	if err != nil {
		return fmt.Errorf("insert auth log: %w", err)
	}

	return nil
}

func (r *repository) List(
	ctx context.Context,
	params ListParams,
) ([]AuthLog, int, error) {
	params.Normalize()

	var conditions []string
	var args []any
	argIdx := 1

	if params.AccountID != "" {
		conditions = append(conditions, fmt.Sprintf("account_id = $%d", argIdx))
		args = append(args, params.AccountID)
		argIdx++
	}

	if params.Event != "" {
		conditions = append(conditions, fmt.Sprintf("event = $%d", argIdx))
		args = append(args, params.Event)
		argIdx++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	countQuery := fmt.Sprintf(
		"SELECT COUNT(*) FROM auth_logs %s",
		whereClause,
	)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count auth logs: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT id, event, account_id, email, ip_address, user_agent, reason,
		       created_at
		FROM auth_logs
		%s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`,
		whereClause, argIdx, argIdx+1)

	args = append(args, params.PageSize, params.Offset())

	var entries []AuthLog
	if err := r.db.SelectContext(ctx, &entries, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list auth logs: %w", err)
	}

	return entries, total, nil
}
