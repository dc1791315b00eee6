// AngelaMos | 2026
// repository.go

package verification

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/cvms-ng/cvms-backend/internal/core"
)

type Repository interface {
	Create(ctx context.Context, request *CACRequest) error
	GetByID(ctx context.Context, id string) (*CACRequest, error)
	GetPendingByAccount(ctx context.Context, accountID string) (*CACRequest, error)
	List(ctx context.Context, status string, limit, offset int) ([]CACRequest, int, error)
	Review(ctx context.Context, id, status, reviewedBy string) error
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

const cacRequestColumns = `
	id, account_id, slug, cac_certificate, status_certificate,
	letter_of_authorization, status, reviewed_by, reviewed_at,
	created_at, updated_at`

func (r *repository) Create(ctx context.Context, request *CACRequest) error {
	query := `
		INSERT INTO cac_requests (
			id, account_id, slug, cac_certificate, status_certificate,
			letter_of_authorization, status
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at`

	err := r.db.GetContext(ctx, request, query,
		request.ID,
		request.AccountID,
		request.Slug,
		request.CACCertificate,
		request.StatusCertificate,
		request.LetterOfAuthorization,
		request.Status,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("create cac request: %w", core.ErrDuplicateKey)
		}
		return fmt.Errorf("create cac request: %w", err)
	}

	return nil
}

func (r *repository) GetByID(
	ctx context.Context,
	id string,
) (*CACRequest, error) {
	query := `SELECT ` + cacRequestColumns + ` FROM cac_requests WHERE id = $1`

	var request CACRequest
	if err := r.db.GetContext(ctx, &request, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("get cac request: %w", core.ErrNotFound)
		}
		return nil, fmt.Errorf("get cac request: %w", err)
	}

	return &request, nil
}

func (r *repository) GetPendingByAccount(
	ctx context.Context,
	accountID string,
) (*CACRequest, error) {
	query := `
		SELECT ` + cacRequestColumns + `
		FROM cac_requests
		WHERE account_id = $1 AND status = $2
		ORDER BY created_at DESC
		LIMIT 1`

	var request CACRequest
	err := r.db.GetContext(ctx, &request, query, accountID, RequestStatusPending)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("get pending cac request: %w", core.ErrNotFound)
		}
		return nil, fmt.Errorf("get pending cac request: %w", err)
	}

	return &request, nil
}

func (r *repository) List(
	ctx context.Context,
	status string,
	limit, offset int,
) ([]CACRequest, int, error) {
	where := ""
	args := []any{}
	if status != "" {
		where = " WHERE status = $1"
		args = append(args, status)
	}

	countQuery := `SELECT COUNT(*) FROM cac_requests` + where

	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count cac requests: %w", err)
	}

	query := fmt.Sprintf(
		`SELECT %s FROM cac_requests%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		cacRequestColumns, where, len(args)+1, len(args)+2,
	)
	args = append(args, limit, offset)

	requests := []CACRequest{}
	if err := r.db.SelectContext(ctx, &requests, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list cac requests: %w", err)
	}

	return requests, total, nil
}

func (r *repository) Review(
	ctx context.Context,
	id, status, reviewedBy string,
) error {
	query := `
		UPDATE cac_requests
		SET status = $2,
		    reviewed_by = $3,
		    reviewed_at = NOW(),
		    updated_at = NOW()
		WHERE id = $1 AND status = $4`

	result, err := r.db.ExecContext(
		ctx, query, id, status, reviewedBy, RequestStatusPending,
	)
	if err != nil {
		return fmt.Errorf("review cac request: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("review cac request: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("review cac request: %w", core.ErrNotFound)
	}

	return nil
}
