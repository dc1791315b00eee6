// AngelaMos | 2026
// repository.go

package subaccount

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/cvms-ng/cvms-backend/internal/account"
	"github.com/cvms-ng/cvms-backend/internal/core"
)

type Repository interface {
	Create(ctx context.Context, sub *SubAccount) error
	ListByProfile(
		ctx context.Context,
		profileID string,
	) ([]SubAccountDetail, error)
	GetBySlugForProfile(
		ctx context.Context,
		slug, profileID string,
	) (*SubAccountDetail, error)
	GetProfileForUpdate(
		ctx context.Context,
		accountID string,
	) (*account.Profile, error)
	GetProfileByAccount(
		ctx context.Context,
		accountID string,
	) (*account.Profile, error)
	IncrementSubAccountCount(ctx context.Context, profileID string) error
	GetDepartmentByName(ctx context.Context, name string) (*Department, error)
	ListDepartments(ctx context.Context) ([]Department, error)
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, sub *SubAccount) error {
	query := `
		INSERT INTO sub_accounts (
			id, account_id, company_profile_id, agent_profile_id,
			department_id, location, slug
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at`

	err := r.db.GetContext(ctx, sub, query,
		sub.ID,
		sub.AccountID,
		sub.CompanyProfileID,
		sub.AgentProfileID,
		sub.DepartmentID,
		sub.Location,
		sub.Slug,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("create sub-account: %w", core.ErrDuplicateKey)
		}
		return fmt.Errorf("create sub-account: %w", err)
	}

	return nil
}

const detailColumns = `
	s.id, s.account_id, s.company_profile_id, s.agent_profile_id,
	s.department_id, s.location, s.slug, s.created_at, s.updated_at,
	a.email, a.phone_number, a.first_name, a.last_name, a.status,
	d.name AS department`

func (r *repository) ListByProfile(
	ctx context.Context,
	profileID string,
) ([]SubAccountDetail, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM sub_accounts s
		JOIN accounts a ON a.id = s.account_id
		JOIN departments d ON d.id = s.department_id
		WHERE s.company_profile_id = $1 OR s.agent_profile_id = $1
		ORDER BY s.created_at DESC`, detailColumns)

	var details []SubAccountDetail
	if err := r.db.SelectContext(ctx, &details, query, profileID); err != nil {
		return nil, fmt.Errorf("list sub-accounts: %w", err)
	}

	return details, nil
}

func (r *repository) GetBySlugForProfile(
	ctx context.Context,
	slug, profileID string,
) (*SubAccountDetail, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM sub_accounts s
		JOIN accounts a ON a.id = s.account_id
		JOIN departments d ON d.id = s.department_id
		WHERE s.slug = $1
			AND (s.company_profile_id = $2 OR s.agent_profile_id = $2)`,
		detailColumns)

	var detail SubAccountDetail
	err := r.db.GetContext(ctx, &detail, query, slug, profileID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get sub-account: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get sub-account: %w", err)
	}

	return &detail, nil
}

// GetProfileForUpdate takes a row lock so concurrent creations against
// the same profile serialize on the quota check.
func (r *repository) GetProfileForUpdate(
	ctx context.Context,
	accountID string,
) (*account.Profile, error) {
	query := `
		SELECT id, account_id, role, profession, business_name, cac_number,
		       declarant_code, accredited, parent_profile_id, cac_verified,
		       sub_accounts_created, sub_account_limit, created_at, updated_at
		FROM profiles
		WHERE account_id = $1
		FOR UPDATE`

	var profile account.Profile
	err := r.db.GetContext(ctx, &profile, query, accountID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get profile for update: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get profile for update: %w", err)
	}

	return &profile, nil
}

func (r *repository) GetProfileByAccount(
	ctx context.Context,
	accountID string,
) (*account.Profile, error) {
	query := `
		SELECT id, account_id, role, profession, business_name, cac_number,
		       declarant_code, accredited, parent_profile_id, cac_verified,
		       sub_accounts_created, sub_account_limit, created_at, updated_at
		FROM profiles
		WHERE account_id = $1`

	var profile account.Profile
	err := r.db.GetContext(ctx, &profile, query, accountID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get profile: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}

	return &profile, nil
}

func (r *repository) IncrementSubAccountCount(
	ctx context.Context,
	profileID string,
) error {
	query := `
		UPDATE profiles
		SET sub_accounts_created = sub_accounts_created + 1, updated_at = NOW()
		WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, profileID)
	if err != nil {
		return fmt.Errorf("increment sub-account count: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("increment sub-account count: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("increment sub-account count: %w", core.ErrNotFound)
	}

	return nil
}

func (r *repository) GetDepartmentByName(
	ctx context.Context,
	name string,
) (*Department, error) {
	query := `
		SELECT id, name, slug, created_at, updated_at
		FROM departments
		WHERE name = $1`

	var department Department
	err := r.db.GetContext(ctx, &department, query, name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get department: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get department: %w", err)
	}

	return &department, nil
}

func (r *repository) ListDepartments(
	ctx context.Context,
) ([]Department, error) {
	query := `
		SELECT id, name, slug, created_at, updated_at
		FROM departments
		ORDER BY name`

	var departments []Department
	if err := r.db.SelectContext(ctx, &departments, query); err != nil {
		return nil, fmt.Errorf("list departments: %w", err)
	}

	return departments, nil
}
