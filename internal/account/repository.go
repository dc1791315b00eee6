// AngelaMos | 2026
// repository.go

package account

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/cvms-ng/cvms-backend/internal/core"
)

type Repository interface {
	Create(ctx context.Context, account *Account) error
	CreateProfile(ctx context.Context, profile *Profile) error
	GetByID(ctx context.Context, id string) (*Account, error)
	GetByEmail(ctx context.Context, email string) (*Account, error)
	GetByOTPToken(ctx context.Context, token, code string) (*Account, error)
	GetProfileByAccountID(ctx context.Context, accountID string) (*Profile, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	ExistsByPhone(ctx context.Context, phone string) (bool, error)
	SetOTP(ctx context.Context, id, code, token string, createdAt time.Time) error
	MarkVerified(ctx context.Context, id string) error
	SetNINVerified(ctx context.Context, id string) error
	IncrementFailedLogins(ctx context.Context, id string) (int, error)
	Lock(ctx context.Context, id, resetLinkToken string) (bool, error)
	ResetLoginState(ctx context.Context, id string) error
	UpdatePasswordAndUnlock(ctx context.Context, id, passwordHash string) error
	UpdatePasswordHash(ctx context.Context, id, passwordHash string) error
	SetStatus(ctx context.Context, id, status string) error
	SetCACVerified(ctx context.Context, profileID string, verified bool) error
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, account *Account) error {
	query := `
		INSERT INTO accounts (
			id, email, phone_number, password_hash, first_name, last_name,
			other_name, address, role, status, slug,
			otp_code, otp_token, otp_created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING created_at, updated_at`

	err := r.db.GetContext(ctx, account, query,
		account.ID,
		account.Email,
		account.PhoneNumber,
		account.PasswordHash,
		account.FirstName,
		account.LastName,
		account.OtherName,
		account.Address,
		account.Role,
		account.Status,
		account.Slug,
		account.OTPCode,
		account.OTPToken,
		account.OTPCreatedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return fmt.Errorf("create account: %w", core.ErrDuplicateKey)
		}
		return fmt.Errorf("create account: %w", err)
	}

	return nil
}

func (r *repository) CreateProfile(
	ctx context.Context,
	profile *Profile,
) error {
	query := `
		INSERT INTO profiles (
			id, account_id, role, profession, business_name, cac_number,
			declarant_code, accredited, parent_profile_id,
			sub_account_limit
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at, updated_at`

	err := r.db.GetContext(ctx, profile, query,
		profile.ID,
		profile.AccountID,
		profile.Role,
		profile.Profession,
		profile.BusinessName,
		profile.CACNumber,
		profile.DeclarantCode,
		profile.Accredited,
		profile.ParentProfileID,
		profile.SubAccountLimit,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return fmt.Errorf("create profile: %w", core.ErrDuplicateKey)
		}
		return fmt.Errorf("create profile: %w", err)
	}

	return nil
}

const accountColumns = `
	id, email, phone_number, password_hash, first_name, last_name,
	other_name, address, role, status, slug, email_verified, nin_verified,
	otp_code, otp_token, otp_created_at, otp_used,
	failed_logins, reset_link_token, reset_link_sent,
	created_at, updated_at`

func (r *repository) GetByID(
	ctx context.Context,
	id string,
) (*Account, error) {
	query := fmt.Sprintf(
		"SELECT %s FROM accounts WHERE id = $1",
		accountColumns,
	)

	var account Account
	err := r.db.GetContext(ctx, &account, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get account: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get account: %w", err)
	}

	return &account, nil
}

func (r *repository) GetByEmail(
	ctx context.Context,
	email string,
) (*Account, error) {
	query := fmt.Sprintf(
		"SELECT %s FROM accounts WHERE email = $1",
		accountColumns,
	)

	var account Account
	err := r.db.GetContext(ctx, &account, query, email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get account by email: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get account by email: %w", err)
	}

	return &account, nil
}

func (r *repository) GetByOTPToken(
	ctx context.Context,
	token, code string,
) (*Account, error) {
	query := fmt.Sprintf(
		"SELECT %s FROM accounts WHERE otp_token = $1 AND otp_code = $2",
		accountColumns,
	)

	var account Account
	err := r.db.GetContext(ctx, &account, query, token, code)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get account by otp: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get account by otp: %w", err)
	}

	return &account, nil
}

func (r *repository) GetProfileByAccountID(
	ctx context.Context,
	accountID string,
) (*Profile, error) {
	query := `
		SELECT id, account_id, role, profession, business_name, cac_number,
		       declarant_code, accredited, parent_profile_id, cac_verified,
		       sub_accounts_created, sub_account_limit, created_at, updated_at
		FROM profiles
		WHERE account_id = $1`

	var profile Profile
	err := r.db.GetContext(ctx, &profile, query, accountID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get profile: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}

	return &profile, nil
}

func (r *repository) ExistsByEmail(
	ctx context.Context,
	email string,
) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM accounts WHERE email = $1)`

	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, email); err != nil {
		return false, fmt.Errorf("check email exists: %w", err)
	}

	return exists, nil
}

func (r *repository) ExistsByPhone(
	ctx context.Context,
	phone string,
) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM accounts WHERE phone_number = $1)`

	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, phone); err != nil {
		return false, fmt.Errorf("check phone exists: %w", err)
	}

	return exists, nil
}

func (r *repository) SetOTP(
	ctx context.Context,
	id, code, token string,
	createdAt time.Time,
) error {
	query := `
		UPDATE accounts
		SET otp_code = $2, otp_token = $3, otp_created_at = $4,
		    otp_used = FALSE, updated_at = NOW()
		WHERE id = $1`

	return execExpectingRow(ctx, r.db, "set otp", query, id, code, token, createdAt)
}

func (r *repository) MarkVerified(ctx context.Context, id string) error {
	query := `
		UPDATE accounts
		SET status = $2, email_verified = TRUE,
		    otp_code = NULL, otp_token = NULL, otp_created_at = NULL,
		    otp_used = TRUE, updated_at = NOW()
		WHERE id = $1`

	return execExpectingRow(ctx, r.db, "mark verified", query, id, StatusActive)
}

func (r *repository) SetNINVerified(ctx context.Context, id string) error {
	query := `
		UPDATE accounts
		SET nin_verified = TRUE, updated_at = NOW()
		WHERE id = $1`

	return execExpectingRow(ctx, r.db, "set nin verified", query, id)
}

func (r *repository) IncrementFailedLogins(
	ctx context.Context,
	id string,
) (int, error) {
	query := `
		UPDATE accounts
		SET failed_logins = failed_logins + 1, updated_at = NOW()
		WHERE id = $1
		RETURNING failed_logins`

	var count int
	err := r.db.GetContext(ctx, &count, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("increment failed logins: %w", core.ErrNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("increment failed logins: %w", err)
	}

	return count, nil
}

// Lock transitions the account to locked and records the one-time reset
// link token. The reset_link_sent guard keeps the link from being issued
// twice; the boolean reports whether this call won the guard.
func (r *repository) Lock(
	ctx context.Context,
	id, resetLinkToken string,
) (bool, error) {
	query := `
		UPDATE accounts
		SET status = $2, reset_link_token = $3, reset_link_sent = TRUE,
		    updated_at = NOW()
		WHERE id = $1 AND reset_link_sent = FALSE`

	result, err := r.db.ExecContext(ctx, query, id, StatusLocked, resetLinkToken)
	if err != nil {
		return false, fmt.Errorf("lock account: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("lock account: %w", err)
	}

	return rows > 0, nil
}

func (r *repository) ResetLoginState(ctx context.Context, id string) error {
	query := `
		UPDATE accounts
		SET failed_logins = 0, updated_at = NOW()
		WHERE id = $1`

	return execExpectingRow(ctx, r.db, "reset login state", query, id)
}

func (r *repository) UpdatePasswordAndUnlock(
	ctx context.Context,
	id, passwordHash string,
) error {
	query := `
		UPDATE accounts
		SET password_hash = $2, failed_logins = 0,
		    reset_link_token = NULL, reset_link_sent = FALSE,
		    status = CASE WHEN status = $3 THEN $4 ELSE status END,
		    updated_at = NOW()
		WHERE id = $1`

	return execExpectingRow(
		ctx, r.db, "update password", query,
		id, passwordHash, StatusLocked, StatusActive,
	)
}

func (r *repository) UpdatePasswordHash(
	ctx context.Context,
	id, passwordHash string,
) error {
	query := `
		UPDATE accounts
		SET password_hash = $2, updated_at = NOW()
		WHERE id = $1`

	return execExpectingRow(ctx, r.db, "update password hash", query, id, passwordHash)
}

func (r *repository) SetStatus(ctx context.Context, id, status string) error {
	query := `
		UPDATE accounts
		SET status = $2, updated_at = NOW()
		WHERE id = $1`

	return execExpectingRow(ctx, r.db, "set status", query, id, status)
}

func (r *repository) SetCACVerified(
	ctx context.Context,
	profileID string,
	verified bool,
) error {
	query := `
		UPDATE profiles
		SET cac_verified = $2, updated_at = NOW()
		WHERE id = $1`

	return execExpectingRow(ctx, r.db, "set cac verified", query, profileID, verified)
}

func execExpectingRow(
	ctx context.Context,
	db core.DBTX,
	op, query string,
	args ...any,
) error {
	result, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if rows == 0 {
		return fmt.Errorf("%s: %w", op, core.ErrNotFound)
	}

	return nil
}

func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
