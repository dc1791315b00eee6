// AngelaMos | 2026
// service.go

package subaccount

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/cvms-ng/cvms-backend/internal/account"
	"github.com/cvms-ng/cvms-backend/internal/core"
)

var (
	errCACUnverified = core.NewAppError(
		core.ErrForbidden,
		"CAC verification is required before creating sub-accounts",
		http.StatusForbidden,
		"CAC_UNVERIFIED",
	)
	errQuotaExceeded = core.NewAppError(
		core.ErrForbidden,
		"sub-account creation limit reached",
		http.StatusBadRequest,
		"SUB_ACCOUNT_QUOTA_EXCEEDED",
	)
	errWrongRole = core.NewAppError(
		core.ErrForbidden,
		"only company and agent accounts can manage sub-accounts",
		http.StatusForbidden,
		"ROLE_NOT_ALLOWED",
	)
)

type Service struct {
	db     *sqlx.DB
	repo   Repository
	logger *slog.Logger

	// Transaction plumbing is injectable so the creation gates can be
	// exercised without a database.
	inTx           func(ctx context.Context, fn func(*sqlx.Tx) error) error
	newRepo        func(db core.DBTX) Repository
	newAccountRepo func(db core.DBTX) account.Repository
}

func NewService(db *sqlx.DB, repo Repository, logger *slog.Logger) *Service {
	s := &Service{db: db, repo: repo, logger: logger}
	s.inTx = func(ctx context.Context, fn func(*sqlx.Tx) error) error {
		return core.InTx(ctx, s.db, fn)
	}
	s.newRepo = NewRepository
	s.newAccountRepo = account.NewRepository
	return s
}

// Create provisions the delegated account and its sub-account row in one
// transaction. The profile row lock makes the quota increment exact even
// under concurrent requests.
func (s *Service) Create(
	ctx context.Context,
	callerAccountID string,
	req CreateSubAccountRequest,
) (*SubAccountDetail, error) {
	if problems := account.ValidatePasswordStrength(req.Password); len(problems) > 0 {
		return nil, core.ValidationError(strings.Join(problems, "; "))
	}

	passwordHash, err := core.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))

	var detail *SubAccountDetail

	err = s.inTx(ctx, func(tx *sqlx.Tx) error {
		txRepo := s.newRepo(tx)
		accountRepo := s.newAccountRepo(tx)

		profile, err := txRepo.GetProfileForUpdate(ctx, callerAccountID)
		if err != nil {
			return err
		}

		if profile.Role != account.RoleCompany &&
			profile.Role != account.RoleAgent {
			return errWrongRole
		}
		if !profile.CACVerified {
			return errCACUnverified
		}
		if profile.SubAccountsCreated >= profile.SubAccountLimit {
			return errQuotaExceeded
		}

		if exists, err := accountRepo.ExistsByEmail(ctx, email); err != nil {
			return err
		} else if exists {
			return core.DuplicateError("email")
		}
		if exists, err := accountRepo.ExistsByPhone(
			ctx, req.PhoneNumber,
		); err != nil {
			return err
		} else if exists {
			return core.DuplicateError("phone number")
		}

		department, err := txRepo.GetDepartmentByName(ctx, req.Department)
		if err != nil {
			return err
		}

		// Sub-accounts skip the OTP step; they are born active.
		acct := &account.Account{
			ID:            uuid.NewString(),
			Email:         email,
			PhoneNumber:   req.PhoneNumber,
			PasswordHash:  passwordHash,
			FirstName:     req.FirstName,
			LastName:      req.LastName,
			Role:          account.RoleSubAccount,
			Status:        account.StatusActive,
			Slug:          uuid.NewString(),
			EmailVerified: true,
		}
		if err := accountRepo.Create(ctx, acct); err != nil {
			return err
		}

		sub := &SubAccount{
			ID:           uuid.NewString(),
			AccountID:    acct.ID,
			DepartmentID: department.ID,
			Location:     req.Location,
			Slug:         acct.Slug,
		}
		switch profile.Role {
		case account.RoleCompany:
			sub.CompanyProfileID = &profile.ID
		case account.RoleAgent:
			sub.AgentProfileID = &profile.ID
		}

		if err := txRepo.Create(ctx, sub); err != nil {
			return err
		}

		if err := txRepo.IncrementSubAccountCount(ctx, profile.ID); err != nil {
			return err
		}

		detail = &SubAccountDetail{
			SubAccount:  *sub,
			Email:       acct.Email,
			PhoneNumber: acct.PhoneNumber,
			FirstName:   acct.FirstName,
			LastName:    acct.LastName,
			Status:      acct.Status,
			Department:  department.Name,
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "sub-account created",
		"account_id", detail.AccountID,
		"creator_account_id", callerAccountID,
	)

	return detail, nil
}

func (s *Service) List(
	ctx context.Context,
	callerAccountID string,
) ([]SubAccountDetail, error) {
	profile, err := s.callerProfile(ctx, callerAccountID)
	if err != nil {
		return nil, err
	}

	return s.repo.ListByProfile(ctx, profile.ID)
}

func (s *Service) GetBySlug(
	ctx context.Context,
	callerAccountID, slug string,
) (*SubAccountDetail, error) {
	profile, err := s.callerProfile(ctx, callerAccountID)
	if err != nil {
		return nil, err
	}

	return s.repo.GetBySlugForProfile(ctx, slug, profile.ID)
}

// Toggle flips the underlying account between active and disabled. The
// creator's quota counter is monotonic: deactivating does not free a slot.
func (s *Service) Toggle(
	ctx context.Context,
	callerAccountID, slug string,
) (*SubAccountDetail, error) {
	profile, err := s.callerProfile(ctx, callerAccountID)
	if err != nil {
		return nil, err
	}

	var detail *SubAccountDetail

	err = s.inTx(ctx, func(tx *sqlx.Tx) error {
		txRepo := s.newRepo(tx)
		accountRepo := s.newAccountRepo(tx)

		d, err := txRepo.GetBySlugForProfile(ctx, slug, profile.ID)
		if err != nil {
			return err
		}

		newStatus := account.StatusDisabled
		if d.Status == account.StatusDisabled {
			newStatus = account.StatusActive
		}

		if err := accountRepo.SetStatus(ctx, d.AccountID, newStatus); err != nil {
			return err
		}

		d.Status = newStatus
		detail = d

		return nil
	})
	if err != nil {
		return nil, err
	}

	return detail, nil
}

func (s *Service) ListDepartments(ctx context.Context) ([]Department, error) {
	return s.repo.ListDepartments(ctx)
}

func (s *Service) callerProfile(
	ctx context.Context,
	callerAccountID string,
) (*account.Profile, error) {
	profile, err := s.repo.GetProfileByAccount(ctx, callerAccountID)
	if err != nil {
		return nil, err
	}

	if profile.Role != account.RoleCompany &&
		profile.Role != account.RoleAgent {
		return nil, errWrongRole
	}

	return profile, nil
}
