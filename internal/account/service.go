// AngelaMos | 2026
// service.go

package account

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/cvms-ng/cvms-backend/internal/core"
)

type OTPMailer interface {
	SendOTP(ctx context.Context, toEmail, toName, code string) error
}

type OTPSMSSender interface {
	SendOTP(ctx context.Context, phoneNumber, code string) error
}

type Service struct {
	db     *sqlx.DB
	repo   Repository
	mailer OTPMailer
	sms    OTPSMSSender
	logger *slog.Logger
}

func NewService(
	db *sqlx.DB,
	repo Repository,
	mailer OTPMailer,
	sms OTPSMSSender,
	logger *slog.Logger,
) *Service {
	return &Service{
		db:     db,
		repo:   repo,
		mailer: mailer,
		sms:    sms,
		logger: logger,
	}
}

var (
	errOTPExpired = core.NewAppError(
		core.ErrTokenExpired,
		"verification code has expired",
		400,
		"OTP_EXPIRED",
	)
	errOTPUsed = core.NewAppError(
		core.ErrInvalidInput,
		"verification code has already been used",
		400,
		"OTP_USED",
	)
)

// registrationStrategy holds the role-specific validation and profile
// construction for one account role.
type registrationStrategy struct {
	validate     func(req *RegisterRequest) []string
	buildProfile func(req *RegisterRequest, accountID string) *Profile
}

var registrationStrategies = map[string]registrationStrategy{
	RoleIndividual: {
		validate: func(_ *RegisterRequest) []string { return nil },
		buildProfile: func(_ *RegisterRequest, accountID string) *Profile {
			return &Profile{
				ID:              uuid.NewString(),
				AccountID:       accountID,
				Role:            RoleIndividual,
				SubAccountLimit: 0,
			}
		},
	},
	RoleAgent: {
		validate: func(req *RegisterRequest) []string {
			var problems []string
			if req.AgencyName == "" {
				problems = append(problems, "agency_name is required")
			}
			if req.DeclarantCode == "" {
				problems = append(problems, "declarant_code is required")
			}
			if req.CAC == "" {
				problems = append(problems, "cac is required")
			}
			return problems
		},
		buildProfile: func(req *RegisterRequest, accountID string) *Profile {
			return &Profile{
				ID:              uuid.NewString(),
				AccountID:       accountID,
				Role:            RoleAgent,
				BusinessName:    &req.AgencyName,
				CACNumber:       &req.CAC,
				DeclarantCode:   &req.DeclarantCode,
				Accredited:      req.Accredited,
				SubAccountLimit: DefaultSubAccountLimit,
			}
		},
	},
	RoleCompany: {
		validate: func(req *RegisterRequest) []string {
			var problems []string
			if req.CompanyName == "" {
				problems = append(problems, "company_name is required")
			}
			if req.CAC == "" {
				problems = append(problems, "cac is required")
			}
			return problems
		},
		buildProfile: func(req *RegisterRequest, accountID string) *Profile {
			return &Profile{
				ID:              uuid.NewString(),
				AccountID:       accountID,
				Role:            RoleCompany,
				BusinessName:    &req.CompanyName,
				CACNumber:       &req.CAC,
				Accredited:      req.Accredited,
				SubAccountLimit: DefaultSubAccountLimit,
			}
		},
	},
}

func (s *Service) Register(
	ctx context.Context,
	req RegisterRequest,
) (*Account, error) {
	role, ok := ParseRole(req.Role)
	if !ok {
		return nil, core.ValidationError(
			fmt.Sprintf("unknown role %q", req.Role),
		)
	}

	strategy := registrationStrategies[role]

	var problems []string
	problems = append(problems, ValidatePasswordStrength(req.Password)...)
	problems = append(problems, strategy.validate(&req)...)
	if len(problems) > 0 {
		return nil, core.ValidationError(strings.Join(problems, "; "))
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))

	if exists, err := s.repo.ExistsByEmail(ctx, email); err != nil {
		return nil, err
	} else if exists {
		return nil, core.DuplicateError("email")
	}

	if exists, err := s.repo.ExistsByPhone(ctx, req.PhoneNumber); err != nil {
		return nil, err
	} else if exists {
		return nil, core.DuplicateError("phone number")
	}

	passwordHash, err := core.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	code, err := core.GenerateOTP()
	if err != nil {
		return nil, fmt.Errorf("generate otp: %w", err)
	}
	otpToken := uuid.NewString()
	now := time.Now().UTC()

	account := &Account{
		ID:           uuid.NewString(),
		Email:        email,
		PhoneNumber:  req.PhoneNumber,
		PasswordHash: passwordHash,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Address:      req.Address,
		Role:         role,
		Status:       StatusPendingVerification,
		Slug:         slugify(req.PhoneNumber) + uuid.NewString(),
		OTPCode:      &code,
		OTPToken:     &otpToken,
		OTPCreatedAt: &now,
	}
	if req.OtherName != "" {
		account.OtherName = &req.OtherName
	}

	profile := strategy.buildProfile(&req, account.ID)

	err = core.InTx(ctx, s.db, func(tx *sqlx.Tx) error {
		txRepo := NewRepository(tx)
		if err := txRepo.Create(ctx, account); err != nil {
			return err
		}
		return txRepo.CreateProfile(ctx, profile)
	})
	if err != nil {
		return nil, err
	}

	s.dispatchOTP(ctx, account, code)

	return account, nil
}

func (s *Service) VerifyOTP(
	ctx context.Context,
	token, code string,
) (*Account, error) {
	account, err := s.repo.GetByOTPToken(ctx, token, code)
	if err != nil {
		return nil, err
	}

	if account.OTPCreatedAt == nil ||
		time.Since(*account.OTPCreatedAt) > otpTTL {
		return nil, errOTPExpired
	}

	if account.OTPUsed {
		return nil, errOTPUsed
	}

	if err := s.repo.MarkVerified(ctx, account.ID); err != nil {
		return nil, err
	}

	account.Status = StatusActive
	account.EmailVerified = true
	account.OTPUsed = true
	account.OTPCode = nil
	account.OTPToken = nil
	account.OTPCreatedAt = nil

	s.logger.InfoContext(ctx, "account verified", "account_id", account.ID)

	return account, nil
}

func (s *Service) ResendOTP(ctx context.Context, email string) (string, error) {
	account, err := s.repo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return "", err
	}

	if account.EmailVerified {
		return "", core.ValidationError("account is already verified")
	}

	token, err := s.IssueOTP(ctx, account)
	if err != nil {
		return "", err
	}

	return token, nil
}

// IssueOTP generates a fresh code and token for the account, persists
// them, and dispatches the code over email and SMS.
func (s *Service) IssueOTP(
	ctx context.Context,
	account *Account,
) (string, error) {
	code, err := core.GenerateOTP()
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}
	token := uuid.NewString()

	if err := s.repo.SetOTP(
		ctx, account.ID, code, token, time.Now().UTC(),
	); err != nil {
		return "", err
	}

	s.dispatchOTP(ctx, account, code)

	return token, nil
}

func (s *Service) dispatchOTP(
	ctx context.Context,
	account *Account,
	code string,
) {
	if err := s.mailer.SendOTP(
		ctx, account.Email, account.FullName(), code,
	); err != nil {
		s.logger.ErrorContext(ctx, "otp email dispatch failed",
			"account_id", account.ID,
			"error", err,
		)
	}

	if err := s.sms.SendOTP(ctx, account.PhoneNumber, code); err != nil {
		s.logger.ErrorContext(ctx, "otp sms dispatch failed",
			"account_id", account.ID,
			"error", err,
		)
	}
}

func (s *Service) GetMe(
	ctx context.Context,
	accountID string,
) (*Account, *Profile, error) {
	if accountID == "" {
		return nil, nil, fmt.Errorf("get me: %w", core.ErrUnauthorized)
	}

	account, err := s.repo.GetByID(ctx, accountID)
	if err != nil {
		return nil, nil, err
	}

	profile, err := s.repo.GetProfileByAccountID(ctx, accountID)
	if err != nil && !errors.Is(err, core.ErrNotFound) {
		return nil, nil, err
	}

	return account, profile, nil
}

func (s *Service) FindByEmail(
	ctx context.Context,
	email string,
) (*Account, error) {
	return s.repo.GetByEmail(ctx, strings.ToLower(email))
}

func (s *Service) FindByID(ctx context.Context, id string) (*Account, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) RecordLoginFailure(
	ctx context.Context,
	id string,
) (int, error) {
	return s.repo.IncrementFailedLogins(ctx, id)
}

func (s *Service) LockWithResetLink(
	ctx context.Context,
	id, resetLinkToken string,
) (bool, error) {
	return s.repo.Lock(ctx, id, resetLinkToken)
}

func (s *Service) ClearLoginFailures(ctx context.Context, id string) error {
	return s.repo.ResetLoginState(ctx, id)
}

func (s *Service) UpgradePasswordHash(
	ctx context.Context,
	id, passwordHash string,
) error {
	return s.repo.UpdatePasswordHash(ctx, id, passwordHash)
}

func (s *Service) ResetPassword(
	ctx context.Context,
	id, passwordHash string,
) error {
	return s.repo.UpdatePasswordAndUnlock(ctx, id, passwordHash)
}

func (s *Service) MarkNINVerified(ctx context.Context, id string) error {
	return s.repo.SetNINVerified(ctx, id)
}

func (s *Service) MarkCACVerified(ctx context.Context, profileID string) error {
	return s.repo.SetCACVerified(ctx, profileID, true)
}

func (s *Service) GetProfile(
	ctx context.Context,
	accountID string,
) (*Profile, error) {
	return s.repo.GetProfileByAccountID(ctx, accountID)
}

func slugify(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ', r == '-', r == '_':
			b.WriteByte('-')
		}
	}
	return b.String()
}
