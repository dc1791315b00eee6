// AngelaMos | 2026
// service.go

package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/cvms-ng/cvms-backend/internal/account"
	"github.com/cvms-ng/cvms-backend/internal/audit"
	"github.com/cvms-ng/cvms-backend/internal/core"
	"github.com/cvms-ng/cvms-backend/internal/middleware"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrTokenReuse         = errors.New("token reuse detected")
)

var (
	errAccountInactive = core.NewAppError(
		core.ErrForbidden,
		"inactive user - activate your account",
		http.StatusForbidden,
		"ACCOUNT_INACTIVE",
	)
	errAccountLocked = core.NewAppError(
		core.ErrForbidden,
		"account locked after repeated failed login attempts; "+
			"check your email for a password reset link",
		http.StatusForbidden,
		"ACCOUNT_LOCKED",
	)
	errAccountDisabled = core.NewAppError(
		core.ErrForbidden,
		"account has been disabled",
		http.StatusForbidden,
		"ACCOUNT_DISABLED",
	)
	errResetTokenUsed = core.NewAppError(
		core.ErrInvalidInput,
		"reset token has already been used",
		http.StatusBadRequest,
		"RESET_TOKEN_USED",
	)
)

// AccountProvider is the slice of the account service the auth workflow
// needs; account.Service satisfies it.
type AccountProvider interface {
	FindByEmail(ctx context.Context, email string) (*account.Account, error)
	FindByID(ctx context.Context, id string) (*account.Account, error)
	RecordLoginFailure(ctx context.Context, id string) (int, error)
	LockWithResetLink(ctx context.Context, id, token string) (bool, error)
	ClearLoginFailures(ctx context.Context, id string) error
	UpgradePasswordHash(ctx context.Context, id, passwordHash string) error
	ResetPassword(ctx context.Context, id, passwordHash string) error
}

// ResetMailer delivers the two reset flavors; notify.Mailer satisfies it.
type ResetMailer interface {
	SendPasswordReset(ctx context.Context, toEmail, toName, token string) error
	SendAccountLocked(ctx context.Context, toEmail, toName, token string) error
}

type AuditRecorder interface {
	Record(ctx context.Context, entry audit.Entry)
}

type Service struct {
	repo     Repository
	jwt      *JWTManager
	accounts AccountProvider
	mailer   ResetMailer
	auditor  AuditRecorder
	redis    *redis.Client
}

func NewService(
	repo Repository,
	jwt *JWTManager,
	accounts AccountProvider,
	mailer ResetMailer,
	auditor AuditRecorder,
	redisClient *redis.Client,
) *Service {
	return &Service{
		repo:     repo,
		jwt:      jwt,
		accounts: accounts,
		mailer:   mailer,
		auditor:  auditor,
		redis:    redisClient,
	}
}

func (s *Service) Login(
	ctx context.Context,
	req LoginRequest,
	userAgent, ipAddress string,
) (*AuthResponse, error) {
	acct, err := s.accounts.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			//nolint:errcheck // timing attack prevention - always verify to prevent enumeration
			_, _, _ = core.VerifyPasswordTimingSafe(req.Password, nil)
			s.auditor.Record(ctx, audit.Entry{
				Event:     audit.EventLoginFailure,
				Email:     req.Email,
				IPAddress: ipAddress,
				UserAgent: userAgent,
				Reason:    "unknown email",
			})
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("get account: %w", err)
	}

	// A locked account rejects even correct credentials until the reset
	// link is redeemed.
	switch acct.Status {
	case account.StatusLocked:
		s.recordFailure(ctx, acct, userAgent, ipAddress, "account locked")
		return nil, errAccountLocked
	case account.StatusPendingVerification:
		return nil, errAccountInactive
	case account.StatusDisabled:
		return nil, errAccountDisabled
	}

	valid, newHash, err := core.VerifyPasswordTimingSafe(
		req.Password,
		&acct.PasswordHash,
	)
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}

	if !valid {
		return nil, s.handleFailedAttempt(ctx, acct, userAgent, ipAddress)
	}

	if newHash != "" {
		//nolint:errcheck // best-effort rehash upgrade
		_ = s.accounts.UpgradePasswordHash(ctx, acct.ID, newHash)
	}

	if acct.FailedLogins > 0 {
		if err := s.accounts.ClearLoginFailures(ctx, acct.ID); err != nil {
			return nil, fmt.Errorf("clear login failures: %w", err)
		}
	}

	s.auditor.Record(ctx, audit.Entry{
		Event:     audit.EventLoginSuccess,
		AccountID: acct.ID,
		Email:     acct.Email,
		IPAddress: ipAddress,
		UserAgent: userAgent,
	})

	return s.createAuthResponse(ctx, acct, userAgent, ipAddress, "", nil)
}

// handleFailedAttempt runs the lockout state machine: increment the
// counter, and on crossing the threshold lock the account and issue the
// one-time reset link.
func (s *Service) handleFailedAttempt(
	ctx context.Context,
	acct *account.Account,
	userAgent, ipAddress string,
) error {
	count, err := s.accounts.RecordLoginFailure(ctx, acct.ID)
	if err != nil {
		return fmt.Errorf("record login failure: %w", err)
	}

	s.recordFailure(ctx, acct, userAgent, ipAddress, "wrong password")

	if count <= maxFailedLogins {
		return ErrInvalidCredentials
	}

	token, err := core.GenerateSecureToken(32)
	if err != nil {
		return fmt.Errorf("generate reset link token: %w", err)
	}

	won, err := s.accounts.LockWithResetLink(ctx, acct.ID, core.HashToken(token))
	if err != nil {
		return fmt.Errorf("lock account: %w", err)
	}

	if won {
		resetToken := &PasswordResetToken{
			ID:        uuid.NewString(),
			AccountID: acct.ID,
			TokenHash: core.HashToken(token),
			ExpiresAt: time.Now().Add(passwordResetTTL),
		}
		if err := s.repo.CreateResetToken(ctx, resetToken); err != nil {
			return fmt.Errorf("store reset token: %w", err)
		}

		//nolint:errcheck // lockout proceeds even if the mail bounces
		_ = s.mailer.SendAccountLocked(ctx, acct.Email, acct.FullName(), token)

		s.auditor.Record(ctx, audit.Entry{
			Event:     audit.EventLockout,
			AccountID: acct.ID,
			Email:     acct.Email,
			IPAddress: ipAddress,
			UserAgent: userAgent,
			Reason:    "failed login threshold exceeded",
		})
	}

	return errAccountLocked
}

func (s *Service) recordFailure(
	ctx context.Context,
	acct *account.Account,
	userAgent, ipAddress, reason string,
) {
	s.auditor.Record(ctx, audit.Entry{
		Event:     audit.EventLoginFailure,
		AccountID: acct.ID,
		Email:     acct.Email,
		IPAddress: ipAddress,
		UserAgent: userAgent,
		Reason:    reason,
	})
}

func (s *Service) Refresh(
	ctx context.Context,
	refreshToken, userAgent, ipAddress string,
) (*AuthResponse, error) {
	tokenHash := core.HashToken(refreshToken)

	storedToken, err := s.repo.FindByHash(ctx, tokenHash)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, fmt.Errorf("refresh: %w", core.ErrTokenInvalid)
		}
		return nil, fmt.Errorf("find token: %w", err)
	}

	if storedToken.IsUsed {
		//nolint:errcheck // security revocation continues regardless
		_ = s.repo.RevokeByFamilyID(ctx, storedToken.FamilyID)
		return nil, ErrTokenReuse
	}

	if !storedToken.IsValid() {
		if storedToken.IsRevoked() {
			return nil, fmt.Errorf("refresh: %w", core.ErrTokenRevoked)
		}
		return nil, fmt.Errorf("refresh: %w", core.ErrTokenExpired)
	}

	acct, err := s.accounts.FindByID(ctx, storedToken.AccountID)
	if err != nil {
		return nil, fmt.Errorf("get account: %w", err)
	}

	if !acct.IsActive() {
		return nil, fmt.Errorf("refresh: %w", core.ErrForbidden)
	}

	return s.createAuthResponse(
		ctx,
		acct,
		userAgent,
		ipAddress,
		storedToken.FamilyID,
		&storedToken.ID,
	)
}

// Logout revokes the presented refresh token's family and blacklists the
// current access token until its natural expiry.
func (s *Service) Logout(
	ctx context.Context,
	refreshToken string,
	claims *middleware.AccessTokenClaims,
	userAgent, ipAddress string,
) error {
	if refreshToken != "" {
		tokenHash := core.HashToken(refreshToken)

		storedToken, err := s.repo.FindByHash(ctx, tokenHash)
		if err == nil {
			if storedToken.AccountID != claims.AccountID {
				return fmt.Errorf("logout: %w", core.ErrForbidden)
			}
			if err := s.repo.RevokeByFamilyID(
				ctx, storedToken.FamilyID,
			); err != nil {
				return fmt.Errorf("revoke token family: %w", err)
			}
		} else if !errors.Is(err, core.ErrNotFound) {
			return fmt.Errorf("find token: %w", err)
		}
	}

	if err := s.blacklistAccessToken(
		ctx, claims.JTI, claims.ExpiresAt,
	); err != nil {
		return err
	}

	s.auditor.Record(ctx, audit.Entry{
		Event:     audit.EventLogout,
		AccountID: claims.AccountID,
		IPAddress: ipAddress,
		UserAgent: userAgent,
	})

	return nil
}

func (s *Service) blacklistAccessToken(
	ctx context.Context,
	jti string,
	expiresAt time.Time,
) error {
	if jti == "" {
		return nil
	}

	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}

	key := blacklistKeyPrefix + jti
	if err := s.redis.Set(ctx, key, "1", ttl).Err(); err != nil {
		return fmt.Errorf("blacklist token: %w", err)
	}

	return nil
}

// VerifyAccessToken implements middleware.TokenVerifier: signature and
// claim checks, then the logout blacklist.
func (s *Service) VerifyAccessToken(
	ctx context.Context,
	token string,
) (*middleware.AccessTokenClaims, error) {
	claims, err := s.jwt.ParseAccessToken(token)
	if err != nil {
		return nil, err
	}

	key := blacklistKeyPrefix + claims.JTI
	exists, err := s.redis.Exists(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("check blacklist: %w", err)
	}
	if exists > 0 {
		return nil, fmt.Errorf("verify token: %w", core.ErrTokenRevoked)
	}

	return claims, nil
}

func (s *Service) RequestPasswordReset(
	ctx context.Context,
	email, userAgent, ipAddress string,
) error {
	acct, err := s.accounts.FindByEmail(ctx, email)
	if err != nil {
		return err
	}

	token, err := core.GenerateSecureToken(32)
	if err != nil {
		return fmt.Errorf("generate reset token: %w", err)
	}

	resetToken := &PasswordResetToken{
		ID:        uuid.NewString(),
		AccountID: acct.ID,
		TokenHash: core.HashToken(token),
		ExpiresAt: time.Now().Add(passwordResetTTL),
	}
	if err := s.repo.CreateResetToken(ctx, resetToken); err != nil {
		return fmt.Errorf("store reset token: %w", err)
	}

	if err := s.mailer.SendPasswordReset(
		ctx, acct.Email, acct.FullName(), token,
	); err != nil {
		return err
	}

	s.auditor.Record(ctx, audit.Entry{
		Event:     audit.EventPasswordResetRequest,
		AccountID: acct.ID,
		Email:     acct.Email,
		IPAddress: ipAddress,
		UserAgent: userAgent,
	})

	return nil
}

func (s *Service) ConfirmPasswordReset(
	ctx context.Context,
	req PasswordResetConfirmRequest,
	userAgent, ipAddress string,
) error {
	if problems := account.ValidatePasswordStrength(req.Password); len(problems) > 0 {
		return core.ValidationError(strings.Join(problems, "; "))
	}

	resetToken, err := s.repo.FindResetTokenByHash(
		ctx,
		core.HashToken(req.Token),
	)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return fmt.Errorf("confirm reset: %w", core.ErrTokenInvalid)
		}
		return fmt.Errorf("find reset token: %w", err)
	}

	// Used wins over expired so a replayed token always reports AlreadyUsed.
	if resetToken.IsUsed {
		return errResetTokenUsed
	}

	if resetToken.IsExpired() {
		return fmt.Errorf("confirm reset: %w", core.ErrTokenExpired)
	}

	newHash, err := core.HashPassword(req.Password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	if err := s.accounts.ResetPassword(
		ctx, resetToken.AccountID, newHash,
	); err != nil {
		return fmt.Errorf("reset password: %w", err)
	}

	if err := s.repo.MarkResetTokenUsed(ctx, resetToken.ID); err != nil {
		return fmt.Errorf("mark reset token used: %w", err)
	}

	if err := s.repo.RevokeAllForAccount(
		ctx, resetToken.AccountID,
	); err != nil {
		return fmt.Errorf("revoke sessions: %w", err)
	}

	acct, err := s.accounts.FindByID(ctx, resetToken.AccountID)
	if err == nil {
		s.auditor.Record(ctx, audit.Entry{
			Event:     audit.EventPasswordResetComplete,
			AccountID: acct.ID,
			Email:     acct.Email,
			IPAddress: ipAddress,
			UserAgent: userAgent,
		})
	}

	return nil
}

func (s *Service) createAuthResponse(
	ctx context.Context,
	acct *account.Account,
	userAgent, ipAddress, familyID string,
	oldTokenID *string,
) (*AuthResponse, error) {
	accessToken, err := s.jwt.CreateAccessToken(AccessTokenClaims{
		AccountID: acct.ID,
		Role:      acct.Role,
		Status:    acct.Status,
	})
	if err != nil {
		return nil, fmt.Errorf("create access token: %w", err)
	}

	refreshData, err := s.jwt.CreateRefreshToken(acct.ID, familyID)
	if err != nil {
		return nil, fmt.Errorf("create refresh token: %w", err)
	}

	newTokenID := uuid.New().String()

	refreshTokenEntity := &RefreshToken{
		ID:        newTokenID,
		AccountID: acct.ID,
		TokenHash: refreshData.Hash,
		FamilyID:  refreshData.FamilyID,
		ExpiresAt: refreshData.ExpiresAt,
		UserAgent: userAgent,
		IPAddress: ipAddress,
	}

	if err := s.repo.Create(ctx, refreshTokenEntity); err != nil {
		return nil, fmt.Errorf("store refresh token: %w", err)
	}

	if oldTokenID != nil {
		//nolint:errcheck // best-effort token chain tracking
		_ = s.repo.MarkAsUsed(ctx, *oldTokenID, newTokenID)
	}

	accessExpire := s.jwt.config.AccessTokenExpire

	return &AuthResponse{
		Account: AccountSummary{
			ID:          acct.ID,
			Email:       acct.Email,
			FirstName:   acct.FirstName,
			LastName:    acct.LastName,
			Role:        acct.Role,
			Status:      acct.Status,
			NINVerified: acct.NINVerified,
		},
		Tokens: TokenResponse{
			AccessToken:  accessToken,
			RefreshToken: refreshData.Token,
			TokenType:    "Bearer",
			ExpiresIn:    int(accessExpire / time.Second),
			ExpiresAt:    time.Now().Add(accessExpire),
		},
	}, nil
}
