// AngelaMos | 2026
// service_test.go

package account

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/cvms-ng/cvms-backend/internal/core"
)

type fakeRepo struct {
	accounts      map[string]*Account
	byEmail       map[string]*Account
	byOTP         map[string]*Account
	profiles      map[string]*Profile
	emailExists   bool
	phoneExists   bool
	verified      []string
	otpSets       int
	failedCounts  map[string]int
	lockCalls     int
	lockWon       bool
	resetCalls    int
	statusUpdates map[string]string
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		accounts:      map[string]*Account{},
		byEmail:       map[string]*Account{},
		byOTP:         map[string]*Account{},
		profiles:      map[string]*Profile{},
		failedCounts:  map[string]int{},
		statusUpdates: map[string]string{},
		lockWon:       true,
	}
}

func (f *fakeRepo) Create(_ context.Context, a *Account) error {
	f.accounts[a.ID] = a
	f.byEmail[a.Email] = a
	return nil
}

func (f *fakeRepo) CreateProfile(_ context.Context, p *Profile) error {
	f.profiles[p.AccountID] = p
	return nil
}

func (f *fakeRepo) GetByID(_ context.Context, id string) (*Account, error) {
	a, ok := f.accounts[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	return a, nil
}

func (f *fakeRepo) GetByEmail(_ context.Context, email string) (*Account, error) {
	a, ok := f.byEmail[email]
	if !ok {
		return nil, core.ErrNotFound
	}
	return a, nil
}

func (f *fakeRepo) GetByOTPToken(
	_ context.Context,
	token, code string,
) (*Account, error) {
	a, ok := f.byOTP[token+"|"+code]
	if !ok {
		return nil, core.ErrNotFound
	}
	return a, nil
}

func (f *fakeRepo) GetProfileByAccountID(
	_ context.Context,
	accountID string,
) (*Profile, error) {
	p, ok := f.profiles[accountID]
	if !ok {
		return nil, core.ErrNotFound
	}
	return p, nil
}

func (f *fakeRepo) ExistsByEmail(_ context.Context, _ string) (bool, error) {
	return f.emailExists, nil
}

func (f *fakeRepo) ExistsByPhone(_ context.Context, _ string) (bool, error) {
	return f.phoneExists, nil
}

func (f *fakeRepo) SetOTP(
	_ context.Context,
	_, _, _ string,
	_ time.Time,
) error {
	f.otpSets++
	return nil
}

func (f *fakeRepo) MarkVerified(_ context.Context, id string) error {
	f.verified = append(f.verified, id)
	return nil
}

func (f *fakeRepo) SetNINVerified(_ context.Context, _ string) error {
	return nil
}

func (f *fakeRepo) IncrementFailedLogins(
	_ context.Context,
	id string,
) (int, error) {
	f.failedCounts[id]++
	return f.failedCounts[id], nil
}

func (f *fakeRepo) Lock(_ context.Context, _, _ string) (bool, error) {
	f.lockCalls++
	return f.lockWon, nil
}

func (f *fakeRepo) ResetLoginState(_ context.Context, _ string) error {
	f.resetCalls++
	return nil
}

func (f *fakeRepo) UpdatePasswordAndUnlock(
	_ context.Context,
	_, _ string,
) error {
	return nil
}

func (f *fakeRepo) UpdatePasswordHash(_ context.Context, _, _ string) error {
	return nil
}

func (f *fakeRepo) SetStatus(_ context.Context, id, status string) error {
	f.statusUpdates[id] = status
	return nil
}

func (f *fakeRepo) SetCACVerified(
	_ context.Context,
	_ string,
	_ bool,
) error {
	return nil
}

type fakeMailer struct {
	codes []string
}

func (f *fakeMailer) SendOTP(_ context.Context, _, _, code string) error {
	f.codes = append(f.codes, code)
	return nil
}

type fakeSMS struct {
	codes []string
}

func (f *fakeSMS) SendOTP(_ context.Context, _, code string) error {
	f.codes = append(f.codes, code)
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestService(repo *fakeRepo) (*Service, *fakeMailer, *fakeSMS) {
	mailer := &fakeMailer{}
	sms := &fakeSMS{}
	return NewService(nil, repo, mailer, sms, discardLogger()), mailer, sms
}

func validRegisterRequest() RegisterRequest {
	return RegisterRequest{
		Role:            WireRoleIndividual,
		FirstName:       "Ada",
		LastName:        "Obi",
		Email:           "Ada@Example.com",
		PhoneNumber:     "+2348012345678",
		Address:         "12 Marina Rd, Lagos",
		Password:        "Str0ng!pass",
		ConfirmPassword: "Str0ng!pass",
	}
}

func TestRegisterRejectsUnknownRole(t *testing.T) {
	svc, _, _ := newTestService(newFakeRepo())

	req := validRegisterRequest()
	req.Role = "super user"

	_, err := svc.Register(context.Background(), req)
	if err == nil {
		t.Fatalf("expected error for unknown role")
	}
	if !errors.Is(err, core.ErrInvalidInput) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestRegisterRejectsWeakPassword(t *testing.T) {
	svc, _, _ := newTestService(newFakeRepo())

	req := validRegisterRequest()
	req.Password = "alllowercase"
	req.ConfirmPassword = "alllowercase"

	_, err := svc.Register(context.Background(), req)
	if err == nil {
		t.Fatalf("expected error for weak password")
	}

	appErr, ok := core.AsAppError(err)
	if !ok {
		t.Fatalf("expected AppError, got %v", err)
	}
	for _, want := range []string{"uppercase", "digit", "special"} {
		if !strings.Contains(appErr.Message, want) {
			t.Fatalf("expected %q in message %q", want, appErr.Message)
		}
	}
}

func TestRegisterAgentRequiresAgencyFields(t *testing.T) {
	svc, _, _ := newTestService(newFakeRepo())

	req := validRegisterRequest()
	req.Role = WireRoleAgent

	_, err := svc.Register(context.Background(), req)
	if err == nil {
		t.Fatalf("expected error for missing agency fields")
	}

	appErr, _ := core.AsAppError(err)
	for _, want := range []string{"agency_name", "declarant_code", "cac"} {
		if !strings.Contains(appErr.Message, want) {
			t.Fatalf("expected %q in message %q", want, appErr.Message)
		}
	}
}

func TestRegisterCompanyRequiresCompanyFields(t *testing.T) {
	svc, _, _ := newTestService(newFakeRepo())

	req := validRegisterRequest()
	req.Role = WireRoleCompany

	_, err := svc.Register(context.Background(), req)
	if err == nil {
		t.Fatalf("expected error for missing company fields")
	}

	appErr, _ := core.AsAppError(err)
	if !strings.Contains(appErr.Message, "company_name") {
		t.Fatalf("expected company_name in message %q", appErr.Message)
	}
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	repo := newFakeRepo()
	repo.emailExists = true
	svc, _, _ := newTestService(repo)

	_, err := svc.Register(context.Background(), validRegisterRequest())
	if !errors.Is(err, core.ErrDuplicateKey) {
		t.Fatalf("expected duplicate key error, got %v", err)
	}
}

func TestRegisterRejectsDuplicatePhone(t *testing.T) {
	repo := newFakeRepo()
	repo.phoneExists = true
	svc, _, _ := newTestService(repo)

	_, err := svc.Register(context.Background(), validRegisterRequest())
	if !errors.Is(err, core.ErrDuplicateKey) {
		t.Fatalf("expected duplicate key error, got %v", err)
	}
}

func otpAccount(token, code string, createdAt time.Time) *Account {
	return &Account{
		ID:           "acc-1",
		Email:        "ada@example.com",
		PhoneNumber:  "+2348012345678",
		FirstName:    "Ada",
		LastName:     "Obi",
		Role:         RoleIndividual,
		Status:       StatusPendingVerification,
		OTPCode:      &code,
		OTPToken:     &token,
		OTPCreatedAt: &createdAt,
	}
}

func TestVerifyOTPSuccess(t *testing.T) {
	repo := newFakeRepo()
	acct := otpAccount("tok", "123456", time.Now().UTC())
	repo.byOTP["tok|123456"] = acct
	svc, _, _ := newTestService(repo)

	verified, err := svc.VerifyOTP(context.Background(), "tok", "123456")
	if err != nil {
		t.Fatalf("verify otp: %v", err)
	}
	if verified.Status != StatusActive {
		t.Fatalf("expected active status, got %q", verified.Status)
	}
	if !verified.EmailVerified {
		t.Fatalf("expected email_verified")
	}
	if verified.OTPCode != nil || verified.OTPToken != nil {
		t.Fatalf("expected otp fields cleared")
	}
	if len(repo.verified) != 1 || repo.verified[0] != "acc-1" {
		t.Fatalf("expected MarkVerified for acc-1, got %v", repo.verified)
	}
}

func TestVerifyOTPUnknownPair(t *testing.T) {
	svc, _, _ := newTestService(newFakeRepo())

	_, err := svc.VerifyOTP(context.Background(), "tok", "000000")
	if !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestVerifyOTPExpired(t *testing.T) {
	repo := newFakeRepo()
	stale := time.Now().UTC().Add(-11 * time.Minute)
	repo.byOTP["tok|123456"] = otpAccount("tok", "123456", stale)
	svc, _, _ := newTestService(repo)

	_, err := svc.VerifyOTP(context.Background(), "tok", "123456")
	if !errors.Is(err, core.ErrTokenExpired) {
		t.Fatalf("expected expiry error, got %v", err)
	}
	if len(repo.verified) != 0 {
		t.Fatalf("expired otp must not verify the account")
	}
}

func TestVerifyOTPAlreadyUsed(t *testing.T) {
	repo := newFakeRepo()
	acct := otpAccount("tok", "123456", time.Now().UTC())
	acct.OTPUsed = true
	repo.byOTP["tok|123456"] = acct
	svc, _, _ := newTestService(repo)

	_, err := svc.VerifyOTP(context.Background(), "tok", "123456")
	appErr, ok := core.AsAppError(err)
	if !ok || appErr.Code != "OTP_USED" {
		t.Fatalf("expected OTP_USED error, got %v", err)
	}
}

func TestResendOTPIssuesFreshCode(t *testing.T) {
	repo := newFakeRepo()
	acct := otpAccount("old-tok", "999999", time.Now().UTC())
	repo.byEmail["ada@example.com"] = acct
	svc, mailer, sms := newTestService(repo)

	token, err := svc.ResendOTP(context.Background(), " Ada@Example.com ")
	if err != nil {
		t.Fatalf("resend otp: %v", err)
	}
	if token == "" || token == "old-tok" {
		t.Fatalf("expected a fresh token, got %q", token)
	}
	if repo.otpSets != 1 {
		t.Fatalf("expected one SetOTP call, got %d", repo.otpSets)
	}
	if len(mailer.codes) != 1 || len(sms.codes) != 1 {
		t.Fatalf("expected otp dispatched over email and sms")
	}
	if mailer.codes[0] != sms.codes[0] {
		t.Fatalf("email and sms must carry the same code")
	}
}

func TestResendOTPRejectsVerifiedAccount(t *testing.T) {
	repo := newFakeRepo()
	acct := otpAccount("tok", "123456", time.Now().UTC())
	acct.EmailVerified = true
	repo.byEmail["ada@example.com"] = acct
	svc, _, _ := newTestService(repo)

	_, err := svc.ResendOTP(context.Background(), "ada@example.com")
	if !errors.Is(err, core.ErrInvalidInput) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestParseRoleWireForms(t *testing.T) {
	cases := map[string]string{
		WireRoleIndividual: RoleIndividual,
		WireRoleAgent:      RoleAgent,
		WireRoleCompany:    RoleCompany,
		RoleAgent:          RoleAgent,
	}
	for wire, want := range cases {
		got, ok := ParseRole(wire)
		if !ok || got != want {
			t.Fatalf("ParseRole(%q) = %q, %v; want %q", wire, got, ok, want)
		}
	}

	if _, ok := ParseRole("admin account"); ok {
		t.Fatalf("unexpected role accepted")
	}
}

func TestValidatePasswordStrength(t *testing.T) {
	if problems := ValidatePasswordStrength("Str0ng!pass"); len(problems) != 0 {
		t.Fatalf("unexpected problems: %v", problems)
	}
	if problems := ValidatePasswordStrength("weak"); len(problems) != 3 {
		t.Fatalf("expected 3 problems, got %v", problems)
	}
}
