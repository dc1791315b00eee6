// AngelaMos | 2026
// service_test.go

package subaccount

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/cvms-ng/cvms-backend/internal/account"
	"github.com/cvms-ng/cvms-backend/internal/core"
)

type fakeRepo struct {
	profiles    map[string]*account.Profile
	details     map[string]*SubAccountDetail
	departments []Department
	listed      []SubAccountDetail
	created     []*SubAccount
	increments  int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		profiles: map[string]*account.Profile{},
		details:  map[string]*SubAccountDetail{},
	}
}

func (f *fakeRepo) Create(_ context.Context, sub *SubAccount) error {
	f.created = append(f.created, sub)
	return nil
}

func (f *fakeRepo) ListByProfile(
	_ context.Context,
	_ string,
) ([]SubAccountDetail, error) {
	return f.listed, nil
}

func (f *fakeRepo) GetBySlugForProfile(
	_ context.Context,
	slug, _ string,
) (*SubAccountDetail, error) {
	d, ok := f.details[slug]
	if !ok {
		return nil, core.ErrNotFound
	}
	return d, nil
}

func (f *fakeRepo) GetProfileForUpdate(
	_ context.Context,
	accountID string,
) (*account.Profile, error) {
	return f.GetProfileByAccount(context.Background(), accountID)
}

func (f *fakeRepo) GetProfileByAccount(
	_ context.Context,
	accountID string,
) (*account.Profile, error) {
	p, ok := f.profiles[accountID]
	if !ok {
		return nil, core.ErrNotFound
	}
	return p, nil
}

func (f *fakeRepo) IncrementSubAccountCount(
	_ context.Context,
	_ string,
) error {
	f.increments++
	return nil
}

func (f *fakeRepo) GetDepartmentByName(
	_ context.Context,
	name string,
) (*Department, error) {
	for i := range f.departments {
		if f.departments[i].Name == name {
			return &f.departments[i], nil
		}
	}
	return nil, core.ErrNotFound
}

func (f *fakeRepo) ListDepartments(_ context.Context) ([]Department, error) {
	return f.departments, nil
}

type fakeAccountRepo struct {
	emailExists   bool
	phoneExists   bool
	created       []*account.Account
	statusUpdates map[string]string
}

func newFakeAccountRepo() *fakeAccountRepo {
	return &fakeAccountRepo{statusUpdates: map[string]string{}}
}

func (f *fakeAccountRepo) Create(_ context.Context, a *account.Account) error {
	f.created = append(f.created, a)
	return nil
}

func (f *fakeAccountRepo) CreateProfile(
	_ context.Context,
	_ *account.Profile,
) error {
	return nil
}

func (f *fakeAccountRepo) GetByID(
	_ context.Context,
	_ string,
) (*account.Account, error) {
	return nil, core.ErrNotFound
}

func (f *fakeAccountRepo) GetByEmail(
	_ context.Context,
	_ string,
) (*account.Account, error) {
	return nil, core.ErrNotFound
}

func (f *fakeAccountRepo) GetByOTPToken(
	_ context.Context,
	_, _ string,
) (*account.Account, error) {
	return nil, core.ErrNotFound
}

func (f *fakeAccountRepo) GetProfileByAccountID(
	_ context.Context,
	_ string,
) (*account.Profile, error) {
	return nil, core.ErrNotFound
}

func (f *fakeAccountRepo) ExistsByEmail(
	_ context.Context,
	_ string,
) (bool, error) {
	return f.emailExists, nil
}

func (f *fakeAccountRepo) ExistsByPhone(
	_ context.Context,
	_ string,
) (bool, error) {
	return f.phoneExists, nil
}

func (f *fakeAccountRepo) SetOTP(
	_ context.Context,
	_, _, _ string,
	_ time.Time,
) error {
	return nil
}

func (f *fakeAccountRepo) MarkVerified(_ context.Context, _ string) error {
	return nil
}

func (f *fakeAccountRepo) SetNINVerified(_ context.Context, _ string) error {
	return nil
}

func (f *fakeAccountRepo) IncrementFailedLogins(
	_ context.Context,
	_ string,
) (int, error) {
	return 0, nil
}

func (f *fakeAccountRepo) Lock(_ context.Context, _, _ string) (bool, error) {
	return false, nil
}

func (f *fakeAccountRepo) ResetLoginState(_ context.Context, _ string) error {
	return nil
}

func (f *fakeAccountRepo) UpdatePasswordAndUnlock(
	_ context.Context,
	_, _ string,
) error {
	return nil
}

func (f *fakeAccountRepo) UpdatePasswordHash(
	_ context.Context,
	_, _ string,
) error {
	return nil
}

func (f *fakeAccountRepo) SetStatus(_ context.Context, id, status string) error {
	f.statusUpdates[id] = status
	return nil
}

func (f *fakeAccountRepo) SetCACVerified(
	_ context.Context,
	_ string,
	_ bool,
) error {
	return nil
}

func newTestService(
	repo *fakeRepo,
	accountRepo *fakeAccountRepo,
) *Service {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewService(nil, repo, logger)
	svc.inTx = func(ctx context.Context, fn func(*sqlx.Tx) error) error {
		return fn(nil)
	}
	svc.newRepo = func(core.DBTX) Repository { return repo }
	svc.newAccountRepo = func(core.DBTX) account.Repository { return accountRepo }
	return svc
}

func creatorProfile(role string) *account.Profile {
	return &account.Profile{
		ID:              "prof-1",
		AccountID:       "acct-1",
		Role:            role,
		CACVerified:     true,
		SubAccountLimit: 5,
	}
}

func validCreateRequest() CreateSubAccountRequest {
	return CreateSubAccountRequest{
		FirstName:       "Ngozi",
		LastName:        "Eze",
		Email:           "ngozi@example.com",
		PhoneNumber:     "+2348011112222",
		Location:        "Apapa",
		Department:      "Clearing",
		Password:        "Str0ng!pass",
		ConfirmPassword: "Str0ng!pass",
	}
}

func TestCreateRejectsWeakPassword(t *testing.T) {
	svc := newTestService(newFakeRepo(), newFakeAccountRepo())

	req := validCreateRequest()
	req.Password = "alllowercase"
	req.ConfirmPassword = req.Password

	_, err := svc.Create(context.Background(), "acct-1", req)
	if !errors.Is(err, core.ErrInvalidInput) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCreateRejectsWrongRole(t *testing.T) {
	repo := newFakeRepo()
	p := creatorProfile(account.RoleIndividual)
	repo.profiles["acct-1"] = p
	svc := newTestService(repo, newFakeAccountRepo())

	_, err := svc.Create(context.Background(), "acct-1", validCreateRequest())
	appErr, ok := core.AsAppError(err)
	if !ok || appErr.Code != "ROLE_NOT_ALLOWED" {
		t.Fatalf("expected ROLE_NOT_ALLOWED, got %v", err)
	}
}

func TestCreateRequiresCACVerification(t *testing.T) {
	repo := newFakeRepo()
	p := creatorProfile(account.RoleCompany)
	p.CACVerified = false
	repo.profiles["acct-1"] = p
	svc := newTestService(repo, newFakeAccountRepo())

	_, err := svc.Create(context.Background(), "acct-1", validCreateRequest())
	appErr, ok := core.AsAppError(err)
	if !ok || appErr.Code != "CAC_UNVERIFIED" {
		t.Fatalf("expected CAC_UNVERIFIED, got %v", err)
	}
	if repo.increments != 0 {
		t.Fatalf("rejection must not touch the counter")
	}
}

func TestCreateRejectsExhaustedQuota(t *testing.T) {
	repo := newFakeRepo()
	p := creatorProfile(account.RoleCompany)
	p.SubAccountsCreated = 5
	repo.profiles["acct-1"] = p
	svc := newTestService(repo, newFakeAccountRepo())

	_, err := svc.Create(context.Background(), "acct-1", validCreateRequest())
	appErr, ok := core.AsAppError(err)
	if !ok || appErr.Code != "SUB_ACCOUNT_QUOTA_EXCEEDED" {
		t.Fatalf("expected SUB_ACCOUNT_QUOTA_EXCEEDED, got %v", err)
	}
	if repo.increments != 0 || len(repo.created) != 0 {
		t.Fatalf("rejection must create nothing")
	}
}

func TestCreateRejectsDuplicateEmail(t *testing.T) {
	repo := newFakeRepo()
	repo.profiles["acct-1"] = creatorProfile(account.RoleCompany)
	accountRepo := newFakeAccountRepo()
	accountRepo.emailExists = true
	svc := newTestService(repo, accountRepo)

	_, err := svc.Create(context.Background(), "acct-1", validCreateRequest())
	if !errors.Is(err, core.ErrDuplicateKey) {
		t.Fatalf("expected duplicate email rejection, got %v", err)
	}
}

func TestCreateIncrementsQuotaOnce(t *testing.T) {
	repo := newFakeRepo()
	repo.profiles["acct-1"] = creatorProfile(account.RoleCompany)
	repo.departments = []Department{{ID: "dep-1", Name: "Clearing"}}
	accountRepo := newFakeAccountRepo()
	svc := newTestService(repo, accountRepo)

	detail, err := svc.Create(context.Background(), "acct-1", validCreateRequest())
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if repo.increments != 1 {
		t.Fatalf("expected exactly one counter increment, got %d", repo.increments)
	}
	if len(accountRepo.created) != 1 {
		t.Fatalf("expected one account row, got %d", len(accountRepo.created))
	}

	acct := accountRepo.created[0]
	if acct.Role != account.RoleSubAccount {
		t.Fatalf("expected sub_account role, got %q", acct.Role)
	}
	if acct.Status != account.StatusActive || !acct.EmailVerified {
		t.Fatalf("sub-accounts must skip the OTP step, got %+v", acct)
	}

	if len(repo.created) != 1 {
		t.Fatalf("expected one sub-account row")
	}
	sub := repo.created[0]
	if sub.CompanyProfileID == nil || *sub.CompanyProfileID != "prof-1" {
		t.Fatalf("company creator must own the row, got %+v", sub)
	}
	if sub.AgentProfileID != nil {
		t.Fatalf("agent pointer must stay empty for a company creator")
	}
	if sub.DepartmentID != "dep-1" {
		t.Fatalf("unexpected department %q", sub.DepartmentID)
	}

	if detail.Department != "Clearing" || detail.Email != "ngozi@example.com" {
		t.Fatalf("unexpected detail %+v", detail)
	}
}

func TestCreateLinksAgentCreator(t *testing.T) {
	repo := newFakeRepo()
	repo.profiles["acct-1"] = creatorProfile(account.RoleAgent)
	repo.departments = []Department{{ID: "dep-1", Name: "Clearing"}}
	svc := newTestService(repo, newFakeAccountRepo())

	if _, err := svc.Create(
		context.Background(), "acct-1", validCreateRequest(),
	); err != nil {
		t.Fatalf("create: %v", err)
	}

	sub := repo.created[0]
	if sub.AgentProfileID == nil || *sub.AgentProfileID != "prof-1" {
		t.Fatalf("agent creator must own the row, got %+v", sub)
	}
	if sub.CompanyProfileID != nil {
		t.Fatalf("company pointer must stay empty for an agent creator")
	}
}

func TestToggleFlipsStatus(t *testing.T) {
	repo := newFakeRepo()
	repo.profiles["acct-1"] = creatorProfile(account.RoleCompany)
	repo.details["sub-slug"] = &SubAccountDetail{
		SubAccount: SubAccount{AccountID: "sub-acct-1"},
		Status:     account.StatusActive,
	}
	accountRepo := newFakeAccountRepo()
	svc := newTestService(repo, accountRepo)

	detail, err := svc.Toggle(context.Background(), "acct-1", "sub-slug")
	if err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if detail.Status != account.StatusDisabled {
		t.Fatalf("expected disabled after toggle, got %q", detail.Status)
	}
	if accountRepo.statusUpdates["sub-acct-1"] != account.StatusDisabled {
		t.Fatalf("account status not updated")
	}

	detail, err = svc.Toggle(context.Background(), "acct-1", "sub-slug")
	if err != nil {
		t.Fatalf("second toggle: %v", err)
	}
	if detail.Status != account.StatusActive {
		t.Fatalf("expected active after second toggle, got %q", detail.Status)
	}

	if repo.increments != 0 {
		t.Fatalf("deactivation must not touch the quota counter")
	}
}

func TestListRejectsIndividualProfile(t *testing.T) {
	repo := newFakeRepo()
	repo.profiles["acct-1"] = &account.Profile{
		ID:        "prof-1",
		AccountID: "acct-1",
		Role:      account.RoleIndividual,
	}
	svc := newTestService(repo, newFakeAccountRepo())

	_, err := svc.List(context.Background(), "acct-1")
	appErr, ok := core.AsAppError(err)
	if !ok || appErr.Code != "ROLE_NOT_ALLOWED" {
		t.Fatalf("expected ROLE_NOT_ALLOWED, got %v", err)
	}
}

func TestListReturnsCreatorSubAccounts(t *testing.T) {
	repo := newFakeRepo()
	repo.profiles["acct-1"] = creatorProfile(account.RoleCompany)
	repo.listed = []SubAccountDetail{
		{Email: "one@example.com"},
		{Email: "two@example.com"},
	}
	svc := newTestService(repo, newFakeAccountRepo())

	details, err := svc.List(context.Background(), "acct-1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(details) != 2 {
		t.Fatalf("expected 2 sub-accounts, got %d", len(details))
	}
}

func TestGetBySlugUnknownCaller(t *testing.T) {
	svc := newTestService(newFakeRepo(), newFakeAccountRepo())

	_, err := svc.GetBySlug(context.Background(), "ghost", "some-slug")
	if !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestGetBySlugScopedToCreator(t *testing.T) {
	repo := newFakeRepo()
	repo.profiles["acct-1"] = creatorProfile(account.RoleAgent)
	repo.details["sub-slug"] = &SubAccountDetail{
		Email:  "ngozi@example.com",
		Status: account.StatusActive,
	}
	svc := newTestService(repo, newFakeAccountRepo())

	detail, err := svc.GetBySlug(context.Background(), "acct-1", "sub-slug")
	if err != nil {
		t.Fatalf("get by slug: %v", err)
	}
	if detail.Email != "ngozi@example.com" {
		t.Fatalf("unexpected detail %+v", detail)
	}

	if _, err := svc.GetBySlug(
		context.Background(), "acct-1", "other-slug",
	); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found for foreign slug, got %v", err)
	}
}
