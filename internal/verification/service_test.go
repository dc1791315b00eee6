// AngelaMos | 2026
// service_test.go

package verification

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/cvms-ng/cvms-backend/internal/account"
	"github.com/cvms-ng/cvms-backend/internal/core"
)

type fakeAccountRepo struct {
	accounts    map[string]*account.Account
	profiles    map[string]*account.Profile
	ninVerified []string
	cacVerified []string
}

func newFakeAccountRepo() *fakeAccountRepo {
	return &fakeAccountRepo{
		accounts: map[string]*account.Account{},
		profiles: map[string]*account.Profile{},
	}
}

func (f *fakeAccountRepo) Create(_ context.Context, _ *account.Account) error {
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
	id string,
) (*account.Account, error) {
	a, ok := f.accounts[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	return a, nil
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
	accountID string,
) (*account.Profile, error) {
	p, ok := f.profiles[accountID]
	if !ok {
		return nil, core.ErrNotFound
	}
	return p, nil
}

func (f *fakeAccountRepo) ExistsByEmail(
	_ context.Context,
	_ string,
) (bool, error) {
	return false, nil
}

func (f *fakeAccountRepo) ExistsByPhone(
	_ context.Context,
	_ string,
) (bool, error) {
	return false, nil
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

func (f *fakeAccountRepo) SetNINVerified(_ context.Context, id string) error {
	f.ninVerified = append(f.ninVerified, id)
	return nil
}

func (f *fakeAccountRepo) IncrementFailedLogins(
	_ context.Context,
	_ string,
) (int, error) {
	return 0, nil
}

func (f *fakeAccountRepo) Lock(
	_ context.Context,
	_, _ string,
) (bool, error) {
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

func (f *fakeAccountRepo) SetStatus(_ context.Context, _, _ string) error {
	return nil
}

func (f *fakeAccountRepo) SetCACVerified(
	_ context.Context,
	profileID string,
	verified bool,
) error {
	if verified {
		f.cacVerified = append(f.cacVerified, profileID)
	}
	return nil
}

type fakeCACRepo struct {
	requests map[string]*CACRequest
	pending  map[string]*CACRequest
	created  []*CACRequest
	reviews  [][3]string
}

func newFakeCACRepo() *fakeCACRepo {
	return &fakeCACRepo{
		requests: map[string]*CACRequest{},
		pending:  map[string]*CACRequest{},
	}
}

func (f *fakeCACRepo) Create(_ context.Context, r *CACRequest) error {
	f.created = append(f.created, r)
	f.requests[r.ID] = r
	f.pending[r.AccountID] = r
	return nil
}

func (f *fakeCACRepo) GetByID(
	_ context.Context,
	id string,
) (*CACRequest, error) {
	r, ok := f.requests[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	return r, nil
}

func (f *fakeCACRepo) GetPendingByAccount(
	_ context.Context,
	accountID string,
) (*CACRequest, error) {
	r, ok := f.pending[accountID]
	if !ok {
		return nil, core.ErrNotFound
	}
	return r, nil
}

func (f *fakeCACRepo) List(
	_ context.Context,
	_ string,
	_, _ int,
) ([]CACRequest, int, error) {
	return nil, 0, nil
}

func (f *fakeCACRepo) Review(
	_ context.Context,
	id, status, reviewedBy string,
) error {
	r, ok := f.requests[id]
	if !ok || !r.IsPending() {
		return core.ErrNotFound
	}
	f.reviews = append(f.reviews, [3]string{id, status, reviewedBy})
	r.Status = status
	delete(f.pending, r.AccountID)
	return nil
}

type fakeNINLookup struct {
	identities map[string]*NINIdentity
	err        error
}

func (f *fakeNINLookup) Lookup(
	_ context.Context,
	nin string,
) (*NINIdentity, error) {
	if f.err != nil {
		return nil, f.err
	}
	id, ok := f.identities[nin]
	if !ok {
		return nil, core.ErrNotFound
	}
	return id, nil
}

type fakeVerificationMailer struct {
	ninVerified int
	cacReceived int
	decisions   []bool
}

func (f *fakeVerificationMailer) SendNINVerified(
	_ context.Context,
	_, _ string,
) error {
	f.ninVerified++
	return nil
}

func (f *fakeVerificationMailer) SendCACReceived(
	_ context.Context,
	_, _ string,
) error {
	f.cacReceived++
	return nil
}

func (f *fakeVerificationMailer) SendCACDecision(
	_ context.Context,
	_, _ string,
	approved bool,
) error {
	f.decisions = append(f.decisions, approved)
	return nil
}

type verificationFixture struct {
	svc         *Service
	repo        *fakeCACRepo
	accountRepo *fakeAccountRepo
	nin         *fakeNINLookup
	mailer      *fakeVerificationMailer
}

func newVerificationFixture(t *testing.T) *verificationFixture {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	accountRepo := newFakeAccountRepo()
	accounts := account.NewService(nil, accountRepo, nil, nil, logger)

	repo := newFakeCACRepo()
	nin := &fakeNINLookup{identities: map[string]*NINIdentity{}}
	mailer := &fakeVerificationMailer{}

	svc := NewService(repo, accounts, nin, mailer, t.TempDir(), logger)

	return &verificationFixture{
		svc:         svc,
		repo:        repo,
		accountRepo: accountRepo,
		nin:         nin,
		mailer:      mailer,
	}
}

func seedAccount(f *verificationFixture, role string) {
	f.accountRepo.accounts["acct-1"] = &account.Account{
		ID:        "acct-1",
		Email:     "ada@example.com",
		FirstName: "Ada",
		LastName:  "Obi",
		Role:      role,
	}
	f.accountRepo.profiles["acct-1"] = &account.Profile{
		ID:        "prof-1",
		AccountID: "acct-1",
		Role:      role,
	}
}

func TestVerifyNINMatch(t *testing.T) {
	f := newVerificationFixture(t)
	seedAccount(f, account.RoleIndividual)
	f.nin.identities["12345678901"] = &NINIdentity{
		FirstName: "ADA",
		LastName:  "obi",
	}

	resp, err := f.svc.VerifyNIN(context.Background(), "acct-1", "12345678901")
	if err != nil {
		t.Fatalf("verify nin: %v", err)
	}
	if resp.FirstName != "ADA" {
		t.Fatalf("unexpected response %+v", resp)
	}
	if len(f.accountRepo.ninVerified) != 1 {
		t.Fatalf("expected account flagged nin_verified")
	}
	if f.mailer.ninVerified != 1 {
		t.Fatalf("expected confirmation email")
	}
}

func TestVerifyNINMismatch(t *testing.T) {
	f := newVerificationFixture(t)
	seedAccount(f, account.RoleIndividual)
	f.nin.identities["12345678901"] = &NINIdentity{
		FirstName: "Chidi",
		LastName:  "Okafor",
	}

	_, err := f.svc.VerifyNIN(context.Background(), "acct-1", "12345678901")
	appErr, ok := core.AsAppError(err)
	if !ok || appErr.Code != "NIN_MISMATCH" {
		t.Fatalf("expected NIN_MISMATCH, got %v", err)
	}
	if len(f.accountRepo.ninVerified) != 0 {
		t.Fatalf("mismatch must not flag the account")
	}
}

func TestVerifyNINUnknownNumber(t *testing.T) {
	f := newVerificationFixture(t)
	seedAccount(f, account.RoleIndividual)

	_, err := f.svc.VerifyNIN(context.Background(), "acct-1", "00000000000")
	appErr, ok := core.AsAppError(err)
	if !ok || appErr.Code != "NIN_NOT_FOUND" {
		t.Fatalf("expected NIN_NOT_FOUND, got %v", err)
	}
}

func formDocument(t *testing.T, name string, size int) Document {
	t.Helper()

	return Document{
		File: nopFile{strings.NewReader(strings.Repeat("x", size))},
		Header: &multipart.FileHeader{
			Filename: name,
			Size:     int64(size),
		},
	}
}

type nopFile struct{ *strings.Reader }

func (nopFile) Close() error { return nil }

func validDocumentSet(t *testing.T) DocumentSet {
	t.Helper()

	return DocumentSet{
		CACCertificate:        formDocument(t, "cac.pdf", 128),
		StatusCertificate:     formDocument(t, "status.png", 128),
		LetterOfAuthorization: formDocument(t, "letter.jpg", 128),
	}
}

func TestSubmitCACStoresDocuments(t *testing.T) {
	f := newVerificationFixture(t)
	seedAccount(f, account.RoleCompany)

	request, err := f.svc.SubmitCAC(
		context.Background(), "acct-1", validDocumentSet(t),
	)
	if err != nil {
		t.Fatalf("submit cac: %v", err)
	}

	if request.Status != RequestStatusPending {
		t.Fatalf("expected pending request, got %q", request.Status)
	}
	if !strings.HasPrefix(request.CACCertificate, "cac_certificates"+string(os.PathSeparator)) {
		t.Fatalf("unexpected stored path %q", request.CACCertificate)
	}

	stored := filepath.Join(f.svc.mediaRoot, request.CACCertificate)
	if _, err := os.Stat(stored); err != nil {
		t.Fatalf("document not written to media root: %v", err)
	}
	if f.mailer.cacReceived != 1 {
		t.Fatalf("expected receipt email")
	}
}

func TestSubmitCACRejectsIndividual(t *testing.T) {
	f := newVerificationFixture(t)
	seedAccount(f, account.RoleIndividual)

	_, err := f.svc.SubmitCAC(
		context.Background(), "acct-1", validDocumentSet(t),
	)
	appErr, ok := core.AsAppError(err)
	if !ok || appErr.Code != "ROLE_NOT_ALLOWED" {
		t.Fatalf("expected ROLE_NOT_ALLOWED, got %v", err)
	}
}

func TestSubmitCACRejectsSecondPending(t *testing.T) {
	f := newVerificationFixture(t)
	seedAccount(f, account.RoleAgent)

	if _, err := f.svc.SubmitCAC(
		context.Background(), "acct-1", validDocumentSet(t),
	); err != nil {
		t.Fatalf("first submit: %v", err)
	}

	_, err := f.svc.SubmitCAC(
		context.Background(), "acct-1", validDocumentSet(t),
	)
	appErr, ok := core.AsAppError(err)
	if !ok || appErr.Code != "CAC_REQUEST_PENDING" {
		t.Fatalf("expected CAC_REQUEST_PENDING, got %v", err)
	}
}

func TestSubmitCACRejectsBadExtension(t *testing.T) {
	f := newVerificationFixture(t)
	seedAccount(f, account.RoleCompany)

	docs := validDocumentSet(t)
	docs.StatusCertificate = formDocument(t, "status.exe", 128)

	_, err := f.svc.SubmitCAC(context.Background(), "acct-1", docs)
	if !errors.Is(err, core.ErrInvalidInput) {
		t.Fatalf("expected extension rejection, got %v", err)
	}
}

func TestSubmitCACRejectsOversizeDocument(t *testing.T) {
	f := newVerificationFixture(t)
	seedAccount(f, account.RoleCompany)

	docs := validDocumentSet(t)
	docs.LetterOfAuthorization = Document{
		File: nopFile{strings.NewReader("x")},
		Header: &multipart.FileHeader{
			Filename: "letter.pdf",
			Size:     maxDocumentSize + 1,
		},
	}

	_, err := f.svc.SubmitCAC(context.Background(), "acct-1", docs)
	if !errors.Is(err, core.ErrInvalidInput) {
		t.Fatalf("expected size rejection, got %v", err)
	}
}

func TestReviewCACApprove(t *testing.T) {
	f := newVerificationFixture(t)
	seedAccount(f, account.RoleCompany)

	request, err := f.svc.SubmitCAC(
		context.Background(), "acct-1", validDocumentSet(t),
	)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	reviewed, err := f.svc.ReviewCAC(
		context.Background(), "admin-1", request.ID, "approve",
	)
	if err != nil {
		t.Fatalf("review: %v", err)
	}

	if reviewed.Status != RequestStatusApproved {
		t.Fatalf("expected approved, got %q", reviewed.Status)
	}
	if len(f.accountRepo.cacVerified) != 1 ||
		f.accountRepo.cacVerified[0] != "prof-1" {
		t.Fatalf("approval must flag the submitter's profile")
	}
	if len(f.mailer.decisions) != 1 || !f.mailer.decisions[0] {
		t.Fatalf("expected approval email")
	}
}

func TestReviewCACReject(t *testing.T) {
	f := newVerificationFixture(t)
	seedAccount(f, account.RoleCompany)

	request, err := f.svc.SubmitCAC(
		context.Background(), "acct-1", validDocumentSet(t),
	)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	reviewed, err := f.svc.ReviewCAC(
		context.Background(), "admin-1", request.ID, "reject",
	)
	if err != nil {
		t.Fatalf("review: %v", err)
	}

	if reviewed.Status != RequestStatusRejected {
		t.Fatalf("expected rejected, got %q", reviewed.Status)
	}
	if len(f.accountRepo.cacVerified) != 0 {
		t.Fatalf("rejection must not flag the profile")
	}
}

func TestReviewCACAlreadyReviewed(t *testing.T) {
	f := newVerificationFixture(t)
	seedAccount(f, account.RoleCompany)

	request, err := f.svc.SubmitCAC(
		context.Background(), "acct-1", validDocumentSet(t),
	)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	if _, err := f.svc.ReviewCAC(
		context.Background(), "admin-1", request.ID, "approve",
	); err != nil {
		t.Fatalf("first review: %v", err)
	}

	_, err = f.svc.ReviewCAC(
		context.Background(), "admin-2", request.ID, "reject",
	)
	appErr, ok := core.AsAppError(err)
	if !ok || appErr.Code != "CAC_ALREADY_REVIEWED" {
		t.Fatalf("expected CAC_ALREADY_REVIEWED, got %v", err)
	}
}
