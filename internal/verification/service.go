// AngelaMos | 2026
// service.go

package verification

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/cvms-ng/cvms-backend/internal/account"
	"github.com/cvms-ng/cvms-backend/internal/core"
)

var (
	errNINMismatch = core.NewAppError(
		core.ErrInvalidInput,
		"NIN found but details do not match",
		http.StatusBadRequest,
		"NIN_MISMATCH",
	)
	errNINNotFound = core.NewAppError(
		core.ErrNotFound,
		"NIN not found, please verify your NIN",
		http.StatusNotFound,
		"NIN_NOT_FOUND",
	)
	errAlreadyReviewed = core.NewAppError(
		core.ErrInvalidInput,
		"verification request has already been reviewed",
		http.StatusConflict,
		"CAC_ALREADY_REVIEWED",
	)
	errPendingRequest = core.NewAppError(
		core.ErrDuplicateKey,
		"a verification request is already under review",
		http.StatusConflict,
		"CAC_REQUEST_PENDING",
	)
	errWrongRole = core.NewAppError(
		core.ErrForbidden,
		"only agent and company accounts submit CAC documents",
		http.StatusForbidden,
		"ROLE_NOT_ALLOWED",
	)
)

// NINLookup resolves a NIN to the registered identity.
type NINLookup interface {
	Lookup(ctx context.Context, nin string) (*NINIdentity, error)
}

// VerificationMailer sends the verification lifecycle emails.
type VerificationMailer interface {
	SendNINVerified(ctx context.Context, toEmail, toName string) error
	SendCACReceived(ctx context.Context, toEmail, toName string) error
	SendCACDecision(ctx context.Context, toEmail, toName string, approved bool) error
}

type Service struct {
	repo      Repository
	accounts  *account.Service
	nin       NINLookup
	mailer    VerificationMailer
	mediaRoot string
	logger    *slog.Logger
}

func NewService(
	repo Repository,
	accounts *account.Service,
	nin NINLookup,
	mailer VerificationMailer,
	mediaRoot string,
	logger *slog.Logger,
) *Service {
	return &Service{
		repo:      repo,
		accounts:  accounts,
		nin:       nin,
		mailer:    mailer,
		mediaRoot: mediaRoot,
		logger:    logger,
	}
}

// VerifyNIN checks the caller's registered name against the identity
// provider's record and flags the account on a match.
func (s *Service) VerifyNIN(
	ctx context.Context,
	accountID, nin string,
) (*VerifyNINResponse, error) {
	acct, err := s.accounts.FindByID(ctx, accountID)
	if err != nil {
		return nil, err
	}

	identity, err := s.nin.Lookup(ctx, nin)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, errNINNotFound
		}
		return nil, err
	}

	if !strings.EqualFold(acct.FirstName, identity.FirstName) ||
		!strings.EqualFold(acct.LastName, identity.LastName) {
		return nil, errNINMismatch
	}

	if err := s.accounts.MarkNINVerified(ctx, accountID); err != nil {
		return nil, fmt.Errorf("mark nin verified: %w", err)
	}

	if err := s.mailer.SendNINVerified(ctx, acct.Email, acct.FullName()); err != nil {
		s.logger.WarnContext(ctx, "nin verification email failed",
			"account_id", accountID,
			"error", err,
		)
	}

	return &VerifyNINResponse{
		Message:   "NIN verified successfully",
		FirstName: identity.FirstName,
		LastName:  identity.LastName,
	}, nil
}

// Document is one uploaded verification file.
type Document struct {
	File   multipart.File
	Header *multipart.FileHeader
}

// DocumentSet holds the three files a CAC submission requires.
type DocumentSet struct {
	CACCertificate        Document
	StatusCertificate     Document
	LetterOfAuthorization Document
}

// SubmitCAC stores the uploaded documents and opens a pending review.
func (s *Service) SubmitCAC(
	ctx context.Context,
	accountID string,
	docs DocumentSet,
) (*CACRequest, error) {
	acct, err := s.accounts.FindByID(ctx, accountID)
	if err != nil {
		return nil, err
	}

	profile, err := s.accounts.GetProfile(ctx, accountID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, errWrongRole
		}
		return nil, err
	}
	if profile.Role != account.RoleAgent && profile.Role != account.RoleCompany {
		return nil, errWrongRole
	}

	if _, err := s.repo.GetPendingByAccount(ctx, accountID); err == nil {
		return nil, errPendingRequest
	} else if !errors.Is(err, core.ErrNotFound) {
		return nil, err
	}

	cacPath, err := s.saveDocument(docs.CACCertificate, "cac_certificates")
	if err != nil {
		return nil, err
	}
	statusPath, err := s.saveDocument(docs.StatusCertificate, "status_certificates")
	if err != nil {
		return nil, err
	}
	letterPath, err := s.saveDocument(docs.LetterOfAuthorization, "authorization_letters")
	if err != nil {
		return nil, err
	}

	request := &CACRequest{
		ID:                    uuid.NewString(),
		AccountID:             accountID,
		Slug:                  uuid.NewString(),
		CACCertificate:        cacPath,
		StatusCertificate:     statusPath,
		LetterOfAuthorization: letterPath,
		Status:                RequestStatusPending,
	}

	if err := s.repo.Create(ctx, request); err != nil {
		return nil, err
	}

	if err := s.mailer.SendCACReceived(ctx, acct.Email, acct.FullName()); err != nil {
		s.logger.WarnContext(ctx, "cac receipt email failed",
			"account_id", accountID,
			"error", err,
		)
	}

	return request, nil
}

// ReviewCAC settles a pending request. Approval flips the submitter's
// profile to cac_verified, which gates sub-account creation.
func (s *Service) ReviewCAC(
	ctx context.Context,
	reviewerID, requestID, decision string,
) (*CACRequest, error) {
	request, err := s.repo.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if !request.IsPending() {
		return nil, errAlreadyReviewed
	}

	approved := decision == "approve"
	status := RequestStatusRejected
	if approved {
		status = RequestStatusApproved
	}

	if err := s.repo.Review(ctx, requestID, status, reviewerID); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, errAlreadyReviewed
		}
		return nil, err
	}

	if approved {
		profile, err := s.accounts.GetProfile(ctx, request.AccountID)
		if err != nil {
			return nil, fmt.Errorf("load submitter profile: %w", err)
		}
		if err := s.accounts.MarkCACVerified(ctx, profile.ID); err != nil {
			return nil, fmt.Errorf("mark cac verified: %w", err)
		}
	}

	if acct, err := s.accounts.FindByID(ctx, request.AccountID); err == nil {
		if err := s.mailer.SendCACDecision(
			ctx, acct.Email, acct.FullName(), approved,
		); err != nil {
			s.logger.WarnContext(ctx, "cac decision email failed",
				"request_id", requestID,
				"error", err,
			)
		}
	}

	request.Status = status
	request.ReviewedBy = &reviewerID

	return request, nil
}

func (s *Service) ListRequests(
	ctx context.Context,
	status string,
	limit, offset int,
) ([]CACRequest, int, error) {
	return s.repo.List(ctx, status, limit, offset)
}

func (s *Service) saveDocument(doc Document, subdir string) (string, error) {
	if doc.File == nil || doc.Header == nil {
		return "", core.ValidationError("all three documents are required")
	}

	ext := strings.ToLower(filepath.Ext(doc.Header.Filename))
	if !allowedDocumentExts[ext] {
		return "", core.ValidationError("only PNG, JPG, and PDF files are allowed")
	}
	if doc.Header.Size > maxDocumentSize {
		return "", core.ValidationError("file size must not exceed 10MB")
	}

	dir := filepath.Join(s.mediaRoot, subdir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create media dir: %w", err)
	}

	name := uuid.NewString() + ext
	path := filepath.Join(dir, name)

	dst, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create document file: %w", err)
	}
	defer dst.Close() //nolint:errcheck // best effort, write errors surface below

	if _, err := io.Copy(dst, io.LimitReader(doc.File, maxDocumentSize+1)); err != nil {
		return "", fmt.Errorf("store document: %w", err)
	}

	return filepath.Join(subdir, name), nil
}
