// AngelaMos | 2026
// service.go

package vin

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/cvms-ng/cvms-backend/internal/core"
)

var (
	errTooManySingle = core.NewAppError(
		core.ErrInvalidInput,
		"cannot perform more than 5 VIN checks per request",
		http.StatusBadRequest,
		"VIN_LIMIT_EXCEEDED",
	)
	errTooManyBulk = core.NewAppError(
		core.ErrInvalidInput,
		"cannot validate more than 20 VINs at once",
		http.StatusBadRequest,
		"VIN_LIMIT_EXCEEDED",
	)
	errDuplicateUpload = core.NewAppError(
		core.ErrDuplicateKey,
		"this file already exists",
		http.StatusBadRequest,
		"DUPLICATE_UPLOAD",
	)
)

// StatusLookup answers whether the customs authority has a payment
// record for a VIN.
type StatusLookup interface {
	Lookup(ctx context.Context, vin string) (*ExternalStatus, error)
}

type Service struct {
	db         *sqlx.DB
	repo       Repository
	status     StatusLookup
	uploadRoot string
	logger     *slog.Logger
}

func NewService(
	db *sqlx.DB,
	repo Repository,
	status StatusLookup,
	uploadRoot string,
	logger *slog.Logger,
) *Service {
	return &Service{
		db:         db,
		repo:       repo,
		status:     status,
		uploadRoot: uploadRoot,
		logger:     logger,
	}
}

// Search checks up to five VINs. The limit is enforced before any
// external call is made, and every requested VIN gets exactly one
// entry in the result.
func (s *Service) Search(
	ctx context.Context,
	accountID string,
	vins []string,
) ([]SearchResult, error) {
	if len(vins) == 0 {
		return nil, core.ValidationError("at least one VIN is required")
	}
	if len(vins) > maxSingleSearch {
		return nil, errTooManySingle
	}

	return s.lookupAll(ctx, accountID, vins), nil
}

// BulkSearch extracts the vin column from an uploaded workbook and
// runs the same lookup with a higher cap.
func (s *Service) BulkSearch(
	ctx context.Context,
	accountID, fileName string,
	file io.Reader,
) ([]SearchResult, error) {
	if !strings.HasSuffix(strings.ToLower(fileName), ".xlsx") {
		return nil, core.ValidationError("upload an Excel (.xlsx) file")
	}

	data, err := io.ReadAll(io.LimitReader(file, maxUploadSize+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if len(data) > maxUploadSize {
		return nil, core.ValidationError("file size exceeds the maximum limit of 5MB")
	}

	vins, err := extractVINColumn(data)
	if err != nil {
		return nil, err
	}
	if len(vins) == 0 {
		return nil, core.ValidationError("no VINs found in the file")
	}
	if len(vins) > maxBulkSearch {
		return nil, errTooManyBulk
	}

	return s.lookupAll(ctx, accountID, vins), nil
}

func (s *Service) lookupAll(
	ctx context.Context,
	accountID string,
	vins []string,
) []SearchResult {
	results := make([]SearchResult, 0, len(vins))

	for _, raw := range vins {
		normalized := NormalizeVIN(raw)
		results = append(results, s.lookupOne(ctx, accountID, normalized))
	}

	return results
}

// lookupOne consults both the external source and the local duty
// files. A local match wins even when the external source disagrees.
func (s *Service) lookupOne(
	ctx context.Context,
	accountID, vin string,
) SearchResult {
	external, extErr := s.status.Lookup(ctx, vin)

	record, err := s.repo.GetDutyFileByVIN(ctx, vin)
	switch {
	case err == nil:
		if extErr == nil && NormalizeVIN(external.VIN) != record.VIN {
			s.logger.WarnContext(ctx, "external vin record disagrees with local",
				"vin", vin,
				"external_vin", external.VIN,
			)
		}

		result := SearchResult{
			VIN:    record.VIN,
			Status: SearchStatusMatched,
			Record: ToDutyFileResponse(record),
		}

		history, histErr := s.ensureCertificate(ctx, accountID, record)
		if histErr != nil {
			s.logger.ErrorContext(ctx, "certificate issue failed",
				"vin", vin,
				"error", histErr,
			)
		} else {
			result.Certificate = &CertificateInfo{
				CertNum:   history.CertNum,
				CreatedAt: history.CreatedAt,
			}
		}

		return result

	case errors.Is(err, core.ErrNotFound):
		if extErr != nil && !errors.Is(extErr, core.ErrNotFound) {
			return SearchResult{
				VIN:    vin,
				Status: SearchStatusError,
				Error:  "error fetching from external source",
			}
		}
		return SearchResult{
			VIN:    vin,
			Status: SearchStatusNotFound,
		}

	default:
		s.logger.ErrorContext(ctx, "duty file lookup failed",
			"vin", vin,
			"error", err,
		)
		return SearchResult{
			VIN:    vin,
			Status: SearchStatusError,
			Error:  "error looking up local record",
		}
	}
}

// ensureCertificate returns the caller's certificate for a duty file,
// issuing one on first sight. The certificate number and QR image are
// never regenerated once assigned.
func (s *Service) ensureCertificate(
	ctx context.Context,
	accountID string,
	record *DutyFile,
) (*SearchHistory, error) {
	history, err := s.repo.GetHistory(ctx, accountID, record.ID)
	if err == nil {
		return history, nil
	}
	if !errors.Is(err, core.ErrNotFound) {
		return nil, err
	}

	createdAt := time.Now().UTC()

	png, err := encodeCertificateQR(record, createdAt)
	if err != nil {
		return nil, fmt.Errorf("encode certificate qr: %w", err)
	}

	history = &SearchHistory{
		ID:         uuid.NewString(),
		AccountID:  accountID,
		DutyFileID: record.ID,
		CertNum:    newCertNum(record.VIN),
		QRPNG:      png,
	}

	if err := s.repo.CreateHistory(ctx, history); err != nil {
		// Lost a race with a concurrent search for the same VIN.
		if errors.Is(err, core.ErrDuplicateKey) {
			return s.repo.GetHistory(ctx, accountID, record.ID)
		}
		return nil, err
	}

	return history, nil
}

func newCertNum(vin string) string {
	slug := strings.ToLower(vin)
	if len(slug) > 5 {
		slug = slug[:5]
	}
	return fmt.Sprintf("CERT-NO/%s-%s", slug, uuid.NewString()[:10])
}

func encodeCertificateQR(record *DutyFile, createdAt time.Time) ([]byte, error) {
	paymentStatus := "unknown"
	if record.PaymentStatus != nil {
		paymentStatus = *record.PaymentStatus
	}

	payload := fmt.Sprintf(
		"VIN: %s, payment_status: %s, date_created: %s",
		record.VIN,
		paymentStatus,
		createdAt.Format(time.RFC3339),
	)

	return qrcode.Encode(payload, qrcode.Medium, 256)
}

// Ingest parses a customs export, upserts every row, and records the
// upload. File names are unique so the same export is rejected on a
// second attempt.
func (s *Service) Ingest(
	ctx context.Context,
	uploaderID, fileName string,
	size int64,
	file io.Reader,
) (*DutyFileUpload, int, error) {
	if size > maxUploadSize {
		return nil, 0, core.ValidationError(
			"file size exceeds the maximum limit of 5MB",
		)
	}

	exists, err := s.repo.ExistsUploadByName(ctx, fileName)
	if err != nil {
		return nil, 0, err
	}
	if exists {
		return nil, 0, errDuplicateUpload
	}

	fileType, err := classifyUpload(fileName)
	if err != nil {
		return nil, 0, err
	}

	data, err := io.ReadAll(io.LimitReader(file, maxUploadSize+1))
	if err != nil {
		return nil, 0, fmt.Errorf("read upload: %w", err)
	}
	if len(data) > maxUploadSize {
		return nil, 0, core.ValidationError(
			"file size exceeds the maximum limit of 5MB",
		)
	}

	rows, err := parseDutyRows(fileType, data)
	if err != nil {
		return nil, 0, err
	}
	if len(rows) == 0 {
		return nil, 0, core.ValidationError("no records found in the file")
	}

	storedPath, err := s.storeUpload(fileName, data)
	if err != nil {
		return nil, 0, err
	}

	upload := &DutyFileUpload{
		ID:         uuid.NewString(),
		UploadedBy: uploaderID,
		FileName:   fileName,
		FilePath:   storedPath,
		FileType:   fileType,
		Processed:  true,
		Slug:       uuid.NewString(),
	}

	err = core.InTx(ctx, s.db, func(tx *sqlx.Tx) error {
		txRepo := NewRepository(tx)

		for i := range rows {
			if err := txRepo.UpsertDutyFile(
				ctx, rows[i].toDutyFile(uuid.NewString()),
			); err != nil {
				return err
			}
		}

		return txRepo.CreateUpload(ctx, upload)
	})
	if err != nil {
		if errors.Is(err, core.ErrDuplicateKey) {
			return nil, 0, errDuplicateUpload
		}
		return nil, 0, err
	}

	return upload, len(rows), nil
}

func classifyUpload(fileName string) (string, error) {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".csv":
		return "csv", nil
	case ".xls", ".xlsx":
		return "excel", nil
	case ".json":
		return "json", nil
	default:
		return "", core.ValidationError(
			"invalid file format, upload a CSV, Excel, or JSON file",
		)
	}
}

func (s *Service) storeUpload(fileName string, data []byte) (string, error) {
	if err := os.MkdirAll(s.uploadRoot, 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}

	name := uuid.NewString() + strings.ToLower(filepath.Ext(fileName))
	path := filepath.Join(s.uploadRoot, name)

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("store upload: %w", err)
	}

	return name, nil
}

func (s *Service) ListUploads(
	ctx context.Context,
	limit, offset int,
) ([]DutyFileUpload, int, error) {
	return s.repo.ListUploads(ctx, limit, offset)
}

func (s *Service) History(
	ctx context.Context,
	accountID string,
) ([]HistoryDetail, error) {
	return s.repo.ListHistoryByAccount(ctx, accountID)
}

func (s *Service) HistoryByVIN(
	ctx context.Context,
	accountID, vin string,
) (*HistoryDetail, error) {
	return s.repo.GetHistoryByVIN(ctx, accountID, NormalizeVIN(vin))
}
