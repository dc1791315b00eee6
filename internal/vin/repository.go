// AngelaMos | 2026
// repository.go

package vin

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/cvms-ng/cvms-backend/internal/core"
)

type Repository interface {
	UpsertDutyFile(ctx context.Context, file *DutyFile) error
	GetDutyFileByVIN(ctx context.Context, vin string) (*DutyFile, error)
	CreateUpload(ctx context.Context, upload *DutyFileUpload) error
	ExistsUploadByName(ctx context.Context, fileName string) (bool, error)
	ListUploads(ctx context.Context, limit, offset int) ([]DutyFileUpload, int, error)
	CreateHistory(ctx context.Context, history *SearchHistory) error
	GetHistory(ctx context.Context, accountID, dutyFileID string) (*SearchHistory, error)
	ListHistoryByAccount(ctx context.Context, accountID string) ([]HistoryDetail, error)
	GetHistoryByVIN(ctx context.Context, accountID, vin string) (*HistoryDetail, error)
}

// HistoryDetail joins a certificate with its duty file record.
type HistoryDetail struct {
	SearchHistory
	DutyFile DutyFile `db:"duty_file"`
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

const dutyFileColumns = `
	id, vin, brand, model, vehicle_year, engine_type, vreg, vehicle_type,
	importer_tin, importer_business_name, importer_address, origin_country,
	hscode, sgd_num, sgd_date, office_cod, payment_status,
	created_at, updated_at`

func (r *repository) UpsertDutyFile(ctx context.Context, file *DutyFile) error {
	query := `
		INSERT INTO duty_files (
			id, vin, brand, model, vehicle_year, engine_type, vreg,
			vehicle_type, importer_tin, importer_business_name,
			importer_address, origin_country, hscode, sgd_num, sgd_date,
			office_cod, payment_status
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13,
			$14, $15, $16, $17)
		ON CONFLICT (vin) DO UPDATE SET
			brand = EXCLUDED.brand,
			model = EXCLUDED.model,
			vehicle_year = EXCLUDED.vehicle_year,
			engine_type = EXCLUDED.engine_type,
			vreg = EXCLUDED.vreg,
			vehicle_type = EXCLUDED.vehicle_type,
			importer_tin = EXCLUDED.importer_tin,
			importer_business_name = EXCLUDED.importer_business_name,
			importer_address = EXCLUDED.importer_address,
			origin_country = EXCLUDED.origin_country,
			hscode = EXCLUDED.hscode,
			sgd_num = EXCLUDED.sgd_num,
			sgd_date = EXCLUDED.sgd_date,
			office_cod = EXCLUDED.office_cod,
			payment_status = EXCLUDED.payment_status,
			updated_at = NOW()
		RETURNING id, created_at, updated_at`

	err := r.db.GetContext(ctx, file, query,
		file.ID,
		file.VIN,
		file.Brand,
		file.Model,
		file.VehicleYear,
		file.EngineType,
		file.VReg,
		file.VehicleType,
		file.ImporterTIN,
		file.ImporterBusinessName,
		file.ImporterAddress,
		file.OriginCountry,
		file.HSCode,
		file.SGDNumber,
		file.SGDDate,
		file.OfficeCode,
		file.PaymentStatus,
	)
	if err != nil {
		return fmt.Errorf("upsert duty file: %w", err)
	}

	return nil
}

func (r *repository) GetDutyFileByVIN(
	ctx context.Context,
	vin string,
) (*DutyFile, error) {
	query := `SELECT ` + dutyFileColumns + ` FROM duty_files WHERE vin = $1`

	var file DutyFile
	if err := r.db.GetContext(ctx, &file, query, vin); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("get duty file: %w", core.ErrNotFound)
		}
		return nil, fmt.Errorf("get duty file: %w", err)
	}

	return &file, nil
}

func (r *repository) CreateUpload(
	ctx context.Context,
	upload *DutyFileUpload,
) error {
	query := `
		INSERT INTO duty_file_uploads (
			id, uploaded_by, file_name, file_path, file_type, processed, slug
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING uploaded_at`

	err := r.db.GetContext(ctx, upload, query,
		upload.ID,
		upload.UploadedBy,
		upload.FileName,
		upload.FilePath,
		upload.FileType,
		upload.Processed,
		upload.Slug,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("create upload: %w", core.ErrDuplicateKey)
		}
		return fmt.Errorf("create upload: %w", err)
	}

	return nil
}

func (r *repository) ExistsUploadByName(
	ctx context.Context,
	fileName string,
) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM duty_file_uploads WHERE file_name = $1)`

	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, fileName); err != nil {
		return false, fmt.Errorf("check upload name: %w", err)
	}

	return exists, nil
}

func (r *repository) ListUploads(
	ctx context.Context,
	limit, offset int,
) ([]DutyFileUpload, int, error) {
	var total int
	countQuery := `SELECT COUNT(*) FROM duty_file_uploads`
	if err := r.db.GetContext(ctx, &total, countQuery); err != nil {
		return nil, 0, fmt.Errorf("count uploads: %w", err)
	}

	query := `
		SELECT id, uploaded_by, file_name, file_path, file_type, processed,
			slug, uploaded_at
		FROM duty_file_uploads
		ORDER BY uploaded_at DESC
		LIMIT $1 OFFSET $2`

	uploads := []DutyFileUpload{}
	if err := r.db.SelectContext(ctx, &uploads, query, limit, offset); err != nil {
		return nil, 0, fmt.Errorf("list uploads: %w", err)
	}

	return uploads, total, nil
}

func (r *repository) CreateHistory(
	ctx context.Context,
	history *SearchHistory,
) error {
	query := `
		INSERT INTO vin_search_histories (
			id, account_id, duty_file_id, cert_num, qr_png
		)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`

	err := r.db.GetContext(ctx, history, query,
		history.ID,
		history.AccountID,
		history.DutyFileID,
		history.CertNum,
		history.QRPNG,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("create search history: %w", core.ErrDuplicateKey)
		}
		return fmt.Errorf("create search history: %w", err)
	}

	return nil
}

func (r *repository) GetHistory(
	ctx context.Context,
	accountID, dutyFileID string,
) (*SearchHistory, error) {
	query := `
		SELECT id, account_id, duty_file_id, cert_num, qr_png, created_at
		FROM vin_search_histories
		WHERE account_id = $1 AND duty_file_id = $2`

	var history SearchHistory
	err := r.db.GetContext(ctx, &history, query, accountID, dutyFileID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("get search history: %w", core.ErrNotFound)
		}
		return nil, fmt.Errorf("get search history: %w", err)
	}

	return &history, nil
}

const historyDetailColumns = `
	h.id, h.account_id, h.duty_file_id, h.cert_num, h.qr_png, h.created_at,
	f.id AS "duty_file.id",
	f.vin AS "duty_file.vin",
	f.brand AS "duty_file.brand",
	f.model AS "duty_file.model",
	f.vehicle_year AS "duty_file.vehicle_year",
	f.engine_type AS "duty_file.engine_type",
	f.vreg AS "duty_file.vreg",
	f.vehicle_type AS "duty_file.vehicle_type",
	f.importer_tin AS "duty_file.importer_tin",
	f.importer_business_name AS "duty_file.importer_business_name",
	f.importer_address AS "duty_file.importer_address",
	f.origin_country AS "duty_file.origin_country",
	f.hscode AS "duty_file.hscode",
	f.sgd_num AS "duty_file.sgd_num",
	f.sgd_date AS "duty_file.sgd_date",
	f.office_cod AS "duty_file.office_cod",
	f.payment_status AS "duty_file.payment_status",
	f.created_at AS "duty_file.created_at",
	f.updated_at AS "duty_file.updated_at"`

func (r *repository) ListHistoryByAccount(
	ctx context.Context,
	accountID string,
) ([]HistoryDetail, error) {
	query := `
		SELECT ` + historyDetailColumns + `
		FROM vin_search_histories h
		JOIN duty_files f ON f.id = h.duty_file_id
		WHERE h.account_id = $1
		ORDER BY h.created_at DESC`

	details := []HistoryDetail{}
	if err := r.db.SelectContext(ctx, &details, query, accountID); err != nil {
		return nil, fmt.Errorf("list search history: %w", err)
	}

	return details, nil
}

func (r *repository) GetHistoryByVIN(
	ctx context.Context,
	accountID, vin string,
) (*HistoryDetail, error) {
	query := `
		SELECT ` + historyDetailColumns + `
		FROM vin_search_histories h
		JOIN duty_files f ON f.id = h.duty_file_id
		WHERE h.account_id = $1 AND f.vin = $2`

	var detail HistoryDetail
	if err := r.db.GetContext(ctx, &detail, query, accountID, vin); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("get search history by vin: %w", core.ErrNotFound)
		}
		return nil, fmt.Errorf("get search history by vin: %w", err)
	}

	return &detail, nil
}
