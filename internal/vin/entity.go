// AngelaMos | 2026
// entity.go

package vin

import (
	"strings"
	"time"
)

// DutyFile is the customs record for a single vehicle, keyed by VIN.
type DutyFile struct {
	ID                   string    `db:"id" json:"id"`
	VIN                  string    `db:"vin" json:"vin"`
	Brand                *string   `db:"brand" json:"brand,omitempty"`
	Model                *string   `db:"model" json:"model,omitempty"`
	VehicleYear          *string   `db:"vehicle_year" json:"vehicle_year,omitempty"`
	EngineType           *string   `db:"engine_type" json:"engine_type,omitempty"`
	VReg                 *string   `db:"vreg" json:"vreg,omitempty"`
	VehicleType          *string   `db:"vehicle_type" json:"vehicle_type,omitempty"`
	ImporterTIN          *string   `db:"importer_tin" json:"importer_tin,omitempty"`
	ImporterBusinessName *string   `db:"importer_business_name" json:"importer_business_name,omitempty"`
	ImporterAddress      *string   `db:"importer_address" json:"importer_address,omitempty"`
	OriginCountry        *string   `db:"origin_country" json:"origin_country,omitempty"`
	HSCode               *string   `db:"hscode" json:"hscode,omitempty"`
	SGDNumber            *string   `db:"sgd_num" json:"sgd_num,omitempty"`
	SGDDate              *string   `db:"sgd_date" json:"sgd_date,omitempty"`
	OfficeCode           *string   `db:"office_cod" json:"office_cod,omitempty"`
	PaymentStatus        *string   `db:"payment_status" json:"payment_status,omitempty"`
	CreatedAt            time.Time `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time `db:"updated_at" json:"updated_at"`
}

// DutyFileUpload records one ingested customs file. File names are
// unique so the same export cannot be processed twice.
type DutyFileUpload struct {
	ID         string    `db:"id" json:"id"`
	UploadedBy string    `db:"uploaded_by" json:"uploaded_by"`
	FileName   string    `db:"file_name" json:"file_name"`
	FilePath   string    `db:"file_path" json:"file_path"`
	FileType   string    `db:"file_type" json:"file_type"`
	Processed  bool      `db:"processed" json:"processed"`
	Slug       string    `db:"slug" json:"slug"`
	UploadedAt time.Time `db:"uploaded_at" json:"uploaded_at"`
}

// SearchHistory is one account's certificate for one duty file. The
// certificate number and QR image are assigned at creation and never
// regenerated.
type SearchHistory struct {
	ID         string    `db:"id" json:"id"`
	AccountID  string    `db:"account_id" json:"account_id"`
	DutyFileID string    `db:"duty_file_id" json:"duty_file_id"`
	CertNum    string    `db:"cert_num" json:"cert_num"`
	QRPNG      []byte    `db:"qr_png" json:"-"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

const (
	maxSingleSearch = 5
	maxBulkSearch   = 20
	maxUploadSize   = 5 << 20
)

// NormalizeVIN canonicalizes user input before any lookup. Matching is
// always done on the normalized form.
func NormalizeVIN(vin string) string {
	return strings.ToUpper(strings.TrimSpace(vin))
}
