// AngelaMos | 2026
// dto.go

package vin

import (
	"encoding/base64"
	"time"
)

const (
	SearchStatusMatched  = "matched"
	SearchStatusNotFound = "not_found"
	SearchStatusError    = "error"
)

// SearchResult is one entry in a search response. Every requested VIN
// produces exactly one result.
type SearchResult struct {
	VIN         string            `json:"vin"`
	Status      string            `json:"status"`
	Record      *DutyFileResponse `json:"record,omitempty"`
	Certificate *CertificateInfo  `json:"certificate,omitempty"`
	Error       string            `json:"error,omitempty"`
}

type DutyFileResponse struct {
	VIN           string  `json:"vin"`
	Brand         *string `json:"brand,omitempty"`
	Model         *string `json:"model,omitempty"`
	VehicleYear   *string `json:"vehicle_year,omitempty"`
	EngineType    *string `json:"engine_type,omitempty"`
	VReg          *string `json:"vreg,omitempty"`
	VehicleType   *string `json:"vehicle_type,omitempty"`
	PaymentStatus *string `json:"payment_status,omitempty"`
}

func ToDutyFileResponse(f *DutyFile) *DutyFileResponse {
	return &DutyFileResponse{
		VIN:           f.VIN,
		Brand:         f.Brand,
		Model:         f.Model,
		VehicleYear:   f.VehicleYear,
		EngineType:    f.EngineType,
		VReg:          f.VReg,
		VehicleType:   f.VehicleType,
		PaymentStatus: f.PaymentStatus,
	}
}

type CertificateInfo struct {
	CertNum   string    `json:"cert_num"`
	CreatedAt time.Time `json:"created_at"`
}

// HistoryResponse is a certificate joined with its duty file. The QR
// image travels base64-encoded.
type HistoryResponse struct {
	CertNum   string            `json:"cert_num"`
	QRCode    string            `json:"qr_code"`
	Record    *DutyFileResponse `json:"record"`
	CreatedAt time.Time         `json:"created_at"`
}

func ToHistoryResponse(h *HistoryDetail) HistoryResponse {
	return HistoryResponse{
		CertNum:   h.CertNum,
		QRCode:    base64.StdEncoding.EncodeToString(h.QRPNG),
		Record:    ToDutyFileResponse(&h.DutyFile),
		CreatedAt: h.CreatedAt,
	}
}

func ToHistoryResponseList(details []HistoryDetail) []HistoryResponse {
	responses := make([]HistoryResponse, 0, len(details))
	for i := range details {
		responses = append(responses, ToHistoryResponse(&details[i]))
	}
	return responses
}

type UploadResponse struct {
	ID         string    `json:"id"`
	FileName   string    `json:"file_name"`
	FileType   string    `json:"file_type"`
	Processed  bool      `json:"processed"`
	Slug       string    `json:"slug"`
	UploadedAt time.Time `json:"uploaded_at"`
	Rows       int       `json:"rows,omitempty"`
}

func ToUploadResponse(u *DutyFileUpload, rows int) UploadResponse {
	return UploadResponse{
		ID:         u.ID,
		FileName:   u.FileName,
		FileType:   u.FileType,
		Processed:  u.Processed,
		Slug:       u.Slug,
		UploadedAt: u.UploadedAt,
		Rows:       rows,
	}
}

func ToUploadResponseList(uploads []DutyFileUpload) []UploadResponse {
	responses := make([]UploadResponse, 0, len(uploads))
	for i := range uploads {
		responses = append(responses, ToUploadResponse(&uploads[i], 0))
	}
	return responses
}
