// AngelaMos | 2026
// ingest.go

package vin

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/cvms-ng/cvms-backend/internal/core"
)

// dutyRow is one record from an ingested customs export, keyed by the
// column names the authority uses.
type dutyRow struct {
	VIN                  string `json:"vin"`
	Brand                string `json:"brand"`
	Model                string `json:"model"`
	VehicleYear          string `json:"vehicle_year"`
	EngineType           string `json:"engine_type"`
	VReg                 string `json:"vreg"`
	VehicleType          string `json:"vehicle_type"`
	ImporterTIN          string `json:"importer_tin"`
	ImporterBusinessName string `json:"importer_business_name"`
	ImporterAddress      string `json:"importer_address"`
	OriginCountry        string `json:"origin_country"`
	HSCode               string `json:"hscode"`
	SGDNumber            string `json:"sgd_num"`
	SGDDate              string `json:"sgd_date"`
	OfficeCode           string `json:"office_cod"`
	PaymentStatus        string `json:"payment_status"`
}

func parseDutyRows(fileType string, data []byte) ([]dutyRow, error) {
	switch fileType {
	case "csv":
		return parseCSVRows(data)
	case "excel":
		return parseExcelRows(data)
	case "json":
		return parseJSONRows(data)
	default:
		return nil, core.ValidationError(
			"invalid file format, upload a CSV, Excel, or JSON file",
		)
	}
}

func parseCSVRows(data []byte) ([]dutyRow, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, core.ValidationError("file has no header row")
	}

	var table [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, core.ValidationError("malformed CSV row")
		}
		table = append(table, record)
	}

	return rowsFromTable(header, table)
}

func parseExcelRows(data []byte) ([]dutyRow, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, core.ValidationError("unreadable Excel file")
	}
	defer f.Close() //nolint:errcheck // in-memory reader

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, core.ValidationError("Excel file has no sheets")
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet rows: %w", err)
	}
	if len(rows) == 0 {
		return nil, core.ValidationError("file has no header row")
	}

	return rowsFromTable(rows[0], rows[1:])
}

func parseJSONRows(data []byte) ([]dutyRow, error) {
	var rows []dutyRow
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, core.ValidationError("file must be a JSON array of records")
	}
	return rows, nil
}

func rowsFromTable(header []string, table [][]string) ([]dutyRow, error) {
	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.ToLower(strings.TrimSpace(name))] = i
	}

	if _, ok := index["vin"]; !ok {
		return nil, core.ValidationError("the file must contain a 'vin' column")
	}

	cell := func(record []string, column string) string {
		i, ok := index[column]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	rows := make([]dutyRow, 0, len(table))
	for _, record := range table {
		row := dutyRow{
			VIN:                  cell(record, "vin"),
			Brand:                cell(record, "brand"),
			Model:                cell(record, "model"),
			VehicleYear:          cell(record, "vehicle_year"),
			EngineType:           cell(record, "engine_type"),
			VReg:                 cell(record, "vreg"),
			VehicleType:          cell(record, "vehicle_type"),
			ImporterTIN:          cell(record, "importer_tin"),
			ImporterBusinessName: cell(record, "importer_business_name"),
			ImporterAddress:      cell(record, "importer_address"),
			OriginCountry:        cell(record, "origin_country"),
			HSCode:               cell(record, "hscode"),
			SGDNumber:            cell(record, "sgd_num"),
			SGDDate:              cell(record, "sgd_date"),
			OfficeCode:           cell(record, "office_cod"),
			PaymentStatus:        cell(record, "payment_status"),
		}
		if row.VIN == "" {
			continue
		}
		rows = append(rows, row)
	}

	return rows, nil
}

// extractVINColumn pulls the vin column out of a bulk-search workbook.
func extractVINColumn(data []byte) ([]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, core.ValidationError("unreadable Excel file")
	}
	defer f.Close() //nolint:errcheck // in-memory reader

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, core.ValidationError("Excel file has no sheets")
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet rows: %w", err)
	}
	if len(rows) == 0 {
		return nil, core.ValidationError("the file must contain a 'vin' column")
	}

	vinCol := -1
	for i, name := range rows[0] {
		if strings.EqualFold(strings.TrimSpace(name), "vin") {
			vinCol = i
			break
		}
	}
	if vinCol == -1 {
		return nil, core.ValidationError("the file must contain a 'vin' column")
	}

	var vins []string
	for _, record := range rows[1:] {
		if vinCol >= len(record) {
			continue
		}
		if v := strings.TrimSpace(record[vinCol]); v != "" {
			vins = append(vins, v)
		}
	}

	return vins, nil
}

func (r dutyRow) toDutyFile(id string) *DutyFile {
	opt := func(s string) *string {
		if s == "" {
			return nil
		}
		return &s
	}

	return &DutyFile{
		ID:                   id,
		VIN:                  NormalizeVIN(r.VIN),
		Brand:                opt(r.Brand),
		Model:                opt(r.Model),
		VehicleYear:          opt(r.VehicleYear),
		EngineType:           opt(r.EngineType),
		VReg:                 opt(r.VReg),
		VehicleType:          opt(r.VehicleType),
		ImporterTIN:          opt(r.ImporterTIN),
		ImporterBusinessName: opt(r.ImporterBusinessName),
		ImporterAddress:      opt(r.ImporterAddress),
		OriginCountry:        opt(r.OriginCountry),
		HSCode:               opt(r.HSCode),
		SGDNumber:            opt(r.SGDNumber),
		SGDDate:              opt(r.SGDDate),
		OfficeCode:           opt(r.OfficeCode),
		PaymentStatus:        opt(r.PaymentStatus),
	}
}
