// AngelaMos | 2026
// service_test.go

package vin

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/cvms-ng/cvms-backend/internal/core"
)

type fakeStatusLookup struct {
	statuses map[string]*ExternalStatus
	err      error
	calls    []string
}

func (f *fakeStatusLookup) Lookup(
	_ context.Context,
	vin string,
) (*ExternalStatus, error) {
	f.calls = append(f.calls, vin)
	if f.err != nil {
		return nil, f.err
	}
	st, ok := f.statuses[vin]
	if !ok {
		return nil, core.ErrNotFound
	}
	return st, nil
}

type fakeVinRepo struct {
	dutyFiles    map[string]*DutyFile
	dutyFileErr  error
	histories    map[string]*SearchHistory
	createErr    error
	createCalls  int
	missFirstGet bool
	getCalls     int
	uploadsByVIN []string
}

func newFakeVinRepo() *fakeVinRepo {
	return &fakeVinRepo{
		dutyFiles: map[string]*DutyFile{},
		histories: map[string]*SearchHistory{},
	}
}

func historyKey(accountID, dutyFileID string) string {
	return accountID + "|" + dutyFileID
}

func (f *fakeVinRepo) UpsertDutyFile(_ context.Context, file *DutyFile) error {
	f.dutyFiles[file.VIN] = file
	f.uploadsByVIN = append(f.uploadsByVIN, file.VIN)
	return nil
}

func (f *fakeVinRepo) GetDutyFileByVIN(
	_ context.Context,
	vin string,
) (*DutyFile, error) {
	if f.dutyFileErr != nil {
		return nil, f.dutyFileErr
	}
	file, ok := f.dutyFiles[vin]
	if !ok {
		return nil, core.ErrNotFound
	}
	return file, nil
}

func (f *fakeVinRepo) CreateUpload(_ context.Context, _ *DutyFileUpload) error {
	return nil
}

func (f *fakeVinRepo) ExistsUploadByName(
	_ context.Context,
	_ string,
) (bool, error) {
	return false, nil
}

func (f *fakeVinRepo) ListUploads(
	_ context.Context,
	_, _ int,
) ([]DutyFileUpload, int, error) {
	return nil, 0, nil
}

func (f *fakeVinRepo) CreateHistory(
	_ context.Context,
	history *SearchHistory,
) error {
	f.createCalls++
	if f.createErr != nil {
		return f.createErr
	}
	f.histories[historyKey(history.AccountID, history.DutyFileID)] = history
	return nil
}

func (f *fakeVinRepo) GetHistory(
	_ context.Context,
	accountID, dutyFileID string,
) (*SearchHistory, error) {
	f.getCalls++
	if f.missFirstGet && f.getCalls == 1 {
		return nil, core.ErrNotFound
	}
	h, ok := f.histories[historyKey(accountID, dutyFileID)]
	if !ok {
		return nil, core.ErrNotFound
	}
	return h, nil
}

func (f *fakeVinRepo) ListHistoryByAccount(
	_ context.Context,
	_ string,
) ([]HistoryDetail, error) {
	return nil, nil
}

func (f *fakeVinRepo) GetHistoryByVIN(
	_ context.Context,
	_, _ string,
) (*HistoryDetail, error) {
	return nil, core.ErrNotFound
}

func newTestVinService(
	repo Repository,
	status StatusLookup,
) *Service {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(nil, repo, status, "", logger)
}

func strptr(s string) *string { return &s }

func sampleDutyFile(vin string) *DutyFile {
	return &DutyFile{
		ID:            "df-" + vin,
		VIN:           vin,
		Brand:         strptr("Toyota"),
		Model:         strptr("Corolla"),
		PaymentStatus: strptr("paid"),
	}
}

func TestSearchRejectsEmptyInput(t *testing.T) {
	svc := newTestVinService(newFakeVinRepo(), &fakeStatusLookup{})

	_, err := svc.Search(context.Background(), "acct-1", nil)
	if !errors.Is(err, core.ErrInvalidInput) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestSearchCapEnforcedBeforeLookups(t *testing.T) {
	status := &fakeStatusLookup{}
	svc := newTestVinService(newFakeVinRepo(), status)

	vins := []string{"A1", "A2", "A3", "A4", "A5", "A6"}
	_, err := svc.Search(context.Background(), "acct-1", vins)

	appErr, ok := core.AsAppError(err)
	if !ok || appErr.Code != "VIN_LIMIT_EXCEEDED" {
		t.Fatalf("expected VIN_LIMIT_EXCEEDED, got %v", err)
	}
	if len(status.calls) != 0 {
		t.Fatalf("limit must trip before any external lookup, saw %d calls",
			len(status.calls))
	}
}

func TestSearchMatchedIssuesCertificate(t *testing.T) {
	repo := newFakeVinRepo()
	repo.dutyFiles["JH4KA7561PC008269"] = sampleDutyFile("JH4KA7561PC008269")
	svc := newTestVinService(repo, &fakeStatusLookup{})

	results, err := svc.Search(
		context.Background(), "acct-1", []string{" jh4ka7561pc008269 "},
	)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}

	r := results[0]
	if r.Status != SearchStatusMatched {
		t.Fatalf("expected matched, got %q", r.Status)
	}
	if r.Record == nil || r.Record.Brand == nil || *r.Record.Brand != "Toyota" {
		t.Fatalf("expected duty file record in result")
	}
	if r.Certificate == nil || r.Certificate.CertNum == "" {
		t.Fatalf("expected an issued certificate")
	}
	if !strings.HasPrefix(r.Certificate.CertNum, "CERT-NO/jh4ka-") {
		t.Fatalf("unexpected cert number %q", r.Certificate.CertNum)
	}
}

func TestSearchCertificateIssuedOnce(t *testing.T) {
	repo := newFakeVinRepo()
	repo.dutyFiles["VINONE"] = sampleDutyFile("VINONE")
	svc := newTestVinService(repo, &fakeStatusLookup{})

	first, err := svc.Search(context.Background(), "acct-1", []string{"VINONE"})
	if err != nil {
		t.Fatalf("first search: %v", err)
	}
	second, err := svc.Search(context.Background(), "acct-1", []string{"VINONE"})
	if err != nil {
		t.Fatalf("second search: %v", err)
	}

	if first[0].Certificate.CertNum != second[0].Certificate.CertNum {
		t.Fatalf("certificate must be stable across repeat searches")
	}
	if repo.createCalls != 1 {
		t.Fatalf("expected a single history insert, got %d", repo.createCalls)
	}
}

func TestSearchCertificateScopedPerAccount(t *testing.T) {
	repo := newFakeVinRepo()
	repo.dutyFiles["VINONE"] = sampleDutyFile("VINONE")
	svc := newTestVinService(repo, &fakeStatusLookup{})

	a, err := svc.Search(context.Background(), "acct-1", []string{"VINONE"})
	if err != nil {
		t.Fatalf("search acct-1: %v", err)
	}
	b, err := svc.Search(context.Background(), "acct-2", []string{"VINONE"})
	if err != nil {
		t.Fatalf("search acct-2: %v", err)
	}

	if a[0].Certificate.CertNum == b[0].Certificate.CertNum {
		t.Fatalf("different accounts must get distinct certificates")
	}
}

func TestSearchNotFound(t *testing.T) {
	svc := newTestVinService(newFakeVinRepo(), &fakeStatusLookup{})

	results, err := svc.Search(context.Background(), "acct-1", []string{"NOPE1"})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if results[0].Status != SearchStatusNotFound {
		t.Fatalf("expected not_found, got %q", results[0].Status)
	}
	if results[0].Certificate != nil {
		t.Fatalf("no certificate for a miss")
	}
}

func TestSearchExternalFailureReportsError(t *testing.T) {
	status := &fakeStatusLookup{err: errors.New("upstream down")}
	svc := newTestVinService(newFakeVinRepo(), status)

	results, err := svc.Search(context.Background(), "acct-1", []string{"VIN2"})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if results[0].Status != SearchStatusError {
		t.Fatalf("expected error status, got %q", results[0].Status)
	}
}

func TestSearchLocalMatchWinsOverExternalFailure(t *testing.T) {
	repo := newFakeVinRepo()
	repo.dutyFiles["VINL0CAL"] = sampleDutyFile("VINL0CAL")
	status := &fakeStatusLookup{err: errors.New("upstream down")}
	svc := newTestVinService(repo, status)

	results, err := svc.Search(context.Background(), "acct-1", []string{"VINL0CAL"})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if results[0].Status != SearchStatusMatched {
		t.Fatalf("local record must win, got %q", results[0].Status)
	}
}

func TestEnsureCertificateRecoversFromInsertRace(t *testing.T) {
	repo := newFakeVinRepo()
	record := sampleDutyFile("VINRACE")
	repo.dutyFiles["VINRACE"] = record

	// The first read misses, the insert conflicts with a concurrent
	// search, and the re-read returns the winner's row.
	winner := &SearchHistory{
		ID:         "hist-existing",
		AccountID:  "acct-1",
		DutyFileID: record.ID,
		CertNum:    "CERT-NO/vinra-0123456789",
	}
	repo.histories[historyKey("acct-1", record.ID)] = winner
	repo.missFirstGet = true
	repo.createErr = core.ErrDuplicateKey

	svc := newTestVinService(repo, &fakeStatusLookup{})

	history, err := svc.ensureCertificate(context.Background(), "acct-1", record)
	if err != nil {
		t.Fatalf("ensure certificate: %v", err)
	}
	if history.CertNum != winner.CertNum {
		t.Fatalf("expected the concurrent row, got %q", history.CertNum)
	}
}

func TestNewCertNumFormat(t *testing.T) {
	num := newCertNum("JH4KA7561PC008269")
	if !strings.HasPrefix(num, "CERT-NO/jh4ka-") {
		t.Fatalf("unexpected prefix in %q", num)
	}
	suffix := strings.TrimPrefix(num, "CERT-NO/jh4ka-")
	if len(suffix) != 10 {
		t.Fatalf("expected 10-char suffix, got %q", suffix)
	}

	short := newCertNum("AB1")
	if !strings.HasPrefix(short, "CERT-NO/ab1-") {
		t.Fatalf("short VINs must not panic, got %q", short)
	}
}

func TestNormalizeVIN(t *testing.T) {
	if got := NormalizeVIN("  jh4ka7561pc008269 "); got != "JH4KA7561PC008269" {
		t.Fatalf("normalize: %q", got)
	}
}

func TestClassifyUpload(t *testing.T) {
	cases := map[string]string{
		"duty.csv":    "csv",
		"duty.CSV":    "csv",
		"duty.xlsx":   "excel",
		"duty.xls":    "excel",
		"export.json": "json",
	}
	for name, want := range cases {
		got, err := classifyUpload(name)
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if got != want {
			t.Fatalf("%s: got %q want %q", name, got, want)
		}
	}

	if _, err := classifyUpload("duty.txt"); !errors.Is(err, core.ErrInvalidInput) {
		t.Fatalf("expected rejection for .txt, got %v", err)
	}
}

func TestParseCSVRows(t *testing.T) {
	data := []byte(
		"VIN,Brand,Model,payment_status\n" +
			"jh4ka7561pc008269,Toyota,Corolla,paid\n" +
			",Honda,Civic,unpaid\n" +
			"1hgcm82633a004352,Honda,Accord,\n",
	)

	rows, err := parseCSVRows(data)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows without a VIN must be skipped, got %d rows", len(rows))
	}
	if rows[0].Brand != "Toyota" || rows[1].Model != "Accord" {
		t.Fatalf("unexpected rows %+v", rows)
	}
}

func TestParseCSVRowsRequiresVINColumn(t *testing.T) {
	data := []byte("brand,model\nToyota,Corolla\n")

	_, err := parseCSVRows(data)
	if !errors.Is(err, core.ErrInvalidInput) {
		t.Fatalf("expected missing vin column error, got %v", err)
	}
}

func TestParseJSONRows(t *testing.T) {
	data := []byte(`[
		{"vin": "jh4ka7561pc008269", "brand": "Toyota", "payment_status": "paid"},
		{"vin": "1hgcm82633a004352", "brand": "Honda"}
	]`)

	rows, err := parseJSONRows(data)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(rows) != 2 || rows[0].PaymentStatus != "paid" {
		t.Fatalf("unexpected rows %+v", rows)
	}

	if _, err := parseJSONRows([]byte(`{"not":"an array"}`)); err == nil {
		t.Fatalf("expected rejection of non-array JSON")
	}
}

func TestDutyRowToDutyFile(t *testing.T) {
	row := dutyRow{
		VIN:           " jh4ka7561pc008269 ",
		Brand:         "Toyota",
		PaymentStatus: "",
	}

	file := row.toDutyFile("df-1")
	if file.VIN != "JH4KA7561PC008269" {
		t.Fatalf("VIN must be normalized, got %q", file.VIN)
	}
	if file.Brand == nil || *file.Brand != "Toyota" {
		t.Fatalf("expected brand set")
	}
	if file.PaymentStatus != nil {
		t.Fatalf("empty cells must map to NULL")
	}
}

func buildWorkbook(t *testing.T, header []string, rows [][]string) []byte {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close() //nolint:errcheck // in-memory file

	sheet := f.GetSheetName(0)
	for col, name := range header {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		if err := f.SetCellValue(sheet, cell, name); err != nil {
			t.Fatalf("set header cell: %v", err)
		}
	}
	for r, record := range rows {
		for c, value := range record {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
			if err := f.SetCellValue(sheet, cell, value); err != nil {
				t.Fatalf("set cell: %v", err)
			}
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		t.Fatalf("write workbook: %v", err)
	}
	return buf.Bytes()
}

func TestExtractVINColumn(t *testing.T) {
	data := buildWorkbook(t,
		[]string{"S/No", "VIN", "Brand"},
		[][]string{
			{"1", "jh4ka7561pc008269", "Toyota"},
			{"2", "", "Honda"},
			{"3", "1hgcm82633a004352", "Honda"},
		},
	)

	vins, err := extractVINColumn(data)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if len(vins) != 2 {
		t.Fatalf("expected 2 VINs, got %d", len(vins))
	}
	if vins[0] != "jh4ka7561pc008269" {
		t.Fatalf("unexpected first vin %q", vins[0])
	}
}

func TestExtractVINColumnMissingHeader(t *testing.T) {
	data := buildWorkbook(t,
		[]string{"S/No", "Brand"},
		[][]string{{"1", "Toyota"}},
	)

	_, err := extractVINColumn(data)
	if !errors.Is(err, core.ErrInvalidInput) {
		t.Fatalf("expected missing vin column error, got %v", err)
	}
}

func TestBulkSearchRejectsNonExcel(t *testing.T) {
	svc := newTestVinService(newFakeVinRepo(), &fakeStatusLookup{})

	_, err := svc.BulkSearch(
		context.Background(),
		"acct-1",
		"vins.csv",
		strings.NewReader("vin\nabc\n"),
	)
	if !errors.Is(err, core.ErrInvalidInput) {
		t.Fatalf("expected rejection of non-xlsx upload, got %v", err)
	}
}

func TestBulkSearchCapTwenty(t *testing.T) {
	header := []string{"VIN"}
	rows := make([][]string, 21)
	for i := range rows {
		rows[i] = []string{string(rune('A'+i%26)) + "VIN"}
	}
	data := buildWorkbook(t, header, rows)

	status := &fakeStatusLookup{}
	svc := newTestVinService(newFakeVinRepo(), status)

	_, err := svc.BulkSearch(
		context.Background(), "acct-1", "vins.xlsx", bytes.NewReader(data),
	)
	appErr, ok := core.AsAppError(err)
	if !ok || appErr.Code != "VIN_LIMIT_EXCEEDED" {
		t.Fatalf("expected VIN_LIMIT_EXCEEDED, got %v", err)
	}
	if len(status.calls) != 0 {
		t.Fatalf("limit must trip before any external lookup")
	}
}

func TestBulkSearchRunsLookups(t *testing.T) {
	data := buildWorkbook(t,
		[]string{"VIN"},
		[][]string{{"vinone"}, {"vintwo"}},
	)

	repo := newFakeVinRepo()
	repo.dutyFiles["VINONE"] = sampleDutyFile("VINONE")
	svc := newTestVinService(repo, &fakeStatusLookup{})

	results, err := svc.BulkSearch(
		context.Background(), "acct-1", "vins.xlsx", bytes.NewReader(data),
	)
	if err != nil {
		t.Fatalf("bulk search: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected one entry per VIN, got %d", len(results))
	}
	if results[0].Status != SearchStatusMatched ||
		results[1].Status != SearchStatusNotFound {
		t.Fatalf("unexpected statuses %q %q",
			results[0].Status, results[1].Status)
	}
}
