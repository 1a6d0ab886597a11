package service_test

import (
	"bytes"
	"errors"
	"path/filepath"
	"testing"

	"equipment-web/internal/models"
	"equipment-web/internal/service"

	"github.com/xuri/excelize/v2"
)

func buildWorkbook(t *testing.T, headers []string, rows [][]string) []byte {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	sheet := "Sheet1"
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, header); err != nil {
			t.Fatalf("SetCellValue error: %v", err)
		}
	}
	for rowIdx, row := range rows {
		for colIdx, value := range row {
			cell, _ := excelize.CoordinatesToCellName(colIdx+1, rowIdx+2)
			if err := f.SetCellValue(sheet, cell, value); err != nil {
				t.Fatalf("SetCellValue error: %v", err)
			}
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		t.Fatalf("Write error: %v", err)
	}
	return buf.Bytes()
}

var testHeaders = []string{
	"Department", "Category", "Equipment Name", "Model", "Accuracy Level",
	"Calibration Cycle", "Calibration Date", "Calibration Method", "Calibration Result",
	"Equipment Code",
}

func TestParseEquipmentBytes(t *testing.T) {
	t.Parallel()

	data := buildWorkbook(t, testHeaders, [][]string{
		{"Quality Lab", "Pressure Gauge", "Digital Pressure Gauge", "DPG-100", "0.5%", "12 months", "2026-01-15", "internal", "qualified", "PG-0001"},
		{"  Production ", "Caliper", "Vernier Caliper", "VC-150", "0.02mm", "6 months", "2026-03-01", "external", "qualified", ""},
	})

	svc := service.NewExcelService()
	src, err := svc.ParseEquipmentBytes(data)
	if err != nil {
		t.Fatalf("ParseEquipmentBytes error: %v", err)
	}
	if src.TotalRows() != 2 {
		t.Fatalf("TotalRows = %d, want 2", src.TotalRows())
	}

	first, ok := src.Next()
	if !ok {
		t.Fatal("expected first row")
	}
	if first["Department"] != "Quality Lab" || first["Equipment Code"] != "PG-0001" {
		t.Errorf("first row = %+v", first)
	}

	second, ok := src.Next()
	if !ok {
		t.Fatal("expected second row")
	}
	if second["Department"] != "Production" {
		t.Errorf("cell whitespace not trimmed: %q", second["Department"])
	}

	if _, ok := src.Next(); ok {
		t.Error("expected source exhaustion after two rows")
	}
}

func TestParseEquipmentBytesCaseInsensitiveHeaders(t *testing.T) {
	t.Parallel()

	headers := []string{
		"DEPARTMENT", "category", "equipment name", "MODEL", "Accuracy level",
		"calibration cycle", "Calibration date", "calibration method", "Calibration Result",
	}
	data := buildWorkbook(t, headers, [][]string{
		{"Quality Lab", "Pressure Gauge", "Gauge", "M-1", "0.5", "12 months", "2026-01-15", "internal", "qualified"},
	})

	svc := service.NewExcelService()
	src, err := svc.ParseEquipmentBytes(data)
	if err != nil {
		t.Fatalf("ParseEquipmentBytes error: %v", err)
	}
	row, _ := src.Next()
	if row["Department"] != "Quality Lab" || row["Calibration Cycle"] != "12 months" {
		t.Errorf("headers not canonicalized: %+v", row)
	}
}

func TestParseEquipmentBytesMissingColumns(t *testing.T) {
	t.Parallel()

	headers := []string{"Department", "Category", "Equipment Name"}
	data := buildWorkbook(t, headers, [][]string{{"Quality Lab", "Pressure Gauge", "Gauge"}})

	svc := service.NewExcelService()
	_, err := svc.ParseEquipmentBytes(data)
	if !errors.Is(err, service.ErrMissingColumns) {
		t.Fatalf("err = %v, want ErrMissingColumns", err)
	}
	for _, col := range []string{"Model", "Calibration Cycle", "Calibration Result"} {
		if !bytes.Contains([]byte(err.Error()), []byte(col)) {
			t.Errorf("error %q should name missing column %s", err, col)
		}
	}
}

func TestParseEquipmentBytesHeaderOnly(t *testing.T) {
	t.Parallel()

	data := buildWorkbook(t, testHeaders, nil)

	svc := service.NewExcelService()
	_, err := svc.ParseEquipmentBytes(data)
	if !errors.Is(err, service.ErrEmptyFile) {
		t.Errorf("err = %v, want ErrEmptyFile", err)
	}
}

func TestParseEquipmentBytesRejectsGarbage(t *testing.T) {
	t.Parallel()

	svc := service.NewExcelService()

	if _, err := svc.ParseEquipmentBytes(nil); !errors.Is(err, service.ErrEmptyFile) {
		t.Errorf("nil bytes: err = %v, want ErrEmptyFile", err)
	}
	if _, err := svc.ParseEquipmentBytes([]byte("not a spreadsheet")); !errors.Is(err, service.ErrInvalidFormat) {
		t.Errorf("garbage bytes: err = %v, want ErrInvalidFormat", err)
	}
}

func TestGenerateImportTemplate(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "template.xlsx")
	svc := service.NewExcelService()
	if err := svc.GenerateImportTemplate(path); err != nil {
		t.Fatalf("GenerateImportTemplate error: %v", err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("template is not a readable workbook: %v", err)
	}
	defer f.Close()

	value, err := f.GetCellValue("Equipment", "A1")
	if err != nil {
		t.Fatalf("GetCellValue error: %v", err)
	}
	if value != "Department" {
		t.Errorf("A1 = %q, want Department", value)
	}
}

func TestExportErrorReport(t *testing.T) {
	t.Parallel()

	job := &models.ImportJob{
		ID: "job-1",
		ErrorDetails: models.RowErrorList{
			{RowIndex: 2, Field: "calibrationCycle", Code: models.ErrCodeInvalidEnum, Message: "calibration cycle must be one of ..."},
			{RowIndex: 7, Field: "department", Code: models.ErrCodeUnknownReference, Message: "department \"Shipping\" not found"},
		},
	}

	path := filepath.Join(t.TempDir(), "errors.xlsx")
	svc := service.NewExcelService()
	if err := svc.ExportErrorReport(job, path); err != nil {
		t.Fatalf("ExportErrorReport error: %v", err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("report is not a readable workbook: %v", err)
	}
	defer f.Close()

	// Error rows reference spreadsheet row numbers, offset past the header.
	rowCell, _ := f.GetCellValue("Import Errors", "A2")
	if rowCell != "4" {
		t.Errorf("A2 = %q, want 4 (row index 2 plus header offset)", rowCell)
	}
	fieldCell, _ := f.GetCellValue("Import Errors", "B2")
	if fieldCell != "calibrationCycle" {
		t.Errorf("B2 = %q, want calibrationCycle", fieldCell)
	}
	codeCell, _ := f.GetCellValue("Import Errors", "C3")
	if codeCell != models.ErrCodeUnknownReference {
		t.Errorf("C3 = %q, want unknown_reference", codeCell)
	}
}
