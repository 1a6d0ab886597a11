package service

import (
	"bytes"
	"equipment-web/internal/models"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Spreadsheet column names. The first nine are required; a file whose
// header lacks any of them is rejected before the job is created.
const (
	ColDepartment        = "Department"
	ColCategory          = "Category"
	ColName              = "Equipment Name"
	ColModel             = "Model"
	ColAccuracyLevel     = "Accuracy Level"
	ColCalibrationCycle  = "Calibration Cycle"
	ColCalibrationDate   = "Calibration Date"
	ColCalibrationMethod = "Calibration Method"
	ColCalibrationResult = "Calibration Result"

	ColEquipmentCode      = "Equipment Code"
	ColMeasurementRange   = "Measurement Range"
	ColScaleValue         = "Scale Value"
	ColInstallLocation    = "Installation Location"
	ColManufacturer       = "Manufacturer"
	ColManufactureDate    = "Manufacture Date"
	ColManagementLevel    = "Management Level"
	ColOriginalValue      = "Original Value"
	ColStatus             = "Status"
	ColStatusChangeDate   = "Status Change Date"
	ColCertificateNumber  = "Certificate Number"
	ColVerificationAgency = "Verification Agency"
	ColCertificateForm    = "Certificate Form"
	ColNotes              = "Notes"
)

var requiredColumns = []string{
	ColDepartment, ColCategory, ColName, ColModel, ColAccuracyLevel,
	ColCalibrationCycle, ColCalibrationDate, ColCalibrationMethod, ColCalibrationResult,
}

var allColumns = append(requiredColumns,
	ColEquipmentCode, ColMeasurementRange, ColScaleValue, ColInstallLocation,
	ColManufacturer, ColManufactureDate, ColManagementLevel, ColOriginalValue,
	ColStatus, ColStatusChangeDate, ColCertificateNumber, ColVerificationAgency,
	ColCertificateForm, ColNotes,
)

// RowSource is a finite, in-order sequence of raw rows, each a mapping
// from column name to cell text.
type RowSource interface {
	TotalRows() int
	Next() (map[string]string, bool)
}

type sliceRowSource struct {
	rows []map[string]string
	pos  int
}

func (s *sliceRowSource) TotalRows() int { return len(s.rows) }

func (s *sliceRowSource) Next() (map[string]string, bool) {
	if s.pos >= len(s.rows) {
		return nil, false
	}
	row := s.rows[s.pos]
	s.pos++
	return row, true
}

// NewSliceRowSource wraps already-decoded rows.
func NewSliceRowSource(rows []map[string]string) RowSource {
	return &sliceRowSource{rows: rows}
}

type ExcelService struct{}

func NewExcelService() *ExcelService {
	return &ExcelService{}
}

// ParseEquipmentFile decodes an equipment spreadsheet from disk.
func (s *ExcelService) ParseEquipmentFile(filePath string) (RowSource, error) {
	f, err := excelize.OpenFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	defer f.Close()
	return s.parse(f)
}

// ParseEquipmentBytes decodes an equipment spreadsheet from an uploaded
// byte stream, used at job creation to validate the file up front.
func (s *ExcelService) ParseEquipmentBytes(data []byte) (RowSource, error) {
	if len(data) == 0 {
		return nil, ErrEmptyFile
	}
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	defer f.Close()
	return s.parse(f)
}

func (s *ExcelService) parse(f *excelize.File) (RowSource, error) {
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%w: no sheets found", ErrInvalidFormat)
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	if len(rows) == 0 {
		return nil, ErrEmptyFile
	}

	// Map header cells to canonical column names, case-insensitively.
	colIndex := make(map[int]string)
	seen := make(map[string]bool)
	for i, cell := range rows[0] {
		name := canonicalColumn(cell)
		if name != "" {
			colIndex[i] = name
			seen[name] = true
		}
	}

	var missing []string
	for _, col := range requiredColumns {
		if !seen[col] {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumns, strings.Join(missing, ", "))
	}

	if len(rows) < 2 {
		return nil, ErrEmptyFile
	}

	data := make([]map[string]string, 0, len(rows)-1)
	for _, row := range rows[1:] {
		record := make(map[string]string, len(colIndex))
		for i, name := range colIndex {
			record[name] = strings.TrimSpace(getCellValue(row, i))
		}
		data = append(data, record)
	}

	return &sliceRowSource{rows: data}, nil
}

func canonicalColumn(header string) string {
	header = strings.TrimSpace(header)
	for _, col := range allColumns {
		if strings.EqualFold(header, col) {
			return col
		}
	}
	return ""
}

func getCellValue(row []string, index int) string {
	if index < len(row) {
		return row[index]
	}
	return ""
}

// GenerateImportTemplate creates a template spreadsheet for equipment upload.
func (s *ExcelService) GenerateImportTemplate(outputPath string) error {
	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Equipment"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return err
	}

	for i, header := range allColumns {
		cell := fmt.Sprintf("%s1", getColumnName(i))
		f.SetCellValue(sheetName, cell, header)
	}

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E0E0E0"}, Pattern: 1},
	})
	f.SetCellStyle(sheetName, "A1", fmt.Sprintf("%s1", getColumnName(len(allColumns)-1)), headerStyle)

	sampleData := [][]interface{}{
		{"Quality Lab", "Pressure Gauges", "Digital Pressure Gauge", "DPG-100", "0.5", models.Cycle12Months, "2024-03-01", models.MethodExternal, models.ResultQualified, "PG-2024-001", "0-10 MPa", "0.01 MPa", "Lab Room 2", "Ashcroft", "2023-11-20", "", "1250.00", models.EquipmentInUse, "", "CERT-88412", "Provincial Metrology Institute", models.CertFormCalibration, ""},
		{"Assembly Line 1", "Calipers", "Vernier Caliper", "VC-150", "0.02mm", models.Cycle6Months, "2024-05-12", models.MethodInternal, models.ResultQualified, "CAL-0042", "0-150 mm", "0.02 mm", "Station 4", "Mitutoyo", "", "A", "89.90", models.EquipmentInUse, "", "", "", "", ""},
		{"Maintenance", "Hand Tools", "Torque Wrench", "TW-50", "4%", models.CycleAsNeeded, "", models.MethodInternal, models.ResultQualified, "", "10-50 Nm", "", "Tool Crib", "", "", "B", "", models.EquipmentInUse, "", "", "", "", "spare unit"},
	}

	for rowIdx, rowData := range sampleData {
		row := rowIdx + 2
		for colIdx, value := range rowData {
			cell := fmt.Sprintf("%s%d", getColumnName(colIdx), row)
			f.SetCellValue(sheetName, cell, value)
		}
	}

	for i := range allColumns {
		colName := getColumnName(i)
		f.SetColWidth(sheetName, colName, colName, 18)
	}

	instructions := []string{
		"Instructions:",
		"1. Department and Category must match existing reference data exactly.",
		"2. Calibration Cycle: one of '6 months', '12 months', '24 months', '36 months', 'as needed'.",
		"3. Calibration Date: YYYY-MM-DD. Required unless Calibration Cycle is 'as needed'.",
		"4. Calibration Method: 'internal' or 'external'. External requires Certificate Number, Verification Agency and Certificate Form.",
		"5. Equipment Code is the unique asset tag used to detect updates; leave blank to always create.",
		"6. Original Value must be a non-negative number when present.",
		"",
		"Note: Do not modify the header row. Fill data starting from row 2.",
	}
	startRow := len(sampleData) + 4
	for i, instruction := range instructions {
		f.SetCellValue(sheetName, fmt.Sprintf("A%d", startRow+i), instruction)
	}

	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	return f.SaveAs(outputPath)
}

// ExportErrorReport writes a job's per-row errors to a spreadsheet so the
// uploader can fix and re-submit just the failed rows.
func (s *ExcelService) ExportErrorReport(job *models.ImportJob, outputPath string) error {
	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Import Errors"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return err
	}

	headers := []string{"Row", "Field", "Code", "Message"}
	for i, header := range headers {
		cell := fmt.Sprintf("%s1", getColumnName(i))
		f.SetCellValue(sheetName, cell, header)
	}

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E0E0E0"}, Pattern: 1},
	})
	f.SetCellStyle(sheetName, "A1", fmt.Sprintf("%s1", getColumnName(len(headers)-1)), headerStyle)

	for rowIdx, rowErr := range job.ErrorDetails {
		row := rowIdx + 2
		// Spreadsheet row numbers: data starts at row 2.
		f.SetCellValue(sheetName, fmt.Sprintf("A%d", row), rowErr.RowIndex+2)
		f.SetCellValue(sheetName, fmt.Sprintf("B%d", row), rowErr.Field)
		f.SetCellValue(sheetName, fmt.Sprintf("C%d", row), rowErr.Code)
		f.SetCellValue(sheetName, fmt.Sprintf("D%d", row), rowErr.Message)
	}

	f.SetColWidth(sheetName, "A", "A", 8)
	f.SetColWidth(sheetName, "B", "C", 20)
	f.SetColWidth(sheetName, "D", "D", 60)

	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	return f.SaveAs(outputPath)
}

func getColumnName(index int) string {
	result := ""
	for index >= 0 {
		result = string(rune('A'+(index%26))) + result
		index = index/26 - 1
	}
	return result
}
