package main

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

// Generates a sample equipment workbook for manual import testing. The
// data mixes valid rows, an update of an existing code, a duplicate code
// and a bad calibration cycle so every outcome class shows up.
func main() {
	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Equipment"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		fmt.Printf("Error creating sheet: %v\n", err)
		return
	}
	f.SetActiveSheet(index)
	_ = f.DeleteSheet("Sheet1")

	headers := []string{
		"Department", "Category", "Equipment Name", "Model", "Accuracy Level",
		"Calibration Cycle", "Calibration Date", "Calibration Method", "Calibration Result",
		"Equipment Code", "Measurement Range", "Manufacturer", "Management Level",
		"Original Value", "Status", "Certificate Number", "Verification Agency", "Certificate Form",
	}

	for i, header := range headers {
		cell := fmt.Sprintf("%s1", columnName(i))
		f.SetCellValue(sheetName, cell, header)
	}

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E0E0E0"}, Pattern: 1},
	})
	f.SetCellStyle(sheetName, "A1", fmt.Sprintf("%s1", columnName(len(headers)-1)), headerStyle)

	testData := [][]interface{}{
		// Valid internal calibration.
		{"Quality Lab", "Pressure Gauge", "Digital Pressure Gauge", "DPG-100", "0.5%", "12 months", "2026-01-15", "internal", "qualified", "", "0-10 MPa", "Wika", "B", "1250.00", "in use", "", "", ""},
		// Valid external calibration with certificate.
		{"Production", "Caliper", "Vernier Caliper", "VC-150", "0.02mm", "6 months", "2026-03-01", "external", "qualified", "PG-0007", "0-150 mm", "Mitutoyo", "-", "380", "in use", "CERT-2026-0142", "Provincial Metrology Institute", "calibration certificate"},
		// Invalid calibration cycle.
		{"Quality Lab", "Thermometer", "Glass Thermometer", "GT-50", "1C", "18 months", "2026-02-10", "internal", "qualified", "", "-10-110 C", "", "C", "95.5", "in use", "", "", ""},
		// Break-fix equipment, no calibration date required.
		{"Maintenance", "Multimeter", "Handheld Multimeter", "HM-87", "0.1%", "as needed", "", "internal", "qualified", "", "", "Fluke", "C", "890", "in use", "", "", ""},
		// Duplicate of the caliper code above.
		{"Production", "Caliper", "Vernier Caliper", "VC-150", "0.02mm", "6 months", "2026-03-01", "internal", "qualified", "PG-0007", "0-150 mm", "Mitutoyo", "B", "380", "in use", "", "", ""},
	}

	for rowIdx, row := range testData {
		for colIdx, value := range row {
			cell := fmt.Sprintf("%s%d", columnName(colIdx), rowIdx+2)
			f.SetCellValue(sheetName, cell, value)
		}
	}

	output := "test_equipment_import.xlsx"
	if err := f.SaveAs(output); err != nil {
		fmt.Printf("Error saving file: %v\n", err)
		return
	}

	fmt.Printf("Generated %s with %d data rows\n", output, len(testData))
}

func columnName(index int) string {
	name := ""
	for index >= 0 {
		name = string(rune('A'+index%26)) + name
		index = index/26 - 1
	}
	return name
}
