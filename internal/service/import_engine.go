package service

import (
	"context"
	"equipment-web/internal/models"
	"equipment-web/internal/repository"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DateFormat is the one calendar format accepted in import files.
const DateFormat = "2006-01-02"

// RefData is the reference state a job validates against: department and
// category names, and every business code already persisted. Loaded once
// per run so row validation never touches the database.
type RefData struct {
	Departments   map[string]models.Department
	Categories    map[string]models.EquipmentCategory
	ExistingCodes map[string]int64
}

// RefLoader loads reference data at the start of an import run.
type RefLoader interface {
	Load(ctx context.Context) (*RefData, error)
}

type RefDataLoader struct {
	deptRepo  *repository.DepartmentRepository
	catRepo   *repository.CategoryRepository
	equipRepo *repository.EquipmentRepository
}

func NewRefDataLoader(
	deptRepo *repository.DepartmentRepository,
	catRepo *repository.CategoryRepository,
	equipRepo *repository.EquipmentRepository,
) *RefDataLoader {
	return &RefDataLoader{
		deptRepo:  deptRepo,
		catRepo:   catRepo,
		equipRepo: equipRepo,
	}
}

func (l *RefDataLoader) Load(ctx context.Context) (*RefData, error) {
	departments, err := l.deptRepo.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load departments: %w", err)
	}
	categories, err := l.catRepo.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load categories: %w", err)
	}
	codes, err := l.equipRepo.CodeMap(ctx)
	if err != nil {
		return nil, fmt.Errorf("load equipment codes: %w", err)
	}

	ref := &RefData{
		Departments:   make(map[string]models.Department, len(departments)),
		Categories:    make(map[string]models.EquipmentCategory, len(categories)),
		ExistingCodes: codes,
	}
	for _, d := range departments {
		ref.Departments[d.Name] = d
	}
	for _, c := range categories {
		ref.Categories[c.Name] = c
	}
	return ref, nil
}

var calibrationCycles = []string{
	models.Cycle6Months, models.Cycle12Months, models.Cycle24Months,
	models.Cycle36Months, models.CycleAsNeeded,
}

var calibrationMethods = []string{models.MethodInternal, models.MethodExternal}

var calibrationResults = []string{models.ResultQualified, models.ResultUnqualified}

var managementLevels = []string{"A", "B", "C"}

var equipmentStatuses = []string{
	models.EquipmentInUse, models.EquipmentSuspended, models.EquipmentScrapped,
}

var certificateForms = []string{models.CertFormCalibration, models.CertFormVerification}

// ImportEngine turns raw rows into normalized equipment records. Rows are
// checked in a fixed order and the first failure wins; codes claimed by
// earlier rows of the same job are tracked so later duplicates fail.
type ImportEngine struct {
	ref       *RefData
	seenCodes map[string]bool
}

func NewImportEngine(ref *RefData) *ImportEngine {
	return &ImportEngine{
		ref:       ref,
		seenCodes: make(map[string]bool),
	}
}

// SeedClaimedCodes re-registers codes claimed before a pause, so a resumed
// run judges duplicates exactly as an uninterrupted one would. Any outcome
// carrying a code claimed it during validation; rows rejected by validation
// never reached the claim and carry no code.
func (e *ImportEngine) SeedClaimedCodes(outcomes []models.RowOutcome) {
	for _, o := range outcomes {
		if o.EquipmentCode != "" {
			e.seenCodes[o.EquipmentCode] = true
		}
	}
}

// ValidateRow validates and normalizes one raw row. It returns either a
// record ready for the applier or the row's first validation error.
func (e *ImportEngine) ValidateRow(rowIndex int, row map[string]string) (*models.EquipmentRecord, *models.RowError) {
	fail := func(field, code, format string, args ...interface{}) (*models.EquipmentRecord, *models.RowError) {
		return nil, &models.RowError{
			RowIndex: rowIndex,
			Field:    field,
			Code:     code,
			Message:  fmt.Sprintf(format, args...),
		}
	}

	// Required fields.
	required := []struct{ column, field string }{
		{ColDepartment, "department"},
		{ColCategory, "category"},
		{ColName, "name"},
		{ColModel, "model"},
		{ColAccuracyLevel, "accuracyLevel"},
		{ColCalibrationCycle, "calibrationCycle"},
	}
	for _, rf := range required {
		if strings.TrimSpace(row[rf.column]) == "" {
			return fail(rf.field, models.ErrCodeMissingField, "%s is required", rf.column)
		}
	}

	// Reference data membership.
	department, ok := e.ref.Departments[row[ColDepartment]]
	if !ok {
		return fail("department", models.ErrCodeUnknownReference, "department %q not found", row[ColDepartment])
	}
	category, ok := e.ref.Categories[row[ColCategory]]
	if !ok {
		return fail("category", models.ErrCodeUnknownReference, "category %q not found", row[ColCategory])
	}

	// Enumerated fields.
	cycle := row[ColCalibrationCycle]
	if !inSet(cycle, calibrationCycles) {
		return fail("calibrationCycle", models.ErrCodeInvalidEnum,
			"calibration cycle must be one of %s", strings.Join(calibrationCycles, ", "))
	}

	method := row[ColCalibrationMethod]
	if method == "" {
		method = models.MethodInternal
	}
	if !inSet(method, calibrationMethods) {
		return fail("calibrationMethod", models.ErrCodeInvalidEnum,
			"calibration method must be one of %s", strings.Join(calibrationMethods, ", "))
	}

	result := row[ColCalibrationResult]
	if result == "" {
		result = models.ResultQualified
	}
	if !inSet(result, calibrationResults) {
		return fail("calibrationResult", models.ErrCodeInvalidEnum,
			"calibration result must be one of %s", strings.Join(calibrationResults, ", "))
	}

	level := row[ColManagementLevel]
	if level != "" && level != "-" && !inSet(level, managementLevels) {
		return fail("managementLevel", models.ErrCodeInvalidEnum,
			"management level must be one of %s", strings.Join(managementLevels, ", "))
	}
	// External calibration carries no in-house management level.
	if method == models.MethodExternal {
		level = "-"
	} else if level == "" {
		level = "-"
	}

	status := row[ColStatus]
	if status == "" {
		status = models.EquipmentInUse
	}
	if !inSet(status, equipmentStatuses) {
		return fail("status", models.ErrCodeInvalidEnum,
			"status must be one of %s", strings.Join(equipmentStatuses, ", "))
	}

	// Externally calibrated equipment must document its certificate.
	certNumber := row[ColCertificateNumber]
	certAgency := row[ColVerificationAgency]
	certForm := row[ColCertificateForm]
	if method == models.MethodExternal {
		if certNumber == "" {
			return fail("certificateNumber", models.ErrCodeMissingField,
				"%s is required for external calibration", ColCertificateNumber)
		}
		if certAgency == "" {
			return fail("verificationAgency", models.ErrCodeMissingField,
				"%s is required for external calibration", ColVerificationAgency)
		}
		if !inSet(certForm, certificateForms) {
			return fail("certificateForm", models.ErrCodeInvalidEnum,
				"certificate form must be one of %s", strings.Join(certificateForms, ", "))
		}
	} else {
		certNumber, certAgency, certForm = "", "", ""
	}

	// Date fields. A missing calibration date is allowed only for
	// break-fix equipment.
	var calibrationDate *time.Time
	if raw := row[ColCalibrationDate]; raw == "" {
		if cycle != models.CycleAsNeeded {
			return fail("calibrationDate", models.ErrCodeMissingField,
				"%s is required unless calibration cycle is %q", ColCalibrationDate, models.CycleAsNeeded)
		}
	} else {
		parsed, err := time.Parse(DateFormat, raw)
		if err != nil {
			return fail("calibrationDate", models.ErrCodeInvalidDate,
				"calibration date %q is not in %s format", raw, DateFormat)
		}
		calibrationDate = &parsed
	}

	var manufactureDate *time.Time
	if raw := row[ColManufactureDate]; raw != "" {
		parsed, err := time.Parse(DateFormat, raw)
		if err != nil {
			return fail("manufactureDate", models.ErrCodeInvalidDate,
				"manufacture date %q is not in %s format", raw, DateFormat)
		}
		manufactureDate = &parsed
	}

	var statusChangeDate *time.Time
	if raw := row[ColStatusChangeDate]; raw != "" {
		parsed, err := time.Parse(DateFormat, raw)
		if err != nil {
			return fail("statusChangeDate", models.ErrCodeInvalidDate,
				"status change date %q is not in %s format", raw, DateFormat)
		}
		statusChangeDate = &parsed
	}

	// Numeric fields.
	var originalValue *float64
	if raw := row[ColOriginalValue]; raw != "" {
		parsed, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", ""), 64)
		if err != nil || parsed < 0 {
			return fail("originalValue", models.ErrCodeInvalidNumber,
				"original value %q must be a non-negative number", raw)
		}
		originalValue = &parsed
	}

	// Business code uniqueness. A code claimed by an earlier row of this
	// job always fails; a persisted clash is tagged for the applier to
	// resolve as update or skip.
	var existingID int64
	code := row[ColEquipmentCode]
	if code != "" {
		if e.seenCodes[code] {
			return fail("equipmentCode", models.ErrCodeDuplicateCode,
				"equipment code %q already used earlier in this file", code)
		}
		existingID = e.ref.ExistingCodes[code]
		e.seenCodes[code] = true
	}

	// Validity window derived from the cycle; none for break-fix gear.
	var validUntil *time.Time
	if days, ok := models.CycleValidDays[cycle]; ok && calibrationDate != nil {
		v := calibrationDate.AddDate(0, 0, days-1)
		validUntil = &v
	}

	return &models.EquipmentRecord{
		RowIndex:       rowIndex,
		ExistingID:     existingID,
		CategoryPrefix: category.CodePrefix,
		Equipment: models.Equipment{
			DepartmentID:         department.ID,
			CategoryID:           category.ID,
			Name:                 row[ColName],
			Model:                row[ColModel],
			AccuracyLevel:        row[ColAccuracyLevel],
			MeasurementRange:     row[ColMeasurementRange],
			ScaleValue:           row[ColScaleValue],
			CalibrationCycle:     cycle,
			CalibrationDate:      calibrationDate,
			ValidUntil:           validUntil,
			CalibrationMethod:    method,
			CalibrationResult:    result,
			EquipmentCode:        code,
			InstallationLocation: row[ColInstallLocation],
			Manufacturer:         row[ColManufacturer],
			ManufactureDate:      manufactureDate,
			ManagementLevel:      level,
			OriginalValue:        originalValue,
			Status:               status,
			StatusChangeDate:     statusChangeDate,
			CertificateNumber:    certNumber,
			VerificationAgency:   certAgency,
			CertificateForm:      certForm,
			Notes:                row[ColNotes],
		},
	}, nil
}

func inSet(value string, set []string) bool {
	for _, s := range set {
		if value == s {
			return true
		}
	}
	return false
}
