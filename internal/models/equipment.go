package models

import "time"

type Department struct {
	ID          int       `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Description string    `db:"description" json:"description"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

type EquipmentCategory struct {
	ID          int       `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	CodePrefix  string    `db:"code_prefix" json:"code_prefix"`
	Description string    `db:"description" json:"description"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// Calibration cycle values. CycleAsNeeded is the break-fix sentinel: such
// equipment carries no calibration date and no valid-until date.
const (
	Cycle6Months  = "6 months"
	Cycle12Months = "12 months"
	Cycle24Months = "24 months"
	Cycle36Months = "36 months"
	CycleAsNeeded = "as needed"
)

// CycleValidDays maps a calibration cycle to the validity window in days.
var CycleValidDays = map[string]int{
	Cycle6Months:  180,
	Cycle12Months: 365,
	Cycle24Months: 730,
	Cycle36Months: 1095,
}

// Calibration methods.
const (
	MethodInternal = "internal"
	MethodExternal = "external"
)

// Calibration results.
const (
	ResultQualified   = "qualified"
	ResultUnqualified = "unqualified"
)

// Equipment operating statuses.
const (
	EquipmentInUse     = "in use"
	EquipmentSuspended = "suspended"
	EquipmentScrapped  = "scrapped"
)

// Certificate forms for externally calibrated equipment.
const (
	CertFormCalibration  = "calibration certificate"
	CertFormVerification = "verification certificate"
)

type Equipment struct {
	ID           int64  `db:"id" json:"id"`
	DepartmentID int    `db:"department_id" json:"department_id"`
	CategoryID   int    `db:"category_id" json:"category_id"`
	Name         string `db:"name" json:"name"`
	Model        string `db:"model" json:"model"`

	AccuracyLevel    string `db:"accuracy_level" json:"accuracy_level"`
	MeasurementRange string `db:"measurement_range" json:"measurement_range"`
	ScaleValue       string `db:"scale_value" json:"scale_value"`

	CalibrationCycle  string     `db:"calibration_cycle" json:"calibration_cycle"`
	CalibrationDate   *time.Time `db:"calibration_date" json:"calibration_date,omitempty"`
	ValidUntil        *time.Time `db:"valid_until" json:"valid_until,omitempty"`
	CalibrationMethod string     `db:"calibration_method" json:"calibration_method"`
	CalibrationResult string     `db:"calibration_result" json:"calibration_result"`

	// EquipmentCode is the business code (asset tag) used to match
	// creates against updates during import. Unique when non-empty.
	EquipmentCode string `db:"equipment_code" json:"equipment_code"`
	InternalID    string `db:"internal_id" json:"internal_id"`

	InstallationLocation string     `db:"installation_location" json:"installation_location"`
	Manufacturer         string     `db:"manufacturer" json:"manufacturer"`
	ManufactureDate      *time.Time `db:"manufacture_date" json:"manufacture_date,omitempty"`
	ManagementLevel      string     `db:"management_level" json:"management_level"`
	OriginalValue        *float64   `db:"original_value" json:"original_value,omitempty"`

	Status           string     `db:"status" json:"status"`
	StatusChangeDate *time.Time `db:"status_change_date" json:"status_change_date,omitempty"`

	CertificateNumber  string `db:"certificate_number" json:"certificate_number"`
	VerificationAgency string `db:"verification_agency" json:"verification_agency"`
	CertificateForm    string `db:"certificate_form" json:"certificate_form"`

	Notes     string    `db:"notes" json:"notes"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// EquipmentRecord is a validated, normalized import row ready for the
// applier. ExistingID is non-zero when the business code already belongs
// to a persisted equipment row.
type EquipmentRecord struct {
	RowIndex       int
	ExistingID     int64
	CategoryPrefix string
	Equipment      Equipment
}
