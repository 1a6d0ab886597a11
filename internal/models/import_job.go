package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// ImportStatus is the lifecycle state of an import job.
type ImportStatus string

const (
	StatusPending    ImportStatus = "pending"
	StatusProcessing ImportStatus = "processing"
	StatusPaused     ImportStatus = "paused"
	StatusCancelled  ImportStatus = "cancelled"
	StatusCompleted  ImportStatus = "completed"
	StatusFailed     ImportStatus = "failed"
)

// validTransitions is the single source of truth for legal status changes.
// Processing and Paused can flip back and forth; everything else is
// one-directional. Terminal states have no outgoing edges.
var validTransitions = map[ImportStatus][]ImportStatus{
	StatusPending:    {StatusProcessing},
	StatusProcessing: {StatusPaused, StatusCancelled, StatusCompleted, StatusFailed},
	StatusPaused:     {StatusProcessing, StatusCancelled},
	StatusCancelled:  {},
	StatusCompleted:  {},
	StatusFailed:     {},
}

// CanTransitionTo reports whether the transition s -> to is legal.
func (s ImportStatus) CanTransitionTo(to ImportStatus) bool {
	for _, next := range validTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions are possible.
func (s ImportStatus) IsTerminal() bool {
	return s == StatusCancelled || s == StatusCompleted || s == StatusFailed
}

// IsActive reports whether the job still owns work (pending, running or paused).
func (s ImportStatus) IsActive() bool {
	return s == StatusPending || s == StatusProcessing || s == StatusPaused
}

// Row outcome classifications.
const (
	OutcomeCreated = "created"
	OutcomeUpdated = "updated"
	OutcomeSkipped = "skipped"
	OutcomeFailed  = "failed"
)

// Row error codes.
const (
	ErrCodeMissingField     = "missing_field"
	ErrCodeInvalidEnum      = "invalid_enum"
	ErrCodeInvalidDate      = "invalid_date"
	ErrCodeInvalidNumber    = "invalid_number"
	ErrCodeDuplicateCode    = "duplicate_code"
	ErrCodeUnknownReference = "unknown_reference"
	ErrCodePersistence      = "persistence_error"
)

// RowOutcome records what happened to one input row. RowIndex is the
// zero-based position in the file, so outcome i always describes row i.
type RowOutcome struct {
	RowIndex       int    `json:"row_index"`
	Classification string `json:"classification"`
	EquipmentID    int64  `json:"equipment_id,omitempty"`
	EquipmentCode  string `json:"equipment_code,omitempty"`
	Message        string `json:"message,omitempty"`
}

// RowError is one per-row validation or application failure.
type RowError struct {
	RowIndex int    `json:"row_index"`
	Field    string `json:"field"`
	Code     string `json:"code"`
	Message  string `json:"message"`
}

// RowOutcomeList serializes to a JSON column.
type RowOutcomeList []RowOutcome

func (l RowOutcomeList) Value() (driver.Value, error) {
	if l == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(l)
}

func (l *RowOutcomeList) Scan(src interface{}) error {
	return scanJSON(src, l)
}

// RowErrorList serializes to a JSON column.
type RowErrorList []RowError

func (l RowErrorList) Value() (driver.Value, error) {
	if l == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(l)
}

func (l *RowErrorList) Scan(src interface{}) error {
	return scanJSON(src, l)
}

func scanJSON(src, dst interface{}) error {
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		if len(v) == 0 {
			return nil
		}
		return json.Unmarshal(v, dst)
	case string:
		if v == "" {
			return nil
		}
		return json.Unmarshal([]byte(v), dst)
	default:
		return fmt.Errorf("unsupported JSON column type %T", src)
	}
}

// ImportJob is one bulk-import attempt. The controller is the only writer
// while the job is active; once terminal the record is immutable.
type ImportJob struct {
	ID            string       `db:"id" json:"id"`
	UploaderID    int          `db:"uploader_id" json:"uploader_id"`
	Filename      string       `db:"filename" json:"filename"`
	FilePath      string       `db:"file_path" json:"-"`
	FileSizeBytes int64        `db:"file_size_bytes" json:"file_size_bytes"`
	Status        ImportStatus `db:"status" json:"status"`

	ProgressPercent int `db:"progress_percent" json:"progress_percent"`
	TotalRows       int `db:"total_rows" json:"total_rows"`
	ProcessedRows   int `db:"processed_rows" json:"processed_rows"`
	SuccessCount    int `db:"success_count" json:"success_count"`
	UpdateCount     int `db:"update_count" json:"update_count"`
	SkippedCount    int `db:"skipped_count" json:"skipped_count"`
	ErrorCount      int `db:"error_count" json:"error_count"`

	OverwriteExisting bool `db:"overwrite_existing" json:"overwrite_existing"`
	BatchSize         int  `db:"batch_size" json:"batch_size"`

	DetailedResults RowOutcomeList `db:"detailed_results" json:"detailed_results"`
	ErrorDetails    RowErrorList   `db:"error_details" json:"error_details"`

	Notes        string `db:"notes" json:"notes,omitempty"`
	ErrorMessage string `db:"error_message" json:"error_message,omitempty"`

	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	StartedAt   *time.Time `db:"started_at" json:"started_at,omitempty"`
	CompletedAt *time.Time `db:"completed_at" json:"completed_at,omitempty"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
}

// RecordOutcome folds one row outcome into the job's result detail and
// counters, keeping processedRows = success + update + skipped + error.
func (j *ImportJob) RecordOutcome(o RowOutcome) {
	j.DetailedResults = append(j.DetailedResults, o)
	j.ProcessedRows++
	switch o.Classification {
	case OutcomeCreated:
		j.SuccessCount++
	case OutcomeUpdated:
		j.UpdateCount++
	case OutcomeSkipped:
		j.SkippedCount++
	case OutcomeFailed:
		j.ErrorCount++
	}
	if j.TotalRows > 0 {
		j.ProgressPercent = j.ProcessedRows * 100 / j.TotalRows
	}
}
