package models_test

import (
	"encoding/json"
	"testing"

	"equipment-web/internal/models"
)

func TestStatusTransitions(t *testing.T) {
	t.Parallel()

	cases := []struct {
		from, to models.ImportStatus
		want     bool
	}{
		{models.StatusPending, models.StatusProcessing, true},
		{models.StatusPending, models.StatusPaused, false},
		{models.StatusPending, models.StatusCompleted, false},
		{models.StatusProcessing, models.StatusPaused, true},
		{models.StatusProcessing, models.StatusCancelled, true},
		{models.StatusProcessing, models.StatusCompleted, true},
		{models.StatusProcessing, models.StatusFailed, true},
		{models.StatusProcessing, models.StatusPending, false},
		{models.StatusPaused, models.StatusProcessing, true},
		{models.StatusPaused, models.StatusCancelled, true},
		{models.StatusPaused, models.StatusCompleted, false},
		{models.StatusCancelled, models.StatusProcessing, false},
		{models.StatusCompleted, models.StatusProcessing, false},
		{models.StatusFailed, models.StatusProcessing, false},
	}

	for _, tc := range cases {
		if got := tc.from.CanTransitionTo(tc.to); got != tc.want {
			t.Errorf("CanTransitionTo(%s -> %s) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestStatusClassification(t *testing.T) {
	t.Parallel()

	terminal := []models.ImportStatus{models.StatusCancelled, models.StatusCompleted, models.StatusFailed}
	for _, s := range terminal {
		if !s.IsTerminal() {
			t.Errorf("expected %s to be terminal", s)
		}
		if s.IsActive() {
			t.Errorf("expected %s not to be active", s)
		}
	}

	active := []models.ImportStatus{models.StatusPending, models.StatusProcessing, models.StatusPaused}
	for _, s := range active {
		if s.IsTerminal() {
			t.Errorf("expected %s not to be terminal", s)
		}
		if !s.IsActive() {
			t.Errorf("expected %s to be active", s)
		}
	}
}

func TestStatusSerialization(t *testing.T) {
	t.Parallel()

	want := map[models.ImportStatus]string{
		models.StatusPending:    "pending",
		models.StatusProcessing: "processing",
		models.StatusPaused:     "paused",
		models.StatusCancelled:  "cancelled",
		models.StatusCompleted:  "completed",
		models.StatusFailed:     "failed",
	}
	for status, text := range want {
		if string(status) != text {
			t.Errorf("status %v serializes to %q, want %q", status, string(status), text)
		}
	}
}

func TestRecordOutcomeCounters(t *testing.T) {
	t.Parallel()

	job := &models.ImportJob{TotalRows: 4}

	outcomes := []models.RowOutcome{
		{RowIndex: 0, Classification: models.OutcomeCreated, EquipmentCode: "PG-0001"},
		{RowIndex: 1, Classification: models.OutcomeUpdated, EquipmentCode: "PG-0002"},
		{RowIndex: 2, Classification: models.OutcomeSkipped, EquipmentCode: "PG-0003"},
		{RowIndex: 3, Classification: models.OutcomeFailed, Message: "bad cycle"},
	}
	for _, o := range outcomes {
		job.RecordOutcome(o)
	}

	if job.ProcessedRows != 4 {
		t.Errorf("ProcessedRows = %d, want 4", job.ProcessedRows)
	}
	if job.SuccessCount != 1 || job.UpdateCount != 1 || job.SkippedCount != 1 || job.ErrorCount != 1 {
		t.Errorf("counters = %d/%d/%d/%d, want 1/1/1/1",
			job.SuccessCount, job.UpdateCount, job.SkippedCount, job.ErrorCount)
	}
	sum := job.SuccessCount + job.UpdateCount + job.SkippedCount + job.ErrorCount
	if sum != job.ProcessedRows {
		t.Errorf("counter sum %d != ProcessedRows %d", sum, job.ProcessedRows)
	}
	if job.ProgressPercent != 100 {
		t.Errorf("ProgressPercent = %d, want 100", job.ProgressPercent)
	}
	if len(job.DetailedResults) != 4 {
		t.Fatalf("DetailedResults has %d entries, want 4", len(job.DetailedResults))
	}
	for i, o := range job.DetailedResults {
		if o.RowIndex != i {
			t.Errorf("DetailedResults[%d].RowIndex = %d, want %d", i, o.RowIndex, i)
		}
	}
}

func TestRecordOutcomeProgressFloor(t *testing.T) {
	t.Parallel()

	job := &models.ImportJob{TotalRows: 3}
	job.RecordOutcome(models.RowOutcome{RowIndex: 0, Classification: models.OutcomeCreated})
	if job.ProgressPercent != 33 {
		t.Errorf("ProgressPercent after 1/3 = %d, want 33", job.ProgressPercent)
	}
	job.RecordOutcome(models.RowOutcome{RowIndex: 1, Classification: models.OutcomeCreated})
	if job.ProgressPercent != 66 {
		t.Errorf("ProgressPercent after 2/3 = %d, want 66", job.ProgressPercent)
	}
}

func TestRowOutcomeListRoundTrip(t *testing.T) {
	t.Parallel()

	list := models.RowOutcomeList{
		{RowIndex: 0, Classification: models.OutcomeCreated, EquipmentID: 7, EquipmentCode: "PG-0001"},
		{RowIndex: 1, Classification: models.OutcomeFailed, Message: "department not found"},
	}

	value, err := list.Value()
	if err != nil {
		t.Fatalf("Value() error: %v", err)
	}

	var decoded models.RowOutcomeList
	if err := decoded.Scan(value); err != nil {
		t.Fatalf("Scan() error: %v", err)
	}
	if len(decoded) != 2 {
		t.Fatalf("decoded %d outcomes, want 2", len(decoded))
	}
	if decoded[0] != list[0] || decoded[1] != list[1] {
		t.Errorf("round trip mismatch: got %+v, want %+v", decoded, list)
	}
}

func TestRowErrorListNilValue(t *testing.T) {
	t.Parallel()

	var list models.RowErrorList
	value, err := list.Value()
	if err != nil {
		t.Fatalf("Value() error: %v", err)
	}
	raw, ok := value.([]byte)
	if !ok || string(raw) != "[]" {
		t.Errorf("nil list serializes to %v, want []", value)
	}

	var decoded models.RowErrorList
	if err := decoded.Scan("[{\"row_index\":3,\"field\":\"calibrationCycle\",\"code\":\"invalid_enum\",\"message\":\"bad\"}]"); err != nil {
		t.Fatalf("Scan() error: %v", err)
	}
	if len(decoded) != 1 || decoded[0].Field != "calibrationCycle" {
		t.Errorf("decoded = %+v", decoded)
	}
}

func TestImportJobJSONHidesFilePath(t *testing.T) {
	t.Parallel()

	job := models.ImportJob{ID: "abc", FilePath: "/var/secret/abc.xlsx"}
	data, err := json.Marshal(job)
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}
	var decoded map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal error: %v", err)
	}
	if _, exposed := decoded["file_path"]; exposed {
		t.Error("file_path must not appear in JSON output")
	}
}
