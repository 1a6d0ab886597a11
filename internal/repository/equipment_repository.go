package repository

import (
	"context"
	"equipment-web/internal/models"
	"fmt"
	"strconv"
	"strings"

	"github.com/jmoiron/sqlx"
)

type EquipmentRepository struct {
	db *sqlx.DB
}

func NewEquipmentRepository(db *sqlx.DB) *EquipmentRepository {
	return &EquipmentRepository{db: db}
}

// CodeMap returns every persisted business code mapped to its equipment id.
// Loaded once per import run so validation stays in memory.
func (r *EquipmentRepository) CodeMap(ctx context.Context) (map[string]int64, error) {
	type row struct {
		ID   int64  `db:"id"`
		Code string `db:"equipment_code"`
	}

	var rows []row
	query := "SELECT id, equipment_code FROM equipments WHERE equipment_code <> ''"
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, err
	}

	codes := make(map[string]int64, len(rows))
	for _, rw := range rows {
		codes[rw.Code] = rw.ID
	}
	return codes, nil
}

func (r *EquipmentRepository) GetByID(ctx context.Context, id int64) (*models.Equipment, error) {
	var eq models.Equipment
	query := "SELECT * FROM equipments WHERE id = ? LIMIT 1"
	if err := r.db.GetContext(ctx, &eq, query, id); err != nil {
		return nil, err
	}
	return &eq, nil
}

const equipmentInsert = `INSERT INTO equipments (department_id, category_id, name, model,
	accuracy_level, measurement_range, scale_value, calibration_cycle, calibration_date,
	valid_until, calibration_method, calibration_result, equipment_code, internal_id,
	installation_location, manufacturer, manufacture_date, management_level, original_value,
	status, status_change_date, certificate_number, verification_agency, certificate_form,
	notes, created_at, updated_at)
	VALUES (:department_id, :category_id, :name, :model,
	:accuracy_level, :measurement_range, :scale_value, :calibration_cycle, :calibration_date,
	:valid_until, :calibration_method, :calibration_result, :equipment_code, :internal_id,
	:installation_location, :manufacturer, :manufacture_date, :management_level, :original_value,
	:status, :status_change_date, :certificate_number, :verification_agency, :certificate_form,
	:notes, NOW(), NOW())`

// Identity and created_at survive an overwrite; everything else is replaced.
const equipmentUpdate = `UPDATE equipments SET department_id = :department_id,
	category_id = :category_id, name = :name, model = :model,
	accuracy_level = :accuracy_level, measurement_range = :measurement_range,
	scale_value = :scale_value, calibration_cycle = :calibration_cycle,
	calibration_date = :calibration_date, valid_until = :valid_until,
	calibration_method = :calibration_method, calibration_result = :calibration_result,
	installation_location = :installation_location, manufacturer = :manufacturer,
	manufacture_date = :manufacture_date, management_level = :management_level,
	original_value = :original_value, status = :status,
	status_change_date = :status_change_date, certificate_number = :certificate_number,
	verification_agency = :verification_agency, certificate_form = :certificate_form,
	notes = :notes, updated_at = NOW()
	WHERE id = :id`

// ApplyBatch writes one batch of validated records inside a single
// transaction. A failed row (foreign key violation, storage error on one
// statement) is classified failed and the batch carries on; only a commit
// failure surfaces as an error to the caller.
func (r *EquipmentRepository) ApplyBatch(ctx context.Context, records []*models.EquipmentRecord, overwrite bool) ([]models.RowOutcome, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin batch transaction: %w", err)
	}
	defer tx.Rollback()

	outcomes := make([]models.RowOutcome, 0, len(records))
	for _, rec := range records {
		outcomes = append(outcomes, r.applyOne(ctx, tx, rec, overwrite))
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit batch transaction: %w", err)
	}
	return outcomes, nil
}

func (r *EquipmentRepository) applyOne(ctx context.Context, tx *sqlx.Tx, rec *models.EquipmentRecord, overwrite bool) models.RowOutcome {
	outcome := models.RowOutcome{
		RowIndex:      rec.RowIndex,
		EquipmentCode: rec.Equipment.EquipmentCode,
	}

	if rec.ExistingID > 0 {
		if !overwrite {
			outcome.Classification = models.OutcomeSkipped
			outcome.EquipmentID = rec.ExistingID
			outcome.Message = fmt.Sprintf("equipment code %q already exists", rec.Equipment.EquipmentCode)
			return outcome
		}

		eq := rec.Equipment
		eq.ID = rec.ExistingID
		if _, err := tx.NamedExecContext(ctx, equipmentUpdate, &eq); err != nil {
			outcome.Classification = models.OutcomeFailed
			outcome.Message = err.Error()
			return outcome
		}
		outcome.Classification = models.OutcomeUpdated
		outcome.EquipmentID = rec.ExistingID
		return outcome
	}

	eq := rec.Equipment
	internalID, err := r.nextInternalID(ctx, tx, rec.CategoryPrefix)
	if err != nil {
		outcome.Classification = models.OutcomeFailed
		outcome.Message = err.Error()
		return outcome
	}
	eq.InternalID = internalID

	result, err := tx.NamedExecContext(ctx, equipmentInsert, &eq)
	if err != nil {
		outcome.Classification = models.OutcomeFailed
		outcome.Message = err.Error()
		return outcome
	}

	id, err := result.LastInsertId()
	if err != nil {
		outcome.Classification = models.OutcomeFailed
		outcome.Message = err.Error()
		return outcome
	}

	outcome.Classification = models.OutcomeCreated
	outcome.EquipmentID = id
	return outcome
}

// nextInternalID produces the next <prefix>-NNNN tag. It takes the highest
// suffix already minted for the prefix rather than a row count, so numbering
// survives deletions; the locking read runs inside the batch transaction and
// covers rows inserted earlier in the same batch, and keeps two concurrent
// jobs from minting the same tag.
func (r *EquipmentRepository) nextInternalID(ctx context.Context, tx *sqlx.Tx, prefix string) (string, error) {
	if prefix == "" {
		prefix = "EQ"
	}
	var ids []string
	query := "SELECT internal_id FROM equipments WHERE internal_id LIKE ? FOR UPDATE"
	if err := tx.SelectContext(ctx, &ids, query, prefix+"-%"); err != nil {
		return "", fmt.Errorf("load internal ids for %s: %w", prefix, err)
	}
	return fmt.Sprintf("%s-%04d", prefix, maxInternalSuffix(prefix, ids)+1), nil
}

// maxInternalSuffix returns the highest numeric suffix among <prefix>-NNNN
// tags, ignoring tags whose suffix is not a number. Zero when none match.
func maxInternalSuffix(prefix string, ids []string) int {
	highest := 0
	for _, id := range ids {
		suffix, ok := strings.CutPrefix(id, prefix+"-")
		if !ok {
			continue
		}
		n, err := strconv.Atoi(suffix)
		if err != nil {
			continue
		}
		if n > highest {
			highest = n
		}
	}
	return highest
}
