package repository

import (
	"context"
	"equipment-web/internal/models"

	"github.com/jmoiron/sqlx"
)

type ImportJobRepository struct {
	db *sqlx.DB
}

func NewImportJobRepository(db *sqlx.DB) *ImportJobRepository {
	return &ImportJobRepository{db: db}
}

func (r *ImportJobRepository) Create(ctx context.Context, job *models.ImportJob) error {
	query := `INSERT INTO import_jobs (id, uploader_id, filename, file_path, file_size_bytes,
	          status, progress_percent, total_rows, processed_rows, success_count, update_count,
	          skipped_count, error_count, overwrite_existing, batch_size, detailed_results,
	          error_details, notes, error_message, created_at, updated_at)
	          VALUES (:id, :uploader_id, :filename, :file_path, :file_size_bytes,
	          :status, :progress_percent, :total_rows, :processed_rows, :success_count, :update_count,
	          :skipped_count, :error_count, :overwrite_existing, :batch_size, :detailed_results,
	          :error_details, :notes, :error_message, NOW(), NOW())`
	_, err := r.db.NamedExecContext(ctx, query, job)
	return err
}

func (r *ImportJobRepository) GetByID(ctx context.Context, id string) (*models.ImportJob, error) {
	var job models.ImportJob
	query := "SELECT * FROM import_jobs WHERE id = ? LIMIT 1"
	if err := r.db.GetContext(ctx, &job, query, id); err != nil {
		return nil, err
	}
	return &job, nil
}

// UpdateSnapshot replaces the job's progress state in one statement so
// concurrent readers never see a half-written record. Status is deliberately
// not touched here; all status changes go through Transition.
func (r *ImportJobRepository) UpdateSnapshot(ctx context.Context, job *models.ImportJob) error {
	query := `UPDATE import_jobs SET
	          progress_percent = :progress_percent,
	          total_rows = :total_rows,
	          processed_rows = :processed_rows,
	          success_count = :success_count,
	          update_count = :update_count,
	          skipped_count = :skipped_count,
	          error_count = :error_count,
	          detailed_results = :detailed_results,
	          error_details = :error_details,
	          error_message = :error_message,
	          updated_at = NOW()
	          WHERE id = :id`
	_, err := r.db.NamedExecContext(ctx, query, job)
	return err
}

// Transition atomically moves the job from one status to another. The
// WHERE guard makes it a compare-and-set: it reports false when the job
// was not in the expected source status.
func (r *ImportJobRepository) Transition(ctx context.Context, id string, from, to models.ImportStatus) (bool, error) {
	query := `UPDATE import_jobs SET
	          status = ?,
	          started_at = IF(? = 'processing' AND started_at IS NULL, NOW(), started_at),
	          completed_at = IF(? IN ('cancelled', 'completed', 'failed'), NOW(), completed_at),
	          updated_at = NOW()
	          WHERE id = ? AND status = ?`
	result, err := r.db.ExecContext(ctx, query, to, to, to, id, from)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (r *ImportJobRepository) List(ctx context.Context, limit, offset, uploaderID int, status models.ImportStatus) ([]models.ImportJob, int, error) {
	where := "WHERE 1=1"
	args := []interface{}{}

	if uploaderID > 0 {
		where += " AND uploader_id = ?"
		args = append(args, uploaderID)
	}
	if status != "" {
		where += " AND status = ?"
		args = append(args, status)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM import_jobs "+where, args...); err != nil {
		return nil, 0, err
	}

	var jobs []models.ImportJob
	query := "SELECT * FROM import_jobs " + where + " ORDER BY created_at DESC LIMIT ? OFFSET ?"
	args = append(args, limit, offset)
	if err := r.db.SelectContext(ctx, &jobs, query, args...); err != nil {
		return nil, 0, err
	}

	return jobs, total, nil
}

// CountByStatus summarizes a user's jobs per status (all users when
// uploaderID is 0).
func (r *ImportJobRepository) CountByStatus(ctx context.Context, uploaderID int) (map[models.ImportStatus]int, error) {
	type row struct {
		Status models.ImportStatus `db:"status"`
		Count  int                 `db:"count"`
	}

	where := ""
	args := []interface{}{}
	if uploaderID > 0 {
		where = "WHERE uploader_id = ?"
		args = append(args, uploaderID)
	}

	var rows []row
	query := "SELECT status, COUNT(*) AS count FROM import_jobs " + where + " GROUP BY status"
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}

	counts := make(map[models.ImportStatus]int, len(rows))
	for _, rw := range rows {
		counts[rw.Status] = rw.Count
	}
	return counts, nil
}
