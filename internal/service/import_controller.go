package service

import (
	"context"
	"database/sql"
	"equipment-web/internal/models"
	"equipment-web/internal/utils"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// JobStore is the durable record of import jobs. UpdateSnapshot must be a
// single atomic write; Transition must be a compare-and-set on status.
type JobStore interface {
	Create(ctx context.Context, job *models.ImportJob) error
	GetByID(ctx context.Context, id string) (*models.ImportJob, error)
	UpdateSnapshot(ctx context.Context, job *models.ImportJob) error
	Transition(ctx context.Context, id string, from, to models.ImportStatus) (bool, error)
}

// Applier writes one batch of validated records in a single transaction
// and classifies every record. Only a commit failure returns an error.
type Applier interface {
	ApplyBatch(ctx context.Context, records []*models.EquipmentRecord, overwrite bool) ([]models.RowOutcome, error)
}

// FileParser decodes uploaded spreadsheets into row sequences.
type FileParser interface {
	ParseEquipmentBytes(data []byte) (RowSource, error)
	ParseEquipmentFile(path string) (RowSource, error)
}

// TaskEnqueuer hands a job to the background worker.
type TaskEnqueuer interface {
	EnqueueImport(ctx context.Context, jobID string) error
}

const defaultBatchSize = 50

// ImportController owns the job lifecycle. It is the only writer of job
// state: the web layer calls its control operations, the worker calls Run.
type ImportController struct {
	store      JobStore
	parser     FileParser
	applier    Applier
	refLoader  RefLoader
	enqueuer   TaskEnqueuer
	redis      *redis.Client
	uploadPath string
}

func NewImportController(
	store JobStore,
	parser FileParser,
	applier Applier,
	refLoader RefLoader,
	enqueuer TaskEnqueuer,
	redisClient *redis.Client,
	uploadPath string,
) *ImportController {
	return &ImportController{
		store:      store,
		parser:     parser,
		applier:    applier,
		refLoader:  refLoader,
		enqueuer:   enqueuer,
		redis:      redisClient,
		uploadPath: uploadPath,
	}
}

// CreateJob validates the uploaded file, stores it, and records a pending
// job. The row count is known up front; an undecodable or empty file
// rejects the job before it exists.
func (c *ImportController) CreateJob(ctx context.Context, uploaderID int, filename string, data []byte, overwriteExisting bool, batchSize int, notes string) (*models.ImportJob, error) {
	src, err := c.parser.ParseEquipmentBytes(data)
	if err != nil {
		return nil, err
	}
	if src.TotalRows() == 0 {
		return nil, ErrEmptyFile
	}

	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}

	id := uuid.New().String()
	filePath := filepath.Join(c.uploadPath, id+".xlsx")
	if err := os.MkdirAll(c.uploadPath, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	if err := os.WriteFile(filePath, data, 0o644); err != nil {
		return nil, fmt.Errorf("store upload: %w", err)
	}

	job := &models.ImportJob{
		ID:                id,
		UploaderID:        uploaderID,
		Filename:          filename,
		FilePath:          filePath,
		FileSizeBytes:     int64(len(data)),
		Status:            models.StatusPending,
		TotalRows:         src.TotalRows(),
		OverwriteExisting: overwriteExisting,
		BatchSize:         batchSize,
		DetailedResults:   models.RowOutcomeList{},
		ErrorDetails:      models.RowErrorList{},
		Notes:             notes,
	}

	if err := c.store.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("create import job: %w", err)
	}

	utils.JobLogger(job.ID).WithFields(map[string]interface{}{
		"uploader_id": uploaderID,
		"filename":    filename,
		"total_rows":  job.TotalRows,
	}).Info("import job created")

	return job, nil
}

// GetJob returns a read-only snapshot of the job.
func (c *ImportController) GetJob(ctx context.Context, jobID string) (*models.ImportJob, error) {
	job, err := c.store.GetByID(ctx, jobID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrJobNotFound
		}
		return nil, err
	}
	return job, nil
}

// Start moves a pending job into processing and hands it to the worker.
func (c *ImportController) Start(ctx context.Context, jobID string) error {
	if err := c.transition(ctx, jobID, models.StatusPending, models.StatusProcessing); err != nil {
		return err
	}
	utils.JobLogger(jobID).Info("import job started")
	return c.enqueue(ctx, jobID)
}

// Pause requests a stop after the current batch commits. The runner
// observes the new status at the next batch boundary; the persisted
// processedRows checkpoint makes the pause exact.
func (c *ImportController) Pause(ctx context.Context, jobID string) error {
	if err := c.transition(ctx, jobID, models.StatusProcessing, models.StatusPaused); err != nil {
		return err
	}
	utils.JobLogger(jobID).Info("import job pause requested")
	return nil
}

// Resume continues a paused job from its checkpoint.
func (c *ImportController) Resume(ctx context.Context, jobID string) error {
	if err := c.transition(ctx, jobID, models.StatusPaused, models.StatusProcessing); err != nil {
		return err
	}
	utils.JobLogger(jobID).Info("import job resumed")
	return c.enqueue(ctx, jobID)
}

// Cancel terminates a processing or paused job. Rows committed before the
// signal is observed stay committed; nothing is rolled back.
func (c *ImportController) Cancel(ctx context.Context, jobID string) error {
	job, err := c.GetJob(ctx, jobID)
	if err != nil {
		return err
	}
	if job.Status != models.StatusProcessing && job.Status != models.StatusPaused {
		return fmt.Errorf("%w: cannot cancel a %s job", ErrInvalidState, job.Status)
	}
	if err := c.transition(ctx, jobID, job.Status, models.StatusCancelled); err != nil {
		return err
	}
	utils.JobLogger(jobID).Info("import job cancelled")
	return nil
}

func (c *ImportController) transition(ctx context.Context, jobID string, from, to models.ImportStatus) error {
	job, err := c.GetJob(ctx, jobID)
	if err != nil {
		return err
	}
	if job.Status != from || !from.CanTransitionTo(to) {
		return fmt.Errorf("%w: %s -> %s not allowed from %s", ErrInvalidState, from, to, job.Status)
	}
	ok, err := c.store.Transition(ctx, jobID, from, to)
	if err != nil {
		return fmt.Errorf("transition job %s: %w", jobID, err)
	}
	if !ok {
		// Lost a race with another control call.
		return fmt.Errorf("%w: job is no longer %s", ErrInvalidState, from)
	}
	return nil
}

func (c *ImportController) enqueue(ctx context.Context, jobID string) error {
	if c.enqueuer == nil {
		return fmt.Errorf("background job processing is not available")
	}
	if err := c.enqueuer.EnqueueImport(ctx, jobID); err != nil {
		return fmt.Errorf("enqueue import task: %w", err)
	}
	return nil
}

// Run executes the batch loop for one job. It is invoked by the worker and
// is safe to re-invoke after a pause: the loop picks up at the persisted
// checkpoint. Control signals are observed only between batches.
func (c *ImportController) Run(ctx context.Context, jobID string) error {
	log := utils.JobLogger(jobID)

	job, err := c.GetJob(ctx, jobID)
	if err != nil {
		return err
	}

	switch job.Status {
	case models.StatusProcessing:
		// proceed
	case models.StatusCancelled, models.StatusPaused:
		log.WithField("status", job.Status).Info("skipping run, job is not processing")
		return nil
	default:
		log.WithField("status", job.Status).Warn("skipping run, job was never started")
		return nil
	}

	src, err := c.parser.ParseEquipmentFile(job.FilePath)
	if err != nil {
		return c.failJob(ctx, job, fmt.Errorf("reopen import file: %w", err))
	}

	ref, err := c.refLoader.Load(ctx)
	if err != nil {
		return c.failJob(ctx, job, fmt.Errorf("load reference data: %w", err))
	}

	engine := NewImportEngine(ref)
	engine.SeedClaimedCodes(job.DetailedResults)

	// Skip rows already committed before a pause.
	for i := 0; i < job.ProcessedRows; i++ {
		if _, ok := src.Next(); !ok {
			break
		}
	}

	rowIndex := job.ProcessedRows
	for {
		batch := make([]map[string]string, 0, job.BatchSize)
		for len(batch) < job.BatchSize {
			row, ok := src.Next()
			if !ok {
				break
			}
			batch = append(batch, row)
		}

		if len(batch) == 0 {
			return c.completeJob(ctx, job)
		}

		batchStart := rowIndex
		outcomes := make([]models.RowOutcome, len(batch))
		rowErrs := make([]*models.RowError, len(batch))
		records := make([]*models.EquipmentRecord, 0, len(batch))

		for i, row := range batch {
			record, rowErr := engine.ValidateRow(batchStart+i, row)
			if rowErr != nil {
				outcomes[i] = models.RowOutcome{
					RowIndex:       rowErr.RowIndex,
					Classification: models.OutcomeFailed,
					Message:        rowErr.Message,
				}
				rowErrs[i] = rowErr
				continue
			}
			records = append(records, record)
		}

		applied, err := c.applier.ApplyBatch(ctx, records, job.OverwriteExisting)
		if err != nil {
			log.WithError(err).Warn("batch transaction failed, retrying once")
			applied, err = c.applier.ApplyBatch(ctx, records, job.OverwriteExisting)
			if err != nil {
				return c.failJob(ctx, job, fmt.Errorf("%w: %v", ErrStorageUnavailable, err))
			}
		}

		for _, outcome := range applied {
			pos := outcome.RowIndex - batchStart
			outcomes[pos] = outcome
			if outcome.Classification == models.OutcomeFailed {
				rowErrs[pos] = &models.RowError{
					RowIndex: outcome.RowIndex,
					Code:     models.ErrCodePersistence,
					Message:  outcome.Message,
				}
			}
		}

		for i, outcome := range outcomes {
			job.RecordOutcome(outcome)
			if rowErrs[i] != nil {
				job.ErrorDetails = append(job.ErrorDetails, *rowErrs[i])
			}
		}
		rowIndex += len(batch)

		if err := c.store.UpdateSnapshot(ctx, job); err != nil {
			return c.failJob(ctx, job, fmt.Errorf("%w: persist progress: %v", ErrStorageUnavailable, err))
		}
		c.publishProgress(ctx, job)

		log.WithFields(map[string]interface{}{
			"processed": job.ProcessedRows,
			"total":     job.TotalRows,
			"percent":   job.ProgressPercent,
		}).Info("batch committed")

		// Control signals are polled only here, between batches.
		current, err := c.GetJob(ctx, jobID)
		if err != nil {
			log.WithError(err).Warn("could not poll job status, continuing")
			continue
		}
		switch current.Status {
		case models.StatusCancelled:
			log.WithField("processed", job.ProcessedRows).Info("cancel observed, stopping after committed batch")
			return nil
		case models.StatusPaused:
			log.WithField("checkpoint", job.ProcessedRows).Info("pause observed, checkpoint persisted")
			return nil
		}
	}
}

func (c *ImportController) completeJob(ctx context.Context, job *models.ImportJob) error {
	log := utils.JobLogger(job.ID)

	job.ProgressPercent = 100
	if err := c.store.UpdateSnapshot(ctx, job); err != nil {
		return c.failJob(ctx, job, fmt.Errorf("%w: persist final snapshot: %v", ErrStorageUnavailable, err))
	}
	c.publishProgress(ctx, job)

	ok, err := c.store.Transition(ctx, job.ID, models.StatusProcessing, models.StatusCompleted)
	if err != nil {
		return fmt.Errorf("complete job %s: %w", job.ID, err)
	}
	if !ok {
		// Cancelled between the last batch and completion.
		log.Info("job no longer processing, not marking completed")
		return nil
	}

	log.WithFields(map[string]interface{}{
		"created": job.SuccessCount,
		"updated": job.UpdateCount,
		"skipped": job.SkippedCount,
		"errors":  job.ErrorCount,
	}).Info("import job completed")
	return nil
}

func (c *ImportController) failJob(ctx context.Context, job *models.ImportJob, cause error) error {
	log := utils.JobLogger(job.ID)

	job.ErrorMessage = cause.Error()
	if err := c.store.UpdateSnapshot(ctx, job); err != nil {
		log.WithError(err).Error("could not persist failure detail")
	}
	if _, err := c.store.Transition(ctx, job.ID, models.StatusProcessing, models.StatusFailed); err != nil {
		log.WithError(err).Error("could not mark job failed")
	}

	log.WithError(cause).Error("import job failed")
	return cause
}

func (c *ImportController) publishProgress(ctx context.Context, job *models.ImportJob) {
	if c.redis == nil {
		return
	}
	key := fmt.Sprintf("import:progress:%s", job.ID)
	if err := c.redis.Set(ctx, key, job.ProgressPercent, 0).Err(); err != nil {
		utils.JobLogger(job.ID).WithError(err).Warn("could not publish progress to redis")
	}
}
