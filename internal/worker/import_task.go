package worker

import (
	"context"
	"encoding/json"
	"equipment-web/internal/config"
	"equipment-web/internal/repository"
	"equipment-web/internal/service"
	"equipment-web/internal/utils"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
)

const TypeImportProcess = "import:process"

type ImportTaskPayload struct {
	JobID string `json:"job_id"`
}

// NewImportTask builds the asynq task that runs one import job.
func NewImportTask(jobID string) (*asynq.Task, error) {
	payload, err := json.Marshal(ImportTaskPayload{JobID: jobID})
	if err != nil {
		return nil, fmt.Errorf("marshal import task payload: %w", err)
	}
	return asynq.NewTask(TypeImportProcess, payload), nil
}

type ImportTaskHandler struct {
	controller *service.ImportController
}

func NewImportTaskHandler(db *sqlx.DB, redisClient *redis.Client, cfg *config.Config) *ImportTaskHandler {
	jobRepo := repository.NewImportJobRepository(db)
	equipRepo := repository.NewEquipmentRepository(db)
	deptRepo := repository.NewDepartmentRepository(db)
	catRepo := repository.NewCategoryRepository(db)

	excelService := service.NewExcelService()
	refLoader := service.NewRefDataLoader(deptRepo, catRepo, equipRepo)

	// The worker only executes jobs, it never enqueues them.
	controller := service.NewImportController(jobRepo, excelService, equipRepo, refLoader, nil, redisClient, cfg.UploadPath)

	return &ImportTaskHandler{controller: controller}
}

func (h *ImportTaskHandler) Handle(ctx context.Context, task *asynq.Task) error {
	var payload ImportTaskPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal import task payload: %w", err)
	}

	utils.JobLogger(payload.JobID).Info("picked up import task")
	return h.controller.Run(ctx, payload.JobID)
}
