package handler

import (
	"context"
	"equipment-web/internal/config"
	"equipment-web/internal/models"
	"equipment-web/internal/repository"
	"equipment-web/internal/service"
	"equipment-web/internal/utils"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"

	"github.com/gofiber/fiber/v2"
)

type ImportHandler struct {
	controller   *service.ImportController
	jobRepo      *repository.ImportJobRepository
	excelService *service.ExcelService
	cfg          *config.Config
}

func NewImportHandler(
	controller *service.ImportController,
	jobRepo *repository.ImportJobRepository,
	excelService *service.ExcelService,
	cfg *config.Config,
) *ImportHandler {
	return &ImportHandler{
		controller:   controller,
		jobRepo:      jobRepo,
		excelService: excelService,
		cfg:          cfg,
	}
}

// CreateImport accepts the spreadsheet upload and records a pending job.
// The file is decoded immediately so a broken upload never becomes a job.
func (h *ImportHandler) CreateImport(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(int)

	file, err := c.FormFile("file")
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "File is required", err)
	}

	ext := filepath.Ext(file.Filename)
	if ext != ".xlsx" && ext != ".xls" {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Only Excel files (.xlsx, .xls) are allowed", nil)
	}

	if file.Size > int64(h.cfg.UploadMaxSize) {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "File size exceeds maximum limit", nil)
	}

	src, err := file.Open()
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to read uploaded file", err)
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to read uploaded file", err)
	}

	overwrite := c.FormValue("overwrite_existing") == "true"
	batchSize, _ := strconv.Atoi(c.FormValue("batch_size"))
	if batchSize <= 0 {
		batchSize = h.cfg.ImportBatchSize
	}
	notes := c.FormValue("notes")

	job, err := h.controller.CreateJob(c.Context(), userID, file.Filename, data, overwrite, batchSize, notes)
	if err != nil {
		if errors.Is(err, service.ErrEmptyFile) ||
			errors.Is(err, service.ErrInvalidFormat) ||
			errors.Is(err, service.ErrMissingColumns) {
			return utils.ErrorResponse(c, fiber.StatusBadRequest, "Uploaded file was rejected", err)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to create import job", err)
	}

	return utils.SuccessResponse(c, "Import job created", job)
}

func (h *ImportHandler) StartImport(c *fiber.Ctx) error {
	return h.control(c, "Import started", h.controller.Start)
}

func (h *ImportHandler) PauseImport(c *fiber.Ctx) error {
	return h.control(c, "Import pause requested", h.controller.Pause)
}

func (h *ImportHandler) ResumeImport(c *fiber.Ctx) error {
	return h.control(c, "Import resumed", h.controller.Resume)
}

func (h *ImportHandler) CancelImport(c *fiber.Ctx) error {
	return h.control(c, "Import cancelled", h.controller.Cancel)
}

func (h *ImportHandler) control(c *fiber.Ctx, message string, op func(ctx context.Context, jobID string) error) error {
	job, err := h.authorizedJob(c)
	if err != nil {
		return err
	}

	if err := op(c.Context(), job.ID); err != nil {
		switch {
		case errors.Is(err, service.ErrJobNotFound):
			return utils.ErrorResponse(c, fiber.StatusNotFound, "Import job not found", err)
		case errors.Is(err, service.ErrInvalidState):
			return utils.ErrorResponse(c, fiber.StatusConflict, "Import job is not in a valid state for this action", err)
		default:
			return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to update import job", err)
		}
	}

	updated, err := h.controller.GetJob(c.Context(), job.ID)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to load import job", err)
	}
	return utils.SuccessResponse(c, message, updated)
}

func (h *ImportHandler) GetImport(c *fiber.Ctx) error {
	job, err := h.authorizedJob(c)
	if err != nil {
		return err
	}
	return utils.SuccessResponse(c, "Import job retrieved", job)
}

func (h *ImportHandler) ListImports(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(int)
	role := c.Locals("role").(string)

	params := utils.GetPaginationParams(c)
	offset := utils.GetOffset(params.Page, params.Limit)

	// Non-admins only see their own jobs.
	filterUserID := 0
	if role != "admin" {
		filterUserID = userID
	}

	jobs, total, err := h.jobRepo.List(c.Context(), params.Limit, offset, filterUserID, models.ImportStatus(params.Status))
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to retrieve import jobs", err)
	}

	pagination := utils.CalculatePagination(params.Page, params.Limit, int64(total))

	return utils.SuccessResponse(c, "Import jobs retrieved", fiber.Map{
		"jobs":       jobs,
		"pagination": pagination,
	})
}

func (h *ImportHandler) GetStatistics(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(int)
	role := c.Locals("role").(string)

	filterUserID := 0
	if role != "admin" {
		filterUserID = userID
	}

	counts, err := h.jobRepo.CountByStatus(c.Context(), filterUserID)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to retrieve statistics", err)
	}

	return utils.SuccessResponse(c, "Import statistics retrieved", fiber.Map{
		"by_status": counts,
	})
}

// DownloadErrorReport renders the job's row errors as a spreadsheet.
func (h *ImportHandler) DownloadErrorReport(c *fiber.Ctx) error {
	job, err := h.authorizedJob(c)
	if err != nil {
		return err
	}

	if len(job.ErrorDetails) == 0 {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Import job has no row errors", nil)
	}

	reportPath := filepath.Join(h.cfg.UploadPath, fmt.Sprintf("%s-errors.xlsx", job.ID))
	if err := h.excelService.ExportErrorReport(job, reportPath); err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to generate error report", err)
	}

	return c.Download(reportPath, fmt.Sprintf("import-errors-%s.xlsx", job.ID))
}

// DownloadTemplate serves the import template with sample rows.
func (h *ImportHandler) DownloadTemplate(c *fiber.Ctx) error {
	templatePath := filepath.Join(h.cfg.UploadPath, "equipment-import-template.xlsx")
	if err := h.excelService.GenerateImportTemplate(templatePath); err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to generate template", err)
	}
	return c.Download(templatePath, "equipment-import-template.xlsx")
}

// authorizedJob loads the job from the path parameter and enforces that
// non-admins only touch their own jobs.
func (h *ImportHandler) authorizedJob(c *fiber.Ctx) (*models.ImportJob, error) {
	jobID := c.Params("id")
	if jobID == "" {
		return nil, utils.ErrorResponse(c, fiber.StatusBadRequest, "Import job ID is required", nil)
	}

	job, err := h.controller.GetJob(c.Context(), jobID)
	if err != nil {
		if errors.Is(err, service.ErrJobNotFound) {
			return nil, utils.ErrorResponse(c, fiber.StatusNotFound, "Import job not found", err)
		}
		return nil, utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to load import job", err)
	}

	userID := c.Locals("user_id").(int)
	role := c.Locals("role").(string)
	if role != "admin" && job.UploaderID != userID {
		return nil, utils.ErrorResponse(c, fiber.StatusForbidden, "You do not have access to this import job", nil)
	}

	return job, nil
}
