package handler

import (
	"database/sql"
	"equipment-web/internal/repository"
	"equipment-web/internal/utils"
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
)

type EquipmentHandler struct {
	equipRepo *repository.EquipmentRepository
}

func NewEquipmentHandler(equipRepo *repository.EquipmentRepository) *EquipmentHandler {
	return &EquipmentHandler{equipRepo: equipRepo}
}

// GetEquipment returns one stored equipment record by the id reported in an
// import job's detailed results.
func (h *EquipmentHandler) GetEquipment(c *fiber.Ctx) error {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid equipment id", err)
	}

	equipment, err := h.equipRepo.GetByID(c.Context(), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return utils.ErrorResponse(c, fiber.StatusNotFound, "Equipment not found", err)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to retrieve equipment", err)
	}

	return utils.SuccessResponse(c, "Equipment retrieved", equipment)
}
