package payment

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/wichananm65/table-pos/internal/httpx"
	"github.com/wichananm65/table-pos/internal/staff"
	"go.uber.org/zap"
)

type Handler struct {
	finalizer *Finalizer
}

func NewHandler(f *Finalizer) *Handler {
	return &Handler{finalizer: f}
}

func (h *Handler) RegisterProtectedRoutes(app *fiber.App) {
	app.Post("/api/v1/tables/:table/pay", h.pay)
}

func (h *Handler) pay(c *fiber.Ctx) error {
	table := c.Params("table")
	if staffID, err := staff.GetStaffIDFromCtx(c); err == nil {
		h.finalizer.log.Info("payment requested", zap.String("table", table), zap.String("staff_id", staffID))
	}

	res, err := h.finalizer.Finalize(c.UserContext(), table)
	if err != nil {
		if errors.Is(err, ErrInvalidTable) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
		}
		return httpx.Error(c, err)
	}
	return c.JSON(fiber.Map{"status": fiber.StatusOK, "table": res.Table, "alreadyCleared": res.AlreadyCleared})
}
