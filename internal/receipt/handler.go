package receipt

import (
	"errors"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/wichananm65/table-pos/internal/httpx"
	"github.com/wichananm65/table-pos/internal/staff"
	"go.uber.org/zap"
)

// Handler serves the export-receipt screen and the reconciliation list.
type Handler struct {
	pipeline *Pipeline
}

func NewHandler(p *Pipeline) *Handler {
	return &Handler{pipeline: p}
}

func (h *Handler) RegisterProtectedRoutes(app *fiber.App) {
	app.Get("/api/v1/tables/:table/billing", h.getDraft)
	app.Put("/api/v1/tables/:table/billing", h.saveDraft)
	app.Post("/api/v1/tables/:table/receipt", h.export)

	app.Get("/api/v1/reconcile", h.listOpen)
	app.Post("/api/v1/reconcile/:id<int>/resolve", h.resolve)
}

func (h *Handler) getDraft(c *fiber.Ctx) error {
	return c.JSON(h.pipeline.drafts.Get(c.Params("table")))
}

func (h *Handler) saveDraft(c *fiber.Ctx) error {
	bp := new(BillingParty)
	if err := c.BodyParser(bp); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}
	h.pipeline.drafts.Save(c.Params("table"), *bp)
	return c.JSON(bp)
}

// export runs the pipeline. A request body replaces the saved draft for this
// run only. With ?download=1 the receipt itself is returned.
func (h *Handler) export(c *fiber.Ctx) error {
	table := c.Params("table")
	var party *BillingParty
	if len(c.Body()) > 0 {
		party = new(BillingParty)
		if err := c.BodyParser(party); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
		}
	}
	if staffID, err := staff.GetStaffIDFromCtx(c); err == nil {
		h.pipeline.log.Info("receipt export requested", zap.String("table", table), zap.String("staff_id", staffID))
	}

	out, err := h.pipeline.Export(c.UserContext(), table, party)
	if err != nil {
		var ve *ValidationError
		switch {
		case errors.As(err, &ve):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": ve.Message, "field": ve.Field})
		case errors.Is(err, ErrInvalidTable):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
		case errors.Is(err, ErrDocument), errors.Is(err, ErrHandOff):
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "could not process the receipt file"})
		default:
			return httpx.Error(c, err)
		}
	}

	if c.QueryBool("download") {
		c.Set("X-Receipt-Shared", strconv.FormatBool(out.Shared))
		c.Set("X-Receipt-Cleanup-Failed", strconv.FormatBool(out.CleanupFailed))
		return c.Download(out.DocumentPath, "receipt.pdf")
	}
	return c.JSON(fiber.Map{
		"status":        fiber.StatusOK,
		"table":         out.Table,
		"document":      out.Document,
		"shared":        out.Shared,
		"notice":        out.Notice,
		"cleanupFailed": out.CleanupFailed,
	})
}

func (h *Handler) listOpen(c *fiber.Ctx) error {
	var tables []string
	for _, t := range strings.Split(c.Query("table"), ",") {
		if t = strings.TrimSpace(t); t != "" {
			tables = append(tables, t)
		}
	}
	entries, err := h.pipeline.ledger.Open(c.UserContext(), tables)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": err.Error()})
	}
	return c.JSON(entries)
}

func (h *Handler) resolve(c *fiber.Ctx) error {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "invalid id"})
	}
	if err := h.pipeline.ledger.Resolve(c.UserContext(), id); err != nil {
		if errors.Is(err, ErrEntryNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": err.Error()})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": err.Error()})
	}
	return c.SendStatus(fiber.StatusNoContent)
}
