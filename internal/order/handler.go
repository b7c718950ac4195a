package order

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/wichananm65/table-pos/internal/httpx"
	"github.com/wichananm65/table-pos/internal/product"
)

// Handler exposes the cart screen and "add to order".
type Handler struct {
	service *Service
}

func NewHandler(s *Service) *Handler {
	return &Handler{service: s}
}

func (h *Handler) RegisterProtectedRoutes(app *fiber.App) {
	app.Get("/api/v1/tables/:table/cart", h.getCart)
	app.Post("/api/v1/tables/:table/orders", h.addToOrder)
}

type addRequest struct {
	ProductID string `json:"productId"`
	FlashSale bool   `json:"flashSale"`
}

func (h *Handler) getCart(c *fiber.Ctx) error {
	view, err := h.service.Cart(c.UserContext(), c.Params("table"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(view)
}

func (h *Handler) addToOrder(c *fiber.Ctx) error {
	payload := new(addRequest)
	if err := c.BodyParser(payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}
	if payload.ProductID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "productId is required"})
	}

	in, err := h.service.Add(c.UserContext(), c.Params("table"), payload.ProductID, payload.FlashSale)
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(in)
}

func (h *Handler) fail(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, ErrInvalidTable):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	case errors.Is(err, product.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": err.Error()})
	case errors.Is(err, ErrNotOnSale):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"message": err.Error()})
	default:
		return httpx.Error(c, err)
	}
}
