package product

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/wichananm65/table-pos/internal/httpx"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterPublicRoutes(app *fiber.App) {
	app.Get("/api/v1/products", h.getProducts)
	app.Get("/api/v1/products/:id", h.getProduct)
}

func (h *Handler) RegisterProtectedRoutes(app *fiber.App) {
	app.Post("/api/v1/products/refresh", h.refresh)
}

type catalogResponse struct {
	Products   []Product       `json:"products"`
	FlashSales []FlashSaleItem `json:"flashSales"`
	EndsAt     time.Time       `json:"endsAt"`
}

// getProducts serves the home screen: the catalog plus the flash-sale strip.
func (h *Handler) getProducts(c *fiber.Ctx) error {
	products, err := h.service.List(c.UserContext())
	if err != nil {
		return httpx.Error(c, err)
	}
	sales, endsAt, err := h.service.FlashSales(c.UserContext())
	if err != nil {
		return httpx.Error(c, err)
	}
	return c.JSON(catalogResponse{Products: products, FlashSales: sales, EndsAt: endsAt})
}

func (h *Handler) getProduct(c *fiber.Ctx) error {
	p, err := h.service.GetByID(c.UserContext(), c.Params("id"))
	if err != nil {
		if err == ErrNotFound {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "product not found"})
		}
		return httpx.Error(c, err)
	}
	return c.JSON(p)
}

func (h *Handler) refresh(c *fiber.Ctx) error {
	products, err := h.service.Refresh(c.UserContext())
	if err != nil {
		return httpx.Error(c, err)
	}
	return c.JSON(fiber.Map{"count": len(products)})
}
