package httpx

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/wichananm65/table-pos/internal/remote"
)

// Error writes the JSON error reply for failures coming back from the order
// service. Transient failures get a generic notice so the caller simply
// retries; rejections carry the service's own message.
func Error(c *fiber.Ctx, err error) error {
	var re *remote.RemoteError
	switch {
	case errors.As(err, &re):
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"message": re.Message, "status": re.Status})
	case errors.Is(err, remote.ErrTransient), errors.Is(err, context.DeadlineExceeded):
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"message": "order service unavailable, please retry"})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "something went wrong, please retry"})
	}
}
