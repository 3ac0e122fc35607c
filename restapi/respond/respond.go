// Package respond maps domain errors onto the JSON envelope and HTTP
// status codes the REST handlers share.
package respond

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/Shiva-74/HopeConnect/internal/ledger"
	"github.com/Shiva-74/HopeConnect/model"
)

// Error writes the failure envelope for err with the status its type maps
// to. Unknown errors become 500s.
func Error(c *fiber.Ctx, err error) error {
	var validation *model.ValidationError
	var notFound *model.NotFoundError
	var conflict *model.StateConflictError
	var revert *ledger.RevertError
	var submit *ledger.SubmitError

	status := fiber.StatusInternalServerError
	switch {
	case errors.As(err, &validation):
		status = fiber.StatusBadRequest
	case errors.As(err, &notFound):
		status = fiber.StatusNotFound
	case errors.As(err, &conflict):
		status = fiber.StatusConflict
	case errors.Is(err, ledger.ErrNotConfigured), errors.Is(err, ledger.ErrUnavailable):
		status = fiber.StatusServiceUnavailable
	case errors.As(err, &revert):
		status = fiber.StatusUnprocessableEntity
	case errors.As(err, &submit):
		status = fiber.StatusBadGateway
	}

	return c.Status(status).JSON(fiber.Map{
		"success": false,
		"message": err.Error(),
	})
}

// BadRequest writes a 400 failure envelope with the given message.
func BadRequest(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"success": false,
		"message": message,
	})
}
