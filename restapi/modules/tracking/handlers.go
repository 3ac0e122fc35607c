// Package tracking implements the REST API handlers for transport status
// updates and the journey audit trail.
package tracking

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/Shiva-74/HopeConnect/internal/journey"
	"github.com/Shiva-74/HopeConnect/model"
	"github.com/Shiva-74/HopeConnect/restapi/respond"
)

// StatusBody is the body for a transport or scheduling status update.
type StatusBody struct {
	Status    model.JourneyStatus `json:"status"`
	ActorDID  string              `json:"actor_did"`
	ActorRole string              `json:"actor_role"`
	Notes     string              `json:"notes"`
	HolderDID string              `json:"holder_did"`
	Longitude *float64            `json:"longitude"`
	Latitude  *float64            `json:"latitude"`
}

// PostStatus applies a status update to a journey.
func PostStatus(svc *journey.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body StatusBody
		if err := c.BodyParser(&body); err != nil {
			return respond.BadRequest(c, "Invalid request body: "+err.Error())
		}

		log, err := svc.UpdateStatus(context.Background(), journey.StatusInput{
			JourneyID: c.Params("journeyId"),
			Status:    body.Status,
			ActorDID:  body.ActorDID,
			ActorRole: body.ActorRole,
			Notes:     body.Notes,
			HolderDID: body.HolderDID,
			Longitude: body.Longitude,
			Latitude:  body.Latitude,
		})
		if err != nil {
			return respond.Error(c, err)
		}

		return c.JSON(fiber.Map{
			"success": true,
			"message": "Status recorded",
			"journey": log,
		})
	}
}

// GetAuditTrail returns a journey with its full ordered status history.
func GetAuditTrail(svc *journey.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		log, err := svc.AuditTrail(context.Background(), c.Params("journeyId"))
		if err != nil {
			return respond.Error(c, err)
		}

		return c.JSON(fiber.Map{
			"success": true,
			"journey": log,
		})
	}
}
