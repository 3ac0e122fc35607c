// Package restapi provides the main router and initialization for REST API endpoints.
package restapi

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/Shiva-74/HopeConnect/database"
	"github.com/Shiva-74/HopeConnect/internal/journey"
	"github.com/Shiva-74/HopeConnect/internal/ledger"
	"github.com/Shiva-74/HopeConnect/internal/matching"
	"github.com/Shiva-74/HopeConnect/internal/oracle"
	"github.com/Shiva-74/HopeConnect/restapi/modules/donors"
	"github.com/Shiva-74/HopeConnect/restapi/modules/hospital"
	"github.com/Shiva-74/HopeConnect/restapi/modules/tokens"
	"github.com/Shiva-74/HopeConnect/restapi/modules/tracking"
)

// Deps carries the wired services the route handlers close over.
type Deps struct {
	Donors      *database.DonorStore
	Requests    *database.RequestStore
	Redemptions *database.RedemptionStore
	Journeys    *journey.Service
	Matcher     *matching.Orchestrator
	Ledger      *ledger.Gateway
	Oracle      *oracle.Client
	Log         *zap.Logger
}

// SetupRoutes configures all REST API routes.
func SetupRoutes(app *fiber.App, deps Deps) {
	// API Group /api/v1
	api := app.Group("/api/v1")

	// Donor routes
	api.Post("/donors", donors.PostRegisterDonor(deps.Donors, deps.Ledger))
	api.Post("/donors/:did/consent", donors.PostConsent(deps.Donors))
	api.Get("/donors/:did/dashboard", donors.GetDashboard(deps.Donors, deps.Ledger))

	// Hospital routes
	hospitalGroup := api.Group("/hospital")
	hospitalGroup.Post("/organ-requests", hospital.PostOrganRequest(deps.Requests))
	hospitalGroup.Get("/organ-requests", hospital.GetRequests(deps.Requests))
	hospitalGroup.Get("/organ-requests/:id/matches", hospital.GetMatches(deps.Requests, deps.Matcher, deps.Log))
	hospitalGroup.Post("/organ-requests/:id/confirm-match", hospital.PostConfirmMatch(deps.Journeys))
	hospitalGroup.Post("/register-organ", hospital.PostRegisterOrgan(deps.Donors, deps.Ledger))
	hospitalGroup.Post("/transplants/:journeyId/recovery", hospital.PostRecovery(deps.Journeys))
	hospitalGroup.Post("/transplants/:journeyId/completion", hospital.PostCompletion(deps.Journeys))
	hospitalGroup.Post("/donors/:did/health-check", hospital.PostDonorHealth(deps.Donors, deps.Oracle, deps.Ledger, deps.Log))

	// Tracking routes
	trackingGroup := api.Group("/tracking")
	trackingGroup.Post("/:journeyId/status", tracking.PostStatus(deps.Journeys))
	trackingGroup.Get("/:journeyId", tracking.GetAuditTrail(deps.Journeys))

	// Token routes
	tokenGroup := api.Group("/tokens")
	tokenGroup.Get("/:did/balance", tokens.GetBalance(deps.Donors, deps.Ledger))
	tokenGroup.Post("/:did/redeem", tokens.PostRedeem(deps.Donors, deps.Redemptions, deps.Ledger))
	tokenGroup.Get("/:did/redemptions", tokens.GetRedemptions(deps.Redemptions))
}
