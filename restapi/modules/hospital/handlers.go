// Package hospital implements the REST API handlers for organ requests,
// match retrieval, transplant milestones, and donor health screening.
package hospital

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/Shiva-74/HopeConnect/database"
	"github.com/Shiva-74/HopeConnect/internal/journey"
	"github.com/Shiva-74/HopeConnect/internal/matching"
	"github.com/Shiva-74/HopeConnect/internal/oracle"
	"github.com/Shiva-74/HopeConnect/model"
	"github.com/Shiva-74/HopeConnect/restapi/respond"
	"github.com/Shiva-74/HopeConnect/util"
)

// HealthScorer assesses a donor's health for incentives and screening.
type HealthScorer interface {
	AssessDonorHealth(ctx context.Context, req oracle.HealthAssessmentRequest) (float64, error)
}

// Minter mints incentive tokens.
type Minter interface {
	MintTokens(ctx context.Context, to string, amount int64) (string, error)
}

// OrganRegistrar registers a pledged organ on chain.
type OrganRegistrar interface {
	RegisterOrgan(ctx context.Context, donorDID string, organCode uint8, hospitalDID string) (string, string, error)
}

// PledgeRegistry provides the donor operations on-chain pre-registration
// needs.
type PledgeRegistry interface {
	FindByDID(ctx context.Context, did string) (*model.Donor, error)
	MarkPledgeRegistered(ctx context.Context, did, pledgeID, chainOrganID, txRef string) (*model.Donor, error)
}

// RequestDirectory provides the request operations match retrieval needs.
type RequestDirectory interface {
	FindByID(ctx context.Context, requestID string) (*model.OrganRequest, error)
	SetStatus(ctx context.Context, requestID string, status model.RequestStatus) error
}

// MatchFinder runs the candidate ranking pipeline.
type MatchFinder interface {
	FindMatches(ctx context.Context, req *model.OrganRequest) (*matching.Result, error)
}

// OrganRequestBody is the body for filing an organ request.
type OrganRequestBody struct {
	HospitalDID        string             `json:"hospital_did"`
	RecipientRef       string             `json:"recipient_ref"`
	RecipientBloodType string             `json:"recipient_blood_type"`
	RecipientAge       int                `json:"recipient_age"`
	RecipientHLAType   string             `json:"recipient_hla_type"`
	OrganType          model.OrganType    `json:"organ_type"`
	Urgency            model.UrgencyLevel `json:"urgency"`
	ClinicalNotes      string             `json:"clinical_notes"`
}

// PostOrganRequest files a new organ request.
func PostOrganRequest(store *database.RequestStore) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req OrganRequestBody
		if err := c.BodyParser(&req); err != nil {
			return respond.BadRequest(c, "Invalid request body: "+err.Error())
		}

		if req.HospitalDID == "" {
			return respond.BadRequest(c, "hospital_did is required")
		}
		if req.RecipientRef == "" {
			return respond.BadRequest(c, "recipient_ref is required")
		}
		if !util.IsValidBloodType(req.RecipientBloodType) {
			return respond.BadRequest(c, "recipient_blood_type must be one of the eight ABO/Rh labels")
		}
		if !req.OrganType.Valid() {
			return respond.BadRequest(c, "unknown organ type: "+string(req.OrganType))
		}
		if req.Urgency != 0 && !model.ValidUrgency(req.Urgency) {
			return respond.BadRequest(c, "urgency must be at least 1")
		}

		request := model.NewOrganRequest()
		request.RequestID = util.GenerateDID("organ_request")
		request.HospitalDID = req.HospitalDID
		request.RecipientRef = req.RecipientRef
		request.RecipientBloodType = req.RecipientBloodType
		request.RecipientAge = req.RecipientAge
		request.RecipientHLAType = req.RecipientHLAType
		request.OrganType = req.OrganType
		request.ClinicalNotes = req.ClinicalNotes
		if req.Urgency != 0 {
			request.Urgency = req.Urgency
		}

		if err := store.Create(context.Background(), request); err != nil {
			return respond.Error(c, err)
		}

		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"success": true,
			"message": "Organ request created",
			"request": request,
		})
	}
}

// GetRequests lists a hospital's organ requests.
func GetRequests(store *database.RequestStore) fiber.Handler {
	return func(c *fiber.Ctx) error {
		hospitalDID := c.Query("hospital_did")
		if hospitalDID == "" {
			return respond.BadRequest(c, "hospital_did query parameter is required")
		}

		requests, err := store.ListByHospital(context.Background(), hospitalDID)
		if err != nil {
			return respond.Error(c, err)
		}

		return c.JSON(fiber.Map{
			"success":  true,
			"requests": requests,
		})
	}
}

// GetMatches runs the matching pipeline for a pending request and returns
// the ranked candidates. A first run that finds candidates moves the
// request to match_found_awaits_confirmation; re-running from there is
// allowed until a candidate is confirmed.
func GetMatches(requests RequestDirectory, finder MatchFinder, log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		requestID := c.Params("id")
		ctx := context.Background()

		request, err := requests.FindByID(ctx, requestID)
		if err != nil {
			return respond.Error(c, err)
		}
		if request.Status != model.RequestPendingMatch && request.Status != model.RequestMatchFound {
			return respond.Error(c, model.NewStateConflictError("organ request", "request is not awaiting a match"))
		}

		result, err := finder.FindMatches(ctx, request)
		if err != nil {
			return respond.Error(c, err)
		}

		if len(result.Matches) > 0 && request.Status == model.RequestPendingMatch {
			if err := requests.SetStatus(ctx, requestID, model.RequestMatchFound); err != nil {
				log.Warn("failed to mark request match_found",
					zap.String("request_id", requestID), zap.Error(err))
			}
		}

		return c.JSON(fiber.Map{
			"success":         true,
			"matches":         result.Matches,
			"oracle_degraded": result.OracleDegraded,
		})
	}
}

// RegisterOrganBody is the body for registering a pledged organ on chain.
type RegisterOrganBody struct {
	DonorDID    string `json:"donor_did"`
	PledgeID    string `json:"pledge_id"`
	HospitalDID string `json:"hospital_did"`
}

// PostRegisterOrgan registers a donor's pledged organ on chain ahead of
// matching. Unlike journey notarizations this registration is the point of
// the operation, so a ledger failure fails the request. The pledge moves to
// awaits_matching and keeps the contract-assigned organ id.
func PostRegisterOrgan(registry PledgeRegistry, registrar OrganRegistrar) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body RegisterOrganBody
		if err := c.BodyParser(&body); err != nil {
			return respond.BadRequest(c, "Invalid request body: "+err.Error())
		}
		if body.DonorDID == "" || body.PledgeID == "" || body.HospitalDID == "" {
			return respond.BadRequest(c, "donor_did, pledge_id and hospital_did are required")
		}

		ctx := context.Background()
		donor, err := registry.FindByDID(ctx, body.DonorDID)
		if err != nil {
			return respond.Error(c, err)
		}
		if !donor.ConsentGiven {
			return respond.Error(c, model.NewStateConflictError("donor", "donor has not given consent"))
		}

		var pledge *model.PledgedOrgan
		for i := range donor.PledgedOrgans {
			if donor.PledgedOrgans[i].ID == body.PledgeID {
				pledge = &donor.PledgedOrgans[i]
				break
			}
		}
		if pledge == nil {
			return respond.Error(c, model.NewNotFoundError("pledge", body.PledgeID))
		}
		if !pledge.IsPledged || pledge.Status != model.PledgeStatusPledged {
			return respond.Error(c, model.NewStateConflictError("pledge", "organ pledge is not available for registration"))
		}

		code, ok := pledge.OrganType.ChainCode()
		if !ok {
			return respond.BadRequest(c, "unknown organ type: "+string(pledge.OrganType))
		}

		txHash, chainOrganID, err := registrar.RegisterOrgan(ctx, body.DonorDID, code, body.HospitalDID)
		if err != nil {
			return respond.Error(c, err)
		}

		updated, err := registry.MarkPledgeRegistered(ctx, body.DonorDID, body.PledgeID, chainOrganID, txHash)
		if err != nil {
			return respond.Error(c, err)
		}

		return c.JSON(fiber.Map{
			"success":        true,
			"message":        "Organ registered on chain",
			"donor":          updated,
			"tx_ref":         txHash,
			"chain_organ_id": chainOrganID,
		})
	}
}

// ConfirmMatchBody is the body for confirming a ranked candidate.
type ConfirmMatchBody struct {
	DonorDID string  `json:"donor_did"`
	PledgeID string  `json:"pledge_id"`
	Score    float64 `json:"score"`
	ActorDID string  `json:"actor_did"`
	Notes    string  `json:"notes"`
}

// PostConfirmMatch confirms a match, allocating the pledge and opening the
// organ's journey.
func PostConfirmMatch(svc *journey.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body ConfirmMatchBody
		if err := c.BodyParser(&body); err != nil {
			return respond.BadRequest(c, "Invalid request body: "+err.Error())
		}

		log, err := svc.ConfirmMatch(context.Background(), journey.ConfirmMatchInput{
			RequestID: c.Params("id"),
			DonorDID:  body.DonorDID,
			PledgeID:  body.PledgeID,
			Score:     body.Score,
			ActorDID:  body.ActorDID,
			Notes:     body.Notes,
		})
		if err != nil {
			return respond.Error(c, err)
		}

		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"success": true,
			"message": "Match confirmed, journey opened",
			"journey": log,
		})
	}
}

// RecoveryBody is the body for recording organ recovery.
type RecoveryBody struct {
	ActorDID  string   `json:"actor_did"`
	Notes     string   `json:"notes"`
	Longitude *float64 `json:"longitude"`
	Latitude  *float64 `json:"latitude"`
}

// PostRecovery records organ recovery on a journey.
func PostRecovery(svc *journey.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body RecoveryBody
		if err := c.BodyParser(&body); err != nil {
			return respond.BadRequest(c, "Invalid request body: "+err.Error())
		}

		log, err := svc.RecordRecovery(context.Background(), journey.RecoveryInput{
			JourneyID: c.Params("journeyId"),
			ActorDID:  body.ActorDID,
			Notes:     body.Notes,
			Longitude: body.Longitude,
			Latitude:  body.Latitude,
		})
		if err != nil {
			return respond.Error(c, err)
		}

		return c.JSON(fiber.Map{
			"success": true,
			"message": "Organ recovery recorded",
			"journey": log,
		})
	}
}

// CompletionBody is the body for recording a transplant outcome.
type CompletionBody struct {
	Outcome         model.TransplantOutcome `json:"outcome"`
	Notes           string                  `json:"notes"`
	AnonymizedStats string                  `json:"anonymized_stats"`
	ActorDID        string                  `json:"actor_did"`
}

// PostCompletion closes a journey with a transplant outcome.
func PostCompletion(svc *journey.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CompletionBody
		if err := c.BodyParser(&body); err != nil {
			return respond.BadRequest(c, "Invalid request body: "+err.Error())
		}

		log, err := svc.RecordCompletion(context.Background(), journey.CompletionInput{
			JourneyID:       c.Params("journeyId"),
			Outcome:         body.Outcome,
			Notes:           body.Notes,
			AnonymizedStats: body.AnonymizedStats,
			ActorDID:        body.ActorDID,
		})
		if err != nil {
			return respond.Error(c, err)
		}

		return c.JSON(fiber.Map{
			"success": true,
			"message": "Transplant outcome recorded",
			"journey": log,
		})
	}
}

// DonorHealthBody is the body for recording a donor health check.
type DonorHealthBody struct {
	Status           model.HealthCheckStatus `json:"status"`
	OrganType        model.OrganType         `json:"organ_type"`
	LifestyleFactors map[string]interface{}  `json:"lifestyle_factors"`
	LabResults       map[string]interface{}  `json:"lab_results"`
}

// PostDonorHealth records a donor health check. The AI service scores the
// donor when reachable; a scoring outage keeps the status update but drops
// the score. Passing the check mints the health-check award.
func PostDonorHealth(store *database.DonorStore, scorer HealthScorer, minter Minter, log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		did := c.Params("did")

		var body DonorHealthBody
		if err := c.BodyParser(&body); err != nil {
			return respond.BadRequest(c, "Invalid request body: "+err.Error())
		}
		if body.Status == "" {
			return respond.BadRequest(c, "status is required")
		}

		ctx := context.Background()
		donor, err := store.FindByDID(ctx, did)
		if err != nil {
			return respond.Error(c, err)
		}

		var score *float64
		organType := body.OrganType
		if organType == "" && len(donor.PledgedOrgans) > 0 {
			organType = donor.PledgedOrgans[0].OrganType
		}
		if organType != "" {
			value, err := scorer.AssessDonorHealth(ctx, oracle.HealthAssessmentRequest{
				DonorAge:           util.Age(donor.DateOfBirth),
				OrganType:          string(organType),
				ComorbiditiesCount: len(donor.Comorbidities),
				LifestyleFactors:   body.LifestyleFactors,
				LabResults:         body.LabResults,
			})
			if err != nil {
				log.Warn("donor health scoring unavailable",
					zap.String("donor_did", did), zap.Error(err))
			} else {
				score = &value
			}
		}

		updated, err := store.UpdateHealth(ctx, did, body.Status, score, "")
		if err != nil {
			return respond.Error(c, err)
		}

		resp := fiber.Map{
			"success": true,
			"message": "Health check recorded",
			"donor":   updated,
		}

		if body.Status == model.HealthFitForDonation && donor.EthAddress != "" {
			if txHash, err := minter.MintTokens(ctx, donor.EthAddress, journey.TokenAwardHealthCheck); err != nil {
				log.Warn("health check award failed",
					zap.String("donor_did", did), zap.Error(err))
				resp["award_skipped"] = err.Error()
			} else {
				resp["award_tx_ref"] = txHash
			}
		}

		return c.JSON(resp)
	}
}
