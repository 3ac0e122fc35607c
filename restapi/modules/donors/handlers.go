// Package donors implements the REST API handlers for donor registration,
// consent, and the donor dashboard.
package donors

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/Shiva-74/HopeConnect/database"
	"github.com/Shiva-74/HopeConnect/model"
	"github.com/Shiva-74/HopeConnect/restapi/respond"
	"github.com/Shiva-74/HopeConnect/util"
)

// Registrar is the on-chain side of donor registration.
type Registrar interface {
	RegisterDonor(ctx context.Context, donorDID, ethAddress string) (string, error)
}

// BalanceReader reads HOPE token balances.
type BalanceReader interface {
	TokenBalance(ctx context.Context, address string) (int64, error)
}

// RegisterRequest is the body for donor registration.
type RegisterRequest struct {
	FullName        string                 `json:"full_name"`
	DateOfBirth     time.Time              `json:"date_of_birth"`
	BloodType       string                 `json:"blood_type"`
	EthAddress      string                 `json:"eth_address"`
	ContactInfo     model.ContactInfo      `json:"contact_info"`
	PledgedOrgans   []model.OrganType      `json:"pledged_organs"`
	ConsentGiven    bool                   `json:"consent_given"`
	ConsentFormURL  string                 `json:"consent_form_url"`
	ConsentDetails  map[string]interface{} `json:"consent_details"`
	HLAType         string                 `json:"hla_type"`
	Comorbidities   []string               `json:"comorbidities"`
	IsDeceasedDonor bool                   `json:"is_deceased_donor"`
}

// PostRegisterDonor registers a donor. Unlike journey milestones, on-chain
// registration must succeed here: the DID is useless without its chain
// anchor, so a ledger failure fails the whole operation.
func PostRegisterDonor(store *database.DonorStore, registrar Registrar) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req RegisterRequest
		if err := c.BodyParser(&req); err != nil {
			return respond.BadRequest(c, "Invalid request body: "+err.Error())
		}

		if req.FullName == "" {
			return respond.BadRequest(c, "full_name is required")
		}
		if !util.IsValidBloodType(req.BloodType) {
			return respond.BadRequest(c, "blood_type must be one of the eight ABO/Rh labels")
		}
		if req.EthAddress == "" {
			return respond.BadRequest(c, "eth_address is required")
		}
		if len(req.PledgedOrgans) == 0 {
			return respond.BadRequest(c, "at least one pledged organ is required")
		}
		for _, t := range req.PledgedOrgans {
			if !t.Valid() {
				return respond.BadRequest(c, "unknown organ type: "+string(t))
			}
		}

		ctx := context.Background()
		did := util.GenerateDID("donor")

		txHash, err := registrar.RegisterDonor(ctx, did, req.EthAddress)
		if err != nil {
			return respond.Error(c, err)
		}

		donor := model.NewDonor()
		donor.DID = did
		donor.EthAddress = req.EthAddress
		donor.FullName = req.FullName
		donor.DateOfBirth = req.DateOfBirth
		donor.BloodType = req.BloodType
		donor.ContactInfo = req.ContactInfo
		donor.ConsentGiven = req.ConsentGiven
		donor.ConsentFormURL = req.ConsentFormURL
		donor.ConsentDetailsHash = hashConsentDetails(req.ConsentDetails)
		donor.HLAType = req.HLAType
		donor.Comorbidities = req.Comorbidities
		donor.IsDeceasedDonor = req.IsDeceasedDonor
		donor.HealthCheckStatus = model.HealthPendingCheck
		donor.LedgerRefs.Registration = txHash

		for _, t := range req.PledgedOrgans {
			donor.PledgedOrgans = append(donor.PledgedOrgans, model.PledgedOrgan{
				ID:        uuid.New().String(),
				OrganType: t,
				IsPledged: true,
				Status:    model.PledgeStatusPledged,
			})
		}

		if err := store.Create(ctx, donor); err != nil {
			return respond.Error(c, err)
		}

		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"success": true,
			"message": "Donor registered",
			"donor":   donor,
			"tx_ref":  txHash,
		})
	}
}

// ConsentRequest is the body for recording a consent decision.
type ConsentRequest struct {
	ConsentGiven   bool                   `json:"consent_given"`
	ConsentFormURL string                 `json:"consent_form_url"`
	ConsentDetails map[string]interface{} `json:"consent_details"`
}

// PostConsent records a donor's consent decision.
func PostConsent(store *database.DonorStore) fiber.Handler {
	return func(c *fiber.Ctx) error {
		did := c.Params("did")

		var req ConsentRequest
		if err := c.BodyParser(&req); err != nil {
			return respond.BadRequest(c, "Invalid request body: "+err.Error())
		}

		donor, err := store.UpdateConsent(context.Background(), did, req.ConsentGiven,
			req.ConsentFormURL, hashConsentDetails(req.ConsentDetails), "")
		if err != nil {
			return respond.Error(c, err)
		}

		return c.JSON(fiber.Map{
			"success": true,
			"message": "Consent recorded",
			"donor":   donor,
		})
	}
}

// GetDashboard returns the donor document with the token balance attached.
// A ledger outage degrades the balance, not the dashboard.
func GetDashboard(store *database.DonorStore, balances BalanceReader) fiber.Handler {
	return func(c *fiber.Ctx) error {
		did := c.Params("did")
		ctx := context.Background()

		donor, err := store.FindByDID(ctx, did)
		if err != nil {
			return respond.Error(c, err)
		}

		resp := fiber.Map{
			"success": true,
			"donor":   donor,
		}

		if donor.EthAddress != "" {
			if balance, err := balances.TokenBalance(ctx, donor.EthAddress); err != nil {
				resp["balance_unavailable"] = true
			} else {
				resp["token_balance"] = balance
			}
		}

		return c.JSON(resp)
	}
}

// hashConsentDetails produces a stable digest of the consent payload for
// off-chain tamper evidence.
func hashConsentDetails(details map[string]interface{}) string {
	if len(details) == 0 {
		return ""
	}
	payload, err := json.Marshal(details)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}
