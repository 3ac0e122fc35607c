// Package tokens implements the REST API handlers for HOPE token balances
// and redemptions.
package tokens

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/Shiva-74/HopeConnect/database"
	"github.com/Shiva-74/HopeConnect/model"
	"github.com/Shiva-74/HopeConnect/restapi/respond"
)

// Ledger is the token side of the ledger gateway.
type Ledger interface {
	TokenBalance(ctx context.Context, address string) (int64, error)
	BurnForRedemption(ctx context.Context, from string, amount int64) (string, error)
}

// GetBalance returns a donor's HOPE balance in whole tokens.
func GetBalance(donors *database.DonorStore, ledger Ledger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := context.Background()

		donor, err := donors.FindByDID(ctx, c.Params("did"))
		if err != nil {
			return respond.Error(c, err)
		}
		if donor.EthAddress == "" {
			return respond.BadRequest(c, "donor has no reward address")
		}

		balance, err := ledger.TokenBalance(ctx, donor.EthAddress)
		if err != nil {
			return respond.Error(c, err)
		}

		return c.JSON(fiber.Map{
			"success": true,
			"balance": balance,
		})
	}
}

// RedeemBody is the body for a token redemption.
type RedeemBody struct {
	Amount  int64  `json:"amount"`
	Benefit string `json:"benefit"`
}

// PostRedeem burns tokens from the donor's balance and records the
// redemption.
func PostRedeem(donors *database.DonorStore, redemptions *database.RedemptionStore, ledger Ledger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body RedeemBody
		if err := c.BodyParser(&body); err != nil {
			return respond.BadRequest(c, "Invalid request body: "+err.Error())
		}
		if body.Amount <= 0 {
			return respond.BadRequest(c, "amount must be positive")
		}

		ctx := context.Background()
		donor, err := donors.FindByDID(ctx, c.Params("did"))
		if err != nil {
			return respond.Error(c, err)
		}
		if donor.EthAddress == "" {
			return respond.BadRequest(c, "donor has no reward address")
		}

		txHash, err := ledger.BurnForRedemption(ctx, donor.EthAddress, body.Amount)
		if err != nil {
			return respond.Error(c, err)
		}

		record := model.NewRedemptionLog()
		record.DonorDID = donor.DID
		record.EthAddress = donor.EthAddress
		record.Amount = body.Amount
		record.Benefit = body.Benefit
		record.TxRef = txHash
		if err := redemptions.Create(ctx, record); err != nil {
			return respond.Error(c, err)
		}

		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"success":    true,
			"message":    "Tokens redeemed",
			"redemption": record,
		})
	}
}

// GetRedemptions lists a donor's redemption history.
func GetRedemptions(redemptions *database.RedemptionStore) fiber.Handler {
	return func(c *fiber.Ctx) error {
		records, err := redemptions.ListByDonor(context.Background(), c.Params("did"))
		if err != nil {
			return respond.Error(c, err)
		}

		return c.JSON(fiber.Map{
			"success":     true,
			"redemptions": records,
		})
	}
}
