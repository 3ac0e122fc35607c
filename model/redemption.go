package model

import "time"

// RedemptionLog records a token burn performed when a donor redeems HOPE
// tokens for a partner benefit.
type RedemptionLog struct {
	Key        string    `json:"_key,omitempty"`
	DonorDID   string    `json:"donor_did"`
	EthAddress string    `json:"eth_address"`
	Amount     int64     `json:"amount"`
	Benefit    string    `json:"benefit,omitempty"`
	TxRef      string    `json:"tx_ref"`
	ObjType    string    `json:"objtype,omitempty"`
	RedeemedAt time.Time `json:"redeemed_at"`
}

// NewRedemptionLog creates a redemption record stamped with the current
// time.
func NewRedemptionLog() *RedemptionLog {
	return &RedemptionLog{
		ObjType:    "RedemptionLog",
		RedeemedAt: time.Now().UTC(),
	}
}
