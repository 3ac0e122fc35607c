// Package model defines the data structures used by the HopeConnect backend:
// donor pledges, organ requests, transplant journeys, and the closed status
// enumerations that drive their lifecycles.
package model

import "time"

// OrganType is the closed set of organ types a donor can pledge.
type OrganType string

const (
	OrganKidney    OrganType = "Kidney"
	OrganLiver     OrganType = "Liver"
	OrganHeart     OrganType = "Heart"
	OrganLung      OrganType = "Lung"
	OrganPancreas  OrganType = "Pancreas"
	OrganIntestine OrganType = "Intestine"
	OrganCornea    OrganType = "Cornea"
	OrganTissue    OrganType = "Tissue"
)

// organChainTypeCodes maps organ types to the OrganChain contract's OrganType
// enum. The numbering is the contract's, not ours; it must stay in lock-step
// with the deployed ABI.
var organChainTypeCodes = map[OrganType]uint8{
	OrganHeart:     0,
	OrganLung:      1,
	OrganLiver:     2,
	OrganKidney:    3,
	OrganPancreas:  4,
	OrganIntestine: 5,
	OrganCornea:    6,
	OrganTissue:    7,
}

// Valid reports whether t is a known organ type.
func (t OrganType) Valid() bool {
	_, ok := organChainTypeCodes[t]
	return ok
}

// ChainCode returns the contract enum value for the organ type. The second
// return is false for unknown types.
func (t OrganType) ChainCode() (uint8, bool) {
	code, ok := organChainTypeCodes[t]
	return code, ok
}

// PledgeStatus tracks one pledged organ through the allocation pipeline.
type PledgeStatus string

const (
	PledgeStatusPledged        PledgeStatus = "pledged"
	PledgeStatusAwaitsMatching PledgeStatus = "awaits_matching"
	PledgeStatusMatched        PledgeStatus = "matched"
	PledgeStatusAllocated      PledgeStatus = "allocated_for_recovery"
	PledgeStatusRecovered      PledgeStatus = "recovered"
	PledgeStatusUnavailable    PledgeStatus = "unavailable"
)

// HealthCheckStatus is the donor's position in the screening pipeline. Only
// donors at HealthFitForDonation enter matching.
type HealthCheckStatus string

const (
	HealthPendingRegistration HealthCheckStatus = "pending_registration_confirmation"
	HealthPendingCheck        HealthCheckStatus = "pending_health_check"
	HealthCheckScheduled      HealthCheckStatus = "health_check_scheduled"
	HealthCheckCompleted      HealthCheckStatus = "health_check_completed"
	HealthFitForDonation      HealthCheckStatus = "fit_for_donation"
	HealthUnfitForDonation    HealthCheckStatus = "unfit_for_donation"
	HealthTemporarilyUnfit    HealthCheckStatus = "temporarily_unfit"
)

// PledgedOrgan is one organ type pledged by a donor. At most one entry per
// (donor, organ type) may be actively pledged at a time; allocation flips
// IsPledged to false and only an explicit re-pledge may set it back.
// ChainOrganID and RegistrationTxRef are set when a hospital registers the
// pledge on chain ahead of matching; a pledge so registered sits at
// awaits_matching and stays matchable.
type PledgedOrgan struct {
	ID                string       `json:"id"`
	OrganType         OrganType    `json:"organ_type"`
	IsPledged         bool         `json:"is_pledged"`
	Status            PledgeStatus `json:"status"`
	ChainOrganID      string       `json:"chain_organ_id,omitempty"`
	RegistrationTxRef string       `json:"registration_tx_ref,omitempty"`
}

// ContactInfo holds donor contact details.
type ContactInfo struct {
	Phone   string `json:"phone,omitempty"`
	Address string `json:"address,omitempty"`
}

// LedgerRefs collects the transaction hashes of ledger operations performed
// for a donor, keyed by operation.
type LedgerRefs struct {
	Registration     string `json:"registration,omitempty"`
	ConsentRecording string `json:"consent_recording,omitempty"`
	HealthUpdate     string `json:"health_update,omitempty"`
}

// Donor represents a donor pledge document. The DID is the stable
// cross-system key shared with the ledger; the document key is internal.
type Donor struct {
	Key                 string            `json:"_key,omitempty"`
	DID                 string            `json:"did"`
	EthAddress          string            `json:"eth_address,omitempty"`
	FullName            string            `json:"full_name"`
	DateOfBirth         time.Time         `json:"date_of_birth"`
	BloodType           string            `json:"blood_type"`
	ContactInfo         ContactInfo       `json:"contact_info,omitempty"`
	ConsentGiven        bool              `json:"consent_given"`
	ConsentFormURL      string            `json:"consent_form_url,omitempty"`
	ConsentDetailsHash  string            `json:"consent_details_hash,omitempty"`
	HealthCheckStatus   HealthCheckStatus `json:"health_check_status"`
	HealthScore         *float64          `json:"health_score,omitempty"`
	LastHealthCheckDate *time.Time        `json:"last_health_check_date,omitempty"`
	PledgedOrgans       []PledgedOrgan    `json:"pledged_organs"`
	Comorbidities       []string          `json:"comorbidities,omitempty"`
	HLAType             string            `json:"hla_type,omitempty"`
	IsDeceasedDonor     bool              `json:"is_deceased_donor"`
	LedgerRefs          LedgerRefs        `json:"ledger_refs"`
	ObjType             string            `json:"objtype,omitempty"`
	CreatedAt           time.Time         `json:"created_at"`
	UpdatedAt           time.Time         `json:"updated_at"`
}

// NewDonor creates a donor document with defaults applied.
func NewDonor() *Donor {
	now := time.Now().UTC()
	return &Donor{
		ObjType:           "Donor",
		HealthCheckStatus: HealthPendingRegistration,
		PledgedOrgans:     []PledgedOrgan{},
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

// Matchable reports whether the pledge status leaves the organ available
// for matching. On-chain pre-registration moves a pledge to awaits_matching
// without taking it out of the pool.
func (s PledgeStatus) Matchable() bool {
	return s == PledgeStatusPledged || s == PledgeStatusAwaitsMatching
}

// ActivePledge returns the donor's actively pledged entry for the organ
// type, or nil if none is available for matching.
func (d *Donor) ActivePledge(t OrganType) *PledgedOrgan {
	for i := range d.PledgedOrgans {
		p := &d.PledgedOrgans[i]
		if p.OrganType == t && p.IsPledged && p.Status.Matchable() {
			return p
		}
	}
	return nil
}
