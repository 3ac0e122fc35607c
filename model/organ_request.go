package model

import "time"

// RequestStatus tracks an organ request from intake to closure.
type RequestStatus string

const (
	RequestPendingMatch         RequestStatus = "pending_match"
	RequestMatchFound           RequestStatus = "match_found_awaits_confirmation"
	RequestTransplantScheduled  RequestStatus = "transplant_scheduled"
	RequestTransplantInProgress RequestStatus = "transplant_in_progress"
	RequestTransplantCompleted  RequestStatus = "transplant_completed"
	RequestClosedUnsuccessful   RequestStatus = "closed_unsuccessful"
	RequestClosedOtherReason    RequestStatus = "closed_other_reason"
)

// UrgencyLevel orders requests by clinical urgency. Higher is more urgent;
// there is no upper bound. The named levels below are reference points, not
// a closed range.
type UrgencyLevel int

const (
	UrgencyRoutine  UrgencyLevel = 1
	UrgencyElevated UrgencyLevel = 2
	UrgencyHigh     UrgencyLevel = 3
	UrgencyCritical UrgencyLevel = 4
)

// ConfirmedMatch records the donor pledge a request was matched against
// once a hospital confirms a ranked candidate.
type ConfirmedMatch struct {
	DonorDID    string    `json:"donor_did"`
	PledgeID    string    `json:"pledge_id"`
	JourneyID   string    `json:"journey_id"`
	MatchScore  float64   `json:"match_score"`
	ConfirmedAt time.Time `json:"confirmed_at"`
	ConfirmedBy string    `json:"confirmed_by,omitempty"`
}

// OrganRequest is a hospital's request for an organ on behalf of a
// recipient. Recipient identity is held as an opaque reference plus the
// clinical attributes matching needs.
type OrganRequest struct {
	Key                string          `json:"_key,omitempty"`
	RequestID          string          `json:"request_id"`
	HospitalDID        string          `json:"hospital_did"`
	RecipientRef       string          `json:"recipient_ref"`
	RecipientBloodType string          `json:"recipient_blood_type"`
	RecipientAge       int             `json:"recipient_age,omitempty"`
	RecipientHLAType   string          `json:"recipient_hla_type,omitempty"`
	OrganType          OrganType       `json:"organ_type"`
	Urgency            UrgencyLevel    `json:"urgency"`
	ClinicalNotes      string          `json:"clinical_notes,omitempty"`
	Status             RequestStatus   `json:"status"`
	ConfirmedMatch     *ConfirmedMatch `json:"confirmed_match,omitempty"`
	ObjType            string          `json:"objtype,omitempty"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

// NewOrganRequest creates a request document with defaults applied.
func NewOrganRequest() *OrganRequest {
	now := time.Now().UTC()
	return &OrganRequest{
		ObjType:   "OrganRequest",
		Status:    RequestPendingMatch,
		Urgency:   UrgencyRoutine,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// ValidUrgency reports whether u is a legal urgency value: at least 1, with
// no upper bound.
func ValidUrgency(u UrgencyLevel) bool {
	return u >= UrgencyRoutine
}
