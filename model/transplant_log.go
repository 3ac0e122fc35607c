package model

import (
	"strings"
	"time"
)

// JourneyStatus is one stop in an organ's journey from recovery to
// transplant. InTransit statuses carry a mode suffix (for example
// "InTransit_Ambulance", "InTransit_Drone") and are matched by prefix.
type JourneyStatus string

const (
	StatusMatchConfirmed    JourneyStatus = "MatchConfirmed_AwaitingRecovery"
	StatusRecoveryScheduled JourneyStatus = "OrganRecoveryScheduled"
	StatusOrganRecovered    JourneyStatus = "OrganRecovered"
	StatusTransportStarted  JourneyStatus = "TransportInitiated"
	StatusArrived           JourneyStatus = "ArrivedAtRecipientHospital"
	StatusPreTransplant     JourneyStatus = "PreTransplantChecks"
	StatusSurgeryStarted    JourneyStatus = "TransplantSurgeryStarted"
	StatusTransplantSuccess JourneyStatus = "TransplantCompletedSuccessfully"

	inTransitPrefix = "InTransit_"
	outcomePrefix   = "Transplant"
)

// TransplantOutcome is the closed set of outcome labels a surgeon can record
// when closing a journey.
type TransplantOutcome string

const (
	OutcomeSuccessful           TransplantOutcome = "Successful"
	OutcomeSuccessfulComplic    TransplantOutcome = "Successful_WithComplications"
	OutcomeFailedGraftRejection TransplantOutcome = "Failed_GraftRejection"
	OutcomeFailedSurgical       TransplantOutcome = "Failed_SurgicalComplication"
	OutcomeFailedOther          TransplantOutcome = "Failed_Other"
)

// ValidOutcome reports whether o is a known outcome label.
func ValidOutcome(o TransplantOutcome) bool {
	switch o {
	case OutcomeSuccessful, OutcomeSuccessfulComplic,
		OutcomeFailedGraftRejection, OutcomeFailedSurgical, OutcomeFailedOther:
		return true
	}
	return false
}

// Positive reports whether the outcome counts as a successful transplant for
// incentive purposes.
func (o TransplantOutcome) Positive() bool {
	return o == OutcomeSuccessful || o == OutcomeSuccessfulComplic
}

// StatusForOutcome maps an outcome label to the terminal journey status it
// produces. OutcomeSuccessful maps to the canonical success status; every
// other label is carried verbatim into the status name.
func StatusForOutcome(o TransplantOutcome) JourneyStatus {
	if o == OutcomeSuccessful {
		return StatusTransplantSuccess
	}
	return JourneyStatus(outcomePrefix + string(o))
}

// InTransit reports whether s is a transit status of any mode.
func (s JourneyStatus) InTransit() bool {
	return strings.HasPrefix(string(s), inTransitPrefix)
}

// Terminal reports whether s is a terminal status. No transition may leave a
// terminal status.
func (s JourneyStatus) Terminal() bool {
	if s == StatusTransplantSuccess {
		return true
	}
	return strings.HasPrefix(string(s), outcomePrefix+"Failed_") ||
		s == StatusForOutcome(OutcomeSuccessfulComplic)
}

// completionPredecessors is the fixed set of statuses a journey may be in
// when an outcome is recorded. Recording from the initial status is not
// allowed; the organ must at least have been recovered.
var completionPredecessors = []JourneyStatus{
	StatusOrganRecovered,
	StatusArrived,
	StatusPreTransplant,
	StatusSurgeryStarted,
}

// recoveryPredecessors is the set of statuses organ recovery may be
// recorded from.
var recoveryPredecessors = []JourneyStatus{
	StatusMatchConfirmed,
	StatusRecoveryScheduled,
}

// CanTransition reports whether moving from the current status to the target
// is legal. Each target has its own explicit predecessor set; anything not
// listed is rejected.
func CanTransition(from, to JourneyStatus) bool {
	if from.Terminal() {
		return false
	}
	if to.Terminal() {
		return statusIn(from, completionPredecessors)
	}
	if to.InTransit() {
		return from == StatusTransportStarted || from.InTransit()
	}
	switch to {
	case StatusRecoveryScheduled:
		return from == StatusMatchConfirmed
	case StatusOrganRecovered:
		return statusIn(from, recoveryPredecessors)
	case StatusTransportStarted:
		return from == StatusOrganRecovered
	case StatusArrived:
		return from == StatusTransportStarted || from.InTransit()
	case StatusPreTransplant:
		return from == StatusArrived
	case StatusSurgeryStarted:
		return from == StatusPreTransplant || from == StatusArrived
	}
	return false
}

// CompletionAllowedFrom reports whether an outcome may be recorded while the
// journey sits at the given status.
func CompletionAllowedFrom(s JourneyStatus) bool {
	return statusIn(s, completionPredecessors)
}

// RecoveryAllowedFrom reports whether organ recovery may be recorded while
// the journey sits at the given status.
func RecoveryAllowedFrom(s JourneyStatus) bool {
	return statusIn(s, recoveryPredecessors)
}

func statusIn(s JourneyStatus, set []JourneyStatus) bool {
	for _, v := range set {
		if s == v {
			return true
		}
	}
	return false
}

// Chain status codes understood by the OrganChain contract.
const (
	ChainStatusRecovered uint8 = 1
	ChainStatusInTransit uint8 = 2
	ChainStatusDelivered uint8 = 3
)

// ChainStatusCode returns the contract status code for an on-chain
// significant status. The second return is false for statuses that are not
// notarized as milestones.
func ChainStatusCode(s JourneyStatus) (uint8, bool) {
	switch {
	case s == StatusOrganRecovered:
		return ChainStatusRecovered, true
	case s == StatusTransportStarted || s.InTransit():
		return ChainStatusInTransit, true
	case s == StatusArrived:
		return ChainStatusDelivered, true
	}
	return 0, false
}

// NotarizationSkipped builds the history-entry marker recorded in place of a
// transaction hash when a ledger call failed or the ledger is not
// configured.
func NotarizationSkipped(reason string) string {
	return "skipped:" + reason
}

// IsNotarizationSkipped reports whether a tx ref is a skip marker rather
// than a real transaction hash.
func IsNotarizationSkipped(ref string) bool {
	return strings.HasPrefix(ref, "skipped:")
}

// StatusUpdate is one append-only entry in a journey's status history. TxRef
// holds either the notarizing transaction hash, a skip marker, or is empty
// for statuses that are not on-chain significant.
type StatusUpdate struct {
	Status    JourneyStatus `json:"status"`
	Timestamp time.Time     `json:"timestamp"`
	ActorDID  string        `json:"actor_did,omitempty"`
	ActorRole string        `json:"actor_role,omitempty"`
	Notes     string        `json:"notes,omitempty"`
	TxRef     string        `json:"tx_ref,omitempty"`
	Longitude *float64      `json:"longitude,omitempty"`
	Latitude  *float64      `json:"latitude,omitempty"`
}

// TransplantLog is the journey record for one organ instance, created at
// match confirmation and closed by outcome recording. StatusHistory is
// append-only and CurrentStatus always equals the last entry's status.
type TransplantLog struct {
	Key             string             `json:"_key,omitempty"`
	JourneyID       string             `json:"journey_id"`
	OrganType       OrganType          `json:"organ_type"`
	DonorDID        string             `json:"donor_did"`
	PledgeID        string             `json:"pledge_id"`
	RequestID       string             `json:"request_id"`
	HospitalDID     string             `json:"hospital_did"`
	ChainOrganID    string             `json:"chain_organ_id,omitempty"`
	CurrentStatus   JourneyStatus      `json:"current_status"`
	StatusHistory   []StatusUpdate     `json:"status_history"`
	Outcome         *TransplantOutcome `json:"outcome,omitempty"`
	OutcomeNotes    string             `json:"outcome_notes,omitempty"`
	AnonymizedStats string             `json:"anonymized_stats,omitempty"`
	ObjType         string             `json:"objtype,omitempty"`
	CreatedAt       time.Time          `json:"created_at"`
	UpdatedAt       time.Time          `json:"updated_at"`
}

// NewTransplantLog creates a journey record in the initial status with its
// first history entry.
func NewTransplantLog(journeyID string, first StatusUpdate) *TransplantLog {
	now := time.Now().UTC()
	first.Status = StatusMatchConfirmed
	if first.Timestamp.IsZero() {
		first.Timestamp = now
	}
	return &TransplantLog{
		JourneyID:     journeyID,
		CurrentStatus: StatusMatchConfirmed,
		StatusHistory: []StatusUpdate{first},
		ObjType:       "TransplantLog",
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}
