// Package journey drives an organ's lifecycle from match confirmation to
// transplant outcome. Every transition goes through the status allow-list,
// appends to the journey's history, and notarizes on-chain-significant
// milestones through the ledger gateway.
package journey

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	journeyevents "github.com/Shiva-74/HopeConnect/events/modules/journeys"
	"github.com/Shiva-74/HopeConnect/model"
	"github.com/Shiva-74/HopeConnect/util"
)

// Token award schedule, in whole HOPE tokens.
const (
	TokenAwardHealthCheck = 25
	TokenAwardTransplant  = 100
)

// Notary performs the on-chain side of journey milestones.
type Notary interface {
	RegisterOrgan(ctx context.Context, donorDID string, organCode uint8, hospitalDID string) (txHash, organID string, err error)
	UpdateOrganStatus(ctx context.Context, journeyID string, code uint8, notes, holderDID string) (string, error)
	RecordOutcome(ctx context.Context, journeyID string, success bool, anonymized, notes string) (string, error)
	MintTokens(ctx context.Context, to string, amount int64) (string, error)
}

// JourneyStore persists journey records.
type JourneyStore interface {
	Create(ctx context.Context, t *model.TransplantLog) error
	FindByID(ctx context.Context, journeyID string) (*model.TransplantLog, error)
	AppendStatus(ctx context.Context, journeyID string, expected model.JourneyStatus, entry model.StatusUpdate, extra map[string]interface{}) (*model.TransplantLog, error)
}

// DonorStore provides the donor operations the state machine needs.
type DonorStore interface {
	FindByDID(ctx context.Context, did string) (*model.Donor, error)
	AllocatePledge(ctx context.Context, did, pledgeID string) error
	RestorePledge(ctx context.Context, did, pledgeID string) error
	SetPledgeStatus(ctx context.Context, did, pledgeID string, status model.PledgeStatus) error
}

// RequestStore provides the request operations the state machine needs.
type RequestStore interface {
	FindByID(ctx context.Context, requestID string) (*model.OrganRequest, error)
	AttachConfirmedMatch(ctx context.Context, requestID string, match model.ConfirmedMatch) (*model.OrganRequest, error)
	SetStatus(ctx context.Context, requestID string, status model.RequestStatus) error
}

// Publisher emits journey status change events.
type Publisher interface {
	PublishStatusChanged(ctx context.Context, event journeyevents.JourneyStatusChangedEvent) error
}

// Service is the journey state machine.
type Service struct {
	journeys JourneyStore
	donors   DonorStore
	requests RequestStore
	notary   Notary
	events   Publisher
	log      *zap.Logger
}

// NewService creates a Service. events may be nil when no broker is
// configured.
func NewService(journeys JourneyStore, donors DonorStore, requests RequestStore, notary Notary, events Publisher, log *zap.Logger) *Service {
	return &Service{
		journeys: journeys,
		donors:   donors,
		requests: requests,
		notary:   notary,
		events:   events,
		log:      log,
	}
}

// ConfirmMatchInput identifies the pairing a hospital confirmed.
type ConfirmMatchInput struct {
	RequestID string
	DonorDID  string
	PledgeID  string
	Score     float64
	ActorDID  string
	Notes     string
}

// ConfirmMatch allocates the pledged organ, creates the journey record in
// its initial status, and registers the organ on chain. Allocation is the
// guarded step: under concurrent confirmations of the same pledge exactly
// one caller wins and the rest get a StateConflictError. On-chain
// registration is best effort; its failure is recorded as a skipped
// notarization, not surfaced as an operation failure.
func (s *Service) ConfirmMatch(ctx context.Context, in ConfirmMatchInput) (*model.TransplantLog, error) {
	if in.RequestID == "" || in.DonorDID == "" || in.PledgeID == "" {
		return nil, model.NewValidationError("", "request_id, donor_did and pledge_id are required")
	}

	req, err := s.requests.FindByID(ctx, in.RequestID)
	if err != nil {
		return nil, err
	}
	if req.Status != model.RequestPendingMatch && req.Status != model.RequestMatchFound {
		return nil, model.NewStateConflictError("organ request", "request is not awaiting a match")
	}

	donor, err := s.donors.FindByDID(ctx, in.DonorDID)
	if err != nil {
		return nil, err
	}
	pledge := pledgeByID(donor, in.PledgeID)
	if pledge == nil {
		return nil, model.NewNotFoundError("pledge", in.PledgeID)
	}
	if pledge.OrganType != req.OrganType {
		return nil, model.NewValidationError("pledge_id", "pledged organ type does not match the request")
	}
	if !util.IsBloodTypeCompatible(donor.BloodType, req.RecipientBloodType) {
		return nil, model.NewValidationError("donor_did", "donor blood type is not compatible with the recipient")
	}

	if err := s.donors.AllocatePledge(ctx, in.DonorDID, in.PledgeID); err != nil {
		return nil, err
	}

	journeyID := util.GenerateDID("organ_journey")
	match := model.ConfirmedMatch{
		DonorDID:    in.DonorDID,
		PledgeID:    in.PledgeID,
		JourneyID:   journeyID,
		MatchScore:  in.Score,
		ConfirmedAt: time.Now().UTC(),
		ConfirmedBy: in.ActorDID,
	}
	if _, err := s.requests.AttachConfirmedMatch(ctx, in.RequestID, match); err != nil {
		if restoreErr := s.donors.RestorePledge(ctx, in.DonorDID, in.PledgeID); restoreErr != nil {
			s.log.Error("failed to restore pledge after lost match confirmation",
				zap.String("donor_did", in.DonorDID),
				zap.String("pledge_id", in.PledgeID),
				zap.Error(restoreErr))
		}
		return nil, err
	}

	first := model.StatusUpdate{
		ActorDID:  in.ActorDID,
		ActorRole: "hospital",
		Notes:     in.Notes,
	}

	var chainOrganID string
	if pledge.ChainOrganID != "" {
		// Pre-registered on chain by the hospital; reuse that identity
		// instead of registering a second organ instance.
		chainOrganID = pledge.ChainOrganID
		first.TxRef = pledge.RegistrationTxRef
	} else {
		organCode, _ := req.OrganType.ChainCode()
		txHash, organID, err := s.notary.RegisterOrgan(ctx, in.DonorDID, organCode, req.HospitalDID)
		if err != nil {
			s.log.Warn("organ registration not notarized",
				zap.String("journey_id", journeyID),
				zap.Error(err))
			first.TxRef = model.NotarizationSkipped(err.Error())
		} else {
			first.TxRef = txHash
			chainOrganID = organID
		}
	}

	journey := model.NewTransplantLog(journeyID, first)
	journey.OrganType = req.OrganType
	journey.DonorDID = in.DonorDID
	journey.PledgeID = in.PledgeID
	journey.RequestID = in.RequestID
	journey.HospitalDID = req.HospitalDID
	journey.ChainOrganID = chainOrganID

	if err := s.journeys.Create(ctx, journey); err != nil {
		return nil, err
	}

	s.publish(ctx, journey, "", journey.CurrentStatus, in.ActorDID, first.TxRef)
	return journey, nil
}

// RecoveryInput describes an organ recovery event.
type RecoveryInput struct {
	JourneyID string
	ActorDID  string
	Notes     string
	Longitude *float64
	Latitude  *float64
}

// RecordRecovery marks the organ as recovered. Legal only from the initial
// or recovery-scheduled status. The milestone is notarized best effort and
// the donor's pledge entry moves to recovered.
func (s *Service) RecordRecovery(ctx context.Context, in RecoveryInput) (*model.TransplantLog, error) {
	journey, err := s.journeys.FindByID(ctx, in.JourneyID)
	if err != nil {
		return nil, err
	}
	if !model.RecoveryAllowedFrom(journey.CurrentStatus) {
		return nil, model.NewStateConflictError("journey",
			fmt.Sprintf("organ recovery cannot be recorded from status %s", journey.CurrentStatus))
	}

	entry := model.StatusUpdate{
		Status:    model.StatusOrganRecovered,
		Timestamp: time.Now().UTC(),
		ActorDID:  in.ActorDID,
		ActorRole: "hospital",
		Notes:     in.Notes,
		Longitude: in.Longitude,
		Latitude:  in.Latitude,
	}
	entry.TxRef = s.notarize(ctx, journey, model.StatusOrganRecovered, in.Notes, in.ActorDID)

	updated, err := s.journeys.AppendStatus(ctx, in.JourneyID, journey.CurrentStatus, entry, nil)
	if err != nil {
		return nil, err
	}

	if err := s.donors.SetPledgeStatus(ctx, journey.DonorDID, journey.PledgeID, model.PledgeStatusRecovered); err != nil {
		s.log.Warn("failed to mark pledge recovered",
			zap.String("donor_did", journey.DonorDID),
			zap.Error(err))
	}

	s.publish(ctx, updated, journey.CurrentStatus, updated.CurrentStatus, in.ActorDID, entry.TxRef)
	return updated, nil
}

// StatusInput describes a transport or scheduling status update.
type StatusInput struct {
	JourneyID string
	Status    model.JourneyStatus
	ActorDID  string
	ActorRole string
	Notes     string
	HolderDID string
	Longitude *float64
	Latitude  *float64
}

// UpdateStatus applies a non-terminal transition. Recovery and outcomes
// have their own entry points; this handles scheduling, transport, and
// pre-surgery statuses. The history append is conditioned on the status the
// record was read at, so concurrent transitions serialize per journey.
func (s *Service) UpdateStatus(ctx context.Context, in StatusInput) (*model.TransplantLog, error) {
	if in.Status == "" {
		return nil, model.NewValidationError("status", "status is required")
	}
	if in.Status.Terminal() || in.Status == model.StatusOrganRecovered {
		return nil, model.NewValidationError("status", "status has a dedicated recording operation")
	}

	journey, err := s.journeys.FindByID(ctx, in.JourneyID)
	if err != nil {
		return nil, err
	}
	if !model.CanTransition(journey.CurrentStatus, in.Status) {
		return nil, model.NewStateConflictError("journey",
			fmt.Sprintf("cannot move from %s to %s", journey.CurrentStatus, in.Status))
	}

	entry := model.StatusUpdate{
		Status:    in.Status,
		Timestamp: time.Now().UTC(),
		ActorDID:  in.ActorDID,
		ActorRole: in.ActorRole,
		Notes:     in.Notes,
		Longitude: in.Longitude,
		Latitude:  in.Latitude,
	}
	holder := in.HolderDID
	if holder == "" {
		holder = in.ActorDID
	}
	entry.TxRef = s.notarize(ctx, journey, in.Status, in.Notes, holder)

	updated, err := s.journeys.AppendStatus(ctx, in.JourneyID, journey.CurrentStatus, entry, nil)
	if err != nil {
		return nil, err
	}

	if in.Status == model.StatusSurgeryStarted {
		if err := s.requests.SetStatus(ctx, journey.RequestID, model.RequestTransplantInProgress); err != nil {
			s.log.Warn("failed to mark request in progress",
				zap.String("request_id", journey.RequestID),
				zap.Error(err))
		}
	}

	s.publish(ctx, updated, journey.CurrentStatus, updated.CurrentStatus, in.ActorDID, entry.TxRef)
	return updated, nil
}

// CompletionInput describes a recorded transplant outcome.
type CompletionInput struct {
	JourneyID       string
	Outcome         model.TransplantOutcome
	Notes           string
	AnonymizedStats string
	ActorDID        string
}

// RecordCompletion closes a journey with an outcome. Legal only from the
// post-recovery statuses. The outcome is notarized best effort; on a
// positive outcome the donor's incentive mint is attempted as a second,
// independent on-chain call whose failure is logged but never rolls back
// the recording.
func (s *Service) RecordCompletion(ctx context.Context, in CompletionInput) (*model.TransplantLog, error) {
	if !model.ValidOutcome(in.Outcome) {
		return nil, model.NewValidationError("outcome", "unknown outcome label")
	}

	journey, err := s.journeys.FindByID(ctx, in.JourneyID)
	if err != nil {
		return nil, err
	}
	if !model.CompletionAllowedFrom(journey.CurrentStatus) {
		return nil, model.NewStateConflictError("journey",
			fmt.Sprintf("transplant outcome cannot be recorded from status %s", journey.CurrentStatus))
	}

	target := model.StatusForOutcome(in.Outcome)
	entry := model.StatusUpdate{
		Status:    target,
		Timestamp: time.Now().UTC(),
		ActorDID:  in.ActorDID,
		ActorRole: "surgeon",
		Notes:     in.Notes,
	}

	txHash, err := s.notary.RecordOutcome(ctx, in.JourneyID, in.Outcome.Positive(), in.AnonymizedStats, in.Notes)
	if err != nil {
		s.log.Warn("transplant outcome not notarized",
			zap.String("journey_id", in.JourneyID),
			zap.Error(err))
		entry.TxRef = model.NotarizationSkipped(err.Error())
	} else {
		entry.TxRef = txHash
	}

	extra := map[string]interface{}{
		"outcome":          in.Outcome,
		"outcome_notes":    in.Notes,
		"anonymized_stats": in.AnonymizedStats,
	}
	updated, err := s.journeys.AppendStatus(ctx, in.JourneyID, journey.CurrentStatus, entry, extra)
	if err != nil {
		return nil, err
	}

	requestStatus := model.RequestTransplantCompleted
	if !in.Outcome.Positive() {
		requestStatus = model.RequestClosedUnsuccessful
	}
	if err := s.requests.SetStatus(ctx, journey.RequestID, requestStatus); err != nil {
		s.log.Warn("failed to update request status after outcome",
			zap.String("request_id", journey.RequestID),
			zap.Error(err))
	}

	if in.Outcome.Positive() {
		s.awardTokens(ctx, journey.DonorDID, TokenAwardTransplant)
	}

	s.publish(ctx, updated, journey.CurrentStatus, updated.CurrentStatus, in.ActorDID, entry.TxRef)
	return updated, nil
}

// AuditTrail returns the full journey record with its ordered history.
func (s *Service) AuditTrail(ctx context.Context, journeyID string) (*model.TransplantLog, error) {
	return s.journeys.FindByID(ctx, journeyID)
}

// notarize performs the on-chain status update for a milestone status and
// returns the tx ref or skip marker to store in the history entry. Statuses
// with no chain code return an empty ref.
func (s *Service) notarize(ctx context.Context, journey *model.TransplantLog, status model.JourneyStatus, notes, holderDID string) string {
	code, significant := model.ChainStatusCode(status)
	if !significant {
		return ""
	}

	txHash, err := s.notary.UpdateOrganStatus(ctx, journey.JourneyID, code, notes, holderDID)
	if err != nil {
		s.log.Warn("status milestone not notarized",
			zap.String("journey_id", journey.JourneyID),
			zap.String("status", string(status)),
			zap.Error(err))
		return model.NotarizationSkipped(err.Error())
	}
	return txHash
}

// awardTokens mints the incentive award to the donor's reward address.
// Failures are logged only.
func (s *Service) awardTokens(ctx context.Context, donorDID string, amount int64) {
	donor, err := s.donors.FindByDID(ctx, donorDID)
	if err != nil {
		s.log.Warn("cannot award tokens, donor lookup failed",
			zap.String("donor_did", donorDID), zap.Error(err))
		return
	}
	if donor.EthAddress == "" {
		s.log.Warn("cannot award tokens, donor has no reward address",
			zap.String("donor_did", donorDID))
		return
	}

	txHash, err := s.notary.MintTokens(ctx, donor.EthAddress, amount)
	if err != nil {
		s.log.Warn("token award failed",
			zap.String("donor_did", donorDID),
			zap.Int64("amount", amount),
			zap.Error(err))
		return
	}
	s.log.Info("token award minted",
		zap.String("donor_did", donorDID),
		zap.Int64("amount", amount),
		zap.String("tx", txHash))
}

func (s *Service) publish(ctx context.Context, journey *model.TransplantLog, from, to model.JourneyStatus, actorDID, txRef string) {
	if s.events == nil {
		return
	}
	event := journeyevents.JourneyStatusChangedEvent{
		JourneyID:  journey.JourneyID,
		OrganType:  journey.OrganType,
		FromStatus: from,
		ToStatus:   to,
		ActorDID:   actorDID,
		TxRef:      txRef,
	}
	if err := s.events.PublishStatusChanged(ctx, event); err != nil {
		s.log.Warn("failed to publish journey event",
			zap.String("journey_id", journey.JourneyID),
			zap.Error(err))
	}
}

func pledgeByID(d *model.Donor, pledgeID string) *model.PledgedOrgan {
	for i := range d.PledgedOrgans {
		if d.PledgedOrgans[i].ID == pledgeID {
			return &d.PledgedOrgans[i]
		}
	}
	return nil
}
