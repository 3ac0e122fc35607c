package journey

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	journeyevents "github.com/Shiva-74/HopeConnect/events/modules/journeys"
	"github.com/Shiva-74/HopeConnect/model"
)

// memJourneys reproduces the store's conditional-append semantics in
// memory so concurrency behavior can be exercised without a database.
type memJourneys struct {
	mu   sync.Mutex
	logs map[string]*model.TransplantLog
}

func newMemJourneys() *memJourneys {
	return &memJourneys{logs: map[string]*model.TransplantLog{}}
}

func (m *memJourneys) Create(_ context.Context, t *model.TransplantLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logs[t.JourneyID] = t
	return nil
}

func (m *memJourneys) FindByID(_ context.Context, journeyID string) (*model.TransplantLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	log, ok := m.logs[journeyID]
	if !ok {
		return nil, model.NewNotFoundError("journey", journeyID)
	}
	copied := *log
	copied.StatusHistory = append([]model.StatusUpdate{}, log.StatusHistory...)
	return &copied, nil
}

func (m *memJourneys) AppendStatus(_ context.Context, journeyID string, expected model.JourneyStatus, entry model.StatusUpdate, extra map[string]interface{}) (*model.TransplantLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	log, ok := m.logs[journeyID]
	if !ok {
		return nil, model.NewNotFoundError("journey", journeyID)
	}
	if log.CurrentStatus != expected {
		return nil, model.NewStateConflictError("journey", "journey status changed since it was read")
	}
	log.CurrentStatus = entry.Status
	log.StatusHistory = append(log.StatusHistory, entry)
	if outcome, ok := extra["outcome"].(model.TransplantOutcome); ok {
		log.Outcome = &outcome
	}
	copied := *log
	copied.StatusHistory = append([]model.StatusUpdate{}, log.StatusHistory...)
	return &copied, nil
}

type memDonors struct {
	mu     sync.Mutex
	donors map[string]*model.Donor
}

func newMemDonors(donors ...*model.Donor) *memDonors {
	m := &memDonors{donors: map[string]*model.Donor{}}
	for _, d := range donors {
		m.donors[d.DID] = d
	}
	return m
}

func (m *memDonors) FindByDID(_ context.Context, did string) (*model.Donor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.donors[did]
	if !ok {
		return nil, model.NewNotFoundError("donor", did)
	}
	copied := *d
	copied.PledgedOrgans = append([]model.PledgedOrgan{}, d.PledgedOrgans...)
	return &copied, nil
}

func (m *memDonors) AllocatePledge(_ context.Context, did, pledgeID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.donors[did]
	if !ok {
		return model.NewNotFoundError("donor", did)
	}
	for i := range d.PledgedOrgans {
		p := &d.PledgedOrgans[i]
		if p.ID == pledgeID && p.IsPledged && p.Status.Matchable() {
			p.IsPledged = false
			p.Status = model.PledgeStatusAllocated
			return nil
		}
	}
	return model.NewStateConflictError("pledge", "organ pledge is no longer available for allocation")
}

func (m *memDonors) RestorePledge(_ context.Context, did, pledgeID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.donors[did]
	if !ok {
		return model.NewNotFoundError("donor", did)
	}
	for i := range d.PledgedOrgans {
		if d.PledgedOrgans[i].ID == pledgeID {
			d.PledgedOrgans[i].IsPledged = true
			d.PledgedOrgans[i].Status = model.PledgeStatusPledged
		}
	}
	return nil
}

func (m *memDonors) SetPledgeStatus(_ context.Context, did, pledgeID string, status model.PledgeStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.donors[did]
	if !ok {
		return model.NewNotFoundError("donor", did)
	}
	for i := range d.PledgedOrgans {
		if d.PledgedOrgans[i].ID == pledgeID {
			d.PledgedOrgans[i].Status = status
		}
	}
	return nil
}

type memRequests struct {
	mu       sync.Mutex
	requests map[string]*model.OrganRequest
}

func newMemRequests(requests ...*model.OrganRequest) *memRequests {
	m := &memRequests{requests: map[string]*model.OrganRequest{}}
	for _, r := range requests {
		m.requests[r.RequestID] = r
	}
	return m
}

func (m *memRequests) FindByID(_ context.Context, requestID string) (*model.OrganRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.requests[requestID]
	if !ok {
		return nil, model.NewNotFoundError("organ request", requestID)
	}
	copied := *r
	return &copied, nil
}

func (m *memRequests) AttachConfirmedMatch(_ context.Context, requestID string, match model.ConfirmedMatch) (*model.OrganRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.requests[requestID]
	if !ok {
		return nil, model.NewNotFoundError("organ request", requestID)
	}
	if r.Status != model.RequestPendingMatch && r.Status != model.RequestMatchFound {
		return nil, model.NewStateConflictError("organ request", "request is not awaiting a match")
	}
	r.Status = model.RequestTransplantScheduled
	r.ConfirmedMatch = &match
	copied := *r
	return &copied, nil
}

func (m *memRequests) SetStatus(_ context.Context, requestID string, status model.RequestStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.requests[requestID]
	if !ok {
		return model.NewNotFoundError("organ request", requestID)
	}
	r.Status = status
	return nil
}

// fakeNotary records on-chain calls and can be told to fail them.
type fakeNotary struct {
	mu            sync.Mutex
	failAll       bool
	registerCalls int
	statusCalls   int
	outcomeCalls  int
	mintedTo      []string
	mintedAmounts []int64
}

func (f *fakeNotary) RegisterOrgan(_ context.Context, _ string, _ uint8, _ string) (string, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.registerCalls++
	if f.failAll {
		return "", "", errors.New("node unreachable")
	}
	return fmt.Sprintf("0xreg%d", f.registerCalls), fmt.Sprintf("%d", f.registerCalls), nil
}

func (f *fakeNotary) UpdateOrganStatus(_ context.Context, _ string, _ uint8, _, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statusCalls++
	if f.failAll {
		return "", errors.New("node unreachable")
	}
	return fmt.Sprintf("0xstatus%d", f.statusCalls), nil
}

func (f *fakeNotary) RecordOutcome(_ context.Context, _ string, _ bool, _, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.outcomeCalls++
	if f.failAll {
		return "", errors.New("node unreachable")
	}
	return fmt.Sprintf("0xoutcome%d", f.outcomeCalls), nil
}

func (f *fakeNotary) MintTokens(_ context.Context, to string, amount int64) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll {
		return "", errors.New("node unreachable")
	}
	f.mintedTo = append(f.mintedTo, to)
	f.mintedAmounts = append(f.mintedAmounts, amount)
	return "0xmint", nil
}

type fakePublisher struct {
	mu     sync.Mutex
	events []journeyevents.JourneyStatusChangedEvent
}

func (f *fakePublisher) PublishStatusChanged(_ context.Context, event journeyevents.JourneyStatusChangedEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return nil
}

func testDonor() *model.Donor {
	d := model.NewDonor()
	d.DID = "did:hope:donor:d1"
	d.EthAddress = "0x1111111111111111111111111111111111111111"
	d.BloodType = "O-"
	d.ConsentGiven = true
	d.HealthCheckStatus = model.HealthFitForDonation
	d.PledgedOrgans = []model.PledgedOrgan{{
		ID:        "pledge-1",
		OrganType: model.OrganKidney,
		IsPledged: true,
		Status:    model.PledgeStatusPledged,
	}}
	return d
}

func testRequest(id string) *model.OrganRequest {
	r := model.NewOrganRequest()
	r.RequestID = id
	r.HospitalDID = "did:hope:hospital:h1"
	r.RecipientBloodType = "A+"
	r.OrganType = model.OrganKidney
	return r
}

type fixture struct {
	svc       *Service
	journeys  *memJourneys
	donors    *memDonors
	requests  *memRequests
	notary    *fakeNotary
	publisher *fakePublisher
}

func newFixture(notary *fakeNotary, donors *memDonors, requests *memRequests) *fixture {
	journeys := newMemJourneys()
	publisher := &fakePublisher{}
	return &fixture{
		svc:       NewService(journeys, donors, requests, notary, publisher, zap.NewNop()),
		journeys:  journeys,
		donors:    donors,
		requests:  requests,
		notary:    notary,
		publisher: publisher,
	}
}

func confirm(t *testing.T, f *fixture, requestID string) *model.TransplantLog {
	t.Helper()
	log, err := f.svc.ConfirmMatch(context.Background(), ConfirmMatchInput{
		RequestID: requestID,
		DonorDID:  "did:hope:donor:d1",
		PledgeID:  "pledge-1",
		Score:     0.87,
		ActorDID:  "did:hope:hospital:h1",
	})
	require.NoError(t, err)
	return log
}

func TestConfirmMatch_OpensJourney(t *testing.T) {
	f := newFixture(&fakeNotary{}, newMemDonors(testDonor()), newMemRequests(testRequest("req-1")))
	ctx := context.Background()

	log := confirm(t, f, "req-1")

	assert.Equal(t, model.StatusMatchConfirmed, log.CurrentStatus)
	require.Len(t, log.StatusHistory, 1)
	assert.Equal(t, "0xreg1", log.StatusHistory[0].TxRef)
	assert.Equal(t, "1", log.ChainOrganID)

	req, err := f.requests.FindByID(ctx, "req-1")
	require.NoError(t, err)
	assert.Equal(t, model.RequestTransplantScheduled, req.Status)
	require.NotNil(t, req.ConfirmedMatch)
	assert.Equal(t, log.JourneyID, req.ConfirmedMatch.JourneyID)

	donor, err := f.donors.FindByDID(ctx, "did:hope:donor:d1")
	require.NoError(t, err)
	assert.False(t, donor.PledgedOrgans[0].IsPledged)
	assert.Equal(t, model.PledgeStatusAllocated, donor.PledgedOrgans[0].Status)

	require.Len(t, f.publisher.events, 1)
	assert.Equal(t, model.StatusMatchConfirmed, f.publisher.events[0].ToStatus)
}

func TestConfirmMatch_ConcurrentAllocationHasOneWinner(t *testing.T) {
	f := newFixture(&fakeNotary{},
		newMemDonors(testDonor()),
		newMemRequests(testRequest("req-1"), testRequest("req-2")))

	var wg sync.WaitGroup
	results := make([]error, 2)
	for i, requestID := range []string{"req-1", "req-2"} {
		wg.Add(1)
		go func(i int, requestID string) {
			defer wg.Done()
			_, err := f.svc.ConfirmMatch(context.Background(), ConfirmMatchInput{
				RequestID: requestID,
				DonorDID:  "did:hope:donor:d1",
				PledgeID:  "pledge-1",
			})
			results[i] = err
		}(i, requestID)
	}
	wg.Wait()

	var conflicts, successes int
	for _, err := range results {
		if err == nil {
			successes++
			continue
		}
		var conflict *model.StateConflictError
		require.ErrorAs(t, err, &conflict)
		conflicts++
	}
	assert.Equal(t, 1, successes)
	assert.Equal(t, 1, conflicts)
}

func TestConfirmMatch_AllowedAfterMatchFound(t *testing.T) {
	req := testRequest("req-1")
	req.Status = model.RequestMatchFound
	f := newFixture(&fakeNotary{}, newMemDonors(testDonor()), newMemRequests(req))

	log := confirm(t, f, "req-1")
	assert.Equal(t, model.StatusMatchConfirmed, log.CurrentStatus)

	updated, err := f.requests.FindByID(context.Background(), "req-1")
	require.NoError(t, err)
	assert.Equal(t, model.RequestTransplantScheduled, updated.Status)
}

func TestConfirmMatch_ReusesPreRegisteredOrgan(t *testing.T) {
	donor := testDonor()
	donor.PledgedOrgans[0].Status = model.PledgeStatusAwaitsMatching
	donor.PledgedOrgans[0].ChainOrganID = "77"
	donor.PledgedOrgans[0].RegistrationTxRef = "0xpre"
	notary := &fakeNotary{}
	f := newFixture(notary, newMemDonors(donor), newMemRequests(testRequest("req-1")))

	log := confirm(t, f, "req-1")

	assert.Equal(t, 0, notary.registerCalls, "pre-registered organs must not be registered twice")
	assert.Equal(t, "77", log.ChainOrganID)
	assert.Equal(t, "0xpre", log.StatusHistory[0].TxRef)
}

func TestConfirmMatch_NotaryFailureIsSkippedNotFatal(t *testing.T) {
	f := newFixture(&fakeNotary{failAll: true}, newMemDonors(testDonor()), newMemRequests(testRequest("req-1")))

	log := confirm(t, f, "req-1")

	assert.True(t, model.IsNotarizationSkipped(log.StatusHistory[0].TxRef))
	assert.Empty(t, log.ChainOrganID)
}

func TestConfirmMatch_RejectsMismatchedOrganType(t *testing.T) {
	req := testRequest("req-1")
	req.OrganType = model.OrganHeart
	f := newFixture(&fakeNotary{}, newMemDonors(testDonor()), newMemRequests(req))

	_, err := f.svc.ConfirmMatch(context.Background(), ConfirmMatchInput{
		RequestID: "req-1",
		DonorDID:  "did:hope:donor:d1",
		PledgeID:  "pledge-1",
	})
	var validation *model.ValidationError
	require.ErrorAs(t, err, &validation)
}

func TestRecordRecovery(t *testing.T) {
	f := newFixture(&fakeNotary{}, newMemDonors(testDonor()), newMemRequests(testRequest("req-1")))
	ctx := context.Background()
	log := confirm(t, f, "req-1")

	updated, err := f.svc.RecordRecovery(ctx, RecoveryInput{
		JourneyID: log.JourneyID,
		ActorDID:  "did:hope:hospital:h1",
	})
	require.NoError(t, err)

	assert.Equal(t, model.StatusOrganRecovered, updated.CurrentStatus)
	require.Len(t, updated.StatusHistory, 2)
	assert.Equal(t, "0xstatus1", updated.StatusHistory[1].TxRef)

	donor, err := f.donors.FindByDID(ctx, "did:hope:donor:d1")
	require.NoError(t, err)
	assert.Equal(t, model.PledgeStatusRecovered, donor.PledgedOrgans[0].Status)
}

func TestCompletionFromInitialStatusIsRejected(t *testing.T) {
	f := newFixture(&fakeNotary{}, newMemDonors(testDonor()), newMemRequests(testRequest("req-1")))
	ctx := context.Background()
	log := confirm(t, f, "req-1")

	_, err := f.svc.RecordCompletion(ctx, CompletionInput{
		JourneyID: log.JourneyID,
		Outcome:   model.OutcomeSuccessful,
	})
	var conflict *model.StateConflictError
	require.ErrorAs(t, err, &conflict)

	// Record unchanged.
	unchanged, findErr := f.journeys.FindByID(ctx, log.JourneyID)
	require.NoError(t, findErr)
	assert.Equal(t, model.StatusMatchConfirmed, unchanged.CurrentStatus)
	assert.Len(t, unchanged.StatusHistory, 1)
	assert.Equal(t, 0, f.notary.outcomeCalls)
}

func TestIllegalTransportTransitionIsRejected(t *testing.T) {
	f := newFixture(&fakeNotary{}, newMemDonors(testDonor()), newMemRequests(testRequest("req-1")))
	log := confirm(t, f, "req-1")

	_, err := f.svc.UpdateStatus(context.Background(), StatusInput{
		JourneyID: log.JourneyID,
		Status:    model.StatusArrived,
	})
	var conflict *model.StateConflictError
	require.ErrorAs(t, err, &conflict)
}

func TestFullJourney_SuccessfulTransplant(t *testing.T) {
	f := newFixture(&fakeNotary{}, newMemDonors(testDonor()), newMemRequests(testRequest("req-1")))
	ctx := context.Background()
	log := confirm(t, f, "req-1")
	journeyID := log.JourneyID

	_, err := f.svc.RecordRecovery(ctx, RecoveryInput{JourneyID: journeyID})
	require.NoError(t, err)

	for _, status := range []model.JourneyStatus{
		model.StatusTransportStarted,
		"InTransit_Ambulance",
		model.StatusArrived,
		model.StatusPreTransplant,
		model.StatusSurgeryStarted,
	} {
		updated, err := f.svc.UpdateStatus(ctx, StatusInput{
			JourneyID: journeyID,
			Status:    status,
			ActorDID:  "did:hope:transport:t1",
			ActorRole: "transport",
		})
		require.NoError(t, err, string(status))
		assert.Equal(t, status, updated.CurrentStatus)
		assert.Equal(t, status, updated.StatusHistory[len(updated.StatusHistory)-1].Status,
			"current status must equal the last history entry")
	}

	inProgress, err := f.requests.FindByID(ctx, "req-1")
	require.NoError(t, err)
	assert.Equal(t, model.RequestTransplantInProgress, inProgress.Status,
		"surgery start must move the request to in progress")

	final, err := f.svc.RecordCompletion(ctx, CompletionInput{
		JourneyID: journeyID,
		Outcome:   model.OutcomeSuccessful,
		Notes:     "uneventful",
	})
	require.NoError(t, err)

	assert.Equal(t, model.StatusTransplantSuccess, final.CurrentStatus)
	assert.True(t, final.CurrentStatus.Terminal())
	assert.Len(t, final.StatusHistory, 8)
	require.NotNil(t, final.Outcome)
	assert.Equal(t, model.OutcomeSuccessful, *final.Outcome)

	req, err := f.requests.FindByID(ctx, "req-1")
	require.NoError(t, err)
	assert.Equal(t, model.RequestTransplantCompleted, req.Status)

	// Transport milestones notarized: recovery, transport start, in
	// transit, arrival.
	assert.Equal(t, 4, f.notary.statusCalls)
	assert.Equal(t, 1, f.notary.outcomeCalls)

	require.Len(t, f.notary.mintedAmounts, 1)
	assert.Equal(t, int64(TokenAwardTransplant), f.notary.mintedAmounts[0])
	assert.Equal(t, "0x1111111111111111111111111111111111111111", f.notary.mintedTo[0])

	// One event per transition.
	assert.Len(t, f.publisher.events, 8)
}

func TestRecordCompletion_FailureOutcome(t *testing.T) {
	f := newFixture(&fakeNotary{}, newMemDonors(testDonor()), newMemRequests(testRequest("req-1")))
	ctx := context.Background()
	log := confirm(t, f, "req-1")

	_, err := f.svc.RecordRecovery(ctx, RecoveryInput{JourneyID: log.JourneyID})
	require.NoError(t, err)

	final, err := f.svc.RecordCompletion(ctx, CompletionInput{
		JourneyID: log.JourneyID,
		Outcome:   model.OutcomeFailedGraftRejection,
	})
	require.NoError(t, err)

	assert.Equal(t, model.JourneyStatus("TransplantFailed_GraftRejection"), final.CurrentStatus)
	assert.True(t, final.CurrentStatus.Terminal())

	req, err := f.requests.FindByID(ctx, "req-1")
	require.NoError(t, err)
	assert.Equal(t, model.RequestClosedUnsuccessful, req.Status)

	assert.Empty(t, f.notary.mintedAmounts, "no award for a failed transplant")
}

func TestRecordCompletion_RejectsUnknownOutcome(t *testing.T) {
	f := newFixture(&fakeNotary{}, newMemDonors(testDonor()), newMemRequests(testRequest("req-1")))
	log := confirm(t, f, "req-1")

	_, err := f.svc.RecordCompletion(context.Background(), CompletionInput{
		JourneyID: log.JourneyID,
		Outcome:   model.TransplantOutcome("Exploded"),
	})
	var validation *model.ValidationError
	require.ErrorAs(t, err, &validation)
}

func TestUpdateStatus_NotaryFailureLeavesSkipMarker(t *testing.T) {
	notary := &fakeNotary{}
	f := newFixture(notary, newMemDonors(testDonor()), newMemRequests(testRequest("req-1")))
	ctx := context.Background()
	log := confirm(t, f, "req-1")

	_, err := f.svc.RecordRecovery(ctx, RecoveryInput{JourneyID: log.JourneyID})
	require.NoError(t, err)

	notary.failAll = true
	updated, err := f.svc.UpdateStatus(ctx, StatusInput{
		JourneyID: log.JourneyID,
		Status:    model.StatusTransportStarted,
	})
	require.NoError(t, err, "notarization failure must not fail the operation")

	last := updated.StatusHistory[len(updated.StatusHistory)-1]
	assert.True(t, model.IsNotarizationSkipped(last.TxRef))
	assert.Equal(t, model.StatusTransportStarted, updated.CurrentStatus)
}

func TestUpdateStatus_TerminalTargetRejected(t *testing.T) {
	f := newFixture(&fakeNotary{}, newMemDonors(testDonor()), newMemRequests(testRequest("req-1")))
	log := confirm(t, f, "req-1")

	_, err := f.svc.UpdateStatus(context.Background(), StatusInput{
		JourneyID: log.JourneyID,
		Status:    model.StatusTransplantSuccess,
	})
	var validation *model.ValidationError
	require.ErrorAs(t, err, &validation)
}
