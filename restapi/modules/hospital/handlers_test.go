package hospital

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Shiva-74/HopeConnect/internal/ledger"
	"github.com/Shiva-74/HopeConnect/internal/matching"
	"github.com/Shiva-74/HopeConnect/model"
)

type fakeRegistry struct {
	donor *model.Donor
}

func (f *fakeRegistry) FindByDID(_ context.Context, did string) (*model.Donor, error) {
	if f.donor == nil || f.donor.DID != did {
		return nil, model.NewNotFoundError("donor", did)
	}
	copied := *f.donor
	copied.PledgedOrgans = append([]model.PledgedOrgan{}, f.donor.PledgedOrgans...)
	return &copied, nil
}

func (f *fakeRegistry) MarkPledgeRegistered(_ context.Context, _, pledgeID, chainOrganID, txRef string) (*model.Donor, error) {
	for i := range f.donor.PledgedOrgans {
		p := &f.donor.PledgedOrgans[i]
		if p.ID != pledgeID {
			continue
		}
		if !p.IsPledged || p.Status != model.PledgeStatusPledged {
			return nil, model.NewStateConflictError("pledge", "organ pledge is not available for registration")
		}
		p.Status = model.PledgeStatusAwaitsMatching
		p.ChainOrganID = chainOrganID
		p.RegistrationTxRef = txRef
		return f.donor, nil
	}
	return nil, model.NewStateConflictError("pledge", "organ pledge is not available for registration")
}

type fakeRegistrar struct {
	err    error
	code   uint8
	called bool
}

func (f *fakeRegistrar) RegisterOrgan(_ context.Context, _ string, code uint8, _ string) (string, string, error) {
	f.called = true
	f.code = code
	if f.err != nil {
		return "", "", f.err
	}
	return "0xreg", "42", nil
}

type fakeRequests struct {
	request *model.OrganRequest
	setTo   []model.RequestStatus
}

func (f *fakeRequests) FindByID(_ context.Context, requestID string) (*model.OrganRequest, error) {
	if f.request == nil || f.request.RequestID != requestID {
		return nil, model.NewNotFoundError("organ request", requestID)
	}
	copied := *f.request
	return &copied, nil
}

func (f *fakeRequests) SetStatus(_ context.Context, _ string, status model.RequestStatus) error {
	f.setTo = append(f.setTo, status)
	f.request.Status = status
	return nil
}

type fakeFinder struct {
	result *matching.Result
	err    error
}

func (f *fakeFinder) FindMatches(_ context.Context, _ *model.OrganRequest) (*matching.Result, error) {
	return f.result, f.err
}

func registrableDonor() *model.Donor {
	d := model.NewDonor()
	d.DID = "did:hope:donor:d1"
	d.ConsentGiven = true
	d.PledgedOrgans = []model.PledgedOrgan{{
		ID:        "pledge-1",
		OrganType: model.OrganKidney,
		IsPledged: true,
		Status:    model.PledgeStatusPledged,
	}}
	return d
}

func doJSON(t *testing.T, app *fiber.App, method, path string, body interface{}) *http.Response {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", fiber.MIMEApplicationJSON)
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp
}

func registerOrganApp(registry *fakeRegistry, registrar *fakeRegistrar) *fiber.App {
	app := fiber.New()
	app.Post("/register-organ", PostRegisterOrgan(registry, registrar))
	return app
}

func TestPostRegisterOrgan(t *testing.T) {
	registry := &fakeRegistry{donor: registrableDonor()}
	registrar := &fakeRegistrar{}
	app := registerOrganApp(registry, registrar)

	resp := doJSON(t, app, http.MethodPost, "/register-organ", RegisterOrganBody{
		DonorDID:    "did:hope:donor:d1",
		PledgeID:    "pledge-1",
		HospitalDID: "did:hope:hospital:h1",
	})
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, registrar.called)
	assert.Equal(t, uint8(3), registrar.code, "kidney contract code")

	pledge := registry.donor.PledgedOrgans[0]
	assert.Equal(t, model.PledgeStatusAwaitsMatching, pledge.Status)
	assert.Equal(t, "42", pledge.ChainOrganID)
	assert.Equal(t, "0xreg", pledge.RegistrationTxRef)
}

func TestPostRegisterOrgan_WithoutConsent(t *testing.T) {
	donor := registrableDonor()
	donor.ConsentGiven = false
	registrar := &fakeRegistrar{}
	app := registerOrganApp(&fakeRegistry{donor: donor}, registrar)

	resp := doJSON(t, app, http.MethodPost, "/register-organ", RegisterOrganBody{
		DonorDID:    "did:hope:donor:d1",
		PledgeID:    "pledge-1",
		HospitalDID: "did:hope:hospital:h1",
	})
	defer resp.Body.Close()

	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.False(t, registrar.called)
}

func TestPostRegisterOrgan_AlreadyRegistered(t *testing.T) {
	donor := registrableDonor()
	donor.PledgedOrgans[0].Status = model.PledgeStatusAwaitsMatching
	app := registerOrganApp(&fakeRegistry{donor: donor}, &fakeRegistrar{})

	resp := doJSON(t, app, http.MethodPost, "/register-organ", RegisterOrganBody{
		DonorDID:    "did:hope:donor:d1",
		PledgeID:    "pledge-1",
		HospitalDID: "did:hope:hospital:h1",
	})
	defer resp.Body.Close()

	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestPostRegisterOrgan_UnknownPledge(t *testing.T) {
	app := registerOrganApp(&fakeRegistry{donor: registrableDonor()}, &fakeRegistrar{})

	resp := doJSON(t, app, http.MethodPost, "/register-organ", RegisterOrganBody{
		DonorDID:    "did:hope:donor:d1",
		PledgeID:    "pledge-9",
		HospitalDID: "did:hope:hospital:h1",
	})
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestPostRegisterOrgan_LedgerFailureFailsRequest(t *testing.T) {
	registry := &fakeRegistry{donor: registrableDonor()}
	registrar := &fakeRegistrar{err: &ledger.RevertError{Method: "registerOrgan", Err: errors.New("execution reverted")}}
	app := registerOrganApp(registry, registrar)

	resp := doJSON(t, app, http.MethodPost, "/register-organ", RegisterOrganBody{
		DonorDID:    "did:hope:donor:d1",
		PledgeID:    "pledge-1",
		HospitalDID: "did:hope:hospital:h1",
	})
	defer resp.Body.Close()

	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, model.PledgeStatusPledged, registry.donor.PledgedOrgans[0].Status,
		"pledge must stay pledged when the ledger call fails")
}

func matchesApp(requests *fakeRequests, finder *fakeFinder) *fiber.App {
	app := fiber.New()
	app.Get("/organ-requests/:id/matches", GetMatches(requests, finder, zap.NewNop()))
	return app
}

func pendingRequest() *model.OrganRequest {
	r := model.NewOrganRequest()
	r.RequestID = "req-1"
	r.OrganType = model.OrganKidney
	return r
}

func TestGetMatches_MarksMatchFound(t *testing.T) {
	requests := &fakeRequests{request: pendingRequest()}
	finder := &fakeFinder{result: &matching.Result{
		Matches: []matching.RankedMatch{{DonorDID: "did:hope:donor:d1", Score: 0.9}},
	}}
	app := matchesApp(requests, finder)

	resp := doJSON(t, app, http.MethodGet, "/organ-requests/req-1/matches", nil)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, requests.setTo, 1)
	assert.Equal(t, model.RequestMatchFound, requests.setTo[0])
}

func TestGetMatches_NoCandidatesKeepsPending(t *testing.T) {
	requests := &fakeRequests{request: pendingRequest()}
	finder := &fakeFinder{result: &matching.Result{Matches: []matching.RankedMatch{}}}
	app := matchesApp(requests, finder)

	resp := doJSON(t, app, http.MethodGet, "/organ-requests/req-1/matches", nil)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, requests.setTo)
}

func TestGetMatches_RerunAfterMatchFound(t *testing.T) {
	request := pendingRequest()
	request.Status = model.RequestMatchFound
	requests := &fakeRequests{request: request}
	finder := &fakeFinder{result: &matching.Result{
		Matches: []matching.RankedMatch{{DonorDID: "did:hope:donor:d1", Score: 0.9}},
	}}
	app := matchesApp(requests, finder)

	resp := doJSON(t, app, http.MethodGet, "/organ-requests/req-1/matches", nil)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, requests.setTo, "already marked; no second status write")
}

func TestGetMatches_ConfirmedRequestRejected(t *testing.T) {
	request := pendingRequest()
	request.Status = model.RequestTransplantScheduled
	app := matchesApp(&fakeRequests{request: request}, &fakeFinder{})

	resp := doJSON(t, app, http.MethodGet, "/organ-requests/req-1/matches", nil)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}
