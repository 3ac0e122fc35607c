package database

import (
	"context"
	"time"

	"github.com/arangodb/go-driver/v2/arangodb"

	"github.com/Shiva-74/HopeConnect/model"
)

// DonorStore provides persistence for donor pledge documents.
type DonorStore struct {
	conn DBConnection
}

// NewDonorStore creates a DonorStore over the given connection.
func NewDonorStore(conn DBConnection) *DonorStore {
	return &DonorStore{conn: conn}
}

// Create persists a new donor document and fills in its key.
func (s *DonorStore) Create(ctx context.Context, d *model.Donor) error {
	meta, err := s.conn.Collections[ColDonors].CreateDocument(ctx, d)
	if err != nil {
		return err
	}
	d.Key = meta.Key
	return nil
}

// FindByDID looks a donor up by DID.
func (s *DonorStore) FindByDID(ctx context.Context, did string) (*model.Donor, error) {
	query := `
		FOR d IN donors
			FILTER d.did == @did
			LIMIT 1
			RETURN d
	`
	bindVars := map[string]interface{}{
		"did": did,
	}

	cursor, err := s.conn.Database.Query(ctx, query, &arangodb.QueryOptions{
		BindVars: bindVars,
	})
	if err != nil {
		return nil, err
	}
	defer cursor.Close()

	if cursor.HasMore() {
		var donor model.Donor
		if _, err := cursor.ReadDocument(ctx, &donor); err != nil {
			return nil, err
		}
		return &donor, nil
	}

	return nil, model.NewNotFoundError("donor", did)
}

// ListEligible returns donors that are candidates for matching on the given
// organ type: consent given, fit for donation, and an actively pledged organ
// of that type.
func (s *DonorStore) ListEligible(ctx context.Context, organType model.OrganType) ([]model.Donor, error) {
	query := `
		FOR d IN donors
			FILTER d.consent_given == true
			   AND d.health_check_status == @fit
			   AND LENGTH(
				FOR p IN d.pledged_organs
					FILTER p.organ_type == @organType
					   AND p.is_pledged == true
					   AND p.status IN @matchable
					RETURN 1
			   ) > 0
			RETURN d
	`
	bindVars := map[string]interface{}{
		"fit":       model.HealthFitForDonation,
		"organType": organType,
		"matchable": []model.PledgeStatus{model.PledgeStatusPledged, model.PledgeStatusAwaitsMatching},
	}

	cursor, err := s.conn.Database.Query(ctx, query, &arangodb.QueryOptions{
		BindVars: bindVars,
	})
	if err != nil {
		return nil, err
	}
	defer cursor.Close()

	donors := []model.Donor{}
	for cursor.HasMore() {
		var donor model.Donor
		if _, err := cursor.ReadDocument(ctx, &donor); err != nil {
			return nil, err
		}
		donors = append(donors, donor)
	}

	return donors, nil
}

// UpdateConsent records a consent decision on the donor document.
func (s *DonorStore) UpdateConsent(ctx context.Context, did string, given bool, formURL, detailsHash, txRef string) (*model.Donor, error) {
	query := `
		FOR d IN donors
			FILTER d.did == @did
			UPDATE d WITH {
				consent_given: @given,
				consent_form_url: @formURL,
				consent_details_hash: @detailsHash,
				ledger_refs: MERGE(d.ledger_refs, { consent_recording: @txRef }),
				updated_at: @now
			} IN donors
			RETURN NEW
	`
	bindVars := map[string]interface{}{
		"did":         did,
		"given":       given,
		"formURL":     formURL,
		"detailsHash": detailsHash,
		"txRef":       txRef,
		"now":         time.Now().UTC(),
	}

	return s.queryOne(ctx, query, bindVars, did)
}

// UpdateHealth records a health-check result on the donor document.
func (s *DonorStore) UpdateHealth(ctx context.Context, did string, status model.HealthCheckStatus, score *float64, txRef string) (*model.Donor, error) {
	query := `
		FOR d IN donors
			FILTER d.did == @did
			UPDATE d WITH {
				health_check_status: @status,
				health_score: @score,
				last_health_check_date: @now,
				ledger_refs: MERGE(d.ledger_refs, { health_update: @txRef }),
				updated_at: @now
			} IN donors
			RETURN NEW
	`
	bindVars := map[string]interface{}{
		"did":    did,
		"status": status,
		"score":  score,
		"txRef":  txRef,
		"now":    time.Now().UTC(),
	}

	return s.queryOne(ctx, query, bindVars, did)
}

// AllocatePledge flips one pledged organ to allocated, conditioned on it
// still being actively pledged. The filter and update run in a single AQL
// statement so two concurrent allocations of the same pledge cannot both
// succeed; the loser gets a StateConflictError.
func (s *DonorStore) AllocatePledge(ctx context.Context, did, pledgeID string) error {
	query := `
		FOR d IN donors
			FILTER d.did == @did
			   AND LENGTH(
				FOR p IN d.pledged_organs
					FILTER p.id == @pledgeID
					   AND p.is_pledged == true
					   AND p.status IN @matchable
					RETURN 1
			   ) > 0
			UPDATE d WITH {
				pledged_organs: (
					FOR p IN d.pledged_organs
						RETURN p.id == @pledgeID
							? MERGE(p, { is_pledged: false, status: @allocated })
							: p
				),
				updated_at: @now
			} IN donors
			RETURN NEW
	`
	bindVars := map[string]interface{}{
		"did":       did,
		"pledgeID":  pledgeID,
		"matchable": []model.PledgeStatus{model.PledgeStatusPledged, model.PledgeStatusAwaitsMatching},
		"allocated": model.PledgeStatusAllocated,
		"now":       time.Now().UTC(),
	}

	cursor, err := s.conn.Database.Query(ctx, query, &arangodb.QueryOptions{
		BindVars: bindVars,
	})
	if err != nil {
		return err
	}
	defer cursor.Close()

	if !cursor.HasMore() {
		return model.NewStateConflictError("pledge", "organ pledge is no longer available for allocation")
	}
	return nil
}

// MarkPledgeRegistered records an on-chain pre-registration on one pledge
// and moves it to awaits_matching, conditioned on it still sitting at
// pledged. A pledge that was already registered or allocated yields a
// StateConflictError.
func (s *DonorStore) MarkPledgeRegistered(ctx context.Context, did, pledgeID, chainOrganID, txRef string) (*model.Donor, error) {
	query := `
		FOR d IN donors
			FILTER d.did == @did
			   AND LENGTH(
				FOR p IN d.pledged_organs
					FILTER p.id == @pledgeID
					   AND p.is_pledged == true
					   AND p.status == @pledged
					RETURN 1
			   ) > 0
			UPDATE d WITH {
				pledged_organs: (
					FOR p IN d.pledged_organs
						RETURN p.id == @pledgeID
							? MERGE(p, {
								status: @awaits,
								chain_organ_id: @chainOrganID,
								registration_tx_ref: @txRef
							})
							: p
				),
				updated_at: @now
			} IN donors
			RETURN NEW
	`
	bindVars := map[string]interface{}{
		"did":          did,
		"pledgeID":     pledgeID,
		"pledged":      model.PledgeStatusPledged,
		"awaits":       model.PledgeStatusAwaitsMatching,
		"chainOrganID": chainOrganID,
		"txRef":        txRef,
		"now":          time.Now().UTC(),
	}

	cursor, err := s.conn.Database.Query(ctx, query, &arangodb.QueryOptions{
		BindVars: bindVars,
	})
	if err != nil {
		return nil, err
	}
	defer cursor.Close()

	if cursor.HasMore() {
		var donor model.Donor
		if _, err := cursor.ReadDocument(ctx, &donor); err != nil {
			return nil, err
		}
		return &donor, nil
	}

	return nil, model.NewStateConflictError("pledge", "organ pledge is not available for registration")
}

// RestorePledge returns an allocated organ to the pledged pool. Used to
// undo an allocation whose follow-up steps failed.
func (s *DonorStore) RestorePledge(ctx context.Context, did, pledgeID string) error {
	query := `
		FOR d IN donors
			FILTER d.did == @did
			UPDATE d WITH {
				pledged_organs: (
					FOR p IN d.pledged_organs
						RETURN p.id == @pledgeID
							? MERGE(p, { is_pledged: true, status: @pledged })
							: p
				),
				updated_at: @now
			} IN donors
			RETURN NEW
	`
	bindVars := map[string]interface{}{
		"did":      did,
		"pledgeID": pledgeID,
		"pledged":  model.PledgeStatusPledged,
		"now":      time.Now().UTC(),
	}

	cursor, err := s.conn.Database.Query(ctx, query, &arangodb.QueryOptions{
		BindVars: bindVars,
	})
	if err != nil {
		return err
	}
	defer cursor.Close()

	if !cursor.HasMore() {
		return model.NewNotFoundError("donor", did)
	}
	return nil
}

// SetPledgeStatus moves one pledged organ to the given status without
// touching the allocation flag.
func (s *DonorStore) SetPledgeStatus(ctx context.Context, did, pledgeID string, status model.PledgeStatus) error {
	query := `
		FOR d IN donors
			FILTER d.did == @did
			UPDATE d WITH {
				pledged_organs: (
					FOR p IN d.pledged_organs
						RETURN p.id == @pledgeID ? MERGE(p, { status: @status }) : p
				),
				updated_at: @now
			} IN donors
			RETURN NEW
	`
	bindVars := map[string]interface{}{
		"did":      did,
		"pledgeID": pledgeID,
		"status":   status,
		"now":      time.Now().UTC(),
	}

	cursor, err := s.conn.Database.Query(ctx, query, &arangodb.QueryOptions{
		BindVars: bindVars,
	})
	if err != nil {
		return err
	}
	defer cursor.Close()

	if !cursor.HasMore() {
		return model.NewNotFoundError("donor", did)
	}
	return nil
}

func (s *DonorStore) queryOne(ctx context.Context, query string, bindVars map[string]interface{}, did string) (*model.Donor, error) {
	cursor, err := s.conn.Database.Query(ctx, query, &arangodb.QueryOptions{
		BindVars: bindVars,
	})
	if err != nil {
		return nil, err
	}
	defer cursor.Close()

	if cursor.HasMore() {
		var donor model.Donor
		if _, err := cursor.ReadDocument(ctx, &donor); err != nil {
			return nil, err
		}
		return &donor, nil
	}

	return nil, model.NewNotFoundError("donor", did)
}
