package database

import (
	"context"
	"time"

	"github.com/arangodb/go-driver/v2/arangodb"

	"github.com/Shiva-74/HopeConnect/model"
)

// RequestStore provides persistence for organ request documents.
type RequestStore struct {
	conn DBConnection
}

// NewRequestStore creates a RequestStore over the given connection.
func NewRequestStore(conn DBConnection) *RequestStore {
	return &RequestStore{conn: conn}
}

// Create persists a new organ request and fills in its key.
func (s *RequestStore) Create(ctx context.Context, r *model.OrganRequest) error {
	meta, err := s.conn.Collections[ColOrganRequests].CreateDocument(ctx, r)
	if err != nil {
		return err
	}
	r.Key = meta.Key
	return nil
}

// FindByID looks an organ request up by request id.
func (s *RequestStore) FindByID(ctx context.Context, requestID string) (*model.OrganRequest, error) {
	query := `
		FOR r IN organ_requests
			FILTER r.request_id == @id
			LIMIT 1
			RETURN r
	`
	bindVars := map[string]interface{}{
		"id": requestID,
	}

	cursor, err := s.conn.Database.Query(ctx, query, &arangodb.QueryOptions{
		BindVars: bindVars,
	})
	if err != nil {
		return nil, err
	}
	defer cursor.Close()

	if cursor.HasMore() {
		var req model.OrganRequest
		if _, err := cursor.ReadDocument(ctx, &req); err != nil {
			return nil, err
		}
		return &req, nil
	}

	return nil, model.NewNotFoundError("organ request", requestID)
}

// ListByHospital returns all requests filed by a hospital, newest first.
func (s *RequestStore) ListByHospital(ctx context.Context, hospitalDID string) ([]model.OrganRequest, error) {
	query := `
		FOR r IN organ_requests
			FILTER r.hospital_did == @hospital
			SORT r.created_at DESC
			RETURN r
	`
	bindVars := map[string]interface{}{
		"hospital": hospitalDID,
	}

	cursor, err := s.conn.Database.Query(ctx, query, &arangodb.QueryOptions{
		BindVars: bindVars,
	})
	if err != nil {
		return nil, err
	}
	defer cursor.Close()

	requests := []model.OrganRequest{}
	for cursor.HasMore() {
		var req model.OrganRequest
		if _, err := cursor.ReadDocument(ctx, &req); err != nil {
			return nil, err
		}
		requests = append(requests, req)
	}

	return requests, nil
}

// AttachConfirmedMatch records the confirmed match on a request, conditioned
// on the request still awaiting one (pending_match or
// match_found_awaits_confirmation). A request that moved under the caller
// yields a StateConflictError and stays unchanged.
func (s *RequestStore) AttachConfirmedMatch(ctx context.Context, requestID string, match model.ConfirmedMatch) (*model.OrganRequest, error) {
	query := `
		FOR r IN organ_requests
			FILTER r.request_id == @id AND r.status IN @awaiting
			UPDATE r WITH {
				status: @scheduled,
				confirmed_match: @match,
				updated_at: @now
			} IN organ_requests
			RETURN NEW
	`
	bindVars := map[string]interface{}{
		"id":        requestID,
		"awaiting":  []model.RequestStatus{model.RequestPendingMatch, model.RequestMatchFound},
		"scheduled": model.RequestTransplantScheduled,
		"match":     match,
		"now":       time.Now().UTC(),
	}

	cursor, err := s.conn.Database.Query(ctx, query, &arangodb.QueryOptions{
		BindVars: bindVars,
	})
	if err != nil {
		return nil, err
	}
	defer cursor.Close()

	if cursor.HasMore() {
		var req model.OrganRequest
		if _, err := cursor.ReadDocument(ctx, &req); err != nil {
			return nil, err
		}
		return &req, nil
	}

	return nil, model.NewStateConflictError("organ request", "request is not awaiting a match")
}

// SetStatus moves a request to the given status unconditionally.
func (s *RequestStore) SetStatus(ctx context.Context, requestID string, status model.RequestStatus) error {
	query := `
		FOR r IN organ_requests
			FILTER r.request_id == @id
			UPDATE r WITH { status: @status, updated_at: @now } IN organ_requests
			RETURN NEW
	`
	bindVars := map[string]interface{}{
		"id":     requestID,
		"status": status,
		"now":    time.Now().UTC(),
	}

	cursor, err := s.conn.Database.Query(ctx, query, &arangodb.QueryOptions{
		BindVars: bindVars,
	})
	if err != nil {
		return err
	}
	defer cursor.Close()

	if !cursor.HasMore() {
		return model.NewNotFoundError("organ request", requestID)
	}
	return nil
}
