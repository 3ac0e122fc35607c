package database

import (
	"context"
	"time"

	"github.com/arangodb/go-driver/v2/arangodb"

	"github.com/Shiva-74/HopeConnect/model"
)

// JourneyStore provides persistence for transplant journey records.
type JourneyStore struct {
	conn DBConnection
}

// NewJourneyStore creates a JourneyStore over the given connection.
func NewJourneyStore(conn DBConnection) *JourneyStore {
	return &JourneyStore{conn: conn}
}

// Create persists a new journey record and fills in its key.
func (s *JourneyStore) Create(ctx context.Context, t *model.TransplantLog) error {
	meta, err := s.conn.Collections[ColTransplants].CreateDocument(ctx, t)
	if err != nil {
		return err
	}
	t.Key = meta.Key
	return nil
}

// FindByID looks a journey up by journey id.
func (s *JourneyStore) FindByID(ctx context.Context, journeyID string) (*model.TransplantLog, error) {
	query := `
		FOR t IN transplant_logs
			FILTER t.journey_id == @id
			LIMIT 1
			RETURN t
	`
	bindVars := map[string]interface{}{
		"id": journeyID,
	}

	cursor, err := s.conn.Database.Query(ctx, query, &arangodb.QueryOptions{
		BindVars: bindVars,
	})
	if err != nil {
		return nil, err
	}
	defer cursor.Close()

	if cursor.HasMore() {
		var log model.TransplantLog
		if _, err := cursor.ReadDocument(ctx, &log); err != nil {
			return nil, err
		}
		return &log, nil
	}

	return nil, model.NewNotFoundError("journey", journeyID)
}

// AppendStatus appends a history entry and advances the current status,
// conditioned on the record still being at the expected status. The filter
// and update run as one AQL statement so concurrent transitions on the same
// journey serialize: the loser sees a StateConflictError and the record is
// untouched. Extra top-level fields (outcome, anonymized stats) are merged
// in with the same write.
func (s *JourneyStore) AppendStatus(ctx context.Context, journeyID string, expected model.JourneyStatus, entry model.StatusUpdate, extra map[string]interface{}) (*model.TransplantLog, error) {
	if extra == nil {
		extra = map[string]interface{}{}
	}

	query := `
		FOR t IN transplant_logs
			FILTER t.journey_id == @id AND t.current_status == @expected
			UPDATE t WITH MERGE({
				current_status: @entry.status,
				status_history: APPEND(t.status_history, @entry),
				updated_at: @now
			}, @extra) IN transplant_logs
			RETURN NEW
	`
	bindVars := map[string]interface{}{
		"id":       journeyID,
		"expected": expected,
		"entry":    entry,
		"extra":    extra,
		"now":      time.Now().UTC(),
	}

	cursor, err := s.conn.Database.Query(ctx, query, &arangodb.QueryOptions{
		BindVars: bindVars,
	})
	if err != nil {
		return nil, err
	}
	defer cursor.Close()

	if cursor.HasMore() {
		var log model.TransplantLog
		if _, err := cursor.ReadDocument(ctx, &log); err != nil {
			return nil, err
		}
		return &log, nil
	}

	// Zero rows means either the journey does not exist or it moved under
	// the caller. Look it up once to tell the two apart.
	if _, err := s.FindByID(ctx, journeyID); err != nil {
		return nil, err
	}
	return nil, model.NewStateConflictError("journey", "journey status changed since it was read")
}

// ListByDonor returns all journeys for a donor, newest first.
func (s *JourneyStore) ListByDonor(ctx context.Context, donorDID string) ([]model.TransplantLog, error) {
	query := `
		FOR t IN transplant_logs
			FILTER t.donor_did == @donor
			SORT t.created_at DESC
			RETURN t
	`
	bindVars := map[string]interface{}{
		"donor": donorDID,
	}

	cursor, err := s.conn.Database.Query(ctx, query, &arangodb.QueryOptions{
		BindVars: bindVars,
	})
	if err != nil {
		return nil, err
	}
	defer cursor.Close()

	logs := []model.TransplantLog{}
	for cursor.HasMore() {
		var log model.TransplantLog
		if _, err := cursor.ReadDocument(ctx, &log); err != nil {
			return nil, err
		}
		logs = append(logs, log)
	}

	return logs, nil
}
