package database

import (
	"context"

	"github.com/arangodb/go-driver/v2/arangodb"

	"github.com/Shiva-74/HopeConnect/model"
)

// RedemptionStore provides persistence for token redemption records.
type RedemptionStore struct {
	conn DBConnection
}

// NewRedemptionStore creates a RedemptionStore over the given connection.
func NewRedemptionStore(conn DBConnection) *RedemptionStore {
	return &RedemptionStore{conn: conn}
}

// Create persists a redemption record and fills in its key.
func (s *RedemptionStore) Create(ctx context.Context, r *model.RedemptionLog) error {
	meta, err := s.conn.Collections[ColRedemptions].CreateDocument(ctx, r)
	if err != nil {
		return err
	}
	r.Key = meta.Key
	return nil
}

// ListByDonor returns a donor's redemptions, newest first.
func (s *RedemptionStore) ListByDonor(ctx context.Context, donorDID string) ([]model.RedemptionLog, error) {
	query := `
		FOR r IN redemptions
			FILTER r.donor_did == @donor
			SORT r.redeemed_at DESC
			RETURN r
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

	logs := []model.RedemptionLog{}
	for cursor.HasMore() {
		var log model.RedemptionLog
		if _, err := cursor.ReadDocument(ctx, &log); err != nil {
			return nil, err
		}
		logs = append(logs, log)
	}

	return logs, nil
}
