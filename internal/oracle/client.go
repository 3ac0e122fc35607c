// Package oracle is the HTTP client for the AI ranking service, which
// scores donor/recipient pairs and assesses donor health.
package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Organ describes the organ being matched, in the scoring service's wire
// format.
type Organ struct {
	OrganType          string  `json:"organ_type"`
	DonorAge           int     `json:"donor_age"`
	DonorBloodType     string  `json:"donor_blood_type"`
	DonorHLAA1         string  `json:"donor_hla_a1"`
	DonorHLAA2         string  `json:"donor_hla_a2"`
	DonorHLAB1         string  `json:"donor_hla_b1"`
	DonorHLAB2         string  `json:"donor_hla_b2"`
	DonorLocationLat   float64 `json:"donor_location_lat"`
	DonorLocationLon   float64 `json:"donor_location_lon"`
	DonorComorbidities int     `json:"donor_comorbidities"`
}

// Recipient describes one candidate recipient.
type Recipient struct {
	RecipientID            string  `json:"recipient_id"`
	RecipientAge           int     `json:"recipient_age"`
	RecipientBloodType     string  `json:"recipient_blood_type"`
	RecipientHLAA1         string  `json:"recipient_hla_a1"`
	RecipientHLAA2         string  `json:"recipient_hla_a2"`
	RecipientHLAB1         string  `json:"recipient_hla_b1"`
	RecipientHLAB2         string  `json:"recipient_hla_b2"`
	RecipientLocationLat   float64 `json:"recipient_location_lat"`
	RecipientLocationLon   float64 `json:"recipient_location_lon"`
	UrgencyScore           int     `json:"urgency_score"`
	RecipientComorbidities int     `json:"recipient_comorbidities"`
}

// LogisticsHint carries the transport estimate for one recipient.
type LogisticsHint struct {
	EstimatedColdIschemiaHours float64 `json:"estimated_cold_ischemia_hours"`
}

// MatchRequest is the scoring request body.
type MatchRequest struct {
	Organ      Organ                    `json:"organ"`
	Recipients []Recipient              `json:"recipients"`
	Logistics  map[string]LogisticsHint `json:"logistics,omitempty"`
}

// MatchScore is one scored pairing. Error is set when the service could not
// score that recipient; the score is then zero.
type MatchScore struct {
	RecipientID string                 `json:"recipient_id"`
	Score       float64                `json:"score"`
	Details     map[string]interface{} `json:"details,omitempty"`
	Error       string                 `json:"error,omitempty"`
}

// HealthAssessmentRequest is the donor screening request body.
type HealthAssessmentRequest struct {
	DonorAge           int                    `json:"donor_age"`
	OrganType          string                 `json:"organ_type"`
	ComorbiditiesCount int                    `json:"comorbidities_count"`
	LifestyleFactors   map[string]interface{} `json:"lifestyle_factors,omitempty"`
	LabResults         map[string]interface{} `json:"lab_results,omitempty"`
}

// Client calls the AI ranking service.
type Client struct {
	baseURL string
	http    *http.Client
	log     *zap.Logger
}

// NewClient creates a client for the service at baseURL.
func NewClient(baseURL string, log *zap.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 15 * time.Second},
		log:     log,
	}
}

// MatchOrgans submits a scoring request and returns the scored pairings,
// already sorted descending by score on the service side.
func (c *Client) MatchOrgans(ctx context.Context, req MatchRequest) ([]MatchScore, error) {
	var scores []MatchScore
	if err := c.post(ctx, "/api/match_organs", req, &scores); err != nil {
		return nil, err
	}
	return scores, nil
}

// AssessDonorHealth submits a donor for health scoring and returns the
// score on a 0-100 scale.
func (c *Client) AssessDonorHealth(ctx context.Context, req HealthAssessmentRequest) (float64, error) {
	var resp struct {
		DonorHealthScore float64 `json:"donor_health_score"`
	}
	if err := c.post(ctx, "/api/assess_donor_health", req, &resp); err != nil {
		return 0, err
	}
	return resp.DonorHealthScore, nil
}

// Health checks the service's liveness and model state.
func (c *Client) Health(ctx context.Context) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/health", nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ranking service health check returned %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) post(ctx context.Context, path string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("ranking service %s returned %d: %s", path, resp.StatusCode, string(msg))
	}

	return json.NewDecoder(resp.Body).Decode(out)
}
