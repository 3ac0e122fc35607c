// Package matching plans donor/recipient pairings for an organ request. It
// is a read-only step: candidate selection, compatibility filtering, and AI
// ranking, with no writes to the data model.
package matching

import (
	"context"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Shiva-74/HopeConnect/internal/oracle"
	"github.com/Shiva-74/HopeConnect/model"
	"github.com/Shiva-74/HopeConnect/util"
)

// defaultColdIschemiaHours is the coarse logistics estimate used when no
// transport plan exists yet.
const defaultColdIschemiaHours = 4.0

// DonorSource lists donors eligible for matching on an organ type.
type DonorSource interface {
	ListEligible(ctx context.Context, organType model.OrganType) ([]model.Donor, error)
}

// Scorer ranks donor/recipient pairings.
type Scorer interface {
	MatchOrgans(ctx context.Context, req oracle.MatchRequest) ([]oracle.MatchScore, error)
}

// RankedMatch is one scored candidate pairing.
type RankedMatch struct {
	DonorDID  string                 `json:"donor_did"`
	PledgeID  string                 `json:"pledge_id"`
	BloodType string                 `json:"blood_type"`
	Score     float64                `json:"score"`
	Details   map[string]interface{} `json:"details,omitempty"`
}

// Result is the outcome of one matching run. An empty Matches with
// OracleDegraded false means no candidate passed selection and filtering;
// with OracleDegraded true it means candidates existed but every scoring
// call failed.
type Result struct {
	Request        *model.OrganRequest `json:"request"`
	Matches        []RankedMatch       `json:"matches"`
	OracleDegraded bool                `json:"oracle_degraded"`
}

// Orchestrator runs the matching pipeline.
type Orchestrator struct {
	donors DonorSource
	scorer Scorer
	log    *zap.Logger
}

// NewOrchestrator creates an Orchestrator.
func NewOrchestrator(donors DonorSource, scorer Scorer, log *zap.Logger) *Orchestrator {
	return &Orchestrator{donors: donors, scorer: scorer, log: log}
}

// FindMatches ranks eligible, blood-compatible donors for the request. Each
// candidate is scored with an independent oracle call; one candidate's
// scoring failure excludes only that candidate. Ties keep candidate-list
// order (stable sort).
func (o *Orchestrator) FindMatches(ctx context.Context, req *model.OrganRequest) (*Result, error) {
	donors, err := o.donors.ListEligible(ctx, req.OrganType)
	if err != nil {
		return nil, err
	}

	compatible := make([]model.Donor, 0, len(donors))
	for _, d := range donors {
		if util.IsBloodTypeCompatible(d.BloodType, req.RecipientBloodType) {
			compatible = append(compatible, d)
		}
	}

	matches := []RankedMatch{}
	failures := 0
	for _, d := range compatible {
		pledge := d.ActivePledge(req.OrganType)
		if pledge == nil {
			continue
		}

		score, err := o.scoreCandidate(ctx, &d, req)
		if err != nil {
			failures++
			o.log.Warn("excluding candidate after scoring failure",
				zap.String("donor_did", d.DID),
				zap.String("request_id", req.RequestID),
				zap.Error(err))
			continue
		}

		matches = append(matches, RankedMatch{
			DonorDID:  d.DID,
			PledgeID:  pledge.ID,
			BloodType: d.BloodType,
			Score:     score.Score,
			Details:   score.Details,
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})

	return &Result{
		Request:        req,
		Matches:        matches,
		OracleDegraded: len(matches) == 0 && failures > 0,
	}, nil
}

func (o *Orchestrator) scoreCandidate(ctx context.Context, d *model.Donor, req *model.OrganRequest) (*oracle.MatchScore, error) {
	donorHLA := splitHLA(d.HLAType)
	recipientHLA := splitHLA(req.RecipientHLAType)

	callCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	scores, err := o.scorer.MatchOrgans(callCtx, oracle.MatchRequest{
		Organ: oracle.Organ{
			OrganType:          string(req.OrganType),
			DonorAge:           util.Age(d.DateOfBirth),
			DonorBloodType:     d.BloodType,
			DonorHLAA1:         donorHLA[0],
			DonorHLAA2:         donorHLA[1],
			DonorHLAB1:         donorHLA[2],
			DonorHLAB2:         donorHLA[3],
			DonorComorbidities: len(d.Comorbidities),
		},
		Recipients: []oracle.Recipient{{
			RecipientID:        req.RequestID,
			RecipientAge:       req.RecipientAge,
			RecipientBloodType: req.RecipientBloodType,
			RecipientHLAA1:     recipientHLA[0],
			RecipientHLAA2:     recipientHLA[1],
			RecipientHLAB1:     recipientHLA[2],
			RecipientHLAB2:     recipientHLA[3],
			UrgencyScore:       int(req.Urgency),
		}},
		Logistics: map[string]oracle.LogisticsHint{
			req.RequestID: {EstimatedColdIschemiaHours: defaultColdIschemiaHours},
		},
	})
	if err != nil {
		return nil, err
	}
	if len(scores) == 0 {
		return nil, errNoScore
	}
	if scores[0].Error != "" {
		return nil, &scoreError{msg: scores[0].Error}
	}
	return &scores[0], nil
}

// splitHLA breaks a comma-separated HLA string into the four loci the
// scoring service expects. Missing loci come back empty.
func splitHLA(hla string) [4]string {
	var out [4]string
	parts := strings.Split(hla, ",")
	for i := 0; i < len(parts) && i < 4; i++ {
		out[i] = strings.TrimSpace(parts[i])
	}
	return out
}

type scoreError struct{ msg string }

func (e *scoreError) Error() string { return "ranking service rejected candidate: " + e.msg }

var errNoScore = &scoreError{msg: "empty score list"}
