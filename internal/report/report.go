// Package report is C12: computes the three weighted risk sub-scores and
// assembles the final deterministic Report, with an optional narrative
// enrichment step that can never fail the report itself.
package report

import (
	"fmt"
	"sort"

	"github.com/osint-pipeline/investigator/internal/graph"
	"github.com/osint-pipeline/investigator/internal/models"
	"github.com/osint-pipeline/investigator/internal/timeline"
)

// NarrativeProvider optionally enriches the executive summary with
// generated prose; the remediation list is never passed to it. Mirrors parser.TextExtractor's
// shape: an optional seam the core pipeline never depends on succeeding.
type NarrativeProvider interface {
	Narrative(summary models.ExecutiveSummary, exposures models.ExposureAnalysis) (string, error)
}

// Input is everything C12 needs to assemble one report.
type Input struct {
	InvestigationID  string
	SubjectName      string
	Partial          bool
	ResolvedEntities []models.ResolvedEntity
	SourceRefsByID   map[string][]models.SourceReference // EntityID -> its sources
	Timeline         *timeline.Builder
	SubjectID        string
	Graph            *graph.Graph
}

// Reporter is C12.
type Reporter struct {
	narrative NarrativeProvider
}

// New builds a Reporter. narrative may be nil, in which case the
// executive summary's Narrative field is left empty.
func New(narrative NarrativeProvider) *Reporter {
	return &Reporter{narrative: narrative}
}

// Generate assembles the final report. Given the same resolved entities
// and timeline, the result is deterministic except for the optional
// narrative field.
func (r *Reporter) Generate(in Input) models.Report {
	refsFor := func(e models.ResolvedEntity) []models.SourceReference {
		return in.SourceRefsByID[e.EntityID]
	}

	networkEdges := 0
	if in.Graph != nil {
		networkEdges = in.Graph.Stats().EdgeCount
	}

	privacyScore, privacyBreakdown := privacyExposureScore(in.ResolvedEntities, networkEdges, refsFor)
	securityScore, securityBreakdown := securityRiskScore(in.ResolvedEntities, refsFor)
	identityScore, identityBreakdown := identityTheftRiskScore(in.ResolvedEntities, refsFor)
	misc := miscScore(in.ResolvedEntities)

	overall := overallScore(privacyScore, securityScore, identityScore, misc)
	level := models.RiskLevelFor(overall)

	summary := models.ExecutiveSummary{
		SubjectName:      in.SubjectName,
		OverallScore:     overall,
		OverallLevel:     level,
		KeyExposures:     topExposures(privacyBreakdown, securityBreakdown, identityBreakdown),
		EntitiesResolved: len(in.ResolvedEntities),
		SourcesConsulted: countDistinctSources(in.ResolvedEntities),
	}

	exposures := models.ExposureAnalysis{
		PrivacyExposureScore:   privacyScore,
		PrivacyBreakdown:       privacyBreakdown,
		SecurityRiskScore:      securityScore,
		SecurityBreakdown:      securityBreakdown,
		IdentityTheftRiskScore: identityScore,
		IdentityBreakdown:      identityBreakdown,
	}

	if r.narrative != nil {
		if text, err := r.narrative.Narrative(summary, exposures); err == nil {
			summary.Narrative = text
		}
		// A failing or nil narrative provider never fails the report;
		// Narrative simply stays empty.
	}

	identityInventory := buildIdentityInventory(in.ResolvedEntities)
	activityTimeline := buildActivityTimeline(in.Timeline, in.SubjectID)
	remediations := buildRemediations(exposures)
	detailedFindings := buildDetailedFindings(in.ResolvedEntities, refsFor)
	sourceReferences := buildSourceReferences(in.ResolvedEntities, refsFor)

	return models.Report{
		InvestigationID:   in.InvestigationID,
		Partial:           in.Partial,
		ExecutiveSummary:  summary,
		IdentityInventory: identityInventory,
		ExposureAnalysis:  exposures,
		ActivityTimeline:  activityTimeline,
		Remediations:      remediations,
		DetailedFindings:  detailedFindings,
		SourceReferences:  sourceReferences,
	}
}

func countDistinctSources(entities []models.ResolvedEntity) int {
	seen := make(map[string]bool)
	for _, e := range entities {
		for _, s := range e.Sources {
			seen[s] = true
		}
	}
	return len(seen)
}

func buildIdentityInventory(entities []models.ResolvedEntity) models.IdentityInventory {
	byStatus := make(map[models.VerificationStatus][]models.ResolvedEntity)
	for _, e := range entities {
		byStatus[e.VerificationStatus] = append(byStatus[e.VerificationStatus], e)
	}
	return models.IdentityInventory{ByStatus: byStatus}
}

func buildActivityTimeline(t *timeline.Builder, subjectID string) []models.ActivityTimelineEntry {
	if t == nil {
		return nil
	}
	events := t.Events(subjectID)
	out := make([]models.ActivityTimelineEntry, 0, len(events))
	for _, e := range events {
		out = append(out, models.ActivityTimelineEntry{
			Date: e.Date, Precision: e.Precision, Category: e.EventType, Title: e.Title,
		})
	}
	return out
}

// remediationRule maps an exposure category to the recommended action.
var remediationRules = map[string]struct {
	action string
	impact float64
	effort models.Effort
}{
	"contact":                 {"Reduce public visibility of email/phone on indexed profiles", 0.5, models.EffortMedium},
	"professional":            {"Review what employer/role details are public on professional networks", 0.3, models.EffortLow},
	"identity":                {"Request takedown of exposed identity documents where possible", 0.6, models.EffortHigh},
	"behavioral":              {"Audit social/username footprint for correlated accounts", 0.4, models.EffortMedium},
	"network":                 {"Review visibility of associates and affiliations", 0.2, models.EffortLow},
	"breach_exposure":         {"Rotate credentials exposed in known breaches", 0.8, models.EffortMedium},
	"account_security":        {"Enable 2FA and rotate weak passwords on flagged accounts", 0.7, models.EffortLow},
	"vulnerability_exposure":  {"Patch or retire infrastructure flagged with known vulnerabilities", 0.6, models.EffortHigh},
	"pii_availability":        {"Request removal of SSN/DOB from data-broker listings", 0.7, models.EffortHigh},
	"address_data":            {"Opt out of address aggregator listings", 0.5, models.EffortMedium},
	"financial_data":          {"Monitor financial accounts for exposed-data fraud indicators", 0.7, models.EffortMedium},
	"credential_availability": {"Rotate and de-duplicate reused credentials", 0.8, models.EffortMedium},
}

func buildRemediations(exposures models.ExposureAnalysis) []models.RemediationRecommendation {
	type candidate struct {
		category string
		count    int
		weight   float64
	}
	var candidates []candidate
	for _, b := range append(append(append([]models.ExposureCategoryBreakdown{}, exposures.PrivacyBreakdown...), exposures.SecurityBreakdown...), exposures.IdentityBreakdown...) {
		if b.Count > 0 {
			candidates = append(candidates, candidate{category: b.Category, count: b.Count, weight: b.Weight})
		}
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].weight*float64(candidates[i].count) > candidates[j].weight*float64(candidates[j].count)
	})

	out := make([]models.RemediationRecommendation, 0, len(candidates))
	for i, c := range candidates {
		rule, ok := remediationRules[c.category]
		if !ok {
			continue
		}
		out = append(out, models.RemediationRecommendation{
			Priority: i + 1, Category: c.category, Action: rule.action,
			ImpactEstimate: rule.impact, Effort: rule.effort,
		})
	}
	return out
}

func buildDetailedFindings(entities []models.ResolvedEntity, refsFor func(models.ResolvedEntity) []models.SourceReference) []models.DetailedFinding {
	out := make([]models.DetailedFinding, 0, len(entities))
	for _, e := range entities {
		out = append(out, models.DetailedFinding{
			EntityID: e.EntityID, EntityType: e.EntityType, MatchedAttributes: e.Attributes,
			Confidence: e.Confidence, VerificationStatus: e.VerificationStatus, Sources: refsFor(e),
		})
	}
	return out
}

func buildSourceReferences(entities []models.ResolvedEntity, refsFor func(models.ResolvedEntity) []models.SourceReference) []models.SourceReference {
	seen := make(map[string]bool)
	var out []models.SourceReference
	for _, e := range entities {
		for _, ref := range refsFor(e) {
			key := fmt.Sprintf("%s:%s", ref.SourceName, ref.ResultID)
			if !seen[key] {
				seen[key] = true
				out = append(out, ref)
			}
		}
	}
	return out
}
