package report

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osint-pipeline/investigator/internal/models"
	"github.com/osint-pipeline/investigator/internal/timeline"
)

func TestReporter_GenerateDeterministicWithoutNarrative(t *testing.T) {
	r := New(nil)
	in := Input{
		InvestigationID: "inv1",
		SubjectName:     "Jane Doe",
		ResolvedEntities: []models.ResolvedEntity{
			{EntityID: "e1", EntityType: models.EntityTypeEmail, Confidence: 92, VerificationStatus: models.VerificationVerified, Sources: []string{"s1"}},
			{EntityID: "e2", EntityType: models.EntityTypePhone, Confidence: 80, VerificationStatus: models.VerificationProbable, Sources: []string{"s2"}},
		},
	}

	a := r.Generate(in)
	b := r.Generate(in)
	assert.Equal(t, a.ExecutiveSummary.OverallScore, b.ExecutiveSummary.OverallScore)
	assert.Equal(t, a.ExposureAnalysis, b.ExposureAnalysis)
}

func TestReporter_PrivacyScoreWeightsContactHighest(t *testing.T) {
	r := New(nil)
	contactOnly := Input{ResolvedEntities: []models.ResolvedEntity{
		{EntityID: "e1", EntityType: models.EntityTypeEmail},
		{EntityID: "e2", EntityType: models.EntityTypePhone},
		{EntityID: "e3", EntityType: models.EntityTypeEmail},
	}}
	networkOnly := Input{ResolvedEntities: []models.ResolvedEntity{
		{EntityID: "e1", EntityType: models.EntityTypeLocation},
		{EntityID: "e2", EntityType: models.EntityTypeDomain},
		{EntityID: "e3", EntityType: models.EntityTypeLocation},
	}}

	contactReport := r.Generate(contactOnly)
	networkReport := r.Generate(networkOnly)
	assert.Greater(t, contactReport.ExposureAnalysis.PrivacyExposureScore, networkReport.ExposureAnalysis.PrivacyExposureScore)
}

func TestReporter_SecurityRiskReflectsBreachFlags(t *testing.T) {
	r := New(nil)
	in := Input{ResolvedEntities: []models.ResolvedEntity{
		{EntityID: "e1", EntityType: models.EntityTypeEmail, Attributes: models.Attributes{"breach_count": "2", "breach_recency_days": "30"}},
	}}
	result := r.Generate(in)
	assert.Greater(t, result.ExposureAnalysis.SecurityRiskScore, 0.0)
}

func TestReporter_IdentityTheftRiskReflectsPIIFlags(t *testing.T) {
	r := New(nil)
	in := Input{ResolvedEntities: []models.ResolvedEntity{
		{EntityID: "e1", EntityType: models.EntityTypePerson, Attributes: models.Attributes{"ssn_flag": "true"}},
	}}
	result := r.Generate(in)
	assert.Greater(t, result.ExposureAnalysis.IdentityTheftRiskScore, 0.0)
}

func TestReporter_OverallLevelMapsToRiskBands(t *testing.T) {
	assert.Equal(t, models.RiskLow, models.RiskLevelFor(10))
	assert.Equal(t, models.RiskMedium, models.RiskLevelFor(35))
	assert.Equal(t, models.RiskHigh, models.RiskLevelFor(55))
	assert.Equal(t, models.RiskCritical, models.RiskLevelFor(85))
}

func TestReporter_IdentityInventoryGroupsByStatus(t *testing.T) {
	r := New(nil)
	in := Input{ResolvedEntities: []models.ResolvedEntity{
		{EntityID: "e1", VerificationStatus: models.VerificationVerified},
		{EntityID: "e2", VerificationStatus: models.VerificationPossible},
	}}
	result := r.Generate(in)
	assert.Len(t, result.IdentityInventory.ByStatus[models.VerificationVerified], 1)
	assert.Len(t, result.IdentityInventory.ByStatus[models.VerificationPossible], 1)
}

func TestReporter_RemediationsPrioritizedByWeight(t *testing.T) {
	r := New(nil)
	in := Input{ResolvedEntities: []models.ResolvedEntity{
		{EntityID: "e1", EntityType: models.EntityTypeEmail, Attributes: models.Attributes{"breach_count": "3", "breach_recency_days": "10"}},
	}}
	result := r.Generate(in)
	require.NotEmpty(t, result.Remediations)
	assert.Equal(t, 1, result.Remediations[0].Priority)
}

func TestReporter_NarrativeFailureDoesNotFailReport(t *testing.T) {
	r := New(failingNarrative{})
	in := Input{ResolvedEntities: []models.ResolvedEntity{{EntityID: "e1"}}}
	result := r.Generate(in)
	assert.Empty(t, result.ExecutiveSummary.Narrative)
}

func TestReporter_ActivityTimelineFromTimelineBuilder(t *testing.T) {
	tb := timeline.New()
	tb.AddEvent("subj1", models.EventCategoryJob, "Joined Acme", time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), models.PrecisionExactDate, 0.7, nil, nil)

	r := New(nil)
	in := Input{Timeline: tb, SubjectID: "subj1"}
	result := r.Generate(in)
	require.Len(t, result.ActivityTimeline, 1)
	assert.Equal(t, "Joined Acme", result.ActivityTimeline[0].Title)
}

type failingNarrative struct{}

func (failingNarrative) Narrative(models.ExecutiveSummary, models.ExposureAnalysis) (string, error) {
	return "", assertError{}
}

type assertError struct{}

func (assertError) Error() string { return "narrative generation failed" }
