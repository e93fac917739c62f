package llm

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/osint-pipeline/investigator/internal/models"
)

func TestBuildExtractionPrompt_IncludesSourceText(t *testing.T) {
	prompt := buildExtractionPrompt(&ExtractionRequest{ResultID: "r1", Text: "Jane Doe works at Acme Corp"})
	assert.Contains(t, prompt, "Jane Doe works at Acme Corp")
	assert.Contains(t, prompt, "entity_type")
}

func TestBuildExtractionPrompt_TruncatesLongText(t *testing.T) {
	longText := strings.Repeat("a", maxExtractionTextBytes+500)
	prompt := buildExtractionPrompt(&ExtractionRequest{ResultID: "r1", Text: longText})
	assert.LessOrEqual(t, strings.Count(prompt, "a"), maxExtractionTextBytes+200)
}

func TestBuildNarrativePrompt_IncludesScoresAndBreakdown(t *testing.T) {
	req := &NarrativeRequest{
		Summary: models.ExecutiveSummary{
			SubjectName: "Jane Doe", OverallScore: 62.5, OverallLevel: models.RiskHigh,
			EntitiesResolved: 3, SourcesConsulted: 2,
		},
		Exposures: models.ExposureAnalysis{
			PrivacyExposureScore: 70,
			PrivacyBreakdown: []models.ExposureCategoryBreakdown{
				{Category: "contact", Weight: 0.3, Count: 2},
			},
		},
	}
	prompt := buildNarrativePrompt(req)
	assert.Contains(t, prompt, "HIGH")
	assert.Contains(t, prompt, "privacy/contact")
}

func TestNullProvider_NeverFails(t *testing.T) {
	var np NullProvider

	entities, err := np.ExtractEntities("r1", "some text")
	assert.NoError(t, err)
	assert.Nil(t, entities)

	narrative, err := np.Narrative(models.ExecutiveSummary{}, models.ExposureAnalysis{})
	assert.NoError(t, err)
	assert.Empty(t, narrative)
}

func TestProvider_NilReceiverMethodsDegradeGracefully(t *testing.T) {
	var p *Provider

	entities, err := p.ExtractEntities("r1", "text")
	assert.NoError(t, err)
	assert.Nil(t, entities)

	narrative, err := p.Narrative(models.ExecutiveSummary{}, models.ExposureAnalysis{})
	assert.NoError(t, err)
	assert.Empty(t, narrative)
}
