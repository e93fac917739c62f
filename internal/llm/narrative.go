package llm

import (
	"fmt"
	"strings"

	"github.com/osint-pipeline/investigator/internal/models"
)

// NarrativeRequest is the executive summary and exposure breakdown the
// narrative flow turns into prose.
type NarrativeRequest struct {
	Summary   models.ExecutiveSummary `json:"summary"`
	Exposures models.ExposureAnalysis `json:"exposures"`
}

// NarrativeResponse is the structured output of the narrative flow.
type NarrativeResponse struct {
	Narrative string `json:"narrative"`
}

func buildNarrativePrompt(req *NarrativeRequest) string {
	var exposures strings.Builder
	for _, b := range req.Exposures.PrivacyBreakdown {
		if b.Count > 0 {
			fmt.Fprintf(&exposures, "- privacy/%s: %d items (weight %.2f)\n", b.Category, b.Count, b.Weight)
		}
	}
	for _, b := range req.Exposures.SecurityBreakdown {
		if b.Count > 0 {
			fmt.Fprintf(&exposures, "- security/%s: %d items (weight %.2f)\n", b.Category, b.Count, b.Weight)
		}
	}
	for _, b := range req.Exposures.IdentityBreakdown {
		if b.Count > 0 {
			fmt.Fprintf(&exposures, "- identity/%s: %d items (weight %.2f)\n", b.Category, b.Count, b.Weight)
		}
	}

	return fmt.Sprintf(
		`You are writing the executive summary narrative for a personal OSINT
exposure report. Be factual and measured; this is read by the subject of
the investigation, not a security team looking for a CTF flag.

=== SCORES ===
Overall: %.1f (%s)
Privacy exposure: %.1f
Security risk: %.1f
Identity theft risk: %.1f
Entities resolved: %d across %d sources

=== EXPOSURE BREAKDOWN ===
%s

=== INSTRUCTIONS ===
1. Write 2-4 sentences, plain prose, no markdown, no bullet points.
2. Name the single biggest driver of the overall score first.
3. Never invent a specific fact (a name, an address, a breach) that
   is not implied by the scores and breakdown above.
4. If entities_resolved is 0, say the investigation found no
   corroborated exposure rather than speculating.

Return JSON:
{"narrative": "..."}`,
		req.Summary.OverallScore, req.Summary.OverallLevel,
		req.Exposures.PrivacyExposureScore, req.Exposures.SecurityRiskScore, req.Exposures.IdentityTheftRiskScore,
		req.Summary.EntitiesResolved, req.Summary.SourcesConsulted,
		exposures.String(),
	)
}
