package llm

import (
	"fmt"

	"github.com/osint-pipeline/investigator/internal/models"
)

// ExtractionRequest is one free-text extraction unit.
type ExtractionRequest struct {
	ResultID string `json:"result_id"`
	Text     string `json:"text"`
}

// ExtractedEntity is one LLM-identified entity mention.
type ExtractedEntity struct {
	EntityType models.EntityType `json:"entity_type"`
	Value      string            `json:"value"`
	Confidence float64           `json:"confidence"`
}

// ExtractionResponse is the structured output of the extraction flow.
type ExtractionResponse struct {
	Entities []ExtractedEntity `json:"entities"`
}

// maxExtractionTextBytes bounds how much of a raw result's flattened
// text goes into the prompt, mirroring the teacher's body-truncation
// convention for LLM-bound content (analyst_prompt.go).
const maxExtractionTextBytes = 4000

func buildExtractionPrompt(req *ExtractionRequest) string {
	text := req.Text
	if len(text) > maxExtractionTextBytes {
		text = text[:maxExtractionTextBytes]
	}

	return fmt.Sprintf(
		`You are an OSINT analyst. Extract named entities from the text below that
regex and structural parsing would miss: person names, organizations, and
locations mentioned in free-flowing prose.

=== SOURCE TEXT ===
%s

=== INSTRUCTIONS ===
1. Only extract entities actually named in the text, never inferred or guessed.
2. entity_type must be one of: person, organization, location.
3. confidence is your own estimate in [0,1] of how clearly the text names
   this entity; textual extraction is inherently less certain than a
   structured field, so do not report confidence above 0.8.
4. If nothing qualifies, return an empty entities list.

Return JSON:
{
  "entities": [
    {"entity_type": "person", "value": "exact name as written", "confidence": 0.6}
  ]
}`,
		text,
	)
}
