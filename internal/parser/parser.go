// Package parser is C6: given a RawResult, dispatch on media type and
// extract typed candidate entities. Regex extraction runs uniformly
// across media types once text has been flattened out of the document;
// JSON/XML also get a structural walk whose hits are appended after. A parse error never
// propagates — it yields zero candidates and the caller logs a warning,
// per §4.6's failure mode.
package parser

import (
	"encoding/json"
	"encoding/xml"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/osint-pipeline/investigator/internal/models"
)

// Parser is C6.
type Parser struct {
	textExtractor TextExtractor // optional LLM-backed textual extraction, nil disables it
}

// TextExtractor is the optional pluggable hook for textual entity
// extraction (person names, organizations, locations) from free text.
// Results from it carry a lower extraction_confidence than regex/
// structural extraction, per §4.6.
type TextExtractor interface {
	ExtractEntities(ctx string, text string) ([]ExtractedText, error)
}

// ExtractedText is one textual-extraction hit.
type ExtractedText struct {
	EntityType models.EntityType
	Value      string
	Confidence float64
}

// New builds a Parser. textExtractor may be nil to disable optional
// textual extraction entirely.
func New(textExtractor TextExtractor) *Parser {
	return &Parser{textExtractor: textExtractor}
}

// Parse dispatches on raw.MediaType and returns extracted candidates. It
// never returns an error to the caller: failures are swallowed into zero
// candidates so one bad document cannot abort an investigation.
func (p *Parser) Parse(raw models.RawResult) (candidates []models.EntityCandidate, securityFlagged bool, redactedContent []byte) {
	defer func() {
		if r := recover(); r != nil {
			candidates = nil
		}
	}()

	content := raw.Content
	if len(content) > maxContentBytes {
		content = content[:maxContentBytes]
		securityFlagged = true
	}

	text := flattenToText(raw.MediaType, content)

	flaggedContent, unsafe := redactUnsafe(text)
	if unsafe {
		securityFlagged = true
	}

	candidates = p.regexExtract(raw, text)

	if raw.MediaType == "application/json" {
		candidates = append(candidates, p.structuralExtractJSON(raw, content)...)
	}
	if raw.MediaType == "application/xml" || raw.MediaType == "text/xml" {
		candidates = append(candidates, p.structuralExtractXML(raw, content)...)
	}

	if p.textExtractor != nil {
		if hits, err := p.textExtractor.ExtractEntities(raw.ResultID(), text); err == nil {
			for _, h := range hits {
				candidates = append(candidates, models.EntityCandidate{
					CandidateID:          uuid.NewString(),
					EntityType:           h.EntityType,
					RawValue:             h.Value,
					SourceRefs:           []string{raw.ResultID()},
					ExtractionConfidence: h.Confidence,
					ExtractionMethod:     "llm",
					ObservedAt:           time.Now(),
				})
			}
		}
	}

	return candidates, securityFlagged, []byte(flaggedContent)
}

func flattenToText(mediaType string, content []byte) string {
	switch mediaType {
	case "text/html":
		return string(content) // the connector already flattened HTML to visible text
	default:
		return string(content)
	}
}

// redactUnsafe replaces any unsafe-content match with a fixed redaction
// marker, leaving the rest of the text intact, and reports whether
// anything was redacted.
func redactUnsafe(text string) (string, bool) {
	redacted := false
	out := text
	for _, p := range unsafeContentPatterns {
		if p.MatchString(out) {
			redacted = true
			out = p.ReplaceAllString(out, "[REDACTED]")
		}
	}
	return out, redacted
}

func (p *Parser) regexExtract(raw models.RawResult, text string) []models.EntityCandidate {
	var out []models.EntityCandidate
	now := time.Now()

	add := func(et models.EntityType, value string, confidence float64) {
		out = append(out, models.EntityCandidate{
			CandidateID:          uuid.NewString(),
			EntityType:           et,
			RawValue:             value,
			SourceRefs:           []string{raw.ResultID()},
			ExtractionConfidence: confidence,
			ExtractionMethod:     "regex",
			ObservedAt:           now,
		})
	}

	for _, m := range dedupe(emailPattern.FindAllString(text, -1)) {
		add(models.EntityTypeEmail, m, 0.9)
	}
	for _, m := range dedupe(e164Pattern.FindAllString(text, -1)) {
		add(models.EntityTypePhone, m, 0.9)
	}
	for _, m := range dedupe(nationalPhonePattern.FindAllString(text, -1)) {
		add(models.EntityTypePhone, m, 0.6)
	}
	for _, m := range dedupe(urlPattern.FindAllString(text, -1)) {
		add(models.EntityTypeDocument, m, 0.5)
	}
	for _, m := range dedupe(atUsernamePattern.FindAllString(text, -1)) {
		add(models.EntityTypeUsername, strings.TrimPrefix(m, "@"), 0.7)
	}
	for _, m := range pathUsernamePattern.FindAllStringSubmatch(text, -1) {
		add(models.EntityTypeUsername, m[1], 0.75)
	}
	for _, m := range dedupe(domainPattern.FindAllString(text, -1)) {
		add(models.EntityTypeDomain, m, 0.4)
	}

	return out
}

// structuralExtractJSON walks a JSON document's string leaves, applying
// the same regex classifiers to each value. Schema-aware field mapping
// tied to a specific source's envelope is opaque to core per §4.6; this
// is the source-agnostic fallback every JSON adapter gets for free.
func (p *Parser) structuralExtractJSON(raw models.RawResult, content []byte) []models.EntityCandidate {
	var doc interface{}
	if err := json.Unmarshal(content, &doc); err != nil {
		return nil
	}
	var leaves []string
	collectJSONStrings(doc, &leaves)
	return p.regexExtract(raw, strings.Join(leaves, "\n"))
}

func collectJSONStrings(v interface{}, out *[]string) {
	switch t := v.(type) {
	case string:
		*out = append(*out, t)
	case []interface{}:
		for _, e := range t {
			collectJSONStrings(e, out)
		}
	case map[string]interface{}:
		for _, e := range t {
			collectJSONStrings(e, out)
		}
	}
}

// structuralExtractXML walks an XML document's character data tokens
// with the same source-agnostic fallback as structuralExtractJSON.
func (p *Parser) structuralExtractXML(raw models.RawResult, content []byte) []models.EntityCandidate {
	decoder := xml.NewDecoder(strings.NewReader(string(content)))
	var texts []string
	for {
		tok, err := decoder.Token()
		if err != nil {
			break
		}
		if cd, ok := tok.(xml.CharData); ok {
			trimmed := strings.TrimSpace(string(cd))
			if trimmed != "" {
				texts = append(texts, trimmed)
			}
		}
	}
	return p.regexExtract(raw, strings.Join(texts, "\n"))
}

func dedupe(items []string) []string {
	seen := make(map[string]bool, len(items))
	var out []string
	for _, it := range items {
		if seen[it] {
			continue
		}
		seen[it] = true
		out = append(out, it)
	}
	return out
}
