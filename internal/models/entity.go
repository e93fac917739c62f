package models

import "time"

// EntityType is the closed set of entity shapes the resolver can produce.
// Kept as a sum type rather than an open string so downstream code
// (matcher, graph, report) can switch exhaustively instead of guarding
// against arbitrary labels.
type EntityType string

const (
	EntityTypePerson        EntityType = "person"
	EntityTypeOrganization  EntityType = "organization"
	EntityTypeEmail         EntityType = "email"
	EntityTypePhone         EntityType = "phone"
	EntityTypeUsername      EntityType = "username"
	EntityTypeDomain        EntityType = "domain"
	EntityTypeSocialProfile EntityType = "social_profile"
	EntityTypeLocation      EntityType = "location"
	EntityTypeDocument      EntityType = "document"
	EntityTypeEvent         EntityType = "event"
)

// VerificationStatus discretizes a resolved entity's cluster confidence
// into the four bands defined by the resolver (§4.9).
type VerificationStatus string

const (
	VerificationVerified VerificationStatus = "verified" // >=90
	VerificationProbable VerificationStatus = "probable" // 75-89
	VerificationPossible VerificationStatus = "possible" // 60-74
	VerificationUnlikely VerificationStatus = "unlikely" // <60
)

// VerificationStatusFor maps a confidence score in [0,100] to its band.
func VerificationStatusFor(confidence int) VerificationStatus {
	switch {
	case confidence >= 90:
		return VerificationVerified
	case confidence >= 75:
		return VerificationProbable
	case confidence >= 60:
		return VerificationPossible
	default:
		return VerificationUnlikely
	}
}

// Attributes is the typed value bag attached to candidates and entities.
// It is intentionally narrow: callers read typed accessor methods instead
// of indexing an interface{} map directly, so a missing or mistyped key
// fails at one boundary rather than wherever it happens to be read.
type Attributes map[string]string

// Get returns the attribute value and whether it was present.
func (a Attributes) Get(key string) (string, bool) {
	v, ok := a[key]
	return v, ok
}

// Merge returns a new Attributes with other's keys overlaid on a's,
// leaving both inputs untouched.
func (a Attributes) Merge(other Attributes) Attributes {
	out := make(Attributes, len(a)+len(other))
	for k, v := range a {
		out[k] = v
	}
	for k, v := range other {
		out[k] = v
	}
	return out
}

// EntityCandidate is one parsed-and-extracted observation, the output of
// C6 and input to C7.
type EntityCandidate struct {
	CandidateID          string     `json:"candidate_id"`
	EntityType           EntityType `json:"entity_type"`
	RawValue             string     `json:"raw_value"`
	Attributes           Attributes `json:"attributes,omitempty"`
	SourceRefs           []string   `json:"source_refs"`           // RawResult.ResultID() values
	ExtractionConfidence float64    `json:"extraction_confidence"` // 0-1
	ExtractionMethod     string     `json:"extraction_method"`     // "regex" | "structural" | "llm"
	ObservedAt           time.Time  `json:"observed_at"`
}

// NormalizedEntity is a candidate carried forward with canonical forms
// computed by C7 — the unit C8/C9 compare and cluster.
type NormalizedEntity struct {
	EntityCandidate

	NormalizedEmail   string   `json:"normalized_email,omitempty"`
	E164Phone         string   `json:"e164_phone,omitempty"`
	LowercaseUsername string   `json:"lowercase_username,omitempty"`
	UsernameVariants  []string `json:"username_variants,omitempty"`
	NameTokens        []string `json:"name_tokens,omitempty"` // tokenized, ordered
	Soundex           string   `json:"soundex,omitempty"`
	Metaphone         string   `json:"metaphone,omitempty"`
	NormalizedCountry string   `json:"normalized_country,omitempty"`
	NormalizedRegion  string   `json:"normalized_region,omitempty"`
	ComparisonKey     string   `json:"comparison_key"` // blocking key used by the resolver

	QualityScore float64 `json:"quality_score"` // 0-1: completeness x consistency x source-confidence
}

// ResolvedEntity is the final, cluster-merged identity produced by C9 —
// the unit the graph and report packages consume.
type ResolvedEntity struct {
	EntityID           string              `json:"entity_id"`
	EntityType         EntityType          `json:"entity_type"`
	Attributes         Attributes          `json:"attributes,omitempty"`          // merged across members
	DisputedAttributes map[string][]string `json:"disputed_attributes,omitempty"` // key -> conflicting values
	Confidence         int                 `json:"confidence"`                    // 0-100
	VerificationStatus VerificationStatus  `json:"verification_status"`
	MemberCandidates   []string            `json:"member_candidates"` // candidate IDs
	Sources            []string            `json:"sources"`           // source names, deduplicated set
	FirstObserved      time.Time           `json:"first_observed"`
	LastObserved       time.Time           `json:"last_observed"`
}
