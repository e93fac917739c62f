// Package models defines the closed data model the pipeline operates on:
// seed input, query plan, raw results, the candidate/normalized/resolved
// entity chain, timeline events, investigation records, and the final
// report. Duck-typed records in the teacher's source map here to a sum
// type (EntityType) plus typed attribute maps, per the design notes — there
// are no open dictionaries in the public API.
package models

import "time"

// SubjectIdentifiers is the bounded set of seed facts a client supplies
// about the investigation subject.
type SubjectIdentifiers struct {
	FullName          string             `json:"full_name"`
	Usernames         []string           `json:"usernames,omitempty"`     // ≤20
	Emails            []string           `json:"emails,omitempty"`        // ≤10
	PhoneNumbers      []string           `json:"phone_numbers,omitempty"` // E.164, ≤5
	GeographicHints   *GeographicHints   `json:"geographic_hints,omitempty"`
	ProfessionalHints *ProfessionalHints `json:"professional_hints,omitempty"`
	KnownDomains      []string           `json:"known_domains,omitempty"` // ≤10
}

// GeographicHints narrows a subject to a rough location.
type GeographicHints struct {
	City    string `json:"city,omitempty"`
	Region  string `json:"region,omitempty"`
	Country string `json:"country,omitempty"` // ISO-3166 alpha-2
}

// ProfessionalHints narrows a subject to a rough professional context.
type ProfessionalHints struct {
	Employer string `json:"employer,omitempty"`
	Industry string `json:"industry,omitempty"`
	Title    string `json:"title,omitempty"`
}

// Constraints bound how aggressively the pipeline may search and how long
// results may be retained.
type Constraints struct {
	ExcludeSensitiveAttributes bool `json:"exclude_sensitive_attributes"`
	ExcludeMinors              bool `json:"exclude_minors"`
	MaxSearchDepth             int  `json:"max_search_depth"` // 1-10
	RetentionDays              int  `json:"retention_days"`   // 1-365
}

// Thresholds tune how confident a match or source must be to count.
type Thresholds struct {
	MinimumEntityConfidence int `json:"minimum_entity_confidence"` // default 70
	MinimumSourceConfidence int `json:"minimum_source_confidence"` // default 60
}

// DefaultThresholds returns the spec's documented defaults.
func DefaultThresholds() Thresholds {
	return Thresholds{MinimumEntityConfidence: 70, MinimumSourceConfidence: 60}
}

// SeedInput is the full submission for one investigation (§3, §6.1).
type SeedInput struct {
	InvestigationID    string             `json:"investigation_id"`
	CorrelationID      string             `json:"correlation_id"`
	SubjectIdentifiers SubjectIdentifiers `json:"subject_identifiers"`
	Constraints        Constraints        `json:"constraints"`
	Thresholds         Thresholds         `json:"thresholds"`
	SubmittedAt        time.Time          `json:"submitted_at"`
}
