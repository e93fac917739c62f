// Package limits bounds the working-set size of a single investigation so
// memory stays predictable well before the investigation's deadline fires.
// Adapted from the teacher's site-context limiter: the same
// limits-object/validate/update shape, repointed from "HTML forms and URL
// patterns seen for a host" to "candidates, resolved entities, and graph
// nodes seen for an investigation."
package limits

import (
	"fmt"
	"time"
)

// WorkingSetLimits bounds how much state a single investigation may
// accumulate before the oldest/weakest entries are evicted.
type WorkingSetLimits struct {
	MaxCandidates       int           `json:"max_candidates"`
	MaxResolvedEntities int           `json:"max_resolved_entities"`
	MaxGraphNodes       int           `json:"max_graph_nodes"`
	MaxTimelineEvents   int           `json:"max_timeline_events"`
	MaxAge              time.Duration `json:"max_age"`
	MaxErrorsRecorded   int           `json:"max_errors_recorded"`
}

// DefaultWorkingSetLimits returns the limits applied when an investigation
// doesn't override them.
func DefaultWorkingSetLimits() *WorkingSetLimits {
	return &WorkingSetLimits{
		MaxCandidates:       20000,
		MaxResolvedEntities: 5000,
		MaxGraphNodes:       5000,
		MaxTimelineEvents:   10000,
		MaxAge:              24 * time.Hour,
		MaxErrorsRecorded:   500,
	}
}

// WorkingSetLimiter validates and enforces WorkingSetLimits for one
// investigation's in-memory working set.
type WorkingSetLimiter struct {
	limits *WorkingSetLimits
}

// NewWorkingSetLimiter creates a limiter; a nil limits argument falls back
// to DefaultWorkingSetLimits.
func NewWorkingSetLimiter(limits *WorkingSetLimits) *WorkingSetLimiter {
	if limits == nil {
		limits = DefaultWorkingSetLimits()
	}
	return &WorkingSetLimiter{limits: limits}
}

// GetLimits returns the limiter's current limits.
func (l *WorkingSetLimiter) GetLimits() *WorkingSetLimits {
	return l.limits
}

// UpdateLimits validates and installs new limits.
func (l *WorkingSetLimiter) UpdateLimits(newLimits *WorkingSetLimits) error {
	if newLimits.MaxCandidates <= 0 {
		return fmt.Errorf("MaxCandidates must be positive")
	}
	if newLimits.MaxResolvedEntities <= 0 {
		return fmt.Errorf("MaxResolvedEntities must be positive")
	}
	if newLimits.MaxGraphNodes <= 0 {
		return fmt.Errorf("MaxGraphNodes must be positive")
	}
	if newLimits.MaxTimelineEvents <= 0 {
		return fmt.Errorf("MaxTimelineEvents must be positive")
	}
	if newLimits.MaxAge <= 0 {
		return fmt.Errorf("MaxAge must be positive")
	}
	if newLimits.MaxErrorsRecorded <= 0 {
		return fmt.Errorf("MaxErrorsRecorded must be positive")
	}
	l.limits = newLimits
	return nil
}

// ShouldCleanup reports whether a Unix timestamp is old enough to be purged
// under the limiter's MaxAge.
func (l *WorkingSetLimiter) ShouldCleanup(unixTimestamp int64) bool {
	cutoff := time.Now().Add(-l.limits.MaxAge).Unix()
	return unixTimestamp < cutoff
}

// ValidateLimits checks the current limits are within sane absolute bounds,
// independent of whether they were just set by UpdateLimits.
func (l *WorkingSetLimiter) ValidateLimits() error {
	if l.limits.MaxCandidates > 500000 {
		return fmt.Errorf("MaxCandidates too large (> 500000)")
	}
	if l.limits.MaxResolvedEntities > 200000 {
		return fmt.Errorf("MaxResolvedEntities too large (> 200000)")
	}
	if l.limits.MaxGraphNodes > 200000 {
		return fmt.Errorf("MaxGraphNodes too large (> 200000)")
	}
	if l.limits.MaxTimelineEvents > 500000 {
		return fmt.Errorf("MaxTimelineEvents too large (> 500000)")
	}
	return nil
}

// TrimErrors truncates an error log to the configured cap, keeping the most
// recent entries (callers append in chronological order).
func (l *WorkingSetLimiter) TrimErrors(errs []string) []string {
	if len(errs) <= l.limits.MaxErrorsRecorded {
		return errs
	}
	return errs[len(errs)-l.limits.MaxErrorsRecorded:]
}
