package models

import "time"

// Status is the closed set of investigation lifecycle states driving C13's
// state machine.
type Status string

const (
	StatusCreated   Status = "created"
	StatusPlanning  Status = "planning"
	StatusFetching  Status = "fetching"
	StatusParsing   Status = "parsing"
	StatusResolving Status = "resolving"
	StatusReporting Status = "reporting"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether a Status ends the investigation's lifecycle.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// InvestigationRecord is the persisted, opaque-to-storage representation
// of one investigation's lifecycle (§6.6).
type InvestigationRecord struct {
	InvestigationID     string     `json:"investigation_id"`
	CorrelationID       string     `json:"correlation_id"`
	Status              Status     `json:"status"`
	CurrentStage        Status     `json:"current_stage"`
	Seed                SeedInput  `json:"seed"`
	ProgressPercentage  int        `json:"progress_percentage"` // 0-100
	EntitiesFound       int        `json:"entities_found"`
	QueriesExecuted     int        `json:"queries_executed"`
	Errors              []string   `json:"errors,omitempty"`
	Partial             bool       `json:"partial"` // true if deadline expired before completion
	StartedAt           time.Time  `json:"started_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
	Deadline            time.Time  `json:"deadline"`
	EstimatedCompletion time.Time  `json:"estimated_completion"`
	CompletedAt         *time.Time `json:"completed_at,omitempty"`
	Report              *Report    `json:"report,omitempty"`
}

// ProgressEvent is one best-effort update pushed to subscribers of an
// in-flight investigation (§6.4).
type ProgressEvent struct {
	InvestigationID string    `json:"investigation_id"`
	Status          Status    `json:"status"`
	ProgressPercent int       `json:"progress_percent"`
	Message         string    `json:"message,omitempty"`
	Critical        bool      `json:"critical"` // critical events are never dropped
	EmittedAt       time.Time `json:"emitted_at"`
}
