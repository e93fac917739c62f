// Package store is the opaque investigation/report persistence boundary
// of §6.6: save/get/list/delete operations over investigation records and
// reports. The store never interprets the values it holds — interpreting
// InvestigationRecord or Report fields is the coordinator's job, not
// storage's.
package store

import (
	"context"
	"fmt"

	"github.com/osint-pipeline/investigator/internal/models"
	"github.com/osint-pipeline/investigator/internal/perr"
)

// Store is the investigation persistence contract every backend
// implements.
type Store interface {
	SaveInvestigation(ctx context.Context, record models.InvestigationRecord) error
	GetInvestigation(ctx context.Context, investigationID string) (models.InvestigationRecord, error)
	SaveReport(ctx context.Context, investigationID string, report models.Report) error
	GetReport(ctx context.Context, investigationID string) (models.Report, error)
	ListInvestigations(ctx context.Context, limit, offset int) ([]models.InvestigationRecord, error)
	DeleteInvestigation(ctx context.Context, investigationID string) error
}

// notFound classifies a missing-row condition under perr.KindNotFound so
// every backend reports the same kind for the same condition.
func notFound(op, investigationID string) error {
	return perr.New(perr.KindNotFound, op, fmt.Errorf("investigation %q not found", investigationID))
}
