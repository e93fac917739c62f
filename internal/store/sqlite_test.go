package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/osint-pipeline/investigator/internal/models"
	"github.com/osint-pipeline/investigator/internal/perr"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	cfg := DefaultSQLiteConfig()
	cfg.Path = filepath.Join(t.TempDir(), "test.db")

	s, err := NewSQLiteStore(cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func testRecord(id string) models.InvestigationRecord {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	return models.InvestigationRecord{
		InvestigationID: id,
		Status:          models.StatusCreated,
		Seed: models.SeedInput{
			InvestigationID: id,
			SubjectIdentifiers: models.SubjectIdentifiers{
				FullName: "Jane Doe",
			},
			Constraints: models.Constraints{
				MaxSearchDepth: 2,
				RetentionDays:  30,
			},
		},
		StartedAt: now,
		UpdatedAt: now,
		Deadline:  now.Add(2 * time.Hour),
	}
}

func TestSQLiteStore_SaveAndGetInvestigation(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	rec := testRecord("inv-1")
	require.NoError(t, s.SaveInvestigation(ctx, rec))

	got, err := s.GetInvestigation(ctx, "inv-1")
	require.NoError(t, err)
	assert.Equal(t, rec.InvestigationID, got.InvestigationID)
	assert.Equal(t, rec.Seed.SubjectIdentifiers.FullName, got.Seed.SubjectIdentifiers.FullName)
}

func TestSQLiteStore_SaveInvestigationUpsertsOnConflict(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	rec := testRecord("inv-2")
	require.NoError(t, s.SaveInvestigation(ctx, rec))

	rec.Status = models.StatusCompleted
	rec.EntitiesFound = 7
	require.NoError(t, s.SaveInvestigation(ctx, rec))

	got, err := s.GetInvestigation(ctx, "inv-2")
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, got.Status)
	assert.Equal(t, 7, got.EntitiesFound)
}

func TestSQLiteStore_GetInvestigationNotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetInvestigation(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, perr.Is(err, perr.KindNotFound))
}

func TestSQLiteStore_SaveAndGetReport(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	rec := testRecord("inv-3")
	require.NoError(t, s.SaveInvestigation(ctx, rec))

	report := models.Report{
		InvestigationID: "inv-3",
		ExecutiveSummary: models.ExecutiveSummary{
			SubjectName:  "Jane Doe",
			OverallScore: 42,
			OverallLevel: models.RiskMedium,
		},
	}
	require.NoError(t, s.SaveReport(ctx, "inv-3", report))

	got, err := s.GetReport(ctx, "inv-3")
	require.NoError(t, err)
	assert.Equal(t, 42.0, got.ExecutiveSummary.OverallScore)
}

func TestSQLiteStore_GetReportNotReadyBeforeSave(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveInvestigation(ctx, testRecord("inv-4")))

	_, err := s.GetReport(ctx, "inv-4")
	require.Error(t, err)
	assert.True(t, perr.Is(err, perr.KindNotReady))
}

func TestSQLiteStore_SaveReportUnknownInvestigation(t *testing.T) {
	s := newTestStore(t)
	err := s.SaveReport(context.Background(), "ghost", models.Report{})
	require.Error(t, err)
	assert.True(t, perr.Is(err, perr.KindNotFound))
}

func TestSQLiteStore_ListInvestigationsOrdersByCreatedAtDesc(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for i, id := range []string{"inv-a", "inv-b", "inv-c"} {
		rec := testRecord(id)
		rec.StartedAt = rec.StartedAt.Add(time.Duration(i) * time.Hour)
		rec.UpdatedAt = rec.StartedAt
		require.NoError(t, s.SaveInvestigation(ctx, rec))
	}

	list, err := s.ListInvestigations(ctx, 10, 0)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "inv-c", list[0].InvestigationID)
	assert.Equal(t, "inv-a", list[2].InvestigationID)
}

func TestSQLiteStore_ListInvestigationsRespectsLimitAndOffset(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, id := range []string{"inv-x", "inv-y", "inv-z"} {
		require.NoError(t, s.SaveInvestigation(ctx, testRecord(id)))
	}

	list, err := s.ListInvestigations(ctx, 1, 1)
	require.NoError(t, err)
	require.Len(t, list, 1)
}

func TestSQLiteStore_DeleteInvestigation(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveInvestigation(ctx, testRecord("inv-5")))
	require.NoError(t, s.DeleteInvestigation(ctx, "inv-5"))

	_, err := s.GetInvestigation(ctx, "inv-5")
	assert.True(t, perr.Is(err, perr.KindNotFound))
}

func TestSQLiteStore_DeleteInvestigationNotFound(t *testing.T) {
	s := newTestStore(t)
	err := s.DeleteInvestigation(context.Background(), "ghost")
	require.Error(t, err)
	assert.True(t, perr.Is(err, perr.KindNotFound))
}

func TestSQLiteStore_DeleteOlderThanHonorsPerInvestigationRetention(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	old := testRecord("inv-old")
	old.StartedAt = time.Now().UTC().Add(-100 * 24 * time.Hour)
	old.UpdatedAt = old.StartedAt
	old.Seed.Constraints.RetentionDays = 30
	require.NoError(t, s.SaveInvestigation(ctx, old))

	fresh := testRecord("inv-fresh")
	fresh.StartedAt = time.Now().UTC().Add(-5 * 24 * time.Hour)
	fresh.UpdatedAt = fresh.StartedAt
	fresh.Seed.Constraints.RetentionDays = 365
	require.NoError(t, s.SaveInvestigation(ctx, fresh))

	deleted, err := s.DeleteOlderThan(ctx, time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	_, err = s.GetInvestigation(ctx, "inv-old")
	assert.True(t, perr.Is(err, perr.KindNotFound))
	_, err = s.GetInvestigation(ctx, "inv-fresh")
	assert.NoError(t, err)
}
