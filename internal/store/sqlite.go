package store

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/osint-pipeline/investigator/internal/models"
	"github.com/osint-pipeline/investigator/internal/perr"
)

//go:embed migrations
var migrationsFS embed.FS

// SQLiteConfig configures the sqlite-backed Store, grounded on the
// teacher pack's evidence.SQLiteConfig (mercator-hq-jupiter's
// pkg/evidence/storage/sqlite.go): a plain config struct plus pragma-driven
// tuning rather than a dozen functional options.
type SQLiteConfig struct {
	Path         string
	MaxOpenConns int
	MaxIdleConns int
	WALMode      bool
	BusyTimeout  time.Duration
}

// DefaultSQLiteConfig returns sane defaults for a single-process deployment.
func DefaultSQLiteConfig() SQLiteConfig {
	return SQLiteConfig{
		Path:         "data/investigations.db",
		MaxOpenConns: 10,
		MaxIdleConns: 5,
		WALMode:      true,
		BusyTimeout:  5 * time.Second,
	}
}

// SQLiteStore is the Store implementation backed by modernc.org/sqlite (a
// pure-Go driver) for every query it runs; the golang-migrate sqlite3
// database driver used by runMigrations still imports the cgo-based
// mattn/go-sqlite3, so the binary is not cgo-free. The database/sql
// surface and SQL dialect golang-migrate's sqlite3 driver expects are the
// same regardless of which driver registered "sqlite3"/"sqlite" with
// database/sql, so the migration tooling below is unaffected by the swap.
type SQLiteStore struct {
	db     *sql.DB
	config SQLiteConfig
	logger *zap.SugaredLogger
}

// NewSQLiteStore opens config.Path, applies pragmas, and runs every
// pending embedded migration before returning. logger may be nil, in which
// case a no-op logger is used (mirroring the teacher's constructors, which
// always take a *zap.Logger rather than reaching for a package-level one).
func NewSQLiteStore(config SQLiteConfig, logger *zap.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	// _time_format=sqlite stores time values in a form SQLite's date
	// functions parse, which DeleteOlderThan's datetime() cutoff relies on.
	db, err := sql.Open("sqlite", config.Path+"?_time_format=sqlite")
	if err != nil {
		return nil, perr.New(perr.KindInternal, "store.open", err)
	}

	db.SetMaxOpenConns(config.MaxOpenConns)
	db.SetMaxIdleConns(config.MaxIdleConns)

	s := &SQLiteStore{db: db, config: config, logger: logger.Sugar()}

	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	s.logger.Infow("store: sqlite backend ready", "path", config.Path, "wal", config.WALMode)
	return s, nil
}

func (s *SQLiteStore) initialize() error {
	if s.config.WALMode {
		if _, err := s.db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
			return perr.New(perr.KindInternal, "store.enable_wal", err)
		}
	}

	busyTimeoutMs := s.config.BusyTimeout.Milliseconds()
	if _, err := s.db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d;", busyTimeoutMs)); err != nil {
		return perr.New(perr.KindInternal, "store.set_busy_timeout", err)
	}

	return s.runMigrations()
}

// runMigrations follows the teacher pack's golang-migrate+iofs pattern
// (codeready-toolchain-tarsy's pkg/database/client.go): embed the .sql
// files, wrap the live *sql.DB in a migrate database driver, and apply
// every pending "up" migration. Only the source driver is closed
// afterward — closing the migrate.Migrate instance would close the
// underlying *sql.DB this store keeps using.
func (s *SQLiteStore) runMigrations() error {
	driver, err := sqlite3.WithInstance(s.db, &sqlite3.Config{})
	if err != nil {
		return perr.New(perr.KindInternal, "store.migrate_driver", err)
	}

	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return perr.New(perr.KindInternal, "store.migrate_source", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "investigations", driver)
	if err != nil {
		return perr.New(perr.KindInternal, "store.migrate_instance", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return perr.New(perr.KindInternal, "store.migrate_up", err)
	}

	if err := sourceDriver.Close(); err != nil {
		return perr.New(perr.KindInternal, "store.migrate_close_source", err)
	}
	return nil
}

// Close releases the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) SaveInvestigation(ctx context.Context, record models.InvestigationRecord) error {
	recordJSON, err := json.Marshal(record)
	if err != nil {
		return perr.New(perr.KindInternal, "store.save_investigation", err)
	}

	var reportJSON []byte
	if record.Report != nil {
		reportJSON, err = json.Marshal(record.Report)
		if err != nil {
			return perr.New(perr.KindInternal, "store.save_investigation", err)
		}
	}

	retentionDays := record.Seed.Constraints.RetentionDays
	if retentionDays <= 0 {
		retentionDays = 30
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO investigations (investigation_id, status, retention_days, created_at, updated_at, record_json, report_json)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(investigation_id) DO UPDATE SET
			status = excluded.status,
			retention_days = excluded.retention_days,
			updated_at = excluded.updated_at,
			record_json = excluded.record_json,
			report_json = COALESCE(excluded.report_json, investigations.report_json)
	`, record.InvestigationID, string(record.Status), retentionDays, record.StartedAt, record.UpdatedAt, recordJSON, nullableBytes(reportJSON))
	if err != nil {
		return perr.New(perr.KindInternal, "store.save_investigation", err)
	}
	return nil
}

func (s *SQLiteStore) GetInvestigation(ctx context.Context, investigationID string) (models.InvestigationRecord, error) {
	var recordJSON []byte
	err := s.db.QueryRowContext(ctx, `SELECT record_json FROM investigations WHERE investigation_id = ?`, investigationID).Scan(&recordJSON)
	if err == sql.ErrNoRows {
		return models.InvestigationRecord{}, notFound("store.get_investigation", investigationID)
	}
	if err != nil {
		return models.InvestigationRecord{}, perr.New(perr.KindInternal, "store.get_investigation", err)
	}

	var record models.InvestigationRecord
	if err := json.Unmarshal(recordJSON, &record); err != nil {
		return models.InvestigationRecord{}, perr.New(perr.KindInternal, "store.get_investigation", err)
	}
	return record, nil
}

func (s *SQLiteStore) SaveReport(ctx context.Context, investigationID string, report models.Report) error {
	reportJSON, err := json.Marshal(report)
	if err != nil {
		return perr.New(perr.KindInternal, "store.save_report", err)
	}

	res, err := s.db.ExecContext(ctx, `UPDATE investigations SET report_json = ?, updated_at = ? WHERE investigation_id = ?`,
		reportJSON, time.Now().UTC(), investigationID)
	if err != nil {
		return perr.New(perr.KindInternal, "store.save_report", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return perr.New(perr.KindInternal, "store.save_report", err)
	}
	if rows == 0 {
		return notFound("store.save_report", investigationID)
	}
	return nil
}

func (s *SQLiteStore) GetReport(ctx context.Context, investigationID string) (models.Report, error) {
	var reportJSON []byte
	err := s.db.QueryRowContext(ctx, `SELECT report_json FROM investigations WHERE investigation_id = ?`, investigationID).Scan(&reportJSON)
	if err == sql.ErrNoRows {
		return models.Report{}, notFound("store.get_report", investigationID)
	}
	if err != nil {
		return models.Report{}, perr.New(perr.KindInternal, "store.get_report", err)
	}
	if reportJSON == nil {
		return models.Report{}, perr.New(perr.KindNotReady, "store.get_report", fmt.Errorf("investigation %q has no report yet", investigationID))
	}

	var report models.Report
	if err := json.Unmarshal(reportJSON, &report); err != nil {
		return models.Report{}, perr.New(perr.KindInternal, "store.get_report", err)
	}
	return report, nil
}

func (s *SQLiteStore) ListInvestigations(ctx context.Context, limit, offset int) ([]models.InvestigationRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT record_json FROM investigations
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, perr.New(perr.KindInternal, "store.list_investigations", err)
	}
	defer rows.Close()

	var out []models.InvestigationRecord
	for rows.Next() {
		var recordJSON []byte
		if err := rows.Scan(&recordJSON); err != nil {
			return nil, perr.New(perr.KindInternal, "store.list_investigations", err)
		}
		var record models.InvestigationRecord
		if err := json.Unmarshal(recordJSON, &record); err != nil {
			return nil, perr.New(perr.KindInternal, "store.list_investigations", err)
		}
		out = append(out, record)
	}
	if err := rows.Err(); err != nil {
		return nil, perr.New(perr.KindInternal, "store.list_investigations", err)
	}
	return out, nil
}

func (s *SQLiteStore) DeleteInvestigation(ctx context.Context, investigationID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM investigations WHERE investigation_id = ?`, investigationID)
	if err != nil {
		return perr.New(perr.KindInternal, "store.delete_investigation", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return perr.New(perr.KindInternal, "store.delete_investigation", err)
	}
	if rows == 0 {
		return notFound("store.delete_investigation", investigationID)
	}
	return nil
}

// DeleteOlderThan removes every investigation created before cutoff whose
// own retention_days has elapsed, for internal/store/retention. It returns
// the number of rows removed.
func (s *SQLiteStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM investigations
		WHERE datetime(created_at, '+' || retention_days || ' days') < ?
	`, cutoff.UTC())
	if err != nil {
		return 0, perr.New(perr.KindInternal, "store.prune", err)
	}
	return res.RowsAffected()
}

func nullableBytes(b []byte) interface{} {
	if b == nil {
		return nil
	}
	return b
}

var _ Store = (*SQLiteStore)(nil)
