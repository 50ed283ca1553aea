// Package archive persists completed runs' artifacts to a durable SQLite
// store and hands back archive references.
package archive

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/agentictax/taxpilot/internal/common"
	"github.com/agentictax/taxpilot/internal/model"
	"github.com/google/uuid"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// Store implements the archival stage's durable store using SQLite.
type Store struct {
	db     *sql.DB
	dbPath string
}

// NewStore opens (or creates) the archive database at dbPath. Use
// ":memory:" for an ephemeral store.
func NewStore(dbPath string) (*Store, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("dbPath is required")
	}

	if dbPath != ":memory:" {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite doesn't benefit from multiple connections.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{db: db, dbPath: dbPath}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Migrate creates the archive schema if it does not exist.
func (s *Store) Migrate(ctx context.Context) error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS archived_runs (
			ref TEXT PRIMARY KEY,
			run_id TEXT NOT NULL,
			phase TEXT NOT NULL,
			archived_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS archived_documents (
			id TEXT NOT NULL,
			archive_ref TEXT NOT NULL REFERENCES archived_runs(ref),
			name TEXT NOT NULL,
			type TEXT NOT NULL,
			status TEXT NOT NULL,
			confidence REAL NOT NULL,
			uploaded_at TIMESTAMP NOT NULL,
			PRIMARY KEY (archive_ref, id)
		)`,
		`CREATE TABLE IF NOT EXISTS archived_deductions (
			id TEXT NOT NULL,
			archive_ref TEXT NOT NULL REFERENCES archived_runs(ref),
			category TEXT NOT NULL,
			amount REAL NOT NULL,
			description TEXT NOT NULL,
			explanation TEXT NOT NULL,
			source_ref TEXT NOT NULL,
			confidence REAL NOT NULL,
			position INTEGER NOT NULL,
			PRIMARY KEY (archive_ref, id)
		)`,
		`CREATE TABLE IF NOT EXISTS archived_risk_findings (
			id TEXT NOT NULL,
			archive_ref TEXT NOT NULL REFERENCES archived_runs(ref),
			category TEXT NOT NULL,
			severity TEXT NOT NULL,
			description TEXT NOT NULL,
			mitigation TEXT NOT NULL,
			position INTEGER NOT NULL,
			PRIMARY KEY (archive_ref, id)
		)`,
	}

	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}

// ArchiveRun writes a run's full artifact snapshot in one transaction and
// returns the archive reference.
func (s *Store) ArchiveRun(ctx context.Context, runID string, snap model.Snapshot) (string, error) {
	ref := "ARC-" + uuid.NewString()[:8]

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO archived_runs (ref, run_id, phase, archived_at) VALUES (?, ?, ?, ?)`,
		ref, runID, string(snap.Phase), time.Now().UTC()); err != nil {
		return "", fmt.Errorf("failed to insert run: %w", err)
	}

	for _, d := range snap.Documents {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO archived_documents (id, archive_ref, name, type, status, confidence, uploaded_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			d.ID, ref, d.Name, d.Type, string(d.Status), d.Confidence, d.UploadedAt.UTC()); err != nil {
			return "", fmt.Errorf("failed to insert document %s: %w", d.ID, err)
		}
	}

	for i, d := range snap.Deductions {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO archived_deductions (id, archive_ref, category, amount, description, explanation, source_ref, confidence, position)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			d.ID, ref, d.Category, d.Amount, d.Description, d.Explanation, d.SourceRef, d.Confidence, i); err != nil {
			return "", fmt.Errorf("failed to insert deduction %s: %w", d.ID, err)
		}
	}

	for i, r := range snap.RiskFindings {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO archived_risk_findings (id, archive_ref, category, severity, description, mitigation, position)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			r.ID, ref, r.Category, string(r.Severity), r.Description, r.Mitigation, i); err != nil {
			return "", fmt.Errorf("failed to insert risk finding %s: %w", r.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit archive: %w", err)
	}
	return ref, nil
}

// GetArchivedRun reads back the snapshot stored under ref.
func (s *Store) GetArchivedRun(ctx context.Context, ref string) (model.Snapshot, error) {
	var snap model.Snapshot
	var phase string

	err := s.db.QueryRowContext(ctx,
		`SELECT run_id, phase FROM archived_runs WHERE ref = ?`, ref).
		Scan(&snap.RunID, &phase)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Snapshot{}, fmt.Errorf("archive %s: %w", ref, common.ErrNotFound)
	}
	if err != nil {
		return model.Snapshot{}, fmt.Errorf("failed to load archive: %w", err)
	}
	snap.Phase = model.Phase(phase)

	docRows, err := s.db.QueryContext(ctx,
		`SELECT id, name, type, status, confidence, uploaded_at
		 FROM archived_documents WHERE archive_ref = ? ORDER BY uploaded_at`, ref)
	if err != nil {
		return model.Snapshot{}, fmt.Errorf("failed to load documents: %w", err)
	}
	defer func() { _ = docRows.Close() }()
	for docRows.Next() {
		var d model.Document
		var status string
		if err := docRows.Scan(&d.ID, &d.Name, &d.Type, &status, &d.Confidence, &d.UploadedAt); err != nil {
			return model.Snapshot{}, fmt.Errorf("failed to scan document: %w", err)
		}
		d.Status = model.DocumentStatus(status)
		snap.Documents = append(snap.Documents, d)
	}
	if err := docRows.Err(); err != nil {
		return model.Snapshot{}, err
	}

	dedRows, err := s.db.QueryContext(ctx,
		`SELECT id, category, amount, description, explanation, source_ref, confidence
		 FROM archived_deductions WHERE archive_ref = ? ORDER BY position`, ref)
	if err != nil {
		return model.Snapshot{}, fmt.Errorf("failed to load deductions: %w", err)
	}
	defer func() { _ = dedRows.Close() }()
	for dedRows.Next() {
		var d model.Deduction
		if err := dedRows.Scan(&d.ID, &d.Category, &d.Amount, &d.Description, &d.Explanation, &d.SourceRef, &d.Confidence); err != nil {
			return model.Snapshot{}, fmt.Errorf("failed to scan deduction: %w", err)
		}
		snap.Deductions = append(snap.Deductions, d)
	}
	if err := dedRows.Err(); err != nil {
		return model.Snapshot{}, err
	}

	riskRows, err := s.db.QueryContext(ctx,
		`SELECT id, category, severity, description, mitigation
		 FROM archived_risk_findings WHERE archive_ref = ? ORDER BY position`, ref)
	if err != nil {
		return model.Snapshot{}, fmt.Errorf("failed to load risk findings: %w", err)
	}
	defer func() { _ = riskRows.Close() }()
	for riskRows.Next() {
		var r model.RiskFinding
		var severity string
		if err := riskRows.Scan(&r.ID, &r.Category, &severity, &r.Description, &r.Mitigation); err != nil {
			return model.Snapshot{}, fmt.Errorf("failed to scan risk finding: %w", err)
		}
		r.Severity = model.Severity(severity)
		snap.RiskFindings = append(snap.RiskFindings, r)
	}
	if err := riskRows.Err(); err != nil {
		return model.Snapshot{}, err
	}

	return snap, nil
}
