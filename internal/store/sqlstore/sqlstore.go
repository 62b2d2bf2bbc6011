// Package sqlstore implements the persistence gateway over a relational
// database. Records map to normalized tables whose foreign keys enforce the
// patient → gene record → mutation record ownership chain; each committed
// transaction is persisted inside one native SQL transaction.
//
// Three database/sql drivers are supported: sqlite (embedded, the default),
// pgx (PostgreSQL) and duckdb (analytical deployments).
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver
	_ "github.com/marcboeker/go-duckdb" // register duckdb
	_ "modernc.org/sqlite"              // register the pure-go sqlite driver

	"github.com/genovault/genovault/internal/record"
	"github.com/genovault/genovault/internal/store"
)

// Driver names a supported database/sql driver.
type Driver string

const (
	DriverSQLite   Driver = "sqlite"
	DriverPostgres Driver = "pgx"
	DriverDuckDB   Driver = "duckdb"
)

// Store is the relational backend. It wraps the shared transactional core
// and rewrites the normalized tables after every committed transaction.
type Store struct {
	*store.Memory
	db     *sql.DB
	driver Driver
	logger *zap.Logger
}

var _ store.Store = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// Open connects, applies the schema and hydrates the store from existing
// rows. A connection failure surfaces as StorageUnavailable.
func Open(driver Driver, dsn string, opts ...Option) (*Store, error) {
	switch driver {
	case DriverSQLite, DriverPostgres, DriverDuckDB:
	default:
		return nil, fmt.Errorf("unsupported sql driver %q", driver)
	}

	db, err := sql.Open(string(driver), dsn)
	if err != nil {
		return nil, &record.StorageUnavailable{Err: fmt.Errorf("open %s: %w", driver, err)}
	}
	if driver == DriverSQLite {
		// Single connection so the foreign-key pragma applies to every
		// statement.
		db.SetMaxOpenConns(1)
	}

	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, &record.StorageUnavailable{Err: fmt.Errorf("ping %s: %w", driver, err)}
	}

	s := &Store{db: db, driver: driver, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	s.Memory = store.NewMemory(store.WithPersist(s.persist))

	if err := s.ensureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := s.hydrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// DB exposes the underlying handle for integration tests.
func (s *Store) DB() *sql.DB { return s.db }

// Close closes the database connection.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) ensureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS patients (
			id    TEXT PRIMARY KEY,
			age   INTEGER,
			sex   TEXT NOT NULL,
			stage TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS gene_records (
			id         TEXT PRIMARY KEY,
			patient_id TEXT NOT NULL REFERENCES patients(id),
			gene_id    TEXT NOT NULL,
			expression DOUBLE PRECISION NOT NULL,
			sequence   TEXT NOT NULL DEFAULT '',
			UNIQUE (patient_id, gene_id)
		)`,
		`CREATE TABLE IF NOT EXISTS mutation_records (
			id              TEXT PRIMARY KEY,
			gene_record_id  TEXT NOT NULL REFERENCES gene_records(id),
			type            TEXT NOT NULL,
			classification  TEXT NOT NULL,
			variant         TEXT NOT NULL DEFAULT '',
			catalog_version TEXT NOT NULL,
			rule_version    TEXT NOT NULL,
			detected_at     TEXT NOT NULL
		)`,
	}
	if s.driver == DriverSQLite {
		stmts = append([]string{`PRAGMA foreign_keys = ON`}, stmts...)
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}

func (s *Store) hydrate(ctx context.Context) error {
	snap := record.Snapshot{SchemaVersion: record.SchemaVersion}

	rows, err := s.db.QueryContext(ctx, `SELECT id, age, sex, stage FROM patients ORDER BY id`)
	if err != nil {
		return fmt.Errorf("select patients: %w", err)
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var p record.Patient
		var age sql.NullInt64
		if err := rows.Scan(&p.ID, &age, &p.Sex, &p.Stage); err != nil {
			return fmt.Errorf("scan patient: %w", err)
		}
		if age.Valid {
			v := int(age.Int64)
			p.Age = &v
		}
		snap.Patients = append(snap.Patients, p)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate patients: %w", err)
	}

	geneRows, err := s.db.QueryContext(ctx, `SELECT id, patient_id, gene_id, expression, sequence FROM gene_records ORDER BY id`)
	if err != nil {
		return fmt.Errorf("select gene records: %w", err)
	}
	defer func() { _ = geneRows.Close() }()
	for geneRows.Next() {
		var g record.GeneRecord
		if err := geneRows.Scan(&g.ID, &g.PatientID, &g.GeneID, &g.Expression, &g.Sequence); err != nil {
			return fmt.Errorf("scan gene record: %w", err)
		}
		snap.GeneRecords = append(snap.GeneRecords, g)
	}
	if err := geneRows.Err(); err != nil {
		return fmt.Errorf("iterate gene records: %w", err)
	}

	mutRows, err := s.db.QueryContext(ctx, `SELECT id, gene_record_id, type, classification, variant, catalog_version, rule_version, detected_at FROM mutation_records ORDER BY id`)
	if err != nil {
		return fmt.Errorf("select mutation records: %w", err)
	}
	defer func() { _ = mutRows.Close() }()
	for mutRows.Next() {
		var m record.MutationRecord
		var detectedAt string
		if err := mutRows.Scan(&m.ID, &m.GeneRecordID, &m.Type, &m.Classification, &m.Variant, &m.CatalogVersion, &m.RuleVersion, &detectedAt); err != nil {
			return fmt.Errorf("scan mutation record: %w", err)
		}
		if m.DetectedAt, err = time.Parse(time.RFC3339Nano, detectedAt); err != nil {
			return fmt.Errorf("parse detected_at %q: %w", detectedAt, err)
		}
		snap.Mutations = append(snap.Mutations, m)
	}
	if err := mutRows.Err(); err != nil {
		return fmt.Errorf("iterate mutation records: %w", err)
	}

	return s.ImportSnapshot(snap)
}

// persist rewrites the tables from the committed snapshot inside one SQL
// transaction. Child tables are cleared first and repopulated last so the
// foreign keys hold at every statement.
func (s *Store) persist(snap record.Snapshot) error {
	ctx := context.Background()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return &record.StorageUnavailable{Err: fmt.Errorf("begin: %w", err)}
	}
	defer func() { _ = tx.Rollback() }()

	for _, table := range []string{"mutation_records", "gene_records", "patients"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	for _, p := range snap.Patients {
		var age any
		if p.Age != nil {
			age = *p.Age
		}
		if _, err := tx.ExecContext(ctx,
			s.rebind(`INSERT INTO patients (id, age, sex, stage) VALUES (?, ?, ?, ?)`),
			p.ID, age, string(p.Sex), string(p.Stage)); err != nil {
			return fmt.Errorf("insert patient %s: %w", p.ID, err)
		}
	}
	for _, g := range snap.GeneRecords {
		if _, err := tx.ExecContext(ctx,
			s.rebind(`INSERT INTO gene_records (id, patient_id, gene_id, expression, sequence) VALUES (?, ?, ?, ?, ?)`),
			g.ID, g.PatientID, g.GeneID, g.Expression, g.Sequence); err != nil {
			return fmt.Errorf("insert gene record %s: %w", g.ID, err)
		}
	}
	for _, m := range snap.Mutations {
		if _, err := tx.ExecContext(ctx,
			s.rebind(`INSERT INTO mutation_records (id, gene_record_id, type, classification, variant, catalog_version, rule_version, detected_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`),
			m.ID, m.GeneRecordID, string(m.Type), string(m.Classification), m.Variant,
			m.CatalogVersion, m.RuleVersion, m.DetectedAt.UTC().Format(time.RFC3339Nano)); err != nil {
			return fmt.Errorf("insert mutation record %s: %w", m.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// rebind converts ?-style placeholders to the $n style pgx expects.
func (s *Store) rebind(query string) string {
	if s.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}
