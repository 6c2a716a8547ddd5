// Copyright 2026 Chava Systems
//
// Postgres-backed, trusted ObligationKeyedStore

package store

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"log"
	"sort"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/chava-systems/chava/pkg/chava"
	"github.com/chava-systems/chava/pkg/evidence"
	"github.com/chava-systems/chava/pkg/kms"
	"github.com/chava-systems/chava/pkg/metrics"
	"github.com/chava-systems/chava/pkg/obligation"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLStore is the trusted persistent-store variant of an
// ObligationKeyedStore: a Postgres-backed store that re-derives K_O
// directly on retrieve, since it is a trusted in-system collaborator and
// not the gated untrusted-consumer surface MapStore implements.
type SQLStore struct {
	db      *sql.DB
	kms     *kms.Service
	logger  *log.Logger
	metrics *metrics.Registry // nil is valid: latency observation becomes a no-op
}

// SQLStoreOption configures an SQLStore.
type SQLStoreOption func(*SQLStore)

// WithLogger overrides the default logger.
func WithLogger(logger *log.Logger) SQLStoreOption {
	return func(s *SQLStore) { s.logger = logger }
}

// WithSQLMetrics records Store/Retrieve latency on reg's StoreDuration and
// RetrieveDuration histograms.
func WithSQLMetrics(reg *metrics.Registry) SQLStoreOption {
	return func(s *SQLStore) { s.metrics = reg }
}

// NewSQLStore opens dataSourceName (a Postgres DSN, or the literal
// ":memory:" placeholder is NOT supported here — that is MapStore's
// role) and runs embedded migrations.
func NewSQLStore(ctx context.Context, dataSourceName string, kmsSvc *kms.Service, opts ...SQLStoreOption) (*SQLStore, error) {
	db, err := sql.Open("postgres", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("store: open database: %w", err)
	}

	s := &SQLStore{
		db:     db,
		kms:    kmsSvc,
		logger: log.New(log.Writer(), "[chava:store] ", log.LstdFlags),
	}
	for _, opt := range opts {
		opt(s)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		return nil, fmt.Errorf("store: ping database: %w", err)
	}

	if err := s.migrate(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SQLStore) migrate(ctx context.Context) error {
	entries, err := fs.Glob(migrationsFS, "migrations/*.sql")
	if err != nil {
		return fmt.Errorf("store: glob migrations: %w", err)
	}
	sort.Strings(entries)
	for _, name := range entries {
		contents, err := migrationsFS.ReadFile(name)
		if err != nil {
			return fmt.Errorf("store: read migration %s: %w", name, err)
		}
		if _, err := s.db.ExecContext(ctx, string(contents)); err != nil {
			return fmt.Errorf("store: apply migration %s: %w", name, err)
		}
	}
	return nil
}

// Close releases the underlying connection pool.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// Store persists o under id, rebuilding the secondary index tables within
// the same transaction (delete-then-insert).
func (s *SQLStore) Store(ctx context.Context, id string, o chava.Object) error {
	start := time.Now()
	key := s.kms.DeriveKey(o.Obligations)
	plaintext, err := json.Marshal(o.Value)
	if err != nil {
		return fmt.Errorf("store: marshal value: %w", err)
	}
	payload, err := seal(key, plaintext)
	if err != nil {
		return err
	}

	obligationsJSON, err := json.Marshal(o.Obligations.Pairs())
	if err != nil {
		return fmt.Errorf("store: marshal obligations: %w", err)
	}
	evidenceJSON, err := json.Marshal(o.Evidence)
	if err != nil {
		return fmt.Errorf("store: marshal evidence: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	_, err = tx.ExecContext(ctx, `
		INSERT INTO chava_objects (obj_id, value_encrypted, obligations_json, evidence_json, updated_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (obj_id) DO UPDATE SET
			value_encrypted  = EXCLUDED.value_encrypted,
			obligations_json = EXCLUDED.obligations_json,
			evidence_json    = EXCLUDED.evidence_json,
			updated_at       = now()
	`, id, payload, string(obligationsJSON), string(evidenceJSON))
	if err != nil {
		return fmt.Errorf("store: upsert object: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM obligation_index WHERE obj_id = $1`, id); err != nil {
		return fmt.Errorf("store: clear obligation index: %w", err)
	}
	for _, ob := range o.Obligations {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO obligation_index (obj_id, kind, scope) VALUES ($1, $2, $3)
			ON CONFLICT (obj_id, kind, scope) DO NOTHING
		`, id, ob.Kind, ob.Scope); err != nil {
			return fmt.Errorf("store: insert obligation index: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM evidence_index WHERE obj_id = $1`, id); err != nil {
		return fmt.Errorf("store: clear evidence index: %w", err)
	}
	for _, rec := range o.Evidence {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO evidence_index (obj_id, verifier_id, timestamp, result) VALUES ($1, $2, $3, $4)
		`, id, rec.VerifierID, rec.Timestamp, string(rec.Result)); err != nil {
			return fmt.Errorf("store: insert evidence index: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: commit: %w", err)
	}
	if s.metrics != nil {
		s.metrics.StoreDuration.Observe(time.Since(start).Seconds())
	}
	s.logger.Printf("stored object %s (%d obligations, %d evidence records)", id, len(o.Obligations), len(o.Evidence))
	return nil
}

// Retrieve re-derives K_O directly from the stored obligations (the
// trusted-store path does not gate on clearance — that is MapStore's
// contract) and decrypts the payload.
func (s *SQLStore) Retrieve(ctx context.Context, id string) (chava.Object, error) {
	start := time.Now()
	defer func() {
		if s.metrics != nil {
			s.metrics.RetrieveDuration.Observe(time.Since(start).Seconds())
		}
	}()

	var (
		payload         []byte
		obligationsJSON string
		evidenceJSON    string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT value_encrypted, obligations_json, evidence_json FROM chava_objects WHERE obj_id = $1
	`, id).Scan(&payload, &obligationsJSON, &evidenceJSON)
	if err == sql.ErrNoRows {
		return chava.Object{}, ErrNotFound
	}
	if err != nil {
		return chava.Object{}, fmt.Errorf("store: query object: %w", err)
	}

	var pairs [][2]string
	if err := json.Unmarshal([]byte(obligationsJSON), &pairs); err != nil {
		return chava.Object{}, fmt.Errorf("store: unmarshal obligations: %w", err)
	}
	obligations := obligation.FromPairs(pairs)

	var evidenceChain evidence.Chain
	if err := json.Unmarshal([]byte(evidenceJSON), &evidenceChain); err != nil {
		return chava.Object{}, fmt.Errorf("store: unmarshal evidence: %w", err)
	}

	key := s.kms.DeriveKey(obligations)
	plaintext, err := open(key, payload)
	if err != nil {
		return chava.Object{}, err
	}
	var value any
	if err := json.Unmarshal(plaintext, &value); err != nil {
		return chava.Object{}, fmt.Errorf("store: unmarshal value: %w", err)
	}

	return chava.Object{Value: value, Obligations: obligations, Evidence: evidenceChain}, nil
}

// Delete removes id and its secondary-index rows.
func (s *SQLStore) Delete(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	for _, table := range []string{"evidence_index", "obligation_index", "chava_objects"} {
		col := "obj_id"
		if _, err := tx.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE %s = $1`, table, col), id); err != nil {
			return fmt.Errorf("store: delete from %s: %w", table, err)
		}
	}
	return tx.Commit()
}

// ObjectsWithKind queries the obligation_index for ids currently carrying
// an obligation of the given kind — a thin SQL-backed analog of C7's
// InvertedObligationIndex for callers that want the persisted view.
func (s *SQLStore) ObjectsWithKind(ctx context.Context, kind string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT obj_id FROM obligation_index WHERE kind = $1`, kind)
	if err != nil {
		return nil, fmt.Errorf("store: query obligation index: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("store: scan obligation index: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
