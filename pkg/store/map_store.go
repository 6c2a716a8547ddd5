// Copyright 2026 Chava Systems
//
// In-memory, gated-release ObligationKeyedStore

package store

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/chava-systems/chava/pkg/chava"
	"github.com/chava-systems/chava/pkg/evidence"
	"github.com/chava-systems/chava/pkg/kms"
	"github.com/chava-systems/chava/pkg/metrics"
	"github.com/chava-systems/chava/pkg/obligation"
)

type mapRecord struct {
	payload     []byte
	obligations obligation.Set
	evidence    evidence.Chain
}

// MapStore is the untrusted-consumer variant of an ObligationKeyedStore:
// an in-memory store whose retrieve path only ever releases the KMS
// cleared-key, never the store-time obligation-keyed one.
type MapStore struct {
	mu      sync.RWMutex
	kms     *kms.Service
	records map[string]mapRecord
	metrics *metrics.Registry // nil is valid: latency observation becomes a no-op
}

// MapStoreOption configures a MapStore.
type MapStoreOption func(*MapStore)

// WithMetrics records Store/Retrieve latency on reg's StoreDuration and
// RetrieveDuration histograms.
func WithMetrics(reg *metrics.Registry) MapStoreOption {
	return func(s *MapStore) { s.metrics = reg }
}

// NewMapStore constructs an empty MapStore bound to kmsSvc.
func NewMapStore(kmsSvc *kms.Service, opts ...MapStoreOption) *MapStore {
	s := &MapStore{kms: kmsSvc, records: make(map[string]mapRecord)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Store encrypts o.Value under K_O = KMS.DeriveKey(o.Obligations) and
// persists (payload, obligations, evidence), overwriting any prior record
// for id: a store record is overwritten in place by re-storing under the
// same id.
func (s *MapStore) Store(id string, o chava.Object) error {
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

	s.mu.Lock()
	s.records[id] = mapRecord{
		payload:     payload,
		obligations: o.Obligations.Clone(),
		evidence:    append(evidence.Chain(nil), o.Evidence...),
	}
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.StoreDuration.Observe(time.Since(start).Seconds())
	}
	return nil
}

// Retrieve implements the gated-release path: it builds a probe object
// from the stored obligations/evidence, asks the KMS for the cleared-key,
// and only then attempts decryption. A stored object whose ciphertext
// was sealed under non-empty obligations cannot be decrypted by the
// released K_∅ even if its obligations were later mutated to empty
// without a real discharge.
func (s *MapStore) Retrieve(id string) (chava.Object, error) {
	start := time.Now()
	defer func() {
		if s.metrics != nil {
			s.metrics.RetrieveDuration.Observe(time.Since(start).Seconds())
		}
	}()

	s.mu.RLock()
	rec, ok := s.records[id]
	s.mu.RUnlock()
	if !ok {
		return chava.Object{}, ErrNotFound
	}

	key, released := s.kms.VerifyAndReleaseKey(kms.Clearable{
		Obligations: rec.obligations,
		Evidence:    rec.evidence,
	})
	if !released {
		return chava.Object{}, ErrCryptographic
	}

	plaintext, err := open(key, rec.payload)
	if err != nil {
		return chava.Object{}, err
	}
	var value any
	if err := json.Unmarshal(plaintext, &value); err != nil {
		return chava.Object{}, fmt.Errorf("store: unmarshal value: %w", err)
	}

	return chava.Object{
		Value:       value,
		Obligations: rec.obligations.Clone(),
		Evidence:    append(evidence.Chain(nil), rec.evidence...),
	}, nil
}

// PeekTrusted re-derives K_O directly from the stored obligations and
// decrypts, without going through the KMS's gated release. Callers that
// administer a store directly (the CLI session operating on its own
// snapshot, not an untrusted consumer) use this instead of Retrieve,
// mirroring SQLStore's trusted-collaborator contract rather than
// MapStore's gated one.
func (s *MapStore) PeekTrusted(id string) (chava.Object, error) {
	s.mu.RLock()
	rec, ok := s.records[id]
	s.mu.RUnlock()
	if !ok {
		return chava.Object{}, ErrNotFound
	}

	key := s.kms.DeriveKey(rec.obligations)
	plaintext, err := open(key, rec.payload)
	if err != nil {
		return chava.Object{}, err
	}
	var value any
	if err := json.Unmarshal(plaintext, &value); err != nil {
		return chava.Object{}, fmt.Errorf("store: unmarshal value: %w", err)
	}

	return chava.Object{
		Value:       value,
		Obligations: rec.obligations.Clone(),
		Evidence:    append(evidence.Chain(nil), rec.evidence...),
	}, nil
}

// IDs returns every obj_id currently stored, in no particular order.
func (s *MapStore) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.records))
	for id := range s.records {
		out = append(out, id)
	}
	return out
}

// MutateObligations replaces the stored obligations for id without
// re-encrypting — used only to exercise the ciphertext-binding property:
// mutating obligations in place does not rederive the ciphertext, so a
// subsequent Retrieve still fails.
func (s *MapStore) MutateObligations(id string, obligations obligation.Set) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok {
		return ErrNotFound
	}
	rec.obligations = obligations.Clone()
	s.records[id] = rec
	return nil
}

// snapshotRecord is mapRecord's JSON wire form, used to persist a MapStore
// across process restarts for CLI sessions that select the "memory"
// backend but still want state to survive between invocations.
type snapshotRecord struct {
	Payload     string         `json:"payload"` // base64
	Obligations [][2]string    `json:"obligations"`
	Evidence    evidence.Chain `json:"evidence"`
}

// SaveToFile writes every stored record to path as JSON. Ciphertext stays
// sealed — this is a durability aid, not a plaintext export.
func (s *MapStore) SaveToFile(path string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]snapshotRecord, len(s.records))
	for id, rec := range s.records {
		out[id] = snapshotRecord{
			Payload:     base64.StdEncoding.EncodeToString(rec.payload),
			Obligations: rec.obligations.Pairs(),
			Evidence:    rec.evidence,
		}
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("store: marshal snapshot: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("store: write snapshot %s: %w", path, err)
	}
	return nil
}

// LoadMapStoreFromFile reconstructs a MapStore from a SaveToFile snapshot.
// A missing file yields an empty store, matching a first-run CLI session.
func LoadMapStoreFromFile(path string, kmsSvc *kms.Service, opts ...MapStoreOption) (*MapStore, error) {
	s := NewMapStore(kmsSvc, opts...)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: read snapshot %s: %w", path, err)
	}

	var in map[string]snapshotRecord
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, fmt.Errorf("store: unmarshal snapshot: %w", err)
	}
	for id, rec := range in {
		payload, err := base64.StdEncoding.DecodeString(rec.Payload)
		if err != nil {
			return nil, fmt.Errorf("store: decode snapshot payload for %s: %w", id, err)
		}
		s.records[id] = mapRecord{
			payload:     payload,
			obligations: obligation.FromPairs(rec.Obligations),
			evidence:    rec.Evidence,
		}
	}
	return s, nil
}
