// Copyright 2026 Chava Systems
//
// Obligation-keyed key derivation and gated key release

// Package kms implements obligation-keyed key derivation and gated
// release of the cleared-key K_∅, bound to obligation-set emptiness,
// chain integrity, and conflict-freedom.
//
// The KDF uses golang.org/x/crypto/pbkdf2, the ecosystem-standard
// PBKDF2 implementation, in preference to a hand-rolled derivation.
package kms

import (
	"crypto/sha256"
	"encoding/json"
	"time"

	"golang.org/x/crypto/pbkdf2"

	"github.com/chava-systems/chava/pkg/evidence"
	"github.com/chava-systems/chava/pkg/metrics"
	"github.com/chava-systems/chava/pkg/obligation"
)

const (
	pbkdf2Iterations = 100_000
	keyLenBytes      = 32
)

// Service holds the process-wide server secret σ, read-only and
// initialized once at startup, and derives obligation-keyed secrets from
// it. It never exposes σ itself.
type Service struct {
	serverSecret []byte
	metrics      *metrics.Registry // nil is valid: KDF timing becomes a no-op
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithMetrics records PBKDF2 derivation latency on reg's KDFDuration
// histogram — the KDF is the slowest step in the key-release path by far.
func WithMetrics(reg *metrics.Registry) ServiceOption {
	return func(s *Service) { s.metrics = reg }
}

// NewService constructs a Service from the KMS server secret. The caller
// owns the secret's lifecycle — injection and rotation happen outside
// this package.
func NewService(serverSecret []byte, opts ...ServiceOption) *Service {
	// Defensive copy: the core never shares serverSecret's backing array
	// with a caller that might later zero or mutate it.
	owned := make([]byte, len(serverSecret))
	copy(owned, serverSecret)
	s := &Service{serverSecret: owned}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DeriveKey computes K_O = PBKDF2-HMAC-SHA256(σ, salt, 100_000, 32) where
// salt = SHA-256(canonical(sorted(obligations))). Sorting before hashing
// ensures two obligation multisets that are equal as multisets yield
// byte-identical salts regardless of insertion order.
func (s *Service) DeriveKey(obligations obligation.Set) []byte {
	start := time.Now()
	sorted := obligations.SortedCopy()
	canonical, err := json.Marshal(sorted.Pairs())
	if err != nil {
		panic("kms: canonical marshal of obligations failed: " + err.Error())
	}
	salt := sha256.Sum256(canonical)
	key := pbkdf2.Key(s.serverSecret, salt[:], pbkdf2Iterations, keyLenBytes, sha256.New)
	if s.metrics != nil {
		s.metrics.KDFDuration.Observe(time.Since(start).Seconds())
	}
	return key
}

// ClearedKey returns K_∅, the key derived from the empty obligation set.
func (s *Service) ClearedKey() []byte {
	return s.DeriveKey(nil)
}

// Clearable is the minimal view VerifyAndReleaseKey needs — callers pass
// a probe object carrying only obligations and evidence, typically built
// with a nil Value.
type Clearable struct {
	Obligations obligation.Set
	Evidence    evidence.Chain
}

// VerifyAndReleaseKey releases K_∅ only if o has no remaining
// obligations, its evidence chain verifies, and it carries no
// reject-then-accept conflict. Returns (nil, false) otherwise.
func (s *Service) VerifyAndReleaseKey(o Clearable) ([]byte, bool) {
	if len(o.Obligations) > 0 {
		return nil, false
	}
	if !evidence.VerifyChain(o.Evidence) {
		return nil, false
	}
	if evidence.HasConflict(o.Evidence) {
		return nil, false
	}
	return s.ClearedKey(), true
}
