// Copyright 2026 Chava Systems
//
// Evidence records, canonical hashing and chain verification

// Package evidence implements the append-only, hash-chained verdict log
// Chava attaches to objects, and the conflict detector that the KMS and
// Unwrap gate release on.
//
// Hashing and chain-walking follow a tamper-detection style familiar
// from Merkle-style inclusion proofs: sha256 over a canonical byte form,
// hex-encoded, compared with crypto/subtle.
package evidence

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"time"
)

// Result is a verifier verdict.
type Result string

const (
	Accept      Result = "accept"
	Reject      Result = "reject"
	Conditional Result = "conditional"
)

// Record is one entry in an object's evidence log. The hash (see Hash)
// deliberately covers only verifier_id/result/timestamp/prev_hash — kind
// and scope are carried for indexing but excluded from the hash.
type Record struct {
	VerifierID string  `json:"verifier_id"`
	Kind       string  `json:"kind"`
	Scope      string  `json:"scope"`
	Result     Result  `json:"result"`
	Timestamp  float64 `json:"timestamp"`
	PrevHash   string  `json:"prev_hash"`
	Hash       string  `json:"hash"`
}

// canonicalFields is the exact field set the hash is computed over. It is
// factored out so a future tightening (to include kind/scope) only
// touches this function.
func canonicalFields(r Record) map[string]any {
	return map[string]any{
		"ver":  r.VerifierID,
		"res":  string(r.Result),
		"ts":   r.Timestamp,
		"prev": r.PrevHash,
	}
}

// Hash computes H(record): SHA-256 over the canonical JSON serialization
// of {ver, res, ts, prev}, hex-encoded. encoding/json already emits map
// keys in sorted order, which is what "keys sorted lexicographically"
// requires.
func Hash(r Record) string {
	canonical, err := json.Marshal(canonicalFields(r))
	if err != nil {
		// canonicalFields only ever contains strings and a float64; this
		// cannot fail in practice.
		panic("evidence: canonical marshal failed: " + err.Error())
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:])
}

// New builds a Record for (kind, scope, result) chained after prevHash,
// with its Hash field populated. Timestamp is the caller's clock reading
// so that discharge can snapshot it once per attempt.
func New(verifierID, kind, scope string, result Result, timestamp time.Time, prevHash string) Record {
	r := Record{
		VerifierID: verifierID,
		Kind:       kind,
		Scope:      scope,
		Result:     result,
		Timestamp:  float64(timestamp.UnixNano()) / 1e9,
		PrevHash:   prevHash,
	}
	r.Hash = Hash(r)
	return r
}

// Chain is an ordered evidence log.
type Chain []Record

// Tail returns the last record's hash, or "" if the chain is empty — the
// read-snapshot a discharge attempt takes before its CAS commit.
func (c Chain) Tail() string {
	if len(c) == 0 {
		return ""
	}
	return c[len(c)-1].Hash
}

// VerifyChain checks that every record's stored hash matches its
// recomputed hash, and every record after position 0 chains to its
// predecessor. An empty chain verifies as true.
func VerifyChain(c Chain) bool {
	for i, record := range c {
		want := Hash(record)
		if subtle.ConstantTimeCompare([]byte(record.Hash), []byte(want)) != 1 {
			return false
		}
		if i > 0 {
			if record.PrevHash != c[i-1].Hash {
				return false
			}
		}
	}
	return true
}

// HasConflict partitions records by kind (absent kind groups under the
// empty-string bucket, for legacy records) and reports whether any group
// has a reject followed later by an accept.
func HasConflict(c Chain) bool {
	rejectSeen := make(map[string]bool)
	for _, record := range c {
		kind := record.Kind
		switch record.Result {
		case Reject:
			rejectSeen[kind] = true
		case Accept:
			if rejectSeen[kind] {
				return true
			}
		}
	}
	return false
}
