// Copyright 2026 Chava Systems
//
// Secondary index over evidence records by verifier and time

package index

import (
	"sort"
	"sync"

	"github.com/chava-systems/chava/pkg/evidence"
)

// EvidenceEntry pairs a stored record with the object it belongs to, the
// unit both of EvidenceLogIndex's views return.
type EvidenceEntry struct {
	ObjID  string
	Record evidence.Record
}

// EvidenceLogIndex maintains two query views: a per-verifier ordered
// list, and a timestamp-sorted sequence searched with sort.Search for
// inclusive range queries.
type EvidenceLogIndex struct {
	mu         sync.RWMutex
	byVerifier map[string][]EvidenceEntry
	byTime     []EvidenceEntry // kept sorted by Record.Timestamp
}

// NewEvidenceLogIndex returns an empty index.
func NewEvidenceLogIndex() *EvidenceLogIndex {
	return &EvidenceLogIndex{byVerifier: make(map[string][]EvidenceEntry)}
}

// Add appends a (objID, record) entry to both views, inserting into the
// time-sorted view at the position that preserves order.
func (idx *EvidenceLogIndex) Add(objID string, record evidence.Record) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	entry := EvidenceEntry{ObjID: objID, Record: record}
	idx.byVerifier[record.VerifierID] = append(idx.byVerifier[record.VerifierID], entry)

	pos := sort.Search(len(idx.byTime), func(i int) bool {
		return idx.byTime[i].Record.Timestamp >= record.Timestamp
	})
	idx.byTime = append(idx.byTime, EvidenceEntry{})
	copy(idx.byTime[pos+1:], idx.byTime[pos:])
	idx.byTime[pos] = entry
}

// ByVerifier returns the ordered entries logged under verifierID.
func (idx *EvidenceLogIndex) ByVerifier(verifierID string) []EvidenceEntry {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	entries := idx.byVerifier[verifierID]
	out := make([]EvidenceEntry, len(entries))
	copy(out, entries)
	return out
}

// TimeRange returns every entry with tStart <= timestamp <= tEnd, located
// by binary-searching both endpoints of the time-sorted view.
func (idx *EvidenceLogIndex) TimeRange(tStart, tEnd float64) []EvidenceEntry {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	lo := sort.Search(len(idx.byTime), func(i int) bool {
		return idx.byTime[i].Record.Timestamp >= tStart
	})
	hi := sort.Search(len(idx.byTime), func(i int) bool {
		return idx.byTime[i].Record.Timestamp > tEnd
	})
	if lo >= hi {
		return nil
	}
	out := make([]EvidenceEntry, hi-lo)
	copy(out, idx.byTime[lo:hi])
	return out
}
