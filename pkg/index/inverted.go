// Copyright 2026 Chava Systems
//
// Inverted index from obligation kind to object id

// Package index implements the SecondaryIndexes (C7): the inverted
// obligation index, the hierarchical pointer trie, and the evidence log's
// two query views. None of these are authoritative state — they are
// derived structures a caller rebuilds or incrementally maintains
// alongside a chava.Object's obligation/evidence changes.
//
// Grounded on original_source/chava/indexes.py. The RWMutex-guarded map
// style follows pkg/verifier's Registry.
package index

import (
	"sync"

	"github.com/chava-systems/chava/pkg/obligation"
)

// InvertedObligationIndex maps obligation kind to the set of obj_ids
// currently carrying at least one obligation of that kind.
type InvertedObligationIndex struct {
	mu     sync.RWMutex
	byKind map[string]map[string]struct{}
}

// NewInvertedObligationIndex returns an empty index.
func NewInvertedObligationIndex() *InvertedObligationIndex {
	return &InvertedObligationIndex{byKind: make(map[string]map[string]struct{})}
}

// Add records that objID carries every obligation in obligations.
func (idx *InvertedObligationIndex) Add(objID string, obligations obligation.Set) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	for _, o := range obligations {
		bucket, ok := idx.byKind[o.Kind]
		if !ok {
			bucket = make(map[string]struct{})
			idx.byKind[o.Kind] = bucket
		}
		bucket[objID] = struct{}{}
	}
}

// Remove drops objID from the (kind, scope) bucket. scope is accepted
// for signature symmetry but the index is keyed on kind alone, so it is
// the caller's job to re-Add if objID still carries other obligations of
// the same kind under a different scope. Empty buckets are pruned
// immediately.
func (idx *InvertedObligationIndex) Remove(objID, kind, scope string) {
	_ = scope
	idx.mu.Lock()
	defer idx.mu.Unlock()
	bucket, ok := idx.byKind[kind]
	if !ok {
		return
	}
	delete(bucket, objID)
	if len(bucket) == 0 {
		delete(idx.byKind, kind)
	}
}

// ObjectsWithKind returns the obj_ids currently carrying an obligation of
// kind k, in no particular order.
func (idx *InvertedObligationIndex) ObjectsWithKind(k string) []string {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	bucket, ok := idx.byKind[k]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(bucket))
	for id := range bucket {
		out = append(out, id)
	}
	return out
}

// Rebuild replaces objID's entries across all buckets with exactly the
// kinds present in obligations, using a delete-then-insert discipline for
// when an object's obligation set changes.
func (idx *InvertedObligationIndex) Rebuild(objID string, obligations obligation.Set) {
	idx.mu.Lock()
	for kind, bucket := range idx.byKind {
		delete(bucket, objID)
		if len(bucket) == 0 {
			delete(idx.byKind, kind)
		}
	}
	idx.mu.Unlock()
	idx.Add(objID, obligations)
}
