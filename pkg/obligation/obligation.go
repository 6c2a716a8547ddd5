// Copyright 2026 Chava Systems
//
// Obligation type and obligation-set multiset helpers

// Package obligation defines the (kind, scope) pair that Chava attaches
// to values, and the multiset operations the algebra needs over it.
package obligation

import (
	"fmt"
	"sort"
)

// Obligation is a verification requirement bound to a scope within a value.
// kind is a non-empty identifier from an open, registry-defined vocabulary;
// scope is "" (the whole value) or an RFC-6901 pointer.
type Obligation struct {
	Kind  string `json:"kind"`
	Scope string `json:"scope"`
}

// New validates and constructs an Obligation. An empty kind is malformed
// and rejected at the construction boundary; scope is always a Go string
// so only kind needs validating.
func New(kind, scope string) (Obligation, error) {
	if kind == "" {
		return Obligation{}, fmt.Errorf("obligation: %w: kind must not be empty", ErrMalformed)
	}
	return Obligation{Kind: kind, Scope: scope}, nil
}

// ErrMalformed is the sentinel for the MalformedObligation error kind.
var ErrMalformed = fmt.Errorf("malformed obligation")

// Set is an ordered multiset of obligations: duplicates (including exact
// (kind, scope) repeats) are permitted and compared by equality.
type Set []Obligation

// Contains reports whether o appears at least once in s.
func (s Set) Contains(o Obligation) bool {
	for _, existing := range s {
		if existing == o {
			return true
		}
	}
	return false
}

// RemoveOne returns a copy of s with exactly one occurrence of o removed.
// If o is absent, the returned slice is an unchanged copy.
func (s Set) RemoveOne(o Obligation) Set {
	out := make(Set, 0, len(s))
	removed := false
	for _, existing := range s {
		if !removed && existing == o {
			removed = true
			continue
		}
		out = append(out, existing)
	}
	return out
}

// Clone returns an independent copy of s.
func (s Set) Clone() Set {
	out := make(Set, len(s))
	copy(out, s)
	return out
}

// Kinds returns the distinct kinds present in s.
func (s Set) Kinds() []string {
	seen := make(map[string]struct{}, len(s))
	var kinds []string
	for _, o := range s {
		if _, ok := seen[o.Kind]; !ok {
			seen[o.Kind] = struct{}{}
			kinds = append(kinds, o.Kind)
		}
	}
	return kinds
}

// SortedCopy returns s sorted lexicographically by (kind, scope). Two
// obligation multisets equal as multisets must produce byte-identical
// sorted copies so KMS key derivation is insensitive to insertion order.
func (s Set) SortedCopy() Set {
	out := s.Clone()
	sort.Slice(out, func(i, j int) bool {
		if out[i].Kind != out[j].Kind {
			return out[i].Kind < out[j].Kind
		}
		return out[i].Scope < out[j].Scope
	})
	return out
}

// Pairs renders s as the [][2]string form used by the "@o" wire field.
func (s Set) Pairs() [][2]string {
	out := make([][2]string, len(s))
	for i, o := range s {
		out[i] = [2]string{o.Kind, o.Scope}
	}
	return out
}

// FromPairs normalizes the [][2]string wire form back into a Set.
func FromPairs(pairs [][2]string) Set {
	out := make(Set, len(pairs))
	for i, p := range pairs {
		out[i] = Obligation{Kind: p[0], Scope: p[1]}
	}
	return out
}
