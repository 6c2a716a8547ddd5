// Copyright 2026 Chava Systems
//
// Scope reanchoring, projection and merge over obligations

// Package scope implements reanchoring, projection, and merging of
// obligation scopes over hierarchical pointer paths, expressed as pure
// functions over pkg/obligation and pkg/pointer: build up a fresh slice,
// never mutate the input.
package scope

import (
	"strings"

	"github.com/chava-systems/chava/pkg/evidence"
	"github.com/chava-systems/chava/pkg/obligation"
	"github.com/chava-systems/chava/pkg/pointer"
)

// Relscope reanchors scope relative to base, stripping leading slashes
// from both before comparing.
func Relscope(scope, base string) string {
	if scope == "" {
		return ""
	}

	s := strings.TrimPrefix(scope, "/")
	b := strings.TrimPrefix(base, "/")

	if b == "" {
		return "/" + s
	}
	if s == b {
		return ""
	}
	if strings.HasPrefix(s, b+"/") {
		return "/" + strings.TrimPrefix(s, b+"/")
	}
	return ""
}

// Object is the minimal view of a ChavaObject that the algebra needs:
// just enough to reshuffle value/obligations/evidence without importing
// pkg/chava (which in turn depends on scope for Project/Merge). Callers
// in pkg/chava convert to/from their own Object type at the boundary.
type Object struct {
	Value       any
	Obligations obligation.Set
	Evidence    evidence.Chain
}

// Project extracts the sub-value at path p, rewriting each obligation's
// scope relative to p. A failed resolution injects an ("invalid_path",
// "") obligation rather than returning an error.
func Project(o Object, p string) Object {
	extracted, err := pointer.Resolve(o.Value, p)
	if err != nil {
		invalidPath, _ := obligation.New("invalid_path", "")
		return Object{
			Value:       nil,
			Obligations: append(o.Obligations.Clone(), invalidPath),
			Evidence:    o.Evidence,
		}
	}

	var rewritten obligation.Set
	for _, ob := range o.Obligations {
		s := ob.Scope
		switch {
		case s == "" || s == p || strings.HasPrefix(s, p+"/"):
			rewritten = append(rewritten, obligation.Obligation{Kind: ob.Kind, Scope: Relscope(s, p)})
		case strings.HasPrefix(p, s+"/"):
			// p lies strictly inside the obligation's scope: it still applies.
			rewritten = append(rewritten, obligation.Obligation{Kind: ob.Kind, Scope: ""})
		default:
			// disjoint: a sibling field not present in the projected value.
		}
	}

	return Object{
		Value:       extracted,
		Obligations: rewritten,
		Evidence:    o.Evidence,
	}
}

// Merge combines a and b into a two-element array value [a.Value, b.Value],
// rewriting a's obligation scopes under "/0" and b's under "/1". Evidence
// logs are concatenated a-then-b; this may break the prev_hash chain at
// the seam — Merge does not re-chain.
func Merge(a, b Object) Object {
	merged := make(obligation.Set, 0, len(a.Obligations)+len(b.Obligations))
	for _, ob := range a.Obligations {
		merged = append(merged, obligation.Obligation{Kind: ob.Kind, Scope: prefixScope("/0", ob.Scope)})
	}
	for _, ob := range b.Obligations {
		merged = append(merged, obligation.Obligation{Kind: ob.Kind, Scope: prefixScope("/1", ob.Scope)})
	}

	mergedEvidence := make(evidence.Chain, 0, len(a.Evidence)+len(b.Evidence))
	mergedEvidence = append(mergedEvidence, a.Evidence...)
	mergedEvidence = append(mergedEvidence, b.Evidence...)

	return Object{
		Value:       []any{a.Value, b.Value},
		Obligations: merged,
		Evidence:    mergedEvidence,
	}
}

func prefixScope(prefix, scope string) string {
	if scope == "" {
		return prefix
	}
	return prefix + scope
}
