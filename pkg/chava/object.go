// Copyright 2026 Chava Systems
//
// ChavaObject: value, obligations and evidence as one unit

// Package chava implements the object algebra and discharge protocol: the
// ChavaObject data model, project/merge delegation to pkg/scope, the
// optimistic-concurrency discharge loop, and Unwrap.
//
// The CAS retry loop follows a re-read/compare/retry discipline, and
// guards concurrent discharge on a single shared object with a
// per-object mutex so writers serialize. The mutex is held only for the
// snapshot read and the commit, not across the verifier call; Snapshot
// takes the same mutex.
package chava

import (
	"fmt"

	"github.com/chava-systems/chava/pkg/evidence"
	"github.com/chava-systems/chava/pkg/obligation"
	"github.com/chava-systems/chava/pkg/scope"
)

// ErrObligationViolation is raised by Unwrap when the object is not cleared.
var ErrObligationViolation = fmt.Errorf("object not cleared")

// Object is the (value, obligations, evidence) triple at the heart of
// the system: a value that can only be released once its obligations
// are satisfied, with every verdict recorded in a tamper-evident chain.
type Object struct {
	Value       any
	Obligations obligation.Set
	Evidence    evidence.Chain
}

// New constructs an Object with an empty evidence log.
func New(value any, obligations obligation.Set) Object {
	return Object{Value: value, Obligations: obligations.Clone()}
}

// Copy returns a deep-enough copy for the immutable-update discipline:
// obligations and evidence are copied; Value is shared (the algebra never
// mutates Value in place — project/merge always produce a fresh Value).
func (o Object) Copy() Object {
	return Object{
		Value:       o.Value,
		Obligations: o.Obligations.Clone(),
		Evidence:    append(evidence.Chain(nil), o.Evidence...),
	}
}

// IsCleared reports whether no obligations remain and no
// reject-then-accept conflict exists in the evidence log.
func (o Object) IsCleared() bool {
	return len(o.Obligations) == 0 && !evidence.HasConflict(o.Evidence)
}

// Unwrap releases Value iff the object is cleared; otherwise it fails with
// ErrObligationViolation carrying the residual kinds. It never returns a
// partially-verified value.
func (o Object) Unwrap() (any, error) {
	if !o.IsCleared() {
		return nil, fmt.Errorf("%w: residual kinds %v", ErrObligationViolation, o.Obligations.Kinds())
	}
	return o.Value, nil
}

// toScopeObject / fromScopeObject bridge to pkg/scope, which cannot import
// pkg/chava (chava depends on scope for Project/Merge).
func (o Object) toScopeObject() scope.Object {
	return scope.Object{Value: o.Value, Obligations: o.Obligations, Evidence: o.Evidence}
}

func fromScopeObject(s scope.Object) Object {
	return Object{Value: s.Value, Obligations: s.Obligations, Evidence: s.Evidence}
}

// Project extracts the sub-value at JSON pointer p, rewriting obligation
// scopes to be relative to p. Evidence is preserved verbatim.
func (o Object) Project(p string) Object {
	return fromScopeObject(scope.Project(o.toScopeObject(), p))
}

// Merge combines o and other into a two-element array value, rewriting
// obligation scopes under "/0" and "/1" and concatenating evidence logs
// verbatim.
func (o Object) Merge(other Object) Object {
	return fromScopeObject(scope.Merge(o.toScopeObject(), other.toScopeObject()))
}
