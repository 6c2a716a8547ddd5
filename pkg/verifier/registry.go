// Copyright 2026 Chava Systems
//
// Registry mapping obligation kind to verifier function

// Package verifier implements a table dispatch from obligation kind to
// verifier function, plus a default set of verifiers.
//
// The registry is an RWMutex-guarded map with a Register/Get/List
// surface and a sync.Once-backed global singleton.
package verifier

import (
	"fmt"
	"sync"

	"github.com/chava-systems/chava/pkg/evidence"
)

// Func verifies a scoped sub-value and returns a verdict. Verifiers are
// required to be pure with respect to their declared inputs; the
// registry does not sandbox them.
type Func func(scopedValue any, scope string) evidence.Result

// ErrUnknownKind is the sentinel for an unregistered verifier kind — a
// fatal precondition failure, never recovered from.
var ErrUnknownKind = fmt.Errorf("no verifier registered for kind")

// Registry maps obligation kind to verifier function. Registration is
// idempotent: last writer wins.
type Registry struct {
	mu        sync.RWMutex
	verifiers map[string]Func
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{verifiers: make(map[string]Func)}
}

// Register binds fn to kind, overwriting any prior registration.
func (r *Registry) Register(kind string, fn Func) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.verifiers[kind] = fn
}

// Get looks up the verifier for kind. An unregistered kind is a fatal
// precondition failure: the caller is expected to treat it as a
// programmer error, not a recoverable one.
func (r *Registry) Get(kind string) (Func, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.verifiers[kind]
	if !ok {
		return nil, fmt.Errorf("verifier: kind %q: %w", kind, ErrUnknownKind)
	}
	return fn, nil
}

// List returns the currently registered kinds.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	kinds := make([]string, 0, len(r.verifiers))
	for k := range r.verifiers {
		kinds = append(kinds, k)
	}
	return kinds
}

var (
	globalRegistry     *Registry
	globalRegistryOnce sync.Once
)

// GlobalRegistry returns the process-wide default registry, seeded with
// the RegisterDefaults set on first use.
func GlobalRegistry() *Registry {
	globalRegistryOnce.Do(func() {
		globalRegistry = NewRegistry()
		RegisterDefaults(globalRegistry)
	})
	return globalRegistry
}

// RegisterDefaults registers the built-in verifier set (sql_safe,
// pii_clean, schema_ok) onto r.
func RegisterDefaults(r *Registry) {
	r.Register("sql_safe", SQLSafe)
	r.Register("pii_clean", PIIClean)
	r.Register("schema_ok", SchemaOK)
}
