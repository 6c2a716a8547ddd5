// Copyright 2026 Chava Systems
//
// Discharge protocol and concurrent-safe object handles

package chava

import (
	"sync"
	"time"

	"github.com/chava-systems/chava/pkg/evidence"
	"github.com/chava-systems/chava/pkg/metrics"
	"github.com/chava-systems/chava/pkg/obligation"
	"github.com/chava-systems/chava/pkg/pointer"
	"github.com/chava-systems/chava/pkg/verifier"
)

// Discharge runs the protocol once against a private copy of o: resolve
// the scoped value, invoke the registered verifier, append an evidence
// record, and remove the obligation iff the verdict is accept. It is
// idempotent: if (kind, scope) is not present in o.Obligations, o is
// returned unchanged.
//
// This single-shot form assumes o is not concurrently mutated elsewhere;
// callers that share one logical object across goroutines should use
// Handle.Discharge instead, which adds a compare-and-swap retry loop.
func Discharge(o Object, kind, scopePath string, registry *verifier.Registry, verifierID string) (Object, error) {
	working := o.Copy()

	target := obligation.Obligation{Kind: kind, Scope: scopePath}
	if !working.Obligations.Contains(target) {
		return working, nil
	}

	scopedValue := working.Value
	if scopePath != "" {
		resolved, err := pointer.Resolve(working.Value, scopePath)
		if err != nil {
			scopedValue = nil
		} else {
			scopedValue = resolved
		}
	}

	verifierFn, err := registry.Get(kind)
	if err != nil {
		return Object{}, err
	}
	result := verifierFn(scopedValue, scopePath)

	prevHash := working.Evidence.Tail()
	record := evidence.New(verifierID, kind, scopePath, result, time.Now(), prevHash)
	working.Evidence = append(working.Evidence, record)

	if result == evidence.Accept {
		working.Obligations = working.Obligations.RemoveOne(target)
	}

	return working, nil
}

// Handle guards a single logical ChavaObject shared across concurrent
// discharge callers with a compare-and-swap commit: if the evidence tail
// moved between read and commit, the attempt restarts against the new
// state.
type Handle struct {
	mu      sync.Mutex
	obj     Object
	metrics *metrics.Registry // nil is valid: discharge counting becomes a no-op
}

// HandleOption configures a Handle.
type HandleOption func(*Handle)

// WithMetrics counts discharge attempts on reg's DischargeTotal, labeled
// cleared/residual/conflict on commit and cas_retry on each restart.
func WithMetrics(reg *metrics.Registry) HandleOption {
	return func(h *Handle) { h.metrics = reg }
}

// NewHandle wraps o for concurrent discharge.
func NewHandle(o Object, opts ...HandleOption) *Handle {
	h := &Handle{obj: o}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Snapshot returns the handle's current object.
func (h *Handle) Snapshot() Object {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.obj
}

// Discharge runs the protocol against the handle's shared object,
// retrying the commit if another discharge interleaved on the same
// object (detected via the evidence tail-hash CAS).
func (h *Handle) Discharge(kind, scopePath string, registry *verifier.Registry, verifierID string) (Object, error) {
	for {
		h.mu.Lock()
		snapshot := h.obj
		h.mu.Unlock()

		target := obligation.Obligation{Kind: kind, Scope: scopePath}
		if !snapshot.Obligations.Contains(target) {
			return snapshot, nil
		}

		scopedValue := snapshot.Value
		if scopePath != "" {
			resolved, err := pointer.Resolve(snapshot.Value, scopePath)
			if err == nil {
				scopedValue = resolved
			} else {
				scopedValue = nil
			}
		}

		verifierFn, err := registry.Get(kind)
		if err != nil {
			return Object{}, err
		}
		prevHash := snapshot.Evidence.Tail()
		result := verifierFn(scopedValue, scopePath)
		record := evidence.New(verifierID, kind, scopePath, result, time.Now(), prevHash)

		h.mu.Lock()
		if h.obj.Evidence.Tail() != prevHash {
			// Another discharge committed first; restart from step 1.
			h.mu.Unlock()
			if h.metrics != nil {
				h.metrics.DischargeTotal.WithLabelValues("cas_retry").Inc()
			}
			continue
		}
		next := h.obj.Copy()
		next.Evidence = append(next.Evidence, record)
		if result == evidence.Accept {
			next.Obligations = next.Obligations.RemoveOne(target)
		}
		h.obj = next
		h.mu.Unlock()

		if h.metrics != nil {
			h.metrics.DischargeTotal.WithLabelValues(dischargeOutcome(next)).Inc()
		}
		return next, nil
	}
}

// dischargeOutcome labels a post-discharge object for DischargeTotal.
func dischargeOutcome(o Object) string {
	if evidence.HasConflict(o.Evidence) {
		return "conflict"
	}
	if o.IsCleared() {
		return "cleared"
	}
	return "residual"
}
