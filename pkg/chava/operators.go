// Copyright 2026 Chava Systems
//
// Relational-style combinators over slices of ChavaObject

package chava

import "github.com/chava-systems/chava/pkg/verifier"

// FilterCleared is the σ_cleared operator from original_source/chava/operators.py:
// it passes through only cleared objects.
func FilterCleared(objects []Object) []Object {
	out := make([]Object, 0, len(objects))
	for _, o := range objects {
		if o.IsCleared() {
			out = append(out, o)
		}
	}
	return out
}

// InjectVerification is the V̂_k operator: discharge kind against every
// object carrying it at the root scope, passing objects without that
// obligation through unchanged.
func InjectVerification(objects []Object, kind string, registry *verifier.Registry, verifierID string) ([]Object, error) {
	out := make([]Object, len(objects))
	for i, o := range objects {
		hasKind := false
		for _, ob := range o.Obligations {
			if ob.Kind == kind {
				hasKind = true
				break
			}
		}
		if !hasKind {
			out[i] = o
			continue
		}
		discharged, err := Discharge(o, kind, "", registry, verifierID)
		if err != nil {
			return nil, err
		}
		out[i] = discharged
	}
	return out, nil
}
