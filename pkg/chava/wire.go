// Copyright 2026 Chava Systems
//
// JSON wire encoding for ChavaObject

package chava

import (
	"encoding/json"
	"fmt"

	"github.com/chava-systems/chava/pkg/evidence"
	"github.com/chava-systems/chava/pkg/obligation"
)

// wireForm is the on-the-wire persistence format: value, obligations,
// and the evidence chain under terse "@"-prefixed keys.
type wireForm struct {
	Value       any               `json:"@v"`
	Obligations [][2]string       `json:"@o"`
	Evidence    []evidence.Record `json:"@e"`
}

// ToJSON serializes o to the wire format.
func (o Object) ToJSON() ([]byte, error) {
	w := wireForm{
		Value:       o.Value,
		Obligations: o.Obligations.Pairs(),
		Evidence:    o.Evidence,
	}
	return json.Marshal(w)
}

// FromJSON parses the wire format, normalizing inner obligation pairs
// (which may arrive as two-element arrays rather than fixed tuples) into
// (kind, scope) obligations.
func FromJSON(data []byte) (Object, error) {
	var raw struct {
		Value       any               `json:"@v"`
		Obligations [][]string        `json:"@o"`
		Evidence    []evidence.Record `json:"@e"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return Object{}, fmt.Errorf("chava: decode wire form: %w", err)
	}

	obligations := make(obligation.Set, 0, len(raw.Obligations))
	for _, pair := range raw.Obligations {
		if len(pair) != 2 {
			return Object{}, fmt.Errorf("chava: obligation pair must have 2 elements, got %d", len(pair))
		}
		obligations = append(obligations, obligation.Obligation{Kind: pair[0], Scope: pair[1]})
	}

	return Object{
		Value:       raw.Value,
		Obligations: obligations,
		Evidence:    raw.Evidence,
	}, nil
}
