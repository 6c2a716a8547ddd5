// Copyright 2026 Chava Systems
//
// Tests for the FilterCleared/InjectVerification combinators

package chava

import (
	"testing"

	"github.com/chava-systems/chava/pkg/obligation"
	"github.com/chava-systems/chava/pkg/verifier"
)

func TestFilterClearedKeepsOnlyClearedObjects(t *testing.T) {
	ob, _ := obligation.New("sql_safe", "")
	cleared := New("a", nil)
	uncleared := New("b", obligation.Set{ob})

	got := FilterCleared([]Object{cleared, uncleared})
	if len(got) != 1 || got[0].Value != "a" {
		t.Errorf("FilterCleared = %v, want only the cleared object", got)
	}
}

func TestInjectVerificationDischargesMatchingKindOnly(t *testing.T) {
	registry := verifier.NewRegistry()
	registry.Register("sql_safe", acceptFn)

	sqlOb, _ := obligation.New("sql_safe", "")
	piiOb, _ := obligation.New("pii_clean", "")
	withSQL := New("a", obligation.Set{sqlOb})
	withPII := New("b", obligation.Set{piiOb})

	got, err := InjectVerification([]Object{withSQL, withPII}, "sql_safe", registry, "tester")
	if err != nil {
		t.Fatalf("InjectVerification: %v", err)
	}
	if len(got[0].Obligations) != 0 {
		t.Errorf("object carrying sql_safe should be discharged, got %v", got[0].Obligations)
	}
	if len(got[1].Obligations) != 1 {
		t.Errorf("object without sql_safe should pass through unchanged, got %v", got[1].Obligations)
	}
}

func TestInjectVerificationUnknownKindFailsForMatchingObject(t *testing.T) {
	registry := verifier.NewRegistry()
	ob, _ := obligation.New("sql_safe", "")
	obj := New("a", obligation.Set{ob})

	if _, err := InjectVerification([]Object{obj}, "sql_safe", registry, "tester"); err == nil {
		t.Error("InjectVerification with an unregistered kind should fail")
	}
}
