// Copyright 2026 Chava Systems
//
// Tests for the discharge protocol and concurrent handles

package chava

import (
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/chava-systems/chava/pkg/evidence"
	"github.com/chava-systems/chava/pkg/metrics"
	"github.com/chava-systems/chava/pkg/obligation"
	"github.com/chava-systems/chava/pkg/verifier"
)

func acceptFn(any, string) evidence.Result { return evidence.Accept }
func rejectFn(any, string) evidence.Result { return evidence.Reject }

func TestDischargeRemovesObligationOnAccept(t *testing.T) {
	registry := verifier.NewRegistry()
	registry.Register("sql_safe", acceptFn)

	ob, _ := obligation.New("sql_safe", "")
	o := New("select 1", obligation.Set{ob})

	discharged, err := Discharge(o, "sql_safe", "", registry, "tester")
	if err != nil {
		t.Fatalf("Discharge: unexpected error: %v", err)
	}
	if len(discharged.Obligations) != 0 {
		t.Errorf("Discharge on accept should remove the obligation, got %v", discharged.Obligations)
	}
	if len(discharged.Evidence) != 1 || discharged.Evidence[0].Result != evidence.Accept {
		t.Errorf("Discharge should append an accept evidence record, got %v", discharged.Evidence)
	}
}

func TestDischargeKeepsObligationOnReject(t *testing.T) {
	registry := verifier.NewRegistry()
	registry.Register("sql_safe", rejectFn)

	ob, _ := obligation.New("sql_safe", "")
	o := New("drop table users", obligation.Set{ob})

	discharged, err := Discharge(o, "sql_safe", "", registry, "tester")
	if err != nil {
		t.Fatalf("Discharge: unexpected error: %v", err)
	}
	if len(discharged.Obligations) != 1 {
		t.Errorf("Discharge on reject should keep the obligation, got %v", discharged.Obligations)
	}
}

func TestDischargeIsIdempotentWhenObligationAbsent(t *testing.T) {
	registry := verifier.NewRegistry()
	registry.Register("sql_safe", acceptFn)

	o := New("value", nil)
	discharged, err := Discharge(o, "sql_safe", "", registry, "tester")
	if err != nil {
		t.Fatalf("Discharge: unexpected error: %v", err)
	}
	if len(discharged.Evidence) != 0 {
		t.Error("Discharge should be a no-op when the (kind, scope) obligation is not present")
	}
}

func TestDischargeUnknownKindFails(t *testing.T) {
	registry := verifier.NewRegistry()
	ob, _ := obligation.New("sql_safe", "")
	o := New("value", obligation.Set{ob})

	if _, err := Discharge(o, "sql_safe", "", registry, "tester"); err == nil {
		t.Fatal("Discharge with unregistered kind should fail")
	}
}

func TestHandleDischargeConcurrentCallersConverge(t *testing.T) {
	registry := verifier.NewRegistry()
	registry.Register("sql_safe", acceptFn)
	registry.Register("pii_clean", acceptFn)

	sqlOb, _ := obligation.New("sql_safe", "")
	piiOb, _ := obligation.New("pii_clean", "")
	handle := NewHandle(New("value", obligation.Set{sqlOb, piiOb}))

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		if _, err := handle.Discharge("sql_safe", "", registry, "a"); err != nil {
			t.Errorf("Discharge(sql_safe): %v", err)
		}
	}()
	go func() {
		defer wg.Done()
		if _, err := handle.Discharge("pii_clean", "", registry, "b"); err != nil {
			t.Errorf("Discharge(pii_clean): %v", err)
		}
	}()
	wg.Wait()

	final := handle.Snapshot()
	if !final.IsCleared() {
		t.Errorf("after both discharges the handle should be cleared, got obligations %v", final.Obligations)
	}
	if len(final.Evidence) != 2 {
		t.Errorf("expected 2 evidence records after both discharges, got %d", len(final.Evidence))
	}
}

func TestHandleDischargeCountsOutcomeOnMetrics(t *testing.T) {
	registry := verifier.NewRegistry()
	registry.Register("sql_safe", acceptFn)

	promReg := prometheus.NewRegistry()
	reg := metrics.NewRegistry(promReg)

	ob, _ := obligation.New("sql_safe", "")
	handle := NewHandle(New("value", obligation.Set{ob}), WithMetrics(reg))

	if _, err := handle.Discharge("sql_safe", "", registry, "tester"); err != nil {
		t.Fatalf("Discharge: %v", err)
	}

	families, err := promReg.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	for _, fam := range families {
		if fam.GetName() != "chava_discharge_total" {
			continue
		}
		for _, m := range fam.GetMetric() {
			for _, label := range m.GetLabel() {
				if label.GetName() == "outcome" && label.GetValue() == "cleared" && m.GetCounter().GetValue() == 1 {
					return
				}
			}
		}
	}
	t.Error(`chava_discharge_total{outcome="cleared"} not incremented`)
}
