// Copyright 2026 Chava Systems
//
// Tests for scope reanchoring, projection and merge

package scope

import (
	"reflect"
	"testing"

	"github.com/chava-systems/chava/pkg/obligation"
)

func TestRelscope(t *testing.T) {
	cases := []struct {
		scope, base, want string
	}{
		{"", "/a", ""},
		{"/a", "/a", ""},
		{"/a/b", "/a", "/b"},
		{"/x", "/a", ""},
		{"/comment", "", "/comment"},
		{"", "", ""},
	}
	for _, c := range cases {
		if got := Relscope(c.scope, c.base); got != c.want {
			t.Errorf("Relscope(%q, %q) = %q, want %q", c.scope, c.base, got, c.want)
		}
	}
}

func TestProjectRewritesNestedScope(t *testing.T) {
	o := Object{
		Value:       map[string]any{"a": map[string]any{"b": 1}},
		Obligations: obligation.Set{{Kind: "sql_safe", Scope: "/a/b"}},
	}
	projected := Project(o, "/a")
	if !reflect.DeepEqual(projected.Value, map[string]any{"b": 1}) {
		t.Errorf("Project value = %v", projected.Value)
	}
	if len(projected.Obligations) != 1 || projected.Obligations[0].Scope != "/b" {
		t.Errorf("Project obligations = %v, want scope /b", projected.Obligations)
	}
}

func TestProjectDropsDisjointObligations(t *testing.T) {
	o := Object{
		Value:       map[string]any{"a": 1, "c": 2},
		Obligations: obligation.Set{{Kind: "sql_safe", Scope: "/c"}},
	}
	projected := Project(o, "/a")
	if len(projected.Obligations) != 0 {
		t.Errorf("Project should drop obligations scoped to a sibling path, got %v", projected.Obligations)
	}
}

func TestProjectInvalidPathInjectsObligation(t *testing.T) {
	o := Object{Value: map[string]any{"a": 1}}
	projected := Project(o, "/missing")
	if projected.Value != nil {
		t.Errorf("Project on invalid path: value = %v, want nil", projected.Value)
	}
	found := false
	for _, ob := range projected.Obligations {
		if ob.Kind == "invalid_path" {
			found = true
		}
	}
	if !found {
		t.Error("Project on invalid path should inject an invalid_path obligation")
	}
}

func TestProjectAtRootIsIdentityOnScopes(t *testing.T) {
	o := Object{
		Value:       map[string]any{"comment": map[string]any{"body": "hi"}},
		Obligations: obligation.Set{{Kind: "sql_safe", Scope: "/comment"}},
	}
	projected := Project(o, "")
	if !reflect.DeepEqual(projected.Value, o.Value) {
		t.Errorf("Project at root value = %v, want unchanged %v", projected.Value, o.Value)
	}
	if len(projected.Obligations) != 1 || projected.Obligations[0].Scope != "/comment" {
		t.Errorf("Project at root obligations = %v, want scope /comment unchanged", projected.Obligations)
	}
}

func TestMergePrefixesScopesAndConcatenatesEvidence(t *testing.T) {
	a := Object{Value: 1, Obligations: obligation.Set{{Kind: "sql_safe", Scope: ""}}}
	b := Object{Value: 2, Obligations: obligation.Set{{Kind: "pii_clean", Scope: "/x"}}}

	merged := Merge(a, b)
	if !reflect.DeepEqual(merged.Value, []any{1, 2}) {
		t.Errorf("Merge value = %v, want [1, 2]", merged.Value)
	}
	want := obligation.Set{
		{Kind: "sql_safe", Scope: "/0"},
		{Kind: "pii_clean", Scope: "/1/x"},
	}
	if !reflect.DeepEqual(merged.Obligations, want) {
		t.Errorf("Merge obligations = %v, want %v", merged.Obligations, want)
	}
}
