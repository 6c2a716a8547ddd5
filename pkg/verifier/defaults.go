// Copyright 2026 Chava Systems
//
// Default verifier functions registered for common obligation kinds

package verifier

import (
	"fmt"
	"regexp"

	"github.com/chava-systems/chava/pkg/evidence"
)

// Pattern tables for the default verifiers. The core does not define
// these regular expressions as part of its contract; this default set is
// a convenience registration, not required surface.
var sqlDangerousPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bdrop\s+table\b`),
	regexp.MustCompile(`(?i)\btruncate\s+\w+\b`),
	regexp.MustCompile(`(?i)\balter\s+table\b`),
	regexp.MustCompile(`(?i)\bdelete\s+from\s+\w+\b`),
	regexp.MustCompile(`(?i)\bupdate\s+\w+\s+set\b.*\bwhere\b\s*$`),
	regexp.MustCompile(`(?i)\bexec\b`),
	regexp.MustCompile(`(?i)\bsp_\w*\b`),
	regexp.MustCompile(`(?i)\binsert\s+into\s+\w+\s+values\b.*\bselect\b`),
}

var sqlInjectionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`';\s*`),
	regexp.MustCompile(`(?i);\s*drop`),
	regexp.MustCompile(`(?i);\s*truncate`),
	regexp.MustCompile(`(?i);\s*alter`),
	regexp.MustCompile(`(?i)\bunion\s+select\b`),
}

// SQLSafe rejects SQL text containing destructive statements or common
// injection markers.
func SQLSafe(scopedValue any, _ string) evidence.Result {
	if scopedValue == nil {
		return evidence.Reject
	}
	text := fmt.Sprintf("%v", scopedValue)
	for _, p := range sqlDangerousPatterns {
		if p.MatchString(text) {
			return evidence.Reject
		}
	}
	for _, p := range sqlInjectionPatterns {
		if p.MatchString(text) {
			return evidence.Reject
		}
	}
	return evidence.Accept
}

var piiPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b\d{3}-\d{3}-\d{4}\b`),
	regexp.MustCompile(`\(\d{3}\)\s*\d{3}-\d{4}`),
	regexp.MustCompile(`\b\d{10}\b`),
	regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`),
	regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`),
	regexp.MustCompile(`\b\d{4}[\s-]?\d{4}[\s-]?\d{4}[\s-]?\d{4}\b`),
}

// PIIClean rejects text containing phone numbers, emails, SSNs or card
// numbers. A nil scoped value (absent field) is accepted.
func PIIClean(scopedValue any, _ string) evidence.Result {
	if scopedValue == nil {
		return evidence.Accept
	}
	text := fmt.Sprintf("%v", scopedValue)
	for _, p := range piiPatterns {
		if p.MatchString(text) {
			return evidence.Reject
		}
	}
	return evidence.Accept
}

// SchemaOK validates that the scoped value is an object carrying an
// integer "id" and a string "name".
func SchemaOK(scopedValue any, _ string) evidence.Result {
	obj, ok := scopedValue.(map[string]any)
	if !ok {
		return evidence.Reject
	}
	id, ok := obj["id"]
	if !ok {
		return evidence.Reject
	}
	switch id.(type) {
	case float64, int, int64:
	default:
		return evidence.Reject
	}
	name, ok := obj["name"]
	if !ok {
		return evidence.Reject
	}
	if _, ok := name.(string); !ok {
		return evidence.Reject
	}
	return evidence.Accept
}
