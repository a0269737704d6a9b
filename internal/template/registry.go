// Package template maps messages to structured-output contracts and
// validates candidate responses against them.
//
// Template selection is a second ordered classifier, independent of the
// budgeting classifier in internal/classify. The two rule tables overlap
// but are not identical and their priority orders differ; they are kept
// separate on purpose and must not be unified.
package template

import (
	"fmt"
	"strings"
)

// Descriptor is a fixed output contract: a display format with [field]
// placeholders and a token ceiling hint for the instruction text.
type Descriptor struct {
	Key       string
	Format    string
	MaxTokens int
}

// Selection is the result of matching a message against the catalogue.
// Template and Schema are nil when no category matched; Instruction is
// always populated.
type Selection struct {
	Template    *Descriptor
	Schema      *Schema
	Instruction string
}

// The template catalogue. Process-wide immutable; modified only at
// compile time.
var templates = map[string]Descriptor{
	"status_check": {
		Key:       "status_check",
		Format:    "Status: [status] | Details: [details] | Action: [action]",
		MaxTokens: 150,
	},
	"error_analysis": {
		Key:       "error_analysis",
		Format:    "Error: [error] | Cause: [cause] | Fix: [solution]",
		MaxTokens: 300,
	},
	"list_response": {
		Key:       "list_response",
		Format:    "Found [count] items: [items]",
		MaxTokens: 400,
	},
	"yes_no": {
		Key:       "yes_no",
		Format:    "[answer]. [reason]",
		MaxTokens: 100,
	},
	"metric_report": {
		Key:       "metric_report",
		Format:    "[metric]: [value] ([trend]) | Status: [status]",
		MaxTokens: 200,
	},
}

const baseInstruction = "Be direct and concise. Answer the question without preamble or filler."

// Selection rule tables, evaluated in order. Lowercase entries only.
var (
	yesNoPrefixes   = []string{"is ", "are ", "can ", "does ", "do "}
	errorMarkers    = []string{"error", "failure", "not working"}
	listMarkers     = []string{"show me all", "get all"}
	metricMarkers   = []string{"metric", "latency", "performance"}
	diagnoseMarkers = []string{"troubleshoot", "investigate", "why", "what caused"}
)

// Select matches a message against the catalogue. Priority order (first
// match wins): yes/no, status, error, list, metric, troubleshoot, none.
func Select(message string) Selection {
	m := strings.ToLower(strings.TrimSpace(message))

	key := ""
	switch {
	case hasAnyPrefix(m, yesNoPrefixes):
		key = "yes_no"
	case strings.Contains(m, "status"):
		key = "status_check"
	case containsAny(m, errorMarkers):
		key = "error_analysis"
	case strings.HasPrefix(m, "list ") || containsAny(m, listMarkers):
		key = "list_response"
	case containsAny(m, metricMarkers):
		key = "metric_report"
	case containsAny(m, diagnoseMarkers):
		// Diagnosis requests share the error analysis contract.
		key = "error_analysis"
	}

	if key == "" {
		return Selection{Instruction: baseInstruction}
	}

	tmpl := templates[key]
	return Selection{
		Template:    &tmpl,
		Schema:      schemaFor(key),
		Instruction: instructionFor(tmpl),
	}
}

// Instruction returns the prompt instruction for a message: the base
// directive plus, when a template matched, the literal format string and a
// token ceiling.
func Instruction(message string) string {
	return Select(message).Instruction
}

func instructionFor(tmpl Descriptor) string {
	var b strings.Builder
	b.WriteString(baseInstruction)
	b.WriteString(" Respond in this exact format: ")
	b.WriteString(tmpl.Format)
	fmt.Fprintf(&b, " Keep the response under %d tokens.", tmpl.MaxTokens)
	return b.String()
}

// Format renders data into a template's format string by literal [key]
// placeholder substitution. Display helper only; it performs no
// validation and leaves unmatched placeholders in place.
func Format(key string, data map[string]any) (string, error) {
	tmpl, ok := templates[key]
	if !ok {
		return "", fmt.Errorf("unknown template %q", key)
	}

	out := tmpl.Format
	for field, value := range data {
		out = strings.ReplaceAll(out, "["+field+"]", formatValue(value))
	}
	return out, nil
}

func formatValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case []any:
		parts := make([]string, len(val))
		for i, item := range val {
			parts[i] = formatValue(item)
		}
		return strings.Join(parts, ", ")
	case float64:
		// JSON numbers decode as float64; print integers without the
		// trailing fraction.
		if val == float64(int64(val)) {
			return fmt.Sprintf("%d", int64(val))
		}
		return fmt.Sprintf("%g", val)
	default:
		return fmt.Sprintf("%v", v)
	}
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, prefix := range prefixes {
		if strings.HasPrefix(s, prefix) {
			return true
		}
	}
	return false
}

func containsAny(s string, markers []string) bool {
	for _, marker := range markers {
		if strings.Contains(s, marker) {
			return true
		}
	}
	return false
}
