// Package classify maps free-text chat messages onto a small fixed set of
// intent categories used by the response budgeting engine.
//
// Classification is deterministic and purely lexical: an ordered list of
// pattern rules is evaluated top to bottom and the first match wins. The
// rule order is load-bearing — it is the only disambiguation when a message
// matches several patterns — and must not be reordered.
package classify

import "strings"

// QueryType is the coarse intent category of a message.
type QueryType string

const (
	// QuerySimple covers yes/no questions, status checks, and anything
	// answerable in a sentence or two.
	QuerySimple QueryType = "simple"
	// QueryComplex covers requests for comprehensive reports or
	// exhaustive explanations.
	QueryComplex QueryType = "complex"
	// QueryAnalysis covers root-cause and investigation requests.
	QueryAnalysis QueryType = "analysis"
	// QueryDataRetrieval covers list/enumeration requests.
	QueryDataRetrieval QueryType = "data_retrieval"
)

// Analysis is the classification of a single message. It is ephemeral:
// computed per call, never cached or shared.
type Analysis struct {
	Type           QueryType `json:"type"`
	RequiresDetail bool      `json:"requiresDetail"`
	// Complexity is a coarse difficulty estimate in [0, 1]. It drives
	// profile selection and the thinking budget tiers.
	Complexity float64 `json:"estimatedComplexity"`
}

// Rule tables. All matching is done against the lowercased message, so
// entries here must be lowercase.
var (
	yesNoPrefixes = []string{"is ", "are ", "can ", "does ", "do "}

	statusMarkers = []string{"status of", "what is the status", "check status"}

	retrievalMarkers = []string{"show me all", "get all"}

	analysisMarkers = []string{"analyze", "investigate", "why is", "what caused"}

	exhaustiveMarkers = []string{"explain everything", "comprehensive", "detailed analysis", "full report"}
)

// Analyze classifies a message. Matching is case-insensitive and
// first-match-wins over the fixed rule order:
//
//  1. yes/no question prefix
//  2. status check phrasing
//  3. list / enumeration request
//  4. investigation request
//  5. exhaustive report request
//  6. default (simple, but assume detail is wanted)
func Analyze(message string) Analysis {
	m := strings.ToLower(strings.TrimSpace(message))

	for _, prefix := range yesNoPrefixes {
		if strings.HasPrefix(m, prefix) {
			return Analysis{Type: QuerySimple, RequiresDetail: false, Complexity: 0.1}
		}
	}

	if containsAny(m, statusMarkers) {
		return Analysis{Type: QuerySimple, RequiresDetail: false, Complexity: 0.2}
	}

	if strings.HasPrefix(m, "list ") || containsAny(m, retrievalMarkers) {
		return Analysis{Type: QueryDataRetrieval, RequiresDetail: true, Complexity: 0.4}
	}

	if containsAny(m, analysisMarkers) {
		return Analysis{Type: QueryAnalysis, RequiresDetail: true, Complexity: 0.7}
	}

	if containsAny(m, exhaustiveMarkers) {
		return Analysis{Type: QueryComplex, RequiresDetail: true, Complexity: 0.9}
	}

	return Analysis{Type: QuerySimple, RequiresDetail: true, Complexity: 0.5}
}

func containsAny(s string, markers []string) bool {
	for _, marker := range markers {
		if strings.Contains(s, marker) {
			return true
		}
	}
	return false
}
