package template

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// fencedJSONRegex extracts the body of the first ```json fenced block,
// spanning embedded newlines, balanced on the first closing fence.
var fencedJSONRegex = regexp.MustCompile("(?s)```json\\s*(.*?)```")

// ValidationResult reports whether a candidate response conforms to the
// schema selected for the original message.
type ValidationResult struct {
	Valid  bool
	Data   map[string]any
	Errors []string
}

// ParseResult is the outcome of extracting structured data from raw model
// output. Failures are values, never panics or returned errors.
type ParseResult struct {
	Success bool
	Data    map[string]any
	Error   string
}

// ValidateResponse re-selects the template for the message and, when a
// schema exists, validates the candidate against it. Messages with no
// matching template are trivially valid.
func ValidateResponse(message, candidate string) ValidationResult {
	sel := Select(message)
	if sel.Schema == nil {
		return ValidationResult{Valid: true}
	}

	data, err := decodeCandidate(candidate)
	if err != nil {
		return ValidationResult{Valid: false, Errors: []string{err.Error()}}
	}

	if errs := sel.Schema.Validate(data); len(errs) > 0 {
		return ValidationResult{Valid: false, Errors: errs}
	}

	return ValidationResult{Valid: true, Data: data}
}

// ParseStructured extracts a fenced ```json block (falling back to parsing
// the whole text) and validates the result against schema when non-nil.
// Any failure is reported in the result; this function never returns an
// error and never panics.
func ParseStructured(text string, schema *Schema) ParseResult {
	data, err := decodeCandidate(text)
	if err != nil {
		return ParseResult{Success: false, Error: err.Error()}
	}

	if schema != nil {
		if errs := schema.Validate(data); len(errs) > 0 {
			return ParseResult{Success: false, Error: strings.Join(errs, "; ")}
		}
	}

	return ParseResult{Success: true, Data: data}
}

// decodeCandidate tries the first fenced ```json block, then the whole
// text, as a JSON object.
func decodeCandidate(text string) (map[string]any, error) {
	if match := fencedJSONRegex.FindStringSubmatch(text); match != nil {
		data, err := decodeObject(match[1])
		if err == nil {
			return data, nil
		}
		// Fall through: a malformed fenced block does not disqualify
		// the response when the full text parses.
	}

	data, err := decodeObject(text)
	if err != nil {
		return nil, fmt.Errorf("response is not valid JSON: %w", err)
	}
	return data, nil
}

func decodeObject(text string) (map[string]any, error) {
	var data map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(text)), &data); err != nil {
		return nil, err
	}
	if data == nil {
		return nil, fmt.Errorf("expected a JSON object")
	}
	return data, nil
}
