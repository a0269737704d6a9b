package template

import (
	"fmt"
	"math"
)

// Kind is the expected JSON type of a schema field.
type Kind int

const (
	KindString Kind = iota
	KindBool
	KindNumber
	KindStringArray
)

// Field is one constraint in a template schema. Zero-valued bounds are
// unset: MaxLen/MaxItems of 0 mean unbounded, a nil Enum means any value.
type Field struct {
	Name     string
	Kind     Kind
	Required bool
	// Enum restricts string fields to a fixed value set.
	Enum []string
	// MaxLen bounds string length (and each element of a string array).
	MaxLen int
	// MaxItems bounds array size.
	MaxItems int
	// Min/Max bound numeric fields when HasRange is set.
	HasRange bool
	Min, Max float64
}

// Schema is the explicit validator for one template: a flat list of field
// checks. Validation is total — it reports every violation and never
// panics on malformed input.
type Schema struct {
	Fields []Field
}

// Per-template schemas. Immutable after load; numeric bounds here are
// contract values and must not drift.
var schemas = map[string]*Schema{
	"status_check": {Fields: []Field{
		{Name: "status", Kind: KindString, Required: true, Enum: []string{"healthy", "degraded", "down", "unknown"}},
		{Name: "details", Kind: KindString, Required: true, MaxLen: 500},
		{Name: "actionRequired", Kind: KindBool, Required: true},
		{Name: "recommendation", Kind: KindString, MaxLen: 200},
	}},
	"error_analysis": {Fields: []Field{
		{Name: "error", Kind: KindString, Required: true, MaxLen: 300},
		{Name: "cause", Kind: KindString, Required: true, MaxLen: 500},
		{Name: "solution", Kind: KindStringArray, Required: true, MaxLen: 200},
		{Name: "severity", Kind: KindString, Required: true, Enum: []string{"critical", "high", "medium", "low"}},
	}},
	"list_response": {Fields: []Field{
		{Name: "items", Kind: KindStringArray, Required: true, MaxItems: 50},
		{Name: "summary", Kind: KindString, Required: true, MaxLen: 200},
	}},
	"yes_no": {Fields: []Field{
		{Name: "answer", Kind: KindBool, Required: true},
		{Name: "reason", Kind: KindString, Required: true, MaxLen: 200},
		{Name: "confidence", Kind: KindNumber, HasRange: true, Min: 0, Max: 1},
	}},
	"metric_report": {Fields: []Field{
		{Name: "metric", Kind: KindString, Required: true},
		{Name: "value", Kind: KindNumber, Required: true},
		{Name: "trend", Kind: KindString, Required: true, Enum: []string{"up", "down", "stable"}},
		{Name: "status", Kind: KindString, Required: true, Enum: []string{"good", "warning", "critical"}},
	}},
}

func schemaFor(key string) *Schema {
	return schemas[key]
}

// Validate checks data against the schema and returns one message per
// violation. An empty slice means the data conforms.
func (s *Schema) Validate(data map[string]any) []string {
	var errs []string

	for _, field := range s.Fields {
		value, present := data[field.Name]
		if !present || value == nil {
			if field.Required {
				errs = append(errs, fmt.Sprintf("missing required field %q", field.Name))
			}
			continue
		}
		errs = append(errs, field.check(value)...)
	}

	return errs
}

func (f Field) check(value any) []string {
	var errs []string

	switch f.Kind {
	case KindString:
		str, ok := value.(string)
		if !ok {
			return []string{fmt.Sprintf("field %q must be a string", f.Name)}
		}
		if f.MaxLen > 0 && len(str) > f.MaxLen {
			errs = append(errs, fmt.Sprintf("field %q exceeds %d characters", f.Name, f.MaxLen))
		}
		if len(f.Enum) > 0 && !contains(f.Enum, str) {
			errs = append(errs, fmt.Sprintf("field %q must be one of %v", f.Name, f.Enum))
		}

	case KindBool:
		if _, ok := value.(bool); !ok {
			errs = append(errs, fmt.Sprintf("field %q must be a boolean", f.Name))
		}

	case KindNumber:
		num, ok := value.(float64)
		if !ok {
			return []string{fmt.Sprintf("field %q must be a number", f.Name)}
		}
		if math.IsNaN(num) || math.IsInf(num, 0) {
			return []string{fmt.Sprintf("field %q must be a finite number", f.Name)}
		}
		if f.HasRange && (num < f.Min || num > f.Max) {
			errs = append(errs, fmt.Sprintf("field %q must be between %g and %g", f.Name, f.Min, f.Max))
		}

	case KindStringArray:
		arr, ok := value.([]any)
		if !ok {
			return []string{fmt.Sprintf("field %q must be an array", f.Name)}
		}
		if f.MaxItems > 0 && len(arr) > f.MaxItems {
			errs = append(errs, fmt.Sprintf("field %q exceeds %d items", f.Name, f.MaxItems))
		}
		for i, item := range arr {
			str, ok := item.(string)
			if !ok {
				errs = append(errs, fmt.Sprintf("field %q item %d must be a string", f.Name, i))
				continue
			}
			if f.MaxLen > 0 && len(str) > f.MaxLen {
				errs = append(errs, fmt.Sprintf("field %q item %d exceeds %d characters", f.Name, i, f.MaxLen))
			}
		}
	}

	return errs
}

func contains(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}
