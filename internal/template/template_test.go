package template

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelect_PriorityOrder(t *testing.T) {
	tests := []struct {
		name    string
		message string
		wantKey string
	}{
		{"yes/no prefix", "Is the database reachable?", "yes_no"},
		{"status phrase", "What's the status of the rollout?", "status_check"},
		{"error phrase", "The cron job keeps hitting an error", "error_analysis"},
		{"not working phrase", "The webhook is flaky and not working", "error_analysis"},
		{"list prefix", "List open incidents for payments", "list_response"},
		{"get all phrase", "Please get all alerts from today", "list_response"},
		{"metric phrase", "How does p99 latency look this week?", "metric_report"},
		{"diagnosis phrase", "Troubleshoot the consumer lag", "error_analysis"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sel := Select(tt.message)
			require.NotNil(t, sel.Template)
			assert.Equal(t, tt.wantKey, sel.Template.Key)
			assert.NotNil(t, sel.Schema)
		})
	}
}

func TestSelect_OrderDisambiguates(t *testing.T) {
	// yes/no outranks status, which outranks everything below it.
	sel := Select("Is the status page showing an error?")
	require.NotNil(t, sel.Template)
	assert.Equal(t, "yes_no", sel.Template.Key)

	// status outranks error.
	sel = Select("Show the status of the failing error queue")
	require.NotNil(t, sel.Template)
	assert.Equal(t, "status_check", sel.Template.Key)

	// metric outranks the diagnosis fallback.
	sel = Select("Investigate the latency regression")
	require.NotNil(t, sel.Template)
	assert.Equal(t, "metric_report", sel.Template.Key)
}

func TestSelect_NoMatch(t *testing.T) {
	sel := Select("Summarize the oncall handoff")
	assert.Nil(t, sel.Template)
	assert.Nil(t, sel.Schema)
	assert.Equal(t, baseInstruction, sel.Instruction)
}

func TestInstruction(t *testing.T) {
	got := Instruction("List open incidents")
	assert.Contains(t, got, baseInstruction)
	assert.Contains(t, got, "Found [count] items: [items]")
	assert.Contains(t, got, "under 400 tokens")

	got = Instruction("Summarize the oncall handoff")
	assert.Equal(t, baseInstruction, got)
}

func TestValidateResponse(t *testing.T) {
	t.Run("no template is trivially valid", func(t *testing.T) {
		res := ValidateResponse("Summarize the oncall handoff", "anything at all")
		assert.True(t, res.Valid)
		assert.Empty(t, res.Errors)
	})

	t.Run("valid status response", func(t *testing.T) {
		res := ValidateResponse(
			"What is the status of the API?",
			`{"status":"degraded","details":"elevated 5xx on us-east","actionRequired":true,"recommendation":"roll back"}`,
		)
		assert.True(t, res.Valid)
		assert.Equal(t, "degraded", res.Data["status"])
	})

	t.Run("enum violation", func(t *testing.T) {
		res := ValidateResponse(
			"What is the status of the API?",
			`{"status":"on fire","details":"bad","actionRequired":false}`,
		)
		require.False(t, res.Valid)
		assert.Contains(t, res.Errors[0], `"status"`)
	})

	t.Run("missing required field", func(t *testing.T) {
		res := ValidateResponse(
			"What is the status of the API?",
			`{"status":"healthy","details":"fine"}`,
		)
		require.False(t, res.Valid)
		assert.Contains(t, strings.Join(res.Errors, " "), "actionRequired")
	})

	t.Run("string too long", func(t *testing.T) {
		res := ValidateResponse(
			"What is the status of the API?",
			`{"status":"healthy","details":"`+strings.Repeat("x", 501)+`","actionRequired":false}`,
		)
		require.False(t, res.Valid)
		assert.Contains(t, res.Errors[0], "500")
	})

	t.Run("malformed JSON never panics", func(t *testing.T) {
		res := ValidateResponse("What is the status of the API?", "{not json")
		assert.False(t, res.Valid)
		assert.NotEmpty(t, res.Errors)
	})
}

func TestParseStructured(t *testing.T) {
	schema := schemaFor("yes_no")

	t.Run("fenced block preferred", func(t *testing.T) {
		text := "Here you go:\n```json\n{\"answer\": true, \"reason\": \"all probes green\"}\n```\ntrailing prose"
		res := ParseStructured(text, schema)
		require.True(t, res.Success, res.Error)
		assert.Equal(t, true, res.Data["answer"])
	})

	t.Run("whole-text fallback", func(t *testing.T) {
		res := ParseStructured(`{"answer": false, "reason": "probe timeouts"}`, schema)
		require.True(t, res.Success, res.Error)
	})

	t.Run("confidence range", func(t *testing.T) {
		res := ParseStructured(`{"answer": true, "reason": "ok", "confidence": 1.5}`, schema)
		require.False(t, res.Success)
		assert.Contains(t, res.Error, "confidence")
	})

	t.Run("garbage input", func(t *testing.T) {
		res := ParseStructured("no json anywhere", schema)
		assert.False(t, res.Success)
		assert.NotEmpty(t, res.Error)
	})

	t.Run("nil schema skips validation", func(t *testing.T) {
		res := ParseStructured(`{"whatever": 1}`, nil)
		assert.True(t, res.Success)
	})

	t.Run("malformed fence falls back to full text", func(t *testing.T) {
		text := "```json\n{broken\n```\n" + `{"answer": true, "reason": "ok"}`
		res := ParseStructured(text, schema)
		// Fenced body fails to parse; the whole text also fails since it
		// includes the fence. Either way the failure is a value.
		assert.False(t, res.Success)
		assert.NotEmpty(t, res.Error)
	})
}

func TestSchemaValidate_Bounds(t *testing.T) {
	t.Run("solution items each bounded", func(t *testing.T) {
		schema := schemaFor("error_analysis")
		errs := schema.Validate(map[string]any{
			"error":    "timeout",
			"cause":    "pool exhaustion",
			"solution": []any{"restart", strings.Repeat("x", 201)},
			"severity": "high",
		})
		require.Len(t, errs, 1)
		assert.Contains(t, errs[0], "item 1")
	})

	t.Run("items array capped at 50", func(t *testing.T) {
		schema := schemaFor("list_response")
		items := make([]any, 51)
		for i := range items {
			items[i] = "x"
		}
		errs := schema.Validate(map[string]any{"items": items, "summary": "too many"})
		require.Len(t, errs, 1)
		assert.Contains(t, errs[0], "50")
	})

	t.Run("wrong types reported not panicked", func(t *testing.T) {
		schema := schemaFor("metric_report")
		errs := schema.Validate(map[string]any{
			"metric": 42,
			"value":  "fast",
			"trend":  "sideways",
			"status": true,
		})
		assert.Len(t, errs, 4)
	})
}

func TestFormat(t *testing.T) {
	out, err := Format("yes_no", map[string]any{"answer": "Yes", "reason": "all probes green"})
	require.NoError(t, err)
	assert.Equal(t, "Yes. all probes green", out)

	out, err = Format("list_response", map[string]any{
		"count": float64(2),
		"items": []any{"db-1", "db-2"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Found 2 items: db-1, db-2", out)

	// Unmatched placeholders survive for display.
	out, err = Format("metric_report", map[string]any{"metric": "p99"})
	require.NoError(t, err)
	assert.Contains(t, out, "[value]")

	_, err = Format("nope", nil)
	assert.Error(t, err)
}
