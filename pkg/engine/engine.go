// Package engine is the public facade over the response budgeting and
// compression core. A chat orchestrator calls Plan before each generation
// request, feeds streamed output through a per-stream compressor, and
// optionally validates structured responses after the fact.
//
// Every method is synchronous, free of I/O, and safe for concurrent use;
// stream compressors are the one exception and are owned by a single
// stream each.
package engine

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/responsed/internal/budget"
	"github.com/fyrsmithlabs/responsed/internal/classify"
	"github.com/fyrsmithlabs/responsed/internal/compression"
	"github.com/fyrsmithlabs/responsed/internal/template"
)

const meterName = "github.com/fyrsmithlabs/responsed/pkg/engine"

// Request carries one user message plus its request context.
type Request struct {
	Message string `json:"message"`
	// Profile optionally overrides complexity-based profile selection.
	Profile            budget.Profile `json:"profile,omitempty"`
	ConversationLength int            `json:"conversation_length"`
	HasFiles           bool           `json:"has_files"`
	ToolsEnabled       bool           `json:"tools_enabled"`
	ExtendedThinking   bool           `json:"extended_thinking"`
}

// Plan is the budgeting decision for one generation call, plus the prompt
// instruction derived from template selection.
type Plan struct {
	MaxTokens      int               `json:"max_tokens"`
	ThinkingBudget int               `json:"thinking_budget"`
	Profile        budget.Profile    `json:"profile"`
	Analysis       classify.Analysis `json:"analysis"`
	Instruction    string            `json:"instruction"`
}

// Engine ties the classifier, budget controller, template registry, and
// compressor together.
type Engine struct {
	budget *budget.Controller
	logger *zap.Logger

	planCounter     metric.Int64Counter
	compressCounter metric.Int64Counter
	tokensRemoved   metric.Int64Counter
}

// New creates an Engine. A nil logger disables diagnostics. Metrics use
// the global meter provider and are no-ops until one is installed.
func New(logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}

	e := &Engine{
		budget: budget.NewController(logger),
		logger: logger.Named("engine"),
	}
	e.initMetrics()
	return e
}

func (e *Engine) initMetrics() {
	meter := otel.Meter(meterName)
	var err error

	e.planCounter, err = meter.Int64Counter(
		"responsed.plans_total",
		metric.WithDescription("Budgeting plans produced, labeled by profile and query type."),
		metric.WithUnit("{plan}"),
	)
	if err != nil {
		e.logger.Warn("failed to create plan counter", zap.Error(err))
	}

	e.compressCounter, err = meter.Int64Counter(
		"responsed.compressions_total",
		metric.WithDescription("Compression passes, labeled by mode."),
		metric.WithUnit("{compression}"),
	)
	if err != nil {
		e.logger.Warn("failed to create compression counter", zap.Error(err))
	}

	e.tokensRemoved, err = meter.Int64Counter(
		"responsed.tokens_removed_total",
		metric.WithDescription("Estimated tokens removed by compression passes."),
		metric.WithUnit("{token}"),
	)
	if err != nil {
		e.logger.Warn("failed to create tokens removed counter", zap.Error(err))
	}
}

// Plan computes generation parameters and the prompt instruction for one
// message. Total over all inputs; out-of-range intermediate values are
// clamped and logged, never surfaced as errors.
func (e *Engine) Plan(ctx context.Context, req Request) Plan {
	cfg := e.budget.ResponseConfig(budget.Params{
		Message:            req.Message,
		Profile:            req.Profile,
		ConversationLength: req.ConversationLength,
		HasFiles:           req.HasFiles,
		ToolsEnabled:       req.ToolsEnabled,
		ExtendedThinking:   req.ExtendedThinking,
	})

	if e.planCounter != nil {
		e.planCounter.Add(ctx, 1, metric.WithAttributes(
			attribute.String("profile", string(cfg.Profile)),
			attribute.String("query_type", string(cfg.Analysis.Type)),
		))
	}

	return Plan{
		MaxTokens:      cfg.MaxTokens,
		ThinkingBudget: cfg.ThinkingBudget,
		Profile:        cfg.Profile,
		Analysis:       cfg.Analysis,
		Instruction:    template.Instruction(req.Message),
	}
}

// Compress applies an explicit compression mode to text.
func (e *Engine) Compress(ctx context.Context, text string, mode compression.Mode) compression.Result {
	res := compression.Compress(text, mode)
	e.recordCompression(ctx, res)
	return res
}

// AutoCompress selects a mode from the text's estimated token count.
func (e *Engine) AutoCompress(ctx context.Context, text string) compression.Result {
	res := compression.AutoCompress(text)
	e.recordCompression(ctx, res)
	return res
}

func (e *Engine) recordCompression(ctx context.Context, res compression.Result) {
	if e.compressCounter != nil {
		e.compressCounter.Add(ctx, 1, metric.WithAttributes(
			attribute.String("mode", string(res.Mode)),
		))
	}
	if e.tokensRemoved != nil && res.TokensRemoved > 0 {
		e.tokensRemoved.Add(ctx, int64(res.TokensRemoved))
	}
}

// Validate checks a candidate response against the template selected for
// the original message.
func (e *Engine) Validate(message, candidate string) template.ValidationResult {
	return template.ValidateResponse(message, candidate)
}

// Instruction returns the prompt instruction for a message without
// computing a full plan.
func (e *Engine) Instruction(message string) string {
	return template.Instruction(message)
}

// NewStream creates a compressor for one streaming response. The caller
// owns the instance for the lifetime of the stream and must not share it.
func (e *Engine) NewStream(mode compression.Mode, sentenceThreshold int) *compression.StreamCompressor {
	return compression.NewStreamCompressor(mode, sentenceThreshold)
}
