// Package budget converts a message classification plus request context into
// generation parameters: a max-token ceiling and a thinking (reasoning)
// budget.
//
// Every limit here is a heuristic over approximate token counts, but the
// arithmetic enforces one hard invariant: the thinking budget is strictly
// below the generation ceiling whenever the ceiling exceeds MinTokens*4
// (1024 tokens). Out-of-range requests are clamped and logged at warn
// level, never rejected.
package budget

import (
	"math"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/responsed/internal/classify"
)

// Profile is a response verbosity preset. Each profile carries a baseline
// token ceiling; the classifier's complexity score selects one when the
// caller does not.
type Profile string

const (
	ProfileConcise  Profile = "concise"
	ProfileStandard Profile = "standard"
	ProfileDetailed Profile = "detailed"
)

// profileLimits are the baseline ceilings per profile. Immutable after load.
var profileLimits = map[Profile]int{
	ProfileConcise:  1024,
	ProfileStandard: 4096,
	ProfileDetailed: 8192,
}

const (
	// MinTokens is the floor for any generation ceiling.
	MinTokens = 256
	// MaxTokens is the absolute ceiling without extended thinking.
	MaxTokens = 8192
	// ExtendedMinTokens and ExtendedMaxTokens bound the ceiling when
	// extended thinking is enabled; the higher floor guarantees headroom
	// for both reasoning and the final answer.
	ExtendedMinTokens = 4096
	ExtendedMaxTokens = 16000

	// simpleAnswerCap bounds yes/no style answers regardless of profile.
	simpleAnswerCap = 256
	// retrievalFloor keeps list responses from being starved by a
	// concise profile.
	retrievalFloor = 1024
	// toolOverhead is the multiplier applied when tool use is enabled,
	// since tool call/result turns consume part of the ceiling.
	toolOverhead = 1.5
)

// Thinking budget tiers by complexity, and the reserve kept between the
// clamped thinking budget and the generation ceiling.
const (
	thinkingLow     = 2000
	thinkingMedium  = 5000
	thinkingHigh    = 10000
	thinkingReserve = 1024
)

// Params are the request-context inputs to ResponseConfig.
type Params struct {
	Message string
	// Profile, when non-empty, overrides complexity-based selection.
	Profile            Profile
	ConversationLength int
	HasFiles           bool
	ToolsEnabled       bool
	ExtendedThinking   bool
}

// LengthConfig is an intermediate ceiling before context adjustment.
type LengthConfig struct {
	MaxTokens int
	Profile   Profile
	QueryType string
}

// Config is the final budgeting decision handed to the generation call.
type Config struct {
	MaxTokens      int
	ThinkingBudget int
	Profile        Profile
	Analysis       classify.Analysis
}

// Controller computes token budgets. It is stateless apart from its logger
// and safe for concurrent use.
type Controller struct {
	logger *zap.Logger
}

// NewController creates a Controller. A nil logger disables diagnostics.
func NewController(logger *zap.Logger) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller{logger: logger.Named("budget")}
}

// ProfileFor selects a profile from a complexity score.
func ProfileFor(complexity float64) Profile {
	switch {
	case complexity < 0.3:
		return ProfileConcise
	case complexity < 0.7:
		return ProfileStandard
	default:
		return ProfileDetailed
	}
}

// OptimalMaxTokens resolves the profile (explicit override first, then
// complexity) and derives the base ceiling: simple questions that need no
// detail are capped, retrieval queries are floored, tool use scales the
// result, and everything is clamped at the absolute ceiling.
func (c *Controller) OptimalMaxTokens(message string, preferred Profile, toolsEnabled bool) LengthConfig {
	return c.optimalFor(classify.Analyze(message), preferred, toolsEnabled)
}

func (c *Controller) optimalFor(analysis classify.Analysis, preferred Profile, toolsEnabled bool) LengthConfig {
	profile := preferred
	if _, ok := profileLimits[profile]; !ok {
		profile = ProfileFor(analysis.Complexity)
	}

	tokens := float64(profileLimits[profile])

	if analysis.Type == classify.QuerySimple && !analysis.RequiresDetail {
		tokens = math.Min(tokens, simpleAnswerCap)
	} else if analysis.Type == classify.QueryDataRetrieval {
		tokens = math.Max(tokens, retrievalFloor)
	}

	if toolsEnabled {
		tokens *= toolOverhead
	}

	ceiling := int(math.Round(tokens))
	if ceiling > MaxTokens {
		ceiling = MaxTokens
	}

	return LengthConfig{
		MaxTokens: ceiling,
		Profile:   profile,
		QueryType: string(analysis.Type),
	}
}

// AdjustForContext scales a ceiling down for long conversations (the two
// branches are mutually exclusive, not cumulative) and up when attachments
// are present, flooring the result at MinTokens.
func (c *Controller) AdjustForContext(cfg LengthConfig, conversationLength int, hasFiles bool) LengthConfig {
	adjusted := float64(cfg.MaxTokens)

	if conversationLength > 20 {
		adjusted *= 0.6
	} else if conversationLength > 10 {
		adjusted *= 0.8
	}

	if hasFiles {
		adjusted *= 1.2
	}

	tokens := int(math.Round(adjusted))
	if tokens < MinTokens {
		tokens = MinTokens
	}

	cfg.MaxTokens = tokens
	return cfg
}

// ThinkingBudget returns the reasoning-token allowance for a complexity
// score, clamped so it never reaches the generation ceiling. Postcondition:
// result < maxTokens whenever maxTokens > thinkingReserve.
func (c *Controller) ThinkingBudget(complexity float64, maxTokens int) int {
	var allowance int
	switch {
	case complexity < 0.3:
		allowance = thinkingLow
	case complexity < 0.7:
		allowance = thinkingMedium
	default:
		allowance = thinkingHigh
	}

	if allowance >= maxTokens {
		clamped := maxTokens - thinkingReserve
		if clamped < thinkingReserve {
			clamped = thinkingReserve
		}
		c.logger.Warn("thinking budget clamped below generation ceiling",
			zap.Int("requested", allowance),
			zap.Int("clamped", clamped),
			zap.Int("max_tokens", maxTokens),
		)
		allowance = clamped
	}

	return allowance
}

// EnforceTokenLimits clamps a requested ceiling into the valid range for
// the thinking mode. Clamps are logged, never errors.
func (c *Controller) EnforceTokenLimits(requested int, extendedThinking bool) int {
	low, high := MinTokens, MaxTokens
	if extendedThinking {
		low, high = ExtendedMinTokens, ExtendedMaxTokens
	}

	if requested < low {
		c.logger.Warn("requested max tokens below floor, clamping",
			zap.Int("requested", requested),
			zap.Int("clamped", low),
			zap.Bool("extended_thinking", extendedThinking),
		)
		return low
	}
	if requested > high {
		c.logger.Warn("requested max tokens above ceiling, clamping",
			zap.Int("requested", requested),
			zap.Int("clamped", high),
			zap.Bool("extended_thinking", extendedThinking),
		)
		return high
	}
	return requested
}

// ResponseConfig orchestrates the full budgeting path: classify, derive the
// base ceiling, adjust for conversation context, expand for extended
// thinking, enforce bounds, and attach a thinking budget. The returned
// config always satisfies ThinkingBudget < MaxTokens when MaxTokens
// exceeds thinkingReserve.
func (c *Controller) ResponseConfig(params Params) Config {
	analysis := classify.Analyze(params.Message)

	base := c.optimalFor(analysis, params.Profile, params.ToolsEnabled)
	adjusted := c.AdjustForContext(base, params.ConversationLength, params.HasFiles)

	tokens := adjusted.MaxTokens
	if params.ExtendedThinking {
		// Expand before enforcement so the extended floor can never
		// leave the thinking budget without headroom.
		expanded := tokens * 2
		if expanded < MaxTokens {
			expanded = MaxTokens
		}
		tokens = expanded
	}

	maxTokens := c.EnforceTokenLimits(tokens, params.ExtendedThinking)
	thinking := c.ThinkingBudget(analysis.Complexity, maxTokens)

	return Config{
		MaxTokens:      maxTokens,
		ThinkingBudget: thinking,
		Profile:        adjusted.Profile,
		Analysis:       analysis,
	}
}
