package budget

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/fyrsmithlabs/responsed/internal/classify"
)

func newTestController(t *testing.T) (*Controller, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zapcore.WarnLevel)
	return NewController(zap.New(core)), logs
}

func TestProfileFor(t *testing.T) {
	assert.Equal(t, ProfileConcise, ProfileFor(0.0))
	assert.Equal(t, ProfileConcise, ProfileFor(0.29))
	assert.Equal(t, ProfileStandard, ProfileFor(0.3))
	assert.Equal(t, ProfileStandard, ProfileFor(0.69))
	assert.Equal(t, ProfileDetailed, ProfileFor(0.7))
	assert.Equal(t, ProfileDetailed, ProfileFor(1.0))
}

func TestOptimalMaxTokens(t *testing.T) {
	c, _ := newTestController(t)

	tests := []struct {
		name         string
		message      string
		preferred    Profile
		toolsEnabled bool
		wantTokens   int
		wantProfile  Profile
	}{
		{
			name:        "yes/no question capped",
			message:     "Is the API healthy?",
			wantTokens:  256,
			wantProfile: ProfileConcise,
		},
		{
			name:         "yes/no with tools scales the cap",
			message:      "Is the API healthy?",
			toolsEnabled: true,
			wantTokens:   384,
			wantProfile:  ProfileConcise,
		},
		{
			name:        "retrieval floored above concise ceiling",
			message:     "List all open incidents",
			preferred:   ProfileConcise,
			wantTokens:  1024,
			wantProfile: ProfileConcise,
		},
		{
			name:        "default query on standard profile",
			message:     "Summarize the handoff notes",
			wantTokens:  4096,
			wantProfile: ProfileStandard,
		},
		{
			name:         "detailed with tools clamps at absolute ceiling",
			message:      "Write a comprehensive reliability report",
			toolsEnabled: true,
			wantTokens:   8192,
			wantProfile:  ProfileDetailed,
		},
		{
			name:        "explicit override wins over complexity",
			message:     "Write a comprehensive reliability report",
			preferred:   ProfileConcise,
			wantTokens:  1024,
			wantProfile: ProfileConcise,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.OptimalMaxTokens(tt.message, tt.preferred, tt.toolsEnabled)
			assert.Equal(t, tt.wantTokens, got.MaxTokens)
			assert.Equal(t, tt.wantProfile, got.Profile)
		})
	}
}

func TestAdjustForContext(t *testing.T) {
	c, _ := newTestController(t)
	base := LengthConfig{MaxTokens: 4096, Profile: ProfileStandard}

	t.Run("long conversation shrinks", func(t *testing.T) {
		got := c.AdjustForContext(base, 25, false)
		assert.Equal(t, 2458, got.MaxTokens) // round(4096*0.6)
	})

	t.Run("medium conversation shrinks less", func(t *testing.T) {
		got := c.AdjustForContext(base, 15, false)
		assert.Equal(t, 3277, got.MaxTokens) // round(4096*0.8)
	})

	t.Run("branches are exclusive not cumulative", func(t *testing.T) {
		// 25 messages must apply only the 0.6 factor, never 0.6*0.8.
		got := c.AdjustForContext(base, 25, false)
		cumulative := int(math.Round(4096 * 0.6 * 0.8))
		assert.Greater(t, got.MaxTokens, cumulative)
		assert.Equal(t, 2458, got.MaxTokens)
	})

	t.Run("files grow the ceiling", func(t *testing.T) {
		got := c.AdjustForContext(base, 0, true)
		assert.Equal(t, 4915, got.MaxTokens) // round(4096*1.2)
	})

	t.Run("floored at minimum", func(t *testing.T) {
		got := c.AdjustForContext(LengthConfig{MaxTokens: 256}, 25, false)
		assert.Equal(t, MinTokens, got.MaxTokens)
	})
}

func TestThinkingBudget_Tiers(t *testing.T) {
	c, _ := newTestController(t)

	// Large enough ceiling to avoid the clamp.
	const roomy = 16000

	assert.Equal(t, 2000, c.ThinkingBudget(0.0, roomy))
	assert.Equal(t, 2000, c.ThinkingBudget(0.29, roomy))
	assert.Equal(t, 5000, c.ThinkingBudget(0.3, roomy))
	assert.Equal(t, 5000, c.ThinkingBudget(0.69, roomy))
	assert.Equal(t, 10000, c.ThinkingBudget(0.7, roomy))
	assert.Equal(t, 10000, c.ThinkingBudget(1.0, roomy))
}

func TestThinkingBudget_ClampLogsWarning(t *testing.T) {
	c, logs := newTestController(t)

	got := c.ThinkingBudget(0.9, 4096)
	assert.Equal(t, 3072, got)
	require.Equal(t, 1, logs.Len())
	assert.Contains(t, logs.All()[0].Message, "thinking budget clamped")
}

func TestThinkingBudget_StrictlyBelowCeiling(t *testing.T) {
	c, _ := newTestController(t)

	for _, maxTokens := range []int{1025, 1500, 2000, 2048, 4096, 8192, 16000} {
		for _, complexity := range []float64{0.0, 0.3, 0.5, 0.7, 1.0} {
			got := c.ThinkingBudget(complexity, maxTokens)
			assert.Less(t, got, maxTokens,
				"complexity=%v maxTokens=%d", complexity, maxTokens)
		}
	}
}

func TestEnforceTokenLimits(t *testing.T) {
	c, logs := newTestController(t)

	assert.Equal(t, 256, c.EnforceTokenLimits(100, false))
	assert.Equal(t, 8192, c.EnforceTokenLimits(10000, false))
	assert.Equal(t, 4096, c.EnforceTokenLimits(100, true))
	assert.Equal(t, 16000, c.EnforceTokenLimits(20000, true))
	assert.Equal(t, 4, logs.Len(), "every clamp must log a warning")

	// In-range values pass through without logging.
	before := logs.Len()
	assert.Equal(t, 4096, c.EnforceTokenLimits(4096, false))
	assert.Equal(t, 8000, c.EnforceTokenLimits(8000, true))
	assert.Equal(t, before, logs.Len())
}

func TestResponseConfig_ExtendedThinkingScenario(t *testing.T) {
	c, _ := newTestController(t)

	cfg := c.ResponseConfig(Params{
		Message:            "Analyze the performance degradation across all services",
		ConversationLength: 5,
		HasFiles:           true,
		ToolsEnabled:       true,
		ExtendedThinking:   true,
	})

	assert.Equal(t, ProfileDetailed, cfg.Profile)
	assert.Equal(t, classify.QueryAnalysis, cfg.Analysis.Type)
	assert.GreaterOrEqual(t, cfg.MaxTokens, ExtendedMinTokens)
	assert.LessOrEqual(t, cfg.MaxTokens, ExtendedMaxTokens)
	assert.Less(t, cfg.ThinkingBudget, cfg.MaxTokens)
}

// The engine's critical invariant: for every input combination the thinking
// budget stays strictly below the generation ceiling.
func TestResponseConfig_InvariantHolds(t *testing.T) {
	c, _ := newTestController(t)

	messages := []string{
		"Is it up?",
		"What is the status of the migration?",
		"List all paging alerts",
		"Why is the queue backing up?",
		"Write a comprehensive postmortem",
		"hello",
	}
	profiles := []Profile{"", ProfileConcise, ProfileStandard, ProfileDetailed}
	lengths := []int{0, 5, 11, 15, 21, 100}

	for _, msg := range messages {
		for _, profile := range profiles {
			for _, convLen := range lengths {
				for _, hasFiles := range []bool{false, true} {
					for _, tools := range []bool{false, true} {
						for _, extended := range []bool{false, true} {
							params := Params{
								Message:            msg,
								Profile:            profile,
								ConversationLength: convLen,
								HasFiles:           hasFiles,
								ToolsEnabled:       tools,
								ExtendedThinking:   extended,
							}
							cfg := c.ResponseConfig(params)
							label := fmt.Sprintf("%+v", params)
							if cfg.MaxTokens > 1024 {
								assert.Less(t, cfg.ThinkingBudget, cfg.MaxTokens, label)
							}
							if extended {
								assert.GreaterOrEqual(t, cfg.MaxTokens, ExtendedMinTokens, label)
								assert.LessOrEqual(t, cfg.MaxTokens, ExtendedMaxTokens, label)
							} else {
								assert.GreaterOrEqual(t, cfg.MaxTokens, MinTokens, label)
								assert.LessOrEqual(t, cfg.MaxTokens, MaxTokens, label)
							}
						}
					}
				}
			}
		}
	}
}

func TestNewController_NilLogger(t *testing.T) {
	c := NewController(nil)
	assert.NotPanics(t, func() {
		c.EnforceTokenLimits(1, false)
	})
}
