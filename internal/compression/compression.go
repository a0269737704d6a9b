// Package compression post-processes generated text to remove verbosity or
// extract key points, at four increasing strengths.
//
// Token counts here are the chars/4 approximation used across the corpus:
// good enough for picking an auto-compression mode and for reporting, never
// for exact budget arithmetic. Everything in the package is deterministic
// and free of I/O; StreamCompressor is the only stateful piece and is owned
// by exactly one in-flight stream.
package compression

import (
	"regexp"
	"strings"
)

// Mode is a compression strength.
type Mode string

const (
	ModeNone       Mode = "none"
	ModeLight      Mode = "light"
	ModeModerate   Mode = "moderate"
	ModeAggressive Mode = "aggressive"
)

// Valid reports whether m is a known mode.
func (m Mode) Valid() bool {
	switch m {
	case ModeNone, ModeLight, ModeModerate, ModeAggressive:
		return true
	}
	return false
}

// Result describes one compression pass.
type Result struct {
	Compressed       string  `json:"compressed"`
	Mode             Mode    `json:"mode"`
	OriginalLength   int     `json:"originalLength"`
	CompressedLength int     `json:"compressedLength"`
	CompressionRatio float64 `json:"compressionRatio"`
	TokensRemoved    int     `json:"tokensRemoved"`
}

// EstimateTokens approximates the token count of s as ceil(len/4).
func EstimateTokens(s string) int {
	return (len(s) + 3) / 4
}

// Filler catalogues. Whole-phrase, case-insensitive removal; immutable
// after load.
var fillerPhrases = []string{
	"I'll help you with that.",
	"I'd be happy to help.",
	"I'd be happy to help with that.",
	"Great question!",
	"Certainly!",
	"Of course!",
	"Sure, I can help with that.",
	"Let me help you with that.",
	"I hope this helps!",
	"I hope this helps.",
	"Feel free to ask if you have any questions.",
	"Let me know if you need anything else.",
	"Let me know if you have any other questions.",
	"Is there anything else you'd like to know?",
	"Don't hesitate to reach out.",
}

var transitionFillers = []string{
	"in other words,",
	"to put it another way,",
	"as mentioned earlier,",
	"as I mentioned before,",
	"it's worth noting that",
	"it is worth noting that",
}

var (
	fillerRegex     = phraseRegex(fillerPhrases)
	transitionRegex = phraseRegex(transitionFillers)

	multiNewlineRegex = regexp.MustCompile(`\n{3,}`)
	multiSpaceRegex   = regexp.MustCompile(` {2,}`)

	exampleHeaderRegex = regexp.MustCompile(`(?i)^\s*examples?\s*:`)
)

func phraseRegex(phrases []string) *regexp.Regexp {
	quoted := make([]string, len(phrases))
	for i, p := range phrases {
		quoted[i] = regexp.QuoteMeta(p)
	}
	return regexp.MustCompile("(?i)(?:" + strings.Join(quoted, "|") + ")")
}

// Compress applies the given mode to text. ModeNone is the identity with a
// ratio of exactly 1.0. No mode ever expands the text: if a transform comes
// out longer than the input, the input wins.
func Compress(text string, mode Mode) Result {
	if mode == ModeNone || mode == "" {
		return Result{
			Compressed:       text,
			Mode:             ModeNone,
			OriginalLength:   len(text),
			CompressedLength: len(text),
			CompressionRatio: 1.0,
		}
	}

	var compressed string
	switch mode {
	case ModeLight:
		compressed = lightCompress(text)
	case ModeModerate:
		compressed = moderateCompress(text)
	case ModeAggressive:
		compressed = aggressiveCompress(text)
	default:
		compressed = text
	}

	if len(compressed) > len(text) {
		compressed = text
	}

	return buildResult(text, compressed, mode)
}

// AutoCompress picks a mode from the estimated token count and applies it:
// under 500 tokens nothing, under 1500 light, under 3000 moderate, then
// aggressive.
func AutoCompress(text string) Result {
	tokens := EstimateTokens(text)

	mode := ModeAggressive
	switch {
	case tokens < 500:
		mode = ModeNone
	case tokens < 1500:
		mode = ModeLight
	case tokens < 3000:
		mode = ModeModerate
	}

	return Compress(text, mode)
}

func buildResult(original, compressed string, mode Mode) Result {
	ratio := 1.0
	if len(original) > 0 {
		ratio = float64(len(compressed)) / float64(len(original))
	}

	return Result{
		Compressed:       compressed,
		Mode:             mode,
		OriginalLength:   len(original),
		CompressedLength: len(compressed),
		CompressionRatio: ratio,
		TokensRemoved:    EstimateTokens(original) - EstimateTokens(compressed),
	}
}

// lightCompress removes filler phrases and normalizes whitespace.
func lightCompress(text string) string {
	out := fillerRegex.ReplaceAllString(text, "")
	return normalizeWhitespace(out)
}

// moderateCompress is light compression plus, for long texts, example
// section stripping and transition filler removal.
func moderateCompress(text string) string {
	out := fillerRegex.ReplaceAllString(text, "")

	if len(text) > 1000 {
		out = stripExampleSections(out)
	}

	out = transitionRegex.ReplaceAllString(out, "")
	return normalizeWhitespace(out)
}

// stripExampleSections drops lines from an "Example:" header up to the next
// blank line or markdown heading.
func stripExampleSections(text string) string {
	lines := strings.Split(text, "\n")
	kept := lines[:0]

	skipping := false
	for _, line := range lines {
		if skipping {
			trimmed := strings.TrimSpace(line)
			if trimmed == "" || strings.HasPrefix(trimmed, "#") {
				skipping = false
			} else {
				continue
			}
		}
		if exampleHeaderRegex.MatchString(line) {
			skipping = true
			continue
		}
		kept = append(kept, line)
	}

	return strings.Join(kept, "\n")
}

func normalizeWhitespace(text string) string {
	out := multiNewlineRegex.ReplaceAllString(text, "\n\n")
	out = multiSpaceRegex.ReplaceAllString(out, " ")
	return strings.TrimSpace(out)
}
