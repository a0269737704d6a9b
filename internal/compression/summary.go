package compression

import (
	"regexp"
	"strings"
)

const maxKeyPoints = 5

var (
	sentenceBoundaryRegex = regexp.MustCompile(`[.!?]+\s+`)

	// listItemRegex captures the body of bulleted and numbered list items.
	listItemRegex = regexp.MustCompile(`(?m)^\s*(?:[-*+]|\d+[.)])\s+(.+)$`)
)

// aggressiveCompress reduces text to a first-sentence summary, up to five
// key points, and any fenced code blocks verbatim. Code is never altered.
// Texts with neither code nor list structure fall back to a short generic
// summary.
func aggressiveCompress(text string) string {
	codeBlocks := ExtractCodeBlocks(text)
	prose := RemoveCodeBlocks(text)
	keyPoints := extractKeyPoints(prose)

	if len(codeBlocks) == 0 && len(keyPoints) == 0 {
		return genericSummary(text)
	}

	var parts []string

	if first := firstSentence(prose); first != "" {
		parts = append(parts, first)
	}

	if len(keyPoints) > maxKeyPoints {
		keyPoints = keyPoints[:maxKeyPoints]
	}
	for _, point := range keyPoints {
		parts = append(parts, "- "+point)
	}

	parts = append(parts, codeBlocks...)

	return strings.TrimSpace(strings.Join(parts, "\n"))
}

// genericSummary keeps the first sentence plus up to two more.
func genericSummary(text string) string {
	sentences := splitSentences(text)
	if len(sentences) == 0 {
		return strings.TrimSpace(text)
	}
	if len(sentences) > 3 {
		sentences = sentences[:3]
	}
	return strings.TrimSpace(strings.Join(sentences, " "))
}

// ExtractSummary produces a summary of text hard-truncated to maxLength
// characters, appending "..." when truncation was needed. Lengths are
// measured in runes so multibyte text is not over-truncated.
func ExtractSummary(text string, maxLength int) string {
	summary := aggressiveCompress(text)

	runes := []rune(summary)
	if maxLength <= 0 || len(runes) <= maxLength {
		return summary
	}

	cut := maxLength - 3
	if cut < 0 {
		cut = 0
	}
	return string(runes[:cut]) + "..."
}

// extractKeyPoints collects list item bodies from text.
func extractKeyPoints(text string) []string {
	matches := listItemRegex.FindAllStringSubmatch(text, -1)
	points := make([]string, 0, len(matches))
	for _, m := range matches {
		if body := strings.TrimSpace(m[1]); body != "" {
			points = append(points, body)
		}
	}
	return points
}

// splitSentences slices text at [.!?]+ boundaries followed by whitespace,
// keeping the terminator with its sentence.
func splitSentences(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	var sentences []string
	last := 0
	for _, loc := range sentenceBoundaryRegex.FindAllStringIndex(text, -1) {
		// loc[0] is the start of the punctuation run; keep the
		// punctuation, drop the trailing whitespace.
		end := loc[0]
		for end < loc[1] && isTerminator(text[end]) {
			end++
		}
		if s := strings.TrimSpace(text[last:end]); s != "" {
			sentences = append(sentences, s)
		}
		last = loc[1]
	}

	if rest := strings.TrimSpace(text[last:]); rest != "" {
		sentences = append(sentences, rest)
	}

	return sentences
}

func firstSentence(text string) string {
	sentences := splitSentences(text)
	if len(sentences) == 0 {
		return ""
	}
	return sentences[0]
}

func isTerminator(b byte) bool {
	return b == '.' || b == '!' || b == '?'
}
