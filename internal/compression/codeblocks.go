package compression

import "regexp"

// codeBlockRegex matches a fenced code block: non-greedy, spanning embedded
// newlines, balanced on the first closing fence.
var codeBlockRegex = regexp.MustCompile("(?s)```.*?```")

// codeBlockPlaceholder replaces removed blocks so surrounding prose keeps
// its shape.
const codeBlockPlaceholder = "[code block]"

// RemoveCodeBlocks replaces every fenced code block with a placeholder.
// ExtractCodeBlocks of the result is always empty.
func RemoveCodeBlocks(text string) string {
	return codeBlockRegex.ReplaceAllString(text, codeBlockPlaceholder)
}

// ExtractCodeBlocks returns every fenced code block verbatim, fences
// included, in order of appearance.
func ExtractCodeBlocks(text string) []string {
	return codeBlockRegex.FindAllString(text, -1)
}
