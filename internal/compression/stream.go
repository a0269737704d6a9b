package compression

import "strings"

// DefaultSentenceThreshold is the number of complete sentences buffered
// before a stream compresses its accumulated text.
const DefaultSentenceThreshold = 3

// StreamCompressor batches streamed chunks and compresses them once enough
// complete sentences have accumulated. It is a two-phase machine: below the
// sentence threshold every chunk passes through unmodified (buffering adds
// no user-visible delay beyond normal streaming); at the threshold the
// entire buffer — not just the newest chunk — is compressed, returned, and
// the buffer reset.
//
// One instance belongs to exactly one in-flight stream. Instances are not
// safe for concurrent use; arbitrarily many may run in parallel with no
// coordination. An aborted stream simply stops calling ProcessChunk and
// discards its instance.
type StreamCompressor struct {
	buffer            strings.Builder
	mode              Mode
	sentenceThreshold int
}

// NewStreamCompressor creates a stream compressor for one stream. A
// sentenceThreshold of zero or less selects DefaultSentenceThreshold.
func NewStreamCompressor(mode Mode, sentenceThreshold int) *StreamCompressor {
	if sentenceThreshold <= 0 {
		sentenceThreshold = DefaultSentenceThreshold
	}
	if !mode.Valid() {
		mode = ModeLight
	}
	return &StreamCompressor{
		mode:              mode,
		sentenceThreshold: sentenceThreshold,
	}
}

// ProcessChunk appends chunk to the buffer and returns the text to forward
// to the client: the chunk itself while below the sentence threshold, or
// the compressed form of the whole accumulated buffer once the threshold
// is crossed.
func (s *StreamCompressor) ProcessChunk(chunk string) string {
	s.buffer.WriteString(chunk)

	if countSentences(s.buffer.String()) < s.sentenceThreshold {
		return chunk
	}

	out := Compress(s.buffer.String(), s.mode).Compressed
	s.buffer.Reset()
	return out
}

// Flush compresses and returns whatever remains in the buffer, resetting
// it. Returns the empty string when nothing is buffered.
func (s *StreamCompressor) Flush() string {
	if s.buffer.Len() == 0 {
		return ""
	}

	out := Compress(s.buffer.String(), s.mode).Compressed
	s.buffer.Reset()
	return out
}

// Reset discards any buffered text.
func (s *StreamCompressor) Reset() {
	s.buffer.Reset()
}

// Buffered returns the current buffer size in bytes.
func (s *StreamCompressor) Buffered() int {
	return s.buffer.Len()
}

// countSentences counts sentence segments by splitting on terminator runs
// followed by whitespace.
func countSentences(text string) int {
	count := 0
	for _, part := range sentenceBoundaryRegex.Split(text, -1) {
		if strings.TrimSpace(part) != "" {
			count++
		}
	}
	return count
}
