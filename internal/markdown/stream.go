package markdown

import "strings"

// Streamer parses a growing Markdown buffer incrementally. Each call to
// ParseStreaming appends a chunk, and attempts a parse once the buffer
// looks like it ends on a safe boundary (a blank line, a trailing
// newline, and no unterminated fenced code block). On success the
// consumed input is cleared from the buffer; on failure, or while the
// boundary looks unsafe, the buffer is retained for the next chunk.
type Streamer struct {
	buf strings.Builder
}

// NewStreamer returns an empty Streamer.
func NewStreamer() *Streamer { return &Streamer{} }

// ParseStreaming appends chunk to the internal buffer and, if the
// buffer now ends on a parseable boundary, returns the tokens parsed
// from it and clears the buffer. Otherwise it returns a nil slice and
// keeps buffering.
func (s *Streamer) ParseStreaming(chunk string) ([]Token, error) {
	s.buf.WriteString(chunk)
	content := s.buf.String()

	if !atBoundary(content, chunk) {
		return nil, nil
	}

	tokens, err := ParseComplete(content)
	if err != nil {
		// Keep the buffer for the next chunk; maybe more input resolves it.
		return nil, nil
	}
	if len(tokens) == 0 {
		return nil, nil
	}
	s.buf.Reset()
	return tokens, nil
}

// Reset clears the internal buffer, discarding any unparsed partial
// content. Used on session reset or when a response is interrupted.
func (s *Streamer) Reset() {
	s.buf.Reset()
}

// atBoundary decides whether content looks safe to attempt a parse:
// it must end on a newline or contain a blank line, and must not end
// mid fenced-code-block (an odd number of ``` fence markers).
func atBoundary(content, chunk string) bool {
	if strings.Count(content, "```")%2 != 0 {
		return false
	}
	return strings.Contains(content, "\n\n") || strings.HasSuffix(chunk, "\n")
}
