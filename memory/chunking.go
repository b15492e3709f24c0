package memory

import (
	"strings"
	"unicode/utf8"
)

// DefaultChunkSize is the target segment length in bytes.
const DefaultChunkSize = 1000

// Segment is a contiguous piece of a document. Seq is its position in the
// source text, starting at zero.
type Segment struct {
	Text string
	Seq  int
}

// ChunkText splits text into segments at paragraph boundaries. A paragraph
// is flushed once the segment reaches half of maxLen; single lines longer
// than maxLen are split on rune boundaries.
func ChunkText(text string, maxLen int) []Segment {
	if maxLen <= 0 {
		maxLen = DefaultChunkSize
	}

	var segments []Segment
	var current strings.Builder

	flush := func() {
		content := strings.TrimSpace(current.String())
		if content != "" {
			segments = append(segments, Segment{Text: content, Seq: len(segments)})
		}
		current.Reset()
	}

	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" && current.Len() >= maxLen/2 {
			flush()
			continue
		}

		for len(line) > maxLen {
			cut := splitPoint(line, maxLen)
			if current.Len() > 0 {
				flush()
			}
			current.WriteString(line[:cut])
			flush()
			line = line[cut:]
		}

		if current.Len() > 0 {
			current.WriteString("\n")
		}
		current.WriteString(line)

		if current.Len() >= maxLen {
			flush()
		}
	}
	flush()

	return segments
}

// splitPoint finds a cut at or before limit, preferring the last space and
// never splitting a rune.
func splitPoint(line string, limit int) int {
	if i := strings.LastIndexByte(line[:limit], ' '); i > limit/2 {
		return i + 1
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(line[cut]) {
		cut--
	}
	if cut == 0 {
		return limit
	}
	return cut
}
