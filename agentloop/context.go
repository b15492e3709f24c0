package agentloop

import (
	"context"
	"log/slog"
)

// ContextProvider decides what part of the running context a prompt shows.
type ContextProvider interface {
	Context(ctx context.Context, objective, running string) string
}

// SegmentExtractor finds the part of a text most relevant to a query.
type SegmentExtractor interface {
	ExtractSegment(ctx context.Context, query, text string) (string, error)
}

// CompactingContext shows the running context verbatim while it fits in
// MaxChars; longer contexts are reduced to the segment most relevant to the
// objective, or tail-truncated when extraction fails.
type CompactingContext struct {
	Extractor SegmentExtractor
	MaxChars  int
	Logger    *slog.Logger
}

// Context implements ContextProvider.
func (c *CompactingContext) Context(ctx context.Context, objective, running string) string {
	if c.MaxChars <= 0 || len(running) <= c.MaxChars {
		return running
	}
	logger := c.Logger
	if logger == nil {
		logger = slog.Default()
	}

	logger.Info("context too long, extracting relevant segment", "length", len(running), "max", c.MaxChars)
	if c.Extractor != nil {
		query := "Find the part of the context which most helps me with objective: " + objective
		segment, err := c.Extractor.ExtractSegment(ctx, query, running)
		if err == nil && segment != "" {
			return TruncateOutput(segment, c.MaxChars, TruncateHeadTail)
		}
		logger.Warn("context extraction failed, truncating", "error", err)
	}
	return TruncateOutput(running, c.MaxChars, TruncateTail)
}
