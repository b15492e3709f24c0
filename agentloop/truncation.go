package agentloop

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// TruncationMode specifies which part of an over-long text survives.
type TruncationMode string

const (
	TruncateHeadTail TruncationMode = "head_tail"
	TruncateTail     TruncationMode = "tail"
)

// TruncateOutput shortens text to about maxChars, marking what was removed.
// Cuts never split a UTF-8 sequence.
func TruncateOutput(text string, maxChars int, mode TruncationMode) string {
	if maxChars <= 0 || len(text) <= maxChars {
		return text
	}
	removed := len(text) - maxChars

	switch mode {
	case TruncateTail:
		return fmt.Sprintf("[WARNING: text was truncated. First %d characters were removed.]\n\n", removed) +
			text[runeStart(text, len(text)-maxChars):]
	default:
		half := maxChars / 2
		return text[:runeStart(text, half)] +
			fmt.Sprintf("\n\n[WARNING: text was truncated. %d characters were removed from the middle.]\n\n", removed) +
			text[runeStart(text, len(text)-half):]
	}
}

// runeStart moves i back to the start of the rune containing it.
func runeStart(s string, i int) int {
	for i > 0 && i < len(s) && !utf8.RuneStart(s[i]) {
		i--
	}
	return i
}

// TruncateLines keeps the first and last lines of text, at most maxLines in total.
func TruncateLines(text string, maxLines int) string {
	lines := strings.Split(text, "\n")
	if maxLines <= 0 || len(lines) <= maxLines {
		return text
	}

	headCount := maxLines / 2
	tailCount := maxLines - headCount
	omitted := len(lines) - headCount - tailCount

	return strings.Join(lines[:headCount], "\n") +
		fmt.Sprintf("\n[... %d lines omitted ...]\n", omitted) +
		strings.Join(lines[len(lines)-tailCount:], "\n")
}
