package ticket

import (
	"strings"
	"unicode/utf8"
)

// width counts characters, not bytes, so accented names line up.
func width(s string) int { return utf8.RuneCountInString(s) }

// Center left-pads s so it sits in the middle of a w-column line.
// Text wider than the line is returned unpadded.
func Center(s string, w int) string {
	pad := (w - width(s)) / 2
	if pad < 0 {
		pad = 0
	}
	return strings.Repeat(" ", pad) + s
}

// Justify places label at the left edge and value at the right edge of a
// w-column line, separated by at least one space.
func Justify(label, value string, w int) string {
	gap := w - width(label) - width(value)
	if gap < 1 {
		gap = 1
	}
	return label + strings.Repeat(" ", gap) + value
}

// Rule is a full-width separator made of ch.
func Rule(ch rune, w int) string {
	if w < 0 {
		w = 0
	}
	return strings.Repeat(string(ch), w)
}

// Truncate cuts s to at most n characters.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if width(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
