package render

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

// Truncate fits s into width display cells, marking cut text with an
// ellipsis, and pads shorter text with spaces.
func Truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}

	s = strings.ReplaceAll(s, "\n", " ")

	if runewidth.StringWidth(s) > width {
		return runewidth.Truncate(s, width, "…")
	}

	return runewidth.FillRight(s, width)
}
