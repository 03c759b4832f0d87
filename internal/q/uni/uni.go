// Package uni measures and fits text to terminal columns. Nodelist system names and file paths may hold Cyrillic or CJK text, so widths are counted in cells,
// not bytes or runes.
package uni

import (
	"strings"

	"github.com/clipperhouse/uax29/v2/graphemes"
	"github.com/mattn/go-runewidth"
)

// Options control width calculation. Currently only relevant for East Asian code points.
type Options struct {
	EastAsianWidth bool // if true, treats ambiguous East Asian code points as 2 wide. Use if the locale is one of CJK.
}

// Ellipsis marks text cut by Fit.
const Ellipsis = "…"

// TextWidth returns the width of str in monospace terminal cells. If opts is nil, locale is assumed to be non-East Asian.
func TextWidth(str string, opts *Options) int {
	return condition(opts).StringWidth(str)
}

// PadRight pads str with spaces to width cells. str is returned unchanged if it is already at least width wide.
func PadRight(str string, width int, opts *Options) string {
	w := TextWidth(str, opts)
	if w >= width {
		return str
	}
	return str + strings.Repeat(" ", width-w)
}

// Fit returns str padded or cut to exactly width cells. Cuts happen on grapheme cluster boundaries and end with Ellipsis. A wide cluster that would straddle
// the boundary is dropped and replaced by padding.
func Fit(str string, width int, opts *Options) string {
	if width <= 0 {
		return ""
	}
	cond := condition(opts)
	if cond.StringWidth(str) <= width {
		return PadRight(str, width, opts)
	}

	budget := width - cond.StringWidth(Ellipsis)
	var b strings.Builder
	used := 0
	iter := graphemes.FromString(str)
	for iter.Next() {
		cluster := iter.Value()
		w := cond.StringWidth(cluster)
		if used+w > budget {
			break
		}
		b.WriteString(cluster)
		used += w
	}
	if budget >= 0 {
		b.WriteString(Ellipsis)
	}
	return PadRight(b.String(), width, opts)
}

func condition(opts *Options) *runewidth.Condition {
	cond := runewidth.NewCondition()
	cond.EastAsianWidth = opts != nil && opts.EastAsianWidth
	cond.StrictEmojiNeutral = true
	return cond
}
