package main

import (
	"unicode"

	"golang.org/x/text/width"
)

// glyph is one terminal cell: a base rune plus any combining marks drawn over it.
type glyph struct {
	r     rune
	comb  []rune
	width int
}

func runeWidth(r rune) int {
	if unicode.In(r, unicode.Mn, unicode.Me, unicode.Cf) {
		return 0
	}
	switch width.LookupRune(r).Kind() {
	case width.EastAsianWide, width.EastAsianFullwidth:
		return 2
	}
	return 1
}

// glyphs splits s into terminal cells. Thai tone marks and other combining runes
// attach to the preceding base rune.
func glyphs(s string) []glyph {
	var out []glyph
	for _, r := range s {
		w := runeWidth(r)
		if w == 0 {
			if len(out) > 0 {
				out[len(out)-1].comb = append(out[len(out)-1].comb, r)
			}
			continue
		}
		out = append(out, glyph{r: r, width: w})
	}
	return out
}

func displayWidth(s string) int {
	n := 0
	for _, g := range glyphs(s) {
		n += g.width
	}
	return n
}

// fitLabel truncates s to at most limit columns, marking the cut with an ellipsis.
func fitLabel(s string, limit int) []glyph {
	gs := glyphs(s)
	total := 0
	for _, g := range gs {
		total += g.width
	}
	if total <= limit {
		return gs
	}
	if limit <= 0 {
		return nil
	}
	out := make([]glyph, 0, limit)
	used := 0
	for _, g := range gs {
		if used+g.width > limit-1 {
			break
		}
		out = append(out, g)
		used += g.width
	}
	return append(out, glyph{r: '…', width: 1})
}

func glyphString(gs []glyph) string {
	var b []rune
	for _, g := range gs {
		b = append(b, g.r)
		b = append(b, g.comb...)
	}
	return string(b)
}
