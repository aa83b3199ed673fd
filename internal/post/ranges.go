package post

import (
	"slices"
	"strings"
	"unicode/utf8"
)

// RuneLen returns the length of s in code points, the unit of InlineRange offsets.
func RuneLen(s string) int {
	return utf8.RuneCountInString(s)
}

// StylePriority orders styles from outermost to innermost when tags nest:
// bold, then italic, then every other style by name.
func StylePriority(s Style) int {
	switch s {
	case StyleBold:
		return 0
	case StyleItalic:
		return 1
	}
	return 2
}

// CompareStyles orders a before b by StylePriority, breaking ties by name.
func CompareStyles(a, b Style) int {
	if pa, pb := StylePriority(a), StylePriority(b); pa != pb {
		return pa - pb
	}
	return strings.Compare(string(a), string(b))
}

// SortRanges returns a copy of rs in canonical order: by Start ascending, then
// End descending, then style. Decoders that infer ranges from markup return them
// in this order.
func SortRanges(rs []InlineRange) []InlineRange {
	if len(rs) == 0 {
		return nil
	}
	out := slices.Clone(rs)
	slices.SortStableFunc(out, func(a, b InlineRange) int {
		if a.Start != b.Start {
			return a.Start - b.Start
		}
		if a.End != b.End {
			return b.End - a.End
		}
		return CompareStyles(a.Style, b.Style)
	})
	return out
}

// Boundaries returns the sorted, de-duplicated set of all Start and End offsets in rs.
func Boundaries(rs []InlineRange) []int {
	out := make([]int, 0, 2*len(rs))
	for _, r := range rs {
		out = append(out, r.Start, r.End)
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// Line is one '\n'-separated line of a block's text with the ranges that fall
// inside it, clipped and rebased to line-local offsets.
type Line struct {
	Text   string
	Offset int // code point offset of the line start within the block text
	Ranges []InlineRange
}

// SplitLines splits text on '\n' and clips rs to each line. A range spanning a
// newline is cut into one piece per line; pieces that become empty (a range
// covering only the newline itself) are dropped.
func SplitLines(text string, rs []InlineRange) []Line {
	parts := strings.Split(text, "\n")
	lines := make([]Line, len(parts))
	offset := 0
	for i, part := range parts {
		n := RuneLen(part)
		line := Line{Text: part, Offset: offset}
		for _, r := range rs {
			start, end := max(r.Start, offset), min(r.End, offset+n)
			if start < end {
				line.Ranges = append(line.Ranges, InlineRange{Style: r.Style, Start: start - offset, End: end - offset})
			}
		}
		lines[i] = line
		offset += n + 1
	}
	return lines
}

// ShiftRanges returns rs with every offset moved by delta.
func ShiftRanges(rs []InlineRange, delta int) []InlineRange {
	out := make([]InlineRange, len(rs))
	for i, r := range rs {
		r.Start += delta
		r.End += delta
		out[i] = r
	}
	return out
}
