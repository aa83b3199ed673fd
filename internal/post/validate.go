package post

import "unicode/utf8"

// Validate checks that every inline range of every text block satisfies
// 0 <= Start < End <= RuneLen(Text). It returns a *Error wrapping
// ErrRangeOutOfBounds for the first violation, or nil.
func Validate(doc *Document) error {
	if doc == nil {
		return Malformed(-1, "nil document")
	}
	for i := range doc.Blocks {
		if err := ValidateBlock(i, doc.Blocks[i]); err != nil {
			return err
		}
	}
	return nil
}

// ValidateBlock checks the ranges of a single block; index is used for error reporting.
func ValidateBlock(index int, b Block) error {
	if len(b.Formatting) == 0 {
		return nil
	}
	if b.Kind != KindText {
		return Malformed(index, "%s block carries formatting", b.Kind)
	}
	n := utf8.RuneCountInString(b.Text)
	for _, r := range b.Formatting {
		if r.Start < 0 || r.Start >= r.End || r.End > n {
			return OutOfBounds(index, "%s range [%d,%d) invalid for text of length %d", r.Style, r.Start, r.End, n)
		}
	}
	return nil
}
