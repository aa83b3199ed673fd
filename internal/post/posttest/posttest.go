// Package posttest generates random block model documents for round-trip tests.
package posttest

import (
	"math/rand/v2"
	"strings"

	"github.com/eykd/redvelvet-go/internal/post"
)

// Options shapes the generated documents.
type Options struct {
	// Markup restricts documents to what block markup states exactly: known
	// subtypes, bold and italic only, no NPF extra fields, no envelope, and
	// ranges that never cross a line break and never overlap or touch another
	// range of the same style.
	Markup bool
}

var (
	alphabet       = []rune("abcxyz ABC  &<>-é日🙂")
	npfOnlyRunes   = []rune("\"\\\t/")
	markupSubtypes = []post.Subtype{
		post.SubtypeNone, post.SubtypeHeading1, post.SubtypeHeading2, post.SubtypeQuote,
		post.SubtypeChat, post.SubtypeQuirky, post.SubtypeIndented,
		post.SubtypeOrderedListItem, post.SubtypeUnorderedListItem,
	}
	extraStyles = []post.Style{"link", "small", "color"}
)

// Document returns a valid document with up to eight blocks.
func Document(rng *rand.Rand, opts Options) *post.Document {
	doc := &post.Document{}
	for range rng.IntN(9) {
		doc.Blocks = append(doc.Blocks, block(rng, opts))
	}
	if !opts.Markup && rng.IntN(3) == 0 {
		doc.Layout = []byte(`[{"type":"rows","display":[{"blocks":[0]}]}]`)
		doc.Version = []byte(`3`)
	}
	return doc
}

func block(rng *rand.Rand, opts Options) post.Block {
	switch n := rng.IntN(10); {
	case n == 0:
		b := post.Block{Kind: post.KindImage, Image: &post.Image{
			URL:    "https://x.test/" + text(rng, opts, 6, false),
			Width:  rng.IntN(2000),
			Height: rng.IntN(2000),
		}}
		if !opts.Markup && rng.IntN(2) == 0 {
			b.Extra = []byte(`{"alt_text":"a cat"}`)
		}
		return b
	case n == 1:
		return post.Block{Kind: post.KindAudio, Audio: &post.Audio{
			URL:    "https://x.test/a.mp3",
			Title:  text(rng, opts, 8, false),
			Artist: text(rng, opts, 8, false),
			Poster: "https://x.test/p.jpg",
		}}
	case n == 2:
		return post.Block{Kind: post.KindUnknown, Raw: []byte(`{"type":"poll","question":"` + text(rng, Options{Markup: true}, 12, false) + `"}`)}
	case n == 3:
		return post.Block{Kind: post.KindUnknown, Markup: `<!-- wp:spacer {"height":"20px"} /-->`}
	}

	subtype := markupSubtypes[rng.IntN(len(markupSubtypes))]
	if !opts.Markup && rng.IntN(8) == 0 {
		subtype = "fancy"
	}
	s := text(rng, opts, 24, true)
	b := post.Text(s, subtype)
	if opts.Markup {
		b.Formatting = post.SortRanges(lineRanges(rng, s))
	} else {
		b.Formatting = anyRanges(rng, post.RuneLen(s))
		if rng.IntN(4) == 0 {
			b.Extra = []byte(`{"indent_level":1}`)
		}
	}
	return b
}

// text returns up to n random code points, with line breaks when lines is set.
func text(rng *rand.Rand, opts Options, n int, lines bool) string {
	runes := alphabet
	if !opts.Markup {
		runes = append(append([]rune{}, alphabet...), npfOnlyRunes...)
	}
	var sb strings.Builder
	for range rng.IntN(n + 1) {
		if lines && rng.IntN(8) == 0 {
			sb.WriteByte('\n')
			continue
		}
		sb.WriteRune(runes[rng.IntN(len(runes))])
	}
	return sb.String()
}

// anyRanges returns up to four ranges of any style, free to overlap.
func anyRanges(rng *rand.Rand, n int) []post.InlineRange {
	if n == 0 {
		return nil
	}
	var out []post.InlineRange
	for range rng.IntN(5) {
		start := rng.IntN(n)
		r := post.InlineRange{Start: start, End: start + 1 + rng.IntN(n-start)}
		switch rng.IntN(4) {
		case 0:
			r.Style = post.StyleBold
		case 1:
			r.Style = post.StyleItalic
		default:
			r.Style = extraStyles[rng.IntN(len(extraStyles))]
			if r.Style == "link" {
				r.Extra = []byte(`{"url":"https://x.test/l"}`)
			}
		}
		out = append(out, r)
	}
	return out
}

// lineRanges returns bold and italic ranges kept inside single lines, with at
// least one code point between ranges of the same style.
func lineRanges(rng *rand.Rand, s string) []post.InlineRange {
	var out []post.InlineRange
	for _, line := range post.SplitLines(s, nil) {
		n := post.RuneLen(line.Text)
		for _, style := range []post.Style{post.StyleBold, post.StyleItalic} {
			for pos := 0; pos < n && rng.IntN(3) > 0; {
				start := pos + rng.IntN(n-pos)
				end := start + 1 + rng.IntN(n-start)
				out = append(out, post.InlineRange{Style: style, Start: line.Offset + start, End: line.Offset + end})
				pos = end + 1
			}
		}
	}
	return out
}
