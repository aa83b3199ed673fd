package markup

import (
	"html"
	"regexp"
	"slices"
	"strings"

	"github.com/eykd/redvelvet-go/internal/post"
)

// tagRE matches a single HTML start, end or self-closing tag.
var tagRE = regexp.MustCompile(`^<(/?)([a-zA-Z][a-zA-Z0-9]*)\b[^>]*?(/?)>`)

// inlineStyles maps inline tag names to the style they record.
var inlineStyles = map[string]post.Style{
	"strong": post.StyleBold,
	"b":      post.StyleBold,
	"em":     post.StyleItalic,
	"i":      post.StyleItalic,
}

// styleTags is the tag the encoder writes for each style.
var styleTags = map[post.Style]string{
	post.StyleBold:   "strong",
	post.StyleItalic: "em",
}

var textEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

type openStyle struct {
	style post.Style
	start int
}

// pendingRange is a range whose closing tag has been seen at the current
// offset. It is final once more text arrives, unless the same style is
// reopened first after an enclosing tag also closed here.
type pendingRange struct {
	post.InlineRange
	forced bool
}

// inlineDecoder strips tags from an HTML fragment, recording <strong>/<em>
// spans as inline ranges over the stripped text.
type inlineDecoder struct {
	text    strings.Builder
	n       int // code points written to text
	open    []openStyle
	pending []pendingRange
	done    []post.InlineRange
}

// decodeInline returns the text of fragment with entities decoded, <br> turned
// into '\n' and every other tag removed, plus the bold and italic ranges the
// tags covered, in canonical order.
func decodeInline(fragment string) (string, []post.InlineRange) {
	var d inlineDecoder
	for len(fragment) > 0 {
		i := strings.IndexByte(fragment, '<')
		if i < 0 {
			d.write(html.UnescapeString(fragment))
			break
		}
		if i > 0 {
			d.write(html.UnescapeString(fragment[:i]))
			fragment = fragment[i:]
		}
		if strings.HasPrefix(fragment, "<!--") {
			end := strings.Index(fragment, "-->")
			if end < 0 {
				break
			}
			fragment = fragment[end+len("-->"):]
			continue
		}
		m := tagRE.FindStringSubmatch(fragment)
		if m == nil {
			d.write("<")
			fragment = fragment[1:]
			continue
		}
		fragment = fragment[len(m[0]):]
		name := strings.ToLower(m[2])
		switch {
		case name == "br":
			d.write("\n")
		case m[1] == "/":
			if s, ok := inlineStyles[name]; ok {
				d.closeStyle(s)
			}
		case m[3] == "/":
			// self-closing non-br tags carry no text
		default:
			if s, ok := inlineStyles[name]; ok {
				d.openStyle(s)
			}
		}
	}
	return d.finish()
}

func (d *inlineDecoder) write(s string) {
	if s == "" {
		return
	}
	d.flush()
	d.text.WriteString(s)
	d.n += post.RuneLen(s)
}

// flush finalizes every pending range.
func (d *inlineDecoder) flush() {
	for _, p := range d.pending {
		d.done = append(d.done, p.InlineRange)
	}
	d.pending = d.pending[:0]
}

func (d *inlineDecoder) openStyle(s post.Style) {
	for i := len(d.pending) - 1; i >= 0; i-- {
		p := d.pending[i]
		if p.forced && p.Style == s {
			d.pending = slices.Delete(d.pending, i, i+1)
			d.open = append(d.open, openStyle{style: s, start: p.Start})
			return
		}
	}
	d.open = append(d.open, openStyle{style: s, start: d.n})
}

func (d *inlineDecoder) closeStyle(s post.Style) {
	idx := -1
	for i := len(d.open) - 1; i >= 0; i-- {
		if d.open[i].style == s {
			idx = i
			break
		}
	}
	if idx < 0 {
		return
	}
	o := d.open[idx]
	d.open = slices.Delete(d.open, idx, idx+1)

	// Anything already closed at this offset was nested inside this tag and
	// was only closed to let this one close.
	for i := range d.pending {
		d.pending[i].forced = true
	}
	if o.start < d.n {
		d.pending = append(d.pending, pendingRange{InlineRange: post.InlineRange{Style: s, Start: o.start, End: d.n}})
	}
}

func (d *inlineDecoder) finish() (string, []post.InlineRange) {
	d.flush()
	for _, o := range d.open {
		if o.start < d.n {
			d.done = append(d.done, post.InlineRange{Style: o.style, Start: o.start, End: d.n})
		}
	}
	return d.text.String(), post.SortRanges(d.done)
}

// renderInline writes text as HTML with ranges rendered as nested tags. Lines
// are joined with <br>; ranges are clipped to each line first.
func renderInline(text string, ranges []post.InlineRange) string {
	var tagged []post.InlineRange
	for _, r := range ranges {
		if _, ok := styleTags[r.Style]; ok {
			tagged = append(tagged, r)
		}
	}

	var sb strings.Builder
	for i, line := range post.SplitLines(text, tagged) {
		if i > 0 {
			sb.WriteString("<br>")
		}
		renderLine(&sb, line.Text, line.Ranges)
	}
	return sb.String()
}

// renderLine emits the minimal correctly nested tag sequence for rs over text.
// Open tags form a stack keyed by range. When a range ends, every tag above it
// is closed too and the ranges that are still active are reopened. Ranges
// becoming active together open outer to inner: by style priority, then longer
// first, then input order.
func renderLine(sb *strings.Builder, text string, rs []post.InlineRange) {
	runes := []rune(text)
	points := post.Boundaries(append(slices.Clone(rs), post.InlineRange{Start: 0, End: len(runes)}))

	var stack []int
	for k, p := range points {
		lowest := slices.IndexFunc(stack, func(idx int) bool { return rs[idx].End == p })
		var opening []int
		if lowest >= 0 {
			for j := len(stack) - 1; j >= lowest; j-- {
				idx := stack[j]
				sb.WriteString("</" + styleTags[rs[idx].Style] + ">")
				if rs[idx].End != p {
					opening = append(opening, idx)
				}
			}
			stack = stack[:lowest]
		}
		for idx, r := range rs {
			if r.Start == p {
				opening = append(opening, idx)
			}
		}
		slices.SortFunc(opening, func(a, b int) int {
			if c := post.CompareStyles(rs[a].Style, rs[b].Style); c != 0 {
				return c
			}
			if rs[a].End != rs[b].End {
				return rs[b].End - rs[a].End
			}
			return a - b
		})
		for _, idx := range opening {
			sb.WriteString("<" + styleTags[rs[idx].Style] + ">")
			stack = append(stack, idx)
		}
		if k+1 < len(points) {
			sb.WriteString(textEscaper.Replace(string(runes[p:points[k+1]])))
		}
	}
}
