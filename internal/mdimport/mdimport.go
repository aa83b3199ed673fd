// Package mdimport builds a post.Document from CommonMark source so drafts
// written in Markdown can be converted to NPF or block markup.
package mdimport

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"

	"github.com/eykd/redvelvet-go/internal/post"
)

// Import parses src and maps its top-level Markdown blocks onto post blocks:
//
//	# heading          heading1 (level 1) or heading2 (deeper levels)
//	paragraph          paragraph
//	> quote            quote, paragraphs joined by '\n'
//	- item / 1. item   unordered-list-item / ordered-list-item, nested lists flattened
//	code block         indented
//	HTML block         unknown block carrying the HTML verbatim
//
// Emphasis becomes italic and strong emphasis bold. Other inline markup keeps
// its text and drops its formatting. A leading YAML frontmatter block
// contributes its title as a heading1 and its subtitle as a heading2.
func Import(src []byte) (*post.Document, error) {
	fm, body, _, err := ParseFrontmatter(src)
	if err != nil {
		return nil, err
	}
	root := goldmark.New().Parser().Parse(text.NewReader(body))

	im := &importer{src: body, doc: &post.Document{}}
	if fm.Title != "" {
		im.add(post.Text(fm.Title, post.SubtypeHeading1))
	}
	if fm.Subtitle != "" {
		im.add(post.Text(fm.Subtitle, post.SubtypeHeading2))
	}
	for n := root.FirstChild(); n != nil; n = n.NextSibling() {
		im.block(n)
	}
	if err := post.Validate(im.doc); err != nil {
		return nil, err
	}
	return im.doc, nil
}

type importer struct {
	src []byte
	doc *post.Document
}

func (im *importer) add(b post.Block) { im.doc.Blocks = append(im.doc.Blocks, b) }

func (im *importer) block(n ast.Node) {
	switch n := n.(type) {
	case *ast.Heading:
		subtype := post.SubtypeHeading2
		if n.Level == 1 {
			subtype = post.SubtypeHeading1
		}
		im.add(im.inline(n, subtype))

	case *ast.Paragraph, *ast.TextBlock:
		im.add(im.inline(n, post.SubtypeNone))

	case *ast.Blockquote:
		var parts []post.Block
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			parts = append(parts, im.inline(c, post.SubtypeQuote))
		}
		im.add(joinLines(parts, post.SubtypeQuote))

	case *ast.List:
		im.list(n)

	case *ast.FencedCodeBlock, *ast.CodeBlock:
		im.add(post.Text(strings.TrimSuffix(im.lines(n), "\n"), post.SubtypeIndented))

	case *ast.HTMLBlock:
		html := im.lines(n)
		if n.HasClosure() {
			html += string(n.ClosureLine.Value(im.src))
		}
		im.add(post.Block{Kind: post.KindUnknown, Markup: strings.TrimRight(html, "\n")})
	}
}

func (im *importer) list(l *ast.List) {
	subtype := post.SubtypeUnorderedListItem
	if l.IsOrdered() {
		subtype = post.SubtypeOrderedListItem
	}
	for item := l.FirstChild(); item != nil; item = item.NextSibling() {
		var parts []post.Block
		var nested []*ast.List
		for c := item.FirstChild(); c != nil; c = c.NextSibling() {
			if sub, ok := c.(*ast.List); ok {
				nested = append(nested, sub)
				continue
			}
			parts = append(parts, im.inline(c, subtype))
		}
		im.add(joinLines(parts, subtype))
		for _, sub := range nested {
			im.list(sub)
		}
	}
}

// lines returns the raw source lines of a block node.
func (im *importer) lines(n ast.Node) string {
	var sb strings.Builder
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		sb.Write(seg.Value(im.src))
	}
	return sb.String()
}

// inline flattens the inline children of n into a text block.
func (im *importer) inline(n ast.Node, subtype post.Subtype) post.Block {
	c := &collector{src: im.src}
	c.walk(n)
	return post.Text(c.sb.String(), subtype, post.SortRanges(c.ranges)...)
}

type collector struct {
	src    []byte
	sb     strings.Builder
	n      int
	ranges []post.InlineRange
}

func (c *collector) write(b []byte) {
	c.sb.Write(b)
	c.n += post.RuneLen(string(b))
}

func (c *collector) walk(n ast.Node) {
	for ch := n.FirstChild(); ch != nil; ch = ch.NextSibling() {
		switch ch := ch.(type) {
		case *ast.Text:
			v := util.UnescapePunctuations(ch.Segment.Value(c.src))
			v = util.ResolveNumericReferences(v)
			c.write(util.ResolveEntityNames(v))
			switch {
			case ch.HardLineBreak():
				c.write([]byte("\n"))
			case ch.SoftLineBreak():
				c.write([]byte(" "))
			}
		case *ast.String:
			c.write(ch.Value)
		case *ast.AutoLink:
			c.write(ch.Label(c.src))
		case *ast.RawHTML:
			// inline HTML carries no text
		case *ast.Emphasis:
			start := c.n
			c.walk(ch)
			if c.n > start {
				style := post.StyleItalic
				if ch.Level >= 2 {
					style = post.StyleBold
				}
				c.ranges = append(c.ranges, post.InlineRange{Style: style, Start: start, End: c.n})
			}
		default:
			c.walk(ch)
		}
	}
}

// joinLines merges several inline blocks into one block, separated by '\n'.
func joinLines(parts []post.Block, subtype post.Subtype) post.Block {
	var (
		sb     strings.Builder
		ranges []post.InlineRange
		offset int
	)
	for i, p := range parts {
		if i > 0 {
			sb.WriteByte('\n')
			offset++
		}
		sb.WriteString(p.Text)
		ranges = append(ranges, post.ShiftRanges(p.Formatting, offset)...)
		offset += post.RuneLen(p.Text)
	}
	return post.Text(sb.String(), subtype, post.SortRanges(ranges)...)
}
