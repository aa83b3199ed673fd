package markup

import (
	"encoding/json"
	"html"
	"regexp"
	"strconv"
	"strings"

	"fortio.org/safecast"
	"github.com/tidwall/gjson"

	"github.com/eykd/redvelvet-go/internal/post"
)

// Block names this package reads and writes.
const (
	NameParagraph = "core/paragraph"
	NameHeading   = "core/heading"
	NameQuote     = "core/quote"
	NamePullquote = "core/pullquote"
	NameList      = "core/list"
	NameListItem  = "core/list-item"
	NameImage     = "core/image"
	NameAudio     = "core/audio"
	NameTumblrImg = "tumblr/image"
	NameImageSet  = "tumblr/image-set"
	// NameNPF wraps an NPF content item that has no markup equivalent.
	NameNPF = "redvelvet/npf"
)

var (
	paragraphRE = regexp.MustCompile(`(?is)<p\b[^>]*>(.*?)</p\s*>`)
	headingRE   = regexp.MustCompile(`(?is)<h[1-6]\b[^>]*>(.*?)</h[1-6]\s*>`)
	listItemRE  = regexp.MustCompile(`(?is)<li\b[^>]*>(.*?)</li\s*>`)
	imgSrcRE    = regexp.MustCompile(`(?is)<img\b[^>]*\bsrc="([^"]*)"`)
	audioSrcRE  = regexp.MustCompile(`(?is)<audio\b[^>]*\bsrc="([^"]*)"`)

	// containerRE matches the tags the encoder writes around block text.
	containerRE = regexp.MustCompile(`(?i)</?(?:blockquote|figure|ul|ol)\b[^>]*>`)
)

// Decode parses block markup into a post.Document. Blocks outside the
// recognized vocabulary, and HTML found between blocks, are kept verbatim as
// post.KindUnknown blocks and reported as warnings.
func Decode(src string) (*post.Document, []post.Diagnostic, error) {
	nodes, err := Parse(src)
	if err != nil {
		return nil, nil, err
	}

	d := &decoder{doc: &post.Document{}}
	for _, n := range nodes {
		if err := d.node(n); err != nil {
			return nil, nil, err
		}
	}
	if err := post.Validate(d.doc); err != nil {
		return nil, nil, err
	}
	return d.doc, d.diags, nil
}

type decoder struct {
	doc   *post.Document
	diags []post.Diagnostic
}

func (d *decoder) next() int { return len(d.doc.Blocks) }

func (d *decoder) add(b ...post.Block) { d.doc.Blocks = append(d.doc.Blocks, b...) }

func (d *decoder) warn(code, format string, args ...any) {
	d.diags = append(d.diags, post.Warning(code, d.next(), format, args...))
}

// unknown keeps n byte-for-byte.
func (d *decoder) unknown(n *Node) {
	if n.Name == "" {
		d.warn(post.CodeFreeformHTML, "freeform HTML preserved")
	} else {
		d.warn(post.CodeUnknownBlock, "block %q preserved", n.Name)
	}
	d.add(post.Block{Kind: post.KindUnknown, Markup: n.Source})
}

func (d *decoder) node(n *Node) error {
	attrs := gjson.Parse(string(n.Attrs))
	if len(n.Attrs) > 0 && !attrs.IsObject() {
		return post.MalformedAt(n.Offset, "attributes of %q are not an object", n.Name)
	}

	switch n.Name {
	case NameParagraph:
		if len(n.Inner) > 0 {
			break
		}
		d.checkFirst(paragraphRE, n)
		text, rs := decodeInline(firstMatch(paragraphRE, n.InnerHTML))
		d.text(post.Text(text, d.classSubtype(attrs, post.SubtypeNone), rs...))
		return nil

	case NameHeading:
		if len(n.Inner) > 0 {
			break
		}
		subtype := post.SubtypeHeading2
		if level := attrs.Get("level"); level.Type == gjson.Number && level.Num == 1 {
			subtype = post.SubtypeHeading1
		}
		d.checkFirst(headingRE, n)
		text, rs := decodeInline(firstMatch(headingRE, n.InnerHTML))
		d.add(post.Text(text, subtype, rs...))
		return nil

	case NameQuote:
		var paragraphs []string
		for _, in := range n.Inner {
			if in.Name != NameParagraph || len(in.Inner) > 0 {
				paragraphs = nil
				break
			}
			paragraphs = append(paragraphs, firstMatch(paragraphRE, in.InnerHTML))
		}
		if len(n.Inner) > 0 && paragraphs == nil {
			break
		}
		for _, in := range n.Inner {
			d.checkFirst(paragraphRE, in)
		}
		d.checkAll(paragraphRE, n)
		paragraphs = append(paragraphs, allMatches(paragraphRE, n.InnerHTML)...)
		text, rs := joinParagraphs(paragraphs)
		d.text(post.Text(text, d.classSubtype(attrs, post.SubtypeQuote), rs...))
		return nil

	case NamePullquote:
		if len(n.Inner) > 0 {
			break
		}
		d.checkAll(paragraphRE, n)
		text, rs := joinParagraphs(allMatches(paragraphRE, n.InnerHTML))
		d.add(post.Text(text, post.SubtypeIndented, rs...))
		return nil

	case NameList:
		blocks, ok := listItems(n, attrs)
		if !ok || len(blocks) == 0 {
			break
		}
		if len(n.Inner) == 0 {
			d.checkAll(listItemRE, n)
		}
		for _, in := range n.Inner {
			d.checkFirst(listItemRE, in)
		}
		d.add(blocks...)
		return nil

	case NameTumblrImg:
		images, ok := tumblrImages(attrs)
		if !ok || len(images) == 0 {
			break
		}
		d.add(images...)
		return nil

	case NameImageSet:
		var images []post.Block
		for _, in := range n.Inner {
			if in.Name != NameTumblrImg {
				images = nil
				break
			}
			bs, ok := tumblrImages(gjson.Parse(string(in.Attrs)))
			if !ok || len(bs) == 0 {
				images = nil
				break
			}
			images = append(images, bs...)
		}
		if images == nil {
			break
		}
		d.add(images...)
		return nil

	case NameImage:
		img := &post.Image{URL: attrs.Get("url").String()}
		if img.URL == "" {
			img.URL = srcAttr(imgSrcRE, n.InnerHTML)
		}
		var wok, hok bool
		img.Width, wok = attrInt(attrs, "width")
		img.Height, hok = attrInt(attrs, "height")
		if !wok || !hok {
			break
		}
		d.add(post.Block{Kind: post.KindImage, Image: img})
		return nil

	case NameAudio:
		a := &post.Audio{
			URL:    attrs.Get("mediaURL").String(),
			Title:  attrs.Get("mediaTitle").String(),
			Artist: attrs.Get("mediaArtist").String(),
			Album:  attrs.Get("mediaAlbum").String(),
			Poster: attrs.Get("poster.url").String(),
		}
		if a.URL == "" {
			a.URL = srcAttr(audioSrcRE, n.InnerHTML)
		}
		d.add(post.Block{Kind: post.KindAudio, Audio: a})
		return nil

	case NameNPF:
		if !n.Void || len(n.Attrs) == 0 {
			break
		}
		d.add(post.Block{Kind: post.KindUnknown, Raw: json.RawMessage(unescapeAttrs(string(n.Attrs)))})
		return nil
	}

	d.unknown(n)
	return nil
}

// text adds b, warning when its subtype came from an unrecognized class name.
func (d *decoder) text(b post.Block) {
	if !b.Subtype.Known() {
		d.warn(post.CodeUnknownSubtype, "class name %q preserved as subtype", b.Subtype)
	}
	d.add(b)
}

// classSubtype maps the className attribute to a subtype, falling back to def.
func (d *decoder) classSubtype(attrs gjson.Result, def post.Subtype) post.Subtype {
	if c := attrs.Get("className").String(); c != "" {
		return post.Subtype(c)
	}
	return def
}

// listItems decodes a list block into one text block per item. It reports false
// when the list holds anything but flat list items.
func listItems(n *Node, attrs gjson.Result) ([]post.Block, bool) {
	subtype := post.SubtypeUnorderedListItem
	if attrs.Get("ordered").Bool() {
		subtype = post.SubtypeOrderedListItem
	}

	var items []string
	for _, in := range n.Inner {
		if in.Name != NameListItem || len(in.Inner) > 0 {
			return nil, false
		}
		items = append(items, firstMatch(listItemRE, in.InnerHTML))
	}
	if len(n.Inner) == 0 {
		items = allMatches(listItemRE, n.InnerHTML)
	}

	blocks := make([]post.Block, 0, len(items))
	for _, item := range items {
		text, rs := decodeInline(item)
		blocks = append(blocks, post.Text(text, subtype, rs...))
	}
	return blocks, true
}

// tumblrImages returns one image per media entry. Entry dimensions win over the
// block's display dimensions. It reports false when a dimension is not an
// integer.
func tumblrImages(attrs gjson.Result) ([]post.Block, bool) {
	width, wok := attrInt(attrs, "displayWidth")
	height, hok := attrInt(attrs, "displayHeight")
	if !wok || !hok {
		return nil, false
	}

	var images []post.Block
	for i, m := range attrs.Get("media").Array() {
		img := &post.Image{URL: m.Get("url").String(), Width: width, Height: height}
		prefix := "media." + strconv.Itoa(i) + "."
		if m.Get("width").Exists() {
			if img.Width, wok = attrInt(attrs, prefix+"width"); !wok {
				return nil, false
			}
		}
		if m.Get("height").Exists() {
			if img.Height, hok = attrInt(attrs, prefix+"height"); !hok {
				return nil, false
			}
		}
		images = append(images, post.Block{Kind: post.KindImage, Image: img})
	}
	return images, true
}

// attrInt reads an integral attribute. Absent attributes read as 0. It reports
// false for anything else that is not an integer, such as "300px".
func attrInt(attrs gjson.Result, path string) (int, bool) {
	r := attrs.Get(path)
	if !r.Exists() {
		return 0, true
	}
	if r.Type != gjson.Number {
		return 0, false
	}
	v, err := safecast.Convert[int](r.Num)
	return v, err == nil
}

// checkFirst warns when n holds more than the first match of re, which is all
// the decoder reads.
func (d *decoder) checkFirst(re *regexp.Regexp, n *Node) {
	locs := re.FindAllStringIndex(n.InnerHTML, -1)
	if len(locs) == 0 {
		return
	}
	rest := n.InnerHTML[:locs[0][0]] + n.InnerHTML[locs[0][1]:]
	if len(locs) > 1 || strings.TrimSpace(rest) != "" {
		d.dropped(n)
	}
}

// checkAll warns when n holds text or tags outside the matches of re and the
// container tags.
func (d *decoder) checkAll(re *regexp.Regexp, n *Node) {
	rest := containerRE.ReplaceAllString(re.ReplaceAllString(n.InnerHTML, ""), "")
	if strings.TrimSpace(rest) != "" {
		d.dropped(n)
	}
}

func (d *decoder) dropped(n *Node) {
	d.warn(post.CodeDroppedContent, "content of %q outside its text element dropped", n.Name)
}

// joinParagraphs decodes each paragraph and joins them with '\n'.
func joinParagraphs(paragraphs []string) (string, []post.InlineRange) {
	var (
		sb     strings.Builder
		ranges []post.InlineRange
		offset int
	)
	for i, p := range paragraphs {
		if i > 0 {
			sb.WriteByte('\n')
			offset++
		}
		text, rs := decodeInline(p)
		sb.WriteString(text)
		ranges = append(ranges, post.ShiftRanges(rs, offset)...)
		offset += post.RuneLen(text)
	}
	return sb.String(), post.SortRanges(ranges)
}

// firstMatch returns the first capture of re in s, or s trimmed when re does
// not match.
func firstMatch(re *regexp.Regexp, s string) string {
	if m := re.FindStringSubmatch(s); m != nil {
		return m[1]
	}
	return strings.TrimSpace(s)
}

// srcAttr returns the first capture of re in s, or "".
func srcAttr(re *regexp.Regexp, s string) string {
	if m := re.FindStringSubmatch(s); m != nil {
		return html.UnescapeString(m[1])
	}
	return ""
}

func allMatches(re *regexp.Regexp, s string) []string {
	var out []string
	for _, m := range re.FindAllStringSubmatch(s, -1) {
		out = append(out, m[1])
	}
	return out
}

// unescapeAttrs reverses the escapes the encoder applies to attribute JSON:
// -, <, > and & become the literal characters again.
// Escaped backslashes are left alone.
func unescapeAttrs(s string) string {
	if !strings.Contains(s, `\u00`) {
		return s
	}
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' || i+1 >= len(s) {
			sb.WriteByte(c)
			continue
		}
		if s[i+1] != 'u' || i+6 > len(s) {
			sb.WriteString(s[i : i+2])
			i++
			continue
		}
		switch strings.ToLower(s[i+2 : i+6]) {
		case "002d":
			sb.WriteByte('-')
		case "003c":
			sb.WriteByte('<')
		case "003e":
			sb.WriteByte('>')
		case "0026":
			sb.WriteByte('&')
		default:
			sb.WriteString(s[i : i+6])
		}
		i += 5
	}
	return sb.String()
}
