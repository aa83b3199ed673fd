package markup

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"runtime"
	"slices"
	"strings"

	"github.com/tidwall/gjson"
	"golang.org/x/sync/errgroup"

	"github.com/eykd/redvelvet-go/internal/post"
)

// unit is a run of blocks that encodes to one top-level markup block: a single
// block, or consecutive list items of the same kind.
type unit struct {
	index  int // index of the first block in the document
	blocks []post.Block
}

func (u unit) list() bool { return u.blocks[0].Kind == post.KindText && u.blocks[0].Subtype.IsListItem() }

// units groups blocks into encoding units.
func units(blocks []post.Block) []unit {
	var out []unit
	for i, b := range blocks {
		if n := len(out); n > 0 && b.Kind == post.KindText && b.Subtype.IsListItem() {
			last := &out[n-1]
			if last.list() && last.blocks[0].Subtype == b.Subtype {
				last.blocks = append(last.blocks, b)
				continue
			}
		}
		out = append(out, unit{index: i, blocks: []post.Block{b}})
	}
	return out
}

// Encode renders doc as block markup. Blocks are written in order with no
// separator; equal documents always produce identical output.
func Encode(doc *post.Document) (string, error) {
	if err := post.Validate(doc); err != nil {
		return "", err
	}
	var sb strings.Builder
	for _, u := range units(doc.Blocks) {
		s, err := encodeUnit(u)
		if err != nil {
			return "", err
		}
		sb.WriteString(s)
	}
	return sb.String(), nil
}

// Dropped reports, one warning per block, the NPF fields of doc that Encode
// has no markup for: a block's extra fields and those of its bold and italic
// ranges. Other styles are not rendered at all and are reported when decoded.
func Dropped(doc *post.Document) []post.Diagnostic {
	var diags []post.Diagnostic
	for i, b := range doc.Blocks {
		keys := fieldNames(b.Extra)
		for _, r := range b.Formatting {
			if _, ok := styleTags[r.Style]; ok {
				keys = append(keys, fieldNames(r.Extra)...)
			}
		}
		if len(keys) > 0 {
			slices.Sort(keys)
			keys = slices.Compact(keys)
			diags = append(diags, post.Warning(post.CodeDroppedContent, i, "NPF fields %s have no markup equivalent", strings.Join(keys, ", ")))
		}
	}
	return diags
}

func fieldNames(extra json.RawMessage) []string {
	var keys []string
	gjson.ParseBytes(extra).ForEach(func(key, _ gjson.Result) bool {
		keys = append(keys, key.Str)
		return true
	})
	return keys
}

// EncodeConcurrent is Encode with units rendered by up to jobs goroutines.
// jobs < 1 means GOMAXPROCS. The output is identical to Encode.
func EncodeConcurrent(ctx context.Context, doc *post.Document, jobs int) (string, error) {
	if err := post.Validate(doc); err != nil {
		return "", err
	}
	if jobs < 1 {
		jobs = runtime.GOMAXPROCS(0)
	}

	us := units(doc.Blocks)
	out := make([]string, len(us))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)
	for i, u := range us {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			s, err := encodeUnit(u)
			if err != nil {
				return err
			}
			out[i] = s
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return "", err
	}
	return strings.Join(out, ""), nil
}

func encodeUnit(u unit) (string, error) {
	if u.list() {
		return encodeList(u.blocks)
	}
	return encodeBlock(u.index, u.blocks[0])
}

type headingAttrs struct {
	Level int `json:"level"`
}

type classAttrs struct {
	ClassName string `json:"className"`
}

type listAttrs struct {
	Ordered bool `json:"ordered"`
}

type mediaAttrs struct {
	Type string `json:"type"`
	URL  string `json:"url"`
}

type attributionAttrs struct {
	Type string `json:"type"`
	URL  string `json:"url"`
}

type tumblrImageAttrs struct {
	Media         []mediaAttrs       `json:"media"`
	Attribution   []attributionAttrs `json:"attribution"`
	AltText       string             `json:"altText"`
	File          json.RawMessage    `json:"file"`
	ColWidth      float64            `json:"colWidth"`
	DisplayWidth  int                `json:"displayWidth"`
	DisplayHeight int                `json:"displayHeight"`
}

type posterAttrs struct {
	URL string `json:"url"`
}

type audioAttrs struct {
	MediaURL    string      `json:"mediaURL"`
	MediaTitle  string      `json:"mediaTitle"`
	MediaArtist string      `json:"mediaArtist"`
	MediaAlbum  string      `json:"mediaAlbum"`
	Poster      posterAttrs `json:"poster"`
}

func encodeBlock(i int, b post.Block) (string, error) {
	switch b.Kind {
	case post.KindText:
		return encodeText(b)

	case post.KindImage:
		if b.Image == nil {
			return "", post.Malformed(i, "image block has no image")
		}
		img := b.Image
		return void(NameTumblrImg, tumblrImageAttrs{
			Media:         []mediaAttrs{{Type: "image", URL: img.URL}},
			Attribution:   []attributionAttrs{{}},
			File:          json.RawMessage(`[]`),
			ColWidth:      float64(img.Width) / 2,
			DisplayWidth:  img.Width,
			DisplayHeight: img.Height,
		})

	case post.KindAudio:
		if b.Audio == nil {
			return "", post.Malformed(i, "audio block has no audio")
		}
		a := b.Audio
		attrs := audioAttrs{
			MediaURL:    a.URL,
			MediaTitle:  a.Title,
			MediaArtist: a.Artist,
			MediaAlbum:  a.Album,
			Poster:      posterAttrs{URL: a.Poster},
		}
		inner := `<figure class="wp-block-audio"><audio controls src="` + html.EscapeString(a.URL) + `"></audio></figure>`
		return wrap(NameAudio, attrs, inner)

	case post.KindUnknown:
		switch {
		case b.Markup != "":
			return b.Markup, nil
		case len(b.Raw) > 0:
			attrs, err := rawAttrs(b.Raw)
			if err != nil {
				return "", post.Malformed(i, "unknown block payload: %v", err)
			}
			return "<!-- wp:" + shortName(NameNPF) + " " + attrs + " /-->", nil
		}
		return "", post.Malformed(i, "unknown block has no payload")
	}
	return "", post.Malformed(i, "block kind %q cannot be encoded", b.Kind)
}

func encodeText(b post.Block) (string, error) {
	inner := renderInline(b.Text, b.Formatting)

	switch b.Subtype {
	case post.SubtypeNone:
		return wrap(NameParagraph, nil, "<p>"+inner+"</p>")
	case post.SubtypeHeading1:
		return wrap(NameHeading, headingAttrs{Level: 1}, `<h1 class="wp-block-heading">`+inner+"</h1>")
	case post.SubtypeHeading2:
		return wrap(NameHeading, nil, `<h2 class="wp-block-heading">`+inner+"</h2>")
	case post.SubtypeQuote, post.SubtypeChat, post.SubtypeQuirky:
		var attrs any
		if b.Subtype != post.SubtypeQuote {
			attrs = classAttrs{ClassName: string(b.Subtype)}
		}
		p, err := wrap(NameParagraph, nil, "<p>"+inner+"</p>")
		if err != nil {
			return "", err
		}
		return wrap(NameQuote, attrs, `<blockquote class="wp-block-quote">`+p+"</blockquote>")
	case post.SubtypeIndented:
		return wrap(NamePullquote, nil, `<figure class="wp-block-pullquote"><blockquote><p>`+inner+"</p></blockquote></figure>")
	case post.SubtypeOrderedListItem, post.SubtypeUnorderedListItem:
		return encodeList([]post.Block{b})
	}

	// Subtypes without a rendering of their own ride on the paragraph class.
	class := string(b.Subtype)
	return wrap(NameParagraph, classAttrs{ClassName: class}, `<p class="`+html.EscapeString(class)+`">`+inner+"</p>")
}

// encodeList renders consecutive list items of one kind as a single list.
func encodeList(items []post.Block) (string, error) {
	var (
		attrs any
		tag   = "ul"
	)
	if items[0].Subtype == post.SubtypeOrderedListItem {
		attrs = listAttrs{Ordered: true}
		tag = "ol"
	}

	var sb strings.Builder
	sb.WriteString("<" + tag + ` class="wp-block-list">`)
	for _, item := range items {
		li, err := wrap(NameListItem, nil, "<li>"+renderInline(item.Text, item.Formatting)+"</li>")
		if err != nil {
			return "", err
		}
		sb.WriteString(li)
	}
	sb.WriteString("</" + tag + ">")
	return wrap(NameList, attrs, sb.String())
}

// wrap surrounds inner with the opening and closing delimiters of name.
func wrap(name string, attrs any, inner string) (string, error) {
	head, err := delimiter(name, attrs)
	if err != nil {
		return "", err
	}
	return "<!-- wp:" + head + " -->" + inner + "<!-- /wp:" + shortName(name) + " -->", nil
}

// void writes name as a self-closing delimiter.
func void(name string, attrs any) (string, error) {
	head, err := delimiter(name, attrs)
	if err != nil {
		return "", err
	}
	return "<!-- wp:" + head + " /-->", nil
}

func delimiter(name string, attrs any) (string, error) {
	if attrs == nil {
		return shortName(name), nil
	}
	s, err := attrJSON(attrs)
	if err != nil {
		return "", err
	}
	return shortName(name) + " " + s, nil
}

// attrJSON serializes block attributes so they cannot end the enclosing
// comment: <, > and & are escaped by encoding/json and "--" is escaped here.
func attrJSON(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encoding block attributes: %w", err)
	}
	return escapeDashes(string(b)), nil
}

// rawAttrs compacts an NPF item and escapes it like attrJSON.
func rawAttrs(raw json.RawMessage) (string, error) {
	var compact bytes.Buffer
	if err := json.Compact(&compact, raw); err != nil {
		return "", err
	}
	if compact.Len() == 0 || compact.Bytes()[0] != '{' {
		return "", fmt.Errorf("payload is not a JSON object")
	}
	var escaped bytes.Buffer
	json.HTMLEscape(&escaped, compact.Bytes())
	return escapeDashes(escaped.String()), nil
}

// escapeDashes rewrites "--", which can only appear inside JSON strings.
func escapeDashes(s string) string {
	return strings.ReplaceAll(s, "--", `\u002d\u002d`)
}
