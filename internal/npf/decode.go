// Package npf converts between NPF JSON documents and the post block model.
package npf

import (
	"bytes"
	"encoding/json"
	"slices"

	"fortio.org/safecast"
	"github.com/tidwall/gjson"

	"github.com/eykd/redvelvet-go/internal/post"
)

// NPF content item types.
const (
	TypeText  = "text"
	TypeImage = "image"
	TypeAudio = "audio"
	// TypeMarkup carries a block markup segment that has no NPF equivalent.
	TypeMarkup = "wp-block"
)

// Decode parses an NPF document into a post.Document. Unknown content item types
// are kept verbatim as post.KindUnknown blocks and reported as warnings.
// The returned error wraps post.ErrMalformedDocument or post.ErrRangeOutOfBounds.
func Decode(src []byte) (*post.Document, []post.Diagnostic, error) {
	if !gjson.ValidBytes(src) {
		return nil, nil, post.Malformed(-1, "document is not valid JSON")
	}
	root := gjson.ParseBytes(src)
	if !root.IsObject() {
		return nil, nil, post.Malformed(-1, "document is not a JSON object")
	}

	content := root.Get("content")
	if !content.Exists() {
		return nil, nil, post.Malformed(-1, "content is missing")
	}
	if !content.IsArray() {
		return nil, nil, post.Malformed(-1, "content is not a list")
	}

	doc := &post.Document{
		Layout:  rawField(root, "layout", DefaultLayout),
		Trail:   rawField(root, "trail", DefaultTrail),
		Version: rawField(root, "version", DefaultVersion),
	}

	var diags []post.Diagnostic
	for i, item := range content.Array() {
		b, d, err := decodeItem(i, item)
		if err != nil {
			return nil, nil, err
		}
		diags = append(diags, d...)
		doc.Blocks = append(doc.Blocks, b)
	}

	if err := post.Validate(doc); err != nil {
		return nil, nil, err
	}
	return doc, diags, nil
}

// rawField returns the verbatim bytes of root[name], or nil when absent or
// byte-identical to the default Encode would write anyway.
func rawField(root gjson.Result, name, def string) json.RawMessage {
	r := root.Get(name)
	if !r.Exists() || r.Raw == def {
		return nil
	}
	return json.RawMessage(r.Raw)
}

func decodeItem(i int, item gjson.Result) (post.Block, []post.Diagnostic, error) {
	if !item.IsObject() {
		return post.Block{}, nil, post.Malformed(i, "content item is not an object")
	}
	typ := item.Get("type")
	if typ.Type != gjson.String {
		return post.Block{}, nil, post.Malformed(i, "content item has no string type")
	}

	switch typ.Str {
	case TypeText:
		b, diags, err := decodeText(i, item)
		b.Extra = extraFields(item, textKeys)
		return b, diags, err
	case TypeImage:
		b, err := decodeImage(i, item)
		b.Extra = extraFields(item, imageKeys)
		return b, nil, err
	case TypeAudio:
		b, err := decodeAudio(i, item)
		keys := audioKeys
		if !plainPoster(item.Get("poster")) {
			keys = audioKeys[:len(audioKeys)-1]
		}
		b.Extra = extraFields(item, keys)
		return b, nil, err
	case TypeMarkup:
		markup, err := stringField(i, item, "markup", true)
		if err != nil {
			return post.Block{}, nil, err
		}
		return post.Block{Kind: post.KindUnknown, Markup: markup}, nil, nil
	}

	b := post.Block{Kind: post.KindUnknown, Raw: json.RawMessage(item.Raw)}
	return b, []post.Diagnostic{post.Warning(post.CodeUnknownBlock, i, "unknown content type %q preserved", typ.Str)}, nil
}

func decodeText(i int, item gjson.Result) (post.Block, []post.Diagnostic, error) {
	var diags []post.Diagnostic

	text, err := stringField(i, item, "text", true)
	if err != nil {
		return post.Block{}, nil, err
	}
	subtype, err := stringField(i, item, "subtype", false)
	if err != nil {
		return post.Block{}, nil, err
	}
	b := post.Text(text, post.Subtype(subtype))
	if !b.Subtype.Known() {
		diags = append(diags, post.Warning(post.CodeUnknownSubtype, i, "unknown subtype %q preserved", subtype))
	}

	formatting := item.Get("formatting")
	if !formatting.Exists() || formatting.Type == gjson.Null {
		return b, diags, nil
	}
	if !formatting.IsArray() {
		return post.Block{}, nil, post.Malformed(i, "formatting is not a list")
	}
	for _, f := range formatting.Array() {
		if !f.IsObject() {
			return post.Block{}, nil, post.Malformed(i, "formatting entry is not an object")
		}
		style := f.Get("type")
		if style.Type != gjson.String {
			return post.Block{}, nil, post.Malformed(i, "formatting entry has no string type")
		}
		start, err := intField(i, f, "start", true)
		if err != nil {
			return post.Block{}, nil, err
		}
		end, err := intField(i, f, "end", true)
		if err != nil {
			return post.Block{}, nil, err
		}
		r := post.InlineRange{Style: post.Style(style.Str), Start: start, End: end, Extra: extraFields(f, formatKeys)}
		if post.StylePriority(r.Style) > 1 {
			diags = append(diags, post.Warning(post.CodeUntaggedStyle, i, "formatting style %q has no markup tag", style.Str))
		}
		b.Formatting = append(b.Formatting, r)
	}
	return b, diags, nil
}

func decodeImage(i int, item gjson.Result) (post.Block, error) {
	url, err := stringField(i, item, "url", true)
	if err != nil {
		return post.Block{}, err
	}
	width, err := intField(i, item, "width", false)
	if err != nil {
		return post.Block{}, err
	}
	height, err := intField(i, item, "height", false)
	if err != nil {
		return post.Block{}, err
	}
	return post.Block{Kind: post.KindImage, Image: &post.Image{URL: url, Width: width, Height: height}}, nil
}

func decodeAudio(i int, item gjson.Result) (post.Block, error) {
	a := &post.Audio{}
	for _, f := range []struct {
		name string
		dst  *string
	}{
		{"url", &a.URL},
		{"title", &a.Title},
		{"artist", &a.Artist},
		{"album", &a.Album},
	} {
		v, err := stringField(i, item, f.name, false)
		if err != nil {
			return post.Block{}, err
		}
		*f.dst = v
	}
	if url := item.Get("poster.0.url"); url.Type == gjson.String {
		a.Poster = url.Str
	}
	return post.Block{Kind: post.KindAudio, Audio: a}, nil
}

// Keys each content item type maps onto the model. The poster key of audio
// items is last so a poster of another shape can be kept as an extra field.
var (
	textKeys   = []string{"type", "text", "subtype", "formatting"}
	formatKeys = []string{"type", "start", "end"}
	imageKeys  = []string{"type", "url", "width", "height"}
	audioKeys  = []string{"type", "url", "title", "artist", "album", "poster"}
)

// plainPoster reports whether poster is absent or exactly [{"url": string}],
// the only shape the model holds.
func plainPoster(poster gjson.Result) bool {
	if !poster.Exists() {
		return true
	}
	entries := poster.Array()
	if !poster.IsArray() || len(entries) != 1 || !entries[0].IsObject() {
		return false
	}
	fields := entries[0].Map()
	return len(fields) == 1 && fields["url"].Type == gjson.String
}

// extraFields returns the members of obj not named in known as a compact JSON
// object, or nil when there are none.
func extraFields(obj gjson.Result, known []string) json.RawMessage {
	var buf bytes.Buffer
	obj.ForEach(func(key, value gjson.Result) bool {
		if slices.Contains(known, key.Str) {
			return true
		}
		if buf.Len() == 0 {
			buf.WriteByte('{')
		} else {
			buf.WriteByte(',')
		}
		buf.WriteString(key.Raw)
		buf.WriteByte(':')
		buf.WriteString(value.Raw)
		return true
	})
	if buf.Len() == 0 {
		return nil
	}
	buf.WriteByte('}')
	return json.RawMessage(buf.Bytes())
}

// stringField reads item[path] as a string. Absent or null optional fields
// yield "".
func stringField(i int, item gjson.Result, path string, required bool) (string, error) {
	r := item.Get(path)
	if !r.Exists() || r.Type == gjson.Null {
		if required {
			return "", post.Malformed(i, "%s is missing", path)
		}
		return "", nil
	}
	if r.Type != gjson.String {
		return "", post.Malformed(i, "%s is not a string", path)
	}
	return r.Str, nil
}

// intField reads item[path] as an integral number that fits in an int. Absent
// or null optional fields yield 0.
func intField(i int, item gjson.Result, path string, required bool) (int, error) {
	r := item.Get(path)
	if !r.Exists() || r.Type == gjson.Null {
		if required {
			return 0, post.Malformed(i, "%s is missing", path)
		}
		return 0, nil
	}
	if r.Type != gjson.Number {
		return 0, post.Malformed(i, "%s is not a number", path)
	}
	n, err := safecast.Convert[int](r.Num)
	if err != nil {
		return 0, post.Malformed(i, "%s is not an integer: %v", path, err)
	}
	return n, nil
}
