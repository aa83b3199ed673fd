package npf

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/eykd/redvelvet-go/internal/post"
)

// Envelope defaults written when a document carries no value of its own.
const (
	DefaultLayout  = `[]`
	DefaultTrail   = `[]`
	DefaultVersion = `2`
)

type textItem struct {
	Type       string            `json:"type"`
	Text       string            `json:"text"`
	Subtype    string            `json:"subtype,omitempty"`
	Formatting []json.RawMessage `json:"formatting,omitempty"`
}

type formatItem struct {
	Type  string `json:"type"`
	Start int    `json:"start"`
	End   int    `json:"end"`
}

type imageItem struct {
	Type   string `json:"type"`
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

type audioItem struct {
	Type   string       `json:"type"`
	URL    string       `json:"url"`
	Title  string       `json:"title"`
	Artist string       `json:"artist"`
	Album  string       `json:"album"`
	Poster []posterItem `json:"poster,omitempty"`
}

type posterItem struct {
	URL string `json:"url"`
}

type markupItem struct {
	Type   string `json:"type"`
	Markup string `json:"markup"`
}

// Encode serializes doc as an NPF document. Keys appear in a fixed order and the
// envelope fields layout, trail and version are copied byte-for-byte from doc
// when present, so equal documents always encode to identical bytes.
func Encode(doc *post.Document) ([]byte, error) {
	if err := post.Validate(doc); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.WriteString(`{"content":[`)
	for i, b := range doc.Blocks {
		if i > 0 {
			buf.WriteByte(',')
		}
		item, err := encodeBlock(i, b)
		if err != nil {
			return nil, err
		}
		buf.Write(item)
	}
	buf.WriteString(`]}`)

	out := buf.Bytes()
	for _, f := range []struct {
		path string
		raw  json.RawMessage
		def  string
	}{
		{"layout", doc.Layout, DefaultLayout},
		{"trail", doc.Trail, DefaultTrail},
		{"version", doc.Version, DefaultVersion},
	} {
		raw := []byte(f.raw)
		if len(raw) == 0 {
			raw = []byte(f.def)
		} else if !json.Valid(raw) {
			return nil, post.Malformed(-1, "%s is not valid JSON", f.path)
		}
		var err error
		if out, err = sjson.SetRawBytes(out, f.path, raw); err != nil {
			return nil, fmt.Errorf("setting %s: %w", f.path, err)
		}
	}
	return out, nil
}

func encodeBlock(i int, b post.Block) ([]byte, error) {
	switch b.Kind {
	case post.KindText:
		item := textItem{Type: TypeText, Text: b.Text, Subtype: string(b.Subtype)}
		for _, r := range b.Formatting {
			f, err := marshal(formatItem{Type: string(r.Style), Start: r.Start, End: r.End})
			if err != nil {
				return nil, err
			}
			if f, err = withExtra(i, f, r.Extra); err != nil {
				return nil, err
			}
			item.Formatting = append(item.Formatting, f)
		}
		return marshalItem(i, item, b.Extra)
	case post.KindImage:
		if b.Image == nil {
			return nil, post.Malformed(i, "image block has no image")
		}
		return marshalItem(i, imageItem{Type: TypeImage, URL: b.Image.URL, Width: b.Image.Width, Height: b.Image.Height}, b.Extra)
	case post.KindAudio:
		if b.Audio == nil {
			return nil, post.Malformed(i, "audio block has no audio")
		}
		a := b.Audio
		item := audioItem{
			Type:   TypeAudio,
			URL:    a.URL,
			Title:  a.Title,
			Artist: a.Artist,
			Album:  a.Album,
			Poster: []posterItem{{URL: a.Poster}},
		}
		if gjson.GetBytes(b.Extra, "poster").Exists() {
			item.Poster = nil
		}
		return marshalItem(i, item, b.Extra)
	case post.KindUnknown:
		switch {
		case len(b.Raw) > 0:
			if !json.Valid(b.Raw) {
				return nil, post.Malformed(i, "unknown block payload is not valid JSON")
			}
			return b.Raw, nil
		case b.Markup != "":
			return marshal(markupItem{Type: TypeMarkup, Markup: b.Markup})
		}
		return nil, post.Malformed(i, "unknown block has no payload")
	}
	return nil, post.Malformed(i, "block kind %q cannot be encoded", b.Kind)
}

func marshalItem(i int, v any, extra json.RawMessage) ([]byte, error) {
	item, err := marshal(v)
	if err != nil {
		return nil, err
	}
	return withExtra(i, item, extra)
}

// withExtra appends the members of the JSON object extra to the JSON object item.
func withExtra(i int, item []byte, extra json.RawMessage) ([]byte, error) {
	if len(extra) == 0 {
		return item, nil
	}
	if !gjson.ValidBytes(extra) || !gjson.ParseBytes(extra).IsObject() {
		return nil, post.Malformed(i, "extra fields are not a JSON object")
	}
	members := bytes.TrimSpace(extra)
	members = bytes.TrimSpace(members[1 : len(members)-1])
	if len(members) == 0 {
		return item, nil
	}
	out := append(item[:len(item)-1:len(item)-1], ',')
	out = append(out, members...)
	return append(out, '}'), nil
}

// marshal encodes v without HTML escaping and without the trailing newline.
func marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("encoding content item: %w", err)
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}
