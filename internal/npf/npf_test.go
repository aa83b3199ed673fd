package npf_test

import (
	"encoding/json"
	"errors"
	"math/rand/v2"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/eykd/redvelvet-go/internal/npf"
	"github.com/eykd/redvelvet-go/internal/post"
	"github.com/eykd/redvelvet-go/internal/post/posttest"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want []post.Block
	}{
		{
			name: "paragraph",
			src:  `{"content":[{"type":"text","text":"this is a paragraph"}],"layout":[],"trail":[],"version":2}`,
			want: []post.Block{post.Text("this is a paragraph", post.SubtypeNone)},
		},
		{
			name: "formatted paragraph",
			src:  `{"content":[{"type":"text","text":"supercalifragilisticexpialidocious","formatting":[{"type":"bold","start":0,"end":9},{"type":"italic","start":9,"end":34},{"type":"bold","start":9,"end":20}]}]}`,
			want: []post.Block{post.Text("supercalifragilisticexpialidocious", post.SubtypeNone, post.Bold(0, 9), post.Italic(9, 34), post.Bold(9, 20))},
		},
		{
			name: "chat",
			src:  `{"content":[{"type":"text","text":"John: How are you?\nJane: Good and you?","subtype":"chat","formatting":[{"type":"bold","start":0,"end":5},{"type":"bold","start":19,"end":24}]}]}`,
			want: []post.Block{post.Text("John: How are you?\nJane: Good and you?", post.SubtypeChat, post.Bold(0, 5), post.Bold(19, 24))},
		},
		{
			name: "headings keep order",
			src:  `{"content":[{"type":"text","text":"b","subtype":"heading2"},{"type":"text","text":"a","subtype":"heading1"}]}`,
			want: []post.Block{post.Text("b", post.SubtypeHeading2), post.Text("a", post.SubtypeHeading1)},
		},
		{
			name: "image",
			src:  `{"content":[{"type":"image","url":"https:\/\/64.media.tumblr.com\/a.webp","width":1024,"height":768}]}`,
			want: []post.Block{{Kind: post.KindImage, Image: &post.Image{URL: "https://64.media.tumblr.com/a.webp", Width: 1024, Height: 768}}},
		},
		{
			name: "audio",
			src:  `{"content":[{"type":"audio","url":"https://example.com/audio.mp3","title":"Song Title","artist":"Artist Name","album":"Album Name","poster":[{"url":"https://example.com/cover.jpg"}]}]}`,
			want: []post.Block{{Kind: post.KindAudio, Audio: &post.Audio{
				URL: "https://example.com/audio.mp3", Title: "Song Title", Artist: "Artist Name",
				Album: "Album Name", Poster: "https://example.com/cover.jpg",
			}}},
		},
		{
			name: "unknown type kept verbatim",
			src:  `{"content":[{"type":"video", "provider" : "youtube"}]}`,
			want: []post.Block{{Kind: post.KindUnknown, Raw: json.RawMessage(`{"type":"video", "provider" : "youtube"}`)}},
		},
		{
			name: "markup carrier",
			src:  `{"content":[{"type":"wp-block","markup":"<!-- wp:gallery --><figure></figure><!-- /wp:gallery -->"}]}`,
			want: []post.Block{{Kind: post.KindUnknown, Markup: "<!-- wp:gallery --><figure></figure><!-- /wp:gallery -->"}},
		},
		{
			name: "null formatting is absent",
			src:  `{"content":[{"type":"text","text":"x","formatting":null}]}`,
			want: []post.Block{post.Text("x", post.SubtypeNone)},
		},
		{
			name: "null subtype is absent",
			src:  `{"content":[{"type":"text","text":"x","subtype":null}]}`,
			want: []post.Block{post.Text("x", post.SubtypeNone)},
		},
		{
			name: "fields outside the model are kept",
			src:  `{"content":[{"type":"text","indent_level":1,"text":"abc","formatting":[{"type":"link","start":0,"end":3,"url":"https://x.test"}]},{"type":"image","url":"u","alt_text":"a cat","width":1,"height":2}]}`,
			want: []post.Block{
				{
					Kind:       post.KindText,
					Text:       "abc",
					Formatting: []post.InlineRange{{Style: "link", Start: 0, End: 3, Extra: json.RawMessage(`{"url":"https://x.test"}`)}},
					Extra:      json.RawMessage(`{"indent_level":1}`),
				},
				{Kind: post.KindImage, Image: &post.Image{URL: "u", Width: 1, Height: 2}, Extra: json.RawMessage(`{"alt_text":"a cat"}`)},
			},
		},
		{
			name: "audio poster of another shape is kept whole",
			src:  `{"content":[{"type":"audio","url":"a","poster":[{"url":"p","width":10},{"url":"q"}]}]}`,
			want: []post.Block{{
				Kind:  post.KindAudio,
				Audio: &post.Audio{URL: "a", Poster: "p"},
				Extra: json.RawMessage(`{"poster":[{"url":"p","width":10},{"url":"q"}]}`),
			}},
		},
		{
			name: "empty content",
			src:  `{"content":[]}`,
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, _, err := npf.Decode([]byte(tt.src))
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			if diff := cmp.Diff(tt.want, doc.Blocks, cmpopts.EquateEmpty()); diff != "" {
				t.Errorf("Decode() blocks mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		wantErr error
	}{
		{"not JSON", `{"content":`, post.ErrMalformedDocument},
		{"not an object", `[1,2]`, post.ErrMalformedDocument},
		{"content missing", `{"layout":[]}`, post.ErrMalformedDocument},
		{"content not a list", `{"content":{"type":"text"}}`, post.ErrMalformedDocument},
		{"item not an object", `{"content":["text"]}`, post.ErrMalformedDocument},
		{"item without type", `{"content":[{"text":"x"}]}`, post.ErrMalformedDocument},
		{"type not a string", `{"content":[{"type":1}]}`, post.ErrMalformedDocument},
		{"text missing", `{"content":[{"type":"text"}]}`, post.ErrMalformedDocument},
		{"text not a string", `{"content":[{"type":"text","text":5}]}`, post.ErrMalformedDocument},
		{"subtype not a string", `{"content":[{"type":"text","text":"x","subtype":true}]}`, post.ErrMalformedDocument},
		{"formatting not a list", `{"content":[{"type":"text","text":"x","formatting":{}}]}`, post.ErrMalformedDocument},
		{"formatting without start", `{"content":[{"type":"text","text":"abc","formatting":[{"type":"bold","end":2}]}]}`, post.ErrMalformedDocument},
		{"formatting with string end", `{"content":[{"type":"text","text":"abc","formatting":[{"type":"bold","start":0,"end":"2"}]}]}`, post.ErrMalformedDocument},
		{"formatting with fractional end", `{"content":[{"type":"text","text":"abc","formatting":[{"type":"bold","start":0,"end":1.5}]}]}`, post.ErrMalformedDocument},
		{"formatting with huge end", `{"content":[{"type":"text","text":"abc","formatting":[{"type":"bold","start":0,"end":1e30}]}]}`, post.ErrMalformedDocument},
		{"formatting with null start", `{"content":[{"type":"text","text":"abc","formatting":[{"type":"bold","start":null,"end":1}]}]}`, post.ErrMalformedDocument},
		{"null text", `{"content":[{"type":"text","text":null}]}`, post.ErrMalformedDocument},
		{"formatting without type", `{"content":[{"type":"text","text":"abc","formatting":[{"start":0,"end":1}]}]}`, post.ErrMalformedDocument},
		{"range past text", `{"content":[{"type":"text","text":"abc","formatting":[{"type":"bold","start":0,"end":4}]}]}`, post.ErrRangeOutOfBounds},
		{"empty range", `{"content":[{"type":"text","text":"abc","formatting":[{"type":"bold","start":1,"end":1}]}]}`, post.ErrRangeOutOfBounds},
		{"image without url", `{"content":[{"type":"image","width":1}]}`, post.ErrMalformedDocument},
		{"markup carrier without markup", `{"content":[{"type":"wp-block"}]}`, post.ErrMalformedDocument},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, _, err := npf.Decode([]byte(tt.src))
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Decode() error = %v, want %v", err, tt.wantErr)
			}
			if doc != nil {
				t.Error("Decode() returned a document alongside an error")
			}
		})
	}
}

func TestDecode_Diagnostics(t *testing.T) {
	src := `{"content":[{"type":"video"},{"type":"text","text":"x","subtype":"fancy"},{"type":"text","text":"ab","formatting":[{"type":"small","start":0,"end":1}]}]}`
	_, diags, err := npf.Decode([]byte(src))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	want := []string{post.CodeUnknownBlock, post.CodeUnknownSubtype, post.CodeUntaggedStyle}
	if len(diags) != len(want) {
		t.Fatalf("len(diags) = %d, want %d: %+v", len(diags), len(want), diags)
	}
	for i, code := range want {
		if diags[i].Code != code || diags[i].Severity != "warning" {
			t.Errorf("diags[%d] = %+v, want warning %s", i, diags[i], code)
		}
		if diags[i].Location == nil || diags[i].Location.Block != i {
			t.Errorf("diags[%d].Location = %+v, want block %d", i, diags[i].Location, i)
		}
	}
}

func TestEncode(t *testing.T) {
	tests := []struct {
		name string
		doc  *post.Document
		want string
	}{
		{
			name: "paragraph",
			doc:  &post.Document{Blocks: []post.Block{post.Text("this is a paragraph", post.SubtypeNone)}},
			want: `{"content":[{"type":"text","text":"this is a paragraph"}],"layout":[],"trail":[],"version":2}`,
		},
		{
			name: "quote",
			doc:  &post.Document{Blocks: []post.Block{post.Text("THIS IS A BLOCKQUOTE", post.SubtypeQuote)}},
			want: `{"content":[{"type":"text","text":"THIS IS A BLOCKQUOTE","subtype":"quote"}],"layout":[],"trail":[],"version":2}`,
		},
		{
			name: "formatting keeps model order",
			doc: &post.Document{Blocks: []post.Block{
				post.Text("Supercalifragilisticexpialidocious", post.SubtypeNone, post.Bold(0, 9), post.Italic(9, 34), post.Bold(9, 20)),
			}},
			want: `{"content":[{"type":"text","text":"Supercalifragilisticexpialidocious","formatting":[{"type":"bold","start":0,"end":9},{"type":"italic","start":9,"end":34},{"type":"bold","start":9,"end":20}]}],"layout":[],"trail":[],"version":2}`,
		},
		{
			name: "no html escaping",
			doc:  &post.Document{Blocks: []post.Block{post.Text("a < b & c", post.SubtypeNone)}},
			want: `{"content":[{"type":"text","text":"a < b & c"}],"layout":[],"trail":[],"version":2}`,
		},
		{
			name: "image and audio",
			doc: &post.Document{Blocks: []post.Block{
				{Kind: post.KindImage, Image: &post.Image{URL: "https://x/a.webp", Width: 75, Height: 75}},
				{Kind: post.KindAudio, Audio: &post.Audio{URL: "https://x/a.mp3", Title: "T"}},
			}},
			want: `{"content":[{"type":"image","url":"https://x/a.webp","width":75,"height":75},{"type":"audio","url":"https://x/a.mp3","title":"T","artist":"","album":"","poster":[{"url":""}]}],"layout":[],"trail":[],"version":2}`,
		},
		{
			name: "unknown payloads",
			doc: &post.Document{Blocks: []post.Block{
				{Kind: post.KindUnknown, Raw: json.RawMessage(`{"type":"video", "provider" : "youtube"}`)},
				{Kind: post.KindUnknown, Markup: `<!-- wp:spacer /-->`},
			}},
			want: `{"content":[{"type":"video", "provider" : "youtube"},{"type":"wp-block","markup":"<!-- wp:spacer /-->"}],"layout":[],"trail":[],"version":2}`,
		},
		{
			name: "opaque envelope",
			doc: &post.Document{
				Blocks:  []post.Block{},
				Layout:  json.RawMessage(`[{"type":"rows","display":[{"blocks":[0]}]}]`),
				Trail:   json.RawMessage(`[ ]`),
				Version: json.RawMessage(`3`),
			},
			want: `{"content":[],"layout":[{"type":"rows","display":[{"blocks":[0]}]}],"trail":[ ],"version":3}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := npf.Encode(tt.doc)
			if err != nil {
				t.Fatalf("Encode() error = %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("Encode()\ngot:  %s\nwant: %s", got, tt.want)
			}
		})
	}
}

func TestEncode_Errors(t *testing.T) {
	tests := []struct {
		name    string
		block   post.Block
		wantErr error
	}{
		{"empty range", post.Text("abc", post.SubtypeNone, post.Bold(1, 1)), post.ErrRangeOutOfBounds},
		{"range past text", post.Text("abc", post.SubtypeNone, post.Italic(0, 9)), post.ErrRangeOutOfBounds},
		{"image without payload", post.Block{Kind: post.KindImage}, post.ErrMalformedDocument},
		{"unknown without payload", post.Block{Kind: post.KindUnknown}, post.ErrMalformedDocument},
		{"unknown with invalid JSON", post.Block{Kind: post.KindUnknown, Raw: json.RawMessage(`{`)}, post.ErrMalformedDocument},
		{"unset kind", post.Block{Text: "x"}, post.ErrMalformedDocument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := npf.Encode(&post.Document{Blocks: []post.Block{tt.block}})
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Encode() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestEncode_Deterministic(t *testing.T) {
	doc := &post.Document{Blocks: []post.Block{
		post.Text("John: hi\nJane: hey", post.SubtypeChat, post.Bold(0, 5), post.Bold(9, 14)),
		post.Text("title", post.SubtypeHeading1),
	}}
	first, err := npf.Encode(doc)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	for range 20 {
		again, err := npf.Encode(doc)
		if err != nil {
			t.Fatalf("Encode() error = %v", err)
		}
		if string(again) != string(first) {
			t.Fatalf("Encode() not deterministic\nfirst: %s\nagain: %s", first, again)
		}
	}
}

// TestRoundTrip_NPFFirst verifies Decode(Encode(D)) == D.
func TestRoundTrip_NPFFirst(t *testing.T) {
	docs := []*post.Document{
		{Blocks: []post.Block{post.Text("", post.SubtypeNone)}},
		{Blocks: []post.Block{
			post.Text("title", post.SubtypeHeading1),
			post.Text("paragraph", post.SubtypeNone),
			post.Text("quirky row 1\nquirky row 2", post.SubtypeQuirky),
			post.Text("chat: row 1\nchat: row 2", post.SubtypeChat, post.Bold(0, 5), post.Bold(12, 17)),
			post.Text("bullet", post.SubtypeUnorderedListItem),
			post.Text("fancy", post.Subtype("fancy")),
			post.Text("ünïcödé", post.SubtypeNone, post.Italic(0, 7)),
			{Kind: post.KindImage, Image: &post.Image{URL: "https://x/a.webp", Width: 10, Height: 20}},
			{Kind: post.KindAudio, Audio: &post.Audio{URL: "u", Title: "t", Artist: "a", Album: "b", Poster: "p"}},
			{Kind: post.KindUnknown, Raw: json.RawMessage(`{"type":"poll","answers":["a","b"]}`)},
			{Kind: post.KindUnknown, Markup: "<!-- wp:spacer /-->"},
		}},
		{
			Blocks:  []post.Block{post.Text("x", post.SubtypeNone)},
			Layout:  json.RawMessage(`[{"type":"ask","blocks":[0]}]`),
			Trail:   json.RawMessage(`[{"post":{"id":"1"}}]`),
			Version: json.RawMessage(`2.5`),
		},
	}

	for i, doc := range docs {
		enc, err := npf.Encode(doc)
		if err != nil {
			t.Fatalf("doc %d: Encode() error = %v", i, err)
		}
		got, _, err := npf.Decode(enc)
		if err != nil {
			t.Fatalf("doc %d: Decode() error = %v", i, err)
		}
		if diff := cmp.Diff(doc, got, cmpopts.EquateEmpty()); diff != "" {
			t.Errorf("doc %d: round trip mismatch (-want +got):\n%s", i, diff)
		}
	}
}

// TestRoundTrip_NPFFirstGenerated checks Decode(Encode(D)) == D over seeded
// random documents with overlapping ranges of any style, unknown subtypes,
// extra fields and opaque envelopes.
func TestRoundTrip_NPFFirstGenerated(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	for i := range 500 {
		doc := posttest.Document(rng, posttest.Options{})
		enc, err := npf.Encode(doc)
		if err != nil {
			t.Fatalf("doc %d: Encode() error = %v", i, err)
		}
		got, _, err := npf.Decode(enc)
		if err != nil {
			t.Fatalf("doc %d: Decode(%s) error = %v", i, enc, err)
		}
		if diff := cmp.Diff(doc, got, cmpopts.EquateEmpty()); diff != "" {
			t.Fatalf("doc %d: round trip mismatch for %s (-want +got):\n%s", i, enc, diff)
		}
	}
}

// TestRoundTrip_ExtraFields verifies that fields the model does not interpret
// survive a decode/encode cycle byte-for-byte.
func TestRoundTrip_ExtraFields(t *testing.T) {
	src := `{"content":[` +
		`{"type":"text","text":"abc","formatting":[{"type":"link","start":0,"end":3,"url":"https://x.test"}],"indent_level":1},` +
		`{"type":"image","url":"u","width":1,"height":2,"alt_text":"cat","media":[{"url":"u"}]},` +
		`{"type":"audio","url":"a","title":"","artist":"","album":"","poster":[{"url":"p","width":10}]}` +
		`],"layout":[],"trail":[],"version":2}`
	doc, _, err := npf.Decode([]byte(src))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	got, err := npf.Encode(doc)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	if string(got) != src {
		t.Errorf("round trip\ngot:  %s\nwant: %s", got, src)
	}
}

func TestEncode_ExtraNotAnObject(t *testing.T) {
	b := post.Text("x", post.SubtypeNone)
	b.Extra = json.RawMessage(`[1]`)
	if _, err := npf.Encode(&post.Document{Blocks: []post.Block{b}}); !errors.Is(err, post.ErrMalformedDocument) {
		t.Errorf("Encode() error = %v, want ErrMalformedDocument", err)
	}
}

// TestRoundTrip_EnvelopeBytes verifies layout, trail and version survive a
// decode/encode cycle byte-for-byte.
func TestRoundTrip_EnvelopeBytes(t *testing.T) {
	src := `{"content":[{"type":"text","text":"x"}],"layout":[ {"type" : "rows"} ],"trail":[],"version":2}`
	doc, _, err := npf.Decode([]byte(src))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	got, err := npf.Encode(doc)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	if string(got) != src {
		t.Errorf("round trip\ngot:  %s\nwant: %s", got, src)
	}
}
