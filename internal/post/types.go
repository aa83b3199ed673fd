// Package post defines the block model shared by the NPF and block markup codecs.
package post

import "encoding/json"

// Kind identifies what a Block holds. The set is open: values this package does
// not know are carried as KindUnknown so older readers never drop content.
type Kind string

const (
	// KindText is a run of text with an optional subtype and inline formatting.
	KindText Kind = "text"
	// KindImage is a single image reference.
	KindImage Kind = "image"
	// KindAudio is a single audio reference.
	KindAudio Kind = "audio"
	// KindUnknown is an opaque payload preserved for round-trip fidelity.
	KindUnknown Kind = "unknown"
)

// Subtype narrows how a text block is rendered. The empty subtype is a plain paragraph.
type Subtype string

const (
	SubtypeNone              Subtype = ""
	SubtypeHeading1          Subtype = "heading1"
	SubtypeHeading2          Subtype = "heading2"
	SubtypeQuote             Subtype = "quote"
	SubtypeChat              Subtype = "chat"
	SubtypeQuirky            Subtype = "quirky"
	SubtypeIndented          Subtype = "indented"
	SubtypeOrderedListItem   Subtype = "ordered-list-item"
	SubtypeUnorderedListItem Subtype = "unordered-list-item"
)

// Known reports whether s has a dedicated markup rendering.
func (s Subtype) Known() bool {
	switch s {
	case SubtypeNone, SubtypeHeading1, SubtypeHeading2, SubtypeQuote, SubtypeChat,
		SubtypeQuirky, SubtypeIndented, SubtypeOrderedListItem, SubtypeUnorderedListItem:
		return true
	}
	return false
}

// IsListItem reports whether s is one of the list item subtypes.
func (s Subtype) IsListItem() bool {
	return s == SubtypeOrderedListItem || s == SubtypeUnorderedListItem
}

// Style is an inline formatting style.
type Style string

const (
	StyleBold   Style = "bold"
	StyleItalic Style = "italic"
)

// InlineRange applies Style to the half-open code point span [Start, End) of a
// block's Text.
type InlineRange struct {
	Style Style
	Start int
	End   int

	// Extra holds the NPF formatting fields besides type, start and end (a
	// link's url, say) as a JSON object, or nil.
	Extra json.RawMessage
}

// Image is the payload of a KindImage block.
type Image struct {
	URL    string
	Width  int
	Height int
}

// Audio is the payload of a KindAudio block.
type Audio struct {
	URL    string
	Title  string
	Artist string
	Album  string
	Poster string // poster image URL; empty when absent
}

// Block is one entry of a Document.
type Block struct {
	Kind       Kind
	Subtype    Subtype       // text blocks only
	Text       string        // text blocks only; may contain '\n'
	Formatting []InlineRange // text blocks only
	Image      *Image        // KindImage only
	Audio      *Audio        // KindAudio only

	// Extra holds the fields of a known NPF content item that the model has no
	// place for, as a JSON object, or nil. Only the NPF codec reads it.
	Extra json.RawMessage

	// Opaque payloads of KindUnknown blocks. Raw holds an NPF content item
	// verbatim; Markup holds a block markup segment verbatim. At most one is set.
	Raw    json.RawMessage
	Markup string
}

// Document is a post: an ordered list of blocks plus the NPF envelope fields the
// converter carries without interpreting. A nil envelope field means "default".
type Document struct {
	Blocks  []Block
	Layout  json.RawMessage
	Trail   json.RawMessage
	Version json.RawMessage
}

// Text returns a text block.
func Text(text string, subtype Subtype, formatting ...InlineRange) Block {
	return Block{Kind: KindText, Subtype: subtype, Text: text, Formatting: formatting}
}

// Bold returns a bold range over [start, end).
func Bold(start, end int) InlineRange {
	return InlineRange{Style: StyleBold, Start: start, End: end}
}

// Italic returns an italic range over [start, end).
func Italic(start, end int) InlineRange {
	return InlineRange{Style: StyleItalic, Start: start, End: end}
}
