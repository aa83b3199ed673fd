// Package markup converts between block markup (HTML annotated with
// <!-- wp:name {attrs} --> delimiter comments) and the post block model.
package markup

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/eykd/redvelvet-go/internal/post"
)

var (
	// delimiterRE matches the fixed head of a block delimiter comment. The optional
	// attributes and the closing "-->" or "/-->" are scanned separately.
	delimiterRE = regexp.MustCompile(`<!--\s+(/)?wp:([a-z][a-z0-9_-]*/)?([a-z][a-z0-9_-]*)\s+`)
	// attrsEndRE matches the end of a delimiter that carries attributes.
	attrsEndRE = regexp.MustCompile(`\}\s+(/)?-->`)
	// bareEndRE matches the end of a delimiter without attributes.
	bareEndRE = regexp.MustCompile(`^(/)?-->`)
)

// Node is a parsed block. Freeform HTML found between blocks is returned as a
// Node with an empty Name.
type Node struct {
	Name      string          // normalized, e.g. "core/paragraph"; "" for freeform HTML
	Attrs     json.RawMessage // attribute object verbatim; nil when absent
	Inner     []*Node         // nested blocks in source order
	InnerHTML string          // HTML between the delimiters with nested blocks cut out
	Source    string          // the complete segment, delimiters included
	Offset    int             // byte offset of Source in the input
	Void      bool            // written as a single <!-- wp:name /--> comment
}

type tokenKind int

const (
	tokenOpen tokenKind = iota
	tokenClose
	tokenVoid
)

type token struct {
	kind       tokenKind
	name       string
	attrs      json.RawMessage
	start, end int
}

// Parse splits src into its top-level blocks. It scans delimiter comments
// linearly and never interprets the HTML between them. A closer without an
// opener, a closer naming a different block than the innermost open one, an
// opener that is never closed, and attributes that are not a JSON object all
// fail with post.ErrMalformedDocument.
func Parse(src string) ([]*Node, error) {
	type frame struct {
		node    *Node
		html    strings.Builder
		lastPos int
	}

	var (
		top     []*Node
		stack   []*frame
		lastTop int
		pos     int
	)

	addTopFreeform := func(end int) {
		if seg := src[lastTop:end]; strings.TrimSpace(seg) != "" {
			top = append(top, &Node{InnerHTML: seg, Source: seg, Offset: lastTop})
		}
	}

	// attach adds a finished node to the innermost open block or to the top level.
	attach := func(n *Node, end int) {
		if len(stack) == 0 {
			top = append(top, n)
			lastTop = end
			return
		}
		parent := stack[len(stack)-1]
		parent.node.Inner = append(parent.node.Inner, n)
		parent.lastPos = end
	}

	for {
		tok, ok, err := nextToken(src, pos)
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		pos = tok.end

		if tok.kind != tokenClose {
			if len(stack) == 0 {
				addTopFreeform(tok.start)
			} else {
				parent := stack[len(stack)-1]
				parent.html.WriteString(src[parent.lastPos:tok.start])
			}
		}

		switch tok.kind {
		case tokenVoid:
			n := &Node{Name: tok.name, Attrs: tok.attrs, Source: src[tok.start:tok.end], Offset: tok.start, Void: true}
			attach(n, tok.end)
		case tokenOpen:
			stack = append(stack, &frame{
				node:    &Node{Name: tok.name, Attrs: tok.attrs, Offset: tok.start},
				lastPos: tok.end,
			})
		case tokenClose:
			if len(stack) == 0 {
				return nil, post.MalformedAt(tok.start, "closing delimiter for %q has no opener", tok.name)
			}
			f := stack[len(stack)-1]
			if f.node.Name != tok.name {
				return nil, post.MalformedAt(tok.start, "closing delimiter for %q does not match open block %q", tok.name, f.node.Name)
			}
			f.html.WriteString(src[f.lastPos:tok.start])
			f.node.InnerHTML = f.html.String()
			f.node.Source = src[f.node.Offset:tok.end]
			stack = stack[:len(stack)-1]
			attach(f.node, tok.end)
		}
	}

	if len(stack) > 0 {
		f := stack[len(stack)-1]
		return nil, post.MalformedAt(f.node.Offset, "block %q is never closed", f.node.Name)
	}
	addTopFreeform(len(src))
	return top, nil
}

// nextToken finds the first block delimiter at or after pos. HTML comments that
// merely look similar are skipped.
func nextToken(src string, pos int) (token, bool, error) {
	for pos < len(src) {
		loc := delimiterRE.FindStringSubmatchIndex(src[pos:])
		if loc == nil {
			return token{}, false, nil
		}
		start, headEnd := pos+loc[0], pos+loc[1]
		tok := token{
			kind:  tokenOpen,
			name:  normalizeName(submatch(src[pos:], loc, 2), submatch(src[pos:], loc, 3)),
			start: start,
		}
		closer := loc[2] >= 0

		rest := src[headEnd:]
		switch {
		case strings.HasPrefix(rest, "{"):
			end := attrsEndRE.FindStringSubmatchIndex(rest)
			if end == nil {
				return token{}, false, post.MalformedAt(start, "delimiter for %q has unterminated attributes", tok.name)
			}
			attrs := rest[:end[0]+1]
			if !json.Valid([]byte(attrs)) {
				return token{}, false, post.MalformedAt(start, "attributes of %q are not valid JSON", tok.name)
			}
			tok.attrs = json.RawMessage(attrs)
			tok.end = headEnd + end[1]
			if end[2] >= 0 {
				tok.kind = tokenVoid
			}
		default:
			end := bareEndRE.FindStringSubmatchIndex(rest)
			if end == nil {
				// Not a delimiter after all; keep scanning past this comment opener.
				pos = start + len("<!--")
				continue
			}
			tok.end = headEnd + end[1]
			if end[2] >= 0 {
				tok.kind = tokenVoid
			}
		}

		if closer {
			if tok.kind == tokenVoid {
				return token{}, false, post.MalformedAt(start, "closing delimiter for %q cannot be void", tok.name)
			}
			tok.kind = tokenClose
			tok.attrs = nil
		}
		return tok, true, nil
	}
	return token{}, false, nil
}

func submatch(s string, loc []int, group int) string {
	if loc[2*group] < 0 {
		return ""
	}
	return s[loc[2*group]:loc[2*group+1]]
}

// normalizeName applies the implicit "core/" namespace.
func normalizeName(namespace, name string) string {
	if namespace == "" {
		namespace = "core/"
	}
	return namespace + name
}

// shortName is the inverse of normalizeName as written by the encoder.
func shortName(name string) string {
	return strings.TrimPrefix(name, "core/")
}
