// Package fixture loads conversion corpora: aligned lists of NPF posts and the
// block markup each one is expected to convert to.
package fixture

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// ErrInvalidCorpus reports a corpus missing npf_posts or html_blocks, or with
// lists of different lengths.
var ErrInvalidCorpus = errors.New("invalid corpus")

// Corpus is the on-disk corpus format. npf_posts holds NPF documents as JSON
// values; html_blocks holds the matching markup strings at the same indexes.
type Corpus struct {
	NPFPosts   []json.RawMessage `json:"npf_posts"`
	HTMLBlocks []string          `json:"html_blocks"`
}

// Pair is one corpus entry.
type Pair struct {
	Index  int
	NPF    []byte
	Markup string
}

// Load decodes and validates a corpus from r.
func Load(r io.Reader) (*Corpus, error) {
	var raw struct {
		NPFPosts   *[]json.RawMessage `json:"npf_posts"`
		HTMLBlocks *[]string          `json:"html_blocks"`
	}
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCorpus, err)
	}
	if raw.NPFPosts == nil || raw.HTMLBlocks == nil {
		return nil, fmt.Errorf("%w: npf_posts and html_blocks are required", ErrInvalidCorpus)
	}
	c := &Corpus{NPFPosts: *raw.NPFPosts, HTMLBlocks: *raw.HTMLBlocks}
	if len(c.NPFPosts) != len(c.HTMLBlocks) {
		return nil, fmt.Errorf("%w: %d npf_posts but %d html_blocks", ErrInvalidCorpus, len(c.NPFPosts), len(c.HTMLBlocks))
	}
	return c, nil
}

// Pairs returns the corpus entries in order.
func (c *Corpus) Pairs() []Pair {
	pairs := make([]Pair, len(c.NPFPosts))
	for i := range c.NPFPosts {
		pairs[i] = Pair{Index: i, NPF: c.NPFPosts[i], Markup: c.HTMLBlocks[i]}
	}
	return pairs
}

// NPFInputs returns the NPF side of every pair, for batch conversion.
func (c *Corpus) NPFInputs() [][]byte {
	out := make([][]byte, len(c.NPFPosts))
	for i, p := range c.NPFPosts {
		out[i] = p
	}
	return out
}

// MarkupInputs returns the markup side of every pair, for batch conversion.
func (c *Corpus) MarkupInputs() [][]byte {
	out := make([][]byte, len(c.HTMLBlocks))
	for i, m := range c.HTMLBlocks {
		out[i] = []byte(m)
	}
	return out
}
