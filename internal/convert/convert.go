// Package convert is the entry point for whole-document conversions between
// NPF JSON and block markup, singly or in batches.
package convert

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/eykd/redvelvet-go/internal/markup"
	"github.com/eykd/redvelvet-go/internal/npf"
	"github.com/eykd/redvelvet-go/internal/post"
)

// EncodeMarkup converts an NPF document to block markup.
func EncodeMarkup(npfJSON []byte) (string, []post.Diagnostic, error) {
	doc, diags, err := npf.Decode(npfJSON)
	if err != nil {
		return "", nil, fmt.Errorf("decoding NPF: %w", err)
	}
	out, err := markup.Encode(doc)
	if err != nil {
		return "", diags, fmt.Errorf("encoding markup: %w", err)
	}
	return out, append(diags, markup.Dropped(doc)...), nil
}

// EncodeMarkupConcurrent is EncodeMarkup with the document's blocks rendered by
// up to jobs goroutines.
func EncodeMarkupConcurrent(ctx context.Context, npfJSON []byte, jobs int) (string, []post.Diagnostic, error) {
	doc, diags, err := npf.Decode(npfJSON)
	if err != nil {
		return "", nil, fmt.Errorf("decoding NPF: %w", err)
	}
	out, err := markup.EncodeConcurrent(ctx, doc, jobs)
	if err != nil {
		return "", diags, fmt.Errorf("encoding markup: %w", err)
	}
	return out, append(diags, markup.Dropped(doc)...), nil
}

// DecodeMarkup converts block markup to an NPF document.
func DecodeMarkup(src string) ([]byte, []post.Diagnostic, error) {
	doc, diags, err := markup.Decode(src)
	if err != nil {
		return nil, nil, fmt.Errorf("decoding markup: %w", err)
	}
	out, err := npf.Encode(doc)
	if err != nil {
		return nil, diags, fmt.Errorf("encoding NPF: %w", err)
	}
	return out, diags, nil
}

// Direction selects which way Convert and Batch translate.
type Direction int

const (
	// ToMarkup converts NPF JSON to block markup.
	ToMarkup Direction = iota
	// ToNPF converts block markup to NPF JSON.
	ToNPF
)

func (d Direction) String() string {
	switch d {
	case ToMarkup:
		return "to-markup"
	case ToNPF:
		return "to-npf"
	}
	return fmt.Sprintf("Direction(%d)", int(d))
}

// Convert translates one document in direction d.
func Convert(d Direction, input []byte) ([]byte, []post.Diagnostic, error) {
	switch d {
	case ToMarkup:
		out, diags, err := EncodeMarkup(input)
		return []byte(out), diags, err
	case ToNPF:
		return DecodeMarkup(string(input))
	}
	return nil, nil, fmt.Errorf("unknown direction %v", d)
}

// Result is the outcome of converting one batch input.
type Result struct {
	Index       int
	Output      []byte
	Diagnostics []post.Diagnostic
	Err         error
}

// Batch converts every input in direction d using up to jobs goroutines
// (jobs < 1 means GOMAXPROCS). Results are returned in input order. A failed
// document records its error in its Result and does not stop the others;
// cancelling ctx marks every document not yet started with ctx.Err().
func Batch(ctx context.Context, d Direction, inputs [][]byte, jobs int) []Result {
	if jobs < 1 {
		jobs = runtime.GOMAXPROCS(0)
	}

	results := make([]Result, len(inputs))
	var g errgroup.Group
	g.SetLimit(jobs)
	for i, in := range inputs {
		g.Go(func() error {
			results[i].Index = i
			if err := ctx.Err(); err != nil {
				results[i].Err = err
				return nil
			}
			out, diags, err := Convert(d, in)
			results[i].Output = out
			results[i].Diagnostics = diags
			results[i].Err = err
			return nil
		})
	}
	_ = g.Wait()
	return results
}
