package post

import (
	"errors"
	"fmt"
)

// Sentinel errors for the two failure classes. Every error returned by the codecs
// wraps exactly one of them.
var (
	ErrMalformedDocument = errors.New("malformed document")
	ErrRangeOutOfBounds  = errors.New("inline range out of bounds")
)

// Conversion errors (terminal for the document).
const (
	// CodeMalformedDocument is a structural violation: missing required field, unmatched delimiter, or wrong JSON type.
	CodeMalformedDocument = "RVE001"
	// CodeRangeOutOfBounds is an inline formatting range that is empty or exceeds its block's text.
	CodeRangeOutOfBounds = "RVE002"
	// CodeIOFailure is an input that could not be read or an output that could not be written.
	CodeIOFailure = "RVE003"
)

// Conversion warnings (conversion proceeds).
const (
	// CodeUnknownBlock is an unrecognized block preserved as an opaque payload.
	CodeUnknownBlock = "RVW001"
	// CodeUnknownSubtype is an unrecognized subtype preserved as-is.
	CodeUnknownSubtype = "RVW002"
	// CodeFreeformHTML is markup found outside any block delimiter, preserved as an opaque payload.
	CodeFreeformHTML = "RVW003"
	// CodeUntaggedStyle is a formatting style that has no markup tag and is not rendered.
	CodeUntaggedStyle = "RVW004"
	// CodeDroppedContent is content the target format cannot express, dropped from the output.
	CodeDroppedContent = "RVW005"
)

// Error is a conversion failure with its location.
type Error struct {
	Code   string // CodeMalformedDocument or CodeRangeOutOfBounds
	Block  int    // 0-based block index; -1 when not tied to a block
	Offset int    // 0-based byte offset in markup input; -1 when unknown
	Msg    string
}

func (e *Error) Error() string {
	var where string
	switch {
	case e.Block >= 0:
		where = fmt.Sprintf(" (block %d)", e.Block)
	case e.Offset >= 0:
		where = fmt.Sprintf(" (offset %d)", e.Offset)
	}
	return fmt.Sprintf("%v: %s%s", e.Unwrap(), e.Msg, where)
}

// Unwrap returns the sentinel matching e.Code.
func (e *Error) Unwrap() error {
	if e.Code == CodeRangeOutOfBounds {
		return ErrRangeOutOfBounds
	}
	return ErrMalformedDocument
}

// Malformed returns a MalformedDocument error for block index block (-1 for none).
func Malformed(block int, format string, args ...any) *Error {
	return &Error{Code: CodeMalformedDocument, Block: block, Offset: -1, Msg: fmt.Sprintf(format, args...)}
}

// MalformedAt returns a MalformedDocument error at a byte offset of markup input.
func MalformedAt(offset int, format string, args ...any) *Error {
	return &Error{Code: CodeMalformedDocument, Block: -1, Offset: offset, Msg: fmt.Sprintf(format, args...)}
}

// OutOfBounds returns a RangeOutOfBounds error for block index block.
func OutOfBounds(block int, format string, args ...any) *Error {
	return &Error{Code: CodeRangeOutOfBounds, Block: block, Offset: -1, Msg: fmt.Sprintf(format, args...)}
}

// Diagnostic is a structured warning emitted during a conversion.
type Diagnostic struct {
	Severity string    `json:"severity"` // "error" | "warning"
	Code     string    `json:"code"`
	Message  string    `json:"message"`
	Location *Location `json:"location,omitempty"`
}

// Location identifies where in the input a diagnostic applies.
type Location struct {
	Block  int `json:"block"`            // 0-based index in the decoded document
	Offset int `json:"offset,omitempty"` // byte offset in markup input, when known
}

// Warning returns a warning diagnostic for the given block.
func Warning(code string, block int, format string, args ...any) Diagnostic {
	return Diagnostic{
		Severity: "warning",
		Code:     code,
		Message:  fmt.Sprintf(format, args...),
		Location: &Location{Block: block},
	}
}

// AsDiagnostic converts err into an error diagnostic, keeping its code when err
// is a *Error.
func AsDiagnostic(err error) Diagnostic {
	var e *Error
	if errors.As(err, &e) {
		d := Diagnostic{Severity: "error", Code: e.Code, Message: err.Error()}
		if e.Block >= 0 || e.Offset >= 0 {
			d.Location = &Location{Block: max(e.Block, 0), Offset: max(e.Offset, 0)}
		}
		return d
	}
	return Diagnostic{Severity: "error", Code: CodeMalformedDocument, Message: err.Error()}
}
