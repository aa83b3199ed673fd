package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/eykd/redvelvet-go/internal/post"
)

// conversionOutput is the JSON output schema for the conversion commands.
type conversionOutput struct {
	Version     string            `json:"version"`
	Direction   string            `json:"direction"`
	Output      any               `json:"output"`
	Diagnostics []post.Diagnostic `json:"diagnostics"`
}

// ioDiagnostic reports a read or write failure.
func ioDiagnostic(err error) post.Diagnostic {
	return post.Diagnostic{Severity: "error", Code: post.CodeIOFailure, Message: err.Error()}
}

// promoteWarnings returns a copy of diags with every warning raised to an error.
func promoteWarnings(diags []post.Diagnostic) []post.Diagnostic {
	out := make([]post.Diagnostic, len(diags))
	for i, d := range diags {
		d.Severity = "error"
		out[i] = d
	}
	return out
}

// emitFailure reports a failed conversion and returns a non-nil error so the
// caller exits with non-zero code. When jsonMode is true the diagnostics are
// written as a conversionOutput JSON object to stdout; otherwise they go to
// stderr in human-readable form.
func emitFailure(cmd *cobra.Command, jsonMode bool, direction string, diags []post.Diagnostic, origErr error) error {
	if jsonMode {
		if diags == nil {
			diags = []post.Diagnostic{}
		}
		out := conversionOutput{Version: "1", Direction: direction, Diagnostics: diags}
		_ = json.NewEncoder(cmd.OutOrStdout()).Encode(out)
	} else {
		printDiagnostics(cmd, diags)
	}
	return fmt.Errorf("%s failed: %w", direction, origErr)
}

// printDiagnostics writes each diagnostic to stderr in human-readable form.
func printDiagnostics(cmd *cobra.Command, diags []post.Diagnostic) {
	for _, d := range diags {
		loc := ""
		if d.Location != nil {
			loc = fmt.Sprintf(" [block %d]", d.Location.Block)
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "%s: %s%s (%s)\n", d.Severity, sanitizeTerminal(d.Message), loc, d.Code)
	}
}
