package cmd

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/eykd/redvelvet-go/internal/convert"
	"github.com/eykd/redvelvet-go/internal/logging"
	"github.com/eykd/redvelvet-go/internal/post"
)

// conversionFlags are the flags shared by to-markup and to-npf.
type conversionFlags struct {
	out      string
	jobs     int
	strict   bool
	jsonMode bool
}

// NewToMarkupCmd creates the to-markup subcommand.
func NewToMarkupCmd(fio FileIO, s *settings) *cobra.Command {
	var f conversionFlags
	cmd := &cobra.Command{
		Use:          "to-markup [npf-path|-]",
		Short:        "Convert an NPF JSON document to block markup",
		Args:         cobra.MaximumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f.jobs = s.jobs(cmd, f.jobs)
			f.strict = s.strict(cmd, f.strict)
			return runConversion(cmd, fio, convert.ToMarkup, inputPath(args), f)
		},
	}
	cmd.Flags().StringVarP(&f.out, "out", "o", "", "Write the result to this file instead of stdout")
	cmd.Flags().IntVarP(&f.jobs, "jobs", "j", 0, "Blocks encoded concurrently (0 means one per CPU)")
	cmd.Flags().BoolVar(&f.strict, "strict", false, "Treat warnings as errors")
	cmd.Flags().BoolVar(&f.jsonMode, "json", false, "Output result as JSON")
	return cmd
}

// NewToNPFCmd creates the to-npf subcommand.
func NewToNPFCmd(fio FileIO, s *settings) *cobra.Command {
	var f conversionFlags
	cmd := &cobra.Command{
		Use:          "to-npf [markup-path|-]",
		Short:        "Convert block markup to an NPF JSON document",
		Args:         cobra.MaximumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f.strict = s.strict(cmd, f.strict)
			return runConversion(cmd, fio, convert.ToNPF, inputPath(args), f)
		},
	}
	cmd.Flags().StringVarP(&f.out, "out", "o", "", "Write the result to this file instead of stdout")
	cmd.Flags().BoolVar(&f.strict, "strict", false, "Treat warnings as errors")
	cmd.Flags().BoolVar(&f.jsonMode, "json", false, "Output result as JSON")
	return cmd
}

func runConversion(cmd *cobra.Command, fio FileIO, d convert.Direction, path string, f conversionFlags) error {
	ctx := cmd.Context()
	log := logging.FromContext(ctx)

	input, err := fio.ReadInput(ctx, path, cmd.InOrStdin())
	if err != nil {
		return emitFailure(cmd, f.jsonMode, d.String(), []post.Diagnostic{ioDiagnostic(err)}, fmt.Errorf("reading input: %w", err))
	}

	start := time.Now()
	var (
		out   []byte
		diags []post.Diagnostic
	)
	switch d {
	case convert.ToMarkup:
		var html string
		html, diags, err = convert.EncodeMarkupConcurrent(ctx, input, f.jobs)
		out = []byte(html)
	default:
		out, diags, err = convert.Convert(d, input)
	}
	if err != nil {
		return emitFailure(cmd, f.jsonMode, d.String(), append(diags, post.AsDiagnostic(err)), err)
	}
	log.Debug("converted", "direction", d.String(), "input", path, "bytes_in", len(input), "bytes_out", len(out), "warnings", len(diags), "elapsed", time.Since(start))

	if f.strict && len(diags) > 0 {
		return emitFailure(cmd, f.jsonMode, d.String(), promoteWarnings(diags), fmt.Errorf("%d warning(s) with --strict", len(diags)))
	}
	return writeResult(cmd, fio, d.String(), out, d == convert.ToNPF, diags, f)
}

// writeResult sends out to --out or stdout and reports diagnostics. isJSON
// marks out as a JSON document to embed as-is in --json output.
func writeResult(cmd *cobra.Command, fio FileIO, direction string, out []byte, isJSON bool, diags []post.Diagnostic, f conversionFlags) error {
	if !isStdio(f.out) {
		if err := fio.WriteOutputAtomic(cmd.Context(), f.out, out); err != nil {
			return emitFailure(cmd, f.jsonMode, direction, append(diags, ioDiagnostic(err)), fmt.Errorf("writing output: %w", err))
		}
	}

	if f.jsonMode {
		if diags == nil {
			diags = []post.Diagnostic{}
		}
		res := conversionOutput{Version: "1", Direction: direction, Output: string(out), Diagnostics: diags}
		if isJSON {
			res.Output = json.RawMessage(out)
		}
		if err := json.NewEncoder(cmd.OutOrStdout()).Encode(res); err != nil {
			return fmt.Errorf("encoding output: %w", err)
		}
		return nil
	}

	if isStdio(f.out) {
		if _, err := cmd.OutOrStdout().Write(out); err != nil {
			return fmt.Errorf("writing output: %w", err)
		}
	}
	printDiagnostics(cmd, diags)
	return nil
}
