package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/eykd/redvelvet-go/internal/markup"
	"github.com/eykd/redvelvet-go/internal/mdimport"
	"github.com/eykd/redvelvet-go/internal/npf"
	"github.com/eykd/redvelvet-go/internal/post"
)

// NewFromMarkdownCmd creates the from-markdown subcommand.
func NewFromMarkdownCmd(fio FileIO, s *settings) *cobra.Command {
	var (
		f      conversionFlags
		format string
	)
	cmd := &cobra.Command{
		Use:          "from-markdown [markdown-path|-]",
		Short:        "Import a Markdown document as NPF JSON or block markup",
		Args:         cobra.MaximumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != "npf" && format != "markup" {
				return fmt.Errorf("--format must be npf or markup, got %q", format)
			}
			direction := "from-markdown"
			ctx := cmd.Context()

			input, err := fio.ReadInput(ctx, inputPath(args), cmd.InOrStdin())
			if err != nil {
				return emitFailure(cmd, f.jsonMode, direction, []post.Diagnostic{ioDiagnostic(err)}, fmt.Errorf("reading input: %w", err))
			}

			doc, err := mdimport.Import(input)
			if err != nil {
				return emitFailure(cmd, f.jsonMode, direction, []post.Diagnostic{post.AsDiagnostic(err)}, err)
			}

			var out []byte
			if format == "npf" {
				out, err = npf.Encode(doc)
			} else {
				var html string
				html, err = markup.Encode(doc)
				out = []byte(html)
			}
			if err != nil {
				return emitFailure(cmd, f.jsonMode, direction, []post.Diagnostic{post.AsDiagnostic(err)}, err)
			}
			return writeResult(cmd, fio, direction, out, format == "npf", nil, f)
		},
	}
	cmd.Flags().StringVar(&format, "format", "npf", "Output format: npf or markup")
	cmd.Flags().StringVarP(&f.out, "out", "o", "", "Write the result to this file instead of stdout")
	cmd.Flags().BoolVar(&f.jsonMode, "json", false, "Output result as JSON")
	return cmd
}
