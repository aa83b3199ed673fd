package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/eykd/redvelvet-go/internal/convert"
	"github.com/eykd/redvelvet-go/internal/fixture"
	"github.com/eykd/redvelvet-go/internal/logging"
)

// checkCase is the outcome of converting one fixture in one direction.
type checkCase struct {
	Index     int    `json:"index"`
	Direction string `json:"direction"`
	Pass      bool   `json:"pass"`
	Error     string `json:"error,omitempty"`
	Diff      string `json:"diff,omitempty"`
}

// checkOutput is the JSON output schema for the check command.
type checkOutput struct {
	Version string      `json:"version"`
	RunID   string      `json:"run_id"`
	Passed  int         `json:"passed"`
	Failed  int         `json:"failed"`
	Cases   []checkCase `json:"cases"`
}

// NewCheckCmd creates the check subcommand.
func NewCheckCmd(fio FileIO, s *settings) *cobra.Command {
	var (
		jobs     int
		jsonMode bool
	)
	cmd := &cobra.Command{
		Use:          "check <corpus-path>",
		Short:        "Convert every fixture pair of a corpus both ways and compare",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			data, err := fio.ReadInput(ctx, args[0], cmd.InOrStdin())
			if err != nil {
				return fmt.Errorf("reading corpus: %w", err)
			}
			corpus, err := fixture.Load(bytes.NewReader(data))
			if err != nil {
				return err
			}

			runID, err := uuid.NewV7()
			if err != nil {
				return fmt.Errorf("generating run id: %w", err)
			}
			ctx = logging.WithRunID(ctx, runID.String())
			log := logging.FromContext(ctx)

			n := s.jobs(cmd, jobs)
			pairs := corpus.Pairs()
			log.Info("check started", "corpus", args[0], "pairs", len(pairs), "jobs", n)

			toMarkup := convert.Batch(ctx, convert.ToMarkup, corpus.NPFInputs(), n)
			toNPF := convert.Batch(ctx, convert.ToNPF, corpus.MarkupInputs(), n)

			w := cmd.OutOrStdout()
			useColor := !jsonMode && s.color(w)
			out := checkOutput{Version: "1", RunID: runID.String(), Cases: []checkCase{}}
			for _, p := range pairs {
				for _, c := range []checkCase{
					checkMarkup(p, toMarkup[p.Index], useColor),
					checkNPF(p, toNPF[p.Index]),
				} {
					if c.Pass {
						out.Passed++
					} else {
						out.Failed++
						log.Debug("fixture failed", "index", c.Index, "direction", c.Direction)
					}
					out.Cases = append(out.Cases, c)
				}
			}
			log.Info("check finished", "passed", out.Passed, "failed", out.Failed)

			if jsonMode {
				if err := json.NewEncoder(w).Encode(out); err != nil {
					return fmt.Errorf("encoding output: %w", err)
				}
			} else {
				printCheck(w, out, useColor)
			}

			if out.Failed > 0 {
				return fmt.Errorf("%d of %d checks failed", out.Failed, out.Passed+out.Failed)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&jobs, "jobs", "j", 0, "Documents converted concurrently (0 means one per CPU)")
	cmd.Flags().BoolVar(&jsonMode, "json", false, "Output result as JSON")
	return cmd
}

// checkMarkup compares NPF→markup output with the expected markup textually.
func checkMarkup(p fixture.Pair, r convert.Result, useColor bool) checkCase {
	c := checkCase{Index: p.Index, Direction: convert.ToMarkup.String()}
	switch got := string(r.Output); {
	case r.Err != nil:
		c.Error = r.Err.Error()
	case got != p.Markup:
		c.Error = "markup differs"
		c.Diff = convert.DiffText(p.Markup, got, useColor)
	default:
		c.Pass = true
	}
	return c
}

// checkNPF compares markup→NPF output with the expected NPF semantically.
func checkNPF(p fixture.Pair, r convert.Result) checkCase {
	c := checkCase{Index: p.Index, Direction: convert.ToNPF.String()}
	switch {
	case r.Err != nil:
		c.Error = r.Err.Error()
	case !convert.EqualJSON(p.NPF, r.Output):
		c.Error = "NPF differs"
		if delta, err := convert.JSONDelta(p.NPF, r.Output); err == nil {
			c.Diff = delta
		}
	default:
		c.Pass = true
	}
	return c
}

func printCheck(w io.Writer, out checkOutput, useColor bool) {
	pass := color.New(color.FgGreen, color.Bold)
	fail := color.New(color.FgRed, color.Bold)
	for _, c := range []*color.Color{pass, fail} {
		if useColor {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}

	for _, c := range out.Cases {
		if c.Pass {
			fmt.Fprintf(w, "%s #%d %s\n", pass.Sprint("PASS"), c.Index, c.Direction)
			continue
		}
		fmt.Fprintf(w, "%s #%d %s: %s\n", fail.Sprint("FAIL"), c.Index, c.Direction, sanitizeTerminal(c.Error))
		if c.Diff != "" {
			fmt.Fprintf(w, "    %s\n", c.Diff)
		}
	}
	fmt.Fprintf(w, "%d passed, %d failed\n", out.Passed, out.Failed)
}
