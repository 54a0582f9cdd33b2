package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"reelcut/internal/engine"
)

var (
	replayDryRun   bool
	replayContinue bool
)

func newReplayCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "replay <script|->",
		Short: "Apply a script of timeline commands, one per line",
		Long: "Apply a script of timeline commands, one per line. Blank lines and\n" +
			"lines starting with # are skipped. The project is saved when every\n" +
			"line succeeds.",
		Args: cobra.ExactArgs(1),
		RunE: runReplay,
	}
	cmd.Flags().BoolVar(&replayDryRun, "dry-run", false, "Run the script without saving the project")
	cmd.Flags().BoolVar(&replayContinue, "keep-going", false, "Report failing lines and continue")
	return cmd
}

// replayLine is the outcome of one script line.
type replayLine struct {
	Line    int           `json:"line"`
	Command string        `json:"command"`
	Result  engine.Result `json:"result"`
	Error   string        `json:"error,omitempty"`
}

func runReplay(cmd *cobra.Command, args []string) error {
	var in io.Reader = cmd.InOrStdin()
	if args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("open script: %w", err)
		}
		defer f.Close()
		in = f
	}

	s, err := openSession(sessionOptions{Quiet: true})
	if err != nil {
		return err
	}
	defer s.Close()

	lines, failed, err := replayScript(cmdContext(cmd), s.engine, in, replayContinue)
	if err != nil {
		return err
	}

	if outputJSON {
		if err := writeJSON(cmd.OutOrStdout(), struct {
			Lines  []replayLine `json:"lines"`
			Failed int          `json:"failed"`
		}{lines, failed}); err != nil {
			return err
		}
	} else {
		out := cmd.OutOrStdout()
		for _, l := range lines {
			if l.Error != "" {
				fmt.Fprintf(cmd.ErrOrStderr(), "line %d: %s: %s\n", l.Line, l.Command, l.Error)
				continue
			}
			printResult(out, l.Result)
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d script lines failed; project not saved", failed)
	}
	if replayDryRun {
		return nil
	}
	return s.save()
}

// replayScript runs each non-blank line. It stops at the first failure
// unless keepGoing is set.
func replayScript(ctx context.Context, e *engine.Engine, in io.Reader, keepGoing bool) ([]replayLine, int, error) {
	var (
		lines  []replayLine
		failed int
		n      int
	)
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		n++
		cmd, err := engine.ParseCommand(scanner.Text())
		if err == nil && cmd.Op == "" {
			continue
		}
		entry := replayLine{Line: n, Command: scanner.Text()}
		if err == nil {
			entry.Command = cmd.String()
			entry.Result, err = e.Exec(ctx, cmd)
		}
		if err != nil {
			entry.Error = err.Error()
			failed++
		}
		lines = append(lines, entry)
		if err != nil && !keepGoing {
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return lines, failed, fmt.Errorf("read script: %w", err)
	}
	return lines, failed, nil
}
