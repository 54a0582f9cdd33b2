package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"reelcut/internal/clip"
	"reelcut/internal/engine"
	"reelcut/internal/timeline"
)

var shellNoAudio bool

func newShellCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "shell",
		Short: "Edit the timeline interactively",
		RunE:  runShell,
	}
	cmd.Flags().BoolVar(&shellNoAudio, "no-audio", false, "Do not start ffplay for audio clips")
	return cmd
}

func runShell(cmd *cobra.Command, _ []string) error {
	s, err := openSession(sessionOptions{Audio: !shellNoAudio, Quiet: true})
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, cancel := context.WithCancel(cmdContext(cmd))
	defer cancel()
	go s.preload(ctx)

	if s.cfg.AutosaveEnabled() {
		saver := s.autosaver()
		done := make(chan struct{})
		go func() {
			defer close(done)
			saver.Run(ctx)
		}()
		defer func() {
			cancel()
			<-done
		}()
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "reelcut> ",
		HistoryFile:     s.pp.HistoryFile,
		AutoComplete:    shellCompleter(),
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
		Stdout:          cmd.OutOrStdout(),
		Stderr:          cmd.ErrOrStderr(),
	})
	if err != nil {
		return fmt.Errorf("init readline: %w", err)
	}
	defer rl.Close()

	out := rl.Stdout()
	fmt.Fprintf(out, "Editing %s (%d clips). Type help for commands.\n", s.engine.Name(), s.engine.Status().Clips)

	for {
		line, err := rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) {
				if line == "" {
					break
				}
				continue
			}
			if errors.Is(err, io.EOF) {
				break
			}
			return fmt.Errorf("read input: %w", err)
		}

		// Any typed command counts as the gesture that unlocks audio.
		s.engine.Audio().NotifyInteraction("keyboard")

		quit, err := shellLine(ctx, s, out, strings.TrimSpace(line))
		if err != nil {
			fmt.Fprintf(out, "error: %v\n", err)
		}
		if quit {
			break
		}
	}

	s.engine.Stop()
	if err := s.save(); err != nil {
		return err
	}
	fmt.Fprintf(out, "Saved %s\n", s.pp.ProjectFile)
	return nil
}

// shellLine handles shell builtins and passes everything else to the engine.
func shellLine(ctx context.Context, s *session, out io.Writer, line string) (quit bool, err error) {
	switch line {
	case "":
		return false, nil
	case "exit", "quit":
		return true, nil
	case "help":
		printShellHelp(out)
		return false, nil
	case "clips":
		clips := s.engine.Clips()
		if len(clips) == 0 {
			fmt.Fprintln(out, "No clips.")
			return false, nil
		}
		return false, writeClipTable(out, clips)
	case "status":
		st := s.engine.Status()
		fmt.Fprintf(out, "%s  %s / %s  %d clips  zoom %.1fx  undo %d  redo %s\n",
			st.Playback, timeline.FormatTime(st.CurrentTime), timeline.FormatTime(st.Duration),
			st.Clips, st.Zoom, st.History, yesNo(st.CanRedo))
		return false, nil
	case "save":
		if err := s.save(); err != nil {
			return false, err
		}
		fmt.Fprintf(out, "Saved %s\n", s.pp.ProjectFile)
		return false, nil
	}

	res, err := s.engine.ExecLine(ctx, line)
	if err != nil {
		return false, err
	}
	printResult(out, res)
	return false, nil
}

func printResult(out io.Writer, res engine.Result) {
	if res.Message != "" {
		fmt.Fprintln(out, res.Message)
	}
	if res.Clip != nil {
		printClipLine(out, *res.Clip)
	}
	for _, c := range res.Clips {
		printClipLine(out, c)
	}
}

func printClipLine(out io.Writer, c clip.Clip) {
	fmt.Fprintf(out, "  %s  %-6s %-5s %6.2f-%-6.2f %s\n", c.ID, c.Track, c.Kind, c.Start, c.End(), clipLabel(c))
}

func printShellHelp(out io.Writer) {
	fmt.Fprintln(out, "\nTimeline commands:")
	for _, usage := range engine.Ops() {
		fmt.Fprintf(out, "  %s\n", usage)
	}
	fmt.Fprintln(out, "\nShell commands:")
	fmt.Fprintln(out, "  clips     List every clip")
	fmt.Fprintln(out, "  status    Show playhead, duration and history")
	fmt.Fprintln(out, "  save      Write project.json")
	fmt.Fprintln(out, "  help      Show this help")
	fmt.Fprintln(out, "  exit      Save and leave the shell")
	fmt.Fprintln(out)
}

func shellCompleter() readline.AutoCompleter {
	items := []readline.PrefixCompleterInterface{
		readline.PcItem("clips"),
		readline.PcItem("status"),
		readline.PcItem("save"),
		readline.PcItem("help"),
		readline.PcItem("exit"),
	}
	for _, usage := range engine.Ops() {
		op, _, _ := strings.Cut(usage, " ")
		switch op {
		case "zoom":
			items = append(items, readline.PcItem(op,
				readline.PcItem("in"), readline.PcItem("out"), readline.PcItem("fit")))
		case "add-text":
			var presets []readline.PrefixCompleterInterface
			for _, name := range clip.PresetNames() {
				presets = append(presets, readline.PcItem(name))
			}
			items = append(items, readline.PcItem(op, presets...))
		default:
			items = append(items, readline.PcItem(op))
		}
	}
	return readline.NewPrefixCompleter(items...)
}
