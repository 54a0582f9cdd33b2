package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"reelcut/internal/compositor"
	"reelcut/internal/playback"
	"reelcut/internal/timeline"
	"reelcut/internal/tui"
)

var (
	playFrom    float64
	playNoAudio bool
)

func newPlayCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "play",
		Short: "Play the timeline in real time with preview audio",
		RunE:  runPlay,
	}
	cmd.Flags().Float64Var(&playFrom, "from", -1, "Start time in seconds (default: the saved playhead)")
	cmd.Flags().BoolVar(&playNoAudio, "no-audio", false, "Do not start ffplay for audio clips")
	return cmd
}

func runPlay(cmd *cobra.Command, _ []string) error {
	s, err := openSession(sessionOptions{Audio: !playNoAudio, Quiet: true})
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, stop := signal.NotifyContext(cmdContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()
	out := cmd.OutOrStdout()
	live := tui.DetectMode(out, noProgress, outputJSON) == tui.ModeTUI
	s.preloadWithStatus(ctx, cmd.ErrOrStderr(), live)

	// Running the command is the user gesture that unlocks audio.
	s.engine.Audio().NotifyInteraction("cli")
	first, _ := s.engine.LatestFrame()
	if playFrom >= 0 {
		s.engine.Seek(playFrom)
	}
	if err := s.engine.Play(); err != nil {
		return err
	}

	duration := s.engine.Duration()
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	for s.engine.Clock().State() == playback.Playing {
		select {
		case <-ctx.Done():
			s.engine.Pause()
		case <-ticker.C:
			if frame, ok := s.engine.LatestFrame(); live && ok {
				fmt.Fprintf(out, "\r\033[K▶ %s / %s  %d painted %d loading", timeline.FormatTime(frame.Time), timeline.FormatTime(duration), frame.Stats.Painted, frame.Stats.Loading)
			}
		}
	}
	if live {
		fmt.Fprint(out, "\r\033[K")
	}

	st := s.engine.Status()
	last, _ := s.engine.LatestFrame()
	report := playbackJSON{
		State:       st.Playback,
		CurrentTime: st.CurrentTime,
		Frames:      last.Seq - first.Seq,
		Last:        last.Stats,
	}
	if outputJSON {
		return writeJSON(out, report)
	}
	fmt.Fprintf(out, "%s at %s after %d preview frames", report.State, timeline.FormatTime(report.CurrentTime), report.Frames)
	if f := report.Last.Failed + report.Last.Dangling; f > 0 {
		fmt.Fprintf(out, " (%d clips could not be drawn)", f)
	}
	fmt.Fprintln(out)
	return nil
}

type playbackJSON struct {
	State       string           `json:"state"`
	CurrentTime float64          `json:"currentTime"`
	Frames      uint64           `json:"frames"`
	Last        compositor.Stats `json:"lastFrame"`
}
