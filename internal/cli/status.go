package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"reelcut/internal/clip"
	"reelcut/internal/engine"
	"reelcut/internal/timeline"
	"reelcut/internal/tui"
)

var statusAt float64

func newStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the timeline and its clips",
		RunE:  runStatus,
	}
	cmd.Flags().Float64Var(&statusAt, "at", -1, "Only list clips visible at this time (seconds)")
	return cmd
}

func runStatus(cmd *cobra.Command, _ []string) error {
	s, err := openSession(sessionOptions{Quiet: true})
	if err != nil {
		return err
	}
	defer s.Close()

	st := s.engine.Status()
	clips := s.engine.Clips()
	if statusAt >= 0 {
		clips = s.engine.ClipsAt(statusAt)
	}

	if outputJSON {
		return writeJSON(cmd.OutOrStdout(), struct {
			Status engine.Status `json:"status"`
			Clips  []clip.Clip   `json:"clips"`
		}{st, clips})
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Project:  %s (%s)\n", st.Name, s.pp.Root)
	fmt.Fprintf(out, "Duration: %s  playhead %s  zoom %.1fx\n",
		timeline.FormatTime(st.Duration), timeline.FormatTime(st.CurrentTime), st.Zoom)
	fmt.Fprintf(out, "Media:    %d images, %d videos, %d audio\n",
		st.Media[clip.KindImage], st.Media[clip.KindVideo], st.Media[clip.KindAudio])
	fmt.Fprintf(out, "History:  %d undo steps, redo %s\n\n", st.History, yesNo(st.CanRedo))

	if len(clips) == 0 {
		fmt.Fprintln(out, "No clips.")
		return nil
	}
	return writeClipTable(out, clips)
}

func writeClipTable(out io.Writer, clips []clip.Clip) error {
	tw := tabwriter.NewWriter(out, 0, 2, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTRACK\tTYPE\tSTART\tEND\tNAME\tEFFECTS")
	for _, c := range clips {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%.2f\t%.2f\t%s\t%s\n",
			c.ID, c.Track, c.Kind, c.Start, c.End(),
			tui.TruncateWithEllipsis(clipLabel(c), 32),
			tui.NonEmptyOrDash(effectsSummary(c.Effects)),
		)
	}
	return tw.Flush()
}

func clipLabel(c clip.Clip) string {
	if c.Kind == clip.KindText && c.Text != nil {
		return fmt.Sprintf("%q", c.Text.Text)
	}
	return c.Name
}

func effectsSummary(fx clip.Effects) string {
	if fx.IsNeutral() {
		return ""
	}
	var parts []string
	for _, kv := range []struct {
		key string
		val float64
	}{
		{"brightness", fx.Brightness},
		{"contrast", fx.Contrast},
		{"saturation", fx.Saturation},
		{"blur", fx.Blur},
	} {
		if kv.val != 0 {
			parts = append(parts, fmt.Sprintf("%s=%g", kv.key, kv.val))
		}
	}
	return strings.Join(parts, " ")
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
