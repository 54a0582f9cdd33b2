package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"reelcut/internal/engine"
	"reelcut/internal/export"
	"reelcut/internal/tui"
)

var (
	exportResolutions []string
	exportFPS         int
	exportBitrate     int
	exportProfiles    []string
	exportOut         string
)

func newExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Render the timeline to a video file",
		Long: "Render the timeline frame by frame and encode it with the first\n" +
			"supported profile. Repeat --resolution to export several sizes.",
		RunE: runExport,
	}
	cmd.Flags().StringSliceVarP(&exportResolutions, "resolution", "r", nil, "Output resolution: 720p, 1080p or 4k (repeatable)")
	cmd.Flags().IntVar(&exportFPS, "fps", 0, "Frames per second (default from config)")
	cmd.Flags().IntVar(&exportBitrate, "bitrate", 0, "Video bitrate in kbps (default from config)")
	cmd.Flags().StringSliceVar(&exportProfiles, "profile", nil, "Encoder profiles in preference order")
	cmd.Flags().StringVarP(&exportOut, "out", "o", "", "Output path without extension")
	return cmd
}

// exportResult is the outcome of exporting one resolution.
type exportResult struct {
	Resolution string          `json:"resolution"`
	Artifact   export.Artifact `json:"artifact"`
	Err        error           `json:"-"`
}

func runExport(cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()
	mode := tui.DetectMode(out, noProgress, outputJSON)

	s, err := openSession(sessionOptions{Quiet: mode != tui.ModePlain})
	if err != nil {
		return err
	}
	defer s.Close()

	resolutions := exportResolutions
	if len(resolutions) == 0 {
		resolutions = []string{s.cfg.Export.Resolution}
	}
	for i, r := range resolutions {
		res, err := export.LookupResolution(r)
		if err != nil {
			return err
		}
		resolutions[i] = res.Name
	}

	ctx, stop := signal.NotifyContext(cmdContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()
	s.preloadWithStatus(ctx, cmd.ErrOrStderr(), mode == tui.ModeTUI)

	jobs := make([]engine.ExportOptions, len(resolutions))
	for i, r := range resolutions {
		jobs[i] = engine.ExportOptions{
			Resolution:  r,
			FPS:         exportFPS,
			BitrateKbps: exportBitrate,
			Profiles:    exportProfiles,
			OutputBase:  exportBase(s, r, len(resolutions) > 1),
		}
	}

	var results []exportResult
	switch mode {
	case tui.ModeTUI:
		fmt.Fprintf(out, "Project: %s\n", s.pp.Root)
		results, err = runExportTUI(ctx, out, s, jobs)
		if err != nil {
			return err
		}
	default:
		results = runExportPlain(ctx, out, s, jobs, mode == tui.ModePlain)
	}

	recordExports(ctx, s, results)

	if outputJSON {
		return writeExportJSON(out, s.pp.Root, results)
	}
	return writeExportSummary(out, cmd.ErrOrStderr(), results)
}

// exportBase picks the artifact path. Several resolutions get a suffix so
// they do not overwrite each other.
func exportBase(s *session, resolution string, multi bool) string {
	base := strings.TrimSuffix(exportOut, filepath.Ext(exportOut))
	if base == "" {
		if !multi {
			return ""
		}
		base = filepath.Join(s.pp.ExportsDir, engine.FileStem(s.engine.Name()))
	}
	if multi {
		base += "-" + resolution
	}
	return base
}

func runExportTUI(ctx context.Context, out io.Writer, s *session, jobs []engine.ExportOptions) ([]exportResult, error) {
	model := tui.NewProgressModel("export", []tui.Column{
		{Header: "RESOLUTION", Width: 10},
		{Header: "STATUS", Width: 11},
		{Header: "FRAMES", Width: 11},
		{Header: "PROFILE", Width: 12},
		{Header: "OUTPUT", Width: 40},
	})
	for _, job := range jobs {
		model.AddRow(job.Resolution, []string{job.Resolution, "pending", "-", "-", "-"})
	}

	// Quitting the TUI early cancels the running export; wait for it so
	// results are complete before they are read.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	done := make(chan struct{})

	var results []exportResult
	err := tui.RunWithWork(out, model, func(send func(tea.Msg)) {
		defer close(done)
		for _, job := range jobs {
			send(tui.RowUpdateMsg{Key: job.Resolution, Fields: map[string]string{"STATUS": "rendering"}})
			job.OnProgress = tui.ExportReporter(send, job.Resolution)
			art, err := s.engine.Export(ctx, job)
			results = append(results, exportResult{Resolution: job.Resolution, Artifact: art, Err: err})
			send(tui.RowUpdateMsg{Key: job.Resolution, Fields: exportRowFields(art, err)})
		}
	})
	cancel()
	<-done
	return results, err
}

func exportRowFields(art export.Artifact, err error) map[string]string {
	switch {
	case errors.Is(err, context.Canceled):
		return map[string]string{"STATUS": "cancelled"}
	case errors.Is(err, export.ErrUnsupported):
		return map[string]string{"STATUS": "unsupported"}
	case err != nil:
		return map[string]string{"STATUS": "error", "OUTPUT": err.Error()}
	}
	return map[string]string{
		"STATUS":  "exported",
		"FRAMES":  fmt.Sprintf("%d/%d", art.Frames, art.Frames),
		"PROFILE": art.Profile,
		"OUTPUT":  art.Path,
	}
}

func runExportPlain(ctx context.Context, out io.Writer, s *session, jobs []engine.ExportOptions, showProgress bool) []exportResult {
	results := make([]exportResult, 0, len(jobs))
	for _, job := range jobs {
		if showProgress {
			fmt.Fprintf(out, "exporting %s...\n", job.Resolution)
			job.OnProgress = plainProgress(out, job.Resolution)
		}
		art, err := s.engine.Export(ctx, job)
		results = append(results, exportResult{Resolution: job.Resolution, Artifact: art, Err: err})
	}
	return results
}

// plainProgress prints a line every 10%.
func plainProgress(out io.Writer, key string) func(export.Progress) {
	next := 0.1
	return func(p export.Progress) {
		if p.Fraction+1e-9 < next {
			return
		}
		fmt.Fprintf(out, "  %s %3.0f%% (%d/%d frames)\n", key, p.Fraction*100, p.Frame, p.Frames)
		for next <= p.Fraction+1e-9 {
			next += 0.1
		}
	}
}

func recordExports(ctx context.Context, s *session, results []exportResult) {
	st, err := s.projects()
	if err != nil {
		s.logger.Warn().Err(err).Msg("export log unavailable")
		return
	}
	for _, res := range results {
		if res.Err != nil {
			continue
		}
		if _, err := st.RecordExport(context.WithoutCancel(ctx), s.engine.Name(), res.Artifact); err != nil {
			s.logger.Warn().Err(err).Str("path", res.Artifact.Path).Msg("record export")
		}
	}
}

func writeExportSummary(out, errWriter io.Writer, results []exportResult) error {
	var failed int
	for _, res := range results {
		if res.Err != nil {
			failed++
			fmt.Fprintf(errWriter, "export %s failed: %v\n", res.Resolution, res.Err)
			continue
		}
		a := res.Artifact
		fmt.Fprintf(out, "exported %s → %s (%s, %d frames in %s)\n",
			res.Resolution, a.Path, a.Profile, a.Frames, a.Elapsed.Round(10*time.Millisecond))
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d exports failed", failed, len(results))
	}
	return nil
}

func writeExportJSON(out io.Writer, project string, results []exportResult) error {
	type jsonResult struct {
		exportResult
		Error string `json:"error,omitempty"`
	}
	payload := struct {
		Project string       `json:"project"`
		Results []jsonResult `json:"results"`
	}{Project: project}

	var failed int
	for _, res := range results {
		jr := jsonResult{exportResult: res}
		if res.Err != nil {
			jr.Error = res.Err.Error()
			failed++
		}
		payload.Results = append(payload.Results, jr)
	}
	if err := writeJSON(out, payload); err != nil {
		return fmt.Errorf("encode export json: %w", err)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d exports failed", failed, len(results))
	}
	return nil
}
