package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"reelcut/internal/config"
	"reelcut/internal/engine"
	"reelcut/internal/export"
	"reelcut/internal/paths"
	"reelcut/internal/runner"
	"reelcut/internal/timeline"
)

func newDoctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check tools, encoders and project health",
		RunE:  runDoctor,
	}
}

type healthCheck struct {
	Name    string `json:"name"`
	Status  string `json:"status"` // "ok", "warning", "error"
	Summary string `json:"summary"`
}

func runDoctor(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	pp, err := paths.Resolve(projectDir)
	if err != nil {
		return err
	}
	exists, err := paths.DirExists(pp.Root)
	if err != nil {
		return fmt.Errorf("stat project dir: %w", err)
	}
	if !exists {
		return fmt.Errorf("project directory does not exist: %s", pp.Root)
	}

	var checks []healthCheck

	cfg, cfgErr := config.Load(pp.ConfigFile)
	checks = append(checks, checkConfig(cfg, cfgErr))
	if cfgErr != nil {
		cfg = config.Default()
	}

	r := runner.CmdRunner{}
	checks = append(checks, checkTools(ctx, r, cfg.Tools))
	checks = append(checks, checkEncoders(ctx, export.NewProber(r, cfg.Tools.FFmpeg).Probe, cfg.Export.Profiles))
	checks = append(checks, checkProject(pp.ProjectFile))

	return writeDoctorResult(cmd, pp.Root, checks)
}

func checkConfig(cfg config.Config, cfgErr error) healthCheck {
	if cfgErr != nil {
		return healthCheck{Name: "Config", Status: "error", Summary: cfgErr.Error()}
	}

	validations := cfg.Validate(export.ResolutionNames(), export.ProfileNames())
	var warnings, errs int
	for _, v := range validations {
		switch v.Level {
		case "warning":
			warnings++
		case "error":
			errs++
		}
	}

	summary := fmt.Sprintf("%s @ %dfps, profiles %s", cfg.Export.Resolution, cfg.Export.FPS, joinComma(cfg.Export.Profiles))
	if errs > 0 {
		return healthCheck{Name: "Config", Status: "error", Summary: fmt.Sprintf("%s; %d errors", summary, errs)}
	}
	if warnings > 0 {
		return healthCheck{Name: "Config", Status: "warning", Summary: fmt.Sprintf("%s; %d warnings", summary, warnings)}
	}
	return healthCheck{Name: "Config", Status: "ok", Summary: summary}
}

func checkTools(ctx context.Context, r runner.Runner, tools config.ToolsConfig) healthCheck {
	var found, missing []string
	for _, bin := range []string{tools.FFmpeg, tools.FFplay} {
		path, err := exec.LookPath(bin)
		if err != nil {
			missing = append(missing, bin)
			continue
		}
		label := bin
		if v := toolVersion(ctx, r, path); v != "" {
			label += " " + v
		}
		found = append(found, label)
	}

	switch {
	case len(missing) == 0:
		return healthCheck{Name: "Tools", Status: "ok", Summary: joinComma(found)}
	case len(found) == 0:
		return healthCheck{Name: "Tools", Status: "error", Summary: "not found: " + joinComma(missing)}
	}
	return healthCheck{Name: "Tools", Status: "warning", Summary: "not found: " + joinComma(missing)}
}

// toolVersion extracts the version word from "<tool> version X ...".
func toolVersion(ctx context.Context, r runner.Runner, path string) string {
	res, err := r.Run(ctx, path, []string{"-version"}, runner.Options{})
	if err != nil {
		return ""
	}
	line, _, _ := strings.Cut(string(res.Stdout), "\n")
	fields := strings.Fields(line)
	for i, f := range fields {
		if f == "version" && i+1 < len(fields) {
			return fields[i+1]
		}
	}
	return ""
}

func checkEncoders(ctx context.Context, probe func(context.Context, string) error, preferred []string) healthCheck {
	var ok, failed []string
	for _, name := range preferred {
		prof, err := export.LookupProfile(name)
		if err != nil {
			failed = append(failed, name)
			continue
		}
		if !prof.Frames() {
			if err := probe(ctx, prof.Codec); err != nil {
				failed = append(failed, name)
				continue
			}
		}
		ok = append(ok, name)
	}

	switch {
	case len(failed) == 0:
		return healthCheck{Name: "Encoders", Status: "ok", Summary: joinComma(ok)}
	case len(ok) == 0:
		return healthCheck{Name: "Encoders", Status: "error", Summary: "no configured profile works; png-sequence needs no encoder"}
	}
	return healthCheck{Name: "Encoders", Status: "warning", Summary: fmt.Sprintf("%s unavailable, exports fall back to %s", joinComma(failed), ok[0])}
}

func checkProject(path string) healthCheck {
	pf, err := engine.ReadProjectFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return healthCheck{Name: "Project", Status: "warning", Summary: "no project.json yet (run reelcut init)"}
		}
		return healthCheck{Name: "Project", Status: "error", Summary: err.Error()}
	}

	known := make(map[string]bool, len(pf.MediaLibrary))
	for _, a := range pf.MediaLibrary {
		known[a.ID] = true
	}
	dangling := 0
	for _, c := range pf.Clips {
		if c.MediaID != "" && !known[c.MediaID] {
			dangling++
		}
	}

	summary := fmt.Sprintf("%d clips, %d media, %s", len(pf.Clips), len(pf.MediaLibrary), timeline.FormatTime(pf.Duration))
	if dangling > 0 {
		return healthCheck{Name: "Project", Status: "warning", Summary: fmt.Sprintf("%s; %d clips reference removed media", summary, dangling)}
	}
	return healthCheck{Name: "Project", Status: "ok", Summary: summary}
}

func writeDoctorResult(cmd *cobra.Command, projectRoot string, checks []healthCheck) error {
	if outputJSON {
		data, err := json.MarshalIndent(checks, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	}

	bold := lipgloss.NewStyle().Bold(true).Inline(true)
	green := lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Inline(true)
	yellow := lipgloss.NewStyle().Foreground(lipgloss.Color("3")).Inline(true)
	red := lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Inline(true)

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, bold.Render("PROJECT HEALTH:")+" "+projectRoot)

	for _, c := range checks {
		var statusStr string
		switch c.Status {
		case "ok":
			statusStr = green.Render("OK")
		case "warning":
			statusStr = yellow.Render("WARN")
		case "error":
			statusStr = red.Render("ERROR")
		}
		fmt.Fprintf(out, "  %-12s %s    %s\n", c.Name+":", statusStr, c.Summary)
	}

	return nil
}

func joinComma(items []string) string {
	return strings.Join(items, ", ")
}
