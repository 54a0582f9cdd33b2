package tui

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"reelcut/internal/export"
)

// ExportSetupResult holds the values selected in the export carousel.
type ExportSetupResult struct {
	Cancelled   bool
	Profile     string
	Resolution  string
	FPS         int
	BitrateKbps int
}

// ExportDefaults pre-selects carousel values.
type ExportDefaults struct {
	Profile     string
	Resolution  string
	FPS         int
	BitrateKbps int
}

// ProbeFunc reports whether ffmpeg can encode with codec.
type ProbeFunc func(ctx context.Context, codec string) error

var profileHints = map[string]string{
	"webm-vp9":     "VP9 in WebM. Small files, plays in every browser.",
	"mp4-h264":     "H.264 in MP4. Widest player and device support.",
	"png-sequence": "Numbered PNG frames. Lossless, for compositing\nin another tool. No encoder needed.",
}

var resolutionInfo = []struct{ name, desc string }{
	{"720p", "HD 1280×720, smaller files and faster renders"},
	{"1080p", "Full HD 1920×1080, recommended for most projects"},
	{"4k", "UHD 3840×2160, large files and slow renders"},
}

var fpsInfo = []struct{ name, desc string }{
	{"24", "Cinematic, film standard"},
	{"25", "PAL broadcast, the editor default"},
	{"30", "Web and NTSC broadcast"},
	{"60", "Smooth motion for pans and zooms"},
}

const fpsNote = "Each frame is composited separately, so render time\n" +
	"grows with the frame rate."

var bitrateInfo = []struct{ name, desc string }{
	{"4000", "Low, fine for previews and stills-heavy edits"},
	{"8000", "Good, solid for 1080p"},
	{"16000", "High, strong 1080p or light 4k"},
	{"24000", "Very high, for 4k masters"},
}

const bitrateNote = "Ignored by the PNG sequence profile."

// probeResultMsg carries which profiles passed the encoder probe.
type probeResultMsg struct {
	available []string
	failures  map[string]error
}

type setupTickMsg struct{}

type carouselRow struct {
	label   string
	options []string
	current int
}

type exportSetupModel struct {
	rows       []carouselRow
	focused    int
	done       bool
	cancelled  bool
	current    ExportDefaults
	probe      ProbeFunc
	probing    bool
	probeFrame int
	failures   map[string]error
}

func newExportSetupModel(probe ProbeFunc, current ExportDefaults) exportSetupModel {
	placeholder := []string{"..."}
	return exportSetupModel{
		rows: []carouselRow{
			{label: "Profile", options: placeholder},
			{label: "Resolution", options: placeholder},
			{label: "FPS", options: placeholder},
			{label: "Bitrate kbps", options: placeholder},
		},
		current: current,
		probe:   probe,
		probing: true,
	}
}

func (m exportSetupModel) Init() tea.Cmd {
	return tea.Batch(doProbe(m.probe), setupTick())
}

func doProbe(probe ProbeFunc) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		return probeProfiles(ctx, probe)
	}
}

func probeProfiles(ctx context.Context, probe ProbeFunc) probeResultMsg {
	msg := probeResultMsg{failures: map[string]error{}}
	for _, name := range export.ProfileNames() {
		prof, _ := export.LookupProfile(name)
		if !prof.Frames() && probe != nil {
			if err := probe(ctx, prof.Codec); err != nil {
				msg.failures[name] = err
				continue
			}
		}
		msg.available = append(msg.available, name)
	}
	return msg
}

func setupTick() tea.Cmd {
	return tea.Tick(tickInterval, func(_ time.Time) tea.Msg {
		return setupTickMsg{}
	})
}

func populateRows(available []string, current ExportDefaults) []carouselRow {
	if len(available) == 0 {
		available = []string{"png-sequence"}
	}
	resolutions := export.ResolutionNames()
	fpsList := []string{"24", "25", "30", "60"}
	bitrates := []string{"4000", "8000", "16000", "24000"}

	return []carouselRow{
		{label: "Profile", options: available, current: findIdx(available, current.Profile, 0)},
		{label: "Resolution", options: resolutions, current: findIdx(resolutions, current.Resolution, 1)},
		{label: "FPS", options: fpsList, current: findIdx(fpsList, strconv.Itoa(current.FPS), 1)},
		{label: "Bitrate kbps", options: bitrates, current: findIdx(bitrates, strconv.Itoa(current.BitrateKbps), 1)},
	}
}

func findIdx(options []string, value string, defaultIdx int) int {
	if value == "" {
		return defaultIdx
	}
	for i, o := range options {
		if strings.EqualFold(o, value) {
			return i
		}
	}
	return defaultIdx
}

func (m exportSetupModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case probeResultMsg:
		m.probing = false
		m.failures = msg.failures
		m.rows = populateRows(msg.available, m.current)
		return m, nil

	case setupTickMsg:
		if m.probing {
			m.probeFrame++
			return m, setupTick()
		}
		return m, nil

	case tea.KeyMsg:
		if m.probing {
			if msg.String() == "ctrl+c" {
				m.cancelled = true
				return m, tea.Quit
			}
			return m, nil
		}
		switch msg.String() {
		case "up", "k":
			if m.focused > 0 {
				m.focused--
			}
		case "down", "j":
			if m.focused < len(m.rows)-1 {
				m.focused++
			}
		case "left", "h":
			row := m.rows[m.focused]
			row.current = (row.current - 1 + len(row.options)) % len(row.options)
			m.rows[m.focused] = row
		case "right", "l":
			row := m.rows[m.focused]
			row.current = (row.current + 1) % len(row.options)
			m.rows[m.focused] = row
		case "enter":
			m.done = true
			return m, tea.Quit
		case "esc", "q", "ctrl+c":
			m.cancelled = true
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m exportSetupModel) View() string {
	faint := lipgloss.NewStyle().Faint(true)

	if m.done {
		var sb strings.Builder
		sb.WriteString("\n")
		for _, row := range m.rows {
			sb.WriteString(fmt.Sprintf("%s %s\n",
				faint.Render(fmt.Sprintf("  %-14s", row.label)),
				row.options[row.current],
			))
		}
		sb.WriteString("\n")
		return sb.String()
	}

	if m.cancelled {
		return faint.Render("  cancelled") + "\n"
	}

	focused := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("4"))

	var sb strings.Builder
	sb.WriteString("\n")
	for i, row := range m.rows {
		prefix := "  "
		label := faint.Render(fmt.Sprintf("%-14s", row.label))
		value := fmt.Sprintf("%-14s", row.options[row.current])
		switch {
		case m.probing:
			value = faint.Render(value)
		case i == m.focused:
			prefix = "▸ "
			label = focused.Render(fmt.Sprintf("%-14s", row.label))
		}
		sb.WriteString(fmt.Sprintf("%s%s ←  %s→\n", prefix, label, value))
	}

	sb.WriteString("\n")
	sb.WriteString(m.renderHelpPanel())
	sb.WriteString("\n")

	if !m.probing {
		sb.WriteString(faint.Render("  [↑↓] Navigate  [←→] Change  [Enter] Save  [Esc] Cancel"))
		sb.WriteString("\n")
	}
	return sb.String()
}

func (m exportSetupModel) renderHelpPanel() string {
	panelStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		Padding(0, 1).
		BorderForeground(lipgloss.Color("8"))

	if m.probing {
		frame := spinnerFrames[m.probeFrame%len(spinnerFrames)]
		return panelStyle.Render(fmt.Sprintf("%s Probing encoders...", frame))
	}

	switch m.focused {
	case 0:
		return panelStyle.Render(m.profilePanelContent())
	case 1:
		return panelStyle.Render(listPanel(m.value(1), resolutionInfo, ""))
	case 2:
		return panelStyle.Render(listPanel(m.value(2), fpsInfo, fpsNote))
	case 3:
		return panelStyle.Render(listPanel(m.value(3), bitrateInfo, bitrateNote))
	}
	return ""
}

func (m exportSetupModel) value(row int) string {
	return m.rows[row].options[m.rows[row].current]
}

func (m exportSetupModel) profilePanelContent() string {
	faint := lipgloss.NewStyle().Faint(true)
	bold := lipgloss.NewStyle().Bold(true)
	red := StatusStyle("error")
	current := m.value(0)

	var sb strings.Builder
	for i, name := range export.ProfileNames() {
		if i > 0 {
			sb.WriteString("\n")
		}
		prefix, nameStr := "  ", faint.Render(fmt.Sprintf("%-13s", name))
		if name == current {
			prefix, nameStr = "▸ ", bold.Render(fmt.Sprintf("%-13s", name))
		}
		lines := strings.Split(profileHints[name], "\n")
		if err, failed := m.failures[name]; failed {
			lines = []string{red.Render("unavailable: " + err.Error())}
		}
		for j, line := range lines {
			if j == 0 {
				sb.WriteString(fmt.Sprintf("%s%s  %s\n", prefix, nameStr, line))
			} else {
				sb.WriteString(fmt.Sprintf("%17s%s\n", "", line))
			}
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}

func listPanel(current string, items []struct{ name, desc string }, note string) string {
	faint := lipgloss.NewStyle().Faint(true)
	bold := lipgloss.NewStyle().Bold(true)
	var sb strings.Builder
	for _, info := range items {
		prefix, nameStr := "  ", faint.Render(fmt.Sprintf("%-6s", info.name))
		if info.name == current {
			prefix, nameStr = "▸ ", bold.Render(fmt.Sprintf("%-6s", info.name))
		}
		sb.WriteString(fmt.Sprintf("%s%s  %s\n", prefix, nameStr, info.desc))
	}
	if note != "" {
		sb.WriteString("\n")
		for _, line := range strings.Split(note, "\n") {
			sb.WriteString(faint.Render("  "+line) + "\n")
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}

func (m exportSetupModel) result() ExportSetupResult {
	if m.cancelled || m.probing {
		return ExportSetupResult{Cancelled: true}
	}
	fps, _ := strconv.Atoi(m.value(2))
	bitrate, _ := strconv.Atoi(m.value(3))
	return ExportSetupResult{
		Profile:     m.value(0),
		Resolution:  m.value(1),
		FPS:         fps,
		BitrateKbps: bitrate,
	}
}

// RunExportSetup probes the encoders and runs the interactive carousel.
// Rows stay greyed out until the probe finishes.
func RunExportSetup(w io.Writer, probe ProbeFunc, current ExportDefaults) (ExportSetupResult, error) {
	model := newExportSetupModel(probe, current)
	p := tea.NewProgram(model, tea.WithOutput(w))
	finalModel, err := p.Run()
	if err != nil {
		return ExportSetupResult{}, err
	}
	return finalModel.(exportSetupModel).result(), nil
}
