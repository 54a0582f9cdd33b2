package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
)

const tickInterval = 150 * time.Millisecond

// tickMsg drives the spinner and marquee.
type tickMsg time.Time

// Column is one column of the job table. Width is a minimum; the header
// widens it when longer.
type Column struct {
	Header string
	Width  int
}

func (c Column) width() int {
	return max(len(c.Header), c.Width)
}

// Row holds the cell values of one job, keyed for RowUpdateMsg and
// FrameProgressMsg.
type Row struct {
	Key    string
	Fields []string
}

// ProgressModel renders a table of export jobs with a frame progress bar for
// the job currently rendering. A STATUS column is styled by status and
// drives the done/total counter; a FRAMES column receives frame counts.
type ProgressModel struct {
	title   string
	columns []Column
	rows    []Row
	byKey   map[string]int

	statusCol int
	framesCol int

	bar      progress.Model
	fraction float64
	label    string

	tick int
	done bool
	err  error
}

// NewProgressModel creates a model with the given columns and no rows.
func NewProgressModel(title string, columns []Column) ProgressModel {
	m := ProgressModel{
		title:     title,
		columns:   columns,
		byKey:     make(map[string]int),
		statusCol: -1,
		framesCol: -1,
		bar:       progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
	}
	for i, c := range columns {
		switch strings.ToUpper(c.Header) {
		case "STATUS":
			m.statusCol = i
		case "FRAMES":
			m.framesCol = i
		}
	}
	return m
}

// AddRow registers a job before the program starts. Missing fields are
// left blank.
func (m *ProgressModel) AddRow(key string, fields []string) {
	cells := make([]string, len(m.columns))
	copy(cells, fields)
	m.byKey[key] = len(m.rows)
	m.rows = append(m.rows, Row{Key: key, Fields: cells})
}

func scheduleTick() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// Init satisfies the tea.Model interface.
func (m ProgressModel) Init() tea.Cmd {
	return scheduleTick()
}

// Update satisfies the tea.Model interface.
func (m ProgressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		m.tick++
		if m.done {
			return m, nil
		}
		return m, scheduleTick()
	case RowUpdateMsg:
		m.setFields(msg.Key, msg.Fields)
	case FrameProgressMsg:
		m.fraction = min(max(msg.Fraction, 0), 1)
		m.label = msg.Key
		if m.framesCol >= 0 {
			m.setCell(msg.Key, m.framesCol, fmt.Sprintf("%d/%d", msg.Frame, msg.Frames))
		}
	case WorkDoneMsg:
		m.done = true
		return m, tea.Quit
	case ErrorMsg:
		m.err = msg.Err
		m.done = true
		return m, tea.Quit
	case tea.KeyMsg:
		if k := msg.String(); k == "ctrl+c" || k == "q" {
			m.done = true
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m *ProgressModel) setFields(key string, fields map[string]string) {
	for i, c := range m.columns {
		if v, ok := fields[c.Header]; ok {
			m.setCell(key, i, v)
		}
	}
}

func (m *ProgressModel) setCell(key string, col int, value string) {
	if idx, ok := m.byKey[key]; ok {
		m.rows[idx].Fields[col] = value
	}
}

// View satisfies the tea.Model interface.
func (m ProgressModel) View() string {
	if m.done && m.err != nil {
		return fmt.Sprintf("Error: %v\n", m.err)
	}
	var b strings.Builder
	m.renderTable(&b)
	if !m.done {
		m.renderFooter(&b)
	}
	return b.String()
}

func (m ProgressModel) renderTable(b *strings.Builder) {
	cells := make([]string, len(m.columns))
	for i, c := range m.columns {
		cells[i] = HeaderStyle.Render(pad(c.Header, c.width()))
	}
	b.WriteString(strings.Join(cells, "  "))
	b.WriteByte('\n')

	for _, row := range m.rows {
		for i, c := range m.columns {
			cells[i] = m.renderCell(row.Fields[i], i, c.width())
		}
		b.WriteString(strings.Join(cells, "  "))
		b.WriteByte('\n')
	}
}

// renderCell scrolls overlong values while work runs and truncates them once
// it is done.
func (m ProgressModel) renderCell(val string, col, width int) string {
	if !m.done && len(strings.TrimSpace(val)) > width {
		val = marqueeText(val, width, m.tick)
	} else {
		val = TruncateWithEllipsis(val, width)
	}
	if col == m.statusCol {
		return StatusStyle(val).Render(pad(val, width))
	}
	return pad(val, width)
}

func (m ProgressModel) renderFooter(b *strings.Builder) {
	finished, total := m.progressCounts()
	fmt.Fprintf(b, "\n%s %s Processing %d/%d", spinnerFrames[m.tick%len(spinnerFrames)], m.bar.ViewAs(m.fraction), finished, total)
	if m.label != "" {
		b.WriteString(" " + m.label)
	}
	b.WriteString("...\n")
}

// progressCounts returns how many rows reached a final status, and the row
// count.
func (m ProgressModel) progressCounts() (finished, total int) {
	total = len(m.rows)
	if m.statusCol < 0 {
		return 0, total
	}
	for _, row := range m.rows {
		if isTerminal(strings.TrimSpace(row.Fields[m.statusCol])) {
			finished++
		}
	}
	return finished, total
}

// Fraction returns the last reported frame fraction.
func (m ProgressModel) Fraction() float64 { return m.fraction }

// Done reports whether the model has finished.
func (m ProgressModel) Done() bool { return m.done }

// Err returns the error that stopped the model, if any.
func (m ProgressModel) Err() error { return m.err }
