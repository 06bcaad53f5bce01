package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"liquidlint/internal/engine"
)

// Сколько строк файлов показывать одновременно.
const maxRows = 12

type progressModel struct {
	title   string
	events  <-chan engine.Event
	final   engine.Stage
	spinner spinner.Model
	prog    progress.Model
	items   []fileItem
	index   map[string]int
	width   int
	done    bool
}

type fileItem struct {
	path     string
	status   string
	stage    engine.Stage
	finished bool
	failed   bool
}

type eventMsg engine.Event
type doneMsg struct{}

// NewProgressModel returns a Bubble Tea model that renders engine progress.
// A file counts as finished once final reports done (StageValidate for
// analysis, StageFix for fixing). The model quits when events is closed.
func NewProgressModel(title string, files []string, events <-chan engine.Event, final engine.Stage) tea.Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))

	prog := progress.New(progress.WithDefaultGradient())
	prog.Width = 76

	items := make([]fileItem, 0, len(files))
	index := make(map[string]int, len(files))
	for i, file := range files {
		items = append(items, fileItem{path: file, status: "queued"})
		index[file] = i
	}
	return &progressModel{
		title:   title,
		events:  events,
		final:   final,
		spinner: sp,
		prog:    prog,
		items:   items,
		index:   index,
		width:   80,
	}
}

func (m *progressModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.listenForEvent())
}

func (m *progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case eventMsg:
		cmd := m.applyEvent(engine.Event(msg))
		return m, tea.Batch(cmd, m.listenForEvent())
	case doneMsg:
		m.done = true
		return m, tea.Quit
	case spinner.TickMsg:
		if m.done {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.WindowSizeMsg:
		if msg.Width > 0 {
			m.width = msg.Width
			m.prog.Width = msg.Width - 4
		}
		return m, nil
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
	case progress.FrameMsg:
		progressModel, cmd := m.prog.Update(msg)
		m.prog = progressModel.(progress.Model)
		return m, cmd
	}
	return m, nil
}

func (m *progressModel) View() string {
	if len(m.items) == 0 {
		return ""
	}
	finished, failed, queued := m.counts()
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("7"))
	header := fmt.Sprintf("%s (%d/%d)", m.title, finished, len(m.items))
	if m.done {
		header = fmt.Sprintf("done: %s", header)
	} else {
		header = fmt.Sprintf("%s %s", m.spinner.View(), header)
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(header))
	b.WriteString("\n\n")

	nameWidth := max(m.width-12-4, 20)
	rows := 0
	for _, item := range m.items {
		// длинные прогоны: показываем только активные и упавшие
		if len(m.items) > maxRows && (item.status == "queued" || (item.finished && !item.failed)) {
			continue
		}
		if rows == maxRows {
			break
		}
		statusStyled := styleStatus(item.status).Render(fmt.Sprintf("%12s", item.status))
		fmt.Fprintf(&b, "  %s %s\n", statusStyled, truncate(item.path, nameWidth))
		rows++
	}
	if len(m.items) > maxRows {
		fmt.Fprintf(&b, "  %d done, %d failed, %d queued\n", finished-failed, failed, queued)
	}

	b.WriteString("\n")
	if m.done {
		b.WriteString(m.prog.ViewAs(1.0))
	} else {
		b.WriteString(m.prog.View())
	}
	b.WriteString("\n")

	return b.String()
}

func (m *progressModel) counts() (finished, failed, queued int) {
	for _, item := range m.items {
		switch {
		case item.finished:
			finished++
			if item.failed {
				failed++
			}
		case item.status == "queued":
			queued++
		}
	}
	return finished, failed, queued
}

func (m *progressModel) listenForEvent() tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-m.events
		if !ok {
			return doneMsg{}
		}
		return eventMsg(ev)
	}
}

func (m *progressModel) applyEvent(ev engine.Event) tea.Cmd {
	idx, ok := m.index[ev.File]
	if !ok {
		return nil
	}
	item := &m.items[idx]
	if item.finished {
		return nil
	}
	switch ev.Status {
	case engine.StatusError:
		item.status = "error"
		item.failed = true
		item.finished = true
	case engine.StatusDone:
		if ev.Stage == m.final {
			item.status = "done"
			item.finished = true
		}
	default:
		if label := statusLabel(ev.Stage, ev.Status); label != "" {
			item.status = label
			item.stage = ev.Stage
		}
	}

	total := 0.0
	for _, it := range m.items {
		if it.finished {
			total += 1.0
		} else {
			total += progressFromStage(it.stage, m.final)
		}
	}
	return m.prog.SetPercent(total / float64(len(m.items)))
}

func progressFromStage(stage, final engine.Stage) float64 {
	p := 0.0
	switch stage {
	case engine.StageScan:
		p = 0.1
	case engine.StageValidate:
		p = 0.4
	case engine.StagePerf:
		p = 0.8
	case engine.StageFix:
		p = 0.9
	}
	if final == engine.StageFix && stage != engine.StageFix {
		// анализ занимает первую половину прогона fix
		p /= 2
	}
	return p
}

func statusLabel(stage engine.Stage, status engine.Status) string {
	switch status {
	case engine.StatusQueued:
		return "queued"
	case engine.StatusDone:
		return "done"
	case engine.StatusError:
		return "error"
	case engine.StatusWorking:
		return stageLabel(stage)
	default:
		return ""
	}
}

func stageLabel(stage engine.Stage) string {
	switch stage {
	case engine.StageScan:
		return "scanning"
	case engine.StageValidate:
		return "validating"
	case engine.StagePerf:
		return "profiling"
	case engine.StageFix:
		return "fixing"
	default:
		return ""
	}
}

func styleStatus(status string) lipgloss.Style {
	switch status {
	case "done":
		return lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	case "error":
		return lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	case "scanning", "validating", "profiling", "fixing":
		return lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	default:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("7"))
	}
}

func truncate(value string, width int) string {
	if width <= 0 {
		return value
	}
	if runewidth.StringWidth(value) <= width {
		return value
	}
	if width <= 3 {
		return runewidth.Truncate(value, width, "")
	}
	return runewidth.Truncate(value, width, "...")
}
