// Package ui provides the terminal UI for a briefing playback session: the
// section header, a playback progress bar, and the live caption view that
// highlights the sentence currently being spoken.
package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"github.com/dltmdgh0611/ownbrief/briefing"
	"github.com/dltmdgh0611/ownbrief/briefing/timeline"
)

// NewProgram returns a new Tea program rendering the given pipeline run.
func NewProgram(p *briefing.Pipeline, sections int) *tea.Program {
	m := newModel(p, sections)
	return tea.NewProgram(m, tea.WithAltScreen())
}

// state is the top-level session state.
type state int

const (
	statePreparing state = iota
	statePlaying
	stateBetween // idling between sections, interlude playing
	stateDone
	stateFailed
)

type (
	pipelineEventMsg briefing.Event
	streamClosedMsg  struct{}
)

type model struct {
	pipeline *briefing.Pipeline
	sections int

	state  state
	paused bool
	width  int
	height int

	index    int
	title    string
	script   string
	timeline timeline.Timeline
	elapsed  time.Duration
	duration time.Duration

	fatalErr error

	spinner  spinner.Model
	progress progress.Model
}

func newModel(p *briefing.Pipeline, sections int) model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = subtleStyle

	pb := progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage())

	return model{
		pipeline: p,
		sections: sections,
		state:    statePreparing,
		index:    -1,
		spinner:  sp,
		progress: pb,
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, waitForEvent(m.pipeline.Events()))
}

// waitForEvent blocks on the pipeline's event stream and delivers the next
// event as a Tea message.
func waitForEvent(events <-chan briefing.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return streamClosedMsg{}
		}
		return pipelineEventMsg(ev)
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.pipeline.Stop()
			return m, nil
		case " ", "p":
			if m.state == statePlaying || m.state == stateBetween {
				if m.paused {
					m.pipeline.Resume() //nolint:errcheck
				} else {
					m.pipeline.Pause() //nolint:errcheck
				}
				m.paused = !m.paused
			}
			return m, nil
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.progress.Width = min(msg.Width-8, 60)
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case progress.FrameMsg:
		pm, cmd := m.progress.Update(msg)
		m.progress = pm.(progress.Model)
		return m, cmd

	case pipelineEventMsg:
		return m.handleEvent(briefing.Event(msg))

	case streamClosedMsg:
		if m.state != stateDone && m.state != stateFailed {
			m.state = stateDone
		}
		return m, tea.Quit
	}

	return m, nil
}

func (m model) handleEvent(ev briefing.Event) (tea.Model, tea.Cmd) {
	next := waitForEvent(m.pipeline.Events())

	switch ev.Kind {
	case briefing.EventSectionStarted:
		m.state = statePlaying
		m.index = ev.Index
		m.title = ev.Title
		m.script = ev.Script
		m.timeline = ev.Timeline
		m.elapsed = 0
		m.duration = ev.Duration
		return m, tea.Batch(next, m.progress.SetPercent(0))

	case briefing.EventTimeUpdate:
		m.elapsed = ev.Elapsed
		m.duration = ev.Duration
		var cmd tea.Cmd
		if m.duration > 0 {
			cmd = m.progress.SetPercent(float64(m.elapsed) / float64(m.duration))
		}
		return m, tea.Batch(next, cmd)

	case briefing.EventSectionEnded:
		m.elapsed = m.duration
		return m, next

	case briefing.EventPreparing:
		m.state = stateBetween
		m.title = ev.Title
		return m, next

	case briefing.EventCompleted:
		m.state = stateDone
		return m, next

	case briefing.EventStopped:
		m.state = stateDone
		return m, tea.Batch(next, tea.Quit)

	case briefing.EventFailed:
		m.state = stateFailed
		m.fatalErr = ev.Err
		return m, tea.Batch(next, tea.Quit)
	}

	return m, next
}

func (m model) View() string {
	if m.width == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(m.headerView())
	b.WriteString("\n\n")

	switch m.state {
	case statePreparing:
		b.WriteString(indent(m.spinner.View() + subtleStyle.Render(" preparing your briefing…")))

	case stateBetween:
		b.WriteString(indent(m.spinner.View() + subtleStyle.Render(fmt.Sprintf(" up next: %s", m.title))))

	case statePlaying:
		b.WriteString(indent(m.progress.View() + "  " + clockStyle.Render(
			fmt.Sprintf("%s / %s", formatClock(m.elapsed), formatClock(m.duration)))))
		b.WriteString("\n\n")
		b.WriteString(RenderCaption(m.timeline, m.elapsed, captionWidth(m.width)))
		if m.paused {
			b.WriteString("\n\n")
			b.WriteString(indent(pausedStyle.Render("⏸ paused")))
		}

	case stateDone:
		b.WriteString(indent(doneStyle.Render("✓ briefing complete")))

	case stateFailed:
		msg := "briefing failed"
		if m.fatalErr != nil {
			msg = m.fatalErr.Error()
		}
		b.WriteString(indent(errorStyle.Render("✗ " + msg)))
	}

	b.WriteString("\n\n")
	b.WriteString(indent(helpStyle.Render("space: pause/resume • q: quit")))
	b.WriteString("\n")
	return b.String()
}

func (m model) headerView() string {
	title := m.title
	if title == "" {
		title = "Your briefing"
	}
	head := titleStyle.Render(title)
	if m.index >= 0 && m.sections > 0 {
		head += counterStyle.Render(fmt.Sprintf("  %d/%d", m.index+1, m.sections))
	}
	return indent(head)
}

func captionWidth(width int) int {
	w := width - 4
	if w > 72 {
		w = 72
	}
	if w < 20 {
		w = 20
	}
	return w
}

// RenderCaption renders the paragraph active at the given playback position,
// word-wrapped to width, with the spoken sentence highlighted.
func RenderCaption(tl timeline.Timeline, elapsed time.Duration, width int) string {
	pi := tl.ParagraphAt(elapsed)
	if pi < 0 || pi >= len(tl.Paragraphs) {
		return ""
	}
	para := tl.Paragraphs[pi]

	// SentenceAt indexes the flat sentence list; shift it into this
	// paragraph's range.
	active := tl.SentenceAt(elapsed)
	for i := 0; i < pi; i++ {
		active -= len(tl.Paragraphs[i].Sentences)
	}

	var b strings.Builder
	for i, s := range para.Sentences {
		if i > 0 {
			b.WriteString(" ")
		}
		if i == active {
			b.WriteString(activeSentenceStyle.Render(s.Text))
		} else {
			b.WriteString(sentenceStyle.Render(s.Text))
		}
	}
	if len(para.Sentences) == 0 {
		b.WriteString(sentenceStyle.Render(para.Text))
	}

	return indent(wordwrap.String(b.String(), width))
}

func formatClock(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d.Seconds())
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}

func indent(s string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = "  " + l
	}
	return strings.Join(lines, "\n")
}

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.AdaptiveColor{Light: "#1a1a1a", Dark: "#dddddd"})
	counterStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#909090", Dark: "#626262"})
	subtleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#909090", Dark: "#626262"})
	clockStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#909090", Dark: "#626262"})
	sentenceStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#606060", Dark: "#868686"})
	activeSentenceStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.AdaptiveColor{Light: "#1a1a1a", Dark: "#ffffff"})
	pausedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFF00"))
	doneStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#00FF00"))
	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF0000"))
	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#b0b0b0", Dark: "#4a4a4a"})
)
