// Package tui renders a live view of a run while its workers are busy.
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/datallboy/fanout/internal/domain"
)

// PollFunc returns the current state of the run being watched.
type PollFunc func() (*domain.Run, error)

type tickMsg time.Time

// Model polls a run on an interval and draws one dot per worker.
type Model struct {
	poll     PollFunc
	interval time.Duration

	Run      *domain.Run
	Err      error
	Quitting bool

	spinner  spinner.Model
	progress progress.Model
}

func NewModel(poll PollFunc, interval time.Duration) Model {
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = spinnerStyle

	p := progress.New(
		progress.WithDefaultGradient(),
		progress.WithWidth(50),
	)

	return Model{
		poll:     poll,
		interval: interval,
		spinner:  s,
		progress: p,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.refresh)
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// refresh polls immediately so the first frame is not empty.
func (m Model) refresh() tea.Msg {
	return tickMsg(time.Now())
}

// Finished reports whether the watched run has stopped running.
func (m Model) Finished() bool {
	return m.Run != nil && m.Run.Status != domain.StatusRunning
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.progress.Width = max(min(msg.Width-20, 60), 10)
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			m.Quitting = true
			return m, tea.Quit
		}
		return m, nil

	case tickMsg:
		run, err := m.poll()
		if err != nil {
			m.Err = err
			return m, tea.Quit
		}
		m.Run = run
		if m.Finished() {
			return m, tea.Quit
		}
		return m, m.tick()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m Model) View() string {
	var b strings.Builder

	if m.Err != nil {
		b.WriteString(errorStyle.Render(fmt.Sprintf("%s %v", iconError, m.Err)))
		b.WriteString("\n")
		return b.String()
	}

	if m.Run == nil {
		b.WriteString(m.spinner.View() + " waiting for run...\n")
		return b.String()
	}

	b.WriteString(titleStyle.Render("fanout run " + m.Run.ID))
	b.WriteString("\n")

	if m.Finished() {
		style := successStyle
		icon := iconSuccess
		if m.Run.Status == domain.StatusIncomplete {
			style = errorStyle
			icon = iconError
		}
		b.WriteString(style.Render(fmt.Sprintf("%s %s", icon, m.Run.Status)))
		b.WriteString("\n")
		return b.String()
	}

	running := 0
	var dots []string
	for _, alive := range m.Run.Alive {
		if alive {
			running++
			dots = append(dots, aliveStyle.Render(iconAlive))
		} else {
			dots = append(dots, doneStyle.Render(iconDone))
		}
	}

	total := len(m.Run.Alive)
	b.WriteString(fmt.Sprintf("%s %s\n", m.spinner.View(),
		statusStyle.Render(fmt.Sprintf("%d/%d workers running, %d items", running, total, m.Run.Units))))

	percent := 1.0
	if total > 0 {
		percent = float64(total-running) / float64(total)
	}
	b.WriteString(m.progress.ViewAs(percent))
	b.WriteString("\n")
	b.WriteString(strings.Join(dots, " "))
	b.WriteString("\n")
	b.WriteString(helpStyle.Render("q to stop watching; workers keep running"))
	b.WriteString("\n")

	return b.String()
}
