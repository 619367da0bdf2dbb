package cli

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jsamuelsen/quotedesk/internal/adapters/http/handlers"
)

// waitFunc blocks until the session settles.
type waitFunc func(ctx context.Context) (handlers.SessionResponse, error)

type settledMsg struct {
	state handlers.SessionResponse
}

type waitErrMsg struct {
	err error
}

// waitModel shows a spinner next to the loading status until the pending
// transition completes.
type waitModel struct {
	ctx     context.Context //nolint:containedctx // bounds the wait command
	wait    waitFunc
	spinner spinner.Model
	status  string

	state    handlers.SessionResponse
	err      error
	done     bool
	quitting bool
}

func newWaitModel(ctx context.Context, initial handlers.SessionResponse, wait waitFunc) waitModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = spinnerStyle

	return waitModel{
		ctx:     ctx,
		wait:    wait,
		spinner: s,
		status:  initial.Status,
		state:   initial,
	}
}

func (m waitModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.await)
}

func (m waitModel) await() tea.Msg {
	state, err := m.wait(m.ctx)
	if err != nil {
		return waitErrMsg{err: err}
	}

	return settledMsg{state: state}
}

func (m waitModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Quit
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)

		return m, cmd

	case settledMsg:
		m.state = msg.state
		m.done = true

		return m, tea.Quit

	case waitErrMsg:
		m.err = msg.err
		return m, tea.Quit
	}

	return m, nil
}

func (m waitModel) View() string {
	switch {
	case m.quitting, m.done, m.err != nil:
		return ""
	default:
		return fmt.Sprintf("%s %s\n", m.spinner.View(), m.status)
	}
}
