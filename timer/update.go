package timer

import (
	"context"
	"errors"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
)

// run performs op off the event loop. A failed points write is retried
// there too.
func (m *Model) run(op func(context.Context) (Transition, error)) tea.Cmd {
	m.busy = true

	return func() tea.Msg {
		tr, err := op(m.ctx)
		if err == nil {
			retryPoints(m.ctx, tr)
		}

		return transitionMsg{tr: tr, err: err, changed: err == nil}
	}
}

// advance ticks the engine by one second off the event loop.
func (m *Model) advance() tea.Cmd {
	return func() tea.Msg {
		tr, changed := m.engine.Tick(m.ctx)
		if changed {
			retryPoints(m.ctx, tr)
		}

		return transitionMsg{tr: tr, changed: changed, fromTick: true}
	}
}

func (m *Model) handleTransition(msg transitionMsg) (tea.Model, tea.Cmd) {
	m.snap = m.engine.Snapshot()

	var next tea.Cmd
	if msg.fromTick {
		next = tick()
	} else {
		m.busy = false
	}

	if msg.err != nil {
		// a key pressed twice before the first operation finished
		if !errors.Is(msg.err, ErrInvalidTransition) {
			m.err = msg.err
		}

		return m, next
	}

	if !msg.changed {
		return m, next
	}

	return m, tea.Batch(next, m.afterTransition(msg.tr))
}

// afterTransition surfaces failed writes and schedules the completion side
// effects.
func (m *Model) afterTransition(tr Transition) tea.Cmd {
	m.err = nil

	for _, w := range tr.Failed() {
		if w.Op != OpPoints {
			m.err = w.Err
		}
	}

	if !completed(tr) {
		return nil
	}

	return func() tea.Msg {
		handleCompletion(m.ctx, tr, m.settings)
		return nil
	}
}

func (m *Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, defaultKeymap.quit) {
		m.quitting = true

		// Run stops the active session once the program exits
		return m, tea.Quit
	}

	if m.busy {
		return m, nil
	}

	switch {
	case key.Matches(msg, defaultKeymap.start):
		if m.snap.State != Idle && m.snap.State != Chaining {
			return m, nil
		}

		return m, m.run(m.engine.Start)

	case key.Matches(msg, defaultKeymap.togglePlay):
		if m.snap.State != Running && m.snap.State != Paused {
			return m, nil
		}

		return m, m.run(m.engine.Toggle)

	case key.Matches(msg, defaultKeymap.stop):
		if m.snap.State == Idle {
			return m, nil
		}

		return m, m.run(m.engine.Stop)
	}

	return m, nil
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		return m, m.advance()

	case transitionMsg:
		return m.handleTransition(msg)

	case pointsMsg:
		m.points = int(msg)
		return m, nil

	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		m.progress.Width = msg.Width - padding*2 - 4
		if m.progress.Width > maxWidth {
			m.progress.Width = maxWidth
		}

		return m, nil

	// FrameMsg is sent when the progress bar wants to animate itself
	case progress.FrameMsg:
		progressModel, cmd := m.progress.Update(msg)
		m.progress, _ = progressModel.(progress.Model)

		return m, cmd
	}

	return m, nil
}
