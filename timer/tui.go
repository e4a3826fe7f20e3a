package timer

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/hyperworkchat/hyperwork/internal/config"
)

const (
	padding  = 2
	maxWidth = 80
)

// Settings controls the terminal timer's side effects and appearance.
type Settings struct {
	SessionCmd     string
	WorkColor      string
	BreakColor     string
	Notify         bool
	TwentyFourHour bool
}

// SettingsFromConfig extracts the timer settings from cfg.
func SettingsFromConfig(cfg *config.Config) Settings {
	return Settings{
		SessionCmd:     cfg.Settings.Cmd,
		Notify:         cfg.Notifications.Enabled,
		WorkColor:      cfg.Display.WorkColor,
		BreakColor:     cfg.Display.BreakColor,
		TwentyFourHour: cfg.Display.TwentyFourHour,
	}
}

func (s Settings) timeFormat() string {
	if s.TwentyFourHour {
		return "15:04:05"
	}

	return "03:04:05 PM"
}

type keymap struct {
	start      key.Binding
	togglePlay key.Binding
	stop       key.Binding
	quit       key.Binding
}

var defaultKeymap = keymap{
	start: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "start"),
	),
	togglePlay: key.NewBinding(
		key.WithKeys("p"),
		key.WithHelp("p", "pause/resume"),
	),
	stop: key.NewBinding(
		key.WithKeys("x"),
		key.WithHelp("x", "stop"),
	),
	quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

type styles struct {
	Base      lipgloss.Style
	Work      lipgloss.Style
	Break     lipgloss.Style
	Main      lipgloss.Style
	Secondary lipgloss.Style
	Hint      lipgloss.Style
	Error     lipgloss.Style
}

func newStyles(s Settings) styles {
	return styles{
		Base: lipgloss.NewStyle().Padding(1, padding),
		Work: lipgloss.NewStyle().
			Foreground(lipgloss.Color(s.WorkColor)).
			Bold(true).
			MarginRight(1).
			SetString("[Work]"),
		Break: lipgloss.NewStyle().
			Foreground(lipgloss.Color(s.BreakColor)).
			Bold(true).
			MarginRight(1).
			SetString("[Break]"),
		Main:      lipgloss.NewStyle().Bold(true),
		Secondary: lipgloss.NewStyle().Foreground(lipgloss.Color("#888888")),
		Hint:      lipgloss.NewStyle().Foreground(lipgloss.Color("#626262")),
		Error:     lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5F87")),
	}
}

type (
	tickMsg time.Time

	// transitionMsg carries the outcome of an engine operation run outside
	// the event loop
	transitionMsg struct {
		err      error
		tr       Transition
		changed  bool
		fromTick bool
	}

	pointsMsg int
)

// PointsWatcher calls fn with the user's new point total every time it
// changes, until the returned function is called.
type PointsWatcher func(ctx context.Context, fn func(total int)) (func(), error)

// ModelOption customises the terminal timer.
type ModelOption func(*Model)

// WithPoints shows the user's point total, starting at total and kept
// current by watch.
func WithPoints(total int, watch PointsWatcher) ModelOption {
	return func(m *Model) {
		m.points = total
		m.showPoints = true
		m.watch = watch
	}
}

// Model is the bubbletea model of the terminal timer.
type Model struct {
	ctx        context.Context
	engine     *Engine
	watch      PointsWatcher
	help       help.Model
	progress   progress.Model
	style      styles
	err        error
	settings   Settings
	snap       Snapshot
	points     int
	showPoints bool
	// busy is set while a key-triggered engine operation is in flight
	busy     bool
	quitting bool
}

// NewModel returns a terminal UI for e.
func NewModel(ctx context.Context, e *Engine, s Settings, opts ...ModelOption) *Model {
	m := &Model{
		ctx:      ctx,
		engine:   e,
		settings: s,
		help:     help.New(),
		progress: progress.New(progress.WithDefaultGradient()),
		style:    newStyles(s),
		snap:     e.Snapshot(),
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

func tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m *Model) Init() tea.Cmd {
	return tick()
}

// Run starts the terminal timer and blocks until the user quits. An active
// session is stopped before returning.
func Run(
	ctx context.Context,
	e *Engine,
	s Settings,
	in io.Reader,
	out io.Writer,
	opts ...ModelOption,
) error {
	m := NewModel(ctx, e, s, opts...)

	p := tea.NewProgram(
		m,
		tea.WithContext(ctx),
		tea.WithInput(in),
		tea.WithOutput(out),
	)

	if m.watch != nil {
		stop, err := m.watch(ctx, func(total int) {
			p.Send(pointsMsg(total))
		})
		if err != nil {
			slog.WarnContext(ctx, "live points are unavailable", slog.Any("error", err))
		} else {
			defer stop()
		}
	}

	_, err := p.Run()

	m.stopActive()

	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}

	return err
}

// RunHeadless drives e without a UI, printing transitions to w until ctx is
// cancelled. The first session starts immediately.
func RunHeadless(ctx context.Context, e *Engine, s Settings, w io.Writer) error {
	e.OnTransition(func(tr Transition) {
		printTransition(w, tr, s.timeFormat())
		handleCompletion(ctx, tr, s)
		retryPoints(ctx, tr)
	})

	if _, err := e.Start(ctx); err != nil {
		return err
	}

	err := e.Run(ctx)

	stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	if snap := e.Snapshot(); snap.State != Idle {
		_, _ = e.Stop(stopCtx)
	}

	if errors.Is(err, context.Canceled) {
		return nil
	}

	return err
}

// stopActive stops a running or paused session when the UI exits.
func (m *Model) stopActive() {
	if m.engine.Snapshot().State == Idle {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(m.ctx), 5*time.Second)
	defer cancel()

	_, err := m.engine.Stop(ctx)
	if err != nil {
		slog.Warn("stopping session on exit failed", slog.Any("error", err))
	}
}

// retryPoints retries a failed points write once. A second failure is only
// logged; the profile total is read back from the store on the next fetch.
func retryPoints(ctx context.Context, tr Transition) {
	for _, w := range tr.Failed() {
		if w.Op != OpPoints {
			continue
		}

		res := w.Retry(ctx)
		if !res.OK() {
			slog.ErrorContext(ctx, "points were not saved",
				slog.String("session_id", res.SessionID),
				slog.Int("points", tr.Points),
				slog.Any("error", res.Err),
			)
		}
	}
}

// handleCompletion sends the completion notification and runs the session
// command.
func handleCompletion(ctx context.Context, tr Transition, s Settings) {
	if !completed(tr) {
		return
	}

	if s.Notify {
		if err := notify(tr); err != nil {
			slog.WarnContext(ctx, "unable to display notification", slog.Any("error", err))
		}
	}

	if err := runSessionCmd(ctx, s.SessionCmd); err != nil {
		slog.WarnContext(ctx, "session command failed", slog.Any("error", err))
	}
}
