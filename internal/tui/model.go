// Package tui is the full-screen front end: a banner, a scrolling output
// pane, a one-line prompt, and a key help footer.
package tui

import (
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/SirJson/mpdshell/internal/dispatch"
	"github.com/SirJson/mpdshell/internal/session"
)

// HelpText is shown in the footer.
const HelpText = "Exit: [Control-C] | Scroll up: [PageUp] | Scroll down: [PageDown]"

const (
	linePrefix    = "» "
	maxScrollback = 5000

	// settleTimeout bounds the wait for replies after close.
	settleTimeout = 2 * time.Second

	// header, two rules, prompt, footer
	chromeHeight = 5
)

type tickMsg time.Time

// settledMsg reports that outstanding commands were flushed after close.
type settledMsg struct{}

// settler is implemented by backends that can wait for outstanding replies.
type settler interface {
	Settle(timeout time.Duration) bool
}

func tickEvery(interval time.Duration) tea.Cmd {
	if interval <= 0 {
		interval = 50 * time.Millisecond
	}
	return tea.Tick(interval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Model is the bubbletea model for a shell session.
type Model struct {
	backend   session.Backend
	pollEvery time.Duration
	theme     theme

	input  textinput.Model
	output viewport.Model
	lines  []string

	width  int
	height int
	ready  bool

	// closing is set once the close command has been submitted.
	closing    bool
	quitReason string
}

// New creates a model that drains backend every pollEvery.
func New(backend session.Backend, pollEvery time.Duration) Model {
	th := newTheme()

	input := textinput.New()
	input.Prompt = "❯ "
	input.PromptStyle = th.prompt
	input.TextStyle = th.command
	input.CharLimit = 4096
	input.ShowSuggestions = true
	input.SetSuggestions(backend.Completions())
	input.Focus()

	output := viewport.New(0, 0)
	output.MouseWheelEnabled = true
	output.MouseWheelDelta = 3
	// PageUp/PageDown are handled here so the prompt keeps every other key.
	output.KeyMap = viewport.KeyMap{}

	return Model{
		backend:   backend,
		pollEvery: pollEvery,
		theme:     th,
		input:     input,
		output:    output,
	}
}

// QuitReason returns why the program ended; empty for a normal exit.
func (m Model) QuitReason() string {
	return m.quitReason
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, tickEvery(m.pollEvery))
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		m.ready = true
		return m, nil

	case tickMsg:
		m.drain()
		if m.backend.IsDead() {
			if !m.closing {
				m.quitReason = session.ResetReason
			}
			return m, tea.Quit
		}
		return m, tickEvery(m.pollEvery)

	case settledMsg:
		m.drain()
		return m, tea.Quit

	case tea.MouseMsg:
		var cmd tea.Cmd
		m.output, cmd = m.output.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "ctrl+q":
			return m, tea.Quit
		case "pgup":
			m.output.PageUp()
			return m, nil
		case "pgdown":
			m.output.PageDown()
			return m, nil
		case "enter":
			return m.submit()
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	m.styleInput()
	return m, cmd
}

func (m Model) submit() (tea.Model, tea.Cmd) {
	if m.backend.IsDead() {
		m.quitReason = session.ResetReason
		return m, tea.Quit
	}

	line := m.input.Value()
	m.input.Reset()
	m.styleInput()
	res := m.backend.Submit(line)
	m.drain()
	if res.Terminate {
		m.closing = true
		return m, m.settle()
	}
	return m, nil
}

// settle waits, off the UI goroutine, until commands sent before close
// have been written and answered.
func (m Model) settle() tea.Cmd {
	backend := m.backend
	return func() tea.Msg {
		if s, ok := backend.(settler); ok {
			s.Settle(settleTimeout)
		}
		return settledMsg{}
	}
}

// drain moves queued output into the pane and follows the tail.
func (m *Model) drain() {
	n := m.backend.Drain(m.appendOutput)
	if n == 0 {
		return
	}
	if len(m.lines) > maxScrollback {
		m.lines = append([]string(nil), m.lines[len(m.lines)-maxScrollback:]...)
	}
	m.output.SetContent(strings.Join(m.lines, "\n"))
	m.output.GotoBottom()
}

func (m *Model) appendOutput(o session.Output) {
	style := m.theme.reply
	switch o.Kind {
	case session.KindEcho:
		style = m.theme.echo
	case session.KindError:
		style = m.theme.failure
	}

	prefix := m.theme.lineToken.Render(linePrefix)
	for _, line := range strings.Split(strings.TrimSuffix(o.Format(), "\n"), "\n") {
		m.lines = append(m.lines, prefix+style.Render(line))
	}
}

func (m *Model) resize() {
	m.output.Width = m.width
	m.output.Height = max(1, m.height-chromeHeight)
	m.input.Width = max(1, m.width-lipgloss.Width(m.input.Prompt)-1)
}

func (m Model) View() string {
	if !m.ready {
		return m.backend.Banner() + "\n"
	}

	width := max(m.width, 1)
	header := m.theme.bar.Width(width).Render(truncate(m.backend.Banner(), width))
	top := m.theme.rule.Render(strings.Repeat("▁", width))
	bottom := m.theme.rule.Render(strings.Repeat("▔", width))
	footer := m.theme.bar.Width(width).Render(truncate(HelpText, width))

	return m.theme.root.Render(lipgloss.JoinVertical(lipgloss.Left,
		header,
		m.output.View(),
		top,
		m.input.View(),
		bottom,
		footer,
	))
}

func truncate(s string, width int) string {
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	if width <= 1 {
		return string(r[:width])
	}
	return string(r[:width-1]) + "…"
}

// Run starts the full-screen program and blocks until it exits. It
// returns the quit reason, empty for a normal exit.
func Run(backend session.Backend, pollEvery time.Duration, opts ...tea.ProgramOption) (string, error) {
	opts = append([]tea.ProgramOption{tea.WithAltScreen(), tea.WithMouseCellMotion()}, opts...)
	final, err := tea.NewProgram(New(backend, pollEvery), opts...).Run()
	if err != nil {
		return "", err
	}
	if m, ok := final.(Model); ok {
		return m.quitReason, nil
	}
	return "", nil
}

// styleInput colours the prompt text by the kind of command being typed.
func (m *Model) styleInput() {
	if strings.HasPrefix(strings.TrimSpace(m.input.Value()), dispatch.InternalPrefix) {
		m.input.TextStyle = m.theme.internal
	} else {
		m.input.TextStyle = m.theme.command
	}
}
