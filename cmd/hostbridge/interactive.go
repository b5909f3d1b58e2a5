package main

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/wippyai/hostbridge/input"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	noteStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))
)

type keyMap struct {
	Quit   key.Binding
	Socket key.Binding
	Cancel key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Socket, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Socket, k.Cancel, k.Quit}}
}

var keys = keyMap{
	Quit: key.NewBinding(
		key.WithKeys("ctrl+c"),
		key.WithHelp("ctrl+c", "quit"),
	),
	Socket: key.NewBinding(
		key.WithKeys("ctrl+o"),
		key.WithHelp("ctrl+o", "open socket"),
	),
	Cancel: key.NewBinding(
		key.WithKeys("esc"),
		key.WithHelp("esc", "cancel"),
	),
}

type frameMsg time.Time

type modelState int

const (
	stateInput modelState = iota
	stateSocketURL
)

type interactiveModel struct {
	err      error
	d        *driver
	title    string
	url      textinput.Model
	help     help.Model
	interval time.Duration
	state    modelState
	// held remembers the pressed button for terminals that report
	// releases without one.
	held input.Button
}

func newInteractiveModel(d *driver, title string, interval time.Duration) *interactiveModel {
	ti := textinput.New()
	ti.Placeholder = "ws://localhost:8080/ws"
	ti.Prompt = "url: "
	ti.Width = 48
	return &interactiveModel{
		d:        d,
		title:    title,
		url:      ti,
		help:     help.New(),
		interval: interval,
		state:    stateInput,
	}
}

func (m *interactiveModel) frame() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg { return frameMsg(t) })
}

func (m *interactiveModel) Init() tea.Cmd {
	return m.frame()
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case frameMsg:
		if err := m.d.Step(context.Background()); err != nil {
			m.err = err
		}
		return m, m.frame()

	case tea.MouseMsg:
		m.mouse(msg)
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, keys.Quit) {
			return m, tea.Quit
		}
		if m.state == stateSocketURL {
			return m.updateURL(msg)
		}
		if key.Matches(msg, keys.Socket) {
			m.state = stateSocketURL
			m.url.SetValue("")
			return m, m.url.Focus()
		}
		if code, ok := keyCode(msg); ok {
			// Terminals report presses only.
			m.d.b.OnKeyDown(code)
			m.d.b.OnKeyUp(code)
		}
	}
	return m, nil
}

func (m *interactiveModel) updateURL(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Cancel):
		m.state = stateInput
		m.url.Blur()
		return m, nil
	case msg.Type == tea.KeyEnter:
		url := strings.TrimSpace(m.url.Value())
		m.state = stateInput
		m.url.Blur()
		if url == "" {
			return m, nil
		}
		h, err := m.d.b.SocketOpen(url)
		if err != nil {
			m.err = err
			return m, nil
		}
		m.d.note("socket %d dialing %s", h, url)
		return m, nil
	}
	var cmd tea.Cmd
	m.url, cmd = m.url.Update(msg)
	return m, cmd
}

func (m *interactiveModel) mouse(msg tea.MouseMsg) {
	x, y := int32(msg.X), int32(msg.Y)
	switch msg.Action {
	case tea.MouseActionMotion:
		m.d.b.OnPointerMove(x, y)
	case tea.MouseActionPress:
		btn, ok := mouseButton(msg.Button)
		if !ok {
			return
		}
		m.held = btn
		m.d.b.OnPointerDown(btn, x, y)
	case tea.MouseActionRelease:
		btn, ok := mouseButton(msg.Button)
		if !ok {
			btn = m.held
		}
		m.d.b.OnPointerUp(btn, x, y)
	}
}

func mouseButton(b tea.MouseButton) (input.Button, bool) {
	switch b {
	case tea.MouseButtonLeft:
		return input.ButtonLeft, true
	case tea.MouseButtonMiddle:
		return input.ButtonMiddle, true
	case tea.MouseButtonRight:
		return input.ButtonRight, true
	default:
		return 0, false
	}
}

// keyCode maps a terminal key to the DOM keyCode a browser would report.
func keyCode(msg tea.KeyMsg) (int32, bool) {
	switch msg.Type {
	case tea.KeyRunes:
		if len(msg.Runes) != 1 {
			return 0, false
		}
		return int32(unicode.ToUpper(msg.Runes[0])), true
	case tea.KeySpace:
		return 32, true
	case tea.KeyEnter:
		return 13, true
	case tea.KeyTab:
		return 9, true
	case tea.KeyBackspace:
		return 8, true
	case tea.KeyEsc:
		return 27, true
	case tea.KeyLeft:
		return 37, true
	case tea.KeyUp:
		return 38, true
	case tea.KeyRight:
		return 39, true
	case tea.KeyDown:
		return 40, true
	default:
		return 0, false
	}
}

func (m *interactiveModel) View() string {
	s := m.d.Snapshot()
	var b strings.Builder

	b.WriteString(titleStyle.Render("hostbridge"))
	b.WriteString(" ")
	b.WriteString(m.title)
	b.WriteString("\n\n")

	row := func(label string, value any) {
		b.WriteString(labelStyle.Render(fmt.Sprintf("%-10s", label)))
		b.WriteString(valueStyle.Render(fmt.Sprint(value)))
		b.WriteString("\n")
	}
	row("frame", s.frames)
	row("pointer", fmt.Sprintf("%d,%d", s.x, s.y))
	buttons := make([]string, len(s.buttons))
	for i, btn := range s.buttons {
		buttons[i] = btn.String()
	}
	row("buttons", strings.Join(buttons, " "))
	if s.lastKey >= 0 {
		row("key", s.lastKey)
	} else {
		row("key", "-")
	}
	row("records", s.records)
	row("pending", s.pending)
	row("handles", s.handles)

	if len(s.notes) > 0 {
		b.WriteString("\n")
		for _, n := range s.notes {
			b.WriteString(noteStyle.Render(n))
			b.WriteString("\n")
		}
	}

	if m.state == stateSocketURL {
		b.WriteString("\n")
		b.WriteString(m.url.View())
		b.WriteString("\n")
	}
	if m.err != nil {
		b.WriteString("\n")
		b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.help.View(keys))
	return b.String()
}

func runInteractive(d *driver, title string, interval time.Duration) error {
	p := tea.NewProgram(newInteractiveModel(d, title, interval),
		tea.WithAltScreen(),
		tea.WithMouseAllMotion())
	_, err := p.Run()
	return err
}
