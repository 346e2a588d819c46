// Package tui is the terminal widget surface: one contact card, refreshed on
// a timer and on key presses.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/hpungsan/kin/internal/ops"
	"github.com/hpungsan/kin/internal/widget"
)

const (
	colorText    lipgloss.Color = "#cdd6f4"
	colorSubtext lipgloss.Color = "#a6adc8"
	colorOverlay lipgloss.Color = "#6c7086"
	colorAccent  lipgloss.Color = "#a6e3a1"
	colorError   lipgloss.Color = "#f38ba8"
	colorWarning lipgloss.Color = "#f9e2af"
)

var (
	cardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorAccent).
			Padding(1, 3).
			Width(36).
			Align(lipgloss.Center)
	nameStyle   = lipgloss.NewStyle().Bold(true).Foreground(colorText)
	photoStyle  = lipgloss.NewStyle().Foreground(colorSubtext)
	avatarStyle = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
	helpStyle   = lipgloss.NewStyle().Foreground(colorOverlay)
	errorStyle  = lipgloss.NewStyle().Foreground(colorError)
	noticeStyle = lipgloss.NewStyle().Foreground(colorWarning)
)

type keyMap struct {
	Refresh key.Binding
	Engage  key.Binding
	Quit    key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Refresh, k.Engage, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}

var keys = keyMap{
	Refresh: key.NewBinding(key.WithKeys("r", " "), key.WithHelp("r", "someone else")),
	Engage:  key.NewBinding(key.WithKeys("enter", "e"), key.WithHelp("enter", "get in touch")),
	Quit:    key.NewBinding(key.WithKeys("q", "ctrl+c", "esc"), key.WithHelp("q", "quit")),
}

// DefaultInterval is how often the card refreshes on its own.
const DefaultInterval = 30 * time.Minute

type cycleMsg struct {
	out *ops.NextOutput
	err error
}

type engageMsg struct {
	out *ops.EngageOutput
	err error
}

type tickMsg time.Time

// viewMsg is a view rendered by the host outside this model's own commands.
type viewMsg widget.View

// Model is the bubbletea model for the terminal widget.
type Model struct {
	host     ops.Host
	surface  string
	interval time.Duration

	current *ops.NextOutput
	notice  string
	err     error
	busy    bool
	width   int
	help    help.Model
}

// New builds a widget model over host. A non-positive interval disables the timer.
func New(host ops.Host, surface string, interval time.Duration) Model {
	if surface == "" {
		surface = widget.DefaultSurface
	}
	return Model{host: host, surface: surface, interval: interval, help: help.New()}
}

// Run starts the terminal widget and blocks until the user quits.
// If attach is set it receives a sink that pushes views rendered by other
// triggers, such as an address-book change, into the running widget.
func Run(ctx context.Context, m Model, attach func(widget.Sink)) error {
	p := tea.NewProgram(m, tea.WithContext(ctx), tea.WithAltScreen())
	if attach != nil {
		attach(widget.SinkFunc(func(v widget.View) error {
			p.Send(viewMsg(v))
			return nil
		}))
		defer attach(nil)
	}
	_, err := p.Run()
	return err
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.refresh(), m.tick())
}

func (m Model) refresh() tea.Cmd {
	host, surface := m.host, m.surface
	return func() tea.Msg {
		out, err := ops.Next(context.Background(), host, ops.NextInput{Surface: surface})
		return cycleMsg{out: out, err: err}
	}
}

func (m Model) engage(contactID string) tea.Cmd {
	host, surface := m.host, m.surface
	return func() tea.Msg {
		out, err := ops.Engage(context.Background(), host, ops.EngageInput{Surface: surface, ContactID: contactID})
		return engageMsg{out: out, err: err}
	}
}

func (m Model) tick() tea.Cmd {
	if m.interval <= 0 {
		return nil
	}
	return tea.Tick(m.interval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, keys.Refresh):
			if m.busy {
				return m, nil
			}
			m.busy = true
			m.notice = ""
			return m, m.refresh()
		case key.Matches(msg, keys.Engage):
			if m.busy || m.current == nil || m.current.Contact == nil {
				return m, nil
			}
			m.busy = true
			m.notice = ""
			return m, m.engage(m.current.Contact.ID)
		}
		return m, nil

	case viewMsg:
		v := widget.View(msg)
		if v.SurfaceID != m.surface || (v.Contact == nil && !v.Empty) {
			return m, nil
		}
		m.current = ops.ViewOutput(v.SurfaceID, v)
		return m, nil

	case tickMsg:
		// A cycle already in flight makes the host skip this one.
		return m, tea.Batch(m.refresh(), m.tick())

	case cycleMsg:
		m.busy = false
		m.apply(msg.out, msg.err)
		return m, nil

	case engageMsg:
		m.busy = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		if msg.out.RecordError != "" {
			m.notice = "engagement not recorded"
		}
		m.apply(msg.out.Next, nil)
		return m, nil
	}
	return m, nil
}

func (m *Model) apply(out *ops.NextOutput, err error) {
	if err != nil {
		// Keep showing the previous card.
		m.err = err
		return
	}
	m.err = nil
	if out.Status == widget.StatusSkipped && m.current != nil {
		return
	}
	m.current = out
}

// View implements tea.Model.
func (m Model) View() string {
	var card string
	switch {
	case m.current == nil:
		card = cardStyle.Render(helpStyle.Render("picking someone..."))
	case m.current.Contact == nil:
		card = cardStyle.Render(avatarStyle.Render("( ? )") + "\n\n" +
			nameStyle.Render("No contacts yet") + "\n" +
			helpStyle.Render("add people to your address book"))
	default:
		c := m.current.Contact
		name := c.DisplayName
		if name == "" {
			name = c.ID
		}
		photo := avatarStyle.Render("( " + initials(name) + " )")
		if !m.current.Placeholder {
			photo = photoStyle.Render(truncate(c.PhotoRef, 30))
		}
		card = cardStyle.Render(photo + "\n\n" + nameStyle.Render(name))
	}

	var b strings.Builder
	b.WriteString(card)
	b.WriteString("\n")
	if m.current != nil && m.current.CycleID != "" {
		b.WriteString(helpStyle.Render(fmt.Sprintf("proposed %d · engaged %d · %.0f%%",
			m.current.Proposed, m.current.Engaged, m.current.Ratio*100)))
		b.WriteString("\n")
	}
	if m.notice != "" {
		b.WriteString(noticeStyle.Render(m.notice))
		b.WriteString("\n")
	}
	if m.err != nil {
		b.WriteString(errorStyle.Render(m.err.Error()))
		b.WriteString("\n")
	}
	b.WriteString(m.help.View(keys))
	if m.width > 0 {
		return lipgloss.PlaceHorizontal(m.width, lipgloss.Center, b.String())
	}
	return b.String()
}

func initials(name string) string {
	var out []rune
	for _, word := range strings.Fields(name) {
		r := []rune(strings.ToUpper(word))
		out = append(out, r[0])
		if len(out) == 2 {
			break
		}
	}
	if len(out) == 0 {
		return "?"
	}
	return string(out)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
