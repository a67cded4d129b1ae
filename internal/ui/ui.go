// Package ui renders the thread collection, the ephemeral agent status and
// the input bar as a bubbletea program. It is a pure consumer of the
// controller's render state: every state change arrives as a message and
// the view resynchronizes itself.
package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"omnichat/internal/chat"
	"omnichat/internal/config"
	"omnichat/internal/omnibot"
	"omnichat/internal/thread"
)

const sidebarWidth = 30

// changeMsg signals that the controller state changed and the view should
// re-pull its snapshot.
type changeMsg struct{}

// Run wires the controller's change notifications into a bubbletea program
// and blocks until the user quits.
func Run(ctrl *chat.Controller, cfg *config.Config, warning string) error {
	updates := make(chan struct{}, 16)
	ctrl.SetOnChange(func() {
		select {
		case updates <- struct{}{}:
		default:
		}
	})
	defer ctrl.Shutdown()

	m := newModel(ctrl, cfg, updates, warning)
	_, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}

func waitChange(ch <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		<-ch
		return changeMsg{}
	}
}

type model struct {
	ctrl    *chat.Controller
	cfg     *config.Config
	updates chan struct{}

	state   chat.State
	warning string

	input      textinput.Model
	transcript viewport.Model
	spin       spinner.Model
	renderer   *glamour.TermRenderer
	theme      uiTheme

	width    int
	height   int
	ready    bool
	renaming bool
}

func newModel(ctrl *chat.Controller, cfg *config.Config, updates chan struct{}, warning string) model {
	input := textinput.New()
	input.Prompt = "> "
	input.Placeholder = "Ask a question..."
	input.CharLimit = 4000
	input.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#60a5fa"))

	return model{
		ctrl:       ctrl,
		cfg:        cfg,
		updates:    updates,
		state:      ctrl.State(),
		warning:    warning,
		input:      input,
		transcript: viewport.New(0, 0),
		spin:       sp,
		theme:      newTheme(),
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spin.Tick, waitChange(m.updates))
}

func (m model) newChatCmd() tea.Cmd {
	ctrl := m.ctrl
	timeout := m.cfg.MintTimeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		ctrl.NewChat(ctx)
		return nil
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case changeMsg:
		m.state = m.ctrl.State()
		m.refreshTranscript()
		return m, waitChange(m.updates)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.transcript.Width = m.contentWidth()
		m.transcript.Height = m.contentHeight()
		m.input.Width = m.contentWidth() - 4
		m.renderer, _ = glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(m.contentWidth()-2),
		)
		m.ready = true
		m.refreshTranscript()
		return m, nil

	case spinner.TickMsg:
		if !m.state.Busy {
			return m, nil
		}
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.renaming {
		switch msg.String() {
		case "enter":
			m.ctrl.Rename(m.state.ActiveID, m.input.Value())
			m.exitRename()
			return m, nil
		case "esc":
			m.exitRename()
			return m, nil
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}

	switch msg.String() {
	case "ctrl+c", "esc":
		return m, tea.Quit

	case "enter":
		if m.ctrl.Submit(m.input.Value()) {
			m.input.Reset()
			return m, m.spin.Tick
		}
		return m, nil

	case "ctrl+n":
		return m, m.newChatCmd()

	case "ctrl+r":
		if th, ok := m.activeThread(); ok {
			m.renaming = true
			m.input.Reset()
			m.input.Prompt = "rename: "
			m.input.SetValue(th.Title)
			m.input.CursorEnd()
		}
		return m, nil

	case "ctrl+d":
		if m.state.ActiveID != "" {
			m.ctrl.Delete(m.state.ActiveID)
		}
		return m, nil

	case "tab", "shift+tab":
		m.cycleThread(msg.String() == "tab")
		return m, nil

	case "pgup", "pgdown":
		var cmd tea.Cmd
		m.transcript, cmd = m.transcript.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *model) exitRename() {
	m.renaming = false
	m.input.Reset()
	m.input.Prompt = "> "
}

func (m *model) cycleThread(forward bool) {
	threads := m.state.Threads
	if len(threads) == 0 {
		return
	}
	idx := 0
	for i, t := range threads {
		if t.ID == m.state.ActiveID {
			idx = i
			break
		}
	}
	if forward {
		idx = (idx + 1) % len(threads)
	} else {
		idx = (idx - 1 + len(threads)) % len(threads)
	}
	m.ctrl.Select(threads[idx].ID)
}

func (m model) activeThread() (thread.Thread, bool) {
	for _, t := range m.state.Threads {
		if t.ID == m.state.ActiveID {
			return t, true
		}
	}
	return thread.Thread{}, false
}

func (m model) contentWidth() int {
	w := m.width - sidebarWidth - 4
	if w < 20 {
		w = 20
	}
	return w
}

func (m model) contentHeight() int {
	// header + status + input panel + footer
	h := m.height - 7
	if h < 3 {
		h = 3
	}
	return h
}

func (m *model) refreshTranscript() {
	if !m.ready {
		return
	}
	th, ok := m.activeThread()
	if !ok {
		m.transcript.SetContent(m.theme.muted.Render("Pick or create a chat (ctrl+n)"))
		return
	}

	var b strings.Builder
	for _, msg := range th.Messages {
		if msg.Role == thread.RoleUser {
			b.WriteString(m.theme.userLabel.Render("You"))
			b.WriteString("\n")
			b.WriteString(m.theme.userText.Render(msg.Content))
			b.WriteString("\n\n")
			continue
		}
		b.WriteString(m.renderMarkdown(msg.Content))
		b.WriteString("\n")
	}
	m.transcript.SetContent(b.String())
	m.transcript.GotoBottom()
}

func (m model) renderMarkdown(content string) string {
	if m.renderer == nil {
		return content
	}
	out, err := m.renderer.Render(content)
	if err != nil {
		return content
	}
	return strings.TrimRight(out, "\n") + "\n"
}

func (m model) View() string {
	if !m.ready {
		return "loading..."
	}

	sidebar := m.renderSidebar()
	main := lipgloss.JoinVertical(
		lipgloss.Left,
		m.renderHeader(),
		m.transcript.View(),
		m.renderStatus(),
		m.theme.inputPanel.Width(m.contentWidth()).Render(m.input.View()),
		m.renderFooter(),
	)
	return lipgloss.JoinHorizontal(lipgloss.Top, sidebar, main)
}

func (m model) renderHeader() string {
	title := "Omnichat"
	if th, ok := m.activeThread(); ok {
		title = fmt.Sprintf("Omnichat — %s", th.Title)
	}
	header := m.theme.header.Render(title)
	if m.warning != "" {
		header += " " + m.theme.warn.Render(m.warning)
	}
	return header
}

func (m model) renderSidebar() string {
	var b strings.Builder
	b.WriteString(m.theme.sidebarTitle.Render("History"))
	b.WriteString("\n\n")
	if len(m.state.Threads) == 0 {
		b.WriteString(m.theme.muted.Render("No chats yet"))
	}
	for _, t := range m.state.Threads {
		label := truncate(t.Title, sidebarWidth-6)
		if t.LastRoute != "" {
			label += " " + string(t.LastRoute)
		}
		if t.ID == m.state.ActiveID {
			b.WriteString(m.theme.threadActive.Render(label))
		} else {
			b.WriteString(m.theme.threadInactive.Render(label))
		}
		b.WriteString("\n")
	}
	return m.theme.sidebar.
		Width(sidebarWidth).
		Height(m.contentHeight() + 5).
		Render(b.String())
}

// renderStatus shows the ephemeral "thinking" line between routing and the
// first streamed output, and retrieval sources once they are known.
func (m model) renderStatus() string {
	if m.state.Status != "" {
		return " " + m.spin.View() + m.theme.status.Render(m.state.Status)
	}
	if m.state.Busy {
		return " " + m.spin.View() + m.theme.status.Render("waiting for response…")
	}
	if n := citationCount(m.state.Citations); n > 0 {
		return " " + m.theme.sources.Render(fmt.Sprintf("%d sources consulted", n))
	}
	return ""
}

func (m model) renderFooter() string {
	return m.theme.footer.Render(
		" enter send • ctrl+n new • ctrl+r rename • ctrl+d delete • tab switch • esc quit",
	)
}

func citationCount(citations map[string][]omnibot.Citation) int {
	n := 0
	for _, list := range citations {
		n += len(list)
	}
	return n
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	if max <= 1 {
		return string(r[:max])
	}
	return string(r[:max-1]) + "…"
}
