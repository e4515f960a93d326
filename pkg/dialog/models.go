package dialog

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const (
	keyEnter = "enter"
	keyEsc   = "esc"
	keyCtrlC = "ctrl+c"
	keySpace = " "
)

var (
	boxStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(1, 2)
	titleStyle  = lipgloss.NewStyle().Bold(true)
	hintStyle   = lipgloss.NewStyle().Faint(true)
	cursorStyle = lipgloss.NewStyle().Bold(true)
)

func isCancelKey(msg tea.KeyMsg) bool {
	return msg.String() == keyEsc || msg.String() == keyCtrlC
}

func renderBox(title, body, hint string) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(title))
	b.WriteString("\n\n")
	b.WriteString(body)
	b.WriteString("\n\n")
	b.WriteString(hintStyle.Render(hint))
	return boxStyle.Render(b.String())
}

// alertModel shows a message until any of enter/esc dismisses it.
type alertModel struct {
	title   string
	message string
}

func newAlertModel(title, message string) alertModel {
	return alertModel{title: title, message: message}
}

func (m alertModel) Init() tea.Cmd { return nil }

func (m alertModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		if key.String() == keyEnter || isCancelKey(key) {
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m alertModel) View() string {
	return renderBox(m.title, m.message, "enter to dismiss")
}

// confirmModel asks a yes/no question. Left/right (or y/n) move the
// choice, enter commits, escape answers no.
type confirmModel struct {
	title    string
	message  string
	accepted bool
}

func newConfirmModel(title, message string) confirmModel {
	return confirmModel{title: title, message: message}
}

func (m confirmModel) Init() tea.Cmd { return nil }

func (m confirmModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch {
	case isCancelKey(key):
		m.accepted = false
		return m, tea.Quit
	case key.String() == keyEnter:
		return m, tea.Quit
	case key.String() == "y":
		m.accepted = true
		return m, tea.Quit
	case key.String() == "n":
		m.accepted = false
		return m, tea.Quit
	case key.Type == tea.KeyLeft || key.Type == tea.KeyRight || key.String() == "tab":
		m.accepted = !m.accepted
	}
	return m, nil
}

func (m confirmModel) View() string {
	yes, no := "  yes  ", "  no  "
	if m.accepted {
		yes = cursorStyle.Render("> yes <")
	} else {
		no = cursorStyle.Render("> no <")
	}
	return renderBox(m.title, m.message+"\n\n"+yes+"   "+no, "enter to confirm, esc to cancel")
}

// promptModel is the single-line text dialog used for remarks.
type promptModel struct {
	title     string
	input     textinput.Model
	cancelled bool
}

func newPromptModel(title, placeholder, initial string) promptModel {
	input := textinput.New()
	input.Placeholder = placeholder
	input.SetValue(initial)
	input.CursorEnd()
	input.Focus()
	return promptModel{title: title, input: input}
}

func (m promptModel) Init() tea.Cmd { return textinput.Blink }

func (m promptModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch {
		case isCancelKey(key):
			m.cancelled = true
			return m, tea.Quit
		case key.String() == keyEnter:
			return m, tea.Quit
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m promptModel) View() string {
	return renderBox(m.title, m.input.View(), "enter to save, esc to cancel")
}

// selectModel is a multi-select list. Space toggles the item under the
// cursor; chosen keeps toggle order because downloads run in the order
// the user picked.
type selectModel struct {
	title     string
	options   []string
	cursor    int
	chosen    []int
	cancelled bool
}

func newSelectModel(title string, options []string) selectModel {
	return selectModel{title: title, options: options}
}

func (m selectModel) Init() tea.Cmd { return nil }

func (m selectModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch {
	case isCancelKey(key):
		m.cancelled = true
		return m, tea.Quit
	case key.String() == keyEnter:
		return m, tea.Quit
	case key.String() == "a":
		m.chosen = m.chosen[:0]
		for i := range m.options {
			m.chosen = append(m.chosen, i)
		}
	case key.String() == keySpace:
		m.chosen = toggle(m.chosen, m.cursor)
	case key.Type == tea.KeyUp:
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Type == tea.KeyDown:
		if m.cursor < len(m.options)-1 {
			m.cursor++
		}
	}
	return m, nil
}

func toggle(chosen []int, idx int) []int {
	for i, c := range chosen {
		if c == idx {
			return append(chosen[:i], chosen[i+1:]...)
		}
	}
	return append(chosen, idx)
}

func (m selectModel) picked(idx int) bool {
	for _, c := range m.chosen {
		if c == idx {
			return true
		}
	}
	return false
}

func (m selectModel) View() string {
	var b strings.Builder
	for i, opt := range m.options {
		cursor := "  "
		if i == m.cursor {
			cursor = cursorStyle.Render("> ")
		}
		mark := "[ ]"
		if m.picked(i) {
			mark = "[x]"
		}
		b.WriteString(cursor + mark + " " + opt + "\n")
	}
	return renderBox(m.title, strings.TrimRight(b.String(), "\n"),
		"space to toggle, a for all, enter to download, esc to cancel")
}

// chooseModel is a single-select list.
type chooseModel struct {
	title     string
	options   []string
	cursor    int
	cancelled bool
}

func newChooseModel(title string, options []string) chooseModel {
	return chooseModel{title: title, options: options}
}

func (m chooseModel) Init() tea.Cmd { return nil }

func (m chooseModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch {
	case isCancelKey(key):
		m.cancelled = true
		return m, tea.Quit
	case key.String() == keyEnter:
		return m, tea.Quit
	case key.Type == tea.KeyUp:
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Type == tea.KeyDown:
		if m.cursor < len(m.options)-1 {
			m.cursor++
		}
	}
	return m, nil
}

func (m chooseModel) View() string {
	var b strings.Builder
	for i, opt := range m.options {
		cursor := "  "
		if i == m.cursor {
			cursor = cursorStyle.Render("> ")
		}
		b.WriteString(cursor + opt + "\n")
	}
	return renderBox(m.title, strings.TrimRight(b.String(), "\n"),
		"enter to choose, esc to cancel")
}
