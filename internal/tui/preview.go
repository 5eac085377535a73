// Package tui is a terminal preview of the configuration wizard. It drives
// the same controller and step registry as the Discord front end, backed by
// an in-memory store, so the full flow can be exercised without a gateway
// connection.
//
// It uses bubbletea's Elm-style loop: the prompter goroutine hands each
// wizard prompt to the model as a message, the model renders it, and the
// selected choice travels back over the request's reply channel.
package tui

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/civitasdev/civitas/internal/wizard"
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	lineStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	cursorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("212"))
	choiceStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	disabledStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("238")).Strikethrough(true)
	footerStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

type promptRequest struct {
	prompt wizard.Prompt
	reply  chan wizard.Action
}

type promptMsg promptRequest

// Preview bridges the wizard's Prompter boundary into a running bubbletea
// program.
type Preview struct {
	program *tea.Program
}

// NewPreview builds the preview around a fresh model. Call Run to start the
// program before prompting.
func NewPreview() *Preview {
	p := &Preview{}
	p.program = tea.NewProgram(newModel(), tea.WithAltScreen())
	return p
}

// Run blocks until the program exits.
func (p *Preview) Run() error {
	_, err := p.program.Run()
	return err
}

// Quit stops the program.
func (p *Preview) Quit() {
	p.program.Quit()
}

var _ wizard.Prompter = (*Preview)(nil)

// Prompt hands the prompt to the model and waits for the user's choice.
func (p *Preview) Prompt(ctx context.Context, prompt wizard.Prompt) (wizard.Action, error) {
	req := promptRequest{prompt: prompt, reply: make(chan wizard.Action, 1)}
	p.program.Send(promptMsg(req))
	select {
	case act := <-req.reply:
		return act, nil
	case <-ctx.Done():
		if ctx.Err() == context.DeadlineExceeded {
			return wizard.Action{}, wizard.ErrPromptTimeout
		}
		return wizard.Action{}, ctx.Err()
	}
}

// choiceItem adapts a wizard choice to the bubbles list.
type choiceItem struct {
	choice wizard.Choice
}

func (c choiceItem) FilterValue() string { return c.choice.Label }

type choiceDelegate struct{}

func (choiceDelegate) Height() int                             { return 1 }
func (choiceDelegate) Spacing() int                            { return 0 }
func (choiceDelegate) Update(tea.Msg, *list.Model) tea.Cmd     { return nil }
func (choiceDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	ci, ok := item.(choiceItem)
	if !ok {
		return
	}
	label := ci.choice.Label
	switch {
	case ci.choice.Disabled:
		fmt.Fprint(w, "  "+disabledStyle.Render(label))
	case index == m.Index():
		fmt.Fprint(w, cursorStyle.Render("> "+label))
	default:
		fmt.Fprint(w, "  "+choiceStyle.Render(label))
	}
}

type model struct {
	current *promptRequest
	choices list.Model
	width   int
	height  int
}

func newModel() model {
	l := list.New(nil, choiceDelegate{}, 48, 14)
	l.SetShowTitle(false)
	l.SetShowStatusBar(false)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)
	return model{choices: l}
}

func (m model) Init() tea.Cmd { return nil }

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.choices.SetSize(msg.Width-4, msg.Height-8)
		return m, nil
	case promptMsg:
		req := promptRequest(msg)
		m.current = &req
		items := make([]list.Item, 0, len(req.prompt.Choices))
		for _, choice := range req.prompt.Choices {
			items = append(items, choiceItem{choice: choice})
		}
		m.choices.ResetSelected()
		return m, m.choices.SetItems(items)
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			m.answer(wizard.Action{ID: wizard.ActionCancel})
			return m, tea.Quit
		case "enter":
			if m.current == nil {
				return m, nil
			}
			item, ok := m.choices.SelectedItem().(choiceItem)
			if !ok || item.choice.Disabled {
				return m, nil
			}
			m.answer(wizard.Action{ID: item.choice.ID, Value: item.choice.Value})
			return m, nil
		}
	}
	var cmd tea.Cmd
	m.choices, cmd = m.choices.Update(msg)
	return m, cmd
}

func (m *model) answer(act wizard.Action) {
	if m.current == nil {
		return
	}
	select {
	case m.current.reply <- act:
	default:
	}
	m.current = nil
}

func (m model) View() string {
	if m.current == nil {
		return footerStyle.Render("\n  waiting for the wizard...\n")
	}
	var b strings.Builder
	p := m.current.prompt
	b.WriteString("\n  " + titleStyle.Render(p.Title))
	b.WriteString(footerStyle.Render(fmt.Sprintf("  (step %s, page %d)", p.Step, p.Page)))
	b.WriteString("\n\n")
	for _, line := range p.Lines {
		b.WriteString("  " + lineStyle.Render(line) + "\n")
	}
	b.WriteString("\n")
	b.WriteString(m.choices.View())
	b.WriteString("\n" + footerStyle.Render("  up/down select, enter choose, q quit"))
	return b.String()
}
