// Package dialog presents blocking modal dialogs for user decisions.
// The mediator drives every flow through the Surface interface; the
// bundled implementation renders terminal modals with bubbletea.
package dialog

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
)

// VideoOption is one downloadable item shown in the selection dialog.
type VideoOption struct {
	Label        string
	ThumbnailURL string
}

// Surface presents blocking dialogs and reports the user's choice.
// A false ok means the user dismissed the dialog (Escape or Ctrl+C)
// without deciding.
type Surface interface {
	// Alert shows a dismissible message.
	Alert(ctx context.Context, title, message string) error
	// Confirm asks a yes/no question.
	Confirm(ctx context.Context, title, message string) (bool, error)
	// PromptRemark asks for a line of text pre-filled with initial.
	// Enter submits (possibly empty), Escape cancels.
	PromptRemark(ctx context.Context, title, placeholder, initial string) (string, bool, error)
	// SelectVideos shows a multi-select over options and returns the
	// chosen indices in the order they were toggled on.
	SelectVideos(ctx context.Context, title string, options []VideoOption) ([]int, bool, error)
	// Choose shows a single-select over options.
	Choose(ctx context.Context, title string, options []string) (int, bool, error)
}

// TUI is the terminal Surface. Each call runs one modal bubbletea
// program to completion.
type TUI struct{}

// NewTUI creates the terminal dialog surface.
func NewTUI() *TUI {
	return &TUI{}
}

func (t *TUI) run(ctx context.Context, model tea.Model) (tea.Model, error) {
	program := tea.NewProgram(model, tea.WithContext(ctx))
	return program.Run()
}

func (t *TUI) Alert(ctx context.Context, title, message string) error {
	_, err := t.run(ctx, newAlertModel(title, message))
	return err
}

func (t *TUI) Confirm(ctx context.Context, title, message string) (bool, error) {
	final, err := t.run(ctx, newConfirmModel(title, message))
	if err != nil {
		return false, err
	}
	return final.(confirmModel).accepted, nil
}

func (t *TUI) PromptRemark(ctx context.Context, title, placeholder, initial string) (string, bool, error) {
	final, err := t.run(ctx, newPromptModel(title, placeholder, initial))
	if err != nil {
		return "", false, err
	}
	m := final.(promptModel)
	if m.cancelled {
		return "", false, nil
	}
	return m.input.Value(), true, nil
}

func (t *TUI) SelectVideos(ctx context.Context, title string, options []VideoOption) ([]int, bool, error) {
	labels := make([]string, len(options))
	for i, opt := range options {
		labels[i] = opt.Label
	}
	final, err := t.run(ctx, newSelectModel(title, labels))
	if err != nil {
		return nil, false, err
	}
	m := final.(selectModel)
	if m.cancelled {
		return nil, false, nil
	}
	return m.chosen, true, nil
}

func (t *TUI) Choose(ctx context.Context, title string, options []string) (int, bool, error) {
	final, err := t.run(ctx, newChooseModel(title, options))
	if err != nil {
		return 0, false, err
	}
	m := final.(chooseModel)
	if m.cancelled {
		return 0, false, nil
	}
	return m.cursor, true, nil
}
