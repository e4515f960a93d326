package dialog

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func keyMsg(s string) tea.KeyMsg {
	switch s {
	case keyEnter:
		return tea.KeyMsg{Type: tea.KeyEnter}
	case keyEsc:
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case keySpace:
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	default:
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
	}
}

func TestConfirmDefaultsToNo(t *testing.T) {
	m := newConfirmModel("t", "m")
	next, cmd := m.Update(keyMsg(keyEnter))
	assert.NotNil(t, cmd)
	assert.False(t, next.(confirmModel).accepted)
}

func TestConfirmYesKey(t *testing.T) {
	m := newConfirmModel("t", "m")
	next, cmd := m.Update(keyMsg("y"))
	assert.NotNil(t, cmd)
	assert.True(t, next.(confirmModel).accepted)
}

func TestConfirmEscapeCancels(t *testing.T) {
	m := newConfirmModel("t", "m")
	toggled, _ := m.Update(tea.KeyMsg{Type: tea.KeyLeft})
	next, cmd := toggled.(confirmModel).Update(keyMsg(keyEsc))
	assert.NotNil(t, cmd)
	assert.False(t, next.(confirmModel).accepted)
}

func TestPromptEnterKeepsValue(t *testing.T) {
	m := newPromptModel("t", "placeholder", "work friend")
	next, cmd := m.Update(keyMsg(keyEnter))
	assert.NotNil(t, cmd)
	final := next.(promptModel)
	assert.False(t, final.cancelled)
	assert.Equal(t, "work friend", final.input.Value())
}

func TestPromptEscapeCancels(t *testing.T) {
	m := newPromptModel("t", "", "old")
	next, _ := m.Update(keyMsg(keyEsc))
	assert.True(t, next.(promptModel).cancelled)
}

func TestPromptTyping(t *testing.T) {
	m := newPromptModel("t", "", "")
	var model tea.Model = m
	for _, r := range "hi" {
		model, _ = model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	assert.Equal(t, "hi", model.(promptModel).input.Value())
}

func TestSelectKeepsToggleOrder(t *testing.T) {
	m := newSelectModel("t", []string{"one", "two", "three"})

	var model tea.Model = m
	// Pick the third item first, then the first.
	model, _ = model.Update(keyMsg("down"))
	model, _ = model.Update(keyMsg("down"))
	model, _ = model.Update(keyMsg(keySpace))
	model, _ = model.Update(keyMsg("up"))
	model, _ = model.Update(keyMsg("up"))
	model, _ = model.Update(keyMsg(keySpace))
	model, cmd := model.Update(keyMsg(keyEnter))

	require.NotNil(t, cmd)
	final := model.(selectModel)
	assert.False(t, final.cancelled)
	assert.Equal(t, []int{2, 0}, final.chosen)
}

func TestSelectToggleOff(t *testing.T) {
	m := newSelectModel("t", []string{"one", "two"})
	var model tea.Model = m
	model, _ = model.Update(keyMsg(keySpace))
	model, _ = model.Update(keyMsg(keySpace))
	assert.Empty(t, model.(selectModel).chosen)
}

func TestSelectAll(t *testing.T) {
	m := newSelectModel("t", []string{"one", "two", "three"})
	model, _ := m.Update(keyMsg("a"))
	assert.Equal(t, []int{0, 1, 2}, model.(selectModel).chosen)
}

func TestSelectEscapeCancels(t *testing.T) {
	m := newSelectModel("t", []string{"one"})
	var model tea.Model = m
	model, _ = model.Update(keyMsg(keySpace))
	model, _ = model.Update(keyMsg(keyEsc))
	assert.True(t, model.(selectModel).cancelled)
}

func TestChooseMovesAndCommits(t *testing.T) {
	m := newChooseModel("t", []string{"save", "copy", "pdf"})
	var model tea.Model = m
	model, _ = model.Update(keyMsg("down"))
	model, cmd := model.Update(keyMsg(keyEnter))
	require.NotNil(t, cmd)
	final := model.(chooseModel)
	assert.False(t, final.cancelled)
	assert.Equal(t, 1, final.cursor)
}

func TestChooseClampsCursor(t *testing.T) {
	m := newChooseModel("t", []string{"only"})
	var model tea.Model = m
	model, _ = model.Update(keyMsg("down"))
	model, _ = model.Update(keyMsg("up"))
	model, _ = model.Update(keyMsg("up"))
	assert.Equal(t, 0, model.(chooseModel).cursor)
}
