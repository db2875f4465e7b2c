package ui

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"

	"github.com/Aman-CERP/amanrag/internal/index"
)

func TestIndexingModel_ProgressView(t *testing.T) {
	// Given: a model without colors
	m := newIndexingModel("docs")
	m.styles = NoColorStyles()

	// When: a read event arrives
	_, cmd := m.Update(progressMsg{stage: index.StageRead, current: 3, total: 4, name: "c.txt"})

	// Then: the view shows the stage, counts and file
	assert.Nil(t, cmd)
	view := m.View()
	assert.Contains(t, view, "Indexing docs")
	assert.Contains(t, view, "Reading")
	assert.Contains(t, view, "3/4")
	assert.Contains(t, view, "c.txt")
}

func TestIndexingModel_CompleteQuits(t *testing.T) {
	m := newIndexingModel("")

	_, cmd := m.Update(completeMsg{result: &index.Result{Chunks: 4}})

	assert.True(t, m.complete)
	assert.Empty(t, m.View())
	if assert.NotNil(t, cmd) {
		assert.IsType(t, tea.QuitMsg{}, cmd())
	}
}

func TestIndexingModel_CtrlCQuits(t *testing.T) {
	m := newIndexingModel("")

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})

	if assert.NotNil(t, cmd) {
		assert.IsType(t, tea.QuitMsg{}, cmd())
	}
}

func TestIndexingModel_WindowResize(t *testing.T) {
	m := newIndexingModel("")

	m.Update(tea.WindowSizeMsg{Width: 35, Height: 10})
	assert.Equal(t, 10, m.bar.Width)

	m.Update(tea.WindowSizeMsg{Width: 200, Height: 10})
	assert.Equal(t, 40, m.bar.Width)
}

func TestTruncateName(t *testing.T) {
	tests := []struct {
		name   string
		in     string
		maxLen int
		want   string
	}{
		{"short", "a.txt", 10, "a.txt"},
		{"exact", "abcdefghij", 10, "abcdefghij"},
		{"long keeps end", "abcdefghijkl", 10, "...fghijkl"},
		{"tiny limit", "abcdef", 3, "abcdef"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, truncateName(tt.in, tt.maxLen))
		})
	}
}
