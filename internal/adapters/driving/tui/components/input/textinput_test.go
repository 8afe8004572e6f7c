package input

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/replyguard/internal/adapters/driving/tui/styles"
)

func TestNewField(t *testing.T) {
	f := NewField(styles.DefaultStyles(), "Message", "Type a customer message...")

	require.NotNil(t, f)
	assert.Equal(t, "", f.Value())
	assert.Equal(t, "Message", f.Label())
	assert.False(t, f.Focused())
}

func TestNewField_NilStyles(t *testing.T) {
	f := NewField(nil, "Query", "")

	require.NotNil(t, f)
	assert.NotNil(t, f.styles)
}

func TestField_Init(t *testing.T) {
	assert.NotNil(t, NewField(nil, "Query", "").Init())
}

func TestField_UpdateOnlyWhenFocused(t *testing.T) {
	f := NewField(nil, "Query", "")
	key := tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'a'}}

	f.Update(key)
	assert.Equal(t, "", f.Value())

	f.Focus()
	updated, _ := f.Update(key)
	assert.Same(t, f, updated)
	assert.Equal(t, "a", f.Value())
}

func TestField_View(t *testing.T) {
	f := NewField(nil, "Owner", "customer id")

	assert.Contains(t, f.View(), "Owner")
}

func TestField_SetValueAndReset(t *testing.T) {
	f := NewField(nil, "Query", "")

	f.SetValue("oat milk latte")
	assert.Equal(t, "oat milk latte", f.Value())

	f.Reset()
	assert.Equal(t, "", f.Value())
}

func TestField_FocusBlur(t *testing.T) {
	f := NewField(nil, "Query", "")

	f.Focus()
	assert.True(t, f.Focused())
	f.Blur()
	assert.False(t, f.Focused())
}

func TestField_SetWidth(t *testing.T) {
	tests := []struct {
		name       string
		width      int
		inputWidth int
	}{
		{"wide", 100, 87},
		{"narrow clamps", 10, 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewField(nil, "Query", "")
			f.SetWidth(tt.width)
			assert.Equal(t, tt.width, f.Width())
			assert.Equal(t, tt.inputWidth, f.textinput.Width)
		})
	}
}
