// Package status provides status bar components for the TUI.
package status

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/replyguard/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/replyguard/internal/adapters/driving/tui/styles"
)

// State represents the current application state for display.
type State string

const (
	StateReady    State = "ready"
	StateQuerying State = "querying"
	StateReplying State = "replying"
	StateError    State = "error"
	StateResults  State = "results"
	StateReloaded State = "reloaded"
)

// generationWidth is how much of a generation id is shown.
const generationWidth = 8

// Bar displays application status and keybinding hints.
type Bar struct {
	styles      *styles.Styles
	keymap      *keymap.KeyMap
	state       State
	message     string
	resultCount int
	generation  string
	width       int
}

// NewBar creates a new status bar component.
func NewBar(s *styles.Styles, km *keymap.KeyMap) *Bar {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}

	return &Bar{
		styles: s,
		keymap: km,
		state:  StateReady,
		width:  80,
	}
}

// Init initialises the status bar.
func (s *Bar) Init() tea.Cmd {
	return nil
}

// Update is a no-op; the bar is driven through its setters.
func (s *Bar) Update(msg tea.Msg) (*Bar, tea.Cmd) {
	return s, nil
}

// View renders the status bar.
func (s *Bar) View() string {
	left := s.renderLeft()
	right := s.renderRight()

	padding := max(s.width-lipgloss.Width(left)-lipgloss.Width(right), 1)
	return s.styles.StatusBar.Width(s.width).Render(
		left + strings.Repeat(" ", padding) + right,
	)
}

func (s *Bar) renderLeft() string {
	var left string
	switch s.state {
	case StateQuerying:
		left = s.styles.Muted.Render("Querying...")
	case StateReplying:
		left = s.styles.Muted.Render("Drafting reply...")
	case StateError:
		if s.message != "" {
			left = s.styles.Error.Render("Error: " + s.message)
		} else {
			left = s.styles.Error.Render("Error")
		}
	case StateReloaded:
		left = s.styles.Success.Render("Index reloaded")
	case StateResults:
		left = s.styles.Normal.Render(fmt.Sprintf("%d results", s.resultCount))
	default:
		left = s.styles.Muted.Render("Ready")
	}

	if s.generation != "" {
		gen := s.generation
		if len(gen) > generationWidth {
			gen = gen[:generationWidth]
		}
		left += s.styles.Muted.Render("  gen " + gen)
	}
	return left
}

func (s *Bar) renderRight() string {
	var bindings []key.Binding
	if s.state == StateResults && s.resultCount > 0 {
		bindings = s.keymap.ResultsHelp()
	} else {
		bindings = s.keymap.ShortHelp()
	}

	hints := make([]string, 0, len(bindings))
	for _, b := range bindings {
		h := b.Help()
		hints = append(hints, fmt.Sprintf("%s: %s", h.Key, h.Desc))
	}
	return s.styles.Muted.Render(strings.Join(hints, " | "))
}

// SetState sets the current state.
func (s *Bar) SetState(state State) {
	s.state = state
}

// State returns the current state.
func (s *Bar) State() State {
	return s.state
}

// SetMessage sets the message shown in the error state.
func (s *Bar) SetMessage(message string) {
	s.message = message
}

// Message returns the current message.
func (s *Bar) Message() string {
	return s.message
}

// SetResultCount sets the result count.
func (s *Bar) SetResultCount(count int) {
	s.resultCount = count
}

// ResultCount returns the current result count.
func (s *Bar) ResultCount() int {
	return s.resultCount
}

// SetGeneration sets the loaded index generation.
func (s *Bar) SetGeneration(generation string) {
	s.generation = generation
}

// Generation returns the loaded index generation.
func (s *Bar) Generation() string {
	return s.generation
}

// SetWidth sets the status bar width.
func (s *Bar) SetWidth(width int) {
	s.width = width
}

// Width returns the current width.
func (s *Bar) Width() int {
	return s.width
}

// Clear resets state, message and result count. The generation is kept.
func (s *Bar) Clear() {
	s.state = StateReady
	s.message = ""
	s.resultCount = 0
}
