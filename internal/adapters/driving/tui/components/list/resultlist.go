// Package list provides list display components for the TUI.
package list

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/replyguard/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/replyguard/internal/core/domain"
)

// ResultList displays retrieved chunks in a navigable list.
type ResultList struct {
	results  []domain.SearchResult
	selected int
	styles   *styles.Styles
	width    int
	height   int
}

// NewResultList creates a new result list component.
func NewResultList(s *styles.Styles) *ResultList {
	if s == nil {
		s = styles.DefaultStyles()
	}

	return &ResultList{
		styles: s,
		width:  80,
		height: 10,
	}
}

// Init initialises the result list.
func (r *ResultList) Init() tea.Cmd {
	return nil
}

// Update handles list navigation messages.
func (r *ResultList) Update(msg tea.Msg) (*ResultList, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "up", "k":
			r.MoveUp()
		case "down", "j":
			r.MoveDown()
		}
	}
	return r, nil
}

// View renders the result list.
func (r *ResultList) View() string {
	if len(r.results) == 0 {
		return r.styles.Muted.Render("No results")
	}

	lines := make([]string, 0, len(r.results)+2)
	lines = append(lines, r.styles.Subtitle.Render(fmt.Sprintf("Results (%d)", len(r.results))), "")

	// Each result takes two lines.
	visible := max((r.height-2)/2, 1)
	start := 0
	if r.selected >= visible {
		start = r.selected - visible + 1
	}
	end := min(start+visible, len(r.results))

	for i := start; i < end; i++ {
		lines = append(lines, r.renderResult(i, &r.results[i]))
	}
	return strings.Join(lines, "\n")
}

func (r *ResultList) renderResult(index int, result *domain.SearchResult) string {
	indicator := "  "
	if index == r.selected {
		indicator = "> "
	}

	labelWidth := max(r.width-30, 10)
	label := truncate(result.Label(), labelWidth)
	meta := fmt.Sprintf("d=%.4f", result.Score)
	if owner := result.Metadata.Owner(); owner != "" {
		meta += "  owner=" + owner
	}

	var head string
	if index == r.selected {
		head = r.styles.Selected.Render(fmt.Sprintf("%s%-*s  %s", indicator, labelWidth, label, meta))
	} else {
		head = r.styles.Normal.Render(fmt.Sprintf("%s%-*s  ", indicator, labelWidth, label)) +
			r.styles.Muted.Render(meta)
	}

	preview := strings.Join(strings.Fields(result.Text), " ")
	preview = truncate(preview, max(r.width-6, 20))
	return head + "\n" + r.styles.Muted.Render("    "+preview)
}

// truncate shortens s to n runes, marking the cut with an ellipsis.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-3]) + "..."
}

// SetResults replaces the results and selects the first one.
func (r *ResultList) SetResults(results []domain.SearchResult) {
	r.results = results
	r.selected = 0
}

// Results returns the current results.
func (r *ResultList) Results() []domain.SearchResult {
	return r.results
}

// Selected returns the index of the selected result.
func (r *ResultList) Selected() int {
	return r.selected
}

// SetSelected sets the selected index.
func (r *ResultList) SetSelected(index int) {
	if index >= 0 && index < len(r.results) {
		r.selected = index
	}
}

// SelectedResult returns the currently selected result, or nil if none.
func (r *ResultList) SelectedResult() *domain.SearchResult {
	if r.selected < 0 || r.selected >= len(r.results) {
		return nil
	}
	return &r.results[r.selected]
}

// MoveUp moves selection up.
func (r *ResultList) MoveUp() {
	if r.selected > 0 {
		r.selected--
	}
}

// MoveDown moves selection down.
func (r *ResultList) MoveDown() {
	if r.selected < len(r.results)-1 {
		r.selected++
	}
}

// SetDimensions sets the component dimensions.
func (r *ResultList) SetDimensions(width, height int) {
	r.width = width
	r.height = height
}

// Count returns the number of results.
func (r *ResultList) Count() int {
	return len(r.results)
}

// IsEmpty returns whether the list is empty.
func (r *ResultList) IsEmpty() bool {
	return len(r.results) == 0
}
