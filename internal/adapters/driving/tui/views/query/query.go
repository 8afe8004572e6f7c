// Package query provides the index query view for the TUI.
package query

import (
	"context"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/replyguard/internal/adapters/driving/tui/components/input"
	"github.com/custodia-labs/replyguard/internal/adapters/driving/tui/components/list"
	"github.com/custodia-labs/replyguard/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/replyguard/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/replyguard/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/replyguard/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/replyguard/internal/core/domain"
	"github.com/custodia-labs/replyguard/internal/core/ports/driving"
)

// View is the query view: a masked query box, an optional owner filter,
// the ranked chunk list and a detail pane for the selected chunk.
type View struct {
	styles    *styles.Styles
	keymap    *keymap.KeyMap
	query     *input.Field
	owner     *input.Field
	list      *list.ResultList
	statusbar *status.Bar

	masking   driving.MaskingService
	retrieval driving.RetrievalService
	ctx       context.Context

	width      int
	height     int
	ready      bool
	err        error
	focusInput bool // true = typing, false = navigating results
	showDetail bool
}

// NewView creates a new query view. masking may be nil, in which case the
// query is sent as typed.
func NewView(
	s *styles.Styles,
	km *keymap.KeyMap,
	masking driving.MaskingService,
	retrieval driving.RetrievalService,
) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}

	v := &View{
		styles:     s,
		keymap:     km,
		query:      input.NewField(s, "Query", "What does the customer need?"),
		owner:      input.NewField(s, "Owner", "customer id (optional)"),
		list:       list.NewResultList(s),
		statusbar:  status.NewBar(s, km),
		masking:    masking,
		retrieval:  retrieval,
		ctx:        context.Background(),
		width:      80,
		height:     24,
		focusInput: true,
	}
	v.query.Focus()
	return v
}

// WithContext sets the context for the view.
func (v *View) WithContext(ctx context.Context) *View {
	v.ctx = ctx
	return v
}

// Init initialises the view.
func (v *View) Init() tea.Cmd {
	return v.query.Init()
}

// Update handles messages for the query view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case tea.KeyMsg:
		return v.handleKeyMsg(msg)

	case messages.QueryCompleted:
		v.handleQueryCompleted(msg)
		return v, nil

	case messages.IndexReloaded:
		v.handleReloaded(msg)
		return v, nil

	case messages.ErrorOccurred:
		v.setError(msg.Err)
		return v, nil
	}

	var cmd tea.Cmd
	v.query, cmd = v.query.Update(msg)
	return v, cmd
}

func (v *View) handleKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	if keymap.Matches(msg.String(), v.keymap.Back) {
		if v.showDetail {
			v.showDetail = false
			return v, nil
		}
		return v, func() tea.Msg {
			return messages.ViewChanged{View: messages.ViewMenu}
		}
	}

	if v.focusInput {
		return v.handleInputKey(msg)
	}

	switch {
	case keymap.Matches(msg.String(), v.keymap.Submit):
		v.showDetail = !v.showDetail && v.list.SelectedResult() != nil
	case keymap.Matches(msg.String(), v.keymap.Up):
		v.list.MoveUp()
	case keymap.Matches(msg.String(), v.keymap.Down):
		v.list.MoveDown()
	case keymap.Matches(msg.String(), v.keymap.NewQuery):
		v.focusInput = true
		v.showDetail = false
		v.query.SetValue("")
		v.owner.Blur()
		return v, v.query.Focus()
	}
	return v, nil
}

func (v *View) handleInputKey(msg tea.KeyMsg) (*View, tea.Cmd) {
	switch {
	case keymap.Matches(msg.String(), v.keymap.NextField):
		return v, v.toggleField()

	case keymap.Matches(msg.String(), v.keymap.Submit):
		text := strings.TrimSpace(v.query.Value())
		if text == "" {
			return v, nil
		}
		v.statusbar.SetState(status.StateQuerying)
		v.focusInput = false
		v.query.Blur()
		v.owner.Blur()
		return v, v.performQuery(text, strings.TrimSpace(v.owner.Value()))
	}

	var cmd tea.Cmd
	if v.owner.Focused() {
		v.owner, cmd = v.owner.Update(msg)
	} else {
		v.query, cmd = v.query.Update(msg)
	}
	return v, cmd
}

func (v *View) toggleField() tea.Cmd {
	if v.query.Focused() {
		v.query.Blur()
		return v.owner.Focus()
	}
	v.owner.Blur()
	return v.query.Focus()
}

// performQuery masks the text and queries the index.
func (v *View) performQuery(text, owner string) tea.Cmd {
	retrieval := v.retrieval
	masking := v.masking
	ctx := v.ctx
	return func() tea.Msg {
		if retrieval == nil {
			return messages.ErrorOccurred{Err: ErrNoRetrievalService}
		}
		if masking != nil {
			text, _ = masking.Mask(text)
		}
		opts := domain.QueryOptions{}
		if owner != "" {
			opts.Filter = domain.OwnerFilter(owner)
		}
		results, err := retrieval.Query(ctx, text, opts)
		return messages.QueryCompleted{Results: results, Err: err}
	}
}

func (v *View) handleQueryCompleted(msg messages.QueryCompleted) {
	if msg.Err != nil {
		v.setError(msg.Err)
		return
	}

	v.err = nil
	v.list.SetResults(msg.Results)
	v.statusbar.SetState(status.StateResults)
	v.statusbar.SetResultCount(len(msg.Results))
	v.focusInput = false
}

func (v *View) handleReloaded(msg messages.IndexReloaded) {
	if msg.Err != nil {
		v.setError(msg.Err)
		return
	}
	v.statusbar.SetGeneration(msg.Generation)
	v.statusbar.SetState(status.StateReloaded)
}

func (v *View) setError(err error) {
	v.err = err
	v.statusbar.SetState(status.StateError)
	v.statusbar.SetMessage(err.Error())
}

// View renders the query view.
func (v *View) View() string {
	if !v.ready {
		return "Initialising..."
	}

	sections := make([]string, 0, 12)
	sections = append(sections,
		v.styles.Title.Render("Query index"), "",
		v.query.View(), v.owner.View(), "")

	if v.err != nil {
		sections = append(sections, v.styles.Error.Render("Error: "+v.err.Error()), "")
	}

	if v.showDetail {
		sections = append(sections, v.renderDetail())
	} else {
		sections = append(sections, v.list.View())
	}

	sections = append(sections, "", v.statusbar.View())
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (v *View) renderDetail() string {
	result := v.list.SelectedResult()
	if result == nil {
		return ""
	}
	body := v.styles.Subtitle.Render(result.Label()) + "\n\n" +
		lipgloss.NewStyle().Width(max(v.width-6, 20)).Render(result.Text)
	return v.styles.Border.Padding(0, 1).Render(body)
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.ready = true

	v.query.SetWidth(width)
	v.owner.SetWidth(width)
	v.list.SetDimensions(width, height-12)
	v.statusbar.SetWidth(width)
}

// SetGeneration shows the loaded index generation in the status bar.
func (v *View) SetGeneration(generation string) {
	v.statusbar.SetGeneration(generation)
}

// Ready returns whether the view is ready to render.
func (v *View) Ready() bool {
	return v.ready
}

// Query returns the current query text.
func (v *View) Query() string {
	return v.query.Value()
}

// SetQuery sets the query text.
func (v *View) SetQuery(text string) {
	v.query.SetValue(text)
}

// Owner returns the owner filter.
func (v *View) Owner() string {
	return v.owner.Value()
}

// Results returns the current results.
func (v *View) Results() []domain.SearchResult {
	return v.list.Results()
}

// SelectedIndex returns the index of the selected result.
func (v *View) SelectedIndex() int {
	return v.list.Selected()
}

// Err returns the current error, if any.
func (v *View) Err() error {
	return v.err
}

// DetailVisible reports whether the selected chunk is expanded.
func (v *View) DetailVisible() bool {
	return v.showDetail
}

// Reset resets the view to input mode.
func (v *View) Reset() {
	v.focusInput = true
	v.showDetail = false
	v.query.SetValue("")
	v.owner.SetValue("")
	v.owner.Blur()
	v.query.Focus()
	v.list.SetResults(nil)
	v.err = nil
	v.statusbar.Clear()
}

// InputFocused returns whether an input has focus.
func (v *View) InputFocused() bool {
	return v.focusInput
}

// Status returns the status bar state.
func (v *View) Status() status.State {
	return v.statusbar.State()
}
