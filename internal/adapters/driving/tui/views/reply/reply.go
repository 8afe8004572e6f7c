// Package reply provides the reply drafting view for the TUI.
package reply

import (
	"context"
	"errors"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/replyguard/internal/adapters/driving/tui/components/input"
	"github.com/custodia-labs/replyguard/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/replyguard/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/replyguard/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/replyguard/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/replyguard/internal/core/domain"
	"github.com/custodia-labs/replyguard/internal/core/ports/driving"
)

// ErrNoReplyService indicates that no reply service was provided.
var ErrNoReplyService = errors.New("reply service is required")

// View drafts a reply to a customer message and shows its sources.
type View struct {
	styles    *styles.Styles
	keymap    *keymap.KeyMap
	message   *input.Field
	token     *input.Field
	statusbar *status.Bar

	service driving.ReplyService
	ctx     context.Context

	width      int
	height     int
	ready      bool
	err        error
	focusInput bool
	response   *domain.ReplyResponse
}

// NewView creates a new reply view.
func NewView(s *styles.Styles, km *keymap.KeyMap, service driving.ReplyService) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}

	v := &View{
		styles:     s,
		keymap:     km,
		message:    input.NewField(s, "Message", "Paste the customer's message..."),
		token:      input.NewField(s, "Token", "customer token (optional)"),
		statusbar:  status.NewBar(s, km),
		service:    service,
		ctx:        context.Background(),
		width:      80,
		height:     24,
		focusInput: true,
	}
	v.message.Focus()
	return v
}

// WithContext sets the context for the view.
func (v *View) WithContext(ctx context.Context) *View {
	v.ctx = ctx
	return v
}

// Init initialises the view.
func (v *View) Init() tea.Cmd {
	return v.message.Init()
}

// Update handles messages for the reply view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case tea.KeyMsg:
		return v.handleKeyMsg(msg)

	case messages.ReplyCompleted:
		v.handleReplyCompleted(msg)
		return v, nil

	case messages.IndexReloaded:
		if msg.Err != nil {
			v.setError(msg.Err)
			return v, nil
		}
		v.statusbar.SetGeneration(msg.Generation)
		v.statusbar.SetState(status.StateReloaded)
		return v, nil

	case messages.ErrorOccurred:
		v.setError(msg.Err)
		return v, nil
	}

	var cmd tea.Cmd
	v.message, cmd = v.message.Update(msg)
	return v, cmd
}

func (v *View) handleKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	if keymap.Matches(msg.String(), v.keymap.Back) {
		return v, func() tea.Msg {
			return messages.ViewChanged{View: messages.ViewMenu}
		}
	}

	if !v.focusInput {
		if keymap.Matches(msg.String(), v.keymap.NewQuery) {
			v.focusInput = true
			v.message.SetValue("")
			v.token.Blur()
			return v, v.message.Focus()
		}
		return v, nil
	}

	switch {
	case keymap.Matches(msg.String(), v.keymap.NextField):
		if v.message.Focused() {
			v.message.Blur()
			return v, v.token.Focus()
		}
		v.token.Blur()
		return v, v.message.Focus()

	case keymap.Matches(msg.String(), v.keymap.Submit):
		text := strings.TrimSpace(v.message.Value())
		if text == "" {
			return v, nil
		}
		v.statusbar.SetState(status.StateReplying)
		v.focusInput = false
		v.message.Blur()
		v.token.Blur()
		return v, v.performReply(domain.ReplyRequest{
			UserText:  text,
			UserToken: strings.TrimSpace(v.token.Value()),
		})
	}

	var cmd tea.Cmd
	if v.token.Focused() {
		v.token, cmd = v.token.Update(msg)
	} else {
		v.message, cmd = v.message.Update(msg)
	}
	return v, cmd
}

func (v *View) performReply(req domain.ReplyRequest) tea.Cmd {
	service := v.service
	ctx := v.ctx
	return func() tea.Msg {
		if service == nil {
			return messages.ErrorOccurred{Err: ErrNoReplyService}
		}
		resp, err := service.Reply(ctx, req)
		return messages.ReplyCompleted{Response: resp, Err: err}
	}
}

func (v *View) handleReplyCompleted(msg messages.ReplyCompleted) {
	if msg.Err != nil {
		v.response = nil
		v.setError(msg.Err)
		return
	}
	v.err = nil
	v.response = msg.Response
	v.statusbar.SetState(status.StateReady)
}

func (v *View) setError(err error) {
	v.err = err
	v.statusbar.SetState(status.StateError)
	v.statusbar.SetMessage(err.Error())
}

// View renders the reply view.
func (v *View) View() string {
	if !v.ready {
		return "Initialising..."
	}

	sections := make([]string, 0, 12)
	sections = append(sections,
		v.styles.Title.Render("Draft reply"), "",
		v.message.View(), v.token.View(), "")

	if v.err != nil {
		sections = append(sections, v.styles.Error.Render("Error: "+v.err.Error()), "")
	}
	if v.response != nil {
		sections = append(sections, v.renderResponse())
	}

	sections = append(sections, "", v.statusbar.View())
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (v *View) renderResponse() string {
	var b strings.Builder

	header := v.styles.Subtitle.Render("Reply")
	if v.response.Offline {
		header += " " + v.styles.Badge.Render("OFFLINE")
	}
	b.WriteString(header)
	b.WriteString("\n\n")
	b.WriteString(v.styles.Masked.Width(max(v.width-6, 20)).Render(v.response.Reply))
	b.WriteString("\n\n")

	b.WriteString(v.styles.Subtitle.Render("Sources"))
	b.WriteString("\n")
	if len(v.response.Sources) == 0 {
		b.WriteString(v.styles.Muted.Render("  none"))
	}
	for i, src := range v.response.Sources {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(v.styles.Muted.Render("  " + domain.SearchResult{Metadata: src}.Label()))
	}

	return v.styles.Border.Padding(0, 1).Render(b.String())
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.ready = true

	v.message.SetWidth(width)
	v.token.SetWidth(width)
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

// Response returns the last drafted reply.
func (v *View) Response() *domain.ReplyResponse {
	return v.response
}

// Err returns the current error, if any.
func (v *View) Err() error {
	return v.err
}

// InputFocused returns whether an input has focus.
func (v *View) InputFocused() bool {
	return v.focusInput
}

// Status returns the status bar state.
func (v *View) Status() status.State {
	return v.statusbar.State()
}

// Reset clears the inputs and the last reply.
func (v *View) Reset() {
	v.focusInput = true
	v.message.SetValue("")
	v.token.SetValue("")
	v.token.Blur()
	v.message.Focus()
	v.response = nil
	v.err = nil
	v.statusbar.Clear()
}
