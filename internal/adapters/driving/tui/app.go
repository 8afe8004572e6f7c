package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/replyguard/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/replyguard/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/replyguard/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/replyguard/internal/adapters/driving/tui/views/menu"
	"github.com/custodia-labs/replyguard/internal/adapters/driving/tui/views/query"
	"github.com/custodia-labs/replyguard/internal/adapters/driving/tui/views/reply"
	"github.com/custodia-labs/replyguard/internal/adapters/driving/tui/views/status"
)

// App is the main TUI application following the Elm architecture.
// It implements tea.Model for use with Bubbletea.
type App struct {
	ports  *Ports
	ctx    context.Context
	styles *styles.Styles
	keymap *keymap.KeyMap

	menuView   *menu.View
	queryView  *query.View
	replyView  *reply.View
	statusView *status.View

	currentView messages.ViewType

	// generation is the last loaded index generation.
	generation string

	err error

	width  int
	height int
	ready  bool
}

// Ensure App implements tea.Model.
var _ tea.Model = (*App)(nil)

// NewApp creates a new TUI application with the given ports.
func NewApp(ports *Ports) (*App, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("creating app: %w", err)
	}

	s := styles.DefaultStyles()
	km := keymap.DefaultKeyMap()

	return &App{
		ports:       ports,
		ctx:         context.Background(),
		styles:      s,
		keymap:      km,
		menuView:    menu.NewView(s, ports.Reply != nil),
		queryView:   query.NewView(s, km, ports.Masking, ports.Retrieval),
		replyView:   reply.NewView(s, km, ports.Reply),
		statusView:  status.NewView(s, ports.Index, ports.Retrieval),
		currentView: messages.ViewMenu,
	}, nil
}

// WithContext sets the context used by service calls.
func (a *App) WithContext(ctx context.Context) *App {
	a.ctx = ctx
	a.queryView.WithContext(ctx)
	a.replyView.WithContext(ctx)
	a.statusView.WithContext(ctx)
	return a
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	return tea.Batch(
		tea.EnterAltScreen,
		tea.SetWindowTitle("replyguard"),
		a.loadGeneration,
	)
}

// loadGeneration reports the generation already loaded, if any.
func (a *App) loadGeneration() tea.Msg {
	m, err := a.ports.Retrieval.Manifest(a.ctx)
	if err != nil {
		return nil
	}
	return messages.IndexReloaded{Generation: m.Generation}
}

// ReloadIndex swaps in the published generation and reports the outcome.
// It is safe to call from outside the program loop.
func (a *App) ReloadIndex() tea.Msg {
	if err := a.ports.Retrieval.Reload(a.ctx); err != nil {
		return messages.IndexReloaded{Err: err}
	}
	m, err := a.ports.Retrieval.Manifest(a.ctx)
	if err != nil {
		return messages.IndexReloaded{Err: err}
	}
	return messages.IndexReloaded{Generation: m.Generation}
}

// Update implements tea.Model.
//
//nolint:gocyclo // central message handler
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.SetDimensions(msg.Width, msg.Height)
		return a, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return a, tea.Quit
		}
		if keymap.Matches(msg.String(), a.keymap.Reload) && a.currentView != messages.ViewMenu {
			return a, a.ReloadIndex
		}
		return a, a.forwardKey(msg)

	case messages.ViewChanged:
		a.currentView = msg.View
		switch msg.View {
		case messages.ViewQuery:
			a.queryView.Reset()
			return a, a.queryView.Init()
		case messages.ViewReply:
			a.replyView.Reset()
			return a, a.replyView.Init()
		case messages.ViewStatus:
			return a, a.statusView.Init()
		case messages.ViewMenu, messages.ViewHelp:
		}
		return a, nil

	case messages.QueryCompleted:
		a.err = msg.Err
		a.queryView, cmd = a.queryView.Update(msg)
		return a, cmd

	case messages.ReplyCompleted:
		a.err = msg.Err
		a.replyView, cmd = a.replyView.Update(msg)
		return a, cmd

	case messages.StatusLoaded:
		a.statusView, cmd = a.statusView.Update(msg)
		return a, cmd

	case messages.IndexReloaded:
		if msg.Err != nil {
			a.err = msg.Err
		} else {
			a.generation = msg.Generation
		}
		// Every view tracks the generation, not just the active one.
		a.queryView, _ = a.queryView.Update(msg)
		a.replyView, _ = a.replyView.Update(msg)
		if a.currentView == messages.ViewStatus {
			a.statusView, cmd = a.statusView.Update(msg)
		}
		return a, cmd

	case messages.ErrorOccurred:
		a.err = msg.Err
		switch a.currentView {
		case messages.ViewQuery:
			a.queryView, cmd = a.queryView.Update(msg)
		case messages.ViewReply:
			a.replyView, cmd = a.replyView.Update(msg)
		case messages.ViewStatus:
			a.statusView, cmd = a.statusView.Update(msg)
		case messages.ViewMenu, messages.ViewHelp:
		}
		return a, cmd

	case messages.Quit:
		return a, tea.Quit
	}

	switch a.currentView {
	case messages.ViewQuery:
		a.queryView, cmd = a.queryView.Update(msg)
	case messages.ViewReply:
		a.replyView, cmd = a.replyView.Update(msg)
	case messages.ViewMenu, messages.ViewStatus, messages.ViewHelp:
	}
	return a, cmd
}

func (a *App) forwardKey(msg tea.KeyMsg) tea.Cmd {
	var cmd tea.Cmd
	switch a.currentView {
	case messages.ViewMenu:
		a.menuView, cmd = a.menuView.Update(msg)
	case messages.ViewQuery:
		a.queryView, cmd = a.queryView.Update(msg)
	case messages.ViewReply:
		a.replyView, cmd = a.replyView.Update(msg)
	case messages.ViewStatus:
		a.statusView, cmd = a.statusView.Update(msg)
	case messages.ViewHelp:
		if keymap.Matches(msg.String(), a.keymap.Back) {
			a.currentView = messages.ViewMenu
		}
	}
	return cmd
}

// View implements tea.Model.
func (a *App) View() string {
	if !a.ready {
		return "Initialising..."
	}

	switch a.currentView {
	case messages.ViewQuery:
		return a.queryView.View()
	case messages.ViewReply:
		return a.replyView.View()
	case messages.ViewStatus:
		return a.statusView.View()
	case messages.ViewHelp:
		return a.viewHelp()
	default:
		return a.menuView.View()
	}
}

func (a *App) viewHelp() string {
	return a.styles.Title.Render("Help") + `

Navigation:
  esc         Back to Menu
  ctrl+c      Quit
  ctrl+r      Reload the published index

Query:
  (type)      Query text; PII is masked before embedding
  tab         Switch to the owner filter
  enter       Run the query
  j/k, ↑/↓    Navigate results
  enter       Show the selected chunk
  n           New query

Reply:
  (type)      Customer message
  tab         Switch to the customer token
  enter       Draft a reply
  n           New message

Status:
  j/k, ↑/↓    Scroll
  r           Refresh

` + a.styles.Help.Render("[esc] back to menu")
}

// Run starts the TUI application.
func (a *App) Run() error {
	p := tea.NewProgram(a, tea.WithAltScreen())
	_, err := p.Run()
	return err
}

// CurrentView returns the current view type.
func (a *App) CurrentView() messages.ViewType {
	return a.currentView
}

// Generation returns the last loaded index generation.
func (a *App) Generation() string {
	return a.generation
}

// Err returns the last error that occurred.
func (a *App) Err() error {
	return a.err
}

// Ready returns whether the app has received its dimensions.
func (a *App) Ready() bool {
	return a.ready
}

// SetDimensions sets the terminal dimensions on every view.
func (a *App) SetDimensions(width, height int) {
	a.width = width
	a.height = height
	a.ready = true
	a.menuView.SetDimensions(width, height)
	a.queryView.SetDimensions(width, height)
	a.replyView.SetDimensions(width, height)
	a.statusView.SetDimensions(width, height)
}
