package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime/debug"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/replyguard/internal/adapters/driving/tui"
	"github.com/custodia-labs/replyguard/internal/adapters/driving/tui/messages"
)

var errNotATerminal = errors.New("the TUI needs an interactive terminal")

// isTerminal reports whether stdin and stdout are terminals.
var isTerminal = func() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}

// tuiCmd represents the tui command.
var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch the interactive terminal UI",
	Long: `Launch the interactive terminal user interface for replyguard.

Query the index with an optional owner filter, draft replies to customer
messages and inspect the current index generation. A newly published
generation is picked up automatically.

Controls:
  ↑/k, ↓/j - Navigate
  Enter    - Submit / Select
  Tab      - Switch field
  Ctrl+R   - Reload index
  Esc      - Back
  Ctrl+C   - Quit`,
	Annotations: map[string]string{annotationGenerates: "true"},
	RunE:        runTUI,
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(cmd *cobra.Command, _ []string) error {
	if !isTerminal() {
		return errNotATerminal
	}

	// Add panic recovery to get stack traces
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "Panic in TUI: %v\n", r)
			fmt.Fprintf(os.Stderr, "Stack trace:\n%s\n", debug.Stack())
		}
	}()

	app, err := tui.NewApp(&tui.Ports{
		Retrieval: retrievalService,
		Masking:   maskingService,
		Reply:     replyService,
		Index:     indexService,
	})
	if err != nil {
		return fmt.Errorf("failed to create TUI: %w", err)
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	app.WithContext(ctx)

	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithContext(ctx))
	startIndexWatcher(ctx, func(err error) {
		p.Send(reloadedMessage(ctx, err))
	})

	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}

// reloadedMessage reports a watcher-triggered reload to the TUI.
func reloadedMessage(ctx context.Context, err error) messages.IndexReloaded {
	if err != nil {
		return messages.IndexReloaded{Err: err}
	}
	m, err := retrievalService.Manifest(ctx)
	if err != nil {
		return messages.IndexReloaded{Err: err}
	}
	return messages.IndexReloaded{Generation: m.Generation}
}
