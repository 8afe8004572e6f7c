// Package status provides the index status view for the TUI.
package status

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/replyguard/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/replyguard/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/replyguard/internal/core/domain"
	"github.com/custodia-labs/replyguard/internal/core/ports/driving"
)

// historyLimit is how many builds the view lists.
const historyLimit = 10

const timeLayout = "2006-01-02 15:04:05"

// View shows the current index generation and recent builds.
type View struct {
	styles *styles.Styles

	index     driving.IndexService
	retrieval driving.RetrievalService
	ctx       context.Context

	manifest     *domain.IndexManifest
	builds       []domain.BuildRecord
	scrollOffset int
	width        int
	height       int
	ready        bool
	err          error
}

// NewView creates a new status view. index may be nil, in which case the
// manifest comes from the loaded retrieval generation and no history is shown.
func NewView(s *styles.Styles, index driving.IndexService, retrieval driving.RetrievalService) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	return &View{
		styles:    s,
		index:     index,
		retrieval: retrieval,
		ctx:       context.Background(),
	}
}

// WithContext sets the context for the view.
func (v *View) WithContext(ctx context.Context) *View {
	v.ctx = ctx
	return v
}

// Init loads the manifest and build history.
func (v *View) Init() tea.Cmd {
	index := v.index
	retrieval := v.retrieval
	ctx := v.ctx
	return func() tea.Msg {
		var msg messages.StatusLoaded
		switch {
		case index != nil:
			msg.Manifest, msg.Err = index.Status(ctx)
		case retrieval != nil:
			msg.Manifest, msg.Err = retrieval.Manifest(ctx)
		}
		if index != nil {
			builds, err := index.History(ctx, historyLimit)
			if err != nil {
				msg.Err = errors.Join(msg.Err, err)
			}
			msg.Builds = builds
		}
		return msg
	}
}

// Update handles messages for the status view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case messages.StatusLoaded:
		v.manifest = msg.Manifest
		v.builds = msg.Builds
		v.err = msg.Err
		v.scrollOffset = 0
		return v, nil

	case messages.IndexReloaded:
		return v, v.Init()

	case messages.ErrorOccurred:
		v.err = msg.Err
		return v, nil

	case tea.KeyMsg:
		return v.handleKeyMsg(msg)
	}
	return v, nil
}

func (v *View) handleKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		if v.scrollOffset > 0 {
			v.scrollOffset--
		}
	case "down", "j":
		if v.scrollOffset < v.maxScrollOffset() {
			v.scrollOffset++
		}
	case "r":
		return v, v.Init()
	case "esc":
		return v, func() tea.Msg {
			return messages.ViewChanged{View: messages.ViewMenu}
		}
	}
	return v, nil
}

func (v *View) visibleLines() int {
	return max(v.height-6, 1)
}

func (v *View) maxScrollOffset() int {
	return max(len(v.buildContent())-v.visibleLines(), 0)
}

func (v *View) buildContent() []string {
	var lines []string

	if m := v.manifest; m != nil {
		lines = append(lines,
			formatField("Generation", m.Generation),
			formatField("Model", m.Model),
			formatField("Dimension", fmt.Sprintf("%d", m.Dimension)),
			formatField("Chunks", fmt.Sprintf("%d from %d documents (%d skipped)", m.ChunkCount, m.DocumentCount, m.SkippedCount)),
			formatField("Chunking", fmt.Sprintf("%d words, %d overlap", m.ChunkSize, m.Overlap)),
		)
		if !m.BuiltAt.IsZero() {
			lines = append(lines, formatField("Built", m.BuiltAt.Local().Format(timeLayout)))
		}
	}

	if len(v.builds) > 0 {
		lines = append(lines, "", "Recent builds:")
		for _, b := range v.builds {
			line := fmt.Sprintf("  %s  %-9s %4d chunks  %s",
				b.StartedAt.Local().Format(timeLayout), b.Status, b.ChunkCount, b.Duration().Round(time.Millisecond))
			if b.Error != "" {
				line += "  " + b.Error
			}
			lines = append(lines, line)
		}
	}
	return lines
}

func formatField(label, value string) string {
	return fmt.Sprintf("%-12s %s", label+":", value)
}

// View renders the status view.
func (v *View) View() string {
	var b strings.Builder

	b.WriteString(v.styles.Title.Render("Index status"))
	b.WriteString("\n")
	b.WriteString(strings.Repeat("─", max(min(v.width-4, 60), 0)))
	b.WriteString("\n\n")

	if v.err != nil {
		b.WriteString(v.styles.Error.Render("Error: " + v.err.Error()))
		b.WriteString("\n\n")
	}

	lines := v.buildContent()
	if len(lines) == 0 && v.err == nil {
		b.WriteString(v.styles.Muted.Render("No index has been built yet"))
		b.WriteString("\n\n")
	}

	visible := v.visibleLines()
	for i := v.scrollOffset; i < len(lines) && i < v.scrollOffset+visible; i++ {
		b.WriteString(v.renderLine(lines[i]))
		b.WriteString("\n")
	}

	if len(lines) > visible {
		b.WriteString("\n")
		b.WriteString(v.styles.Muted.Render(fmt.Sprintf("  [Line %d-%d of %d]",
			v.scrollOffset+1, min(v.scrollOffset+visible, len(lines)), len(lines))))
	}

	b.WriteString("\n\n")
	b.WriteString(v.styles.Help.Render("[↑/↓] scroll  [r] refresh  [esc] back"))
	return b.String()
}

func (v *View) renderLine(line string) string {
	switch {
	case line == "Recent builds:":
		return v.styles.Subtitle.Render(line)
	case strings.Contains(line, string(domain.BuildFailed)):
		return v.styles.Error.Render(line)
	case strings.HasPrefix(line, "  "):
		return v.styles.Normal.Render(line)
	}
	label, value, ok := strings.Cut(line, ":")
	if !ok {
		return v.styles.Normal.Render(line)
	}
	return v.styles.Subtitle.Render(label+":") + v.styles.Normal.Render(value)
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.ready = true
}

// Manifest returns the displayed manifest.
func (v *View) Manifest() *domain.IndexManifest {
	return v.manifest
}

// Builds returns the displayed build records.
func (v *View) Builds() []domain.BuildRecord {
	return v.builds
}

// Err returns the current error, if any.
func (v *View) Err() error {
	return v.err
}
