// Package messages defines Bubbletea message types for the TUI.
// Messages represent events and commands that flow through the Elm architecture.
package messages

import (
	"github.com/custodia-labs/replyguard/internal/core/domain"
)

// QueryCompleted carries retrieval results back to the model.
type QueryCompleted struct {
	Results []domain.SearchResult
	Err     error
}

// ReplyCompleted carries a drafted reply back to the model.
type ReplyCompleted struct {
	Response *domain.ReplyResponse
	Err      error
}

// StatusLoaded carries the index manifest and recent builds.
type StatusLoaded struct {
	Manifest *domain.IndexManifest
	Builds   []domain.BuildRecord
	Err      error
}

// IndexReloaded is sent when a newly published generation has been loaded.
type IndexReloaded struct {
	Generation string
	Err        error
}

// ViewChanged is sent when navigating between views.
type ViewChanged struct {
	View ViewType
}

// ViewType identifies which view is currently active.
type ViewType int

const (
	// ViewMenu is the main navigation menu.
	ViewMenu ViewType = iota
	// ViewQuery is the index query view.
	ViewQuery
	// ViewReply is the reply drafting view.
	ViewReply
	// ViewStatus shows the current generation and build history.
	ViewStatus
	// ViewHelp is the help/keybindings view.
	ViewHelp
)

// String returns the string representation of the view type.
func (v ViewType) String() string {
	switch v {
	case ViewMenu:
		return "menu"
	case ViewQuery:
		return "query"
	case ViewReply:
		return "reply"
	case ViewStatus:
		return "status"
	case ViewHelp:
		return "help"
	default:
		return "unknown"
	}
}

// ErrorOccurred signals that an error happened.
type ErrorOccurred struct {
	Err error
}

// Quit signals the application should exit.
type Quit struct{}
