// Package cli provides the cobra command tree for replyguard.
package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/replyguard/internal/core/ports/driven"
	"github.com/custodia-labs/replyguard/internal/core/ports/driving"
	"github.com/custodia-labs/replyguard/internal/logger"
)

// version is set by Execute.
var version = "dev"

// Annotations read by the bootstrap hook.
const (
	// annotationNoServices marks commands that run without services.
	annotationNoServices = "replyguard/no-services"

	// annotationGenerates marks commands that call the LLM.
	annotationGenerates = "replyguard/generates"

	// annotationSettingsOnly marks commands that need only the settings service.
	annotationSettingsOnly = "replyguard/settings-only"
)

var errServicesNotConfigured = errors.New("services not configured")

// Services holds the driving ports used by the commands.
type Services struct {
	Settings  driving.SettingsService
	Masking   driving.MaskingService
	Index     driving.IndexService
	Retrieval driving.RetrievalService
	Reply     driving.ReplyService

	// Watcher reports newly published generations. Optional.
	Watcher driven.IndexWatcher

	// Offline is true when replies come from the offline generator.
	Offline bool
}

// BootstrapOptions are passed to the Bootstrap function.
type BootstrapOptions struct {
	// ConfigDir overrides the default config directory when set.
	ConfigDir string

	// CheckLLM asks for the LLM to be pinged; unreachable providers fall back to offline.
	CheckLLM bool

	// SettingsOnly skips everything but the settings service, so a broken
	// provider configuration can still be repaired.
	SettingsOnly bool
}

// Bootstrap builds services for a command. The returned cleanup releases them.
type Bootstrap func(ctx context.Context, opts BootstrapOptions) (*Services, func(), error)

var (
	settingsService  driving.SettingsService
	maskingService   driving.MaskingService
	indexService     driving.IndexService
	retrievalService driving.RetrievalService
	replyService     driving.ReplyService
	indexWatcher     driven.IndexWatcher
	offlineReplies   bool
)

var (
	bootstrap Bootstrap
	cleanup   func()

	configDir string
	verbose   bool
)

var rootCmd = &cobra.Command{
	Use:   "replyguard",
	Short: "PII-safe retrieval and reply drafting for customer messages",
	Long: `replyguard masks personal data in customer messages, retrieves the
most relevant chunks from a local document index and drafts a reply in
which every masked value is shown only as a partial mask.

Build an index from a directory of .txt and .pdf files, then query it,
draft replies, or expose both to AI assistants over MCP.`,
	SilenceUsage:       true,
	PersistentPreRunE:  setupServices,
	PersistentPostRunE: teardownServices,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "", "config directory (default ~/.replyguard)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// SetBootstrap sets the function that builds services before each command.
func SetBootstrap(b Bootstrap) {
	bootstrap = b
}

// SetServices sets the services used by the commands.
func SetServices(s *Services) {
	if s == nil {
		s = &Services{}
	}
	settingsService = s.Settings
	maskingService = s.Masking
	indexService = s.Index
	retrievalService = s.Retrieval
	replyService = s.Reply
	indexWatcher = s.Watcher
	offlineReplies = s.Offline
}

// Execute runs the root command.
func Execute(v string) error {
	if v != "" {
		version = v
	}
	// PersistentPostRunE is skipped when a command fails.
	defer func() { _ = teardownServices(nil, nil) }()
	return rootCmd.Execute()
}

func setupServices(cmd *cobra.Command, _ []string) error {
	logger.SetVerbose(verbose)

	if cmd.Annotations[annotationNoServices] == "true" || bootstrap == nil {
		return nil
	}

	services, release, err := bootstrap(cmd.Context(), BootstrapOptions{
		ConfigDir:    configDir,
		CheckLLM:     cmd.Annotations[annotationGenerates] == "true",
		SettingsOnly: cmd.Annotations[annotationSettingsOnly] == "true",
	})
	if err != nil {
		return err
	}
	SetServices(services)
	cleanup = release
	return nil
}

func teardownServices(_ *cobra.Command, _ []string) error {
	if cleanup != nil {
		cleanup()
		cleanup = nil
	}
	return nil
}

func requireService(ok bool, name string) error {
	if !ok {
		return fmt.Errorf("%s: %w", name, errServicesNotConfigured)
	}
	return nil
}
