package cli

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/replyguard/internal/core/domain"
	"github.com/custodia-labs/replyguard/internal/core/services"
)

var settingsOnly = map[string]string{annotationSettingsOnly: "true"}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage application settings",
	Long: `View and change replyguard settings.

Settings live in config.toml inside the config directory. Relative paths
are resolved against that directory. OPENAI_API_KEY and ANTHROPIC_API_KEY
are used when no key is stored.`,
	Annotations: settingsOnly,
	RunE:        runConfigShow,
}

var configShowCmd = &cobra.Command{
	Use:         "show",
	Short:       "Show current settings",
	Annotations: settingsOnly,
	RunE:        runConfigShow,
}

var configKeysCmd = &cobra.Command{
	Use:         "keys",
	Short:       "List the settable keys",
	Annotations: settingsOnly,
	RunE:        runConfigKeys,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a single setting",
	Long: `Set a single setting and save it.

Lists are comma-separated, e.g.:
  replyguard config set index.owner_markers owner,cust`,
	Args:        cobra.ExactArgs(2),
	Annotations: settingsOnly,
	RunE:        runConfigSet,
}

var configEmbeddingCmd = &cobra.Command{
	Use:         "embedding",
	Short:       "Configure embedding provider",
	Long:        `Interactively choose the provider that embeds chunks and queries.`,
	Annotations: settingsOnly,
	RunE:        runConfigEmbedding,
}

var configLLMCmd = &cobra.Command{
	Use:         "llm",
	Short:       "Configure LLM provider",
	Long:        `Interactively choose the provider that drafts replies.`,
	Annotations: settingsOnly,
	RunE:        runConfigLLM,
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configKeysCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configEmbeddingCmd)
	configCmd.AddCommand(configLLMCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	if err := requireService(settingsService != nil, "settings service"); err != nil {
		return err
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	cmd.Println("Current Settings")
	cmd.Println("================")
	cmd.Printf("Config directory: %s\n", settingsService.ConfigDir())
	cmd.Println()

	cmd.Println("[Index]")
	cmd.Printf("  Corpus: %s\n", settings.Index.CorpusDir)
	cmd.Printf("  Directory: %s\n", settings.Index.Dir)
	cmd.Printf("  Chunking: %d words, %d overlap\n", settings.Index.ChunkSize, settings.Index.Overlap)
	cmd.Printf("  Owner markers: %s\n", strings.Join(settings.Index.OwnerMarkers, ", "))
	cmd.Printf("  Processors: %s\n", strings.Join(settings.Index.Processors, ", "))
	cmd.Printf("  Generations kept: %d\n", settings.Index.KeepGenerations)
	cmd.Println()

	cmd.Println("[Retrieval]")
	cmd.Printf("  K: %d\n", settings.Retrieval.K)
	cmd.Printf("  Over-fetch: %dx\n", settings.Retrieval.OverFetch)
	cmd.Println()

	cmd.Println("[Embedding]")
	cmd.Printf("  Provider: %s\n", settings.Embedding.Provider.Description())
	cmd.Printf("  Model: %s\n", settings.Embedding.Model)
	if settings.Embedding.Provider == domain.AIProviderOllama {
		cmd.Printf("  Base URL: %s\n", settings.Embedding.BaseURL)
	}
	if settings.Embedding.Provider.RequiresAPIKey() {
		cmd.Printf("  API Key: %s\n", displayKey(settings.Embedding.APIKey))
	}
	if settings.Embedding.CachePath != "" {
		cmd.Printf("  Cache: %s\n", settings.Embedding.CachePath)
	}
	cmd.Printf("  Status: %s\n", configuredLabel(settings.Embedding.IsConfigured()))
	cmd.Println()

	cmd.Println("[LLM]")
	cmd.Printf("  Provider: %s\n", settings.LLM.Provider.Description())
	cmd.Printf("  Model: %s\n", settings.LLM.Model)
	if settings.LLM.Provider == domain.AIProviderOllama {
		cmd.Printf("  Base URL: %s\n", settings.LLM.BaseURL)
	}
	if settings.LLM.Provider.RequiresAPIKey() {
		cmd.Printf("  API Key: %s\n", displayKey(settings.LLM.APIKey))
	}
	cmd.Printf("  Max tokens: %d, temperature: %.2f, attempts: %d\n",
		settings.LLM.MaxTokens, settings.LLM.Temperature, settings.LLM.MaxAttempts)
	cmd.Printf("  Status: %s\n", configuredLabel(settings.LLM.IsConfigured()))
	cmd.Println()

	cmd.Println("[Directory]")
	cmd.Printf("  Customers: %s\n", settings.Directory.CustomersPath)
	cmd.Printf("  Stores: %s\n", settings.Directory.StoresPath)
	cmd.Println()

	cmd.Println("[Ledger]")
	if settings.Ledger.Enabled {
		cmd.Printf("  Enabled: yes (%s)\n", settings.Ledger.Path)
	} else {
		cmd.Println("  Enabled: no")
	}
	cmd.Println()

	if err := settingsService.Validate(); err != nil {
		cmd.Printf("Warning: %v\n", err)
		cmd.Println("Run 'replyguard config embedding' or 'replyguard config set' to fix it.")
	} else {
		cmd.Println("Configuration is valid.")
	}
	return nil
}

func runConfigKeys(cmd *cobra.Command, _ []string) error {
	for _, key := range services.SettingKeys() {
		cmd.Println(key)
	}
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	if err := requireService(settingsService != nil, "settings service"); err != nil {
		return err
	}

	key, value := args[0], args[1]
	if err := settingsService.Set(key, value); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}

	shown := value
	if services.IsSecretKey(key) {
		shown = services.MaskSecret(value)
	}
	cmd.Printf("Set %s = %s\n", key, shown)
	return nil
}

func runConfigEmbedding(cmd *cobra.Command, _ []string) error {
	if err := requireService(settingsService != nil, "settings service"); err != nil {
		return err
	}
	return configureProvider(cmd, bufio.NewReader(cmd.InOrStdin()), providerPrompt{
		title:     "Select Embedding Provider",
		providers: domain.AllEmbeddingProviders(),
		models:    domain.DefaultEmbeddingModels(),
		apply:     settingsService.SetEmbeddingProvider,
		label:     "Embedding",
	})
}

func runConfigLLM(cmd *cobra.Command, _ []string) error {
	if err := requireService(settingsService != nil, "settings service"); err != nil {
		return err
	}
	return configureProvider(cmd, bufio.NewReader(cmd.InOrStdin()), providerPrompt{
		title:     "Select LLM Provider",
		providers: domain.AllLLMProviders(),
		models:    domain.DefaultLLMModels(),
		apply:     settingsService.SetLLMProvider,
		label:     "LLM",
	})
}

// providerPrompt describes one interactive provider selection.
type providerPrompt struct {
	title     string
	providers []domain.AIProvider
	models    map[domain.AIProvider]string
	apply     func(provider domain.AIProvider, model, apiKey string) error
	label     string
}

func configureProvider(cmd *cobra.Command, reader *bufio.Reader, p providerPrompt) error {
	cmd.Println(p.title)
	for i, provider := range p.providers {
		cmd.Printf("  %d. %s\n", i+1, provider.Description())
	}
	cmd.Print("\nEnter choice [1]: ")
	idx := parseChoice(readLine(reader), len(p.providers), 1)
	selected := p.providers[idx-1]

	defaultModel := p.models[selected]
	cmd.Printf("Enter model name [%s]: ", defaultModel)
	model := readLine(reader)
	if model == "" {
		model = defaultModel
	}

	var apiKey string
	if selected.RequiresAPIKey() {
		cmd.Print("Enter API key (blank to use the environment): ")
		apiKey = readPassword(reader)
		cmd.Println()
	}

	if err := p.apply(selected, model, apiKey); err != nil {
		return fmt.Errorf("failed to configure %s provider: %w", strings.ToLower(p.label), err)
	}

	cmd.Printf("%s provider configured: %s (%s)\n", p.label, selected.Description(), model)
	if err := settingsService.Validate(); err != nil {
		cmd.Printf("Warning: %v\n", err)
	}
	return nil
}

func configuredLabel(ok bool) string {
	if ok {
		return "configured"
	}
	return "not configured"
}

func displayKey(key string) string {
	if key == "" {
		return "(not set)"
	}
	return maskAPIKey(key)
}

// Helper functions.

//nolint:errcheck // CLI helper, error ignored for UX
func readLine(reader *bufio.Reader) string {
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

func parseChoice(input string, maxVal, defaultVal int) int {
	if input == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(input)
	if err != nil || val < 1 || val > maxVal {
		return defaultVal
	}
	return val
}

// readPassword reads without echo when stdin is a terminal.
func readPassword(reader *bufio.Reader) string {
	if reader.Buffered() == 0 && term.IsTerminal(int(os.Stdin.Fd())) {
		password, err := term.ReadPassword(int(os.Stdin.Fd()))
		if err == nil {
			return string(password)
		}
	}
	return readLine(reader)
}

// maskAPIKey shows only the first and last four characters of a key.
func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return services.MaskSecret(key)
	}
	return key[:4] + "..." + key[len(key)-4:]
}
