package cli

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/replyguard/internal/core/domain"
)

var historyLimit int

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Build and inspect the retrieval index",
}

var indexBuildCmd = &cobra.Command{
	Use:   "build [dir]",
	Short: "Index a directory of .txt and .pdf files",
	Long: `Extracts, redacts, chunks and embeds every .txt and .pdf file in dir
(default: corpus.dir from config) and publishes a new index generation.

PII is irreversibly replaced by kind placeholders before chunking. Files
named owner_<id>_... or cust_<id>_... are attributed to customer <id>.
A failed build leaves the previous generation in place.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runIndexBuild,
}

var indexStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the current index generation",
	Args:  cobra.NoArgs,
	RunE:  runIndexStatus,
}

var indexHistoryCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent build attempts",
	Args:  cobra.NoArgs,
	RunE:  runIndexHistory,
}

var indexVerifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check the stored artifacts against the manifest",
	Args:  cobra.NoArgs,
	RunE:  runIndexVerify,
}

func init() {
	indexHistoryCmd.Flags().IntVarP(&historyLimit, "limit", "n", 10, "maximum number of builds")
	indexCmd.AddCommand(indexBuildCmd, indexStatusCmd, indexHistoryCmd, indexVerifyCmd)
	rootCmd.AddCommand(indexCmd)
}

func runIndexBuild(cmd *cobra.Command, args []string) error {
	if err := requireService(indexService != nil, "index service"); err != nil {
		return err
	}

	dir := ""
	if len(args) == 1 {
		dir = args[0]
	}

	start := time.Now()
	manifest, err := indexService.Build(cmd.Context(), dir)
	if err != nil {
		return err
	}

	cmd.Printf("Indexed %d chunks from %d documents", manifest.ChunkCount, manifest.DocumentCount)
	if manifest.SkippedCount > 0 {
		cmd.Printf(" (%d skipped)", manifest.SkippedCount)
	}
	cmd.Printf(" in %s\n", time.Since(start).Round(time.Millisecond))
	cmd.Printf("Generation: %s\n", manifest.Generation)
	return nil
}

func runIndexStatus(cmd *cobra.Command, _ []string) error {
	if err := requireService(indexService != nil, "index service"); err != nil {
		return err
	}

	m, err := indexService.Status(cmd.Context())
	if err != nil {
		return err
	}
	printManifest(cmd, m)
	return nil
}

func printManifest(cmd *cobra.Command, m *domain.IndexManifest) {
	cmd.Printf("Generation:  %s\n", m.Generation)
	cmd.Printf("Model:       %s (%d dimensions)\n", m.Model, m.Dimension)
	cmd.Printf("Chunks:      %d from %d documents (%d skipped)\n", m.ChunkCount, m.DocumentCount, m.SkippedCount)
	cmd.Printf("Chunking:    %d words, %d overlap\n", m.ChunkSize, m.Overlap)
	cmd.Printf("Built:       %s\n", m.BuiltAt.Local().Format(time.RFC3339))
}

func runIndexHistory(cmd *cobra.Command, _ []string) error {
	if err := requireService(indexService != nil, "index service"); err != nil {
		return err
	}

	builds, err := indexService.History(cmd.Context(), historyLimit)
	if err != nil {
		return fmt.Errorf("list builds: %w", err)
	}
	if len(builds) == 0 {
		cmd.Println("No builds recorded.")
		return nil
	}

	for _, b := range builds {
		cmd.Printf("%s  %-9s %5d chunks  %8s  %s\n",
			b.StartedAt.Local().Format("2006-01-02 15:04:05"), b.Status, b.ChunkCount,
			b.Duration().Round(time.Millisecond), shortGeneration(b))
		if b.Error != "" {
			cmd.Printf("    %s\n", b.Error)
		}
	}
	return nil
}

func shortGeneration(b domain.BuildRecord) string {
	if b.Status != domain.BuildSucceeded {
		return "-"
	}
	if len(b.Generation) > 8 {
		return b.Generation[:8]
	}
	return b.Generation
}

func runIndexVerify(cmd *cobra.Command, _ []string) error {
	if err := requireService(indexService != nil, "index service"); err != nil {
		return err
	}

	if err := indexService.Verify(cmd.Context()); err != nil {
		return err
	}
	m, err := indexService.Status(cmd.Context())
	if err != nil {
		return err
	}
	cmd.Printf("Index OK: %d chunks, %d dimensions\n", m.ChunkCount, m.Dimension)
	return nil
}

func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal output: %w", err)
	}
	cmd.Println(string(data))
	return nil
}
