package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/replyguard/internal/adapters/driving/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "MCP server commands",
	Long:  `Commands for the Model Context Protocol (MCP) server integration.`,
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server",
	Long: `Start the Model Context Protocol server so AI assistants can mask
text, query the index and draft replies.

By default, the server communicates over stdio using JSON-RPC.
Use --port to serve streamable HTTP instead.

The index is reloaded automatically when a new generation is published.

Examples:
  # Stdio mode (for desktop assistants)
  replyguard mcp serve

  # HTTP mode (for MCP Inspector, remote access)
  replyguard mcp serve --port 8080

Assistant configuration:
  {
    "mcpServers": {
      "replyguard": {
        "command": "/path/to/replyguard",
        "args": ["mcp", "serve"]
      }
    }
  }`,
	Annotations: map[string]string{annotationGenerates: "true"},
	RunE:        runMCPServe,
}

func init() {
	mcpServeCmd.Flags().IntP("port", "p", 0, "HTTP port (0 = use stdio)")
	mcpCmd.AddCommand(mcpServeCmd)
	rootCmd.AddCommand(mcpCmd)
}

func runMCPServe(cmd *cobra.Command, _ []string) error {
	port, err := cmd.Flags().GetInt("port")
	if err != nil {
		return fmt.Errorf("getting port flag: %w", err)
	}

	server, err := mcp.NewServer(&mcp.Ports{
		Masking:   maskingService,
		Retrieval: retrievalService,
		Reply:     replyService,
		Index:     indexService,
	})
	if err != nil {
		return err
	}

	if offlineReplies {
		cmd.PrintErrln("Replies use the offline generator: no LLM configured or reachable.")
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	warmIndex(ctx)
	startIndexWatcher(ctx, nil)

	if port > 0 {
		addr := fmt.Sprintf(":%d", port)
		cmd.PrintErrf("MCP server listening on http://localhost%s\n", addr)
		return server.RunHTTP(ctx, addr)
	}

	return server.Run(ctx)
}
