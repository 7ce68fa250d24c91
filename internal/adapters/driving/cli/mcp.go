package cli

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/propdocs/internal/adapters/driving/mcp"
)

var mcpAddr string

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Model Context Protocol server",
	Long:  `Exposes a property's documents to AI assistants over MCP.`,
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve MCP over stdio or HTTP",
	Long: `Tools:     search_documents, ask, analyze_document, property_context
Resources: propdocs://owners/{ownerId}/documents
           propdocs://documents/{id}
           propdocs://documents/{id}/analysis

Without --addr the server speaks JSON-RPC on stdin/stdout, which is what
desktop assistants expect:

  {
    "mcpServers": {
      "propdocs": {"command": "/path/to/propdocs", "args": ["mcp", "serve"]}
    }
  }

With --addr it serves the streamable HTTP transport instead, for remote
clients and the MCP Inspector:

  propdocs mcp serve --addr :8090`,
	Args: cobra.NoArgs,
	RunE: runMCPServe,
}

func init() {
	mcpServeCmd.Flags().StringVar(&mcpAddr, "addr", "", "serve HTTP on this address instead of stdio")
	mcpCmd.AddCommand(mcpServeCmd)
	rootCmd.AddCommand(mcpCmd)
}

func runMCPServe(cmd *cobra.Command, _ []string) error {
	if searchService == nil {
		return errors.New("search service not configured")
	}

	server, err := mcp.NewServer(&mcp.Ports{
		Search:    searchService,
		Documents: documentService,
		Analysis:  analysisService,
		Chat:      chatService,
		Entities:  entityService,
	}, version)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if mcpAddr == "" {
		return server.Run(ctx)
	}

	// stdout stays clean in stdio mode, so only HTTP mode announces itself.
	cmd.Printf("MCP server listening on %s\n", mcpAddr)
	if err := server.RunHTTP(ctx, mcpAddr); err != nil {
		return fmt.Errorf("mcp server: %w", err)
	}
	return nil
}
