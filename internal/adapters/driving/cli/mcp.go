package cli

import (
	"fmt"
	"net"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docagent/internal/adapters/driving/mcp"
)

var (
	mcpPort int
	mcpHost string
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Model Context Protocol integration",
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the index to MCP clients",
	Long: `Serve the index over the Model Context Protocol so an assistant can add and
remove documents, search pages and ask questions.

stdio is used unless --port is set, in which case streamable HTTP is served
on --host:--port until interrupted.

Tools:     insert_document remove_document remove_page remove_matching
           remove_all list_documents get_statistics search ask
Resources: docagent://documents docagent://stats docagent://history

Client configuration for stdio:

  {"mcpServers": {"docagent": {"command": "docagent", "args": ["mcp", "serve"]}}}`,
	Example: `  docagent mcp serve
  docagent mcp serve --port 8080`,
	Args: cobra.NoArgs,
	RunE: runMCPServe,
}

func init() {
	mcpServeCmd.Flags().IntVarP(&mcpPort, "port", "p", 0, "serve HTTP on this port instead of stdio")
	mcpServeCmd.Flags().StringVar(&mcpHost, "host", "localhost", "interface for --port")
	mcpCmd.AddCommand(mcpServeCmd)
	rootCmd.AddCommand(mcpCmd)
}

func runMCPServe(cmd *cobra.Command, _ []string) error {
	if err := requireIndex(); err != nil {
		return err
	}

	server, err := mcp.NewServer(&mcp.Ports{
		Index:  indexService,
		Ingest: ingestService,
		Answer: answerService,
	})
	if err != nil {
		return err
	}

	if mcpPort <= 0 {
		return server.Run(cmd.Context())
	}
	addr := net.JoinHostPort(mcpHost, strconv.Itoa(mcpPort))
	cmd.PrintErrf("MCP server listening on http://%s\n", addr)
	if err := server.RunHTTP(cmd.Context(), addr); err != nil {
		return fmt.Errorf("mcp server: %w", err)
	}
	return nil
}
