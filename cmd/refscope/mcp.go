package main

import (
	"github.com/spf13/cobra"

	"github.com/jward/refscope/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve find_references and goto_definition over MCP (stdio)",
	Long:  "Starts an MCP server on stdin/stdout. Each tool call refreshes the index for files edited since the last call.",
	Args:  cobra.NoArgs,
	RunE:  runMCP,
}

func runMCP(cmd *cobra.Command, args []string) error {
	engine, root, err := workspace()
	if err != nil {
		return err
	}
	defer engine.Close()
	return mcp.NewServer(engine, root).Serve(commandContext(cmd))
}
