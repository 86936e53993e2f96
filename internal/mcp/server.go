// Package mcp exposes reference queries as MCP tools over stdio.
package mcp

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/mark3labs/mcp-go/server"

	"github.com/jward/refscope"
)

// Version is reported to MCP clients.
const Version = "0.1.0"

// Server serves find_references and goto_definition for one workspace.
type Server struct {
	engine *refscope.Engine
	root   string
	mcp    *server.MCPServer
}

// NewServer creates a server over an indexed engine. root anchors relative
// paths in tool arguments.
func NewServer(engine *refscope.Engine, root string) *Server {
	s := &Server{engine: engine, root: root}
	s.mcp = NewMCPServer(s.query, root)
	return s
}

// NewMCPServer builds the tool server around query.
func NewMCPServer(query QueryFunc, root string) *server.MCPServer {
	mcpServer := server.NewMCPServer(
		"refscope",
		Version,
		server.WithToolCapabilities(true),
	)
	AddFindReferencesTool(mcpServer, query, root)
	AddGotoDefinitionTool(mcpServer, query, root)
	return mcpServer
}

// query refreshes the snapshot so each call sees edits on disk.
func (s *Server) query(ctx context.Context) (Querier, error) {
	q, err := s.engine.Query(ctx)
	if err != nil {
		return nil, err
	}
	return q, nil
}

// Serve answers requests on stdin/stdout until ctx ends, stdin closes or
// the process is signalled.
func (s *Server) Serve(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Starting MCP server on stdio...")
		errCh <- server.NewStdioServer(s.mcp).Listen(ctx, os.Stdin, os.Stdout)
	}()

	select {
	case <-ctx.Done():
		log.Printf("Shutting down MCP server")
		return nil
	case err := <-errCh:
		if err != nil && ctx.Err() == nil {
			return fmt.Errorf("MCP server error: %w", err)
		}
		return nil
	}
}
