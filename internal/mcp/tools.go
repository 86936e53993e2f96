package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"path/filepath"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/jward/refscope"
)

// Querier answers position queries. *refscope.QueryBuilder implements it.
type Querier interface {
	ReferencesAt(ctx context.Context, file string, line, col int, patterns ...string) (*refscope.ReferenceSet, error)
	DefinitionAt(ctx context.Context, file string, line, col int) ([]refscope.Location, error)
}

// QueryFunc returns a querier over the current workspace state.
type QueryFunc func(ctx context.Context) (Querier, error)

type handlerFunc = func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error)

// AddFindReferencesTool registers the find_references tool.
func AddFindReferencesTool(s *server.MCPServer, query QueryFunc, projectRoot string) {
	tool := mcp.NewTool(
		"find_references",
		mcp.WithDescription("Find the declaration and every usage of the Rust name at a position. Lines and columns are 0-based; columns count bytes."),
		mcp.WithString("file",
			mcp.Required(),
			mcp.Description("Path of the file, absolute or relative to the project root")),
		mcp.WithNumber("line", mcp.Required(), mcp.Description("0-based line")),
		mcp.WithNumber("col", mcp.Required(), mcp.Description("0-based byte column")),
		mcp.WithArray("scope",
			mcp.Description("Optional glob patterns restricting which files are searched (e.g., ['src/**'])")),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
	)
	s.AddTool(tool, createFindReferencesHandler(query, projectRoot))
}

// AddGotoDefinitionTool registers the goto_definition tool.
func AddGotoDefinitionTool(s *server.MCPServer, query QueryFunc, projectRoot string) {
	tool := mcp.NewTool(
		"goto_definition",
		mcp.WithDescription("Resolve the Rust name at a position to its definition. Lines and columns are 0-based."),
		mcp.WithString("file",
			mcp.Required(),
			mcp.Description("Path of the file, absolute or relative to the project root")),
		mcp.WithNumber("line", mcp.Required(), mcp.Description("0-based line")),
		mcp.WithNumber("col", mcp.Required(), mcp.Description("0-based byte column")),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
	)
	s.AddTool(tool, createGotoDefinitionHandler(query, projectRoot))
}

// position is the file/line/col triple every tool takes.
type position struct {
	file      string
	line, col int
}

func parsePosition(request mcp.CallToolRequest, projectRoot string) (position, *mcp.CallToolResult) {
	args, ok := request.GetRawArguments().(map[string]any)
	if !ok {
		return position{}, mcp.NewToolResultError("invalid arguments format")
	}
	file, err := request.RequireString("file")
	if err != nil || file == "" {
		return position{}, mcp.NewToolResultError("file parameter is required")
	}
	if !filepath.IsAbs(file) {
		file = filepath.Join(projectRoot, file)
	}
	line, errResult := intArg(args, "line")
	if errResult != nil {
		return position{}, errResult
	}
	col, errResult := intArg(args, "col")
	if errResult != nil {
		return position{}, errResult
	}
	return position{file: file, line: line, col: col}, nil
}

// intArg reads a non-negative whole number. JSON numbers arrive as float64.
func intArg(args map[string]any, key string) (int, *mcp.CallToolResult) {
	raw, ok := args[key]
	if !ok {
		return 0, mcp.NewToolResultError(key + " parameter is required")
	}
	var n float64
	switch v := raw.(type) {
	case float64:
		n = v
	case int:
		n = float64(v)
	case int64:
		n = float64(v)
	default:
		return 0, mcp.NewToolResultError(fmt.Sprintf("%s must be a number, got %T", key, raw))
	}
	if n < 0 || n != math.Trunc(n) {
		return 0, mcp.NewToolResultError(fmt.Sprintf("%s must be a non-negative integer, got %v", key, n))
	}
	return int(n), nil
}

func stringsArg(args map[string]any, key string) ([]string, *mcp.CallToolResult) {
	raw, ok := args[key]
	if !ok || raw == nil {
		return nil, nil
	}
	items, ok := raw.([]any)
	if !ok {
		return nil, mcp.NewToolResultError(key + " must be an array of strings")
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		s, ok := item.(string)
		if !ok {
			return nil, mcp.NewToolResultError(key + " must be an array of strings")
		}
		out = append(out, s)
	}
	return out, nil
}

type referencesResponse struct {
	Found bool                  `json:"found"`
	Set   *refscope.ReferenceSet `json:"result,omitempty"`
}

type definitionResponse struct {
	Definitions []refscope.Location `json:"definitions"`
}

func createFindReferencesHandler(query QueryFunc, projectRoot string) handlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		pos, errResult := parsePosition(request, projectRoot)
		if errResult != nil {
			return errResult, nil
		}
		scope, errResult := stringsArg(request.GetRawArguments().(map[string]any), "scope")
		if errResult != nil {
			return errResult, nil
		}

		q, err := query(ctx)
		if err != nil {
			return nil, err
		}
		set, err := q.ReferencesAt(ctx, pos.file, pos.line, pos.col, scope...)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return marshalToolResponse(referencesResponse{Found: set != nil, Set: set})
	}
}

func createGotoDefinitionHandler(query QueryFunc, projectRoot string) handlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		pos, errResult := parsePosition(request, projectRoot)
		if errResult != nil {
			return errResult, nil
		}

		q, err := query(ctx)
		if err != nil {
			return nil, err
		}
		locs, err := q.DefinitionAt(ctx, pos.file, pos.line, pos.col)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if locs == nil {
			locs = []refscope.Location{}
		}
		return marshalToolResponse(definitionResponse{Definitions: locs})
	}
}

// marshalToolResponse marshals a response object to JSON and returns it as
// an MCP tool result.
func marshalToolResponse(response any) (*mcp.CallToolResult, error) {
	jsonData, err := json.Marshal(response)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal response: %w", err)
	}
	return mcp.NewToolResultText(string(jsonData)), nil
}
