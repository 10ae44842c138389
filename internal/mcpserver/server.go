// Package mcpserver exposes the tool dispatcher over the Model Context Protocol.
package mcpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"

	"github.com/ashureev/odoo-mcp/internal/tools"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// ServerName is reported to clients during initialization.
const ServerName = "odoo-mcp"

const methodCallTool = "tools/call"

// New builds an MCP server advertising the tool catalog and routing every
// call through d.
func New(d *tools.Dispatcher, version string) *mcp.Server {
	srv := mcp.NewServer(&mcp.Implementation{Name: ServerName, Version: version}, nil)

	for _, def := range tools.Catalog() {
		srv.AddTool(&mcp.Tool{
			Name:        def.Name,
			Description: def.Description,
			InputSchema: def.InputSchema,
		}, toolHandler(d, def.Name))
	}

	srv.AddReceivingMiddleware(unknownToolMiddleware(d))
	return srv
}

// NewHTTPHandler serves srv over the streamable HTTP transport.
func NewHTTPHandler(srv *mcp.Server) http.Handler {
	return mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return srv
	}, nil)
}

// ServeStdio runs srv on stdin/stdout until the client disconnects or ctx ends.
func ServeStdio(ctx context.Context, srv *mcp.Server) error {
	return srv.Run(ctx, &mcp.StdioTransport{})
}

func toolHandler(d *tools.Dispatcher, name string) mcp.ToolHandler {
	return func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var raw json.RawMessage
		if req != nil && req.Params != nil {
			raw = req.Params.Arguments
		}

		args, err := decodeArguments(raw)
		if err != nil {
			return toCallToolResult(tools.ErrorResult(err)), nil
		}
		return toCallToolResult(d.Call(ctx, name, args)), nil
	}
}

// unknownToolMiddleware answers calls to tools outside the catalog with a
// failed tool result instead of the SDK's protocol-level error.
func unknownToolMiddleware(d *tools.Dispatcher) mcp.Middleware {
	return func(next mcp.MethodHandler) mcp.MethodHandler {
		return func(ctx context.Context, method string, req mcp.Request) (mcp.Result, error) {
			if method != methodCallTool {
				return next(ctx, method, req)
			}
			call, ok := req.(*mcp.CallToolRequest)
			if !ok || call.Params == nil {
				return next(ctx, method, req)
			}
			if _, known := tools.Lookup(call.Params.Name); known {
				return next(ctx, method, req)
			}
			return toCallToolResult(d.Call(ctx, call.Params.Name, nil)), nil
		}
	}
}

// decodeArguments keeps numbers as json.Number so large record IDs survive.
func decodeArguments(raw json.RawMessage) (map[string]any, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return map[string]any{}, nil
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()
	var args map[string]any
	if err := dec.Decode(&args); err != nil {
		return nil, &tools.ValidationError{Issues: []tools.Issue{{Path: "arguments", Reason: "must be an object"}}}
	}
	if args == nil {
		args = map[string]any{}
	}
	return args, nil
}

func toCallToolResult(res tools.Result) *mcp.CallToolResult {
	content := make([]mcp.Content, 0, len(res.Content))
	for _, text := range res.Content {
		content = append(content, &mcp.TextContent{Text: text})
	}
	return &mcp.CallToolResult{Content: content, IsError: res.IsError}
}
