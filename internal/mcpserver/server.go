// Package mcpserver provides an MCP (Model Context Protocol) server that
// exposes the blades feed for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/mirelwood/blades/internal/feed"
)

// Server wraps the MCP server with feed tools.
type Server struct {
	mcp        *server.MCPServer
	feed       *feed.Manager
	categories []string
}

// New creates a new MCP server with all feed tools registered.
func New(fm *feed.Manager, categories []string) *Server {
	s := &Server{feed: fm, categories: categories}

	s.mcp = server.NewMCPServer(
		"Blades",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_blades",
		mcp.WithDescription("List feed items, newest first, optionally filtered by category. Returns identity keys usable with the other tools."),
		mcp.WithString("category", mcp.Description("Optional category filter (loose singular/plural match)")),
		mcp.WithBoolean("unread_only", mcp.Description("Only return unread items")),
	), s.listBlades)

	s.mcp.AddTool(mcp.NewTool("read_blade",
		mcp.WithDescription("Load one feed item's rendered content by identity key."),
		mcp.WithString("key", mcp.Required(), mcp.Description("Item identity key from list_blades")),
	), s.readBlade)

	s.mcp.AddTool(mcp.NewTool("unread_counts",
		mcp.WithDescription("Unread item counts, total and per category."),
	), s.unreadCounts)

	s.mcp.AddTool(mcp.NewTool("mark_read",
		mcp.WithDescription("Mark one feed item as read."),
		mcp.WithString("key", mcp.Required(), mcp.Description("Item identity key")),
	), s.markRead)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) listBlades(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	view := s.feed.View(feed.ViewParams{
		Category:      req.GetString("category", ""),
		UnreadOnly:    req.GetBool("unread_only", false),
		PageSize:      50,
		PrefetchPages: 1,
	})
	out, _ := json.MarshalIndent(view.Items, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) readBlade(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	key, err := req.RequireString("key")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	html, err := s.feed.LoadContent(ctx, key)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(html), nil
}

func (s *Server) unreadCounts(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	out, _ := json.MarshalIndent(s.feed.UnreadCounts(s.categories), "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) markRead(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	key, err := req.RequireString("key")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if !s.feed.MarkRead(key, true) {
		return mcp.NewToolResultError("not found: " + key), nil
	}
	return mcp.NewToolResultText("marked read: " + key), nil
}
