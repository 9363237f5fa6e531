package mcp

import (
	"github.com/mark3labs/mcp-go/server"

	"github.com/hbukhari/ragcite/internal/rag"
	"github.com/hbukhari/ragcite/internal/vectordb"
)

// Version is set via ldflags at build time.
var Version = "dev"

// Server wraps an MCP server exposing document question answering and search.
type Server struct {
	orch  *rag.Orchestrator
	store vectordb.Store
	mcp   *server.MCPServer
}

// NewServer creates a new MCP server with the given dependencies.
func NewServer(orch *rag.Orchestrator, store vectordb.Store) *Server {
	s := &Server{
		orch:  orch,
		store: store,
	}

	s.mcp = server.NewMCPServer(
		"ragcite",
		Version,
		server.WithToolCapabilities(false),
	)

	s.registerTools()

	return s
}

// registerTools adds all tool definitions and their handlers to the MCP server.
func (s *Server) registerTools() {
	s.mcp.AddTool(askDocumentsTool, s.handleAskDocuments)
	s.mcp.AddTool(searchDocumentsTool, s.handleSearchDocuments)
}

// Serve starts the MCP server on stdio. Stdout is used for MCP protocol
// messages; all logging must go to stderr.
func (s *Server) Serve() error {
	return server.ServeStdio(s.mcp)
}
