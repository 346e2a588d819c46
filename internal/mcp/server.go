package mcp

import (
	"context"
	"database/sql"
	"sort"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/hpungsan/kin/internal/config"
	"github.com/hpungsan/kin/internal/contact"
	"github.com/hpungsan/kin/internal/ops"
)

// KnownTypes lists all valid type names.
var KnownTypes = []string{"contact", "counter"}

// toolEntry pairs a tool definition with a handler factory.
type toolEntry struct {
	def     mcp.Tool
	handler func(*Handlers) server.ToolHandlerFunc
}

// toolRegistry maps tool names to their definitions and handler factories.
var toolRegistry = map[string]toolEntry{
	"contact_next": {
		def:     nextToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleNext },
	},
	"contact_engage": {
		def:     engageToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleEngage },
	},
	"counter_get": {
		def:     counterGetToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleCounterGet },
	},
	"counter_stats": {
		def:     statsToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleStats },
	},
	"counter_export": {
		def:     exportToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleExport },
	},
	"counter_import": {
		def:     importToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleImport },
	},
}

// Deps are the process-wide components the tools run against.
type Deps struct {
	DB     *sql.DB
	Config *config.Config
	Host   ops.Host
	Source contact.Source
}

// AllToolNames returns every tool name, sorted.
func AllToolNames() []string {
	names := make([]string, 0, len(toolRegistry))
	for name := range toolRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ValidateDisabledTools returns a list of unknown tool names from the given list.
func ValidateDisabledTools(names []string) []string {
	unknown := make([]string, 0)
	for _, name := range names {
		if _, ok := toolRegistry[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	return unknown
}

// ValidateDisabledTypes returns a list of unknown type names from the given list.
func ValidateDisabledTypes(names []string) []string {
	known := make(map[string]bool, len(KnownTypes))
	for _, t := range KnownTypes {
		known[t] = true
	}
	unknown := make([]string, 0)
	for _, name := range names {
		if !known[name] {
			unknown = append(unknown, name)
		}
	}
	return unknown
}

// GetTypeForTool extracts the type from a "type_action" tool name.
func GetTypeForTool(toolName string) string {
	if idx := strings.Index(toolName, "_"); idx > 0 {
		return toolName[:idx]
	}
	return ""
}

// ExpandTypesToTools returns all tool names belonging to the given types.
func ExpandTypesToTools(types []string) []string {
	if len(types) == 0 {
		return nil
	}
	typeSet := make(map[string]bool, len(types))
	for _, t := range types {
		typeSet[t] = true
	}
	tools := make([]string, 0)
	for name := range toolRegistry {
		if typeSet[GetTypeForTool(name)] {
			tools = append(tools, name)
		}
	}
	return tools
}

// NewServer creates an MCP server with the kin tools registered, minus
// those in cfg.DisabledTools or belonging to cfg.DisabledTypes.
func NewServer(deps Deps, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"kin",
		version,
		server.WithToolCapabilities(true),
	)

	h := NewHandlers(deps)

	disabled := make(map[string]bool)
	if deps.Config != nil {
		for _, tool := range ExpandTypesToTools(deps.Config.DisabledTypes) {
			disabled[tool] = true
		}
		for _, name := range deps.Config.DisabledTools {
			disabled[name] = true
		}
	}

	for name, entry := range toolRegistry {
		if disabled[name] {
			continue
		}
		s.AddTool(entry.def, entry.handler(h))
	}
	return s
}

// Run serves the tools over stdio.
func Run(deps Deps, version string) error {
	return server.ServeStdio(NewServer(deps, version))
}

// ToolHandlerFunc is the signature for tool handlers.
type ToolHandlerFunc func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error)
