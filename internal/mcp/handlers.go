package mcp

import (
	"context"
	"encoding/json"
	stderrors "errors"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hpungsan/kin/internal/errors"
	"github.com/hpungsan/kin/internal/ops"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	deps Deps
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(deps Deps) *Handlers {
	return &Handlers{deps: deps}
}

// NextRequest represents the arguments for contact_next.
type NextRequest struct {
	Surface   string `json:"surface,omitempty"`
	LastShown string `json:"last_shown,omitempty"`
}

// EngageRequest represents the arguments for contact_engage.
type EngageRequest struct {
	ContactID string `json:"contact_id"`
	Surface   string `json:"surface,omitempty"`
}

// CounterGetRequest represents the arguments for counter_get.
type CounterGetRequest struct {
	ContactID string `json:"contact_id"`
}

// StatsRequest represents the arguments for counter_stats.
type StatsRequest struct {
	Limit  int `json:"limit,omitempty"`
	Offset int `json:"offset,omitempty"`
}

// ExportRequest represents the arguments for counter_export.
type ExportRequest struct {
	Path string `json:"path,omitempty"`
}

// ImportRequest represents the arguments for counter_import.
type ImportRequest struct {
	Path string `json:"path"`
	Mode string `json:"mode,omitempty"`
}

// HandleNext handles contact_next.
func (h *Handlers) HandleNext(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := decode[NextRequest](req)
	if err != nil {
		return errorResult(err), nil
	}
	result, err := ops.Next(ctx, h.deps.Host, ops.NextInput{
		Surface:   args.Surface,
		LastShown: args.LastShown,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleEngage handles contact_engage.
func (h *Handlers) HandleEngage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := decode[EngageRequest](req)
	if err != nil {
		return errorResult(err), nil
	}
	if args.ContactID == "" {
		return errorResult(errors.NewInvalidRequest("contact_id is required")), nil
	}
	result, err := ops.Engage(ctx, h.deps.Host, ops.EngageInput{
		Surface:   args.Surface,
		ContactID: args.ContactID,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleCounterGet handles counter_get.
func (h *Handlers) HandleCounterGet(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := decode[CounterGetRequest](req)
	if err != nil {
		return errorResult(err), nil
	}
	result, err := ops.Counters(ctx, h.deps.DB, ops.CountersInput{ContactID: args.ContactID})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleStats handles counter_stats.
func (h *Handlers) HandleStats(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := decode[StatsRequest](req)
	if err != nil {
		return errorResult(err), nil
	}
	result, err := ops.Stats(ctx, h.deps.DB, h.deps.Source, ops.StatsInput{
		Limit:  args.Limit,
		Offset: args.Offset,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleExport handles counter_export.
func (h *Handlers) HandleExport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := decode[ExportRequest](req)
	if err != nil {
		return errorResult(err), nil
	}
	result, err := ops.Export(ctx, h.deps.DB, h.deps.Config, ops.ExportInput{Path: args.Path})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleImport handles counter_import.
func (h *Handlers) HandleImport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := decode[ImportRequest](req)
	if err != nil {
		return errorResult(err), nil
	}
	result, err := ops.Import(ctx, h.deps.DB, h.deps.Config, ops.ImportInput{
		Path: args.Path,
		Mode: ops.ImportMode(args.Mode),
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// errorResult builds an IsError result carrying {error:{code,message,status}}.
func errorResult(err error) *mcp.CallToolResult {
	var payload map[string]any

	var kinErr *errors.KinError
	if stderrors.As(err, &kinErr) {
		errorObj := map[string]any{
			"code":    kinErr.Code,
			"message": kinErr.Message,
			"status":  kinErr.Status,
		}
		// Internal details can carry file paths or SQL text.
		if kinErr.Code == errors.ErrInternal {
			errorObj["message"] = "an internal error occurred"
		} else if kinErr.Details != nil {
			errorObj["details"] = kinErr.Details
		}
		payload = map[string]any{"error": errorObj}
	} else {
		payload = map[string]any{
			"error": map[string]any{
				"code":    "INTERNAL",
				"message": "an internal error occurred",
				"status":  500,
			},
		}
	}

	content, _ := json.Marshal(payload)
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
