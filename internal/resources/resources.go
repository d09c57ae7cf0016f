// Package resources implements MCP resource handlers for serve mode.
//
// Resources provide read-only data that the host can consume for context.
// They use URI-based addressing (tlc://...) following MCP conventions.
package resources

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/tlc-tools/tlc/internal/pipeline"
	"github.com/tlc-tools/tlc/internal/status"
)

// StatusURI addresses the project compilation status resource.
const StatusURI = "tlc://project/status"

// Handler manages tlc resource endpoints.
type Handler struct {
	pip *pipeline.Pipeline
}

// NewHandler creates a resource Handler around the project pipeline.
func NewHandler(pip *pipeline.Pipeline) *Handler {
	return &Handler{pip: pip}
}

// StatusResource returns the MCP resource definition for project status.
func (h *Handler) StatusResource() mcp.Resource {
	return mcp.NewResource(
		StatusURI,
		"Compilation Status",
		mcp.WithResourceDescription("Every known specification with its module freshness and last recorded run"),
		mcp.WithMIMEType("application/json"),
	)
}

// statusDocument is the JSON shape served for the status resource.
type statusDocument struct {
	Root  string      `json:"root"`
	Specs []statusRow `json:"specs"`
}

type statusRow struct {
	Spec        string `json:"spec"`
	Module      string `json:"module"`
	State       string `json:"state"`
	LastOutcome string `json:"last_outcome,omitempty"`
	LastRun     string `json:"last_run,omitempty"`
	Registered  bool   `json:"registered"`
}

// HandleStatus returns the current compilation status as JSON.
func (h *Handler) HandleStatus(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	report, err := status.Build(h.pip, nil)
	if err != nil {
		return errorResource(req.Params.URI, err.Error()), nil
	}

	doc := statusDocument{Root: report.Root, Specs: make([]statusRow, 0, len(report.Rows))}
	for _, row := range report.Rows {
		doc.Specs = append(doc.Specs, statusRow{
			Spec:        row.SpecPath,
			Module:      row.ModuleID,
			State:       row.Freshness.String(),
			LastOutcome: row.LastOutcome,
			LastRun:     row.LastRun,
			Registered:  row.Registered,
		})
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling status: %w", err)
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

// errorResource returns a resource with an error message.
func errorResource(uri, message string) []mcp.ResourceContents {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "text/plain",
			Text:     fmt.Sprintf("Error: %s", message),
		},
	}
}
