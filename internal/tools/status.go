package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/tlc-tools/tlc/internal/pipeline"
	"github.com/tlc-tools/tlc/internal/status"
)

// StatusTool handles the tlc_status MCP tool. It reports every known
// spec with its module freshness and last recorded run.
type StatusTool struct {
	pip *pipeline.Pipeline
}

// NewStatusTool creates a StatusTool around the project pipeline.
func NewStatusTool(pip *pipeline.Pipeline) *StatusTool {
	return &StatusTool{pip: pip}
}

// Definition returns the MCP tool definition for registration.
func (t *StatusTool) Definition() mcp.Tool {
	return mcp.NewTool("tlc_status",
		mcp.WithDescription(
			"List every specification in the project with its compilation "+
				"state: fresh, stale, never compiled, or spec gone but still "+
				"in the run history. Use it to decide what to compile next.",
		),
		mcp.WithString("glob",
			mcp.Description("Optional glob overriding the configured spec patterns, e.g. 'specs/**/*.md'"),
		),
	)
}

// Handle processes the tlc_status tool call.
func (t *StatusTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var globs []string
	if g := req.GetString("glob", ""); g != "" {
		globs = []string{g}
	}

	report, err := status.Build(t.pip, globs)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("building status: %v", err)), nil
	}
	return mcp.NewToolResultText(status.Markdown(report)), nil
}
