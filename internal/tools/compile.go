package tools

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/tlc-tools/tlc/internal/agent"
	"github.com/tlc-tools/tlc/internal/naming"
	"github.com/tlc-tools/tlc/internal/pipeline"
)

// CompileTool handles the tlc_compile MCP tool. It drives one spec
// through the compilation pipeline and reports the verdict.
type CompileTool struct {
	pip *pipeline.Pipeline
}

// NewCompileTool creates a CompileTool around the project pipeline.
func NewCompileTool(pip *pipeline.Pipeline) *CompileTool {
	return &CompileTool{pip: pip}
}

// Definition returns the MCP tool definition for registration.
func (t *CompileTool) Definition() mcp.Tool {
	return mcp.NewTool("tlc_compile",
		mcp.WithDescription(
			"Compile a specification into its runnable module by handing it "+
				"to the configured code-generation agent. Skips the agent when "+
				"the module is already up to date. The agent may decline a spec "+
				"it judges underspecified — that is feedback, not a failure.",
		),
		mcp.WithString("spec",
			mcp.Required(),
			mcp.Description("Spec path relative to the project root, e.g. 'resize-images.md'"),
		),
	)
}

// Handle processes the tlc_compile tool call.
func (t *CompileTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	spec := req.GetString("spec", "")
	if spec == "" {
		return mcp.NewToolResultError("'spec' is required"), nil
	}

	res, err := t.pip.Compile(ctx, spec)
	switch {
	case errors.Is(err, pipeline.ErrSpecNotFound):
		return mcp.NewToolResultError(fmt.Sprintf(
			"spec not found: %s — check the path, or call tlc_status to list known specs", spec,
		)), nil
	case errors.Is(err, naming.ErrInvalidIdentifier):
		return mcp.NewToolResultError(fmt.Sprintf(
			"%v — spec names use lowercase words joined by hyphens", err,
		)), nil
	case errors.Is(err, agent.ErrNotFound):
		return mcp.NewToolResultError(fmt.Sprintf(
			"%v — install it, or point agent.command in .tlc/config.yaml at another agent", err,
		)), nil
	case err != nil:
		return nil, fmt.Errorf("compiling %s: %w", spec, err)
	}

	switch res.State {
	case pipeline.Compiled:
		if res.UpToDate {
			return mcp.NewToolResultText(fmt.Sprintf(
				"# Up to Date\n\n`%s` is already compiled to `%s`; the agent was not invoked.",
				spec, res.ModulePath,
			)), nil
		}
		return mcp.NewToolResultText(compiledResponse(spec, res)), nil

	case pipeline.Declined:
		response := fmt.Sprintf(
			"# Declined\n\nThe agent judged `%s` not yet implementable and wrote no files.\n\n"+
				"Agent output (tail):\n\n%s\n\n"+
				"Work the open questions back into the spec, then compile again.",
			spec, fenced(tail(res.AgentOut, outputTail)),
		)
		return mcp.NewToolResultText(response), nil

	default: // pipeline.Failed
		return mcp.NewToolResultError(fmt.Sprintf(
			"agent exited with code %d while compiling %s\n\n%s",
			res.AgentExit, spec, fenced(tail(res.AgentOut, outputTail)),
		)), nil
	}
}

func compiledResponse(spec string, res pipeline.Result) string {
	testLine := ""
	if res.TestPath != "" {
		testLine = fmt.Sprintf("**Tests:** `%s`\n", res.TestPath)
	}
	return fmt.Sprintf(
		"# Compiled\n\n"+
			"**Spec:** `%s`\n"+
			"**Module:** `%s`\n"+
			"%s"+
			"**Agent time:** %s\n\n"+
			"The entry point `%s` is registered in the manifest; run it with `tlc run %s`.",
		spec, res.ModulePath, testLine, res.Duration.Round(time.Millisecond),
		res.ModuleID, spec,
	)
}
