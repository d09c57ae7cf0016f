package tools

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/tlc-tools/tlc/internal/config"
	"github.com/tlc-tools/tlc/internal/naming"
	"github.com/tlc-tools/tlc/internal/scaffold"
)

// ScaffoldTool handles the tlc_new MCP tool. It creates a blank
// specification document ready for the author to fill in.
type ScaffoldTool struct {
	root string
	cfg  *config.Config
}

// NewScaffoldTool creates a ScaffoldTool rooted at the project directory.
func NewScaffoldTool(root string, cfg *config.Config) *ScaffoldTool {
	return &ScaffoldTool{root: root, cfg: cfg}
}

// Definition returns the MCP tool definition for registration.
func (t *ScaffoldTool) Definition() mcp.Tool {
	return mcp.NewTool("tlc_new",
		mcp.WithDescription(
			"Create a new specification document with the standard "+
				"Inputs / Outputs / Implementation skeleton. "+
				"This is the first step toward a new compiled module.",
		),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("Spec identifier in hyphen-case, e.g. 'resize-images'. A trailing .md is accepted."),
		),
	)
}

// Handle processes the tlc_new tool call.
func (t *ScaffoldTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name := strings.TrimSpace(req.GetString("name", ""))
	if name == "" {
		return mcp.NewToolResultError("'name' is required"), nil
	}

	specID := strings.TrimSuffix(name, ".md")
	moduleID, err := naming.ToModuleID(specID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf(
			"%v — use lowercase words joined by hyphens, e.g. 'resize-images'", err,
		)), nil
	}

	specFile := specID + ".md"
	if err := scaffold.Create(filepath.Join(t.root, specFile), specID); err != nil {
		if errors.Is(err, scaffold.ErrSpecExists) {
			return mcp.NewToolResultError(fmt.Sprintf(
				"spec already exists: %s — edit it instead of scaffolding again", specFile,
			)), nil
		}
		return nil, fmt.Errorf("creating spec: %w", err)
	}

	response := fmt.Sprintf(
		"# Specification Created\n\n"+
			"**Spec:** `%s`\n"+
			"**Module (once compiled):** `%s/%s.%s`\n\n"+
			"Fill in the Inputs, Outputs, and Implementation sections with the "+
			"author, then call `tlc_compile` with spec='%s' to build the module.",
		specFile, t.cfg.Package, moduleID, t.cfg.Extension, specFile,
	)
	return mcp.NewToolResultText(response), nil
}
