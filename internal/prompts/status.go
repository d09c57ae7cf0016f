package prompts

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
)

// StatusPrompt handles the tlc-status MCP prompt. It instructs the AI
// to read and present the project's compilation state.
type StatusPrompt struct{}

// NewStatusPrompt creates a StatusPrompt.
func NewStatusPrompt() *StatusPrompt {
	return &StatusPrompt{}
}

// Definition returns the MCP prompt definition for registration.
func (p *StatusPrompt) Definition() mcp.Prompt {
	return mcp.NewPrompt("tlc-status",
		mcp.WithPromptDescription(
			"Show the compilation state of every specification in the "+
				"project: what is fresh, what went stale, and what has "+
				"never been compiled.",
		),
	)
}

// Handle processes the tlc-status prompt request.
func (p *StatusPrompt) Handle(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	return &mcp.GetPromptResult{
		Description: "Project compilation status",
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.NewTextContent(
					"Please run `tlc_status` to check the project's compilation state.\n\n" +
						"Then:\n" +
						"1. Show me the table\n" +
						"2. Call out stale modules (spec edited after its last compile) and specs that have never compiled\n" +
						"3. Flag any run-history rows whose spec file has disappeared\n" +
						"4. Suggest which spec to compile next and why",
				),
			},
		},
	}, nil
}
