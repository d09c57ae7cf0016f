// Package prompts implements MCP prompt handlers for serve mode.
//
// MCP prompts are user-triggered workflows (like slash commands) that
// instruct the AI to execute a specific sequence. Unlike tools (which
// the AI calls), prompts are initiated by the user.
package prompts

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// CompilePrompt handles the tlc-compile MCP prompt. It guides the AI
// through compiling one specification and reacting to the verdict.
type CompilePrompt struct{}

// NewCompilePrompt creates a CompilePrompt.
func NewCompilePrompt() *CompilePrompt {
	return &CompilePrompt{}
}

// Definition returns the MCP prompt definition for registration.
func (p *CompilePrompt) Definition() mcp.Prompt {
	return mcp.NewPrompt("tlc-compile",
		mcp.WithPromptDescription(
			"Compile a specification into its runnable module. "+
				"Handles the full loop: compile, read the agent's verdict, "+
				"and if the spec was declined, help sharpen it and try again.",
		),
		mcp.WithArgument("spec",
			mcp.ArgumentDescription("Spec path to compile, e.g. 'resize-images.md'. Leave empty to pick from the status table."),
		),
	)
}

// Handle processes the tlc-compile prompt request.
func (p *CompilePrompt) Handle(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	spec := ""
	if args := req.Params.Arguments; args != nil {
		spec = args["spec"]
	}

	pickStep := "1. Run `tlc_status` and help me pick which spec to compile\n"
	target := "the chosen spec"
	if spec != "" {
		pickStep = fmt.Sprintf("1. Run `tlc_status` to confirm `%s` needs compiling\n", spec)
		target = fmt.Sprintf("`%s`", spec)
	}

	return &mcp.GetPromptResult{
		Description: "Compile a specification",
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.NewTextContent(fmt.Sprintf(
					"I want to compile a specification into its runnable module.\n\n"+
						"Please:\n"+
						"%s"+
						"2. Call `tlc_compile` with spec=%s\n"+
						"3. If the agent declines the spec, read its notes, propose concrete "+
						"edits that answer the open questions, apply the ones I approve, and compile again\n"+
						"4. If compilation fails, show me the agent output tail and what you'd try next\n"+
						"5. When it compiles, tell me the module path and how to run it",
					pickStep, target,
				)),
			},
		},
	}, nil
}
