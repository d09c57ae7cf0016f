// Package tools implements the MCP tool handlers for serve mode.
//
// Each tool is a struct that receives its dependencies at construction;
// Definition describes it to the host and Handle executes one call.
// Author mistakes (bad names, missing specs) come back as tool errors
// the calling model can read and correct; only machinery failures
// surface as Go errors.
package tools

import (
	"strings"
)

// outputTail caps how much captured agent output a tool result carries.
// The MCP host cannot watch the agent's terminal, so this tail is its
// only view into what the agent said.
const outputTail = 40

// tail returns the last n lines of captured output.
func tail(output []byte, n int) string {
	text := strings.TrimRight(string(output), "\n")
	if text == "" {
		return ""
	}
	lines := strings.Split(text, "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}

// fenced wraps text in a markdown code fence, for embedding agent
// output in tool results.
func fenced(text string) string {
	return "```\n" + text + "\n```"
}
