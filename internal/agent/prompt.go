package agent

import (
	"fmt"
	"path/filepath"
	"runtime"
	"strings"
	"time"
)

// PromptConfig holds the inputs the system prompt is rendered from.
type PromptConfig struct {
	Workspace         string
	Tools             []string // advertised tool names, for the capability list
	DisplayWidth      int      // scaled-down display size the model reasons in
	DisplayHeight     int
	SystemPromptExtra string // custom text appended to the system prompt
}

// BuildSystemPrompt renders the fixed system prompt for a run. It is built
// once at startup; the transcript carries everything that changes after
// that.
func BuildSystemPrompt(cfg PromptConfig) string {
	now := time.Now().Format("2006-01-02 15:04 (Monday)")
	workspacePath, err := filepath.Abs(cfg.Workspace)
	if err != nil {
		workspacePath = cfg.Workspace
	}
	osArch := fmt.Sprintf("%s %s", runtime.GOOS, runtime.GOARCH)

	var b strings.Builder
	b.WriteString(`# DeskPilot

You are DeskPilot, an assistant that operates the user's computer through tools. Work in small steps: act, observe the screenshot or tool result, then decide the next action.

## Current Time
`)
	b.WriteString(now)
	b.WriteString("\n\n## Runtime\n")
	b.WriteString(osArch)
	b.WriteString(", Go ")
	b.WriteString(runtime.Version())
	b.WriteString("\n\n## Workspace\n")
	b.WriteString(workspacePath)

	if len(cfg.Tools) > 0 {
		b.WriteString("\n\n## Available Tools\n")
		for _, name := range cfg.Tools {
			b.WriteString("- ")
			b.WriteString(name)
			b.WriteByte('\n')
		}
	}

	if cfg.DisplayWidth > 0 && cfg.DisplayHeight > 0 {
		fmt.Fprintf(&b, "\n## Display\nThe screen is %dx%d in your coordinate space. Screenshots and cursor positions use this space; supply coordinates in it.\n",
			cfg.DisplayWidth, cfg.DisplayHeight)
	}

	b.WriteString(`
## RULES
1. When the user asks you to DO something on the computer, use the tools. Never claim you cannot act without trying first.
2. After every input action you receive a screenshot. Read it before the next action instead of assuming the result.
3. If a tool returns an error payload, adjust your approach and tell the user what went wrong. Do not retry the same call blindly.
4. Do NOT output raw JSON in your response. Use the tool calling mechanism.
5. Present tool results clearly. Do not mention tool names to the user.
6. Respond in the same language the user writes in.`)

	if cfg.SystemPromptExtra != "" {
		b.WriteString("\n\n## Custom Instructions\n")
		b.WriteString(cfg.SystemPromptExtra)
	}
	return b.String()
}
