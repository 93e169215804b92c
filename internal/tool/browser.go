package tool

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"deskpilot/internal/browser"
	"deskpilot/internal/domain"
)

// BrowserInput selects a page operation and its target URL.
type BrowserInput struct {
	Action string `json:"action" jsonschema:"enum=text,enum=screenshot,enum=title" jsonschema_description:"Page operation: text extracts visible body text, screenshot captures the viewport as PNG, title reads the document title."`
	URL    string `json:"url" jsonschema_description:"Absolute URL of the page to open."`
}

var browserInputSchema = GenerateSchema[BrowserInput]()

// BrowserTool fetches live web pages through a managed Chrome instance, for
// content the plain HTTP tools cannot render.
type BrowserTool struct {
	bridge *browser.Bridge
	logger *slog.Logger
}

func NewBrowserTool(bridge *browser.Bridge, logger *slog.Logger) *BrowserTool {
	return &BrowserTool{bridge: bridge, logger: logger}
}

func (b *BrowserTool) Descriptor() domain.ToolDescriptor {
	return domain.ToolDescriptor{
		Name:        "browser",
		Description: "Open a web page in a real browser and extract its text, title, or a screenshot. Use for pages that need JavaScript rendering.",
		InputSchema: browserInputSchema,
	}
}

func (b *BrowserTool) Invoke(ctx context.Context, input map[string]any) domain.ToolOutput {
	action := ArgsString(input, "action")
	url := ArgsString(input, "url")
	if url == "" {
		return domain.ErrorOutput(domain.ErrKindInvalidArgument, "url is required")
	}
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		return domain.ErrorOutput(domain.ErrKindInvalidArgument, fmt.Sprintf("unsupported url %q", url))
	}

	switch action {
	case "text":
		text, err := b.bridge.PageText(ctx, url)
		if err != nil {
			return domain.ErrorOutput(domain.ErrKindInvocationFailure, err.Error())
		}
		return domain.ToolOutput{JSON: map[string]any{"status": "success", "text": text}}
	case "title":
		title, err := b.bridge.PageTitle(ctx, url)
		if err != nil {
			return domain.ErrorOutput(domain.ErrKindInvocationFailure, err.Error())
		}
		return domain.ToolOutput{JSON: map[string]any{"status": "success", "title": title}}
	case "screenshot":
		png, err := b.bridge.CapturePage(ctx, url)
		if err != nil {
			return domain.ErrorOutput(domain.ErrKindInvocationFailure, err.Error())
		}
		return domain.ToolOutput{
			JSON:  map[string]any{"status": "success"},
			Image: &domain.Image{Format: "png", Bytes: png},
		}
	default:
		return domain.ErrorOutput(domain.ErrKindInvalidAction, fmt.Sprintf("invalid action: %q", action))
	}
}
