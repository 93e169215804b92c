package provider

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"deskpilot/internal/domain"
)

const (
	claudeAPIURL       = "https://api.anthropic.com/v1/messages"
	claudeAPIVersion   = "2023-06-01"
	claudeDefaultModel = "claude-sonnet-4-5-20250514"
	defaultMaxTokens   = 4096
	defaultHTTPTimeout = 120 * time.Second
)

// Claude implements domain.Endpoint against the Anthropic Messages API.
type Claude struct {
	apiKey  string
	apiBase string
	model   string
	client  *http.Client
	logger  *slog.Logger
}

type ClaudeConfig struct {
	APIKey  string
	APIBase string
	Model   string
	Logger  *slog.Logger
}

func NewClaude(cfg ClaudeConfig) *Claude {
	if cfg.Model == "" {
		cfg.Model = claudeDefaultModel
	}
	if cfg.APIBase == "" {
		cfg.APIBase = claudeAPIURL
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Claude{
		apiKey:  cfg.APIKey,
		apiBase: cfg.APIBase,
		model:   cfg.Model,
		client:  SharedHTTPClient(defaultHTTPTimeout),
		logger:  cfg.Logger,
	}
}

func (c *Claude) Name() string { return "claude" }

// Wire types for the Anthropic Messages API.

type claudeRequest struct {
	Model     string       `json:"model"`
	MaxTokens int          `json:"max_tokens"`
	System    string       `json:"system,omitempty"`
	Messages  []claudeMsg  `json:"messages"`
	Tools     []claudeTool `json:"tools,omitempty"`
	Temp      *float64     `json:"temperature,omitempty"`
}

type claudeMsg struct {
	Role    string          `json:"role"`
	Content []claudeContent `json:"content"`
}

type claudeContent struct {
	Type      string          `json:"type"` // text | image | tool_use | tool_result
	Text      string          `json:"text,omitempty"`
	Source    *claudeImageSrc `json:"source,omitempty"`
	ID        string          `json:"id,omitempty"`
	Name      string          `json:"name,omitempty"`
	Input     map[string]any  `json:"input,omitempty"`
	ToolUseID string          `json:"tool_use_id,omitempty"`
	Content   []claudeContent `json:"content,omitempty"` // nested tool_result content
	IsError   bool            `json:"is_error,omitempty"`
}

type claudeImageSrc struct {
	Type      string `json:"type"` // "base64"
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

type claudeTool struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"input_schema"`
}

type claudeResponse struct {
	Content    []claudeContent `json:"content"`
	StopReason string          `json:"stop_reason"`
	Usage      claudeUsage     `json:"usage"`
}

type claudeUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// Send converts the transcript to the wire format, posts it with retry, and
// converts the reply back into a domain turn.
func (c *Claude) Send(ctx context.Context, req domain.SendRequest) (*domain.ModelResponse, error) {
	model := req.Model
	if model == "" {
		model = c.model
	}
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	body := claudeRequest{
		Model:     model,
		MaxTokens: maxTokens,
		System:    req.System,
	}
	if req.Temperature > 0 {
		t := req.Temperature
		body.Temp = &t
	}
	for _, turn := range req.Turns {
		body.Messages = append(body.Messages, claudeMsg{
			Role:    string(turn.Role),
			Content: encodeBlocks(turn.Content),
		})
	}
	for _, t := range req.Tools {
		body.Tools = append(body.Tools, claudeTool{
			Name:        t.Name,
			Description: t.Description,
			InputSchema: t.InputSchema,
		})
	}

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal: %w", err)
	}

	start := time.Now()
	resp, err := doWithRetry(ctx, c.client, func() (*http.Request, error) {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiBase, bytes.NewReader(jsonBody))
		if err != nil {
			return nil, err
		}
		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set("x-api-key", c.apiKey)
		httpReq.Header.Set("anthropic-version", claudeAPIVersion)
		return httpReq, nil
	}, c.logger)
	if err != nil {
		return nil, fmt.Errorf("claude request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("claude %d: %s", resp.StatusCode, string(respBody))
	}

	var claudeResp claudeResponse
	if err := json.NewDecoder(resp.Body).Decode(&claudeResp); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}

	return &domain.ModelResponse{
		StopReason: domain.StopReason(claudeResp.StopReason),
		Turn: domain.Turn{
			Role:    domain.RoleAssistant,
			Content: decodeBlocks(claudeResp.Content),
		},
		Usage: domain.Usage{
			InputTokens:  claudeResp.Usage.InputTokens,
			OutputTokens: claudeResp.Usage.OutputTokens,
		},
		LatencyMs: time.Since(start).Milliseconds(),
	}, nil
}

func encodeBlocks(blocks []domain.ContentBlock) []claudeContent {
	var out []claudeContent
	for _, b := range blocks {
		switch b.Kind {
		case domain.BlockText:
			out = append(out, claudeContent{Type: "text", Text: b.Text})
		case domain.BlockImage:
			out = append(out, imageContent(*b.Image))
		case domain.BlockToolUse:
			input := b.ToolUse.Input
			if input == nil {
				input = map[string]any{}
			}
			out = append(out, claudeContent{
				Type:  "tool_use",
				ID:    b.ToolUse.ID,
				Name:  b.ToolUse.Name,
				Input: input,
			})
		case domain.BlockToolResult:
			out = append(out, encodeToolResult(*b.ToolResult))
		}
	}
	return out
}

// encodeToolResult flattens a tool output into tool_result content: the JSON
// payload as a text block plus an optional image block.
func encodeToolResult(res domain.ToolResultBlock) claudeContent {
	var nested []claudeContent
	if len(res.Output.JSON) > 0 {
		data, err := json.Marshal(res.Output.JSON)
		if err != nil {
			data = []byte(fmt.Sprintf("%v", res.Output.JSON))
		}
		nested = append(nested, claudeContent{Type: "text", Text: string(data)})
	}
	if res.Output.Image != nil {
		nested = append(nested, imageContent(*res.Output.Image))
	}
	return claudeContent{
		Type:      "tool_result",
		ToolUseID: res.ToolUseID,
		Content:   nested,
		IsError:   res.Output.IsError(),
	}
}

func imageContent(img domain.Image) claudeContent {
	mediaType := "image/png"
	if img.Format != "" {
		mediaType = "image/" + img.Format
	}
	return claudeContent{
		Type: "image",
		Source: &claudeImageSrc{
			Type:      "base64",
			MediaType: mediaType,
			Data:      base64.StdEncoding.EncodeToString(img.Bytes),
		},
	}
}

func decodeBlocks(blocks []claudeContent) []domain.ContentBlock {
	var out []domain.ContentBlock
	for _, b := range blocks {
		switch b.Type {
		case "text":
			out = append(out, domain.TextBlock(b.Text))
		case "tool_use":
			input := b.Input
			if input == nil {
				input = map[string]any{}
			}
			out = append(out, domain.ToolUseBlock(domain.ToolUseRequest{
				ID:    b.ID,
				Name:  b.Name,
				Input: input,
			}))
		}
	}
	return out
}
