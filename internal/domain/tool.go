package domain

import "context"

// ToolDescriptor is the static capability metadata advertised to the model
// endpoint. Built once at startup; immutable thereafter.
type ToolDescriptor struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"input_schema"`
}

// ToolUseRequest is the model's request to invoke a tool. Consumed exactly
// once by the dispatcher.
type ToolUseRequest struct {
	ID    string         `json:"id"`
	Name  string         `json:"name"`
	Input map[string]any `json:"input"`
}

// Image is binary image data tagged with its format ("png", "jpeg").
type Image struct {
	Format string `json:"format"`
	Bytes  []byte `json:"bytes"`
}

// ToolOutput is what a tool invocation produces: structured JSON-like data,
// an optional image, or both. Structured errors travel inside JSON as
// {"error": <kind>, "message": <text>} so the model can adapt.
type ToolOutput struct {
	JSON  map[string]any `json:"json,omitempty"`
	Image *Image         `json:"image,omitempty"`
}

// IsError reports whether the output carries a structured error payload.
func (o ToolOutput) IsError() bool {
	if o.JSON == nil {
		return false
	}
	_, ok := o.JSON["error"]
	return ok
}

// ErrorOutput builds a structured error payload for a tool result.
func ErrorOutput(kind ErrorKind, message string) ToolOutput {
	return ToolOutput{JSON: map[string]any{"error": string(kind), "message": message}}
}

// ToolResultBlock carries a tool's output back into the conversation, keyed
// by the originating request id.
type ToolResultBlock struct {
	ToolUseID string     `json:"tool_use_id"`
	Output    ToolOutput `json:"output"`
}

// Tool is the descriptor side of the capability contract. Every registered
// tool must expose its static descriptor.
type Tool interface {
	Descriptor() ToolDescriptor
}

// Invoker is the invocation side of the capability contract. A tool that is
// registered but does not implement Invoker is dispatched as ToolInvalid.
type Invoker interface {
	Invoke(ctx context.Context, input map[string]any) ToolOutput
}
