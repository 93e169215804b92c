package domain

import "context"

// StopReason is the endpoint's signal for why generation stopped. Only
// StopToolUse and StopEndTurn get first-class handling; anything else is
// surfaced as unhandled.
type StopReason string

const (
	StopEndTurn   StopReason = "end_turn"
	StopToolUse   StopReason = "tool_use"
	StopMaxTokens StopReason = "max_tokens"
)

// SendRequest is one call to the model endpoint: the full transcript, the
// fixed system prompt, and the advertised tool descriptors.
type SendRequest struct {
	System      string
	Turns       []Turn
	Tools       []ToolDescriptor
	Model       string
	MaxTokens   int
	Temperature float64
}

// ModelResponse is the endpoint's reply: why it stopped and the turn it produced.
type ModelResponse struct {
	StopReason StopReason
	Turn       Turn
	Usage      Usage
	LatencyMs  int64
}

type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// Endpoint is the model endpoint boundary. Transport retries, if any, belong
// behind this interface, never in the orchestrator.
type Endpoint interface {
	Send(ctx context.Context, req SendRequest) (*ModelResponse, error)
	Name() string
}
