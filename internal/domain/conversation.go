package domain

// Role identifies the logical originator of a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// BlockKind tags a ContentBlock variant.
type BlockKind string

const (
	BlockText       BlockKind = "text"
	BlockImage      BlockKind = "image"
	BlockToolUse    BlockKind = "tool_use"
	BlockToolResult BlockKind = "tool_result"
)

// ContentBlock is the smallest addressable unit of turn content. Exactly one
// of the variant fields is set, selected by Kind.
type ContentBlock struct {
	Kind       BlockKind        `json:"kind"`
	Text       string           `json:"text,omitempty"`
	Image      *Image           `json:"image,omitempty"`
	ToolUse    *ToolUseRequest  `json:"tool_use,omitempty"`
	ToolResult *ToolResultBlock `json:"tool_result,omitempty"`
}

func TextBlock(text string) ContentBlock {
	return ContentBlock{Kind: BlockText, Text: text}
}

func ImageBlock(img Image) ContentBlock {
	return ContentBlock{Kind: BlockImage, Image: &img}
}

func ToolUseBlock(req ToolUseRequest) ContentBlock {
	return ContentBlock{Kind: BlockToolUse, ToolUse: &req}
}

func ToolResultContent(res ToolResultBlock) ContentBlock {
	return ContentBlock{Kind: BlockToolResult, ToolResult: &res}
}

// Turn is one message-level unit of a conversation. Immutable once appended.
type Turn struct {
	Role    Role           `json:"role"`
	Content []ContentBlock `json:"content"`
}

// ToolUses returns the tool invocation requests embedded in the turn, in order.
func (t Turn) ToolUses() []ToolUseRequest {
	var reqs []ToolUseRequest
	for _, b := range t.Content {
		if b.Kind == BlockToolUse && b.ToolUse != nil {
			reqs = append(reqs, *b.ToolUse)
		}
	}
	return reqs
}

// Text joins the turn's text blocks.
func (t Turn) Text() string {
	var out string
	for _, b := range t.Content {
		if b.Kind == BlockText {
			out += b.Text
		}
	}
	return out
}

// Conversation is an append-only transcript owned by a single orchestrator run.
type Conversation struct {
	turns []Turn
}

func (c *Conversation) Append(t Turn) {
	c.turns = append(c.turns, t)
}

// Turns returns the transcript. Callers must not mutate the returned slice.
func (c *Conversation) Turns() []Turn {
	return c.turns
}

func (c *Conversation) Len() int {
	return len(c.turns)
}
