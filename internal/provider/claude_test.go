package provider

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"deskpilot/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestClaude(apiBase string) *Claude {
	return NewClaude(ClaudeConfig{
		APIKey:  "test-key",
		APIBase: apiBase,
		Model:   "test-model",
		Logger:  testLogger(),
	})
}

func TestSend_EndTurn(t *testing.T) {
	var gotReq claudeRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &gotReq); err != nil {
			t.Errorf("bad request body: %v", err)
		}
		json.NewEncoder(w).Encode(claudeResponse{
			Content:    []claudeContent{{Type: "text", Text: "4"}},
			StopReason: "end_turn",
			Usage:      claudeUsage{InputTokens: 10, OutputTokens: 1},
		})
	}))
	defer srv.Close()

	c := newTestClaude(srv.URL)
	resp, err := c.Send(context.Background(), domain.SendRequest{
		System: "you are helpful",
		Turns: []domain.Turn{
			{Role: domain.RoleUser, Content: []domain.ContentBlock{domain.TextBlock("what's 2+2")}},
		},
		Tools: []domain.ToolDescriptor{{Name: "computer", Description: "d", InputSchema: map[string]any{"type": "object"}}},
	})
	if err != nil {
		t.Fatalf("send: %v", err)
	}

	if resp.StopReason != domain.StopEndTurn {
		t.Fatalf("expected end_turn, got %q", resp.StopReason)
	}
	if resp.Turn.Text() != "4" {
		t.Fatalf("expected text '4', got %q", resp.Turn.Text())
	}
	if gotReq.System != "you are helpful" {
		t.Fatalf("system prompt not forwarded: %q", gotReq.System)
	}
	if len(gotReq.Tools) != 1 || gotReq.Tools[0].Name != "computer" {
		t.Fatalf("tool descriptors not forwarded: %+v", gotReq.Tools)
	}
	if resp.Usage.InputTokens != 10 {
		t.Fatalf("usage not mapped: %+v", resp.Usage)
	}
}

func TestSend_ToolUseDecoded(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(claudeResponse{
			Content: []claudeContent{
				{Type: "text", Text: "taking a look"},
				{Type: "tool_use", ID: "t1", Name: "computer", Input: map[string]any{"action": "screenshot"}},
			},
			StopReason: "tool_use",
		})
	}))
	defer srv.Close()

	c := newTestClaude(srv.URL)
	resp, err := c.Send(context.Background(), domain.SendRequest{
		Turns: []domain.Turn{{Role: domain.RoleUser, Content: []domain.ContentBlock{domain.TextBlock("look")}}},
	})
	if err != nil {
		t.Fatalf("send: %v", err)
	}

	if resp.StopReason != domain.StopToolUse {
		t.Fatalf("expected tool_use, got %q", resp.StopReason)
	}
	uses := resp.Turn.ToolUses()
	if len(uses) != 1 {
		t.Fatalf("expected 1 tool use, got %d", len(uses))
	}
	if uses[0].ID != "t1" || uses[0].Name != "computer" {
		t.Fatalf("unexpected tool use: %+v", uses[0])
	}
	if uses[0].Input["action"] != "screenshot" {
		t.Fatalf("input not decoded: %v", uses[0].Input)
	}
}

func TestSend_ToolResultEncoding(t *testing.T) {
	var gotReq claudeRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &gotReq)
		json.NewEncoder(w).Encode(claudeResponse{
			Content:    []claudeContent{{Type: "text", Text: "done"}},
			StopReason: "end_turn",
		})
	}))
	defer srv.Close()

	c := newTestClaude(srv.URL)
	result := domain.ToolResultBlock{
		ToolUseID: "t1",
		Output: domain.ToolOutput{
			JSON:  map[string]any{"Output": "ok"},
			Image: &domain.Image{Format: "png", Bytes: []byte{0x89, 0x50}},
		},
	}
	_, err := c.Send(context.Background(), domain.SendRequest{
		Turns: []domain.Turn{
			{Role: domain.RoleUser, Content: []domain.ContentBlock{domain.ToolResultContent(result)}},
		},
	})
	if err != nil {
		t.Fatalf("send: %v", err)
	}

	if len(gotReq.Messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(gotReq.Messages))
	}
	blocks := gotReq.Messages[0].Content
	if len(blocks) != 1 || blocks[0].Type != "tool_result" {
		t.Fatalf("expected tool_result block, got %+v", blocks)
	}
	if blocks[0].ToolUseID != "t1" {
		t.Fatalf("tool_use_id not carried: %q", blocks[0].ToolUseID)
	}
	// JSON text block plus image block nested in the result.
	if len(blocks[0].Content) != 2 {
		t.Fatalf("expected 2 nested blocks, got %d", len(blocks[0].Content))
	}
	if blocks[0].Content[1].Source == nil || blocks[0].Content[1].Source.MediaType != "image/png" {
		t.Fatalf("image source not encoded: %+v", blocks[0].Content[1])
	}
}

func TestSend_ErrorResultFlagged(t *testing.T) {
	var gotReq claudeRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &gotReq)
		json.NewEncoder(w).Encode(claudeResponse{StopReason: "end_turn"})
	}))
	defer srv.Close()

	c := newTestClaude(srv.URL)
	result := domain.ToolResultBlock{
		ToolUseID: "t1",
		Output:    domain.ErrorOutput(domain.ErrKindToolNotFound, "no such tool"),
	}
	_, err := c.Send(context.Background(), domain.SendRequest{
		Turns: []domain.Turn{
			{Role: domain.RoleUser, Content: []domain.ContentBlock{domain.ToolResultContent(result)}},
		},
	})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if !gotReq.Messages[0].Content[0].IsError {
		t.Fatal("expected is_error on structured error result")
	}
}

func TestSend_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"bad request"}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	c := newTestClaude(srv.URL)
	_, err := c.Send(context.Background(), domain.SendRequest{
		Turns: []domain.Turn{{Role: domain.RoleUser, Content: []domain.ContentBlock{domain.TextBlock("hi")}}},
	})
	if err == nil {
		t.Fatal("expected error for 400 response")
	}
}

func TestSend_RetriesServerError(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			http.Error(w, "overloaded", http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(claudeResponse{
			Content:    []claudeContent{{Type: "text", Text: "ok"}},
			StopReason: "end_turn",
		})
	}))
	defer srv.Close()

	c := newTestClaude(srv.URL)
	resp, err := c.Send(context.Background(), domain.SendRequest{
		Turns: []domain.Turn{{Role: domain.RoleUser, Content: []domain.ContentBlock{domain.TextBlock("hi")}}},
	})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected 2 attempts, got %d", calls)
	}
	if resp.Turn.Text() != "ok" {
		t.Fatalf("unexpected text %q", resp.Turn.Text())
	}
}
