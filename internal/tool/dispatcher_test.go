package tool

import (
	"context"
	"testing"

	"deskpilot/internal/domain"
)

func newTestDispatcher(t *testing.T, tools ...domain.Tool) *Dispatcher {
	t.Helper()
	reg := NewRegistry(testLogger())
	for _, tl := range tools {
		if err := reg.Register(tl); err != nil {
			t.Fatalf("register: %v", err)
		}
	}
	return NewDispatcher(DispatcherConfig{Registry: reg, Logger: testLogger(), RunID: "test-run"})
}

func TestDispatcher_Success(t *testing.T) {
	out := domain.ToolOutput{JSON: map[string]any{"status": "success"}}
	d := newTestDispatcher(t, &stubTool{name: "echo", output: out})

	res := d.Dispatch(context.Background(), domain.ToolUseRequest{ID: "tu_1", Name: "echo"})
	if res.ToolUseID != "tu_1" {
		t.Fatalf("expected result id 'tu_1', got %q", res.ToolUseID)
	}
	if res.Output.IsError() {
		t.Fatalf("unexpected error payload: %v", res.Output.JSON)
	}
}

func TestDispatcher_UnknownTool(t *testing.T) {
	d := newTestDispatcher(t)

	res := d.Dispatch(context.Background(), domain.ToolUseRequest{ID: "tu_2", Name: "missing"})
	if res.ToolUseID != "tu_2" {
		t.Fatalf("result must carry the request id, got %q", res.ToolUseID)
	}
	if !res.Output.IsError() {
		t.Fatal("expected error payload for unknown tool")
	}
	if kind := res.Output.JSON["error"]; kind != string(domain.ErrKindToolNotFound) {
		t.Fatalf("expected ToolNotFound, got %v", kind)
	}
}

func TestDispatcher_ToolWithoutInvoker(t *testing.T) {
	d := newTestDispatcher(t, &lameTool{name: "halfbaked"})

	res := d.Dispatch(context.Background(), domain.ToolUseRequest{ID: "tu_3", Name: "halfbaked"})
	if kind := res.Output.JSON["error"]; kind != string(domain.ErrKindToolInvalid) {
		t.Fatalf("expected ToolInvalid, got %v", kind)
	}
}

func TestDispatcher_PanicBecomesInvocationFailure(t *testing.T) {
	d := newTestDispatcher(t, &stubTool{name: "bomb", panics: true})

	res := d.Dispatch(context.Background(), domain.ToolUseRequest{ID: "tu_4", Name: "bomb"})
	if kind := res.Output.JSON["error"]; kind != string(domain.ErrKindInvocationFailure) {
		t.Fatalf("expected ToolInvocationFailure, got %v", kind)
	}
	if res.ToolUseID != "tu_4" {
		t.Fatalf("result must carry the request id even on panic, got %q", res.ToolUseID)
	}
}

func TestDispatcher_ToolErrorPayloadPassedThrough(t *testing.T) {
	out := domain.ErrorOutput(domain.ErrKindInvalidArgument, "text is required for key")
	d := newTestDispatcher(t, &stubTool{name: "strict", output: out})

	res := d.Dispatch(context.Background(), domain.ToolUseRequest{ID: "tu_5", Name: "strict"})
	if kind := res.Output.JSON["error"]; kind != string(domain.ErrKindInvalidArgument) {
		t.Fatalf("expected InvalidArgument, got %v", kind)
	}
	if msg := res.Output.JSON["message"]; msg != "text is required for key" {
		t.Fatalf("unexpected message %v", msg)
	}
}
