package audit

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(filepath.Join(t.TempDir(), "audit.db"), testLogger())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestRecordToolInvocation(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	err := store.RecordToolInvocation(ctx, ToolInvocation{
		RunID:     "run-1",
		ToolName:  "computer",
		ToolUseID: "t1",
		Input:     `{"action":"screenshot"}`,
		Outcome:   "ok",
		LatencyMs: 120,
	})
	if err != nil {
		t.Fatalf("record: %v", err)
	}

	got, err := store.RecentToolInvocations(ctx, 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 row, got %d", len(got))
	}
	if got[0].ToolName != "computer" || got[0].ToolUseID != "t1" {
		t.Fatalf("unexpected row: %+v", got[0])
	}
}

func TestRecentToolInvocations_NewestFirst(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, name := range []string{"first", "second", "third"} {
		if err := store.RecordToolInvocation(ctx, ToolInvocation{RunID: "r", ToolName: name, Outcome: "ok"}); err != nil {
			t.Fatalf("record %s: %v", name, err)
		}
	}

	got, err := store.RecentToolInvocations(ctx, 2)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(got))
	}
	if got[0].ToolName != "third" || got[1].ToolName != "second" {
		t.Fatalf("expected newest first, got %s then %s", got[0].ToolName, got[1].ToolName)
	}
}

func TestRecordModelCall(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	err := store.RecordModelCall(ctx, ModelCall{
		RunID:        "run-1",
		Endpoint:     "claude",
		StopReason:   "end_turn",
		InputTokens:  100,
		OutputTokens: 20,
		LatencyMs:    800,
	})
	if err != nil {
		t.Fatalf("record: %v", err)
	}

	got, err := store.RecentModelCalls(ctx, 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 row, got %d", len(got))
	}
	if got[0].StopReason != "end_turn" || got[0].InputTokens != 100 {
		t.Fatalf("unexpected row: %+v", got[0])
	}
}

func TestPrune(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	old := ToolInvocation{RunID: "r", ToolName: "old", Outcome: "ok", CreatedAt: time.Now().Add(-48 * time.Hour)}
	recent := ToolInvocation{RunID: "r", ToolName: "recent", Outcome: "ok"}
	if err := store.RecordToolInvocation(ctx, old); err != nil {
		t.Fatalf("record old: %v", err)
	}
	if err := store.RecordToolInvocation(ctx, recent); err != nil {
		t.Fatalf("record recent: %v", err)
	}

	if err := store.Prune(ctx, 24*time.Hour); err != nil {
		t.Fatalf("prune: %v", err)
	}

	got, err := store.RecentToolInvocations(ctx, 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(got) != 1 || got[0].ToolName != "recent" {
		t.Fatalf("expected only recent row, got %+v", got)
	}
}
