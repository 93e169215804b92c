package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"deskpilot/internal/audit"
	"deskpilot/internal/domain"
	"deskpilot/internal/metrics"
)

// Dispatcher routes tool_use requests to registered tools. Dispatch never
// returns a Go error: every failure mode becomes a structured error payload
// inside the tool result, so the model sees it instead of the process dying.
type Dispatcher struct {
	registry *Registry
	store    *audit.Store // optional
	logger   *slog.Logger
	runID    string
}

type DispatcherConfig struct {
	Registry *Registry
	Store    *audit.Store
	Logger   *slog.Logger
	RunID    string
}

func NewDispatcher(cfg DispatcherConfig) *Dispatcher {
	return &Dispatcher{
		registry: cfg.Registry,
		store:    cfg.Store,
		logger:   cfg.Logger,
		runID:    cfg.RunID,
	}
}

// Dispatch executes one tool_use request and returns its result block. The
// result always carries the request's ID so the endpoint can correlate it.
func (d *Dispatcher) Dispatch(ctx context.Context, req domain.ToolUseRequest) domain.ToolResultBlock {
	start := time.Now()
	out := d.invoke(ctx, req)
	elapsed := time.Since(start)

	metrics.ToolLatency.Observe(elapsed.Seconds())
	if out.IsError() {
		metrics.ToolInvocationsError.Inc()
		d.logger.Warn("tool invocation failed",
			"tool", req.Name, "tool_use_id", req.ID,
			"error", out.JSON["error"], "message", out.JSON["message"])
	} else {
		metrics.ToolInvocationsOK.Inc()
		d.logger.Debug("tool invocation ok",
			"tool", req.Name, "tool_use_id", req.ID, "latency", elapsed)
	}
	d.record(ctx, req, out, elapsed)

	return domain.ToolResultBlock{ToolUseID: req.ID, Output: out}
}

func (d *Dispatcher) invoke(ctx context.Context, req domain.ToolUseRequest) (out domain.ToolOutput) {
	t, ok := d.registry.Resolve(req.Name)
	if !ok {
		return domain.ErrorOutput(domain.ErrKindToolNotFound,
			fmt.Sprintf("tool %q is not registered (available: %v)", req.Name, d.registry.Names()))
	}
	inv, ok := t.(domain.Invoker)
	if !ok {
		return domain.ErrorOutput(domain.ErrKindToolInvalid,
			fmt.Sprintf("tool %q does not implement the invocation contract", req.Name))
	}
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("tool panicked", "tool", req.Name, "panic", r)
			out = domain.ErrorOutput(domain.ErrKindInvocationFailure,
				fmt.Sprintf("tool %q panicked: %v", req.Name, r))
		}
	}()
	return inv.Invoke(ctx, req.Input)
}

func (d *Dispatcher) record(ctx context.Context, req domain.ToolUseRequest, out domain.ToolOutput, elapsed time.Duration) {
	if d.store == nil {
		return
	}
	input, _ := json.Marshal(req.Input)
	outcome := "ok"
	message := ""
	if out.IsError() {
		outcome, _ = out.JSON["error"].(string)
		message, _ = out.JSON["message"].(string)
	}
	rec := audit.ToolInvocation{
		RunID:     d.runID,
		ToolName:  req.Name,
		ToolUseID: req.ID,
		Input:     string(input),
		Outcome:   outcome,
		Message:   message,
		LatencyMs: elapsed.Milliseconds(),
	}
	if err := d.store.RecordToolInvocation(ctx, rec); err != nil {
		d.logger.Warn("audit write failed", "err", err)
	}
}
