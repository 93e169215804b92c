package agent

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"deskpilot/internal/audit"
	"deskpilot/internal/domain"
	"deskpilot/internal/metrics"
	"deskpilot/internal/tool"
)

// UserInput is one line of user intent, optionally with an attached image.
type UserInput struct {
	Text  string
	Image *domain.Image
}

// UserIO is the conversation surface the orchestrator talks to. A console
// implements it; tests use a scripted fake.
type UserIO interface {
	// NextInput blocks for the next user input. A nil input means the user
	// asked to exit; the run ends cleanly.
	NextInput(ctx context.Context) (*UserInput, error)
	// SurfaceText shows assistant text to the user as soon as it is known,
	// including text that precedes tool results within a round.
	SurfaceText(text string)
}

// Orchestrator drives the tool-use conversation loop: send the transcript,
// dispatch requested tools, feed results back, repeat until the model stops
// asking. One user turn is processed fully before the next is accepted.
type Orchestrator struct {
	endpoint    domain.Endpoint
	dispatcher  *tool.Dispatcher
	descriptors []domain.ToolDescriptor

	systemPrompt  string
	model         string
	maxTokens     int
	temperature   float64
	maxRecursions int

	store  *audit.Store // optional
	runID  string
	logger *slog.Logger
}

type Config struct {
	Endpoint      domain.Endpoint
	Dispatcher    *tool.Dispatcher
	Descriptors   []domain.ToolDescriptor
	SystemPrompt  string
	Model         string
	MaxTokens     int
	Temperature   float64
	MaxRecursions int
	Store         *audit.Store
	RunID         string
	Logger        *slog.Logger
}

func New(cfg Config) *Orchestrator {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.MaxRecursions <= 0 {
		cfg.MaxRecursions = 10
	}
	return &Orchestrator{
		endpoint:      cfg.Endpoint,
		dispatcher:    cfg.Dispatcher,
		descriptors:   cfg.Descriptors,
		systemPrompt:  cfg.SystemPrompt,
		model:         cfg.Model,
		maxTokens:     cfg.MaxTokens,
		temperature:   cfg.Temperature,
		maxRecursions: cfg.MaxRecursions,
		store:         cfg.Store,
		runID:         cfg.RunID,
		logger:        cfg.Logger,
	}
}

// Run accepts user inputs until the collaborator signals exit. Errors from
// the endpoint or the recursion guard are fatal to the run.
func (o *Orchestrator) Run(ctx context.Context, io UserIO) error {
	conv := &domain.Conversation{}
	for {
		in, err := io.NextInput(ctx)
		if err != nil {
			return err
		}
		if in == nil {
			o.logger.Info("run finished", "turns", conv.Len())
			return nil
		}

		content := []domain.ContentBlock{domain.TextBlock(in.Text)}
		if in.Image != nil {
			content = append(content, domain.ImageBlock(*in.Image))
		}
		conv.Append(domain.Turn{Role: domain.RoleUser, Content: content})
		metrics.TurnsTotal.Inc()

		if err := o.ProcessTurn(ctx, conv, io); err != nil {
			return err
		}
	}
}

// ProcessTurn runs the full tool-use state machine for the latest user turn:
// model call, stop-reason dispatch, tool rounds, until end_turn or the
// recursion budget runs out. The budget guarantees a single user turn always
// terminates even if the model keeps requesting tools.
func (o *Orchestrator) ProcessTurn(ctx context.Context, conv *domain.Conversation, io UserIO) error {
	for budget := o.maxRecursions; ; budget-- {
		resp, err := o.send(ctx, conv)
		if err != nil {
			return fmt.Errorf("model endpoint: %w", err)
		}
		conv.Append(resp.Turn)

		if budget <= 0 {
			return fmt.Errorf("%w after %d rounds", domain.ErrRecursionExhausted, o.maxRecursions)
		}

		switch resp.StopReason {
		case domain.StopToolUse:
			if err := o.handleToolUse(ctx, conv, resp.Turn, io); err != nil {
				return err
			}
		case domain.StopEndTurn:
			io.SurfaceText(resp.Turn.Text())
			return nil
		default:
			return fmt.Errorf("%w: %q", domain.ErrUnhandledStopReason, resp.StopReason)
		}
	}
}

// handleToolUse walks the model turn's blocks in order: text is surfaced
// immediately, every tool_use request is dispatched, and the results become
// the content of one new user turn in request order.
func (o *Orchestrator) handleToolUse(ctx context.Context, conv *domain.Conversation, turn domain.Turn, io UserIO) error {
	var results []domain.ContentBlock
	for _, block := range turn.Content {
		switch block.Kind {
		case domain.BlockText:
			io.SurfaceText(block.Text)
		case domain.BlockToolUse:
			res := o.dispatcher.Dispatch(ctx, *block.ToolUse)
			results = append(results, domain.ToolResultContent(res))
		}
	}
	if len(results) == 0 {
		return fmt.Errorf("%w: model stopped for tool_use with no requests", domain.ErrEmptyToolUse)
	}
	conv.Append(domain.Turn{Role: domain.RoleUser, Content: results})
	metrics.ToolUseRounds.Inc()
	return nil
}

func (o *Orchestrator) send(ctx context.Context, conv *domain.Conversation) (*domain.ModelResponse, error) {
	start := time.Now()
	resp, err := o.endpoint.Send(ctx, domain.SendRequest{
		System:      o.systemPrompt,
		Turns:       conv.Turns(),
		Tools:       o.descriptors,
		Model:       o.model,
		MaxTokens:   o.maxTokens,
		Temperature: o.temperature,
	})
	elapsed := time.Since(start)

	metrics.ModelCallsTotal.Inc()
	metrics.ModelLatency.Observe(elapsed.Seconds())
	if err != nil {
		o.logger.Error("model call failed", "endpoint", o.endpoint.Name(), "err", err)
		return nil, err
	}
	o.logger.Debug("model call",
		"stop_reason", resp.StopReason,
		"input_tokens", resp.Usage.InputTokens,
		"output_tokens", resp.Usage.OutputTokens,
		"latency", elapsed)
	o.recordCall(ctx, resp, elapsed)
	return resp, nil
}

func (o *Orchestrator) recordCall(ctx context.Context, resp *domain.ModelResponse, elapsed time.Duration) {
	if o.store == nil {
		return
	}
	call := audit.ModelCall{
		RunID:        o.runID,
		Endpoint:     o.endpoint.Name(),
		StopReason:   string(resp.StopReason),
		InputTokens:  resp.Usage.InputTokens,
		OutputTokens: resp.Usage.OutputTokens,
		LatencyMs:    elapsed.Milliseconds(),
	}
	if err := o.store.RecordModelCall(ctx, call); err != nil {
		o.logger.Warn("audit write failed", "err", err)
	}
}
