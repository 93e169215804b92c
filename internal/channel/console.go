package channel

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"deskpilot/internal/agent"
	"deskpilot/internal/domain"
)

// Console implements agent.UserIO for interactive terminal chat.
type Console struct {
	logger  *slog.Logger
	in      *bufio.Scanner
	out     io.Writer
	started bool

	thinking  bool
	thinkMu   sync.Mutex
	thinkStop chan struct{}
}

type ConsoleConfig struct {
	Logger *slog.Logger
	In     io.Reader
	Out    io.Writer
}

func NewConsole(cfg ConsoleConfig) *Console {
	if cfg.In == nil {
		cfg.In = os.Stdin
	}
	if cfg.Out == nil {
		cfg.Out = os.Stdout
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Console{
		logger: cfg.Logger,
		in:     bufio.NewScanner(cfg.In),
		out:    cfg.Out,
	}
}

// NextInput prompts and blocks for the next user line. Empty lines re-prompt.
// "x", "/quit", "/exit", EOF, and context cancellation all end the run.
// A line of the form "/image <path> <message>" attaches the image file.
func (c *Console) NextInput(ctx context.Context) (*agent.UserInput, error) {
	c.stopThinking()
	if !c.started {
		fmt.Fprintln(c.out, "DeskPilot console. Type your request and press Enter. Type x or /quit to exit.")
		c.started = true
	}

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		fmt.Fprint(c.out, "You> ")
		if !c.in.Scan() {
			if err := c.in.Err(); err != nil {
				return nil, err
			}
			return nil, nil // EOF
		}

		line := strings.TrimSpace(c.in.Text())
		if line == "" {
			continue
		}
		if line == "x" || line == "/quit" || line == "/exit" || line == "/q" {
			c.logger.Info("user requested quit")
			return nil, nil
		}

		in, err := c.parseInput(line)
		if err != nil {
			fmt.Fprintf(c.out, "!! %v\n", err)
			continue
		}
		c.startThinking()
		return in, nil
	}
}

func (c *Console) parseInput(line string) (*agent.UserInput, error) {
	if !strings.HasPrefix(line, "/image ") {
		return &agent.UserInput{Text: line}, nil
	}

	rest := strings.TrimSpace(strings.TrimPrefix(line, "/image "))
	path, text, _ := strings.Cut(rest, " ")
	if path == "" {
		return nil, fmt.Errorf("usage: /image <path> <message>")
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	format := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	if format == "jpg" {
		format = "jpeg"
	}
	if format == "" {
		format = "png"
	}
	return &agent.UserInput{
		Text:  strings.TrimSpace(text),
		Image: &domain.Image{Format: format, Bytes: raw},
	}, nil
}

// SurfaceText prints assistant text as soon as the orchestrator has it.
func (c *Console) SurfaceText(text string) {
	c.stopThinking()
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	fmt.Fprint(c.out, "\r\033[K")
	fmt.Fprintln(c.out, "--- DeskPilot ---")
	fmt.Fprintln(c.out, text)
	fmt.Fprintln(c.out, "-----------------")
}

func (c *Console) startThinking() {
	c.thinkMu.Lock()
	defer c.thinkMu.Unlock()
	if c.thinking {
		return
	}
	c.thinking = true
	c.thinkStop = make(chan struct{})
	go func(stop chan struct{}) {
		frames := []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}
		i := 0
		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				fmt.Fprintf(c.out, "\r%s Thinking...", frames[i%len(frames)])
				i++
			}
		}
	}(c.thinkStop)
}

func (c *Console) stopThinking() {
	c.thinkMu.Lock()
	defer c.thinkMu.Unlock()
	if !c.thinking {
		return
	}
	c.thinking = false
	close(c.thinkStop)
}
