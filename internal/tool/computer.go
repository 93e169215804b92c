package tool

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"deskpilot/internal/domain"
	"deskpilot/internal/metrics"
)

const (
	typingChunkSize          = 50
	defaultScreenshotDelay   = 2 * time.Second
	defaultComputerShellWait = 30 * time.Second
)

// Runner executes one shell command and returns its stdout and stderr.
// Abstracted so tests can substitute a fake for cliclick and the capture
// binaries.
type Runner interface {
	Run(ctx context.Context, command string) (stdout, stderr string, err error)
}

type execRunner struct {
	timeout time.Duration
}

func (r execRunner) Run(ctx context.Context, command string) (string, string, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}
	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.String(), stderr.String(), err
}

// actionError is a validation or resource failure inside an automation
// action, tagged with the error kind the model should see.
type actionError struct {
	kind domain.ErrorKind
	msg  string
}

func (e *actionError) Error() string { return e.msg }

func invalidArgument(format string, args ...any) error {
	return &actionError{kind: domain.ErrKindInvalidArgument, msg: fmt.Sprintf(format, args...)}
}

func invalidAction(format string, args ...any) error {
	return &actionError{kind: domain.ErrKindInvalidAction, msg: fmt.Sprintf(format, args...)}
}

func resourceUnavailable(format string, args ...any) error {
	return &actionError{kind: domain.ErrKindResourceUnavailable, msg: fmt.Sprintf(format, args...)}
}

// actionResult is what one automation action produces before it is wrapped
// into a tool output.
type actionResult struct {
	output  string
	errText string
	image   *domain.Image
}

// ComputerTool drives the local screen, keyboard, and mouse through shell
// primitives (cliclick for input, screencapture/import for the screen).
type ComputerTool struct {
	display        Resolution
	displayIndex   int
	scalingEnabled bool
	screenshotDir  string
	delay          time.Duration
	keymap         map[string]string
	keymapErr      error
	runner         Runner
	logger         *slog.Logger
	sleep          func(ctx context.Context, d time.Duration) error
}

type ComputerConfig struct {
	Display         Resolution // zero means autodetect
	DisplayIndex    int
	ScalingEnabled  bool
	ScreenshotDir   string
	ScreenshotDelay time.Duration
	KeymapPath      string
	ShellTimeout    time.Duration
	Runner          Runner
	Logger          *slog.Logger
}

func NewComputerTool(cfg ComputerConfig) *ComputerTool {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Runner == nil {
		timeout := cfg.ShellTimeout
		if timeout <= 0 {
			timeout = defaultComputerShellWait
		}
		cfg.Runner = execRunner{timeout: timeout}
	}
	if cfg.ScreenshotDelay <= 0 {
		cfg.ScreenshotDelay = defaultScreenshotDelay
	}
	if cfg.ScreenshotDir == "" {
		cfg.ScreenshotDir = filepath.Join(os.TempDir(), "deskpilot")
	}
	display := cfg.Display
	if display.Width <= 0 || display.Height <= 0 {
		display = detectDisplaySize(cfg.Runner, cfg.Logger)
	}
	keymap, keymapErr := LoadKeymap(cfg.KeymapPath)
	if keymapErr != nil {
		cfg.Logger.Warn("keymap unavailable, key actions will fail", "err", keymapErr)
	}
	return &ComputerTool{
		display:        display,
		displayIndex:   cfg.DisplayIndex,
		scalingEnabled: cfg.ScalingEnabled,
		screenshotDir:  cfg.ScreenshotDir,
		delay:          cfg.ScreenshotDelay,
		keymap:         keymap,
		keymapErr:      keymapErr,
		runner:         cfg.Runner,
		logger:         cfg.Logger,
		sleep:          ctxSleep,
	}
}

func ctxSleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// detectDisplaySize asks the OS for the main display resolution. On failure
// it falls back to FWXGA so the tool stays usable.
func detectDisplaySize(runner Runner, logger *slog.Logger) Resolution {
	var cmd string
	switch runtime.GOOS {
	case "darwin":
		cmd = `system_profiler SPDisplaysDataType | awk '/Resolution/{print $2 "x" $4; exit}'`
	default:
		cmd = `xdpyinfo | awk '/dimensions/{print $2; exit}'`
	}
	stdout, _, err := runner.Run(context.Background(), cmd)
	if err == nil {
		if res, perr := parseResolution(stdout); perr == nil {
			return res
		}
	}
	logger.Warn("could not detect display resolution, assuming 1366x768", "err", err)
	return Resolution{1366, 768}
}

// AdvertisedDisplay returns the display size in the model's coordinate
// space, which is what prompts should quote to the model.
func (c *ComputerTool) AdvertisedDisplay() Resolution {
	if !c.scalingEnabled {
		return c.display
	}
	w, h, err := scaleCoordinates(c.display, SourceComputer, c.display.Width, c.display.Height)
	if err != nil {
		return c.display
	}
	return Resolution{Width: w, Height: h}
}

func (c *ComputerTool) Descriptor() domain.ToolDescriptor {
	return domain.ToolDescriptor{
		Name: "computer",
		Description: "Control the computer screen, keyboard, and mouse. " +
			"Take screenshots, move and click the mouse, type text, and press keys. " +
			"Coordinates are interpreted in the scaled screenshot space.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"action": map[string]any{
					"type": "string",
					"enum": []string{
						"key", "type", "mouse_move", "left_click", "left_click_drag",
						"right_click", "middle_click", "double_click", "screenshot",
						"cursor_position",
					},
					"description": "The automation action to perform.",
				},
				"text": map[string]any{
					"type":        "string",
					"description": "Text to type, or key name to press. Required for key and type.",
				},
				"coordinate": map[string]any{
					"type":        "array",
					"items":       map[string]any{"type": "integer", "minimum": 0},
					"minItems":    2,
					"maxItems":    2,
					"description": "Target [x, y] position. Required for mouse_move and left_click_drag.",
				},
			},
			"required": []string{"action"},
		},
	}
}

func (c *ComputerTool) Invoke(ctx context.Context, input map[string]any) domain.ToolOutput {
	res, err := c.execute(ctx, input)
	if err != nil {
		if ae, ok := err.(*actionError); ok {
			return domain.ErrorOutput(ae.kind, ae.msg)
		}
		return domain.ErrorOutput(domain.ErrKindInvocationFailure, err.Error())
	}
	payload := map[string]any{}
	if res.output != "" {
		payload["Output"] = res.output
	}
	if res.errText != "" {
		payload["Error"] = res.errText
	}
	return domain.ToolOutput{JSON: payload, Image: res.image}
}

func (c *ComputerTool) execute(ctx context.Context, input map[string]any) (*actionResult, error) {
	action := ArgsString(input, "action")
	text, hasText := input["text"]
	coordinate, hasCoord := input["coordinate"]

	switch action {
	case "mouse_move", "left_click_drag":
		if !hasCoord {
			return nil, invalidArgument("coordinate is required for %s", action)
		}
		if hasText {
			return nil, invalidArgument("text is not accepted for %s", action)
		}
		x, y, err := parseCoordinate(coordinate)
		if err != nil {
			return nil, err
		}
		x, y, err = c.scale(SourceAPI, x, y)
		if err != nil {
			return nil, err
		}
		if action == "mouse_move" {
			return c.shell(ctx, fmt.Sprintf("cliclick m:%d,%d", x, y), true)
		}
		return c.shell(ctx, fmt.Sprintf("cliclick dd:. du:%d,%d", x, y), true)

	case "key", "type":
		if !hasText {
			return nil, invalidArgument("text is required for %s", action)
		}
		if hasCoord {
			return nil, invalidArgument("coordinate is not accepted for %s", action)
		}
		s, ok := text.(string)
		if !ok {
			return nil, invalidArgument("text must be a string, got %T", text)
		}
		if action == "key" {
			return c.pressKey(ctx, s)
		}
		return c.typeText(ctx, s)

	case "left_click", "right_click", "middle_click", "double_click", "screenshot", "cursor_position":
		if hasText {
			return nil, invalidArgument("text is not accepted for %s", action)
		}
		if hasCoord {
			return nil, invalidArgument("coordinate is not accepted for %s", action)
		}
		switch action {
		case "screenshot":
			return c.screenshot(ctx)
		case "cursor_position":
			return c.cursorPosition(ctx)
		default:
			clickArg := map[string]string{
				"left_click":   "c:.",
				"right_click":  "rc:.",
				"middle_click": "mc:.",
				"double_click": "dc:.",
			}[action]
			return c.shell(ctx, "cliclick "+clickArg, true)
		}

	default:
		return nil, invalidAction("invalid action: %q", action)
	}
}

func (c *ComputerTool) pressKey(ctx context.Context, name string) (*actionResult, error) {
	if c.keymapErr != nil {
		return nil, resourceUnavailable("key mapping unavailable: %v", c.keymapErr)
	}
	cmd, ok := c.keymap[name]
	if !ok {
		// Unmapped names pass through, so plain characters still work.
		cmd = name
	}
	c.logger.Debug("pressing key", "key", name, "cmd", cmd)
	return c.shell(ctx, "cliclick "+cmd, true)
}

// typeText submits the text in fixed-size chunks with no screenshot in
// between, then captures exactly one screenshot for the aggregated result.
func (c *ComputerTool) typeText(ctx context.Context, text string) (*actionResult, error) {
	agg := &actionResult{}
	for _, chunk := range chunkString(text, typingChunkSize) {
		res, err := c.shell(ctx, "cliclick t:"+shellQuote(chunk), false)
		if err != nil {
			return nil, err
		}
		agg.output += res.output
		agg.errText += res.errText
	}
	shot, err := c.screenshot(ctx)
	if err != nil {
		return nil, err
	}
	agg.image = shot.image
	return agg, nil
}

func (c *ComputerTool) cursorPosition(ctx context.Context) (*actionResult, error) {
	res, err := c.shell(ctx, "cliclick p:", false)
	if err != nil {
		return nil, err
	}
	x, y, err := parseCursorOutput(res.output)
	if err != nil {
		return nil, err
	}
	x, y, err = c.scale(SourceComputer, x, y)
	if err != nil {
		return nil, err
	}
	res.output = fmt.Sprintf("X=%d,Y=%d", x, y)
	return res, nil
}

// screenshot captures the display to a uniquely named file, rescales it to
// the coordinate target when scaling is on, and reads it back into memory.
func (c *ComputerTool) screenshot(ctx context.Context) (*actionResult, error) {
	if err := os.MkdirAll(c.screenshotDir, 0o755); err != nil {
		return nil, resourceUnavailable("create screenshot dir: %v", err)
	}
	path := filepath.Join(c.screenshotDir, "screenshot_"+strings.ReplaceAll(uuid.NewString(), "-", "")+".png")

	res, err := c.shell(ctx, c.captureCommand(path), false)
	if err != nil {
		return nil, err
	}
	if c.scalingEnabled {
		if w, h, serr := c.scale(SourceComputer, c.display.Width, c.display.Height); serr == nil {
			rescale := fmt.Sprintf("convert %s -resize %dx%d! %s", path, w, h, path)
			if _, rerr := c.shell(ctx, rescale, false); rerr != nil {
				c.logger.Warn("screenshot rescale failed", "err", rerr)
			}
		}
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, resourceUnavailable("failed to take screenshot: %s", strings.TrimSpace(res.errText))
	}
	metrics.Screenshots.Inc()
	res.image = &domain.Image{Format: "png", Bytes: raw}
	return res, nil
}

func (c *ComputerTool) captureCommand(path string) string {
	if runtime.GOOS == "darwin" {
		if c.displayIndex > 0 {
			return fmt.Sprintf("screencapture -D %d %s", c.displayIndex, path)
		}
		return "screencapture " + path
	}
	return "import -window root " + path
}

// shell runs one command through the runner. When takeScreenshot is set the
// tool waits for the settle delay and attaches a fresh screenshot, so the
// model sees the effect of its own action.
func (c *ComputerTool) shell(ctx context.Context, command string, takeScreenshot bool) (*actionResult, error) {
	stdout, stderr, err := c.runner.Run(ctx, command)
	if err != nil && stderr == "" {
		stderr = err.Error()
	}
	res := &actionResult{output: stdout, errText: stderr}
	if takeScreenshot {
		if err := c.sleep(ctx, c.delay); err != nil {
			return nil, err
		}
		shot, err := c.screenshot(ctx)
		if err != nil {
			return nil, err
		}
		res.image = shot.image
	}
	return res, nil
}

func (c *ComputerTool) scale(source ScalingSource, x, y int) (int, int, error) {
	if !c.scalingEnabled {
		return x, y, nil
	}
	sx, sy, err := scaleCoordinates(c.display, source, x, y)
	if err != nil {
		return 0, 0, invalidArgument("%v", err)
	}
	return sx, sy, nil
}

// parseCoordinate accepts the JSON decoding of a two-element array of
// non-negative integers.
func parseCoordinate(v any) (int, int, error) {
	arr, ok := v.([]any)
	if !ok || len(arr) != 2 {
		return 0, 0, invalidArgument("%v must be an array of length 2", v)
	}
	vals := make([]int, 2)
	for i, item := range arr {
		var f float64
		switch n := item.(type) {
		case float64:
			f = n
		case int:
			f = float64(n)
		default:
			return 0, 0, invalidArgument("%v must contain non-negative integers", v)
		}
		if f < 0 || f != float64(int(f)) {
			return 0, 0, invalidArgument("%v must contain non-negative integers", v)
		}
		vals[i] = int(f)
	}
	return vals[0], vals[1], nil
}

func parseCursorOutput(s string) (int, int, error) {
	parts := strings.SplitN(strings.TrimSpace(s), ",", 2)
	if len(parts) != 2 {
		return 0, 0, resourceUnavailable("unexpected cursor position output %q", s)
	}
	x, errX := strconv.Atoi(strings.TrimSpace(parts[0]))
	y, errY := strconv.Atoi(strings.TrimSpace(parts[1]))
	if errX != nil || errY != nil {
		return 0, 0, resourceUnavailable("unexpected cursor position output %q", s)
	}
	return x, y, nil
}

// chunkString splits s into rune chunks of at most size characters.
func chunkString(s string, size int) []string {
	runes := []rune(s)
	var out []string
	for len(runes) > 0 {
		n := size
		if n > len(runes) {
			n = len(runes)
		}
		out = append(out, string(runes[:n]))
		runes = runes[n:]
	}
	return out
}

// shellQuote single-quotes s for sh, escaping embedded single quotes.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'"'"'`) + "'"
}
