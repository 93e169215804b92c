package tool

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ScalingSource says which coordinate space a pair of coordinates lives in.
type ScalingSource int

const (
	// SourceAPI means coordinates from the model, in the scaled-down space.
	SourceAPI ScalingSource = iota
	// SourceComputer means physical screen coordinates.
	SourceComputer
)

// Resolution is a display size in pixels.
type Resolution struct {
	Width  int
	Height int
}

func (r Resolution) aspect() float64 {
	return float64(r.Width) / float64(r.Height)
}

// scalingTargets are the resolutions screenshots and coordinates are scaled
// to, tried in order. Only the first aspect-ratio match is considered.
var scalingTargets = []struct {
	name string
	res  Resolution
}{
	{"XGA", Resolution{1024, 768}},    // 4:3
	{"WXGA", Resolution{1280, 800}},   // 16:10
	{"FWXGA", Resolution{1366, 768}},  // ~16:9
}

const aspectTolerance = 0.02

// scalingTarget picks the target resolution for a physical display, or
// false when no target applies (uncommon aspect ratio, or the display is
// already at or below the target size).
func scalingTarget(physical Resolution) (Resolution, bool) {
	ratio := physical.aspect()
	for _, t := range scalingTargets {
		if math.Abs(t.res.aspect()-ratio) < aspectTolerance {
			if t.res.Width < physical.Width {
				return t.res, true
			}
			break
		}
	}
	return Resolution{}, false
}

// scaleCoordinates translates a coordinate pair between the model's space
// and the physical screen. API coordinates are bounds-checked against the
// physical display before scaling up; physical coordinates are scaled down
// unchecked.
func scaleCoordinates(physical Resolution, source ScalingSource, x, y int) (int, int, error) {
	target, ok := scalingTarget(physical)
	if !ok {
		return x, y, nil
	}
	xFactor := float64(target.Width) / float64(physical.Width)
	yFactor := float64(target.Height) / float64(physical.Height)
	if source == SourceAPI {
		if x > physical.Width || y > physical.Height {
			return 0, 0, fmt.Errorf("coordinates %d, %d are out of bounds", x, y)
		}
		return int(math.Round(float64(x) / xFactor)), int(math.Round(float64(y) / yFactor)), nil
	}
	return int(math.Round(float64(x) * xFactor)), int(math.Round(float64(y) * yFactor)), nil
}

// parseResolution parses a "WxH" string such as "1920x1080".
func parseResolution(s string) (Resolution, error) {
	parts := strings.SplitN(strings.TrimSpace(s), "x", 2)
	if len(parts) != 2 {
		return Resolution{}, fmt.Errorf("malformed resolution %q", s)
	}
	w, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return Resolution{}, fmt.Errorf("malformed resolution %q: %w", s, err)
	}
	h, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return Resolution{}, fmt.Errorf("malformed resolution %q: %w", s, err)
	}
	if w <= 0 || h <= 0 {
		return Resolution{}, fmt.Errorf("malformed resolution %q", s)
	}
	return Resolution{Width: w, Height: h}, nil
}
