package tool

import "testing"

func TestScalingTarget(t *testing.T) {
	tests := []struct {
		name     string
		physical Resolution
		want     Resolution
		ok       bool
	}{
		{"16:10 retina scales to WXGA", Resolution{2560, 1600}, Resolution{1280, 800}, true},
		{"4:3 display scales to XGA", Resolution{2048, 1536}, Resolution{1024, 768}, true},
		{"16:9 display scales to FWXGA", Resolution{1920, 1080}, Resolution{1366, 768}, true},
		{"already small passes through", Resolution{1024, 768}, Resolution{}, false},
		{"odd aspect ratio passes through", Resolution{2000, 500}, Resolution{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := scalingTarget(tt.physical)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if ok && got != tt.want {
				t.Fatalf("target = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestScaleCoordinates_APIDirection(t *testing.T) {
	physical := Resolution{2560, 1600} // scales to 1280x800, factor 0.5

	x, y, err := scaleCoordinates(physical, SourceAPI, 100, 200)
	if err != nil {
		t.Fatalf("scale: %v", err)
	}
	if x != 200 || y != 400 {
		t.Fatalf("expected (200, 400), got (%d, %d)", x, y)
	}
}

func TestScaleCoordinates_ComputerDirection(t *testing.T) {
	physical := Resolution{2560, 1600}

	x, y, err := scaleCoordinates(physical, SourceComputer, 2560, 1600)
	if err != nil {
		t.Fatalf("scale: %v", err)
	}
	if x != 1280 || y != 800 {
		t.Fatalf("expected (1280, 800), got (%d, %d)", x, y)
	}
}

func TestScaleCoordinates_OutOfBounds(t *testing.T) {
	physical := Resolution{2560, 1600}

	if _, _, err := scaleCoordinates(physical, SourceAPI, 3000, 100); err == nil {
		t.Fatal("expected out-of-bounds error for x beyond physical width")
	}
	if _, _, err := scaleCoordinates(physical, SourceAPI, 100, 1601); err == nil {
		t.Fatal("expected out-of-bounds error for y beyond physical height")
	}
}

func TestScaleCoordinates_NoTargetPassesThrough(t *testing.T) {
	physical := Resolution{800, 600} // 4:3 but smaller than XGA

	x, y, err := scaleCoordinates(physical, SourceAPI, 123, 456)
	if err != nil {
		t.Fatalf("scale: %v", err)
	}
	if x != 123 || y != 456 {
		t.Fatalf("expected passthrough, got (%d, %d)", x, y)
	}
}

// Scaling up then back down must recover the original point within one
// pixel of rounding error.
func TestScaleCoordinates_RoundTrip(t *testing.T) {
	displays := []Resolution{{2560, 1600}, {2048, 1536}, {1920, 1080}, {3840, 2160}}
	points := [][2]int{{0, 0}, {1, 1}, {100, 200}, {640, 480}, {1000, 700}}

	for _, d := range displays {
		target, ok := scalingTarget(d)
		if !ok {
			t.Fatalf("expected a scaling target for %v", d)
		}
		for _, p := range points {
			if p[0] > target.Width || p[1] > target.Height {
				continue
			}
			ux, uy, err := scaleCoordinates(d, SourceAPI, p[0], p[1])
			if err != nil {
				t.Fatalf("display %v point %v: %v", d, p, err)
			}
			dx, dy, err := scaleCoordinates(d, SourceComputer, ux, uy)
			if err != nil {
				t.Fatalf("display %v point %v: %v", d, p, err)
			}
			if abs(dx-p[0]) > 1 || abs(dy-p[1]) > 1 {
				t.Fatalf("display %v: (%d,%d) round-tripped to (%d,%d)", d, p[0], p[1], dx, dy)
			}
		}
	}
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

func TestParseResolution(t *testing.T) {
	res, err := parseResolution("1920x1080\n")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if res.Width != 1920 || res.Height != 1080 {
		t.Fatalf("got %v", res)
	}

	for _, bad := range []string{"", "1920", "x1080", "axb", "0x100"} {
		if _, err := parseResolution(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}
