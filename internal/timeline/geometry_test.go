package timeline

import (
	"math"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestWindow_ContainmentAndWidthAcrossAllLevels(t *testing.T) {
	duration := 120.0
	centers := []float64{-10, 0, 1, 35, 60, 119, 120, 500}

	for _, level := range ZoomLevels {
		for _, center := range centers {
			g := Geometry{Duration: duration, ZoomLevel: level, ZoomCenter: center}
			start, end := g.Window()

			if start < 0 || end > duration {
				t.Errorf("level %v center %v: window [%v,%v] escapes [0,%v]", level, center, start, end, duration)
			}
			if !almostEqual(end-start, duration/level) {
				t.Errorf("level %v center %v: width %v, want %v", level, center, end-start, duration/level)
			}
		}
	}
}

func TestWindow_SlidesInsteadOfShrinking(t *testing.T) {
	g := Geometry{Duration: 120, ZoomLevel: 4, ZoomCenter: 118}
	start, end := g.Window()
	if !almostEqual(start, 90) || !almostEqual(end, 120) {
		t.Errorf("expected window [90,120], got [%v,%v]", start, end)
	}

	g.ZoomCenter = 2
	start, end = g.Window()
	if !almostEqual(start, 0) || !almostEqual(end, 30) {
		t.Errorf("expected window [0,30], got [%v,%v]", start, end)
	}
}

func TestWindow_SpecScenarioLevel4Center35(t *testing.T) {
	// 120s video, level 4 → 30s window; centering on 35 gives [20, 50].
	g := Geometry{Duration: 120, ZoomLevel: 4, ZoomCenter: 35}
	start, end := g.Window()
	if !almostEqual(start, 20) || !almostEqual(end, 50) {
		t.Errorf("expected window [20,50], got [%v,%v]", start, end)
	}
}

func TestToFraction(t *testing.T) {
	g := Geometry{Duration: 120, ZoomLevel: 4, ZoomCenter: 35} // window [20,50]

	cases := []struct {
		time     float64
		fraction float64
		visible  bool
	}{
		{20, 0, true},
		{35, 0.5, true},
		{50, 1, true},
		{19.9, 0, false},
		{50.1, 0, false},
		{0, 0, false},
		{120, 0, false},
	}
	for _, c := range cases {
		frac, visible := g.ToFraction(c.time)
		if visible != c.visible {
			t.Errorf("ToFraction(%v): visible = %v, want %v", c.time, visible, c.visible)
			continue
		}
		if visible && !almostEqual(frac, c.fraction) {
			t.Errorf("ToFraction(%v) = %v, want %v", c.time, frac, c.fraction)
		}
	}
}

func TestFromFraction(t *testing.T) {
	g := Geometry{Duration: 120, ZoomLevel: 4, ZoomCenter: 35} // window [20,50]

	if got := g.FromFraction(0); !almostEqual(got, 20) {
		t.Errorf("FromFraction(0) = %v, want 20", got)
	}
	if got := g.FromFraction(0.5); !almostEqual(got, 35) {
		t.Errorf("FromFraction(0.5) = %v, want 35", got)
	}
	if got := g.FromFraction(1); !almostEqual(got, 50) {
		t.Errorf("FromFraction(1) = %v, want 50", got)
	}
	// Pointer positions can land slightly outside the track; results clamp
	// to the video bounds, not the window bounds.
	if got := g.FromFraction(-5); got != 0 {
		t.Errorf("FromFraction(-5) = %v, want 0", got)
	}
	if got := g.FromFraction(10); got != 120 {
		t.Errorf("FromFraction(10) = %v, want 120", got)
	}
}

func TestZeroDurationDisablesEverything(t *testing.T) {
	g := NewGeometry(0)

	if start, end := g.Window(); start != 0 || end != 0 {
		t.Errorf("expected empty window, got [%v,%v]", start, end)
	}
	if frac, visible := g.ToFraction(5); frac != 0 || visible {
		t.Errorf("expected (0,false), got (%v,%v)", frac, visible)
	}
	if got := g.FromFraction(0.5); got != 0 {
		t.Errorf("FromFraction on zero duration = %v, want 0", got)
	}
}

func TestStepInOut_WalksFixedSequence(t *testing.T) {
	g := NewGeometry(120)

	for _, want := range []float64{2, 4, 8, 16, 16} {
		g = g.StepIn(60)
		if g.ZoomLevel != want {
			t.Fatalf("StepIn: level %v, want %v", g.ZoomLevel, want)
		}
		if g.ZoomCenter != 60 {
			t.Fatalf("StepIn must re-center on the playhead, got center %v", g.ZoomCenter)
		}
	}

	for _, want := range []float64{8, 4, 2, 1, 1} {
		g = g.StepOut(30)
		if g.ZoomLevel != want {
			t.Fatalf("StepOut: level %v, want %v", g.ZoomLevel, want)
		}
	}
}

func TestRangeContains_Tolerance(t *testing.T) {
	r := Range{Start: 5, End: 8}

	cases := []struct {
		time string
		t    float64
		want bool
	}{
		{"inside", 6.5, true},
		{"start edge minus tolerance", 4.9, true},
		{"end edge plus tolerance", 8.1, true},
		{"before tolerance band", 4.89, false},
		{"after tolerance band", 8.11, false},
	}
	for _, c := range cases {
		if got := r.Contains(c.t, 0.1); got != c.want {
			t.Errorf("%s: Contains(%v) = %v, want %v", c.time, c.t, got, c.want)
		}
	}
}

func TestRangeClamp(t *testing.T) {
	r := Range{Start: -3, End: 200}.Clamp(120)
	if r.Start != 0 || r.End != 120 {
		t.Errorf("expected [0,120], got [%v,%v]", r.Start, r.End)
	}
}
