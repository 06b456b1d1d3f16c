package timeline

import "testing"

// unzoomed 120s track: fraction f maps to 120*f seconds.
func newTestInteraction() *Interaction {
	return NewInteraction(NewGeometry(120))
}

func TestClick_SeeksWithoutTouchingSelection(t *testing.T) {
	in := newTestInteraction()

	// Down at 10.0s, up at 10.05s: delta 0.05 < the 0.1s threshold.
	in.PointerDown(10.0/120, HitTrack, nil)
	if in.State() != Creating {
		t.Fatalf("expected creating, got %v", in.State())
	}
	commit, ok := in.PointerUp(10.05 / 120)
	if !ok {
		t.Fatal("expected a commit")
	}
	if commit.Selection != nil {
		t.Errorf("a click must not produce a selection, got %+v", *commit.Selection)
	}
	if !almostEqual(commit.Seek, 10.05) {
		t.Errorf("expected seek to 10.05, got %v", commit.Seek)
	}
	if in.State() != Idle {
		t.Errorf("expected idle after release, got %v", in.State())
	}
}

func TestDrag_CommitsRangeAndSeeksToStart(t *testing.T) {
	in := newTestInteraction()

	// Down at 10.0s, up at 10.2s: delta 0.2 >= threshold.
	in.PointerDown(10.0/120, HitTrack, nil)
	in.PointerMove(10.1 / 120)
	commit, ok := in.PointerUp(10.2 / 120)
	if !ok {
		t.Fatal("expected a commit")
	}
	if commit.Selection == nil {
		t.Fatal("expected a committed selection")
	}
	if !almostEqual(commit.Selection.Start, 10.0) || !almostEqual(commit.Selection.End, 10.2) {
		t.Errorf("expected range [10.0,10.2], got [%v,%v]", commit.Selection.Start, commit.Selection.End)
	}
	if !almostEqual(commit.Seek, 10.0) {
		t.Errorf("expected seek to range start 10.0, got %v", commit.Seek)
	}
}

func TestDrag_Backward_NormalizesRange(t *testing.T) {
	in := newTestInteraction()

	in.PointerDown(40.0/120, HitTrack, nil)
	in.PointerMove(32.0 / 120)
	commit, _ := in.PointerUp(32.0 / 120)
	if commit.Selection == nil {
		t.Fatal("expected a committed selection")
	}
	if !almostEqual(commit.Selection.Start, 32) || !almostEqual(commit.Selection.End, 40) {
		t.Errorf("expected normalized range [32,40], got [%v,%v]", commit.Selection.Start, commit.Selection.End)
	}
}

func TestDrag_RepeatedMovesAreIdempotent(t *testing.T) {
	in := newTestInteraction()

	in.PointerDown(10.0/120, HitTrack, nil)
	in.PointerMove(20.0 / 120)
	want := in.Provisional()
	for i := 0; i < 50; i++ {
		in.PointerMove(20.0 / 120)
	}
	if in.Provisional() != want {
		t.Errorf("provisional churned under repeated identical moves: %+v vs %+v", in.Provisional(), want)
	}
	if in.State() != Creating {
		t.Errorf("state left creating: %v", in.State())
	}
}

func TestExtendStart_RespectsMinimumGap(t *testing.T) {
	in := newTestInteraction()
	sel := Range{Start: 30, End: 45}

	in.PointerDown(30.0/120, HitStartHandle, &sel)
	if in.State() != ExtendingStart {
		t.Fatalf("expected extendingStart, got %v", in.State())
	}

	// Drag the left handle past the fixed end; it must stop 0.05s short.
	in.PointerMove(60.0 / 120)
	prov := in.Provisional()
	if !almostEqual(prov.Start, 44.95) || !almostEqual(prov.End, 45) {
		t.Errorf("expected [44.95,45], got [%v,%v]", prov.Start, prov.End)
	}

	commit, _ := in.PointerUp(60.0 / 120)
	if commit.Selection == nil {
		t.Fatal("expected a committed selection")
	}
	if !almostEqual(commit.Seek, 44.95) {
		t.Errorf("expected seek to updated start 44.95, got %v", commit.Seek)
	}
}

func TestExtendStart_MovesFreelyLeft(t *testing.T) {
	in := newTestInteraction()
	sel := Range{Start: 30, End: 45}

	in.PointerDown(30.0/120, HitStartHandle, &sel)
	in.PointerMove(12.0 / 120)
	commit, _ := in.PointerUp(12.0 / 120)
	if commit.Selection == nil || !almostEqual(commit.Selection.Start, 12) || !almostEqual(commit.Selection.End, 45) {
		t.Fatalf("expected [12,45], got %+v", commit.Selection)
	}
}

func TestExtendEnd_RespectsMinimumGap(t *testing.T) {
	in := newTestInteraction()
	sel := Range{Start: 30, End: 45}

	in.PointerDown(45.0/120, HitEndHandle, &sel)
	if in.State() != ExtendingEnd {
		t.Fatalf("expected extendingEnd, got %v", in.State())
	}

	in.PointerMove(10.0 / 120)
	prov := in.Provisional()
	if !almostEqual(prov.Start, 30) || !almostEqual(prov.End, 30.05) {
		t.Errorf("expected [30,30.05], got [%v,%v]", prov.Start, prov.End)
	}
}

func TestCommittedRanges_StayWithinVideoBounds(t *testing.T) {
	in := newTestInteraction()

	in.PointerDown(0.5, HitTrack, nil)
	in.PointerMove(2.0) // off the right edge of the track
	commit, _ := in.PointerUp(2.0)
	if commit.Selection == nil {
		t.Fatal("expected a committed selection")
	}
	if commit.Selection.Start < 0 || commit.Selection.End > 120 || commit.Selection.Start > commit.Selection.End {
		t.Errorf("range invariant violated: %+v", *commit.Selection)
	}
	if !almostEqual(commit.Selection.End, 120) {
		t.Errorf("expected end clamped to 120, got %v", commit.Selection.End)
	}
}

func TestPointerUp_WhileIdleIsIgnored(t *testing.T) {
	in := newTestInteraction()
	if _, ok := in.PointerUp(0.5); ok {
		t.Error("pointer-up without a drag must not commit")
	}
}

func TestCancel_DiscardsDrag(t *testing.T) {
	in := newTestInteraction()
	in.PointerDown(0.25, HitTrack, nil)
	in.PointerMove(0.5)
	in.Cancel()
	if in.State() != Idle {
		t.Errorf("expected idle after cancel, got %v", in.State())
	}
	if _, ok := in.PointerUp(0.5); ok {
		t.Error("release after cancel must not commit")
	}
}

func TestZeroDuration_DisablesInteraction(t *testing.T) {
	in := NewInteraction(NewGeometry(0))
	in.PointerDown(0.5, HitTrack, nil)
	if in.State() != Idle {
		t.Errorf("zero-duration track must ignore pointer-down, got %v", in.State())
	}
}

func TestWheel_StepsZoomAndRecenters(t *testing.T) {
	in := newTestInteraction()

	g := in.Wheel(+1, 40)
	if g.ZoomLevel != 2 || g.ZoomCenter != 40 {
		t.Errorf("expected level 2 centered on 40, got level %v center %v", g.ZoomLevel, g.ZoomCenter)
	}
	g = in.Wheel(+1, 41)
	if g.ZoomLevel != 4 || g.ZoomCenter != 41 {
		t.Errorf("expected level 4 centered on 41, got level %v center %v", g.ZoomLevel, g.ZoomCenter)
	}
	g = in.Wheel(-1, 41)
	if g.ZoomLevel != 2 {
		t.Errorf("expected level 2 after zoom out, got %v", g.ZoomLevel)
	}
	// Zoom changes feed back into pointer mapping immediately.
	if in.Geometry().ZoomLevel != 2 {
		t.Errorf("wheel result not installed on the state machine")
	}
}

func TestDrag_WhileZoomed_UsesWindowCoordinates(t *testing.T) {
	in := NewInteraction(Geometry{Duration: 120, ZoomLevel: 4, ZoomCenter: 35}) // window [20,50]

	in.PointerDown(1.0/3, HitTrack, nil) // 20 + 30/3 = 30s
	commit, _ := in.PointerUp(5.0 / 6)   // 20 + 25 = 45s
	if commit.Selection == nil {
		t.Fatal("expected a committed selection")
	}
	if !almostEqual(commit.Selection.Start, 30) || !almostEqual(commit.Selection.End, 45) {
		t.Errorf("expected [30,45], got [%v,%v]", commit.Selection.Start, commit.Selection.End)
	}
}
