package curve

import (
	"math"
	"testing"
)

// Same curve as direction_score_table's construction, and the same
// assertions as the original Rust crate's own cubic_curve_2d.rs test.
func TestGetFirstSolutionForX_Boundaries(t *testing.T) {
	c := New(0, 1.0, 0.5, 1.0, 0.25, -2.0, 1.0, 1.0)
	if got := c.GetFirstSolutionForX(0.0); got != 0.0 {
		t.Fatalf("solution for x=0: got %v, want 0.0", got)
	}
	if got := c.GetFirstSolutionForX(1.0); got != 1.0 {
		t.Fatalf("solution for x=1: got %v, want 1.0", got)
	}
}

func TestGetFirstSolutionForX_NaNWhenNoneInRange(t *testing.T) {
	// A curve whose x never reaches 5 in [0,1].
	c := New(0, 0, 0.3, 0, 0.6, 0, 1.0, 0)
	got := c.GetFirstSolutionForX(5.0)
	if !math.IsNaN(got) {
		t.Fatalf("expected NaN, got %v", got)
	}
}

func TestGetYOnCurve_Endpoints(t *testing.T) {
	c := New(0, 1.0, 0.5, 1.0, 0.25, -2.0, 1.0, 1.0)
	if got := c.GetYOnCurve(0.0); got != 1.0 {
		t.Fatalf("y(0): got %v, want 1.0", got)
	}
	if got := c.GetYOnCurve(1.0); got != 1.0 {
		t.Fatalf("y(1): got %v, want 1.0", got)
	}
}

func TestCubeRootPreservesSign(t *testing.T) {
	if got := cubeRoot(-8); math.Abs(got-(-2)) > 1e-9 {
		t.Fatalf("cubeRoot(-8) = %v, want -2", got)
	}
	if got := cubeRoot(27); math.Abs(got-3) > 1e-9 {
		t.Fatalf("cubeRoot(27) = %v, want 3", got)
	}
}
