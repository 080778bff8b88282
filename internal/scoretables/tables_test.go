package scoretables

import "testing"

// Bounds below are the worked examples from spec section 8.

func TestBuild_DirectionTable(t *testing.T) {
	tb := Build()
	if tb.Direction[0] <= 0.99 {
		t.Errorf("Direction[0] = %v, want > 0.99", tb.Direction[0])
	}
	if tb.Direction[96] <= 0 {
		t.Errorf("Direction[96] = %v, want > 0", tb.Direction[96])
	}
	if tb.Direction[97] >= 0 {
		t.Errorf("Direction[97] = %v, want < 0", tb.Direction[97])
	}
	if tb.Direction[183] >= 0 {
		t.Errorf("Direction[183] = %v, want < 0", tb.Direction[183])
	}
	if tb.Direction[184] <= 0 {
		t.Errorf("Direction[184] = %v, want > 0", tb.Direction[184])
	}
	if tb.Direction[255] <= 0.98 {
		t.Errorf("Direction[255] = %v, want > 0.98", tb.Direction[255])
	}
}

func TestBuild_LengthTable(t *testing.T) {
	tb := Build()
	if tb.Length[0] < 0 || tb.Length[0] >= 0.01 {
		t.Errorf("Length[0] = %v, want in [0, 0.01)", tb.Length[0])
	}
	if tb.Length[23] >= 0.5 {
		t.Errorf("Length[23] = %v, want < 0.5", tb.Length[23])
	}
	if tb.Length[24] <= 0.5 {
		t.Errorf("Length[24] = %v, want > 0.5", tb.Length[24])
	}
	if tb.Length[128] <= 0.99 {
		t.Errorf("Length[128] = %v, want > 0.99", tb.Length[128])
	}
}

func TestBuild_PosTable(t *testing.T) {
	tb := Build()
	if tb.Pos[0] != 1.0 {
		t.Errorf("Pos[0] = %v, want 1.0", tb.Pos[0])
	}
	if tb.Pos[121] != 0.5 {
		t.Errorf("Pos[121] = %v, want 0.5", tb.Pos[121])
	}
	if tb.Pos[449] >= 0.04 {
		t.Errorf("Pos[449] = %v, want < 0.04", tb.Pos[449])
	}
}

func TestBuild_TableSizes(t *testing.T) {
	tb := Build()
	if len(tb.Direction) != 256 {
		t.Errorf("len(Direction) = %d, want 256", len(tb.Direction))
	}
	if len(tb.Length) != 129 {
		t.Errorf("len(Length) = %d, want 129", len(tb.Length))
	}
	if len(tb.Pos) != 450 {
		t.Errorf("len(Pos) = %d, want 450", len(tb.Pos))
	}
}
