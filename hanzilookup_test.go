package hanzilookup

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gugray/hanzilookup/internal/analyzer"
	"github.com/gugray/hanzilookup/internal/refdb"
)

// horizontalStroke mirrors the matcher package's own single-stroke
// fixture: a near-straight left-to-right line that collapses to one
// sub-stroke.
func horizontalStroke() Stroke {
	coords := [][2]uint8{
		{10, 128}, {30, 129}, {50, 128}, {70, 127}, {90, 128},
		{110, 129}, {130, 128}, {150, 127}, {170, 128}, {190, 129},
		{210, 128}, {230, 128},
	}
	pts := make([]Point, len(coords))
	for i, c := range coords {
		pts[i] = Point{X: c[0], Y: c[1]}
	}
	return Stroke{Points: pts}
}

// toRefChar converts a hanzilookup.Stroke into the reference-DB record
// whose quantized sub-strokes exactly match what analyzer.Analyze would
// produce for the same input, so matching it against itself is a clean
// self-comparison.
func toRefChar(t *testing.T, hanzi rune, s Stroke) refdb.ReferenceChar {
	t.Helper()
	pts := make([]analyzer.Point, len(s.Points))
	for i, p := range s.Points {
		pts[i] = analyzer.Point{X: p.X, Y: p.Y}
	}
	ac := analyzer.Analyze([]analyzer.Stroke{{Points: pts}})
	subs := ac.Flatten()
	triples := make([]refdb.SubStrokeTriple, len(subs))
	for i, sub := range subs {
		center := (uint8(sub.CenterX) << 4) | uint8(sub.CenterY)
		triples[i] = refdb.SubStrokeTriple{Dir: uint8(sub.Direction), Length: uint8(sub.Length), Center: center}
	}
	return refdb.ReferenceChar{Hanzi: hanzi, StrokeCount: uint16(len(ac.Strokes)), SubStrokes: triples}
}

// writeRefDB encodes chars in the format refdb.Decode expects and
// writes it to a temp file, returning its path.
func writeRefDB(t *testing.T, chars []refdb.ReferenceChar) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ref.bin")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create temp refdb: %v", err)
	}
	defer f.Close()

	if err := binary.Write(f, binary.LittleEndian, uint32(len(chars))); err != nil {
		t.Fatalf("write count: %v", err)
	}
	for _, c := range chars {
		if err := binary.Write(f, binary.LittleEndian, uint32(c.Hanzi)); err != nil {
			t.Fatalf("write hanzi: %v", err)
		}
		if err := binary.Write(f, binary.LittleEndian, c.StrokeCount); err != nil {
			t.Fatalf("write stroke count: %v", err)
		}
		if err := binary.Write(f, binary.LittleEndian, uint32(len(c.SubStrokes))); err != nil {
			t.Fatalf("write sub-stroke count: %v", err)
		}
		for _, sub := range c.SubStrokes {
			if _, err := f.Write([]byte{sub.Dir, sub.Length, sub.Center}); err != nil {
				t.Fatalf("write sub-stroke: %v", err)
			}
		}
	}
	return path
}

func TestEngine_MatchTyped_SelfMatch(t *testing.T) {
	path := writeRefDB(t, []refdb.ReferenceChar{toRefChar(t, '一', horizontalStroke())})
	e := NewEngine(path)

	matches, err := e.MatchTyped([]Stroke{horizontalStroke()}, 5)
	if err != nil {
		t.Fatalf("MatchTyped: %v", err)
	}
	if len(matches) != 1 || matches[0].Hanzi != '一' {
		t.Fatalf("got %+v, want single match for '一'", matches)
	}
	if matches[0].Score <= 0 {
		t.Fatalf("self-match score %v should be positive", matches[0].Score)
	}
}

func TestEngine_MatchTyped_EmptyInput(t *testing.T) {
	path := writeRefDB(t, []refdb.ReferenceChar{toRefChar(t, '一', horizontalStroke())})
	e := NewEngine(path)

	matches, err := e.MatchTyped(nil, 5)
	if err != nil {
		t.Fatalf("MatchTyped: %v", err)
	}
	if len(matches) != 0 {
		t.Fatalf("got %v, want empty result for empty input", matches)
	}
}

func TestEngine_MatchTyped_LimitZeroPanics(t *testing.T) {
	e := NewEngine(writeRefDB(t, nil))
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for limit == 0")
		}
	}()
	_, _ = e.MatchTyped([]Stroke{horizontalStroke()}, 0)
}

func TestEngine_MatchTyped_MissingDatabaseReturnsError(t *testing.T) {
	e := NewEngine(filepath.Join(t.TempDir(), "does-not-exist.bin"))
	_, err := e.MatchTyped([]Stroke{horizontalStroke()}, 5)
	if err == nil {
		t.Fatal("expected an error for a missing reference database")
	}
	// Subsequent calls must keep surfacing the same fatal load error.
	_, err2 := e.MatchTyped([]Stroke{horizontalStroke()}, 5)
	if err2 == nil {
		t.Fatal("expected the load error to persist across calls")
	}
}

func TestEngine_Lookup_JSON(t *testing.T) {
	path := writeRefDB(t, []refdb.ReferenceChar{toRefChar(t, '一', horizontalStroke())})
	e := NewEngine(path)

	strokeJSON := `[[[10,128],[30,129],[50,128],[70,127],[90,128],[110,129],[130,128],[150,127],[170,128],[190,129],[210,128],[230,128]]]`
	out, err := e.Lookup([]byte(strokeJSON), 3)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if !strings.Contains(out, `"hanzi":"一"`) {
		t.Fatalf("got %s, want it to contain hanzi '一'", out)
	}
}

func TestEngine_Lookup_BadJSON(t *testing.T) {
	e := NewEngine(writeRefDB(t, nil))
	if _, err := e.Lookup([]byte("not json"), 3); err == nil {
		t.Fatal("expected an error for malformed JSON input")
	}
}

func TestEngine_CharacterCount(t *testing.T) {
	path := writeRefDB(t, []refdb.ReferenceChar{
		toRefChar(t, '一', horizontalStroke()),
		toRefChar(t, '二', horizontalStroke()),
	})
	e := NewEngine(path)
	if err := e.Preload(); err != nil {
		t.Fatalf("Preload: %v", err)
	}
	if e.CharacterCount() != 2 {
		t.Fatalf("CharacterCount() = %d, want 2", e.CharacterCount())
	}
}
