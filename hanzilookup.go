// Package hanzilookup recognizes a hand-drawn Chinese character from its
// stroke sequence by comparing it against a reference database of known
// characters (spec section 4.G, the public entry point).
package hanzilookup

import (
	"fmt"
	"os"
	"sync"

	"github.com/gugray/hanzilookup/internal/analyzer"
	"github.com/gugray/hanzilookup/internal/collector"
	"github.com/gugray/hanzilookup/internal/matcher"
	"github.com/gugray/hanzilookup/internal/refdb"
)

// Point is a single raw input coordinate, both components in [0,255].
type Point struct {
	X, Y uint8
}

// Stroke is one pen-down-to-pen-up gesture.
type Stroke struct {
	Points []Point
}

// Match is one candidate character and its similarity score, highest
// first.
type Match struct {
	Hanzi rune
	Score float32
}

// Engine owns a process-wide reference database, loaded once on first
// use, and a pool of reusable Matcher instances (one per concurrent call
// path, per spec section 5's "one instance per thread is acceptable").
type Engine struct {
	path string

	loadOnce sync.Once
	loadErr  error
	chars    []refdb.ReferenceChar

	pool sync.Pool
}

// NewEngine builds an Engine that will load its reference database from
// path on first call to MatchTyped or Lookup. Loading is lazy so
// constructing an Engine never fails; a corrupt or missing database only
// surfaces once a lookup is actually attempted.
func NewEngine(path string) *Engine {
	e := &Engine{path: path}
	e.pool.New = func() any { return matcher.New() }
	return e
}

// CharacterCount returns how many reference characters are loaded. It
// must only be called after a successful MatchTyped/Lookup call (or
// Preload), otherwise it returns 0.
func (e *Engine) CharacterCount() int {
	return len(e.chars)
}

// Preload forces the reference database load, for callers (cmd/server)
// that want to fail fast at startup instead of on first request.
func (e *Engine) Preload() error {
	return e.ensureLoaded()
}

func (e *Engine) ensureLoaded() error {
	e.loadOnce.Do(func() {
		f, err := os.Open(e.path)
		if err != nil {
			e.loadErr = fmt.Errorf("hanzilookup: open reference database %q: %w", e.path, err)
			return
		}
		defer f.Close()

		chars, err := refdb.Decode(f)
		if err != nil {
			e.loadErr = fmt.Errorf("hanzilookup: decode reference database %q: %w", e.path, err)
			return
		}
		e.chars = chars
	})
	return e.loadErr
}

// MatchTyped scores strokes against every reference character and
// returns up to limit candidates, highest score first. limit must be at
// least 1 — spec section 7 treats limit == 0 as a programmer error, not
// a recoverable one.
//
// A degenerate input (no strokes, or strokes with fewer than two
// distinct points) is not an error: it returns an empty result, per
// spec section 6.1.
func (e *Engine) MatchTyped(strokes []Stroke, limit int) ([]Match, error) {
	if limit < 1 {
		panic("hanzilookup: limit must be >= 1")
	}
	if err := e.ensureLoaded(); err != nil {
		return nil, err
	}

	m := e.pool.Get().(*matcher.Matcher)
	defer e.pool.Put(m)

	coll := collector.New(limit)
	m.Lookup(toAnalyzerStrokes(strokes), e.chars, coll)

	out := make([]Match, len(coll.Matches()))
	for i, c := range coll.Matches() {
		out[i] = Match{Hanzi: c.Hanzi, Score: c.Score}
	}
	return out, nil
}

func toAnalyzerStrokes(strokes []Stroke) []analyzer.Stroke {
	res := make([]analyzer.Stroke, len(strokes))
	for i, s := range strokes {
		pts := make([]analyzer.Point, len(s.Points))
		for j, p := range s.Points {
			pts[j] = analyzer.Point{X: p.X, Y: p.Y}
		}
		res[i] = analyzer.Stroke{Points: pts}
	}
	return res
}
