package hanzilookup

import (
	"encoding/json"
	"fmt"
)

// jsonMatch is the host-facing shape for one Match: hanzi as a
// single-rune string so non-Go callers don't need to know about Go's
// rune type.
type jsonMatch struct {
	Hanzi string  `json:"hanzi"`
	Score float32 `json:"score"`
}

// Lookup decodes jsonValue (the 3-deep `[[[x,y],...],...]` shape from
// spec section 6.1) into typed strokes, calls MatchTyped, and serializes
// the result as a JSON array of {hanzi, score} objects preserving rank
// order (spec section 6.3).
func (e *Engine) Lookup(jsonValue []byte, limit int) (string, error) {
	var raw [][][2]uint8
	if err := json.Unmarshal(jsonValue, &raw); err != nil {
		return "", fmt.Errorf("hanzilookup: decode stroke JSON: %w", err)
	}

	strokes := make([]Stroke, len(raw))
	for i, s := range raw {
		pts := make([]Point, len(s))
		for j, p := range s {
			pts[j] = Point{X: p[0], Y: p[1]}
		}
		strokes[i] = Stroke{Points: pts}
	}

	matches, err := e.MatchTyped(strokes, limit)
	if err != nil {
		return "", err
	}

	out := make([]jsonMatch, len(matches))
	for i, m := range matches {
		out[i] = jsonMatch{Hanzi: string(m.Hanzi), Score: m.Score}
	}

	b, err := json.Marshal(out)
	if err != nil {
		return "", fmt.Errorf("hanzilookup: encode result JSON: %w", err)
	}
	return string(b), nil
}
