// Package scoretables precomputes the three lookup tables the matcher
// scores sub-stroke pairs against (spec section 4.D).
package scoretables

import (
	"math"

	"github.com/gugray/hanzilookup/internal/curve"
)

const (
	DirectionTableSize = 256
	LengthTableSize    = 129
	PosTableSize       = 450
)

// Tables holds the three precomputed score tables, built once per Matcher
// instance.
type Tables struct {
	// Direction scores near-matching angles high, ~90 degrees off
	// negative, and gives a small positive bump near 180 degrees
	// (reversed strokes).
	Direction [DirectionTableSize]float64
	// Length scores near-equal lengths ~1, dropping off only for very
	// dissimilar ratios.
	Length [LengthTableSize]float64
	// Pos scores closeness of two centerpoints, indexed by squared
	// distance.
	Pos [PosTableSize]float64
}

// Build constructs the three tables by sampling the curves spec section
// 4.D specifies.
func Build() Tables {
	var t Tables

	directionCurve := curve.New(0, 1, 0.5, 1, 0.25, -2, 1, 1)
	for i := 0; i < DirectionTableSize; i++ {
		x := float64(i) / 256.0
		tt := directionCurve.GetFirstSolutionForX(x)
		t.Direction[i] = directionCurve.GetYOnCurve(tt)
	}

	lengthCurve := curve.New(0, 0, 0.25, 1, 0.75, 1, 1, 1)
	for i := 0; i < LengthTableSize; i++ {
		x := float64(i) / float64(LengthTableSize)
		tt := lengthCurve.GetFirstSolutionForX(x)
		t.Length[i] = lengthCurve.GetYOnCurve(tt)
	}

	for i := 0; i < PosTableSize; i++ {
		t.Pos[i] = 1.0 - math.Sqrt(float64(i))/22.0
	}

	return t
}
