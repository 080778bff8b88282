// Package matcher scores an analyzed input character against every
// reference character in the database using a dynamic-programming,
// edit-distance-like comparison over sub-strokes (spec section 4.E).
package matcher

import (
	"math"

	"github.com/gugray/hanzilookup/internal/analyzer"
	"github.com/gugray/hanzilookup/internal/collector"
	"github.com/gugray/hanzilookup/internal/curve"
	"github.com/gugray/hanzilookup/internal/refdb"
	"github.com/gugray/hanzilookup/internal/scoretables"
)

const (
	MaxCharacterStrokeCount    = 48
	MaxCharacterSubStrokeCount = 64
	DefaultLooseness           = 0.15
	AvgSubStrokeLength         = 0.33
	SkipPenaltyMultiplier      = 1.75
	CorrectNumStrokesBonus     = 0.1
	CorrectNumStrokesCap       = 10

	// negInf is the DP sentinel for "unusable cell": sufficiently
	// negative that it cannot spuriously win a max() against any real
	// accumulated score, but ordinary arithmetic on it (subtracting a
	// skip penalty, for instance) can't overflow to -Inf either.
	negInf = -1e18
)

// Matcher holds the reusable DP matrix and the three score tables,
// both built once per Matcher instance and reused across lookups. A
// Matcher is not safe for concurrent use; callers run one per goroutine
// (spec section 5).
type Matcher struct {
	tables scoretables.Tables
	dp     [][]float64
}

// New builds a Matcher: constructs the score tables and allocates the DP
// matrix.
func New() *Matcher {
	size := MaxCharacterSubStrokeCount + 1
	dp := make([][]float64, size)
	for i := range dp {
		dp[i] = make([]float64, size)
	}
	return &Matcher{tables: scoretables.Build(), dp: dp}
}

// resetMatrix zeroes the DP matrix and seeds row 0 / column 0 with the
// skip-penalty ramp. These edges depend only on index, not on which
// reference character is being scored, so they're computed once per
// lookup and reused for every reference.
func (m *Matcher) resetMatrix() {
	for i := range m.dp {
		row := m.dp[i]
		for j := range row {
			row[j] = 0
		}
	}
	for i := 0; i <= MaxCharacterSubStrokeCount; i++ {
		penalty := -AvgSubStrokeLength * SkipPenaltyMultiplier * float64(i)
		m.dp[i][0] = penalty
		m.dp[0][i] = penalty
	}
}

// Lookup analyzes strokes, then scores it against every reference
// character in refs whose stroke/sub-stroke counts survive
// looseness-based pruning, filing a collector.Match for each survivor.
func (m *Matcher) Lookup(strokes []analyzer.Stroke, refs []refdb.ReferenceChar, coll *collector.Collector) {
	m.resetMatrix()

	ac := analyzer.Analyze(strokes)
	if len(ac.Strokes) == 0 {
		return
	}

	inputSubs := ac.Flatten()
	inputStrokeCount := len(ac.Strokes)
	inputSubCount := len(inputSubs)

	strokeRange := getStrokesRange(inputStrokeCount, DefaultLooseness)
	subStrokesRange := getSubStrokesRange(inputSubCount, DefaultLooseness)

	strokeLo := maxInt(inputStrokeCount-strokeRange, 1)
	strokeHi := minInt(inputStrokeCount+strokeRange, MaxCharacterStrokeCount)
	subLo := maxInt(inputSubCount-subStrokesRange, 1)
	subHi := minInt(inputSubCount+subStrokesRange, MaxCharacterSubStrokeCount)

	for _, r := range refs {
		rStrokeCount := int(r.StrokeCount)
		if rStrokeCount < strokeLo || rStrokeCount > strokeHi {
			continue
		}
		rSubCount := len(r.SubStrokes)
		if rSubCount < subLo || rSubCount > subHi {
			continue
		}

		score := m.score(inputSubs, r, subStrokesRange)
		if inputStrokeCount == rStrokeCount && inputStrokeCount < CorrectNumStrokesCap {
			bonusFactor := CorrectNumStrokesBonus * float64(maxInt(CorrectNumStrokesCap-inputStrokeCount, 0)) / CorrectNumStrokesCap
			score += bonusFactor * score
		}

		coll.FileMatch(collector.Match{Hanzi: r.Hanzi, Score: float32(score)})
	}
}

// score runs the DP comparison between inputSubs and one reference
// character's sub-strokes.
func (m *Matcher) score(inputSubs []analyzer.SubStroke, r refdb.ReferenceChar, subStrokesRange int) float64 {
	x := len(inputSubs)
	y := len(r.SubStrokes)

	for xi := 0; xi < x; xi++ {
		for yi := 0; yi < y; yi++ {
			rng := xi - yi
			if rng < 0 {
				rng = -rng
			}
			if rng > subStrokesRange {
				m.dp[xi+1][yi+1] = negInf
				continue
			}

			in := inputSubs[xi]
			ref := r.SubStrokes[yi]

			skip1 := m.dp[xi][yi+1] - (in.Length/256.0)*SkipPenaltyMultiplier
			skip2 := m.dp[xi+1][yi] - (float64(ref.Length)/256.0)*SkipPenaltyMultiplier
			skip := math.Max(skip1, skip2)

			match := m.dp[xi][yi] + m.subStrokeScore(in, ref)

			m.dp[xi+1][yi+1] = math.Max(match, skip)
		}
	}

	return m.dp[x][y]
}

// subStrokeScore scores one input sub-stroke against one reference
// sub-stroke (spec section 4.E, "Sub-stroke scoring").
func (m *Matcher) subStrokeScore(in analyzer.SubStroke, ref refdb.SubStrokeTriple) float64 {
	refDir := float64(ref.Dir)
	refLength := float64(ref.Length)
	refCenterX := float64(ref.CenterX())
	refCenterY := float64(ref.CenterY())

	theta := in.Direction - refDir
	if theta < 0 {
		theta = -theta
	}
	directionScore := m.tables.Direction[int(theta)]
	if in.Length < 64 {
		bonus := math.Min(1, 1-directionScore) * (1 - in.Length/64)
		directionScore += bonus
	}

	var ratio float64
	if in.Length == 0 && refLength == 0 {
		ratio = 128
	} else {
		lo, hi := in.Length, refLength
		if lo > hi {
			lo, hi = hi, lo
		}
		ratio = math.Round(lo / hi * 128)
	}
	lengthScore := m.tables.Length[int(ratio)]

	raw := lengthScore * directionScore

	dx := in.CenterX - refCenterX
	dy := in.CenterY - refCenterY
	posIx := int(dx*dx + dy*dy)
	if posIx >= scoretables.PosTableSize {
		// dx, dy can each reach +/-15, so dx^2+dy^2 can reach 450 —
		// one past the table's last valid index. Clamp rather than
		// panic; spec section 4.D implies this never happens in
		// practice but does not rule it out structurally.
		posIx = scoretables.PosTableSize - 1
	}
	closeness := m.tables.Pos[posIx]

	if raw > 0 {
		return raw * closeness
	}
	return raw / closeness
}

// getStrokesRange computes the looseness-scaled pruning range for the
// reference stroke count, per spec section 4.E.1.
func getStrokesRange(inputStrokeCount int, looseness float64) int {
	if looseness == 0 {
		return 0
	}
	if looseness == 1 {
		return MaxCharacterStrokeCount
	}
	n := float64(inputStrokeCount)
	c := curve.New(0, 0, 0.35, 0.4*n, 0.6, n, 1, MaxCharacterStrokeCount)
	t := c.GetFirstSolutionForX(looseness)
	return int(math.Round(c.GetYOnCurve(t)))
}

// getSubStrokesRange computes the looseness-scaled pruning range for the
// reference sub-stroke count, per spec section 4.E.1.
func getSubStrokesRange(inputSubStrokeCount int, looseness float64) int {
	if looseness == 1 {
		return MaxCharacterSubStrokeCount
	}
	base := 0.25 * float64(inputSubStrokeCount)
	c := curve.New(0, base, 0.4, 1.5*base, 0.75, 1.5*(1.5*base), 1, MaxCharacterSubStrokeCount)
	t := c.GetFirstSolutionForX(looseness)
	return int(math.Round(c.GetYOnCurve(t)))
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
