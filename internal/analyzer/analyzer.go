// Package analyzer converts raw pen-stroke point sequences into the
// quantized sub-stroke representation the matcher compares against the
// reference database (spec section 4.C).
package analyzer

import "math"

const (
	minSegmentLength     = 12.5
	maxLocalLengthRatio  = 1.1
	maxRunningLengthRatio = 1.09
)

// Point is a single raw input coordinate, both components in [0,255].
type Point struct {
	X, Y uint8
}

// Stroke is one pen-down-to-pen-up gesture: an ordered, non-empty point
// sequence.
type Stroke struct {
	Points []Point
}

// SubStroke is a quantized near-straight segment between two pivots.
type SubStroke struct {
	// Direction is in [0,255], mapped from [0,2*pi).
	Direction float64
	// Length is in [0,255], the normalized inter-pivot distance.
	Length float64
	// CenterX, CenterY are in [0,15], the pivot-pair midpoint mapped
	// into a 16x16 grid.
	CenterX float64
	CenterY float64
}

// AnalyzedStroke is one stroke's points, its detected pivot indexes, and
// the sub-strokes those pivots delineate.
type AnalyzedStroke struct {
	Points       []Point
	PivotIndexes []int
	SubStrokes   []SubStroke
}

// AnalyzedCharacter is the full analysis of an input character.
type AnalyzedCharacter struct {
	Strokes        []AnalyzedStroke
	SubStrokeCount int
}

// Flatten returns every sub-stroke across all strokes, in stroke order.
func (c AnalyzedCharacter) Flatten() []SubStroke {
	res := make([]SubStroke, 0, c.SubStrokeCount)
	for _, s := range c.Strokes {
		res = append(res, s.SubStrokes...)
	}
	return res
}

// rect is the bounding rectangle derived from an input character's points.
type rect struct {
	Top, Bottom, Left, Right float64
}

// Analyze builds an AnalyzedCharacter from raw strokes. An empty input
// produces an empty, zero-sub-stroke-count result — not an error.
func Analyze(strokes []Stroke) AnalyzedCharacter {
	br := boundingRect(strokes)
	analyzed := make([]AnalyzedStroke, 0, len(strokes))
	total := 0
	for _, s := range strokes {
		pivots := pivotIndexes(s)
		subs := buildSubStrokes(s, pivots, br)
		analyzed = append(analyzed, AnalyzedStroke{
			Points:       append([]Point(nil), s.Points...),
			PivotIndexes: pivots,
			SubStrokes:   subs,
		})
		total += len(subs)
	}
	return AnalyzedCharacter{Strokes: analyzed, SubStrokeCount: total}
}

func boundingRect(strokes []Stroke) rect {
	r := rect{Top: math.MaxFloat32, Bottom: -math.MaxFloat32, Left: math.MaxFloat32, Right: -math.MaxFloat32}
	for _, s := range strokes {
		for _, p := range s.Points {
			x, y := float64(p.X), float64(p.Y)
			if x < r.Left {
				r.Left = x
			}
			if x > r.Right {
				r.Right = x
			}
			if y < r.Top {
				r.Top = y
			}
			if y > r.Bottom {
				r.Bottom = y
			}
		}
	}
	if r.Top > 255 {
		r.Top = 0
	}
	if r.Bottom < 0 {
		r.Bottom = 255
	}
	if r.Left > 255 {
		r.Left = 0
	}
	if r.Right < 0 {
		r.Right = 255
	}
	return r
}

func dist(a, b Point) float64 {
	dx := float64(a.X) - float64(b.X)
	dy := float64(a.Y) - float64(b.Y)
	return math.Sqrt(dx*dx + dy*dy)
}

// normDist is the distance between a and b, normalized by the diagonal of
// the square enclosing the character's square-padded bounding box.
func normDist(a, b Point, br rect) float64 {
	width := br.Right - br.Left
	height := br.Bottom - br.Top
	dimSquared := width * width
	if height > width {
		dimSquared = height * height
	}
	normalizer := math.Sqrt(dimSquared + dimSquared)
	d := dist(a, b) / normalizer
	return math.Min(d, 1.0)
}

// dir returns the direction in radians from point a to point b: 0 is to
// the right, pi/2 is up, etc.
func dir(a, b Point) float64 {
	dx := float64(a.X) - float64(b.X)
	dy := float64(a.Y) - float64(b.Y)
	return math.Pi - math.Atan2(dy, dx)
}

// normCenter maps the pivot-pair midpoint into the unit square obtained by
// symmetrically padding the bounding box's shorter axis.
func normCenter(a, b Point, br rect) (float64, float64) {
	x := (float64(a.X) + float64(b.X)) / 2.0
	y := (float64(a.Y) + float64(b.Y)) / 2.0
	var side float64
	if br.Right-br.Left > br.Bottom-br.Top {
		// Landscape.
		side = br.Right - br.Left
		height := br.Bottom - br.Top
		x = x - br.Left
		y = y - br.Top + (side-height)/2.0
	} else {
		// Portrait.
		side = br.Bottom - br.Top
		width := br.Right - br.Left
		x = x - br.Left + (side-width)/2.0
		y = y - br.Top
	}
	return x / side, y / side
}

// pivotIndexes finds the pivot points within a stroke: points where the
// path changes direction enough to start a new sub-stroke. The first and
// last points are always pivots.
func pivotIndexes(stroke Stroke) []int {
	points := stroke.Points
	if len(points) == 0 {
		return nil
	}
	if len(points) == 1 {
		return []int{0}
	}

	markers := make([]bool, len(points))
	markers[0] = true

	prevPtIx := 0
	firstPtIx := 0
	pivotPtIx := 1

	localLength := dist(points[firstPtIx], points[pivotPtIx])
	runningLength := localLength

	for i := 2; i < len(points); i++ {
		next := points[i]

		pivotLength := dist(points[pivotPtIx], next)
		localLength += pivotLength
		runningLength += pivotLength

		distFromPrevious := dist(points[prevPtIx], next)
		distFromFirst := dist(points[firstPtIx], next)
		if localLength > maxLocalLengthRatio*distFromPrevious || runningLength > maxRunningLengthRatio*distFromFirst {
			if markers[prevPtIx] && dist(points[prevPtIx], points[pivotPtIx]) < minSegmentLength {
				markers[prevPtIx] = false
			}
			markers[pivotPtIx] = true
			runningLength = pivotLength
			firstPtIx = pivotPtIx
		}
		localLength = pivotLength
		prevPtIx = pivotPtIx
		pivotPtIx = i
	}

	markers[pivotPtIx] = true
	if markers[prevPtIx] && dist(points[prevPtIx], points[pivotPtIx]) < minSegmentLength && prevPtIx != 0 {
		markers[prevPtIx] = false
	}

	res := make([]int, 0, len(markers))
	for ix, marked := range markers {
		if marked {
			res = append(res, ix)
		}
	}
	return res
}

// buildSubStrokes walks consecutive pivot pairs, skipping zero-length
// segments, and quantizes each pair into a SubStroke.
func buildSubStrokes(stroke Stroke, pivots []int, br rect) []SubStroke {
	res := make([]SubStroke, 0, len(pivots))
	prevIx := 0
	for _, ix := range pivots {
		a, b := stroke.Points[prevIx], stroke.Points[ix]
		if a == b {
			continue
		}

		direction := dir(a, b)
		direction = math.Round(direction * 256.0 / math.Pi / 2.0)
		if direction >= 256 {
			direction = 0
		}

		length := math.Round(normDist(a, b, br) * 255.0)

		cx, cy := normCenter(a, b, br)

		res = append(res, SubStroke{
			Direction: direction,
			Length:    length,
			CenterX:   math.Round(cx * 15.0),
			CenterY:   math.Round(cy * 15.0),
		})
		prevIx = ix
	}
	return res
}
