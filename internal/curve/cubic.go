// Package curve evaluates and inverts cubic parametric curves of the kind
// used to build the matcher's score-lookup tables.
package curve

import "math"

// Cubic is a 2D cubic parametric curve from (X1,Y1) to (X2,Y2), shaped by
// two control points. Only the Y-component and the ability to solve for t
// given an x are needed here.
type Cubic struct {
	X1, Y1         float64
	CtrlX1, CtrlY1 float64
	CtrlX2, CtrlY2 float64
	X2, Y2         float64
}

func New(x1, y1, ctrlx1, ctrly1, ctrlx2, ctrly2, x2, y2 float64) Cubic {
	return Cubic{
		X1: x1, Y1: y1,
		CtrlX1: ctrlx1, CtrlY1: ctrly1,
		CtrlX2: ctrlx2, CtrlY2: ctrly2,
		X2: x2, Y2: y2,
	}
}

func (c Cubic) cubicAX() float64 { return c.X2 - c.X1 - c.cubicBX() - c.cubicCX() }
func (c Cubic) cubicAY() float64 { return c.Y2 - c.Y1 - c.cubicBY() - c.cubicCY() }
func (c Cubic) cubicBX() float64 { return 3.0*(c.CtrlX2-c.CtrlX1) - c.cubicCX() }
func (c Cubic) cubicBY() float64 { return 3.0*(c.CtrlY2-c.CtrlY1) - c.cubicCY() }
func (c Cubic) cubicCX() float64 { return 3.0 * (c.CtrlX1 - c.X1) }
func (c Cubic) cubicCY() float64 { return 3.0 * (c.CtrlY1 - c.Y1) }

// cubeRoot takes the real cube root of v, preserving sign — unlike
// math.Pow(v, 1.0/3.0), which returns NaN for negative v.
func cubeRoot(v float64) float64 {
	if v < 0 {
		return -math.Pow(-v, 1.0/3.0)
	}
	return math.Pow(v, 1.0/3.0)
}

// SolveForX returns the real parameter solutions t such that the curve's
// x-component equals x. It returns either one or three solutions.
func (c Cubic) SolveForX(x float64) []float64 {
	a := c.cubicAX()
	b := c.cubicBX()
	d := c.X1 - x
	cc := c.cubicCX()

	f := ((3.0*cc/a) - (b*b)/(a*a)) / 3.0
	g := ((2.0*b*b*b)/(a*a*a) - (9.0*b*cc)/(a*a) + (27.0*d)/a) / 27.0
	h := (g*g)/4.0 + (f*f*f)/27.0

	switch {
	case h > 0:
		// Only one real root.
		u := -g
		r := u/2.0 + math.Sqrt(h)
		s := cubeRoot(r)
		t := u/2.0 - math.Sqrt(h)
		v := cubeRoot(-t)
		x3 := (s - v) - b/(3.0*a)
		return []float64{x3}
	case f == 0 && g == 0 && h == 0:
		// All three roots real and equal.
		return []float64{cubeRoot(-(d / a))}
	default:
		// All three roots real.
		i := math.Sqrt((g*g)/4.0 - h)
		j := cubeRoot(i)
		k := math.Acos(-g / (2.0 * i))
		l := -j
		m := math.Cos(k / 3.0)
		n := math.Sqrt(3.0) * math.Sin(k/3.0)
		p := -(b / (3.0 * a))
		t0 := 2.0*j*math.Cos(k/3.0) - b/(3.0*a)
		t1 := l*(m+n) + p
		t2 := l*(m-n) + p
		return []float64{t0, t1, t2}
	}
}

// GetFirstSolutionForX scans SolveForX's solutions in order and returns the
// first one that lies in [0,1], clamping values within 1e-7 of either
// boundary. Returns NaN if no solution qualifies.
func (c Cubic) GetFirstSolutionForX(x float64) float64 {
	for _, t := range c.SolveForX(x) {
		if t >= -0.0000001 && t <= 1.0000001 {
			if t <= 0.0000001 {
				return 0.0
			}
			if t >= 0.9999999 {
				return 1.0
			}
			return t
		}
	}
	return math.NaN()
}

// GetYOnCurve evaluates the curve's y-component at parameter t.
func (c Cubic) GetYOnCurve(t float64) float64 {
	ay := c.cubicAY()
	by := c.cubicBY()
	cy := c.cubicCY()
	tSquared := t * t
	tCubed := t * tSquared
	return ay*tCubed + by*tSquared + cy*t + c.Y1
}
