package townabm

// Point is a single (t, y) control point of a piecewise-linear curve,
// expressed relative to the curve's own time origin.
type Point struct {
	T, Y float64
}

// ThreePartFunction is a piecewise-linear function of time characterized by
// a linear rise, a plateau, and a linear decline, monotonically clamped
// past the final control point. It has no mutable state once constructed:
// evaluating it twice at the same t always returns the same value.
type ThreePartFunction struct {
	t0, t1, t2, t3 float64
	y0, y1, y2, y3 float64
	sInc, iInc     float64
	sDec, iDec     float64
}

// NewThreePartFunction builds a curve from four control points and a time
// offset added to every abscissa. pts must have exactly four entries.
func NewThreePartFunction(pts [4]Point, offset float64) ThreePartFunction {
	f := ThreePartFunction{
		t0: pts[0].T + offset, y0: pts[0].Y,
		t1: pts[1].T + offset, y1: pts[1].Y,
		t2: pts[2].T + offset, y2: pts[2].Y,
		t3: pts[3].T + offset, y3: pts[3].Y,
	}
	f.sInc = (f.y1 - f.y0) / (f.t1 - f.t0)
	f.iInc = -f.sInc*f.t0 + f.y0
	f.sDec = (f.y3 - f.y2) / (f.t3 - f.t2)
	f.iDec = -f.sDec*f.t2 + f.y2
	return f
}

// ConstantThreePartFunction returns a curve that evaluates to val at every t.
// Every control value is set to val and the abscissae are spread apart so
// every segment's slope is exactly zero, rather than an indeterminate
// 0/0 from coincident control points.
func ConstantThreePartFunction(val float64) ThreePartFunction {
	return NewThreePartFunction([4]Point{
		{T: -1, Y: val}, {T: 0, Y: val}, {T: 0, Y: val}, {T: 1, Y: val},
	}, 0)
}

// Value evaluates the curve at t: linear rise below t1, plateau on
// [t1, t2], and a linear decline above t2 clamped toward y3 on the
// monotone side (max if y2 > y3, else min) so the curve never overshoots
// past its terminal value.
func (f ThreePartFunction) Value(t float64) float64 {
	switch {
	case t < f.t1:
		return f.sInc*t + f.iInc
	case t > f.t2:
		line := f.sDec*t + f.iDec
		if f.y2 > f.y3 {
			return max(f.y3, line)
		}
		return min(f.y3, line)
	default:
		return f.y1
	}
}

// FourPartFunction adds a second, independently sloped rise segment ahead
// of the plateau and decline of a ThreePartFunction.
type FourPartFunction struct {
	t0, t1, t2, t3, t4         float64
	y0, y1, y2, y3, y4         float64
	sInc1, iInc1, sInc2, iInc2 float64
	sDec, iDec                 float64
}

// NewFourPartFunction builds a curve from five control points and a time
// offset added to every abscissa. pts must have exactly five entries.
func NewFourPartFunction(pts [5]Point, offset float64) FourPartFunction {
	f := FourPartFunction{
		t0: pts[0].T + offset, y0: pts[0].Y,
		t1: pts[1].T + offset, y1: pts[1].Y,
		t2: pts[2].T + offset, y2: pts[2].Y,
		t3: pts[3].T + offset, y3: pts[3].Y,
		t4: pts[4].T + offset, y4: pts[4].Y,
	}
	f.sInc1 = (f.y1 - f.y0) / (f.t1 - f.t0)
	f.iInc1 = -f.sInc1*f.t0 + f.y0
	f.sInc2 = (f.y2 - f.y1) / (f.t2 - f.t1)
	f.iInc2 = -f.sInc2*f.t1 + f.y1
	f.sDec = (f.y4 - f.y3) / (f.t4 - f.t3)
	f.iDec = -f.sDec*f.t3 + f.y3
	return f
}

// ConstantFourPartFunction returns a curve that evaluates to val at every t.
// As with ConstantThreePartFunction, every control value is val and the
// abscissae are spread apart so every segment's slope is exactly zero.
func ConstantFourPartFunction(val float64) FourPartFunction {
	return NewFourPartFunction([5]Point{
		{T: -2, Y: val}, {T: -1, Y: val}, {T: 0, Y: val}, {T: 1, Y: val}, {T: 2, Y: val},
	}, 0)
}

// Value evaluates the curve: first rise below t1, second rise on
// [t1, t2), plateau y2 on [t2, t3], decline above t3 clamped toward y4 on
// the monotone side.
func (f FourPartFunction) Value(t float64) float64 {
	switch {
	case t < f.t1:
		return f.sInc1*t + f.iInc1
	case t < f.t2:
		return f.sInc2*t + f.iInc2
	case t > f.t3:
		line := f.sDec*t + f.iDec
		if f.y3 > f.y4 {
			return max(f.y4, line)
		}
		return min(f.y4, line)
	default:
		return f.y2
	}
}

// decayStart returns the abscissa where the decline segment begins, used
// by vaccination bookkeeping to record when effects start waning.
func (f ThreePartFunction) decayStart() float64 { return f.t2 }
func (f FourPartFunction) decayStart() float64  { return f.t3 }

// plateauStart returns the abscissa of peak effectiveness.
func (f ThreePartFunction) plateauStart() float64 { return f.t1 }
func (f FourPartFunction) plateauStart() float64  { return f.t2 }
