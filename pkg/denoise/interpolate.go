package denoise

import (
	"fmt"

	"gonum.org/v1/gonum/interp"
	"gonum.org/v1/gonum/mat"

	"bolddenoise/internal/models"
)

// Interpolate scatters the R×S censored matrix back into T rows at the
// retained positions and fills the censored rows by cubic-spline
// interpolation over time, one column at a time. Runs of censored rows that
// touch the first or last timepoint are then set to the nearest retained
// row instead of the spline's extrapolation.
//
// Retained rows of the result equal the corresponding rows of censored
// exactly.
func Interpolate(censored mat.Matrix, retained []int, t int) (*mat.Dense, error) {
	r, s := censored.Dims()
	if r != len(retained) {
		return nil, fmt.Errorf("%d retained indices for %d censored rows: %w", len(retained), r, models.ErrDataShape)
	}
	if r == 0 {
		return nil, fmt.Errorf("no retained volumes out of %d: %w", t, models.ErrDataShape)
	}
	out := mat.NewDense(t, s, nil)
	for i, row := range retained {
		if row < 0 || row >= t || (i > 0 && row <= retained[i-1]) {
			return nil, fmt.Errorf("retained index %d not increasing within [0, %d): %w", row, t, models.ErrDataShape)
		}
		out.SetRow(row, mat.Row(nil, i, censored))
	}
	if r == t {
		return out, nil
	}

	xs := make([]float64, r)
	for i, row := range retained {
		xs[i] = float64(row)
	}
	ys := make([]float64, r)
	for j := 0; j < s; j++ {
		mat.Col(ys, j, censored)
		pred, err := fitSpline(xs, ys)
		if err != nil {
			return nil, fmt.Errorf("interpolating column %d: %w", j, err)
		}
		k := 0
		for row := retained[0] + 1; row < retained[r-1]; row++ {
			for retained[k] < row {
				k++
			}
			if retained[k] != row {
				out.Set(row, j, pred.Predict(float64(row)))
			}
		}
	}

	first, last := retained[0], retained[r-1]
	head := out.RawRowView(first)
	for row := 0; row < first; row++ {
		out.SetRow(row, head)
	}
	tail := out.RawRowView(last)
	for row := last + 1; row < t; row++ {
		out.SetRow(row, tail)
	}
	return out, nil
}

// fitSpline fits a not-a-knot cubic spline through (xs, ys). With three
// knots the not-a-knot conditions reduce to the parabola through them. Two
// knots fall back to a natural spline, which is the straight line between
// them, and a single knot to a constant.
func fitSpline(xs, ys []float64) (interp.Predictor, error) {
	switch len(xs) {
	case 1:
		return interp.Constant(ys[0]), nil
	case 2:
		var nc interp.NaturalCubic
		if err := nc.Fit(xs, ys); err != nil {
			return nil, err
		}
		return &nc, nil
	case 3:
		return newParabola(xs, ys)
	}
	var nak interp.NotAKnotCubic
	if err := nak.Fit(xs, ys); err != nil {
		return nil, err
	}
	return &nak, nil
}

// parabola is the Lagrange quadratic through three points.
type parabola struct {
	xs, ws [3]float64
}

func newParabola(xs, ys []float64) (*parabola, error) {
	var p parabola
	for i := range p.xs {
		p.xs[i] = xs[i]
	}
	for i := range p.ws {
		den := 1.0
		for k := range p.xs {
			if k != i {
				den *= p.xs[i] - p.xs[k]
			}
		}
		if den == 0 {
			return nil, fmt.Errorf("repeated knot at %g: %w", p.xs[i], models.ErrDataShape)
		}
		p.ws[i] = ys[i] / den
	}
	return &p, nil
}

// Predict implements interp.Predictor.
func (p *parabola) Predict(x float64) float64 {
	var v float64
	for i, w := range p.ws {
		term := w
		for k, xk := range p.xs {
			if k != i {
				term *= x - xk
			}
		}
		v += term
	}
	return v
}
