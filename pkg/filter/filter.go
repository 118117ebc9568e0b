// Package filter provides zero-phase IIR filtering of time series.
//
// Filters are cascades of second-order sections designed with algo-dsp and
// run forward then backward, so the result has no phase shift and the
// magnitude response is squared. Edges are handled by constant padding and
// steady-state initial conditions, which keeps short fMRI runs stable.
package filter

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-dsp/dsp/filter/biquad"
	"github.com/cwbudde/algo-dsp/dsp/filter/design"
	"gonum.org/v1/gonum/mat"

	"bolddenoise/internal/models"
)

// Cascade is an ordered list of biquad sections applied in series.
type Cascade []biquad.Coefficients

// Butterworth designs a low-pass, high-pass or band-pass Butterworth cascade.
// A cutoff <= 0 disables that edge. Band-pass is a high-pass cascade followed
// by a low-pass cascade, each of the given order. Cutoffs are in Hz.
func Butterworth(lowPass, highPass float64, order int, sampleRate float64) (Cascade, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate %g must be > 0: %w", sampleRate, models.ErrConfiguration)
	}
	if order < 1 {
		return nil, fmt.Errorf("filter order %d must be >= 1: %w", order, models.ErrConfiguration)
	}
	nyquist := sampleRate / 2
	var c Cascade
	if highPass > 0 {
		if highPass >= nyquist {
			return nil, fmt.Errorf("high-pass cutoff %g Hz is not below Nyquist %g Hz: %w", highPass, nyquist, models.ErrConfiguration)
		}
		c = append(c, design.ButterworthHP(highPass, order, sampleRate)...)
	}
	if lowPass > 0 {
		if lowPass >= nyquist {
			return nil, fmt.Errorf("low-pass cutoff %g Hz is not below Nyquist %g Hz: %w", lowPass, nyquist, models.ErrConfiguration)
		}
		if highPass > 0 && highPass >= lowPass {
			return nil, fmt.Errorf("high-pass %g Hz must be below low-pass %g Hz: %w", highPass, lowPass, models.ErrConfiguration)
		}
		c = append(c, design.ButterworthLP(lowPass, order, sampleRate)...)
	}
	return c, nil
}

// Notch designs a single notch section centred on freq (Hz) with the given
// quality factor.
func Notch(freq, q, sampleRate float64) (Cascade, error) {
	nyquist := sampleRate / 2
	if sampleRate <= 0 || freq <= 0 || freq >= nyquist {
		return nil, fmt.Errorf("notch frequency %g Hz outside (0, %g): %w", freq, nyquist, models.ErrConfiguration)
	}
	if q <= 0 || math.IsInf(q, 0) || math.IsNaN(q) {
		return nil, fmt.Errorf("notch quality factor %g: %w", q, models.ErrConfiguration)
	}
	return Cascade{design.Notch(freq, q, sampleRate)}, nil
}

// FiltFilt runs the cascade forward and backward over x. The signal is
// extended by padlen copies of its first and last sample before filtering;
// padlen is clamped to len(x)-1. x is not modified.
func (c Cascade) FiltFilt(x []float64, padlen int) []float64 {
	n := len(x)
	if n == 0 {
		return nil
	}
	out := make([]float64, n)
	if len(c) == 0 {
		copy(out, x)
		return out
	}
	if padlen > n-1 {
		padlen = n - 1
	}
	if padlen < 0 {
		padlen = 0
	}

	ext := make([]float64, n+2*padlen)
	for i := 0; i < padlen; i++ {
		ext[i] = x[0]
		ext[padlen+n+i] = x[n-1]
	}
	copy(ext[padlen:], x)

	chain := biquad.NewChain(c)
	chain.SetState(c.steadyState(ext[0]))
	chain.ProcessBlock(ext)

	reverse(ext)
	chain.SetState(c.steadyState(ext[0]))
	chain.ProcessBlock(ext)
	reverse(ext)

	copy(out, ext[padlen:padlen+n])
	return out
}

// FilterColumns applies FiltFilt to every column of m, passes times in a
// row, with full-length padding. It returns a new matrix.
func (c Cascade) FilterColumns(m mat.Matrix, passes int) *mat.Dense {
	r, cols := m.Dims()
	out := mat.NewDense(r, cols, nil)
	col := make([]float64, r)
	for j := 0; j < cols; j++ {
		mat.Col(col, j, m)
		y := col
		for p := 0; p < passes; p++ {
			y = c.FiltFilt(y, r-1)
		}
		out.SetCol(j, y)
	}
	return out
}

// steadyState returns the delay-line state each section settles into when
// fed the constant x0 forever. Starting there suppresses the start-up
// transient (Gustafsson initial conditions for a constant edge).
func (c Cascade) steadyState(x0 float64) [][2]float64 {
	states := make([][2]float64, len(c))
	in := x0
	for i, s := range c {
		den := 1 + s.A1 + s.A2
		if den == 0 {
			continue
		}
		y := (s.B0 + s.B1 + s.B2) / den * in
		d1 := s.B2*in - s.A2*y
		d0 := s.B1*in - s.A1*y + d1
		states[i] = [2]float64{d0, d1}
		in = y
	}
	return states
}

func reverse(x []float64) {
	for i, j := 0, len(x)-1; i < j; i, j = i+1, j-1 {
		x[i], x[j] = x[j], x[i]
	}
}
