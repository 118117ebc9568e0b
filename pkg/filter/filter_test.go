package filter

import (
	"errors"
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"

	"bolddenoise/internal/models"
)

func sine(n int, freq, sampleRate, amp float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = amp * math.Sin(2*math.Pi*freq*float64(i)/sampleRate)
	}
	return out
}

func TestFiltFiltConstantThroughLowpass(t *testing.T) {
	c, err := Butterworth(0.1, 0, 2, 1/0.8)
	if err != nil {
		t.Fatalf("Butterworth: %v", err)
	}
	x := make([]float64, 64)
	for i := range x {
		x[i] = 3.5
	}
	y := c.FiltFilt(x, len(x)-1)
	for i, v := range y {
		if math.Abs(v-3.5) > 1e-9 {
			t.Fatalf("y[%d] = %g, want 3.5", i, v)
		}
	}
}

func TestFiltFiltHighpassRemovesOffset(t *testing.T) {
	c, err := Butterworth(0, 0.01, 2, 1/0.8)
	if err != nil {
		t.Fatalf("Butterworth: %v", err)
	}
	x := make([]float64, 200)
	for i := range x {
		x[i] = 100
	}
	y := c.FiltFilt(x, len(x)-1)
	for i, v := range y {
		if math.Abs(v) > 1e-6 {
			t.Fatalf("y[%d] = %g, want 0", i, v)
		}
	}
}

func TestFiltFiltSeparatesBands(t *testing.T) {
	const (
		n  = 500
		fs = 1 / 0.8
	)
	low := sine(n, 0.02, fs, 1)
	high := sine(n, 0.4, fs, 1)
	x := make([]float64, n)
	for i := range x {
		x[i] = low[i] + high[i]
	}

	c, err := Butterworth(0.1, 0, 2, fs)
	if err != nil {
		t.Fatalf("Butterworth: %v", err)
	}
	y := c.FiltFilt(x, n-1)
	if len(y) != n {
		t.Fatalf("len(y) = %d, want %d", len(y), n)
	}
	for i := 100; i < n-100; i++ {
		if math.Abs(y[i]-low[i]) > 0.05 {
			t.Fatalf("y[%d] = %g, want about %g", i, y[i], low[i])
		}
	}
}

func TestFiltFiltDoesNotModifyInput(t *testing.T) {
	c, _ := Butterworth(0.1, 0.01, 2, 1.25)
	x := sine(50, 0.05, 1.25, 1)
	orig := append([]float64(nil), x...)
	c.FiltFilt(x, 49)
	for i := range x {
		if x[i] != orig[i] {
			t.Fatalf("input modified at %d", i)
		}
	}
}

func TestEmptyCascadeIsIdentity(t *testing.T) {
	var c Cascade
	x := []float64{1, 2, 3}
	y := c.FiltFilt(x, 2)
	for i := range x {
		if y[i] != x[i] {
			t.Fatalf("y[%d] = %g, want %g", i, y[i], x[i])
		}
	}
}

func TestNotchAttenuatesCentre(t *testing.T) {
	const (
		n  = 600
		fs = 2.0
	)
	c, err := Notch(0.3, 2, fs)
	if err != nil {
		t.Fatalf("Notch: %v", err)
	}
	x := sine(n, 0.3, fs, 1)
	y := c.FiltFilt(x, n-1)
	var peak float64
	for i := 150; i < n-150; i++ {
		peak = math.Max(peak, math.Abs(y[i]))
	}
	if peak > 0.1 {
		t.Fatalf("notch left amplitude %g at centre frequency", peak)
	}
}

func TestButterworthRejectsBadCutoffs(t *testing.T) {
	tests := []struct {
		name     string
		low, hi  float64
		order    int
		sampRate float64
	}{
		{"high-pass above nyquist", 0, 0.7, 2, 1.25},
		{"low-pass above nyquist", 0.7, 0, 2, 1.25},
		{"inverted band", 0.01, 0.08, 2, 1.25},
		{"zero order", 0.1, 0, 0, 1.25},
		{"zero sample rate", 0.1, 0, 2, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Butterworth(tt.low, tt.hi, tt.order, tt.sampRate)
			if !errors.Is(err, models.ErrConfiguration) {
				t.Fatalf("err = %v, want ErrConfiguration", err)
			}
		})
	}
}

func TestFilterColumnsShape(t *testing.T) {
	c, _ := Butterworth(0.08, 0.01, 2, 1.25)
	m := mat.NewDense(40, 3, nil)
	for j := 0; j < 3; j++ {
		m.SetCol(j, sine(40, 0.05, 1.25, float64(j+1)))
	}
	out := c.FilterColumns(m, 1)
	r, cols := out.Dims()
	if r != 40 || cols != 3 {
		t.Fatalf("dims = %d×%d, want 40×3", r, cols)
	}
}
