package motion

import (
	"errors"
	"fmt"
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"

	"bolddenoise/internal/models"
	"bolddenoise/pkg/filter"
)

func motionTable(t *testing.T, n int, fill func(col string, i int) float64) *models.Table {
	t.Helper()
	names := Columns()
	cols := make([][]float64, len(names))
	for j, name := range names {
		cols[j] = make([]float64, n)
		for i := range cols[j] {
			cols[j][i] = fill(name, i)
		}
	}
	tbl, err := models.NewTable(names, cols)
	if err != nil {
		t.Fatalf("NewTable: %v", err)
	}
	return tbl
}

func TestComputeFDZeroAtStart(t *testing.T) {
	for _, n := range []int{1, 2, 10} {
		m := motionTable(t, n, func(string, int) float64 { return 0.3 })
		fd, err := ComputeFD(m, DefaultHeadRadius)
		if err != nil {
			t.Fatalf("ComputeFD: %v", err)
		}
		if len(fd) != n {
			t.Fatalf("len(fd) = %d, want %d", len(fd), n)
		}
		if fd[0] != 0 {
			t.Fatalf("fd[0] = %g, want 0", fd[0])
		}
	}
}

func TestComputeFDKnownValues(t *testing.T) {
	// trans_x steps by 1 mm and rot_z by 0.01 rad at every frame.
	m := motionTable(t, 4, func(col string, i int) float64 {
		switch col {
		case "trans_x":
			return float64(i)
		case "rot_z":
			return 0.01 * float64(i)
		}
		return 0
	})
	fd, err := ComputeFD(m, 50)
	if err != nil {
		t.Fatalf("ComputeFD: %v", err)
	}
	want := []float64{0, 1.5, 1.5, 1.5}
	for i := range want {
		if math.Abs(fd[i]-want[i]) > 1e-12 {
			t.Errorf("fd[%d] = %g, want %g", i, fd[i], want[i])
		}
	}
}

func TestComputeFDMissingColumn(t *testing.T) {
	tbl, _ := models.NewTable([]string{"trans_x"}, [][]float64{{0, 1}})
	if _, err := ComputeFD(tbl, 50); !errors.Is(err, models.ErrMissingData) {
		t.Fatalf("err = %v, want ErrMissingData", err)
	}
}

func TestEstimateHeadRadius(t *testing.T) {
	vol := 4.0 / 3.0 * math.Pi * 50 * 50 * 50
	r, err := EstimateHeadRadius(vol)
	if err != nil {
		t.Fatalf("EstimateHeadRadius: %v", err)
	}
	if math.Abs(r-50) > 1e-9 {
		t.Fatalf("radius = %g, want 50", r)
	}
	if _, err := EstimateHeadRadius(0); !errors.Is(err, models.ErrConfiguration) {
		t.Fatalf("err = %v, want ErrConfiguration", err)
	}
}

func TestAliasFrequency(t *testing.T) {
	fs := 1 / 0.8
	tests := []struct {
		in, want float64
	}{
		{0.3, 0.3},
		{1.0, 0.25},
		{0.625, 0.625},
		{1.3, 0.05},
	}
	for _, tt := range tests {
		if got := AliasFrequency(tt.in, fs); math.Abs(got-tt.want) > 1e-12 {
			t.Errorf("AliasFrequency(%g) = %g, want %g", tt.in, got, tt.want)
		}
	}
}

func TestApplyFilterDisabledIsIdentity(t *testing.T) {
	m := motionTable(t, 20, func(_ string, i int) float64 { return float64(i) })
	out, err := ApplyFilter(m, models.FilterSpec{Type: models.FilterNone}, nil)
	if err != nil {
		t.Fatalf("ApplyFilter: %v", err)
	}
	if out != m {
		t.Fatal("disabled filter should return the input table")
	}
}

func TestApplyFilterKeepsShapeAndConstants(t *testing.T) {
	m := motionTable(t, 120, func(string, int) float64 { return 0.2 })
	specs := []models.FilterSpec{
		{Type: models.FilterLowpass, Cutoffs: []float64{6}, Order: 4, TR: 0.8},
		{Type: models.FilterNotch, Cutoffs: []float64{12, 18}, Order: 4, TR: 0.8},
	}
	for _, spec := range specs {
		t.Run(string(spec.Type), func(t *testing.T) {
			out, err := ApplyFilter(m, spec, nil)
			if err != nil {
				t.Fatalf("ApplyFilter: %v", err)
			}
			if out.Rows() != 120 || out.NumColumns() != 6 {
				t.Fatalf("shape = %d×%d, want 120×6", out.Rows(), out.NumColumns())
			}
			col, _ := out.Column("rot_y")
			for i, v := range col {
				if math.Abs(v-0.2) > 1e-9 {
					t.Fatalf("rot_y[%d] = %g, want 0.2", i, v)
				}
			}
		})
	}
}

// wobble fills each motion column with a different mix of a slow drift and
// a fast oscillation.
func wobble(t *testing.T, n int, tr float64) *models.Table {
	t.Helper()
	cols := Columns()
	return motionTable(t, n, func(col string, i int) float64 {
		j := 0
		for k, name := range cols {
			if name == col {
				j = k
			}
		}
		ti := float64(i) * tr
		return 0.1*float64(j+1)*math.Sin(2*math.Pi*0.02*ti) + 0.05*math.Cos(2*math.Pi*(0.3+0.05*float64(j))*ti)
	})
}

func assertFilteredEqual(t *testing.T, got *models.Table, want *mat.Dense) {
	t.Helper()
	g := got.Matrix()
	r, c := want.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if d := math.Abs(g.At(i, j) - want.At(i, j)); d > 1e-12 {
				t.Fatalf("[%d,%d] = %g, want %g", i, j, g.At(i, j), want.At(i, j))
			}
		}
	}
}

func TestApplyFilterNotchPasses(t *testing.T) {
	const tr = 0.8
	fs := 1 / tr
	m := wobble(t, 150, tr)
	src := m.Matrix()

	// 36-48 bpm is 0.6-0.8 Hz; at TR 0.8 the upper edge aliases to 0.45 Hz.
	lo, hi := AliasFrequency(36.0/60, fs), AliasFrequency(48.0/60, fs)
	if lo > hi {
		lo, hi = hi, lo
	}
	centre := (lo + hi) / 2
	notch, err := filter.Notch(centre, centre/(hi-lo), fs)
	if err != nil {
		t.Fatalf("Notch: %v", err)
	}

	tests := []struct {
		order, passes int
	}{
		{2, 1},
		{4, 2},
		{5, 2},
		{6, 3},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("order %d", tt.order), func(t *testing.T) {
			spec := models.FilterSpec{Type: models.FilterNotch, Cutoffs: []float64{36, 48}, Order: tt.order, TR: tr}
			out, err := ApplyFilter(m, spec, nil)
			if err != nil {
				t.Fatalf("ApplyFilter: %v", err)
			}
			assertFilteredEqual(t, out, notch.FilterColumns(src, tt.passes))
		})
	}
}

func TestApplyFilterLowpassOrder(t *testing.T) {
	const tr = 0.8
	fs := 1 / tr
	m := wobble(t, 150, tr)
	for _, order := range []int{2, 4} {
		t.Run(fmt.Sprintf("order %d", order), func(t *testing.T) {
			lp, err := filter.Butterworth(6.0/60, 0, order, fs)
			if err != nil {
				t.Fatalf("Butterworth: %v", err)
			}
			spec := models.FilterSpec{Type: models.FilterLowpass, Cutoffs: []float64{6}, Order: order, TR: tr}
			out, err := ApplyFilter(m, spec, nil)
			if err != nil {
				t.Fatalf("ApplyFilter: %v", err)
			}
			assertFilteredEqual(t, out, lp.FilterColumns(m.Matrix(), 1))
		})
	}
}

func TestApplyFilterNotchAttenuatesAliasedBand(t *testing.T) {
	const (
		n  = 400
		tr = 0.8
	)
	fs := 1 / tr
	lo, hi := AliasFrequency(36.0/60, fs), AliasFrequency(48.0/60, fs)
	centre := (lo + hi) / 2
	m := motionTable(t, n, func(_ string, i int) float64 {
		return math.Sin(2 * math.Pi * centre * float64(i) * tr)
	})
	out, err := ApplyFilter(m, models.FilterSpec{Type: models.FilterNotch, Cutoffs: []float64{36, 48}, Order: 4, TR: tr}, nil)
	if err != nil {
		t.Fatalf("ApplyFilter: %v", err)
	}
	col, _ := out.Column("trans_x")
	var peak float64
	for i := 100; i < n-100; i++ {
		peak = math.Max(peak, math.Abs(col[i]))
	}
	if peak > 0.05 {
		t.Fatalf("notch left amplitude %g at aliased centre %g Hz", peak, centre)
	}
}

func TestApplyFilterRejectsInvalidSpec(t *testing.T) {
	m := motionTable(t, 10, func(string, int) float64 { return 0 })
	bad := []models.FilterSpec{
		{Type: models.FilterNotch, Cutoffs: []float64{18}, Order: 4, TR: 2},
		{Type: models.FilterNotch, Cutoffs: []float64{18, 12}, Order: 4, TR: 2},
		{Type: models.FilterNotch, Cutoffs: []float64{12, 18}, Order: 1, TR: 2},
		{Type: models.FilterLowpass, Cutoffs: []float64{-1}, Order: 2, TR: 2},
		{Type: models.FilterLowpass, Cutoffs: []float64{6}, Order: 2, TR: 0},
	}
	for _, spec := range bad {
		if _, err := ApplyFilter(m, spec, nil); !errors.Is(err, models.ErrConfiguration) {
			t.Errorf("spec %+v: err = %v, want ErrConfiguration", spec, err)
		}
	}
}
