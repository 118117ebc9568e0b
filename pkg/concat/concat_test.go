package concat

import (
	"errors"
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"

	"bolddenoise/internal/models"
)

func filled(r, c int, v float64) *mat.Dense {
	m := mat.NewDense(r, c, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			m.Set(i, j, v+float64(i))
		}
	}
	return m
}

func TestSignalsWithDummyScans(t *testing.T) {
	runs := []mat.Matrix{filled(50, 10, 0), filled(60, 10, 1000), filled(40, 10, 2000)}
	out, err := Signals(runs, []int{5, 0, 10})
	if err != nil {
		t.Fatalf("Signals: %v", err)
	}
	r, c := out.Dims()
	if r != 135 || c != 10 {
		t.Fatalf("dims = %d×%d, want 135×10", r, c)
	}
	// First kept rows of each run.
	for _, tc := range []struct {
		row  int
		want float64
	}{
		{0, 5},
		{45, 1000},
		{105, 2010},
		{134, 2039},
	} {
		if got := out.At(tc.row, 3); got != tc.want {
			t.Errorf("row %d = %g, want %g", tc.row, got, tc.want)
		}
	}
}

func TestSignalsErrors(t *testing.T) {
	tests := []struct {
		name  string
		runs  []mat.Matrix
		dummy []int
		want  error
	}{
		{"no runs", nil, nil, models.ErrMissingData},
		{"unit mismatch", []mat.Matrix{filled(5, 2, 0), filled(5, 3, 0)}, nil, models.ErrDataShape},
		{"count mismatch", []mat.Matrix{filled(5, 2, 0)}, []int{1, 2}, models.ErrConfiguration},
		{"drop everything", []mat.Matrix{filled(5, 2, 0)}, []int{5}, models.ErrDataShape},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Signals(tt.runs, tt.dummy); !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestTablesRowWise(t *testing.T) {
	a, _ := models.NewTable([]string{"x", "y"}, [][]float64{{1, 2}, {3, 4}})
	b, _ := models.NewTable([]string{"x", "y"}, [][]float64{{5}, {6}})
	out, err := Tables([]*models.Table{a, b})
	if err != nil {
		t.Fatalf("Tables: %v", err)
	}
	if out.Rows() != 3 {
		t.Fatalf("rows = %d, want 3", out.Rows())
	}
	y, _ := out.Column("y")
	want := []float64{3, 4, 6}
	for i := range want {
		if y[i] != want[i] {
			t.Errorf("y[%d] = %g, want %g", i, y[i], want[i])
		}
	}

	c, _ := models.NewTable([]string{"y", "x"}, [][]float64{{5}, {6}})
	if _, err := Tables([]*models.Table{a, c}); !errors.Is(err, models.ErrDataShape) {
		t.Fatalf("reordered columns: err = %v, want ErrDataShape", err)
	}
}

func TestDCANSummary(t *testing.T) {
	fd := models.FDSeries{0, 0.1, 0.25, 0.5, 0.9, 1.2}
	sum, err := NewDCANSummary(fd, 2)
	if err != nil {
		t.Fatalf("NewDCANSummary: %v", err)
	}
	if len(sum.Levels) != DCANThresholds {
		t.Fatalf("levels = %d, want %d", len(sum.Levels), DCANThresholds)
	}
	if sum.Levels[0].Threshold != 0 || sum.Levels[100].Threshold != 1 {
		t.Fatalf("grid spans [%g, %g], want [0, 1]", sum.Levels[0].Threshold, sum.Levels[100].Threshold)
	}

	lvl := sum.Levels[30] // 0.3 mm
	if math.Abs(lvl.Threshold-0.3) > 1e-12 {
		t.Fatalf("level 30 threshold = %g", lvl.Threshold)
	}
	if lvl.TotalFrames != 6 || lvl.RemainingFrames != 3 || lvl.RemainingSeconds != 6 {
		t.Fatalf("level 30 = %+v", lvl)
	}
	if math.Abs(lvl.MeanFD-0.35/3) > 1e-12 || lvl.MedianFD != 0.1 {
		t.Fatalf("level 30 mean %g median %g", lvl.MeanFD, lvl.MedianFD)
	}

	prev := -1
	for _, l := range sum.Levels {
		if l.RemainingFrames < prev {
			t.Fatalf("remaining frames decrease at threshold %g", l.Threshold)
		}
		prev = l.RemainingFrames
	}

	if r, c := sum.Masks().Dims(); r != 6 || c != DCANThresholds {
		t.Fatalf("mask dims = %d×%d", r, c)
	}
	if tbl := sum.Table(); tbl.Rows() != DCANThresholds || tbl.NumColumns() != 6 {
		t.Fatalf("table = %d×%d", tbl.Rows(), tbl.NumColumns())
	}
}
