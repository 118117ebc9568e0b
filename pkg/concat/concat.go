// Package concat joins the outputs of several runs of the same subject and
// task along the time axis, and builds the fixed-grid DCAN motion summary.
package concat

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"bolddenoise/internal/models"
)

// Tables stacks tables row-wise in run order. Every table must have the
// same columns in the same order.
func Tables(runs []*models.Table) (*models.Table, error) {
	if len(runs) == 0 {
		return nil, fmt.Errorf("no runs to concatenate: %w", models.ErrMissingData)
	}
	names := runs[0].Columns()
	cols := make([][]float64, len(names))
	for r, tbl := range runs {
		got := tbl.Columns()
		if len(got) != len(names) {
			return nil, fmt.Errorf("run %d has %d columns, run 0 has %d: %w", r, len(got), len(names), models.ErrDataShape)
		}
		for j, name := range names {
			if got[j] != name {
				return nil, fmt.Errorf("run %d column %d is %q, want %q: %w", r, j, got[j], name, models.ErrDataShape)
			}
			cols[j] = append(cols[j], tbl.ColumnAt(j)...)
		}
	}
	if len(names) == 0 {
		total := 0
		for _, tbl := range runs {
			total += tbl.Rows()
		}
		return models.EmptyTable(total), nil
	}
	return models.NewTable(names, cols)
}

// Signals stacks T_i×S matrices along time, first dropping dummy[i]
// leading volumes from run i. dummy may be nil for no trimming.
func Signals(runs []mat.Matrix, dummy []int) (*mat.Dense, error) {
	if len(runs) == 0 {
		return nil, fmt.Errorf("no runs to concatenate: %w", models.ErrMissingData)
	}
	if dummy != nil && len(dummy) != len(runs) {
		return nil, fmt.Errorf("%d dummy-scan counts for %d runs: %w", len(dummy), len(runs), models.ErrConfiguration)
	}
	_, units := runs[0].Dims()
	total := 0
	for i, m := range runs {
		r, c := m.Dims()
		if c != units {
			return nil, fmt.Errorf("run %d has %d units, run 0 has %d: %w", i, c, units, models.ErrDataShape)
		}
		d := dropCount(dummy, i)
		if d < 0 || d >= r {
			return nil, fmt.Errorf("run %d: dropping %d of %d volumes: %w", i, d, r, models.ErrDataShape)
		}
		total += r - d
	}

	out := mat.NewDense(total, units, nil)
	row := 0
	for i, m := range runs {
		r, _ := m.Dims()
		for t := dropCount(dummy, i); t < r; t++ {
			for j := 0; j < units; j++ {
				out.Set(row, j, m.At(t, j))
			}
			row++
		}
	}
	return out, nil
}

func dropCount(dummy []int, i int) int {
	if dummy == nil {
		return 0
	}
	return dummy[i]
}
