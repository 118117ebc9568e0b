package tableio

import (
	"fmt"

	"github.com/kshedden/gonpy"
	"gonum.org/v1/gonum/mat"

	"bolddenoise/internal/models"
)

// WriteNpy writes m as a 2-D float64 .npy array in row-major order.
func WriteNpy(path string, m mat.Matrix) error {
	dense := mat.DenseCopyOf(m)
	rows, cols := dense.Dims()

	w, err := gonpy.NewFileWriter(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	w.Shape = []int{rows, cols}
	w.Version = 2
	if err := w.WriteFloat64(dense.RawMatrix().Data); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// ReadNpy reads a 1-D or 2-D float64 .npy array. A 1-D array becomes a
// single column. Fortran-ordered arrays are transposed into row-major
// order.
func ReadNpy(path string) (*mat.Dense, error) {
	r, err := gonpy.NewFileReader(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	var rows, cols int
	switch len(r.Shape) {
	case 1:
		rows, cols = r.Shape[0], 1
	case 2:
		rows, cols = r.Shape[0], r.Shape[1]
	default:
		return nil, fmt.Errorf("%s has shape %v, want 1-D or 2-D: %w", path, r.Shape, models.ErrDataShape)
	}
	data, err := r.GetFloat64()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if rows == 0 || cols == 0 || len(data) != rows*cols {
		return nil, fmt.Errorf("%s holds %d values for shape %v: %w", path, len(data), r.Shape, models.ErrDataShape)
	}
	if r.ColumnMajor && cols > 1 {
		return mat.DenseCopyOf(mat.NewDense(cols, rows, data).T()), nil
	}
	return mat.NewDense(rows, cols, data), nil
}
