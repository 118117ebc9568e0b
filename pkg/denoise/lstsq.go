package denoise

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"bolddenoise/internal/models"
)

// lstsq returns the minimum-norm least-squares solution X of A·X ≈ B and the
// effective rank of A. Singular values below eps·max(m, n) relative to the
// largest one are treated as zero, so rank-deficient designs solve instead
// of failing.
func lstsq(a, b mat.Matrix) (*mat.Dense, int, error) {
	m, n := a.Dims()
	bm, k := b.Dims()
	if bm != m {
		return nil, 0, fmt.Errorf("least squares: design has %d rows, target %d: %w", m, bm, models.ErrDataShape)
	}

	var svd mat.SVD
	if !svd.Factorize(a, mat.SVDThin) {
		return nil, 0, fmt.Errorf("least squares: SVD of %d×%d design did not converge", m, n)
	}
	eps := math.Nextafter(1, 2) - 1
	rank := svd.Rank(eps * float64(max(m, n)))
	x := mat.NewDense(n, k, nil)
	if rank == 0 {
		return x, 0, nil
	}
	svd.SolveTo(x, b, rank)
	return x, rank, nil
}

// residuals returns B − A·X.
func residuals(a, x, b mat.Matrix) *mat.Dense {
	var fit mat.Dense
	fit.Mul(a, x)
	var res mat.Dense
	res.Sub(b, &fit)
	return &res
}
