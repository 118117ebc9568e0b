// Package denoise removes nuisance signal from a T×S BOLD matrix.
//
// Regression is fit only on retained (uncensored) timepoints, censored
// timepoints are then filled back in by spline interpolation, and the
// continuous result is band-pass filtered. The steps run in this order:
//
//  1. orthogonalize noise regressors against signal regressors
//  2. split signal and design by the censoring mask
//  3. mean-center the design with means from the retained rows
//  4. fit betas on retained rows (minimum-norm least squares)
//  5. apply betas to the full and the retained signal
//  6. interpolate censored rows, flat at the run edges
//  7. band-pass filter
package denoise

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/mat"

	"bolddenoise/internal/models"
)

// Params holds the per-run denoising settings.
type Params struct {
	// TR is the sampling interval in seconds.
	TR float64

	Bandpass Bandpass
}

// Denoise runs the full denoising sequence on signal (T×S, rows are
// timepoints). confounds may have no columns, in which case regression is
// skipped and only interpolation and filtering run. A nil mask retains
// every timepoint.
func Denoise(signal mat.Matrix, confounds *models.Table, mask *models.TemporalMask, p Params, log *logrus.Entry) (*models.DesignResult, error) {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	t, s := signal.Dims()
	if t == 0 || s == 0 {
		return nil, fmt.Errorf("signal is %d×%d: %w", t, s, models.ErrDataShape)
	}
	if mask == nil {
		mask = &models.TemporalMask{Outliers: make([]bool, t)}
	}
	if mask.Len() != t {
		return nil, fmt.Errorf("mask covers %d volumes, signal has %d: %w", mask.Len(), t, models.ErrDataShape)
	}
	var design *models.Table
	if confounds != nil && confounds.NumColumns() > 0 {
		if confounds.Rows() != t {
			return nil, fmt.Errorf("confounds have %d rows, signal has %d: %w", confounds.Rows(), t, models.ErrDataShape)
		}
		orth, err := Orthogonalize(confounds)
		if err != nil {
			return nil, err
		}
		if orth.NumColumns() > 0 {
			design = orth
		}
	}
	retained := mask.Retained()
	if len(retained) == 0 {
		return nil, fmt.Errorf("every one of %d volumes is censored: %w", t, models.ErrDataShape)
	}
	cascade, err := p.Bandpass.Cascade(p.TR, log)
	if err != nil {
		return nil, err
	}

	res := &models.DesignResult{Retained: retained}
	signalC := selectRows(signal, retained)

	if design != nil {
		full := design.Matrix()
		censored := selectRows(full, retained)
		centerColumns(full, censored, design.Columns())

		betas, rank, err := lstsq(censored, signalC)
		if err != nil {
			return nil, err
		}
		_, c := full.Dims()
		if rank < c {
			log.WithFields(logrus.Fields{
				"rank":      rank,
				"n_columns": c,
			}).Warn("rank-deficient design; using minimum-norm solution")
		}
		res.Uncensored = residuals(full, betas, signal)
		res.Censored = residuals(censored, betas, signalC)
		res.Betas = betas
		res.Design, err = models.NewTableFromMatrix(design.Columns(), full)
		if err != nil {
			return nil, err
		}
	} else {
		log.Info("no confounds; skipping nuisance regression")
		res.Uncensored = mat.DenseCopyOf(signal)
		res.Censored = signalC
	}

	res.Interpolated, err = Interpolate(res.Censored, retained, t)
	if err != nil {
		return nil, err
	}

	if len(cascade) > 0 {
		res.Filtered = cascade.FilterColumns(res.Interpolated, 1)
	} else {
		res.Filtered = mat.DenseCopyOf(res.Interpolated)
	}

	log.WithFields(logrus.Fields{
		"n_volumes":  t,
		"n_units":    s,
		"n_retained": len(retained),
		"filtered":   len(cascade) > 0,
	}).Info("denoising complete")
	return res, nil
}

// Orthogonalize replaces every noise regressor with its residual after
// regressing it on the signal regressors (columns prefixed with
// models.SignalPrefix), over all timepoints. Signal regressors are then
// dropped from the design. The trend and intercept columns are left
// untouched. A table without signal regressors is returned unchanged.
func Orthogonalize(confounds *models.Table) (*models.Table, error) {
	var signalNames, noiseNames, fixedNames []string
	for _, name := range confounds.Columns() {
		switch {
		case strings.HasPrefix(name, models.SignalPrefix):
			signalNames = append(signalNames, name)
		case name == models.TrendColumn || name == models.InterceptColumn:
			fixedNames = append(fixedNames, name)
		default:
			noiseNames = append(noiseNames, name)
		}
	}
	if len(signalNames) == 0 {
		return confounds, nil
	}

	fixed, err := confounds.Select(fixedNames...)
	if err != nil {
		return nil, err
	}
	if len(noiseNames) == 0 {
		return fixed, nil
	}
	sig, err := confounds.Select(signalNames...)
	if err != nil {
		return nil, err
	}
	noise, err := confounds.Select(noiseNames...)
	if err != nil {
		return nil, err
	}
	sm, nm := sig.Matrix(), noise.Matrix()
	b, _, err := lstsq(sm, nm)
	if err != nil {
		return nil, fmt.Errorf("orthogonalizing noise regressors: %w", err)
	}
	orth, err := models.NewTableFromMatrix(noiseNames, residuals(sm, b, nm))
	if err != nil {
		return nil, err
	}
	return orth.Join(fixed)
}

// centerColumns subtracts from every non-intercept column of full and
// censored the mean of that column over censored.
func centerColumns(full, censored *mat.Dense, names []string) {
	t, _ := full.Dims()
	r, _ := censored.Dims()
	for j, name := range names {
		if name == models.InterceptColumn {
			continue
		}
		mean := mat.Sum(censored.ColView(j)) / float64(r)
		for i := 0; i < t; i++ {
			full.Set(i, j, full.At(i, j)-mean)
		}
		for i := 0; i < r; i++ {
			censored.Set(i, j, censored.At(i, j)-mean)
		}
	}
}

// selectRows copies the given rows of m into a new len(rows)×c matrix.
func selectRows(m mat.Matrix, rows []int) *mat.Dense {
	_, c := m.Dims()
	out := mat.NewDense(len(rows), c, nil)
	for i, r := range rows {
		for j := 0; j < c; j++ {
			out.Set(i, j, m.At(r, j))
		}
	}
	return out
}
