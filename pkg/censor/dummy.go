package censor

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/mat"

	"bolddenoise/internal/models"
)

// NonSteadyStatePrefix marks fMRIPrep columns flagging non-steady-state volumes.
const NonSteadyStatePrefix = "non_steady_state_outlier"

// DetectDummyScans returns the length of the leading run of volumes flagged
// by any non-steady-state outlier column in confounds. Flags after the first
// unflagged volume are not dummy scans.
func DetectDummyScans(confounds *models.Table) int {
	flagged := make([]bool, confounds.Rows())
	for _, name := range confounds.Columns() {
		if !strings.HasPrefix(name, NonSteadyStatePrefix) {
			continue
		}
		col, _ := confounds.Column(name)
		for i, v := range col {
			if v != 0 {
				flagged[i] = true
			}
		}
	}
	n := 0
	for n < len(flagged) && flagged[n] {
		n++
	}
	return n
}

// DropDummyScans removes the first n volumes from the signal and confounds.
// The signal may be nil when only tables are trimmed.
func DropDummyScans(signal *mat.Dense, confounds *models.Table, n int) (*mat.Dense, *models.Table, error) {
	if n < 0 {
		return nil, nil, fmt.Errorf("dummy scans %d must be >= 0: %w", n, models.ErrConfiguration)
	}
	rows := confounds.Rows()
	if signal != nil {
		r, _ := signal.Dims()
		if r != rows {
			return nil, nil, fmt.Errorf("signal has %d volumes, confounds %d: %w", r, rows, models.ErrDataShape)
		}
	}
	if n >= rows {
		return nil, nil, fmt.Errorf("dummy scans %d leave no volumes out of %d: %w", n, rows, models.ErrDataShape)
	}
	if n == 0 {
		return signal, confounds, nil
	}
	var trimmed *mat.Dense
	if signal != nil {
		_, c := signal.Dims()
		trimmed = mat.DenseCopyOf(signal.Slice(n, rows, 0, c))
	}
	return trimmed, confounds.DropLeading(n), nil
}
