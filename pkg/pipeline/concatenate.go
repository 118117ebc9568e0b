package pipeline

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"bolddenoise/internal/models"
	"bolddenoise/pkg/concat"
)

// Concatenated holds the outputs of several runs of one subject and task
// joined end to end in run order.
type Concatenated struct {
	// Motion stacks each run's filtered motion and FD table.
	Motion *models.Table

	// Mask stacks each run's temporal mask table.
	Mask *models.Table

	// Denoised stacks the interpolated, filtered outputs.
	Denoised *mat.Dense

	// DCAN is recomputed over the concatenated FD series when every run
	// produced one.
	DCAN *concat.DCANSummary
}

// Concatenate joins the results of runs that share a TR. Dummy volumes
// were already dropped by Process, so no further trimming happens here.
func Concatenate(results []*RunResult) (*Concatenated, error) {
	if len(results) == 0 {
		return nil, fmt.Errorf("no runs to concatenate: %w", models.ErrMissingData)
	}
	tr := results[0].TR
	var (
		motionTables []*models.Table
		maskTables   []*models.Table
		signals      []mat.Matrix
		fd           models.FDSeries
		withDCAN     = true
	)
	for _, r := range results {
		if r == nil {
			return nil, fmt.Errorf("missing run result: %w", models.ErrMissingData)
		}
		if r.TR != tr {
			return nil, fmt.Errorf("run %s has TR %g, run %s has %g: %w",
				r.Run, r.TR, results[0].Run, tr, models.ErrConfiguration)
		}
		motionTables = append(motionTables, r.Motion)
		maskTables = append(maskTables, r.Mask.Table())
		signals = append(signals, r.Denoised.Filtered)
		fd = append(fd, r.FD...)
		withDCAN = withDCAN && r.DCAN != nil
	}

	out := &Concatenated{}
	var err error
	if out.Motion, err = concat.Tables(motionTables); err != nil {
		return nil, fmt.Errorf("concatenating motion: %w", err)
	}
	if out.Mask, err = concat.Tables(maskTables); err != nil {
		return nil, fmt.Errorf("concatenating masks: %w", err)
	}
	if out.Denoised, err = concat.Signals(signals, nil); err != nil {
		return nil, fmt.Errorf("concatenating denoised signal: %w", err)
	}
	if withDCAN {
		if out.DCAN, err = concat.NewDCANSummary(fd, tr); err != nil {
			return nil, err
		}
	}
	return out, nil
}
