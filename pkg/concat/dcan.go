package concat

import (
	"fmt"

	mstats "github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"bolddenoise/internal/models"
)

// DCANThresholds is the number of FD thresholds in the summary grid,
// evenly spaced over [0, 1] mm.
const DCANThresholds = 101

// DCANLevel summarises censoring at one FD threshold.
type DCANLevel struct {
	Threshold        float64
	Mask             []bool // true marks a censored frame
	TotalFrames      int
	RemainingFrames  int
	RemainingSeconds float64
	MeanFD           float64 // over remaining frames, 0 when none remain
	MedianFD         float64
}

// DCANSummary is the fixed-grid motion QC artifact.
type DCANSummary struct {
	Levels []DCANLevel
}

// NewDCANSummary thresholds fd at every grid value. It does not depend on
// the censoring threshold configured for denoising.
func NewDCANSummary(fd models.FDSeries, tr float64) (*DCANSummary, error) {
	if tr <= 0 {
		return nil, fmt.Errorf("TR %g must be > 0: %w", tr, models.ErrConfiguration)
	}
	grid := floats.Span(make([]float64, DCANThresholds), 0, 1)
	sum := &DCANSummary{Levels: make([]DCANLevel, len(grid))}
	for i, th := range grid {
		lvl := DCANLevel{
			Threshold:   th,
			Mask:        make([]bool, len(fd)),
			TotalFrames: len(fd),
		}
		var kept []float64
		for t, v := range fd {
			if v > th {
				lvl.Mask[t] = true
				continue
			}
			kept = append(kept, v)
		}
		lvl.RemainingFrames = len(kept)
		lvl.RemainingSeconds = float64(len(kept)) * tr
		if len(kept) > 0 {
			lvl.MeanFD = stat.Mean(kept, nil)
			lvl.MedianFD, _ = mstats.Median(kept)
		}
		sum.Levels[i] = lvl
	}
	return sum, nil
}

// Table renders one row per threshold.
func (d *DCANSummary) Table() *models.Table {
	n := len(d.Levels)
	cols := make([][]float64, 6)
	for j := range cols {
		cols[j] = make([]float64, n)
	}
	for i, l := range d.Levels {
		cols[0][i] = l.Threshold
		cols[1][i] = float64(l.TotalFrames)
		cols[2][i] = float64(l.RemainingFrames)
		cols[3][i] = l.RemainingSeconds
		cols[4][i] = l.MeanFD
		cols[5][i] = l.MedianFD
	}
	t, err := models.NewTable([]string{
		"fd_threshold", "total_frames", "remaining_frames",
		"remaining_seconds", "mean_fd", "median_fd",
	}, cols)
	if err != nil {
		panic(err)
	}
	return t
}

// Masks returns the T×101 binary mask matrix, one column per threshold.
// It returns nil for an empty FD series.
func (d *DCANSummary) Masks() *mat.Dense {
	if len(d.Levels) == 0 || d.Levels[0].TotalFrames == 0 {
		return nil
	}
	m := mat.NewDense(d.Levels[0].TotalFrames, len(d.Levels), nil)
	for j, l := range d.Levels {
		for t, c := range l.Mask {
			if c {
				m.Set(t, j, 1)
			}
		}
	}
	return m
}
