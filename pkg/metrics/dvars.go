package metrics

import (
	"fmt"
	"math"
	"sort"

	timestats "github.com/cwbudde/algo-dsp/stats/time"
	mstats "github.com/montanaflynn/stats"
	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"bolddenoise/internal/models"
)

// NormalizedMedian is the value the median unit mean is scaled to before
// DVARS is computed.
const NormalizedMedian = 1000.0

// iqrToSD converts an interquartile range to a normal standard deviation.
const iqrToSD = 1.349

// minRobustSD is the robust standard deviation below which a unit is
// treated as constant and dropped.
const minRobustSD = 1e-10

// DVARS holds the temporal derivative RMS variance series. Both series
// have one value per timepoint and start with 0.
type DVARS struct {
	Raw          []float64
	Standardized []float64

	// Dropped is the number of near-constant units left out.
	Dropped int
}

// ComputeDVARS returns raw and standardized DVARS for a T×S signal.
// Intensities are scaled so the median unit mean is 1000. Units whose
// robust standard deviation is near zero are dropped. Standardized DVARS
// divides raw DVARS by the mean expected standard deviation of the temporal
// difference under an AR(1) model.
func ComputeDVARS(signal mat.Matrix, log *logrus.Entry) (*DVARS, error) {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	t, s := signal.Dims()
	if t < 2 {
		return nil, fmt.Errorf("DVARS needs at least 2 volumes, got %d: %w", t, models.ErrDataShape)
	}

	cols := make([][]float64, s)
	means := make([]float64, s)
	for j := range cols {
		cols[j] = mat.Col(nil, j, signal)
		means[j] = stat.Mean(cols[j], nil)
	}
	median, err := mstats.Median(means)
	if err != nil {
		return nil, fmt.Errorf("DVARS intensity normalization: %w", err)
	}
	scale := 1.0
	if math.Abs(median) > minRobustSD {
		scale = NormalizedMedian / median
	} else {
		log.Warn("median intensity is zero; DVARS computed without intensity normalization")
	}

	var (
		kept      [][]float64
		diffSDSum float64
	)
	sorted := make([]float64, t)
	for _, col := range cols {
		for i := range col {
			col[i] *= scale
		}
		copy(sorted, col)
		sort.Float64s(sorted)
		sd := (stat.Quantile(0.75, stat.Empirical, sorted, nil) - stat.Quantile(0.25, stat.Empirical, sorted, nil)) / iqrToSD
		if sd <= minRobustSD {
			continue
		}
		ar1 := lag1Autocorrelation(col)
		diffSDSum += math.Sqrt(2*(1-ar1)) * sd
		kept = append(kept, col)
	}

	out := &DVARS{
		Raw:          make([]float64, t),
		Standardized: make([]float64, t),
		Dropped:      s - len(kept),
	}
	if out.Dropped > 0 {
		log.WithField("n_dropped_units", out.Dropped).Warn("near-constant units dropped from DVARS")
	}
	if len(kept) == 0 {
		return out, nil
	}
	diffSDMean := diffSDSum / float64(len(kept))

	diffs := make([]float64, len(kept))
	for i := 1; i < t; i++ {
		for k, col := range kept {
			diffs[k] = col[i] - col[i-1]
		}
		out.Raw[i] = timestats.RMS(diffs)
		if diffSDMean > 0 {
			out.Standardized[i] = out.Raw[i] / diffSDMean
		}
	}
	return out, nil
}

// lag1Autocorrelation is the Yule-Walker AR(1) coefficient of the
// mean-removed series.
func lag1Autocorrelation(x []float64) float64 {
	mean := stat.Mean(x, nil)
	var num, den float64
	for i, v := range x {
		d := v - mean
		den += d * d
		if i+1 < len(x) {
			num += d * (x[i+1] - mean)
		}
	}
	if den == 0 {
		return 0
	}
	return num / den
}
