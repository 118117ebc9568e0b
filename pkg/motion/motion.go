// Package motion computes framewise displacement from the six rigid-body
// motion parameters and filters those parameters to remove respiratory
// artifact before FD is derived.
package motion

import (
	"fmt"
	"math"

	"github.com/sirupsen/logrus"

	"bolddenoise/internal/models"
	"bolddenoise/pkg/filter"
)

// DefaultHeadRadius is the head radius in mm used to turn rotations into
// arc-length displacement.
const DefaultHeadRadius = 50.0

// Rotation and translation column names as written by fMRIPrep.
var (
	RotationColumns    = []string{"rot_x", "rot_y", "rot_z"}
	TranslationColumns = []string{"trans_x", "trans_y", "trans_z"}
)

// Columns returns the six motion parameter names, translations first.
func Columns() []string {
	return append(append([]string(nil), TranslationColumns...), RotationColumns...)
}

// ExtractTable selects the six motion columns from a confounds table.
func ExtractTable(confounds *models.Table) (*models.Table, error) {
	t, err := confounds.Select(Columns()...)
	if err != nil {
		return nil, fmt.Errorf("motion parameters: %w", err)
	}
	return t, nil
}

// EstimateHeadRadius returns the radius in mm of a sphere with the given
// brain volume in mm³.
func EstimateHeadRadius(brainVolumeMM3 float64) (float64, error) {
	if brainVolumeMM3 <= 0 {
		return 0, fmt.Errorf("brain volume %g mm3 must be > 0: %w", brainVolumeMM3, models.ErrConfiguration)
	}
	return math.Cbrt((3 * brainVolumeMM3) / (4 * math.Pi)), nil
}

// ComputeFD returns framewise displacement for every timepoint. FD[0] is 0;
// FD[t] sums the absolute frame-to-frame change of the three translations
// and of the three rotations scaled by headRadius.
func ComputeFD(m *models.Table, headRadius float64) (models.FDSeries, error) {
	if headRadius <= 0 {
		return nil, fmt.Errorf("head radius %g mm must be > 0: %w", headRadius, models.ErrConfiguration)
	}
	n := m.Rows()
	fd := make(models.FDSeries, n)
	add := func(name string, scale float64) error {
		col, err := m.Column(name)
		if err != nil {
			return err
		}
		for t := 1; t < n; t++ {
			fd[t] += math.Abs(col[t]-col[t-1]) * scale
		}
		return nil
	}
	for _, c := range TranslationColumns {
		if err := add(c, 1); err != nil {
			return nil, err
		}
	}
	for _, c := range RotationColumns {
		if err := add(c, headRadius); err != nil {
			return nil, err
		}
	}
	return fd, nil
}

// AliasFrequency folds a frequency above Nyquist back into [0, Nyquist]
// using the sampling frequency. Frequencies already below Nyquist are
// returned unchanged.
//
// Respiratory bands sit above Nyquist for most TRs; folding keeps the band
// identifiable at its aliased position instead of rejecting the filter.
func AliasFrequency(freqHz, sampleRate float64) float64 {
	nyquist := sampleRate / 2
	return math.Abs(freqHz - math.Floor((freqHz+nyquist)/sampleRate)*sampleRate)
}

// ApplyFilter filters every column of m forward and backward with the
// filter described by spec and returns a new table. A disabled spec
// returns m unchanged.
func ApplyFilter(m *models.Table, spec models.FilterSpec, log *logrus.Entry) (*models.Table, error) {
	if !spec.Enabled() {
		return m, nil
	}
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	sampleRate := 1 / spec.TR

	var (
		cascade filter.Cascade
		passes  int
		err     error
	)
	switch spec.Type {
	case models.FilterLowpass:
		cutoff := AliasFrequency(spec.Cutoffs[0]/60, sampleRate)
		log.WithFields(logrus.Fields{
			"cutoff_bpm": spec.Cutoffs[0],
			"cutoff_hz":  cutoff,
			"order":      spec.Order,
		}).Debug("low-pass motion filter")
		cascade, err = filter.Butterworth(cutoff, 0, spec.Order, sampleRate)
		passes = 1
	case models.FilterNotch:
		lo := AliasFrequency(spec.Cutoffs[0]/60, sampleRate)
		hi := AliasFrequency(spec.Cutoffs[1]/60, sampleRate)
		if lo > hi {
			lo, hi = hi, lo
		}
		if hi == lo {
			return nil, fmt.Errorf("notch band %v bpm collapses to %g Hz after aliasing at TR %g: %w",
				spec.Cutoffs, lo, spec.TR, models.ErrConfiguration)
		}
		centre := (lo + hi) / 2
		q := centre / (hi - lo)
		passes = spec.Order / 2
		log.WithFields(logrus.Fields{
			"stopband_hz": []float64{lo, hi},
			"q":           q,
			"passes":      passes,
		}).Debug("notch motion filter")
		cascade, err = filter.Notch(centre, q, sampleRate)
	}
	if err != nil {
		return nil, fmt.Errorf("motion filter at TR %g: %w", spec.TR, err)
	}

	src := m.Matrix()
	if src == nil {
		return m, nil
	}
	filtered := cascade.FilterColumns(src, passes)
	return models.NewTableFromMatrix(m.Columns(), filtered)
}
