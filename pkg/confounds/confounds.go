// Package confounds assembles the nuisance regressor table that feeds the
// denoising stage from fMRIPrep-style confound time series.
//
// Each Preset is a fixed recipe: which motion and physiological columns to
// take, which expansion terms to derive from them, and whether to add
// anatomical CompCor, cosine drift or ICA-AROMA regressors. Custom
// regressors are appended last, and every non-empty design ends with a
// linear trend and an intercept column.
package confounds

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"bolddenoise/internal/models"
	"bolddenoise/pkg/motion"
)

// Source holds the upstream inputs a preset may draw from.
type Source struct {
	// Confounds is the full confounds table, one row per volume.
	Confounds *models.Table

	// Components describes the anatomical CompCor columns of Confounds.
	// Only needed by the acompcor presets.
	Components ComponentMetadata

	// AROMA holds the ICA mixing matrix. Only needed by the aroma presets.
	AROMA *AROMAComponents
}

// Options selects the recipe.
type Options struct {
	Preset Preset

	// Custom regressors appended to the preset, or used alone by
	// PresetCustom.
	Custom *models.Table

	// MotionFilter is applied to the six motion columns before any
	// expansion term is derived from them.
	MotionFilter models.FilterSpec
}

// Assemble builds the design table for one run. PresetNone returns a table
// with no columns, which disables denoising downstream.
func Assemble(src Source, opts Options, log *logrus.Entry) (*models.Table, error) {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	if _, err := ParsePreset(string(opts.Preset)); err != nil {
		return nil, err
	}

	rows, err := sourceRows(src, opts)
	if err != nil {
		return nil, err
	}
	if opts.Preset == PresetNone {
		if opts.Custom != nil && opts.Custom.NumColumns() > 0 {
			log.Warn("custom confounds ignored: preset none disables denoising")
		}
		return models.EmptyTable(rows), nil
	}

	design := models.EmptyTable(rows)
	if opts.Preset != PresetCustom {
		design, err = presetTable(src, opts, log)
		if err != nil {
			return nil, fmt.Errorf("preset %s: %w", opts.Preset, err)
		}
	}

	if opts.Custom != nil {
		if design, err = design.Join(opts.Custom); err != nil {
			return nil, fmt.Errorf("custom confounds: %w", err)
		}
	} else if opts.Preset == PresetCustom {
		return nil, fmt.Errorf("preset custom needs a custom confounds table: %w", models.ErrMissingData)
	}

	design, err = AppendTrend(design)
	if err != nil {
		return nil, err
	}
	log.WithFields(logrus.Fields{
		"preset":    opts.Preset,
		"n_columns": design.NumColumns(),
		"n_volumes": rows,
	}).Info("confounds assembled")
	return design, nil
}

// AppendTrend adds the linear trend (0..T-1) and intercept columns.
func AppendTrend(t *models.Table) (*models.Table, error) {
	n := t.Rows()
	trend := make([]float64, n)
	ones := make([]float64, n)
	for i := range trend {
		trend[i] = float64(i)
		ones[i] = 1
	}
	extra, err := models.NewTable(
		[]string{models.TrendColumn, models.InterceptColumn},
		[][]float64{trend, ones},
	)
	if err != nil {
		return nil, err
	}
	return t.Join(extra)
}

func sourceRows(src Source, opts Options) (int, error) {
	switch {
	case src.Confounds != nil:
		if opts.Custom != nil && opts.Custom.NumColumns() > 0 && opts.Custom.Rows() != src.Confounds.Rows() {
			return 0, fmt.Errorf("custom confounds have %d rows, confounds %d: %w",
				opts.Custom.Rows(), src.Confounds.Rows(), models.ErrDataShape)
		}
		return src.Confounds.Rows(), nil
	case opts.Preset == PresetCustom && opts.Custom != nil:
		return opts.Custom.Rows(), nil
	case opts.Preset == PresetNone && opts.Custom != nil:
		return opts.Custom.Rows(), nil
	}
	return 0, fmt.Errorf("preset %s needs a confounds table: %w", opts.Preset, models.ErrMissingData)
}

func presetTable(src Source, opts Options, log *logrus.Entry) (*models.Table, error) {
	conf := src.Confounds
	r := opts.Preset.recipe()
	out := models.EmptyTable(conf.Rows())

	if r.motion != noTerms {
		m, err := motion.ExtractTable(conf)
		if err != nil {
			return nil, err
		}
		m, err = motion.ApplyFilter(m, opts.MotionFilter, log)
		if err != nil {
			return nil, err
		}
		terms, err := expand(m, motion.Columns(), r.motion)
		if err != nil {
			return nil, err
		}
		if out, err = out.Join(terms); err != nil {
			return nil, err
		}
	}

	if len(r.physio) > 0 {
		terms, err := expand(conf, r.physio, r.physioExp)
		if err != nil {
			return nil, err
		}
		if out, err = out.Join(terms); err != nil {
			return nil, err
		}
	}

	if r.compCor {
		names, err := SelectCompCor(src.Components, conf, MaxCompCorPerTissue)
		if err != nil {
			return nil, err
		}
		log.WithField("components", names).Debug("aCompCor regressors selected")
		sel, err := conf.Select(names...)
		if err != nil {
			return nil, err
		}
		if out, err = out.Join(sel); err != nil {
			return nil, err
		}
	}

	if r.cosine {
		var names []string
		for _, c := range conf.Columns() {
			if strings.HasPrefix(c, CosinePrefix) {
				names = append(names, c)
			}
		}
		if len(names) == 0 {
			log.Warn("no cosine drift regressors in confounds")
		}
		sel, err := conf.Select(names...)
		if err != nil {
			return nil, err
		}
		if out, err = out.Join(sel); err != nil {
			return nil, err
		}
	}

	if r.aroma {
		if src.AROMA == nil {
			return nil, fmt.Errorf("ICA-AROMA components: %w", models.ErrMissingData)
		}
		terms, err := src.AROMA.Table(conf.Rows())
		if err != nil {
			return nil, err
		}
		if out, err = out.Join(terms); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// expand returns the base columns of src named by names together with the
// expansion terms requested by exp, grouped per base column.
func expand(src *models.Table, names []string, exp expansion) (*models.Table, error) {
	var (
		outNames []string
		outCols  [][]float64
	)
	for _, name := range names {
		base, err := src.Column(name)
		if err != nil {
			return nil, err
		}
		outNames = append(outNames, name)
		outCols = append(outCols, base)
		if exp < withDerivative {
			continue
		}
		deriv := derivative(base)
		outNames = append(outNames, name+DerivativeSuffix)
		outCols = append(outCols, deriv)
		if exp < fullExpansion {
			continue
		}
		outNames = append(outNames, name+PowerSuffix, name+DerivativeSuffix+PowerSuffix)
		outCols = append(outCols, square(base), square(deriv))
	}
	return models.NewTable(outNames, outCols)
}

// derivative is the backward difference with the first row set to 0.
func derivative(x []float64) []float64 {
	d := make([]float64, len(x))
	for i := 1; i < len(x); i++ {
		d[i] = x[i] - x[i-1]
	}
	return d
}

func square(x []float64) []float64 {
	out := make([]float64, len(x))
	for i, v := range x {
		out[i] = v * v
	}
	return out
}
