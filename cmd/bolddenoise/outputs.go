package main

import (
	"fmt"
	"os"
	"path/filepath"

	"gonum.org/v1/gonum/mat"

	"bolddenoise/internal/models"
	"bolddenoise/pkg/concat"
	"bolddenoise/pkg/config"
	"bolddenoise/pkg/metrics"
	"bolddenoise/pkg/pipeline"
	"bolddenoise/pkg/tableio"
)

// writeRunOutputs saves every product of one run under dir/<run>/.
func writeRunOutputs(dir string, res *pipeline.RunResult, cfg config.Config) error {
	out := filepath.Join(dir, res.Run)
	if err := os.MkdirAll(out, 0755); err != nil {
		return fmt.Errorf("failed to create run directory: %w", err)
	}
	name := func(suffix string) string { return filepath.Join(out, res.Run+"_"+suffix) }

	d := res.Denoised
	for suffix, m := range map[string]*mat.Dense{
		"desc-uncensored_bold.npy":   d.Uncensored,
		"desc-censored_bold.npy":     d.Censored,
		"desc-interpolated_bold.npy": d.Interpolated,
		"desc-denoised_bold.npy":     d.Filtered,
	} {
		if err := tableio.WriteNpy(name(suffix), m); err != nil {
			return err
		}
	}

	if err := tableio.WriteTSV(name("outliers.tsv"), res.Mask.Table()); err != nil {
		return err
	}
	if err := tableio.WriteTSV(name("motion.tsv"), res.Motion); err != nil {
		return err
	}
	if err := tableio.WriteSidecar(name("outliers.json"), map[string]any{
		"FDThreshold":  cfg.Censoring.FDThreshold,
		"HeadRadius":   res.HeadRadius,
		"DummyScans":   res.DummyScans,
		"RandomSeed":   res.Seed,
		"ExactScans":   res.Mask.ExactTargets,
		"NumCensored":  res.Mask.NumCensored(),
		"TotalVolumes": res.Mask.Len(),
	}); err != nil {
		return err
	}

	if cfg.Output.SaveDesign && d.Design != nil {
		if err := tableio.WriteTSV(name("design.tsv"), d.Design); err != nil {
			return err
		}
		if err := tableio.WriteSidecar(name("design.json"), map[string]any{
			"Preset":  cfg.Confounds.Preset,
			"Columns": d.Design.Columns(),
		}); err != nil {
			return err
		}
	}

	if res.DVARSAfter != nil {
		tbl, err := models.NewTable(
			[]string{"before_" + metrics.MetricDVARS, "before_" + metrics.MetricDVARSStandardized,
				metrics.MetricDVARS, metrics.MetricDVARSStandardized},
			[][]float64{res.DVARSBefore.Raw, res.DVARSBefore.Standardized,
				res.DVARSAfter.Raw, res.DVARSAfter.Standardized},
		)
		if err != nil {
			return err
		}
		if err := tableio.WriteTSV(name("dvars.tsv"), tbl); err != nil {
			return err
		}
		if err := tableio.WriteSidecar(name("dvars.json"), metrics.Metadata(metrics.MetricDVARS,
			metrics.Sidecar{"DroppedUnits": res.DVARSAfter.Dropped})); err != nil {
			return err
		}
	}

	if res.ALFF != nil {
		extra := metrics.Sidecar{"HighPass": cfg.Bandpass.HighPass, "LowPass": cfg.Bandpass.LowPass}
		for metric, values := range map[string][]float64{
			metrics.MetricALFF:  res.ALFF.ALFF,
			metrics.MetricFALFF: res.ALFF.FALFF,
			metrics.MetricPerAF: res.ALFF.PerAF,
		} {
			if err := writeMetric(name(metric), metric, values, extra); err != nil {
				return err
			}
		}
	}
	if res.ReHo != nil {
		if err := writeMetric(name(metrics.MetricReHo), metrics.MetricReHo, res.ReHo, nil); err != nil {
			return err
		}
	}
	if res.DCAN != nil {
		if err := writeDCAN(name("dcan"), res.DCAN); err != nil {
			return err
		}
	}
	return nil
}

func writeMetric(base, metric string, values []float64, extra metrics.Sidecar) error {
	if err := tableio.WriteNpy(base+".npy", mat.NewVecDense(len(values), values)); err != nil {
		return err
	}
	return tableio.WriteSidecar(base+".json", metrics.Metadata(metric, extra))
}

func writeDCAN(base string, sum *concat.DCANSummary) error {
	if err := tableio.WriteTSV(base+".tsv", sum.Table()); err != nil {
		return err
	}
	if masks := sum.Masks(); masks != nil {
		return tableio.WriteNpy(base+"_masks.npy", masks)
	}
	return nil
}

// writeConcatenated saves the joined multi-run outputs under dir/concatenated/.
func writeConcatenated(dir string, cat *pipeline.Concatenated) error {
	out := filepath.Join(dir, "concatenated")
	if err := os.MkdirAll(out, 0755); err != nil {
		return fmt.Errorf("failed to create concatenation directory: %w", err)
	}
	if err := tableio.WriteNpy(filepath.Join(out, "desc-denoised_bold.npy"), cat.Denoised); err != nil {
		return err
	}
	if err := tableio.WriteTSV(filepath.Join(out, "motion.tsv"), cat.Motion); err != nil {
		return err
	}
	if err := tableio.WriteTSV(filepath.Join(out, "outliers.tsv"), cat.Mask); err != nil {
		return err
	}
	if cat.DCAN != nil {
		return writeDCAN(filepath.Join(out, "dcan"), cat.DCAN)
	}
	return nil
}
