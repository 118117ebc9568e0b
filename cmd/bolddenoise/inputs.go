package main

import (
	"fmt"
	"math"
	"path/filepath"
	"strings"

	"gonum.org/v1/gonum/mat"

	"bolddenoise/internal/models"
	"bolddenoise/pkg/confounds"
	"bolddenoise/pkg/metrics"
	"bolddenoise/pkg/pipeline"
	"bolddenoise/pkg/tableio"
)

// runFiles lists input paths per run. Optional lists may be empty; when
// given they need one entry per signal file, and an empty entry skips
// that run.
type runFiles struct {
	signals, confounds, metadata, custom, mixing, noise, voxels, faces []string
}

func (f runFiles) check() error {
	n := len(f.signals)
	if len(f.confounds) != n {
		return fmt.Errorf("%d confounds files for %d signals: %w", len(f.confounds), n, models.ErrConfiguration)
	}
	for name, list := range map[string][]string{
		"confounds-json": f.metadata,
		"custom":         f.custom,
		"aroma-mixing":   f.mixing,
		"aroma-noise":    f.noise,
		"voxels":         f.voxels,
		"faces":          f.faces,
	} {
		if len(list) != 0 && len(list) != n {
			return fmt.Errorf("%d %s files for %d signals: %w", len(list), name, n, models.ErrConfiguration)
		}
	}
	return nil
}

func pick(list []string, i int) string {
	if len(list) == 0 {
		return ""
	}
	return list[i]
}

// loadRuns reads every run's inputs from disk.
func loadRuns(f runFiles, tr, brainVolume float64) ([]*pipeline.Run, error) {
	if err := f.check(); err != nil {
		return nil, err
	}
	runs := make([]*pipeline.Run, len(f.signals))
	for i, path := range f.signals {
		run, err := loadRun(f, i, tr, brainVolume)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		runs[i] = run
	}
	return runs, nil
}

func loadRun(f runFiles, i int, tr, brainVolume float64) (*pipeline.Run, error) {
	path := f.signals[i]
	signal, err := tableio.ReadNpy(path)
	if err != nil {
		return nil, err
	}
	conf, err := tableio.ReadTSV(f.confounds[i])
	if err != nil {
		return nil, err
	}
	run := &pipeline.Run{
		Name:        strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
		Signal:      signal,
		TR:          tr,
		Confounds:   conf,
		BrainVolume: brainVolume,
	}

	if p := pick(f.metadata, i); p != "" {
		if run.Components, err = tableio.ReadComponentMetadata(p); err != nil {
			return nil, err
		}
	}
	if p := pick(f.custom, i); p != "" {
		if run.Custom, err = tableio.ReadTSV(p); err != nil {
			return nil, err
		}
	}
	if p := pick(f.mixing, i); p != "" {
		aroma := &confounds.AROMAComponents{}
		if aroma.Mixing, err = tableio.ReadMatrixTSV(p); err != nil {
			return nil, err
		}
		if np := pick(f.noise, i); np != "" {
			if aroma.Noise, err = tableio.ReadIndexList(np); err != nil {
				return nil, err
			}
		}
		run.AROMA = aroma
	}
	if p := pick(f.voxels, i); p != "" {
		m, err := tableio.ReadNpy(p)
		if err != nil {
			return nil, err
		}
		if run.VoxelCoords, err = intTriples(m); err != nil {
			return nil, fmt.Errorf("%s: %w", p, err)
		}
	}
	if p := pick(f.faces, i); p != "" {
		m, err := tableio.ReadNpy(p)
		if err != nil {
			return nil, err
		}
		faces, err := intTriples(m)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", p, err)
		}
		_, units := signal.Dims()
		run.Mesh = &metrics.Mesh{Vertices: units, Faces: faces}
	}
	return run, nil
}

// intTriples converts an N×3 matrix of whole numbers.
func intTriples(m *mat.Dense) ([][3]int, error) {
	r, c := m.Dims()
	if c != 3 {
		return nil, fmt.Errorf("want 3 columns, got %d: %w", c, models.ErrDataShape)
	}
	out := make([][3]int, r)
	for i := 0; i < r; i++ {
		for j := 0; j < 3; j++ {
			v := m.At(i, j)
			if v != math.Trunc(v) {
				return nil, fmt.Errorf("row %d holds non-integer %g: %w", i, v, models.ErrDataShape)
			}
			out[i][j] = int(v)
		}
	}
	return out, nil
}
