// Package pipeline drives the post-processing of one or more BOLD runs.
//
// A Postprocessor runs the stages of a single run in data-flow order:
//  1. Validating inputs and trimming dummy volumes
//  2. Filtering motion parameters and computing framewise displacement
//  3. Building the temporal censoring mask
//  4. Assembling the nuisance design
//  5. Denoising, interpolation and band-pass filtering
//  6. Computing DVARS, ALFF and ReHo
//  7. Building the DCAN motion summary
//
// Runs share nothing but the read-only configuration, so ProcessAll can
// spread them over several goroutines.
package pipeline

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/mat"

	"bolddenoise/internal/models"
	"bolddenoise/pkg/censor"
	"bolddenoise/pkg/concat"
	"bolddenoise/pkg/config"
	"bolddenoise/pkg/confounds"
	"bolddenoise/pkg/denoise"
	"bolddenoise/pkg/metrics"
	"bolddenoise/pkg/motion"
)

// Stage names reported in RunError and log fields.
const (
	StageInputs    = "inputs"
	StageMotion    = "motion"
	StageCensoring = "censoring"
	StageConfounds = "confounds"
	StageDenoise   = "denoise"
	StageMetrics   = "metrics"
	StageDCAN      = "dcan"
)

// RunError attaches the run and stage to a failure so operators can find
// the offending input without a backtrace.
type RunError struct {
	Run   string
	Stage string
	Err   error
}

func (e *RunError) Error() string {
	return fmt.Sprintf("run %s: %s: %v", e.Run, e.Stage, e.Err)
}

func (e *RunError) Unwrap() error { return e.Err }

// Run holds the already-loaded inputs of one BOLD run. Every table and the
// signal must cover the same volumes, dummy volumes included.
type Run struct {
	// Name identifies the run in logs and errors.
	Name string

	// Signal is T×S, one row per volume.
	Signal *mat.Dense

	// TR is the sampling interval in seconds.
	TR float64

	// Confounds is the full upstream confounds table.
	Confounds *models.Table

	// Components describes the CompCor columns of Confounds.
	Components confounds.ComponentMetadata

	// AROMA holds the ICA mixing matrix and noise labels, if any.
	AROMA *confounds.AROMAComponents

	// Custom regressors supplied by the user.
	Custom *models.Table

	// BrainVolume in mm³, used when the head radius is "auto".
	BrainVolume float64

	// Mesh enables surface ReHo; VoxelCoords enables volumetric ReHo.
	// At most one should be set.
	Mesh        *metrics.Mesh
	VoxelCoords [][3]int
}

// RunResult collects everything a run produced.
type RunResult struct {
	Run string
	TR  float64

	// DummyScans is the number of leading volumes that were dropped.
	DummyScans int

	// Seed drove the exact-scan draws; log it to replay a run.
	Seed uint64

	HeadRadius float64

	// Motion holds the filtered motion parameters and a
	// framewise_displacement column, after dummy trimming.
	Motion *models.Table

	FD   models.FDSeries
	Mask *models.TemporalMask

	// Signal is the dummy-trimmed input.
	Signal *mat.Dense

	Denoised *models.DesignResult

	// DVARS of the trimmed input and of the filtered output.
	DVARSBefore *metrics.DVARS
	DVARSAfter  *metrics.DVARS

	ALFF *metrics.ALFF
	ReHo []float64
	DCAN *concat.DCANSummary
}

// Params holds the pipeline configuration.
type Params struct {
	// Config must already be validated. It is normalized once per
	// Postprocessor.
	Config config.Config

	// NumCores bounds the number of runs processed at once by ProcessAll.
	NumCores int

	// Logger receives every log line. Nil uses the logrus standard logger.
	Logger *logrus.Logger
}

// Postprocessor runs the per-run stages with one fixed configuration.
type Postprocessor struct {
	cfg      config.Config
	numCores int
	log      *logrus.Entry
}

// NewPostprocessor validates and normalizes the configuration.
func NewPostprocessor(params *Params) (*Postprocessor, error) {
	logger := params.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	log := logrus.NewEntry(logger)
	if err := params.Config.Validate(); err != nil {
		return nil, err
	}
	numCores := params.NumCores
	if numCores < 1 {
		numCores = 1
	}
	return &Postprocessor{
		cfg:      params.Config.Normalized(log),
		numCores: numCores,
		log:      log,
	}, nil
}

// Config returns the normalized configuration in use.
func (p *Postprocessor) Config() config.Config { return p.cfg }

// Process runs every stage for one run. Errors are *RunError.
func (p *Postprocessor) Process(run *Run) (*RunResult, error) {
	log := p.log.WithField("run", run.Name)
	res := &RunResult{Run: run.Name, TR: run.TR}
	fail := func(stage string, err error) (*RunResult, error) {
		return nil, &RunError{Run: run.Name, Stage: stage, Err: err}
	}

	// Step 1: Inputs and dummy volumes
	log.WithField("stage", StageInputs).Info("Step 1: Checking inputs and trimming dummy volumes...")
	in, err := p.prepareInputs(run, res, log.WithField("stage", StageInputs))
	if err != nil {
		return fail(StageInputs, err)
	}

	// Step 2: Motion filtering and framewise displacement
	log.WithField("stage", StageMotion).Info("Step 2: Computing framewise displacement...")
	if err := p.computeMotion(run, in, res, log.WithField("stage", StageMotion)); err != nil {
		return fail(StageMotion, err)
	}

	// Step 3: Temporal mask
	log.WithField("stage", StageCensoring).Info("Step 3: Building temporal mask...")
	if err := p.buildMask(res, run.TR, log.WithField("stage", StageCensoring)); err != nil {
		return fail(StageCensoring, err)
	}

	// Step 4: Nuisance design
	log.WithField("stage", StageConfounds).Info("Step 4: Assembling confounds...")
	design, err := confounds.Assemble(
		confounds.Source{Confounds: in.confounds, Components: run.Components, AROMA: in.aroma},
		confounds.Options{
			Preset:       confounds.Preset(p.cfg.Confounds.Preset),
			Custom:       in.custom,
			MotionFilter: p.cfg.MotionFilterSpec(run.TR),
		},
		log.WithField("stage", StageConfounds),
	)
	if err != nil {
		return fail(StageConfounds, err)
	}

	// Step 5: Denoising
	log.WithField("stage", StageDenoise).Info("Step 5: Denoising...")
	res.Denoised, err = denoise.Denoise(res.Signal, design, res.Mask, denoise.Params{
		TR: run.TR,
		Bandpass: denoise.Bandpass{
			HighPass: p.cfg.Bandpass.HighPass,
			LowPass:  p.cfg.Bandpass.LowPass,
			Order:    p.cfg.Bandpass.Order,
		},
	}, log.WithField("stage", StageDenoise))
	if err != nil {
		return fail(StageDenoise, err)
	}

	// Step 6: Metrics
	log.WithField("stage", StageMetrics).Info("Step 6: Computing metrics...")
	if err := p.computeMetrics(run, res, log.WithField("stage", StageMetrics)); err != nil {
		return fail(StageMetrics, err)
	}

	// Step 7: DCAN summary
	if p.cfg.Metrics.DCAN {
		log.WithField("stage", StageDCAN).Info("Step 7: Building DCAN motion summary...")
		res.DCAN, err = concat.NewDCANSummary(res.FD, run.TR)
		if err != nil {
			return fail(StageDCAN, err)
		}
	}

	log.WithFields(logrus.Fields{
		"n_volumes":  len(res.FD),
		"n_censored": res.Mask.NumCensored(),
		"n_dummy":    res.DummyScans,
	}).Info("run complete")
	return res, nil
}

// trimmedInputs are the run inputs after dummy volumes were dropped.
type trimmedInputs struct {
	confounds *models.Table
	custom    *models.Table
	aroma     *confounds.AROMAComponents
}

func (p *Postprocessor) prepareInputs(run *Run, res *RunResult, log *logrus.Entry) (*trimmedInputs, error) {
	if run.TR <= 0 {
		return nil, fmt.Errorf("TR %g must be > 0: %w", run.TR, models.ErrConfiguration)
	}
	if run.Signal == nil {
		return nil, fmt.Errorf("no signal: %w", models.ErrMissingData)
	}
	if run.Confounds == nil {
		return nil, fmt.Errorf("no confounds table: %w", models.ErrMissingData)
	}
	t, _ := run.Signal.Dims()
	if run.Custom != nil && run.Custom.Rows() != t {
		return nil, fmt.Errorf("custom confounds have %d rows, signal has %d: %w", run.Custom.Rows(), t, models.ErrDataShape)
	}
	if run.AROMA != nil && run.AROMA.Mixing != nil {
		if r, _ := run.AROMA.Mixing.Dims(); r != t {
			return nil, fmt.Errorf("AROMA mixing matrix has %d rows, signal has %d: %w", r, t, models.ErrDataShape)
		}
	}

	n := p.cfg.Censoring.DummyScans.Value
	if p.cfg.Censoring.DummyScans.Auto {
		n = censor.DetectDummyScans(run.Confounds)
		log.WithField("n_dummy", n).Info("detected non-steady-state volumes")
	}
	signal, conf, err := censor.DropDummyScans(run.Signal, run.Confounds, n)
	if err != nil {
		return nil, err
	}
	in := &trimmedInputs{confounds: conf, custom: run.Custom, aroma: run.AROMA}
	if n > 0 {
		if in.custom != nil {
			in.custom = in.custom.DropLeading(n)
		}
		if in.aroma != nil && in.aroma.Mixing != nil {
			r, c := in.aroma.Mixing.Dims()
			in.aroma = &confounds.AROMAComponents{
				Mixing: mat.DenseCopyOf(in.aroma.Mixing.Slice(n, r, 0, c)),
				Noise:  in.aroma.Noise,
			}
		}
	}
	res.DummyScans = n
	res.Signal = signal
	return in, nil
}

func (p *Postprocessor) computeMotion(run *Run, in *trimmedInputs, res *RunResult, log *logrus.Entry) error {
	raw, err := motion.ExtractTable(in.confounds)
	if err != nil {
		return err
	}
	filtered, err := motion.ApplyFilter(raw, p.cfg.MotionFilterSpec(run.TR), log)
	if err != nil {
		return err
	}

	radius := p.cfg.Motion.HeadRadius.Value
	if p.cfg.Motion.HeadRadius.Auto {
		if radius, err = motion.EstimateHeadRadius(run.BrainVolume); err != nil {
			return fmt.Errorf("estimating head radius: %w", err)
		}
		log.WithField("head_radius", radius).Info("estimated head radius from brain volume")
	}
	fd, err := motion.ComputeFD(filtered, radius)
	if err != nil {
		return err
	}
	res.HeadRadius = radius
	res.FD = fd
	res.Motion, err = filtered.With(models.CanonicalMaskName, fd)
	return err
}

func (p *Postprocessor) buildMask(res *RunResult, tr float64, log *logrus.Entry) error {
	if p.cfg.Censoring.Seed != nil {
		res.Seed = *p.cfg.Censoring.Seed
	} else {
		res.Seed = censor.FreshSeed()
		if len(p.cfg.Censoring.ExactScans) > 0 {
			log.WithField("seed", res.Seed).Info("drew a fresh seed for exact-scan masks")
		}
	}
	mask, err := censor.BuildMask(res.FD, censor.Params{
		FDThreshold:          p.cfg.Censoring.FDThreshold,
		MinContiguousSeconds: p.cfg.Censoring.MinContiguousSeconds,
		TR:                   tr,
		ExactScans:           p.cfg.Censoring.ExactScans,
	}, censor.NewRand(res.Seed), log)
	if err != nil {
		return err
	}
	if mask.NumCensored() == mask.Len() {
		return fmt.Errorf("all %d volumes censored at fd threshold %g: %w",
			mask.Len(), p.cfg.Censoring.FDThreshold, models.ErrDataShape)
	}
	res.Mask = mask
	return nil
}

func (p *Postprocessor) computeMetrics(run *Run, res *RunResult, log *logrus.Entry) error {
	var err error
	out := res.Denoised.Filtered
	if p.cfg.Metrics.DVARS {
		if res.DVARSBefore, err = metrics.ComputeDVARS(res.Signal, log); err != nil {
			return fmt.Errorf("DVARS of input: %w", err)
		}
		if res.DVARSAfter, err = metrics.ComputeDVARS(out, log); err != nil {
			return fmt.Errorf("DVARS of output: %w", err)
		}
	}
	if p.cfg.Metrics.ALFF {
		bp := p.cfg.Bandpass
		if bp.HighPass <= 0 && bp.LowPass <= 0 {
			log.Warn("band-pass filtering disabled; skipping ALFF")
		} else {
			res.ALFF, err = metrics.ComputeALFF(out, res.Mask, metrics.ALFFParams{
				TR:       run.TR,
				HighPass: bp.HighPass,
				LowPass:  bp.LowPass,
			}, log)
			if err != nil {
				return fmt.Errorf("ALFF: %w", err)
			}
		}
	}
	if p.cfg.Metrics.ReHo {
		switch {
		case run.Mesh != nil && run.VoxelCoords != nil:
			return fmt.Errorf("both a surface mesh and voxel coordinates given: %w", models.ErrConfiguration)
		case run.Mesh != nil:
			res.ReHo, err = metrics.SurfaceReHo(out, *run.Mesh)
		case run.VoxelCoords != nil:
			res.ReHo, err = metrics.VolumeReHo(out, run.VoxelCoords)
		default:
			log.Debug("no mesh or voxel coordinates; skipping ReHo")
		}
		if err != nil {
			return fmt.Errorf("ReHo: %w", err)
		}
	}
	return nil
}

// ProcessAll runs every run on up to NumCores goroutines. Results keep the
// order of runs; a failed run leaves a nil result and its error in errs
// without stopping the others.
func (p *Postprocessor) ProcessAll(runs []*Run) ([]*RunResult, error) {
	results := make([]*RunResult, len(runs))
	errs := make([]error, len(runs))

	type job struct {
		idx int
		run *Run
	}
	jobs := make(chan job)
	done := make(chan struct{})
	for w := 0; w < p.numCores; w++ {
		go func() {
			for j := range jobs {
				results[j.idx], errs[j.idx] = p.Process(j.run)
			}
			done <- struct{}{}
		}()
	}
	for i, r := range runs {
		jobs <- job{idx: i, run: r}
	}
	close(jobs)
	for w := 0; w < p.numCores; w++ {
		<-done
	}
	return results, errors.Join(errs...)
}
