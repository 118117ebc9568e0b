package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"bolddenoise/pkg/config"
	"bolddenoise/pkg/pipeline"
)

func main() {
	// Parse command line arguments
	signals := flag.String("signal", "", "Comma-separated .npy signal matrices (volumes × units), one per run")
	confoundFiles := flag.String("confounds", "", "Comma-separated confounds TSV files, one per run")
	metadataFiles := flag.String("confounds-json", "", "Comma-separated confounds JSON sidecars describing CompCor components")
	customFiles := flag.String("custom", "", "Comma-separated custom confounds TSV files")
	mixingFiles := flag.String("aroma-mixing", "", "Comma-separated ICA-AROMA mixing matrices")
	noiseFiles := flag.String("aroma-noise", "", "Comma-separated ICA-AROMA noise component index lists")
	voxelFiles := flag.String("voxels", "", "Comma-separated .npy voxel coordinates (units × 3) for volumetric ReHo")
	meshFiles := flag.String("faces", "", "Comma-separated .npy triangle lists (faces × 3) for surface ReHo")
	tr := flag.Float64("tr", 0, "Repetition time in seconds")
	brainVolume := flag.Float64("brain-volume", 0, "Brain volume in mm3, used when the head radius is auto")
	outputDir := flag.String("output", "bolddenoise_out", "Output directory")
	configPath := flag.String("config", "", "YAML configuration file")
	createConfig := flag.String("create-config", "", "Write a default configuration file to this path and exit")
	numCores := flag.Int("cores", runtime.NumCPU(), "Number of runs to process at once")
	concatRuns := flag.Bool("concat", false, "Concatenate the runs after processing")

	// Overrides for the most common settings
	fdThreshold := flag.String("fd-thresh", "", "FD threshold in mm; <= 0 disables censoring")
	dummyScans := flag.String("dummy-scans", "", "Leading volumes to drop, or auto")
	headRadius := flag.String("head-radius", "", "Head radius in mm, or auto")
	preset := flag.String("preset", "", "Confound preset")
	seed := flag.String("seed", "", "Random seed for exact-scan masks")
	exactScans := flag.String("exact-scans", "", "Comma-separated retained-volume targets")
	verbose := flag.Bool("verbose", false, "Log debug output")
	flag.Parse()

	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	if *createConfig != "" {
		if err := config.CreateDefaultConfigFile(*createConfig); err != nil {
			logger.Fatalf("Failed to create config: %v", err)
		}
		fmt.Printf("Default configuration written to: %s\n", *createConfig)
		return
	}

	// Validate inputs
	if *signals == "" || *confoundFiles == "" || *tr <= 0 {
		flag.Usage()
		os.Exit(1)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}
	if err := applyOverrides(cfg, overrides{
		fdThreshold: *fdThreshold,
		dummyScans:  *dummyScans,
		headRadius:  *headRadius,
		preset:      *preset,
		seed:        *seed,
		exactScans:  *exactScans,
	}); err != nil {
		logger.Fatalf("Invalid option: %v", err)
	}
	if *verbose || cfg.Output.Verbose {
		logger.SetLevel(logrus.DebugLevel)
	}

	fmt.Println("================================")
	fmt.Println("BOLD DENOISING: CENSORING, NUISANCE REGRESSION, INTERPOLATION AND FILTERING")
	fmt.Println("================================")

	runs, err := loadRuns(runFiles{
		signals:   splitList(*signals),
		confounds: splitList(*confoundFiles),
		metadata:  splitList(*metadataFiles),
		custom:    splitList(*customFiles),
		mixing:    splitList(*mixingFiles),
		noise:     splitList(*noiseFiles),
		voxels:    splitList(*voxelFiles),
		faces:     splitList(*meshFiles),
	}, *tr, *brainVolume)
	if err != nil {
		logger.Fatalf("Failed to load inputs: %v", err)
	}

	post, err := pipeline.NewPostprocessor(&pipeline.Params{
		Config:   *cfg,
		NumCores: *numCores,
		Logger:   logger,
	})
	if err != nil {
		logger.Fatalf("Invalid configuration: %v", err)
	}

	if err := os.MkdirAll(*outputDir, 0755); err != nil {
		logger.Fatalf("Failed to create output directory: %v", err)
	}
	normalized := post.Config()
	if err := config.SaveConfig(&normalized, filepath.Join(*outputDir, "config.yaml")); err != nil {
		logger.Fatalf("Failed to save configuration: %v", err)
	}

	fmt.Printf("Processing %d run(s) on up to %d cores...\n", len(runs), *numCores)
	startTime := time.Now()
	results, procErr := post.ProcessAll(runs)

	failed := 0
	for _, res := range results {
		if res == nil {
			failed++
			continue
		}
		if err := writeRunOutputs(*outputDir, res, normalized); err != nil {
			logger.Fatalf("Failed to write outputs for run %s: %v", res.Run, err)
		}
		fmt.Printf("- %s: %d volumes, %d censored, %d dummy\n",
			res.Run, len(res.FD), res.Mask.NumCensored(), res.DummyScans)
	}
	if procErr != nil {
		for _, re := range runErrors(procErr) {
			logger.WithFields(logrus.Fields{"run": re.Run, "stage": re.Stage}).Error(re.Err)
		}
		logger.Errorf("%d of %d runs failed: %v", failed, len(runs), procErr)
	}

	if *concatRuns && failed == 0 && len(results) > 1 {
		cat, err := pipeline.Concatenate(results)
		if err != nil {
			logger.Fatalf("Concatenation failed: %v", err)
		}
		if err := writeConcatenated(*outputDir, cat); err != nil {
			logger.Fatalf("Failed to write concatenated outputs: %v", err)
		}
		fmt.Printf("Concatenated %d runs\n", len(results))
	}

	fmt.Printf("\nProcessing completed in %.2f seconds\n", time.Since(startTime).Seconds())
	fmt.Printf("Outputs saved to: %s\n", *outputDir)
	if failed > 0 {
		os.Exit(1)
	}
}

// runErrors collects every RunError inside err, following joined and
// wrapped errors.
func runErrors(err error) []*pipeline.RunError {
	switch e := err.(type) {
	case *pipeline.RunError:
		return []*pipeline.RunError{e}
	case interface{ Unwrap() []error }:
		var out []*pipeline.RunError
		for _, inner := range e.Unwrap() {
			out = append(out, runErrors(inner)...)
		}
		return out
	case interface{ Unwrap() error }:
		return runErrors(e.Unwrap())
	}
	return nil
}

type overrides struct {
	fdThreshold, dummyScans, headRadius, preset, seed, exactScans string
}

// applyOverrides replaces configuration values given on the command line.
func applyOverrides(cfg *config.Config, o overrides) error {
	if o.fdThreshold != "" {
		v, err := strconv.ParseFloat(o.fdThreshold, 64)
		if err != nil {
			return fmt.Errorf("fd-thresh %q: %w", o.fdThreshold, err)
		}
		cfg.Censoring.FDThreshold = v
	}
	if o.dummyScans != "" {
		v, err := config.ParseAutoInt(o.dummyScans)
		if err != nil {
			return fmt.Errorf("dummy-scans: %w", err)
		}
		cfg.Censoring.DummyScans = v
	}
	if o.headRadius != "" {
		v, err := config.ParseAutoFloat(o.headRadius)
		if err != nil {
			return fmt.Errorf("head-radius: %w", err)
		}
		cfg.Motion.HeadRadius = v
	}
	if o.preset != "" {
		cfg.Confounds.Preset = o.preset
	}
	if o.seed != "" {
		v, err := strconv.ParseUint(o.seed, 10, 64)
		if err != nil {
			return fmt.Errorf("seed %q: %w", o.seed, err)
		}
		cfg.Censoring.Seed = &v
	}
	if o.exactScans != "" {
		cfg.Censoring.ExactScans = nil
		for _, f := range splitList(o.exactScans) {
			n, err := strconv.Atoi(f)
			if err != nil {
				return fmt.Errorf("exact-scans %q: %w", f, err)
			}
			cfg.Censoring.ExactScans = append(cfg.Censoring.ExactScans, n)
		}
	}
	return nil
}

func splitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}
