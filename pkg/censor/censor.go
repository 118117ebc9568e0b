// Package censor builds temporal censoring masks from framewise
// displacement.
package censor

import (
	"fmt"
	"math/rand/v2"

	"github.com/sirupsen/logrus"

	"bolddenoise/internal/models"
)

// Params configures mask construction for one run.
type Params struct {
	// FDThreshold in mm. Values <= 0 disable censoring.
	FDThreshold float64

	// MinContiguousSeconds is the shortest retained segment worth keeping.
	// Shorter runs of retained volumes are censored too. 0 disables the rule.
	MinContiguousSeconds float64

	// TR is the sampling interval in seconds.
	TR float64

	// ExactScans lists retained-volume targets for auxiliary masks.
	ExactScans []int
}

// NewRand returns a generator seeded for one run. Each run must get its own
// generator so draws never depend on the order runs are processed in.
func NewRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// FreshSeed draws a seed for runs that were not given one.
func FreshSeed() uint64 {
	return rand.Uint64()
}

// BuildMask thresholds fd, applies the minimum-segment rule and draws the
// exact-scan columns from rng.
func BuildMask(fd models.FDSeries, p Params, rng *rand.Rand, log *logrus.Entry) (*models.TemporalMask, error) {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	if p.TR <= 0 {
		return nil, fmt.Errorf("TR %g must be > 0: %w", p.TR, models.ErrConfiguration)
	}
	if p.MinContiguousSeconds < 0 {
		return nil, fmt.Errorf("minimum contiguous duration %g s must be >= 0: %w", p.MinContiguousSeconds, models.ErrConfiguration)
	}
	seen := make(map[int]bool, len(p.ExactScans))
	for _, n := range p.ExactScans {
		if n < 0 || seen[n] {
			return nil, fmt.Errorf("exact scan target %d must be unique and >= 0: %w", n, models.ErrConfiguration)
		}
		seen[n] = true
	}

	mask := &models.TemporalMask{Outliers: make([]bool, len(fd))}
	if p.FDThreshold <= 0 {
		log.WithField("fd_threshold", p.FDThreshold).
			Warn("fd threshold <= 0; censoring disabled")
	} else {
		for t, v := range fd {
			mask.Outliers[t] = v > p.FDThreshold
		}
		if p.MinContiguousSeconds > 0 {
			censorShortSegments(mask.Outliers, p.MinContiguousSeconds/p.TR)
		}
	}

	retained := mask.Retained()
	for _, n := range p.ExactScans {
		col, ok := exactMask(mask.Outliers, retained, n, rng)
		if !ok {
			log.WithFields(logrus.Fields{
				"exact_scans": n,
				"retained":    len(retained),
			}).Warn("fewer volumes retained than requested; exact-scan column censors everything")
		}
		mask.ExactTargets = append(mask.ExactTargets, n)
		mask.Exact = append(mask.Exact, col)
	}

	log.WithFields(logrus.Fields{
		"fd_threshold": p.FDThreshold,
		"n_volumes":    len(fd),
		"n_censored":   mask.NumCensored(),
	}).Info("temporal mask built")
	return mask, nil
}

// censorShortSegments censors every run of retained volumes shorter than
// minVolumes.
func censorShortSegments(censored []bool, minVolumes float64) {
	start := -1
	flush := func(end int) {
		if start >= 0 && float64(end-start) < minVolumes {
			for i := start; i < end; i++ {
				censored[i] = true
			}
		}
		start = -1
	}
	for i, c := range censored {
		if c {
			flush(i)
			continue
		}
		if start < 0 {
			start = i
		}
	}
	flush(len(censored))
}

// exactMask censors random retained volumes until exactly n remain. When
// fewer than n are retained the target is unreachable and every volume is
// censored; ok is false in that case.
func exactMask(outliers []bool, retained []int, n int, rng *rand.Rand) (col []bool, ok bool) {
	col = make([]bool, len(outliers))
	if n > len(retained) {
		for i := range col {
			col[i] = true
		}
		return col, false
	}
	copy(col, outliers)
	extra := len(retained) - n
	for _, k := range rng.Perm(len(retained))[:extra] {
		col[retained[k]] = true
	}
	return col, true
}
