package denoise

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"bolddenoise/internal/models"
	"bolddenoise/pkg/filter"
)

// Bandpass describes the temporal filter applied after interpolation.
// A cutoff <= 0 disables that edge; both disabled turns filtering off.
type Bandpass struct {
	HighPass float64 // Hz
	LowPass  float64 // Hz
	Order    int
}

// Enabled reports whether either edge is active.
func (b Bandpass) Enabled() bool { return b.HighPass > 0 || b.LowPass > 0 }

// Cascade designs the Butterworth cascade for sampling interval tr. A
// low-pass edge at or above Nyquist is dropped with a warning; a high-pass
// edge there is a configuration error. It returns nil when filtering is
// disabled.
func (b Bandpass) Cascade(tr float64, log *logrus.Entry) (filter.Cascade, error) {
	if !b.Enabled() {
		return nil, nil
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	if tr <= 0 {
		return nil, fmt.Errorf("TR %g must be > 0: %w", tr, models.ErrConfiguration)
	}
	sampleRate := 1 / tr
	lowPass := b.LowPass
	if nyquist := sampleRate / 2; lowPass >= nyquist {
		log.WithFields(logrus.Fields{
			"low_pass": lowPass,
			"nyquist":  nyquist,
		}).Warn("low-pass cutoff at or above Nyquist; low-pass edge disabled")
		lowPass = 0
	}
	if lowPass <= 0 && b.HighPass <= 0 {
		return nil, nil
	}
	c, err := filter.Butterworth(lowPass, b.HighPass, b.Order, sampleRate)
	if err != nil {
		return nil, fmt.Errorf("band-pass filter: %w", err)
	}
	return c, nil
}
