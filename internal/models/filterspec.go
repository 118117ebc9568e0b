package models

import "fmt"

// FilterType selects the respiratory motion filter.
type FilterType string

const (
	FilterNone    FilterType = "none"
	FilterLowpass FilterType = "lp"
	FilterNotch   FilterType = "notch"
)

// FilterSpec describes the frequency-domain filter applied to motion
// parameters before framewise displacement is computed.
type FilterSpec struct {
	Type FilterType

	// Cutoffs are in breaths per minute. Low-pass takes one cutoff, notch
	// takes the lower and upper edge of the stop band.
	Cutoffs []float64

	// Order is the filter order. Notch filtering is applied Order/2 times.
	Order int

	// TR is the sampling interval in seconds.
	TR float64
}

// Enabled reports whether any filtering is requested.
func (f FilterSpec) Enabled() bool {
	return f.Type != "" && f.Type != FilterNone
}

// Validate checks the cutoff and order constraints for the filter type.
func (f FilterSpec) Validate() error {
	if !f.Enabled() {
		return nil
	}
	if f.TR <= 0 {
		return fmt.Errorf("motion filter TR %g must be > 0: %w", f.TR, ErrConfiguration)
	}
	switch f.Type {
	case FilterLowpass:
		if len(f.Cutoffs) != 1 || f.Cutoffs[0] <= 0 {
			return fmt.Errorf("low-pass motion filter needs one positive cutoff, got %v: %w", f.Cutoffs, ErrConfiguration)
		}
		if f.Order < 1 {
			return fmt.Errorf("low-pass motion filter order %d must be >= 1: %w", f.Order, ErrConfiguration)
		}
	case FilterNotch:
		if len(f.Cutoffs) != 2 || f.Cutoffs[0] <= 0 || f.Cutoffs[1] <= 0 {
			return fmt.Errorf("notch motion filter needs two positive cutoffs, got %v: %w", f.Cutoffs, ErrConfiguration)
		}
		if f.Cutoffs[0] >= f.Cutoffs[1] {
			return fmt.Errorf("notch band-stop min %g must be < band-stop max %g: %w", f.Cutoffs[0], f.Cutoffs[1], ErrConfiguration)
		}
		if f.Order < 2 {
			return fmt.Errorf("notch motion filter order %d must be >= 2: %w", f.Order, ErrConfiguration)
		}
	default:
		return fmt.Errorf("motion filter type %q: %w", f.Type, ErrConfiguration)
	}
	return nil
}
