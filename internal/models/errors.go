// errors.go defines the error taxonomy shared by every processing stage.

package models

import "errors"

// Sentinel errors. Stages wrap these with the offending value, e.g.
//
//	fmt.Errorf("fd threshold %g: %w", v, models.ErrConfiguration)
//
// so callers can classify failures with errors.Is.
var (
	// ErrConfiguration indicates an invalid combination of parameters.
	// It is raised before any numeric work begins.
	ErrConfiguration = errors.New("bolddenoise: invalid configuration")

	// ErrDataShape indicates mismatched lengths between signal rows,
	// confound rows and mask entries.
	ErrDataShape = errors.New("bolddenoise: data shape mismatch")

	// ErrMissingData indicates a required confound column is absent
	// from the source table.
	ErrMissingData = errors.New("bolddenoise: missing data")
)
