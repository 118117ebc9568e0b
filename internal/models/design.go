package models

import "gonum.org/v1/gonum/mat"

// DesignResult is the output of one denoising run.
type DesignResult struct {
	// Uncensored is signal minus the fitted nuisance contribution, T×S.
	Uncensored *mat.Dense

	// Censored holds the retained rows of the denoised signal, R×S.
	Censored *mat.Dense

	// Interpolated is Censored scattered back to T rows with censored
	// rows filled by spline interpolation, before band-pass filtering.
	Interpolated *mat.Dense

	// Filtered is Interpolated after band-pass filtering, T×S. It equals
	// Interpolated when filtering is disabled.
	Filtered *mat.Dense

	// Design is the confound matrix actually used for regression, after
	// orthogonalization and mean-centering. Nil when denoising was skipped.
	Design *Table

	// Betas is the C×S parameter estimate. Nil when denoising was skipped.
	Betas *mat.Dense

	// Retained lists the row indices kept by the canonical mask.
	Retained []int
}

// Reserved confound column names.
const (
	// SignalPrefix marks confound columns holding signal of interest.
	// Noise columns are orthogonalized against them before regression.
	SignalPrefix = "signal__"

	// TrendColumn holds 0..T-1 and is mean-centered with the other regressors.
	TrendColumn = "linear_trend"

	// InterceptColumn is all ones and is never mean-centered.
	InterceptColumn = "intercept"
)
