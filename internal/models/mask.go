package models

import "fmt"

// CanonicalMaskName is the header of the primary censoring column.
const CanonicalMaskName = "framewise_displacement"

// ExactColumnName returns the header of the auxiliary column that retains
// exactly n volumes.
func ExactColumnName(n int) string {
	return fmt.Sprintf("exact_%d", n)
}

// FDSeries holds framewise displacement in mm, one value per timepoint.
type FDSeries []float64

// TemporalMask marks volumes to drop. A true entry means "censor this
// timepoint".
type TemporalMask struct {
	// Outliers is the canonical motion-outlier column.
	Outliers []bool

	// ExactTargets lists the requested retained-volume counts, in the
	// order their columns were requested.
	ExactTargets []int

	// Exact holds one column per entry of ExactTargets. Each is a superset
	// of Outliers.
	Exact [][]bool
}

// Len returns the number of timepoints covered by the mask.
func (m *TemporalMask) Len() int { return len(m.Outliers) }

// NumCensored returns the number of censored timepoints in the canonical column.
func (m *TemporalMask) NumCensored() int {
	n := 0
	for _, c := range m.Outliers {
		if c {
			n++
		}
	}
	return n
}

// Retained returns the indices of timepoints kept by the canonical column.
func (m *TemporalMask) Retained() []int {
	return RetainedIndices(m.Outliers)
}

// RetainedIndices returns the indices where censored is false.
func RetainedIndices(censored []bool) []int {
	idx := make([]int, 0, len(censored))
	for i, c := range censored {
		if !c {
			idx = append(idx, i)
		}
	}
	return idx
}

// Table renders the mask with 1 for censored and 0 for retained, using the
// canonical and exact_<N> headers.
func (m *TemporalMask) Table() *Table {
	names := []string{CanonicalMaskName}
	cols := [][]float64{boolsToFloats(m.Outliers)}
	for i, n := range m.ExactTargets {
		names = append(names, ExactColumnName(n))
		cols = append(cols, boolsToFloats(m.Exact[i]))
	}
	t, err := NewTable(names, cols)
	if err != nil {
		// Column lengths are all len(Outliers) by construction.
		panic(err)
	}
	return t
}

func boolsToFloats(b []bool) []float64 {
	out := make([]float64, len(b))
	for i, v := range b {
		if v {
			out[i] = 1
		}
	}
	return out
}
