package confounds

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"bolddenoise/internal/models"
)

// AROMAComponents is an ICA mixing matrix with the components classified
// as motion noise.
type AROMAComponents struct {
	// Mixing is T×K, one column per independent component.
	Mixing *mat.Dense

	// Noise holds zero-based indices of the noise components.
	Noise []int
}

// AROMANoiseName and AROMASignalName return the column names used for
// component k.
func AROMANoiseName(k int) string  { return fmt.Sprintf("aroma_motion_%02d", k) }
func AROMASignalName(k int) string { return fmt.Sprintf("%saroma_%02d", models.SignalPrefix, k) }

// Table renders the components as confound columns: noise components are
// nuisance regressors, the rest are signal columns that noise regressors
// get orthogonalized against.
func (a *AROMAComponents) Table(rows int) (*models.Table, error) {
	if a.Mixing == nil {
		return nil, fmt.Errorf("ICA-AROMA mixing matrix: %w", models.ErrMissingData)
	}
	r, k := a.Mixing.Dims()
	if r != rows {
		return nil, fmt.Errorf("ICA-AROMA mixing matrix has %d rows, confounds %d: %w", r, rows, models.ErrDataShape)
	}
	noise := make(map[int]bool, len(a.Noise))
	for _, idx := range a.Noise {
		if idx < 0 || idx >= k {
			return nil, fmt.Errorf("ICA-AROMA noise component %d outside [0, %d): %w", idx, k, models.ErrConfiguration)
		}
		noise[idx] = true
	}

	var (
		noiseNames, signalNames []string
		noiseCols, signalCols   [][]float64
	)
	for j := 0; j < k; j++ {
		col := mat.Col(nil, j, a.Mixing)
		if noise[j] {
			noiseNames = append(noiseNames, AROMANoiseName(j))
			noiseCols = append(noiseCols, col)
		} else {
			signalNames = append(signalNames, AROMASignalName(j))
			signalCols = append(signalCols, col)
		}
	}
	return models.NewTable(append(noiseNames, signalNames...), append(noiseCols, signalCols...))
}
