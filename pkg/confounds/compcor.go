package confounds

import (
	"fmt"
	"sort"

	"bolddenoise/internal/models"
)

// MaxCompCorPerTissue caps the anatomical components taken per tissue class.
const MaxCompCorPerTissue = 4

// Tissue masks recognised in component metadata.
const (
	TissueWM  = "WM"
	TissueCSF = "CSF"
)

// ComponentInfo is the upstream metadata for one CompCor column. Field
// names follow the fMRIPrep confounds JSON sidecar.
type ComponentInfo struct {
	Mask              string  `json:"Mask"`
	Method            string  `json:"Method,omitempty"`
	VarianceExplained float64 `json:"VarianceExplained"`
	Retained          bool    `json:"Retained"`
}

// ComponentMetadata maps confound column names to their metadata.
type ComponentMetadata map[string]ComponentInfo

// SelectCompCor picks up to perTissue retained components for white matter
// and then CSF, each in descending order of variance explained. Fewer
// components are returned when fewer are retained. Every selected column
// must exist in conf.
func SelectCompCor(meta ComponentMetadata, conf *models.Table, perTissue int) ([]string, error) {
	var selected []string
	for _, tissue := range []string{TissueWM, TissueCSF} {
		var cands []string
		for name, info := range meta {
			if info.Mask == tissue && info.Retained {
				cands = append(cands, name)
			}
		}
		sort.Slice(cands, func(i, j int) bool {
			vi, vj := meta[cands[i]].VarianceExplained, meta[cands[j]].VarianceExplained
			if vi != vj {
				return vi > vj
			}
			return cands[i] < cands[j]
		})
		if len(cands) > perTissue {
			cands = cands[:perTissue]
		}
		for _, name := range cands {
			if !conf.Has(name) {
				return nil, fmt.Errorf("%s component %q: %w", tissue, name, models.ErrMissingData)
			}
		}
		selected = append(selected, cands...)
	}
	return selected, nil
}
