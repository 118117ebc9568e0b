package confounds

import (
	"fmt"

	"bolddenoise/internal/models"
)

// Preset names a deterministic recipe of nuisance regressors.
type Preset string

const (
	Preset24P         Preset = "24P"
	Preset27P         Preset = "27P"
	Preset36P         Preset = "36P"
	PresetACompCor    Preset = "acompcor"
	PresetACompCorGSR Preset = "acompcor_gsr"
	PresetAROMA       Preset = "aroma"
	PresetAROMAGSR    Preset = "aroma_gsr"
	PresetCustom      Preset = "custom"
	PresetNone        Preset = "none"
)

// Presets lists every supported preset.
var Presets = []Preset{
	Preset24P, Preset27P, Preset36P,
	PresetACompCor, PresetACompCorGSR,
	PresetAROMA, PresetAROMAGSR,
	PresetCustom, PresetNone,
}

// ParsePreset validates a preset name.
func ParsePreset(name string) (Preset, error) {
	for _, p := range Presets {
		if string(p) == name {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown confound preset %q: %w", name, models.ErrConfiguration)
}

// Physiological column names as written by fMRIPrep.
const (
	WhiteMatterColumn  = "white_matter"
	CSFColumn          = "csf"
	GlobalSignalColumn = "global_signal"
	CosinePrefix       = "cosine"
)

// Column suffixes for expansion terms.
const (
	DerivativeSuffix = "_derivative1"
	PowerSuffix      = "_power2"
)

// expansion describes which terms to derive from a group of base columns.
type expansion int

const (
	noTerms expansion = iota
	baseOnly
	withDerivative
	fullExpansion // base, derivative, power2 and derivative power2
)

type recipe struct {
	motion    expansion
	physio    []string
	physioExp expansion
	compCor   bool
	cosine    bool
	aroma     bool
}

func (p Preset) recipe() recipe {
	switch p {
	case Preset24P:
		return recipe{motion: fullExpansion}
	case Preset27P:
		return recipe{
			motion:    fullExpansion,
			physio:    []string{WhiteMatterColumn, CSFColumn, GlobalSignalColumn},
			physioExp: baseOnly,
		}
	case Preset36P:
		return recipe{
			motion:    fullExpansion,
			physio:    []string{WhiteMatterColumn, CSFColumn, GlobalSignalColumn},
			physioExp: fullExpansion,
		}
	case PresetACompCor:
		return recipe{motion: withDerivative, compCor: true, cosine: true}
	case PresetACompCorGSR:
		return recipe{
			motion:    withDerivative,
			physio:    []string{GlobalSignalColumn},
			physioExp: baseOnly,
			compCor:   true,
			cosine:    true,
		}
	case PresetAROMA:
		return recipe{
			physio:    []string{WhiteMatterColumn, CSFColumn},
			physioExp: baseOnly,
			aroma:     true,
		}
	case PresetAROMAGSR:
		return recipe{
			physio:    []string{WhiteMatterColumn, CSFColumn, GlobalSignalColumn},
			physioExp: baseOnly,
			aroma:     true,
		}
	}
	return recipe{}
}
