// Package metrics derives quality and amplitude measures from BOLD time
// series: DVARS, ALFF/fALFF/PerAF and regional homogeneity (ReHo).
//
// Every function takes a T×S matrix with timepoints as rows and returns
// plain slices. Sidecar metadata describing each measure is available from
// Metadata so writers can embed it next to the values.
package metrics

// Metric names used as keys for metadata and output files.
const (
	MetricDVARS             = "dvars"
	MetricDVARSStandardized = "dvars_std"
	MetricALFF              = "alff"
	MetricFALFF             = "falff"
	MetricPerAF             = "peraf"
	MetricReHo              = "reho"
)

// Sidecar is a JSON-ready metadata dictionary.
type Sidecar map[string]any

var metadata = map[string]Sidecar{
	MetricDVARS: {
		"Description": "Root mean square of the temporal derivative across units, after scaling the median unit mean to 1000. The first value is 0.",
		"Units":       "arbitrary",
	},
	MetricDVARSStandardized: {
		"Description": "DVARS divided by the mean expected standard deviation of the temporal difference under an AR(1) model.",
		"Units":       "arbitrary",
	},
	MetricALFF: {
		"Description": "Sum of spectral amplitude inside the band-pass range, scaled by the time series' standard deviation so it tracks signal amplitude. Lomb-Scargle periodogram when volumes are censored.",
		"Units":       "arbitrary",
	},
	MetricFALFF: {
		"Description": "ALFF divided by the sum of spectral amplitude over all positive frequencies.",
		"Units":       "fraction",
	},
	MetricPerAF: {
		"Description": "Mean absolute deviation from the time-series mean as a percentage of that mean.",
		"Units":       "percent",
	},
	MetricReHo: {
		"Description": "Kendall's coefficient of concordance between each unit and its neighbours (mesh neighbours on surfaces, 27-voxel neighbourhood in volumes).",
		"Units":       "unitless",
	},
}

// Metadata returns a fresh copy of the sidecar for the named metric, with
// extra entries merged in. Unknown metrics get only the extras.
func Metadata(metric string, extra Sidecar) Sidecar {
	out := Sidecar{}
	for k, v := range metadata[metric] {
		out[k] = v
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}
