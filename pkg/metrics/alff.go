package metrics

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-dsp/dsp/spectrum"
	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"bolddenoise/internal/models"
)

// ALFFParams selects the low-frequency band, in Hz. A cutoff <= 0 leaves
// that side of the band open.
type ALFFParams struct {
	TR       float64
	HighPass float64
	LowPass  float64
}

// ALFF holds per-unit amplitude metrics.
type ALFF struct {
	// ALFF is the summed spectral amplitude inside the band.
	ALFF []float64

	// FALFF is ALFF divided by the summed amplitude over every positive
	// frequency. It lies in [0, 1].
	FALFF []float64

	// PerAF is the mean absolute deviation from the unit mean, as a
	// percentage of that mean.
	PerAF []float64
}

// ComputeALFF computes ALFF, fALFF and PerAF for every column of a T×S
// signal. With a mask that censors any volume the spectrum is a
// Lomb-Scargle periodogram over the retained timepoints; otherwise it is
// the FFT periodogram. Each unit is standardized before its spectrum is
// taken and the band sum is scaled back by the unit's standard deviation.
func ComputeALFF(signal mat.Matrix, mask *models.TemporalMask, p ALFFParams, log *logrus.Entry) (*ALFF, error) {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	t, s := signal.Dims()
	if p.TR <= 0 {
		return nil, fmt.Errorf("TR %g must be > 0: %w", p.TR, models.ErrConfiguration)
	}
	if p.HighPass > 0 && p.LowPass > 0 && p.HighPass >= p.LowPass {
		return nil, fmt.Errorf("ALFF band [%g, %g] Hz is empty: %w", p.HighPass, p.LowPass, models.ErrConfiguration)
	}
	if mask != nil && mask.Len() != t {
		return nil, fmt.Errorf("mask covers %d volumes, signal has %d: %w", mask.Len(), t, models.ErrDataShape)
	}

	retained := make([]int, t)
	for i := range retained {
		retained[i] = i
	}
	censored := mask != nil && mask.NumCensored() > 0
	if censored {
		retained = mask.Retained()
	}
	if len(retained) < 2 {
		return nil, fmt.Errorf("ALFF needs at least 2 retained volumes, got %d: %w", len(retained), models.ErrDataShape)
	}

	sampleRate := 1 / p.TR
	var spec periodogram
	if censored {
		times := make([]float64, len(retained))
		for i, r := range retained {
			times[i] = float64(r) * p.TR
		}
		spec = newLombScargle(times, t, sampleRate)
		log.WithField("n_retained", len(retained)).Debug("ALFF with Lomb-Scargle periodogram")
	} else {
		spec = newFFTPeriodogram(t, sampleRate)
	}
	freqs := spec.Frequencies()

	out := &ALFF{
		ALFF:  make([]float64, s),
		FALFF: make([]float64, s),
		PerAF: make([]float64, s),
	}
	x := make([]float64, len(retained))
	for j := 0; j < s; j++ {
		for i, r := range retained {
			x[i] = signal.At(r, j)
		}
		out.PerAF[j] = perAF(x)

		mean, sd := stat.MeanStdDev(x, nil)
		if sd == 0 || math.IsNaN(sd) {
			continue
		}
		z := make([]float64, len(x))
		for i, v := range x {
			z[i] = (v - mean) / sd
		}

		var band, total float64
		for k, pow := range spec.Power(z) {
			amp := math.Sqrt(pow)
			f := freqs[k]
			if f <= 0 {
				continue
			}
			total += amp
			if (p.HighPass <= 0 || f >= p.HighPass) && (p.LowPass <= 0 || f <= p.LowPass) {
				band += amp
			}
		}
		out.ALFF[j] = band * sd
		if total > 0 {
			out.FALFF[j] = band / total
		}
	}
	return out, nil
}

// perAF returns mean(|x−μ|/|μ|)·100, or 0 when μ is 0.
func perAF(x []float64) float64 {
	mean := stat.Mean(x, nil)
	if mean == 0 {
		return 0
	}
	var sum float64
	for _, v := range x {
		sum += math.Abs(v-mean) / math.Abs(mean)
	}
	return sum / float64(len(x)) * 100
}

// periodogram estimates a one-sided power spectrum on a fixed frequency grid.
type periodogram interface {
	Frequencies() []float64
	Power(x []float64) []float64
}

// fftPeriodogram is the "spectrum"-scaled periodogram of an evenly sampled
// series: |X_k|²/N², doubled for every bin except DC and Nyquist.
type fftPeriodogram struct {
	n     int
	fft   *fourier.FFT
	freqs []float64
}

func newFFTPeriodogram(n int, sampleRate float64) *fftPeriodogram {
	fft := fourier.NewFFT(n)
	freqs := make([]float64, n/2+1)
	for k := range freqs {
		freqs[k] = fft.Freq(k) * sampleRate
	}
	return &fftPeriodogram{n: n, fft: fft, freqs: freqs}
}

func (p *fftPeriodogram) Frequencies() []float64 { return p.freqs }

func (p *fftPeriodogram) Power(x []float64) []float64 {
	pow := spectrum.Power(p.fft.Coefficients(nil, x))
	norm := float64(p.n) * float64(p.n)
	for k := range pow {
		pow[k] /= norm
		if k > 0 && !(p.n%2 == 0 && k == p.n/2) {
			pow[k] *= 2
		}
	}
	return pow
}
