package metrics

import "math"

// lombScargle evaluates the Lomb-Scargle periodogram of an unevenly sampled
// series on the frequency grid an evenly sampled run of n volumes would
// have, excluding DC. Power is scaled by 2/N so an evenly sampled sinusoid
// gives the same power as the FFT periodogram.
type lombScargle struct {
	times []float64
	freqs []float64

	// Per-frequency terms that depend only on the sample times.
	tau      []float64
	cos2Sums []float64
	sin2Sums []float64
}

func newLombScargle(times []float64, n int, sampleRate float64) *lombScargle {
	nBins := n / 2
	ls := &lombScargle{
		times:    times,
		freqs:    make([]float64, nBins),
		tau:      make([]float64, nBins),
		cos2Sums: make([]float64, nBins),
		sin2Sums: make([]float64, nBins),
	}
	for k := range ls.freqs {
		f := float64(k+1) * (sampleRate / 2) / float64(nBins)
		ls.freqs[k] = f
		w := 2 * math.Pi * f

		var s2, c2 float64
		for _, t := range times {
			s2 += math.Sin(2 * w * t)
			c2 += math.Cos(2 * w * t)
		}
		tau := math.Atan2(s2, c2) / (2 * w)
		ls.tau[k] = tau

		var cc, ss float64
		for _, t := range times {
			c := math.Cos(w * (t - tau))
			s := math.Sin(w * (t - tau))
			cc += c * c
			ss += s * s
		}
		ls.cos2Sums[k] = cc
		ls.sin2Sums[k] = ss
	}
	return ls
}

func (ls *lombScargle) Frequencies() []float64 { return ls.freqs }

func (ls *lombScargle) Power(x []float64) []float64 {
	pow := make([]float64, len(ls.freqs))
	scale := 2 / float64(len(x))
	for k, f := range ls.freqs {
		w := 2 * math.Pi * f
		var xc, xs float64
		for i, t := range ls.times {
			xc += x[i] * math.Cos(w*(t-ls.tau[k]))
			xs += x[i] * math.Sin(w*(t-ls.tau[k]))
		}
		var p float64
		if ls.cos2Sums[k] > 0 {
			p += xc * xc / ls.cos2Sums[k]
		}
		if ls.sin2Sums[k] > 0 {
			p += xs * xs / ls.sin2Sums[k]
		}
		pow[k] = 0.5 * p * scale
	}
	return pow
}
