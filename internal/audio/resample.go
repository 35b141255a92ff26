package audio

import (
	"math"

	"gonum.org/v1/gonum/dsp/window"
)

// Band-limited resampling via a Hann-windowed sinc kernel. The kernel is
// tabulated once at startup and linearly interpolated at lookup time. When
// downsampling, the kernel is stretched so its cutoff tracks the destination
// Nyquist frequency.
const (
	resampleTaps       = 16
	resampleResolution = 512
)

var sincTable = buildSincTable()

func buildSincTable() []float64 {
	n := resampleTaps * resampleResolution

	// Hann taper sampled on the same grid as the sinc
	full := make([]float64, 2*n+1)
	for i := range full {
		full[i] = 1
	}
	window.Hann(full)
	taper := full[n:]

	table := make([]float64, n+1)
	table[0] = 1
	for k := 1; k <= n; k++ {
		x := float64(k) / resampleResolution
		table[k] = taper[k] * math.Sin(math.Pi*x) / (math.Pi * x)
	}
	return table
}

// kernelAt evaluates the tabulated kernel at |x| sample offsets
func kernelAt(x float64) float64 {
	pos := x * resampleResolution
	k := int(pos)
	if k >= len(sincTable)-1 {
		return 0
	}
	frac := pos - float64(k)
	return sincTable[k]*(1-frac) + sincTable[k+1]*frac
}

// Resample converts in from srcRate to dstRate without mutating the input.
// Equal rates return a copy so callers always own the result.
func Resample(in []float32, srcRate, dstRate int) []float32 {
	if srcRate == dstRate {
		out := make([]float32, len(in))
		copy(out, in)
		return out
	}
	if len(in) == 0 {
		return nil
	}

	ratio := float64(srcRate) / float64(dstRate)
	cutoff := 1.0
	if dstRate < srcRate {
		cutoff = float64(dstRate) / float64(srcRate)
	}
	width := float64(resampleTaps) / cutoff

	outLen := int(float64(len(in)) * float64(dstRate) / float64(srcRate))
	out := make([]float32, outLen)

	for i := range out {
		t := float64(i) * ratio

		j0 := int(math.Ceil(t - width))
		j1 := int(math.Floor(t + width))
		if j0 < 0 {
			j0 = 0
		}
		if j1 >= len(in) {
			j1 = len(in) - 1
		}

		var acc, norm float64
		for j := j0; j <= j1; j++ {
			w := kernelAt(math.Abs(t-float64(j)) * cutoff)
			acc += float64(in[j]) * w
			norm += w
		}
		if norm > 0 {
			out[i] = float32(acc / norm)
		}
	}

	return out
}
