package audio

// Sample is a mono float sample buffer at a known rate. It is handed to the
// recognizer by value; Clone the underlying buffer before sharing so upstream
// decode buffers keep no aliases into it.
type Sample struct {
	Samples    []float32
	SampleRate int
}

// Duration returns the buffer length in seconds
func (s Sample) Duration() float64 {
	if s.SampleRate == 0 {
		return 0
	}
	return float64(len(s.Samples)) / float64(s.SampleRate)
}

// Clone returns a deep copy of the sample
func (s Sample) Clone() Sample {
	out := make([]float32, len(s.Samples))
	copy(out, s.Samples)
	return Sample{Samples: out, SampleRate: s.SampleRate}
}

// Slice returns a copy of the samples between the given times, clamped to
// the buffer bounds.
func (s Sample) Slice(startSec, endSec float64) []float32 {
	start := int(startSec * float64(s.SampleRate))
	end := int(endSec * float64(s.SampleRate))
	if start < 0 {
		start = 0
	}
	if end > len(s.Samples) {
		end = len(s.Samples)
	}
	if start >= end {
		return nil
	}
	out := make([]float32, end-start)
	copy(out, s.Samples[start:end])
	return out
}
