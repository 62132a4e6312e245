package analysis

// Waveform is a decoded mono PCM signal. It is immutable once constructed.
type Waveform struct {
	samples    []float64
	sampleRate int
}

// NewWaveform copies samples into a new Waveform.
func NewWaveform(samples []float64, sampleRate int) (Waveform, error) {
	if sampleRate <= 0 {
		return Waveform{}, ErrInvalidSampleRate
	}
	if len(samples) == 0 {
		return Waveform{}, ErrEmptyWaveform
	}
	return Waveform{
		samples:    append([]float64(nil), samples...),
		sampleRate: sampleRate,
	}, nil
}

// SampleRate returns the sample rate in Hz.
func (w Waveform) SampleRate() int { return w.sampleRate }

// Len returns the number of samples.
func (w Waveform) Len() int { return len(w.samples) }

// Duration returns the length in seconds.
func (w Waveform) Duration() float64 {
	if w.sampleRate <= 0 {
		return 0
	}
	return float64(len(w.samples)) / float64(w.sampleRate)
}

// Samples returns a copy of the samples.
func (w Waveform) Samples() []float64 {
	return append([]float64(nil), w.samples...)
}

// Times returns the time in seconds of every sample.
func (w Waveform) Times() []float64 {
	out := make([]float64, len(w.samples))
	if w.sampleRate <= 0 {
		return out
	}
	inv := 1 / float64(w.sampleRate)
	for i := range out {
		out[i] = float64(i) * inv
	}
	return out
}
