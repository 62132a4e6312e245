package analysis

import (
	"context"
	"fmt"
	"math"

	"github.com/cwbudde/algo-dsp/dsp/spectrum"
	"github.com/cwbudde/algo-dsp/dsp/window"
	algofft "github.com/cwbudde/algo-fft"
	vecmath "github.com/cwbudde/algo-vecmath"
)

// STFTConfig controls spectrogram framing.
type STFTConfig struct {
	WindowLength int
	Overlap      float64
	Window       window.Type
}

// DefaultSTFTConfig returns a 1024-sample Hann window with 50% overlap.
func DefaultSTFTConfig() STFTConfig {
	return STFTConfig{WindowLength: 1024, Overlap: 0.5, Window: window.TypeHann}
}

// Hop returns the frame advance in samples.
func (c STFTConfig) Hop() int {
	hop := c.WindowLength - int(math.Round(float64(c.WindowLength)*c.Overlap))
	if hop < 1 {
		hop = 1
	}
	return hop
}

func (c STFTConfig) validate() error {
	if c.WindowLength < 2 || c.WindowLength%2 != 0 {
		return fmt.Errorf("window length must be even and >= 2: %d", c.WindowLength)
	}
	if !(c.Overlap >= 0 && c.Overlap < 1) {
		return fmt.Errorf("overlap must be in [0,1): %f", c.Overlap)
	}
	return nil
}

// Spectrogram is a time-frequency power grid indexed [bin][frame].
// It is never modified after ComputeSpectrogram returns.
type Spectrogram struct {
	power        [][]float64
	frequencies  []float64
	times        []float64
	windowLength int
	hop          int
	sampleRate   int
}

// ComputeSpectrogram runs a windowed short-time Fourier transform over w.
func ComputeSpectrogram(w Waveform, cfg STFTConfig) (*Spectrogram, error) {
	return ComputeSpectrogramContext(context.Background(), w, cfg)
}

// ComputeSpectrogramContext is ComputeSpectrogram with cancellation checked
// between frames.
func ComputeSpectrogramContext(ctx context.Context, w Waveform, cfg STFTConfig) (*Spectrogram, error) {
	if w.sampleRate <= 0 {
		return nil, ErrInvalidSampleRate
	}
	if len(w.samples) == 0 {
		return nil, ErrEmptyWaveform
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	n := cfg.WindowLength
	if len(w.samples) < n {
		return nil, fmt.Errorf("%w: %d samples, window %d", ErrInsufficientSignal, len(w.samples), n)
	}

	win := window.Generate(cfg.Window, n, window.WithPeriodic())
	if len(win) != n {
		return nil, fmt.Errorf("window generation failed for length %d", n)
	}
	var winEnergy float64
	for _, v := range win {
		winEnergy += v * v
	}
	if winEnergy <= 0 {
		return nil, fmt.Errorf("window has zero energy")
	}

	plan, err := algofft.NewPlanReal64(n)
	if err != nil {
		return nil, fmt.Errorf("fft plan: %w", err)
	}

	hop := cfg.Hop()
	frames := 1 + (len(w.samples)-n)/hop
	bins := n/2 + 1
	fs := float64(w.sampleRate)

	s := &Spectrogram{
		power:        make([][]float64, bins),
		frequencies:  make([]float64, bins),
		times:        make([]float64, frames),
		windowLength: n,
		hop:          hop,
		sampleRate:   w.sampleRate,
	}
	for k := range s.power {
		s.power[k] = make([]float64, frames)
		s.frequencies[k] = float64(k) * fs / float64(n)
	}

	// One-sided power spectral density.
	scale := 1 / (fs * winEnergy)
	buf := make([]float64, n)
	spec := make([]complex128, bins)

	for f := 0; f < frames; f++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		start := f * hop
		vecmath.MulBlock(buf, w.samples[start:start+n], win)
		plan.Forward(spec, buf)
		pw := spectrum.Power(spec)
		for k, v := range pw {
			v *= scale
			if k != 0 && !(n%2 == 0 && k == bins-1) {
				v *= 2
			}
			s.power[k][f] = v
		}
		s.times[f] = (float64(start) + float64(n)/2) / fs
	}
	return s, nil
}

// Bins returns the number of frequency rows.
func (s *Spectrogram) Bins() int { return len(s.frequencies) }

// Frames returns the number of time columns.
func (s *Spectrogram) Frames() int { return len(s.times) }

// WindowLength returns the STFT segment length in samples.
func (s *Spectrogram) WindowLength() int { return s.windowLength }

// Hop returns the frame advance in samples.
func (s *Spectrogram) Hop() int { return s.hop }

// SampleRate returns the sample rate of the source waveform.
func (s *Spectrogram) SampleRate() int { return s.sampleRate }

// BinWidth returns the spacing of the frequency axis in Hz.
func (s *Spectrogram) BinWidth() float64 {
	return float64(s.sampleRate) / float64(s.windowLength)
}

// Frequencies returns a copy of the frequency axis in Hz.
func (s *Spectrogram) Frequencies() []float64 {
	return append([]float64(nil), s.frequencies...)
}

// Times returns a copy of the frame-centre time axis in seconds.
func (s *Spectrogram) Times() []float64 {
	return append([]float64(nil), s.times...)
}

// Row returns a copy of the power over time for one bin.
func (s *Spectrogram) Row(bin int) []float64 {
	if bin < 0 || bin >= len(s.power) {
		return nil
	}
	return append([]float64(nil), s.power[bin]...)
}

// Power returns one grid value.
func (s *Spectrogram) Power(bin, frame int) float64 {
	return s.power[bin][frame]
}
