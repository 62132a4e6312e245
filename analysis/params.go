package analysis

import (
	"fmt"
	"math"
	"strings"

	"github.com/cwbudde/algo-dsp/dsp/window"
)

// Params holds all analysis configuration.
type Params struct {
	// Band cutoffs in Hz. Each band reads the first spectrogram bin above its cutoff.
	LowCutoffHz  float64
	MidCutoffHz  float64
	HighCutoffHz float64

	// STFT framing.
	WindowLength int
	Overlap      float64 // fraction of WindowLength shared by adjacent frames, [0,1)
	Window       string  // hann|hamming|blackman|rectangular

	// DBScale multiplies log10(power). 10 is the power-to-dB convention.
	DBScale float64
	// KneeOffsetDB is the drop below the peak used as the knee target.
	KneeOffsetDB float64
	// TargetRT60 is the reverberation time the average is compared against.
	TargetRT60 float64

	// ResonanceMinHz excludes bins below it from the resonance search.
	ResonanceMinHz float64

	// ReferenceMetrics enables the broadband Schroeder (ISO 3382) cross-check.
	ReferenceMetrics bool
}

// NewDefaultParams creates default parameters.
func NewDefaultParams() *Params {
	return &Params{
		LowCutoffHz:      250,
		MidCutoffHz:      1000,
		HighCutoffHz:     5000,
		WindowLength:     1024,
		Overlap:          0.5,
		Window:           "hann",
		DBScale:          10,
		KneeOffsetDB:     20,
		TargetRT60:       0.5,
		ResonanceMinHz:   0,
		ReferenceMetrics: true,
	}
}

// Clone returns a copy of p.
func (p *Params) Clone() *Params {
	c := *p
	return &c
}

// CutoffHz returns the configured cutoff for b.
func (p *Params) CutoffHz(b Band) float64 {
	switch b {
	case BandLow:
		return p.LowCutoffHz
	case BandMid:
		return p.MidCutoffHz
	case BandHigh:
		return p.HighCutoffHz
	}
	return math.NaN()
}

// STFT returns the framing part of p.
func (p *Params) STFT() STFTConfig {
	wt, _ := WindowType(p.Window)
	return STFTConfig{
		WindowLength: p.WindowLength,
		Overlap:      p.Overlap,
		Window:       wt,
	}
}

// Validate reports the first invalid field.
func (p *Params) Validate() error {
	if p == nil {
		return fmt.Errorf("nil params")
	}
	for _, b := range AllBands() {
		hz := p.CutoffHz(b)
		if !(hz >= 0) || math.IsInf(hz, 0) {
			return fmt.Errorf("%s cutoff must be a finite value >= 0: %f", b, hz)
		}
	}
	if p.WindowLength < 2 || p.WindowLength%2 != 0 {
		return fmt.Errorf("window length must be even and >= 2: %d", p.WindowLength)
	}
	if !(p.Overlap >= 0 && p.Overlap < 1) {
		return fmt.Errorf("overlap must be in [0,1): %f", p.Overlap)
	}
	if _, err := WindowType(p.Window); err != nil {
		return err
	}
	if !(p.DBScale > 0) || math.IsInf(p.DBScale, 0) {
		return fmt.Errorf("db scale must be > 0: %f", p.DBScale)
	}
	if !(p.KneeOffsetDB > 0) || math.IsInf(p.KneeOffsetDB, 0) {
		return fmt.Errorf("knee offset must be > 0 dB: %f", p.KneeOffsetDB)
	}
	if !(p.TargetRT60 >= 0) || math.IsInf(p.TargetRT60, 0) {
		return fmt.Errorf("target rt60 must be >= 0: %f", p.TargetRT60)
	}
	if !(p.ResonanceMinHz >= 0) {
		return fmt.Errorf("resonance min frequency must be >= 0: %f", p.ResonanceMinHz)
	}
	return nil
}

// WindowType maps a window name to its algo-dsp type.
func WindowType(name string) (window.Type, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "hann":
		return window.TypeHann, nil
	case "hamming":
		return window.TypeHamming, nil
	case "blackman":
		return window.TypeBlackman, nil
	case "rectangular", "boxcar":
		return window.TypeRectangular, nil
	}
	return window.TypeHann, fmt.Errorf("unsupported window %q (use hann|hamming|blackman|rectangular)", name)
}
