package audiofile

import (
	"fmt"

	dspresample "github.com/cwbudde/algo-dsp/dsp/resample"
	"github.com/cwbudde/algo-rt60/analysis"
)

// Resample converts w to rate. It returns w unchanged when the rates match.
func Resample(w analysis.Waveform, rate int) (analysis.Waveform, error) {
	if rate <= 0 {
		return analysis.Waveform{}, analysis.ErrInvalidSampleRate
	}
	if w.SampleRate() == rate {
		return w, nil
	}
	r, err := dspresample.NewForRates(
		float64(w.SampleRate()),
		float64(rate),
		dspresample.WithQuality(dspresample.QualityBest),
	)
	if err != nil {
		return analysis.Waveform{}, fmt.Errorf("resample %d -> %d: %w", w.SampleRate(), rate, err)
	}
	return analysis.NewWaveform(r.Process(w.Samples()), rate)
}
