// Package analysis estimates room decay time (RT60) and resonant frequency
// from a recorded impulse such as a hand clap.
//
// The pipeline runs strictly forward: Waveform -> Spectrogram ->
// {BandTrace, ResonantFrequency} -> DecayEstimate -> Result. Every stage
// returns a new value, so independent analyses may run in parallel.
package analysis

import (
	"context"
	"errors"
	"fmt"

	"github.com/cwbudde/algo-dsp/measure/ir"
)

// Analyzer runs the full pipeline with a fixed parameter set.
type Analyzer struct {
	params Params
}

// NewAnalyzer validates p and returns an Analyzer holding a copy of it.
// A nil p selects NewDefaultParams.
func NewAnalyzer(p *Params) (*Analyzer, error) {
	if p == nil {
		p = NewDefaultParams()
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &Analyzer{params: *p}, nil
}

// Params returns a copy of the analyzer configuration.
func (a *Analyzer) Params() Params { return a.params }

// Result is the output of one analysis. It is immutable and owns every curve
// it exposes, so presentation code can ask for them again without recomputing.
type Result struct {
	Decay               map[Band]DecayEstimate
	Resonance           ResonantFrequency
	AverageRT60         float64
	DeviationFromTarget float64
	TargetRT60          float64

	// Degenerate lists the bands whose trace had no finite level.
	Degenerate []*DegenerateBandError

	// Reference holds broadband Schroeder metrics when enabled. Nil otherwise.
	Reference *ir.Metrics

	waveform    Waveform
	spectrogram *Spectrogram
	traces      map[Band]BandTrace
	avgPower    []float64
}

// Analyze runs the pipeline on w.
func (a *Analyzer) Analyze(w Waveform) (*Result, error) {
	return a.AnalyzeContext(context.Background(), w)
}

// AnalyzeContext runs the pipeline on w. ctx is only consulted during the STFT.
func (a *Analyzer) AnalyzeContext(ctx context.Context, w Waveform) (*Result, error) {
	p := a.params

	spec, err := ComputeSpectrogramContext(ctx, w, p.STFT())
	if err != nil {
		return nil, err
	}

	r := &Result{
		Decay:       make(map[Band]DecayEstimate, 3),
		TargetRT60:  p.TargetRT60,
		waveform:    w,
		spectrogram: spec,
		traces:      make(map[Band]BandTrace, 3),
	}

	for _, b := range AllBands() {
		trace := ExtractBand(spec, b, p.CutoffHz(b), p.DBScale)
		est, err := EstimateDecay(trace, p.KneeOffsetDB)
		if err != nil {
			var dbe *DegenerateBandError
			if !errors.As(err, &dbe) {
				return nil, err
			}
			r.Degenerate = append(r.Degenerate, dbe)
		}
		r.traces[b] = trace
		r.Decay[b] = est
	}

	r.avgPower = AveragePower(spec)
	r.Resonance = resonanceFrom(spec.frequencies, r.avgPower, p.ResonanceMinHz)
	r.AverageRT60, r.DeviationFromTarget = Aggregate(r.Decay, p.TargetRT60)

	if p.ReferenceMetrics {
		m, err := ir.NewAnalyzer(float64(w.sampleRate)).Analyze(w.samples)
		if err == nil {
			r.Reference = &m
		}
	}
	return r, nil
}

// Aggregate averages RT60 over the estimates that carry a signal and returns
// the average and its deviation from target. With no usable estimate the
// average is 0.
func Aggregate(estimates map[Band]DecayEstimate, target float64) (avg, deviation float64) {
	var sum float64
	n := 0
	for _, b := range AllBands() {
		est, ok := estimates[b]
		if !ok || est.Status == DecayNoSignal {
			continue
		}
		sum += est.RT60
		n++
	}
	if n > 0 {
		avg = sum / float64(n)
	}
	return avg, avg - target
}

// Bands returns the analysed bands in order.
func (r *Result) Bands() []Band {
	out := make([]Band, 0, len(r.traces))
	for _, b := range AllBands() {
		if _, ok := r.traces[b]; ok {
			out = append(out, b)
		}
	}
	return out
}

// Spectrogram returns the spectrogram computed for this result.
func (r *Result) Spectrogram() *Spectrogram { return r.spectrogram }

// Waveform returns the analysed waveform.
func (r *Result) Waveform() Waveform { return r.waveform }

// Trace returns the band trace, including its bin and frequency.
func (r *Result) Trace(b Band) (BandTrace, error) {
	t, ok := r.traces[b]
	if !ok {
		return BandTrace{}, fmt.Errorf("%w: %s", ErrUnknownBand, b)
	}
	t.LevelsDB = append([]float64(nil), t.LevelsDB...)
	return t, nil
}

// BandCurve returns copies of a band's time axis and levels in dB.
func (r *Result) BandCurve(b Band) (times, levelsDB []float64, err error) {
	t, err := r.Trace(b)
	if err != nil {
		return nil, nil, err
	}
	return append([]float64(nil), t.Times...), append([]float64(nil), t.LevelsDB...), nil
}

// DecayPoints returns the peak and knee of a band.
func (r *Result) DecayPoints(b Band) (peak, knee DecayPoint, err error) {
	est, ok := r.Decay[b]
	if !ok {
		return DecayPoint{}, DecayPoint{}, fmt.Errorf("%w: %s", ErrUnknownBand, b)
	}
	return est.Peak, est.Knee, nil
}

// ResonanceCurve returns the frequency axis and the mean power per bin.
func (r *Result) ResonanceCurve() (freqs, avgPower []float64) {
	return r.spectrogram.Frequencies(), append([]float64(nil), r.avgPower...)
}

// RawWaveform returns sample times and samples for a waveform view.
func (r *Result) RawWaveform() (times, samples []float64) {
	return r.waveform.Times(), r.waveform.Samples()
}
