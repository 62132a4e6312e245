package analysis

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
)

// Tones sit exactly on the bins the default cutoffs select at 16 kHz with a
// 1024-sample window.
var (
	toneFreqs = []float64{265.625, 1015.625, 5015.625}
	toneRT60s = []float64{1.6, 0.8, 0.4}
)

func fineParams() *Params {
	p := NewDefaultParams()
	p.Overlap = 0.875
	return p
}

func TestAnalyzeDecayingTones(t *testing.T) {
	const fs = 16000
	w := mustWaveform(t, decayingTone(fs, 3, 0.5, toneFreqs, toneRT60s), fs)
	a, err := NewAnalyzer(fineParams())
	if err != nil {
		t.Fatal(err)
	}
	r, err := a.Analyze(w)
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if len(r.Degenerate) != 0 {
		t.Fatalf("Degenerate = %v, want none", r.Degenerate)
	}

	for i, b := range AllBands() {
		est := r.Decay[b]
		if est.Status != DecayOK {
			t.Fatalf("%s status = %v, want ok", b, est.Status)
		}
		if !approxEqual(est.RT60, toneRT60s[i], 0.08) {
			t.Fatalf("%s RT60 = %v, want about %v", b, est.RT60, toneRT60s[i])
		}
		if est.Knee.Index < est.Peak.Index {
			t.Fatalf("%s knee precedes peak", b)
		}
		trace, err := r.Trace(b)
		if err != nil {
			t.Fatal(err)
		}
		if trace.FrequencyHz != toneFreqs[i] {
			t.Fatalf("%s bin frequency = %v, want %v", b, trace.FrequencyHz, toneFreqs[i])
		}
		// All bands read the same spectrogram.
		if &trace.Times[0] != &r.Spectrogram().times[0] {
			t.Fatalf("%s trace does not share the spectrogram time axis", b)
		}
	}
	if !(r.Decay[BandLow].RT60 > r.Decay[BandMid].RT60 && r.Decay[BandMid].RT60 > r.Decay[BandHigh].RT60) {
		t.Fatalf("RT60s not ordered by decay rate: %+v", r.Decay)
	}

	wantAvg := (r.Decay[BandLow].RT60 + r.Decay[BandMid].RT60 + r.Decay[BandHigh].RT60) / 3
	if !approxEqual(r.AverageRT60, wantAvg, 1e-12) {
		t.Fatalf("AverageRT60 = %v, want %v", r.AverageRT60, wantAvg)
	}
	if !approxEqual(r.DeviationFromTarget, wantAvg-0.5, 1e-12) || r.TargetRT60 != 0.5 {
		t.Fatalf("DeviationFromTarget = %v, want %v", r.DeviationFromTarget, wantAvg-0.5)
	}
	// The low tone has the most energy overall.
	if r.Resonance.FrequencyHz != toneFreqs[0] {
		t.Fatalf("resonance = %v Hz, want %v", r.Resonance.FrequencyHz, toneFreqs[0])
	}
	if r.Reference == nil {
		t.Fatal("Reference metrics missing")
	}
}

func TestAnalyzeSilence(t *testing.T) {
	w := mustWaveform(t, make([]float64, 8000), 8000)
	a, err := NewAnalyzer(nil)
	if err != nil {
		t.Fatal(err)
	}
	r, err := a.Analyze(w)
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if len(r.Degenerate) != 3 {
		t.Fatalf("Degenerate = %d bands, want 3", len(r.Degenerate))
	}
	for _, e := range r.Degenerate {
		if !errors.Is(e, ErrDegenerateBand) {
			t.Fatalf("degenerate error %v does not match ErrDegenerateBand", e)
		}
	}
	if r.AverageRT60 != 0 || r.DeviationFromTarget != -0.5 {
		t.Fatalf("average/deviation = %v/%v, want 0/-0.5", r.AverageRT60, r.DeviationFromTarget)
	}
}

func TestAnalyzeTooShort(t *testing.T) {
	a, _ := NewAnalyzer(nil)
	_, err := a.Analyze(mustWaveform(t, make([]float64, 10), 8000))
	if !errors.Is(err, ErrInsufficientSignal) {
		t.Fatalf("Analyze() error = %v, want ErrInsufficientSignal", err)
	}
}

func TestAnalyzeContextCancelled(t *testing.T) {
	a, _ := NewAnalyzer(nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := a.AnalyzeContext(ctx, mustWaveform(t, sine(16000, 16000, 440, 1), 16000))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("AnalyzeContext() error = %v, want context.Canceled", err)
	}
}

func TestAnalyzeConcurrent(t *testing.T) {
	const fs = 16000
	a, err := NewAnalyzer(nil)
	if err != nil {
		t.Fatal(err)
	}
	var wg sync.WaitGroup
	results := make([]*Result, 4)
	errs := make([]error, 4)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			scale := float64(i + 1)
			rt := []float64{0.4 * scale, 0.4 * scale, 0.4 * scale}
			w, err := NewWaveform(decayingTone(fs, 2, 0.2, toneFreqs, rt), fs)
			if err != nil {
				errs[i] = err
				return
			}
			results[i], errs[i] = a.Analyze(w)
		}(i)
	}
	wg.Wait()
	for i, err := range errs {
		if err != nil {
			t.Fatalf("worker %d: %v", i, err)
		}
	}
	for i := 1; i < len(results); i++ {
		if !(results[i].Decay[BandMid].RT60 > results[i-1].Decay[BandMid].RT60) {
			t.Fatalf("worker %d mid RT60 %v not above worker %d %v",
				i, results[i].Decay[BandMid].RT60, i-1, results[i-1].Decay[BandMid].RT60)
		}
	}
}

func TestAggregate(t *testing.T) {
	tests := []struct {
		name    string
		est     map[Band]DecayEstimate
		target  float64
		wantAvg float64
		wantDev float64
	}{
		{
			name: "all bands",
			est: map[Band]DecayEstimate{
				BandLow:  {RT60: 1.2},
				BandMid:  {RT60: 1.5},
				BandHigh: {RT60: 1.8},
			},
			target:  0.5,
			wantAvg: 1.5,
			wantDev: 1.0,
		},
		{
			name: "skips no-signal",
			est: map[Band]DecayEstimate{
				BandLow:  {RT60: 1.0},
				BandMid:  {RT60: 2.0},
				BandHigh: {Status: DecayNoSignal},
			},
			target:  1.0,
			wantAvg: 1.5,
			wantDev: 0.5,
		},
		{
			name: "no usable band",
			est: map[Band]DecayEstimate{
				BandLow: {Status: DecayNoSignal},
			},
			target:  0.5,
			wantAvg: 0,
			wantDev: -0.5,
		},
		{
			name:    "low confidence counts",
			est:     map[Band]DecayEstimate{BandMid: {RT60: 0.9, Status: DecayLowConfidence}},
			target:  0.4,
			wantAvg: 0.9,
			wantDev: 0.5,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			avg, dev := Aggregate(tt.est, tt.target)
			if !approxEqual(avg, tt.wantAvg, 1e-12) || !approxEqual(dev, tt.wantDev, 1e-12) {
				t.Fatalf("Aggregate() = %v, %v, want %v, %v", avg, dev, tt.wantAvg, tt.wantDev)
			}
		})
	}
}

func TestResultAccessors(t *testing.T) {
	const fs = 16000
	samples := decayingTone(fs, 2, 0.25, toneFreqs, toneRT60s)
	a, _ := NewAnalyzer(nil)
	r, err := a.Analyze(mustWaveform(t, samples, fs))
	if err != nil {
		t.Fatal(err)
	}
	if got := r.Bands(); len(got) != 3 || got[0] != BandLow || got[2] != BandHigh {
		t.Fatalf("Bands() = %v", got)
	}

	times, levels, err := r.BandCurve(BandMid)
	if err != nil {
		t.Fatal(err)
	}
	if len(times) != r.Spectrogram().Frames() || len(levels) != len(times) {
		t.Fatalf("BandCurve lengths = %d/%d, want %d", len(times), len(levels), r.Spectrogram().Frames())
	}
	levels[0] = 123
	times[0] = 123
	again, _, _ := r.BandCurve(BandMid)
	tr, _ := r.Trace(BandMid)
	if again[0] == 123 || tr.LevelsDB[0] == 123 {
		t.Fatal("BandCurve must return copies")
	}

	peak, knee, err := r.DecayPoints(BandHigh)
	if err != nil {
		t.Fatal(err)
	}
	if peak != r.Decay[BandHigh].Peak || knee != r.Decay[BandHigh].Knee {
		t.Fatalf("DecayPoints() = %+v %+v", peak, knee)
	}
	if _, _, err := r.DecayPoints(Band(9)); !errors.Is(err, ErrUnknownBand) {
		t.Fatalf("DecayPoints(unknown) error = %v", err)
	}
	if _, err := r.Trace(Band(9)); !errors.Is(err, ErrUnknownBand) {
		t.Fatalf("Trace(unknown) error = %v", err)
	}

	freqs, avg := r.ResonanceCurve()
	if len(freqs) != r.Spectrogram().Bins() || len(avg) != len(freqs) {
		t.Fatalf("ResonanceCurve lengths = %d/%d", len(freqs), len(avg))
	}
	if avg[r.Resonance.BinIndex] != r.Resonance.MeanPower {
		t.Fatal("ResonanceCurve disagrees with Resonance")
	}

	wt, ws := r.RawWaveform()
	if len(wt) != len(samples) || len(ws) != len(samples) {
		t.Fatalf("RawWaveform lengths = %d/%d, want %d", len(wt), len(ws), len(samples))
	}
	for i := range samples {
		if ws[i] != samples[i] {
			t.Fatalf("RawWaveform sample %d = %v, want %v", i, ws[i], samples[i])
		}
	}
	if r.Waveform().SampleRate() != fs {
		t.Fatalf("Waveform().SampleRate() = %d", r.Waveform().SampleRate())
	}
}

func TestNewAnalyzerValidates(t *testing.T) {
	p := NewDefaultParams()
	p.Window = "triangle"
	if _, err := NewAnalyzer(p); err == nil {
		t.Fatal("NewAnalyzer() expected error for unknown window")
	}
	p = NewDefaultParams()
	p.WindowLength = 1023
	if _, err := NewAnalyzer(p); err == nil {
		t.Fatal("NewAnalyzer() expected error for odd window length")
	}
	a, err := NewAnalyzer(nil)
	if err != nil {
		t.Fatal(err)
	}
	if got := a.Params(); got != *NewDefaultParams() {
		t.Fatalf("Params() = %+v, want defaults", got)
	}
}

func TestParamsValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Params)
	}{
		{"negative cutoff", func(p *Params) { p.LowCutoffHz = -1 }},
		{"nan cutoff", func(p *Params) { p.MidCutoffHz = math.NaN() }},
		{"short window", func(p *Params) { p.WindowLength = 1 }},
		{"odd window", func(p *Params) { p.WindowLength = 1023 }},
		{"full overlap", func(p *Params) { p.Overlap = 1 }},
		{"zero db scale", func(p *Params) { p.DBScale = 0 }},
		{"zero knee", func(p *Params) { p.KneeOffsetDB = 0 }},
		{"negative target", func(p *Params) { p.TargetRT60 = -0.1 }},
		{"negative resonance floor", func(p *Params) { p.ResonanceMinHz = -5 }},
		{"unknown window", func(p *Params) { p.Window = "kaiser" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewDefaultParams()
			tt.modify(p)
			if err := p.Validate(); err == nil {
				t.Fatal("Validate() expected error")
			}
		})
	}
	if err := NewDefaultParams().Validate(); err != nil {
		t.Fatalf("default params invalid: %v", err)
	}
	c := NewDefaultParams().Clone()
	c.Window = "Blackman"
	if err := c.Validate(); err != nil {
		t.Fatalf("Validate() case-insensitive window: %v", err)
	}
}
