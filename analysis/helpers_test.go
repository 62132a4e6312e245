package analysis

import (
	"math"
	"testing"
)

// decayTrace builds a trace sampled every dt seconds. Levels stay at floorDB
// (use math.Inf(-1) for silence) until onset, then fall linearly from peakDB
// at slopeDBPerS.
func decayTrace(n int, dt, onset, peakDB, slopeDBPerS, floorDB float64) BandTrace {
	times := make([]float64, n)
	levels := make([]float64, n)
	for i := range times {
		t := float64(i) * dt
		times[i] = t
		if t < onset-dt/2 {
			levels[i] = floorDB
			continue
		}
		levels[i] = peakDB - slopeDBPerS*(t-onset)
	}
	return BandTrace{Band: BandMid, BinIndex: 7, FrequencyHz: 1000, Times: times, LevelsDB: levels}
}

// decayingTone returns silence until onset followed by sines whose amplitudes
// fall 60 dB over the paired rt60 (seconds).
func decayingTone(sampleRate int, seconds, onset float64, freqs, rt60s []float64) []float64 {
	n := int(seconds * float64(sampleRate))
	out := make([]float64, n)
	start := int(onset * float64(sampleRate))
	for i := start; i < n; i++ {
		t := float64(i-start) / float64(sampleRate)
		for j, f := range freqs {
			amp := math.Pow(10, -3*t/rt60s[j])
			out[i] += amp * math.Sin(2*math.Pi*f*t)
		}
	}
	return out
}

func mustWaveform(t testing.TB, samples []float64, sampleRate int) Waveform {
	t.Helper()
	w, err := NewWaveform(samples, sampleRate)
	if err != nil {
		t.Fatalf("NewWaveform() error = %v", err)
	}
	return w
}

func approxEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}
