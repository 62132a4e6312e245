package analysis

import (
	"math"
	"testing"
)

func syntheticResult(rt60s [3]float64, resonanceHz float64) *Result {
	r := &Result{Decay: make(map[Band]DecayEstimate, 3)}
	for i, b := range AllBands() {
		r.Decay[b] = DecayEstimate{Band: b, RT60: rt60s[i]}
	}
	r.AverageRT60, r.DeviationFromTarget = Aggregate(r.Decay, 0.5)
	r.Resonance = ResonantFrequency{FrequencyHz: resonanceHz}
	return r
}

func TestCompareIdentical(t *testing.T) {
	a := syntheticResult([3]float64{1.2, 0.9, 0.6}, 440)
	m := Compare(a, a)
	if m.Score != 0 || m.Similarity != 1 {
		t.Fatalf("Score/Similarity = %v/%v, want 0/1", m.Score, m.Similarity)
	}
	if m.ComparedBands != 3 || m.RT60RMSE != 0 || m.ResonanceOctaves != 0 {
		t.Fatalf("unexpected metrics %+v", m)
	}
}

func TestCompareRanksCloserCandidate(t *testing.T) {
	ref := syntheticResult([3]float64{1.2, 0.9, 0.6}, 440)
	near := syntheticResult([3]float64{1.25, 0.95, 0.62}, 450)
	far := syntheticResult([3]float64{2.4, 0.3, 1.5}, 3000)

	mn := Compare(ref, near)
	mf := Compare(ref, far)
	if !(mn.Score < mf.Score) {
		t.Fatalf("near score %v should be below far score %v", mn.Score, mf.Score)
	}
	if !(mn.Similarity > mf.Similarity) {
		t.Fatalf("near similarity %v should exceed far similarity %v", mn.Similarity, mf.Similarity)
	}
	if mf.Score < 0 || mf.Score > 1 {
		t.Fatalf("score %v outside [0,1]", mf.Score)
	}
	if d := mn.BandRT60Diff["low"]; !approxEqual(d, 0.05, 1e-12) {
		t.Fatalf("low band diff = %v, want 0.05", d)
	}
	if !approxEqual(mf.ResonanceOctaves, math.Log2(3000.0/440), 1e-12) {
		t.Fatalf("ResonanceOctaves = %v", mf.ResonanceOctaves)
	}
	if mf.Dominant != "decay" {
		t.Fatalf("Dominant = %q, want decay", mf.Dominant)
	}
}

func TestCompareSkipsNoSignalBands(t *testing.T) {
	ref := syntheticResult([3]float64{1, 1, 1}, 500)
	cand := syntheticResult([3]float64{1, 1, 1}, 500)
	cand.Decay[BandHigh] = DecayEstimate{Band: BandHigh, Status: DecayNoSignal}
	m := Compare(ref, cand)
	if m.ComparedBands != 2 {
		t.Fatalf("ComparedBands = %d, want 2", m.ComparedBands)
	}
	if _, ok := m.BandRT60Diff["high"]; ok {
		t.Fatal("no-signal band should not be compared")
	}
}

func TestCompareNil(t *testing.T) {
	m := Compare(nil, syntheticResult([3]float64{1, 1, 1}, 500))
	if m.Score != 1 || m.Similarity != 0 {
		t.Fatalf("Score/Similarity = %v/%v, want 1/0", m.Score, m.Similarity)
	}
}
