package analysis

import "testing"

func BenchmarkComputeSpectrogram(b *testing.B) {
	const fs = 48000
	w := mustWaveform(b, decayingTone(fs, 3, 0.2, toneFreqs, toneRT60s), fs)
	cfg := DefaultSTFTConfig()
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = ComputeSpectrogram(w, cfg)
	}
}

func BenchmarkAnalyze(b *testing.B) {
	const fs = 48000
	w := mustWaveform(b, decayingTone(fs, 3, 0.2, toneFreqs, toneRT60s), fs)
	p := NewDefaultParams()
	p.ReferenceMetrics = false
	a, err := NewAnalyzer(p)
	if err != nil {
		b.Fatal(err)
	}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = a.Analyze(w)
	}
}
