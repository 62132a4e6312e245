package analysis

import vecmath "github.com/cwbudde/algo-vecmath"

// ResonantFrequency is the bin with the highest time-averaged power.
type ResonantFrequency struct {
	FrequencyHz float64 `json:"frequency_hz"`
	BinIndex    int     `json:"bin_index"`
	MeanPower   float64 `json:"mean_power"`
}

// AveragePower returns the mean power over all frames for every bin.
func AveragePower(s *Spectrogram) []float64 {
	sums := make([]float64, len(s.power))
	frames := len(s.times)
	if frames == 0 {
		return sums
	}
	for k, row := range s.power {
		var sum float64
		for _, v := range row {
			sum += v
		}
		sums[k] = sum
	}
	means := make([]float64, len(sums))
	vecmath.ScaleBlock(means, sums, 1/float64(frames))
	return means
}

// EstimateResonance returns the bin at or above minHz whose mean power is
// largest. Ties go to the lowest frequency.
func EstimateResonance(s *Spectrogram, minHz float64) ResonantFrequency {
	return resonanceFrom(s.frequencies, AveragePower(s), minHz)
}

func resonanceFrom(freqs, means []float64, minHz float64) ResonantFrequency {
	best := -1
	for k, m := range means {
		if freqs[k] < minHz || !isFinite(m) {
			continue
		}
		if best < 0 || m > means[best] {
			best = k
		}
	}
	if best < 0 {
		// Everything was filtered out; fall back to the full axis.
		if minHz > 0 {
			return resonanceFrom(freqs, means, 0)
		}
		return ResonantFrequency{}
	}
	return ResonantFrequency{
		FrequencyHz: freqs[best],
		BinIndex:    best,
		MeanPower:   means[best],
	}
}
