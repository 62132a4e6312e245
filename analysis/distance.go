package analysis

import (
	"math"
)

// Weights of the normalised sub-metrics in Metrics.Score.
const (
	WeightDecay     = 0.60
	WeightAverage   = 0.25
	WeightResonance = 0.15
)

// Metrics contains distance and similarity measurements between two analyses.
type Metrics struct {
	BandRT60Diff map[string]float64 `json:"band_rt60_diff_s"`

	RT60RMSE           float64 `json:"rt60_rmse_s"`
	AverageRT60Diff    float64 `json:"average_rt60_diff_s"`
	ResonanceOctaves   float64 `json:"resonance_octaves"`
	ComparedBands      int     `json:"compared_bands"`
	ReferenceRT60      float64 `json:"reference_rt60_s"`
	CandidateRT60      float64 `json:"candidate_rt60_s"`
	DecayNorm          float64 `json:"decay_norm"`
	AverageNorm        float64 `json:"average_norm"`
	ResonanceNorm      float64 `json:"resonance_norm"`
	Dominant           string  `json:"dominant"`
	ReferenceResonance float64 `json:"reference_resonance_hz"`
	CandidateResonance float64 `json:"candidate_resonance_hz"`

	Score      float64 `json:"score"`
	Similarity float64 `json:"similarity"`
}

// Compare returns decay and resonance distances between two results and a
// combined score in [0,1] (0 best).
func Compare(reference, candidate *Result) Metrics {
	m := Metrics{BandRT60Diff: make(map[string]float64, 3)}
	if reference == nil || candidate == nil {
		m.Score = 1.0
		m.Similarity = 0.0
		return m
	}

	var sumSq, relSum float64
	for _, b := range AllBands() {
		re, okR := reference.Decay[b]
		ce, okC := candidate.Decay[b]
		if !okR || !okC || re.Status == DecayNoSignal || ce.Status == DecayNoSignal {
			continue
		}
		d := ce.RT60 - re.RT60
		m.BandRT60Diff[b.String()] = d
		sumSq += d * d
		relSum += math.Abs(d) / math.Max(re.RT60, 0.05)
		m.ComparedBands++
	}
	if m.ComparedBands == 0 {
		m.Score = 1.0
		m.Similarity = 0.0
		return m
	}
	m.RT60RMSE = math.Sqrt(sumSq / float64(m.ComparedBands))

	m.ReferenceRT60 = reference.AverageRT60
	m.CandidateRT60 = candidate.AverageRT60
	m.AverageRT60Diff = m.CandidateRT60 - m.ReferenceRT60

	m.ReferenceResonance = reference.Resonance.FrequencyHz
	m.CandidateResonance = candidate.Resonance.FrequencyHz
	m.ResonanceOctaves = octaveDistance(m.ReferenceResonance, m.CandidateResonance)

	// Normalize sub-metrics and combine.
	m.DecayNorm = clamp01(relSum / float64(m.ComparedBands))
	m.AverageNorm = clamp01(math.Abs(m.AverageRT60Diff) / math.Max(m.ReferenceRT60, 0.05))
	m.ResonanceNorm = clamp01(m.ResonanceOctaves / 3.0)
	m.Score = clamp01(WeightDecay*m.DecayNorm + WeightAverage*m.AverageNorm + WeightResonance*m.ResonanceNorm)
	m.Similarity = clamp01(math.Exp(-4.0 * m.Score))
	m.Dominant = dominant(m)

	return m
}

func octaveDistance(a, b float64) float64 {
	const floorHz = 1.0
	a = math.Max(a, floorHz)
	b = math.Max(b, floorHz)
	return math.Abs(math.Log2(b / a))
}

func dominant(m Metrics) string {
	name := "decay"
	best := WeightDecay * m.DecayNorm
	if v := WeightAverage * m.AverageNorm; v > best {
		name, best = "average", v
	}
	if v := WeightResonance * m.ResonanceNorm; v > best {
		name = "resonance"
	}
	return name
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
