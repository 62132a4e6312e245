package main

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/cwbudde/algo-rt60/analysis"
	"github.com/cwbudde/algo-rt60/audiofile"
	"github.com/cwbudde/algo-rt60/irsynth"
)

type outputPaths struct {
	ir        string
	report    string
	reference string
	preset    string
}

type synthReport struct {
	SampleRate    int     `json:"sample_rate"`
	DurationS     float64 `json:"duration_s"`
	PreDelayS     float64 `json:"pre_delay_s"`
	Modes         int     `json:"modes"`
	Seed          int64   `json:"seed"`
	Brightness    float64 `json:"brightness"`
	Density       float64 `json:"density"`
	DirectLevel   float64 `json:"direct_level"`
	EarlyCount    int     `json:"early_count"`
	LateLevel     float64 `json:"late_level"`
	LowRT60S      float64 `json:"low_rt60_s"`
	HighRT60S     float64 `json:"high_rt60_s"`
	NormalizePeak float64 `json:"normalize_peak"`
}

type runReport struct {
	ReferencePath   string             `json:"reference_path"`
	PresetPath      string             `json:"preset_path,omitempty"`
	OutputIR        string             `json:"output_ir"`
	SampleRate      int                `json:"sample_rate"`
	DurationSec     float64            `json:"elapsed_seconds"`
	Evaluations     int                `json:"evaluations"`
	MayflyVariant   string             `json:"mayfly_variant"`
	BestScore       float64            `json:"best_score"`
	BestSimilarity  float64            `json:"best_similarity"`
	BestMetrics     analysis.Metrics   `json:"best_metrics"`
	BestKnobs       map[string]float64 `json:"best_knobs"`
	BestSynth       synthReport        `json:"best_synth"`
	BandRT60        map[string]float64 `json:"band_rt60_s"`
	CheckpointCount int                `json:"checkpoint_count"`
	TopCandidates   []topCandidate     `json:"top_candidates,omitempty"`
}

func writeOutputs(
	out outputPaths,
	variant string,
	elapsed float64,
	evals int,
	defs []knobDef,
	best candidate,
	bestEval optimizationEval,
	checkpoints int,
	top []topCandidate,
) error {
	if out.ir != "" && len(bestEval.samples) > 0 {
		w, err := analysis.NewWaveform(bestEval.samples, bestEval.synth.SampleRate)
		if err != nil {
			return err
		}
		if err := audiofile.WriteMonoWAV(out.ir, w); err != nil {
			return err
		}
	}

	rep := runReport{
		ReferencePath:   out.reference,
		PresetPath:      out.preset,
		OutputIR:        out.ir,
		SampleRate:      bestEval.synth.SampleRate,
		DurationSec:     elapsed,
		Evaluations:     evals,
		MayflyVariant:   variant,
		BestScore:       bestEval.metrics.Score,
		BestSimilarity:  bestEval.metrics.Similarity,
		BestMetrics:     bestEval.metrics,
		BestKnobs:       knobMap(defs, best),
		BestSynth:       newSynthReport(bestEval.synth),
		BandRT60:        bandRT60(bestEval.result),
		CheckpointCount: checkpoints,
		TopCandidates:   top,
	}
	return writeJSON(out.report, rep)
}

func newSynthReport(c irsynth.Config) synthReport {
	return synthReport{
		SampleRate:    c.SampleRate,
		DurationS:     c.DurationS,
		PreDelayS:     c.PreDelayS,
		Modes:         c.Modes,
		Seed:          c.Seed,
		Brightness:    c.Brightness,
		Density:       c.Density,
		DirectLevel:   c.DirectLevel,
		EarlyCount:    c.EarlyCount,
		LateLevel:     c.LateLevel,
		LowRT60S:      c.LowRT60S,
		HighRT60S:     c.HighRT60S,
		NormalizePeak: c.NormalizePeak,
	}
}

// bandRT60 lists the RT60 of every band that carried a signal.
func bandRT60(r *analysis.Result) map[string]float64 {
	out := make(map[string]float64, 3)
	if r == nil {
		return out
	}
	for _, b := range r.Bands() {
		if est := r.Decay[b]; est.Status != analysis.DecayNoSignal {
			out[b.String()] = est.RT60
		}
	}
	return out
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	b = append(b, '\n')
	return os.WriteFile(path, b, 0o644)
}
