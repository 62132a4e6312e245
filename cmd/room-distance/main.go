// Command room-distance compares the decay of two recordings, or of a
// recording and a synthesised room.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/cwbudde/algo-rt60/analysis"
	"github.com/cwbudde/algo-rt60/audiofile"
	"github.com/cwbudde/algo-rt60/irsynth"
	"github.com/cwbudde/algo-rt60/preset"
)

func main() {
	referencePath := flag.String("reference", "", "Reference recording (.wav, .mp3 or .m4a)")
	candidatePath := flag.String("candidate", "", "Candidate recording; if empty, synthesise the candidate room")
	presetPath := flag.String("preset", "", "Analysis preset JSON path")
	builtin := flag.String("builtin", "default", "Built-in analysis preset when -preset is empty")
	sampleRate := flag.Int("sample-rate", 0, "Analysis sample rate in Hz (0 uses the reference rate)")
	writeCandidate := flag.String("write-candidate", "", "Optional path to write the synthesised candidate WAV")
	jsonOut := flag.Bool("json", false, "Print metrics as JSON")

	synth := irsynth.DefaultConfig()
	flag.Float64Var(&synth.LowRT60S, "low-rt60", synth.LowRT60S, "Synthesised RT60 at 100 Hz and below (s)")
	flag.Float64Var(&synth.HighRT60S, "high-rt60", synth.HighRT60S, "Synthesised RT60 at 8 kHz and above (s)")
	flag.Float64Var(&synth.Brightness, "brightness", synth.Brightness, "Synthesised brightness")
	flag.Float64Var(&synth.LateLevel, "late", synth.LateLevel, "Synthesised late-tail level")
	flag.Int64Var(&synth.Seed, "seed", synth.Seed, "Synthesis seed")
	flag.Parse()

	if *referencePath == "" {
		die("--reference is required")
	}
	params, err := preset.Resolve(*presetPath, *builtin)
	if err != nil {
		die("failed to load preset: %v", err)
	}
	analyzer, err := analysis.NewAnalyzer(params)
	if err != nil {
		die("invalid analysis parameters: %v", err)
	}

	ref, err := audiofile.DecodeMono(*referencePath)
	if err != nil {
		die("failed to read reference: %v", err)
	}
	if *sampleRate <= 0 {
		*sampleRate = ref.SampleRate()
	}
	if ref, err = audiofile.Resample(ref, *sampleRate); err != nil {
		die("failed to resample reference: %v", err)
	}

	var cand analysis.Waveform
	if *candidatePath != "" {
		cand, err = audiofile.DecodeMono(*candidatePath)
		if err != nil {
			die("failed to read candidate: %v", err)
		}
		if cand, err = audiofile.Resample(cand, *sampleRate); err != nil {
			die("failed to resample candidate: %v", err)
		}
	} else {
		synth.SampleRate = *sampleRate
		synth.DurationS = ref.Duration()
		if synth.PreDelayS >= synth.DurationS/2 {
			synth.PreDelayS = synth.DurationS / 4
		}
		cand, err = synthesise(synth)
		if err != nil {
			die("failed to synthesise candidate: %v", err)
		}
		if *writeCandidate != "" {
			if err := audiofile.WriteMonoWAV(*writeCandidate, cand); err != nil {
				die("failed to write candidate wav: %v", err)
			}
		}
	}

	refRes, err := analyzer.Analyze(ref)
	if err != nil {
		die("failed to analyse reference: %v", err)
	}
	candRes, err := analyzer.Analyze(cand)
	if err != nil {
		die("failed to analyse candidate: %v", err)
	}

	metrics := analysis.Compare(refRes, candRes)
	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(metrics); err != nil {
			die("json encode failed: %v", err)
		}
		return
	}
	printMetrics(os.Stdout, metrics)
}

func synthesise(cfg irsynth.Config) (analysis.Waveform, error) {
	samples, err := irsynth.Generate(cfg)
	if err != nil {
		return analysis.Waveform{}, err
	}
	return analysis.NewWaveform(samples, cfg.SampleRate)
}

func printMetrics(out io.Writer, m analysis.Metrics) {
	fmt.Fprintf(out, "Compared bands:   %d\n", m.ComparedBands)
	for _, b := range analysis.AllBands() {
		if d, ok := m.BandRT60Diff[b.String()]; ok {
			fmt.Fprintf(out, "  %-5s RT60 diff %+.3f s\n", b, d)
		}
	}
	fmt.Fprintln(out)
	fmt.Fprintf(out, "Component        Raw          Norm   Weight  Contribution\n")
	fmt.Fprintf(out, "─────────────────────────────────────────────────────────\n")
	printComp := func(name string, raw string, norm, weight float64, dominant bool) {
		contrib := norm * weight
		marker := ""
		if dominant {
			marker = " ◄"
		}
		fmt.Fprintf(out, "%-16s %-12s %5.1f%%  ×%.2f   → %.4f%s\n", name, raw, norm*100, weight, contrib, marker)
	}
	printComp("Band decay", fmt.Sprintf("%.3f s", m.RT60RMSE), m.DecayNorm, analysis.WeightDecay, m.Dominant == "decay")
	printComp("Average RT60", fmt.Sprintf("%+.3f s", m.AverageRT60Diff), m.AverageNorm, analysis.WeightAverage, m.Dominant == "average")
	printComp("Resonance", fmt.Sprintf("%.2f oct", m.ResonanceOctaves), m.ResonanceNorm, analysis.WeightResonance, m.Dominant == "resonance")
	fmt.Fprintf(out, "─────────────────────────────────────────────────────────\n")
	fmt.Fprintf(out, "Score:            %.4f  (0 best, 1 worst)\n", m.Score)
	fmt.Fprintf(out, "Similarity:       %.2f%%\n", m.Similarity*100.0)
	fmt.Fprintf(out, "Dominant factor:  %s\n", m.Dominant)
	fmt.Fprintf(out, "\nAverage RT60: ref=%.3f s  cand=%.3f s\n", m.ReferenceRT60, m.CandidateRT60)
	fmt.Fprintf(out, "Resonance:    ref=%.1f Hz  cand=%.1f Hz\n", m.ReferenceResonance, m.CandidateResonance)
}

func die(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
