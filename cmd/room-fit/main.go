package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/cwbudde/algo-rt60/analysis"
	"github.com/cwbudde/algo-rt60/audiofile"
	fitcommon "github.com/cwbudde/algo-rt60/internal/fitcommon"
	"github.com/cwbudde/algo-rt60/irsynth"
	"github.com/cwbudde/algo-rt60/preset"
)

func main() {
	referencePath := flag.String("reference", "", "Reference recording (.wav, .mp3 or .m4a)")
	presetPath := flag.String("preset", "", "Analysis preset JSON path")
	builtin := flag.String("builtin", "default", "Built-in analysis preset when -preset is empty")
	outputIR := flag.String("output-ir", "out/room-fit/best.wav", "Path to write the best synthesised response")
	reportPath := flag.String("report", "", "Report JSON path (default: <output-ir>.report.json)")
	optimize := flag.String("optimize", "decay,mix", "Comma-separated knob groups to optimize: decay, tone, mix")
	sampleRate := flag.Int("sample-rate", 0, "Final synthesis/analysis sample rate (0 uses the reference rate)")
	optSampleRate := flag.Int("opt-sample-rate", 16000, "Optimization-loop sample rate (0 uses --sample-rate)")
	duration := flag.Float64("duration", 0, "Synthesised response length in seconds (0 uses the reference length)")
	synthSeed := flag.Int64("synth-seed", 1, "Noise seed of the synthesised room")
	seed := flag.Int64("seed", 1, "Random seed")
	timeBudget := flag.Float64("time-budget", 60.0, "Optimization time budget in seconds")
	maxEvals := flag.Int("max-evals", 2000, "Maximum objective evaluations")
	reportEvery := flag.Int("report-every", 20, "Print progress every N evaluations")
	checkpointEvery := flag.Int("checkpoint-every", 1, "Write checkpoint every N best-score improvements")
	refineTopK := flag.Int("refine-top-k", 3, "After optimization, re-evaluate best N candidates at the final sample rate")
	topK := flag.Int("top-k", 5, "How many top candidates to keep in report")
	resume := flag.Bool("resume", true, "Resume from previous best_knobs report when available")
	resumeReport := flag.String("resume-report", "", "Optional report JSON path to resume from (default: current report path)")
	workers := flag.String("workers", "1", "Parallel optimization workers running independent Mayfly rounds (number or 'auto')")

	mayflyVariant := flag.String("mayfly-variant", "desma", "Mayfly variant: "+strings.Join(fitcommon.MayflyVariants, "|"))
	mayflyPop := flag.Int("mayfly-pop", 10, "Male and female population size per Mayfly run")
	mayflyRoundEvals := flag.Int("mayfly-round-evals", 240, "Target eval budget per Mayfly round")
	flag.Parse()

	if *referencePath == "" {
		die("--reference is required")
	}
	groups, err := parseOptimizeGroups(*optimize)
	if err != nil {
		die("invalid --optimize: %v", err)
	}
	if *maxEvals < 1 {
		die("max-evals must be >= 1")
	}
	if *timeBudget <= 0 {
		die("time-budget must be > 0")
	}
	if *reportEvery < 1 {
		*reportEvery = 1
	}
	if *checkpointEvery < 1 {
		*checkpointEvery = 1
	}
	if *mayflyPop < 2 {
		*mayflyPop = 2
	}
	if *mayflyRoundEvals < *mayflyPop*2 {
		*mayflyRoundEvals = *mayflyPop * 2
	}
	if *topK < 1 {
		*topK = 1
	}
	if *refineTopK < 1 {
		*refineTopK = 1
	}
	if *refineTopK > *topK {
		*refineTopK = *topK
	}
	parsedWorkers, err := parseWorkersFlag(*workers)
	if err != nil {
		die("invalid workers value: %v", err)
	}
	if _, err := fitcommon.NewMayflyConfig(*mayflyVariant, *mayflyPop, 1, 1); err != nil {
		die("invalid --mayfly-variant: %v", err)
	}

	params, err := preset.Resolve(*presetPath, *builtin)
	if err != nil {
		die("failed to load preset: %v", err)
	}
	analyzer, err := analysis.NewAnalyzer(params)
	if err != nil {
		die("invalid analysis parameters: %v", err)
	}

	refRaw, err := audiofile.DecodeMono(*referencePath)
	if err != nil {
		die("failed to read reference: %v", err)
	}
	if *sampleRate <= 0 {
		*sampleRate = refRaw.SampleRate()
	}
	if *optSampleRate <= 0 {
		*optSampleRate = *sampleRate
	}
	refOpt, err := analyzeAt(analyzer, refRaw, *optSampleRate)
	if err != nil {
		die("failed to analyse optimization reference: %v", err)
	}
	refFull, err := analyzeAt(analyzer, refRaw, *sampleRate)
	if err != nil {
		die("failed to analyse full reference: %v", err)
	}
	printReference(refFull)

	base := irsynth.DefaultConfig()
	base.Seed = *synthSeed
	base.DurationS = *duration
	if base.DurationS <= 0 {
		base.DurationS = refRaw.Duration()
	}
	if base.PreDelayS >= base.DurationS/2 {
		base.PreDelayS = base.DurationS / 4
	}

	defs, initCand := initCandidate(base, refFull, groups)
	if *reportPath == "" {
		*reportPath = *outputIR + ".report.json"
	}
	if *resume {
		resumePath := *resumeReport
		if resumePath == "" {
			resumePath = *reportPath
		}
		if resumed, ok, err := loadCandidateFromReport(resumePath, defs, initCand); err != nil {
			fmt.Fprintf(os.Stderr, "resume skipped (%s): %v\n", resumePath, err)
		} else if ok {
			initCand = resumed
			fmt.Printf("Resumed candidate from %s\n", resumePath)
		}
	}

	cfg := &optimizationConfig{
		reference:        refOpt,
		finalReference:   refFull,
		analyzer:         analyzer,
		baseSynth:        base,
		defs:             defs,
		initCandidate:    initCand,
		sampleRate:       *optSampleRate,
		finalSampleRate:  *sampleRate,
		seed:             *seed,
		timeBudget:       *timeBudget,
		maxEvals:         *maxEvals,
		reportEvery:      *reportEvery,
		checkpointEvery:  *checkpointEvery,
		refineTopK:       *refineTopK,
		mayflyVariant:    *mayflyVariant,
		mayflyPop:        *mayflyPop,
		mayflyRoundEvals: *mayflyRoundEvals,
		workers:          parsedWorkers,
		topK:             *topK,
		out: outputPaths{
			ir:        *outputIR,
			report:    *reportPath,
			reference: *referencePath,
			preset:    *presetPath,
		},
	}

	result, err := runOptimization(cfg)
	if err != nil {
		die("optimization failed: %v", err)
	}

	variant := strings.ToLower(*mayflyVariant)
	if err := writeOutputs(cfg.out, variant, result.elapsed, result.evals, defs, result.best, result.bestEval, result.checkpoints, result.top); err != nil {
		die("failed to write outputs: %v", err)
	}

	m := result.bestEval.metrics
	fmt.Printf("Done evals=%d elapsed=%.1fs best_score=%.4f best_similarity=%.2f%% rt60=%.3fs (reference %.3fs) variant=%s\n",
		result.evals, result.elapsed, m.Score, m.Similarity*100.0, m.CandidateRT60, m.ReferenceRT60, variant)
}

func parseWorkersFlag(raw string) (int, error) {
	return fitcommon.ParseWorkers(raw)
}

// analyzeAt resamples w to rate and analyses it.
func analyzeAt(a *analysis.Analyzer, w analysis.Waveform, rate int) (*analysis.Result, error) {
	rw, err := audiofile.Resample(w, rate)
	if err != nil {
		return nil, err
	}
	return a.Analyze(rw)
}

func printReference(r *analysis.Result) {
	fmt.Printf("Reference average RT60 %.3f s", r.AverageRT60)
	for _, b := range r.Bands() {
		est := r.Decay[b]
		fmt.Printf(" %s=%.3f s(%s)", b, est.RT60, est.Status)
	}
	fmt.Printf(" resonance=%.1f Hz\n", r.Resonance.FrequencyHz)
}

func loadCandidateFromReport(path string, defs []knobDef, fallback candidate) (candidate, bool, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fallback, false, nil
		}
		return fallback, false, err
	}

	var rep struct {
		BestKnobs map[string]float64 `json:"best_knobs"`
	}
	if err := json.Unmarshal(b, &rep); err != nil {
		return fallback, false, err
	}
	if len(rep.BestKnobs) == 0 {
		return fallback, false, nil
	}

	c, updated := candidateFromKnobs(rep.BestKnobs, defs, fallback)
	if !updated {
		return fallback, false, nil
	}
	return c, true, nil
}

func die(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
