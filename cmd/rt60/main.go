// Command rt60 estimates per-band reverberation time and the resonant
// frequency of recorded claps.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/cwbudde/algo-rt60/analysis"
	"github.com/cwbudde/algo-rt60/audiofile"
	fitcommon "github.com/cwbudde/algo-rt60/internal/fitcommon"
	"github.com/cwbudde/algo-rt60/preset"
)

// overrides holds flag values that replace preset fields when set.
type overrides struct {
	low, mid, high float64
	windowLength   int
	overlap        float64
	window         string
	dbScale        float64
	kneeDB         float64
	target         float64
	resonanceMin   float64
	noReference    bool
}

type runOptions struct {
	sampleRate int
	curvesDir  string
	exportDir  string
	ffmpeg     string
	ffprobe    string
}

func main() {
	presetPath := flag.String("preset", "", "Analysis preset JSON path")
	builtin := flag.String("builtin", "default", "Built-in preset when -preset is empty ("+strings.Join(preset.Names(), "|")+")")
	printPreset := flag.String("print-preset", "", "Write the effective parameters as preset JSON to this path")

	var ov overrides
	d := analysis.NewDefaultParams()
	flag.Float64Var(&ov.low, "low", d.LowCutoffHz, "Low band cutoff in Hz")
	flag.Float64Var(&ov.mid, "mid", d.MidCutoffHz, "Mid band cutoff in Hz")
	flag.Float64Var(&ov.high, "high", d.HighCutoffHz, "High band cutoff in Hz")
	flag.IntVar(&ov.windowLength, "window-length", d.WindowLength, "STFT window length in samples")
	flag.Float64Var(&ov.overlap, "overlap", d.Overlap, "STFT overlap fraction in [0,1)")
	flag.StringVar(&ov.window, "window", d.Window, "STFT window: hann|hamming|blackman|rectangular")
	flag.Float64Var(&ov.dbScale, "db-scale", d.DBScale, "Multiplier of log10(power)")
	flag.Float64Var(&ov.kneeDB, "knee-db", d.KneeOffsetDB, "Knee offset below the peak in dB")
	flag.Float64Var(&ov.target, "target", d.TargetRT60, "Target RT60 in seconds")
	flag.Float64Var(&ov.resonanceMin, "resonance-min", d.ResonanceMinHz, "Ignore bins below this frequency in the resonance search")
	flag.BoolVar(&ov.noReference, "no-reference", false, "Skip the broadband ISO 3382 cross-check")

	var opts runOptions
	flag.IntVar(&opts.sampleRate, "sample-rate", 0, "Resample input to this rate before analysis (0 keeps the file rate)")
	flag.StringVar(&opts.curvesDir, "curves", "", "Directory for per-file curve JSON (band traces, resonance, waveform)")
	flag.StringVar(&opts.exportDir, "export-wav", "", "Directory for the decoded mono WAV of each input")
	flag.StringVar(&opts.ffmpeg, "ffmpeg", "ffmpeg", "ffmpeg binary used for .m4a input")
	flag.StringVar(&opts.ffprobe, "ffprobe", "ffprobe", "ffprobe binary used for .m4a input")

	jsonOut := flag.Bool("json", false, "Print results as JSON")
	workers := flag.String("workers", "auto", "Files analysed in parallel (number or 'auto')")
	timeout := flag.Duration("timeout", 0, "Abort analysis after this duration (0 disables)")
	flag.Parse()

	params, err := preset.Resolve(*presetPath, *builtin)
	if err != nil {
		die("failed to load preset: %v", err)
	}
	set := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })
	applyOverrides(params, ov, set)
	analyzer, err := analysis.NewAnalyzer(params)
	if err != nil {
		die("invalid parameters: %v", err)
	}

	if *printPreset != "" {
		if err := preset.WriteJSON(*printPreset, params); err != nil {
			die("failed to write preset: %v", err)
		}
		fmt.Fprintf(os.Stderr, "Wrote %s\n", *printPreset)
	}

	files := flag.Args()
	if len(files) == 0 {
		if *printPreset != "" {
			return
		}
		die("usage: rt60 [flags] file...")
	}
	parsedWorkers, err := fitcommon.ParseWorkers(*workers)
	if err != nil {
		die("invalid workers value: %v", err)
	}

	ctx := context.Background()
	if *timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, *timeout)
		defer cancel()
	}

	reports := analyzeFiles(ctx, analyzer, files, opts, parsedWorkers)
	failed := writeReports(os.Stdout, os.Stderr, reports, *jsonOut)
	if failed > 0 {
		fmt.Fprintf(os.Stderr, "%d of %d files failed\n", failed, len(files))
		os.Exit(1)
	}
}

// applyOverrides copies flag values that were explicitly set onto p.
func applyOverrides(p *analysis.Params, ov overrides, set map[string]bool) {
	if set["low"] {
		p.LowCutoffHz = ov.low
	}
	if set["mid"] {
		p.MidCutoffHz = ov.mid
	}
	if set["high"] {
		p.HighCutoffHz = ov.high
	}
	if set["window-length"] {
		p.WindowLength = ov.windowLength
	}
	if set["overlap"] {
		p.Overlap = ov.overlap
	}
	if set["window"] {
		p.Window = ov.window
	}
	if set["db-scale"] {
		p.DBScale = ov.dbScale
	}
	if set["knee-db"] {
		p.KneeOffsetDB = ov.kneeDB
	}
	if set["target"] {
		p.TargetRT60 = ov.target
	}
	if set["resonance-min"] {
		p.ResonanceMinHz = ov.resonanceMin
	}
	if set["no-reference"] && ov.noReference {
		p.ReferenceMetrics = false
	}
}

// analyzeFiles analyses every file independently. Reports keep input order.
func analyzeFiles(ctx context.Context, a *analysis.Analyzer, files []string, opts runOptions, workers int) []fileReport {
	reports := make([]fileReport, len(files))
	for i, f := range files {
		reports[i] = fileReport{Path: f, Error: "not analysed"}
	}
	fitcommon.ForEach(ctx, len(files), workers, func(ctx context.Context, i int) {
		reports[i] = analyzeFile(ctx, a, files[i], opts)
	})
	if err := ctx.Err(); err != nil {
		for i := range reports {
			if reports[i].Error == "not analysed" {
				reports[i].Error = err.Error()
			}
		}
	}
	return reports
}

func analyzeFile(ctx context.Context, a *analysis.Analyzer, path string, opts runOptions) fileReport {
	rep := fileReport{Path: path}
	fail := func(err error) fileReport {
		rep.Error = err.Error()
		return rep
	}

	w, err := audiofile.DecodeMonoContext(ctx, path, audiofile.WithFFmpeg(opts.ffmpeg), audiofile.WithFFprobe(opts.ffprobe))
	if err != nil {
		return fail(err)
	}
	if opts.sampleRate > 0 {
		if w, err = audiofile.Resample(w, opts.sampleRate); err != nil {
			return fail(err)
		}
	}
	res, err := a.AnalyzeContext(ctx, w)
	if err != nil {
		return fail(err)
	}

	p := a.Params()
	rep = newFileReport(path, &p, res)
	if opts.curvesDir != "" {
		out := curvesPath(opts.curvesDir, path)
		if err := writeJSON(out, newCurvesFile(path, res)); err != nil {
			return fail(fmt.Errorf("write curves: %w", err))
		}
		rep.Curves = out
	}
	if opts.exportDir != "" {
		out := exportPath(opts.exportDir, path)
		if err := audiofile.WriteMonoWAV(out, res.Waveform()); err != nil {
			return fail(fmt.Errorf("export wav: %w", err))
		}
		rep.ExportedWAV = out
	}
	return rep
}

// writeReports prints successful reports to out and errors to errOut, and
// returns the number of failed files. In JSON mode every report, including
// failed ones, goes to out as one array.
func writeReports(out, errOut io.Writer, reports []fileReport, asJSON bool) int {
	failed := 0
	for _, r := range reports {
		if r.Error != "" {
			failed++
			fmt.Fprintf(errOut, "%s: %s\n", r.Path, r.Error)
		}
	}
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(reports); err != nil {
			fmt.Fprintf(errOut, "encode json: %v\n", err)
		}
		return failed
	}
	first := true
	for _, r := range reports {
		if r.Error != "" {
			continue
		}
		if !first {
			fmt.Fprintln(out)
		}
		first = false
		printText(out, r)
	}
	return failed
}

func die(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
