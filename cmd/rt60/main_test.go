package main

import (
	"bytes"
	"context"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cwbudde/algo-rt60/analysis"
	"github.com/cwbudde/algo-rt60/audiofile"
	"github.com/cwbudde/algo-rt60/irsynth"
)

func writeClap(t *testing.T, dir, name string) string {
	t.Helper()
	cfg := irsynth.DefaultConfig()
	cfg.SampleRate = 16000
	cfg.DurationS = 1.5
	cfg.PreDelayS = 0.1
	cfg.Modes = 32
	samples, err := irsynth.Generate(cfg)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	w, err := analysis.NewWaveform(samples, cfg.SampleRate)
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, name)
	if err := audiofile.WriteMonoWAV(path, w); err != nil {
		t.Fatalf("WriteMonoWAV: %v", err)
	}
	return path
}

func TestApplyOverridesOnlySetFlags(t *testing.T) {
	p := analysis.NewDefaultParams()
	p.LowCutoffHz = 20
	ov := overrides{low: 250, mid: 2000, windowLength: 2048, window: "blackman", kneeDB: 30, noReference: true}

	applyOverrides(p, ov, map[string]bool{"mid": true, "window-length": true, "knee-db": true, "no-reference": true})

	if p.LowCutoffHz != 20 {
		t.Fatalf("LowCutoffHz = %v, want preset value 20", p.LowCutoffHz)
	}
	if p.MidCutoffHz != 2000 || p.WindowLength != 2048 || p.KneeOffsetDB != 30 {
		t.Fatalf("overrides not applied: %+v", p)
	}
	if p.Window != "hann" {
		t.Fatalf("Window = %q, unset flag must not override", p.Window)
	}
	if p.ReferenceMetrics {
		t.Fatal("ReferenceMetrics should be disabled")
	}
}

func TestAnalyzeFilesMixedInputs(t *testing.T) {
	dir := t.TempDir()
	good := writeClap(t, dir, "clap.wav")
	bad := filepath.Join(dir, "clap.ogg")
	missing := filepath.Join(dir, "missing.wav")

	a, err := analysis.NewAnalyzer(nil)
	if err != nil {
		t.Fatal(err)
	}
	opts := runOptions{curvesDir: filepath.Join(dir, "curves"), exportDir: filepath.Join(dir, "export")}
	reports := analyzeFiles(context.Background(), a, []string{good, bad, missing}, opts, 2)

	if len(reports) != 3 {
		t.Fatalf("len(reports) = %d, want 3", len(reports))
	}
	if reports[0].Path != good || reports[0].Error != "" {
		t.Fatalf("good report = %+v", reports[0])
	}
	if len(reports[0].Bands) != 3 || reports[0].SampleRate != 16000 {
		t.Fatalf("good report bands/rate = %d/%d", len(reports[0].Bands), reports[0].SampleRate)
	}
	if !(reports[0].AverageRT60 > 0) {
		t.Fatalf("AverageRT60 = %v, want > 0", reports[0].AverageRT60)
	}
	if !strings.Contains(reports[1].Error, "unsupported") {
		t.Fatalf("ogg error = %q, want unsupported format", reports[1].Error)
	}
	if reports[2].Error == "" {
		t.Fatal("missing file should fail")
	}

	if _, err := os.Stat(reports[0].Curves); err != nil {
		t.Fatalf("curves file: %v", err)
	}
	w, err := audiofile.DecodeMono(reports[0].ExportedWAV)
	if err != nil {
		t.Fatalf("exported wav: %v", err)
	}
	if w.SampleRate() != 16000 || w.Len() != 24000 {
		t.Fatalf("exported wav = %d Hz / %d samples", w.SampleRate(), w.Len())
	}
}

func TestAnalyzeFileResamples(t *testing.T) {
	dir := t.TempDir()
	path := writeClap(t, dir, "clap.wav")
	a, _ := analysis.NewAnalyzer(nil)
	rep := analyzeFile(context.Background(), a, path, runOptions{sampleRate: 8000})
	if rep.Error != "" {
		t.Fatalf("analyzeFile: %s", rep.Error)
	}
	if rep.SampleRate != 8000 {
		t.Fatalf("SampleRate = %d, want 8000", rep.SampleRate)
	}
}

func TestAnalyzeFilesCancelled(t *testing.T) {
	dir := t.TempDir()
	path := writeClap(t, dir, "clap.wav")
	a, _ := analysis.NewAnalyzer(nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	reports := analyzeFiles(ctx, a, []string{path, path}, runOptions{}, 1)
	for i, r := range reports {
		if r.Error == "" {
			t.Fatalf("report %d should carry the cancellation", i)
		}
	}
}

func TestWriteReports(t *testing.T) {
	dir := t.TempDir()
	path := writeClap(t, dir, "clap.wav")
	a, _ := analysis.NewAnalyzer(nil)
	reports := []fileReport{
		analyzeFile(context.Background(), a, path, runOptions{}),
		{Path: "x.flac", Error: "audiofile: unsupported format"},
	}

	var out, errOut bytes.Buffer
	if failed := writeReports(&out, &errOut, reports, false); failed != 1 {
		t.Fatalf("failed = %d, want 1", failed)
	}
	text := out.String()
	for _, want := range []string{"clap.wav", "low", "mid", "high", "resonance", "average RT60"} {
		if !strings.Contains(text, want) {
			t.Fatalf("text output missing %q:\n%s", want, text)
		}
	}
	if strings.Contains(text, "x.flac") {
		t.Fatal("failed file must not appear in text output")
	}
	if got := errOut.String(); got != "x.flac: audiofile: unsupported format\n" {
		t.Fatalf("stderr = %q", got)
	}

	out.Reset()
	errOut.Reset()
	writeReports(&out, &errOut, reports, true)
	var decoded []map[string]any
	if err := json.Unmarshal(out.Bytes(), &decoded); err != nil {
		t.Fatalf("json output: %v\n%s", err, out.String())
	}
	if len(decoded) != 2 || decoded[1]["error"] == nil {
		t.Fatalf("json reports = %v", decoded)
	}
}

func TestNewFileReportSilentBands(t *testing.T) {
	w, err := analysis.NewWaveform(make([]float64, 8000), 8000)
	if err != nil {
		t.Fatal(err)
	}
	a, _ := analysis.NewAnalyzer(nil)
	r, err := a.Analyze(w)
	if err != nil {
		t.Fatal(err)
	}
	p := a.Params()
	rep := newFileReport("silence.wav", &p, r)
	if rep.PeakDBFS != nil {
		t.Fatalf("PeakDBFS = %v, want nil for silence", *rep.PeakDBFS)
	}
	for _, b := range rep.Bands {
		if b.Status != "no-signal" {
			t.Fatalf("%s status = %q, want no-signal", b.Band, b.Status)
		}
	}
	if _, err := json.Marshal(rep); err != nil {
		t.Fatalf("silent report must encode: %v", err)
	}
	if _, err := json.Marshal(newCurvesFile("silence.wav", r)); err != nil {
		t.Fatalf("silent curves must encode: %v", err)
	}
}

func TestFinite(t *testing.T) {
	if finite(math.Inf(-1)) != nil || finite(math.NaN()) != nil {
		t.Fatal("non-finite values must map to nil")
	}
	if v := finite(-3.5); v == nil || *v != -3.5 {
		t.Fatalf("finite(-3.5) = %v", v)
	}
}

func TestDecimate(t *testing.T) {
	n := maxWaveformPoints*2 + 1
	times := make([]float64, n)
	samples := make([]float64, n)
	for i := range samples {
		times[i] = float64(i)
		samples[i] = float64(i)
	}
	dt, ds := decimate(times, samples)
	if len(ds) > maxWaveformPoints || len(dt) != len(ds) {
		t.Fatalf("decimate kept %d/%d points", len(dt), len(ds))
	}
	if ds[0] != 0 || ds[1] != 3 {
		t.Fatalf("decimate step: %v %v", ds[0], ds[1])
	}

	short := []float64{1, 2, 3}
	if _, s := decimate(short, short); len(s) != 3 {
		t.Fatal("short input must be kept")
	}
}

func TestOutputPaths(t *testing.T) {
	if got := curvesPath("out", "/rec/Room A.m4a"); got != filepath.Join("out", "Room A.curves.json") {
		t.Fatalf("curvesPath() = %q", got)
	}
	if got := exportPath("out", "clap.mp3"); got != filepath.Join("out", "clap.mono.wav") {
		t.Fatalf("exportPath() = %q", got)
	}
}
