package main

import (
	"flag"
	"fmt"
	"os"

	timestats "github.com/cwbudde/algo-dsp/stats/time"
	"github.com/cwbudde/algo-rt60/analysis"
	"github.com/cwbudde/algo-rt60/audiofile"
	"github.com/cwbudde/algo-rt60/irsynth"
)

func main() {
	cfg := irsynth.DefaultConfig()

	output := flag.String("output", "out/synth_clap.wav", "Output WAV path")
	flag.IntVar(&cfg.SampleRate, "sample-rate", cfg.SampleRate, "Output sample rate")
	flag.Float64Var(&cfg.DurationS, "duration", cfg.DurationS, "Response length in seconds")
	flag.Float64Var(&cfg.PreDelayS, "pre-delay", cfg.PreDelayS, "Silence before the clap in seconds")
	flag.IntVar(&cfg.Modes, "modes", cfg.Modes, "Number of damped room modes")
	flag.Int64Var(&cfg.Seed, "seed", cfg.Seed, "Random seed")
	flag.Float64Var(&cfg.Brightness, "brightness", cfg.Brightness, "Spectral brightness control (>0)")
	flag.Float64Var(&cfg.Density, "density", cfg.Density, "Mode clustering: >1 biases low, <1 biases high")
	flag.Float64Var(&cfg.DirectLevel, "direct", cfg.DirectLevel, "Direct impulse level")
	flag.IntVar(&cfg.EarlyCount, "early", cfg.EarlyCount, "Number of early reflections")
	flag.Float64Var(&cfg.LateLevel, "late", cfg.LateLevel, "Diffuse late-tail level")
	flag.Float64Var(&cfg.LowRT60S, "low-rt60", cfg.LowRT60S, "RT60 at 100 Hz and below (s)")
	flag.Float64Var(&cfg.HighRT60S, "high-rt60", cfg.HighRT60S, "RT60 at 8 kHz and above (s)")
	flag.Float64Var(&cfg.NormalizePeak, "normalize", cfg.NormalizePeak, "Peak normalization target")
	flag.Parse()

	samples, err := irsynth.Generate(cfg)
	if err != nil {
		die("ir-synth error: %v", err)
	}
	w, err := analysis.NewWaveform(samples, cfg.SampleRate)
	if err != nil {
		die("ir-synth error: %v", err)
	}
	if err := audiofile.WriteMonoWAV(*output, w); err != nil {
		die("wav write error: %v", err)
	}

	s := timestats.Calculate(samples)
	fmt.Printf("Wrote %s\n", *output)
	fmt.Printf("SampleRate: %d Hz, Duration: %.3f s, Samples: %d\n", cfg.SampleRate, cfg.DurationS, len(samples))
	fmt.Printf("Peak: %.6f (%.1f dBFS), RMS: %.6f (%.1f dBFS)\n", s.Peak, s.Peak_dB, s.RMS, s.RMS_dB)
	for _, f := range []float64{125, 250, 500, 1000, 2000, 4000, 8000} {
		fmt.Printf("RT60 @ %5.0f Hz: %.3f s\n", f, cfg.RT60At(f))
	}
}

func die(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
