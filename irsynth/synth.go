// Package irsynth generates deterministic synthetic room responses to a clap.
//
// A response is a direct impulse, a bank of decaying room modes, a cluster of
// early reflections and a two-band diffuse tail. Decay follows RT60At, which
// makes the output a known reference for the analysis pipeline.
package irsynth

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/cwbudde/algo-approx"
)

// Frequencies at which LowRT60S and HighRT60S apply. RT60At interpolates
// between them on a log-frequency axis.
const (
	LowAnchorHz  = 100.0
	HighAnchorHz = 8000.0
)

// ln(1000): amplitude falls by this many nepers over one RT60.
const ln1000 = 6.907755278982137

// Config controls synthetic room response generation.
type Config struct {
	SampleRate int
	DurationS  float64
	PreDelayS  float64 // silence before the clap
	Modes      int
	Seed       int64

	Brightness  float64
	Density     float64 // Controls mode frequency clustering: >1 biases low, <1 biases high
	DirectLevel float64
	EarlyCount  int
	LateLevel   float64

	LowRT60S  float64
	HighRT60S float64

	NormalizePeak float64
}

func DefaultConfig() Config {
	return Config{
		SampleRate:    48000,
		DurationS:     3.0,
		PreDelayS:     0.25,
		Modes:         96,
		Seed:          1,
		Brightness:    1.0,
		Density:       1.5,
		DirectLevel:   0.8,
		EarlyCount:    16,
		LateLevel:     0.05,
		LowRT60S:      1.2,
		HighRT60S:     0.4,
		NormalizePeak: 0.9,
	}
}

func (c *Config) Validate() error {
	if c.SampleRate < 8000 {
		return fmt.Errorf("sample rate too low: %d", c.SampleRate)
	}
	if c.DurationS <= 0 {
		return fmt.Errorf("duration must be > 0")
	}
	if c.PreDelayS < 0 || c.PreDelayS >= c.DurationS {
		return fmt.Errorf("pre-delay must be in [0, duration)")
	}
	if c.Modes < 0 {
		return fmt.Errorf("modes must be >= 0")
	}
	if c.Brightness <= 0 {
		return fmt.Errorf("brightness must be > 0")
	}
	if c.Density <= 0 {
		return fmt.Errorf("density must be > 0")
	}
	if c.DirectLevel < 0 {
		return fmt.Errorf("direct level must be >= 0")
	}
	if c.EarlyCount < 0 {
		return fmt.Errorf("early count must be >= 0")
	}
	if c.LateLevel < 0 {
		return fmt.Errorf("late level must be >= 0")
	}
	if c.LowRT60S <= 0 || c.HighRT60S <= 0 {
		return fmt.Errorf("rt60 seconds must be > 0")
	}
	if c.NormalizePeak <= 0 {
		return fmt.Errorf("normalize peak must be > 0")
	}
	return nil
}

// RT60At returns the configured decay time at freq. It is constant outside
// [LowAnchorHz, HighAnchorHz].
func (c *Config) RT60At(freq float64) float64 {
	if !(freq > LowAnchorHz) {
		return c.LowRT60S
	}
	if freq >= HighAnchorHz {
		return c.HighRT60S
	}
	t := math.Log(freq/LowAnchorHz) / math.Log(HighAnchorHz/LowAnchorHz)
	return lerp(c.LowRT60S, c.HighRT60S, t)
}

// Generate synthesizes a mono response according to cfg, normalised so that
// its absolute peak equals cfg.NormalizePeak.
func Generate(cfg Config) ([]float64, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	fs := float64(cfg.SampleRate)
	n := int(math.Round(cfg.DurationS * fs))
	start := int(math.Round(cfg.PreDelayS * fs))
	if start >= n {
		start = n - 1
	}
	out := make([]float64, n)
	body := out[start:]

	rng := rand.New(rand.NewSource(cfg.Seed))

	// Direct sound.
	body[0] += cfg.DirectLevel

	maxF := 0.47 * fs
	minF := 35.0

	// Modes are log-spaced with density-controlled clustering. The RNG only
	// jitters amplitude and phase.
	brightnessExp := 0.7 + 0.9/cfg.Brightness
	for m := 0; m < cfg.Modes; m++ {
		fNorm := math.Pow((float64(m)+0.5)/float64(cfg.Modes), cfg.Density)
		f := minF * math.Pow(maxF/minF, fNorm)

		amp := 0.9 / math.Pow(1.0+f/2000.0, brightnessExp)
		amp *= 0.7 + 0.6*rng.Float64()

		decay := math.Exp(-ln1000 / (cfg.RT60At(f) * fs))
		phi := rng.Float64() * 2.0 * math.Pi
		addModeRec(body, amp, f, phi, decay, cfg.SampleRate)
	}

	// Early reflections cluster.
	for i := 0; i < cfg.EarlyCount; i++ {
		t := 0.002 + 0.048*rng.Float64()
		idx := int(t * fs)
		if idx <= 0 || idx >= len(body) {
			continue
		}
		sign := 1.0
		if rng.Intn(2) == 0 {
			sign = -1.0
		}
		body[idx] += sign * cfg.DirectLevel * (0.15 + 0.35*rng.Float64()) * math.Exp(-t*ln1000/cfg.RT60At(1000))
	}

	// Diffuse tail: low-passed noise decaying at the low-band rate plus
	// high-passed noise decaying at the high-band rate.
	if cfg.LateLevel > 0 {
		lowK := float32(ln1000 / cfg.RT60At(250))
		highK := float32(ln1000 / cfg.RT60At(4000))
		air := float32(0.5 * cfg.Brightness)
		lp, hp, prev := 0.0, 0.0, 0.0
		for i := range body {
			t := float32(float64(i) / fs)
			x := rng.NormFloat64()
			lp = 0.97*lp + 0.03*x
			hp = 0.5 * (x - prev)
			prev = x
			lowEnv := float64(approx.FastExp(clampExpArg(-t * lowK)))
			highEnv := float64(approx.FastExp(clampExpArg(-t * highK)))
			body[i] += cfg.LateLevel * (lowEnv*lp*4 + float64(air)*highEnv*hp)
		}
	}

	// Remove tiny DC drift.
	highpassDC(body, 0.995)

	peak := maxAbs(out)
	if peak < 1e-12 {
		peak = 1e-12
	}
	s := cfg.NormalizePeak / peak
	for i := range out {
		out[i] *= s
	}
	return out, nil
}

// clampExpArg keeps FastExp inside the range where float32 stays normal.
func clampExpArg(x float32) float32 {
	if x < -80 {
		return -80
	}
	return x
}

func addModeRec(out []float64, amp float64, freq float64, phase float64, decay float64, sampleRate int) {
	if len(out) == 0 {
		return
	}
	w := 2.0 * math.Pi * freq / float64(sampleRate)
	cw := math.Cos(w)
	x0 := math.Cos(phase)
	x1 := math.Cos(phase + w)
	env := 1.0

	out[0] += amp * env * x0
	env *= decay
	if len(out) == 1 {
		return
	}
	out[1] += amp * env * x1
	env *= decay
	for i := 2; i < len(out); i++ {
		x2 := 2.0*cw*x1 - x0
		x0 = x1
		x1 = x2
		out[i] += amp * env * x2
		env *= decay
	}
}

func highpassDC(x []float64, r float64) {
	prevIn := 0.0
	prevOut := 0.0
	for i := range x {
		y := x[i] - prevIn + r*prevOut
		prevIn = x[i]
		prevOut = y
		x[i] = y
	}
}

func maxAbs(x []float64) float64 {
	m := 0.0
	for _, v := range x {
		a := math.Abs(v)
		if a > m {
			m = a
		}
	}
	return m
}

func lerp(a, b, t float64) float64 {
	if t < 0 {
		t = 0
	}
	if t > 1 {
		t = 1
	}
	return a + (b-a)*t
}
