package main

import (
	"fmt"
	"math"
	"strings"

	"github.com/cwbudde/algo-rt60/analysis"
	fitcommon "github.com/cwbudde/algo-rt60/internal/fitcommon"
	"github.com/cwbudde/algo-rt60/irsynth"
)

type knobDef struct {
	Name  string
	Min   float64
	Max   float64
	IsInt bool
}

type candidate struct {
	Vals []float64
}

var validGroups = []string{"decay", "tone", "mix"}

// parseOptimizeGroups parses a comma-separated string of group names.
// Valid groups: decay, tone, mix.
func parseOptimizeGroups(raw string) (map[string]bool, error) {
	groups := make(map[string]bool)
	for _, s := range strings.Split(raw, ",") {
		s = strings.ToLower(strings.TrimSpace(s))
		if s == "" {
			continue
		}
		known := false
		for _, g := range validGroups {
			if s == g {
				known = true
				break
			}
		}
		if !known {
			return nil, fmt.Errorf("unknown optimize group %q (valid: %s)", s, strings.Join(validGroups, ", "))
		}
		groups[s] = true
	}
	if len(groups) == 0 {
		return nil, fmt.Errorf("no optimize groups specified")
	}
	return groups, nil
}

// initCandidate builds the knob set for groups. Decay knobs start from the
// reference's measured low and high band RT60 when those carry a signal.
func initCandidate(base irsynth.Config, ref *analysis.Result, groups map[string]bool) ([]knobDef, candidate) {
	defs := make([]knobDef, 0, 8)
	vals := make([]float64, 0, 8)
	addKnob := func(def knobDef, val float64) {
		defs = append(defs, def)
		vals = append(vals, val)
	}

	if groups["decay"] {
		low, high := base.LowRT60S, base.HighRT60S
		if ref != nil {
			if est, ok := ref.Decay[analysis.BandLow]; ok && est.Status != analysis.DecayNoSignal && est.RT60 > 0 {
				low = est.RT60
			}
			if est, ok := ref.Decay[analysis.BandHigh]; ok && est.Status != analysis.DecayNoSignal && est.RT60 > 0 {
				high = est.RT60
			}
		}
		addKnob(knobDef{Name: "low_rt60", Min: 0.1, Max: 6.0}, low)
		addKnob(knobDef{Name: "high_rt60", Min: 0.05, Max: 4.0}, high)
	}
	if groups["tone"] {
		addKnob(knobDef{Name: "brightness", Min: 0.3, Max: 2.5}, base.Brightness)
		addKnob(knobDef{Name: "density", Min: 0.5, Max: 4.0}, base.Density)
		addKnob(knobDef{Name: "modes", Min: 16, Max: 192, IsInt: true}, float64(base.Modes))
	}
	if groups["mix"] {
		addKnob(knobDef{Name: "direct", Min: 0.1, Max: 1.2}, base.DirectLevel)
		addKnob(knobDef{Name: "late_level", Min: 0.0, Max: 0.2}, base.LateLevel)
		addKnob(knobDef{Name: "early", Min: 0, Max: 48, IsInt: true}, float64(base.EarlyCount))
	}

	for i := range vals {
		vals[i] = fitcommon.Clamp(vals[i], defs[i].Min, defs[i].Max)
		if defs[i].IsInt {
			vals[i] = math.Round(vals[i])
		}
	}
	return defs, candidate{Vals: vals}
}

// applyCandidate returns base with the knob values of c applied at sampleRate.
func applyCandidate(base irsynth.Config, sampleRate int, defs []knobDef, c candidate) irsynth.Config {
	cfg := base
	cfg.SampleRate = sampleRate
	for i, def := range defs {
		v := c.Vals[i]
		switch def.Name {
		case "low_rt60":
			cfg.LowRT60S = v
		case "high_rt60":
			cfg.HighRT60S = v
		case "brightness":
			cfg.Brightness = v
		case "density":
			cfg.Density = v
		case "modes":
			cfg.Modes = int(math.Round(v))
		case "direct":
			cfg.DirectLevel = v
		case "late_level":
			cfg.LateLevel = v
		case "early":
			cfg.EarlyCount = int(math.Round(v))
		}
	}

	if cfg.Modes < 1 {
		cfg.Modes = 1
	}
	if cfg.EarlyCount < 0 {
		cfg.EarlyCount = 0
	}
	return cfg
}

func fromNormalized(pos []float64, defs []knobDef) candidate {
	vals := make([]float64, len(defs))
	for i := range defs {
		x := 0.0
		if i < len(pos) {
			x = fitcommon.Clamp(pos[i], 0, 1)
		}
		v := defs[i].Min + x*(defs[i].Max-defs[i].Min)
		if defs[i].IsInt {
			v = math.Round(v)
		}
		vals[i] = v
	}
	return candidate{Vals: vals}
}

func knobMap(defs []knobDef, c candidate) map[string]float64 {
	out := make(map[string]float64, len(defs))
	for i, d := range defs {
		out[d.Name] = c.Vals[i]
	}
	return out
}

// candidateFromKnobs overlays named values on fallback, clamped to the
// knob ranges. ok reports whether any knob matched.
func candidateFromKnobs(knobs map[string]float64, defs []knobDef, fallback candidate) (candidate, bool) {
	vals := make([]float64, len(fallback.Vals))
	copy(vals, fallback.Vals)
	updated := false
	for i, d := range defs {
		if v, ok := knobs[d.Name]; ok {
			vals[i] = fitcommon.Clamp(v, d.Min, d.Max)
			if d.IsInt {
				vals[i] = math.Round(vals[i])
			}
			updated = true
		}
	}
	return candidate{Vals: vals}, updated
}
