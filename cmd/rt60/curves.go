package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/cwbudde/algo-rt60/analysis"
)

// maxWaveformPoints bounds the raw waveform view in a curves file.
const maxWaveformPoints = 4096

type bandCurve struct {
	Band        string      `json:"band"`
	FrequencyHz float64     `json:"frequency_hz"`
	Times       []float64   `json:"times_s"`
	LevelsDB    []*float64  `json:"levels_db"`
	Peak        pointReport `json:"peak"`
	Knee        pointReport `json:"knee"`
}

type curvesFile struct {
	Source    string      `json:"source"`
	Bands     []bandCurve `json:"bands"`
	Frequency []float64   `json:"frequencies_hz"`
	AvgPower  []*float64  `json:"average_power"`
	Resonance float64     `json:"resonance_hz"`
	WaveTimes []float64   `json:"waveform_times_s"`
	Waveform  []float64   `json:"waveform"`
}

// curvesPath maps an input file to <dir>/<base>.curves.json.
func curvesPath(dir, input string) string {
	base := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	return filepath.Join(dir, base+".curves.json")
}

// exportPath maps an input file to <dir>/<base>.mono.wav.
func exportPath(dir, input string) string {
	base := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	return filepath.Join(dir, base+".mono.wav")
}

func newCurvesFile(source string, r *analysis.Result) curvesFile {
	cf := curvesFile{Source: source, Resonance: r.Resonance.FrequencyHz}
	for _, b := range r.Bands() {
		times, levels, err := r.BandCurve(b)
		if err != nil {
			continue
		}
		trace, _ := r.Trace(b)
		peak, knee, _ := r.DecayPoints(b)
		cf.Bands = append(cf.Bands, bandCurve{
			Band:        b.String(),
			FrequencyHz: trace.FrequencyHz,
			Times:       times,
			LevelsDB:    finiteSlice(levels),
			Peak:        pointReport{Index: peak.Index, TimeS: peak.TimeSeconds, LevelDB: finite(peak.LevelDB)},
			Knee:        pointReport{Index: knee.Index, TimeS: knee.TimeSeconds, LevelDB: finite(knee.LevelDB)},
		})
	}
	freqs, avg := r.ResonanceCurve()
	cf.Frequency = freqs
	cf.AvgPower = finiteSlice(avg)
	cf.WaveTimes, cf.Waveform = decimate(r.RawWaveform())
	return cf
}

func finiteSlice(x []float64) []*float64 {
	out := make([]*float64, len(x))
	for i, v := range x {
		out[i] = finite(v)
	}
	return out
}

// decimate keeps every k-th sample so that at most maxWaveformPoints remain.
func decimate(times, samples []float64) ([]float64, []float64) {
	if len(samples) <= maxWaveformPoints {
		return times, samples
	}
	step := (len(samples) + maxWaveformPoints - 1) / maxWaveformPoints
	n := (len(samples) + step - 1) / step
	t := make([]float64, 0, n)
	s := make([]float64, 0, n)
	for i := 0; i < len(samples); i += step {
		t = append(t, times[i])
		s = append(s, samples[i])
	}
	return t, s
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
