package preset

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/cwbudde/algo-rt60/analysis"
)

// File is the JSON schema for analysis presets. Every field is optional and
// only overrides what it sets.
type File struct {
	Base             string                 `json:"base,omitempty"`
	WindowLength     *int                   `json:"window_length,omitempty"`
	Overlap          *float64               `json:"overlap,omitempty"`
	Window           *string                `json:"window,omitempty"`
	DBScale          *float64               `json:"db_scale,omitempty"`
	KneeOffsetDB     *float64               `json:"knee_offset_db,omitempty"`
	TargetRT60       *float64               `json:"target_rt60_s,omitempty"`
	ResonanceMinHz   *float64               `json:"resonance_min_hz,omitempty"`
	ReferenceMetrics *bool                  `json:"reference_metrics,omitempty"`
	Bands            map[string]BandSetting `json:"bands,omitempty"`
}

// BandSetting is a partial band override entry in a preset file.
type BandSetting struct {
	CutoffHz *float64 `json:"cutoff_hz,omitempty"`
}

// LoadJSON loads a preset JSON file and applies it on top of its base
// (the built-in named by "base", or the defaults).
func LoadJSON(path string) (*analysis.Params, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var f File
	if err := json.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	p := analysis.NewDefaultParams()
	if f.Base != "" {
		if p, err = Builtin(f.Base); err != nil {
			return nil, err
		}
	}
	if err := ApplyFile(p, &f); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

// ApplyFile applies a parsed preset file onto an existing params object.
func ApplyFile(dst *analysis.Params, f *File) error {
	if dst == nil {
		return fmt.Errorf("nil destination params")
	}
	if f == nil {
		return nil
	}

	if f.WindowLength != nil {
		if *f.WindowLength < 2 || *f.WindowLength%2 != 0 {
			return fmt.Errorf("window_length must be even and >= 2: %d", *f.WindowLength)
		}
		dst.WindowLength = *f.WindowLength
	}
	if f.Overlap != nil {
		if *f.Overlap < 0 || *f.Overlap >= 1 {
			return fmt.Errorf("overlap must be in [0,1)")
		}
		dst.Overlap = *f.Overlap
	}
	if f.Window != nil {
		if _, err := analysis.WindowType(*f.Window); err != nil {
			return err
		}
		dst.Window = strings.ToLower(strings.TrimSpace(*f.Window))
	}
	if f.DBScale != nil {
		if *f.DBScale <= 0 {
			return fmt.Errorf("db_scale must be > 0")
		}
		dst.DBScale = *f.DBScale
	}
	if f.KneeOffsetDB != nil {
		if *f.KneeOffsetDB <= 0 {
			return fmt.Errorf("knee_offset_db must be > 0")
		}
		dst.KneeOffsetDB = *f.KneeOffsetDB
	}
	if f.TargetRT60 != nil {
		if *f.TargetRT60 < 0 {
			return fmt.Errorf("target_rt60_s must be >= 0")
		}
		dst.TargetRT60 = *f.TargetRT60
	}
	if f.ResonanceMinHz != nil {
		if *f.ResonanceMinHz < 0 {
			return fmt.Errorf("resonance_min_hz must be >= 0")
		}
		dst.ResonanceMinHz = *f.ResonanceMinHz
	}
	if f.ReferenceMetrics != nil {
		dst.ReferenceMetrics = *f.ReferenceMetrics
	}

	keys := make([]string, 0, len(f.Bands))
	for k := range f.Bands {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		band, err := analysis.ParseBand(k)
		if err != nil {
			return fmt.Errorf("invalid bands key %q (expected low|mid|high)", k)
		}
		override := f.Bands[k]
		if override.CutoffHz == nil {
			continue
		}
		if *override.CutoffHz < 0 {
			return fmt.Errorf("bands[%s].cutoff_hz must be >= 0", band)
		}
		setCutoff(dst, band, *override.CutoffHz)
	}
	return dst.Validate()
}

func setCutoff(p *analysis.Params, b analysis.Band, hz float64) {
	switch b {
	case analysis.BandLow:
		p.LowCutoffHz = hz
	case analysis.BandMid:
		p.MidCutoffHz = hz
	case analysis.BandHigh:
		p.HighCutoffHz = hz
	}
}

// FromParams returns a fully populated File describing p.
func FromParams(p *analysis.Params) *File {
	f := &File{
		WindowLength:     &p.WindowLength,
		Overlap:          &p.Overlap,
		Window:           &p.Window,
		DBScale:          &p.DBScale,
		KneeOffsetDB:     &p.KneeOffsetDB,
		TargetRT60:       &p.TargetRT60,
		ResonanceMinHz:   &p.ResonanceMinHz,
		ReferenceMetrics: &p.ReferenceMetrics,
		Bands:            make(map[string]BandSetting, 3),
	}
	for _, b := range analysis.AllBands() {
		hz := p.CutoffHz(b)
		f.Bands[b.String()] = BandSetting{CutoffHz: &hz}
	}
	return f
}

// WriteJSON writes p as an indented preset file.
func WriteJSON(path string, p *analysis.Params) error {
	b, err := json.MarshalIndent(FromParams(p.Clone()), "", "  ")
	if err != nil {
		return err
	}
	b = append(b, '\n')
	return os.WriteFile(path, b, 0o644)
}
