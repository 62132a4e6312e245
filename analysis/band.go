package analysis

import (
	"fmt"
	"math"
	"strings"
)

// Band names one of the three analysed frequency regions.
type Band int

const (
	BandLow Band = iota
	BandMid
	BandHigh
)

// AllBands returns the bands in analysis order.
func AllBands() []Band {
	return []Band{BandLow, BandMid, BandHigh}
}

func (b Band) String() string {
	switch b {
	case BandLow:
		return "low"
	case BandMid:
		return "mid"
	case BandHigh:
		return "high"
	}
	return fmt.Sprintf("band(%d)", int(b))
}

// ParseBand parses "low", "mid" or "high".
func ParseBand(s string) (Band, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low":
		return BandLow, nil
	case "mid":
		return BandMid, nil
	case "high":
		return BandHigh, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownBand, s)
}

// BandTrace is the level over time of the bin chosen for a band.
// Times is the spectrogram's axis and must not be modified.
type BandTrace struct {
	Band        Band
	BinIndex    int
	FrequencyHz float64
	Times       []float64
	LevelsDB    []float64
}

// Len returns the number of frames in the trace.
func (t BandTrace) Len() int { return len(t.LevelsDB) }

// ExtractBand selects the bin for cutoffHz and converts its row to
// dbScale*log10(power). Non-positive power becomes -Inf.
func ExtractBand(s *Spectrogram, band Band, cutoffHz float64, dbScale float64) BandTrace {
	bin := binAbove(s.frequencies, cutoffHz)
	row := s.power[bin]
	levels := make([]float64, len(row))
	for i, p := range row {
		levels[i] = powerToDB(p, dbScale)
	}
	return BandTrace{
		Band:        band,
		BinIndex:    bin,
		FrequencyHz: s.frequencies[bin],
		Times:       s.times,
		LevelsDB:    levels,
	}
}

// binAbove returns the first index whose frequency strictly exceeds cutoffHz,
// or the last index when none does.
func binAbove(freqs []float64, cutoffHz float64) int {
	for i, f := range freqs {
		if f > cutoffHz {
			return i
		}
	}
	return len(freqs) - 1
}

func powerToDB(p, scale float64) float64 {
	if !(p > 0) {
		return math.Inf(-1)
	}
	return scale * math.Log10(p)
}
