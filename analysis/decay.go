package analysis

import (
	"fmt"
	"math"
)

// DefaultKneeOffsetDB is the classic RT20 span below the peak.
const DefaultKneeOffsetDB = 20.0

// rt60PerRT20 extrapolates the peak-to-knee span to RT60. It is fixed
// whatever the knee offset.
const rt60PerRT20 = 3.0

// DecayStatus qualifies a DecayEstimate.
type DecayStatus int

const (
	// DecayOK means the knee was found before the end of the trace.
	DecayOK DecayStatus = iota
	// DecayLowConfidence means the knee is the last frame of the trace, so the
	// level may never have dropped by the knee offset.
	DecayLowConfidence
	// DecayNoSignal means the trace held no finite level. All numbers are zero.
	DecayNoSignal
)

func (s DecayStatus) String() string {
	switch s {
	case DecayOK:
		return "ok"
	case DecayLowConfidence:
		return "low-confidence"
	case DecayNoSignal:
		return "no-signal"
	}
	return "unknown"
}

// DecayPoint is one sampled point on a BandTrace.
type DecayPoint struct {
	Index       int     `json:"index"`
	TimeSeconds float64 `json:"time_s"`
	LevelDB     float64 `json:"level_db"`
}

// DecayEstimate is the peak/knee pair of a band and the derived decay times.
type DecayEstimate struct {
	Band     Band
	Peak     DecayPoint
	Knee     DecayPoint
	TargetDB float64
	RT20     float64
	RT60     float64
	Status   DecayStatus
}

// EstimateDecay finds the peak of trace and the post-peak frame whose level is
// closest to peak-kneeOffsetDB. RT20 is the span between them and RT60 is
// always 3*RT20.
//
// Non-finite levels never take part in either search. A trace without any
// finite level yields a zero DecayNoSignal estimate and a *DegenerateBandError.
// A trace with fewer times than levels fails with ErrMalformedTrace.
func EstimateDecay(trace BandTrace, kneeOffsetDB float64) (DecayEstimate, error) {
	est := DecayEstimate{Band: trace.Band, Status: DecayNoSignal}
	if !(kneeOffsetDB > 0) {
		kneeOffsetDB = DefaultKneeOffsetDB
	}

	if len(trace.Times) < len(trace.LevelsDB) {
		return est, fmt.Errorf("%w: %s band has %d times for %d levels",
			ErrMalformedTrace, trace.Band, len(trace.Times), len(trace.LevelsDB))
	}
	peakIdx := argmaxFinite(trace.LevelsDB)
	if peakIdx < 0 {
		return est, &DegenerateBandError{Band: trace.Band, BinIndex: trace.BinIndex}
	}

	target := trace.LevelsDB[peakIdx] - kneeOffsetDB
	kneeIdx := peakIdx + argminDistanceFinite(trace.LevelsDB[peakIdx:], target)

	est.Peak = pointAt(trace, peakIdx)
	est.Knee = pointAt(trace, kneeIdx)
	est.TargetDB = target
	est.RT20 = est.Knee.TimeSeconds - est.Peak.TimeSeconds
	est.RT60 = rt60PerRT20 * est.RT20
	est.Status = DecayOK
	if kneeIdx == len(trace.LevelsDB)-1 {
		est.Status = DecayLowConfidence
	}
	return est, nil
}

func pointAt(trace BandTrace, i int) DecayPoint {
	return DecayPoint{Index: i, TimeSeconds: trace.Times[i], LevelDB: trace.LevelsDB[i]}
}

// argmaxFinite returns the lowest index of the largest finite value, or -1.
func argmaxFinite(x []float64) int {
	best := -1
	for i, v := range x {
		if !isFinite(v) {
			continue
		}
		if best < 0 || v > x[best] {
			best = i
		}
	}
	return best
}

// argminDistanceFinite returns the lowest index whose finite value is closest
// to target. x[0] must be finite.
func argminDistanceFinite(x []float64, target float64) int {
	best := 0
	bestDist := math.Inf(1)
	for i, v := range x {
		if !isFinite(v) {
			continue
		}
		if d := math.Abs(v - target); d < bestDist {
			best = i
			bestDist = d
		}
	}
	return best
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
