package analysis

import (
	"errors"
	"fmt"
)

// Errors returned by the analysis pipeline.
var (
	ErrEmptyWaveform      = errors.New("analysis: waveform is empty")
	ErrInvalidSampleRate  = errors.New("analysis: sample rate must be positive")
	ErrInsufficientSignal = errors.New("analysis: waveform shorter than one window")
	ErrDegenerateBand     = errors.New("analysis: band trace has no finite level")
	ErrUnknownBand        = errors.New("analysis: unknown band")
	ErrMalformedTrace     = errors.New("analysis: trace times shorter than levels")
)

// DegenerateBandError reports a band whose trace is silent everywhere.
// It is recoverable: the band still gets a no-signal DecayEstimate.
type DegenerateBandError struct {
	Band     Band
	BinIndex int
}

func (e *DegenerateBandError) Error() string {
	return fmt.Sprintf("analysis: %s band (bin %d) has no finite level", e.Band, e.BinIndex)
}

// Is matches ErrDegenerateBand.
func (e *DegenerateBandError) Is(target error) bool {
	return target == ErrDegenerateBand
}
