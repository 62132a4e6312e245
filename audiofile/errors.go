package audiofile

import (
	"errors"
	"fmt"
)

// Errors returned by the decoders.
var (
	ErrUnsupportedFormat = errors.New("audiofile: unsupported format")
	ErrInvalidWAV        = errors.New("audiofile: invalid wav file")
	ErrNoAudio           = errors.New("audiofile: no audio samples")
	ErrNoAudioStream     = errors.New("audiofile: no audio stream")
)

// DecodeError reports a failure to read or decode a file.
type DecodeError struct {
	Path   string
	Format Format
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("audiofile: decode %s (%s): %v", e.Path, e.Format, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }
