package audiofile

import (
	"io"

	"github.com/cwbudde/wav"
)

// decodeWAV returns the channel average of a PCM wav stream.
func decodeWAV(r io.ReadSeeker) ([]float64, int, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, 0, ErrInvalidWAV
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, 0, err
	}
	if buf == nil || buf.Format == nil || buf.Format.NumChannels < 1 {
		return nil, 0, ErrInvalidWAV
	}

	out := mixToMono(buf.Data, buf.Format.NumChannels)
	if len(out) == 0 {
		return nil, 0, ErrNoAudio
	}
	return out, buf.Format.SampleRate, nil
}
