package audiofile

import (
	"encoding/binary"
	"io"

	gomp3 "github.com/hajimehoshi/go-mp3"
)

// go-mp3 always emits 16-bit little-endian stereo.
const mp3Channels = 2

func decodeMP3(r io.Reader) ([]float64, int, error) {
	dec, err := gomp3.NewDecoder(r)
	if err != nil {
		return nil, 0, err
	}
	pcm, err := io.ReadAll(dec)
	if err != nil {
		return nil, 0, err
	}
	return stereoInt16ToMono(pcm), dec.SampleRate(), nil
}

// stereoInt16ToMono scales interleaved little-endian int16 frames to
// [-1, 1) and averages them. A trailing partial frame is dropped.
func stereoInt16ToMono(pcm []byte) []float64 {
	const frameBytes = 2 * mp3Channels
	frames := len(pcm) / frameBytes
	interleaved := make([]float64, frames*mp3Channels)
	for i := range interleaved {
		interleaved[i] = float64(int16(binary.LittleEndian.Uint16(pcm[2*i:]))) / 32768
	}
	return mixToMono(interleaved, mp3Channels)
}
