package audiofile

import (
	"os"
	"path/filepath"

	"github.com/cwbudde/algo-rt60/analysis"
	"github.com/cwbudde/wav"
	"github.com/go-audio/audio"
)

// WriteMonoWAV writes w as a 16-bit mono wav file, creating parent
// directories. Samples outside [-1,1] are clipped.
func WriteMonoWAV(path string, w analysis.Waveform) error {
	samples := w.Samples()
	data := make([]float32, len(samples))
	for i, v := range samples {
		switch {
		case v > 1:
			v = 1
		case v < -1:
			v = -1
		}
		data[i] = float32(v)
	}
	return writeWAV(path, data, w.SampleRate(), 1)
}

func writeWAV(path string, interleaved []float32, sampleRate, channels int) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := wav.NewEncoder(f, sampleRate, 16, channels, 1)
	buf := &audio.Float32Buffer{
		Format: &audio.Format{
			SampleRate:  sampleRate,
			NumChannels: channels,
		},
		Data:           interleaved,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		return err
	}
	return enc.Close()
}
