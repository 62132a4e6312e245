// Package audiofile turns recordings into mono analysis.Waveform values and
// writes cleaned mono WAV files back out.
//
// WAV and MP3 are decoded in-process. M4A goes through ffprobe and ffmpeg,
// which must be installed when such files are used.
package audiofile

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cwbudde/algo-rt60/analysis"
)

// Format identifies an accepted container.
type Format string

const (
	FormatWAV Format = "wav"
	FormatMP3 Format = "mp3"
	FormatM4A Format = "m4a"
)

// Formats lists the accepted containers.
func Formats() []Format {
	return []Format{FormatWAV, FormatMP3, FormatM4A}
}

// FormatOf maps a file extension (case-insensitive) to its Format.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav":
		return FormatWAV, nil
	case ".mp3":
		return FormatMP3, nil
	case ".m4a":
		return FormatM4A, nil
	}
	return "", fmt.Errorf("%w %q (use %s)", ErrUnsupportedFormat, filepath.Ext(path), formatList())
}

func formatList() string {
	formats := Formats()
	exts := make([]string, len(formats))
	for i, f := range formats {
		exts[i] = "." + string(f)
	}
	return strings.Join(exts, ", ")
}

type options struct {
	ffmpegBin  string
	ffprobeBin string
}

// Option configures DecodeMono.
type Option func(*options)

// WithFFmpeg sets the ffmpeg binary used for M4A input.
func WithFFmpeg(bin string) Option {
	return func(o *options) { o.ffmpegBin = bin }
}

// WithFFprobe sets the ffprobe binary used for M4A input.
func WithFFprobe(bin string) Option {
	return func(o *options) { o.ffprobeBin = bin }
}

// DecodeMono reads path and averages its channels into one waveform.
func DecodeMono(path string, opts ...Option) (analysis.Waveform, error) {
	return DecodeMonoContext(context.Background(), path, opts...)
}

// DecodeMonoContext is DecodeMono with ctx bounding external decoders.
// The extension is checked before the file is opened.
func DecodeMonoContext(ctx context.Context, path string, opts ...Option) (analysis.Waveform, error) {
	format, err := FormatOf(path)
	if err != nil {
		return analysis.Waveform{}, err
	}
	o := options{ffmpegBin: "ffmpeg", ffprobeBin: "ffprobe"}
	for _, opt := range opts {
		opt(&o)
	}

	var (
		samples []float64
		rate    int
	)
	switch format {
	case FormatWAV:
		samples, rate, err = decodeWAVFile(path)
	case FormatMP3:
		samples, rate, err = decodeMP3File(path)
	case FormatM4A:
		samples, rate, err = decodeFFmpeg(ctx, o, path)
	}
	if err != nil {
		return analysis.Waveform{}, &DecodeError{Path: path, Format: format, Err: err}
	}

	w, err := analysis.NewWaveform(samples, rate)
	if err != nil {
		return analysis.Waveform{}, &DecodeError{Path: path, Format: format, Err: err}
	}
	return w, nil
}

func decodeWAVFile(path string) ([]float64, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()
	return decodeWAV(f)
}

func decodeMP3File(path string) ([]float64, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()
	return decodeMP3(f)
}
