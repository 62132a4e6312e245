package audiofile

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"os/exec"
	"strconv"
	"strings"
)

// decodeFFmpeg probes the sample rate with ffprobe and pipes the file through
// ffmpeg as mono float32 PCM.
func decodeFFmpeg(ctx context.Context, o options, path string) ([]float64, int, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, 0, err
	}
	rate, err := probeSampleRate(ctx, o.ffprobeBin, path)
	if err != nil {
		return nil, 0, err
	}
	args := []string{"-hide_banner", "-nostats", "-v", "error", "-i", path,
		"-vn", "-ac", "1", "-ar", strconv.Itoa(rate), "-f", "f32le", "pipe:1"}
	pcm, err := runCmd(ctx, o.ffmpegBin, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("ffmpeg: %w", err)
	}
	samples := f32leToFloat64(pcm)
	if len(samples) == 0 {
		return nil, 0, ErrNoAudio
	}
	return samples, rate, nil
}

func probeSampleRate(ctx context.Context, bin, path string) (int, error) {
	args := []string{"-v", "error", "-show_streams", "-select_streams", "a", "-of", "json", path}
	out, err := runCmd(ctx, bin, args...)
	if err != nil {
		return 0, fmt.Errorf("ffprobe: %w", err)
	}
	return parseProbeSampleRate(out)
}

func parseProbeSampleRate(out []byte) (int, error) {
	var ff struct {
		Streams []struct {
			CodecType  string `json:"codec_type"`
			SampleRate string `json:"sample_rate"`
		} `json:"streams"`
	}
	if err := json.Unmarshal(out, &ff); err != nil {
		return 0, fmt.Errorf("ffprobe output: %w", err)
	}
	for _, s := range ff.Streams {
		if s.CodecType != "audio" {
			continue
		}
		rate, err := strconv.Atoi(strings.TrimSpace(s.SampleRate))
		if err != nil || rate <= 0 {
			return 0, fmt.Errorf("ffprobe sample rate %q", s.SampleRate)
		}
		return rate, nil
	}
	return 0, ErrNoAudioStream
}

// runCmd returns stdout. stderr is folded into the error.
func runCmd(ctx context.Context, bin string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Env = append(os.Environ(), "LC_ALL=C")
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("%w: %s", err, msg)
		}
		return nil, err
	}
	return out, nil
}

func f32leToFloat64(pcm []byte) []float64 {
	out := make([]float64, len(pcm)/4)
	for i := range out {
		out[i] = float64(math.Float32frombits(binary.LittleEndian.Uint32(pcm[i*4:])))
	}
	return out
}
