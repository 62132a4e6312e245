package audiofile

// mixToMono averages each frame of interleaved samples into one value.
// A trailing partial frame is dropped.
func mixToMono[T float32 | float64](interleaved []T, channels int) []float64 {
	if channels < 1 {
		return nil
	}
	frames := len(interleaved) / channels
	out := make([]float64, frames)
	if channels == 1 {
		for i, v := range interleaved[:frames] {
			out[i] = float64(v)
		}
		return out
	}
	for i := range out {
		var sum float64
		for _, v := range interleaved[i*channels : (i+1)*channels] {
			sum += float64(v)
		}
		out[i] = sum / float64(channels)
	}
	return out
}
