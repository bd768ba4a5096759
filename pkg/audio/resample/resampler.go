// ABOUTME: Linear resampler for decoded float32 channels
// ABOUTME: Converts a planar Buffer between sample rates using linear interpolation
package resample

import (
	"fmt"

	"github.com/Resonate-Protocol/resonate-decode/pkg/audio"
)

// Resampler performs linear interpolation to convert between sample rates
type Resampler struct {
	inputRate  int
	outputRate int
	ratio      float64
}

// New creates a new resampler
func New(inputRate, outputRate int) (*Resampler, error) {
	if inputRate <= 0 || outputRate <= 0 {
		return nil, fmt.Errorf("invalid sample rates %d -> %d", inputRate, outputRate)
	}
	return &Resampler{
		inputRate:  inputRate,
		outputRate: outputRate,
		ratio:      float64(inputRate) / float64(outputRate),
	}, nil
}

// OutputFrames returns how many frames Channel produces from inputFrames
func (r *Resampler) OutputFrames(inputFrames int) int {
	return int(int64(inputFrames) * int64(r.outputRate) / int64(r.inputRate))
}

// Channel resamples one channel. The last input frame is held past the end.
func (r *Resampler) Channel(input []float32) []float32 {
	n := r.OutputFrames(len(input))
	output := make([]float32, n)
	last := len(input) - 1

	for i := 0; i < n; i++ {
		pos := float64(i) * r.ratio
		idx := int(pos)
		if idx >= last {
			output[i] = input[last]
			continue
		}

		frac := float32(pos - float64(idx))
		output[i] = input[idx]*(1-frac) + input[idx+1]*frac
	}
	return output
}

// Buffer returns buf converted to outputRate. buf is returned unchanged when
// the rates already match.
func Buffer(buf *audio.Buffer, outputRate int) (*audio.Buffer, error) {
	if buf.SampleRate == outputRate {
		return buf, nil
	}

	r, err := New(buf.SampleRate, outputRate)
	if err != nil {
		return nil, err
	}

	out := &audio.Buffer{
		SampleRate: outputRate,
		Channels:   make([][]float32, len(buf.Channels)),
		Meta:       buf.Meta,
	}
	out.Meta.SampleRate = outputRate

	for ch, samples := range buf.Channels {
		out.Channels[ch] = r.Channel(samples)
	}
	return out, nil
}
