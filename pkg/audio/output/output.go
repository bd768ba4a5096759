// ABOUTME: Audio output interface and buffer playback
// ABOUTME: Interleaves decoded channels and feeds them to an output device
package output

import (
	"errors"
	"fmt"

	"github.com/Resonate-Protocol/resonate-decode/pkg/audio"
)

// Output represents an audio output device
type Output interface {
	// Open initializes the output device
	Open(sampleRate, channels int) error

	// Write outputs interleaved float32 samples (blocks until written)
	Write(samples []float32) error

	// Close releases output resources
	Close() error
}

// playChunkFrames is how many frames Play writes per call
const playChunkFrames = 4096

// Interleave converts planar channels into one interleaved slice
func Interleave(channels [][]float32) []float32 {
	if len(channels) == 0 {
		return nil
	}

	frames := len(channels[0])
	out := make([]float32, frames*len(channels))
	for ch, samples := range channels {
		for i := 0; i < frames && i < len(samples); i++ {
			out[i*len(channels)+ch] = samples[i]
		}
	}
	return out
}

// Play opens out for buf's format and writes the whole buffer
func Play(out Output, buf *audio.Buffer) error {
	if buf.NumChannels() == 0 {
		return errors.New("buffer has no channels")
	}
	if buf.SampleRate <= 0 {
		return fmt.Errorf("invalid sample rate %d", buf.SampleRate)
	}

	if err := out.Open(buf.SampleRate, buf.NumChannels()); err != nil {
		return err
	}

	samples := Interleave(buf.Channels)
	step := playChunkFrames * buf.NumChannels()
	for start := 0; start < len(samples); start += step {
		end := min(start+step, len(samples))
		if err := out.Write(samples[start:end]); err != nil {
			return fmt.Errorf("write failed: %w", err)
		}
	}
	return nil
}
