// ABOUTME: Audio type definitions
// ABOUTME: Defines decode metadata, exit status, and decoded channel buffers
package audio

import (
	"encoding/binary"
	"math"
	"time"
)

const (
	// Float32Size is the number of bytes per sample in a float32 channel blob
	Float32Size = 4

	// Float64Size is the number of bytes per sample in a float64 channel blob
	Float64Size = 8
)

// ExitStatus is the decoder's own report of a failed run.
// A nil *ExitStatus means the run completed without error.
type ExitStatus struct {
	Code    int
	Message string
}

func (e *ExitStatus) Error() string {
	return e.Message
}

// Metadata describes a single decode run
type Metadata struct {
	Channels     int    // number of channel_<i> blobs written
	SampleSize   int    // bytes per sample in each channel blob
	SampleRate   int    // Hz
	BitDepth     int    // bits per sample of the source stream
	Codec        string // codec short name (mp3, flac, opus, pcm_s16le...)
	SampleFormat string // source sample format (s16, s32p, flt...)
	StreamIndex  int
	Exit         *ExitStatus
}

// OK reports whether the decoder finished without an exit status
func (m Metadata) OK() bool {
	return m.Exit == nil
}

// Buffer is a fully decoded, playable audio buffer.
// Every slice in Channels has the same length.
type Buffer struct {
	SampleRate int
	Channels   [][]float32
	Meta       Metadata
}

// NumChannels returns the channel count
func (b *Buffer) NumChannels() int {
	return len(b.Channels)
}

// Frames returns the number of frames per channel
func (b *Buffer) Frames() int {
	if len(b.Channels) == 0 {
		return 0
	}
	return len(b.Channels[0])
}

// Duration returns the playback length of the buffer
func (b *Buffer) Duration() time.Duration {
	if b.SampleRate <= 0 {
		return 0
	}
	return time.Duration(b.Frames()) * time.Second / time.Duration(b.SampleRate)
}

// IntToFloat scales a signed integer sample of the given bit depth into [-1, 1].
// 8-bit samples are unsigned and are re-centred first.
func IntToFloat(sample int64, bitDepth int) float32 {
	if bitDepth == 8 {
		sample -= 127
	}
	scale := float32(int64(1)<<(bitDepth-1) - 1)
	return float32(sample) / scale
}

// AppendFloat32 appends samples to dst as little-endian float32 bytes
func AppendFloat32(dst []byte, samples ...float32) []byte {
	for _, s := range samples {
		dst = binary.LittleEndian.AppendUint32(dst, math.Float32bits(s))
	}
	return dst
}

// Float32sFromBytes interprets data as contiguous little-endian float32 samples.
// Trailing bytes that do not form a whole sample are ignored.
func Float32sFromBytes(data []byte) []float32 {
	n := len(data) / Float32Size
	samples := make([]float32, n)
	for i := 0; i < n; i++ {
		samples[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*Float32Size:]))
	}
	return samples
}

// Float64sFromBytes interprets data as little-endian float64 samples narrowed to float32
func Float64sFromBytes(data []byte) []float32 {
	n := len(data) / Float64Size
	samples := make([]float32, n)
	for i := 0; i < n; i++ {
		samples[i] = float32(math.Float64frombits(binary.LittleEndian.Uint64(data[i*Float64Size:])))
	}
	return samples
}
