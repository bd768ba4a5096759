// ABOUTME: Per-channel output accumulation for the native decoder
// ABOUTME: Collects float samples per channel and writes them as channel blobs
package decode

import (
	"github.com/Resonate-Protocol/resonate-decode/pkg/audio"
	"github.com/Resonate-Protocol/resonate-decode/pkg/store"
)

// channelSink buffers little-endian float32 samples per channel
type channelSink struct {
	channels [][]byte
}

func (s *channelSink) open(channels int) {
	s.channels = make([][]byte, channels)
}

func (s *channelSink) push(ch int, sample float32) {
	s.channels[ch] = audio.AppendFloat32(s.channels[ch], sample)
}

// pushInterleaved splits interleaved samples across the open channels
func (s *channelSink) pushInterleaved(samples []float32) {
	n := len(s.channels)
	for i, sample := range samples {
		s.push(i%n, sample)
	}
}

func (s *channelSink) frames() int {
	if len(s.channels) == 0 {
		return 0
	}
	return len(s.channels[0]) / audio.Float32Size
}

func (s *channelSink) flush(st store.Store) error {
	for i, data := range s.channels {
		if err := st.Write(ChannelName(i), data); err != nil {
			return err
		}
	}
	return nil
}
