// ABOUTME: Tests for channel assembly
// ABOUTME: Covers sample sizes, frame normalization and blob deletion
package decodequeue

import (
	"encoding/binary"
	"errors"
	"math"
	"testing"

	"github.com/Resonate-Protocol/resonate-decode/pkg/audio"
	"github.com/Resonate-Protocol/resonate-decode/pkg/audio/decode"
	"github.com/Resonate-Protocol/resonate-decode/pkg/store"
)

func TestAssembleNormalizesFrames(t *testing.T) {
	st := store.NewMemory()
	st.Write(decode.ChannelName(0), audio.AppendFloat32(nil, 0.1, 0.2, 0.3))
	st.Write(decode.ChannelName(1), audio.AppendFloat32(nil, 0.4))
	st.Write(decode.ChannelName(2), audio.AppendFloat32(nil, 0.5, 0.6, 0.7, 0.8))

	buf, err := assemble(st, audio.Metadata{Channels: 3, SampleSize: 4, SampleRate: 48000})
	if err != nil {
		t.Fatalf("assemble failed: %v", err)
	}

	for ch, samples := range buf.Channels {
		if len(samples) != 3 {
			t.Errorf("channel %d: expected 3 frames, got %d", ch, len(samples))
		}
	}
	if buf.Channels[1][1] != 0 || buf.Channels[1][2] != 0 {
		t.Errorf("short channel not zero padded: %v", buf.Channels[1])
	}
	if buf.Channels[2][2] != 0.7 {
		t.Errorf("long channel truncated wrong: %v", buf.Channels[2])
	}
	if st.Len() != 0 {
		t.Errorf("channel blobs not deleted: %v", st.Names())
	}
}

func TestAssembleFloat64(t *testing.T) {
	st := store.NewMemory()
	data := make([]byte, 16)
	binary.LittleEndian.PutUint64(data[0:], math.Float64bits(0.5))
	binary.LittleEndian.PutUint64(data[8:], math.Float64bits(-1))
	st.Write(decode.ChannelName(0), data)

	buf, err := assemble(st, audio.Metadata{Channels: 1, SampleSize: 8, SampleRate: 44100})
	if err != nil {
		t.Fatalf("assemble failed: %v", err)
	}
	if buf.Frames() != 2 || buf.Channels[0][0] != 0.5 || buf.Channels[0][1] != -1 {
		t.Errorf("unexpected samples: %v", buf.Channels[0])
	}
}

func TestAssembleSourceWidthSampleSize(t *testing.T) {
	st := store.NewMemory()
	st.Write(decode.ChannelName(0), audio.AppendFloat32(nil, 0.5, -0.5))
	st.Write(decode.ChannelName(1), audio.AppendFloat32(nil, 0.25, -0.25))

	// s16 source: 8 bytes per channel blob read as 4 frames
	buf, err := assemble(st, audio.Metadata{Channels: 2, SampleSize: 2, SampleRate: 44100})
	if err != nil {
		t.Fatalf("assemble failed: %v", err)
	}

	want := []float32{0.5, -0.5, 0, 0}
	for i, v := range want {
		if buf.Channels[0][i] != v {
			t.Errorf("channel 0 sample %d: expected %v, got %v", i, v, buf.Channels[0][i])
		}
	}
	if len(buf.Channels[1]) != 4 || buf.Channels[1][1] != -0.25 || buf.Channels[1][3] != 0 {
		t.Errorf("unexpected channel 1 samples: %v", buf.Channels[1])
	}
	if st.Len() != 0 {
		t.Errorf("channel blobs not deleted: %v", st.Names())
	}
}

func TestAssembleBadSampleSize(t *testing.T) {
	for _, size := range []int{0, -4} {
		st := store.NewMemory()
		st.Write(decode.ChannelName(0), []byte{0, 0, 0, 0})

		_, err := assemble(st, audio.Metadata{Channels: 1, SampleSize: size})
		if !errors.Is(err, ErrSampleSize) {
			t.Errorf("size %d: expected ErrSampleSize, got %v", size, err)
		}
	}
}

func TestAssembleMissingChannel(t *testing.T) {
	st := store.NewMemory()
	st.Write(decode.ChannelName(0), audio.AppendFloat32(nil, 1))

	_, err := assemble(st, audio.Metadata{Channels: 2, SampleSize: 4})
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound for missing channel, got %v", err)
	}
}
