// ABOUTME: Channel assembler for decoded output
// ABOUTME: Reads channel blobs into a Buffer and deletes them as it goes
package decodequeue

import (
	"fmt"
	"log"

	"github.com/Resonate-Protocol/resonate-decode/pkg/audio"
	"github.com/Resonate-Protocol/resonate-decode/pkg/audio/decode"
	"github.com/Resonate-Protocol/resonate-decode/pkg/store"
)

// assemble builds a Buffer from channel_0..channel_<n-1>. Channel 0's size
// divided by SampleSize sets the frame count; every channel is truncated or
// zero-padded to it. Blobs hold float32 samples unless SampleSize is 8.
func assemble(st store.Store, meta audio.Metadata) (*audio.Buffer, error) {
	buf := &audio.Buffer{
		SampleRate: meta.SampleRate,
		Channels:   make([][]float32, meta.Channels),
		Meta:       meta,
	}
	if meta.Channels == 0 {
		return buf, nil
	}

	if meta.SampleSize <= 0 {
		return nil, fmt.Errorf("%w: %d bytes", ErrSampleSize, meta.SampleSize)
	}

	samplesFrom := audio.Float32sFromBytes
	if meta.SampleSize == audio.Float64Size {
		samplesFrom = audio.Float64sFromBytes
	}

	size, err := st.Size(decode.ChannelName(0))
	if err != nil {
		return nil, err
	}
	frames := int(size) / meta.SampleSize

	for ch := 0; ch < meta.Channels; ch++ {
		name := decode.ChannelName(ch)

		data, err := st.Read(name)
		if err != nil {
			return nil, err
		}

		samples := samplesFrom(data)
		if len(samples) != frames {
			log.Printf("Channel %d has %d frames, expected %d", ch, len(samples), frames)
		}

		channel := make([]float32, frames)
		copy(channel, samples)
		buf.Channels[ch] = channel

		if err := st.Delete(name); err != nil {
			return nil, err
		}
	}

	return buf, nil
}
