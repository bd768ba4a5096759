// ABOUTME: MP3 audio decoder
// ABOUTME: Decodes MP3 audio to float channels using go-mp3
package decode

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/Resonate-Protocol/resonate-decode/pkg/audio"
	"github.com/hajimehoshi/go-mp3"
)

// go-mp3 always produces 16-bit little-endian stereo
const (
	mp3Channels  = 2
	mp3BitDepth  = 16
	mp3FrameSize = mp3Channels * 2
)

func decodeMP3(data []byte, sink *channelSink) audio.Metadata {
	dec, err := mp3.NewDecoder(bytes.NewReader(data))
	if err != nil {
		return exit(audio.Metadata{Codec: "mp3"}, ExitCannotOpen, "cannot open input file")
	}

	meta := audio.Metadata{
		Codec:        "mp3",
		SampleFormat: "s16",
		SampleRate:   dec.SampleRate(),
		BitDepth:     mp3BitDepth,
	}

	pcm, readErr := io.ReadAll(dec)

	sink.open(mp3Channels)
	frames := len(pcm) / mp3FrameSize
	for i := 0; i < frames; i++ {
		for ch := 0; ch < mp3Channels; ch++ {
			sample := int16(binary.LittleEndian.Uint16(pcm[i*mp3FrameSize+ch*2:]))
			sink.push(ch, audio.IntToFloat(int64(sample), mp3BitDepth))
		}
	}

	if readErr != nil {
		return exit(meta, ExitReceiveError, "receive error")
	}
	return meta
}
