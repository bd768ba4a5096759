// ABOUTME: Ogg Opus audio decoder
// ABOUTME: Decodes Ogg Opus files to float channels using libopusfile
package decode

import (
	"bytes"
	"io"

	"github.com/Resonate-Protocol/resonate-decode/pkg/audio"
	"gopkg.in/hraban/opus.v2"
)

const (
	// opusfile always decodes at 48kHz
	opusSampleRate = 48000

	// Max frame size: 120ms at 48kHz
	opusMaxFrame = 5760
)

func decodeOpus(data []byte, sink *channelSink) audio.Metadata {
	meta := audio.Metadata{
		Codec:        "opus",
		SampleFormat: "flt",
		SampleRate:   opusSampleRate,
		BitDepth:     32,
	}

	channels := opusHeadChannels(data)
	if channels == 0 {
		return exit(meta, ExitNoAudioStream, "none of the available streams are audio streams")
	}

	stream, err := opus.NewStream(bytes.NewReader(data))
	if err != nil {
		return exit(meta, ExitCannotOpen, "cannot open input file")
	}
	defer stream.Close()

	sink.open(channels)
	pcm := make([]float32, opusMaxFrame*channels)
	for {
		n, err := stream.ReadFloat32(pcm)
		if err == io.EOF {
			break
		}
		if err != nil {
			return exit(meta, ExitReceiveError, "receive error")
		}
		if n == 0 {
			break
		}
		// n is samples per channel
		sink.pushInterleaved(pcm[:n*channels])
	}

	return meta
}

// opusHeadChannels reads the output channel count from the OpusHead packet.
// Returns 0 when no header is found.
func opusHeadChannels(data []byte) int {
	offset := opusHeadOffset(data)
	// OpusHead: magic(8) version(1) channels(1)
	if offset < 0 || offset+9 >= len(data) {
		return 0
	}
	return int(data[offset+9])
}
