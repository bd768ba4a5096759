// ABOUTME: FLAC audio decoder
// ABOUTME: Decodes FLAC frames to float channels using mewkiz/flac
package decode

import (
	"bytes"
	"io"

	"github.com/Resonate-Protocol/resonate-decode/pkg/audio"
	"github.com/mewkiz/flac"
)

func decodeFLAC(data []byte, sink *channelSink) audio.Metadata {
	stream, err := flac.New(bytes.NewReader(data))
	if err != nil {
		return exit(audio.Metadata{Codec: "flac"}, ExitCannotOpen, "cannot open input file")
	}

	info := stream.Info
	channels := int(info.NChannels)
	bitDepth := int(info.BitsPerSample)

	meta := audio.Metadata{
		Codec:      "flac",
		SampleRate: int(info.SampleRate),
		BitDepth:   bitDepth,
	}

	if channels == 0 {
		return exit(meta, ExitNoAudioStream, "none of the available streams are audio streams")
	}
	if bitDepth < 4 || bitDepth > 32 {
		return exit(meta, ExitInvalidSampleSize, "invalid sample size")
	}

	// FLAC subframes are planar
	if bitDepth <= 16 {
		meta.SampleFormat = "s16p"
	} else {
		meta.SampleFormat = "s32p"
	}

	sink.open(channels)
	for {
		frame, err := stream.ParseNext()
		if err == io.EOF {
			break
		}
		if err != nil {
			return exit(meta, ExitReceiveError, "receive error")
		}

		for i := 0; i < int(frame.BlockSize); i++ {
			for ch := 0; ch < channels && ch < len(frame.Subframes); ch++ {
				sink.push(ch, audio.IntToFloat(int64(frame.Subframes[ch].Samples[i]), bitDepth))
			}
		}
	}

	return meta
}
