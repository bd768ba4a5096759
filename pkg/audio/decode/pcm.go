// ABOUTME: PCM WAV decoder
// ABOUTME: Decodes 8/16/24/32-bit integer WAV files to float channels
package decode

import (
	"bytes"
	"fmt"

	"github.com/Resonate-Protocol/resonate-decode/pkg/audio"
	"github.com/go-audio/wav"
)

const wavFormatPCM = 1

func decodePCM(data []byte, sink *channelSink) audio.Metadata {
	dec := wav.NewDecoder(bytes.NewReader(data))
	if !dec.IsValidFile() {
		return exit(audio.Metadata{Codec: "pcm"}, ExitCannotOpen, "cannot open input file")
	}

	bitDepth := int(dec.BitDepth)
	channels := int(dec.NumChans)
	meta := audio.Metadata{
		Codec:      pcmCodecName(bitDepth),
		SampleRate: int(dec.SampleRate),
		BitDepth:   bitDepth,
	}

	if channels == 0 {
		return exit(meta, ExitNoAudioStream, "none of the available streams are audio streams")
	}
	if dec.WavAudioFormat != wavFormatPCM {
		return exit(meta, ExitInvalidSampleFormat, "invalid sample format")
	}

	switch bitDepth {
	case 8:
		meta.SampleFormat = "u8"
	case 16:
		meta.SampleFormat = "s16"
	case 24, 32:
		meta.SampleFormat = "s32"
	default:
		return exit(meta, ExitInvalidSampleSize, "invalid sample size")
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return exit(meta, ExitReceiveError, "receive error")
	}

	sink.open(channels)
	for i, sample := range buf.Data {
		sink.push(i%channels, audio.IntToFloat(int64(sample), bitDepth))
	}

	return meta
}

func pcmCodecName(bitDepth int) string {
	if bitDepth == 8 {
		return "pcm_u8"
	}
	return fmt.Sprintf("pcm_s%dle", bitDepth)
}
