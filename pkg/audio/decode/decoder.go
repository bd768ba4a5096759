// ABOUTME: Decode backend interface and the in-process native decoder
// ABOUTME: Reads a staged input blob and writes one float32 blob per channel
package decode

import (
	"fmt"
	"log"
	"strconv"

	"github.com/Resonate-Protocol/resonate-decode/pkg/audio"
	"github.com/Resonate-Protocol/resonate-decode/pkg/store"
)

// ChannelPrefix is the blob name prefix of per-channel decoder output
const ChannelPrefix = "channel_"

// Exit codes reported in audio.ExitStatus
const (
	ExitCannotOpen          = 1
	ExitNoAudioStream       = 2
	ExitCodecNotSupported   = 3
	ExitInvalidSampleSize   = 8
	ExitInvalidSampleFormat = 9
	ExitReceiveError        = 10
)

// ChannelName returns the blob name of channel i
func ChannelName(i int) string {
	return ChannelPrefix + strconv.Itoa(i)
}

// Backend is a synchronous decode routine. Decode reads the blob named input,
// writes channel_0..channel_<n-1> and returns the run's metadata.
//
// A run that completes but fails reports it in Metadata.Exit and returns a nil
// error. A non-nil error means the routine itself crashed.
type Backend interface {
	Decode(input string) (audio.Metadata, error)
}

// codecFunc decodes data into sink and returns the run's metadata
type codecFunc func(data []byte, sink *channelSink) audio.Metadata

// Native decodes WAV, MP3, FLAC and Ogg Opus in process
type Native struct {
	store  store.Store
	codecs map[Format]codecFunc
}

// NewNative creates a native backend operating on s
func NewNative(s store.Store) *Native {
	return &Native{
		store: s,
		codecs: map[Format]codecFunc{
			FormatWAV:  decodePCM,
			FormatMP3:  decodeMP3,
			FormatFLAC: decodeFLAC,
			FormatOpus: decodeOpus,
		},
	}
}

// Formats returns the container formats this backend can decode
func (n *Native) Formats() []Format {
	formats := make([]Format, 0, len(n.codecs))
	for _, f := range []Format{FormatWAV, FormatMP3, FormatFLAC, FormatOpus} {
		if _, ok := n.codecs[f]; ok {
			formats = append(formats, f)
		}
	}
	return formats
}

// Decode runs the decoder on the staged blob named input
func (n *Native) Decode(input string) (audio.Metadata, error) {
	data, err := n.store.Read(input)
	if err != nil {
		return audio.Metadata{}, fmt.Errorf("failed to read staged input: %w", err)
	}

	format := Sniff(data)
	if format == FormatUnknown {
		return exit(audio.Metadata{}, ExitCannotOpen, "cannot open input file"), nil
	}

	codec, ok := n.codecs[format]
	if !ok {
		return exit(audio.Metadata{Codec: string(format)}, ExitCodecNotSupported, "the codec is not supported"), nil
	}

	sink := &channelSink{}
	meta := codec(data, sink)

	// Channels decoded before a mid-stream failure are still written so the
	// caller sees the same blobs a crashed run would leave behind.
	if len(sink.channels) > 0 {
		if err := sink.flush(n.store); err != nil {
			return meta, fmt.Errorf("failed to write channel output: %w", err)
		}
		meta.Channels = len(sink.channels)
		meta.SampleSize = audio.Float32Size
	}

	if meta.Exit != nil {
		log.Printf("Decode %s: exit %d (%s)", input, meta.Exit.Code, meta.Exit.Message)
	} else {
		log.Printf("Decoded %s: %s, %d Hz, %d channels, %d frames",
			input, meta.Codec, meta.SampleRate, meta.Channels, sink.frames())
	}

	return meta, nil
}

func exit(meta audio.Metadata, code int, message string) audio.Metadata {
	meta.Exit = &audio.ExitStatus{Code: code, Message: message}
	return meta
}
