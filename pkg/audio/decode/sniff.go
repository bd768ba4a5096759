// ABOUTME: Container format detection
// ABOUTME: Identifies WAV, MP3, FLAC and Ogg streams from their leading bytes
package decode

import "bytes"

// Format identifies an input container
type Format string

const (
	FormatUnknown Format = ""
	FormatWAV     Format = "wav"
	FormatMP3     Format = "mp3"
	FormatFLAC    Format = "flac"
	FormatOpus    Format = "opus"
	FormatOgg     Format = "ogg" // Ogg without an Opus stream
)

// opusHeadWindow bounds the search for the OpusHead packet in the first Ogg page
const opusHeadWindow = 512

// Sniff returns the container format of data
func Sniff(data []byte) Format {
	if len(data) < 4 {
		return FormatUnknown
	}

	switch {
	case len(data) >= 12 && bytes.Equal(data[0:4], []byte("RIFF")) && bytes.Equal(data[8:12], []byte("WAVE")):
		return FormatWAV
	case bytes.Equal(data[0:4], []byte("fLaC")):
		return FormatFLAC
	case bytes.Equal(data[0:4], []byte("OggS")):
		if opusHeadOffset(data) >= 0 {
			return FormatOpus
		}
		return FormatOgg
	case bytes.Equal(data[0:3], []byte("ID3")):
		return FormatMP3
	case data[0] == 0xFF && data[1]&0xE0 == 0xE0:
		// MPEG audio frame sync
		return FormatMP3
	}

	return FormatUnknown
}

func opusHeadOffset(data []byte) int {
	window := data
	if len(window) > opusHeadWindow {
		window = window[:opusHeadWindow]
	}
	return bytes.Index(window, []byte("OpusHead"))
}
