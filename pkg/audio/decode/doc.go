// ABOUTME: Audio decoder package for multiple codec support
// ABOUTME: Provides the Backend interface and the in-process Native decoder
// Package decode provides the decode routine used by the job queue.
//
// A Backend reads a staged input blob from a store.Store and writes one blob
// per channel named channel_0, channel_1, ... Each channel blob holds
// little-endian float32 samples, so Metadata.SampleSize is always 4 for the
// Native backend.
//
// Supports: WAV (8/16/24/32-bit integer PCM), MP3, FLAC, Ogg Opus
//
// Failures inside a completed run are reported through Metadata.Exit with the
// decoder's exit codes (1 cannot open input file, 2 no audio stream,
// 3 codec not supported, 8 invalid sample size, 9 invalid sample format,
// 10 receive error).
//
// Example:
//
//	st := store.NewMemory()
//	st.Write("clip.flac", data)
//	meta, err := decode.NewNative(st).Decode("clip.flac")
package decode
