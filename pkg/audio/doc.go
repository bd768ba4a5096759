// ABOUTME: Audio fundamentals package providing core types and utilities
// ABOUTME: Defines Metadata, ExitStatus, Buffer and float sample helpers
// Package audio provides the data types shared by the decoder, the job queue and
// the decode service.
//
//   - Metadata: what a decode run reports (channels, sample size, rate, exit status)
//   - Buffer: a decoded result with one float32 slice per channel
//
// Channel data travels as little-endian float32 bytes. AppendFloat32 and
// Float32sFromBytes convert between the two forms.
//
// Example:
//
//	blob := audio.AppendFloat32(nil, 0.5, -0.25)
//	samples := audio.Float32sFromBytes(blob) // [0.5 -0.25]
package audio
