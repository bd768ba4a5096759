// ABOUTME: Audio resampling package using linear interpolation
// ABOUTME: Converts decoded buffers between sample rates
// Package resample provides sample rate conversion for decoded buffers.
//
// Uses linear interpolation per channel. Handles both upsampling and
// downsampling.
//
// Example:
//
//	out, err := resample.Buffer(buf, 48000)
package resample
