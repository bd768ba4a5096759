// ABOUTME: Audio output package for playing decoded buffers
// ABOUTME: Provides Output interface and an oto implementation
// Package output plays decoded audio.
//
// Example:
//
//	out := output.NewOto()
//	defer out.Close()
//	err := output.Play(out, buf)
//	out.Drain()
package output
