// ABOUTME: Source fetching package
// ABOUTME: Resolves decode source references into raw bytes
// Package fetch resolves a decode request's source reference into bytes.
//
// HTTP(S) URLs are fetched with net/http and may be cached on disk. file://
// URLs and bare paths are read from the local filesystem.
//
// Example:
//
//	f, err := fetch.New(fetch.Config{MaxBytes: 64 << 20})
//	data, err := f.Fetch(ctx, "https://example.com/clip.flac")
package fetch
