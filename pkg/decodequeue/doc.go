// ABOUTME: Single-flight decode job queue
// ABOUTME: Serializes decode requests through one staging store and one backend
// Package decodequeue turns decode requests into audio buffers, one at a time.
//
// A Scheduler owns a FIFO queue. Submit appends a request and returns a
// Future; the scheduler runs at most one pipeline at a time:
//
//	acquire bytes -> stage input -> decode -> unstage input -> classify -> assemble -> settle
//
// Futures settle in submission order. A failing job never stalls the queue.
//
// Jobs submitted before a backend is attached stay queued; Tick reports
// ErrDecoderNotReady until Attach is called.
//
// Example:
//
//	st := store.NewMemory()
//	f, _ := fetch.New(fetch.Config{})
//	sched := decodequeue.New(st, f)
//	sched.Attach(decode.NewNative(st))
//
//	future := sched.Submit(decodequeue.Ref("song.mp3", "https://example.com/song.mp3"))
//	buf, err := future.Wait(ctx)
package decodequeue
