// ABOUTME: Single-flight decode scheduler
// ABOUTME: Runs at most one acquire/stage/decode/assemble pipeline at a time, in FIFO order
package decodequeue

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/Resonate-Protocol/resonate-decode/pkg/audio"
	"github.com/Resonate-Protocol/resonate-decode/pkg/audio/decode"
	"github.com/Resonate-Protocol/resonate-decode/pkg/store"
	"github.com/google/uuid"
)

// Fetcher resolves a request's Href into bytes
type Fetcher interface {
	Fetch(ctx context.Context, href string) ([]byte, error)
}

type state int

const (
	stateIdle state = iota
	stateRunning
)

func (s state) String() string {
	if s == stateRunning {
		return "running"
	}
	return "idle"
}

// Stats is a snapshot of scheduler activity
type Stats struct {
	Submitted int64
	Completed int64
	Failed    int64
	Queued    int
	Running   bool
	Ready     bool
	Current   string // name of the in-flight job
}

// Scheduler owns a job queue and drives one decode pipeline at a time.
// Jobs settle in submission order.
type Scheduler struct {
	store   store.Store
	fetcher Fetcher
	ctx     context.Context
	cancel  context.CancelFunc

	mu      sync.Mutex
	backend decode.Backend
	queue   *Queue
	state   state
	current string
	closed  bool
	stats   Stats

	wg sync.WaitGroup
}

// New creates a scheduler with no backend. Jobs may be submitted right away;
// they start once Attach supplies a backend.
func New(st store.Store, fetcher Fetcher) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		store:   st,
		fetcher: fetcher,
		ctx:     ctx,
		cancel:  cancel,
		queue:   NewQueue(),
	}
}

// Attach installs the decode backend and starts draining anything queued
func (s *Scheduler) Attach(backend decode.Backend) {
	if backend == nil {
		log.Printf("Ignoring nil decode backend")
		return
	}

	s.mu.Lock()
	s.backend = backend
	queued := s.queue.Len()
	s.mu.Unlock()

	log.Printf("Decoder ready (%d jobs queued)", queued)

	if err := s.Tick(); err != nil {
		log.Printf("Scheduling after attach failed: %v", err)
	}
}

// Ready reports whether a backend is attached
func (s *Scheduler) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.backend != nil
}

// Submit queues req and returns its future. Submit never blocks on decoding.
// Invalid requests and submissions after Close are rejected immediately.
func (s *Scheduler) Submit(req Request) *Future {
	future := newFuture(uuid.New().String(), req.Name)

	if err := req.Validate(); err != nil {
		future.settle(nil, err)
		return future
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		future.settle(nil, ErrClosed)
		return future
	}
	s.queue.Push(&job{req: req, future: future})
	s.stats.Submitted++
	queued := s.queue.Len()
	s.mu.Unlock()

	log.Printf("Queued decode %s (id: %s, pending: %d)", req.Name, future.ID(), queued)

	if err := s.Tick(); err != nil {
		log.Printf("Decode %s waiting: %v", req.Name, err)
	}
	return future
}

// Tick starts the next queued job if the scheduler is idle. It returns
// ErrDecoderNotReady, without dequeuing anything, while no backend is attached.
func (s *Scheduler) Tick() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == stateRunning {
		return nil
	}
	if s.backend == nil {
		return ErrDecoderNotReady
	}

	j, ok := s.queue.TakeNext()
	if !ok {
		return nil
	}

	s.state = stateRunning
	s.current = j.req.Name

	s.wg.Add(1)
	go s.drain(s.backend, j)
	return nil
}

// drain runs j and then every job queued behind it. The running state is
// held from the first pipeline stage until the last job has settled.
func (s *Scheduler) drain(backend decode.Backend, j *job) {
	defer s.wg.Done()

	for {
		buf, err := s.process(backend, j)
		s.settle(j, buf, err)

		s.mu.Lock()
		next, ok := s.queue.TakeNext()
		if !ok {
			s.state = stateIdle
			s.current = ""
			s.mu.Unlock()
			return
		}
		backend = s.backend
		s.current = next.req.Name
		s.mu.Unlock()

		j = next
	}
}

func (s *Scheduler) settle(j *job, buf *audio.Buffer, err error) {
	j.future.settle(buf, err)

	s.mu.Lock()
	if err != nil {
		s.stats.Failed++
	} else {
		s.stats.Completed++
	}
	s.mu.Unlock()

	if err != nil {
		log.Printf("Decode %s failed: %v", j.req.Name, err)
		return
	}
	log.Printf("Decode %s complete: %d channels, %d frames, %d Hz",
		j.req.Name, buf.NumChannels(), buf.Frames(), buf.SampleRate)
}

// process runs the pipeline for one job. No channel blob survives it,
// whatever the outcome.
func (s *Scheduler) process(backend decode.Backend, j *job) (*audio.Buffer, error) {
	name := j.req.Name

	data, err := s.acquire(j.req)
	if err != nil {
		return nil, err
	}

	if err := s.store.Write(name, data); err != nil {
		s.discard(name)
		return nil, err
	}

	meta, decodeErr := callDecode(backend, name)

	var primary error
	switch {
	case meta.Exit != nil:
		primary = &DecodeFailure{Name: name, Code: meta.Exit.Code, Message: meta.Exit.Message}
	case decodeErr != nil:
		primary = &DecodeCrash{Name: name, Err: decodeErr}
	}

	if err := s.store.Delete(name); err != nil {
		if primary == nil {
			primary = err
		} else {
			log.Printf("Cleanup of %s failed: %v", name, err)
		}
	}

	if primary != nil {
		s.sweepChannels(meta.Channels)
		return nil, primary
	}

	buf, err := assemble(s.store, meta)
	s.sweepChannels(meta.Channels)
	if err != nil {
		return nil, err
	}
	return buf, nil
}

func (s *Scheduler) acquire(req Request) ([]byte, error) {
	if req.Data != nil {
		return req.Data, nil
	}

	if s.fetcher == nil {
		return nil, &AcquisitionError{Name: req.Name, Href: req.Href, Err: errors.New("no fetcher configured")}
	}

	data, err := s.fetcher.Fetch(s.ctx, req.Href)
	if err != nil {
		return nil, &AcquisitionError{Name: req.Name, Href: req.Href, Err: err}
	}
	return data, nil
}

// callDecode invokes the backend, converting a panic into a crash error
func callDecode(backend decode.Backend, name string) (meta audio.Metadata, err error) {
	defer func() {
		if r := recover(); r != nil {
			meta = audio.Metadata{}
			err = fmt.Errorf("decoder panic: %v", r)
		}
	}()
	return backend.Decode(name)
}

// discard removes a possibly half-written input blob
func (s *Scheduler) discard(name string) {
	if !store.Exists(s.store, name) {
		return
	}
	if err := s.store.Delete(name); err != nil {
		log.Printf("Cleanup of %s failed: %v", name, err)
	}
}

// sweepChannels deletes channel blobs left by a run. known is the channel
// count the decoder reported; blobs past it are found by probing.
func (s *Scheduler) sweepChannels(known int) {
	for i := 0; ; i++ {
		name := decode.ChannelName(i)
		if i >= known && !store.Exists(s.store, name) {
			return
		}
		if err := s.store.Delete(name); err != nil && !errors.Is(err, store.ErrNotFound) {
			log.Printf("Cleanup of %s failed: %v", name, err)
		}
	}
}

// Stats returns a snapshot of scheduler activity
func (s *Scheduler) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := s.stats
	stats.Queued = s.queue.Len()
	stats.Running = s.state == stateRunning
	stats.Ready = s.backend != nil
	stats.Current = s.current
	return stats
}

// Close rejects every queued job with ErrClosed, waits for the in-flight job
// to settle and refuses further submissions. The running job is not cancelled.
func (s *Scheduler) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	pending := s.queue.drain()
	s.stats.Failed += int64(len(pending))
	s.mu.Unlock()

	for _, j := range pending {
		j.future.settle(nil, ErrClosed)
	}
	if len(pending) > 0 {
		log.Printf("Rejected %d queued decode jobs on close", len(pending))
	}

	s.wg.Wait()
	s.cancel()
}
