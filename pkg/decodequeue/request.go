// ABOUTME: Decode request and result future types
// ABOUTME: A Future is settled exactly once with a Buffer or an error
package decodequeue

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/Resonate-Protocol/resonate-decode/pkg/audio"
	"github.com/Resonate-Protocol/resonate-decode/pkg/audio/decode"
)

// Request is a unit of decode work. Exactly one of Data and Href is set.
type Request struct {
	// Name is the key the input is staged under
	Name string

	// Data holds bytes already in hand
	Data []byte

	// Href is resolved into bytes by the scheduler's Fetcher
	Href string
}

// Bytes creates a request for bytes already in hand
func Bytes(name string, data []byte) Request {
	return Request{Name: name, Data: data}
}

// Ref creates a request whose bytes are fetched from href
func Ref(name, href string) Request {
	return Request{Name: name, Href: href}
}

// Validate checks the single-source and naming rules
func (r Request) Validate() error {
	if r.Name == "" {
		return fmt.Errorf("%w: missing name", ErrInvalidRequest)
	}
	if strings.HasPrefix(r.Name, decode.ChannelPrefix) {
		return fmt.Errorf("%w: name %q uses reserved prefix %q", ErrInvalidRequest, r.Name, decode.ChannelPrefix)
	}
	hasData := r.Data != nil
	hasRef := r.Href != ""
	if hasData == hasRef {
		return fmt.Errorf("%w: exactly one of data or href must be set", ErrInvalidRequest)
	}
	return nil
}

// Future is the pending outcome of a submitted request
type Future struct {
	id   string
	name string

	once sync.Once
	done chan struct{}
	buf  *audio.Buffer
	err  error
}

func newFuture(id, name string) *Future {
	return &Future{
		id:   id,
		name: name,
		done: make(chan struct{}),
	}
}

// ID returns the identifier assigned at submission
func (f *Future) ID() string {
	return f.id
}

// Name returns the request name
func (f *Future) Name() string {
	return f.name
}

// Done is closed once the future is settled
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Wait blocks until the future settles or ctx is done. Giving up on a wait
// does not cancel the job.
func (f *Future) Wait(ctx context.Context) (*audio.Buffer, error) {
	select {
	case <-f.done:
		return f.buf, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Result returns the settled outcome. It must only be called after Done is closed.
func (f *Future) Result() (*audio.Buffer, error) {
	return f.buf, f.err
}

// settle resolves or rejects the future. Later calls are ignored.
func (f *Future) settle(buf *audio.Buffer, err error) bool {
	settled := false
	f.once.Do(func() {
		f.buf = buf
		f.err = err
		settled = true
		close(f.done)
	})
	return settled
}
