// ABOUTME: Tests for the FIFO job queue and request validation
// ABOUTME: Checks ordering, empty behaviour and future settlement
package decodequeue

import (
	"context"
	"errors"
	"testing"
)

func TestQueueFIFO(t *testing.T) {
	q := NewQueue()
	if _, ok := q.TakeNext(); ok {
		t.Fatal("empty queue returned a job")
	}

	for _, name := range []string{"a", "b", "a"} {
		q.Push(&job{req: Bytes(name, []byte{1})})
	}
	if q.Len() != 3 {
		t.Fatalf("expected 3 jobs, got %d", q.Len())
	}

	var got []string
	for {
		j, ok := q.TakeNext()
		if !ok {
			break
		}
		got = append(got, j.req.Name)
	}
	if len(got) != 3 || got[0] != "a" || got[1] != "b" || got[2] != "a" {
		t.Errorf("unexpected order: %v", got)
	}
}

func TestRequestValidate(t *testing.T) {
	if err := Bytes("x.wav", []byte{}).Validate(); err != nil {
		t.Errorf("empty data should be valid: %v", err)
	}
	if err := Ref("x.wav", "file:///tmp/x.wav").Validate(); err != nil {
		t.Errorf("ref should be valid: %v", err)
	}
	if err := Bytes("x.wav", nil).Validate(); !errors.Is(err, ErrInvalidRequest) {
		t.Errorf("nil data should be invalid, got %v", err)
	}
}

func TestFutureSettlesOnce(t *testing.T) {
	f := newFuture("id", "x")
	if !f.settle(nil, errors.New("first")) {
		t.Fatal("first settle ignored")
	}
	if f.settle(nil, errors.New("second")) {
		t.Error("second settle accepted")
	}

	_, err := f.Wait(context.Background())
	if err == nil || err.Error() != "first" {
		t.Errorf("expected first error, got %v", err)
	}
}

func TestFutureWaitContext(t *testing.T) {
	f := newFuture("id", "x")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := f.Wait(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
