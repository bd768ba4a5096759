// ABOUTME: Tests for the decode service client
// ABOUTME: Runs the client against an in-process server over httptest
package client

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Resonate-Protocol/resonate-decode/internal/protocol"
	"github.com/Resonate-Protocol/resonate-decode/internal/server"
	"github.com/Resonate-Protocol/resonate-decode/pkg/audio"
	"github.com/Resonate-Protocol/resonate-decode/pkg/audio/decode"
	"github.com/Resonate-Protocol/resonate-decode/pkg/decodequeue"
	"github.com/Resonate-Protocol/resonate-decode/pkg/store"
)

// monoBackend turns each input byte into one sample
type monoBackend struct {
	st store.Store
}

func (b *monoBackend) Decode(input string) (audio.Metadata, error) {
	data, err := b.st.Read(input)
	if err != nil {
		return audio.Metadata{}, err
	}
	if len(data) == 0 {
		return audio.Metadata{Exit: &audio.ExitStatus{Code: decode.ExitCannotOpen, Message: "cannot open input file"}}, nil
	}

	samples := make([]float32, len(data))
	for i, v := range data {
		samples[i] = audio.IntToFloat(int64(v), 8)
	}
	if err := b.st.Write(decode.ChannelName(0), audio.AppendFloat32(nil, samples...)); err != nil {
		return audio.Metadata{}, err
	}
	return audio.Metadata{Channels: 1, SampleSize: 4, SampleRate: 8000}, nil
}

func connect(t *testing.T) *Client {
	t.Helper()

	st := store.NewMemory()
	sched := decodequeue.New(st, nil)
	sched.Attach(&monoBackend{st: st})
	t.Cleanup(sched.Close)

	srv := server.New(server.Config{Name: "test"}, sched, nil)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	c := NewClient(Config{URL: "ws" + strings.TrimPrefix(ts.URL, "http") + server.DecodePath})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := c.Connect(ctx); err != nil {
		t.Fatalf("connect failed: %v", err)
	}
	t.Cleanup(c.Close)
	return c
}

func TestNewClientDefaults(t *testing.T) {
	c := NewClient(Config{URL: "ws://localhost:8928/decode"})
	if c.config.ClientID == "" {
		t.Error("expected generated client ID")
	}
	if c.config.Name != c.config.ClientID {
		t.Errorf("expected name to default to client ID, got %s", c.config.Name)
	}
}

func TestDecodeRoundTrip(t *testing.T) {
	c := connect(t)

	if !c.ServerHello().Ready {
		t.Error("expected ready server")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	buf, err := c.Decode(ctx, Request{Name: "tone.raw", Data: []byte{127, 254, 0}})
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if buf.NumChannels() != 1 || buf.Frames() != 3 || buf.SampleRate != 8000 {
		t.Fatalf("unexpected buffer: %d channels, %d frames, %d Hz", buf.NumChannels(), buf.Frames(), buf.SampleRate)
	}
	if buf.Channels[0][0] != 0 {
		t.Errorf("expected silence for midpoint sample, got %v", buf.Channels[0][0])
	}
}

func TestDecodeErrorSurfaced(t *testing.T) {
	c := connect(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := c.Decode(ctx, Request{Name: "empty.raw", Data: []byte{}})

	var derr *protocol.DecodeError
	if !errors.As(err, &derr) {
		t.Fatalf("expected DecodeError, got %T: %v", err, err)
	}
	if derr.Kind != protocol.KindDecodeFailure || derr.Message != "cannot open input file" {
		t.Errorf("unexpected error: %+v", derr)
	}
}

func TestConcurrentSubmits(t *testing.T) {
	c := connect(t)

	var results []<-chan Result
	for i := 1; i <= 5; i++ {
		ch, err := c.Submit(Request{Name: "clip.raw", Data: make([]byte, i)})
		if err != nil {
			t.Fatalf("submit failed: %v", err)
		}
		results = append(results, ch)
	}

	for i, ch := range results {
		select {
		case res := <-ch:
			if res.Err != nil {
				t.Fatalf("request %d failed: %v", i, res.Err)
			}
			if res.Buffer.Frames() != i+1 {
				t.Errorf("request %d: expected %d frames, got %d", i, i+1, res.Buffer.Frames())
			}
		case <-time.After(5 * time.Second):
			t.Fatalf("request %d timed out", i)
		}
	}
}

func TestSubmitAfterClose(t *testing.T) {
	c := connect(t)
	c.Close()

	if _, err := c.Submit(Request{Name: "x", Data: []byte{1}}); !errors.Is(err, ErrConnectionClosed) {
		t.Errorf("expected ErrConnectionClosed, got %v", err)
	}
}
