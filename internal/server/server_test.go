// ABOUTME: Tests for the WebSocket decode service
// ABOUTME: Drives the /decode endpoint end to end with an in-memory scheduler
package server

import (
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Resonate-Protocol/resonate-decode/internal/protocol"
	"github.com/Resonate-Protocol/resonate-decode/pkg/audio"
	"github.com/Resonate-Protocol/resonate-decode/pkg/audio/decode"
	"github.com/Resonate-Protocol/resonate-decode/pkg/decodequeue"
	"github.com/Resonate-Protocol/resonate-decode/pkg/store"
	"github.com/gorilla/websocket"
)

// stubBackend echoes the input bytes as a float32 stereo pair per byte
type stubBackend struct {
	st   store.Store
	exit *audio.ExitStatus
}

func (b *stubBackend) Decode(input string) (audio.Metadata, error) {
	if b.exit != nil {
		return audio.Metadata{Exit: b.exit}, nil
	}

	data, err := b.st.Read(input)
	if err != nil {
		return audio.Metadata{}, err
	}

	left := make([]float32, len(data))
	right := make([]float32, len(data))
	for i, v := range data {
		left[i] = float32(v) / 255
		right[i] = -float32(v) / 255
	}
	b.st.Write(decode.ChannelName(0), audio.AppendFloat32(nil, left...))
	b.st.Write(decode.ChannelName(1), audio.AppendFloat32(nil, right...))

	return audio.Metadata{Channels: 2, SampleSize: 4, SampleRate: 44100, Codec: "stub"}, nil
}

func newTestServer(t *testing.T, exit *audio.ExitStatus) (*httptest.Server, string) {
	t.Helper()

	st := store.NewMemory()
	sched := decodequeue.New(st, nil)
	sched.Attach(&stubBackend{st: st, exit: exit})
	t.Cleanup(sched.Close)

	srv := New(Config{Name: "test-decoder", Port: 8928}, sched, []string{"wav"})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	return ts, "ws" + strings.TrimPrefix(ts.URL, "http") + DecodePath
}

func dial(t *testing.T, url, clientID string) *websocket.Conn {
	t.Helper()

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	writeJSON(t, conn, protocol.TypeClientHello, protocol.ClientHello{ClientID: clientID, Name: clientID, Version: protocol.Version})
	return conn
}

func writeJSON(t *testing.T, conn *websocket.Conn, msgType string, payload interface{}) {
	t.Helper()
	if err := conn.WriteJSON(protocol.Message{Type: msgType, Payload: payload}); err != nil {
		t.Fatalf("write %s failed: %v", msgType, err)
	}
}

func readEnvelope(t *testing.T, conn *websocket.Conn) protocol.Envelope {
	t.Helper()

	msgType, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if msgType != websocket.TextMessage {
		t.Fatalf("expected text message, got %d", msgType)
	}

	var env protocol.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	return env
}

func TestDecodeInline(t *testing.T) {
	_, url := newTestServer(t, nil)
	conn := dial(t, url, "client-1")

	hello := readEnvelope(t, conn)
	if hello.Type != protocol.TypeServerHello {
		t.Fatalf("expected server/hello, got %s", hello.Type)
	}
	var sh protocol.ServerHello
	if err := hello.Decode(&sh); err != nil {
		t.Fatalf("decode hello: %v", err)
	}
	if !sh.Ready {
		t.Error("expected server to report ready")
	}

	writeJSON(t, conn, protocol.TypeDecodeReq, protocol.DecodeRequest{RequestID: "r1", Name: "in.raw", InlineSize: 3})
	if err := conn.WriteMessage(websocket.BinaryMessage, []byte{0, 255, 51}); err != nil {
		t.Fatalf("write input: %v", err)
	}

	env := readEnvelope(t, conn)
	if env.Type != protocol.TypeDecodeResult {
		t.Fatalf("expected decode/result, got %s: %s", env.Type, env.Payload)
	}
	var result protocol.DecodeResult
	if err := env.Decode(&result); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if result.RequestID != "r1" || result.Channels != 2 || result.Frames != 3 || result.SampleRate != 44100 {
		t.Fatalf("unexpected result: %+v", result)
	}

	for want := 0; want < 2; want++ {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read channel %d: %v", want, err)
		}
		if msgType != websocket.BinaryMessage {
			t.Fatalf("expected binary channel message, got %d", msgType)
		}
		ch, samples, err := protocol.ParseChannelChunk(data)
		if err != nil {
			t.Fatalf("parse chunk: %v", err)
		}
		if ch != want {
			t.Errorf("expected channel %d, got %d", want, ch)
		}
		floats := audio.Float32sFromBytes(samples)
		if len(floats) != 3 {
			t.Fatalf("expected 3 samples, got %d", len(floats))
		}
		if want == 0 && floats[1] != 1 {
			t.Errorf("expected full scale sample, got %v", floats[1])
		}
	}
}

func TestDecodeFailureReported(t *testing.T) {
	_, url := newTestServer(t, &audio.ExitStatus{Code: decode.ExitCodecNotSupported, Message: "the codec is not supported"})
	conn := dial(t, url, "client-2")
	readEnvelope(t, conn)

	writeJSON(t, conn, protocol.TypeDecodeReq, protocol.DecodeRequest{RequestID: "r2", Name: "clip.ogg"})
	conn.WriteMessage(websocket.BinaryMessage, []byte("OggS"))

	env := readEnvelope(t, conn)
	if env.Type != protocol.TypeDecodeError {
		t.Fatalf("expected decode/error, got %s", env.Type)
	}
	var derr protocol.DecodeError
	if err := env.Decode(&derr); err != nil {
		t.Fatalf("decode error payload: %v", err)
	}
	if derr.Kind != protocol.KindDecodeFailure || derr.Code != decode.ExitCodecNotSupported {
		t.Errorf("unexpected error: %+v", derr)
	}
	if derr.Message != "the codec is not supported" {
		t.Errorf("expected exit message verbatim, got %q", derr.Message)
	}
}

func TestResultsInRequestOrder(t *testing.T) {
	_, url := newTestServer(t, nil)
	conn := dial(t, url, "client-3")
	readEnvelope(t, conn)

	ids := []string{"a", "b", "c"}
	for _, id := range ids {
		writeJSON(t, conn, protocol.TypeDecodeReq, protocol.DecodeRequest{RequestID: id, Name: id + ".raw"})
		conn.WriteMessage(websocket.BinaryMessage, []byte{1})
	}

	for _, id := range ids {
		env := readEnvelope(t, conn)
		var result protocol.DecodeResult
		if err := env.Decode(&result); err != nil {
			t.Fatalf("decode result: %v", err)
		}
		if result.RequestID != id {
			t.Fatalf("expected %s, got %s", id, result.RequestID)
		}
		for i := 0; i < result.Channels; i++ {
			if _, _, err := conn.ReadMessage(); err != nil {
				t.Fatalf("read channel: %v", err)
			}
		}
	}
}

func TestInvalidRequestName(t *testing.T) {
	_, url := newTestServer(t, nil)
	conn := dial(t, url, "client-4")
	readEnvelope(t, conn)

	writeJSON(t, conn, protocol.TypeDecodeReq, protocol.DecodeRequest{RequestID: "bad", Name: "channel_0"})
	conn.WriteMessage(websocket.BinaryMessage, []byte{1})

	env := readEnvelope(t, conn)
	var derr protocol.DecodeError
	if err := env.Decode(&derr); err != nil {
		t.Fatalf("decode error payload: %v", err)
	}
	if derr.Kind != protocol.KindInvalid {
		t.Errorf("expected invalid kind, got %+v", derr)
	}
}

func TestDuplicateClientRejected(t *testing.T) {
	_, url := newTestServer(t, nil)
	first := dial(t, url, "same")
	readEnvelope(t, first)

	second := dial(t, url, "same")
	env := readEnvelope(t, second)
	if env.Type != protocol.TypeServerError {
		t.Fatalf("expected server/error for duplicate, got %s", env.Type)
	}
}

func TestHelloRequired(t *testing.T) {
	_, url := newTestServer(t, nil)

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	writeJSON(t, conn, protocol.TypeDecodeReq, protocol.DecodeRequest{Name: "x"})

	env := readEnvelope(t, conn)
	if env.Type != protocol.TypeServerError {
		t.Fatalf("expected server/error, got %s", env.Type)
	}
}

func TestDecodeErrorFor(t *testing.T) {
	cases := []struct {
		err  error
		kind string
	}{
		{&decodequeue.DecodeFailure{Code: 1, Message: "cannot open input file"}, protocol.KindDecodeFailure},
		{&decodequeue.DecodeCrash{Err: errors.New("boom")}, protocol.KindDecodeCrash},
		{&decodequeue.AcquisitionError{Err: errors.New("HTTP 404")}, protocol.KindAcquisition},
		{decodequeue.ErrClosed, protocol.KindClosed},
		{decodequeue.ErrInvalidRequest, protocol.KindInvalid},
		{decodequeue.ErrSampleSize, protocol.KindAssembly},
		{&store.IOError{Op: "write", Name: "x", Err: errors.New("disk full")}, protocol.KindStore},
	}

	for _, tc := range cases {
		got := DecodeErrorFor("id", tc.err)
		if got.Kind != tc.kind {
			t.Errorf("%v: expected kind %s, got %s", tc.err, tc.kind, got.Kind)
		}
		if got.Message != tc.err.Error() {
			t.Errorf("message changed: %q", got.Message)
		}
	}
}
