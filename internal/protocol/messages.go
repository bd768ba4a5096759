// ABOUTME: Decode service message type definitions
// ABOUTME: Defines structs for every JSON message exchanged on the /decode socket
package protocol

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
)

// Version is the protocol version exchanged in hello messages
const Version = 1

// Message types
const (
	TypeClientHello  = "client/hello"
	TypeServerHello  = "server/hello"
	TypeDecodeReq    = "decode/request"
	TypeDecodeResult = "decode/result"
	TypeDecodeError  = "decode/error"
	TypeServerError  = "server/error"
)

// Error kinds carried in DecodeError
const (
	KindNotReady      = "not_ready"
	KindAcquisition   = "acquisition"
	KindStore         = "store"
	KindDecodeFailure = "decode_failure"
	KindDecodeCrash   = "decode_crash"
	KindAssembly      = "assembly"
	KindInvalid       = "invalid"
	KindClosed        = "closed"
)

// ChannelChunkMessageType tags binary channel messages
const ChannelChunkMessageType = 2

// Message is the top-level wrapper for all protocol messages
type Message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// Envelope is a received message whose payload has not been decoded yet
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Decode unmarshals the payload into v
func (e Envelope) Decode(v interface{}) error {
	if len(e.Payload) == 0 {
		return fmt.Errorf("%s: empty payload", e.Type)
	}
	return json.Unmarshal(e.Payload, v)
}

// ClientHello is sent by clients to initiate the handshake
type ClientHello struct {
	ClientID   string      `json:"client_id"`
	Name       string      `json:"name"`
	Version    int         `json:"version"`
	DeviceInfo *DeviceInfo `json:"device_info,omitempty"`
}

// DeviceInfo contains device identification
type DeviceInfo struct {
	ProductName     string `json:"product_name"`
	Manufacturer    string `json:"manufacturer"`
	SoftwareVersion string `json:"software_version"`
}

// ServerHello is the server's response to client/hello
type ServerHello struct {
	ServerID string   `json:"server_id"`
	Name     string   `json:"name"`
	Version  int      `json:"version"`
	Ready    bool     `json:"ready"`
	Formats  []string `json:"formats"`
}

// DecodeRequest asks the server to decode one input. When Href is empty the
// input bytes follow as the next binary message.
type DecodeRequest struct {
	RequestID  string `json:"request_id"`
	Name       string `json:"name"`
	Href       string `json:"href,omitempty"`
	InlineSize int    `json:"inline_size,omitempty"`
}

// DecodeResult announces a decoded buffer. Channels binary messages follow,
// one per channel in order.
type DecodeResult struct {
	RequestID    string `json:"request_id"`
	Name         string `json:"name"`
	SampleRate   int    `json:"sample_rate"`
	Channels     int    `json:"channels"`
	Frames       int    `json:"frames"`
	Codec        string `json:"codec,omitempty"`
	SampleFormat string `json:"sample_format,omitempty"`
	BitDepth     int    `json:"bit_depth,omitempty"`
}

// DecodeError reports a rejected request
type DecodeError struct {
	RequestID string `json:"request_id"`
	Kind      string `json:"kind"`
	Code      int    `json:"code,omitempty"` // decoder exit code for decode_failure
	Message   string `json:"message"`
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// ServerError reports a connection-level problem
type ServerError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// CreateChannelChunk creates a binary channel message
func CreateChannelChunk(channel int, samples []byte) []byte {
	// Binary format: [message_type:1][channel:2][float32le samples:N]
	chunk := make([]byte, 3+len(samples))
	chunk[0] = ChannelChunkMessageType
	binary.BigEndian.PutUint16(chunk[1:3], uint16(channel))
	copy(chunk[3:], samples)
	return chunk
}

// ParseChannelChunk splits a binary channel message into its channel index and samples
func ParseChannelChunk(data []byte) (channel int, samples []byte, err error) {
	if len(data) < 3 {
		return 0, nil, errors.New("channel chunk too short")
	}
	if data[0] != ChannelChunkMessageType {
		return 0, nil, fmt.Errorf("unexpected binary message type %d", data[0])
	}
	return int(binary.BigEndian.Uint16(data[1:3])), data[3:], nil
}
