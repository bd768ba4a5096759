// ABOUTME: WebSocket client for the decode service
// ABOUTME: Submits decode requests and reassembles results from channel messages
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/Resonate-Protocol/resonate-decode/internal/protocol"
	"github.com/Resonate-Protocol/resonate-decode/pkg/audio"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// ErrConnectionClosed fails requests still pending when the connection drops
var ErrConnectionClosed = errors.New("connection closed")

// Config holds client configuration
type Config struct {
	URL        string // ws://host:port/decode
	ClientID   string
	Name       string
	DeviceInfo protocol.DeviceInfo
}

// Request is one input to decode. Exactly one of Data and Href is set.
type Request struct {
	Name string
	Data []byte
	Href string
}

// Result is the outcome of a submitted request
type Result struct {
	RequestID string
	Name      string
	Buffer    *audio.Buffer
	Err       error
}

// Client is a decode service connection
type Client struct {
	config  Config
	conn    *websocket.Conn
	mu      sync.RWMutex
	writeMu sync.Mutex

	hello   protocol.ServerHello
	pending map[string]chan Result

	// result being reassembled from binary messages
	current   *Result
	remaining int

	connected bool
	ctx       context.Context
	cancel    context.CancelFunc
}

// NewClient creates a new client
func NewClient(config Config) *Client {
	if config.ClientID == "" {
		config.ClientID = uuid.New().String()
	}
	if config.Name == "" {
		config.Name = config.ClientID
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Client{
		config:  config,
		pending: make(map[string]chan Result),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Connect establishes the connection and performs the handshake
func (c *Client) Connect(ctx context.Context) error {
	log.Printf("Connecting to %s", c.config.URL)

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.config.URL, nil)
	if err != nil {
		return fmt.Errorf("dial failed: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.mu.Unlock()

	if err := c.handshake(); err != nil {
		c.Close()
		return fmt.Errorf("handshake failed: %w", err)
	}

	go c.readMessages()
	return nil
}

// handshake sends client/hello and waits for server/hello
func (c *Client) handshake() error {
	hello := protocol.ClientHello{
		ClientID:   c.config.ClientID,
		Name:       c.config.Name,
		Version:    protocol.Version,
		DeviceInfo: &c.config.DeviceInfo,
	}

	if err := c.sendJSON(protocol.TypeClientHello, hello); err != nil {
		return fmt.Errorf("failed to send client/hello: %w", err)
	}

	c.conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, data, err := c.conn.ReadMessage()
	if err != nil {
		return fmt.Errorf("failed to read server/hello: %w", err)
	}
	c.conn.SetReadDeadline(time.Time{})

	var env protocol.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return fmt.Errorf("failed to parse server/hello: %w", err)
	}

	switch env.Type {
	case protocol.TypeServerHello:
	case protocol.TypeServerError:
		var serr protocol.ServerError
		env.Decode(&serr)
		return fmt.Errorf("server rejected connection: %s", serr.Message)
	default:
		return fmt.Errorf("expected server/hello, got %s", env.Type)
	}

	if err := env.Decode(&c.hello); err != nil {
		return fmt.Errorf("failed to parse server/hello: %w", err)
	}

	log.Printf("Handshake complete with %s (ready: %v)", c.hello.Name, c.hello.Ready)
	return nil
}

// ServerHello returns the server's handshake reply
func (c *Client) ServerHello() protocol.ServerHello {
	return c.hello
}

// Submit sends req and returns a channel that receives its result once
func (c *Client) Submit(req Request) (<-chan Result, error) {
	requestID := uuid.New().String()
	ch := make(chan Result, 1)

	c.mu.Lock()
	if !c.connected {
		c.mu.Unlock()
		return nil, ErrConnectionClosed
	}
	c.pending[requestID] = ch
	c.mu.Unlock()

	msg := protocol.DecodeRequest{
		RequestID: requestID,
		Name:      req.Name,
		Href:      req.Href,
	}
	if req.Href == "" {
		msg.InlineSize = len(req.Data)
	}

	// request and inline bytes must be adjacent on the wire
	c.writeMu.Lock()
	err := c.writeJSONLocked(protocol.TypeDecodeReq, msg)
	if err == nil && req.Href == "" {
		err = c.conn.WriteMessage(websocket.BinaryMessage, req.Data)
	}
	c.writeMu.Unlock()

	if err != nil {
		c.mu.Lock()
		delete(c.pending, requestID)
		c.mu.Unlock()
		return nil, fmt.Errorf("failed to send decode request: %w", err)
	}

	return ch, nil
}

// Decode submits req and waits for its result
func (c *Client) Decode(ctx context.Context, req Request) (*audio.Buffer, error) {
	ch, err := c.Submit(req)
	if err != nil {
		return nil, err
	}

	select {
	case res := <-ch:
		return res.Buffer, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *Client) sendJSON(msgType string, payload interface{}) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.writeJSONLocked(msgType, payload)
}

func (c *Client) writeJSONLocked(msgType string, payload interface{}) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.connected {
		return ErrConnectionClosed
	}
	return c.conn.WriteJSON(protocol.Message{Type: msgType, Payload: payload})
}

// readMessages reads and routes incoming messages
func (c *Client) readMessages() {
	defer c.Close()

	for {
		select {
		case <-c.ctx.Done():
			return
		default:
		}

		messageType, data, err := c.conn.ReadMessage()
		if err != nil {
			if !errors.Is(err, websocket.ErrCloseSent) && c.IsConnected() {
				log.Printf("Read error: %v", err)
			}
			return
		}

		switch messageType {
		case websocket.BinaryMessage:
			c.handleBinaryMessage(data)
		case websocket.TextMessage:
			c.handleJSONMessage(data)
		}
	}
}

// handleBinaryMessage fills the next channel of the result being reassembled
func (c *Client) handleBinaryMessage(data []byte) {
	if c.current == nil {
		log.Printf("Unexpected channel message with no pending result")
		return
	}

	ch, samples, err := protocol.ParseChannelChunk(data)
	if err != nil {
		log.Printf("Invalid channel message: %v", err)
		return
	}

	buf := c.current.Buffer
	if ch < 0 || ch >= len(buf.Channels) {
		log.Printf("Channel %d out of range for %s", ch, c.current.Name)
		return
	}
	buf.Channels[ch] = audio.Float32sFromBytes(samples)

	c.remaining--
	if c.remaining == 0 {
		c.deliver(*c.current)
		c.current = nil
	}
}

// handleJSONMessage routes JSON messages
func (c *Client) handleJSONMessage(data []byte) {
	var env protocol.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		log.Printf("Failed to parse JSON message: %v", err)
		return
	}

	switch env.Type {
	case protocol.TypeDecodeResult:
		var result protocol.DecodeResult
		if err := env.Decode(&result); err != nil {
			log.Printf("Failed to parse decode/result: %v", err)
			return
		}

		res := Result{
			RequestID: result.RequestID,
			Name:      result.Name,
			Buffer: &audio.Buffer{
				SampleRate: result.SampleRate,
				Channels:   make([][]float32, result.Channels),
				Meta: audio.Metadata{
					Channels:     result.Channels,
					SampleSize:   audio.Float32Size,
					SampleRate:   result.SampleRate,
					BitDepth:     result.BitDepth,
					Codec:        result.Codec,
					SampleFormat: result.SampleFormat,
				},
			},
		}
		if result.Channels == 0 {
			c.deliver(res)
			return
		}
		c.current = &res
		c.remaining = result.Channels

	case protocol.TypeDecodeError:
		var derr protocol.DecodeError
		if err := env.Decode(&derr); err != nil {
			log.Printf("Failed to parse decode/error: %v", err)
			return
		}
		c.deliver(Result{RequestID: derr.RequestID, Err: &derr})

	case protocol.TypeServerError:
		var serr protocol.ServerError
		env.Decode(&serr)
		log.Printf("Server error: %s (%s)", serr.Message, serr.Error)

	default:
		log.Printf("Unknown message type: %s", env.Type)
	}
}

func (c *Client) deliver(res Result) {
	c.mu.Lock()
	ch, ok := c.pending[res.RequestID]
	delete(c.pending, res.RequestID)
	c.mu.Unlock()

	if !ok {
		log.Printf("Result for unknown request %s", res.RequestID)
		return
	}
	ch <- res
}

// Close closes the connection and fails pending requests
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.connected {
		return
	}
	c.connected = false
	c.cancel()
	c.conn.Close()

	for id, ch := range c.pending {
		ch <- Result{RequestID: id, Err: ErrConnectionClosed}
		delete(c.pending, id)
	}
	log.Printf("Connection closed")
}

// IsConnected returns connection status
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}
