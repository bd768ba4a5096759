// ABOUTME: WebSocket decode service
// ABOUTME: Accepts decode requests from clients, feeds one scheduler, streams results back
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/Resonate-Protocol/resonate-decode/internal/discovery"
	"github.com/Resonate-Protocol/resonate-decode/internal/protocol"
	"github.com/Resonate-Protocol/resonate-decode/pkg/audio"
	"github.com/Resonate-Protocol/resonate-decode/pkg/decodequeue"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"
)

const (
	// DecodePath is the WebSocket endpoint
	DecodePath = "/decode"

	writeDeadline = 10 * time.Second
	pingInterval  = 30 * time.Second
	statusPeriod  = 500 * time.Millisecond

	// pendingDepth bounds unanswered requests per client
	pendingDepth = 64
)

var errClientGone = errors.New("client disconnected")

// Config holds server configuration
type Config struct {
	Port           int
	Name           string
	EnableMDNS     bool
	Debug          bool
	UseTUI         bool
	MaxInlineBytes int64 // read limit for inline input, 0 = unlimited
}

// Server is the decode service
type Server struct {
	config   Config
	serverID string
	sched    *decodequeue.Scheduler
	formats  []string

	upgrader   websocket.Upgrader
	httpServer *http.Server
	mux        *http.ServeMux

	clients   map[string]*Client
	clientsMu sync.RWMutex

	mdnsManager *discovery.Manager

	tui       *ServerTUI
	startTime time.Time

	stopChan   chan struct{}
	stopOnce   sync.Once
	shutdownMu sync.RWMutex
	isShutdown bool
	wg         sync.WaitGroup
}

// Client is a connected submitter
type Client struct {
	ID   string
	Name string
	Conn *websocket.Conn

	sendChan chan interface{}
	pending  chan pendingResult
	done     chan struct{}

	mu        sync.RWMutex
	requests  int
	delivered int
}

// pendingResult is an accepted request awaiting settlement
type pendingResult struct {
	requestID string
	future    *decodequeue.Future
}

// New creates a server fronting sched. formats is reported in server/hello.
func New(config Config, sched *decodequeue.Scheduler, formats []string) *Server {
	s := &Server{
		config:   config,
		serverID: uuid.New().String(),
		sched:    sched,
		formats:  formats,
		mux:      http.NewServeMux(),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// Local network service; browsers are allowed but logged
				if origin := r.Header.Get("Origin"); origin != "" {
					log.Printf("Accepting WebSocket from origin: %s", origin)
				}
				return true
			},
		},
		clients:   make(map[string]*Client),
		startTime: time.Now(),
		stopChan:  make(chan struct{}),
	}

	s.mux.HandleFunc(DecodePath, s.handleWebSocket)
	return s
}

// Handler exposes the HTTP handler, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Start serves until Stop is called, the TUI quits or the listener fails
func (s *Server) Start() error {
	if s.config.UseTUI {
		s.tui = NewServerTUI()

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			if err := s.tui.Start(s.config.Name, s.config.Port); err != nil {
				log.Printf("TUI error: %v", err)
			}
		}()
	}

	log.Printf("Server starting: %s (ID: %s)", s.config.Name, s.serverID)

	if s.config.EnableMDNS {
		s.mdnsManager = discovery.NewManager(discovery.Config{
			ServiceName: s.config.Name,
			Port:        s.config.Port,
			Path:        DecodePath,
		})

		if err := s.mdnsManager.Advertise(); err != nil {
			log.Printf("Failed to start mDNS advertisement: %v", err)
		} else {
			log.Printf("mDNS advertisement started")
		}
	}

	addr := fmt.Sprintf(":%d", s.config.Port)
	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: s.mux,
	}
	log.Printf("WebSocket server listening on %s%s", addr, DecodePath)

	g, ctx := errgroup.WithContext(context.Background())

	g.Go(func() error {
		if err := s.httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server failed: %w", err)
		}
		return nil
	})

	if s.tui != nil {
		g.Go(func() error {
			s.statusLoop(ctx)
			return nil
		})
	}

	g.Go(func() error {
		var tuiQuit <-chan struct{}
		if s.tui != nil {
			tuiQuit = s.tui.QuitChan()
		}

		select {
		case <-s.stopChan:
			log.Printf("Server shutting down...")
		case <-tuiQuit:
			log.Printf("TUI quit requested, shutting down...")
		case <-ctx.Done():
		}

		s.shutdown()
		return nil
	})

	err := g.Wait()
	s.wg.Wait()
	log.Printf("Server stopped cleanly")
	return err
}

// shutdown refuses new connections and stops the listener, mDNS and TUI
func (s *Server) shutdown() {
	s.shutdownMu.Lock()
	s.isShutdown = true
	s.shutdownMu.Unlock()

	if s.tui != nil {
		s.tui.Stop()
	}

	if s.mdnsManager != nil {
		s.mdnsManager.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	s.clientsMu.RLock()
	for _, client := range s.clients {
		client.Conn.Close()
	}
	s.clientsMu.RUnlock()
}

// Stop stops the server
func (s *Server) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopChan)
	})
}

// statusLoop feeds scheduler and client state to the TUI
func (s *Server) statusLoop(ctx context.Context) {
	ticker := time.NewTicker(statusPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.updateTUI()
		}
	}
}

// handleWebSocket handles WebSocket connections
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		return
	}

	log.Printf("New WebSocket connection from %s", r.RemoteAddr)
	s.handleConnection(conn)
}

// handleConnection runs the handshake and the read loop for one client
func (s *Server) handleConnection(conn *websocket.Conn) {
	defer conn.Close()

	s.shutdownMu.RLock()
	if s.isShutdown {
		s.shutdownMu.RUnlock()
		log.Printf("Rejecting connection during shutdown")
		return
	}
	s.shutdownMu.RUnlock()

	if s.config.MaxInlineBytes > 0 {
		conn.SetReadLimit(s.config.MaxInlineBytes + 1024)
	}

	hello, err := readHello(conn)
	if err != nil {
		log.Printf("Handshake failed: %v", err)
		writeServerError(conn, "bad_hello", err.Error())
		return
	}

	name := hello.Name
	if name == "" {
		name = hello.ClientID
	}
	log.Printf("Client hello: %s (ID: %s)", name, hello.ClientID)

	client := &Client{
		ID:       hello.ClientID,
		Name:     name,
		Conn:     conn,
		sendChan: make(chan interface{}, 100),
		pending:  make(chan pendingResult, pendingDepth),
		done:     make(chan struct{}),
	}

	s.clientsMu.Lock()
	if existing, exists := s.clients[client.ID]; exists {
		s.clientsMu.Unlock()
		log.Printf("Client ID %s already connected (name: %s), rejecting duplicate", client.ID, existing.Name)
		writeServerError(conn, "duplicate_client_id", "Client ID already connected")
		return
	}
	s.clients[client.ID] = client
	s.clientsMu.Unlock()

	defer func() {
		close(client.done)
		s.clientsMu.Lock()
		delete(s.clients, client.ID)
		s.clientsMu.Unlock()
		log.Printf("Client disconnected: %s", client.Name)
	}()

	serverHello := protocol.ServerHello{
		ServerID: s.serverID,
		Name:     s.config.Name,
		Version:  protocol.Version,
		Ready:    s.sched.Ready(),
		Formats:  s.formats,
	}
	if err := s.sendMessage(client, protocol.TypeServerHello, serverHello); err != nil {
		log.Printf("Error sending server hello: %v", err)
		return
	}

	s.wg.Add(2)
	go func() {
		defer s.wg.Done()
		s.clientWriter(client)
	}()
	go func() {
		defer s.wg.Done()
		s.resultWriter(client)
	}()

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			return
		}
		if msgType != websocket.TextMessage {
			log.Printf("Unexpected binary message from %s", client.Name)
			continue
		}

		if err := s.handleClientMessage(client, data); err != nil {
			log.Printf("Dropping client %s: %v", client.Name, err)
			return
		}
	}
}

// readHello waits for and validates client/hello
func readHello(conn *websocket.Conn) (*protocol.ClientHello, error) {
	_, data, err := conn.ReadMessage()
	if err != nil {
		return nil, fmt.Errorf("read hello: %w", err)
	}

	var env protocol.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("unmarshal message: %w", err)
	}
	if env.Type != protocol.TypeClientHello {
		return nil, fmt.Errorf("expected %s, got %s", protocol.TypeClientHello, env.Type)
	}

	var hello protocol.ClientHello
	if err := env.Decode(&hello); err != nil {
		return nil, fmt.Errorf("unmarshal client hello: %w", err)
	}
	if hello.ClientID == "" {
		return nil, errors.New("client hello missing client_id")
	}
	return &hello, nil
}

func writeServerError(conn *websocket.Conn, code, message string) {
	data, err := json.Marshal(protocol.Message{
		Type:    protocol.TypeServerError,
		Payload: protocol.ServerError{Error: code, Message: message},
	})
	if err != nil {
		return
	}
	conn.SetWriteDeadline(time.Now().Add(writeDeadline))
	conn.WriteMessage(websocket.TextMessage, data)
}

// handleClientMessage processes one text message. A returned error ends the connection.
func (s *Server) handleClientMessage(client *Client, data []byte) error {
	var env protocol.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		log.Printf("Error unmarshaling message: %v", err)
		return nil
	}

	switch env.Type {
	case protocol.TypeDecodeReq:
		return s.handleDecodeRequest(client, env)
	default:
		log.Printf("Unknown message type: %s", env.Type)
		return nil
	}
}

// handleDecodeRequest submits a request and queues its future for the result writer
func (s *Server) handleDecodeRequest(client *Client, env protocol.Envelope) error {
	var req protocol.DecodeRequest
	if err := env.Decode(&req); err != nil {
		log.Printf("Error unmarshaling decode request: %v", err)
		return nil
	}
	if req.RequestID == "" {
		req.RequestID = uuid.New().String()
	}

	var dreq decodequeue.Request
	if req.Href != "" {
		dreq = decodequeue.Ref(req.Name, req.Href)
	} else {
		// input follows as a binary message
		msgType, data, err := client.Conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read inline input: %w", err)
		}
		if msgType != websocket.BinaryMessage {
			return s.sendMessage(client, protocol.TypeDecodeError, protocol.DecodeError{
				RequestID: req.RequestID,
				Kind:      protocol.KindInvalid,
				Message:   "expected binary input after decode/request",
			})
		}
		if req.InlineSize > 0 && len(data) != req.InlineSize {
			return s.sendMessage(client, protocol.TypeDecodeError, protocol.DecodeError{
				RequestID: req.RequestID,
				Kind:      protocol.KindInvalid,
				Message:   fmt.Sprintf("inline_size %d does not match %d received bytes", req.InlineSize, len(data)),
			})
		}
		if data == nil {
			data = []byte{}
		}
		dreq = decodequeue.Bytes(req.Name, data)
	}

	future := s.sched.Submit(dreq)

	if s.config.Debug {
		log.Printf("[DEBUG] %s submitted %s as %s (job %s)", client.Name, req.Name, req.RequestID, future.ID())
	}

	client.mu.Lock()
	client.requests++
	client.mu.Unlock()

	select {
	case client.pending <- pendingResult{requestID: req.RequestID, future: future}:
		return nil
	case <-client.done:
		return errClientGone
	}
}

// resultWriter sends results in submission order, which is settlement order
func (s *Server) resultWriter(client *Client) {
	for {
		var p pendingResult
		select {
		case p = <-client.pending:
		case <-client.done:
			return
		}

		select {
		case <-p.future.Done():
		case <-client.done:
			return
		}

		buf, err := p.future.Result()
		if err != nil {
			err = s.sendMessage(client, protocol.TypeDecodeError, DecodeErrorFor(p.requestID, err))
		} else {
			err = s.sendResult(client, p.requestID, p.future.Name(), buf)
		}
		if err != nil {
			log.Printf("Error sending result %s to %s: %v", p.requestID, client.Name, err)
			return
		}

		client.mu.Lock()
		client.delivered++
		client.mu.Unlock()
	}
}

// sendResult sends decode/result followed by one binary message per channel
func (s *Server) sendResult(client *Client, requestID, name string, buf *audio.Buffer) error {
	result := protocol.DecodeResult{
		RequestID:    requestID,
		Name:         name,
		SampleRate:   buf.SampleRate,
		Channels:     buf.NumChannels(),
		Frames:       buf.Frames(),
		Codec:        buf.Meta.Codec,
		SampleFormat: buf.Meta.SampleFormat,
		BitDepth:     buf.Meta.BitDepth,
	}
	if err := s.sendMessage(client, protocol.TypeDecodeResult, result); err != nil {
		return err
	}

	for ch, samples := range buf.Channels {
		chunk := protocol.CreateChannelChunk(ch, audio.AppendFloat32(nil, samples...))
		if err := s.sendBinary(client, chunk); err != nil {
			return err
		}
	}
	return nil
}

// DecodeErrorFor maps a scheduler error onto the wire error kinds
func DecodeErrorFor(requestID string, err error) protocol.DecodeError {
	out := protocol.DecodeError{RequestID: requestID, Message: err.Error()}

	var (
		failure *decodequeue.DecodeFailure
		crash   *decodequeue.DecodeCrash
		acq     *decodequeue.AcquisitionError
	)
	switch {
	case errors.As(err, &failure):
		out.Kind = protocol.KindDecodeFailure
		out.Code = failure.Code
	case errors.As(err, &crash):
		out.Kind = protocol.KindDecodeCrash
	case errors.As(err, &acq):
		out.Kind = protocol.KindAcquisition
	case errors.Is(err, decodequeue.ErrInvalidRequest):
		out.Kind = protocol.KindInvalid
	case errors.Is(err, decodequeue.ErrClosed):
		out.Kind = protocol.KindClosed
	case errors.Is(err, decodequeue.ErrDecoderNotReady):
		out.Kind = protocol.KindNotReady
	case errors.Is(err, decodequeue.ErrSampleSize):
		out.Kind = protocol.KindAssembly
	default:
		out.Kind = protocol.KindStore
	}
	return out
}

// clientWriter sends queued messages to the client
func (s *Server) clientWriter(client *Client) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case msg := <-client.sendChan:
			switch v := msg.(type) {
			case []byte:
				client.Conn.SetWriteDeadline(time.Now().Add(writeDeadline))
				if err := client.Conn.WriteMessage(websocket.BinaryMessage, v); err != nil {
					log.Printf("Error writing binary message: %v", err)
					return
				}
			default:
				data, err := json.Marshal(v)
				if err != nil {
					log.Printf("Error marshaling message: %v", err)
					continue
				}
				client.Conn.SetWriteDeadline(time.Now().Add(writeDeadline))
				if err := client.Conn.WriteMessage(websocket.TextMessage, data); err != nil {
					log.Printf("Error writing text message: %v", err)
					return
				}
			}

		case <-ticker.C:
			if err := client.Conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(writeDeadline)); err != nil {
				return
			}

		case <-client.done:
			return
		}
	}
}

// sendMessage queues a JSON message, blocking while the send buffer is full
func (s *Server) sendMessage(client *Client, msgType string, payload interface{}) error {
	return client.enqueue(protocol.Message{
		Type:    msgType,
		Payload: payload,
	})
}

// sendBinary queues a binary message
func (s *Server) sendBinary(client *Client, data []byte) error {
	return client.enqueue(data)
}

func (c *Client) enqueue(msg interface{}) error {
	select {
	case c.sendChan <- msg:
		return nil
	case <-c.done:
		return errClientGone
	}
}
