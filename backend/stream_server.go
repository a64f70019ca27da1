package backend

import (
	"encoding/json"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	streamWriteTimeout = 5 * time.Second

	// streamOutgoingBufferSize bounds the per-client outbound queue. A client
	// that falls this far behind starts losing the oldest events.
	streamOutgoingBufferSize = 256
)

// streamEvent is the envelope sent to stream clients.
type streamEvent struct {
	Event   string `json:"event"`
	Payload any    `json:"payload,omitempty"`
}

// streamClient is one attached websocket subscriber. All writes to the
// connection go through the outgoing channel; writeLoop is the only goroutine
// that touches conn's write side, since the websocket allows a single writer.
type streamClient struct {
	conn      *websocket.Conn
	outgoing  chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

func newStreamClient(conn *websocket.Conn) *streamClient {
	return &streamClient{
		conn:     conn,
		outgoing: make(chan []byte, streamOutgoingBufferSize),
		done:     make(chan struct{}),
	}
}

// enqueue queues a frame without blocking the emitter. When the buffer is
// full the oldest frame is discarded to make room for the newest.
func (c *streamClient) enqueue(data []byte) {
	select {
	case c.outgoing <- data:
		return
	default:
	}
	select {
	case <-c.outgoing:
	default:
	}
	select {
	case c.outgoing <- data:
	default:
	}
}

func (c *streamClient) writeLoop() {
	for {
		select {
		case <-c.done:
			return
		case data := <-c.outgoing:
			_ = c.conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		}
	}
}

func (c *streamClient) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})
}

// streamHub serves helper output and status events to external tooling over a
// loopback-only websocket, mirroring what the frontend receives as wails
// events.
type streamHub struct {
	upgrader websocket.Upgrader

	mu       sync.Mutex
	clients  map[*streamClient]struct{}
	server   *http.Server
	listener net.Listener
	closed   bool
}

func newStreamHub() *streamHub {
	return &streamHub{
		clients: make(map[*streamClient]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
	}
}

// start binds the hub to a loopback port and begins accepting clients.
func (h *streamHub) start(listen func() (net.Listener, error)) (string, error) {
	listener, err := listen()
	if err != nil {
		return "", err
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/stream", h.handleStream)

	server := &http.Server{Handler: mux}

	h.mu.Lock()
	h.listener = listener
	h.server = server
	h.closed = false
	h.mu.Unlock()

	go func() {
		// ErrServerClosed is the normal shutdown path.
		_ = server.Serve(listener)
	}()

	return listener.Addr().String(), nil
}

func (h *streamHub) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	client := newStreamClient(conn)

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		client.close()
		return
	}
	h.clients[client] = struct{}{}
	h.mu.Unlock()

	go func() {
		defer h.dropClient(client)
		client.writeLoop()
	}()

	// Drain control frames so pongs and close handshakes are processed.
	go func() {
		defer h.dropClient(client)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

// broadcast queues an event for every connected client. Each client's
// writeLoop drains its own queue, so emitters never block on a slow reader
// and never write the connection themselves.
func (h *streamHub) broadcast(event string, payload any) {
	data, err := json.Marshal(streamEvent{Event: event, Payload: payload})
	if err != nil {
		return
	}

	h.mu.Lock()
	clients := make([]*streamClient, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	h.mu.Unlock()

	for _, client := range clients {
		client.enqueue(data)
	}
}

// clientCount reports the number of attached stream clients.
func (h *streamHub) clientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *streamHub) dropClient(client *streamClient) {
	h.mu.Lock()
	delete(h.clients, client)
	h.mu.Unlock()

	client.close()
}

// stop closes every client and the listener.
func (h *streamHub) stop() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	clients := make([]*streamClient, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	h.clients = make(map[*streamClient]struct{})
	server := h.server
	h.mu.Unlock()

	for _, client := range clients {
		client.close()
	}
	if server != nil {
		_ = server.Close()
	}
}

// address returns the bound listen address, empty when not running.
func (h *streamHub) address() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.listener == nil || h.closed {
		return ""
	}
	return h.listener.Addr().String()
}
