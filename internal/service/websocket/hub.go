package websocket

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"ppemonitor/internal/logger"
)

const (
	writeWait       = 5 * time.Second
	broadcastBuffer = 16
)

// HubService pushes status messages to connected viewers.
type HubService struct {
	clients    map[*websocket.Conn]bool
	broadcast  chan []byte
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	mutex      sync.RWMutex
	logger     *logger.Logger
	onCount    func(int)
	welcome    func() []byte
}

// NewHubService creates a hub. onCount, if set, is called with the client
// count whenever it changes.
func NewHubService(logger *logger.Logger, onCount func(int)) *HubService {
	return &HubService{
		clients:    make(map[*websocket.Conn]bool),
		broadcast:  make(chan []byte, broadcastBuffer),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
		logger:     logger,
		onCount:    onCount,
	}
}

// Run serves registrations and broadcasts until ctx is cancelled, then
// closes every client.
func (h *HubService) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return nil

		case client := <-h.register:
			h.mutex.Lock()
			h.clients[client] = true
			count := len(h.clients)
			h.mutex.Unlock()
			h.countChanged(count)
			h.logger.Info("Status viewer connected. Total: %d", count)
			h.greet(client)

		case client := <-h.unregister:
			h.mutex.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				client.Close()
			}
			count := len(h.clients)
			h.mutex.Unlock()
			h.countChanged(count)
			h.logger.Info("Status viewer disconnected. Total: %d", count)

		case message := <-h.broadcast:
			h.send(message)
		}
	}
}

func (h *HubService) send(message []byte) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	for client := range h.clients {
		client.SetWriteDeadline(time.Now().Add(writeWait))
		if err := client.WriteMessage(websocket.TextMessage, message); err != nil {
			h.logger.Error("Error sending status: %v", err)
			delete(h.clients, client)
			client.Close()
		}
	}
	h.countChanged(len(h.clients))
}

func (h *HubService) closeAll() {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	for client := range h.clients {
		client.Close()
		delete(h.clients, client)
	}
	h.countChanged(0)
}

// SetWelcome sets the message written to every client right after it
// registers. Must be called before Run.
func (h *HubService) SetWelcome(welcome func() []byte) {
	h.welcome = welcome
}

func (h *HubService) greet(client *websocket.Conn) {
	if h.welcome == nil {
		return
	}
	client.SetWriteDeadline(time.Now().Add(writeWait))
	if err := client.WriteMessage(websocket.TextMessage, h.welcome()); err != nil {
		h.logger.Warning("Error greeting status viewer: %v", err)
	}
}

func (h *HubService) countChanged(n int) {
	if h.onCount != nil {
		h.onCount(n)
	}
}

// Register adds a client. It blocks until the hub accepts it or ctx ends.
func (h *HubService) Register(ctx context.Context, client *websocket.Conn) bool {
	select {
	case h.register <- client:
		return true
	case <-ctx.Done():
		return false
	}
}

// Unregister removes and closes a client.
func (h *HubService) Unregister(ctx context.Context, client *websocket.Conn) {
	select {
	case h.unregister <- client:
	case <-ctx.Done():
		client.Close()
	}
}

// Broadcast queues message for every client. When the queue is full the
// message is dropped; status updates are superseded by the next one anyway.
func (h *HubService) Broadcast(message []byte) bool {
	select {
	case h.broadcast <- message:
		return true
	default:
		return false
	}
}

// GetClientCount returns the number of connected clients.
func (h *HubService) GetClientCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}
