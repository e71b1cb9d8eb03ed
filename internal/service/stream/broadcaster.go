// Package stream fans encoded frames out to MJPEG viewers.
package stream

import (
	"sync"

	"github.com/google/uuid"
)

// subscriberBuffer is the number of frames a viewer may lag behind before
// frames are skipped for it.
const subscriberBuffer = 2

// Broadcaster delivers every published JPEG frame to all subscribers. Slow
// subscribers miss frames instead of blocking the publisher.
type Broadcaster struct {
	mu      sync.Mutex
	clients map[string]chan []byte
	latest  []byte
	onCount func(int)
}

// NewBroadcaster creates a Broadcaster. onCount, if set, is called with the
// subscriber count whenever it changes.
func NewBroadcaster(onCount func(int)) *Broadcaster {
	return &Broadcaster{
		clients: make(map[string]chan []byte),
		onCount: onCount,
	}
}

// Subscribe adds a viewer. The newest frame, if any, is queued immediately.
func (b *Broadcaster) Subscribe() (string, <-chan []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := uuid.NewString()
	ch := make(chan []byte, subscriberBuffer)
	if b.latest != nil {
		ch <- b.latest
	}
	b.clients[id] = ch
	b.countChanged()
	return id, ch
}

// Unsubscribe removes a viewer and closes its channel.
func (b *Broadcaster) Unsubscribe(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if ch, ok := b.clients[id]; ok {
		close(ch)
		delete(b.clients, id)
		b.countChanged()
	}
}

// Publish sends frame to every viewer that has room for it.
func (b *Broadcaster) Publish(frame []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.latest = frame
	for _, ch := range b.clients {
		select {
		case ch <- frame:
		default:
		}
	}
}

// Latest returns the most recently published frame.
func (b *Broadcaster) Latest() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.latest
}

// ClientCount returns the number of subscribed viewers.
func (b *Broadcaster) ClientCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.clients)
}

// Close disconnects every viewer.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for id, ch := range b.clients {
		close(ch)
		delete(b.clients, id)
	}
	b.countChanged()
}

func (b *Broadcaster) countChanged() {
	if b.onCount != nil {
		b.onCount(len(b.clients))
	}
}
