package ws

import (
	"sync"

	"github.com/SwipeSavdev/camp-card-sub001/internal/domain"
)

const subscriberBuffer = 16

// Hub fans device positions out to live subscribers keyed by device ID.
type Hub struct {
	mu   sync.RWMutex
	subs map[string]map[chan domain.DevicePosition]struct{}
}

// NewHub creates an empty Hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[chan domain.DevicePosition]struct{})}
}

// Subscribe registers interest in a device. The returned cancel func must be
// called once the subscriber goes away; it closes the channel.
func (h *Hub) Subscribe(deviceID string) (<-chan domain.DevicePosition, func()) {
	ch := make(chan domain.DevicePosition, subscriberBuffer)

	h.mu.Lock()
	set, ok := h.subs[deviceID]
	if !ok {
		set = make(map[chan domain.DevicePosition]struct{})
		h.subs[deviceID] = set
	}
	set[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs[deviceID], ch)
			if len(h.subs[deviceID]) == 0 {
				delete(h.subs, deviceID)
			}
			h.mu.Unlock()
			close(ch)
		})
	}
}

// Publish delivers pos to every subscriber of its device. Slow subscribers
// drop the update rather than block the caller.
func (h *Hub) Publish(pos domain.DevicePosition) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.subs[pos.DeviceID] {
		select {
		case ch <- pos:
		default:
		}
	}
}

// Subscribers returns how many subscribers are watching a device.
func (h *Hub) Subscribers(deviceID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[deviceID])
}
