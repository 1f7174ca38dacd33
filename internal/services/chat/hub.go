package chat

import "sync"

// Hub fans live messages out to in-process subscribers, one set per
// channel. Delivery is best effort: a subscriber whose queue is full is
// dropped and its channel closed, so history replay is the way to catch
// up, not backpressure on the poster.
type Hub struct {
	mu          sync.Mutex
	buffer      int
	subscribers map[string]map[*subscriber]struct{}
}

type subscriber struct {
	ch chan Message
}

func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = 64
	}
	return &Hub{
		buffer:      buffer,
		subscribers: make(map[string]map[*subscriber]struct{}),
	}
}

// Register adds a subscriber for channelID and returns its delivery
// channel plus an idempotent unsubscribe func. The delivery channel is
// closed either by unsubscribe or by the hub when the subscriber falls
// behind.
func (h *Hub) Register(channelID string) (<-chan Message, func()) {
	sub := &subscriber{ch: make(chan Message, h.buffer)}

	h.mu.Lock()
	set, ok := h.subscribers[channelID]
	if !ok {
		set = make(map[*subscriber]struct{})
		h.subscribers[channelID] = set
	}
	set[sub] = struct{}{}
	h.mu.Unlock()

	unsubscribe := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		h.removeLocked(channelID, sub)
	}

	return sub.ch, unsubscribe
}

// SubscriberCount reports how many live subscribers a channel has.
func (h *Hub) SubscriberCount(channelID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscribers[channelID])
}

// Publish delivers msg to every current subscriber of channelID.
func (h *Hub) Publish(channelID string, msg Message) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for sub := range h.subscribers[channelID] {
		select {
		case sub.ch <- msg:
		default:
			h.removeLocked(channelID, sub)
		}
	}
}

func (h *Hub) removeLocked(channelID string, sub *subscriber) {
	set, ok := h.subscribers[channelID]
	if !ok {
		return
	}
	if _, ok := set[sub]; !ok {
		return
	}
	delete(set, sub)
	if len(set) == 0 {
		delete(h.subscribers, channelID)
	}
	close(sub.ch)
}
