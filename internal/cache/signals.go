package cache

import "sync"

const signalBuffer = 16

// signalHub fans an invalidated user key out to all subscribers.
type signalHub struct {
	mu   sync.Mutex
	subs map[int]chan string
	next int
}

func newSignalHub() *signalHub {
	return &signalHub{subs: make(map[int]chan string)}
}

func (h *signalHub) subscribe() (<-chan string, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := h.next
	h.next++
	ch := make(chan string, signalBuffer)
	h.subs[id] = ch

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if sub, ok := h.subs[id]; ok {
			delete(h.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

// publish sends key to every subscriber without blocking. Returns the number
// of subscribers whose buffer was full.
func (h *signalHub) publish(key string) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	dropped := 0
	for _, ch := range h.subs {
		select {
		case ch <- key:
		default:
			dropped++
		}
	}
	return dropped
}
