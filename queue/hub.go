package queue

import (
	"sync"

	"github.com/next-trace/scg-jobtest/contract/job"
)

// hub fans job events out to subscribed listeners in subscription order.
type hub struct {
	mu        sync.RWMutex
	next      uint64
	listeners map[uint64]job.Listener
	order     []uint64
}

func newHub() *hub {
	return &hub{listeners: make(map[uint64]job.Listener)}
}

func (h *hub) subscribe(l job.Listener) func() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.next++
	id := h.next
	h.listeners[id] = l
	h.order = append(h.order, id)

	var once sync.Once

	return func() {
		once.Do(func() { h.remove(id) })
	}
}

func (h *hub) remove(id uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.listeners[id]; !ok {
		return
	}

	delete(h.listeners, id)

	for i, v := range h.order {
		if v == id {
			h.order = append(h.order[:i], h.order[i+1:]...)
			break
		}
	}
}

// emit copies the listener list so listeners may (un)subscribe while being called.
func (h *hub) emit(evt job.Event) {
	h.mu.RLock()
	ls := make([]job.Listener, 0, len(h.order))

	for _, id := range h.order {
		ls = append(ls, h.listeners[id])
	}
	h.mu.RUnlock()

	for _, l := range ls {
		l(evt)
	}
}

func (h *hub) len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.order)
}

func (h *hub) clear() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.listeners = make(map[uint64]job.Listener)
	h.order = nil
}
