package docstore

import (
	"sync"
)

// hub fans documents out to in-process subscribers. Each subscriber has its
// own goroutine; a slow subscriber only ever sees the latest document.
type hub struct {
	mu     sync.Mutex
	nextId int
	subs   map[string]map[int]*subscriber
}

type subscriber struct {
	mu       sync.Mutex
	latest   Document
	hasValue bool
	wake     chan struct{}
	done     chan struct{}
	once     sync.Once
}

func newHub() *hub {
	return &hub{subs: make(map[string]map[int]*subscriber)}
}

func (h *hub) add(roomId string, initial Document, onChange func(Document)) func() {
	sub := &subscriber{
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}

	h.mu.Lock()
	id := h.nextId
	h.nextId++
	if h.subs[roomId] == nil {
		h.subs[roomId] = make(map[int]*subscriber)
	}
	h.subs[roomId][id] = sub
	h.mu.Unlock()

	sub.offer(initial)
	go sub.pump(onChange)

	return func() {
		h.mu.Lock()
		delete(h.subs[roomId], id)
		if len(h.subs[roomId]) == 0 {
			delete(h.subs, roomId)
		}
		h.mu.Unlock()
		sub.stop()
	}
}

func (h *hub) has(roomId string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[roomId]) > 0
}

func (h *hub) rooms() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, 0, len(h.subs))
	for id := range h.subs {
		out = append(out, id)
	}
	return out
}

func (h *hub) publish(roomId string, doc Document) {
	h.mu.Lock()
	subs := make([]*subscriber, 0, len(h.subs[roomId]))
	for _, s := range h.subs[roomId] {
		subs = append(subs, s)
	}
	h.mu.Unlock()

	for _, s := range subs {
		s.offer(Clone(doc))
	}
}

func (s *subscriber) offer(doc Document) {
	s.mu.Lock()
	s.latest = doc
	s.hasValue = true
	s.mu.Unlock()
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *subscriber) pump(onChange func(Document)) {
	for {
		select {
		case <-s.done:
			return
		case <-s.wake:
			s.mu.Lock()
			doc, ok := s.latest, s.hasValue
			s.latest, s.hasValue = nil, false
			s.mu.Unlock()
			if !ok {
				continue
			}
			select {
			case <-s.done:
				return
			default:
			}
			onChange(doc)
		}
	}
}

func (s *subscriber) stop() {
	s.once.Do(func() { close(s.done) })
}
