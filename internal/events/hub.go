package events

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
)

const subscriberBuffer = 64

type subscriber struct {
	topics map[string]bool
	ch     chan Event
}

// Hub is the in-process Bus. Slow subscribers lose events rather than
// block publishers.
type Hub struct {
	mu     sync.RWMutex
	subs   map[*subscriber]struct{}
	closed bool
	quit   chan struct{}
}

var _ Bus = (*Hub)(nil)

func NewHub() *Hub {
	return &Hub{
		subs: make(map[*subscriber]struct{}),
		quit: make(chan struct{}),
	}
}

func (h *Hub) Publish(ctx context.Context, event Event) error {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.closed {
		return ErrClosed
	}

	for sub := range h.subs {
		if !sub.topics[event.Topic] {
			continue
		}
		select {
		case sub.ch <- event:
		default:
			logrus.WithFields(logrus.Fields{
				"topic": event.Topic,
				"type":  event.Type,
			}).Warn("Subscriber buffer full, dropping event")
		}
	}
	return nil
}

func (h *Hub) Subscribe(ctx context.Context, topics ...string) (<-chan Event, error) {
	sub := &subscriber{
		topics: make(map[string]bool, len(topics)),
		ch:     make(chan Event, subscriberBuffer),
	}
	for _, topic := range topics {
		sub.topics[topic] = true
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil, ErrClosed
	}
	h.subs[sub] = struct{}{}
	h.mu.Unlock()

	go func() {
		select {
		case <-ctx.Done():
		case <-h.quit:
		}
		h.remove(sub)
	}()

	return sub.ch, nil
}

func (h *Hub) remove(sub *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[sub]; ok {
		delete(h.subs, sub)
		close(sub.ch)
	}
}

// Subscribers reports the number of live subscriptions.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

func (h *Hub) Close() error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	close(h.quit)
	h.mu.Unlock()
	return nil
}
