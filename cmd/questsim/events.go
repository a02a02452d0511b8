package main

import (
	"sync"

	"github.com/udisondev/questbots/internal/ai"
)

// eventCounter counts decision events per kind and forwards them to next.
type eventCounter struct {
	next ai.EventSink

	mu     sync.Mutex
	counts map[ai.EventKind]int
}

func newEventCounter() *eventCounter {
	return &eventCounter{
		next:   ai.DiscardEvents,
		counts: make(map[ai.EventKind]int),
	}
}

func (c *eventCounter) Publish(e ai.Event) {
	c.mu.Lock()
	c.counts[e.Kind]++
	c.mu.Unlock()
	c.next.Publish(e)
}

func (c *eventCounter) snapshot() map[ai.EventKind]int {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[ai.EventKind]int, len(c.counts))
	for k, v := range c.counts {
		out[k] = v
	}
	return out
}
