package event

import "sync"

// Handler Each kind of event has his own handler
// Based on the Chain of responsibility pattern
type Handler interface {
	Handle(event Event)
}

// Counter keeps a running total per event type.
type Counter struct {
	mu     sync.RWMutex
	values map[Type]uint64
}

func NewCounter() *Counter {
	return &Counter{values: make(map[Type]uint64)}
}

func (c *Counter) Increment(t Type) {
	c.Add(t, 1)
}

func (c *Counter) Add(t Type, n uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[t] += n
}

func (c *Counter) Get(t Type) uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.values[t]
}

// Snapshot copies every total, keyed by event type name.
func (c *Counter) Snapshot() map[string]uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	res := make(map[string]uint64, len(c.values))
	for k, v := range c.values {
		res[string(k)] = v
	}
	return res
}
