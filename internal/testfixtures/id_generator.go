package testfixtures

import (
	"fmt"
	"sync"
)

// IDGenerator hands out predictable group ids such as "group-1".
type IDGenerator struct {
	mu      sync.Mutex
	prefix  string
	counter uint64
}

// NewIDGenerator returns a generator for prefix; an empty prefix means "group".
func NewIDGenerator(prefix string) *IDGenerator {
	if prefix == "" {
		prefix = "group"
	}
	return &IDGenerator{prefix: prefix}
}

func (g *IDGenerator) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.counter++
	return fmt.Sprintf("%s-%d", g.prefix, g.counter)
}

// NextFunc exposes Next as the id source of GroupService. A nil generator
// yields nil so the service falls back to random ids.
func (g *IDGenerator) NextFunc() func() string {
	if g == nil {
		return nil
	}
	return g.Next
}
