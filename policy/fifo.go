package policy

import (
	"container/list"
	"sync"
)

// FIFO implements the Policy interface using First In First Out strategy.
// Reads and overwrites do not change a key's position.
type FIFO[K comparable] struct {
	items    map[K]*list.Element
	list     *list.List
	mu       sync.Mutex
	capacity int
}

// NewFIFO creates a new FIFO policy
func NewFIFO[K comparable](opts ...Option) Policy[K] {
	options := buildOptions(opts)
	return &FIFO[K]{
		items:    make(map[K]*list.Element),
		list:     list.New(),
		capacity: options.MaxSize,
	}
}

// OnGet is a no-op for FIFO
func (p *FIFO[K]) OnGet(K) {}

// OnSet appends key if it is not tracked yet
func (p *FIFO[K]) OnSet(key K) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, exists := p.items[key]; exists {
		return
	}
	p.items[key] = p.list.PushBack(key)
}

// OnDelete stops tracking key
func (p *FIFO[K]) OnDelete(key K) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if element, exists := p.items[key]; exists {
		p.list.Remove(element)
		delete(p.items, key)
	}
}

// OnClear drops every tracked key
func (p *FIFO[K]) OnClear() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.items = make(map[K]*list.Element)
	p.list.Init()
}

// Evict removes and returns the oldest inserted key
func (p *FIFO[K]) Evict() (K, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	element := p.list.Front()
	if element == nil {
		var zero K
		return zero, false
	}
	key := element.Value.(K)
	p.list.Remove(element)
	delete(p.items, key)
	return key, true
}

// EvictN removes and returns up to n keys in insertion order
func (p *FIFO[K]) EvictN(n int) []K {
	return evictN[K](p, n)
}

// Size returns the number of tracked keys
func (p *FIFO[K]) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.items)
}

// Capacity returns the configured maximum number of keys
func (p *FIFO[K]) Capacity() int {
	return p.capacity
}
