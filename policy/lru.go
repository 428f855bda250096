package policy

import (
	"container/list"
	"sync"
)

// LRU implements the Policy interface using Least Recently Used strategy
type LRU[K comparable] struct {
	items    map[K]*list.Element
	list     *list.List
	mu       sync.Mutex
	capacity int
}

// NewLRU creates a new LRU policy
func NewLRU[K comparable](opts ...Option) Policy[K] {
	options := buildOptions(opts)
	return &LRU[K]{
		items:    make(map[K]*list.Element),
		list:     list.New(),
		capacity: options.MaxSize,
	}
}

// OnGet moves key to the most recently used position
func (p *LRU[K]) OnGet(key K) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if element, exists := p.items[key]; exists {
		p.list.MoveToFront(element)
	}
}

// OnSet inserts key or refreshes its recency
func (p *LRU[K]) OnSet(key K) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if element, exists := p.items[key]; exists {
		p.list.MoveToFront(element)
		return
	}
	p.items[key] = p.list.PushFront(key)
}

// OnDelete stops tracking key
func (p *LRU[K]) OnDelete(key K) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if element, exists := p.items[key]; exists {
		p.list.Remove(element)
		delete(p.items, key)
	}
}

// OnClear drops every tracked key
func (p *LRU[K]) OnClear() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.items = make(map[K]*list.Element)
	p.list.Init()
}

// Evict removes and returns the least recently used key
func (p *LRU[K]) Evict() (K, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	element := p.list.Back()
	if element == nil {
		var zero K
		return zero, false
	}
	key := element.Value.(K)
	p.list.Remove(element)
	delete(p.items, key)
	return key, true
}

// EvictN removes and returns up to n least recently used keys, oldest first
func (p *LRU[K]) EvictN(n int) []K {
	return evictN[K](p, n)
}

// Size returns the number of tracked keys
func (p *LRU[K]) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.items)
}

// Capacity returns the configured maximum number of keys
func (p *LRU[K]) Capacity() int {
	return p.capacity
}
