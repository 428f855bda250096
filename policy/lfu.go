package policy

import (
	"container/heap"
	"sync"
)

// LFU implements the Policy interface using Least Frequently Used strategy.
// Ties are broken by insertion order so the oldest key goes first.
type LFU[K comparable] struct {
	items    map[K]*lfuItem[K]
	queue    *lfuQueue[K]
	mu       sync.Mutex
	capacity int
	seq      uint64
}

type lfuItem[K comparable] struct {
	key   K
	count int64
	seq   uint64
	index int
}

type lfuQueue[K comparable] []*lfuItem[K]

func (q lfuQueue[K]) Len() int { return len(q) }

func (q lfuQueue[K]) Less(i, j int) bool {
	if q[i].count == q[j].count {
		return q[i].seq < q[j].seq
	}
	return q[i].count < q[j].count
}

func (q lfuQueue[K]) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *lfuQueue[K]) Push(x any) {
	item := x.(*lfuItem[K])
	item.index = len(*q)
	*q = append(*q, item)
}

func (q *lfuQueue[K]) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.index = -1
	*q = old[:n-1]
	return item
}

// NewLFU creates a new LFU policy
func NewLFU[K comparable](opts ...Option) Policy[K] {
	options := buildOptions(opts)
	queue := &lfuQueue[K]{}
	heap.Init(queue)
	return &LFU[K]{
		items:    make(map[K]*lfuItem[K]),
		queue:    queue,
		capacity: options.MaxSize,
	}
}

// OnGet bumps the access count of key
func (p *LFU[K]) OnGet(key K) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if item, exists := p.items[key]; exists {
		item.count++
		heap.Fix(p.queue, item.index)
	}
}

// OnSet inserts key with a count of one, or bumps it when already tracked
func (p *LFU[K]) OnSet(key K) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if item, exists := p.items[key]; exists {
		item.count++
		heap.Fix(p.queue, item.index)
		return
	}
	p.seq++
	item := &lfuItem[K]{key: key, count: 1, seq: p.seq}
	heap.Push(p.queue, item)
	p.items[key] = item
}

// OnDelete stops tracking key
func (p *LFU[K]) OnDelete(key K) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if item, exists := p.items[key]; exists {
		heap.Remove(p.queue, item.index)
		delete(p.items, key)
	}
}

// OnClear drops every tracked key
func (p *LFU[K]) OnClear() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.queue = &lfuQueue[K]{}
	heap.Init(p.queue)
	p.items = make(map[K]*lfuItem[K])
}

// Evict removes and returns the least frequently used key
func (p *LFU[K]) Evict() (K, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.queue.Len() == 0 {
		var zero K
		return zero, false
	}
	item := heap.Pop(p.queue).(*lfuItem[K])
	delete(p.items, item.key)
	return item.key, true
}

// EvictN removes and returns up to n keys, least used first
func (p *LFU[K]) EvictN(n int) []K {
	return evictN[K](p, n)
}

// Size returns the number of tracked keys
func (p *LFU[K]) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.items)
}

// Capacity returns the configured maximum number of keys
func (p *LFU[K]) Capacity() int {
	return p.capacity
}
