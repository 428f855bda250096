package fleetcache

import (
	"bytes"
	"sync"
)

// ObjectPool provides a typed pool of reusable objects
type ObjectPool[T any] struct {
	pool  sync.Pool
	reset func(T)
}

// NewObjectPool creates a new object pool. reset, when non-nil, runs before an
// object goes back into the pool.
func NewObjectPool[T any](newFunc func() T, reset func(T)) *ObjectPool[T] {
	return &ObjectPool[T]{
		pool: sync.Pool{
			New: func() any {
				return newFunc()
			},
		},
		reset: reset,
	}
}

// Get retrieves an object from the pool
func (p *ObjectPool[T]) Get() T {
	return p.pool.Get().(T)
}

// Put returns an object to the pool
func (p *ObjectPool[T]) Put(x T) {
	if p.reset != nil {
		p.reset(x)
	}
	p.pool.Put(x)
}

// maxPooledBuffer keeps very large buffers from pinning memory in the pool
const maxPooledBuffer = 1 << 20

// bufferPool hands out scratch buffers for the codec
var bufferPool = NewObjectPool(
	func() *bytes.Buffer { return new(bytes.Buffer) },
	func(b *bytes.Buffer) { b.Reset() },
)

func getBuffer() *bytes.Buffer {
	return bufferPool.Get()
}

func putBuffer(b *bytes.Buffer) {
	if b.Cap() > maxPooledBuffer {
		return
	}
	bufferPool.Put(b)
}
