// Package policy provides eviction order trackers (LRU, LFU, FIFO) used by the cache
// to decide which keys to drop when it is full.
package policy

// Policy tracks key usage and yields keys in eviction order.
// Policies never evict on their own; the cache asks for victims with EvictN.
type Policy[K comparable] interface {
	// OnGet is called when a key is read from the cache
	OnGet(key K)

	// OnSet is called when a key is written to the cache
	OnSet(key K)

	// OnDelete is called when a key is removed from the cache
	OnDelete(key K)

	// OnClear is called when the cache is cleared
	OnClear()

	// Evict removes and returns the next key to be evicted
	Evict() (K, bool)

	// EvictN removes and returns up to n keys in eviction order
	EvictN(n int) []K

	// Size returns the number of tracked keys
	Size() int

	// Capacity returns the configured maximum number of keys
	Capacity() int
}

// Name identifies an eviction policy in configuration.
type Name string

const (
	NameLRU  Name = "lru"
	NameLFU  Name = "lfu"
	NameFIFO Name = "fifo"
)

// Options represents policy configuration options
type Options struct {
	// MaxSize is the maximum number of keys the policy is expected to hold
	MaxSize int
}

// Option is a function that configures policy options
type Option func(*Options)

// WithMaxSize sets the maximum size of the policy
func WithMaxSize(size int) Option {
	return func(o *Options) {
		o.MaxSize = size
	}
}

func buildOptions(opts []Option) *Options {
	options := &Options{MaxSize: 1000}
	for _, opt := range opts {
		opt(options)
	}
	return options
}

// New returns the policy registered under name. Unknown names fall back to LRU.
func New[K comparable](name Name, opts ...Option) Policy[K] {
	switch name {
	case NameLFU:
		return NewLFU[K](opts...)
	case NameFIFO:
		return NewFIFO[K](opts...)
	default:
		return NewLRU[K](opts...)
	}
}

func evictN[K comparable](p Policy[K], n int) []K {
	if n <= 0 {
		return nil
	}
	keys := make([]K, 0, n)
	for range n {
		key, ok := p.Evict()
		if !ok {
			break
		}
		keys = append(keys, key)
	}
	return keys
}
