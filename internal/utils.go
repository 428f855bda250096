// Package internal provides internal utility functions used across the fleetcache packages.
package internal

import (
	"math"
	"reflect"
	"time"
)

// Expired reports whether an entry created at createdAt with the given ttl is
// no longer fresh at now. An entry is fresh while now-createdAt < ttl.
func Expired(createdAt time.Time, ttl time.Duration, now time.Time) bool {
	return now.Sub(createdAt) >= ttl
}

// Clamp limits v to the closed range [lo, hi]. When hi < lo, lo wins.
func Clamp(v, lo, hi int) int {
	if v > hi {
		v = hi
	}
	if v < lo {
		v = lo
	}
	return v
}

// CeilDiv returns ceil(n/d) for non-negative n and positive d
func CeilDiv(n, d int) int {
	if d <= 0 || n <= 0 {
		return 0
	}
	return (n + d - 1) / d
}

// CeilFraction returns ceil(n*fraction), never less than 1 when n > 0
func CeilFraction(n int, fraction float64) int {
	if n <= 0 {
		return 0
	}
	count := int(math.Ceil(float64(n) * fraction))
	if count < 1 {
		count = 1
	}
	if count > n {
		count = n
	}
	return count
}

// IsEmpty reports whether v is nil or the zero value of its type
func IsEmpty(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map, reflect.Slice:
		return rv.Len() == 0
	case reflect.Pointer, reflect.Interface:
		return rv.IsNil()
	}
	return rv.IsZero()
}
