// Package errors provides error types and utilities for the fleetcache packages.
package errors

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"
)

// ErrorType represents the category of error
type ErrorType string

const (
	// ErrorTypeCache represents cache-specific errors
	ErrorTypeCache ErrorType = "cache"
	// ErrorTypeStore represents L2 storage backend errors
	ErrorTypeStore ErrorType = "store"
	// ErrorTypeValidation represents validation and encoding errors
	ErrorTypeValidation ErrorType = "validation"
	// ErrorTypeFetch represents failures of a remote fetch
	ErrorTypeFetch ErrorType = "fetch"
	// ErrorTypeOperation represents operation-specific errors
	ErrorTypeOperation ErrorType = "operation"
)

// Common error types
var (
	// Cache errors
	ErrCacheClosed     = errors.New("cache is closed")
	ErrKeyNotFound     = errors.New("key not found")
	ErrInvalidKey      = errors.New("invalid key")
	ErrContextCanceled = errors.New("operation canceled by context")

	// TTL errors
	ErrInvalidTTL = errors.New("invalid TTL value")

	// Configuration errors
	ErrInvalidSize     = errors.New("max size must be greater than 0")
	ErrInvalidFraction = errors.New("eviction fraction must be in (0, 1]")
	ErrInvalidPageSize = errors.New("page size must be greater than 0")

	// Store errors
	ErrStoreError      = errors.New("store operation failed")
	ErrStoreConnection = errors.New("store connection failed")

	// Data errors
	ErrCompression   = errors.New("compression error")
	ErrDecompression = errors.New("decompression error")
	ErrSerialization = errors.New("serialization error")
	ErrDecode        = errors.New("decode error")

	// Fetch errors
	ErrFetch      = errors.New("fetch failed")
	ErrFetchPanic = errors.New("fetch panicked")

	// Operation errors
	ErrInvalidOperation = errors.New("invalid operation")
	ErrLoaderPanic      = errors.New("loader panicked")
)

// CacheError represents a failed operation
type CacheError struct {
	Op      string
	Key     any
	Err     error
	ErrType ErrorType
}

// determineErrorType determines the error type based on the error
func determineErrorType(err error) ErrorType {
	switch {
	case errors.Is(err, ErrCacheClosed) || errors.Is(err, ErrKeyNotFound) ||
		errors.Is(err, ErrInvalidKey):
		return ErrorTypeCache
	case errors.Is(err, ErrStoreError) || errors.Is(err, ErrStoreConnection):
		return ErrorTypeStore
	case errors.Is(err, ErrCompression) || errors.Is(err, ErrDecompression) ||
		errors.Is(err, ErrSerialization) || errors.Is(err, ErrDecode) ||
		errors.Is(err, ErrInvalidTTL) || errors.Is(err, ErrInvalidSize) ||
		errors.Is(err, ErrInvalidFraction) || errors.Is(err, ErrInvalidPageSize):
		return ErrorTypeValidation
	case errors.Is(err, ErrFetch) || errors.Is(err, ErrFetchPanic):
		return ErrorTypeFetch
	default:
		return ErrorTypeOperation
	}
}

// Error implements the error interface
func (e *CacheError) Error() string {
	if e.Key != nil {
		return fmt.Sprintf("%s: %s: key=%v: %v", e.ErrType, e.Op, e.Key, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.ErrType, e.Op, e.Err)
}

// Unwrap returns the underlying error
func (e *CacheError) Unwrap() error {
	return e.Err
}

// Is reports whether target is a CacheError with the same type, op and cause
func (e *CacheError) Is(target error) bool {
	t, ok := target.(*CacheError)
	if !ok {
		return false
	}
	return e.ErrType == t.ErrType && e.Op == t.Op && errors.Is(e.Err, t.Err)
}

// NewCacheError creates a new CacheError
func NewCacheError(errType ErrorType, op string, key any, err error) error {
	return &CacheError{
		ErrType: errType,
		Op:      op,
		Key:     key,
		Err:     err,
	}
}

// ErrorMetrics tracks error statistics
type ErrorMetrics struct {
	CacheErrors      atomic.Int64
	StoreErrors      atomic.Int64
	ValidationErrors atomic.Int64
	FetchErrors      atomic.Int64
	OperationErrors  atomic.Int64

	LastError atomic.Value // time.Time

	PanicRecoveries atomic.Int64
	LastPanic       atomic.Value // time.Time
}

var metrics = &ErrorMetrics{}

// GetErrorMetrics returns the process-wide error metrics
func GetErrorMetrics() *ErrorMetrics {
	return metrics
}

// ResetErrorMetrics resets all error metrics
func ResetErrorMetrics() {
	metrics.CacheErrors.Store(0)
	metrics.StoreErrors.Store(0)
	metrics.ValidationErrors.Store(0)
	metrics.FetchErrors.Store(0)
	metrics.OperationErrors.Store(0)
	metrics.PanicRecoveries.Store(0)
	metrics.LastError.Store(time.Time{})
	metrics.LastPanic.Store(time.Time{})
}

func updateErrorMetrics(errType ErrorType) {
	switch errType {
	case ErrorTypeCache:
		metrics.CacheErrors.Add(1)
	case ErrorTypeStore:
		metrics.StoreErrors.Add(1)
	case ErrorTypeValidation:
		metrics.ValidationErrors.Add(1)
	case ErrorTypeFetch:
		metrics.FetchErrors.Add(1)
	default:
		metrics.OperationErrors.Add(1)
	}
	metrics.LastError.Store(time.Now())
}

// WrapError wraps an error with context and updates metrics
func WrapError(op string, key any, err error) error {
	if err == nil {
		return nil
	}

	errType := determineErrorType(err)
	updateErrorMetrics(errType)
	return NewCacheError(errType, op, key, err)
}

// Recover converts a panic into an error stored in errp. It must be deferred
// directly: defer errors.Recover("Preload", key, errors.ErrLoaderPanic, &err).
func Recover(op string, key any, cause error, errp *error) {
	r := recover()
	if r == nil {
		return
	}
	metrics.PanicRecoveries.Add(1)
	metrics.LastPanic.Store(time.Now())
	if errp != nil {
		*errp = WrapError(op, key, fmt.Errorf("%w: %v", cause, r))
	}
}

// IsCacheError checks if an error is a CacheError
func IsCacheError(err error) bool {
	var cacheErr *CacheError
	return errors.As(err, &cacheErr)
}

// GetCacheError returns the CacheError in err's chain, if any
func GetCacheError(err error) *CacheError {
	var cacheErr *CacheError
	if errors.As(err, &cacheErr) {
		return cacheErr
	}
	return nil
}

// IsErrorType checks if an error is of a specific type
func IsErrorType(err error, errType ErrorType) bool {
	if cacheErr := GetCacheError(err); cacheErr != nil {
		return cacheErr.ErrType == errType
	}
	return false
}

// IsKeyNotFound checks if the error is a key not found error
func IsKeyNotFound(err error) bool {
	return errors.Is(err, ErrKeyNotFound)
}

// IsContextCanceled checks if the error is a context canceled error
func IsContextCanceled(err error) bool {
	return errors.Is(err, ErrContextCanceled)
}

// IsCacheClosed checks if the error is a cache closed error
func IsCacheClosed(err error) bool {
	return errors.Is(err, ErrCacheClosed)
}
