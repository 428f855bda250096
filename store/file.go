package store

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/klauspost/compress/gzip"

	"github.com/hmanprod/fleetmada-sub008/clock"
	cacheErrors "github.com/hmanprod/fleetmada-sub008/errors"
)

// FileConfig holds file-based storage configuration
type FileConfig struct {
	// Directory is the base directory for storing files
	Directory string

	// FileExtension is the extension for data files
	FileExtension string

	// CompressionEnabled gzips each file
	CompressionEnabled bool

	// CompressionLevel sets the gzip compression level (1-9)
	CompressionLevel int
}

// DefaultFileConfig returns a FileConfig with sensible defaults
func DefaultFileConfig() *FileConfig {
	return &FileConfig{
		Directory:          "cache",
		FileExtension:      ".cache",
		CompressionEnabled: true,
		CompressionLevel:   6,
	}
}

// fileStore implements the Store interface with one JSON file per key
type fileStore struct {
	config    *FileConfig
	mu        sync.RWMutex
	clock     clock.Clock
	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// NewFileStore creates a new file-based store
func NewFileStore(ctx context.Context, config *FileConfig, opts ...Option) (Store, error) {
	if err := checkContext(ctx); err != nil {
		return nil, cacheErrors.WrapError("NewFileStore", nil, cacheErrors.ErrContextCanceled)
	}

	if config == nil {
		config = DefaultFileConfig()
	}
	if config.FileExtension == "" {
		config.FileExtension = ".cache"
	}
	if config.CompressionLevel < gzip.BestSpeed || config.CompressionLevel > gzip.BestCompression {
		config.CompressionLevel = gzip.DefaultCompression
	}

	options := NewOptions()
	if err := options.Apply(opts...); err != nil {
		return nil, cacheErrors.WrapError("NewFileStore", nil, err)
	}

	if err := os.MkdirAll(config.Directory, 0o755); err != nil {
		return nil, cacheErrors.WrapError("NewFileStore", nil, fmt.Errorf("%w: %v", cacheErrors.ErrStoreError, err))
	}
	if err := verifyDirectoryWritable(config.Directory); err != nil {
		return nil, cacheErrors.WrapError("NewFileStore", nil, fmt.Errorf("%w: %v", cacheErrors.ErrStoreError, err))
	}

	f := &fileStore{
		config: config,
		clock:  options.Clock,
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	if options.CleanupInterval > 0 {
		go f.cleanupLoop(options.CleanupInterval)
	} else {
		close(f.done)
	}
	return f, nil
}

// verifyDirectoryWritable checks if the directory is writable
func verifyDirectoryWritable(dir string) error {
	testFile := filepath.Join(dir, ".test_write")
	fh, err := os.OpenFile(testFile, os.O_WRONLY|os.O_CREATE, 0o644)
	if err != nil {
		return fmt.Errorf("directory not writable: %w", err)
	}
	fh.Close()
	return os.Remove(testFile)
}

func (f *fileStore) getPath(key string) string {
	return filepath.Join(f.config.Directory, hex.EncodeToString([]byte(key))+f.config.FileExtension)
}

func (f *fileStore) keyFromName(name string) (string, bool) {
	raw, err := hex.DecodeString(strings.TrimSuffix(name, f.config.FileExtension))
	if err != nil {
		return "", false
	}
	return string(raw), true
}

func (f *fileStore) encode(entry *Entry) ([]byte, error) {
	data, err := json.Marshal(entry)
	if err != nil {
		return nil, err
	}
	if !f.config.CompressionEnabled {
		return data, nil
	}
	var buf bytes.Buffer
	zw, err := gzip.NewWriterLevel(&buf, f.config.CompressionLevel)
	if err != nil {
		return nil, err
	}
	if _, err := zw.Write(data); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (f *fileStore) decode(data []byte) (*Entry, error) {
	if f.config.CompressionEnabled {
		zr, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		defer zr.Close()
		if data, err = io.ReadAll(zr); err != nil {
			return nil, err
		}
	}
	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

// readEntry loads the entry at path. Corrupt files are removed and reported as missing.
func (f *fileStore) readEntry(path string) (*Entry, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	entry, err := f.decode(data)
	if err != nil {
		_ = os.Remove(path)
		return nil, false, nil
	}
	return entry, true, nil
}

// Get retrieves a value from the store
func (f *fileStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := checkContext(ctx); err != nil {
		return nil, false, cacheErrors.WrapError("Get", key, cacheErrors.ErrContextCanceled)
	}

	f.mu.RLock()
	entry, ok, err := f.readEntry(f.getPath(key))
	f.mu.RUnlock()
	if err != nil {
		return nil, false, cacheErrors.WrapError("Get", key, fmt.Errorf("%w: %v", cacheErrors.ErrStoreError, err))
	}
	if !ok {
		return nil, false, nil
	}
	if entry.Expired(f.clock.Now()) {
		f.mu.Lock()
		_ = os.Remove(f.getPath(key))
		f.mu.Unlock()
		return nil, false, nil
	}
	return entry.Value, true, nil
}

// Set stores a value in the store
func (f *fileStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := checkContext(ctx); err != nil {
		return cacheErrors.WrapError("Set", key, cacheErrors.ErrContextCanceled)
	}

	now := f.clock.Now()
	entry := &Entry{Key: key, Value: value, CreatedAt: now}
	if ttl > 0 {
		entry.Expires = now.Add(ttl)
	}
	data, err := f.encode(entry)
	if err != nil {
		return cacheErrors.WrapError("Set", key, fmt.Errorf("%w: %v", cacheErrors.ErrSerialization, err))
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	filePath := f.getPath(key)
	tempPath := filePath + ".tmp"
	if err := os.WriteFile(tempPath, data, 0o644); err != nil {
		return cacheErrors.WrapError("Set", key, fmt.Errorf("%w: %v", cacheErrors.ErrStoreError, err))
	}
	if err := os.Rename(tempPath, filePath); err != nil {
		_ = os.Remove(tempPath)
		return cacheErrors.WrapError("Set", key, fmt.Errorf("%w: %v", cacheErrors.ErrStoreError, err))
	}
	return nil
}

// Delete removes a value from the store
func (f *fileStore) Delete(ctx context.Context, key string) error {
	if err := checkContext(ctx); err != nil {
		return cacheErrors.WrapError("Delete", key, cacheErrors.ErrContextCanceled)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if err := os.Remove(f.getPath(key)); err != nil && !os.IsNotExist(err) {
		return cacheErrors.WrapError("Delete", key, fmt.Errorf("%w: %v", cacheErrors.ErrStoreError, err))
	}
	return nil
}

// DeleteMany deletes multiple keys from the store
func (f *fileStore) DeleteMany(ctx context.Context, keys []string) error {
	for _, key := range keys {
		if err := f.Delete(ctx, key); err != nil {
			return err
		}
	}
	return nil
}

// Clear removes all data files from the store directory
func (f *fileStore) Clear(ctx context.Context) error {
	if err := checkContext(ctx); err != nil {
		return cacheErrors.WrapError("Clear", nil, cacheErrors.ErrContextCanceled)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	files, err := os.ReadDir(f.config.Directory)
	if err != nil {
		return cacheErrors.WrapError("Clear", nil, fmt.Errorf("%w: %v", cacheErrors.ErrStoreError, err))
	}
	for _, file := range files {
		if !file.IsDir() && filepath.Ext(file.Name()) == f.config.FileExtension {
			_ = os.Remove(filepath.Join(f.config.Directory, file.Name()))
		}
	}
	return nil
}

// Keys returns all live keys in the store
func (f *fileStore) Keys(ctx context.Context) ([]string, error) {
	if err := checkContext(ctx); err != nil {
		return nil, cacheErrors.WrapError("Keys", nil, cacheErrors.ErrContextCanceled)
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	files, err := os.ReadDir(f.config.Directory)
	if err != nil {
		return nil, cacheErrors.WrapError("Keys", nil, fmt.Errorf("%w: %v", cacheErrors.ErrStoreError, err))
	}
	now := f.clock.Now()
	keys := make([]string, 0, len(files))
	for _, file := range files {
		if file.IsDir() || filepath.Ext(file.Name()) != f.config.FileExtension {
			continue
		}
		key, ok := f.keyFromName(file.Name())
		if !ok {
			continue
		}
		entry, ok, err := f.readEntry(filepath.Join(f.config.Directory, file.Name()))
		if err != nil || !ok || entry.Expired(now) {
			continue
		}
		keys = append(keys, key)
	}
	return keys, nil
}

// Close stops the cleanup goroutine and waits for it to exit
func (f *fileStore) Close(context.Context) error {
	f.closeOnce.Do(func() { close(f.stop) })
	<-f.done
	return nil
}

func (f *fileStore) cleanupLoop(interval time.Duration) {
	defer close(f.done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-f.stop:
			return
		case <-ticker.C:
			f.purgeExpired()
		}
	}
}

// purgeExpired removes expired and corrupt files and returns how many were removed
func (f *fileStore) purgeExpired() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	files, err := os.ReadDir(f.config.Directory)
	if err != nil {
		return 0
	}
	now := f.clock.Now()
	removed := 0
	for _, file := range files {
		if file.IsDir() || filepath.Ext(file.Name()) != f.config.FileExtension {
			continue
		}
		path := filepath.Join(f.config.Directory, file.Name())
		entry, ok, err := f.readEntry(path)
		if err != nil {
			continue
		}
		if !ok || entry.Expired(now) {
			_ = os.Remove(path)
			removed++
		}
	}
	return removed
}
