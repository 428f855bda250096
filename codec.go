package fleetcache

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sync/atomic"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/s2"
	"github.com/klauspost/compress/zstd"

	"github.com/hmanprod/fleetmada-sub008/errors"
)

// CompressionAlgorithm represents the compression algorithm to use.
// Its value is written as the first byte of every encoded payload.
type CompressionAlgorithm byte

const (
	// NoCompression stores the JSON encoding as-is
	NoCompression CompressionAlgorithm = iota
	// GzipCompression uses gzip compression
	GzipCompression
	// ZstdCompression uses zstd compression
	ZstdCompression
	// S2Compression uses s2 (Snappy compatible) compression
	S2Compression
)

// String returns the configuration name of the algorithm
func (a CompressionAlgorithm) String() string {
	switch a {
	case NoCompression:
		return "none"
	case GzipCompression:
		return "gzip"
	case ZstdCompression:
		return "zstd"
	case S2Compression:
		return "s2"
	default:
		return fmt.Sprintf("unknown(%d)", byte(a))
	}
}

// ParseCompressionAlgorithm maps a configuration name to an algorithm
func ParseCompressionAlgorithm(name string) (CompressionAlgorithm, error) {
	switch name {
	case "", "none":
		return NoCompression, nil
	case "gzip":
		return GzipCompression, nil
	case "zstd":
		return ZstdCompression, nil
	case "s2":
		return S2Compression, nil
	default:
		return NoCompression, errors.WrapError("ParseCompressionAlgorithm", name, errors.ErrInvalidOperation)
	}
}

// CompressionConfig represents configuration for the codec
type CompressionConfig struct {
	Algorithm CompressionAlgorithm
	// Level is the gzip level (1-9) or the zstd level (1-4); 0 picks the default
	Level int
	// MinSize is the smallest JSON payload that gets compressed
	MinSize int
}

// DefaultCompressionConfig returns the default compression configuration
func DefaultCompressionConfig() CompressionConfig {
	return CompressionConfig{
		Algorithm: GzipCompression,
		Level:     gzip.DefaultCompression,
		MinSize:   1024,
	}
}

// CodecStats counts codec activity
type CodecStats struct {
	Encoded    int64
	Compressed int64
	BytesIn    int64
	BytesOut   int64
	Decoded    int64
	Failures   int64
}

// Codec JSON-encodes values and compresses large payloads.
// It is safe for concurrent use.
type Codec struct {
	config  CompressionConfig
	gzipW   *ObjectPool[*gzip.Writer]
	zstdEnc *zstd.Encoder
	zstdDec *zstd.Decoder

	encoded    atomic.Int64
	compressed atomic.Int64
	bytesIn    atomic.Int64
	bytesOut   atomic.Int64
	decoded    atomic.Int64
	failures   atomic.Int64
}

// NewCodec creates a codec for config
func NewCodec(config CompressionConfig) (*Codec, error) {
	if config.MinSize < 0 {
		config.MinSize = 0
	}
	c := &Codec{config: config}

	switch config.Algorithm {
	case NoCompression, S2Compression:
	case GzipCompression:
		level := config.Level
		if level == 0 {
			level = gzip.DefaultCompression
		}
		if _, err := gzip.NewWriterLevel(io.Discard, level); err != nil {
			return nil, errors.WrapError("NewCodec", nil, fmt.Errorf("%w: %v", errors.ErrCompression, err))
		}
		c.gzipW = NewObjectPool(func() *gzip.Writer {
			w, _ := gzip.NewWriterLevel(io.Discard, level)
			return w
		}, nil)
	case ZstdCompression:
		level := zstd.SpeedDefault
		if config.Level > 0 {
			level = zstd.EncoderLevel(min(config.Level, int(zstd.SpeedBestCompression)))
		}
		enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(level))
		if err != nil {
			return nil, errors.WrapError("NewCodec", nil, fmt.Errorf("%w: %v", errors.ErrCompression, err))
		}
		c.zstdEnc = enc
	default:
		return nil, errors.WrapError("NewCodec", config.Algorithm.String(), errors.ErrInvalidOperation)
	}

	// Payloads may have been written by a codec with another algorithm, so zstd
	// decoding is always available.
	dec, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(0))
	if err != nil {
		return nil, errors.WrapError("NewCodec", nil, fmt.Errorf("%w: %v", errors.ErrDecompression, err))
	}
	c.zstdDec = dec
	return c, nil
}

// MustCodec is NewCodec for static configurations; it panics on error
func MustCodec(config CompressionConfig) *Codec {
	c, err := NewCodec(config)
	if err != nil {
		panic(err)
	}
	return c
}

// Config returns the codec configuration
func (c *Codec) Config() CompressionConfig {
	return c.config
}

// Encode JSON-encodes v and compresses it when it reaches MinSize
func (c *Codec) Encode(v any) ([]byte, error) {
	payload, _, err := c.encode(v)
	return payload, err
}

// encode returns the payload and the size of the JSON encoding
func (c *Codec) encode(v any) ([]byte, int, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		c.failures.Add(1)
		return nil, 0, errors.WrapError("Encode", nil, fmt.Errorf("%w: %v", errors.ErrSerialization, err))
	}
	c.encoded.Add(1)

	algo := c.config.Algorithm
	if algo == NoCompression || len(raw) < c.config.MinSize {
		return append([]byte{byte(NoCompression)}, raw...), len(raw), nil
	}

	payload, err := c.compress(algo, raw)
	if err != nil {
		c.failures.Add(1)
		return nil, 0, errors.WrapError("Encode", nil, fmt.Errorf("%w: %v", errors.ErrCompression, err))
	}
	c.compressed.Add(1)
	c.bytesIn.Add(int64(len(raw)))
	c.bytesOut.Add(int64(len(payload)))
	return payload, len(raw), nil
}

func (c *Codec) compress(algo CompressionAlgorithm, raw []byte) ([]byte, error) {
	switch algo {
	case GzipCompression:
		buf := getBuffer()
		defer putBuffer(buf)
		buf.WriteByte(byte(GzipCompression))

		w := c.gzipW.Get()
		defer c.gzipW.Put(w)
		w.Reset(buf)
		if _, err := w.Write(raw); err != nil {
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
		return append([]byte(nil), buf.Bytes()...), nil
	case ZstdCompression:
		dst := make([]byte, 1, len(raw)/2+1)
		dst[0] = byte(ZstdCompression)
		return c.zstdEnc.EncodeAll(raw, dst), nil
	case S2Compression:
		body := s2.Encode(nil, raw)
		return append([]byte{byte(S2Compression)}, body...), nil
	default:
		return nil, fmt.Errorf("unsupported algorithm %s", algo)
	}
}

// Decode reverses Encode into out, which must be a pointer
func (c *Codec) Decode(payload []byte, out any) error {
	raw, err := c.decompress(payload)
	if err != nil {
		c.failures.Add(1)
		return errors.WrapError("Decode", nil, fmt.Errorf("%w: %v", errors.ErrDecode, err))
	}
	if err := json.Unmarshal(raw, out); err != nil {
		c.failures.Add(1)
		return errors.WrapError("Decode", nil, fmt.Errorf("%w: %v", errors.ErrDecode, err))
	}
	c.decoded.Add(1)
	return nil
}

func (c *Codec) decompress(payload []byte) ([]byte, error) {
	if len(payload) == 0 {
		return nil, fmt.Errorf("empty payload")
	}
	body := payload[1:]
	switch CompressionAlgorithm(payload[0]) {
	case NoCompression:
		return body, nil
	case GzipCompression:
		r, err := gzip.NewReader(bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		defer r.Close()
		buf := getBuffer()
		defer putBuffer(buf)
		if _, err := buf.ReadFrom(r); err != nil {
			return nil, err
		}
		return append([]byte(nil), buf.Bytes()...), nil
	case ZstdCompression:
		return c.zstdDec.DecodeAll(body, nil)
	case S2Compression:
		return s2.Decode(nil, body)
	default:
		return nil, fmt.Errorf("unknown algorithm header %d", payload[0])
	}
}

// Stats returns a copy of the codec counters
func (c *Codec) Stats() CodecStats {
	return CodecStats{
		Encoded:    c.encoded.Load(),
		Compressed: c.compressed.Load(),
		BytesIn:    c.bytesIn.Load(),
		BytesOut:   c.bytesOut.Load(),
		Decoded:    c.decoded.Load(),
		Failures:   c.failures.Load(),
	}
}

// Close releases the zstd encoder and decoder
func (c *Codec) Close() {
	if c.zstdEnc != nil {
		_ = c.zstdEnc.Close()
	}
	if c.zstdDec != nil {
		c.zstdDec.Close()
	}
}
