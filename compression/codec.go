package compression

import (
	"bytes"
	"fmt"
	"io"
	"sync"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"github.com/ridge/geyser/defaults"
	"github.com/ridge/must/v2"
)

// Codec compresses and decompresses frame payloads.
//
// Codecs are safe for concurrent use.
type Codec interface {
	// Type returns the tag written into frames
	Type() Type

	// Compress returns the compressed form of src
	Compress(src []byte) ([]byte, error)

	// Decompress returns the decompressed form of src or ErrTooLarge if
	// the result would exceed limit bytes
	Decompress(src []byte, limit int) ([]byte, error)
}

// New returns the sender codec for the configuration
func New(c Config) (Codec, error) {
	switch c.Type {
	case None:
		return noneCodec{}, nil
	case LZ4:
		// The Go implementation has no acceleration knob: every positive
		// acceleration maps to the fast compressor
		return lz4Codec{}, nil
	case Zstd:
		return newZstdCodec(zstd.EncoderLevelFromZstd(c.Level))
	case Snappy:
		return snappyCodec{}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownType, c.Type)
	}
}

// ForType returns the codec able to decompress frames with the given tag
func ForType(t Type) (Codec, error) {
	switch t {
	case None:
		return noneCodec{}, nil
	case LZ4:
		return lz4Codec{}, nil
	case Zstd:
		return sharedZstd()
	case Snappy:
		return snappyCodec{}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownType, t)
	}
}

// Decompress is a shorthand for ForType(t).Decompress(src, limit)
func Decompress(t Type, src []byte, limit int) ([]byte, error) {
	codec, err := ForType(t)
	if err != nil {
		return nil, err
	}
	return codec.Decompress(src, limit)
}

type noneCodec struct{}

func (noneCodec) Type() Type { return None }

func (noneCodec) Compress(src []byte) ([]byte, error) {
	return src, nil
}

func (noneCodec) Decompress(src []byte, limit int) ([]byte, error) {
	if len(src) > limit {
		return nil, fmt.Errorf("%w: %d > %d", ErrTooLarge, len(src), limit)
	}
	return src, nil
}

type lz4Codec struct{}

func (lz4Codec) Type() Type { return LZ4 }

func (lz4Codec) Compress(src []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := lz4.NewWriter(&buf)
	if err := w.Apply(lz4.CompressionLevelOption(lz4.Fast)); err != nil {
		return nil, fmt.Errorf("lz4 compression failed: %w", err)
	}
	if _, err := w.Write(src); err != nil {
		return nil, fmt.Errorf("lz4 compression failed: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("lz4 compression failed: %w", err)
	}
	return buf.Bytes(), nil
}

func (lz4Codec) Decompress(src []byte, limit int) ([]byte, error) {
	return readLimited(lz4.NewReader(bytes.NewReader(src)), limit, "lz4")
}

// readLimited reads r to the end, failing if it yields more than limit bytes
func readLimited(r io.Reader, limit int, codec string) ([]byte, error) {
	res, err := io.ReadAll(io.LimitReader(r, int64(limit)+1))
	if err != nil {
		return nil, fmt.Errorf("%s decompression failed: %w", codec, err)
	}
	if len(res) > limit {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrTooLarge, limit)
	}
	return res, nil
}

type zstdCodec struct {
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

func newZstdDecoder() (*zstd.Decoder, error) {
	return zstd.NewReader(nil, zstd.WithDecoderMaxMemory(defaults.MaxPayloadSize))
}

func newZstdCodec(level zstd.EncoderLevel) (*zstdCodec, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(level))
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	decoder, err := newZstdDecoder()
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}
	return &zstdCodec{encoder: encoder, decoder: decoder}, nil
}

var (
	zstdOnce   sync.Once
	zstdShared *zstdCodec
)

// sharedZstd returns the process-wide receiver codec; decoders hold
// goroutines and buffers, so one is enough
func sharedZstd() (*zstdCodec, error) {
	zstdOnce.Do(func() {
		zstdShared = must.OK1(newZstdCodec(zstd.SpeedDefault))
	})
	return zstdShared, nil
}

func (*zstdCodec) Type() Type { return Zstd }

func (c *zstdCodec) Compress(src []byte) ([]byte, error) {
	return c.encoder.EncodeAll(src, nil), nil
}

func (c *zstdCodec) Decompress(src []byte, limit int) ([]byte, error) {
	res, err := c.decoder.DecodeAll(src, nil)
	if err != nil {
		return nil, fmt.Errorf("zstd decompression failed: %w", err)
	}
	if len(res) > limit {
		return nil, fmt.Errorf("%w: %d > %d", ErrTooLarge, len(res), limit)
	}
	return res, nil
}

type snappyCodec struct{}

func (snappyCodec) Type() Type { return Snappy }

func (snappyCodec) Compress(src []byte) ([]byte, error) {
	return snappy.Encode(nil, src), nil
}

func (snappyCodec) Decompress(src []byte, limit int) ([]byte, error) {
	n, err := snappy.DecodedLen(src)
	if err != nil {
		return nil, fmt.Errorf("snappy decompression failed: %w", err)
	}
	if n > limit {
		return nil, fmt.Errorf("%w: %d > %d", ErrTooLarge, n, limit)
	}
	res, err := snappy.Decode(nil, src)
	if err != nil {
		return nil, fmt.Errorf("snappy decompression failed: %w", err)
	}
	return res, nil
}
