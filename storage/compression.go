package storage

import (
	"fmt"
	"strings"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compression identifies the payload compression of an envelope.
type Compression uint8

const (
	CompressionNone Compression = 0
	CompressionLZ4  Compression = 1
	CompressionZSTD Compression = 2
)

func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionLZ4:
		return "lz4"
	case CompressionZSTD:
		return "zstd"
	}
	return fmt.Sprintf("Compression(%d)", uint8(c))
}

// ParseCompression maps a compression config value; "" means none.
func ParseCompression(s string) (Compression, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return CompressionNone, nil
	case "lz4":
		return CompressionLZ4, nil
	case "zstd":
		return CompressionZSTD, nil
	}
	return CompressionNone, fmt.Errorf("storage: unknown compression %q", s)
}

var (
	zstdEncoderPool sync.Pool
	zstdDecoderPool sync.Pool
)

func getZstdEncoder() *zstd.Encoder {
	if v := zstdEncoderPool.Get(); v != nil {
		return v.(*zstd.Encoder)
	}
	enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault), zstd.WithEncoderConcurrency(1))
	return enc
}

func getZstdDecoder() *zstd.Decoder {
	if v := zstdDecoderPool.Get(); v != nil {
		return v.(*zstd.Decoder)
	}
	dec, _ := zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
	return dec
}

// compress returns the encoded payload and the compression actually applied.
// Payloads that do not shrink by at least 10% are stored uncompressed.
func compress(data []byte, c Compression) ([]byte, Compression, error) {
	if c == CompressionNone || len(data) == 0 {
		return data, CompressionNone, nil
	}

	var out []byte
	switch c {
	case CompressionLZ4:
		buf := make([]byte, lz4.CompressBlockBound(len(data)))
		n, err := lz4.CompressBlock(data, buf, nil)
		if err != nil {
			return nil, CompressionNone, err
		}
		out = buf[:n]
	case CompressionZSTD:
		enc := getZstdEncoder()
		out = enc.EncodeAll(data, nil)
		zstdEncoderPool.Put(enc)
	default:
		return nil, CompressionNone, fmt.Errorf("storage: unknown compression %d", c)
	}

	if len(out) == 0 || float64(len(out)) > float64(len(data))*0.9 {
		return data, CompressionNone, nil
	}
	return out, c, nil
}

// Worst-case expansion of the block formats: an LZ4 sequence expands at most
// 255x, a zstd RLE block turns 4 bytes into up to 128 KiB.
const (
	lz4MaxRatio  = 255
	zstdMaxRatio = 128 << 10 / 4
	rawSizeSlack = 1 << 10
	maxRawBytes  = 1 << 40
)

// maxRawSize bounds the decompressed size claimed for stored bytes, so a
// corrupt header cannot force a large allocation.
func maxRawSize(c Compression, stored uint64) uint64 {
	var limit uint64
	switch c {
	case CompressionNone:
		return stored
	case CompressionLZ4:
		limit = stored*lz4MaxRatio + rawSizeSlack
	case CompressionZSTD:
		limit = stored*zstdMaxRatio + rawSizeSlack
	default:
		return 0
	}
	return min(limit, maxRawBytes)
}

func decompress(data []byte, c Compression, rawSize int) ([]byte, error) {
	switch c {
	case CompressionNone:
		if len(data) != rawSize {
			return nil, corruptf("payload is %d bytes, expected %d", len(data), rawSize)
		}
		return data, nil
	case CompressionLZ4:
		out := make([]byte, rawSize)
		n, err := lz4.UncompressBlock(data, out)
		if err != nil || n != rawSize {
			return nil, corruptf("lz4 payload: %v", err)
		}
		return out, nil
	case CompressionZSTD:
		dec := getZstdDecoder()
		out, err := dec.DecodeAll(data, make([]byte, 0, rawSize))
		zstdDecoderPool.Put(dec)
		if err != nil || len(out) != rawSize {
			return nil, corruptf("zstd payload: %v", err)
		}
		return out, nil
	}
	return nil, corruptf("unknown compression %d", c)
}
