package codec

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/hupe1980/unpackqa/internal/hash"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compression selects the payload compression of a container.
type Compression uint8

const (
	// CompressionNone stores the payload as is.
	CompressionNone Compression = 0
	// CompressionLZ4 uses LZ4 block compression (fast).
	CompressionLZ4 Compression = 1
	// CompressionZSTD uses ZSTD (better ratio; masks compress very well).
	CompressionZSTD Compression = 2
)

// ErrUnknownCompression is returned for an unsupported compression id or name.
var ErrUnknownCompression = errors.New("codec: unknown compression")

func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionLZ4:
		return "lz4"
	case CompressionZSTD:
		return "zstd"
	default:
		return fmt.Sprintf("compression(%d)", uint8(c))
	}
}

// ParseCompression parses "none", "lz4" or "zstd".
func ParseCompression(s string) (Compression, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none", "raw":
		return CompressionNone, nil
	case "lz4":
		return CompressionLZ4, nil
	case "zstd":
		return CompressionZSTD, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownCompression, s)
	}
}

var (
	zstdEncoderPool sync.Pool
	zstdDecoderPool sync.Pool
)

func getZstdEncoder() *zstd.Encoder {
	if v := zstdEncoderPool.Get(); v != nil {
		return v.(*zstd.Encoder)
	}
	enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	return enc
}

func putZstdEncoder(enc *zstd.Encoder) { zstdEncoderPool.Put(enc) }

func getZstdDecoder() *zstd.Decoder {
	if v := zstdDecoderPool.Get(); v != nil {
		return v.(*zstd.Decoder)
	}
	dec, _ := zstd.NewReader(nil)
	return dec
}

func putZstdDecoder(dec *zstd.Decoder) { zstdDecoderPool.Put(dec) }

// Block format: [rawLen uint64][storedLen uint64][crc32c uint32][data...].
// storedLen == 0 means data is stored uncompressed. The checksum covers data
// as stored.
const blockHeaderSize = 20

// appendBlock compresses data and appends the block to dst.
// If compression saves less than 10% the raw bytes are stored.
func appendBlock(dst, data []byte, c Compression) ([]byte, error) {
	var compressed []byte
	switch c {
	case CompressionNone:
	case CompressionLZ4:
		buf := make([]byte, lz4.CompressBlockBound(len(data)))
		n, err := lz4.CompressBlock(data, buf, nil)
		if err != nil {
			return nil, err
		}
		compressed = buf[:n]
	case CompressionZSTD:
		enc := getZstdEncoder()
		compressed = enc.EncodeAll(data, nil)
		putZstdEncoder(enc)
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownCompression, c)
	}

	dst = binary.LittleEndian.AppendUint64(dst, uint64(len(data)))
	if len(compressed) == 0 || float64(len(compressed)) > float64(len(data))*0.9 {
		dst = binary.LittleEndian.AppendUint64(dst, 0)
		dst = binary.LittleEndian.AppendUint32(dst, hash.CRC32C(data))
		return append(dst, data...), nil
	}
	dst = binary.LittleEndian.AppendUint64(dst, uint64(len(compressed)))
	dst = binary.LittleEndian.AppendUint32(dst, hash.CRC32C(compressed))
	return append(dst, compressed...), nil
}

// Upper bounds on rawLen/storedLen. An LZ4 sequence expands at most about
// 255:1; a zstd RLE block stores up to 128 KiB in 4 bytes.
const (
	lz4MaxRatio  = 255
	zstdMaxRatio = 128 << 10 / 4
)

// readBlock decodes one block of want raw bytes. Lengths claimed by the
// header are checked against the body before any buffer is allocated.
func readBlock(data []byte, c Compression, want uint64) ([]byte, error) {
	if len(data) < blockHeaderSize {
		return nil, fmt.Errorf("%w: block too small for header", ErrCorrupt)
	}
	rawLen := binary.LittleEndian.Uint64(data[0:])
	if rawLen != want {
		return nil, fmt.Errorf("%w: payload has %d bytes, shape needs %d", ErrCorrupt, rawLen, want)
	}
	storedLen := binary.LittleEndian.Uint64(data[8:])
	sum := binary.LittleEndian.Uint32(data[16:])
	body := data[blockHeaderSize:]

	if storedLen == 0 {
		if uint64(len(body)) != rawLen {
			return nil, fmt.Errorf("%w: raw block has %d bytes, header says %d", ErrCorrupt, len(body), rawLen)
		}
		if hash.CRC32C(body) != sum {
			return nil, ErrChecksum
		}
		return body, nil
	}
	if uint64(len(body)) != storedLen {
		return nil, fmt.Errorf("%w: compressed block has %d bytes, header says %d", ErrCorrupt, len(body), storedLen)
	}
	if hash.CRC32C(body) != sum {
		return nil, ErrChecksum
	}
	if err := checkRatio(c, rawLen, storedLen); err != nil {
		return nil, err
	}

	switch c {
	case CompressionLZ4:
		out := make([]byte, rawLen)
		n, err := lz4.UncompressBlock(body, out)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
		}
		if uint64(n) != rawLen {
			return nil, fmt.Errorf("%w: decompressed size mismatch", ErrCorrupt)
		}
		return out, nil
	case CompressionZSTD:
		dec := getZstdDecoder()
		defer putZstdDecoder(dec)
		// Capacity follows the stored size; DecodeAll grows it as output
		// actually arrives.
		out, err := dec.DecodeAll(body, make([]byte, 0, min(rawLen, storedLen*8)))
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
		}
		if uint64(len(out)) != rawLen {
			return nil, fmt.Errorf("%w: decompressed size mismatch", ErrCorrupt)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownCompression, c)
	}
}

func checkRatio(c Compression, rawLen, storedLen uint64) error {
	var ratio uint64
	switch c {
	case CompressionLZ4:
		ratio = lz4MaxRatio
	case CompressionZSTD:
		ratio = zstdMaxRatio
	default:
		return fmt.Errorf("%w: %d", ErrUnknownCompression, c)
	}
	if rawLen > storedLen*ratio || rawLen > math.MaxInt {
		return fmt.Errorf("%w: block claims %d raw bytes from %d stored", ErrCorrupt, rawLen, storedLen)
	}
	return nil
}
