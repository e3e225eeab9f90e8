package codec

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/hupe1980/unpackqa/internal/conv"
	"github.com/hupe1980/unpackqa/ndarray"
)

// Magic identifies a UQA1 container.
var Magic = [4]byte{'U', 'Q', 'A', '1'}

// maxRank bounds the header so corrupt input cannot force large allocations.
// Element counts are bounded by what a byte slice can address; block
// lengths are checked against the body before anything is allocated.
const maxRank = 32

var (
	// ErrBadMagic is returned when data does not start with Magic.
	ErrBadMagic = errors.New("codec: not a UQA1 container")
	// ErrCorrupt is returned for truncated or inconsistent containers.
	ErrCorrupt = errors.New("codec: corrupt container")
	// ErrChecksum is returned when the payload checksum does not match.
	ErrChecksum = fmt.Errorf("%w: checksum mismatch", ErrCorrupt)
)

// Marshal encodes a into a UQA1 container.
//
// Layout:
//
//	magic     [4]byte "UQA1"
//	dtype     uint8
//	compress  uint8
//	rank      uint8
//	dims      rank x uvarint
//	block     [rawLen uint64][storedLen uint64][crc32c uint32][payload]
//
// The payload is the row-major little-endian element data. storedLen 0
// means the payload is uncompressed. The CRC32-C covers the stored payload.
func Marshal(a *ndarray.Array, c Compression) ([]byte, error) {
	if a == nil {
		return nil, errors.New("codec: nil array")
	}
	shape := a.Shape()
	if len(shape) > maxRank {
		return nil, fmt.Errorf("codec: rank %d exceeds %d", len(shape), maxRank)
	}

	var payload bytes.Buffer
	payload.Grow(a.Size() * a.DType().Size())
	if err := binary.Write(&payload, binary.LittleEndian, a.Data()); err != nil {
		return nil, err
	}

	out := make([]byte, 0, 7+len(shape)*binary.MaxVarintLen64+blockHeaderSize+payload.Len())
	out = append(out, Magic[:]...)
	out = append(out, byte(a.DType()), byte(c), byte(len(shape)))
	for _, d := range shape {
		out = binary.AppendUvarint(out, uint64(d))
	}
	return appendBlock(out, payload.Bytes(), c)
}

// Unmarshal decodes a UQA1 container.
func Unmarshal(data []byte) (*ndarray.Array, error) {
	if len(data) < 7 {
		return nil, fmt.Errorf("%w: short header", ErrCorrupt)
	}
	if !bytes.Equal(data[:4], Magic[:]) {
		return nil, ErrBadMagic
	}

	dtype := ndarray.DType(data[4])
	if !dtype.IsValid() {
		return nil, fmt.Errorf("%w: dtype %d", ErrCorrupt, data[4])
	}
	comp := Compression(data[5])
	rank := int(data[6])
	if rank > maxRank {
		return nil, fmt.Errorf("%w: rank %d", ErrCorrupt, rank)
	}

	rest := data[7:]
	shape := make([]int, rank)
	maxElems := uint64(math.MaxInt / dtype.Size())
	size := uint64(1)
	for i := range shape {
		d, n := binary.Uvarint(rest)
		if n <= 0 {
			return nil, fmt.Errorf("%w: bad dimension %d", ErrCorrupt, i)
		}
		rest = rest[n:]
		if d > 0 && size > maxElems/d {
			return nil, fmt.Errorf("%w: shape overflows", ErrCorrupt)
		}
		size *= d
		dim, err := conv.Uint64ToInt(d)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
		}
		shape[i] = dim
	}

	want := size * uint64(dtype.Size())
	raw, err := readBlock(rest, comp, want)
	if err != nil {
		return nil, err
	}

	a, err := ndarray.Zeros(dtype, shape...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	if err := binary.Read(bytes.NewReader(raw), binary.LittleEndian, a.Data()); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	return a, nil
}

// Encode writes the container for a to w.
func Encode(w io.Writer, a *ndarray.Array, c Compression) error {
	data, err := Marshal(a, c)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// Decode reads a container from r until EOF.
func Decode(r io.Reader) (*ndarray.Array, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return Unmarshal(data)
}
