package unpackqa

import (
	"context"
	"fmt"
	"time"

	"github.com/hupe1980/unpackqa/bitplane"
	"github.com/hupe1980/unpackqa/ndarray"
	"golang.org/x/sync/errgroup"
)

// Unpacker decodes QA arrays of one product.
//
// An Unpacker holds no mutable state; it is safe for concurrent use.
type Unpacker struct {
	product  Product
	maxValue uint64
	opts     options
	logger   *Logger
}

// New returns an Unpacker for product.
func New(product Product, optFns ...Option) (*Unpacker, error) {
	if err := product.Validate(); err != nil {
		return nil, err
	}
	o := applyOptions(optFns)
	return &Unpacker{
		product:  product,
		maxValue: product.MaxValue(),
		opts:     o,
		logger:   o.logger.WithProduct(product.Name),
	}, nil
}

// Product returns the product definition.
func (u *Unpacker) Product() Product { return u.product }

// MaxValue returns the largest valid QA value.
func (u *Unpacker) MaxValue() uint64 { return u.maxValue }

// AvailableFlags returns the product's flag names in registry order.
// This is also the output order for All().
func (u *Unpacker) AvailableFlags() []string {
	return u.product.AvailableFlags()
}

// ResolveFlags turns a selector into the ordered list of flags to decode.
//
// All() yields the registry order. Named(...) keeps the caller's order and
// fails with *ErrInvalidFlagName listing every name missing from the registry.
func (u *Unpacker) ResolveFlags(sel FlagSelector) ([]string, error) {
	if sel.IsAll() {
		return u.AvailableFlags(), nil
	}

	names := sel.Names()
	if len(names) == 0 {
		return nil, ErrNoFlags
	}

	var invalid []string
	for _, name := range names {
		if !u.product.Flags.Has(name) {
			invalid = append(invalid, name)
		}
	}
	if len(invalid) > 0 {
		return nil, &ErrInvalidFlagName{Product: u.product.Name, Names: invalid}
	}
	return names, nil
}

// Validate checks that qa is an integer array with values in 0..MaxValue.
// It does not modify qa.
func (u *Unpacker) Validate(qa *ndarray.Array) error {
	return validate(qa, u.maxValue)
}

// Expand validates qa and returns its full bit-plane with NBits entries per value.
func (u *Unpacker) Expand(qa *ndarray.Array) (*bitplane.Plane, error) {
	if err := u.Validate(qa); err != nil {
		return nil, err
	}
	return bitplane.ExpandArray(qa, u.product.NBits)
}

// ExtractFlag decodes one flag from a bit-plane.
//
// A single bit index yields the 0/1 bit slice. Several indices are
// reassembled with the first listed index as the least significant bit.
func ExtractFlag(plane *bitplane.Plane, bitIndices []int) (*ndarray.Array, error) {
	return bitplane.Extract(plane, bitIndices)
}

// UnpackToArray decodes the selected flags into one array of shape
// qa.Shape() + (len(flags),), flags stacked along the last axis in the
// resolved order.
func (u *Unpacker) UnpackToArray(ctx context.Context, qa *ndarray.Array, sel FlagSelector) (*ndarray.Array, error) {
	out, _, err := u.unpack(ctx, qa, sel)
	return out, err
}

// UnpackToDict decodes the selected flags into one mask per flag, each shaped
// like qa. Iteration order of the result follows the resolved flag order.
func (u *Unpacker) UnpackToDict(ctx context.Context, qa *ndarray.Array, sel FlagSelector) (*FlagMasks, error) {
	stacked, flags, err := u.unpack(ctx, qa, sel)
	if err != nil {
		return nil, err
	}

	masks := newFlagMasks(len(flags))
	var split []*ndarray.Array
	switch v := stacked.Data().(type) {
	case []uint8:
		split = unstack(v, len(flags), qa.Shape())
	case []uint16:
		split = unstack(v, len(flags), qa.Shape())
	case []uint32:
		split = unstack(v, len(flags), qa.Shape())
	case []uint64:
		split = unstack(v, len(flags), qa.Shape())
	default:
		return nil, fmt.Errorf("unexpected mask type %s", stacked.DType())
	}
	for i, name := range flags {
		masks.set(name, split[i])
	}
	return masks, nil
}

func (u *Unpacker) unpack(ctx context.Context, qa *ndarray.Array, sel FlagSelector) (*ndarray.Array, []string, error) {
	start := time.Now()

	flags, err := u.ResolveFlags(sel)
	if err != nil {
		u.logger.LogUnpack(ctx, sizeOf(qa), 0, 0, time.Since(start), err)
		u.opts.metricsCollector.RecordUnpack(sizeOf(qa), 0, time.Since(start), err)
		return nil, nil, err
	}

	if err := u.Validate(qa); err != nil {
		if qa != nil {
			u.logger.LogValidation(ctx, qa.Shape(), err)
		}
		u.opts.metricsCollector.RecordValidationFailure(err)
		u.opts.metricsCollector.RecordUnpack(sizeOf(qa), len(flags), time.Since(start), err)
		return nil, nil, err
	}

	out, tiles, err := u.decode(ctx, qa, flags)
	u.logger.LogUnpack(ctx, qa.Size(), len(flags), tiles, time.Since(start), err)
	u.opts.metricsCollector.RecordUnpack(qa.Size(), len(flags), time.Since(start), err)
	if err != nil {
		return nil, nil, err
	}
	return out, flags, nil
}

func sizeOf(qa *ndarray.Array) int {
	if qa == nil {
		return 0
	}
	return qa.Size()
}

func (u *Unpacker) decode(ctx context.Context, qa *ndarray.Array, flags []string) (*ndarray.Array, int, error) {
	bitLists := make([][]int, len(flags))
	width := 0
	for i, name := range flags {
		bits, _ := u.product.Flags.Lookup(name)
		bitLists[i] = bits
		width = max(width, len(bits))
	}

	shape := append(qa.Shape(), len(flags))

	switch ndarray.UnsignedFor(width) {
	case ndarray.Uint8:
		return decodeAs[uint8](ctx, u, qa, bitLists, shape)
	case ndarray.Uint16:
		return decodeAs[uint16](ctx, u, qa, bitLists, shape)
	case ndarray.Uint32:
		return decodeAs[uint32](ctx, u, qa, bitLists, shape)
	default:
		return decodeAs[uint64](ctx, u, qa, bitLists, shape)
	}
}

func decodeAs[M uint8 | uint16 | uint32 | uint64](ctx context.Context, u *Unpacker, qa *ndarray.Array, bitLists [][]int, shape []int) (*ndarray.Array, int, error) {
	dst := make([]M, qa.Size()*len(bitLists))

	var (
		tiles int
		err   error
	)
	switch v := qa.Data().(type) {
	case []int8:
		tiles, err = decodeTiles(ctx, u, v, bitLists, dst)
	case []int16:
		tiles, err = decodeTiles(ctx, u, v, bitLists, dst)
	case []int32:
		tiles, err = decodeTiles(ctx, u, v, bitLists, dst)
	case []int64:
		tiles, err = decodeTiles(ctx, u, v, bitLists, dst)
	case []uint8:
		tiles, err = decodeTiles(ctx, u, v, bitLists, dst)
	case []uint16:
		tiles, err = decodeTiles(ctx, u, v, bitLists, dst)
	case []uint32:
		tiles, err = decodeTiles(ctx, u, v, bitLists, dst)
	case []uint64:
		tiles, err = decodeTiles(ctx, u, v, bitLists, dst)
	default:
		return nil, 0, &ErrInvalidType{DType: qa.DType()}
	}
	if err != nil {
		return nil, tiles, err
	}

	out, err := ndarray.New(dst, shape...)
	return out, tiles, err
}

// decodeTiles expands values tile by tile and writes every flag into the
// stacked destination. Each tile owns a disjoint range of dst.
func decodeTiles[T ndarray.Integer, M ndarray.Unsigned](ctx context.Context, u *Unpacker, values []T, bitLists [][]int, dst []M) (int, error) {
	numBits := u.product.NBits
	nflags := len(bitLists)
	ctrl := u.opts.controller

	tile := u.opts.tileSize
	limit := ctrl.MemoryLimit()
	if limit > 0 && int64(tile)*int64(numBits) > limit {
		tile = max(1, int(limit/int64(numBits)))
	}

	n := len(values)
	tiles := (n + tile - 1) / tile

	run := func(ctx context.Context, lo, hi int) error {
		need := int64(hi-lo) * int64(numBits)
		if limit > 0 {
			need = min(need, limit)
		}
		if err := ctrl.AcquireMemory(ctx, need); err != nil {
			return err
		}
		defer ctrl.ReleaseMemory(need)

		plane := bitplane.Expand(values[lo:hi], nil, numBits)
		sub := dst[lo*nflags : hi*nflags]
		for f, bits := range bitLists {
			if err := bitplane.ExtractInto(plane, bits, sub, nflags, f); err != nil {
				return err
			}
		}
		return nil
	}

	if u.opts.workers <= 1 || tiles <= 1 {
		for lo := 0; lo < n; lo += tile {
			if err := ctx.Err(); err != nil {
				return tiles, err
			}
			if err := run(ctx, lo, min(lo+tile, n)); err != nil {
				return tiles, err
			}
		}
		return tiles, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(u.opts.workers)
	for lo := 0; lo < n; lo += tile {
		hi := min(lo+tile, n)
		g.Go(func() error {
			if err := ctrl.AcquireWorker(gctx); err != nil {
				return err
			}
			defer ctrl.ReleaseWorker()
			return run(gctx, lo, hi)
		})
	}
	return tiles, g.Wait()
}

func unstack[M uint8 | uint16 | uint32 | uint64](stacked []M, nflags int, shape []int) []*ndarray.Array {
	n := 0
	if nflags > 0 {
		n = len(stacked) / nflags
	}
	out := make([]*ndarray.Array, nflags)
	for f := range nflags {
		mask := make([]M, n)
		for i := range mask {
			mask[i] = stacked[i*nflags+f]
		}
		out[f] = ndarray.MustNew(mask, shape...)
	}
	return out
}
